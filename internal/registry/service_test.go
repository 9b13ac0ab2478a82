package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"markregister/internal/shared"
)

// Validation paths run before any database access, so a zero Service is
// enough to exercise them.

func TestCreateInstituteValidation(t *testing.T) {
	s := &Service{}

	cases := []struct {
		name string
		req  *CreateInstituteRequest
	}{
		{"Nil Request", nil},
		{"Missing Name", &CreateInstituteRequest{InstituteCode: "KE-01"}},
		{"Missing Code", &CreateInstituteRequest{Name: "KE Institute"}},
		{"Bad Type", &CreateInstituteRequest{Name: "KE Institute", InstituteCode: "KE-01", Type: "academy"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := s.CreateInstitute(context.Background(), c.req)
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected invalid-argument, got %v", err)
			}
		})
	}
}

func TestUpdateInstituteValidation(t *testing.T) {
	s := &Service{}

	if err := s.UpdateInstitute(context.Background(), "INST_x", nil); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("nil patch must be rejected, got %v", err)
	}
	// A request with zero-value Address and Contact subdocuments carries
	// nothing to set.
	if err := s.UpdateInstitute(context.Background(), "INST_x", &CreateInstituteRequest{}); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("empty patch must be rejected, got %v", err)
	}
}

func TestRequestPayloadShapes(t *testing.T) {
	t.Run("Institute Address And Contact Subdocuments", func(t *testing.T) {
		payload := `{
			"name": "KE Institute",
			"instituteCode": "KE-01",
			"address": {"street": "14 Mall Road", "city": "Jaipur", "state": "Rajasthan", "pincode": "302001"},
			"contact": {"phone": "0141-2550000", "email": "office@ke01.example.edu"}
		}`
		var req CreateInstituteRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		wantAddr := shared.Address{Street: "14 Mall Road", City: "Jaipur", State: "Rajasthan", Pincode: "302001"}
		if req.Address != wantAddr {
			t.Errorf("address = %+v, want %+v", req.Address, wantAddr)
		}
		wantContact := shared.Contact{Phone: "0141-2550000", Email: "office@ke01.example.edu"}
		if req.Contact != wantContact {
			t.Errorf("contact = %+v, want %+v", req.Contact, wantContact)
		}
	})

	t.Run("Class Year Is Numeric", func(t *testing.T) {
		var req CreateClassRequest
		if err := json.Unmarshal([]byte(`{"className":"10-A","year":2026,"instituteId":"INST_x"}`), &req); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if req.Year != 2026 {
			t.Errorf("year = %d, want 2026", req.Year)
		}
	})
}

func TestCreateClassValidation(t *testing.T) {
	s := &Service{}

	_, err := s.CreateClass(context.Background(), &CreateClassRequest{ClassName: "10-A"})
	if !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("missing institute id must be rejected, got %v", err)
	}
}

func TestListValidation(t *testing.T) {
	s := &Service{}

	if _, err := s.ListClassesByInstitute(context.Background(), ""); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected invalid-argument, got %v", err)
	}
	if _, err := s.ListInchargeClasses(context.Background(), ""); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected invalid-argument, got %v", err)
	}
	if _, err := s.ListIncharges(context.Background(), ""); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected invalid-argument, got %v", err)
	}
}

func TestSetUserActiveValidation(t *testing.T) {
	s := &Service{}

	if err := s.SetUserActive(context.Background(), "", true); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected invalid-argument, got %v", err)
	}
}
