package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"markregister/internal/ingest"
	"markregister/internal/marks"
	"markregister/internal/shared"
)

type stubMarkService struct {
	uploadReq     *marks.UploadRequest
	uploadResults []marks.RecordResult
	uploadErr     error
	student       *shared.Student
	reportErr     error
}

func (s *stubMarkService) UploadBatch(ctx context.Context, req marks.UploadRequest) ([]marks.RecordResult, error) {
	s.uploadReq = &req
	return s.uploadResults, s.uploadErr
}

func (s *stubMarkService) GetReport(ctx context.Context, rollNo string) (*shared.Student, error) {
	return s.student, s.reportErr
}

func (s *stubMarkService) ListStudents(ctx context.Context) ([]marks.StudentSummary, error) {
	return nil, nil
}

func (s *stubMarkService) GetClassStudents(ctx context.Context, classID string) ([]marks.StudentSummary, error) {
	return nil, nil
}

func (s *stubMarkService) GetClassReports(ctx context.Context, classID string, caller *shared.User) ([]shared.Student, error) {
	return nil, nil
}

func (s *stubMarkService) GetClassStatistics(ctx context.Context, classID string) (*marks.ClassStatistics, error) {
	return nil, nil
}

func asUser(r *http.Request, user *shared.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), "user", user))
}

func multipartUpload(t *testing.T, csvBody string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "marks.csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(csvBody)); err != nil {
		t.Fatal(err)
	}
	for key, value := range fields {
		writer.WriteField(key, value)
	}
	writer.Close()
	return &buf, writer.FormDataContentType()
}

func TestUploadMarks(t *testing.T) {
	admin := &shared.User{ID: "USR-1", Role: shared.RoleAdmin}

	t.Run("Role Gate", func(t *testing.T) {
		h := &MarkHandler{Marks: &stubMarkService{}, Normalizer: ingest.NewNormalizer(nil)}
		body, contentType := multipartUpload(t, "Roll No,Name\n1,A\n", nil)
		r := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		r.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		h.UploadMarks(rec, asUser(r, &shared.User{ID: "USR-2", Role: shared.RolePrincipal}))
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("Parses And Forwards Batch", func(t *testing.T) {
		stub := &stubMarkService{uploadResults: []marks.RecordResult{{RollNo: "1", Created: true}}}
		h := &MarkHandler{Marks: stub, Normalizer: ingest.NewNormalizer(nil)}

		body, contentType := multipartUpload(t,
			"Roll No,Name,Exam Name,Total Marks\n1,Asha,Weekly 1,100\n",
			map[string]string{"classId": "CLS-1", "instituteId": "INST-1", "testType": shared.ExamTypeIIT},
		)
		r := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		r.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		h.UploadMarks(rec, asUser(r, admin))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if stub.uploadReq == nil {
			t.Fatal("service never called")
		}
		if stub.uploadReq.ClassID != "CLS-1" || stub.uploadReq.TestType != shared.ExamTypeIIT {
			t.Errorf("request = %+v", stub.uploadReq)
		}
		if len(stub.uploadReq.Students) != 1 || stub.uploadReq.Students[0].RollNo != "1" {
			t.Errorf("students = %+v", stub.uploadReq.Students)
		}
	})

	t.Run("JSON Body", func(t *testing.T) {
		stub := &stubMarkService{uploadResults: []marks.RecordResult{{RollNo: "7", Created: true}}}
		h := &MarkHandler{Marks: stub, Normalizer: ingest.NewNormalizer(nil)}

		payload := marks.UploadRequest{
			Students: []ingest.Submission{{
				RollNo: "7",
				Name:   "Ravi",
				Exam:   shared.Exam{ExamType: shared.ExamTypeCDF, ExamName: "Unit Test 1"},
			}},
			ClassID:     "CLS-1",
			InstituteID: "INST-1",
			TestType:    shared.ExamTypeCDF,
		}
		body, _ := json.Marshal(payload)
		r := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		h.UploadMarks(rec, asUser(r, admin))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if stub.uploadReq == nil || len(stub.uploadReq.Students) != 1 || stub.uploadReq.Students[0].RollNo != "7" {
			t.Errorf("request = %+v", stub.uploadReq)
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		h := &MarkHandler{Marks: &stubMarkService{}, Normalizer: ingest.NewNormalizer(nil)}
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		writer.WriteField("classId", "CLS-1")
		writer.Close()

		r := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
		r.Header.Set("Content-Type", writer.FormDataContentType())
		rec := httptest.NewRecorder()

		h.UploadMarks(rec, asUser(r, admin))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("Unknown Test Type", func(t *testing.T) {
		h := &MarkHandler{Marks: &stubMarkService{}, Normalizer: ingest.NewNormalizer(nil)}
		body, contentType := multipartUpload(t, "Roll No,Name\n1,A\n",
			map[string]string{"classId": "CLS-1", "instituteId": "INST-1", "testType": "NEET"})
		r := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		r.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		h.UploadMarks(rec, asUser(r, admin))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("Partial Failure Reports Results", func(t *testing.T) {
		stub := &stubMarkService{
			uploadResults: []marks.RecordResult{{RollNo: "1", Created: true}, {RollNo: "2", Error: "db down"}},
			uploadErr:     shared.Internalf("student 2: db down"),
		}
		h := &MarkHandler{Marks: stub, Normalizer: ingest.NewNormalizer(nil)}

		body, contentType := multipartUpload(t,
			"Roll No,Name\n1,A\n2,B\n",
			map[string]string{"classId": "CLS-1", "instituteId": "INST-1", "testType": shared.ExamTypeCDF})
		r := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		r.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		h.UploadMarks(rec, asUser(r, admin))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}

		var resp struct {
			Success bool                 `json:"success"`
			Results []marks.RecordResult `json:"results"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("bad body: %v", err)
		}
		if resp.Success || len(resp.Results) != 2 {
			t.Errorf("response = %+v", resp)
		}
	})
}

func TestGetReport(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		stub := &stubMarkService{student: &shared.Student{RollNo: "101", Name: "Asha"}}
		h := &MarkHandler{Marks: stub}

		router := chi.NewRouter()
		router.Get("/api/report/{rollNo}", h.GetReport)

		r := httptest.NewRequest(http.MethodGet, "/api/report/101", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, r)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("Not Found", func(t *testing.T) {
		stub := &stubMarkService{reportErr: shared.NotFoundf("student 999 not found")}
		h := &MarkHandler{Marks: stub}

		router := chi.NewRouter()
		router.Get("/api/report/{rollNo}", h.GetReport)

		r := httptest.NewRequest(http.MethodGet, "/api/report/999", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, r)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}
