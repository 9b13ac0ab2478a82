package report

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"markregister/internal/shared"
)

type stubRoster struct {
	students []shared.Student
	err      error
}

func (s *stubRoster) GetClassReports(ctx context.Context, classID string, caller *shared.User) ([]shared.Student, error) {
	return s.students, s.err
}

type stubInstitutes struct {
	institute *shared.Institute
	err       error
	calls     int
}

func (s *stubInstitutes) GetInstitute(ctx context.Context, id string) (*shared.Institute, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.institute, nil
}

func rosterOf(rollNos ...string) []shared.Student {
	students := make([]shared.Student, 0, len(rollNos))
	for _, rollNo := range rollNos {
		students = append(students, shared.Student{
			RollNo:      rollNo,
			Name:        "Student " + rollNo,
			InstituteID: "INST-1",
			Exams: []shared.Exam{{
				ExamType: shared.ExamTypeCDF,
				ExamName: "Unit Test 1",
				ExamData: shared.ExamData{
					ExamName:      "Unit Test 1",
					SubjectScores: map[string]float64{"MM": 70},
					TotalMarks:    70,
				},
			}},
		})
	}
	return students
}

func readArchive(t *testing.T, archive []byte) map[string]string {
	t.Helper()
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("archive is not a valid zip: %v", err)
	}
	entries := make(map[string]string, len(reader.File))
	for _, file := range reader.File {
		rc, err := file.Open()
		if err != nil {
			t.Fatalf("failed to open %s: %v", file.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read %s: %v", file.Name, err)
		}
		entries[file.Name] = string(data)
	}
	return entries
}

func TestExportClass(t *testing.T) {
	t.Run("One Entry Per Student Plus Manifest", func(t *testing.T) {
		exporter := NewExporter(
			&stubRoster{students: rosterOf("101", "102", "103")},
			&stubInstitutes{institute: &shared.Institute{Name: "KE Institute"}},
			2,
		)

		result, err := exporter.ExportClass(context.Background(), "CLS-1", nil)
		if err != nil {
			t.Fatalf("ExportClass failed: %v", err)
		}

		entries := readArchive(t, result.Archive)
		if len(entries) != 4 {
			t.Fatalf("expected 3 PDFs + manifest, got %d entries", len(entries))
		}
		for _, rollNo := range []string{"101", "102", "103"} {
			pdf, ok := entries["ReportCard-"+rollNo+".pdf"]
			if !ok {
				t.Fatalf("missing entry for %s", rollNo)
			}
			if !strings.HasPrefix(pdf, "%PDF-") {
				t.Errorf("entry for %s is not a PDF", rollNo)
			}
		}
		if !strings.HasPrefix(entries["manifest.txt"], "generated: 3\n") {
			t.Errorf("manifest = %q", entries["manifest.txt"])
		}
		if len(result.Generated) != 3 || len(result.Failed) != 0 {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("Render Failure Does Not Abort Batch", func(t *testing.T) {
		exporter := NewExporter(
			&stubRoster{students: rosterOf("101", "102")},
			&stubInstitutes{institute: &shared.Institute{Name: "KE Institute"}},
			2,
		)
		exporter.render = func(doc *Document) ([]byte, error) {
			if doc.RollNo == "102" {
				return nil, errors.New("render blew up")
			}
			return RenderPDF(doc)
		}

		result, err := exporter.ExportClass(context.Background(), "CLS-1", nil)
		if err != nil {
			t.Fatalf("ExportClass failed: %v", err)
		}

		entries := readArchive(t, result.Archive)
		if _, ok := entries["ReportCard-101.pdf"]; !ok {
			t.Errorf("healthy student missing from archive")
		}
		if _, ok := entries["ReportCard-102.pdf"]; ok {
			t.Errorf("failed student must not appear in archive")
		}
		if result.Failed["102"] != "render blew up" {
			t.Errorf("failed map = %v", result.Failed)
		}
		if !strings.Contains(entries["manifest.txt"], "failed 102: render blew up") {
			t.Errorf("manifest = %q", entries["manifest.txt"])
		}
	})

	t.Run("Institute Lookup Failure Renders Without Letterhead", func(t *testing.T) {
		institutes := &stubInstitutes{err: errors.New("mongo down")}
		exporter := NewExporter(&stubRoster{students: rosterOf("101", "102")}, institutes, 1)

		result, err := exporter.ExportClass(context.Background(), "CLS-1", nil)
		if err != nil {
			t.Fatalf("ExportClass failed: %v", err)
		}
		if len(result.Generated) != 2 {
			t.Fatalf("expected 2 generated, got %v", result.Generated)
		}
	})

	t.Run("Institute Resolved Once Per Class", func(t *testing.T) {
		institutes := &stubInstitutes{institute: &shared.Institute{Name: "KE Institute"}}
		// single worker so the cache is populated before the second lookup
		exporter := NewExporter(&stubRoster{students: rosterOf("101", "102", "103")}, institutes, 1)

		if _, err := exporter.ExportClass(context.Background(), "CLS-1", nil); err != nil {
			t.Fatalf("ExportClass failed: %v", err)
		}
		if institutes.calls != 1 {
			t.Errorf("expected 1 institute lookup, got %d", institutes.calls)
		}
	})

	t.Run("Empty Class", func(t *testing.T) {
		exporter := NewExporter(&stubRoster{}, &stubInstitutes{}, 2)
		_, err := exporter.ExportClass(context.Background(), "CLS-1", nil)
		if !errors.Is(err, shared.ErrNotFound) {
			t.Fatalf("expected not-found error, got %v", err)
		}
	})

	t.Run("Roster Error Propagates", func(t *testing.T) {
		exporter := NewExporter(&stubRoster{err: shared.PermissionDeniedf("not your class")}, &stubInstitutes{}, 2)
		_, err := exporter.ExportClass(context.Background(), "CLS-1", nil)
		if !errors.Is(err, shared.ErrPermissionDenied) {
			t.Fatalf("expected permission error, got %v", err)
		}
	})
}
