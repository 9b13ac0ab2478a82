// ============================================================================
// internal/report/archive.go
// Batch export orchestrator: render every report card in a class and bundle
// them into one ZIP archive
// ============================================================================

package report

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"markregister/internal/shared"
)

// RosterFetcher supplies the class roster with embedded exam histories
type RosterFetcher interface {
	GetClassReports(ctx context.Context, classID string, caller *shared.User) ([]shared.Student, error)
}

// InstituteFetcher resolves institute letterhead data for report headers
type InstituteFetcher interface {
	GetInstitute(ctx context.Context, id string) (*shared.Institute, error)
}

// ExportResult is the outcome of one class export. A student-level failure
// lands in Failed and does not abort the batch.
type ExportResult struct {
	Archive   []byte            `json:"-"`
	Generated []string          `json:"generated"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// Exporter drives per-student rendering with bounded concurrency and
// serialized archive insertion.
type Exporter struct {
	roster     RosterFetcher
	institutes InstituteFetcher
	workers    int

	// render is swappable for tests
	render func(*Document) ([]byte, error)
}

// NewExporter creates a new Exporter instance
func NewExporter(roster RosterFetcher, institutes InstituteFetcher, workers int) *Exporter {
	if workers <= 0 {
		workers = 4
	}
	return &Exporter{
		roster:     roster,
		institutes: institutes,
		workers:    workers,
		render:     RenderPDF,
	}
}

// ExportClass renders a report card PDF for every student in the class and
// packages them into one ZIP, one entry per roll number plus a manifest.
func (e *Exporter) ExportClass(ctx context.Context, classID string, caller *shared.User) (*ExportResult, error) {
	students, err := e.roster.GetClassReports(ctx, classID, caller)
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return nil, shared.NotFoundf("class %s has no students", classID)
	}

	result := &ExportResult{Failed: make(map[string]string)}

	var (
		mu        sync.Mutex
		buf       bytes.Buffer
		zipWriter = zip.NewWriter(&buf)
		instCache sync.Map
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, student := range students {
		student := student
		g.Go(func() error {
			pdfBytes, err := e.renderStudent(gctx, &student, &instCache)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("Warning: report render failed for student %s: %v", student.RollNo, err)
				result.Failed[student.RollNo] = err.Error()
				return nil // one bad student must not sink the batch
			}

			entry, err := zipWriter.Create(fmt.Sprintf("ReportCard-%s.pdf", student.RollNo))
			if err != nil {
				return shared.Internalf("failed to create archive entry for %s: %v", student.RollNo, err)
			}
			if _, err := entry.Write(pdfBytes); err != nil {
				return shared.Internalf("failed to write archive entry for %s: %v", student.RollNo, err)
			}
			result.Generated = append(result.Generated, student.RollNo)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zipWriter.Close()
		return nil, err
	}

	sort.Strings(result.Generated)
	if err := writeManifest(zipWriter, result); err != nil {
		zipWriter.Close()
		return nil, err
	}

	if err := zipWriter.Close(); err != nil {
		return nil, shared.Internalf("failed to finalize archive: %v", err)
	}

	result.Archive = buf.Bytes()
	return result, nil
}

func (e *Exporter) renderStudent(ctx context.Context, student *shared.Student, instCache *sync.Map) ([]byte, error) {
	var institute *shared.Institute
	if student.InstituteID != "" {
		if cached, ok := instCache.Load(student.InstituteID); ok {
			institute = cached.(*shared.Institute)
		} else {
			inst, err := e.institutes.GetInstitute(ctx, student.InstituteID)
			if err != nil {
				// Letterhead is decorative; render without it
				log.Printf("Warning: failed to resolve institute %s: %v", student.InstituteID, err)
			} else {
				institute = inst
			}
			instCache.Store(student.InstituteID, institute)
		}
	}

	return e.render(BuildDocument(student, institute))
}

func writeManifest(zipWriter *zip.Writer, result *ExportResult) error {
	entry, err := zipWriter.Create("manifest.txt")
	if err != nil {
		return shared.Internalf("failed to create manifest: %v", err)
	}

	var manifest bytes.Buffer
	fmt.Fprintf(&manifest, "generated: %d\n", len(result.Generated))
	for _, rollNo := range result.Generated {
		fmt.Fprintf(&manifest, "ok ReportCard-%s.pdf\n", rollNo)
	}
	if len(result.Failed) > 0 {
		failed := make([]string, 0, len(result.Failed))
		for rollNo := range result.Failed {
			failed = append(failed, rollNo)
		}
		sort.Strings(failed)
		fmt.Fprintf(&manifest, "failed: %d\n", len(failed))
		for _, rollNo := range failed {
			fmt.Fprintf(&manifest, "failed %s: %s\n", rollNo, result.Failed[rollNo])
		}
	}

	_, err = entry.Write(manifest.Bytes())
	return err
}
