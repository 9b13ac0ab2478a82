package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"markregister/internal/ingest"
	"markregister/internal/marks"
	"markregister/internal/server/util"
	"markregister/internal/shared"
)

// maxUploadBytes caps the multipart memory footprint of one spreadsheet upload
const maxUploadBytes = 16 << 20 // 16 MiB

// MarkService is the mark-register contract the handlers depend on
type MarkService interface {
	UploadBatch(ctx context.Context, req marks.UploadRequest) ([]marks.RecordResult, error)
	GetReport(ctx context.Context, rollNo string) (*shared.Student, error)
	ListStudents(ctx context.Context) ([]marks.StudentSummary, error)
	GetClassStudents(ctx context.Context, classID string) ([]marks.StudentSummary, error)
	GetClassReports(ctx context.Context, classID string, caller *shared.User) ([]shared.Student, error)
	GetClassStatistics(ctx context.Context, classID string) (*marks.ClassStatistics, error)
}

// MarkHandler serves spreadsheet ingestion and report reads
type MarkHandler struct {
	Marks      MarkService
	Normalizer *ingest.Normalizer
}

// UploadMarks handles POST /api/upload
// Accepts either a multipart form with a spreadsheet under "file" plus
// classId, instituteId and testType fields, or an application/json body with
// already-normalized submissions, and upserts every record.
func (h *MarkHandler) UploadMarks(w http.ResponseWriter, r *http.Request) {
	// 1. Authorization: admins and incharges upload marks
	user := getUserFromContext(r)
	if !hasRole(user, shared.RoleAdmin, shared.RoleIncharge) {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: Only admins and incharges can upload marks")
		return
	}

	// 2. Build the batch from whichever body shape the client sent
	var req marks.UploadRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			util.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			util.WriteJSONError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			util.WriteJSONError(w, http.StatusBadRequest, "spreadsheet file is required")
			return
		}
		defer file.Close()

		req.ClassID = r.FormValue("classId")
		req.InstituteID = r.FormValue("instituteId")
		req.TestType = r.FormValue("testType")

		// Parse the sheet and normalize rows into exam submissions
		rows, err := ingest.ParseFile(header.Filename, file)
		if err != nil {
			util.WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse %s: %v", header.Filename, err))
			return
		}
		req.Students, err = h.Normalizer.Normalize(rows, req.TestType)
		if err != nil {
			util.HandleServiceError(w, err)
			return
		}
	}

	// 3. Upsert the batch
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	results, err := h.Marks.UploadBatch(ctx, req)
	if err != nil {
		if len(results) > 0 {
			// Partial outcome: report per-record results alongside the failure
			util.WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success": false,
				"message": err.Error(),
				"results": results,
			})
			return
		}
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("processed %d students", len(results)),
		"results": results,
	})
}

// GetReport handles GET /api/report/{rollNo}
func (h *MarkHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	rollNo := chi.URLParam(r, "rollNo")
	if rollNo == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "roll number is required")
		return
	}

	student, err := h.Marks.GetReport(r.Context(), rollNo)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, student)
}

// ListStudents handles GET /api/students
func (h *MarkHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.Marks.ListStudents(r.Context())
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, students)
}

// GetClassStudents handles GET /api/class-students/{classId}
func (h *MarkHandler) GetClassStudents(w http.ResponseWriter, r *http.Request) {
	classID := chi.URLParam(r, "classId")
	students, err := h.Marks.GetClassStudents(r.Context(), classID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, students)
}

// GetClassReports handles GET /api/class-reports/{classId}
// Returns the full exam history of every student in the class, subject to
// the caller's role.
func (h *MarkHandler) GetClassReports(w http.ResponseWriter, r *http.Request) {
	classID := chi.URLParam(r, "classId")
	students, err := h.Marks.GetClassReports(r.Context(), classID, getUserFromContext(r))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, students)
}

// GetClassStatistics handles GET /api/class-stats/{classId}
func (h *MarkHandler) GetClassStatistics(w http.ResponseWriter, r *http.Request) {
	classID := chi.URLParam(r, "classId")
	stats, err := h.Marks.GetClassStatistics(r.Context(), classID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, stats)
}
