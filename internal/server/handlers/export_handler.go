package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"markregister/internal/report"
	"markregister/internal/server/util"
	"markregister/internal/shared"
)

// ExportService drives batch report-card rendering
type ExportService interface {
	ExportClass(ctx context.Context, classID string, caller *shared.User) (*report.ExportResult, error)
}

// ExportHandler serves ZIP downloads of whole-class report cards
type ExportHandler struct {
	Exports ExportService
}

// ExportClassReports handles GET /api/export-reports/{classId}
// Streams back a ZIP archive with one PDF per student plus a manifest.
func (h *ExportHandler) ExportClassReports(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if !hasRole(user, shared.RoleAdmin, shared.RolePrincipal, shared.RoleIncharge, shared.RoleManager) {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied")
		return
	}

	classID := chi.URLParam(r, "classId")
	if classID == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "class id is required")
		return
	}

	// Rendering a whole class takes a while; give it its own deadline
	ctx, cancel := context.WithTimeout(r.Context(), 120*time.Second)
	defer cancel()

	result, err := h.Exports.ExportClass(ctx, classID, user)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="ReportCards-%s.zip"`, classID))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(result.Archive)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Archive); err != nil {
		// Client went away mid-download; nothing more to do
		return
	}
}
