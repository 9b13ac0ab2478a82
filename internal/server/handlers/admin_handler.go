package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"markregister/internal/registry"
	"markregister/internal/server/util"
	"markregister/internal/shared"
)

// RegistryService is the directory contract the handlers depend on
type RegistryService interface {
	CreateInstitute(ctx context.Context, req *registry.CreateInstituteRequest) (*shared.Institute, error)
	GetInstitute(ctx context.Context, id string) (*shared.Institute, error)
	ListInstitutes(ctx context.Context) ([]shared.Institute, error)
	UpdateInstitute(ctx context.Context, id string, req *registry.CreateInstituteRequest) error

	CreateClass(ctx context.Context, req *registry.CreateClassRequest) (*shared.Class, error)
	GetClass(ctx context.Context, id string) (*shared.Class, error)
	ListClassesByInstitute(ctx context.Context, instituteID string) ([]shared.Class, error)
	ListInchargeClasses(ctx context.Context, teacherID string) ([]shared.Class, error)
	AssignClassTeacher(ctx context.Context, classID, teacherID string) error

	ListUsers(ctx context.Context) ([]shared.User, error)
	ListUsersByInstitution(ctx context.Context, institutionID string) ([]shared.User, error)
	ListIncharges(ctx context.Context, institutionID string) ([]shared.User, error)
	SetUserActive(ctx context.Context, userID string, active bool) error
}

// AdminHandler serves institute, class and user directory endpoints
type AdminHandler struct {
	Registry RegistryService
}

// ============================================================================
// Institutes
// ============================================================================

// CreateInstitute handles POST /api/institutes
func (h *AdminHandler) CreateInstitute(w http.ResponseWriter, r *http.Request) {
	if !hasRole(getUserFromContext(r), shared.RoleAdmin, shared.RoleManager) {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied")
		return
	}

	var req registry.CreateInstituteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	institute, err := h.Registry.CreateInstitute(r.Context(), &req)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusCreated, institute)
}

// GetInstitute handles GET /api/institutes/{id}
func (h *AdminHandler) GetInstitute(w http.ResponseWriter, r *http.Request) {
	institute, err := h.Registry.GetInstitute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, institute)
}

// ListInstitutes handles GET /api/institutes
func (h *AdminHandler) ListInstitutes(w http.ResponseWriter, r *http.Request) {
	institutes, err := h.Registry.ListInstitutes(r.Context())
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, institutes)
}

// UpdateInstitute handles PUT /api/institutes/{id}
func (h *AdminHandler) UpdateInstitute(w http.ResponseWriter, r *http.Request) {
	if !hasRole(getUserFromContext(r), shared.RoleAdmin, shared.RoleManager) {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied")
		return
	}

	var req registry.CreateInstituteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Registry.UpdateInstitute(r.Context(), chi.URLParam(r, "id"), &req); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "institute updated",
	})
}

// ============================================================================
// Classes
// ============================================================================

// CreateClass handles POST /api/classes
func (h *AdminHandler) CreateClass(w http.ResponseWriter, r *http.Request) {
	if !hasRole(getUserFromContext(r), shared.RoleAdmin, shared.RolePrincipal, shared.RoleManager) {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied")
		return
	}

	var req registry.CreateClassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	class, err := h.Registry.CreateClass(r.Context(), &req)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusCreated, class)
}

// GetClass handles GET /api/classes/{id}
func (h *AdminHandler) GetClass(w http.ResponseWriter, r *http.Request) {
	class, err := h.Registry.GetClass(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, class)
}

// ListClassesByInstitute handles GET /api/institutes/{id}/classes
func (h *AdminHandler) ListClassesByInstitute(w http.ResponseWriter, r *http.Request) {
	classes, err := h.Registry.ListClassesByInstitute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, classes)
}

// ListMyClasses handles GET /api/classes/mine
// Returns the classes the calling incharge is responsible for.
func (h *AdminHandler) ListMyClasses(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if user == nil {
		util.WriteJSONError(w, http.StatusUnauthorized, "not logged in")
		return
	}

	classes, err := h.Registry.ListInchargeClasses(r.Context(), user.ID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, classes)
}

// AssignClassTeacher handles POST /api/classes/{id}/assign-teacher
func (h *AdminHandler) AssignClassTeacher(w http.ResponseWriter, r *http.Request) {
	if !hasRole(getUserFromContext(r), shared.RoleAdmin, shared.RolePrincipal, shared.RoleManager) {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied")
		return
	}

	var req struct {
		TeacherID string `json:"teacherId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Registry.AssignClassTeacher(r.Context(), chi.URLParam(r, "id"), req.TeacherID); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "class teacher assigned",
	})
}

// ============================================================================
// Users
// ============================================================================

// ListUsers handles GET /api/admin/users
// Admins see everyone; principals and managers see their own institution.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	switch {
	case hasRole(user, shared.RoleAdmin):
		users, err := h.Registry.ListUsers(r.Context())
		if err != nil {
			util.HandleServiceError(w, err)
			return
		}
		util.WriteJSON(w, http.StatusOK, users)
	case hasRole(user, shared.RolePrincipal, shared.RoleManager):
		users, err := h.Registry.ListUsersByInstitution(r.Context(), user.InstitutionID)
		if err != nil {
			util.HandleServiceError(w, err)
			return
		}
		util.WriteJSON(w, http.StatusOK, users)
	default:
		util.WriteJSONError(w, http.StatusForbidden, "Access denied")
	}
}

// ListIncharges handles GET /api/institutes/{id}/incharges
func (h *AdminHandler) ListIncharges(w http.ResponseWriter, r *http.Request) {
	if !hasRole(getUserFromContext(r), shared.RoleAdmin, shared.RolePrincipal, shared.RoleManager) {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied")
		return
	}

	incharges, err := h.Registry.ListIncharges(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, incharges)
}

// ToggleUserStatus handles PATCH /api/admin/users/{id}/status
func (h *AdminHandler) ToggleUserStatus(w http.ResponseWriter, r *http.Request) {
	if !hasRole(getUserFromContext(r), shared.RoleAdmin) {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: Admin only")
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Registry.SetUserActive(r.Context(), chi.URLParam(r, "id"), req.Active); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "user status updated",
	})
}
