package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"markregister/internal/auth"
	"markregister/internal/server/util"
	"markregister/internal/shared"
)

// AuthService is the account contract the handlers depend on
type AuthService interface {
	Signup(ctx context.Context, req *auth.SignupRequest, client *auth.ClientInfo) (*shared.User, error)
	Login(ctx context.Context, username, password string, client *auth.ClientInfo) (*auth.LoginResult, error)
	Logout(ctx context.Context, userID string) error
	CurrentUser(ctx context.Context, userID string) (*shared.User, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	AdminChangePassword(ctx context.Context, userID, newPassword string) error
	GetLoginLogs(ctx context.Context, limit int64) ([]shared.LoginLog, error)
	GetVisitors(ctx context.Context, limit int64) ([]shared.Visitor, error)
}

// AuthHandler serves account and session endpoints
type AuthHandler struct {
	Auth AuthService
}

// RESTLoginRequest mirrors the JSON input for POST /api/auth/login
type RESTLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RESTChangePasswordRequest mirrors the JSON input for POST /api/auth/change-password
type RESTChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func clientInfo(r *http.Request) *auth.ClientInfo {
	return &auth.ClientInfo{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
		URL:       r.URL.Path,
	}
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Auth.Signup(r.Context(), &req, clientInfo(r))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusCreated, user)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req RESTLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Auth.Login(r.Context(), req.Username, req.Password, clientInfo(r))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	// Cookie for browser clients; the token is also in the body for API use
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	util.WriteJSON(w, http.StatusOK, result)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if user == nil {
		util.WriteJSONError(w, http.StatusUnauthorized, "not logged in")
		return
	}

	if err := h.Auth.Logout(r.Context(), user.ID); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "logout successful",
	})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if user == nil {
		util.WriteJSONError(w, http.StatusUnauthorized, "not logged in")
		return
	}

	current, err := h.Auth.CurrentUser(r.Context(), user.ID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, current)
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if user == nil {
		util.WriteJSONError(w, http.StatusUnauthorized, "not logged in")
		return
	}

	var req RESTChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Auth.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "password changed successfully",
	})
}

// AdminResetPassword handles POST /api/admin/users/{id}/reset-password
func (h *AuthHandler) AdminResetPassword(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	if !hasRole(user, shared.RoleAdmin) {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: Admin only")
		return
	}

	var req struct {
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	targetID := chi.URLParam(r, "id")
	if err := h.Auth.AdminChangePassword(r.Context(), targetID, req.NewPassword); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "password reset",
	})
}

// GetLoginLogs handles GET /api/admin/login-logs
func (h *AuthHandler) GetLoginLogs(w http.ResponseWriter, r *http.Request) {
	if !hasRole(getUserFromContext(r), shared.RoleAdmin) {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: Admin only")
		return
	}

	logs, err := h.Auth.GetLoginLogs(r.Context(), 100)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, logs)
}

// GetVisitors handles GET /api/admin/visitors
func (h *AuthHandler) GetVisitors(w http.ResponseWriter, r *http.Request) {
	if !hasRole(getUserFromContext(r), shared.RoleAdmin) {
		util.WriteJSONError(w, http.StatusForbidden, "Access denied: Admin only")
		return
	}

	visitors, err := h.Auth.GetVisitors(r.Context(), 100)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, visitors)
}
