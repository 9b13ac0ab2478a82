package handlers

import (
	"net/http"

	"markregister/internal/shared"
)

// helper to get user from context
func getUserFromContext(r *http.Request) *shared.User {
	user, ok := r.Context().Value("user").(*shared.User)
	if !ok {
		return nil
	}
	return user
}

// hasRole reports whether the caller holds one of the given roles
func hasRole(user *shared.User, roles ...string) bool {
	if user == nil {
		return false
	}
	for _, role := range roles {
		if user.Role == role {
			return true
		}
	}
	return false
}
