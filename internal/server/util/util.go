package util

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"markregister/internal/shared"
)

// JSONResponse structure for successful responses
type JSONResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// JSONError structure for error responses
type JSONError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WriteJSON is a helper to write JSON responses
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	var response interface{}

	// If payload is already a map with a "success" key, use it directly (custom format)
	if responseMap, ok := payload.(map[string]interface{}); ok && responseMap["success"] != nil {
		response = payload
	} else if status >= 200 && status < 300 {
		// Standard success response wrapper
		response = JSONResponse{Success: true, Data: payload}
	} else {
		// Fallback for errors if WriteJSONError wasn't used
		response = JSONError{Success: false, Message: "Unknown error"}
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error writing JSON response: %v", err)
	}
}

// WriteJSONError is a helper to write standardized error JSON responses
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	log.Printf("HTTP Error %d: %s", status, message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errorResponse := JSONError{
		Success: false,
		Message: message,
	}

	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		log.Printf("Error writing JSON error response: %v", err)
	}
}

// HandleServiceError translates service error kinds to HTTP responses.
// Services wrap the shared sentinels via %w, so errors.Is classifies them.
func HandleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidArgument):
		WriteJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrUnauthenticated):
		WriteJSONError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, shared.ErrPermissionDenied):
		WriteJSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, shared.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrAlreadyExists):
		WriteJSONError(w, http.StatusConflict, err.Error())
	default:
		WriteJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

// ExtractToken extracts the token from the Authorization header
// (Bearer <token>), falling back to the "token" cookie
func ExtractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return "", errors.New("invalid authorization header format")
		}
		return parts[1], nil
	}

	cookie, err := r.Cookie("token")
	if err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	return "", errors.New("authorization token missing")
}
