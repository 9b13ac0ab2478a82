// ============================================================================
// internal/shared/errors.go
// Service error kinds shared by all services and mapped to HTTP statuses in
// the server layer
// ============================================================================

package shared

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Services wrap these with context via %w so handlers
// can classify failures with errors.Is.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInternal         = errors.New("internal error")
)

// InvalidArgumentf returns a validation error with a human-readable message
func InvalidArgumentf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// NotFoundf returns a not-found error with a human-readable message
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// AlreadyExistsf returns a conflict error with a human-readable message
func AlreadyExistsf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrAlreadyExists, fmt.Sprintf(format, args...))
}

// Unauthenticatedf returns an authentication error with a human-readable message
func Unauthenticatedf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnauthenticated, fmt.Sprintf(format, args...))
}

// PermissionDeniedf returns an authorization error with a human-readable message
func PermissionDeniedf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, fmt.Sprintf(format, args...))
}

// Internalf returns an internal error with a human-readable message
func Internalf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}
