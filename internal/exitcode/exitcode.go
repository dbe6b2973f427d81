// Package exitcode defines exit codes for commands and the process.
package exitcode

import (
	"errors"

	"firetodo/internal/screens"
	"firetodo/internal/service"
)

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, failed validation, unknown task).
	UserError = 1

	// AuthError indicates a credential, session or config error.
	AuthError = 2

	// BackendError indicates a backend/API/network error.
	BackendError = 3
)

// For classifies err. A nil error is Success.
func For(err error) int {
	switch {
	case err == nil:
		return Success
	case screens.IsValidation(err),
		errors.Is(err, screens.ErrPermissionDenied),
		errors.Is(err, screens.ErrNotMounted),
		errors.Is(err, service.ErrNotFound):
		return UserError
	case service.IsAuthError(err):
		return AuthError
	default:
		return BackendError
	}
}
