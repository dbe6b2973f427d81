package service

import "errors"

var (
	// ErrNotFound is returned when a record or blob does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotSignedIn is returned for requests that need a session.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrEmailExists is returned when signing up with a registered email.
	ErrEmailExists = errors.New("email already in use")

	// ErrWeakPassword is returned when the backend rejects a password.
	ErrWeakPassword = errors.New("weak password")

	// ErrInvalidCredential is returned for unknown email or wrong password.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrPermissionDenied is returned when the backend refuses access.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnavailable is returned for network failures and timeouts.
	ErrUnavailable = errors.New("service unavailable")
)

// IsAuthError reports whether err is a credential or session problem.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotSignedIn) ||
		errors.Is(err, ErrInvalidCredential) ||
		errors.Is(err, ErrEmailExists) ||
		errors.Is(err, ErrWeakPassword)
}
