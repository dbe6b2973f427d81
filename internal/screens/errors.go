// Package screens holds the per-screen state and operations of the app.
// Rendering and input belong to the front end; everything here is UI-free.
package screens

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password accepted at signup.
const MinPasswordLength = 6

// ErrPermissionDenied is returned when the user refuses gallery access.
var ErrPermissionDenied = errors.New("permission to access gallery is required")

// ErrNotMounted is returned by operations that need a mounted screen.
var ErrNotMounted = errors.New("screen is not mounted")

// ValidationError is an input problem caught before any request is issued.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func invalid(msg string) error {
	return &ValidationError{Msg: msg}
}

// blank reports whether s is empty after trimming.
func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func validateCredentials(email, password string, signup bool) error {
	if email == "" || password == "" {
		if signup {
			return invalid("Please enter both email and password.")
		}
		return invalid("Email and password are required!")
	}
	if signup && utf8.RuneCountInString(password) < MinPasswordLength {
		return invalid("Password must be at least 6 characters.")
	}
	return nil
}
