package firebase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"firetodo/internal/service"
)

// wrapError translates API errors into service errors, keeping the server
// message for display.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, service.ErrNotSignedIn) {
		return service.ErrNotSignedIn
	}

	// Check for timeout
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out", service.ErrUnavailable)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.Code)
		}
		if sentinel := authErrorFor(errorCode(msg)); sentinel != nil {
			return fmt.Errorf("%w: %s", sentinel, msg)
		}
		switch {
		case apiErr.Code == http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", service.ErrNotSignedIn, msg)
		case apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %s", service.ErrPermissionDenied, msg)
		case apiErr.Code == http.StatusNotFound:
			return fmt.Errorf("%w: %s", service.ErrNotFound, msg)
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			return fmt.Errorf("%w: %s", service.ErrUnavailable, msg)
		}
		return errors.New(msg)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		msg := retrieveErr.ErrorCode
		if msg == "" {
			msg = "session refresh failed"
		}
		return fmt.Errorf("%w: %s", service.ErrNotSignedIn, msg)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", service.ErrUnavailable, urlErr.Err)
	}

	return err
}

// errorCode extracts the leading code of an identity toolkit message,
// e.g. "WEAK_PASSWORD : Password should be at least 6 characters".
func errorCode(msg string) string {
	fields := strings.Fields(msg)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimSuffix(fields[0], ":")
}

func authErrorFor(code string) error {
	switch code {
	case "EMAIL_EXISTS":
		return service.ErrEmailExists
	case "WEAK_PASSWORD":
		return service.ErrWeakPassword
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS",
		"INVALID_EMAIL", "MISSING_PASSWORD", "USER_DISABLED":
		return service.ErrInvalidCredential
	case "INVALID_ID_TOKEN", "TOKEN_EXPIRED", "USER_NOT_FOUND",
		"CREDENTIAL_TOO_OLD_LOGIN_AGAIN", "INVALID_REFRESH_TOKEN":
		return service.ErrNotSignedIn
	}
	return nil
}
