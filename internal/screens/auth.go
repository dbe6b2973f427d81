package screens

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"firetodo/internal/nav"
	"firetodo/internal/service"
	"firetodo/internal/session"
)

// FormState is the state of a credential form.
type FormState int

const (
	FormIdle FormState = iota
	FormSubmitting
	FormFailed
	FormDone
)

func (s FormState) String() string {
	switch s {
	case FormIdle:
		return "idle"
	case FormSubmitting:
		return "submitting"
	case FormFailed:
		return "failed"
	case FormDone:
		return "done"
	default:
		return "unknown"
	}
}

// form holds what a credential screen displays. The password is never kept.
type form struct {
	mu    sync.Mutex
	state FormState
	email string
	err   error
}

func (f *form) begin(email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.email = email
	f.err = nil
	f.state = FormSubmitting
}

func (f *form) finish(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
	if err != nil {
		f.state = FormFailed
		return
	}
	f.state = FormDone
}

// State returns the form state.
func (f *form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Email returns the last entered email, kept for correction after a failure.
func (f *form) Email() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.email
}

// Err returns the error of the last submission.
func (f *form) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Signup is the account-creation screen.
type Signup struct {
	form
	auth service.Auth
	log  *slog.Logger
}

// NewSignup creates the signup screen.
func NewSignup(auth service.Auth, logger *slog.Logger) *Signup {
	return &Signup{auth: auth, log: orDiscard(logger)}
}

// Submit validates the input and creates the account.
// On success the app navigates to the login screen.
func (s *Signup) Submit(ctx context.Context, email, password string) (nav.Screen, error) {
	email, password = strings.TrimSpace(email), strings.TrimSpace(password)
	s.begin(email)

	if err := validateCredentials(email, password, true); err != nil {
		s.finish(err)
		return nav.ScreenSignup, err
	}

	if _, err := s.auth.CreateAccount(ctx, email, password); err != nil {
		s.log.Warn("signup failed", slog.Any("error", err))
		s.finish(err)
		return nav.ScreenSignup, err
	}

	s.finish(nil)
	return nav.ScreenLogin, nil
}

// Login is the sign-in screen.
type Login struct {
	form
	auth     service.Auth
	observer *session.Observer
	log      *slog.Logger
}

// NewLogin creates the login screen.
func NewLogin(auth service.Auth, observer *session.Observer, logger *slog.Logger) *Login {
	return &Login{auth: auth, observer: observer, log: orDiscard(logger)}
}

// Mount waits for the session to resolve. With an active session it returns
// the tasks screen and skip=true so the form is never shown.
func (l *Login) Mount(ctx context.Context) (next nav.Screen, skip bool, err error) {
	if err := l.observer.WaitReady(ctx); err != nil {
		return nav.ScreenLogin, false, err
	}
	if _, ok := l.observer.User(); ok {
		return nav.ScreenTasks, true, nil
	}
	return nav.ScreenLogin, false, nil
}

// Submit validates the input and signs in.
func (l *Login) Submit(ctx context.Context, email, password string) (nav.Screen, error) {
	email, password = strings.TrimSpace(email), strings.TrimSpace(password)
	l.begin(email)

	if err := validateCredentials(email, password, false); err != nil {
		l.finish(err)
		return nav.ScreenLogin, err
	}

	if _, err := l.auth.SignIn(ctx, email, password); err != nil {
		l.log.Warn("login failed", slog.Any("error", err))
		l.finish(err)
		return nav.ScreenLogin, err
	}

	l.finish(nil)
	return nav.ScreenTasks, nil
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
