// Package session tracks the backend's session-change notifications.
package session

import (
	"context"
	"log/slog"
	"sync"

	"firetodo/internal/service"
)

// State is the observer's view of the session.
type State int

const (
	// StateInitializing means no notification has arrived yet.
	StateInitializing State = iota
	// StateSignedOut means the last notification carried no user.
	StateSignedOut
	// StateSignedIn means the last notification carried a user.
	StateSignedIn
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateSignedOut:
		return "signed out"
	case StateSignedIn:
		return "signed in"
	default:
		return "unknown"
	}
}

// Observer holds the current session projection.
// Each Start/Stop pair owns exactly one backend subscription.
type Observer struct {
	auth service.Auth
	log  *slog.Logger

	mu          sync.Mutex
	state       State
	user        *service.User
	changed     chan struct{}
	started     bool
	startGen    uint64
	unsubscribe func()
}

// NewObserver creates an observer in StateInitializing.
func NewObserver(auth service.Auth, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Observer{
		auth:    auth,
		log:     logger,
		changed: make(chan struct{}),
	}
}

// Start registers for session changes. It is a no-op while already started.
func (o *Observer) Start() {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return
	}
	o.started = true
	o.startGen++
	gen := o.startGen
	o.mu.Unlock()

	// The backend delivers the initial notification during registration,
	// so the lock is not held here.
	unsubscribe := o.auth.OnSessionChange(o.handle)

	o.mu.Lock()
	if !o.started || o.startGen != gen {
		// Stopped while registering.
		o.mu.Unlock()
		unsubscribe()
		return
	}
	o.unsubscribe = unsubscribe
	o.mu.Unlock()
}

// Stop deregisters from session changes. Safe to call more than once.
func (o *Observer) Stop() {
	o.mu.Lock()
	unsubscribe := o.unsubscribe
	o.unsubscribe = nil
	o.started = false
	o.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (o *Observer) handle(user *service.User) {
	o.mu.Lock()
	defer o.mu.Unlock()

	prev := o.state
	if user == nil {
		o.state = StateSignedOut
		o.user = nil
	} else {
		u := *user
		o.state = StateSignedIn
		o.user = &u
	}
	if prev != o.state {
		o.log.Debug("session changed",
			slog.String("from", prev.String()),
			slog.String("to", o.state.String()),
		)
	}

	close(o.changed)
	o.changed = make(chan struct{})
}

// Current returns the state and, when signed in, a copy of the user.
func (o *Observer) Current() (State, *service.User) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.user == nil {
		return o.state, nil
	}
	u := *o.user
	return o.state, &u
}

// State returns the current state.
func (o *Observer) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// User returns the signed-in user.
func (o *Observer) User() (service.User, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.user == nil {
		return service.User{}, false
	}
	return *o.user, true
}

// Changed returns a channel closed at the next notification.
func (o *Observer) Changed() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.changed
}

// WaitReady blocks until the first notification has arrived.
func (o *Observer) WaitReady(ctx context.Context) error {
	for {
		o.mu.Lock()
		state, changed := o.state, o.changed
		o.mu.Unlock()

		if state != StateInitializing {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
