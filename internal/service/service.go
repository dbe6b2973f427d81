package service

import "context"

// Auth is the managed authentication service.
// Screens never import a backend SDK directly.
type Auth interface {
	// CreateAccount registers a new email/password account and signs it in.
	CreateAccount(ctx context.Context, email, password string) (User, error)

	// SignIn verifies credentials and starts a session.
	SignIn(ctx context.Context, email, password string) (User, error)

	// SignOut ends the current session.
	SignOut(ctx context.Context) error

	// CurrentUser returns the signed-in user, if any.
	CurrentUser() (User, bool)

	// OnSessionChange registers fn for session changes. fn is called once with
	// the current state before OnSessionChange returns, then after every change.
	// A nil user means signed out. The returned func deregisters fn.
	OnSessionChange(fn func(*User)) (unsubscribe func())

	// UpdateProfile patches the signed-in user's profile record.
	UpdateProfile(ctx context.Context, patch ProfilePatch) (User, error)
}

// Tasks is the document store holding task records.
type Tasks interface {
	// Create stores a new task with completed=false and a server timestamp.
	Create(ctx context.Context, task NewTask) (string, error)

	// SetCompleted overwrites the completion flag of a task.
	SetCompleted(ctx context.Context, id string, completed bool) error

	// Delete removes a task.
	Delete(ctx context.Context, id string) error

	// Subscribe opens a live query over the tasks owned by ownerID.
	// The first snapshot is available as soon as Subscribe returns.
	// Results are in backend order; callers must not rely on it.
	Subscribe(ctx context.Context, ownerID string) (*Subscription, error)
}

// Blobs is the binary object store.
type Blobs interface {
	// Upload stores data at path, replacing any existing object.
	Upload(ctx context.Context, path string, data []byte, contentType string) error

	// RetrievalURL returns a URL for the object at path.
	// Returns ErrNotFound if no object exists.
	RetrievalURL(ctx context.Context, path string) (string, error)
}

// Backend bundles the three services an application session needs.
type Backend struct {
	Auth  Auth
	Tasks Tasks
	Blobs Blobs

	// Close releases backend resources. May be nil.
	Close func() error
}
