// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"sync"

	"firetodo/internal/backend/memory"
	"firetodo/internal/service"
)

// FakeBackend wraps the memory backend with error injection and call counts.
type FakeBackend struct {
	*memory.Backend

	mu    sync.Mutex
	calls map[string]int

	// Error injection for testing
	CreateAccountErr error
	SignInErr        error
	SignOutErr       error
	UpdateProfileErr error
	CreateErr        error
	SetCompletedErr  error
	DeleteErr        error
	SubscribeErr     error
	UploadErr        error
	RetrievalURLErr  error
}

// NewFakeBackend creates an empty FakeBackend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		Backend: memory.New(nil),
		calls:   make(map[string]int),
	}
}

// Services returns the fake as a service bundle.
func (f *FakeBackend) Services() service.Backend {
	return service.Backend{Auth: f, Tasks: f, Blobs: f}
}

// Calls returns how many times the named method was invoked.
func (f *FakeBackend) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// TotalCalls returns the number of backend requests issued.
func (f *FakeBackend) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *FakeBackend) record(method string) {
	f.mu.Lock()
	f.calls[method]++
	f.mu.Unlock()
}

// MustSignUp creates an account and leaves it signed in.
func (f *FakeBackend) MustSignUp(email, password string) service.User {
	user, err := f.Backend.CreateAccount(context.Background(), email, password)
	if err != nil {
		panic(err)
	}
	return user
}

// AddTask stores a task without counting a call.
func (f *FakeBackend) AddTask(owner, text string) string {
	id, err := f.Backend.Create(context.Background(), service.NewTask{OwnerID: owner, Text: text})
	if err != nil {
		panic(err)
	}
	return id
}

// CreateAccount implements service.Auth.
func (f *FakeBackend) CreateAccount(ctx context.Context, email, password string) (service.User, error) {
	f.record("CreateAccount")
	if f.CreateAccountErr != nil {
		return service.User{}, f.CreateAccountErr
	}
	return f.Backend.CreateAccount(ctx, email, password)
}

// SignIn implements service.Auth.
func (f *FakeBackend) SignIn(ctx context.Context, email, password string) (service.User, error) {
	f.record("SignIn")
	if f.SignInErr != nil {
		return service.User{}, f.SignInErr
	}
	return f.Backend.SignIn(ctx, email, password)
}

// SignOut implements service.Auth.
func (f *FakeBackend) SignOut(ctx context.Context) error {
	f.record("SignOut")
	if f.SignOutErr != nil {
		return f.SignOutErr
	}
	return f.Backend.SignOut(ctx)
}

// UpdateProfile implements service.Auth.
func (f *FakeBackend) UpdateProfile(ctx context.Context, patch service.ProfilePatch) (service.User, error) {
	f.record("UpdateProfile")
	if f.UpdateProfileErr != nil {
		return service.User{}, f.UpdateProfileErr
	}
	return f.Backend.UpdateProfile(ctx, patch)
}

// Create implements service.Tasks.
func (f *FakeBackend) Create(ctx context.Context, task service.NewTask) (string, error) {
	f.record("Create")
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	return f.Backend.Create(ctx, task)
}

// SetCompleted implements service.Tasks.
func (f *FakeBackend) SetCompleted(ctx context.Context, id string, completed bool) error {
	f.record("SetCompleted")
	if f.SetCompletedErr != nil {
		return f.SetCompletedErr
	}
	return f.Backend.SetCompleted(ctx, id, completed)
}

// Delete implements service.Tasks.
func (f *FakeBackend) Delete(ctx context.Context, id string) error {
	f.record("Delete")
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	return f.Backend.Delete(ctx, id)
}

// Subscribe implements service.Tasks.
func (f *FakeBackend) Subscribe(ctx context.Context, ownerID string) (*service.Subscription, error) {
	f.record("Subscribe")
	if f.SubscribeErr != nil {
		return nil, f.SubscribeErr
	}
	return f.Backend.Subscribe(ctx, ownerID)
}

// Upload implements service.Blobs.
func (f *FakeBackend) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	f.record("Upload")
	if f.UploadErr != nil {
		return f.UploadErr
	}
	return f.Backend.Upload(ctx, path, data, contentType)
}

// RetrievalURL implements service.Blobs.
func (f *FakeBackend) RetrievalURL(ctx context.Context, path string) (string, error) {
	f.record("RetrievalURL")
	if f.RetrievalURLErr != nil {
		return "", f.RetrievalURLErr
	}
	return f.Backend.RetrievalURL(ctx, path)
}
