// Package memory implements the service contracts in process.
// Nothing survives a restart; it backs the offline mode and the test fakes.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"firetodo/internal/service"
)

// MinPasswordLength mirrors the hosted auth service's password policy.
const MinPasswordLength = 6

type account struct {
	password string
	user     service.User
}

type blob struct {
	data        []byte
	contentType string
	token       string
}

type subscriber struct {
	owner string
	sub   *service.Subscription
}

// Backend is an in-memory auth service, document store and blob store.
type Backend struct {
	log *slog.Logger

	// Now stamps created tasks. Defaults to time.Now.
	Now func() time.Time

	mu       sync.Mutex
	accounts map[string]*account // email -> account
	current  *service.User

	tasks []service.Task // insertion order
	subs  map[int]subscriber
	next  int

	blobs map[string]blob

	listenerMu sync.Mutex // serializes session notifications
	listeners  map[int]func(*service.User)
	nextL      int
}

var (
	_ service.Auth  = (*Backend)(nil)
	_ service.Tasks = (*Backend)(nil)
	_ service.Blobs = (*Backend)(nil)
)

// New creates an empty backend.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Backend{
		log:       logger.With(slog.String("backend", "memory")),
		Now:       time.Now,
		accounts:  make(map[string]*account),
		subs:      make(map[int]subscriber),
		blobs:     make(map[string]blob),
		listeners: make(map[int]func(*service.User)),
	}
}

// Services returns the backend bundle for an application session.
func (b *Backend) Services() service.Backend {
	return service.Backend{Auth: b, Tasks: b, Blobs: b}
}

// CreateAccount implements service.Auth.
func (b *Backend) CreateAccount(ctx context.Context, email, password string) (service.User, error) {
	if err := ctx.Err(); err != nil {
		return service.User{}, err
	}
	b.mu.Lock()
	if _, ok := b.accounts[email]; ok {
		b.mu.Unlock()
		return service.User{}, fmt.Errorf("%w: %s", service.ErrEmailExists, email)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		b.mu.Unlock()
		return service.User{}, fmt.Errorf("%w: password should be at least %d characters", service.ErrWeakPassword, MinPasswordLength)
	}
	user := service.User{ID: uuid.NewString(), Email: email}
	b.accounts[email] = &account{password: password, user: user}
	b.current = &user
	b.mu.Unlock()

	b.log.Debug("account created", slog.String("uid", user.ID))
	b.notify()
	return user, nil
}

// SignIn implements service.Auth.
func (b *Backend) SignIn(ctx context.Context, email, password string) (service.User, error) {
	if err := ctx.Err(); err != nil {
		return service.User{}, err
	}
	b.mu.Lock()
	acct, ok := b.accounts[email]
	if !ok || acct.password != password {
		b.mu.Unlock()
		return service.User{}, fmt.Errorf("%w: wrong email or password", service.ErrInvalidCredential)
	}
	user := acct.user
	b.current = &user
	b.mu.Unlock()

	b.notify()
	return user, nil
}

// SignOut implements service.Auth.
func (b *Backend) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.current = nil
	b.mu.Unlock()

	b.notify()
	return nil
}

// CurrentUser implements service.Auth.
func (b *Backend) CurrentUser() (service.User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return service.User{}, false
	}
	return *b.current, true
}

// OnSessionChange implements service.Auth.
func (b *Backend) OnSessionChange(fn func(*service.User)) func() {
	b.listenerMu.Lock()
	id := b.nextL
	b.nextL++
	b.listeners[id] = fn
	fn(b.snapshotUser())
	b.listenerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.listenerMu.Lock()
			delete(b.listeners, id)
			b.listenerMu.Unlock()
		})
	}
}

// UpdateProfile implements service.Auth.
func (b *Backend) UpdateProfile(ctx context.Context, patch service.ProfilePatch) (service.User, error) {
	if err := ctx.Err(); err != nil {
		return service.User{}, err
	}
	b.mu.Lock()
	if b.current == nil {
		b.mu.Unlock()
		return service.User{}, service.ErrNotSignedIn
	}
	acct := b.accounts[b.current.Email]
	if patch.DisplayName != nil {
		acct.user.DisplayName = *patch.DisplayName
	}
	if patch.PhotoURL != nil {
		acct.user.PhotoURL = *patch.PhotoURL
	}
	user := acct.user
	b.current = &user
	b.mu.Unlock()

	b.notify()
	return user, nil
}

func (b *Backend) snapshotUser() *service.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return nil
	}
	u := *b.current
	return &u
}

// notify delivers the current session to every listener, one change at a time.
func (b *Backend) notify() {
	b.listenerMu.Lock()
	defer b.listenerMu.Unlock()
	user := b.snapshotUser()
	for _, fn := range b.listeners {
		if user == nil {
			fn(nil)
			continue
		}
		u := *user
		fn(&u)
	}
}

// Create implements service.Tasks.
func (b *Backend) Create(ctx context.Context, task service.NewTask) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	b.tasks = append(b.tasks, service.Task{
		ID:        id,
		OwnerID:   task.OwnerID,
		Text:      task.Text,
		Completed: false,
		CreatedAt: b.Now().UTC(),
	})
	b.publishLocked(task.OwnerID)
	return id, nil
}

// SetCompleted implements service.Tasks.
func (b *Backend) SetCompleted(ctx context.Context, id string, completed bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.tasks {
		if b.tasks[i].ID == id {
			b.tasks[i].Completed = completed
			b.publishLocked(b.tasks[i].OwnerID)
			return nil
		}
	}
	return fmt.Errorf("task %s: %w", id, service.ErrNotFound)
}

// Delete implements service.Tasks.
func (b *Backend) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, t := range b.tasks {
		if t.ID == id {
			b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
			b.publishLocked(t.OwnerID)
			return nil
		}
	}
	// Deleting a missing document succeeds, as in the hosted store.
	return nil
}

// Subscribe implements service.Tasks.
func (b *Backend) Subscribe(ctx context.Context, ownerID string) (*service.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	sub := service.NewSubscription(func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	})
	b.subs[id] = subscriber{owner: ownerID, sub: sub}
	sub.Publish(b.ownedLocked(ownerID))

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.Done():
		}
	}()
	return sub, nil
}

// Task returns a stored task by ID.
func (b *Backend) Task(id string) (service.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return service.Task{}, false
}

func (b *Backend) ownedLocked(owner string) []service.Task {
	out := []service.Task{}
	for _, t := range b.tasks {
		if t.OwnerID == owner {
			out = append(out, t)
		}
	}
	return out
}

func (b *Backend) publishLocked(owner string) {
	snapshot := b.ownedLocked(owner)
	for _, s := range b.subs {
		if s.owner == owner {
			s.sub.Publish(snapshot)
		}
	}
}

// Upload implements service.Blobs.
func (b *Backend) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	b.blobs[path] = blob{data: stored, contentType: contentType, token: uuid.NewString()}
	return nil
}

// RetrievalURL implements service.Blobs.
func (b *Backend) RetrievalURL(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	obj, ok := b.blobs[path]
	if !ok {
		return "", fmt.Errorf("object %s: %w", path, service.ErrNotFound)
	}
	return "memory:///" + url.PathEscape(path) + "?token=" + obj.token, nil
}

// Blob returns the stored bytes at path.
func (b *Backend) Blob(path string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.blobs[path]
	return obj.data, ok
}
