package screens

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"firetodo/internal/service"
)

// ListState is the subscription state of the task list.
type ListState int

const (
	ListUnsubscribed ListState = iota
	ListSubscribed
	ListFailed
)

func (s ListState) String() string {
	switch s {
	case ListUnsubscribed:
		return "unsubscribed"
	case ListSubscribed:
		return "subscribed"
	case ListFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TaskList is the to-do screen. It reflects the last snapshot of the
// signed-in user's tasks and issues one write per user action.
type TaskList struct {
	store service.Tasks
	log   *slog.Logger

	mu      sync.Mutex
	state   ListState
	owner   string
	tasks   []service.Task
	loaded  bool
	draft   string
	err     error
	sub     *service.Subscription
	cancel  context.CancelFunc
	gen     uint64 // bumped on every mount and unmount
	updated chan struct{}
}

// NewTaskList creates an unmounted task list.
func NewTaskList(store service.Tasks, logger *slog.Logger) *TaskList {
	return &TaskList{
		store:   store,
		log:     orDiscard(logger),
		updated: make(chan struct{}),
	}
}

// Mount subscribes to user's tasks. Mounting again for the same user while
// subscribed is a no-op; a failed list is resubscribed.
func (l *TaskList) Mount(ctx context.Context, user service.User) error {
	l.mu.Lock()
	if l.state == ListSubscribed && l.owner == user.ID {
		l.mu.Unlock()
		return nil
	}
	l.unmountLocked()
	l.owner = user.ID
	gen := l.gen
	l.mu.Unlock()

	// The subscription outlives the caller's request context.
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub, err := l.store.Subscribe(subCtx, user.ID)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		// Unmounted while subscribing.
		cancel()
		if sub != nil {
			sub.Close()
		}
		return nil
	}
	if err != nil {
		cancel()
		l.state = ListFailed
		l.err = err
		return fmt.Errorf("subscribe to tasks: %w", err)
	}
	l.sub = sub
	l.cancel = cancel
	l.state = ListSubscribed
	l.err = nil
	go l.consume(gen, sub)

	l.log.Debug("task list mounted", slog.String("uid", user.ID))
	return nil
}

// Unmount releases the subscription. Results of requests still in flight
// are discarded.
func (l *TaskList) Unmount() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unmountLocked()
}

func (l *TaskList) unmountLocked() {
	l.gen++
	if l.sub != nil {
		l.sub.Close()
		l.sub = nil
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.state = ListUnsubscribed
	l.owner = ""
	l.tasks = nil
	l.loaded = false
	l.draft = ""
	l.err = nil
	l.signalLocked()
}

func (l *TaskList) consume(gen uint64, sub *service.Subscription) {
	for snapshot := range sub.Snapshots() {
		l.mu.Lock()
		if gen != l.gen {
			l.mu.Unlock()
			return
		}
		l.tasks = snapshot
		l.loaded = true
		l.signalLocked()
		l.mu.Unlock()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return
	}
	if err := sub.Err(); err != nil {
		l.log.Warn("task subscription ended", slog.Any("error", err))
		l.state = ListFailed
		l.err = err
		l.signalLocked()
	}
}

func (l *TaskList) signalLocked() {
	close(l.updated)
	l.updated = make(chan struct{})
}

// State returns the subscription state.
func (l *TaskList) State() ListState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the error that failed the subscription.
func (l *TaskList) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Tasks returns a copy of the last snapshot.
func (l *TaskList) Tasks() []service.Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	return service.CloneTasks(l.tasks)
}

// WaitLoaded blocks until the first snapshot arrives, the list stops being
// subscribed or ctx is done.
func (l *TaskList) WaitLoaded(ctx context.Context) error {
	for {
		l.mu.Lock()
		if l.loaded || l.state != ListSubscribed {
			l.mu.Unlock()
			return nil
		}
		updated := l.updated
		l.mu.Unlock()

		select {
		case <-updated:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Draft returns the pending input of a failed Add.
func (l *TaskList) Draft() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.draft
}

// Updated returns a channel closed at the next state change.
func (l *TaskList) Updated() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updated
}

// Add creates a task owned by the mounted user.
func (l *TaskList) Add(ctx context.Context, text string) error {
	if blank(text) {
		return invalid("Task cannot be empty!")
	}

	l.mu.Lock()
	if l.owner == "" {
		l.mu.Unlock()
		return ErrNotMounted
	}
	owner, gen := l.owner, l.gen
	l.draft = text
	l.mu.Unlock()

	_, err := l.store.Create(ctx, service.NewTask{
		OwnerID: owner,
		Text:    strings.TrimSpace(text),
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		return err
	}
	if gen == l.gen {
		l.draft = ""
	}
	return nil
}

// Toggle writes the opposite of current as the task's completion flag.
//
// The new value comes from the caller's last known flag rather than an
// atomic server-side flip, so a concurrent update from elsewhere can be
// overwritten.
func (l *TaskList) Toggle(ctx context.Context, id string, current bool) error {
	if !l.mounted() {
		return ErrNotMounted
	}
	return l.store.SetCompleted(ctx, id, !current)
}

// Delete removes a task. The task stays in the list until a snapshot
// without it arrives.
func (l *TaskList) Delete(ctx context.Context, id string) error {
	if !l.mounted() {
		return ErrNotMounted
	}
	return l.store.Delete(ctx, id)
}

func (l *TaskList) mounted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner != ""
}
