package service

import "sync"

// Subscription is a live query handle delivering full result-set snapshots.
//
// Snapshots are delivered in publish order. The channel holds at most one
// unread snapshot: publishing replaces an unread older one, so a slow reader
// always sees the newest result set. The channel is closed when the
// subscription ends, after which Err reports why (nil after Close).
type Subscription struct {
	ch   chan []Task
	done chan struct{}

	mu      sync.Mutex
	closed  bool
	err     error
	onClose func()
}

// NewSubscription creates an open subscription. onClose, if non-nil, runs
// once when the subscription ends for any reason.
func NewSubscription(onClose func()) *Subscription {
	return &Subscription{
		ch:      make(chan []Task, 1),
		done:    make(chan struct{}),
		onClose: onClose,
	}
}

// Snapshots returns the snapshot stream.
func (s *Subscription) Snapshots() <-chan []Task {
	return s.ch
}

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Publish delivers a snapshot. Returns false if the subscription has ended.
func (s *Subscription) Publish(tasks []Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- CloneTasks(tasks)
	return true
}

// Fail ends the subscription with err.
func (s *Subscription) Fail(err error) {
	s.end(err)
}

// Close ends the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.end(nil)
}

// Err returns the error that ended the subscription, if any.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) end(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	close(s.ch)
	close(s.done)
	onClose := s.onClose
	s.mu.Unlock()

	if onClose != nil {
		onClose()
	}
}
