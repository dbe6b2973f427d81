package firebase

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"firetodo/internal/service"
)

// minRefreshGap bounds how often write nudges can trigger a re-query.
const minRefreshGap = 250 * time.Millisecond

// Subscribe opens a live query over ownerID's tasks. Firestore's REST
// surface has no push channel, so the query is re-run on an interval and
// after local writes; a snapshot is published only when the result changed.
func (s *Store) Subscribe(ctx context.Context, ownerID string) (*service.Subscription, error) {
	tasks, err := s.query(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := service.NewSubscription(cancel)
	sub.Publish(tasks)
	go s.poll(ctx, sub, ownerID, tasks)
	return sub, nil
}

func (s *Store) poll(ctx context.Context, sub *service.Subscription, ownerID string, last []service.Task) {
	defer sub.Close()

	limiter := rate.NewLimiter(rate.Every(minRefreshGap), 1)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.writes():
		}
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		tasks, err := s.query(ctx, ownerID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("task query failed", "owner", ownerID, "error", err)
			sub.Fail(err)
			return
		}
		if sameTasks(last, tasks) {
			continue
		}
		last = tasks
		if !sub.Publish(tasks) {
			return
		}
	}
}

func sameTasks(a, b []service.Task) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID || x.OwnerID != y.OwnerID || x.Text != y.Text ||
			x.Completed != y.Completed || !x.CreatedAt.Equal(y.CreatedAt) {
			return false
		}
	}
	return true
}
