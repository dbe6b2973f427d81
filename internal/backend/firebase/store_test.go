package firebase

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firetodo/internal/service"
)

func signedIn(t *testing.T, c *Client, email string) service.User {
	t.Helper()
	user, err := c.Auth.CreateAccount(context.Background(), email, "secret1")
	require.NoError(t, err)
	return user
}

// awaitSnapshot reads snapshots until cond holds.
func awaitSnapshot(t *testing.T, sub *service.Subscription, cond func([]service.Task) bool) []service.Task {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case tasks, ok := <-sub.Snapshots():
			require.True(t, ok, "subscription ended: %v", sub.Err())
			if cond(tasks) {
				return tasks
			}
		case <-timeout:
			t.Fatal("timed out waiting for snapshot")
			return nil
		}
	}
}

func TestStore_TaskLifecycle(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	user := signedIn(t, c, "a@x.io")

	sub, err := c.Store.Subscribe(ctx, user.ID)
	require.NoError(t, err)
	defer sub.Close()

	first := awaitSnapshot(t, sub, func([]service.Task) bool { return true })
	assert.Empty(t, first)

	id, err := c.Store.Create(ctx, service.NewTask{OwnerID: user.ID, Text: "Buy milk"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	tasks := awaitSnapshot(t, sub, func(ts []service.Task) bool { return len(ts) == 1 })
	assert.Equal(t, id, tasks[0].ID)
	assert.Equal(t, user.ID, tasks[0].OwnerID)
	assert.Equal(t, "Buy milk", tasks[0].Text)
	assert.False(t, tasks[0].Completed)
	assert.False(t, tasks[0].CreatedAt.IsZero())

	require.NoError(t, c.Store.SetCompleted(ctx, id, true))
	awaitSnapshot(t, sub, func(ts []service.Task) bool { return len(ts) == 1 && ts[0].Completed })

	require.NoError(t, c.Store.Delete(ctx, id))
	awaitSnapshot(t, sub, func(ts []service.Task) bool { return len(ts) == 0 })
}

func TestStore_SubscribeFiltersByOwner(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.Store.Create(ctx, service.NewTask{OwnerID: "someone-else", Text: "not mine"})
	assert.ErrorIs(t, err, service.ErrNotSignedIn)

	user := signedIn(t, c, "a@x.io")
	_, err = c.Store.Create(ctx, service.NewTask{OwnerID: "someone-else", Text: "not mine"})
	require.NoError(t, err)
	_, err = c.Store.Create(ctx, service.NewTask{OwnerID: user.ID, Text: "mine"})
	require.NoError(t, err)

	sub, err := c.Store.Subscribe(ctx, user.ID)
	require.NoError(t, err)
	defer sub.Close()

	tasks := awaitSnapshot(t, sub, func([]service.Task) bool { return true })
	require.Len(t, tasks, 1)
	assert.Equal(t, "mine", tasks[0].Text)
}

func TestStore_SetCompletedMissingTask(t *testing.T) {
	c, _ := newTestClient(t)
	signedIn(t, c, "a@x.io")

	err := c.Store.SetCompleted(context.Background(), "missing", true)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestStore_DeleteMissingTaskSucceeds(t *testing.T) {
	c, _ := newTestClient(t)
	signedIn(t, c, "a@x.io")
	assert.NoError(t, c.Store.Delete(context.Background(), "missing"))
}

func TestStore_QueryFailureEndsSubscription(t *testing.T) {
	c, f := newTestClient(t)
	user := signedIn(t, c, "a@x.io")

	sub, err := c.Store.Subscribe(context.Background(), user.ID)
	require.NoError(t, err)

	f.setQueryStatus(http.StatusInternalServerError)

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end")
	}
	assert.ErrorIs(t, sub.Err(), service.ErrUnavailable)
}

func TestStore_SubscribeErrorReturned(t *testing.T) {
	c, f := newTestClient(t)
	user := signedIn(t, c, "a@x.io")
	f.setQueryStatus(http.StatusForbidden)

	_, err := c.Store.Subscribe(context.Background(), user.ID)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
}

func TestStore_CloseStopsPolling(t *testing.T) {
	c, f := newTestClient(t)
	user := signedIn(t, c, "a@x.io")

	sub, err := c.Store.Subscribe(context.Background(), user.ID)
	require.NoError(t, err)
	sub.Close()
	assert.NoError(t, sub.Err())

	// Let any in-flight poll finish, then make sure no more arrive.
	time.Sleep(100 * time.Millisecond)
	before := f.queryCount()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, before, f.queryCount())
}

func TestSameTasks(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := []service.Task{{ID: "1", Text: "x", CreatedAt: at}}

	assert.True(t, sameTasks(a, []service.Task{{ID: "1", Text: "x", CreatedAt: at.In(time.FixedZone("X", 3600))}}))
	assert.False(t, sameTasks(a, []service.Task{{ID: "1", Text: "x", Completed: true, CreatedAt: at}}))
	assert.False(t, sameTasks(a, nil))
}
