package redisq

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueue_Fail(t *testing.T) {
	_, err := NewQueue("", "q", 0)
	assert.NotNil(t, err)
	_, err = NewQueue("redis://localhost:6379/0", "", 0)
	assert.NotNil(t, err)
	_, err = NewQueue("olia://x", "q", 0)
	assert.NotNil(t, err)
}

func TestNewQueue(t *testing.T) {
	q, err := NewQueue("redis://:pass@localhost:6379/0", "q", time.Hour)
	assert.Nil(t, err)
	assert.Equal(t, "q", q.key)
	assert.Equal(t, "q:events", q.events)
	q.Close()
}

func TestStale_Disabled(t *testing.T) {
	q := newQueue(redis.NewClient(&redis.Options{Addr: "localhost:1"}), "q", 0)
	defer q.Close()

	res, err := q.Stale()

	assert.Nil(t, err)
	assert.Nil(t, res)
}

func TestEnqueue_NoID(t *testing.T) {
	q := newQueue(redis.NewClient(&redis.Options{Addr: "localhost:1"}), "q", 0)
	defer q.Close()

	_, err := q.Enqueue("")

	assert.NotNil(t, err)
}

func TestListPending_Unavailable(t *testing.T) {
	q := newQueue(redis.NewClient(&redis.Options{Addr: "localhost:1", MaxRetries: -1,
		DialTimeout: 100 * time.Millisecond}), "q", 0)
	defer q.Close()

	_, err := q.ListPending()

	assert.NotNil(t, err)
}

func TestScore(t *testing.T) {
	t1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Less(t, score(t1), score(t1.Add(time.Millisecond)))
}

func newTestQueue(t *testing.T, maxAge time.Duration) (*Queue, *miniredis.Miniredis, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	q := newQueue(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "q", maxAge)
	t.Cleanup(func() { q.Close() })
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }
	return q, mr, &now
}

func TestEnqueue(t *testing.T) {
	q, mr, _ := newTestQueue(t, 0)

	id, err := q.Enqueue("j1")

	assert.Nil(t, err)
	assert.Equal(t, "j1", id)
	s, err := mr.ZScore("q", "j1")
	require.Nil(t, err)
	assert.Equal(t, score(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)), s)
}

func TestEnqueue_KeepsExisting(t *testing.T) {
	q, mr, now := newTestQueue(t, 0)
	_, err := q.Enqueue("j1")
	require.Nil(t, err)
	first, _ := mr.ZScore("q", "j1")
	*now = now.Add(time.Minute)
	_, err = q.Enqueue("j2")
	require.Nil(t, err)
	*now = now.Add(time.Minute)

	_, err = q.Enqueue("j1")

	assert.Nil(t, err)
	s, _ := mr.ZScore("q", "j1")
	assert.Equal(t, first, s)
	ids, err := q.ListPending()
	assert.Nil(t, err)
	assert.Equal(t, []string{"j1", "j2"}, ids)
}

func TestListPending_OldestFirst(t *testing.T) {
	q, _, now := newTestQueue(t, 0)
	for _, id := range []string{"c", "a", "b"} {
		*now = now.Add(time.Second)
		_, err := q.Enqueue(id)
		require.Nil(t, err)
	}

	ids, err := q.ListPending()

	assert.Nil(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestListPending_SameTimeByID(t *testing.T) {
	q, _, _ := newTestQueue(t, 0)
	for _, id := range []string{"c", "a", "b"} {
		_, err := q.Enqueue(id)
		require.Nil(t, err)
	}

	ids, err := q.ListPending()

	assert.Nil(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestListPending_Empty(t *testing.T) {
	q, _, _ := newTestQueue(t, 0)

	ids, err := q.ListPending()

	assert.Nil(t, err)
	assert.Empty(t, ids)
}

func TestRemove(t *testing.T) {
	q, _, _ := newTestQueue(t, 0)
	_, err := q.Enqueue("j1")
	require.Nil(t, err)

	assert.Nil(t, q.Remove("j1"))
	assert.Nil(t, q.Remove("j1"))
	assert.Nil(t, q.Remove("none"))

	ids, err := q.ListPending()
	assert.Nil(t, err)
	assert.Empty(t, ids)
}

func TestStale(t *testing.T) {
	q, _, now := newTestQueue(t, time.Hour)
	_, err := q.Enqueue("old")
	require.Nil(t, err)
	*now = now.Add(30 * time.Minute)
	_, err = q.Enqueue("new")
	require.Nil(t, err)

	*now = now.Add(30 * time.Minute)
	res, err := q.Stale()
	assert.Nil(t, err)
	assert.Empty(t, res)

	*now = now.Add(time.Millisecond)
	res, err = q.Stale()
	assert.Nil(t, err)
	assert.Equal(t, []string{"old"}, res)

	*now = now.Add(time.Hour)
	res, err = q.Stale()
	assert.Nil(t, err)
	assert.Equal(t, []string{"old", "new"}, res)
}

func TestWatch(t *testing.T) {
	q, _, _ := newTestQueue(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, err := q.Watch(ctx)
	require.Nil(t, err)

	_, err = q.Enqueue("j1")
	require.Nil(t, err)

	select {
	case <-w:
	case <-time.After(5 * time.Second):
		assert.Fail(t, "no event")
	}
}

func TestWatch_OtherInstance(t *testing.T) {
	q, mr, _ := newTestQueue(t, 0)
	other := newQueue(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "q", 0)
	defer other.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, err := q.Watch(ctx)
	require.Nil(t, err)

	_, err = other.Enqueue("j1")
	require.Nil(t, err)

	select {
	case <-w:
	case <-time.After(5 * time.Second):
		assert.Fail(t, "no event")
	}
}

func TestWatch_ClosesOnCancel(t *testing.T) {
	q, _, _ := newTestQueue(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	w, err := q.Watch(ctx)
	require.Nil(t, err)

	cancel()

	select {
	case _, ok := <-w:
		for ok {
			_, ok = <-w
		}
	case <-time.After(5 * time.Second):
		assert.Fail(t, "not closed")
	}
}

func TestHealthy(t *testing.T) {
	q, mr, _ := newTestQueue(t, 0)

	assert.Nil(t, q.Healthy())
	mr.Close()
	assert.NotNil(t, q.Healthy())
}
