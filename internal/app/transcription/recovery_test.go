package transcription

import (
	"context"
	"testing"

	"github.com/airenas/meetscribe/internal/pkg/persistence"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRecover(t *testing.T) {
	e := newTestEnv(t)
	e.store.Put(&persistence.Job{ID: "proc", Status: "processing", ProviderRef: "abc123"})
	e.store.Put(&persistence.Job{ID: "done", Status: "completed"})
	e.store.Put(&persistence.Job{ID: "lost", Status: "pending"})
	e.store.Put(&persistence.Job{ID: "wait", Status: "pending"})
	for _, id := range []string{"proc", "done", "wait", "missing"} {
		_, err := e.queue.Enqueue(id)
		require.Nil(t, err)
	}

	rep, err := e.p.Recover(context.Background())

	require.Nil(t, err)
	assert.Equal(t, &RecoveryReport{Reset: 1, Removed: 1, Inconsistent: 1, Requeued: 1}, rep)
	assert.Equal(t, "pending", e.store.Job("proc").Status)
	assert.Equal(t, "abc123", e.store.Job("proc").ProviderRef)
	assert.Equal(t, "completed", e.store.Job("done").Status)
	assert.ElementsMatch(t, []string{"proc", "wait", "lost"}, e.pending(t))
}

func TestRecover_Idempotent(t *testing.T) {
	e := newTestEnv(t)
	e.store.Put(&persistence.Job{ID: "proc", Status: "processing"})
	e.store.Put(&persistence.Job{ID: "lost", Status: "pending"})
	_, err := e.queue.Enqueue("proc")
	require.Nil(t, err)

	_, err = e.p.Recover(context.Background())
	require.Nil(t, err)
	rep, err := e.p.Recover(context.Background())

	require.Nil(t, err)
	assert.Equal(t, &RecoveryReport{}, rep)
	assert.ElementsMatch(t, []string{"proc", "lost"}, e.pending(t))
}

func TestRecover_ThenProcessResumes(t *testing.T) {
	e := newTestEnv(t)
	e.store.Put(&persistence.Job{ID: "j1", SourceRef: "local:/tmp/a.wav", Status: "processing", ProviderRef: "abc123"})
	_, err := e.queue.Enqueue("j1")
	require.Nil(t, err)
	e.provider.On("Poll", mock.Anything, "abc123").Return(completedStatus(), nil)

	restarted := newTestEnvOn(t, e.store, e.queue)
	restarted.p.provider = e.provider
	_, err = restarted.p.Recover(context.Background())
	require.Nil(t, err)
	_, err = restarted.p.ProcessPending(context.Background())

	require.Nil(t, err)
	assert.Equal(t, "completed", e.store.Job("j1").Status)
	assert.Equal(t, "hello world", e.store.Job("j1").ResultText)
	e.provider.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, e.pending(t))
}

func TestRecover_StoreFails(t *testing.T) {
	e := newTestEnv(t)
	e.store.Put(&persistence.Job{ID: "j1", Status: "processing"})
	_, err := e.queue.Enqueue("j1")
	require.Nil(t, err)
	e.store.GetErr = func(id string) error { return errors.Wrap(persistence.ErrStoreUnavailable, "down") }

	_, err = e.p.Recover(context.Background())

	assert.NotNil(t, err)
	assert.True(t, persistence.IsStoreUnavailable(err))
	assert.Equal(t, "processing", e.store.Job("j1").Status)
	assert.Equal(t, []string{"j1"}, e.pending(t))
}

func TestRecover_ListFails(t *testing.T) {
	e := newTestEnv(t)
	e.store.ListErr = func() error { return errors.New("olia") }

	_, err := e.p.Recover(context.Background())

	assert.NotNil(t, err)
}
