package transcription

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/airenas/meetscribe/internal/pkg/persistence"
	"github.com/airenas/meetscribe/internal/pkg/queue"
	"github.com/airenas/meetscribe/internal/pkg/test"
	"github.com/airenas/meetscribe/internal/pkg/test/mocks"
	"github.com/airenas/meetscribe/internal/pkg/transcriber"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testDefaults = persistence.Options{LanguageCode: "fr", SpeakerLabels: true}

func newTestService(t *testing.T) (*Service, *test.MemStore, *queue.Dir, *mocks.Trigger) {
	t.Helper()
	st := test.NewMemStore()
	q, err := queue.NewDir(t.TempDir(), 0)
	require.Nil(t, err)
	tr := &mocks.Trigger{}
	tr.On("Trigger").Return()
	s, err := NewService(st, q, tr, testDefaults)
	require.Nil(t, err)
	return s, st, q, tr
}

func audioFile(t *testing.T) string {
	t.Helper()
	f := filepath.Join(t.TempDir(), "a.wav")
	require.Nil(t, os.WriteFile(f, []byte("RIFF"), 0644))
	return f
}

func TestNewService_Fail(t *testing.T) {
	_, err := NewService(nil, nil, nil, testDefaults)
	assert.NotNil(t, err)
}

func TestServiceEnqueue(t *testing.T) {
	s, st, q, tr := newTestService(t)
	f := audioFile(t)

	job, err := s.Enqueue(context.Background(), &EnqueueRequest{OwnerID: " u1 ", Source: "local:" + f})

	require.Nil(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "pending", job.Status)
	assert.Equal(t, "u1", job.OwnerID)
	assert.Equal(t, testDefaults, job.Options)
	assert.Equal(t, "pending", st.Job(job.ID).Status)
	ids, err := q.ListPending()
	require.Nil(t, err)
	assert.Equal(t, []string{job.ID}, ids)
	tr.AssertNumberOfCalls(t, "Trigger", 1)
}

func TestServiceEnqueue_Remote(t *testing.T) {
	s, _, _, _ := newTestService(t)

	job, err := s.Enqueue(context.Background(), &EnqueueRequest{Source: "https://host/a.mp3",
		Options: &persistence.Options{SpeakersExpected: 3}})

	require.Nil(t, err)
	assert.Equal(t, persistence.Options{LanguageCode: "fr", SpeakersExpected: 3}, job.Options)
}

func TestServiceEnqueue_WrongSource(t *testing.T) {
	s, _, q, tr := newTestService(t)

	for _, src := range []string{"", "ftp://host/a.wav", "relative/a.wav", "local:/no/such/file.wav"} {
		_, err := s.Enqueue(context.Background(), &EnqueueRequest{Source: src})
		assert.Equal(t, transcriber.ErrWrongSource, errors.Cause(err), src)
	}
	ids, err := q.ListPending()
	require.Nil(t, err)
	assert.Empty(t, ids)
	tr.AssertNotCalled(t, "Trigger")
}

func TestServiceEnqueue_StoreFails(t *testing.T) {
	sm := &mocks.Store{}
	sm.On("Create", mock.Anything, mock.Anything).Return("", errors.Wrap(persistence.ErrStoreUnavailable, "down"))
	q, err := queue.NewDir(t.TempDir(), 0)
	require.Nil(t, err)
	s, err := NewService(sm, q, nil, testDefaults)
	require.Nil(t, err)

	_, err = s.Enqueue(context.Background(), &EnqueueRequest{Source: "https://host/a.mp3"})

	assert.True(t, persistence.IsStoreUnavailable(err))
	ids, err := q.ListPending()
	require.Nil(t, err)
	assert.Empty(t, ids)
}

func TestServiceRequeue(t *testing.T) {
	s, st, q, _ := newTestService(t)
	opts := persistence.Options{LanguageCode: "en", SpeakersExpected: 2}
	st.Put(&persistence.Job{ID: "old", OwnerID: "u1", SourceRef: "https://host/a.mp3", Status: "failed",
		ErrorDetail: "submission failed", ProviderRef: "abc123", Retries: 2, Options: opts})

	job, err := s.Requeue(context.Background(), "old")

	require.Nil(t, err)
	assert.NotEqual(t, "old", job.ID)
	nj := st.Job(job.ID)
	assert.Equal(t, "pending", nj.Status)
	assert.Equal(t, "u1", nj.OwnerID)
	assert.Equal(t, "https://host/a.mp3", nj.SourceRef)
	assert.Equal(t, opts, nj.Options)
	assert.Empty(t, nj.ErrorDetail)
	assert.Empty(t, nj.ProviderRef)
	assert.Equal(t, 0, nj.Retries)
	assert.Equal(t, "failed", st.Job("old").Status)
	ids, err := q.ListPending()
	require.Nil(t, err)
	assert.Equal(t, []string{job.ID}, ids)
}

func TestServiceRequeue_NotFailed(t *testing.T) {
	s, st, _, _ := newTestService(t)
	st.Put(&persistence.Job{ID: "old", Status: "completed"})

	_, err := s.Requeue(context.Background(), "old")

	assert.Equal(t, ErrNotFailed, errors.Cause(err))
}

func TestServiceRequeue_NotFound(t *testing.T) {
	s, _, _, _ := newTestService(t)

	_, err := s.Requeue(context.Background(), "none")

	assert.Equal(t, persistence.ErrNotFound, errors.Cause(err))
}

func TestServiceGetStatus(t *testing.T) {
	s, st, _, _ := newTestService(t)
	st.Put(&persistence.Job{ID: "j1", Status: "completed", ResultText: "Speaker A: hi"})

	job, err := s.GetStatus(context.Background(), "j1")

	require.Nil(t, err)
	assert.Equal(t, "Speaker A: hi", job.ResultText)
}

func TestServiceAndProcessor_RequeuedCompletes(t *testing.T) {
	e := newTestEnv(t)
	s, err := NewService(e.store, e.queue, nil, testDefaults)
	require.Nil(t, err)
	e.store.Put(&persistence.Job{ID: "old", SourceRef: "https://host/a.mp3", Status: "failed", Options: testDefaults})
	e.provider.On("Submit", mock.Anything, sourceAt("https://host/a.mp3"), testDefaults).Return("abc123", nil)
	e.provider.On("Poll", mock.Anything, "abc123").Return(completedStatus(), nil)

	job, err := s.Requeue(context.Background(), "old")
	require.Nil(t, err)
	_, err = e.p.ProcessPending(context.Background())

	require.Nil(t, err)
	assert.Equal(t, "completed", e.store.Job(job.ID).Status)
	assert.Equal(t, "failed", e.store.Job("old").Status)
}
