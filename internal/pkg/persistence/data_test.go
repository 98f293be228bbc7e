package persistence

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsStoreUnavailable(t *testing.T) {
	assert.True(t, IsStoreUnavailable(ErrStoreUnavailable))
	assert.True(t, IsStoreUnavailable(errors.Wrap(ErrStoreUnavailable, "can't dial")))
	assert.True(t, IsStoreUnavailable(errors.Wrap(errors.Wrap(ErrStoreUnavailable, "a"), "b")))
	assert.False(t, IsStoreUnavailable(ErrNotFound))
	assert.False(t, IsStoreUnavailable(nil))
}

func TestPrepareNew(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	job := &Job{OwnerID: "u1", SourceRef: "local:/a.wav", Status: "failed",
		ProviderRef: "p", ErrorDetail: "err", Retries: 3, ResultText: "olia"}

	PrepareNew(job, now)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "pending", job.Status)
	assert.Equal(t, "", job.ProviderRef)
	assert.Equal(t, "", job.ErrorDetail)
	assert.Equal(t, "", job.ResultText)
	assert.Equal(t, 0, job.Retries)
	assert.Equal(t, now, job.CreatedAt)
	assert.Equal(t, now, job.UpdatedAt)
	assert.Equal(t, "u1", job.OwnerID)
}

func TestPrepareNew_KeepsID(t *testing.T) {
	job := &Job{ID: "olia"}
	PrepareNew(job, time.Now())
	assert.Equal(t, "olia", job.ID)
}
