package transcription

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/assert"
)

func TestExpBackOffProvider(t *testing.T) {
	bp := &ExpBackOffProvider{Initial: 5 * time.Second, Attempts: 3}
	b := bp.Get()

	d := b.NextBackOff()
	assert.True(t, d >= 2500*time.Millisecond && d <= 7500*time.Millisecond, d.String())
	assert.NotEqual(t, backoff.Stop, b.NextBackOff())
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}

func TestExpBackOffProvider_Fresh(t *testing.T) {
	bp := &ExpBackOffProvider{Initial: time.Second, Attempts: 2}
	b := bp.Get()
	b.NextBackOff()
	assert.Equal(t, backoff.Stop, b.NextBackOff())

	assert.NotEqual(t, backoff.Stop, bp.Get().NextBackOff())
}

func TestRetriesFor(t *testing.T) {
	assert.Equal(t, uint64(0), retriesFor(0))
	assert.Equal(t, uint64(0), retriesFor(1))
	assert.Equal(t, uint64(2), retriesFor(3))
}
