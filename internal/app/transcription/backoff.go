package transcription

import (
	"time"

	"github.com/cenkalti/backoff"
)

// ExpBackOffProvider gives exponential backoff limited to attempts tries in total
type ExpBackOffProvider struct {
	Initial  time.Duration
	Attempts int
}

// Get returns a fresh backoff
func (bp *ExpBackOffProvider) Get() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     bp.Initial,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         backoff.DefaultMaxInterval,
		MaxElapsedTime:      0,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return backoff.WithMaxRetries(b, retriesFor(bp.Attempts))
}

func retriesFor(attempts int) uint64 {
	if attempts < 1 {
		return 0
	}
	return uint64(attempts - 1)
}
