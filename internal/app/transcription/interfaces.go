package transcription

import (
	"context"

	"github.com/airenas/meetscribe/internal/pkg/persistence"
	"github.com/airenas/meetscribe/internal/pkg/status"
	"github.com/airenas/meetscribe/internal/pkg/transcriber"
	"github.com/cenkalti/backoff"
)

// Store keeps job records
type Store interface {
	Create(ctx context.Context, job *persistence.Job) (string, error)
	Update(ctx context.Context, id string, expected status.Status, set map[string]interface{}) error
	Get(ctx context.Context, id string) (*persistence.Job, error)
	ListByStatus(ctx context.Context, st status.Status) ([]*persistence.Job, error)
}

// Queue keeps one durable marker per job awaiting work
type Queue interface {
	Enqueue(id string) (string, error)
	ListPending() ([]string, error)
	Remove(id string) error
	Stale() ([]string, error)
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// Provider is the external transcription service
type Provider interface {
	Submit(ctx context.Context, src *transcriber.Source, opts persistence.Options) (string, error)
	Poll(ctx context.Context, providerRef string) (*transcriber.Status, error)
}

// Normalizer converts local audio to a provider acceptable format
type Normalizer interface {
	Normalize(ctx context.Context, file string) (string, error)
}

// Summarizer makes a summary of a completed transcript
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Trigger wakes the processor
type Trigger interface {
	Trigger()
}

type backoffProvider interface {
	Get() backoff.BackOff
}
