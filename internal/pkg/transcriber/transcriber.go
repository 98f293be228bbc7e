package transcriber

import (
	"context"

	"github.com/airenas/meetscribe/internal/pkg/persistence"
	"github.com/pkg/errors"
)

// API is the provider REST contract
type API interface {
	Upload(ctx context.Context, localPath string) (string, error)
	Submit(ctx context.Context, audioURL string, opts persistence.Options) (string, error)
	Poll(ctx context.Context, providerRef string) (*Status, error)
}

// Transcriber submits sources of any kind to the provider
type Transcriber struct {
	api API
}

// New creates Transcriber
func New(api API) (*Transcriber, error) {
	if api == nil {
		return nil, errors.New("No provider api")
	}
	return &Transcriber{api: api}, nil
}

// Submit uploads local files first, remote URLs go to the provider as is
func (t *Transcriber) Submit(ctx context.Context, src *Source, opts persistence.Options) (string, error) {
	audioURL := src.Location
	if src.Kind == Local {
		var err error
		audioURL, err = t.api.Upload(ctx, src.Location)
		if err != nil {
			return "", err
		}
	}
	return t.api.Submit(ctx, audioURL, opts)
}

// Poll gets transcript status
func (t *Transcriber) Poll(ctx context.Context, providerRef string) (*Status, error) {
	return t.api.Poll(ctx, providerRef)
}
