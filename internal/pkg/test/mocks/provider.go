package mocks

import (
	"context"

	"github.com/airenas/meetscribe/internal/pkg/persistence"
	"github.com/airenas/meetscribe/internal/pkg/transcriber"
	"github.com/stretchr/testify/mock"
)

//Provider is a transcription provider mock
type Provider struct {
	mock.Mock
}

//Submit is a mocked function
func (m *Provider) Submit(ctx context.Context, src *transcriber.Source, opts persistence.Options) (string, error) {
	args := m.Mock.Called(ctx, src, opts)
	return args.String(0), args.Error(1)
}

//Poll is a mocked function
func (m *Provider) Poll(ctx context.Context, providerRef string) (*transcriber.Status, error) {
	args := m.Mock.Called(ctx, providerRef)
	res, _ := args.Get(0).(*transcriber.Status)
	return res, args.Error(1)
}

//Normalizer is an audio normalizer mock
type Normalizer struct {
	mock.Mock
}

//Normalize is a mocked function
func (m *Normalizer) Normalize(ctx context.Context, file string) (string, error) {
	args := m.Mock.Called(ctx, file)
	return args.String(0), args.Error(1)
}

//Trigger is a processor trigger mock
type Trigger struct {
	mock.Mock
}

//Trigger is a mocked function
func (m *Trigger) Trigger() {
	m.Mock.Called()
}

//Summarizer is a transcript summarizer mock
type Summarizer struct {
	mock.Mock
}

//Summarize is a mocked function
func (m *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	args := m.Mock.Called(ctx, text)
	return args.String(0), args.Error(1)
}
