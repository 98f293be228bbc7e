package transcription

import (
	"context"
	"strings"

	"github.com/airenas/meetscribe/internal/pkg/cmdapp"
	"github.com/airenas/meetscribe/internal/pkg/persistence"
	"github.com/airenas/meetscribe/internal/pkg/status"
	"github.com/airenas/meetscribe/internal/pkg/transcriber"
	"github.com/pkg/errors"
)

// ErrNotFailed is returned when requeueing a job that did not fail
var ErrNotFailed = errors.New("job is not failed")

// EnqueueRequest is a new transcription request
type EnqueueRequest struct {
	OwnerID string               `json:"ownerID"`
	Source  string               `json:"source"`
	Options *persistence.Options `json:"options,omitempty"`
}

// Service accepts transcription requests
type Service struct {
	store    Store
	queue    Queue
	trigger  Trigger
	defaults persistence.Options
}

// NewService creates Service. trigger may be nil
func NewService(store Store, queue Queue, trigger Trigger, defaults persistence.Options) (*Service, error) {
	if store == nil || queue == nil {
		return nil, errors.New("service not fully configured")
	}
	return &Service{store: store, queue: queue, trigger: trigger, defaults: defaults}, nil
}

// Enqueue validates the source, saves a pending job and queues it
func (s *Service) Enqueue(ctx context.Context, req *EnqueueRequest) (*persistence.Job, error) {
	src, err := transcriber.ParseSource(req.Source)
	if err != nil {
		return nil, err
	}
	if err := transcriber.CheckSource(src); err != nil {
		return nil, err
	}
	job := &persistence.Job{OwnerID: strings.TrimSpace(req.OwnerID), SourceRef: strings.TrimSpace(req.Source),
		Options: s.options(req.Options)}
	return s.add(ctx, job)
}

func (s *Service) add(ctx context.Context, job *persistence.Job) (*persistence.Job, error) {
	id, err := s.store.Create(ctx, job)
	if err != nil {
		return nil, errors.Wrap(err, "can't save job")
	}
	if _, err := s.queue.Enqueue(id); err != nil {
		return nil, errors.Wrapf(err, "can't queue job %s", id)
	}
	cmdapp.Log.Infof("Job %s queued: %s", id, job.SourceRef)
	if s.trigger != nil {
		s.trigger.Trigger()
	}
	return job, nil
}

func (s *Service) options(o *persistence.Options) persistence.Options {
	if o == nil {
		return s.defaults
	}
	res := *o
	if res.LanguageCode == "" {
		res.LanguageCode = s.defaults.LanguageCode
	}
	return res
}

// Requeue creates a new job from a failed one
func (s *Service) Requeue(ctx context.Context, id string) (*persistence.Job, error) {
	old, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if old.Status != status.Name(status.Failed) {
		return nil, errors.Wrapf(ErrNotFailed, "job %s is %s", id, old.Status)
	}
	cmdapp.Log.Infof("Requeue failed job %s", id)
	return s.add(ctx, &persistence.Job{OwnerID: old.OwnerID, SourceRef: old.SourceRef, Options: old.Options})
}

// GetStatus returns the job record
func (s *Service) GetStatus(ctx context.Context, id string) (*persistence.Job, error) {
	return s.store.Get(ctx, id)
}
