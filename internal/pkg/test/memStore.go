package test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/airenas/meetscribe/internal/pkg/persistence"
	"github.com/airenas/meetscribe/internal/pkg/status"
	"github.com/pkg/errors"
)

// MemStore is an in-memory job store with the same compare-and-set semantics as the db stores
type MemStore struct {
	// GetErr, UpdateErr, ListErr inject failures when they return non nil
	GetErr    func(id string) error
	UpdateErr func(id string, set map[string]interface{}) error
	ListErr   func() error

	m      sync.Mutex
	jobs   map[string]*persistence.Job
	trans  map[string][]string
	nowVal time.Time
}

// NewMemStore creates MemStore
func NewMemStore() *MemStore {
	return &MemStore{jobs: map[string]*persistence.Job{}, trans: map[string][]string{},
		nowVal: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (s *MemStore) now() time.Time {
	s.nowVal = s.nowVal.Add(time.Millisecond)
	return s.nowVal
}

// Create adds job
func (s *MemStore) Create(ctx context.Context, job *persistence.Job) (string, error) {
	s.m.Lock()
	defer s.m.Unlock()
	persistence.PrepareNew(job, s.now())
	c := *job
	s.jobs[job.ID] = &c
	s.trans[job.ID] = []string{job.Status}
	return job.ID, nil
}

// Put stores job as is
func (s *MemStore) Put(job *persistence.Job) {
	s.m.Lock()
	defer s.m.Unlock()
	c := *job
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	s.jobs[job.ID] = &c
	s.trans[job.ID] = []string{job.Status}
}

// Update applies set if the job status is expected
func (s *MemStore) Update(ctx context.Context, id string, expected status.Status, set map[string]interface{}) error {
	if err := persistence.ValidateUpdate(expected, set); err != nil {
		return err
	}
	if s.UpdateErr != nil {
		if err := s.UpdateErr(id, set); err != nil {
			return err
		}
	}
	s.m.Lock()
	defer s.m.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return errors.Wrap(persistence.ErrNotFound, id)
	}
	if j.Status != status.Name(expected) {
		return errors.Wrapf(persistence.ErrStatusChanged, "%s is %s", id, j.Status)
	}
	for k, v := range set {
		switch k {
		case persistence.FStatus:
			j.Status = v.(string)
			s.trans[id] = append(s.trans[id], j.Status)
		case persistence.FProviderRef:
			j.ProviderRef = v.(string)
		case persistence.FResultText:
			j.ResultText = v.(string)
		case persistence.FSpeakerCount:
			j.SpeakerCount = v.(int)
		case persistence.FDurationSeconds:
			j.DurationSeconds = v.(int)
		case persistence.FErrorDetail:
			j.ErrorDetail = v.(string)
		case persistence.FRetries:
			j.Retries = v.(int)
		case persistence.FSummaryStatus:
			j.SummaryStatus = v.(string)
		case persistence.FSummaryText:
			j.SummaryText = v.(string)
		default:
			return errors.Errorf("unknown field %s", k)
		}
	}
	j.UpdatedAt = s.now()
	return nil
}

// Get returns a copy of the job
func (s *MemStore) Get(ctx context.Context, id string) (*persistence.Job, error) {
	if s.GetErr != nil {
		if err := s.GetErr(id); err != nil {
			return nil, err
		}
	}
	s.m.Lock()
	defer s.m.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, errors.Wrap(persistence.ErrNotFound, id)
	}
	c := *j
	return &c, nil
}

// ListByStatus returns jobs oldest first
func (s *MemStore) ListByStatus(ctx context.Context, st status.Status) ([]*persistence.Job, error) {
	if s.ListErr != nil {
		if err := s.ListErr(); err != nil {
			return nil, err
		}
	}
	s.m.Lock()
	defer s.m.Unlock()
	res := make([]*persistence.Job, 0)
	for _, j := range s.jobs {
		if j.Status == status.Name(st) {
			c := *j
			res = append(res, &c)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

// Job returns a copy of the stored job or nil
func (s *MemStore) Job(id string) *persistence.Job {
	s.m.Lock()
	defer s.m.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil
	}
	c := *j
	return &c
}

// Transitions returns all statuses the job went through
func (s *MemStore) Transitions(id string) []string {
	s.m.Lock()
	defer s.m.Unlock()
	return append([]string(nil), s.trans[id]...)
}
