package mocks

import (
	"context"

	"github.com/airenas/meetscribe/internal/pkg/persistence"
	"github.com/airenas/meetscribe/internal/pkg/status"
	"github.com/stretchr/testify/mock"
)

//Store is a job store mock
type Store struct {
	mock.Mock
}

//Create is a mocked function
func (m *Store) Create(ctx context.Context, job *persistence.Job) (string, error) {
	args := m.Mock.Called(ctx, job)
	return args.String(0), args.Error(1)
}

//Update is a mocked function
func (m *Store) Update(ctx context.Context, id string, expected status.Status, set map[string]interface{}) error {
	args := m.Mock.Called(ctx, id, expected, set)
	return args.Error(0)
}

//Get is a mocked function
func (m *Store) Get(ctx context.Context, id string) (*persistence.Job, error) {
	args := m.Mock.Called(ctx, id)
	return toJob(args.Get(0)), args.Error(1)
}

//ListByStatus is a mocked function
func (m *Store) ListByStatus(ctx context.Context, st status.Status) ([]*persistence.Job, error) {
	args := m.Mock.Called(ctx, st)
	res, _ := args.Get(0).([]*persistence.Job)
	return res, args.Error(1)
}

func toJob(a interface{}) *persistence.Job {
	res, _ := a.(*persistence.Job)
	return res
}
