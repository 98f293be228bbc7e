package mongo

import (
	"context"
	"time"

	"github.com/airenas/meetscribe/internal/pkg/cmdapp"
	"github.com/airenas/meetscribe/internal/pkg/persistence"
	"github.com/airenas/meetscribe/internal/pkg/status"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// JobStore keeps transcription jobs in mongo db
type JobStore struct {
	SessionProvider *SessionProvider
	now             func() time.Time
}

// NewJobStore creates JobStore instance
func NewJobStore(sessionProvider *SessionProvider) (*JobStore, error) {
	if sessionProvider == nil {
		return nil, errors.New("No session provider")
	}
	return &JobStore{SessionProvider: sessionProvider, now: time.Now}, nil
}

// Create inserts new pending job, returns job ID
func (js *JobStore) Create(ctx context.Context, job *persistence.Job) (string, error) {
	persistence.PrepareNew(job, js.now())
	cmdapp.Log.Infof("Saving job %s, owner: %s", job.ID, job.OwnerID)

	c, ctx, cancel, err := newColl(ctx, js.SessionProvider, jobTable)
	if err != nil {
		return "", err
	}
	defer cancel()

	_, err = c.InsertOne(ctx, job)
	if err != nil {
		return "", wrapErr(err, "can't insert job")
	}
	return job.ID, nil
}

// Update sets fields if the job status in db is the expected one
func (js *JobStore) Update(ctx context.Context, id string, expected status.Status, set map[string]interface{}) error {
	if err := persistence.ValidateUpdate(expected, set); err != nil {
		return err
	}
	cmdapp.Log.Debugf("Updating job %s (%s): %v", id, expected, set)

	c, ctx, cancel, err := newColl(ctx, js.SessionProvider, jobTable)
	if err != nil {
		return err
	}
	defer cancel()

	upd := bson.M{}
	for k, v := range set {
		upd[k] = v
	}
	upd[persistence.FUpdatedAt] = js.now().UTC()

	res := c.FindOneAndUpdate(ctx, bson.M{"ID": sanitize(id), "status": status.Name(expected)},
		bson.M{"$set": upd}, options.FindOneAndUpdate().SetReturnDocument(options.After))
	err = res.Err()
	if err == mongo.ErrNoDocuments {
		cnt, err := c.CountDocuments(ctx, bson.M{"ID": sanitize(id)})
		if err != nil {
			return wrapErr(err, "can't check job")
		}
		if cnt == 0 {
			return errors.Wrap(persistence.ErrNotFound, id)
		}
		return errors.Wrapf(persistence.ErrStatusChanged, "%s is not %s", id, expected)
	}
	if err != nil {
		return wrapErr(err, "can't update job")
	}
	return nil
}

// Get returns job by ID
func (js *JobStore) Get(ctx context.Context, id string) (*persistence.Job, error) {
	c, ctx, cancel, err := newColl(ctx, js.SessionProvider, jobTable)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var res persistence.Job
	err = c.FindOne(ctx, bson.M{"ID": sanitize(id)}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, errors.Wrap(persistence.ErrNotFound, id)
	}
	if err != nil {
		return nil, wrapErr(err, "can't get job")
	}
	return &res, nil
}

// ListByStatus returns jobs with status, oldest first
func (js *JobStore) ListByStatus(ctx context.Context, st status.Status) ([]*persistence.Job, error) {
	c, ctx, cancel, err := newColl(ctx, js.SessionProvider, jobTable)
	if err != nil {
		return nil, err
	}
	defer cancel()

	cursor, err := c.Find(ctx, bson.M{"status": status.Name(st)},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "ID", Value: 1}}))
	if err != nil {
		return nil, wrapErr(err, "can't list jobs")
	}
	defer cursor.Close(ctx)
	res := make([]*persistence.Job, 0)
	for cursor.Next(ctx) {
		var job persistence.Job
		if err := cursor.Decode(&job); err != nil {
			return nil, errors.Wrap(err, "can't decode job")
		}
		res = append(res, &job)
	}
	if err := cursor.Err(); err != nil {
		return nil, wrapErr(err, "can't list jobs")
	}
	return res, nil
}
