package transcription

import (
	"context"
	"fmt"

	"github.com/airenas/meetscribe/internal/pkg/cmdapp"
	"github.com/airenas/meetscribe/internal/pkg/persistence"
	"github.com/airenas/meetscribe/internal/pkg/status"
	"github.com/pkg/errors"
)

// RecoveryReport counts what Recover changed
type RecoveryReport struct {
	Reset        int
	Removed      int
	Inconsistent int
	Requeued     int
}

func (r *RecoveryReport) String() string {
	return fmt.Sprintf("reset: %d, removed: %d, inconsistent: %d, requeued: %d",
		r.Reset, r.Removed, r.Inconsistent, r.Requeued)
}

// Recover repairs queue and store after a crash: processing jobs go back to pending,
// entries of finished or missing jobs are dropped, pending jobs without an entry are queued again
func (p *Processor) Recover(ctx context.Context) (*RecoveryReport, error) {
	return recoverQueue(ctx, p.store, p.queue)
}

func recoverQueue(ctx context.Context, store Store, queue Queue) (*RecoveryReport, error) {
	res := &RecoveryReport{}
	ids, err := queue.ListPending()
	if err != nil {
		return res, errors.Wrap(err, "can't list queue")
	}
	queued := make(map[string]bool, len(ids))
	for _, id := range ids {
		queued[id] = true
		job, err := store.Get(ctx, id)
		if errors.Cause(err) == persistence.ErrNotFound {
			cmdapp.Log.Warnf("No job %s, dropping queue entry", id)
			if err := queue.Remove(id); err != nil {
				return res, err
			}
			res.Removed++
			continue
		}
		if err != nil {
			return res, errors.Wrapf(err, "can't get job %s", id)
		}
		st, err := status.From(job.Status)
		if err != nil {
			cmdapp.Log.Error(errors.Wrapf(err, "job %s", id))
			continue
		}
		switch st {
		case status.Processing:
			err := store.Update(ctx, id, status.Processing, map[string]interface{}{persistence.FStatus: status.Name(status.Pending)})
			if errors.Cause(err) == persistence.ErrStatusChanged {
				continue
			}
			if err != nil {
				return res, errors.Wrapf(err, "can't reset job %s", id)
			}
			cmdapp.Log.Infof("Job %s reset to pending", id)
			res.Reset++
		case status.Completed, status.Failed:
			cmdapp.Log.Warn(errors.Wrapf(ErrInconsistentState, "job %s is %s but queued", id, st))
			if err := queue.Remove(id); err != nil {
				return res, err
			}
			res.Inconsistent++
		}
	}
	pending, err := store.ListByStatus(ctx, status.Pending)
	if err != nil {
		return res, errors.Wrap(err, "can't list pending jobs")
	}
	for _, j := range pending {
		if queued[j.ID] {
			continue
		}
		if _, err := queue.Enqueue(j.ID); err != nil {
			return res, errors.Wrapf(err, "can't queue %s", j.ID)
		}
		cmdapp.Log.Infof("Job %s queued again", j.ID)
		res.Requeued++
	}
	return res, nil
}
