package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/airenas/meetscribe/internal/pkg/cmdapp"
	"github.com/airenas/meetscribe/internal/pkg/persistence"
	"github.com/airenas/meetscribe/internal/pkg/status"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
)

const jobColumns = "id, owner_id, source_ref, status, provider_ref, result_text, speaker_count, " +
	"duration_seconds, error_detail, options, retries, created_at, updated_at, summary_status, summary_text"

// field name -> column
var columns = map[string]string{
	persistence.FStatus:          "status",
	persistence.FProviderRef:     "provider_ref",
	persistence.FResultText:      "result_text",
	persistence.FSpeakerCount:    "speaker_count",
	persistence.FDurationSeconds: "duration_seconds",
	persistence.FErrorDetail:     "error_detail",
	persistence.FRetries:         "retries",
	persistence.FSummaryStatus:   "summary_status",
	persistence.FSummaryText:     "summary_text",
}

// JobStore keeps transcription jobs in postgres
type JobStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open connects to postgres and applies migrations
func Open(dsn string) (*JobStore, error) {
	if dsn == "" {
		return nil, errors.New("No postgres dsn provided")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "can't open db")
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return NewJobStore(db)
}

// NewJobStore creates JobStore on an opened db
func NewJobStore(db *sql.DB) (*JobStore, error) {
	if db == nil {
		return nil, errors.New("No db")
	}
	return &JobStore{db: db, now: time.Now}, nil
}

// Close closes the db
func (js *JobStore) Close() error {
	return js.db.Close()
}

// Healthy pings the db
func (js *JobStore) Healthy() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return js.db.PingContext(ctx)
}

// Create inserts new pending job, returns job ID
func (js *JobStore) Create(ctx context.Context, job *persistence.Job) (string, error) {
	persistence.PrepareNew(job, js.now())
	cmdapp.Log.Infof("Saving job %s, owner: %s", job.ID, job.OwnerID)
	opts, err := json.Marshal(job.Options)
	if err != nil {
		return "", errors.Wrap(err, "can't marshal options")
	}
	_, err = js.db.ExecContext(ctx, "INSERT INTO transcription_jobs ("+jobColumns+") "+
		"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)",
		job.ID, job.OwnerID, job.SourceRef, job.Status, job.ProviderRef, job.ResultText, job.SpeakerCount,
		job.DurationSeconds, job.ErrorDetail, opts, job.Retries, job.CreatedAt, job.UpdatedAt,
		job.SummaryStatus, job.SummaryText)
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
	keys := make([]string, 0, len(set))
	for k := range set {
		if _, ok := columns[k]; !ok {
			return errors.Errorf("unknown field '%s'", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := []interface{}{id, status.Name(expected)}
	sets := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		args = append(args, set[k])
		sets = append(sets, columns[k]+" = $"+strconv.Itoa(len(args)))
	}
	args = append(args, js.now().UTC())
	sets = append(sets, "updated_at = $"+strconv.Itoa(len(args)))

	res, err := js.db.ExecContext(ctx, "UPDATE transcription_jobs SET "+strings.Join(sets, ", ")+
		" WHERE id = $1 AND status = $2", args...)
	if err != nil {
		return wrapErr(err, "can't update job")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err, "can't update job")
	}
	if n > 0 {
		return nil
	}
	var cnt int
	err = js.db.QueryRowContext(ctx, "SELECT count(*) FROM transcription_jobs WHERE id = $1", id).Scan(&cnt)
	if err != nil {
		return wrapErr(err, "can't check job")
	}
	if cnt == 0 {
		return errors.Wrap(persistence.ErrNotFound, id)
	}
	return errors.Wrapf(persistence.ErrStatusChanged, "%s is not %s", id, expected)
}

// Get returns job by ID
func (js *JobStore) Get(ctx context.Context, id string) (*persistence.Job, error) {
	row := js.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM transcription_jobs WHERE id = $1", id)
	res, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(persistence.ErrNotFound, id)
	}
	if err != nil {
		return nil, wrapErr(err, "can't get job")
	}
	return res, nil
}

// ListByStatus returns jobs with status, oldest first
func (js *JobStore) ListByStatus(ctx context.Context, st status.Status) ([]*persistence.Job, error) {
	rows, err := js.db.QueryContext(ctx, "SELECT "+jobColumns+" FROM transcription_jobs WHERE status = $1 "+
		"ORDER BY created_at, id", status.Name(st))
	if err != nil {
		return nil, wrapErr(err, "can't list jobs")
	}
	defer rows.Close()
	res := make([]*persistence.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, wrapErr(err, "can't read job")
		}
		res = append(res, job)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "can't list jobs")
	}
	return res, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(r scanner) (*persistence.Job, error) {
	var res persistence.Job
	var opts []byte
	err := r.Scan(&res.ID, &res.OwnerID, &res.SourceRef, &res.Status, &res.ProviderRef, &res.ResultText,
		&res.SpeakerCount, &res.DurationSeconds, &res.ErrorDetail, &opts, &res.Retries, &res.CreatedAt, &res.UpdatedAt,
		&res.SummaryStatus, &res.SummaryText)
	if err != nil {
		return nil, err
	}
	if len(opts) > 0 {
		if err := json.Unmarshal(opts, &res.Options); err != nil {
			return nil, errors.Wrap(err, "can't unmarshal options")
		}
	}
	return &res, nil
}

func wrapErr(err error, msg string) error {
	var ce *pgconn.ConnectError
	var ne net.Error
	if errors.As(err, &ce) || errors.As(err, &ne) || errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) {
		return errors.Wrapf(persistence.ErrStoreUnavailable, "%s: %v", msg, err)
	}
	return errors.Wrap(err, msg)
}
