package persistence

import (
	"time"

	"github.com/airenas/meetscribe/internal/pkg/status"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Job field names used for partial updates
const (
	FStatus          = "status"
	FProviderRef     = "providerRef"
	FResultText      = "resultText"
	FSpeakerCount    = "speakerCount"
	FDurationSeconds = "durationSeconds"
	FErrorDetail     = "errorDetail"
	FRetries         = "retries"
	FUpdatedAt       = "updatedAt"
	FSummaryStatus   = "summaryStatus"
	FSummaryText     = "summaryText"
)

// Summary states of a completed job
const (
	SummaryProcessing = "processing"
	SummaryCompleted  = "completed"
	SummaryFailed     = "failed"
)

var (
	// ErrNotFound is returned when there is no job with such ID
	ErrNotFound = errors.New("job not found")
	// ErrStatusChanged is returned when the stored job status is not the expected one
	ErrStatusChanged = errors.New("job status changed")
	// ErrStoreUnavailable indicates the job store can not be reached
	ErrStoreUnavailable = errors.New("job store unavailable")
)

type (
	// Options are transcription options passed to the provider
	Options struct {
		LanguageCode     string `json:"languageCode,omitempty" bson:"languageCode,omitempty"`
		SpeakerLabels    bool   `json:"speakerLabels" bson:"speakerLabels"`
		SpeakersExpected int    `json:"speakersExpected,omitempty" bson:"speakersExpected,omitempty"`
	}

	// Job is one transcription task record
	Job struct {
		ID              string    `json:"id" bson:"ID"`
		OwnerID         string    `json:"ownerID" bson:"ownerID"`
		SourceRef       string    `json:"source" bson:"sourceRef"`
		Status          string    `json:"status" bson:"status"`
		ProviderRef     string    `json:"providerRef,omitempty" bson:"providerRef,omitempty"`
		ResultText      string    `json:"resultText,omitempty" bson:"resultText,omitempty"`
		SpeakerCount    int       `json:"speakerCount,omitempty" bson:"speakerCount,omitempty"`
		DurationSeconds int       `json:"durationSeconds,omitempty" bson:"durationSeconds,omitempty"`
		ErrorDetail     string    `json:"error,omitempty" bson:"errorDetail,omitempty"`
		Options         Options   `json:"options" bson:"options"`
		Retries         int       `json:"retries,omitempty" bson:"retries,omitempty"`
		CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
		UpdatedAt       time.Time `json:"updatedAt" bson:"updatedAt"`
		SummaryStatus   string    `json:"summaryStatus,omitempty" bson:"summaryStatus,omitempty"`
		SummaryText     string    `json:"summary,omitempty" bson:"summaryText,omitempty"`
	}
)

// IsStoreUnavailable checks if the error is caused by store connectivity
func IsStoreUnavailable(err error) bool {
	return errors.Cause(err) == ErrStoreUnavailable
}

// PrepareNew resets the job to a fresh pending record
func PrepareNew(job *Job, now time.Time) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.Status = status.Name(status.Pending)
	job.ProviderRef = ""
	job.ResultText = ""
	job.SpeakerCount = 0
	job.DurationSeconds = 0
	job.ErrorDetail = ""
	job.Retries = 0
	job.SummaryStatus = ""
	job.SummaryText = ""
	job.CreatedAt = now.UTC()
	job.UpdatedAt = job.CreatedAt
}
