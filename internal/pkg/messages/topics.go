package messages

import "github.com/airenas/meetscribe/internal/pkg/status"

const (
	// TopicProcessing is published when a job is claimed
	TopicProcessing = "processing"
	// TopicCompleted is published when a transcript is saved
	TopicCompleted = "completed"
	// TopicFailed is published when a job fails
	TopicFailed = "failed"
)

// TopicFor returns event topic for the status, empty if the status has no event
func TopicFor(st status.Status) string {
	switch st {
	case status.Processing:
		return TopicProcessing
	case status.Completed:
		return TopicCompleted
	case status.Failed:
		return TopicFailed
	}
	return ""
}
