package status

import "github.com/pkg/errors"

// Status represents transcription job status
type Status int

const (
	// Pending - job waits in the queue
	Pending Status = iota + 1
	// Processing - job is claimed by a worker
	Processing
	// Completed - terminal, result is available
	Completed
	// Failed - terminal, error detail is available
	Failed
)

var (
	statusName = map[Status]string{Pending: "pending", Processing: "processing",
		Completed: "completed", Failed: "failed"}
	nameStatus = map[string]Status{"pending": Pending, "processing": Processing,
		"completed": Completed, "failed": Failed}
)

// ErrUnknown is returned for an unknown status name
var ErrUnknown = errors.New("unknown status")

// Name returns the persisted status name
func Name(st Status) string {
	return statusName[st]
}

func (st Status) String() string {
	if n, ok := statusName[st]; ok {
		return n
	}
	return "unknown"
}

// From parses status name
func From(st string) (Status, error) {
	res, ok := nameStatus[st]
	if !ok {
		return 0, errors.Wrapf(ErrUnknown, "'%s'", st)
	}
	return res, nil
}

// IsTerminal returns true for completed and failed
func IsTerminal(st Status) bool {
	return st == Completed || st == Failed
}

// CanChange checks the job state machine edge.
// processing -> pending is allowed for recovery of interrupted jobs only
func CanChange(from, to Status) bool {
	switch from {
	case Pending:
		return to == Processing
	case Processing:
		return to == Completed || to == Failed || to == Pending
	}
	return false
}
