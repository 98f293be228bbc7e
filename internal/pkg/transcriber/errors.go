package transcriber

import (
	"github.com/airenas/meetscribe/internal/pkg/utils"
	"github.com/pkg/errors"
)

var (
	// ErrTransient indicates a failure worth retrying: network problems, timeouts, 5xx or 429 codes
	ErrTransient = errors.New("transient provider error")
	// ErrSubmission indicates the provider rejected the request
	ErrSubmission = errors.New("submission rejected")
	// ErrWrongSource indicates an unusable source reference
	ErrWrongSource = errors.New("wrong source")
)

// IsTransient checks if err is caused by ErrTransient
func IsTransient(err error) bool {
	return errors.Cause(err) == ErrTransient
}

// IsSubmission checks if err is caused by ErrSubmission
func IsSubmission(err error) bool {
	return errors.Cause(err) == ErrSubmission
}

func classify(err error, msg string) error {
	var he *utils.HTTPError
	if errors.As(err, &he) {
		if he.Code >= 500 || he.Code == 429 {
			return errors.Wrapf(ErrTransient, "%s: %v", msg, err)
		}
		return errors.Wrapf(ErrSubmission, "%s: %v", msg, err)
	}
	return errors.Wrapf(ErrTransient, "%s: %v", msg, err)
}
