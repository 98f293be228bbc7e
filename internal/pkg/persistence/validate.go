package persistence

import (
	"github.com/airenas/meetscribe/internal/pkg/status"
	"github.com/pkg/errors"
)

// ValidateUpdate checks that the update keeps the job state machine.
// A status value in set must be a status name reachable from expected.
// Completed jobs accept summary fields only
func ValidateUpdate(expected status.Status, set map[string]interface{}) error {
	if status.IsTerminal(expected) {
		if expected == status.Completed && summaryOnly(set) {
			return nil
		}
		return errors.Errorf("job is in terminal state '%s'", expected)
	}
	v, ok := set[FStatus]
	if !ok {
		return nil
	}
	name, ok := v.(string)
	if !ok {
		return errors.Errorf("wrong status value type %T", v)
	}
	to, err := status.From(name)
	if err != nil {
		return err
	}
	if !status.CanChange(expected, to) {
		return errors.Errorf("wrong status change %s -> %s", expected, to)
	}
	return nil
}

func summaryOnly(set map[string]interface{}) bool {
	if len(set) == 0 {
		return false
	}
	for k := range set {
		if k != FSummaryStatus && k != FSummaryText {
			return false
		}
	}
	return true
}
