package agent

import "errors"

// humanizeStatus turns a task outcome into the line printed under the summary.
func humanizeStatus(t *Task) string {
	switch {
	case errors.Is(t.Err, ErrInterrupted):
		return "execution was interrupted by user (Ctrl+C)"
	case t.Status == StatusFailed && t.Err != nil:
		return "task failed: " + t.Err.Error()
	case t.Status == StatusFailed:
		return "no action succeeded"
	case t.Failed() > 0:
		return "completed with some failures"
	default:
		return "all actions completed"
	}
}
