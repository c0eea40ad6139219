package browser

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrSelectorNotFound = errors.New("selector not found")
	ErrTimeout          = errors.New("browser timeout")
	ErrPageClosed       = errors.New("page closed")

	ErrOutsideScreenshotDir = errors.New("path is outside the screenshot directory")
)

// BrowserError reports a failed browser operation. Op is the action kind
// ("navigate", "click", ...) or an internal operation such as "snapshot".
type BrowserError struct {
	Op     string
	Target string
	Err    error
}

func (e *BrowserError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("browser %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("browser %s %q: %v", e.Op, e.Target, e.Err)
}

func (e *BrowserError) Unwrap() error { return e.Err }

func (e *BrowserError) Timeout() bool {
	return errors.Is(e.Err, ErrTimeout) || errors.Is(e.Err, context.DeadlineExceeded)
}

func (e *BrowserError) NotFound() bool {
	return errors.Is(e.Err, ErrSelectorNotFound)
}
