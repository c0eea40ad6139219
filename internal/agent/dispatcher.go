package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nbenliogludev/deskgpt/internal/action"
	"github.com/nbenliogludev/deskgpt/internal/browser"
	"github.com/rs/zerolog"
)

var (
	ErrInterrupted = errors.New("execution interrupted")
	ErrSkipped     = errors.New("skipped after earlier failure")
)

const reasonInterrupted = "interrupted"

// Browser is the controller surface the dispatcher and agent drive.
// *browser.Controller satisfies it.
type Browser interface {
	Navigate(ctx context.Context, url string) (string, error)
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string, submit bool) error
	Extract(ctx context.Context, selector string, kind action.ExtractKind) (string, error)
	Screenshot(ctx context.Context, path string) (string, error)
	Wait(ctx context.Context, d time.Duration) error
	Scroll(ctx context.Context, dir action.Direction) error
	Snapshot(ctx context.Context) (browser.PageSnapshot, error)
}

// ActionResult is the outcome of one dispatched action.
type ActionResult struct {
	Index          int
	Action         action.Action
	Success        bool
	Skipped        bool
	Error          string
	Err            error
	Extracted      string
	ScreenshotPath string
	URL            string
	Duration       time.Duration
}

type DispatchOptions struct {
	FailFast    bool
	ActionDelay time.Duration
}

type Dispatcher struct {
	browser  Browser
	opts     DispatchOptions
	logger   zerolog.Logger
	onResult func(ActionResult)
}

func NewDispatcher(b Browser, opts DispatchOptions, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		browser: b,
		opts:    opts,
		logger:  logger,
	}
}

// OnResult registers a callback invoked after each executed action.
func (d *Dispatcher) OnResult(fn func(ActionResult)) {
	d.onResult = fn
}

// Execute runs actions strictly in order, one controller call each. A failed
// action does not stop the sequence unless FailFast is set; the returned
// slice always has one entry per action.
func (d *Dispatcher) Execute(ctx context.Context, actions []action.Action) []ActionResult {
	results := make([]ActionResult, 0, len(actions))
	var stop error

	for i, a := range actions {
		if stop == nil && ctx.Err() != nil {
			stop = ErrInterrupted
		}
		if stop == nil && i > 0 && d.opts.ActionDelay > 0 {
			if err := sleep(ctx, d.opts.ActionDelay); err != nil {
				stop = ErrInterrupted
			}
		}
		if stop != nil {
			results = append(results, skipped(i, a, stop))
			continue
		}

		res := d.executeOne(ctx, i, a)
		results = append(results, res)
		if d.onResult != nil {
			d.onResult(res)
		}

		if !res.Success {
			switch {
			case ctx.Err() != nil:
				stop = ErrInterrupted
			case d.opts.FailFast:
				stop = ErrSkipped
			}
		}
	}
	return results
}

func (d *Dispatcher) executeOne(ctx context.Context, i int, a action.Action) ActionResult {
	res := ActionResult{Index: i, Action: a}
	logger := d.logger.With().
		Int("index", i+1).
		Str("action", string(a.Kind())).
		Str("target", action.Target(a)).
		Logger()

	start := time.Now()
	var err error
	switch act := a.(type) {
	case action.Navigate:
		res.URL, err = d.browser.Navigate(ctx, act.URL())
	case action.Click:
		err = d.browser.Click(ctx, act.Selector())
	case action.Type:
		err = d.browser.Type(ctx, act.Selector(), act.Text(), act.Submit())
	case action.Extract:
		res.Extracted, err = d.browser.Extract(ctx, act.Selector(), act.ExtractKind())
	case action.Screenshot:
		res.ScreenshotPath, err = d.browser.Screenshot(ctx, act.Path())
	case action.Wait:
		err = d.browser.Wait(ctx, act.Duration())
	case action.Scroll:
		err = d.browser.Scroll(ctx, act.Direction())
	default:
		err = fmt.Errorf("%w: %T", action.ErrUnknownType, a)
	}
	res.Duration = time.Since(start)

	if err != nil {
		res.Err = err
		res.Error = err.Error()
		logger.Warn().Err(err).Dur("duration", res.Duration).Msg("action failed")
		return res
	}
	res.Success = true
	logger.Info().Dur("duration", res.Duration).Msg("action succeeded")
	return res
}

func skipped(i int, a action.Action, reason error) ActionResult {
	msg := reason.Error()
	if errors.Is(reason, ErrInterrupted) {
		msg = reasonInterrupted
	}
	return ActionResult{
		Index:   i,
		Action:  a,
		Skipped: true,
		Error:   msg,
		Err:     reason,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
