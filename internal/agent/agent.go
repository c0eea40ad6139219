package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/nbenliogludev/deskgpt/internal/action"
	"github.com/nbenliogludev/deskgpt/internal/browser"
	"github.com/nbenliogludev/deskgpt/internal/llm"
	"github.com/nbenliogludev/deskgpt/internal/planner"
	"github.com/rs/zerolog"
)

var ErrNoBrowser = errors.New("no browser session")

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Task is one instruction and everything that happened while running it.
type Task struct {
	ID          string
	Instruction string
	Status      Status
	Actions     []action.Action
	Results     []ActionResult
	Summary     string
	Err         error
	CreatedAt   time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
}

func (t *Task) Succeeded() int {
	n := 0
	for _, r := range t.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// Failed counts actions that ran and failed. Skipped actions are not counted.
func (t *Task) Failed() int {
	n := 0
	for _, r := range t.Results {
		if !r.Success && !r.Skipped {
			n++
		}
	}
	return n
}

func (t *Task) Skipped() int {
	n := 0
	for _, r := range t.Results {
		if r.Skipped {
			n++
		}
	}
	return n
}

func (t *Task) Duration() time.Duration {
	if t.FinishedAt.IsZero() || t.StartedAt.IsZero() {
		return 0
	}
	return t.FinishedAt.Sub(t.StartedAt)
}

func (t *Task) start(now time.Time) {
	t.Status = StatusRunning
	t.StartedAt = now
}

func (t *Task) fail(now time.Time, err error) {
	t.Status = StatusFailed
	t.Err = err
	t.Summary = "task failed before any action ran"
	t.FinishedAt = now
}

// finish derives status and summary from the results.
func (t *Task) finish(now time.Time, interrupted bool) {
	t.FinishedAt = now
	total, ok := len(t.Actions), t.Succeeded()
	t.Summary = fmt.Sprintf("%d/%d actions succeeded", ok, total)

	switch {
	case interrupted && ok < total:
		t.Status = StatusFailed
		t.Err = ErrInterrupted
	case total > 0 && ok == 0:
		t.Status = StatusFailed
	case ok < total:
		t.Status = StatusCompleted
		t.Summary += ", completed with some failures"
	default:
		t.Status = StatusCompleted
	}
}

type Options struct {
	Dispatch    DispatchOptions
	HistorySize int
	// Output receives the user-facing report. Nil discards it.
	Output io.Writer
}

// Agent turns instructions into tasks: it asks the model for actions and
// hands them to the dispatcher. A nil Browser is allowed for Plan only.
type Agent struct {
	browser    Browser
	llm        llm.Client
	dispatcher *Dispatcher
	memory     *Memory
	reporter   *Reporter
	logger     zerolog.Logger
	now        func() time.Time
}

func New(b Browser, client llm.Client, opts Options, logger zerolog.Logger) *Agent {
	a := &Agent{
		browser:    b,
		llm:        client,
		dispatcher: NewDispatcher(b, opts.Dispatch, logger),
		memory:     NewMemory(opts.HistorySize, 2),
		reporter:   NewReporter(opts.Output, opts.Dispatch.FailFast),
		logger:     logger,
		now:        time.Now,
	}
	a.dispatcher.OnResult(a.reporter.Step)
	return a
}

func (a *Agent) Memory() *Memory { return a.memory }

func (a *Agent) newTask(instruction string) *Task {
	now := a.now()
	return &Task{
		ID:          fmt.Sprintf("task-%d-%s", now.Unix(), uuid.NewString()[:8]),
		Instruction: instruction,
		Status:      StatusPending,
		CreatedAt:   now,
	}
}

// RunTask asks the model for actions and runs them. The returned error is
// non-nil only when the model call failed or the task was interrupted;
// individual action failures are reported in the task results.
func (a *Agent) RunTask(ctx context.Context, instruction string) (*Task, error) {
	if a.browser == nil {
		return nil, ErrNoBrowser
	}
	task := a.newTask(instruction)
	logger := a.logger.With().Str("task_id", task.ID).Logger()
	logger.Info().Str("instruction", instruction).Msg("task started")
	task.start(a.now())

	actions, err := a.generate(ctx, logger, instruction)
	if err != nil {
		task.fail(a.now(), err)
		a.memory.RecordError(instruction, err)
		a.reporter.TaskFailed(task)
		logger.Error().Err(err).Msg("task failed")
		return task, err
	}
	task.Actions = actions

	return task, a.execute(ctx, logger, task)
}

// Plan asks the model for actions without running them.
func (a *Agent) Plan(ctx context.Context, instruction string) (*planner.Plan, error) {
	task := a.newTask(instruction)
	logger := a.logger.With().Str("task_id", task.ID).Logger()

	actions, err := a.generate(ctx, logger, instruction)
	if err != nil {
		return nil, err
	}
	return planner.New(task.ID, instruction, actions, task.CreatedAt), nil
}

// RunPlan runs a saved plan without calling the model.
func (a *Agent) RunPlan(ctx context.Context, p *planner.Plan) (*Task, error) {
	if a.browser == nil {
		return nil, ErrNoBrowser
	}
	actions, err := p.Actions()
	if err != nil {
		return nil, err
	}

	task := a.newTask(p.Instruction)
	logger := a.logger.With().Str("task_id", task.ID).Str("plan_id", p.ID).Logger()
	logger.Info().Int("actions", len(actions)).Msg("replaying plan")
	task.start(a.now())
	task.Actions = actions

	return task, a.execute(ctx, logger, task)
}

func (a *Agent) generate(ctx context.Context, logger zerolog.Logger, instruction string) ([]action.Action, error) {
	req := llm.Request{
		Instruction: instruction,
		History:     a.memory.HistoryLines(),
	}

	if a.browser != nil {
		snap, err := a.browser.Snapshot(ctx)
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("page snapshot failed, continuing without page context")
		case !snap.Blank():
			req.CurrentURL = snap.URL
			req.PageTitle = snap.Title
			req.PageOutline = browser.Outline(snap.HTML, llm.MaxPageContext)
		}
	}

	return a.llm.GenerateActions(ctx, req)
}

func (a *Agent) execute(ctx context.Context, logger zerolog.Logger, task *Task) error {
	a.reporter.Plan(task)

	task.Results = a.dispatcher.Execute(ctx, task.Actions)
	task.finish(a.now(), ctx.Err() != nil)

	a.memory.Record(task)
	a.reporter.Summary(task)

	logger.Info().
		Str("status", string(task.Status)).
		Str("summary", task.Summary).
		Dur("duration", task.Duration()).
		Msg("task finished")

	if errors.Is(task.Err, ErrInterrupted) {
		return ErrInterrupted
	}
	return nil
}
