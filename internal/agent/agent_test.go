package agent_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nbenliogludev/deskgpt/internal/action"
	"github.com/nbenliogludev/deskgpt/internal/agent"
	"github.com/nbenliogludev/deskgpt/internal/browser"
	"github.com/nbenliogludev/deskgpt/internal/llm"
	"github.com/nbenliogludev/deskgpt/internal/planner"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	replies  [][]action.Action
	err      error
	requests []llm.Request
}

func (f *fakeLLM) GenerateActions(_ context.Context, req llm.Request) ([]action.Action, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.replies) == 0 {
		return nil, nil
	}
	out := f.replies[0]
	f.replies = f.replies[1:]
	return out, nil
}

func newAgent(b agent.Browser, client llm.Client, out *bytes.Buffer, opts ...func(*agent.Options)) *agent.Agent {
	o := agent.Options{HistorySize: 10, Output: out}
	for _, fn := range opts {
		fn(&o)
	}
	return agent.New(b, client, o, zerolog.Nop())
}

func TestRunTask_ModelErrorSkipsDispatch(t *testing.T) {
	b := newFakeBrowser()
	client := &fakeLLM{err: &llm.ModelError{Op: llm.OpDecode, Err: action.ErrUnknownType}}
	var out bytes.Buffer
	a := newAgent(b, client, &out)

	task, err := a.RunTask(context.Background(), "teleport to mars")

	var me *llm.ModelError
	require.ErrorAs(t, err, &me)
	require.NotNil(t, task)
	assert.Equal(t, agent.StatusFailed, task.Status)
	assert.Empty(t, task.Results)
	assert.Empty(t, b.calls, "dispatcher must not run")
	assert.Contains(t, out.String(), "task failed")
	assert.Contains(t, a.Memory().HistoryLines()[0], `task "teleport to mars": failed`)
}

func TestRunTask_StatusAndSummary(t *testing.T) {
	nav, _ := action.NewNavigate("https://example.com")
	click, _ := action.NewClick("#missing")
	shot, _ := action.NewScreenshot("")

	tests := []struct {
		name       string
		actions    []action.Action
		failSel    string
		wantStatus agent.Status
		wantSum    string
	}{
		{name: "all succeed", actions: []action.Action{nav, shot}, wantStatus: agent.StatusCompleted, wantSum: "2/2 actions succeeded"},
		{
			name:       "some fail",
			actions:    []action.Action{nav, click, shot},
			failSel:    "#missing",
			wantStatus: agent.StatusCompleted,
			wantSum:    "2/3 actions succeeded, completed with some failures",
		},
		{name: "none succeed", actions: []action.Action{click}, failSel: "#missing", wantStatus: agent.StatusFailed, wantSum: "0/1 actions succeeded"},
		{name: "empty plan", actions: []action.Action{}, wantStatus: agent.StatusCompleted, wantSum: "0/0 actions succeeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBrowser()
			if tt.failSel != "" {
				b.fail[tt.failSel] = browser.ErrSelectorNotFound
			}
			var out bytes.Buffer
			a := newAgent(b, &fakeLLM{replies: [][]action.Action{tt.actions}}, &out)

			task, err := a.RunTask(context.Background(), "do things")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, task.Status)
			assert.Equal(t, tt.wantSum, task.Summary)
			assert.Len(t, task.Results, len(tt.actions))
			assert.Regexp(t, `^task-\d+-[0-9a-f]{8}$`, task.ID)
			assert.False(t, task.FinishedAt.Before(task.StartedAt))
			assert.Contains(t, out.String(), "EXECUTION REPORT")
			if tt.failSel != "" && len(tt.actions) > 1 {
				assert.Contains(t, out.String(), "Continuing with remaining actions...")
			}
		})
	}
}

func TestRunTask_PageContextAndHistory(t *testing.T) {
	b := newFakeBrowser()
	nav, _ := action.NewNavigate("https://example.com")
	click, _ := action.NewClick("#more")
	b.fail["#more"] = browser.ErrSelectorNotFound
	client := &fakeLLM{replies: [][]action.Action{{nav}, {click}, {click}}}
	a := newAgent(b, client, &bytes.Buffer{})
	ctx := context.Background()

	_, err := a.RunTask(ctx, "open example.com")
	require.NoError(t, err)
	first := client.requests[0]
	assert.Empty(t, first.CurrentURL, "blank page sends no page context")
	assert.Empty(t, first.History)

	b.snap.Title = "Example Domain"
	b.snap.HTML = `<html><body><h1>Example</h1><a href="/more">More</a></body></html>`
	_, err = a.RunTask(ctx, "click more")
	require.NoError(t, err)
	second := client.requests[1]
	assert.Equal(t, "https://example.com/", second.CurrentURL)
	assert.Equal(t, "Example Domain", second.PageTitle)
	assert.Contains(t, second.PageOutline, `<a href="/more"> More`)
	require.NotEmpty(t, second.History)
	assert.Contains(t, second.History[0], `task "open example.com": 1/1 actions succeeded`)

	_, err = a.RunTask(ctx, "click more again")
	require.NoError(t, err)
	history := a.Memory().HistoryLines()
	assert.Contains(t, history[len(history)-1], "SYSTEM NOTE")
}

func TestRunTask_Interrupted(t *testing.T) {
	b := newFakeBrowser()
	nav, _ := action.NewNavigate("https://example.com")
	shot, _ := action.NewScreenshot("")
	a := newAgent(b, &fakeLLM{replies: [][]action.Action{{nav, shot}}}, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	task, err := a.RunTask(ctx, "open example")
	assert.ErrorIs(t, err, agent.ErrInterrupted)
	assert.Equal(t, agent.StatusFailed, task.Status)
	assert.Equal(t, 2, task.Skipped())
	assert.Empty(t, b.calls)
}

func TestPlanAndRunPlan(t *testing.T) {
	nav, _ := action.NewNavigate("https://go.dev")
	ext, _ := action.NewExtract("", action.ExtractLinks)
	client := &fakeLLM{replies: [][]action.Action{{nav, ext}}}

	planOnly := newAgent(nil, client, &bytes.Buffer{})
	p, err := planOnly.Plan(context.Background(), "list go.dev links")
	require.NoError(t, err)
	assert.Equal(t, "list go.dev links", p.Instruction)
	assert.Len(t, p.Steps, 2)

	_, err = planOnly.RunTask(context.Background(), "x")
	assert.ErrorIs(t, err, agent.ErrNoBrowser)

	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, planner.Save(path, p))
	loaded, err := planner.Load(path)
	require.NoError(t, err)

	b := newFakeBrowser()
	replayer := newAgent(b, &fakeLLM{err: errors.New("must not be called")}, &bytes.Buffer{})
	task, err := replayer.RunPlan(context.Background(), loaded)
	require.NoError(t, err)
	assert.Equal(t, agent.StatusCompleted, task.Status)
	assert.Equal(t, []string{"navigate https://go.dev", "extract "}, b.calls)
	assert.Equal(t, "extracted links", task.Results[1].Extracted)
}

// pageEngine is a minimal browser.Engine for running the real controller.
type pageEngine struct {
	url string
}

func (e *pageEngine) Goto(_ context.Context, url string) error { e.url = url + "/"; return nil }
func (e *pageEngine) Click(context.Context, string) error      { return nil }
func (e *pageEngine) Fill(context.Context, string, string, bool) error {
	return nil
}
func (e *pageEngine) ScrollBy(context.Context, int) error { return nil }
func (e *pageEngine) Screenshot(context.Context) ([]byte, error) {
	return []byte("\x89PNG\r\n\x1a\n"), nil
}
func (e *pageEngine) HTML(context.Context, string) (string, error) {
	return "<html><body><h1>Example Domain</h1></body></html>", nil
}
func (e *pageEngine) Text(context.Context, string) (string, error) { return "Example Domain", nil }
func (e *pageEngine) URL(context.Context) (string, error)          { return e.url, nil }
func (e *pageEngine) Title(context.Context) (string, error)        { return "Example Domain", nil }
func (e *pageEngine) Close() error                                 { return nil }

func TestRunTask_NavigateThenScreenshotWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	ctrl, err := browser.NewController(&pageEngine{url: "about:blank"}, dir, zerolog.Nop(),
		browser.WithClock(func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }))
	require.NoError(t, err)
	defer ctrl.Close()

	actions, err := action.ParseList([]byte(`{"actions":[{"type":"navigate","url":"example.com"},{"type":"screenshot"}]}`))
	require.NoError(t, err)

	a := newAgent(ctrl, &fakeLLM{replies: [][]action.Action{actions}}, &bytes.Buffer{})
	task, err := a.RunTask(context.Background(), "navigate to example.com then take a screenshot")
	require.NoError(t, err)

	require.Len(t, task.Results, 2)
	assert.Equal(t, "https://example.com/", task.Results[0].URL)
	path := task.Results[1].ScreenshotPath
	assert.Equal(t, filepath.Join(dir, "screenshot-2024-01-02_03-04-05-1.png"), path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
