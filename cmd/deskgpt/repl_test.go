package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nbenliogludev/deskgpt/internal/action"
	"github.com/nbenliogludev/deskgpt/internal/agent"
	"github.com/nbenliogludev/deskgpt/internal/llm"
	"github.com/nbenliogludev/deskgpt/internal/planner"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeRunner struct {
	got  []string
	errs map[string]error
}

func (f *fakeRunner) RunTask(ctx context.Context, instruction string) (*agent.Task, error) {
	f.got = append(f.got, instruction)
	if err := f.errs[instruction]; err != nil {
		return &agent.Task{Instruction: instruction, Status: agent.StatusFailed, Err: err}, err
	}
	nav, _ := action.NewNavigate("https://example.com")
	return &agent.Task{
		ID:          "task-1-abcdef12",
		Instruction: instruction,
		Status:      agent.StatusCompleted,
		Actions:     []action.Action{nav},
	}, nil
}

type fakeSignals struct {
	ch    chan os.Signal
	binds int
}

func (f *fakeSignals) Bind(parent context.Context) (context.Context, context.CancelFunc) {
	f.binds++
	return context.WithCancel(parent)
}

func (f *fakeSignals) C() <-chan os.Signal { return f.ch }

func newTestREPL(input string, runner *fakeRunner) (*repl, *bytes.Buffer, *fakeSignals) {
	var out bytes.Buffer
	sig := &fakeSignals{ch: make(chan os.Signal, 1)}
	return &repl{
		runner:  runner,
		signals: sig,
		in:      strings.NewReader(input),
		out:     &out,
		logger:  zerolog.Nop(),
	}, &out, sig
}

func TestREPL_CommandsAndInstructions(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner := &fakeRunner{}
	r, out, sig := newTestREPL("\n   \nhelp\nopen example.com\n  search golang  \nquit\nnever reached\n", runner)
	r.screenshotDir = "shots"

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, []string{"open example.com", "search golang"}, runner.got)
	assert.Equal(t, 2, sig.binds)
	assert.Contains(t, out.String(), "Commands:")
	assert.Contains(t, out.String(), "Screenshots are saved under shots")
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestREPL_ExitWords(t *testing.T) {
	for _, word := range []string{"exit", "quit", "q", "EXIT"} {
		t.Run(word, func(t *testing.T) {
			runner := &fakeRunner{}
			r, _, _ := newTestREPL(word+"\nopen example.com\n", runner)
			require.NoError(t, r.Run(context.Background()))
			assert.Empty(t, runner.got)
		})
	}
}

func TestREPL_EOFEndsLoop(t *testing.T) {
	runner := &fakeRunner{}
	r, _, _ := newTestREPL("open example.com", runner)
	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, []string{"open example.com"}, runner.got)
}

func TestREPL_ModelErrorKeepsSessionOpen(t *testing.T) {
	runner := &fakeRunner{errs: map[string]error{
		"gibberish": &llm.ModelError{Op: llm.OpDecode, Err: action.ErrUnknownType},
		"slow task": agent.ErrInterrupted,
		"broken":    errors.New("boom"),
	}}
	r, out, _ := newTestREPL("gibberish\nslow task\nbroken\nopen example.com\nexit\n", runner)

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, []string{"gibberish", "slow task", "broken", "open example.com"}, runner.got)
	assert.Contains(t, out.String(), "Could not get actions from the model")
	assert.Contains(t, out.String(), "Task interrupted")
	assert.Contains(t, out.String(), "Error: boom")
}

func TestREPL_InterruptAtPromptExits(t *testing.T) {
	runner := &fakeRunner{}
	r, out, sig := newTestREPL("", runner)
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	r.in = pr
	sig.ch <- os.Interrupt

	require.NoError(t, r.Run(context.Background()))
	assert.Contains(t, out.String(), "Interrupted, exiting.")
}

func TestREPL_SavePlan(t *testing.T) {
	runner := &fakeRunner{}
	r, _, _ := newTestREPL("open example.com\nexit\n", runner)
	r.savePlan = filepath.Join(t.TempDir(), "plans", "last.yaml")

	require.NoError(t, r.Run(context.Background()))

	p, err := planner.Load(r.savePlan)
	require.NoError(t, err)
	assert.Equal(t, "open example.com", p.Instruction)
	actions, err := p.Actions()
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, action.KindNavigate, actions[0].Kind())
}
