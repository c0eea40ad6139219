package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/nbenliogludev/deskgpt/internal/agent"
	"github.com/nbenliogludev/deskgpt/internal/llm"
	"github.com/rs/zerolog"
)

type taskRunner interface {
	RunTask(ctx context.Context, instruction string) (*agent.Task, error)
}

type signalSource interface {
	Bind(parent context.Context) (context.Context, context.CancelFunc)
	C() <-chan os.Signal
}

// repl reads instructions line by line until exit, EOF or Ctrl+C at the
// prompt. Ctrl+C while a task runs cancels only that task.
type repl struct {
	runner        taskRunner
	signals       signalSource
	in            io.Reader
	out           io.Writer
	savePlan      string
	// shown in help
	screenshotDir string
	logger        zerolog.Logger
}

const helpText = `Type an instruction in plain language, for example:
  navigate to example.com and take a screenshot
  search for "golang" on duckduckgo.com and extract the result links

Commands:
  help              show this help
  exit, quit, q     leave deskgpt

Ctrl+C cancels the running task. At the prompt it exits.`

func (r *repl) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines, readErr := readLines(ctx, r.in)

	color.New(color.FgCyan, color.Bold).Fprintln(r.out, "deskgpt: browser automation from plain language")
	fmt.Fprintln(r.out, `Type "help" for examples, "exit" to quit.`)

	for {
		fmt.Fprint(r.out, "\n> ")

		select {
		case <-ctx.Done():
			return nil
		case <-r.signals.C():
			fmt.Fprintln(r.out, "\nInterrupted, exiting.")
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out)
				return <-readErr
			}

			input := strings.TrimSpace(line)
			switch strings.ToLower(input) {
			case "":
				continue
			case "exit", "quit", "q":
				fmt.Fprintln(r.out, "Goodbye!")
				return nil
			case "help":
				fmt.Fprintln(r.out, helpText)
				if r.screenshotDir != "" {
					fmt.Fprintf(r.out, "Screenshots are saved under %s\n", r.screenshotDir)
				}
				continue
			}
			r.runTask(ctx, input)
		}
	}
}

func (r *repl) runTask(ctx context.Context, instruction string) {
	taskCtx, release := r.signals.Bind(ctx)
	task, err := r.runner.RunTask(taskCtx, instruction)
	release()

	var me *llm.ModelError
	switch {
	case errors.Is(err, agent.ErrInterrupted):
		color.New(color.FgYellow).Fprintln(r.out, "Task interrupted. The browser is still open.")
	case errors.As(err, &me):
		color.New(color.FgRed).Fprintf(r.out, "Could not get actions from the model: %v\n", me)
		fmt.Fprintln(r.out, "The browser is still open; try rephrasing the instruction.")
	case err != nil:
		color.New(color.FgRed).Fprintf(r.out, "Error: %v\n", err)
	case r.savePlan != "":
		if err := savePlan(r.savePlan, task); err != nil {
			r.logger.Error().Err(err).Str("path", r.savePlan).Msg("failed to save plan")
			return
		}
		fmt.Fprintf(r.out, "Plan saved to %s\n", r.savePlan)
	}
}

// readLines feeds lines to the loop until EOF. The error channel receives
// the scanner error, or nil, once lines is closed.
func readLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}
