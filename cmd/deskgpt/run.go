package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nbenliogludev/deskgpt/internal/agent"
	"github.com/nbenliogludev/deskgpt/internal/llm"
	"github.com/nbenliogludev/deskgpt/internal/planner"
)

type RunCmd struct {
	Command  string `short:"c" help:"Run this instruction once and exit."`
	FailFast bool   `help:"Stop at the first failed action. Overrides FAIL_FAST."`
	SavePlan string `help:"Write the generated actions to this YAML plan file." type:"path"`
}

func (r *RunCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return err
	}
	defer a.Close()

	if r.FailFast {
		a.cfg.Dispatch.FailFast = true
	}

	client, err := llm.NewOpenAIClient(a.cfg.LLM, a.logger)
	if err != nil {
		return err
	}

	ctrl, err := a.launch()
	if err != nil {
		return err
	}
	defer a.closeBrowser(ctrl)

	ag := agent.New(ctrl, client, a.agentOptions(), a.logger)
	sig := agent.NewSignalController()
	defer sig.Close()

	if r.Command == "" {
		loop := &repl{
			runner:        ag,
			signals:       sig,
			in:            os.Stdin,
			out:           os.Stdout,
			savePlan:      r.SavePlan,
			screenshotDir: ctrl.ScreenshotDir(),
			logger:        a.logger,
		}
		return loop.Run(context.Background())
	}

	ctx, release := sig.Bind(context.Background())
	task, err := ag.RunTask(ctx, r.Command)
	release()
	if err != nil {
		return err
	}
	if r.SavePlan != "" {
		if err := savePlan(r.SavePlan, task); err != nil {
			return err
		}
		fmt.Printf("Plan saved to %s\n", r.SavePlan)
	}
	return nil
}

func savePlan(path string, task *agent.Task) error {
	return planner.Save(path, planner.New(task.ID, task.Instruction, task.Actions, task.CreatedAt))
}
