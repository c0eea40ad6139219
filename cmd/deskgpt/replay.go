package main

import (
	"context"

	"github.com/nbenliogludev/deskgpt/internal/agent"
	"github.com/nbenliogludev/deskgpt/internal/planner"
)

type ReplayCmd struct {
	File string `arg:"" help:"Plan file written by plan or run --save-plan." type:"existingfile"`
}

func (r *ReplayCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return err
	}
	defer a.Close()

	plan, err := planner.Load(r.File)
	if err != nil {
		return err
	}
	// Validate before paying for a browser launch.
	if _, err := plan.Actions(); err != nil {
		return err
	}

	ctrl, err := a.launch()
	if err != nil {
		return err
	}
	defer a.closeBrowser(ctrl)

	sig := agent.NewSignalController()
	defer sig.Close()
	ctx, release := sig.Bind(context.Background())
	defer release()

	ag := agent.New(ctrl, nil, a.agentOptions(), a.logger)
	_, err = ag.RunPlan(ctx, plan)
	return err
}
