package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nbenliogludev/deskgpt/internal/agent"
	"github.com/nbenliogludev/deskgpt/internal/llm"
	"github.com/nbenliogludev/deskgpt/internal/planner"
)

type PlanCmd struct {
	Instruction string `arg:"" help:"Natural-language instruction."`
	Out         string `short:"o" help:"Save the plan to this file instead of printing it." type:"path"`
}

func (p *PlanCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := llm.NewOpenAIClient(a.cfg.LLM, a.logger)
	if err != nil {
		return err
	}

	sig := agent.NewSignalController()
	defer sig.Close()
	ctx, release := sig.Bind(context.Background())
	defer release()

	ag := agent.New(nil, client, a.agentOptions(), a.logger)
	plan, err := ag.Plan(ctx, p.Instruction)
	if err != nil {
		return err
	}

	if p.Out != "" {
		if err := planner.Save(p.Out, plan); err != nil {
			return err
		}
		fmt.Printf("Plan with %d action(s) saved to %s\n", len(plan.Steps), p.Out)
		return nil
	}

	data, err := planner.Marshal(plan)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
