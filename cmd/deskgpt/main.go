package main

import (
	"github.com/alecthomas/kong"
)

type CLI struct {
	Globals

	Run    RunCmd    `cmd:"" default:"withargs" help:"Run an instruction, or start the interactive prompt."`
	Plan   PlanCmd   `cmd:"" help:"Ask the model for an action plan without opening a browser."`
	Replay ReplayCmd `cmd:"" help:"Execute a saved plan without calling the model."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("deskgpt"),
		kong.Description("Drive a browser with natural-language instructions."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
