package main

import (
	"os"

	"github.com/nbenliogludev/deskgpt/internal/agent"
	"github.com/nbenliogludev/deskgpt/internal/browser"
	"github.com/nbenliogludev/deskgpt/internal/config"
	"github.com/nbenliogludev/deskgpt/internal/logging"
	"github.com/rs/zerolog"
)

const historySize = 10

type Globals struct {
	LogLevel string `help:"Log level: debug, info, warn or error. Overrides LOG_LEVEL."`
	LogFile  string `help:"Also write JSON logs to this file, rotated. Overrides LOG_FILE." type:"path"`
	EnvFile  string `help:"Dotenv file loaded before reading the environment." default:".env" type:"path"`
}

// app is the state every command starts from.
type app struct {
	cfg    config.Config
	logger zerolog.Logger
	router *logging.Router
}

func (g *Globals) setup() (*app, error) {
	dotenvErr := config.LoadDotenv(g.EnvFile)

	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.LogFile != "" {
		cfg.Log.File = g.LogFile
	}

	logger, router, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: os.Stderr,
		Secrets: cfg.Secrets(),
	})
	if err != nil {
		return nil, err
	}
	if dotenvErr != nil {
		logger.Debug().Err(dotenvErr).Msg("no .env file loaded, relying on environment")
	}

	return &app{cfg: cfg, logger: logger, router: router}, nil
}

func (a *app) Close() {
	_ = a.router.Close()
}

func (a *app) launch() (*browser.Controller, error) {
	ctrl, err := browser.Launch(a.cfg.Browser, a.logger.With().Str("component", "browser").Logger())
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to start browser")
		return nil, err
	}
	return ctrl, nil
}

func (a *app) closeBrowser(ctrl *browser.Controller) {
	if err := ctrl.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("browser did not shut down cleanly")
		return
	}
	a.logger.Info().Msg("browser closed")
}

func (a *app) agentOptions() agent.Options {
	return agent.Options{
		Dispatch: agent.DispatchOptions{
			FailFast:    a.cfg.Dispatch.FailFast,
			ActionDelay: a.cfg.Dispatch.ActionDelay,
		},
		HistorySize: historySize,
		Output:      os.Stdout,
	}
}
