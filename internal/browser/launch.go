package browser

import (
	"fmt"

	"github.com/nbenliogludev/deskgpt/internal/config"
	"github.com/rs/zerolog"
)

// Launch starts the configured engine and wraps it in a Controller.
func Launch(cfg config.BrowserConfig, logger zerolog.Logger) (*Controller, error) {
	opts := EngineOptions{
		Headless:       cfg.Headless,
		Timeout:        cfg.Timeout(),
		ViewportWidth:  cfg.ViewportWidth,
		ViewportHeight: cfg.ViewportHeight,
		Install:        cfg.Install,
	}

	logger.Info().
		Str("engine", cfg.Engine).
		Bool("headless", cfg.Headless).
		Int("viewport_width", cfg.ViewportWidth).
		Int("viewport_height", cfg.ViewportHeight).
		Msg("launching browser")

	var (
		engine Engine
		err    error
	)
	switch cfg.Engine {
	case config.EngineChromedp:
		engine, err = NewChromedpEngine(opts)
	case config.EnginePlaywright, "":
		engine, err = NewPlaywrightEngine(opts)
	default:
		return nil, fmt.Errorf("unknown browser engine %q", cfg.Engine)
	}
	if err != nil {
		return nil, fmt.Errorf("launching %s browser: %w", cfg.Engine, err)
	}

	ctrl, err := NewController(engine, cfg.ScreenshotDir, logger)
	if err != nil {
		_ = engine.Close()
		return nil, err
	}
	return ctrl, nil
}
