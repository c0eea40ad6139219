// Package logging builds the zerolog logger used across deskgpt. Log lines
// are routed to a coloured console sink and, optionally, a rotating JSON file.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/nbenliogludev/deskgpt/internal/security"
	"github.com/rs/zerolog"
)

type Options struct {
	Level   string
	File    string
	Console io.Writer
	Secrets []string
}

// ParseLevel accepts the usual upper- or lower-case names, plus WARNING.
func ParseLevel(s string) (zerolog.Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		name = "warn"
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// New returns the logger and the router behind it. Close the router on exit
// to flush the file sink.
func New(opts Options) (zerolog.Logger, *Router, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	router := NewRouter(security.NewRedactor(opts.Secrets...))
	if opts.Console != nil {
		router.AddSink(NewConsoleSink(opts.Console))
	}
	if opts.File != "" {
		router.AddSink(NewFileSink(opts.File))
	}

	logger := zerolog.New(router).Level(lvl).With().Timestamp().Logger()
	return logger, router, nil
}
