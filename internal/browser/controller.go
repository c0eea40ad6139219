package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nbenliogludev/deskgpt/internal/action"
	"github.com/rs/zerolog"
)

const (
	scrollStep      = 500
	screenshotStamp = "2006-01-02_15-04-05"
)

// PageSnapshot is the page state handed to the model as context.
type PageSnapshot struct {
	URL   string
	Title string
	HTML  string
}

// Blank reports whether nothing has been loaded yet.
func (s PageSnapshot) Blank() bool {
	return s.URL == "" || s.URL == "about:blank"
}

// Controller owns the single browser session. It exposes one operation per
// action variant and reports every failure as a *BrowserError.
type Controller struct {
	engine Engine
	dir    string
	now    func() time.Time
	seq    int
	logger zerolog.Logger
}

type ControllerOption func(*Controller)

// WithClock replaces time.Now for generated screenshot names.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

func NewController(engine Engine, screenshotDir string, logger zerolog.Logger, opts ...ControllerOption) (*Controller, error) {
	if err := os.MkdirAll(screenshotDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating screenshot directory %q: %w", screenshotDir, err)
	}
	c := &Controller{
		engine: engine,
		dir:    screenshotDir,
		now:    time.Now,
		logger: logger.With().Str("component", "browser").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Controller) ScreenshotDir() string { return c.dir }

func (c *Controller) fail(op action.Kind, target string, err error) error {
	c.logger.Debug().Err(err).Str("op", string(op)).Str("target", target).Msg("browser operation failed")
	return &BrowserError{Op: string(op), Target: target, Err: err}
}

// Navigate loads url and returns the URL the page settled on.
func (c *Controller) Navigate(ctx context.Context, url string) (string, error) {
	c.logger.Debug().Str("url", url).Msg("navigating")
	if err := c.engine.Goto(ctx, url); err != nil {
		return "", c.fail(action.KindNavigate, url, err)
	}
	final, err := c.engine.URL(ctx)
	if err != nil {
		return "", c.fail(action.KindNavigate, url, err)
	}
	return final, nil
}

func (c *Controller) Click(ctx context.Context, selector string) error {
	c.logger.Debug().Str("selector", selector).Msg("clicking")
	if err := c.engine.Click(ctx, selector); err != nil {
		return c.fail(action.KindClick, selector, err)
	}
	return nil
}

func (c *Controller) Type(ctx context.Context, selector, text string, submit bool) error {
	c.logger.Debug().Str("selector", selector).Bool("submit", submit).Msg("typing")
	if err := c.engine.Fill(ctx, selector, text, submit); err != nil {
		return c.fail(action.KindType, selector, err)
	}
	return nil
}

func (c *Controller) Scroll(ctx context.Context, dir action.Direction) error {
	dy := scrollStep
	if dir == action.ScrollUp {
		dy = -scrollStep
	}
	if err := c.engine.ScrollBy(ctx, dy); err != nil {
		return c.fail(action.KindScroll, string(dir), err)
	}
	return nil
}

func (c *Controller) Wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return c.fail(action.KindWait, d.String(), ctx.Err())
	}
}

// Screenshot writes a full-page PNG and returns its path. An empty path gets
// a name built from the clock and a per-session sequence number. Every path
// is placed under the screenshot directory.
func (c *Controller) Screenshot(ctx context.Context, path string) (string, error) {
	c.seq++
	name := path
	if name == "" {
		name = fmt.Sprintf("screenshot-%s-%d.png", c.now().Format(screenshotStamp), c.seq)
	}
	target := filepath.Join(c.dir, name)
	if rel, err := filepath.Rel(c.dir, target); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", c.fail(action.KindScreenshot, path, ErrOutsideScreenshotDir)
	}

	data, err := c.engine.Screenshot(ctx)
	if err != nil {
		return "", c.fail(action.KindScreenshot, target, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", c.fail(action.KindScreenshot, target, err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", c.fail(action.KindScreenshot, target, err)
	}
	c.logger.Info().Str("path", target).Int("bytes", len(data)).Msg("screenshot saved")
	return target, nil
}

// Extract returns page or element content. Links come back as a JSON array.
func (c *Controller) Extract(ctx context.Context, selector string, kind action.ExtractKind) (string, error) {
	switch kind {
	case action.ExtractHTML:
		html, err := c.engine.HTML(ctx, selector)
		if err != nil {
			return "", c.fail(action.KindExtract, selector, err)
		}
		return html, nil

	case action.ExtractLinks:
		html, err := c.engine.HTML(ctx, selector)
		if err != nil {
			return "", c.fail(action.KindExtract, selector, err)
		}
		base, err := c.engine.URL(ctx)
		if err != nil {
			return "", c.fail(action.KindExtract, selector, err)
		}
		links, err := ExtractLinks(html, base)
		if err != nil {
			return "", c.fail(action.KindExtract, selector, err)
		}
		data, err := json.Marshal(links)
		if err != nil {
			return "", c.fail(action.KindExtract, selector, err)
		}
		return string(data), nil

	default:
		text, err := c.engine.Text(ctx, selector)
		if err != nil {
			return "", c.fail(action.KindExtract, selector, err)
		}
		return strings.TrimSpace(text), nil
	}
}

// Snapshot captures the current URL, title and HTML.
func (c *Controller) Snapshot(ctx context.Context) (PageSnapshot, error) {
	u, err := c.engine.URL(ctx)
	if err != nil {
		return PageSnapshot{}, &BrowserError{Op: "snapshot", Err: err}
	}
	snap := PageSnapshot{URL: u}
	if snap.Blank() {
		return snap, nil
	}
	if snap.Title, err = c.engine.Title(ctx); err != nil {
		return PageSnapshot{}, &BrowserError{Op: "snapshot", Target: u, Err: err}
	}
	if snap.HTML, err = c.engine.HTML(ctx, ""); err != nil {
		return PageSnapshot{}, &BrowserError{Op: "snapshot", Target: u, Err: err}
	}
	return snap, nil
}

func (c *Controller) Close() error {
	if err := c.engine.Close(); err != nil {
		return &BrowserError{Op: "close", Err: err}
	}
	return nil
}
