package browser_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nbenliogludev/deskgpt/internal/action"
	"github.com/nbenliogludev/deskgpt/internal/browser"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	url     string
	title   string
	html    map[string]string
	text    map[string]string
	png     []byte
	gotoErr error
	failSel map[string]error
	calls   []string
	closed  bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		url:     "about:blank",
		html:    map[string]string{},
		text:    map[string]string{},
		png:     []byte("\x89PNG fake"),
		failSel: map[string]error{},
	}
}

func (f *fakeEngine) Goto(_ context.Context, url string) error {
	f.calls = append(f.calls, "goto "+url)
	if f.gotoErr != nil {
		return f.gotoErr
	}
	f.url = url + "/"
	return nil
}

func (f *fakeEngine) Click(_ context.Context, selector string) error {
	f.calls = append(f.calls, "click "+selector)
	return f.failSel[selector]
}

func (f *fakeEngine) Fill(_ context.Context, selector, text string, submit bool) error {
	f.calls = append(f.calls, "fill "+selector+" "+text)
	return f.failSel[selector]
}

func (f *fakeEngine) ScrollBy(_ context.Context, dy int) error {
	if dy > 0 {
		f.calls = append(f.calls, "scroll down")
	} else {
		f.calls = append(f.calls, "scroll up")
	}
	return nil
}

func (f *fakeEngine) Screenshot(context.Context) ([]byte, error) {
	f.calls = append(f.calls, "screenshot")
	return f.png, nil
}

func (f *fakeEngine) HTML(_ context.Context, selector string) (string, error) {
	if err := f.failSel[selector]; err != nil {
		return "", err
	}
	return f.html[selector], nil
}

func (f *fakeEngine) Text(_ context.Context, selector string) (string, error) {
	if err := f.failSel[selector]; err != nil {
		return "", err
	}
	return f.text[selector], nil
}

func (f *fakeEngine) URL(context.Context) (string, error)   { return f.url, nil }
func (f *fakeEngine) Title(context.Context) (string, error) { return f.title, nil }

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}

func newController(t *testing.T, engine browser.Engine, opts ...browser.ControllerOption) (*browser.Controller, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "screenshots")
	c, err := browser.NewController(engine, dir, zerolog.Nop(), opts...)
	require.NoError(t, err)
	return c, dir
}

func TestController_ScreenshotGeneratedPath(t *testing.T) {
	engine := newFakeEngine()
	fixed := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	c, dir := newController(t, engine, browser.WithClock(func() time.Time { return fixed }))

	path, err := c.Screenshot(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "screenshot-2024-03-09_14-05-07-1.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, engine.png, data)

	second, err := c.Screenshot(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "screenshot-2024-03-09_14-05-07-2.png"), second)
	assert.FileExists(t, second)
}

func TestController_ScreenshotExplicitPath(t *testing.T) {
	c, dir := newController(t, newFakeEngine())

	path, err := c.Screenshot(context.Background(), filepath.Join("run", "home.png"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run", "home.png"), path)
	assert.FileExists(t, path)
}

func TestController_ScreenshotStaysInDir(t *testing.T) {
	engine := newFakeEngine()
	c, dir := newController(t, engine)
	assert.Equal(t, dir, c.ScreenshotDir())
	outside := filepath.Join(filepath.Dir(dir), "outside", "evil.png")

	path, err := c.Screenshot(context.Background(), outside)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, outside), path)
	assert.NoFileExists(t, outside)

	_, err = c.Screenshot(context.Background(), filepath.Join("..", "escape.png"))
	var be *browser.BrowserError
	require.ErrorAs(t, err, &be)
	assert.ErrorIs(t, err, browser.ErrOutsideScreenshotDir)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "escape.png"))
	assert.Equal(t, []string{"screenshot"}, engine.calls)
}

func TestController_NavigateReturnsFinalURL(t *testing.T) {
	engine := newFakeEngine()
	c, _ := newController(t, engine)

	got, err := c.Navigate(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", got)
}

func TestController_ErrorsAreBrowserErrors(t *testing.T) {
	engine := newFakeEngine()
	engine.gotoErr = browser.ErrTimeout
	engine.failSel["#missing"] = browser.ErrSelectorNotFound
	c, _ := newController(t, engine)
	ctx := context.Background()

	_, err := c.Navigate(ctx, "https://slow.example")
	var be *browser.BrowserError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "navigate", be.Op)
	assert.Equal(t, "https://slow.example", be.Target)
	assert.True(t, be.Timeout())
	assert.Contains(t, err.Error(), `browser navigate "https://slow.example"`)

	err = c.Click(ctx, "#missing")
	require.ErrorAs(t, err, &be)
	assert.True(t, be.NotFound())
	assert.False(t, be.Timeout())

	err = c.Type(ctx, "#missing", "hello", false)
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "type", be.Op)

	_, err = c.Extract(ctx, "#missing", action.ExtractText)
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "extract", be.Op)
}

func TestController_Extract(t *testing.T) {
	engine := newFakeEngine()
	engine.url = "https://example.com/docs/"
	engine.text[""] = "  Example Domain \n"
	engine.html["nav"] = `<a href="/about" title="About us"> About </a><a href="https://go.dev">Go</a><a href="javascript:void(0)">x</a>`
	c, _ := newController(t, engine)
	ctx := context.Background()

	text, err := c.Extract(ctx, "", action.ExtractText)
	require.NoError(t, err)
	assert.Equal(t, "Example Domain", text)

	html, err := c.Extract(ctx, "nav", action.ExtractHTML)
	require.NoError(t, err)
	assert.Equal(t, engine.html["nav"], html)

	raw, err := c.Extract(ctx, "nav", action.ExtractLinks)
	require.NoError(t, err)
	var links []browser.Link
	require.NoError(t, json.Unmarshal([]byte(raw), &links))
	assert.Equal(t, []browser.Link{
		{Text: "About", Href: "https://example.com/about", Title: "About us"},
		{Text: "Go", Href: "https://go.dev"},
	}, links)
}

func TestController_ScrollAndWait(t *testing.T) {
	engine := newFakeEngine()
	c, _ := newController(t, engine)

	require.NoError(t, c.Scroll(context.Background(), action.ScrollUp))
	require.NoError(t, c.Scroll(context.Background(), action.ScrollDown))
	assert.Equal(t, []string{"scroll up", "scroll down"}, engine.calls)

	require.NoError(t, c.Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Wait(ctx, time.Hour)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestController_Snapshot(t *testing.T) {
	engine := newFakeEngine()
	c, _ := newController(t, engine)

	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Blank())
	assert.Empty(t, snap.HTML)

	engine.url = "https://example.com/"
	engine.title = "Example Domain"
	engine.html[""] = "<html><body><h1>Example</h1></body></html>"
	snap, err = c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.Blank())
	assert.Equal(t, "Example Domain", snap.Title)
	assert.Contains(t, snap.HTML, "<h1>Example</h1>")

	require.NoError(t, c.Close())
	assert.True(t, engine.closed)
}
