package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

const (
	fallbackClickTimeout = 2 * time.Second
	settleTimeout        = 5 * time.Second
)

// PlaywrightEngine drives Chromium through playwright-go. Playwright calls
// are not context aware, so each call checks ctx first and relies on the
// page default timeout for the upper bound.
type PlaywrightEngine struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	timeout time.Duration
}

func NewPlaywrightEngine(opts EngineOptions) (*PlaywrightEngine, error) {
	if opts.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("install pw failed: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start pw failed: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     launchArgs,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: opts.ViewportWidth, Height: opts.ViewportHeight},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	ms := float64(opts.Timeout.Milliseconds())
	page.SetDefaultTimeout(ms)
	page.SetDefaultNavigationTimeout(ms)

	return &PlaywrightEngine{
		pw:      pw,
		browser: browser,
		context: bctx,
		page:    page,
		timeout: opts.Timeout,
	}, nil
}

// classify maps playwright errors onto the package sentinels.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, playwright.ErrTimeout):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, playwright.ErrTargetClosed):
		return fmt.Errorf("%w: %w", ErrPageClosed, err)
	default:
		return err
	}
}

func (e *PlaywrightEngine) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := e.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return classify(err)
	}
	// Busy pages never go idle; the load event above is enough.
	_ = e.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(settleTimeout.Milliseconds())),
	})
	return nil
}

// Click tries the selector first, then its text and button-name fallbacks.
func (e *PlaywrightEngine) Click(ctx context.Context, selector string) error {
	var firstErr error
	for i, sel := range clickCandidates(selector) {
		if err := ctx.Err(); err != nil {
			return err
		}
		wait := e.timeout
		if i > 0 {
			wait = fallbackClickTimeout
		}
		loc := e.page.Locator(sel).First()
		err := loc.WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(float64(wait.Milliseconds())),
		})
		if err == nil {
			err = loc.Click()
		}
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if errors.Is(firstErr, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %w", ErrSelectorNotFound, firstErr)
	}
	return classify(firstErr)
}

func (e *PlaywrightEngine) Fill(ctx context.Context, selector, text string, submit bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := e.page.Locator(selector).First()
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	}); err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return fmt.Errorf("%w: %w", ErrSelectorNotFound, err)
		}
		return classify(err)
	}
	if err := loc.Click(); err != nil {
		return classify(err)
	}
	if err := loc.Press("Control+A"); err != nil {
		return classify(err)
	}
	if err := loc.Fill(text); err != nil {
		return classify(err)
	}
	if submit {
		return classify(loc.Press("Enter"))
	}
	return nil
}

func (e *PlaywrightEngine) ScrollBy(ctx context.Context, dy int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.page.Evaluate(`(dy) => window.scrollBy(0, dy)`, dy)
	return classify(err)
}

func (e *PlaywrightEngine) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := e.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Type:     playwright.ScreenshotTypePng,
	})
	return data, classify(err)
}

func (e *PlaywrightEngine) HTML(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if selector == "" {
		html, err := e.page.Content()
		return html, classify(err)
	}
	loc, err := e.locate(selector)
	if err != nil {
		return "", err
	}
	html, err := loc.InnerHTML()
	return html, classify(err)
}

func (e *PlaywrightEngine) Text(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if selector == "" {
		selector = "body"
	}
	loc, err := e.locate(selector)
	if err != nil {
		return "", err
	}
	text, err := loc.InnerText()
	return text, classify(err)
}

func (e *PlaywrightEngine) locate(selector string) (playwright.Locator, error) {
	loc := e.page.Locator(selector).First()
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateAttached,
	}); err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return nil, fmt.Errorf("%w: %w", ErrSelectorNotFound, err)
		}
		return nil, classify(err)
	}
	return loc, nil
}

func (e *PlaywrightEngine) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.page.URL(), nil
}

func (e *PlaywrightEngine) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	title, err := e.page.Title()
	return title, classify(err)
}

// Close shuts down page, context, browser and driver, in that order.
func (e *PlaywrightEngine) Close() error {
	var errs []error
	if e.page != nil {
		errs = append(errs, e.page.Close())
	}
	if e.context != nil {
		errs = append(errs, e.context.Close())
	}
	if e.browser != nil {
		errs = append(errs, e.browser.Close())
	}
	if e.pw != nil {
		errs = append(errs, e.pw.Stop())
	}
	return errors.Join(errs...)
}
