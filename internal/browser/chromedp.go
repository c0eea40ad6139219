package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// clickScript clicks the nearest clickable ancestor, so a selector that hits
// the text span inside a button still presses the button.
const clickScript = `function() {
	if (this.scrollIntoViewIfNeeded) {
		this.scrollIntoViewIfNeeded();
	} else if (this.scrollIntoView) {
		this.scrollIntoView({ block: "center", inline: "center" });
	}
	const clickable = (el) => {
		const tag = (el.tagName || "").toLowerCase();
		const role = ((el.getAttribute && el.getAttribute("role")) || "").toLowerCase();
		return tag === "button" || tag === "a" || tag === "label" || tag === "input" ||
			role === "button" || role === "link" || role === "checkbox" || role === "radio";
	};
	let el = this;
	for (let i = 0; i < 5 && el; i++) {
		if (clickable(el)) {
			el.click();
			return;
		}
		el = el.parentElement;
	}
	this.click();
}`

// ChromedpEngine drives Chrome over the DevTools protocol.
type ChromedpEngine struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration
}

func NewChromedpEngine(opts EngineOptions) (*ChromedpEngine, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.NoSandbox,
		chromedp.WindowSize(opts.ViewportWidth, opts.ViewportHeight),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// The first Run starts the browser and binds it to ctx, not to a
	// per-call timeout context.
	if err := chromedp.Run(ctx, chromedp.EmulateViewport(int64(opts.ViewportWidth), int64(opts.ViewportHeight))); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &ChromedpEngine{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		timeout:     opts.Timeout,
	}, nil
}

// run executes actions under the engine timeout and the caller's ctx.
func (e *ChromedpEngine) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tctx, cancel := context.WithTimeout(e.ctx, e.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(tctx, actions...)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case e.ctx.Err() != nil:
		return fmt.Errorf("%w: %w", ErrPageClosed, err)
	default:
		return err
	}
}

// query turns playwright-style selector prefixes into a chromedp query.
func query(selector string) (string, chromedp.QueryOption) {
	sel := strings.TrimSpace(selector)
	switch {
	case strings.HasPrefix(sel, "xpath="):
		return strings.TrimPrefix(sel, "xpath="), chromedp.BySearch
	case strings.HasPrefix(sel, "//"), strings.HasPrefix(sel, "(//"):
		return sel, chromedp.BySearch
	case strings.HasPrefix(sel, "text="):
		text := strings.Trim(strings.TrimPrefix(sel, "text="), `"'`)
		return fmt.Sprintf(`//*[normalize-space(text())=%s]`, xpathLiteral(text)), chromedp.BySearch
	case strings.HasPrefix(sel, "css="):
		return strings.TrimPrefix(sel, "css="), chromedp.ByQuery
	default:
		return sel, chromedp.ByQuery
	}
}

func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	return `'` + s + `'`
}

// lookup waits for the first node matching selector. A timeout while
// waiting is reported as ErrSelectorNotFound.
func (e *ChromedpEngine) lookup(ctx context.Context, selector string) (*cdp.Node, error) {
	sel, by := query(selector)
	var nodes []*cdp.Node
	err := e.run(ctx, chromedp.Nodes(sel, &nodes, by, chromedp.NodeReady))
	if errors.Is(err, ErrTimeout) || (err == nil && len(nodes) == 0) {
		return nil, fmt.Errorf("%w: %s", ErrSelectorNotFound, selector)
	}
	if err != nil {
		return nil, err
	}
	return nodes[0], nil
}

func (e *ChromedpEngine) Goto(ctx context.Context, url string) error {
	return e.run(ctx, chromedp.Navigate(url))
}

func (e *ChromedpEngine) Click(ctx context.Context, selector string) error {
	var node *cdp.Node
	var err error
	for _, candidate := range chromedpClickCandidates(selector) {
		if node, err = e.lookup(ctx, candidate); err == nil {
			break
		}
	}
	if err != nil {
		return err
	}

	return e.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(node.BackendNodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolve node failed: %w", err)
		}
		if obj == nil || obj.ObjectID == "" {
			return fmt.Errorf("object id is empty (node might be detached)")
		}
		_, exc, err := runtime.CallFunctionOn(clickScript).WithObjectID(obj.ObjectID).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		return nil
	}))
}

// chromedpClickCandidates keeps only the fallbacks chromedp can express.
func chromedpClickCandidates(selector string) []string {
	var out []string
	for _, c := range clickCandidates(selector) {
		if !strings.HasPrefix(c, "role=") {
			out = append(out, c)
		}
	}
	return out
}

func (e *ChromedpEngine) Fill(ctx context.Context, selector, text string, submit bool) error {
	if _, err := e.lookup(ctx, selector); err != nil {
		return err
	}
	sel, by := query(selector)
	if err := e.run(ctx,
		chromedp.Click(sel, by, chromedp.NodeVisible),
		chromedp.Clear(sel, by),
		chromedp.SendKeys(sel, text, by),
	); err != nil {
		return err
	}
	if submit {
		return e.run(ctx, chromedp.SendKeys(sel, "\r", by))
	}
	return nil
}

func (e *ChromedpEngine) ScrollBy(ctx context.Context, dy int) error {
	return e.run(ctx, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", dy), nil))
}

func (e *ChromedpEngine) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := e.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (e *ChromedpEngine) HTML(ctx context.Context, selector string) (string, error) {
	var html string
	if selector == "" {
		err := e.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
		return html, err
	}
	if _, err := e.lookup(ctx, selector); err != nil {
		return "", err
	}
	sel, by := query(selector)
	err := e.run(ctx, chromedp.InnerHTML(sel, &html, by))
	return html, err
}

func (e *ChromedpEngine) Text(ctx context.Context, selector string) (string, error) {
	var text string
	if selector == "" {
		err := e.run(ctx, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text))
		return text, err
	}
	if _, err := e.lookup(ctx, selector); err != nil {
		return "", err
	}
	sel, by := query(selector)
	err := e.run(ctx, chromedp.Text(sel, &text, by))
	return text, err
}

func (e *ChromedpEngine) URL(ctx context.Context) (string, error) {
	var u string
	err := e.run(ctx, chromedp.Location(&u))
	return u, err
}

func (e *ChromedpEngine) Title(ctx context.Context) (string, error) {
	var title string
	err := e.run(ctx, chromedp.Title(&title))
	return title, err
}

func (e *ChromedpEngine) Close() error {
	err := chromedp.Cancel(e.ctx)
	e.cancel()
	e.allocCancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
