package browser

import (
	"context"
	"strings"
	"time"
)

// Engine is the primitive surface a browser backend provides. An empty
// selector in HTML and Text means the whole page.
type Engine interface {
	Goto(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, text string, submit bool) error
	ScrollBy(ctx context.Context, dy int) error
	Screenshot(ctx context.Context) ([]byte, error)
	HTML(ctx context.Context, selector string) (string, error)
	Text(ctx context.Context, selector string) (string, error)
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	Close() error
}

type EngineOptions struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	Install        bool
}

var launchArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
}

// clickCandidates expands a selector into the fallbacks tried in order when
// it does not resolve. Plain words are also tried as visible text and as a
// button name; a bare XPath gets the xpath= prefix.
func clickCandidates(selector string) []string {
	sel := strings.TrimSpace(selector)
	if strings.HasPrefix(sel, "//") || strings.HasPrefix(sel, "(//") {
		return []string{"xpath=" + sel}
	}
	out := []string{sel}
	if hasEnginePrefix(sel) || !looksLikeText(sel) {
		return out
	}
	quoted := strings.ReplaceAll(sel, `"`, `\"`)
	return append(out,
		`text="`+quoted+`"`,
		"text="+sel,
		`role=button[name="`+quoted+`"]`,
	)
}

func hasEnginePrefix(sel string) bool {
	for _, p := range []string{"text=", "xpath=", "css=", "role=", "id=", "data-testid="} {
		if strings.HasPrefix(sel, p) {
			return true
		}
	}
	return false
}

// looksLikeText is true when the selector has none of the characters that
// make it a CSS selector.
func looksLikeText(sel string) bool {
	return !strings.ContainsAny(sel, "#.[]>:=()*~+")
}
