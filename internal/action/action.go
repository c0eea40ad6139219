package action

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

type Kind string

const (
	KindNavigate   Kind = "navigate"
	KindClick      Kind = "click"
	KindType       Kind = "type"
	KindExtract    Kind = "extract"
	KindScreenshot Kind = "screenshot"
	KindWait       Kind = "wait"
	KindScroll     Kind = "scroll"
)

type ExtractKind string

const (
	ExtractText  ExtractKind = "text"
	ExtractHTML  ExtractKind = "html"
	ExtractLinks ExtractKind = "links"
)

type Direction string

const (
	ScrollDown Direction = "down"
	ScrollUp   Direction = "up"
)

// MaxWait bounds a single Wait action.
const MaxWait = 5 * time.Minute

var (
	ErrUnknownType = errors.New("unknown action type")
	ErrInvalid     = errors.New("invalid action")
)

// Action is one browser operation. The set of implementations is closed:
// only the variants declared in this package satisfy it.
type Action interface {
	Kind() Kind
	String() string
	isAction()
}

type Navigate struct{ url string }

type Click struct{ selector string }

type Type struct {
	selector string
	text     string
	submit   bool
}

type Extract struct {
	selector string
	kind     ExtractKind
}

type Screenshot struct{ path string }

type Wait struct{ d time.Duration }

type Scroll struct{ dir Direction }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// NewNavigate accepts bare hosts such as "example.com" and upgrades them to https.
func NewNavigate(raw string) (Navigate, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Navigate{}, invalid("navigate requires a url")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return Navigate{}, invalid("navigate url %q: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Navigate{}, invalid("navigate url %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return Navigate{}, invalid("navigate url %q: missing host", raw)
	}
	return Navigate{url: u.String()}, nil
}

func NewClick(selector string) (Click, error) {
	sel := strings.TrimSpace(selector)
	if sel == "" {
		return Click{}, invalid("click requires a selector")
	}
	return Click{selector: sel}, nil
}

func NewType(selector, text string, submit bool) (Type, error) {
	sel := strings.TrimSpace(selector)
	if sel == "" {
		return Type{}, invalid("type requires a selector")
	}
	if text == "" {
		return Type{}, invalid("type requires text")
	}
	return Type{selector: sel, text: text, submit: submit}, nil
}

// NewExtract with an empty selector targets the whole page. An empty kind means text.
func NewExtract(selector string, kind ExtractKind) (Extract, error) {
	k := ExtractKind(strings.ToLower(strings.TrimSpace(string(kind))))
	if k == "" {
		k = ExtractText
	}
	switch k {
	case ExtractText, ExtractHTML, ExtractLinks:
	default:
		return Extract{}, invalid("extract type %q (want text, html or links)", kind)
	}
	return Extract{selector: strings.TrimSpace(selector), kind: k}, nil
}

// NewScreenshot with an empty path lets the browser controller pick one.
// Paths are relative to the screenshot directory and may not leave it.
func NewScreenshot(path string) (Screenshot, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return Screenshot{}, nil
	}
	if filepath.IsAbs(p) || filepath.VolumeName(p) != "" || strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) {
		return Screenshot{}, invalid("screenshot path %q must be relative to the screenshot directory", path)
	}
	p = filepath.Clean(p)
	if p == ".." || strings.HasPrefix(p, ".."+string(filepath.Separator)) {
		return Screenshot{}, invalid("screenshot path %q escapes the screenshot directory", path)
	}
	if filepath.Ext(p) == "" {
		p += ".png"
	}
	return Screenshot{path: p}, nil
}

// NewWait keeps millisecond precision, the resolution of wait_time.
func NewWait(d time.Duration) (Wait, error) {
	if d < time.Millisecond {
		return Wait{}, invalid("wait duration must be at least 1ms, got %s", d)
	}
	d = d.Round(time.Millisecond)
	if d > MaxWait {
		return Wait{}, invalid("wait duration %s exceeds %s", d, MaxWait)
	}
	return Wait{d: d}, nil
}

func NewScroll(dir Direction) (Scroll, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(string(dir))))
	if d == "" {
		d = ScrollDown
	}
	if d != ScrollDown && d != ScrollUp {
		return Scroll{}, invalid("scroll direction %q (want up or down)", dir)
	}
	return Scroll{dir: d}, nil
}

func (a Navigate) URL() string { return a.url }

func (a Click) Selector() string { return a.selector }

func (a Type) Selector() string { return a.selector }
func (a Type) Text() string { return a.text }
func (a Type) Submit() bool { return a.submit }

func (a Extract) Selector() string { return a.selector }
func (a Extract) ExtractKind() ExtractKind { return a.kind }

func (a Screenshot) Path() string { return a.path }

func (a Wait) Duration() time.Duration { return a.d }

func (a Scroll) Direction() Direction { return a.dir }

func (Navigate) Kind() Kind { return KindNavigate }
func (Click) Kind() Kind { return KindClick }
func (Type) Kind() Kind { return KindType }
func (Extract) Kind() Kind { return KindExtract }
func (Screenshot) Kind() Kind { return KindScreenshot }
func (Wait) Kind() Kind { return KindWait }
func (Scroll) Kind() Kind { return KindScroll }

func (Navigate) isAction() {}
func (Click) isAction() {}
func (Type) isAction() {}
func (Extract) isAction() {}
func (Screenshot) isAction() {}
func (Wait) isAction() {}
func (Scroll) isAction() {}

func (a Navigate) String() string { return "Navigate to " + a.url }

func (a Click) String() string { return "Click element: " + a.selector }

func (a Type) String() string {
	s := fmt.Sprintf("Type %q into %s", a.text, a.selector)
	if a.submit {
		s += " and submit"
	}
	return s
}

func (a Extract) String() string {
	target := a.selector
	if target == "" {
		target = "page"
	}
	return fmt.Sprintf("Extract %s from %s", a.kind, target)
}

func (a Screenshot) String() string {
	if a.path == "" {
		return "Take screenshot"
	}
	return "Take screenshot " + a.path
}

func (a Wait) String() string { return fmt.Sprintf("Wait %dms", a.d.Milliseconds()) }

func (a Scroll) String() string { return "Scroll " + string(a.dir) }

// Target is the selector, url or path an action operates on, for logging.
func Target(a Action) string {
	switch v := a.(type) {
	case Navigate:
		return v.url
	case Click:
		return v.selector
	case Type:
		return v.selector
	case Extract:
		return v.selector
	case Screenshot:
		return v.path
	case Scroll:
		return string(v.dir)
	case Wait:
		return v.d.String()
	}
	return ""
}
