package action

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultWait is used when a wait action omits wait_time.
const DefaultWait = time.Second

// Raw is the wire form of an action, shared by model responses and plan files.
type Raw struct {
	Type            string `json:"type" yaml:"type"`
	URL             string `json:"url,omitempty" yaml:"url,omitempty"`
	Selector        string `json:"selector,omitempty" yaml:"selector,omitempty"`
	Text            string `json:"text,omitempty" yaml:"text,omitempty"`
	Submit          bool   `json:"submit,omitempty" yaml:"submit,omitempty"`
	WaitTime        int    `json:"wait_time,omitempty" yaml:"wait_time,omitempty"`
	ScrollDirection string `json:"scroll_direction,omitempty" yaml:"scroll_direction,omitempty"`
	ExtractType     string `json:"extract_type,omitempty" yaml:"extract_type,omitempty"`
	Path            string `json:"path,omitempty" yaml:"path,omitempty"`
}

func FromRaw(r Raw) (Action, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(r.Type))) {
	case KindNavigate:
		return NewNavigate(r.URL)
	case KindClick:
		return NewClick(r.Selector)
	case KindType:
		return NewType(r.Selector, r.Text, r.Submit)
	case KindExtract:
		return NewExtract(r.Selector, ExtractKind(r.ExtractType))
	case KindScreenshot:
		return NewScreenshot(r.Path)
	case KindWait:
		if r.WaitTime < 0 {
			return nil, invalid("wait_time must not be negative, got %d", r.WaitTime)
		}
		d := DefaultWait
		if r.WaitTime > 0 {
			d = time.Duration(r.WaitTime) * time.Millisecond
		}
		return NewWait(d)
	case KindScroll:
		return NewScroll(Direction(r.ScrollDirection))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, r.Type)
	}
}

func ToRaw(a Action) Raw {
	r := Raw{Type: string(a.Kind())}
	switch v := a.(type) {
	case Navigate:
		r.URL = v.url
	case Click:
		r.Selector = v.selector
	case Type:
		r.Selector, r.Text, r.Submit = v.selector, v.text, v.submit
	case Extract:
		r.Selector, r.ExtractType = v.selector, string(v.kind)
	case Screenshot:
		r.Path = v.path
	case Wait:
		r.WaitTime = int(v.d.Milliseconds())
	case Scroll:
		r.ScrollDirection = string(v.dir)
	}
	return r
}

// DecodeAll converts every entry or fails on the first invalid one.
func DecodeAll(raws []Raw) ([]Action, error) {
	out := make([]Action, 0, len(raws))
	for i, r := range raws {
		a, err := FromRaw(r)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i+1, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func EncodeAll(actions []Action) []Raw {
	out := make([]Raw, 0, len(actions))
	for _, a := range actions {
		out = append(out, ToRaw(a))
	}
	return out
}

// ParseList decodes a model response. Both a bare JSON array and an object
// with an "actions" field are accepted, optionally wrapped in a code fence.
func ParseList(data []byte) ([]Action, error) {
	body := bytes.TrimSpace(stripFence(data))
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty action list", ErrInvalid)
	}

	var raws []Raw
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &raws); err != nil {
			return nil, fmt.Errorf("decoding action array: %w", err)
		}
	case '{':
		var envelope struct {
			Actions *[]Raw `json:"actions"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("decoding action object: %w", err)
		}
		if envelope.Actions == nil {
			return nil, fmt.Errorf("%w: response has no \"actions\" field", ErrInvalid)
		}
		raws = *envelope.Actions
	default:
		return nil, fmt.Errorf("%w: response is not a JSON array or object", ErrInvalid)
	}
	return DecodeAll(raws)
}

func stripFence(data []byte) []byte {
	s := strings.TrimSpace(string(data))
	if !strings.HasPrefix(s, "```") {
		return data
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(s)
}
