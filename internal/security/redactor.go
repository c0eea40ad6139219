package security

import (
	"sort"
	"strings"
)

const mask = "********"

type Redactor struct {
	secrets []string
}

// NewRedactor keeps the non-empty secrets, longest first, so that a secret
// containing another one is masked as a whole.
func NewRedactor(secrets ...string) *Redactor {
	kept := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s != "" {
			kept = append(kept, s)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		return len(kept[i]) > len(kept[j])
	})
	return &Redactor{secrets: kept}
}

func (r *Redactor) Redact(s string) string {
	if r == nil || len(r.secrets) == 0 {
		return s
	}
	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, mask)
	}
	return s
}

// RedactValue walks decoded JSON values and masks every string it finds.
func (r *Redactor) RedactValue(v any) any {
	if r == nil || len(r.secrets) == 0 {
		return v
	}
	switch val := v.(type) {
	case string:
		return r.Redact(val)
	case map[string]any:
		for k, vv := range val {
			val[k] = r.RedactValue(vv)
		}
		return val
	case []any:
		for i, vv := range val {
			val[i] = r.RedactValue(vv)
		}
		return val
	default:
		return v
	}
}
