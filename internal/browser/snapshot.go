package browser

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Link is one anchor found by an extract links action.
type Link struct {
	Text  string `json:"text"`
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`
}

var outlineSelector = strings.Join([]string{
	"h1", "h2", "h3", "a[href]", "button", "input", "textarea", "select", "label",
	"[role=button]", "[role=link]", "[role=searchbox]", "[role=textbox]", "form",
}, ", ")

// attributes worth showing to the model because they make stable selectors
var outlineAttrs = []string{"id", "name", "type", "placeholder", "aria-label", "data-testid", "role", "href"}

const maxOutlineText = 80

// Outline reduces page HTML to one line per heading or interactive element,
// with the attributes a selector can be built from. The result is cut at
// limit bytes with a trailing "...".
func Outline(html string, limit int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, svg, template").Remove()

	var b strings.Builder
	doc.Find(outlineSelector).Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		if typ, _ := s.Attr("type"); tag == "input" && typ == "hidden" {
			return
		}

		b.WriteString("<" + tag)
		for _, name := range outlineAttrs {
			val, ok := s.Attr(name)
			if !ok || val == "" {
				continue
			}
			fmt.Fprintf(&b, " %s=%q", name, clip(val, maxOutlineText))
		}
		b.WriteString(">")
		if tag != "form" {
			if text := collapse(s.Text()); text != "" {
				b.WriteString(" " + clip(text, maxOutlineText))
			}
		}
		b.WriteByte('\n')
	})

	out := b.String()
	if out == "" {
		out = collapse(doc.Find("body").Text())
	}
	return clip(strings.TrimSpace(out), limit)
}

// ExtractLinks lists every anchor with an href, resolved against base.
func ExtractLinks(html, base string) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	links := make([]Link, 0)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "javascript:") {
			return
		}
		title, _ := s.Attr("title")
		links = append(links, Link{
			Text:  collapse(s.Text()),
			Href:  resolveURL(base, href),
			Title: strings.TrimSpace(title),
		})
	})
	return links, nil
}

func resolveURL(base, target string) string {
	u, err := url.Parse(target)
	if err != nil || u.IsAbs() {
		return target
	}
	b, err := url.Parse(base)
	if err != nil || b.Host == "" {
		return target
	}
	return b.ResolveReference(u).String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clip(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
