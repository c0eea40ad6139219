package llm

import (
	"strings"
	"unicode/utf8"
)

// MaxPageContext bounds the page outline sent with each request.
const MaxPageContext = 4000

const systemPrompt = `
You are a browser automation planner. Convert the user's instruction into a
sequence of browser actions.

RESPONSE FORMAT:
Respond with a SINGLE JSON object:
{
  "actions": [
    {"type": "navigate", "url": "https://example.com"},
    {"type": "click", "selector": "#login"},
    {"type": "type", "selector": "input[name=q]", "text": "golang", "submit": true},
    {"type": "extract", "selector": "h1", "extract_type": "text"},
    {"type": "scroll", "scroll_direction": "down"},
    {"type": "wait", "wait_time": 2000},
    {"type": "screenshot"}
  ]
}

ACTION TYPES:
- navigate: "url" is required. Always use a full https:// URL.
- click: "selector" is required.
- type: "selector" and "text" are required. Set "submit": true to press Enter after typing (search boxes).
- extract: "extract_type" is one of text, html, links. Omit "selector" for the whole page.
- screenshot: "path" is optional. Omit it to get a generated name.
- wait: "wait_time" in milliseconds.
- scroll: "scroll_direction" is up or down.

SELECTOR RULES:
1. Prefer stable attributes from the page outline: id, name, data-testid, aria-label.
2. When only visible text is known, use text="Exact text" or text=Partial text.
3. XPath is allowed with the xpath= prefix.
4. Never invent ids that are not in the page outline.

GUIDELINES:
- Start with navigate when the instruction names a site that is not already open.
- If a cookie banner blocks the page, click "Accept" first.
- Always end the plan with a screenshot action.
`

// userMessage renders the request as the user turn of the conversation.
func userMessage(req Request) string {
	var sb strings.Builder
	sb.WriteString("INSTRUCTION:\n" + req.Instruction + "\n")

	if req.CurrentURL != "" {
		sb.WriteString("\nCURRENT URL: " + req.CurrentURL + "\n")
	}
	if req.PageTitle != "" {
		sb.WriteString("PAGE TITLE: " + req.PageTitle + "\n")
	}
	if len(req.History) > 0 {
		sb.WriteString("\nHISTORY:\n")
		for _, line := range req.History {
			sb.WriteString("- " + line + "\n")
		}
	}
	if req.PageOutline != "" {
		sb.WriteString("\nPAGE OUTLINE:\n" + truncate(req.PageOutline, MaxPageContext) + "\n")
	}
	return sb.String()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
