package agent

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Reporter prints the user-facing trace of a task: the generated actions,
// one line per step and a final report.
type Reporter struct {
	out      io.Writer
	failFast bool
	total    int

	ok    *color.Color
	bad   *color.Color
	skip  *color.Color
	title *color.Color
	dim   *color.Color
}

func NewReporter(out io.Writer, failFast bool) *Reporter {
	if out == nil {
		out = io.Discard
	}
	return &Reporter{
		out:      out,
		failFast: failFast,
		ok:       color.New(color.FgGreen),
		bad:      color.New(color.FgRed),
		skip:     color.New(color.FgYellow),
		title:    color.New(color.FgCyan, color.Bold),
		dim:      color.New(color.Faint),
	}
}

func (r *Reporter) Plan(t *Task) {
	r.total = len(t.Actions)

	r.title.Fprintf(r.out, "\n📋 %d action(s) for: %s\n", len(t.Actions), t.Instruction)
	for i, a := range t.Actions {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, a)
	}
	fmt.Fprintln(r.out, strings.Repeat("-", 40))
}

// Step reports one executed action.
func (r *Reporter) Step(res ActionResult) {
	prefix := fmt.Sprintf("[%d/%d]", res.Index+1, r.total)
	if !res.Success {
		r.bad.Fprintf(r.out, "%s ✗ %s: %s\n", prefix, res.Action, res.Error)
		if !r.failFast && res.Index+1 < r.total {
			r.skip.Fprintln(r.out, "    Continuing with remaining actions...")
		}
		return
	}

	r.ok.Fprintf(r.out, "%s ✓ %s", prefix, res.Action)
	r.dim.Fprintf(r.out, " (%s)\n", res.Duration.Round(time.Millisecond))
	switch {
	case res.URL != "":
		fmt.Fprintf(r.out, "    url: %s\n", res.URL)
	case res.ScreenshotPath != "":
		fmt.Fprintf(r.out, "    saved: %s\n", res.ScreenshotPath)
	case res.Extracted != "":
		fmt.Fprintf(r.out, "    extracted:\n%s\n", indent(clipReport(res.Extracted, 2000), "      "))
	}
}

func (r *Reporter) TaskFailed(t *Task) {
	r.bad.Fprintf(r.out, "\n❌ %s\n", humanizeStatus(t))
}

func (r *Reporter) Summary(t *Task) {
	fmt.Fprintln(r.out, "\n===== EXECUTION REPORT =====")
	fmt.Fprintf(r.out, "Task: %s\n", t.Instruction)
	fmt.Fprintf(r.out, "ID: %s\n", t.ID)
	fmt.Fprintf(r.out, "Duration: %s\n", t.Duration().Round(time.Millisecond))

	for _, res := range t.Results {
		if res.Skipped {
			r.skip.Fprintf(r.out, "  - skipped %s (%s)\n", res.Action, res.Error)
		}
	}

	c := r.ok
	switch {
	case t.Status == StatusFailed:
		c = r.bad
	case t.Failed() > 0:
		c = r.skip
	}
	c.Fprintf(r.out, "Result: %s\n", t.Summary)
	fmt.Fprintf(r.out, "Status: %s\n", humanizeStatus(t))
	fmt.Fprintln(r.out, "===== END OF REPORT =====")
}

func clipReport(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "\n... (truncated)"
}

func indent(s, pad string) string {
	return pad + strings.ReplaceAll(s, "\n", "\n"+pad)
}
