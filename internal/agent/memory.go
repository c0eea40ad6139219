package agent

import (
	"fmt"
	"strings"

	"github.com/nbenliogludev/deskgpt/internal/action"
)

// Memory keeps a short history of finished tasks for follow-up
// instructions, and notes actions that keep failing across tasks.
type Memory struct {
	lines    []string
	maxLines int

	failures      map[string]int
	loopThreshold int
}

func NewMemory(maxLines, loopThreshold int) *Memory {
	if maxLines <= 0 {
		maxLines = 10
	}
	if loopThreshold <= 1 {
		loopThreshold = 2
	}
	return &Memory{
		maxLines:      maxLines,
		loopThreshold: loopThreshold,
		failures:      make(map[string]int),
	}
}

func failureKey(a action.Action) string {
	return fmt.Sprintf("%s|%s", a.Kind(), action.Target(a))
}

// Record adds one line per task outcome and one per failed action.
func (m *Memory) Record(task *Task) {
	m.add(fmt.Sprintf("task %q: %s", task.Instruction, task.Summary))

	for _, r := range task.Results {
		switch {
		case r.Success:
			if r.URL != "" {
				m.add(fmt.Sprintf("  %s -> %s", r.Action, r.URL))
			}
		case r.Skipped:
			continue
		default:
			m.add(fmt.Sprintf("  FAILED %s: %s", r.Action, r.Error))

			key := failureKey(r.Action)
			m.failures[key]++
			if n := m.failures[key]; n >= m.loopThreshold {
				m.add(fmt.Sprintf(
					"SYSTEM NOTE: %q has failed %d times. Do NOT repeat it; use a different selector or approach.",
					r.Action.String(), n,
				))
			}
		}
	}
}

// RecordError notes a task that failed before any action ran.
func (m *Memory) RecordError(instruction string, err error) {
	m.add(fmt.Sprintf("task %q: failed: %v", instruction, err))
}

func (m *Memory) add(line string) {
	line = strings.TrimRight(line, " \n")
	if line == "" {
		return
	}
	m.lines = append(m.lines, line)
	if len(m.lines) > m.maxLines {
		m.lines = m.lines[len(m.lines)-m.maxLines:]
	}
}

// HistoryLines is the bounded view sent to the model.
func (m *Memory) HistoryLines() []string {
	if len(m.lines) == 0 {
		return nil
	}
	out := make([]string, len(m.lines))
	copy(out, m.lines)
	return out
}
