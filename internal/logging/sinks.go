package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var levelColors = map[zerolog.Level]*color.Color{
	zerolog.DebugLevel: color.New(color.FgCyan),
	zerolog.InfoLevel:  color.New(color.FgGreen),
	zerolog.WarnLevel:  color.New(color.FgYellow),
	zerolog.ErrorLevel: color.New(color.FgRed),
	zerolog.FatalLevel: color.New(color.FgRed, color.Bold),
}

// scopeKeys are shown as the line label instead of as key=value pairs, first match wins.
var scopeKeys = []string{"task_id", "component"}

type ConsoleSink struct {
	out io.Writer
}

func NewConsoleSink(out io.Writer) *ConsoleSink {
	return &ConsoleSink{out: out}
}

func (c *ConsoleSink) Write(event *Event) error {
	levelFmt := color.New(color.FgWhite).SprintFunc()
	if lc, ok := levelColors[event.Level]; ok {
		levelFmt = lc.SprintFunc()
	}

	label := "deskgpt"
	skip := ""
	for _, key := range scopeKeys {
		if s, ok := event.Fields[key].(string); ok && s != "" {
			label, skip = s, key
			break
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s %s] %s: %s",
		levelFmt(strings.ToUpper(event.Level.String())),
		event.Timestamp.Format(time.TimeOnly),
		color.CyanString(label),
		event.Message,
	)

	keys := make([]string, 0, len(event.Fields))
	for k := range event.Fields {
		if k != skip {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", color.BlueString(k), event.Fields[k])
	}
	if event.Error != "" {
		fmt.Fprintf(&b, " %s=%s", color.RedString("error"), event.Error)
	}
	b.WriteByte('\n')

	_, err := io.WriteString(c.out, b.String())
	return err
}

func (c *ConsoleSink) Close() error {
	return nil
}

// FileSink writes JSON lines to a size-rotated file.
type FileSink struct {
	w io.WriteCloser
}

func NewFileSink(path string) *FileSink {
	return &FileSink{w: &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}}
}

func (f *FileSink) Write(event *Event) error {
	entry := make(map[string]any, len(event.Fields)+4)
	for k, v := range event.Fields {
		entry[k] = v
	}
	entry[zerolog.LevelFieldName] = event.Level.String()
	entry[zerolog.TimestampFieldName] = event.Timestamp.Format(time.RFC3339Nano)
	entry[zerolog.MessageFieldName] = event.Message
	if event.Error != "" {
		entry[zerolog.ErrorFieldName] = event.Error
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling log event for file sink: %w", err)
	}
	if _, err := f.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing to file sink: %w", err)
	}
	return nil
}

func (f *FileSink) Close() error {
	return f.w.Close()
}
