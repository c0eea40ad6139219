package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nbenliogludev/deskgpt/internal/security"
	"github.com/rs/zerolog"
)

// Event is one decoded zerolog line.
type Event struct {
	Level     zerolog.Level
	Message   string
	Error     string
	Fields    map[string]any
	Timestamp time.Time
}

type Sink interface {
	Write(event *Event) error
	io.Closer
}

// Router is the io.Writer behind the zerolog logger. It decodes each JSON
// line, masks secrets and fans the event out to every sink.
type Router struct {
	sinks    []Sink
	redactor *security.Redactor
}

func NewRouter(redactor *security.Redactor, sinks ...Sink) *Router {
	return &Router{sinks: sinks, redactor: redactor}
}

func (r *Router) AddSink(sink Sink) {
	r.sinks = append(r.sinks, sink)
}

func (r *Router) Write(p []byte) (int, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		fmt.Fprintf(os.Stderr, "log router: undecodable line: %v: %s\n", err, p)
		return len(p), nil
	}

	evt := decode(raw)
	if r.redactor != nil {
		evt.Message = r.redactor.Redact(evt.Message)
		evt.Error = r.redactor.Redact(evt.Error)
		for k, v := range evt.Fields {
			evt.Fields[k] = r.redactor.RedactValue(v)
		}
	}

	for _, sink := range r.sinks {
		if err := sink.Write(evt); err != nil {
			fmt.Fprintf(os.Stderr, "log router: sink write failed: %v\n", err)
		}
	}
	return len(p), nil
}

// Close closes every sink and returns the first error.
func (r *Router) Close() error {
	var firstErr error
	for _, sink := range r.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func decode(raw map[string]any) *Event {
	evt := &Event{
		Level:  zerolog.InfoLevel,
		Fields: make(map[string]any, len(raw)),
	}
	if s, ok := raw[zerolog.LevelFieldName].(string); ok {
		if lvl, err := zerolog.ParseLevel(s); err == nil {
			evt.Level = lvl
		}
	}
	if s, ok := raw[zerolog.MessageFieldName].(string); ok {
		evt.Message = s
	}
	if s, ok := raw[zerolog.ErrorFieldName].(string); ok {
		evt.Error = s
	}
	evt.Timestamp = time.Now()
	if s, ok := raw[zerolog.TimestampFieldName].(string); ok {
		if ts, err := time.Parse(zerolog.TimeFieldFormat, s); err == nil {
			evt.Timestamp = ts
		}
	}

	for k, v := range raw {
		switch k {
		case zerolog.LevelFieldName, zerolog.MessageFieldName, zerolog.ErrorFieldName, zerolog.TimestampFieldName:
			continue
		}
		evt.Fields[k] = v
	}
	return evt
}
