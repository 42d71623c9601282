// Package observe records pipeline events. A Sink accepts a message with
// optional key/value attributes; LogSink writes them through zerolog and
// TraceSink attaches them to the active OpenTelemetry span.
package observe

import (
	"context"
)

// Level is the severity of an event
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Attr is one key/value annotation
type Attr struct {
	Key   string
	Value any
}

// String builds an Attr
func String(key, value string) Attr { return Attr{Key: key, Value: value} }

// Any builds an Attr
func Any(key string, value any) Attr { return Attr{Key: key, Value: value} }

// Event is a single observability record
type Event struct {
	Level   Level
	Message string
	Attrs   []Attr
}

// Sink accepts events
type Sink interface {
	Record(ctx context.Context, e Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, e Event)

func (f SinkFunc) Record(ctx context.Context, e Event) { f(ctx, e) }

type multi []Sink

// Multi fans every event out to sinks in order. Nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m multi) Record(ctx context.Context, e Event) {
	for _, s := range m {
		s.Record(ctx, e)
	}
}

// Nop discards events
var Nop Sink = SinkFunc(func(context.Context, Event) {})
