package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestLogSink(t *testing.T) {
	tests := []struct {
		name  string
		level Level
		want  string
	}{
		{"debug", LevelDebug, "debug"},
		{"info", LevelInfo, "info"},
		{"warn", LevelWarn, "warn"},
		{"error", LevelError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sink := NewLogSink(zerolog.New(&buf).Level(zerolog.DebugLevel))

			sink.Record(context.Background(), Event{
				Level:   tt.level,
				Message: "Bitcoin value",
				Attrs: []Attr{
					String("base", "BTC"),
					Any("cause", errors.New("boom")),
					Any("fields", []string{"data.amount"}),
				},
			})

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("invalid log line %q: %v", buf.String(), err)
			}
			if entry["level"] != tt.want {
				t.Errorf("level = %v, want %s", entry["level"], tt.want)
			}
			if entry["message"] != "Bitcoin value" || entry["base"] != "BTC" || entry["cause"] != "boom" {
				t.Errorf("unexpected entry %v", entry)
			}
		})
	}
}

func TestTraceSink(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	sink, err := NewTraceSink(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewTraceSink() error = %v", err)
	}

	ctx, span := provider.Tracer("test").Start(context.Background(), "extract")
	sink.Record(ctx, Event{Level: LevelInfo, Message: "fetched", Attrs: []Attr{Any("status", 200)}})
	sink.Record(ctx, Event{Level: LevelError, Message: "validation failed", Attrs: []Attr{String("error.kind", "validation")}})
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}

	events := spans[0].Events()
	if len(events) != 2 {
		t.Fatalf("span has %d events, want 2", len(events))
	}
	if events[0].Name != "fetched" || events[1].Name != "validation failed" {
		t.Errorf("unexpected event names %q, %q", events[0].Name, events[1].Name)
	}

	var kind string
	for _, kv := range events[1].Attributes {
		if kv.Key == "error.kind" {
			kind = kv.Value.AsString()
		}
	}
	if kind != "validation" {
		t.Errorf("error.kind attribute = %q", kind)
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("span status = %v, want error", spans[0].Status().Code)
	}
}

func TestTraceSinkWithoutSpan(t *testing.T) {
	sink, err := NewTraceSink(nil)
	if err != nil {
		t.Fatalf("NewTraceSink() error = %v", err)
	}
	// must not panic without an active span or configured provider
	sink.Record(context.Background(), Event{Level: LevelWarn, Message: "no span"})
}

func TestMulti(t *testing.T) {
	var got []string
	record := func(name string) Sink {
		return SinkFunc(func(_ context.Context, e Event) {
			got = append(got, name+":"+e.Message)
		})
	}

	sink := Multi(record("a"), nil, record("b"))
	sink.Record(context.Background(), Event{Message: "hello"})

	if len(got) != 2 || got[0] != "a:hello" || got[1] != "b:hello" {
		t.Errorf("Multi delivered %v", got)
	}
}
