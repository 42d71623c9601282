package observe

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Alias1177/btcpipe/internal/observe"

// TraceSink adds events to the span in ctx and counts them by level.
// Without a registered provider both are no-ops.
type TraceSink struct {
	counter metric.Int64Counter
}

// NewTraceSink uses mp, or the global meter provider when mp is nil
func NewTraceSink(mp metric.MeterProvider) (*TraceSink, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	counter, err := mp.Meter(instrumentationName).Int64Counter(
		"pipeline.events",
		metric.WithUnit("1"),
		metric.WithDescription("Pipeline events recorded, by level"),
	)
	if err != nil {
		return nil, fmt.Errorf("create events counter: %w", err)
	}

	return &TraceSink{counter: counter}, nil
}

func (s *TraceSink) Record(ctx context.Context, e Event) {
	s.counter.Add(ctx, 1, metric.WithAttributes(attribute.String("level", e.Level.String())))

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(e.Attrs)+1)
	attrs = append(attrs, attribute.String("level", e.Level.String()))
	for _, a := range e.Attrs {
		attrs = append(attrs, toAttribute(a))
	}
	span.AddEvent(e.Message, trace.WithAttributes(attrs...))

	if e.Level == LevelError {
		span.SetStatus(codes.Error, e.Message)
	}
}

func toAttribute(a Attr) attribute.KeyValue {
	switch v := a.Value.(type) {
	case string:
		return attribute.String(a.Key, v)
	case bool:
		return attribute.Bool(a.Key, v)
	case int:
		return attribute.Int(a.Key, v)
	case int64:
		return attribute.Int64(a.Key, v)
	case float64:
		return attribute.Float64(a.Key, v)
	case []string:
		return attribute.StringSlice(a.Key, v)
	case error:
		return attribute.String(a.Key, v.Error())
	case fmt.Stringer:
		return attribute.String(a.Key, v.String())
	default:
		return attribute.String(a.Key, fmt.Sprint(v))
	}
}
