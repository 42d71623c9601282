// Package sink delivers validated price envelopes: to the log, to a
// relational store, or to several destinations in order.
package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/Alias1177/btcpipe/internal/model"
	"github.com/Alias1177/btcpipe/internal/observe"
)

// Sink accepts one validated envelope per call
type Sink interface {
	Deliver(ctx context.Context, env model.Envelope) error
}

// Store is the persistence capability a StoreSink needs
type Store interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, rec model.PriceRecord) (model.StoredRow, error)
	ListAll(ctx context.Context) ([]model.StoredRow, error)
}

// LogSink reports the envelope without storing it
type LogSink struct {
	obs observe.Sink
	out io.Writer
}

// NewLogSink writes a one-line summary to out when out is not nil
func NewLogSink(obs observe.Sink, out io.Writer) *LogSink {
	if obs == nil {
		obs = observe.Nop
	}
	return &LogSink{obs: obs, out: out}
}

func (s *LogSink) Deliver(ctx context.Context, env model.Envelope) error {
	s.obs.Record(ctx, observe.Event{
		Level:   observe.LevelInfo,
		Message: "price validated",
		Attrs: []observe.Attr{
			observe.String("amount", env.Data.Amount),
			observe.String("base", env.Data.Base),
			observe.String("currency", env.Data.Currency),
		},
	})

	if s.out != nil {
		if _, err := fmt.Fprintf(s.out, "%s price: %s %s\n", env.Data.Base, env.Data.Amount, env.Data.Currency); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return nil
}

// Chain delivers to each sink in order and stops at the first error
type Chain []Sink

func (c Chain) Deliver(ctx context.Context, env model.Envelope) error {
	for _, s := range c {
		if s == nil {
			continue
		}
		if err := s.Deliver(ctx, env); err != nil {
			return err
		}
	}
	return nil
}

// BestEffort wraps a sink whose failures are reported but never fail
// the delivery
type BestEffort struct {
	Name string
	Sink Sink
	Obs  observe.Sink
}

func (b BestEffort) Deliver(ctx context.Context, env model.Envelope) error {
	if err := b.Sink.Deliver(ctx, env); err != nil && b.Obs != nil {
		b.Obs.Record(ctx, observe.Event{
			Level:   observe.LevelWarn,
			Message: "optional sink failed",
			Attrs: []observe.Attr{
				observe.String("sink", b.Name),
				observe.Any("error", err),
			},
		})
	}
	return nil
}
