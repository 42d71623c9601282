package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/Alias1177/btcpipe/internal/apperr"
	"github.com/Alias1177/btcpipe/internal/model"
	"github.com/Alias1177/btcpipe/internal/observe"
)

// StoreSink inserts each envelope as one row
type StoreSink struct {
	store Store
	obs   observe.Sink

	// ListAfterInsert reads the whole table back and prints it to Out
	ListAfterInsert bool
	Out             io.Writer
}

func NewStoreSink(store Store, obs observe.Sink) *StoreSink {
	if obs == nil {
		obs = observe.Nop
	}
	return &StoreSink{store: store, obs: obs}
}

// Prepare ensures the table exists
func (s *StoreSink) Prepare(ctx context.Context) error {
	return s.store.EnsureSchema(ctx)
}

func (s *StoreSink) Deliver(ctx context.Context, env model.Envelope) error {
	row, err := s.store.Insert(ctx, env.Data)
	if err != nil {
		return apperr.Persistence("store price", err)
	}

	s.obs.Record(ctx, observe.Event{
		Level:   observe.LevelInfo,
		Message: "price stored",
		Attrs: []observe.Attr{
			observe.Any("row.id", row.ID),
			observe.String("amount", row.Amount),
		},
	})

	if !s.ListAfterInsert {
		return nil
	}

	// The row is committed; a failed listing must not fail the delivery
	rows, err := s.store.ListAll(ctx)
	if err != nil {
		s.obs.Record(ctx, observe.Event{
			Level:   observe.LevelWarn,
			Message: "read back failed",
			Attrs: []observe.Attr{
				observe.Any("row.id", row.ID),
				observe.Any("error", apperr.Persistence("read back prices", err)),
			},
		})
		return nil
	}
	if s.Out != nil {
		fmt.Fprintln(s.Out, "Stored prices:")
		for _, r := range rows {
			fmt.Fprintln(s.Out, r.String())
		}
	}
	return nil
}
