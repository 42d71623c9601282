package observe

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// LogSink writes events through a zerolog logger
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(_ context.Context, e Event) {
	var ev *zerolog.Event
	switch e.Level {
	case LevelDebug:
		ev = s.logger.Debug()
	case LevelWarn:
		ev = s.logger.Warn()
	case LevelError:
		ev = s.logger.Error()
	default:
		ev = s.logger.Info()
	}

	for _, a := range e.Attrs {
		switch v := a.Value.(type) {
		case error:
			ev = ev.AnErr(a.Key, v)
		case fmt.Stringer:
			ev = ev.Stringer(a.Key, v)
		default:
			ev = ev.Interface(a.Key, v)
		}
	}
	ev.Msg(e.Message)
}
