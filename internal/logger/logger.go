package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger. Every entry carries the service
// name. format is "console" or "json"; unknown levels fall back to info.
func Setup(service, level, format string) {
	setup(os.Stderr, service, level, format)
}

func setup(out io.Writer, service, level, format string) {
	l := New(out, level, format)
	if service != "" {
		l = l.With().Str("service", service).Logger()
	}
	log.Logger = l
	zerolog.SetGlobalLevel(l.GetLevel())
}

// New builds a logger writing to out
func New(out io.Writer, level, format string) zerolog.Logger {
	var w io.Writer = out
	if !strings.EqualFold(format, "json") {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Component returns a sub-logger of the global logger tagged with name
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
