package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/btcpipe/internal/api/coinbase"
	"github.com/Alias1177/btcpipe/internal/config"
	"github.com/Alias1177/btcpipe/internal/database"
	"github.com/Alias1177/btcpipe/internal/logger"
	"github.com/Alias1177/btcpipe/internal/model"
	"github.com/Alias1177/btcpipe/internal/notify/telegram"
	"github.com/Alias1177/btcpipe/internal/observe"
	"github.com/Alias1177/btcpipe/internal/pipeline"
	"github.com/Alias1177/btcpipe/internal/sink"
)

func main() {
	// 1) Config and logging
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Setup(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2) Observability
	traceSink, err := observe.NewTraceSink(nil)
	if err != nil {
		log.Warn().Err(err).Msg("Trace sink disabled")
	}
	var obs observe.Sink = observe.NewLogSink(logger.Component("pipeline"))
	if traceSink != nil {
		obs = observe.Multi(obs, traceSink)
	}

	// 3) Fetcher
	client := coinbase.NewClient(coinbase.ClientOptions{
		URL:             cfg.PriceURL,
		RequestTimeout:  cfg.Timeout(),
		RequestsPerSec:  cfg.RequestsPerSec,
		MaxRetries:      3,
		MaxRetryTimeout: cfg.RetryTimeout(),
	})

	// 4) Sinks
	var store, notify sink.Sink

	if cfg.Sink == config.SinkPostgres {
		db, err := database.New(ctx, database.ConnectionParams{
			URL:      cfg.Database.URL,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.Name,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize database")
			writeResult(os.Stdout, nil)
			return
		}
		defer db.Close()

		storeSink := sink.NewStoreSink(db, obs)
		storeSink.ListAfterInsert = cfg.ListAfterInsert
		storeSink.Out = os.Stdout
		if err := storeSink.Prepare(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to prepare price table")
			writeResult(os.Stdout, nil)
			return
		}
		store = storeSink
	}

	if cfg.TelegramEnabled() {
		notifier, err := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			log.Warn().Err(err).Msg("Telegram notifications disabled")
		} else {
			notify = sink.BestEffort{Name: "telegram", Sink: notifier, Obs: obs}
		}
	}
	sinks := deliveryChain(store, os.Stdout, notify)

	// 5) One run
	p := pipeline.New(client, sinks, obs, pipeline.WithEndpoint(client.URL()))
	res := p.Run(ctx)
	if !res.OK() {
		log.Debug().Str("run_id", res.RunID.String()).Stringer("kind", res.Kind()).Msg("Run finished without a result")
	}
	writeResult(os.Stdout, res.Envelope)
}

// deliveryChain orders the sinks so the summary line and the announcement
// only happen once the store (when present) has accepted the record
func deliveryChain(store sink.Sink, summary io.Writer, notify sink.Sink) sink.Chain {
	return sink.Chain{store, sink.NewLogSink(nil, summary), notify}
}

// writeResult writes the validated envelope as JSON, or null
func writeResult(w io.Writer, env *model.Envelope) {
	if env == nil {
		fmt.Fprintln(w, "null")
		return
	}
	out, err := json.Marshal(env.Map())
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode result")
		fmt.Fprintln(w, "null")
		return
	}
	fmt.Fprintln(w, string(out))
}
