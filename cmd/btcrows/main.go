package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/btcpipe/internal/config"
	"github.com/Alias1177/btcpipe/internal/database"
	"github.com/Alias1177/btcpipe/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Setup(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)

	if !cfg.Database.Configured() {
		log.Fatal().Msg("DATABASE_URL or DB_HOST/DB_USER/DB_NAME must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize database
	params := database.ConnectionParams{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	}
	db, err := database.New(ctx, params)
	if err != nil {
		log.Fatal().Err(err).Stringer("db", params).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure price table")
	}

	rows, err := db.ListAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list stored prices")
	}

	log.Info().Int("rows", len(rows)).Msg("Read stored prices")
	for _, r := range rows {
		fmt.Println(r.String())
	}
}
