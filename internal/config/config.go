package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/Alias1177/btcpipe/internal/apperr"
)

const (
	SinkLog      = "log"
	SinkPostgres = "postgres"

	DefaultPriceURL = "https://api.coinbase.com/v2/prices/spot?currency=USD"
)

// Config holds all application configuration
type Config struct {
	ServiceName     string   `yaml:"service_name"`
	PriceURL        string   `yaml:"price_url"`
	RequestTimeout  int      `yaml:"request_timeout"` // seconds
	RequestsPerSec  int      `yaml:"requests_per_sec"`
	MaxRetryTimeout int      `yaml:"max_retry_timeout"` // seconds
	Sink            string   `yaml:"sink"`
	ListAfterInsert bool     `yaml:"list_after_insert"`
	LogLevel        string   `yaml:"log_level"`
	LogFormat       string   `yaml:"log_format"`
	Database        DBConfig `yaml:"database"`
	Telegram        Telegram `yaml:"telegram"`
}

// DBConfig holds the PostgreSQL target. URL wins over the discrete fields.
type DBConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// Telegram holds the optional price announcement target
type Telegram struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() Config {
	return Config{
		ServiceName:     "btcpipe",
		PriceURL:        DefaultPriceURL,
		RequestTimeout:  10,
		RequestsPerSec:  5,
		MaxRetryTimeout: 15,
		Sink:            SinkLog,
		ListAfterInsert: true,
		LogLevel:        "info",
		LogFormat:       "console",
		Database: DBConfig{
			Port:    "5432",
			SSLMode: "prefer",
		},
	}
}

// Load initializes configuration from an optional YAML file
// (PIPELINE_CONFIG) and environment variables, which take precedence.
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := Defaults()

	if path := os.Getenv("PIPELINE_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, apperr.Config("load config file", err)
		}
	}

	cfg.ServiceName = getEnvWithDefault("SERVICE_NAME", cfg.ServiceName)
	cfg.PriceURL = getEnvWithDefault("PRICE_URL", cfg.PriceURL)
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", cfg.RequestsPerSec)
	cfg.MaxRetryTimeout = getEnvIntWithDefault("MAX_RETRY_TIMEOUT", cfg.MaxRetryTimeout)
	cfg.Sink = strings.ToLower(getEnvWithDefault("PIPELINE_SINK", cfg.Sink))
	cfg.ListAfterInsert = getEnvBoolWithDefault("LIST_AFTER_INSERT", cfg.ListAfterInsert)
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvWithDefault("LOG_FORMAT", cfg.LogFormat)

	cfg.Database.URL = getEnvWithDefault("DATABASE_URL", cfg.Database.URL)
	cfg.Database.Host = getEnvWithDefault("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvWithDefault("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnvWithDefault("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnvWithDefault("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnvWithDefault("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = getEnvWithDefault("DB_SSLMODE", cfg.Database.SSLMode)

	cfg.Telegram.BotToken = getEnvWithDefault("TELEGRAM_BOT_TOKEN", cfg.Telegram.BotToken)
	cfg.Telegram.ChatID = getEnvInt64WithDefault("TELEGRAM_CHAT_ID", cfg.Telegram.ChatID)

	return &cfg, nil
}

// loadFile reads a YAML config file, expanding ${VAR} references
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	return nil
}

// Validate rejects configurations the pipeline cannot start with
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.PriceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("price url %q is not an absolute http(s) url", c.PriceURL))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %d", c.RequestTimeout))
	}
	if c.RequestsPerSec <= 0 {
		errs = append(errs, fmt.Errorf("requests per second must be positive, got %d", c.RequestsPerSec))
	}
	if c.MaxRetryTimeout < 0 {
		errs = append(errs, fmt.Errorf("max retry timeout must not be negative, got %d", c.MaxRetryTimeout))
	}

	switch c.Sink {
	case SinkLog:
	case SinkPostgres:
		if !c.Database.Configured() {
			errs = append(errs, errors.New("postgres sink needs DATABASE_URL or DB_HOST/DB_USER/DB_NAME"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown sink %q (want %q or %q)", c.Sink, SinkLog, SinkPostgres))
	}

	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == 0) {
		errs = append(errs, errors.New("telegram needs both TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID"))
	}

	if len(errs) > 0 {
		return apperr.Config("validate config", errors.Join(errs...))
	}
	return nil
}

// Timeout returns the per-request HTTP timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// RetryTimeout returns the total time allowed for retries
func (c *Config) RetryTimeout() time.Duration {
	return time.Duration(c.MaxRetryTimeout) * time.Second
}

// TelegramEnabled reports whether price announcements are configured
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != 0
}

// Configured reports whether a database target is set
func (d DBConfig) Configured() bool {
	return d.URL != "" || (d.Host != "" && d.User != "" && d.Name != "")
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
