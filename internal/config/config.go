package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	// Database
	SQLiteDBPath string

	// AMQP (empty URL disables events)
	AMQPURL      string
	AMQPExchange string

	// Exchange rate
	ExchangeRateURL      string
	ExchangeRateTimeout  time.Duration
	ExchangeRateFallback decimal.Decimal
	CurrencyBackfillUSD  bool

	// Cache
	CacheEnabled         bool
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	// Recurring
	MaterializeConcurrency int
	RolloverInterval       time.Duration

	// Observability
	MetricsAddr string
	LogLevel    string
	LogFormat   string
}

func Load() *Config {
	cfg := &Config{
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budget.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budget"),

		ExchangeRateURL:      getEnv("EXCHANGE_RATE_URL", "https://api.exchangerate-api.com/v4/latest/USD"),
		ExchangeRateTimeout:  getEnvDuration("EXCHANGE_RATE_TIMEOUT", 5*time.Second),
		ExchangeRateFallback: getEnvDecimal("EXCHANGE_RATE_FALLBACK", decimal.RequireFromString("1.35")),
		CurrencyBackfillUSD:  getEnvBool("CURRENCY_BACKFILL_USD", false),

		CacheEnabled:         getEnvBool("CACHE_ENABLED", true),
		CacheMaxEntries:      getEnvInt("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),

		MaterializeConcurrency: getEnvInt("MATERIALIZE_CONCURRENCY", 4),
		RolloverInterval:       getEnvDuration("ROLLOVER_INTERVAL", time.Hour),

		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		// Check if directory exists or can be created
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if parsedURL, err := url.Parse(c.ExchangeRateURL); err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		errors = append(errors, fmt.Sprintf("invalid exchange rate URL '%s': must be an http(s) URL", c.ExchangeRateURL))
	}
	if c.ExchangeRateTimeout <= 0 || c.ExchangeRateTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid exchange rate timeout %v: must be between 0 and 1 minute", c.ExchangeRateTimeout))
	}
	if !c.ExchangeRateFallback.IsPositive() {
		errors = append(errors, fmt.Sprintf("invalid exchange rate fallback %s: must be positive", c.ExchangeRateFallback))
	}

	if c.CacheEnabled {
		if c.CacheMaxEntries < 1 {
			errors = append(errors, fmt.Sprintf("invalid cache max entries %d: must be at least 1", c.CacheMaxEntries))
		}
		if c.CacheCleanupInterval < time.Second {
			errors = append(errors, fmt.Sprintf("invalid cache cleanup interval %v: must be at least 1 second", c.CacheCleanupInterval))
		}
	}

	if c.MaterializeConcurrency < 1 || c.MaterializeConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid materialize concurrency %d: must be between 1 and 64", c.MaterializeConcurrency))
	}

	if c.RolloverInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid rollover interval %v: must be at least 1 minute", c.RolloverInterval))
	} else if c.RolloverInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid rollover interval %v: must be at most 24 hours", c.RolloverInterval))
	}

	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid metrics address '%s': %v", c.MetricsAddr, err))
		}
	}

	switch c.LogFormat {
	case "json", "human":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'json' or 'human'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
