package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"scontrino/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Exchange rates
	RatesURL        string
	RateBases       []core.Currency
	DisplayCurrency core.Currency

	// Session
	JWTSecret      string
	AccessTokenTTL time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets report export
	GoogleSpreadsheetID string
	GoogleReportSheet   string

	// Worker
	SyncBatchSize       int
	SyncInterval        time.Duration
	RateRefreshSchedule string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8084"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/scontrino.db"),

		RatesURL:        getEnv("RATES_URL", "https://api.exchangerate-api.com/v4/latest"),
		DisplayCurrency: core.Currency(getEnv("DISPLAY_CURRENCY", "EUR")),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		AccessTokenTTL: getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "scontrino"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "receipt_sync"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleReportSheet:   getEnv("GOOGLE_REPORT_SHEET", "Receipts"),

		SyncBatchSize:       getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:        getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
		RateRefreshSchedule: getEnv("RATE_REFRESH_SCHEDULE", "@hourly"),
	}

	for _, code := range strings.Split(getEnv("RATE_BASES", "EUR,USD,RSD,BAM"), ",") {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code != "" {
			cfg.RateBases = append(cfg.RateBases, core.Currency(code))
		}
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if parsed, err := url.Parse(c.RatesURL); err != nil || parsed.Scheme == "" {
		errs = append(errs, fmt.Sprintf("invalid rates URL '%s'", c.RatesURL))
	}
	if err := c.DisplayCurrency.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid display currency '%s'", c.DisplayCurrency))
	}
	for _, base := range c.RateBases {
		if err := base.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("invalid rate base '%s'", base))
		}
	}

	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		errs = append(errs, "JWT secret must be at least 32 bytes when set")
	}
	if c.AccessTokenTTL < time.Minute || c.AccessTokenTTL > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid access token TTL %v: must be between 1 minute and 24 hours", c.AccessTokenTTL))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SyncBatchSize < 1 || c.SyncBatchSize > 1000 {
		errs = append(errs, fmt.Sprintf("invalid sync batch size %d: must be between 1 and 1000", c.SyncBatchSize))
	}
	if c.SyncInterval < 10*time.Second {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at least 10 seconds", c.SyncInterval))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
