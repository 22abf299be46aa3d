package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"kakeibo/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP change fan-out
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Insight adapter
	InsightAPIKey   string
	InsightModel    string
	InsightEndpoint string

	// Payday fallback applied when a user has not completed setup.
	// This default belongs here, not to the cycle calculator.
	DefaultPayday   int
	DefaultRollover string

	// Recurring worker
	RecurringInterval time.Duration

	// Backend selection
	DataBackend string

	// Single-tenant fallback account used when no identity header is present.
	DefaultUserID string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/kakeibo.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "kakeibo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_changes"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Ledger"),

		InsightAPIKey:   getEnv("INSIGHT_API_KEY", ""),
		InsightModel:    getEnv("INSIGHT_MODEL", "gemini-1.5-flash"),
		InsightEndpoint: getEnv("INSIGHT_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta"),

		DefaultPayday:   getEnvInt("PAYDAY_DEFAULT_DAY", 25),
		DefaultRollover: getEnv("PAYDAY_DEFAULT_ROLLOVER", "before"),

		RecurringInterval: getEnvDuration("RECURRING_INTERVAL", time.Hour),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		DefaultUserID: getEnv("DEFAULT_USER_ID", "local"),
	}

	return cfg
}

// DefaultPaydaySettings returns the documented configuration-layer fallback
// used before the user saves their own payday settings.
func (c *Config) DefaultPaydaySettings() core.PaydaySettings {
	return core.PaydaySettings{
		Payday:   c.DefaultPayday,
		Rollover: core.RolloverPolicy(c.DefaultRollover),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite]", c.DataBackend))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if err := c.DefaultPaydaySettings().Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid payday defaults (day=%d rollover=%s): %v",
			c.DefaultPayday, c.DefaultRollover, err))
	}

	if c.RecurringInterval < time.Minute {
		errs = append(errs, fmt.Sprintf("recurring interval %s too short: minimum 1m", c.RecurringInterval))
	}

	if strings.TrimSpace(c.DefaultUserID) == "" {
		errs = append(errs, "default user id cannot be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return fallback
}
