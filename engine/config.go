package engine

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// EngineConfig holds engine configuration.
// Logger is optional; when set it receives SQL tracing at DEBUG level and is
// handed to builders for their warnings.
type EngineConfig struct {
	Logger *slog.Logger

	// DatabaseURL is only used by NewEngineFromConfig.
	DatabaseURL string

	// Pool settings; zero leaves the database/sql default.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultEngineConfig returns the default engine configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DatabaseURL:     "sqlite:///:memory:",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// LoadEngineConfig loads configuration from environment variables, keeping
// the defaults for unset or invalid values.
func LoadEngineConfig() EngineConfig {
	config := DefaultEngineConfig()

	if url := os.Getenv("QUERYBUILDER_DATABASE_URL"); url != "" {
		config.DatabaseURL = url
	}

	if maxOpenStr := os.Getenv("QUERYBUILDER_MAX_OPEN_CONNS"); maxOpenStr != "" {
		if n, err := strconv.Atoi(maxOpenStr); err == nil && n > 0 {
			config.MaxOpenConns = n
		}
	}

	if maxIdleStr := os.Getenv("QUERYBUILDER_MAX_IDLE_CONNS"); maxIdleStr != "" {
		if n, err := strconv.Atoi(maxIdleStr); err == nil && n >= 0 {
			config.MaxIdleConns = n
		}
	}

	if lifetimeStr := os.Getenv("QUERYBUILDER_CONN_MAX_LIFETIME_MS"); lifetimeStr != "" {
		if ms, err := strconv.ParseInt(lifetimeStr, 10, 64); err == nil && ms > 0 {
			config.ConnMaxLifetime = time.Duration(ms) * time.Millisecond
		}
	}

	return config
}
