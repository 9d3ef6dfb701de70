// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SweepOff is the SWEEP_SCHEDULE value that turns the scheduled sweep off.
const SweepOff = "off"

// Config holds application configuration
type Config struct {
	Port int

	// DBDriver selects the store: sqlite (default) or postgres.
	DBDriver    string
	DBPath      string
	DatabaseURL string

	// SweepSchedule is a standard 5-field cron spec or a descriptor such as "@daily".
	// SWEEP_SCHEDULE=off disables the scheduled overdue sweep, leaving this empty.
	SweepSchedule string

	GenerateWorkers    int
	AllocationRetries  int
	StatementCacheSize int

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables, after loading any of
// the given .env files that exist. Variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("No env file, using system environment", "file", f)
				continue
			}
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
		slog.Debug("Loaded env file", "file", f)
	}

	var errs []error
	intEnv := func(key string, fallback int) int {
		raw := getEnv(key, "")
		if raw == "" {
			return fallback
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be a positive integer, got %q", key, raw))
			return fallback
		}
		return v
	}

	cfg := &Config{
		Port:               intEnv("PORT", 8080),
		DBDriver:           strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		DBPath:             getEnv("DB_PATH", "./data/feeledger.db"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		SweepSchedule:      getEnv("SWEEP_SCHEDULE", "@daily"),
		GenerateWorkers:    intEnv("GENERATE_WORKERS", 8),
		AllocationRetries:  intEnv("ALLOCATION_RETRIES", 3),
		StatementCacheSize: intEnv("STATEMENT_CACHE_SIZE", 1024),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	switch cfg.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when DB_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", cfg.DBDriver))
	}

	if strings.EqualFold(cfg.SweepSchedule, SweepOff) {
		cfg.SweepSchedule = ""
	}
	if cfg.SweepSchedule != "" {
		if _, err := cron.ParseStandard(cfg.SweepSchedule); err != nil {
			errs = append(errs, fmt.Errorf("SWEEP_SCHEDULE %q: %w", cfg.SweepSchedule, err))
		}
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
