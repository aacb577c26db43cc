package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: DAEDALUS_[SECTION]_[KEY] (e.g., DAEDALUS_SCAN_WORKERS).
func ApplyEnvOverrides(cfg *Config) {
	// Scan
	setEnvInt(&cfg.Scan.Workers, "DAEDALUS_SCAN_WORKERS")
	setEnvFloat64(&cfg.Scan.Rate, "DAEDALUS_SCAN_RATE")
	setEnvString(&cfg.Scan.Suffix, "DAEDALUS_SCAN_SUFFIX")

	// Variables
	setEnvString(&cfg.Variables.File, "DAEDALUS_VARIABLES_FILE")
	setEnvBool(&cfg.Variables.Env, "DAEDALUS_VARIABLES_ENV")

	// Database
	setEnvBool(&cfg.DB.Enabled, "DAEDALUS_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "DAEDALUS_DB_PATH")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "DAEDALUS_WATCH_DEBOUNCE")

	// Observability
	setEnvString(&cfg.Observability.MetricsFile, "DAEDALUS_OBSERVABILITY_METRICS_FILE")
	setEnvString(&cfg.Observability.OTLPEndpoint, "DAEDALUS_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "DAEDALUS_OBSERVABILITY_ENABLE_TRACING")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
