// Package config reads process settings from the environment.
package config

import "os"

// Defaults used when the matching environment variable is unset.
const (
	DefaultDBPath      = "grmpy.db"
	DefaultLogLevel    = "info"
	DefaultAddr        = "localhost:50061"
	DefaultMetricsAddr = ":9464"
)

// Config holds process-wide settings. Command-line flags override them.
type Config struct {
	DBPath      string // GRMPY_DB
	LogLevel    string // GRMPY_LOG_LEVEL
	Addr        string // GRMPY_ADDR
	MetricsAddr string // GRMPY_METRICS_ADDR
}

// FromEnv builds a Config from the environment.
func FromEnv() Config {
	return Config{
		DBPath:      envOr("GRMPY_DB", DefaultDBPath),
		LogLevel:    envOr("GRMPY_LOG_LEVEL", DefaultLogLevel),
		Addr:        envOr("GRMPY_ADDR", DefaultAddr),
		MetricsAddr: envOr("GRMPY_METRICS_ADDR", DefaultMetricsAddr),
	}
}

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
