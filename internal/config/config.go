// Package config loads configuration from environment variables.
package config

import "os"

// Config holds all server configuration.
type Config struct {
	// Server
	ListenAddr  string
	MetricsAddr string

	// Logging
	LogLevel  string
	LogFormat string

	// Media root to index and serve
	MediaRoot string
}

// Load reads configuration from environment variables with defaults.
// MediaRoot is validated by the caller because it may also come from a
// command-line flag.
func Load() *Config {
	return &Config{
		ListenAddr:  envOr("LISTEN_ADDR", ":8080"),
		MetricsAddr: envOr("METRICS_ADDR", ":9090"),
		LogLevel:    envOr("LOG_LEVEL", "info"),
		LogFormat:   envOr("LOG_FORMAT", "json"),
		MediaRoot:   envOr("MEDIA_ROOT", ""),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
