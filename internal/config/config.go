// Package config loads engine configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration for a deployment run
type Config struct {
	// ApplyConcurrency bounds the number of change items applied in
	// parallel.
	ApplyConcurrency int
	// RemoteCallTimeout bounds each individual remote API call.
	RemoteCallTimeout time.Duration
	// RetryMaxAttempts caps retries of transient remote failures.
	RetryMaxAttempts int
	// RetryInitialDelay is the first backoff delay.
	RetryInitialDelay time.Duration
	// RetryMaxDelay caps the exponential backoff.
	RetryMaxDelay time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	cfg := &Config{
		ApplyConcurrency:  4,
		RemoteCallTimeout: 30 * time.Second,
		RetryMaxAttempts:  3,
		RetryInitialDelay: 100 * time.Millisecond,
		RetryMaxDelay:     5 * time.Second,
	}

	if v := os.Getenv("CONFSYNC_APPLY_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ApplyConcurrency = n
		}
	}

	if v := os.Getenv("CONFSYNC_REMOTE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RemoteCallTimeout = d
		}
	}

	if v := os.Getenv("CONFSYNC_RETRY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RetryMaxAttempts = n
		}
	}

	if v := os.Getenv("CONFSYNC_RETRY_INITIAL_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RetryInitialDelay = d
		}
	}

	if v := os.Getenv("CONFSYNC_RETRY_MAX_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RetryMaxDelay = d
		}
	}

	return cfg
}
