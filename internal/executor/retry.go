package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/confsync/confsync/internal/interfaces"
	"github.com/confsync/confsync/internal/logging"
)

// RetryConfig defines retry behavior for remote operations
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns sensible defaults for remote operations
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// RetryHandler retries transient remote failures with bounded exponential
// backoff. Permanent failures (validation, conflict, not-found) are never
// retried.
type RetryHandler struct {
	config *RetryConfig
	logger *logging.Logger
}

// NewRetryHandler creates a new retry handler
func NewRetryHandler(config *RetryConfig) *RetryHandler {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &RetryHandler{
		config: config,
		logger: logging.NewLogger("retry"),
	}
}

// ExecuteWithRetry runs an operation with retry logic, returning the number
// of attempts made.
func (r *RetryHandler) ExecuteWithRetry(ctx context.Context, operation string, fn func() error) (int, error) {
	var lastErr error
	delay := r.config.InitialDelay

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, fmt.Errorf("operation canceled: %w", err)
		}

		err := fn()
		if err == nil {
			if attempt > 1 {
				r.logger.Infof("%s succeeded after %d attempts", operation, attempt)
			}
			return attempt, nil
		}

		lastErr = err

		if !interfaces.IsTransient(err) || attempt == r.config.MaxAttempts {
			return attempt, err
		}

		r.logger.Warnf("%s attempt %d/%d failed: %v, retrying in %v",
			operation, attempt, r.config.MaxAttempts, err, delay)

		select {
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * r.config.BackoffFactor)
			if delay > r.config.MaxDelay {
				delay = r.config.MaxDelay
			}
		case <-ctx.Done():
			return attempt, fmt.Errorf("retry canceled: %w", ctx.Err())
		}
	}

	return r.config.MaxAttempts, fmt.Errorf("operation failed after %d attempts: %w",
		r.config.MaxAttempts, lastErr)
}
