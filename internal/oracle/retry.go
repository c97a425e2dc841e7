package oracle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RetryConfig bounds the backoff loop around oracle calls.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, first call included.
	// Default: 3
	MaxAttempts int

	// InitialBackoff is the first wait. Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait. Default: 30s.
	MaxBackoff time.Duration

	// Multiplier grows the wait between attempts. Default: 2.
	Multiplier float64
}

// DefaultRetryConfig returns the default oracle retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *RetryConfig) ApplyDefaults() {
	d := DefaultRetryConfig()
	if c.MaxAttempts == 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.Multiplier == 0 {
		c.Multiplier = d.Multiplier
	}
}

// transientMarkers are provider error fragments that indicate a retryable
// condition. Anything else propagates immediately.
var transientMarkers = []string{
	"rate limit",
	"rate_limit",
	"429",
	"timeout",
	"timed out",
	"connection refused",
	"connection reset",
	"temporarily unavailable",
	"503",
	"502",
	"overloaded",
}

// IsTransient classifies an error as retryable: rate limiting, timeouts,
// and connection failures. Parse errors and context cancellation are not
// transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// withRetry runs op under bounded exponential backoff, retrying transient
// errors only. Exhausting the budget wraps the last error in ErrUnavailable.
func withRetry(ctx context.Context, cfg RetryConfig, logger *zap.Logger, role Role, op func() error) error {
	cfg.ApplyDefaults()
	backoff := cfg.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		logger.Warn("oracle call failed, backing off",
			zap.String("role", string(role)),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(lastErr))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * cfg.Multiplier)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrUnavailable, cfg.MaxAttempts, lastErr)
}
