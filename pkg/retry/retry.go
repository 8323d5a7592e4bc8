package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Config bounds the retry loop. Zero values fall back to the defaults used by
// both provider senders: 2 retries, 300ms base delay, up to 150ms jitter.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxJitter  time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxRetries: 2,
		BaseDelay:  300 * time.Millisecond,
		MaxJitter:  150 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 300 * time.Millisecond
	}
	if c.MaxJitter <= 0 {
		c.MaxJitter = 150 * time.Millisecond
	}
	return c
}

// retryable is implemented by errors that know whether another attempt can
// change the outcome (push.SendError does).
type retryable interface {
	Retryable() bool
}

// IsRetryable reports whether err is worth another attempt. Errors that do not
// classify themselves are treated as transport-level and retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// Do runs op up to MaxRetries+1 times with exponential backoff plus jitter.
// The attempt index is passed to op so callers can refresh credentials on a
// retry. Errors classified as permanent stop the loop immediately; the last
// error is returned once attempts are exhausted.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context, attempt int) error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := cfg.BaseDelay*time.Duration(1<<(attempt-1)) + time.Duration(rand.Int63n(int64(cfg.MaxJitter)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
