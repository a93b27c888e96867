// Package utils holds small helpers shared by the API client and the
// controllers: retry with backoff, deep copies and preview truncation.
package utils

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig describes an exponential backoff policy
type RetryConfig struct {
	// MaxAttempts counts the first call
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// JitterFactor adds up to this fraction of each delay, 0 to 1
	JitterFactor float64
	// RetryableErrors picks the errors worth another attempt; nil retries all
	RetryableErrors func(error) bool
}

// DefaultRetryConfig is the backend policy: three attempts from 500ms,
// doubling up to 10s, with 10% jitter
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		BackoffFactor:   2.0,
		JitterFactor:    0.1,
		RetryableErrors: func(error) bool { return true },
	}
}

// nextDelay grows d by the backoff factor, capped at MaxDelay
func (c RetryConfig) nextDelay(d time.Duration) time.Duration {
	d = time.Duration(float64(d) * max(c.BackoffFactor, 1))
	if c.MaxDelay > 0 {
		d = min(d, c.MaxDelay)
	}
	return d
}

func (c RetryConfig) jittered(d time.Duration) time.Duration {
	spread := int64(float64(d) * c.JitterFactor)
	if spread <= 0 {
		return d
	}
	return d + time.Duration(rand.Int63n(spread))
}

// RetryWithBackoff calls fn until it succeeds or MaxAttempts calls have
// failed. A non-retryable error is returned as is. Exhausting several
// attempts wraps the last error as "max retries exceeded"; a single
// configured attempt returns its error unwrapped. Cancelling ctx during a
// wait yields "retry cancelled".
func RetryWithBackoff(ctx context.Context, config RetryConfig, fn func() error) error {
	attempts := max(config.MaxAttempts, 1)
	delay := config.InitialDelay

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if config.RetryableErrors != nil && !config.RetryableErrors(err) {
			return err
		}
		if attempt >= attempts {
			break
		}

		timer := time.NewTimer(config.jittered(delay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}
		delay = config.nextDelay(delay)
	}

	if attempts == 1 {
		return err
	}
	return fmt.Errorf("max retries exceeded: %w", err)
}
