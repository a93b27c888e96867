package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastConfig(attempts int) RetryConfig {
	config := DefaultRetryConfig()
	config.MaxAttempts = attempts
	config.InitialDelay = time.Millisecond
	config.MaxDelay = 5 * time.Millisecond
	config.JitterFactor = 0
	return config
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	assert.Equal(t, 3, config.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, config.InitialDelay)
	assert.Equal(t, 10*time.Second, config.MaxDelay)
	assert.Equal(t, 2.0, config.BackoffFactor)
	assert.True(t, config.RetryableErrors(errors.New("any error")))
}

func TestRetryWithBackoff_Success(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), fastConfig(3), func() error {
		attempts++
		if attempts < 2 {
			return errors.New("temporary error")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetryWithBackoff_AllAttemptsFail(t *testing.T) {
	attempts := 0
	testError := errors.New("persistent error")

	err := RetryWithBackoff(context.Background(), fastConfig(3), func() error {
		attempts++
		return testError
	})

	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.ErrorIs(t, err, testError)
}

func TestRetryWithBackoff_NonRetryableError(t *testing.T) {
	config := fastConfig(5)
	permanent := errors.New("permanent")
	config.RetryableErrors = func(err error) bool { return !errors.Is(err, permanent) }

	attempts := 0
	err := RetryWithBackoff(context.Background(), config, func() error {
		attempts++
		return permanent
	})

	assert.Equal(t, permanent, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_SingleAttemptReturnsErrorUnwrapped(t *testing.T) {
	testError := errors.New("once")

	err := RetryWithBackoff(context.Background(), fastConfig(0), func() error {
		return testError
	})

	assert.Equal(t, testError, err)
}

func TestRetryWithBackoff_ContextCancellation(t *testing.T) {
	config := fastConfig(5)
	config.InitialDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := RetryWithBackoff(ctx, config, func() error {
		attempts++
		cancel()
		return errors.New("fail")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "retry cancelled")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetryConfig_Delays(t *testing.T) {
	config := RetryConfig{BackoffFactor: 2, MaxDelay: 3 * time.Second}
	assert.Equal(t, 2*time.Second, config.nextDelay(time.Second))
	assert.Equal(t, 3*time.Second, config.nextDelay(2*time.Second))

	// factors below one never shrink the delay
	config.BackoffFactor = 0.5
	assert.Equal(t, time.Second, config.nextDelay(time.Second))

	assert.Equal(t, time.Second, config.jittered(time.Second))
	config.JitterFactor = 0.1
	for i := 0; i < 100; i++ {
		d := config.jittered(time.Second)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 1100*time.Millisecond)
	}
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"cut at space", "the quick brown fox", 12, "the quick..."},
		{"no space", "abcdefghij", 4, "abcd..."},
		{"disabled", "abcdefghij", 0, "abcdefghij"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateText(tt.in, tt.max))
		})
	}

	assert.Equal(t, 42, TruncateCell(42, 1))
	assert.Equal(t, "ab...", TruncateCell("abc", 2))
}
