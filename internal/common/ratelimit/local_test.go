package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLimiter(t *testing.T) {
	limiter, err := NewLocalLimiter(Config{Enabled: true, RequestsPerSecond: 10, BurstSize: 3})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.TryAcquire(), "request %d should be allowed", i)
	}
	assert.False(t, limiter.TryAcquire(), "burst should be exhausted")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, limiter.Wait(ctx))
}

func TestLocalLimiter_Disabled(t *testing.T) {
	limiter, err := NewLocalLimiter(DefaultConfig())
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		assert.True(t, limiter.TryAcquire())
	}
	assert.NoError(t, limiter.Wait(context.Background()))
	assert.Equal(t, false, limiter.Stats()["enabled"])
}

func TestLocalLimiter_WaitHonoursContext(t *testing.T) {
	limiter, err := NewLocalLimiter(Config{Enabled: true, RequestsPerSecond: 0.001, BurstSize: 1})
	require.NoError(t, err)
	require.True(t, limiter.TryAcquire())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Wait(ctx))
}

func TestConfig_Validate(t *testing.T) {
	config := Config{Enabled: true}
	require.NoError(t, config.Validate())
	assert.Equal(t, 10.0, config.RequestsPerSecond)
	assert.Equal(t, 10, config.BurstSize)

	bad := Config{Enabled: true, RequestsPerSecond: -1}
	assert.Error(t, bad.Validate())

	disabled := Config{RequestsPerSecond: -1}
	assert.NoError(t, disabled.Validate())
}
