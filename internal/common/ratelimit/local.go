package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// localLimiter implements Limiter with a single token bucket
type localLimiter struct {
	config  Config
	limiter *rate.Limiter
}

// NewLocalLimiter creates a token bucket limiter. A disabled config yields a
// limiter that never blocks.
func NewLocalLimiter(config Config) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	limit := rate.Inf
	burst := 0
	if config.Enabled {
		limit = rate.Limit(config.RequestsPerSecond)
		burst = config.BurstSize
	}

	return &localLimiter{
		config:  config,
		limiter: rate.NewLimiter(limit, burst),
	}, nil
}

func (l *localLimiter) Wait(ctx context.Context) error {
	if !l.config.Enabled {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}

func (l *localLimiter) TryAcquire() bool {
	if !l.config.Enabled {
		return true
	}
	return l.limiter.Allow()
}

func (l *localLimiter) Stats() map[string]interface{} {
	return map[string]interface{}{
		"enabled":             l.config.Enabled,
		"requests_per_second": l.config.RequestsPerSecond,
		"burst_size":          l.config.BurstSize,
		"tokens":              l.limiter.Tokens(),
	}
}
