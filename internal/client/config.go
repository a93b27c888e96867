package client

import (
	"time"

	"pipeline-builder/internal/circuitbreaker"
	"pipeline-builder/internal/common/cache"
	commonhttp "pipeline-builder/internal/common/http"
	"pipeline-builder/internal/common/logging"
	"pipeline-builder/internal/common/ratelimit"
	"pipeline-builder/internal/config"
)

// FromConfig builds a client, and the registry cache behind it, from the
// loaded configuration. Redis-backed caches connect eagerly so a bad
// address fails at start-up.
func FromConfig(cfg *config.Config) (*Client, error) {
	opts := Options{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.HTTPTimeout,
		Retry: &commonhttp.RetryConfig{
			MaxAttempts:   cfg.HTTPMaxRetries,
			InitialDelay:  cfg.HTTPRetryDelay,
			MaxDelay:      10 * time.Second,
			BackoffFactor: 2.0,
			JitterFactor:  0.1,
		},
		CacheTTL: cfg.CacheTTL,
		Logger:   logging.Component("api_client"),
	}

	if cfg.CircuitBreakerEnabled {
		breaker := circuitbreaker.DefaultConfig()
		opts.CircuitBreaker = &breaker
	}

	if cfg.RateLimitEnabled {
		limiter, err := ratelimit.NewLocalLimiter(ratelimit.Config{
			Enabled:           true,
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
		})
		if err != nil {
			return nil, err
		}
		opts.RateLimiter = limiter
	}

	cacheConfig := cache.DefaultConfig()
	cacheConfig.Type = cache.Type(cfg.CacheType)
	cacheConfig.TTL = cfg.CacheTTL
	if cacheConfig.Type != cache.TypeLocal {
		redisClient, err := cache.NewRedisClient(cache.RedisOptions{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		cacheConfig.RedisClient = redisClient
	}

	registryCache, err := cache.New(cacheConfig)
	if err != nil {
		return nil, err
	}
	opts.Cache = registryCache

	return New(opts), nil
}
