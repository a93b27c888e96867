package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"pipeline-builder/internal/common/errors"
)

// Type is a CACHE_TYPE value
type Type string

const (
	TypeLocal   Type = "local"
	TypeRedis   Type = "redis"
	TypeTwoTier Type = "two_tier"
)

type Config struct {
	Type            Type          `json:"type"`
	TTL             time.Duration `json:"ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval,omitempty"`
	KeyPrefix       string        `json:"key_prefix,omitempty"`
	RedisClient     *redis.Client `json:"-"`
}

// DefaultConfig keeps entries in process for five minutes
func DefaultConfig() Config {
	return Config{
		Type:            TypeLocal,
		TTL:             5 * time.Minute,
		CleanupInterval: 10 * time.Minute,
		KeyPrefix:       "pipeline-builder:",
	}
}

// New builds the cache named by config.Type; an empty type means local.
// Redis-backed types need config.RedisClient.
func New(config Config) (Cache, error) {
	if config.Type == TypeLocal || config.Type == "" {
		return NewLocalCache(config.TTL, config.CleanupInterval), nil
	}
	if config.Type != TypeRedis && config.Type != TypeTwoTier {
		return nil, errors.ConfigError(fmt.Sprintf("unknown cache type: %s", config.Type))
	}
	if config.RedisClient == nil {
		return nil, errors.ConfigError(fmt.Sprintf("%s cache needs a redis client", config.Type))
	}

	if config.Type == TypeRedis {
		return NewRedisCache(config.RedisClient, config.KeyPrefix), nil
	}
	return NewTwoTierCache(config.TTL, config.CleanupInterval, config.RedisClient, config.KeyPrefix), nil
}

type RedisOptions struct {
	Address  string
	Password string
	DB       int
	PoolSize int
}

// NewRedisClient connects and PINGs, giving up after five seconds
func NewRedisClient(opts RedisOptions) (*redis.Client, error) {
	addr := opts.Address
	if addr == "" {
		addr = "localhost:6379"
	}
	pool := opts.PoolSize
	if pool == 0 {
		pool = 10
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: opts.Password, DB: opts.DB, PoolSize: pool})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.ConnectionError("redis at "+addr+" unreachable", err)
	}
	return rdb, nil
}
