// Package cache holds GET responses for the API client, mostly the function
// registry. Entries live in process (go-cache), in Redis, or in both tiers.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"
)

// Cache is what the HTTP wrapper needs from a response cache
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

var (
	_ Cache = (*LocalCache)(nil)
	_ Cache = (*RedisCache)(nil)
	_ Cache = (*TwoTierCache)(nil)
)

// LocalCache keeps values in process. Values are stored as given, not copied.
type LocalCache struct {
	items *gocache.Cache
}

func NewLocalCache(defaultTTL, cleanupInterval time.Duration) *LocalCache {
	return &LocalCache{items: gocache.New(defaultTTL, cleanupInterval)}
}

func (l *LocalCache) Get(_ context.Context, key string) (interface{}, bool) {
	return l.items.Get(key)
}

func (l *LocalCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	l.items.Set(key, value, ttl)
	return nil
}

func (l *LocalCache) Delete(_ context.Context, key string) error {
	l.items.Delete(key)
	return nil
}

func (l *LocalCache) Clear(context.Context) error {
	l.items.Flush()
	return nil
}

// clearBatch bounds the keys removed per DEL during Clear
const clearBatch = 100

// RedisCache stores JSON under prefix+key so several builders can share a
// Redis database without clobbering each other's entries.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client, keyPrefix string) *RedisCache {
	return &RedisCache{rdb: client, prefix: keyPrefix}
}

func (r *RedisCache) key(k string) string { return r.prefix + k }

// Get decodes the stored JSON. Strings come back as strings and structured
// values as generic maps and slices; a payload that is not JSON is returned raw.
func (r *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	raw, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		return nil, false
	}

	var decoded interface{}
	if json.Unmarshal(raw, &decoded) != nil {
		return string(raw), true
	}
	return decoded, true
}

func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.key(key), payload, ttl).Err()
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.key(key)).Err()
}

// Clear drops every entry under the prefix and nothing else
func (r *RedisCache) Clear(ctx context.Context) error {
	it := r.rdb.Scan(ctx, 0, r.prefix+"*", clearBatch).Iterator()
	batch := make([]string, 0, clearBatch)
	for it.Next(ctx) {
		batch = append(batch, it.Val())
		if len(batch) == clearBatch {
			if err := r.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := it.Err(); err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	return r.rdb.Del(ctx, batch...).Err()
}

// TwoTierCache answers from a short-lived local copy and falls through to
// Redis, which stays authoritative.
type TwoTierCache struct {
	near    *LocalCache
	far     *RedisCache
	nearTTL time.Duration
}

func NewTwoTierCache(localTTL, cleanupInterval time.Duration, redisClient *redis.Client, keyPrefix string) *TwoTierCache {
	return &TwoTierCache{
		near:    NewLocalCache(localTTL, cleanupInterval),
		far:     NewRedisCache(redisClient, keyPrefix),
		nearTTL: localTTL,
	}
}

func (t *TwoTierCache) Get(ctx context.Context, key string) (interface{}, bool) {
	if v, ok := t.near.Get(ctx, key); ok {
		return v, true
	}
	v, ok := t.far.Get(ctx, key)
	if ok {
		_ = t.near.Set(ctx, key, v, t.nearTTL)
	}
	return v, ok
}

// Set writes Redis first. The local copy never outlives the local TTL.
func (t *TwoTierCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := t.far.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if t.nearTTL > 0 && ttl > t.nearTTL {
		ttl = t.nearTTL
	}
	return t.near.Set(ctx, key, value, ttl)
}

func (t *TwoTierCache) Delete(ctx context.Context, key string) error {
	_ = t.near.Delete(ctx, key)
	return t.far.Delete(ctx, key)
}

func (t *TwoTierCache) Clear(ctx context.Context) error {
	_ = t.near.Clear(ctx)
	return t.far.Clear(ctx)
}
