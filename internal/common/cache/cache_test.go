package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *miniredis.Miniredis {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr
}

func TestLocalCache(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache(time.Minute, time.Minute)

	require.NoError(t, c.Set(ctx, "functions", `{"filter":{}}`, time.Minute))
	val, found := c.Get(ctx, "functions")
	assert.True(t, found)
	assert.Equal(t, `{"filter":{}}`, val)

	require.NoError(t, c.Delete(ctx, "functions"))
	_, found = c.Get(ctx, "functions")
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, c.Clear(ctx))
	_, found = c.Get(ctx, "a")
	assert.False(t, found)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := setupRedis(t)

	client, err := NewRedisClient(RedisOptions{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	c := NewRedisCache(client, "test:")

	require.NoError(t, c.Set(ctx, "body", "raw text", time.Minute))
	val, found := c.Get(ctx, "body")
	assert.True(t, found)
	assert.Equal(t, "raw text", val)
	assert.True(t, mr.Exists("test:body"))

	require.NoError(t, c.Set(ctx, "other", map[string]int{"n": 1}, time.Minute))
	require.NoError(t, c.Clear(ctx))
	assert.False(t, mr.Exists("test:body"))
	assert.False(t, mr.Exists("test:other"))

	_, found = c.Get(ctx, "missing")
	assert.False(t, found)
}

func TestTwoTierCache(t *testing.T) {
	ctx := context.Background()
	mr := setupRedis(t)

	client, err := NewRedisClient(RedisOptions{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	c := NewTwoTierCache(time.Minute, time.Minute, client, "tt:")
	require.NoError(t, c.Set(ctx, "k", "v", time.Hour))

	val, found := c.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, "v", val)

	// L1 still answers after L2 loses the key
	mr.Del("tt:k")
	val, found = c.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, "v", val)

	require.NoError(t, c.Delete(ctx, "k"))
	_, found = c.Get(ctx, "k")
	assert.False(t, found)
}

func TestNew(t *testing.T) {
	c, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, &LocalCache{}, c)

	_, err = New(Config{Type: TypeRedis})
	assert.Error(t, err)

	_, err = New(Config{Type: TypeTwoTier})
	assert.Error(t, err)

	_, err = New(Config{Type: "memcached"})
	assert.Error(t, err)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := NewRedisClient(RedisOptions{Address: "127.0.0.1:1"})
	assert.Error(t, err)
}
