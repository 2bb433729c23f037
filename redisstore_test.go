package lendcache_test

import (
	"context"
	"os"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/lendcache"
)

// redisClient connects to the instance at TEST_REDIS_ADDR, skipping the test
// when there is none.
func redisClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable at %s: %v", addr, err)
	}

	return client
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	client := redisClient(t)

	s := lendcache.NewRedisStore[string, []string](lendcache.RedisConfig{
		Client:    client,
		KeyPrefix: "lendcache-test:",
	})

	t.Cleanup(func() {
		assert.NoError(t, s.Remove(ctx, "pets"))
		assert.NoError(t, s.Close())
	})

	require.NoError(t, s.Remove(ctx, "pets"))
	assert.False(t, s.Contains(ctx, "pets"))

	_, err := s.Fetch(ctx, "pets")
	assert.ErrorIs(t, err, lendcache.ErrNotFound)

	require.NoError(t, s.Insert(ctx, "pets", []string{"dog", "cat"}))
	assert.True(t, s.Contains(ctx, "pets"))

	v, err := s.Fetch(ctx, "pets")
	require.NoError(t, err)
	assert.Equal(t, []string{"dog", "cat"}, v)

	require.NoError(t, s.Commit(ctx))
}

func TestRedisStore_cache(t *testing.T) {
	ctx := context.Background()
	client := redisClient(t)

	s := lendcache.NewRedisStore[int, string](lendcache.RedisConfig{
		Client:    client,
		KeyPrefix: "lendcache-test-cache:",
	})

	c := lendcache.New[int, string](s, lendcache.Config{Capacity: 2})

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Insert(ctx, i, "value"))
	}

	require.NoError(t, c.Close(ctx))

	for i := 0; i < 5; i++ {
		assert.True(t, s.Contains(ctx, i))
		require.NoError(t, s.Remove(ctx, i))
	}

	assert.NoError(t, s.Close())
}
