package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRedisIdempotencyStore_KeyPrefix(t *testing.T) {
	t.Run("defaults prefix when empty", func(t *testing.T) {
		store := NewRedisIdempotencyStoreWithClient(unreachableClient(), "")
		defer store.Close()
		assert.Equal(t, DefaultKeyPrefix+"abc", store.key("abc"))
	})

	t.Run("uses custom prefix", func(t *testing.T) {
		store := NewRedisIdempotencyStoreWithClient(unreachableClient(), "test:")
		defer store.Close()
		assert.Equal(t, "test:abc", store.key("abc"))
	})
}

func TestRedisIdempotencyStore_Unreachable(t *testing.T) {
	ctx := context.Background()
	store := NewRedisIdempotencyStoreWithClient(unreachableClient(), "test:")
	defer store.Close()

	_, err := store.MarkProcessed(ctx, "k", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to mark key as processed")

	_, err = store.IsProcessed(ctx, "k")
	require.Error(t, err)

	_, err = NewRedisIdempotencyStore(ctx, RedisConfig{Host: "127.0.0.1", Port: 1})
	assert.Error(t, err)
}
