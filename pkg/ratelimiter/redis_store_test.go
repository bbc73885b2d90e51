package ratelimiter_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/ratelimiter"
)

func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	clock := &fakeClock{now: time.Now()}
	store := ratelimiter.NewRedisStore(client,
		ratelimiter.WithKeyPrefix("test:ratelimit:"+uuid.NewString()+":"),
		ratelimiter.WithRedisClock(clock.Now),
	)
	b, err := ratelimiter.NewBucket(store, ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Minute})
	require.NoError(t, err)

	ctx := context.Background()
	for _, want := range []int{1, 0, -1, -1} {
		res, err := b.Allow(ctx, "acc")
		require.NoError(t, err)
		assert.Equal(t, want, res.Remaining)
	}

	clock.Advance(time.Minute)
	res, err := b.Allow(ctx, "acc")
	require.NoError(t, err)
	assert.True(t, res.Allowed())

	require.NoError(t, b.Reset(ctx, "acc"))
	res, err = b.Status(ctx, "acc")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Remaining)
}
