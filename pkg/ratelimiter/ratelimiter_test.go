package ratelimiter_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/ratelimiter"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMemoryBucket(t *testing.T, cfg ratelimiter.Config) (*ratelimiter.Bucket, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := ratelimiter.NewMemoryStore(
		ratelimiter.WithClock(clock.Now),
		ratelimiter.WithCleanupInterval(0),
	)
	t.Cleanup(func() { _ = store.Close() })

	b, err := ratelimiter.NewBucket(store, cfg)
	require.NoError(t, err)
	return b, clock
}

func TestNewBucket_Validation(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	t.Cleanup(func() { _ = store.Close() })

	tests := []struct {
		name string
		cfg  ratelimiter.Config
	}{
		{name: "zero capacity", cfg: ratelimiter.Config{RefillRate: 1, RefillInterval: time.Second}},
		{name: "zero refill rate", cfg: ratelimiter.Config{Capacity: 1, RefillInterval: time.Second}},
		{name: "zero interval", cfg: ratelimiter.Config{Capacity: 1, RefillRate: 1}},
		{name: "sub-millisecond interval", cfg: ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: 500 * time.Microsecond}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ratelimiter.NewBucket(store, tt.cfg)
			require.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
		})
	}

	_, err := ratelimiter.NewBucket(nil, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second})
	require.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
}

func TestBucket_Allow(t *testing.T) {
	t.Parallel()

	cfg := ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Minute}

	t.Run("exhausts then refills", func(t *testing.T) {
		t.Parallel()
		b, clock := newMemoryBucket(t, cfg)
		ctx := context.Background()

		for i := 2; i >= 0; i-- {
			res, err := b.Allow(ctx, "acc")
			require.NoError(t, err)
			assert.True(t, res.Allowed())
			assert.Equal(t, i, res.Remaining)
		}

		res, err := b.Allow(ctx, "acc")
		require.NoError(t, err)
		assert.False(t, res.Allowed())
		assert.Equal(t, time.Minute, res.RetryAfter(clock.Now()))

		clock.Advance(time.Minute)
		res, err = b.Allow(ctx, "acc")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
		assert.Equal(t, 0, res.Remaining)
	})

	t.Run("rejected attempts do not drain further", func(t *testing.T) {
		t.Parallel()
		b, clock := newMemoryBucket(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Minute})
		ctx := context.Background()

		_, err := b.Allow(ctx, "acc")
		require.NoError(t, err)
		for range 5 {
			res, err := b.Allow(ctx, "acc")
			require.NoError(t, err)
			assert.Equal(t, -1, res.Remaining)
		}

		clock.Advance(time.Minute)
		res, err := b.Allow(ctx, "acc")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
	})

	t.Run("refill keeps the partial interval", func(t *testing.T) {
		t.Parallel()
		b, clock := newMemoryBucket(t, ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Minute})
		ctx := context.Background()

		for range 2 {
			res, err := b.Allow(ctx, "acc")
			require.NoError(t, err)
			require.True(t, res.Allowed())
		}

		clock.Advance(90 * time.Second)
		res, err := b.Allow(ctx, "acc")
		require.NoError(t, err)
		require.True(t, res.Allowed())
		assert.Equal(t, 0, res.Remaining)

		clock.Advance(30 * time.Second)
		res, err = b.Allow(ctx, "acc")
		require.NoError(t, err)
		assert.True(t, res.Allowed(), "refills stay on the interval grid")
	})

	t.Run("keys are independent", func(t *testing.T) {
		t.Parallel()
		b, _ := newMemoryBucket(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Minute})
		ctx := context.Background()

		res, err := b.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, res.Allowed())

		res, err = b.Allow(ctx, "b")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
	})

	t.Run("reset restores capacity", func(t *testing.T) {
		t.Parallel()
		b, _ := newMemoryBucket(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Hour})
		ctx := context.Background()

		_, err := b.Allow(ctx, "acc")
		require.NoError(t, err)
		require.NoError(t, b.Reset(ctx, "acc"))

		res, err := b.Status(ctx, "acc")
		require.NoError(t, err)
		assert.Equal(t, 1, res.Remaining)
	})

	t.Run("rejects non-positive n", func(t *testing.T) {
		t.Parallel()
		b, _ := newMemoryBucket(t, cfg)
		_, err := b.AllowN(context.Background(), "acc", 0)
		require.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
	})
}

func TestBucket_ConcurrentAllow(t *testing.T) {
	t.Parallel()

	b, _ := newMemoryBucket(t, ratelimiter.Config{Capacity: 10, RefillRate: 1, RefillInterval: time.Hour})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := b.Allow(context.Background(), "acc")
			if err == nil && res.Allowed() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, allowed)
}

func TestMemoryStore_Cleanup(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Now()}
	store := ratelimiter.NewMemoryStore(
		ratelimiter.WithClock(clock.Now),
		ratelimiter.WithCleanupInterval(5*time.Millisecond),
		ratelimiter.WithStaleAfter(time.Minute),
	)
	t.Cleanup(func() { _ = store.Close() })

	cfg := ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second}
	_, _, err := store.ConsumeTokens(context.Background(), "acc", 1, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	clock.Advance(2 * time.Minute)
	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
