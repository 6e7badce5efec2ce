package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oarkflow/streamguard/pkg/contracts"
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

type storeHarness struct {
	store   contracts.RateLimitStore
	advance func(time.Duration)
}

func newMemoryHarness(t *testing.T) storeHarness {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return storeHarness{
		store:   NewMemoryStore(WithClock(clock.Now)),
		advance: clock.Advance,
	}
}

func newRedisHarness(t *testing.T) storeHarness {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return storeHarness{
		store:   NewRedisStore(client, ""),
		advance: mr.FastForward,
	}
}

var harnesses = map[string]func(t *testing.T) storeHarness{
	"memory": newMemoryHarness,
	"redis":  newRedisHarness,
}

func TestStore_FixedWindow(t *testing.T) {
	for name, build := range harnesses {
		t.Run(name, func(t *testing.T) {
			h := build(t)
			ctx := context.Background()
			key := NewKey(ScopeForgotIP, "203.0.113.5").String()

			for i := 0; i < 3; i++ {
				ok, err := h.store.Attempt(ctx, key, 3, time.Hour)
				require.NoError(t, err)
				assert.True(t, ok, "attempt %d", i+1)
			}
			ok, err := h.store.Attempt(ctx, key, 3, time.Hour)
			require.NoError(t, err)
			assert.False(t, ok)

			count, err := h.store.Attempts(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, 3, count, "a rejected attempt is not counted")

			wait, err := h.store.AvailableIn(ctx, key)
			require.NoError(t, err)
			assert.Greater(t, wait, time.Duration(0))
			assert.LessOrEqual(t, wait, time.Hour)

			h.advance(time.Hour + time.Second)
			ok, err = h.store.Attempt(ctx, key, 3, time.Hour)
			require.NoError(t, err)
			assert.True(t, ok, "window resets after decay")
			count, err = h.store.Attempts(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, 1, count)
		})
	}
}

func TestStore_Clear(t *testing.T) {
	for name, build := range harnesses {
		t.Run(name, func(t *testing.T) {
			h := build(t)
			ctx := context.Background()
			key := NewKey(ScopeResetEmail, "Jane@Example.com").String()

			for i := 0; i < 3; i++ {
				_, err := h.store.Attempt(ctx, key, 3, time.Hour)
				require.NoError(t, err)
			}
			require.NoError(t, h.store.Clear(ctx, key))

			count, err := h.store.Attempts(ctx, key)
			require.NoError(t, err)
			assert.Zero(t, count)
			wait, err := h.store.AvailableIn(ctx, key)
			require.NoError(t, err)
			assert.Zero(t, wait)

			ok, err := h.store.Attempt(ctx, key, 3, time.Hour)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestStore_UnknownKey(t *testing.T) {
	for name, build := range harnesses {
		t.Run(name, func(t *testing.T) {
			h := build(t)
			ctx := context.Background()
			count, err := h.store.Attempts(ctx, "missing")
			require.NoError(t, err)
			assert.Zero(t, count)
			wait, err := h.store.AvailableIn(ctx, "missing")
			require.NoError(t, err)
			assert.Zero(t, wait)
			assert.NoError(t, h.store.Clear(ctx, "missing"))
		})
	}
}

func TestStore_ConcurrentAttemptsRespectCeiling(t *testing.T) {
	for name, build := range harnesses {
		t.Run(name, func(t *testing.T) {
			h := build(t)
			ctx := context.Background()
			var granted atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := h.store.Attempt(ctx, "race", 5, time.Minute)
					if err == nil && ok {
						granted.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(5), granted.Load())
		})
	}
}

func TestMemoryStore_Prune(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()
	_, _ = store.Attempt(ctx, "short", 1, time.Minute)
	_, _ = store.Attempt(ctx, "long", 1, time.Hour)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, store.Prune())
	count, _ := store.Attempts(ctx, "long")
	assert.Equal(t, 1, count)
}

func TestNewKey(t *testing.T) {
	assert.Equal(t, "forgot-password-email:jane@example.com", NewKey(ScopeForgotEmail, "  Jane@Example.COM ").String())
	assert.Equal(t, "reset-password-ip:203.0.113.5", Key{Scope: ScopeResetIP, Identity: "203.0.113.5"}.String())
}
