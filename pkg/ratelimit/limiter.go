package ratelimit

import (
	"context"
	"time"

	"github.com/oarkflow/streamguard/pkg/contracts"
)

// Limiter applies tiers to keys over any RateLimitStore.
type Limiter struct {
	store contracts.RateLimitStore
}

func New(store contracts.RateLimitStore) *Limiter {
	return &Limiter{store: store}
}

func (l *Limiter) Store() contracts.RateLimitStore {
	return l.store
}

// Hit consumes one attempt. When the tier is exhausted it reports how long
// until the window resets.
func (l *Limiter) Hit(ctx context.Context, key Key, tier Tier) (bool, time.Duration, error) {
	ok, err := l.store.Attempt(ctx, key.String(), tier.MaxAttempts, tier.Decay)
	if err != nil {
		return false, 0, err
	}
	if ok {
		return true, 0, nil
	}
	BlockedAttempts.WithLabelValues(key.Scope).Inc()
	wait, err := l.store.AvailableIn(ctx, key.String())
	if err != nil {
		return false, 0, err
	}
	return false, wait, nil
}

// Remaining is the number of attempts left in the current window.
func (l *Limiter) Remaining(ctx context.Context, key Key, tier Tier) (int, error) {
	used, err := l.store.Attempts(ctx, key.String())
	if err != nil {
		return 0, err
	}
	return max(tier.MaxAttempts-used, 0), nil
}

func (l *Limiter) AvailableIn(ctx context.Context, key Key) (time.Duration, error) {
	return l.store.AvailableIn(ctx, key.String())
}

func (l *Limiter) Clear(ctx context.Context, keys ...Key) error {
	for _, key := range keys {
		if err := l.store.Clear(ctx, key.String()); err != nil {
			return err
		}
	}
	return nil
}
