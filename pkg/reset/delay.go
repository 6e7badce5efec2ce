package reset

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	DefaultMinDelay = 100 * time.Millisecond
	DefaultMaxDelay = 300 * time.Millisecond
)

// DelayFunc blocks the current request for a while. It exists so response
// time does not reveal whether an account exists.
type DelayFunc func(ctx context.Context) error

// RandomDelay sleeps for a uniformly distributed duration in [min, max].
func RandomDelay(min, max time.Duration) DelayFunc {
	if max < min {
		min, max = max, min
	}
	return func(ctx context.Context) error {
		d := min
		if span := max - min; span > 0 {
			d += rand.N(span + 1)
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
