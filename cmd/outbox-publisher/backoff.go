package main

import (
	"context"
	"math/rand/v2"
	"time"
)

// jitterWindow spreads replicas that went idle at the same moment.
const jitterWindow = 250 * time.Millisecond

// backoff doubles the idle wait after failed batches, up to max.
type backoff struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(base, max time.Duration) *backoff {
	return &backoff{base: base, max: max, current: base}
}

func (b *backoff) grow() {
	b.current = min(b.current*2, b.max)
}

func (b *backoff) reset() {
	b.current = b.base
}

func (b *backoff) next() time.Duration {
	if b.current <= 0 {
		return 0
	}
	return b.current + rand.N(jitterWindow)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
