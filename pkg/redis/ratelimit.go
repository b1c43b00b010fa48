package redis

import (
	"context"
	"fmt"
	"time"
)

// Window is the state of one fixed-window counter after an increment.
type Window struct {
	Count   int64
	Limit   int64
	ResetIn time.Duration
}

func (w Window) Allowed() bool {
	return w.Count <= w.Limit
}

func (w Window) Remaining() int64 {
	if w.Count >= w.Limit {
		return 0
	}
	return w.Limit - w.Count
}

// RateLimiter counts calls per scope within a fixed window.
type RateLimiter interface {
	FixedWindow(ctx context.Context, scope string, limit int64, window time.Duration) (Window, error)
}

// FixedWindow increments the scope counter. The first hit of a window sets the
// expiry; a counter found without one (a crash between INCR and PEXPIRE) is given
// a fresh window instead of blocking the caller forever.
func (c *Client) FixedWindow(ctx context.Context, scope string, limit int64, window time.Duration) (Window, error) {
	cmd, err := c.commander()
	if err != nil {
		return Window{}, err
	}
	key := Key("rate", scope)

	count, err := cmd.Incr(ctx, key).Result()
	if err != nil {
		return Window{}, fmt.Errorf("incr %s: %w", key, err)
	}
	result := Window{Count: count, Limit: limit, ResetIn: window}
	if count == 1 {
		if err := cmd.PExpire(ctx, key, window).Err(); err != nil {
			return result, fmt.Errorf("expire %s: %w", key, err)
		}
		return result, nil
	}

	ttl, err := cmd.PTTL(ctx, key).Result()
	if err != nil {
		return result, fmt.Errorf("pttl %s: %w", key, err)
	}
	if ttl <= 0 {
		if err := cmd.PExpire(ctx, key, window).Err(); err != nil {
			return result, fmt.Errorf("expire %s: %w", key, err)
		}
		return result, nil
	}
	result.ResetIn = ttl
	return result, nil
}
