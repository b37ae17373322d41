package redis

import (
	"context"
	"fmt"
	"time"
)

// Window is the state of one fixed rate-limit window after a hit.
type Window struct {
	Allowed    bool
	Count      int64
	RetryAfter time.Duration
}

// RateLimitKey is the counter key for scope.
func RateLimitKey(scope string) string {
	return Key("rate_limit", scope)
}

// HitWindow counts one hit against scope. The first hit opens a window of
// the given length; hits beyond limit are refused until it closes.
func (c *Client) HitWindow(ctx context.Context, scope string, limit int64, window time.Duration) (Window, error) {
	if c == nil || c.rdb == nil {
		return Window{}, errNotConnected
	}
	key := RateLimitKey(scope)
	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return Window{}, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := c.rdb.PExpire(ctx, key, window).Err(); err != nil {
			return Window{}, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	w := Window{Allowed: count <= limit, Count: count}
	if !w.Allowed {
		ttl, err := c.rdb.PTTL(ctx, key).Result()
		if err != nil || ttl <= 0 {
			ttl = window
		}
		w.RetryAfter = ttl
	}
	return w, nil
}
