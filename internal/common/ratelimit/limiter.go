// Package ratelimit implements a fixed-window rate limiter backed by Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfterSec returns the whole seconds until the window resets.
func (r Result) RetryAfterSec() int {
	secs := int(time.Until(r.ResetAt).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Limiter counts requests per client per endpoint in fixed windows.
type Limiter struct {
	client *redis.Client
	window time.Duration
}

func NewLimiter(client *redis.Client, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		window: window,
	}
}

// Allow increments the counter for the client/endpoint pair and reports
// whether the request fits within the limit for the current window.
func (l *Limiter) Allow(ctx context.Context, endpoint, clientID string, limit int) (Result, error) {
	now := time.Now()
	windowStart := now.Truncate(l.window)
	key := fmt.Sprintf("ratelimit:%s:%s:%d", endpoint, clientID, windowStart.Unix())
	resetAt := windowStart.Add(l.window)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit check failed: %w", err)
	}

	count := int(incr.Val())
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
