// internal/common/ratelimit/memory.go
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryLimiter is the single-process fallback used when Redis is not
// configured or unreachable. Same fixed-window semantics as Limiter,
// but counts are local to this replica.
type MemoryLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	counts  map[string]int
	lastGC  time.Time
	nowFunc func() time.Time
}

func NewMemoryLimiter(window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		window:  window,
		counts:  make(map[string]int),
		nowFunc: time.Now,
	}
}

// Allow increments the in-process counter for the client/endpoint pair.
// It never returns an error.
func (l *MemoryLimiter) Allow(ctx context.Context, endpoint, clientID string, limit int) (Result, error) {
	now := l.nowFunc()
	windowStart := now.Truncate(l.window)
	key := fmt.Sprintf("%s:%s:%d", endpoint, clientID, windowStart.Unix())
	resetAt := windowStart.Add(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	// Expired windows accumulate one key per window; sweep them when a
	// new window opens.
	if now.Sub(l.lastGC) >= l.window {
		suffix := fmt.Sprintf(":%d", windowStart.Unix())
		for k := range l.counts {
			if !strings.HasSuffix(k, suffix) {
				delete(l.counts, k)
			}
		}
		l.lastGC = now
	}

	l.counts[key]++
	count := l.counts[key]

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

