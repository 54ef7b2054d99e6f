// internal/pkg/session/rate_limiter.go
package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Decision is the outcome of a single rate-limit check.
type Decision struct {
	Allowed   bool
	Remaining int64
	ResetAt   time.Time
}

type window struct {
	count   int64
	resetAt time.Time
}

// RateLimiter is a fixed-window per-key counter, same in-memory shape as the
// session registry: map plus TTL-based cleanup.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window

	// injectable clock for tests
	now func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// CheckAndIncrement counts one request against the key's current window.
// A fresh window starts on the first request or once the previous one lapses.
func (r *RateLimiter) CheckAndIncrement(key string, windowLen time.Duration, max int64) Decision {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(windowLen)}
		r.windows[key] = w
	}

	w.count++
	remaining := max - w.count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   w.count <= max,
		Remaining: remaining,
		ResetAt:   w.resetAt,
	}
}

// CheckLoginAttempt applies the stricter login policy keyed by purpose and
// caller IP, independent of general API throttling for the same caller.
func (r *RateLimiter) CheckLoginAttempt(ip string, windowLen time.Duration, max int64) Decision {
	return r.CheckAndIncrement(fmt.Sprintf("login:%s", ip), windowLen, max)
}

// Reset drops the window for a key (e.g. after a successful login).
func (r *RateLimiter) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.windows, key)
}

// Sweep removes lapsed windows to bound memory; returns the number removed.
func (r *RateLimiter) Sweep() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, w := range r.windows {
		if now.After(w.resetAt) {
			delete(r.windows, key)
			removed++
		}
	}
	return removed
}

// Run sweeps lapsed windows on the given interval until ctx ends. The
// interval should match the longest window in use.
func (r *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
