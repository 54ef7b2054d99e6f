package session

import (
	"testing"
	"time"
)

func newTestLimiter() (*RateLimiter, *time.Time) {
	clock := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	r := NewRateLimiter()
	r.now = func() time.Time { return clock }
	return r, &clock
}

func TestRateLimiterFixedWindow(t *testing.T) {
	r, _ := newTestLimiter()

	for i := int64(1); i <= 5; i++ {
		d := r.CheckAndIncrement("api:10.0.0.1", time.Minute, 5)
		if !d.Allowed {
			t.Fatalf("request %d denied, want allowed", i)
		}
		if d.Remaining != 5-i {
			t.Errorf("request %d: Remaining = %d, want %d", i, d.Remaining, 5-i)
		}
	}

	d := r.CheckAndIncrement("api:10.0.0.1", time.Minute, 5)
	if d.Allowed {
		t.Fatal("6th request allowed, want denied")
	}
	if d.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", d.Remaining)
	}
}

func TestRateLimiterWindowLapse(t *testing.T) {
	r, clock := newTestLimiter()

	for i := 0; i < 6; i++ {
		r.CheckAndIncrement("k", time.Minute, 5)
	}
	if d := r.CheckAndIncrement("k", time.Minute, 5); d.Allowed {
		t.Fatal("over-limit request allowed")
	}

	*clock = clock.Add(61 * time.Second)
	d := r.CheckAndIncrement("k", time.Minute, 5)
	if !d.Allowed {
		t.Fatal("fresh window should allow")
	}
	if want := clock.Add(time.Minute); !d.ResetAt.Equal(want) {
		t.Errorf("ResetAt = %v, want %v", d.ResetAt, want)
	}
}

func TestRateLimiterKeysIndependent(t *testing.T) {
	r, _ := newTestLimiter()

	for i := 0; i < 5; i++ {
		r.CheckLoginAttempt("10.0.0.1", 15*time.Minute, 5)
	}
	if d := r.CheckLoginAttempt("10.0.0.1", 15*time.Minute, 5); d.Allowed {
		t.Fatal("exhausted IP allowed")
	}
	if d := r.CheckLoginAttempt("10.0.0.2", 15*time.Minute, 5); !d.Allowed {
		t.Fatal("different IP denied")
	}
	// General API throttling for the same caller uses its own key.
	if d := r.CheckAndIncrement("api:10.0.0.1", time.Minute, 120); !d.Allowed {
		t.Fatal("api window affected by login window")
	}
}

func TestRateLimiterReset(t *testing.T) {
	r, _ := newTestLimiter()

	for i := 0; i < 6; i++ {
		r.CheckLoginAttempt("10.0.0.1", 15*time.Minute, 5)
	}
	r.Reset("login:10.0.0.1")
	if d := r.CheckLoginAttempt("10.0.0.1", 15*time.Minute, 5); !d.Allowed {
		t.Fatal("reset window should allow")
	}
}

func TestRateLimiterSweep(t *testing.T) {
	r, clock := newTestLimiter()

	r.CheckAndIncrement("short", time.Minute, 5)
	r.CheckAndIncrement("long", time.Hour, 5)

	*clock = clock.Add(2 * time.Minute)
	if n := r.Sweep(); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}
	if _, ok := r.windows["long"]; !ok {
		t.Error("unexpired window swept")
	}
}
