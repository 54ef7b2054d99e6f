package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func serializationErr() error {
	return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
}

func deadlockErr() error {
	return &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}
}

func fixedRand(v float64) func() float64 {
	return func() float64 { return v }
}

func TestRetryOnConflictEventualSuccess(t *testing.T) {
	attempts := 0
	err := RetryOnConflict(context.Background(), 3, time.Microsecond, fixedRand(0), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return serializationErr()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RetryOnConflict: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryOnConflictExhaustsRetries(t *testing.T) {
	attempts := 0
	err := RetryOnConflict(context.Background(), 3, time.Microsecond, fixedRand(0), func(ctx context.Context) error {
		attempts++
		return deadlockErr()
	})
	if !IsRetryable(err) {
		t.Fatalf("last error should be the conflict, got %v", err)
	}
	if attempts != 4 {
		t.Fatalf("attempts = %d, want 4 (initial + 3 retries)", attempts)
	}
}

func TestRetryOnConflictNonRetryableStopsImmediately(t *testing.T) {
	boom := errors.New("constraint violation")
	attempts := 0
	err := RetryOnConflict(context.Background(), 3, time.Microsecond, fixedRand(0), func(ctx context.Context) error {
		attempts++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestRetryOnConflictWrappedConflict(t *testing.T) {
	attempts := 0
	err := RetryOnConflict(context.Background(), 2, time.Microsecond, fixedRand(0), func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return fmt.Errorf("failed to commit transaction: %w", serializationErr())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RetryOnConflict: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestRetryOnConflictHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryOnConflict(ctx, 3, time.Hour, fixedRand(0), func(ctx context.Context) error {
		return serializationErr()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization failure", serializationErr(), true},
		{"deadlock", deadlockErr(), true},
		{"wrapped serialization", fmt.Errorf("tx: %w", serializationErr()), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBackoffDelay(t *testing.T) {
	base := 100 * time.Millisecond

	// jitter pinned to the lower bound: delay is base * 2^attempt * 0.5
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 50 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := BackoffDelay(tt.attempt, base, fixedRand(0)); got != tt.want {
			t.Errorf("BackoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}

	// jitter just under the upper bound never exceeds the full delay
	if got := BackoffDelay(2, base, fixedRand(0.999)); got >= 400*time.Millisecond {
		t.Errorf("BackoffDelay with max jitter = %v, want < 400ms", got)
	}
}
