package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestBackoff_Deterministic(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{
		MaxAttempts:   5,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			t.Parallel()
			// Identical inputs must produce identical delays: no jitter.
			for range 50 {
				if got := backoff(tt.attempt, cfg); got != tt.want {
					t.Fatalf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
				}
			}
		})
	}
}

func TestBackoff_CappedAtMaxDelay(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{
		MaxAttempts:   20,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      500 * time.Millisecond,
		BackoffFactor: 2.0,
	}

	// Attempt 10 would be 100ms * 2^9 = 51.2s without the cap.
	if got := backoff(10, cfg); got != cfg.MaxDelay {
		t.Errorf("backoff(10) = %v, want %v", got, cfg.MaxDelay)
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	live := context.Background()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name   string
		parent context.Context
		err    error
		want   bool
	}{
		{name: "generic error", parent: live, err: errors.New("boom"), want: true},
		{name: "attempt deadline with live parent", parent: live, err: context.DeadlineExceeded, want: true},
		{name: "cancellation with dead parent", parent: cancelled, err: context.Canceled, want: false},
		{name: "deadline with dead parent", parent: cancelled, err: context.DeadlineExceeded, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := retryable(tt.parent, tt.err); got != tt.want {
				t.Errorf("retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BackoffFactor: 2.0,
	}

	attempts := 0
	got, err := Retry(context.Background(), cfg, "flaky-op", func(context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("not yet")
		}
		return "done", nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v, want nil", err)
	}
	if got != "done" {
		t.Errorf("Retry() = %q, want %q", got, "done")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_ExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BackoffFactor: 2.0,
	}

	attempts := 0
	_, err := Retry(context.Background(), cfg, "doomed-op", func(context.Context) (int, error) {
		attempts++
		return 0, fmt.Errorf("failure %d", attempts)
	})

	if attempts != 3 {
		t.Errorf("attempts = %d, want exactly 3", attempts)
	}
	if err == nil || err.Error() != "failure 3" {
		t.Errorf("Retry() error = %v, want the final attempt's error", err)
	}
}

func TestRetry_BackoffScheduleObserved(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}

	var stamps []time.Time
	_, _ = Retry(context.Background(), cfg, "timed-op", func(context.Context) (int, error) {
		stamps = append(stamps, time.Now())
		return 0, errors.New("keep going")
	})

	if len(stamps) != 3 {
		t.Fatalf("attempts = %d, want 3", len(stamps))
	}

	// Delays are lower-bounded by the schedule; generous upper bounds absorb
	// scheduler noise.
	d1 := stamps[1].Sub(stamps[0])
	d2 := stamps[2].Sub(stamps[1])
	if d1 < 100*time.Millisecond || d1 > 180*time.Millisecond {
		t.Errorf("first backoff = %v, want ~100ms", d1)
	}
	if d2 < 200*time.Millisecond || d2 > 350*time.Millisecond {
		t.Errorf("second backoff = %v, want ~200ms", d2)
	}
}

func TestRetry_InvalidMaxAttempts(t *testing.T) {
	t.Parallel()

	_, err := Retry(context.Background(), RetryConfig{MaxAttempts: 0}, "noop", func(context.Context) (int, error) {
		t.Error("op must not run with MaxAttempts = 0")
		return 0, nil
	})
	if err == nil {
		t.Fatal("Retry() error = nil, want config error")
	}
}

func TestRetry_ContextCancelDuringBackoff(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{
		MaxAttempts:   5,
		InitialDelay:  time.Second,
		MaxDelay:      time.Second,
		BackoffFactor: 1.0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		// Cancel while the first backoff sleep is pending.
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := Retry(ctx, cfg, "cancelled-op", func(context.Context) (int, error) {
		attempts++
		return 0, errors.New("fail")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() error = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry after cancel)", attempts)
	}
}

func TestRetry_OpReturningParentContextErrorStops(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{
		MaxAttempts:   5,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 2.0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	_, err := Retry(ctx, cfg, "observing-op", func(ctx context.Context) (int, error) {
		attempts++
		cancel()
		return 0, ctx.Err()
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() error = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetryWithTimeout_TimeoutIsRetryable(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}

	attempts := 0
	got, err := RetryWithTimeout(context.Background(), cfg, 30*time.Millisecond, "slow-then-fast",
		func(ctx context.Context) (string, error) {
			attempts++
			if attempts == 1 {
				// Overrun the attempt timeout; the retry loop must move on.
				select {
				case <-time.After(500 * time.Millisecond):
				case <-ctx.Done():
					return "", ctx.Err()
				}
			}
			return "recovered", nil
		})
	if err != nil {
		t.Fatalf("RetryWithTimeout() error = %v, want nil", err)
	}
	if got != "recovered" {
		t.Errorf("RetryWithTimeout() = %q, want %q", got, "recovered")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetryWithTimeout_AbandonsUncooperativeAttempt(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{
		MaxAttempts:   2,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 2.0,
	}

	release := make(chan struct{})
	var attempts atomic.Int32
	got, err := RetryWithTimeout(context.Background(), cfg, 20*time.Millisecond, "stuck-once",
		func(context.Context) (int, error) {
			if attempts.Add(1) == 1 {
				// Ignores its context entirely.
				<-release
				return 0, nil
			}
			return 42, nil
		})
	close(release)

	if err != nil {
		t.Fatalf("RetryWithTimeout() error = %v, want nil", err)
	}
	if got != 42 {
		t.Errorf("RetryWithTimeout() = %d, want 42", got)
	}
}
