package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jsamuelsen11/orderflow/internal/platform/logging"
)

// RetryConfig controls the backoff schedule. Delays start at InitialDelay
// and are multiplied by BackoffFactor after every failed attempt, capped at
// MaxDelay (uncapped when zero). No jitter is applied: a given config always
// produces the same schedule, which keeps retry timing testable and
// predictable.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// Retry invokes op until it succeeds, making exactly cfg.MaxAttempts
// invocations in the worst case. The error from the final attempt is the
// one returned; earlier failures are only logged. name identifies the
// operation in retry logs.
func Retry[T any](ctx context.Context, cfg RetryConfig, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if cfg.MaxAttempts <= 0 {
		return zero, fmt.Errorf("resilience: MaxAttempts must be >= 1, got %d", cfg.MaxAttempts)
	}

	var lastErr error

	for attempt := range cfg.MaxAttempts {
		if attempt > 0 {
			if err := waitForRetry(ctx, cfg, name, attempt, lastErr); err != nil {
				return zero, err
			}
		}

		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !retryable(ctx, err) {
			break
		}
	}

	return zero, lastErr
}

// RetryWithTimeout behaves like Retry with each attempt additionally
// bounded by attemptTimeout. An attempt that overruns its timeout is
// abandoned and counts as a retryable failure; the caller's own context
// still bounds the call as a whole.
func RetryWithTimeout[T any](ctx context.Context, cfg RetryConfig, attemptTimeout time.Duration, name string, op func(ctx context.Context) (T, error)) (T, error) {
	return Retry(ctx, cfg, name, func(ctx context.Context) (T, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		defer cancel()

		type result struct {
			v   T
			err error
		}
		resCh := make(chan result, 1)
		go func() {
			v, err := op(attemptCtx)
			resCh <- result{v: v, err: err}
		}()

		select {
		case r := <-resCh:
			return r.v, r.err
		case <-attemptCtx.Done():
			var zero T
			return zero, attemptCtx.Err()
		}
	})
}

// retryable reports whether err deserves another attempt. Failures caused
// by the caller's own context are final; a lapsed per-attempt deadline is
// retryable as long as the caller's context is still live. Everything else
// is retried.
func retryable(parent context.Context, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return parent.Err() == nil
	}
	return true
}

// waitForRetry sleeps out the backoff before the given 1-indexed retry
// attempt, logging the schedule at WARN. Returns early if the context ends
// first.
func waitForRetry(ctx context.Context, cfg RetryConfig, name string, attempt int, lastErr error) error {
	delay := backoff(attempt, cfg)

	logger := logging.FromContext(ctx)
	logger.WarnContext(ctx, "retrying operation",
		slog.String("operation", name),
		slog.Int("attempt", attempt+1),
		slog.Int("max_attempts", cfg.MaxAttempts),
		slog.Duration("backoff", delay),
		slog.Any("error", lastErr),
	)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// backoff returns the delay preceding the given retry attempt. attempt is
// 1-indexed: attempt 1 is the first retry after the initial failure.
func backoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt-1))

	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	return time.Duration(delay)
}
