// Package resilience provides the retry executor and the request limiter
// used around store calls and outbound work. Both are plain values
// constructed explicitly and passed by reference; neither keeps package
// state.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrAdmission marks failures to get past the limiter before the operation
// started, so callers can tell an admission timeout from an operation
// failure. It always wraps the underlying context error.
var ErrAdmission = errors.New("rate limit admission aborted")

// Limiter bounds work two ways: a permit semaphore caps in-flight
// executions at maxRequests, and a trailing-window timestamp list smooths
// the admission rate. When the window is full, the caller waits out the
// remainder of the oldest entry's window and then the whole window is
// cleared — admission restarts from an empty list rather than sliding
// entry by entry.
type Limiter struct {
	maxRequests int
	window      time.Duration
	permits     chan struct{}

	mu         sync.Mutex
	timestamps []time.Time
}

// NewLimiter creates a limiter admitting at most maxRequests executions per
// trailing window. Panics if maxRequests < 1 or window <= 0; both are
// construction-time configuration errors.
func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	if maxRequests < 1 {
		panic(fmt.Sprintf("resilience: maxRequests must be >= 1, got %d", maxRequests))
	}
	if window <= 0 {
		panic(fmt.Sprintf("resilience: window must be positive, got %v", window))
	}
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		permits:     make(chan struct{}, maxRequests),
		timestamps:  make([]time.Time, 0, maxRequests),
	}
}

// Execute runs op under the limiter: it holds one of the maxRequests
// concurrency permits for the duration of op and admits the call against
// the trailing window first. Admission failures wrap ErrAdmission.
func Execute[T any](ctx context.Context, l *Limiter, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if err := l.acquire(ctx); err != nil {
		return zero, fmt.Errorf("%w: %w", ErrAdmission, err)
	}
	defer l.release()

	if err := l.admit(ctx); err != nil {
		return zero, err
	}

	return op(ctx)
}

// acquire obtains a concurrency permit, honoring context cancellation. An
// already-expired context fails before a free permit can win the select.
func (l *Limiter) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case l.permits <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Limiter) release() {
	<-l.permits
}

// admit enforces the trailing-window quota. Expired timestamps are pruned
// first; if the window is still full, the caller waits for the oldest
// entry's window to lapse and then clears the entire list before recording
// itself. The clear is deliberate: admission restarts from an empty window
// instead of sliding, so a burst that follows a full window is admitted
// together.
func (l *Limiter) admit(ctx context.Context) error {
	l.mu.Lock()
	now := time.Now()
	l.pruneLocked(now)

	if len(l.timestamps) >= l.maxRequests {
		wait := l.window - now.Sub(l.timestamps[0])
		l.mu.Unlock()

		if wait > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", ErrAdmission, ctx.Err())
			case <-time.After(wait):
			}
		}

		l.mu.Lock()
		l.timestamps = l.timestamps[:0]
	}

	l.timestamps = append(l.timestamps, time.Now())
	l.mu.Unlock()
	return nil
}

// pruneLocked drops timestamps older than the window. Must be called with
// l.mu held. Timestamps are appended in order, so only a front prefix can
// be expired.
func (l *Limiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.timestamps) && !l.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.timestamps = append(l.timestamps[:0], l.timestamps[i:]...)
	}
}

// LimiterStatus is a point-in-time view of the limiter.
type LimiterStatus struct {
	CurrentRequests  int
	MaxRequests      int
	AvailablePermits int
}

// Status reports the current window occupancy and free permits.
func (l *Limiter) Status() LimiterStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(time.Now())

	return LimiterStatus{
		CurrentRequests:  len(l.timestamps),
		MaxRequests:      l.maxRequests,
		AvailablePermits: cap(l.permits) - len(l.permits),
	}
}

// Reset clears the trailing window. In-flight executions keep their permits.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timestamps = l.timestamps[:0]
}
