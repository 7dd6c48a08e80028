// Package memory provides in-memory store adapters standing in for a real
// database. Stores simulate nondeterministic I/O latency and can inject
// transient failures, so the application layer exercises the same retry and
// timeout paths it would against a network-backed store.
package memory

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jsamuelsen11/orderflow/internal/domain"
)

// Config controls the simulated behavior shared by all stores.
type Config struct {
	// Latency is the base delay applied to every store call.
	Latency time.Duration
	// LatencyJitter adds up to this much extra delay, uniformly distributed.
	LatencyJitter time.Duration
	// FailureRate is the probability in [0, 1) that a call fails with a
	// transient error after its latency has elapsed.
	FailureRate float64
}

// simulate blocks for the configured latency, honoring ctx, then rolls for
// failure injection. It returns the context error when the caller gives up
// first, a wrapped domain.ErrTransient on an injected failure, or nil.
func (c Config) simulate(ctx context.Context) error {
	delay := c.Latency
	if c.LatencyJitter > 0 {
		delay += rand.N(c.LatencyJitter)
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if c.FailureRate > 0 && rand.Float64() < c.FailureRate {
		return fmt.Errorf("simulated store failure: %w", domain.ErrTransient)
	}
	return nil
}
