package notify

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jsamuelsen11/orderflow/internal/domain"
	"github.com/jsamuelsen11/orderflow/internal/ports"
)

// Compile-time interface check.
var _ Sender = (*Gateway)(nil)

// GatewayConfig controls the simulated downstream behavior.
type GatewayConfig struct {
	// Latency is the base delay applied to every send.
	Latency time.Duration
	// LatencyJitter adds up to this much extra delay, uniformly distributed.
	LatencyJitter time.Duration
	// FailureRate is the probability in [0, 1) that a send fails with a
	// transient error after its latency has elapsed.
	FailureRate float64
}

// Gateway is a simulated delivery transport standing in for an external
// email or push provider. It exists so the breaker, throttle, and retry
// stack above it has realistic latency and failures to work against.
type Gateway struct {
	cfg GatewayConfig
}

// NewGateway creates a simulated delivery transport.
func NewGateway(cfg GatewayConfig) *Gateway {
	return &Gateway{cfg: cfg}
}

// Send implements Sender.
func (g *Gateway) Send(ctx context.Context, _ ports.Notification) error {
	delay := g.cfg.Latency
	if g.cfg.LatencyJitter > 0 {
		delay += rand.N(g.cfg.LatencyJitter)
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

	if g.cfg.FailureRate > 0 && rand.Float64() < g.cfg.FailureRate {
		return fmt.Errorf("simulated gateway failure: %w", domain.ErrTransient)
	}
	return nil
}
