// Package notify implements outbound notification delivery. The Deliverer
// wraps a delivery gateway with the outbound middleware stack — circuit
// breaker, then rate throttle, then retry — and the Notifier consumes
// domain events and turns them into notifications.
//
// Construction:
//
//	deliverer := notify.NewDeliverer(cfg, notify.NewGateway(gwCfg), metrics, logger)
//	notifier := notify.NewNotifier(b, deliverer, store, users, logger)
//	notifier.Start(registry)
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/jsamuelsen11/orderflow/internal/domain"
	"github.com/jsamuelsen11/orderflow/internal/platform/resilience"
	"github.com/jsamuelsen11/orderflow/internal/platform/telemetry"
	"github.com/jsamuelsen11/orderflow/internal/ports"
)

// Compile-time interface checks.
var (
	_ ports.Deliverer     = (*Deliverer)(nil)
	_ ports.HealthChecker = (*Deliverer)(nil)
)

// Sender is the raw delivery transport beneath the middleware stack.
type Sender interface {
	Send(ctx context.Context, n ports.Notification) error
}

// Config carries the delivery middleware settings.
type Config struct {
	// RatePerSecond throttles outbound sends; zero disables the throttle.
	RatePerSecond float64
	Burst         int

	// Retry is applied per delivery, inside the breaker, so repeated
	// failures of one notification count once against the breaker.
	Retry resilience.RetryConfig

	// BreakerMaxFailures consecutive failed deliveries open the breaker;
	// after BreakerTimeout it lets BreakerHalfOpenLimit probes through.
	BreakerMaxFailures   int
	BreakerTimeout       time.Duration
	BreakerHalfOpenLimit int
}

// Deliverer sends notifications through the middleware stack:
// circuit breaker → rate throttle → retry → transport.
type Deliverer struct {
	sender   Sender
	breaker  *gobreaker.CircuitBreaker[struct{}]
	throttle *rate.Limiter // nil when throttling is disabled
	retryCfg resilience.RetryConfig
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// NewDeliverer creates a Deliverer around the given transport.
func NewDeliverer(cfg Config, sender Sender, metrics *telemetry.Metrics, logger *slog.Logger) *Deliverer {
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "delivery-gateway",
		MaxRequests: toUint32(cfg.BreakerHalfOpenLimit),
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	var throttle *rate.Limiter
	if cfg.RatePerSecond > 0 {
		throttle = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst)
	}

	return &Deliverer{
		sender:   sender,
		breaker:  cb,
		throttle: throttle,
		retryCfg: cfg.Retry,
		metrics:  metrics,
		logger:   logger,
	}
}

// Deliver sends one notification through the full stack. A rejection by the
// open breaker surfaces as domain.ErrUnavailable.
func (d *Deliverer) Deliver(ctx context.Context, n ports.Notification) error {
	start := time.Now()

	_, err := d.breaker.Execute(func() (struct{}, error) {
		if d.throttle != nil {
			if err := d.throttle.Wait(ctx); err != nil {
				return struct{}{}, fmt.Errorf("delivery throttle: %w", err)
			}
		}

		_, err := resilience.Retry(ctx, d.retryCfg, "Deliver", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, d.sender.Send(ctx, n)
		})
		return struct{}{}, err
	})

	d.record(ctx, start, err)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("delivery gateway refused: %w", domain.ErrUnavailable)
	}
	return err
}

// record captures delivery duration and outcome. Nil-safe on metrics.
func (d *Deliverer) record(ctx context.Context, start time.Time, err error) {
	if d.metrics == nil {
		return
	}

	result := "success"
	if err != nil {
		result = "failure"
	}
	attrs := metric.WithAttributes(telemetry.AttrResult.String(result))
	d.metrics.DeliveryDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	d.metrics.DeliveryTotal.Add(ctx, 1, attrs)
}

// Name implements ports.HealthChecker.
func (d *Deliverer) Name() string {
	return "delivery-gateway"
}

// HealthCheck reports gateway availability from the breaker state; no
// delivery is attempted. This reports downstream status, not service
// readiness.
func (d *Deliverer) HealthCheck(_ context.Context) error {
	switch state := d.breaker.State(); state {
	case gobreaker.StateClosed:
		return nil
	case gobreaker.StateHalfOpen:
		return errors.New("delivery-gateway: degraded (circuit breaker half-open)")
	case gobreaker.StateOpen:
		return errors.New("delivery-gateway: failing (circuit breaker open)")
	default:
		return fmt.Errorf("delivery-gateway: unknown circuit breaker state %v", state)
	}
}

// toUint32 converts a non-negative int to uint32, clamping negatives to 0.
func toUint32(v int) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v)
}
