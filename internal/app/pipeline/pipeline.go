// Package pipeline implements the order processing pipeline: a bounded FIFO
// hand-off queue drained by a single consumer worker running on the
// background execution domain.
//
// Producers call Submit, which blocks while the queue is full (backpressure)
// and fails once the pipeline has shut down. The worker dequeues strictly in
// arrival order and processes one order at a time; within an order, the
// inventory and payment checks run concurrently. A failure or panic while
// processing one order is converted into an error state and event for that
// order only — the worker moves on to the next item. Only an escape of the
// worker loop itself is fatal, and that surfaces through Healthy and the
// readiness probe.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen11/orderflow/internal/app/bus"
	"github.com/jsamuelsen11/orderflow/internal/domain"
	"github.com/jsamuelsen11/orderflow/internal/domain/order"
	"github.com/jsamuelsen11/orderflow/internal/platform/scopes"
	"github.com/jsamuelsen11/orderflow/internal/platform/telemetry"
	"github.com/jsamuelsen11/orderflow/internal/ports"
)

// ErrClosed is returned by Submit after Shutdown. Callers map it to a
// service-unavailable response; orders already queued still drain.
var ErrClosed = errors.New("order pipeline closed")

// Progress milestones published to the order state cell while an order is
// being processed. Submission publishes 0; completion publishes 100.
const (
	progressStarted  = 30
	progressChecked  = 60
	progressFinished = 90
)

// CheckFunc verifies one aspect of an order (inventory on hand, payment
// authorization). A false result or an error fails the order.
type CheckFunc func(ctx context.Context, o order.Order) (bool, error)

// Config carries the pipeline's construction-time settings.
type Config struct {
	// QueueCapacity bounds the submission queue. A full queue blocks
	// producers instead of dropping orders.
	QueueCapacity int
	// CheckTimeout bounds each verification sub-task independently. A
	// lapsed check fails the order, not its sibling check.
	CheckTimeout time.Duration
	// ProgressDelay paces the work between progress milestones, simulating
	// the fulfillment steps a real backend would perform.
	ProgressDelay time.Duration
}

// Pipeline is the bounded producer/consumer pipeline. Construct with New,
// start the worker with Start, stop admission with Shutdown.
type Pipeline struct {
	cfg     Config
	store   ports.OrderStore
	bus     *bus.Bus
	logger  *slog.Logger
	metrics *telemetry.Metrics

	inventory CheckFunc
	payment   CheckFunc

	queue chan order.Order
	done  chan struct{}

	closeOnce sync.Once
	startOnce sync.Once

	running   atomic.Bool
	processed atomic.Int64
	failed    atomic.Int64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithChecks replaces the simulated inventory and payment checks. Tests use
// this to script check outcomes.
func WithChecks(inventory, payment CheckFunc) Option {
	return func(p *Pipeline) {
		p.inventory = inventory
		p.payment = payment
	}
}

// WithMetrics records pipeline activity on the given instruments.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New creates a pipeline. The worker is not running until Start.
func New(cfg Config, store ports.OrderStore, b *bus.Bus, logger *slog.Logger, opts ...Option) *Pipeline {
	if cfg.QueueCapacity < 1 {
		panic(fmt.Sprintf("pipeline: QueueCapacity must be >= 1, got %d", cfg.QueueCapacity))
	}

	p := &Pipeline{
		cfg:       cfg,
		store:     store,
		bus:       b,
		logger:    logger,
		queue:     make(chan order.Order, cfg.QueueCapacity),
		done:      make(chan struct{}),
		inventory: simulatedCheck("inventory", cfg.ProgressDelay),
		payment:   simulatedCheck("payment", cfg.ProgressDelay),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the consumer worker on the registry's background domain.
// Calling Start more than once is a no-op: the pipeline runs a single
// consumer so orders begin processing in strict submission order.
func (p *Pipeline) Start(registry *scopes.Registry) {
	p.startOnce.Do(func() {
		p.running.Store(true)
		registry.Domain(scopes.KindBackground).Go("order-pipeline", func(ctx context.Context) error {
			defer p.running.Store(false)
			return p.run(ctx)
		})
	})
}

// Submit enqueues o for processing, blocking while the queue is full. On
// acceptance the order state cell transitions to Processing with progress 0.
// Returns ErrClosed after Shutdown and the context error if the caller gives
// up while waiting for queue space.
func (p *Pipeline) Submit(ctx context.Context, o order.Order) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}

	select {
	case p.queue <- o:
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", domain.ErrAdmissionTimeout, ctx.Err())
	}

	p.bus.OrderState.Update(order.Processing(o.ID, 0))

	if p.metrics != nil {
		p.metrics.OrdersSubmitted.Add(ctx, 1)
		p.metrics.QueueDepth.Add(ctx, 1)
	}
	return nil
}

// Shutdown stops admission. Idempotent. Orders already queued drain; the
// worker exits once the queue is empty.
func (p *Pipeline) Shutdown() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.logger.Info("order pipeline shutting down",
			slog.Int("queued", len(p.queue)),
		)
	})
}

// Healthy reports whether the consumer worker is alive. False before Start,
// after drain-out, and after a fatal worker escape.
func (p *Pipeline) Healthy() bool {
	return p.running.Load()
}

// Name implements ports.HealthChecker.
func (p *Pipeline) Name() string {
	return "order-pipeline"
}

// HealthCheck implements ports.HealthChecker. The pipeline is unhealthy when
// its worker is not running: an operator restart is the only recovery.
func (p *Pipeline) HealthCheck(_ context.Context) error {
	if !p.running.Load() {
		return errors.New("order-pipeline: worker not running")
	}
	return nil
}

// Status reports queue occupancy and processing counters.
func (p *Pipeline) Status() ports.PipelineStatus {
	return ports.PipelineStatus{
		Running:       p.running.Load(),
		QueueDepth:    len(p.queue),
		QueueCapacity: cap(p.queue),
		Processed:     p.processed.Load(),
		Failed:        p.failed.Load(),
	}
}

// run is the consumer loop: strict FIFO, one order at a time. Each dequeued
// item is handled inside its own failure boundary, so nothing an individual
// order does can end this loop.
func (p *Pipeline) run(ctx context.Context) error {
	p.logger.Info("order pipeline worker started",
		slog.Int("queue_capacity", cap(p.queue)),
	)

	for {
		select {
		case o := <-p.queue:
			p.handle(ctx, o)
		case <-p.done:
			p.drain(ctx)
			p.logger.Info("order pipeline worker stopped",
				slog.Int64("processed", p.processed.Load()),
				slog.Int64("failed", p.failed.Load()),
			)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// drain processes whatever was queued before shutdown closed admission.
func (p *Pipeline) drain(ctx context.Context) {
	for {
		select {
		case o := <-p.queue:
			p.handle(ctx, o)
		default:
			return
		}
	}
}

// handle processes one order behind a recover boundary. An error or panic is
// folded into the order's failure path; the worker loop never sees it.
func (p *Pipeline) handle(ctx context.Context, o order.Order) {
	if p.metrics != nil {
		p.metrics.QueueDepth.Add(ctx, -1)
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("processing order %d: panic: %v", o.ID, r)
			}
		}()
		return p.process(ctx, o)
	}()

	if err != nil {
		p.fail(ctx, o, err)
		return
	}

	p.processed.Add(1)
	if p.metrics != nil {
		p.metrics.OrdersProcessed.Add(ctx, 1,
			metric.WithAttributes(telemetry.AttrResult.String("completed")))
	}
}

// process drives one order from PENDING to a terminal status, publishing
// progress milestones along the way. The two verification checks run
// concurrently; both must pass.
func (p *Pipeline) process(ctx context.Context, o order.Order) error {
	p.logger.InfoContext(ctx, "processing order",
		slog.Int64("order_id", o.ID),
		slog.Int64("user_id", o.UserID),
		slog.Float64("amount", o.Amount),
	)

	if _, err := p.store.UpdateStatus(ctx, o.ID, order.StatusProcessing); err != nil {
		return fmt.Errorf("marking order %d processing: %w", o.ID, err)
	}
	if err := p.advance(ctx, o.ID, progressStarted); err != nil {
		return err
	}

	if err := p.runChecks(ctx, o); err != nil {
		return err
	}
	if err := p.advance(ctx, o.ID, progressChecked); err != nil {
		return err
	}

	if err := p.advance(ctx, o.ID, progressFinished); err != nil {
		return err
	}

	updated, err := p.store.UpdateStatus(ctx, o.ID, order.StatusCompleted)
	if err != nil {
		return fmt.Errorf("marking order %d completed: %w", o.ID, err)
	}

	p.bus.OrderState.Update(order.Completed(o.ID, true,
		fmt.Sprintf("order %d fulfilled", o.ID)))
	p.bus.Publish(domain.OrderStatusChanged{
		OrderID:   o.ID,
		OldStatus: order.StatusProcessing.String(),
		NewStatus: updated.Status.String(),
		At:        time.Now().UTC(),
	})

	return nil
}

// runChecks launches the inventory and payment checks as two concurrent
// sub-tasks, each bounded by its own timeout, and waits for both. A panic
// inside a check fails that check, not the worker.
func (p *Pipeline) runChecks(ctx context.Context, o order.Order) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.runCheck(gctx, "inventory", p.inventory, o)
	})
	g.Go(func() error {
		return p.runCheck(gctx, "payment", p.payment, o)
	})

	return g.Wait()
}

// runCheck executes one verification with a per-check deadline.
func (p *Pipeline) runCheck(ctx context.Context, name string, check CheckFunc, o order.Order) (err error) {
	if p.cfg.CheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.CheckTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s check for order %d: panic: %v", name, o.ID, r)
		}
	}()

	ok, err := check(ctx, o)
	if err != nil {
		return fmt.Errorf("%s check for order %d: %w", name, o.ID, err)
	}
	if !ok {
		return fmt.Errorf("%s check rejected order %d", name, o.ID)
	}
	return nil
}

// advance publishes one progress milestone, pacing with the configured
// delay first.
func (p *Pipeline) advance(ctx context.Context, orderID int64, progress int) error {
	if p.cfg.ProgressDelay > 0 {
		select {
		case <-time.After(p.cfg.ProgressDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.bus.OrderState.Update(order.Processing(orderID, progress))
	return nil
}

// fail is the error path for one order: cancel it in the store, publish the
// error state, and emit a SystemError event. Store failures here are logged
// and swallowed — the order is already lost and the worker must move on.
func (p *Pipeline) fail(ctx context.Context, o order.Order, cause error) {
	p.failed.Add(1)

	p.logger.ErrorContext(ctx, "order processing failed",
		slog.String("operation", "process"),
		slog.Int64("order_id", o.ID),
		slog.Any("error", cause),
	)

	if _, err := p.store.UpdateStatus(ctx, o.ID, order.StatusCancelled); err != nil {
		p.logger.ErrorContext(ctx, "failed to cancel order after processing failure",
			slog.String("operation", "process"),
			slog.Int64("order_id", o.ID),
			slog.Any("error", err),
		)
	}

	p.bus.OrderState.Update(order.Failed(o.ID, cause))
	p.bus.Publish(domain.SystemError{
		Message: fmt.Sprintf("order %d processing failed", o.ID),
		Cause:   cause,
		At:      time.Now().UTC(),
	})

	if p.metrics != nil {
		p.metrics.OrdersProcessed.Add(ctx, 1,
			metric.WithAttributes(telemetry.AttrResult.String("failed")))
	}
}

// simulatedCheck stands in for a real downstream verification: it waits out
// a short delay and approves the order. The delay reuses the progress pacing
// so the demo profile shows checks overlapping milestones.
func simulatedCheck(name string, delay time.Duration) CheckFunc {
	return func(ctx context.Context, _ order.Order) (bool, error) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return false, fmt.Errorf("%s check: %w", name, ctx.Err())
			}
		}
		return true, nil
	}
}
