package scopes

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ExecutionDomain supervises the tasks spawned on it. Its context is
// cancelled only by Registry.Shutdown; individual task failures never
// affect it.
type ExecutionDomain struct {
	kind   Kind
	ctx    context.Context
	cancel context.CancelCauseFunc
	logger *slog.Logger
	hook   FailureHook

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	totalSpawned atomic.Int64
	activeTasks  atomic.Int64
}

func newDomain(kind Kind, logger *slog.Logger, hook FailureHook) *ExecutionDomain {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &ExecutionDomain{
		kind:   kind,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		hook:   hook,
	}
}

// Kind returns the domain's workload kind.
func (d *ExecutionDomain) Kind() Kind {
	return d.kind
}

// Context returns the domain's context. It is cancelled when the registry
// shuts down; long-lived consumers select on it alongside their own work.
func (d *ExecutionDomain) Context() context.Context {
	return d.ctx
}

// Go spawns fn as a supervised task. fn receives the domain's context and
// should observe cancellation at each suspension point. A non-nil error or
// a panic is routed to the failure sink; neither cancels sibling tasks.
// Tasks spawned after shutdown are rejected with a warning.
func (d *ExecutionDomain) Go(name string, fn func(ctx context.Context) error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("task rejected, domain is shut down",
			slog.String("domain", string(d.kind)),
			slog.String("task", name),
		)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	d.totalSpawned.Add(1)
	d.activeTasks.Add(1)

	go func() {
		defer d.wg.Done()
		defer d.activeTasks.Add(-1)

		if err := d.exec(fn); err != nil {
			d.report(name, err)
		}
	}()
}

// exec runs fn, converting a panic into a *PanicError so the supervisor
// boundary holds even for programming errors.
func (d *ExecutionDomain) exec(fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
	}()
	return fn(d.ctx)
}

// report routes one task failure to the sink. Cancellation errors during
// shutdown are expected and logged at debug; everything else is an error.
func (d *ExecutionDomain) report(task string, err error) {
	attrs := []any{
		slog.String("domain", string(d.kind)),
		slog.String("task", task),
		slog.Any("error", err),
	}

	switch {
	case errors.Is(err, context.Canceled) && d.ctx.Err() != nil:
		d.logger.Debug("task ended by shutdown", attrs...)
		return
	default:
		var perr *PanicError
		if errors.As(err, &perr) {
			attrs = append(attrs, slog.String("stack", string(perr.Stack)))
		}
		d.logger.Error("task failed", attrs...)
	}

	if d.hook != nil {
		d.hook(d.kind, task, err)
	}
}

// close marks the domain closed and cancels its context. Idempotent.
func (d *ExecutionDomain) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.cancel(errors.New("execution domain shut down"))
}

func (d *ExecutionDomain) status() DomainStatus {
	d.mu.Lock()
	active := !d.closed
	d.mu.Unlock()

	return DomainStatus{
		Active:       active,
		ActiveTasks:  d.activeTasks.Load(),
		TotalSpawned: d.totalSpawned.Load(),
	}
}
