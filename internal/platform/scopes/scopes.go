// Package scopes provides supervised execution domains for background work.
//
// A Registry owns a fixed set of long-lived domains, one per workload kind
// (I/O-bound, CPU-bound, background). Tasks spawned on a domain are
// supervised: a returned error or a recovered panic is routed to the
// domain's failure sink and never cancels sibling tasks or the domain
// itself. The registry is constructed explicitly and passed by reference;
// there is no package-level instance.
package scopes

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Kind identifies one of the fixed execution domains.
type Kind string

const (
	// KindIO hosts I/O-bound work: store calls, outbound deliveries.
	KindIO Kind = "io"
	// KindCPU hosts CPU-bound work.
	KindCPU Kind = "cpu"
	// KindBackground hosts long-lived background loops such as the order
	// pipeline worker and event consumers.
	KindBackground Kind = "background"
)

// Kinds returns the fixed set of domain kinds in a stable order.
func Kinds() []Kind {
	return []Kind{KindIO, KindCPU, KindBackground}
}

// ErrShutdownTimeout is returned by Shutdown when tasks outlive the grace
// period. Callers treat it as a warning: cancellation has been issued and
// stragglers are abandoned, not interrupted.
var ErrShutdownTimeout = errors.New("shutdown timeout: tasks still running")

// FailureHook observes task failures after they have been logged. Hooks run
// on the failing task's goroutine and must not block.
type FailureHook func(kind Kind, task string, err error)

// Registry owns the execution domains. Safe for concurrent use.
type Registry struct {
	domains map[Kind]*ExecutionDomain
	logger  *slog.Logger
}

// Option configures a Registry.
type Option func(*registryConfig)

type registryConfig struct {
	hook FailureHook
}

// WithFailureHook registers a hook invoked for every task failure in every
// domain, after the failure has been logged.
func WithFailureHook(hook FailureHook) Option {
	return func(cfg *registryConfig) {
		cfg.hook = hook
	}
}

// NewRegistry creates a registry with one domain per Kind. The logger is
// the failure sink for all domains.
func NewRegistry(logger *slog.Logger, opts ...Option) *Registry {
	var cfg registryConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	domains := make(map[Kind]*ExecutionDomain, len(Kinds()))
	for _, kind := range Kinds() {
		domains[kind] = newDomain(kind, logger, cfg.hook)
	}
	return &Registry{
		domains: domains,
		logger:  logger,
	}
}

// Domain returns the execution domain for the given kind. Panics on an
// unknown kind: the set is fixed at construction and a miss is a
// programming error, not a runtime condition.
func (r *Registry) Domain(kind Kind) *ExecutionDomain {
	d, ok := r.domains[kind]
	if !ok {
		panic(fmt.Sprintf("scopes: unknown domain kind %q", kind))
	}
	return d
}

// Shutdown cancels all domains and waits up to timeout for their tasks to
// finish. Tasks are expected to observe cancellation at their suspension
// points. If some do not finish in time they are abandoned and
// ErrShutdownTimeout is returned; the registry is unusable either way.
func (r *Registry) Shutdown(timeout time.Duration) error {
	for _, d := range r.domains {
		d.close()
	}

	done := make(chan struct{})
	go func() {
		for _, d := range r.domains {
			d.wg.Wait()
		}
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("all execution domains drained")
		return nil
	case <-time.After(timeout):
		r.logger.Warn("execution domains did not drain in time",
			slog.Duration("timeout", timeout),
			slog.Any("status", r.Status()),
		)
		return fmt.Errorf("scopes: %w", ErrShutdownTimeout)
	}
}

// Status reports per-domain activity for observability endpoints.
func (r *Registry) Status() map[Kind]DomainStatus {
	status := make(map[Kind]DomainStatus, len(r.domains))
	for kind, d := range r.domains {
		status[kind] = d.status()
	}
	return status
}

// DomainStatus is a point-in-time view of one domain.
type DomainStatus struct {
	Active       bool
	ActiveTasks  int64
	TotalSpawned int64
}
