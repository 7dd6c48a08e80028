package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen11/orderflow/internal/app/bus"
	"github.com/jsamuelsen11/orderflow/internal/app/fanout"
	"github.com/jsamuelsen11/orderflow/internal/app/pipeline"
	"github.com/jsamuelsen11/orderflow/internal/domain"
	"github.com/jsamuelsen11/orderflow/internal/domain/order"
	"github.com/jsamuelsen11/orderflow/internal/domain/user"
	"github.com/jsamuelsen11/orderflow/internal/platform/resilience"
	"github.com/jsamuelsen11/orderflow/internal/platform/scopes"
	"github.com/jsamuelsen11/orderflow/internal/ports"
)

// Compile-time check that DashboardService implements ports.DashboardService.
var _ ports.DashboardService = (*DashboardService)(nil)

// DashboardConfig carries the dashboard aggregation settings.
type DashboardConfig struct {
	// SectionTimeout independently bounds each source fetch. A lapsed
	// section is reported as degraded, not failed.
	SectionTimeout time.Duration
	// CacheTTL is how long an assembled snapshot is served before sources
	// are consulted again. Zero disables caching.
	CacheTTL time.Duration
}

// DashboardService assembles the read-side dashboard view by fanning out to
// the stores concurrently and reading the state cells, degrading gracefully
// when a source is slow or failing. Snapshots are cached briefly behind a
// double-checked mutex so a burst of dashboard requests costs one assembly.
type DashboardService struct {
	cfg      DashboardConfig
	users    ports.UserStore
	orders   ports.OrderStore
	bus      *bus.Bus
	pipeline *pipeline.Pipeline
	limiter  *resilience.Limiter
	registry *scopes.Registry
	logger   *slog.Logger

	mu       sync.Mutex
	cached   *ports.DashboardSnapshot
	cachedAt time.Time
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(
	cfg DashboardConfig,
	users ports.UserStore,
	orders ports.OrderStore,
	b *bus.Bus,
	p *pipeline.Pipeline,
	limiter *resilience.Limiter,
	registry *scopes.Registry,
	logger *slog.Logger,
) *DashboardService {
	return &DashboardService{
		cfg:      cfg,
		users:    users,
		orders:   orders,
		bus:      b,
		pipeline: p,
		limiter:  limiter,
		registry: registry,
		logger:   logger,
	}
}

// section is one independently-fetched slice of the dashboard.
type section struct {
	name  string
	fetch func(ctx context.Context) error
}

// Snapshot returns the aggregated dashboard view, serving a cached copy
// while it is fresh. The cache check happens twice: once cheaply before
// assembling, and again under the lock in case a concurrent request
// assembled a snapshot while this one was fetching.
func (s *DashboardService) Snapshot(ctx context.Context) (*ports.DashboardSnapshot, error) {
	if snap := s.fresh(); snap != nil {
		return snap, nil
	}

	snap := s.assemble(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil && time.Since(s.cachedAt) < s.cfg.CacheTTL {
		return s.cached, nil
	}
	if len(snap.Degraded) == 0 && s.cfg.CacheTTL > 0 {
		s.cached = snap
		s.cachedAt = time.Now()
	}
	return snap, nil
}

// fresh returns the cached snapshot while it is within its TTL.
func (s *DashboardService) fresh() *ports.DashboardSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil && time.Since(s.cachedAt) < s.cfg.CacheTTL {
		return s.cached
	}
	return nil
}

// assemble fetches every section concurrently, each under its own timeout,
// and folds failures into the Degraded list.
func (s *DashboardService) assemble(ctx context.Context) *ports.DashboardSnapshot {
	snap := &ports.DashboardSnapshot{
		Metrics:     s.bus.Metrics.Current(),
		Processing:  s.bus.OrderState.Current(),
		GeneratedAt: time.Now().UTC(),
	}

	var (
		users  []user.User
		orders []order.Order
	)

	sections := []section{
		{name: "users", fetch: func(ctx context.Context) error {
			var err error
			users, err = s.users.FindAll(ctx)
			return err
		}},
		{name: "orders", fetch: func(ctx context.Context) error {
			var err error
			orders, err = s.orders.FindAll(ctx)
			return err
		}},
	}

	results := fanout.Run(ctx, len(sections), s.cfg.SectionTimeout, sections,
		func(ctx context.Context, sec section) (struct{}, error) {
			return struct{}{}, sec.fetch(ctx)
		})

	for i, r := range results {
		if r.Err == nil {
			continue
		}
		s.logger.WarnContext(ctx, "dashboard section degraded",
			slog.String("operation", "Snapshot"),
			slog.String("section", sections[i].name),
			slog.Any("error", r.Err),
		)
		snap.Degraded = append(snap.Degraded, ports.SectionError{
			Section: sections[i].name,
			Err:     r.Err,
		})
	}

	snap.Users = users
	snap.Orders = orders
	return snap
}

// Metrics returns the current system metrics snapshot without blocking.
func (s *DashboardService) Metrics() domain.SystemMetrics {
	return s.bus.Metrics.Current()
}

// SystemStatus reports pipeline, limiter, and execution-domain state.
func (s *DashboardService) SystemStatus(_ context.Context) (*ports.SystemStatus, error) {
	limiter := s.limiter.Status()

	status := &ports.SystemStatus{
		Pipeline: s.pipeline.Status(),
		Limiter: ports.LimiterStatus{
			CurrentRequests:  limiter.CurrentRequests,
			MaxRequests:      limiter.MaxRequests,
			AvailablePermits: limiter.AvailablePermits,
		},
	}

	for _, kind := range scopes.Kinds() {
		d := s.registry.Status()[kind]
		status.Domains = append(status.Domains, ports.DomainStatus{
			Name:         string(kind),
			Active:       d.Active,
			ActiveTasks:  d.ActiveTasks,
			TotalSpawned: d.TotalSpawned,
		})
	}

	return status, nil
}
