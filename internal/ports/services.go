package ports

import (
	"context"
	"time"

	"github.com/jsamuelsen11/orderflow/internal/domain"
	"github.com/jsamuelsen11/orderflow/internal/domain/order"
	"github.com/jsamuelsen11/orderflow/internal/domain/user"
)

// UserService defines the service port for user operations.
// Implemented by the application layer; called by inbound adapters (handlers).
type UserService interface {
	// CreateUser validates and persists a new user, returning the created
	// entity with server-assigned fields (ID, timestamps).
	// Returns domain.ErrValidation if the user fails validation.
	CreateUser(ctx context.Context, u *user.User) (*user.User, error)

	// GetUser returns a single user by ID.
	// Returns domain.ErrNotFound if the user does not exist.
	GetUser(ctx context.Context, id int64) (*user.User, error)

	// ListUsers returns all users.
	ListUsers(ctx context.Context) ([]user.User, error)
}

// OrderService defines the service port for order operations. Orders are
// accepted synchronously and processed asynchronously by the pipeline;
// PlaceOrder returns once the order is persisted and enqueued.
type OrderService interface {
	// PlaceOrder validates the order, persists it as pending, publishes an
	// OrderCreated event, and submits it to the processing pipeline.
	// Returns domain.ErrValidation if the order fails validation and
	// domain.ErrUnavailable if the pipeline has shut down.
	PlaceOrder(ctx context.Context, o *order.Order) (*order.Order, error)

	// GetOrder returns a single order by ID.
	// Returns domain.ErrNotFound if the order does not exist.
	GetOrder(ctx context.Context, id int64) (*order.Order, error)

	// ListOrders returns all orders.
	ListOrders(ctx context.Context) ([]order.Order, error)

	// ProcessingState returns the pipeline's current processing state
	// without blocking.
	ProcessingState() order.ProcessingState
}

// DashboardService defines the read-side aggregation port. Snapshots are
// assembled from several sources concurrently with per-source timeouts and
// degrade gracefully: a slow or failing source is reported in
// DashboardSnapshot.Degraded instead of failing the whole call.
type DashboardService interface {
	// Snapshot returns the aggregated dashboard view. Results may be served
	// from a short-lived cache.
	Snapshot(ctx context.Context) (*DashboardSnapshot, error)

	// SystemStatus reports pipeline, rate-limiter, and execution-domain
	// state for operators.
	SystemStatus(ctx context.Context) (*SystemStatus, error)

	// Metrics returns the current system metrics snapshot without blocking.
	Metrics() domain.SystemMetrics
}

// SectionError records a dashboard section that could not be assembled.
type SectionError struct {
	Section string
	Err     error
}

// DashboardSnapshot aggregates the read-side view served to dashboards.
// Sections listed in Degraded carry zero values and should be rendered as
// unavailable rather than empty.
type DashboardSnapshot struct {
	Users       []user.User
	Orders      []order.Order
	Metrics     domain.SystemMetrics
	Processing  order.ProcessingState
	Degraded    []SectionError
	GeneratedAt time.Time
}

// PipelineStatus describes the order pipeline for observability endpoints.
type PipelineStatus struct {
	Running       bool
	QueueDepth    int
	QueueCapacity int
	Processed     int64
	Failed        int64
}

// LimiterStatus describes the request limiter's sliding window.
type LimiterStatus struct {
	CurrentRequests  int
	MaxRequests      int
	AvailablePermits int
}

// DomainStatus describes one supervised execution domain.
type DomainStatus struct {
	Name         string
	Active       bool
	ActiveTasks  int64
	TotalSpawned int64
}

// SystemStatus aggregates operational state for the status endpoint.
type SystemStatus struct {
	Pipeline PipelineStatus
	Limiter  LimiterStatus
	Domains  []DomainStatus
}
