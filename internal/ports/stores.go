package ports

import (
	"context"

	"github.com/jsamuelsen11/orderflow/internal/domain/order"
	"github.com/jsamuelsen11/orderflow/internal/domain/user"
)

// UserStore defines the outbound port for user persistence. Implementations
// are assumed to have nondeterministic latency; callers must pass contexts
// with deadlines where waiting is bounded.
type UserStore interface {
	// Create persists a new user and returns it with server-assigned fields.
	Create(ctx context.Context, u *user.User) (*user.User, error)

	// FindByID returns a single user by ID.
	// Returns domain.ErrNotFound if the user does not exist.
	FindByID(ctx context.Context, id int64) (*user.User, error)

	// FindAll returns all users in insertion order.
	FindAll(ctx context.Context) ([]user.User, error)
}

// OrderStore defines the outbound port for order persistence.
type OrderStore interface {
	// Create persists a new order and returns it with server-assigned fields.
	Create(ctx context.Context, o *order.Order) (*order.Order, error)

	// FindByID returns a single order by ID.
	// Returns domain.ErrNotFound if the order does not exist.
	FindByID(ctx context.Context, id int64) (*order.Order, error)

	// FindAll returns all orders in insertion order.
	FindAll(ctx context.Context) ([]order.Order, error)

	// UpdateStatus transitions an order to the given status and returns the
	// updated entity.
	// Returns domain.ErrNotFound if the order does not exist and
	// domain.ErrConflict if the lifecycle forbids the transition.
	UpdateStatus(ctx context.Context, id int64, status order.Status) (*order.Order, error)
}

// NotificationStore records notifications after delivery so operators can
// audit what was sent.
type NotificationStore interface {
	// Append stores one sent notification.
	Append(ctx context.Context, n Notification) error

	// Recent returns up to limit notifications, newest first.
	Recent(ctx context.Context, limit int) ([]Notification, error)
}
