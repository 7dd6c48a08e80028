// Package app provides application services that orchestrate use cases by
// coordinating between domain logic and infrastructure through port
// interfaces. Store access is funneled through the request limiter and the
// retry executor, so every service exercises the same admission and
// resilience path.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen11/orderflow/internal/app/bus"
	"github.com/jsamuelsen11/orderflow/internal/domain"
	"github.com/jsamuelsen11/orderflow/internal/domain/user"
	"github.com/jsamuelsen11/orderflow/internal/platform/resilience"
	"github.com/jsamuelsen11/orderflow/internal/platform/telemetry"
	"github.com/jsamuelsen11/orderflow/internal/ports"
)

// Compile-time check that UserService implements ports.UserService.
var _ ports.UserService = (*UserService)(nil)

// Resilience bundles the shared admission and retry policy applied to store
// calls by the application services.
type Resilience struct {
	Limiter *resilience.Limiter
	Retry   resilience.RetryConfig
	// AttemptTimeout bounds each individual store attempt. Zero disables
	// the per-attempt bound; the caller's context still applies.
	AttemptTimeout time.Duration
	// Metrics records limiter wait durations when set.
	Metrics *telemetry.Metrics
}

// guard runs op through the limiter and the retry executor: admission
// first, then up to Retry.MaxAttempts tries with deterministic backoff,
// each attempt bounded by AttemptTimeout. The time spent before op starts
// is the admission wait and is recorded on the limiter histogram.
func guard[T any](ctx context.Context, r Resilience, name string, op func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	v, err := resilience.Execute(ctx, r.Limiter, func(ctx context.Context) (T, error) {
		if r.Metrics != nil {
			r.Metrics.LimiterWaitDuration.Record(ctx, time.Since(start).Seconds())
		}
		if r.AttemptTimeout > 0 {
			return resilience.RetryWithTimeout(ctx, r.Retry, r.AttemptTimeout, name, op)
		}
		return resilience.Retry(ctx, r.Retry, name, op)
	})
	if err != nil && errors.Is(err, resilience.ErrAdmission) {
		// Surface limiter aborts in the domain taxonomy so the HTTP layer
		// can answer 429 instead of a generic failure.
		return v, fmt.Errorf("%w: %s: %w", domain.ErrAdmissionTimeout, name, err)
	}
	return v, err
}

// UserService implements ports.UserService over the user store. Lookups and
// creates are guarded by the shared resilience policy; successful creates
// publish a UserCreated event.
type UserService struct {
	store  ports.UserStore
	bus    *bus.Bus
	res    Resilience
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(store ports.UserStore, b *bus.Bus, res Resilience, logger *slog.Logger) *UserService {
	return &UserService{
		store:  store,
		bus:    b,
		res:    res,
		logger: logger,
	}
}

// CreateUser validates and persists a new user, returning the created
// entity with server-assigned fields.
func (s *UserService) CreateUser(ctx context.Context, u *user.User) (*user.User, error) {
	s.logger.InfoContext(ctx, "creating user", slog.String("name", u.Name))

	if err := u.Validate(); err != nil {
		return nil, err
	}

	created, err := guard(ctx, s.res, "CreateUser", func(ctx context.Context) (*user.User, error) {
		return s.store.Create(ctx, u)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create user",
			slog.String("operation", "CreateUser"),
			slog.Any("error", err),
		)
		return nil, err
	}

	s.bus.Publish(domain.UserCreated{
		UserID: created.ID,
		Name:   created.Name,
		At:     time.Now().UTC(),
	})

	return created, nil
}

// GetUser returns a single user by ID.
func (s *UserService) GetUser(ctx context.Context, id int64) (*user.User, error) {
	s.logger.InfoContext(ctx, "fetching user", slog.Int64("id", id))

	u, err := guard(ctx, s.res, "GetUser", func(ctx context.Context) (*user.User, error) {
		return s.store.FindByID(ctx, id)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch user",
			slog.String("operation", "GetUser"),
			slog.Int64("id", id),
			slog.Any("error", err),
		)
		return nil, err
	}

	return u, nil
}

// ListUsers returns all users.
func (s *UserService) ListUsers(ctx context.Context) ([]user.User, error) {
	s.logger.InfoContext(ctx, "listing users")

	users, err := guard(ctx, s.res, "ListUsers", func(ctx context.Context) ([]user.User, error) {
		return s.store.FindAll(ctx)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list users",
			slog.String("operation", "ListUsers"),
			slog.Any("error", err),
		)
		return nil, err
	}

	return users, nil
}
