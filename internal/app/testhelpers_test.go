package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jsamuelsen11/orderflow/internal/domain"
	"github.com/jsamuelsen11/orderflow/internal/domain/order"
	"github.com/jsamuelsen11/orderflow/internal/domain/user"
	"github.com/jsamuelsen11/orderflow/internal/platform/resilience"
	"github.com/jsamuelsen11/orderflow/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// testResilience is a permissive policy with fast deterministic backoff so
// retry paths run in microseconds.
func testResilience() Resilience {
	return Resilience{
		Limiter: resilience.NewLimiter(10, time.Second),
		Retry: resilience.RetryConfig{
			MaxAttempts:   3,
			InitialDelay:  time.Millisecond,
			MaxDelay:      10 * time.Millisecond,
			BackoffFactor: 2,
		},
	}
}

// fakeUserStore lets tests script a number of leading transient failures.
type fakeUserStore struct {
	mu        sync.Mutex
	users     []user.User
	nextID    int64
	calls     atomic.Int64
	failFirst int64 // calls to fail with ErrTransient before succeeding
	findErr   error
}

var _ ports.UserStore = (*fakeUserStore)(nil)

func (s *fakeUserStore) roll() error {
	if n := s.calls.Add(1); n <= s.failFirst {
		return fmt.Errorf("simulated outage: %w", domain.ErrTransient)
	}
	return nil
}

func (s *fakeUserStore) Create(_ context.Context, u *user.User) (*user.User, error) {
	if err := s.roll(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	created := *u
	created.ID = s.nextID
	created.CreatedAt = time.Now().UTC()
	s.users = append(s.users, created)
	return &created, nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id int64) (*user.User, error) {
	if err := s.roll(); err != nil {
		return nil, err
	}
	if s.findErr != nil {
		return nil, s.findErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == id {
			u := s.users[i]
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
}

func (s *fakeUserStore) FindAll(_ context.Context) ([]user.User, error) {
	if err := s.roll(); err != nil {
		return nil, err
	}
	if s.findErr != nil {
		return nil, s.findErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]user.User, len(s.users))
	copy(out, s.users)
	return out, nil
}

// stubOrderStore is an append-only order store without simulated behavior.
type stubOrderStore struct {
	mu      sync.Mutex
	orders  []order.Order
	nextID  int64
	findErr error
}

var _ ports.OrderStore = (*stubOrderStore)(nil)

func (s *stubOrderStore) Create(_ context.Context, o *order.Order) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	created := *o
	created.ID = s.nextID
	s.orders = append(s.orders, created)
	return &created, nil
}

func (s *stubOrderStore) FindByID(_ context.Context, id int64) (*order.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID == id {
			o := s.orders[i]
			return &o, nil
		}
	}
	return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
}

func (s *stubOrderStore) FindAll(_ context.Context) ([]order.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]order.Order, len(s.orders))
	copy(out, s.orders)
	return out, nil
}

func (s *stubOrderStore) UpdateStatus(_ context.Context, id int64, status order.Status) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders[i].Status = status
			o := s.orders[i]
			return &o, nil
		}
	}
	return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
}
