package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jsamuelsen11/orderflow/internal/domain"
	"github.com/jsamuelsen11/orderflow/internal/domain/order"
	"github.com/jsamuelsen11/orderflow/internal/ports"
)

// Compile-time interface check.
var _ ports.OrderStore = (*OrderStore)(nil)

// OrderStore is a mutex-guarded in-memory implementation of ports.OrderStore.
// Status updates enforce the order lifecycle; an invalid transition is a
// conflict, not a silent overwrite.
type OrderStore struct {
	cfg Config

	mu     sync.RWMutex
	orders []order.Order
	byID   map[int64]int
	nextID int64
}

// NewOrderStore creates an empty order store.
func NewOrderStore(cfg Config) *OrderStore {
	return &OrderStore{
		cfg:  cfg,
		byID: make(map[int64]int),
	}
}

// Create persists a new order and returns it with its assigned ID. Orders
// with no explicit status start out PENDING.
func (s *OrderStore) Create(ctx context.Context, o *order.Order) (*order.Order, error) {
	if err := s.cfg.simulate(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *o
	if stored.Status == "" {
		stored.Status = order.StatusPending
	}
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.nextID++
	stored.ID = s.nextID
	s.byID[stored.ID] = len(s.orders)
	s.orders = append(s.orders, stored)

	return &stored, nil
}

// FindByID returns the order with the given ID, or domain.ErrNotFound.
func (s *OrderStore) FindByID(ctx context.Context, id int64) (*order.Order, error) {
	if err := s.cfg.simulate(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}

	o := s.orders[idx]
	return &o, nil
}

// FindAll returns all orders in insertion order.
func (s *OrderStore) FindAll(ctx context.Context) ([]order.Order, error) {
	if err := s.cfg.simulate(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]order.Order, len(s.orders))
	copy(out, s.orders)
	return out, nil
}

// UpdateStatus transitions an order to the given status and returns the
// updated entity. Transitions the lifecycle forbids fail with
// domain.ErrConflict.
func (s *OrderStore) UpdateStatus(ctx context.Context, id int64, status order.Status) (*order.Order, error) {
	if err := s.cfg.simulate(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}

	current := s.orders[idx]
	if !current.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("order %d: transition %s -> %s: %w",
			id, current.Status, status, domain.ErrConflict)
	}

	current.Status = status
	current.UpdatedAt = time.Now().UTC()
	s.orders[idx] = current

	return &current, nil
}
