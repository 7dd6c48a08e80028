package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jsamuelsen11/orderflow/internal/domain"
	"github.com/jsamuelsen11/orderflow/internal/domain/user"
	"github.com/jsamuelsen11/orderflow/internal/ports"
)

// Compile-time interface check.
var _ ports.UserStore = (*UserStore)(nil)

// UserStore is a mutex-guarded in-memory implementation of ports.UserStore,
// pre-seeded with sample users so the service is usable immediately.
type UserStore struct {
	cfg Config

	mu     sync.RWMutex
	users  []user.User
	byID   map[int64]int
	nextID int64
}

// NewUserStore creates a store seeded with two sample users.
func NewUserStore(cfg Config) *UserStore {
	s := &UserStore{
		cfg:  cfg,
		byID: make(map[int64]int),
	}

	now := time.Now().UTC()
	s.insert(user.User{Name: "Alice", Email: "alice@example.com", CreatedAt: now})
	s.insert(user.User{Name: "Bob", Email: "bob@example.com", CreatedAt: now})

	return s
}

// insert assigns the next ID and appends. Callers must hold mu or have
// exclusive access during construction.
func (s *UserStore) insert(u user.User) user.User {
	s.nextID++
	u.ID = s.nextID
	s.byID[u.ID] = len(s.users)
	s.users = append(s.users, u)
	return u
}

// Create persists a new user and returns it with its assigned ID.
func (s *UserStore) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if err := s.cfg.simulate(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *u
	stored.CreatedAt = time.Now().UTC()
	stored = s.insert(stored)

	return &stored, nil
}

// FindByID returns the user with the given ID, or domain.ErrNotFound.
func (s *UserStore) FindByID(ctx context.Context, id int64) (*user.User, error) {
	if err := s.cfg.simulate(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}

	u := s.users[idx]
	return &u, nil
}

// FindAll returns all users in insertion order.
func (s *UserStore) FindAll(ctx context.Context) ([]user.User, error) {
	if err := s.cfg.simulate(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]user.User, len(s.users))
	copy(out, s.users)
	return out, nil
}
