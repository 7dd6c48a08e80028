package memory

import (
	"context"
	"sync"

	"github.com/jsamuelsen11/orderflow/internal/ports"
)

// Compile-time interface check.
var _ ports.NotificationStore = (*NotificationStore)(nil)

// maxNotifications bounds the delivery log; the oldest entries are discarded
// once it fills.
const maxNotifications = 1000

// NotificationStore keeps a bounded in-memory log of sent notifications.
type NotificationStore struct {
	cfg Config

	mu   sync.RWMutex
	sent []ports.Notification
}

// NewNotificationStore creates an empty notification log.
func NewNotificationStore(cfg Config) *NotificationStore {
	return &NotificationStore{cfg: cfg}
}

// Append stores one sent notification, discarding the oldest entry when the
// log is full.
func (s *NotificationStore) Append(ctx context.Context, n ports.Notification) error {
	if err := s.cfg.simulate(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sent) >= maxNotifications {
		s.sent = s.sent[1:]
	}
	s.sent = append(s.sent, n)
	return nil
}

// Recent returns up to limit notifications, newest first.
func (s *NotificationStore) Recent(ctx context.Context, limit int) ([]ports.Notification, error) {
	if err := s.cfg.simulate(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.sent) {
		limit = len(s.sent)
	}

	out := make([]ports.Notification, 0, limit)
	for i := len(s.sent) - 1; i >= len(s.sent)-limit; i-- {
		out = append(out, s.sent[i])
	}
	return out, nil
}
