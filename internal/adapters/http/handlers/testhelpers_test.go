package handlers_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/jsamuelsen11/orderflow/internal/domain"
	"github.com/jsamuelsen11/orderflow/internal/domain/order"
	"github.com/jsamuelsen11/orderflow/internal/domain/user"
	"github.com/jsamuelsen11/orderflow/internal/ports"
)

// requireStatus fails the test immediately if the recorded status differs.
func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, want, rec.Body.String())
	}
}

// decodeJSON decodes the recorded response body into T.
func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return v
}

// fakeUserService is a scriptable ports.UserService.
type fakeUserService struct {
	users []user.User
	err   error
}

func (f *fakeUserService) CreateUser(_ context.Context, u *user.User) (*user.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	created := *u
	created.ID = int64(len(f.users) + 1)
	f.users = append(f.users, created)
	return &created, nil
}

func (f *fakeUserService) GetUser(_ context.Context, id int64) (*user.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.users {
		if f.users[i].ID == id {
			return &f.users[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserService) ListUsers(_ context.Context) ([]user.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users, nil
}

// fakeOrderService is a scriptable ports.OrderService.
type fakeOrderService struct {
	orders []order.Order
	state  order.ProcessingState
	err    error
}

func (f *fakeOrderService) PlaceOrder(_ context.Context, o *order.Order) (*order.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	placed := *o
	placed.ID = int64(len(f.orders) + 1)
	placed.Status = order.StatusPending
	f.orders = append(f.orders, placed)
	return &placed, nil
}

func (f *fakeOrderService) GetOrder(_ context.Context, id int64) (*order.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.orders {
		if f.orders[i].ID == id {
			return &f.orders[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOrderService) ListOrders(_ context.Context) ([]order.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.orders, nil
}

func (f *fakeOrderService) ProcessingState() order.ProcessingState {
	return f.state
}

// fakeDashboardService is a scriptable ports.DashboardService.
type fakeDashboardService struct {
	snapshot *ports.DashboardSnapshot
	status   *ports.SystemStatus
	metrics  domain.SystemMetrics
	err      error
}

func (f *fakeDashboardService) Snapshot(_ context.Context) (*ports.DashboardSnapshot, error) {
	return f.snapshot, f.err
}

func (f *fakeDashboardService) SystemStatus(_ context.Context) (*ports.SystemStatus, error) {
	return f.status, f.err
}

func (f *fakeDashboardService) Metrics() domain.SystemMetrics {
	return f.metrics
}

// fakeNotificationStore is a scriptable ports.NotificationStore.
type fakeNotificationStore struct {
	notifications []ports.Notification
	err           error
}

func (f *fakeNotificationStore) Append(_ context.Context, n ports.Notification) error {
	f.notifications = append(f.notifications, n)
	return f.err
}

func (f *fakeNotificationStore) Recent(_ context.Context, limit int) ([]ports.Notification, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > len(f.notifications) {
		limit = len(f.notifications)
	}
	return f.notifications[:limit], nil
}

// staticChecker reports a fixed health result under a fixed name.
type staticChecker struct {
	name string
	err  error
}

func (c staticChecker) Name() string                     { return c.name }
func (c staticChecker) HealthCheck(context.Context) error { return c.err }
