package domain

import (
	"errors"
	"testing"
	"time"
)

func TestSystemMetrics_Apply(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var m SystemMetrics
	m = m.Apply(UserCreated{UserID: 1, Name: "Ada", At: at})
	m = m.Apply(OrderCreated{OrderID: 10, UserID: 1, Amount: 25, At: at})
	m = m.Apply(OrderCreated{OrderID: 11, UserID: 1, Amount: 30, At: at})
	m = m.Apply(OrderStatusChanged{OrderID: 10, OldStatus: "PROCESSING", NewStatus: "COMPLETED", At: at})
	m = m.Apply(SystemError{Message: "payment declined", Cause: errors.New("declined"), At: at.Add(time.Second)})

	if m.UsersCreated != 1 {
		t.Errorf("UsersCreated = %d, want 1", m.UsersCreated)
	}
	if m.OrdersCreated != 2 {
		t.Errorf("OrdersCreated = %d, want 2", m.OrdersCreated)
	}
	if m.OrdersCompleted != 1 {
		t.Errorf("OrdersCompleted = %d, want 1", m.OrdersCompleted)
	}
	if m.OrdersFailed != 1 {
		t.Errorf("OrdersFailed = %d, want 1", m.OrdersFailed)
	}
	if m.EventsPublished != 5 {
		t.Errorf("EventsPublished = %d, want 5", m.EventsPublished)
	}
	if !m.UpdatedAt.Equal(at.Add(time.Second)) {
		t.Errorf("UpdatedAt = %v, want %v", m.UpdatedAt, at.Add(time.Second))
	}
}

func TestSystemMetrics_ApplyNonTerminalStatusChange(t *testing.T) {
	t.Parallel()

	var m SystemMetrics
	m = m.Apply(OrderStatusChanged{OrderID: 1, OldStatus: "PENDING", NewStatus: "PROCESSING", At: time.Now()})

	if m.OrdersCompleted != 0 {
		t.Errorf("OrdersCompleted = %d, want 0", m.OrdersCompleted)
	}
	if m.EventsPublished != 1 {
		t.Errorf("EventsPublished = %d, want 1", m.EventsPublished)
	}
}
