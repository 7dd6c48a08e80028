package domain

import "time"

// Event is the closed set of domain events published on the event bus.
// The unexported marker method keeps the set closed: only types in this
// package can be events, so consumers can switch over the concrete types
// exhaustively and a new variant shows up as a compile-time concern rather
// than an unhandled string constant.
//
// Events are immutable value types. Publish them by value; never retain a
// pointer into a subscriber's copy.
type Event interface {
	// Kind returns a stable machine-readable name for logging and metrics.
	Kind() string
	// OccurredAt returns the event's creation time.
	OccurredAt() time.Time

	isEvent()
}

// UserCreated is published after a user is successfully persisted.
type UserCreated struct {
	UserID int64
	Name   string
	At     time.Time
}

func (UserCreated) Kind() string            { return "user.created" }
func (e UserCreated) OccurredAt() time.Time { return e.At }
func (UserCreated) isEvent()                {}

// OrderCreated is published after an order is accepted and persisted as
// pending, before pipeline processing begins.
type OrderCreated struct {
	OrderID int64
	UserID  int64
	Amount  float64
	At      time.Time
}

func (OrderCreated) Kind() string            { return "order.created" }
func (e OrderCreated) OccurredAt() time.Time { return e.At }
func (OrderCreated) isEvent()                {}

// OrderStatusChanged is published whenever an order transitions between
// statuses, including the terminal completed/cancelled transitions made by
// the processing pipeline.
type OrderStatusChanged struct {
	OrderID   int64
	OldStatus string
	NewStatus string
	At        time.Time
}

func (OrderStatusChanged) Kind() string            { return "order.status_changed" }
func (e OrderStatusChanged) OccurredAt() time.Time { return e.At }
func (OrderStatusChanged) isEvent()                {}

// SystemError is published when background work fails in a way operators
// should see: a pipeline item failing its checks, a supervised task
// panicking, a delivery giving up after retries.
type SystemError struct {
	Message string
	Cause   error
	At      time.Time
}

func (SystemError) Kind() string            { return "system.error" }
func (e SystemError) OccurredAt() time.Time { return e.At }
func (SystemError) isEvent()                {}
