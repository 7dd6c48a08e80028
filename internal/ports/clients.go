package ports

import (
	"context"
	"time"
)

// Notification is a rendered message queued for delivery to a user. It is a
// transport-level record, not a domain entity: it exists only on its way to
// and through the delivery gateway and the notification log.
type Notification struct {
	ID        string
	Recipient string
	Subject   string
	Body      string
	CreatedAt time.Time
}

// Deliverer defines the client port for the downstream delivery gateway.
// Implemented by the outbound notify adapter; called by the event consumer
// that turns domain events into notifications.
type Deliverer interface {
	// Deliver sends a single notification. Returns domain.ErrTransient for
	// failures worth retrying and domain.ErrUnavailable when the gateway is
	// refused by the circuit breaker.
	Deliver(ctx context.Context, n Notification) error
}
