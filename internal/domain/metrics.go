package domain

import "time"

// statusCompleted mirrors order.StatusCompleted's string value. The event
// carries statuses as strings so this package does not depend on the entity
// sub-packages; the order package pins the correspondence with a test.
const statusCompleted = "COMPLETED"

// SystemMetrics is a point-in-time aggregate of processing activity, folded
// from the event stream by the metrics aggregator and published on its own
// state cell. It is a value type: every update replaces the whole snapshot,
// so readers never see a half-applied count.
type SystemMetrics struct {
	UsersCreated    int64
	OrdersCreated   int64
	OrdersCompleted int64
	OrdersFailed    int64
	EventsPublished int64
	UpdatedAt       time.Time
}

// Apply folds one event into the snapshot and returns the updated copy.
func (m SystemMetrics) Apply(e Event) SystemMetrics {
	switch ev := e.(type) {
	case UserCreated:
		m.UsersCreated++
	case OrderCreated:
		m.OrdersCreated++
	case OrderStatusChanged:
		if ev.NewStatus == statusCompleted {
			m.OrdersCompleted++
		}
	case SystemError:
		m.OrdersFailed++
	}
	m.EventsPublished++
	m.UpdatedAt = e.OccurredAt()
	return m
}
