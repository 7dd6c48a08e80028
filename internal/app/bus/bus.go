// Package bus assembles the process's broadcast surfaces: the transient
// domain-event stream and the latest-value state cells. One Bus is
// constructed in main and passed by reference to everything that publishes
// or subscribes; there is no package-level instance and no teardown — the
// cells and stream live for the process lifetime.
package bus

import (
	"github.com/jsamuelsen11/orderflow/internal/domain"
	"github.com/jsamuelsen11/orderflow/internal/domain/order"
	"github.com/jsamuelsen11/orderflow/internal/platform/eventbus"
)

// Bus holds the process-wide broadcast primitives.
type Bus struct {
	// Events carries domain events to whoever is attached at emit time.
	// No replay; slow subscribers shed their oldest buffered events.
	Events *eventbus.Stream[domain.Event]

	// OrderState holds the pipeline's current processing state. Written
	// only by the order pipeline.
	OrderState *eventbus.State[order.ProcessingState]

	// Metrics holds the latest SystemMetrics snapshot. Written only by the
	// metrics aggregator.
	Metrics *eventbus.State[domain.SystemMetrics]
}

// New creates a Bus with an idle order state and zeroed metrics.
func New() *Bus {
	return &Bus{
		Events:     eventbus.NewStream[domain.Event]("domain-events"),
		OrderState: eventbus.NewState("order-processing", order.Idle()),
		Metrics:    eventbus.NewState("system-metrics", domain.SystemMetrics{}),
	}
}

// Publish emits e on the event stream. It never blocks.
func (b *Bus) Publish(e domain.Event) {
	b.Events.Emit(e)
}
