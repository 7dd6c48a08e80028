package app

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	"github.com/jsamuelsen11/orderflow/internal/app/bus"
	"github.com/jsamuelsen11/orderflow/internal/domain"
	"github.com/jsamuelsen11/orderflow/internal/platform/scopes"
	"github.com/jsamuelsen11/orderflow/internal/platform/telemetry"
)

// MetricsAggregator folds the event stream into the SystemMetrics state
// cell. It runs as one supervised task on the background domain and is the
// only writer of the metrics cell; readers take snapshots from the cell
// without touching the aggregator.
type MetricsAggregator struct {
	bus     *bus.Bus
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewMetricsAggregator creates a MetricsAggregator. metrics may be nil when
// telemetry is disabled.
func NewMetricsAggregator(b *bus.Bus, logger *slog.Logger, metrics *telemetry.Metrics) *MetricsAggregator {
	return &MetricsAggregator{
		bus:     b,
		logger:  logger,
		metrics: metrics,
	}
}

// Start subscribes to the event stream and launches the fold loop on the
// background domain. The subscription is taken here, not in the loop, so no
// event published after Start returns can be missed.
func (a *MetricsAggregator) Start(registry *scopes.Registry) {
	events, stop := a.bus.Events.Subscribe()

	registry.Domain(scopes.KindBackground).Go("metrics-aggregator", func(ctx context.Context) error {
		defer stop()
		return a.run(ctx, events)
	})
}

// run folds each event into the current snapshot and republishes it. The
// loop exits on registry shutdown.
func (a *MetricsAggregator) run(ctx context.Context, events <-chan domain.Event) error {
	a.logger.Info("metrics aggregator started")

	for {
		select {
		case e := <-events:
			a.bus.Metrics.Update(a.bus.Metrics.Current().Apply(e))

			if a.metrics != nil {
				a.metrics.EventsPublished.Add(ctx, 1,
					metric.WithAttributes(telemetry.AttrEventKind.String(e.Kind())))
			}
		case <-ctx.Done():
			a.logger.Info("metrics aggregator stopped",
				slog.Int64("events_folded", a.bus.Metrics.Current().EventsPublished),
			)
			return ctx.Err()
		}
	}
}
