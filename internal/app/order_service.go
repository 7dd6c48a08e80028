package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen11/orderflow/internal/app/bus"
	"github.com/jsamuelsen11/orderflow/internal/app/pipeline"
	"github.com/jsamuelsen11/orderflow/internal/domain"
	"github.com/jsamuelsen11/orderflow/internal/domain/order"
	"github.com/jsamuelsen11/orderflow/internal/ports"
)

// Compile-time check that OrderService implements ports.OrderService.
var _ ports.OrderService = (*OrderService)(nil)

// OrderService implements ports.OrderService. Orders are persisted as
// pending and handed to the processing pipeline; the pipeline owns every
// later status transition.
type OrderService struct {
	store    ports.OrderStore
	pipeline *pipeline.Pipeline
	bus      *bus.Bus
	res      Resilience
	logger   *slog.Logger
}

// NewOrderService creates an OrderService.
func NewOrderService(store ports.OrderStore, p *pipeline.Pipeline, b *bus.Bus, res Resilience, logger *slog.Logger) *OrderService {
	return &OrderService{
		store:    store,
		pipeline: p,
		bus:      b,
		res:      res,
		logger:   logger,
	}
}

// PlaceOrder validates the order, persists it as pending, publishes an
// OrderCreated event, and submits it to the pipeline. A closed pipeline
// surfaces as domain.ErrUnavailable: the order stays pending in the store
// for an operator to reconcile.
func (s *OrderService) PlaceOrder(ctx context.Context, o *order.Order) (*order.Order, error) {
	s.logger.InfoContext(ctx, "placing order",
		slog.Int64("user_id", o.UserID),
		slog.String("product", o.ProductName),
		slog.Float64("amount", o.Amount),
	)

	o.Status = order.StatusPending
	if err := o.Validate(); err != nil {
		return nil, err
	}

	created, err := guard(ctx, s.res, "PlaceOrder", func(ctx context.Context) (*order.Order, error) {
		return s.store.Create(ctx, o)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist order",
			slog.String("operation", "PlaceOrder"),
			slog.Int64("user_id", o.UserID),
			slog.Any("error", err),
		)
		return nil, err
	}

	s.bus.Publish(domain.OrderCreated{
		OrderID: created.ID,
		UserID:  created.UserID,
		Amount:  created.Amount,
		At:      time.Now().UTC(),
	})

	if err := s.pipeline.Submit(ctx, *created); err != nil {
		s.logger.ErrorContext(ctx, "failed to submit order to pipeline",
			slog.String("operation", "PlaceOrder"),
			slog.Int64("order_id", created.ID),
			slog.Any("error", err),
		)
		if errors.Is(err, pipeline.ErrClosed) {
			return nil, fmt.Errorf("order %d accepted but not scheduled: %w",
				created.ID, domain.ErrUnavailable)
		}
		return nil, err
	}

	return created, nil
}

// GetOrder returns a single order by ID.
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	s.logger.InfoContext(ctx, "fetching order", slog.Int64("id", id))

	o, err := guard(ctx, s.res, "GetOrder", func(ctx context.Context) (*order.Order, error) {
		return s.store.FindByID(ctx, id)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch order",
			slog.String("operation", "GetOrder"),
			slog.Int64("id", id),
			slog.Any("error", err),
		)
		return nil, err
	}

	return o, nil
}

// ListOrders returns all orders.
func (s *OrderService) ListOrders(ctx context.Context) ([]order.Order, error) {
	s.logger.InfoContext(ctx, "listing orders")

	orders, err := guard(ctx, s.res, "ListOrders", func(ctx context.Context) ([]order.Order, error) {
		return s.store.FindAll(ctx)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list orders",
			slog.String("operation", "ListOrders"),
			slog.Any("error", err),
		)
		return nil, err
	}

	return orders, nil
}

// ProcessingState returns the pipeline's current state without blocking.
func (s *OrderService) ProcessingState() order.ProcessingState {
	return s.bus.OrderState.Current()
}
