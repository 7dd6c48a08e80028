package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen11/orderflow/internal/app/bus"
	"github.com/jsamuelsen11/orderflow/internal/domain"
	"github.com/jsamuelsen11/orderflow/internal/platform/scopes"
	"github.com/jsamuelsen11/orderflow/internal/ports"
)

// opsRecipient receives operational alerts that have no user to address.
const opsRecipient = "ops@orderflow.internal"

// deliverTimeout bounds the rendering and delivery of one notification so a
// stuck gateway cannot back up the event stream indefinitely.
const deliverTimeout = 10 * time.Second

// Notifier consumes domain events and turns the notable ones into
// notifications: a welcome on user creation, an order confirmation, and an
// operator alert on system errors. Delivered notifications are appended to
// the notification log.
type Notifier struct {
	bus       *bus.Bus
	deliverer ports.Deliverer
	store     ports.NotificationStore
	users     ports.UserStore
	logger    *slog.Logger

	startOnce sync.Once
}

// NewNotifier creates a Notifier. Start must be called before events flow.
func NewNotifier(b *bus.Bus, deliverer ports.Deliverer, store ports.NotificationStore, users ports.UserStore, logger *slog.Logger) *Notifier {
	return &Notifier{
		bus:       b,
		deliverer: deliverer,
		store:     store,
		users:     users,
		logger:    logger,
	}
}

// Start subscribes to the event stream and spawns the consumer loop on the
// I/O domain. The subscription is taken before the loop is spawned so no
// event published after Start returns can be missed.
func (n *Notifier) Start(registry *scopes.Registry) {
	n.startOnce.Do(func() {
		events, stop := n.bus.Events.Subscribe()

		registry.Domain(scopes.KindIO).Go("notifier", func(ctx context.Context) error {
			defer stop()
			n.run(ctx, events)
			return nil
		})
	})
}

func (n *Notifier) run(ctx context.Context, events <-chan domain.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			n.handle(ctx, e)
		}
	}
}

// handle renders and delivers one event's notification. Failures are logged
// and, unless the event was itself a system error, republished as one;
// re-alerting on a failed alert would loop.
func (n *Notifier) handle(ctx context.Context, e domain.Event) {
	ctx, cancel := context.WithTimeout(ctx, deliverTimeout)
	defer cancel()

	notification, ok := n.render(ctx, e)
	if !ok {
		return
	}

	if err := n.deliverer.Deliver(ctx, notification); err != nil {
		n.logger.Error("notification delivery failed",
			slog.String("operation", "Notifier.handle"),
			slog.String("event_kind", e.Kind()),
			slog.String("recipient", notification.Recipient),
			slog.String("error", err.Error()),
		)
		if _, isAlert := e.(domain.SystemError); !isAlert {
			n.bus.Publish(domain.SystemError{
				Message: fmt.Sprintf("notification to %s undeliverable", notification.Recipient),
				Cause:   err,
				At:      time.Now().UTC(),
			})
		}
		return
	}

	if err := n.store.Append(ctx, notification); err != nil {
		n.logger.Warn("delivered notification not recorded",
			slog.String("operation", "Notifier.handle"),
			slog.String("notification_id", notification.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	n.logger.Debug("notification delivered",
		slog.String("operation", "Notifier.handle"),
		slog.String("event_kind", e.Kind()),
		slog.String("notification_id", notification.ID),
	)
}

// render maps an event to a notification. Not every event is notable:
// status changes are already covered by the order confirmation and the
// system-error alerting, so they render to nothing.
func (n *Notifier) render(ctx context.Context, e domain.Event) (ports.Notification, bool) {
	switch ev := e.(type) {
	case domain.UserCreated:
		return n.build(ctx, ev.UserID,
			"Welcome to OrderFlow",
			fmt.Sprintf("Hi %s, your account is ready.", ev.Name),
		), true

	case domain.OrderCreated:
		return n.build(ctx, ev.UserID,
			"Order received",
			fmt.Sprintf("Your order #%d for %.2f is being processed.", ev.OrderID, ev.Amount),
		), true

	case domain.SystemError:
		return ports.Notification{
			ID:        uuid.NewString(),
			Recipient: opsRecipient,
			Subject:   "System error",
			Body:      ev.Message,
			CreatedAt: time.Now().UTC(),
		}, true

	case domain.OrderStatusChanged:
		return ports.Notification{}, false

	default:
		return ports.Notification{}, false
	}
}

// build assembles a user-addressed notification, resolving the recipient
// address from the user store. A failed lookup falls back to the ops
// address rather than dropping the message.
func (n *Notifier) build(ctx context.Context, userID int64, subject, body string) ports.Notification {
	recipient := opsRecipient
	if u, err := n.users.FindByID(ctx, userID); err == nil {
		recipient = u.Email
	} else {
		n.logger.Warn("recipient lookup failed",
			slog.String("operation", "Notifier.build"),
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return ports.Notification{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
}
