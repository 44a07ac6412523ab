package events

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"
)

// Notifier delivers buyer-facing notifications. Email dispatch lives outside this
// service, so the default implementation only records what would be sent.
type Notifier interface {
	OrderConfirmed(ctx context.Context, ev OrderCreatedEvent) error
}

type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) OrderConfirmed(_ context.Context, ev OrderCreatedEvent) error {
	n.Logger.Info("order confirmation handed to notifier",
		"order_id", ev.OrderID,
		"reference", ev.Reference,
		"email", ev.Email,
		"total", ev.Total.StringFixed(2),
	)
	return nil
}

// OrderCreatedHandler adapts a Notifier to the rabbitmq consumer callback.
func OrderCreatedHandler(logger *slog.Logger, notifier Notifier) func(msg amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		ev, err := DecodeOrderCreated(msg.Body)
		if err != nil {
			logger.Warn("dropping malformed order event", "delivery_tag", msg.DeliveryTag, "error", err)
			return err
		}
		return notifier.OrderConfirmed(context.Background(), ev)
	}
}
