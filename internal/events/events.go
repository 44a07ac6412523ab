package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// Routing keys published on the storefront exchange.
const (
	OrderCreated        = "order.created"
	OrderStatusChanged  = "order.status_changed"
	PayoutPaid          = "payout.paid"
	PayoutStatusChanged = "payout.status_changed"
)

// Publisher sends an already-encoded event. *rabbitmq.Client satisfies it.
type Publisher interface {
	Publish(routingKey string, body []byte) error
}

type OrderLine struct {
	ProductID uint            `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderCreatedEvent struct {
	OrderID    uint            `json:"order_id"`
	Reference  string          `json:"reference"`
	BuyerID    *uint           `json:"buyer_id,omitempty"`
	Email      string          `json:"email,omitempty"`
	Total      decimal.Decimal `json:"total"`
	Items      []OrderLine     `json:"items"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type OrderStatusEvent struct {
	OrderID    uint      `json:"order_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	OccurredAt time.Time `json:"occurred_at"`
}

type PayoutEvent struct {
	PayoutID   uint            `json:"payout_id"`
	PaymentID  uint            `json:"payment_id"`
	SellerID   uint            `json:"seller_id"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Emit publishes v under routingKey. Events are sent after the owning transaction has
// committed, so failures are logged and never returned to the caller.
func Emit(pub Publisher, logger *slog.Logger, routingKey string, v any) {
	if pub == nil {
		logger.Debug("event publisher not configured, skipping", "routing_key", routingKey)
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		logger.Error("failed to marshal event", "routing_key", routingKey, "error", err)
		return
	}
	if err := pub.Publish(routingKey, body); err != nil {
		logger.Warn("failed to publish event", "routing_key", routingKey, "error", err)
		return
	}
	logger.Info("event published", "routing_key", routingKey)
}

// DecodeOrderCreated parses an order.created message body.
func DecodeOrderCreated(body []byte) (OrderCreatedEvent, error) {
	var ev OrderCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("invalid %s payload: %w", OrderCreated, err)
	}
	if ev.OrderID == 0 {
		return ev, fmt.Errorf("invalid %s payload: missing order_id", OrderCreated)
	}
	return ev, nil
}
