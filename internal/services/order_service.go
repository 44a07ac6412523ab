package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uint
	Role   string
}

func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// orderTransitions lists the statuses each order status may move to.
var orderTransitions = map[string][]string{
	models.OrderStatusPending: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped: {models.OrderStatusDelivered, models.OrderStatusCancelled},
}

func validOrderStatus(status string) bool {
	switch status {
	case models.OrderStatusPending, models.OrderStatusShipped, models.OrderStatusDelivered, models.OrderStatusCancelled:
		return true
	}
	return false
}

// OrderService handles business logic related to orders.
type OrderService struct {
	store     repositories.Store
	publisher events.Publisher
	logger    *slog.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(store repositories.Store, publisher events.Publisher, logger *slog.Logger) *OrderService {
	return &OrderService{
		store:     store,
		publisher: publisher,
		logger:    logger.With("service", "order"),
	}
}

// GetOrder returns an order visible to the caller: its buyer or an admin.
func (s *OrderService) GetOrder(ctx context.Context, id uint, caller Principal) (*models.Order, error) {
	order, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.IsAdmin() {
		return order, nil
	}
	if order.BuyerID == nil || *order.BuyerID != caller.UserID {
		return nil, fmt.Errorf("order %d: %w", id, ErrForbidden)
	}
	return order, nil
}

// ListOrders returns the buyer's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, buyerID uint) ([]models.Order, error) {
	return s.store.Orders().ListByBuyer(ctx, buyerID)
}

// UpdateOrderStatus moves an order along its lifecycle. Cancelling puts the ordered
// quantities back in stock in the same transaction.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id uint, status string) (*models.Order, error) {
	if !validOrderStatus(status) {
		return nil, validationf("invalid order status: %s", status)
	}

	var (
		order *models.Order
		from  string
	)
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		var err error
		order, err = tx.Orders().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = order.Status
		if from == status {
			return nil
		}
		if !allowed(orderTransitions[from], status) {
			return fmt.Errorf("order %d cannot move from %s to %s: %w", id, from, status, ErrInvalidTransition)
		}

		if status == models.OrderStatusCancelled {
			// Same row order as checkout takes stock in.
			items := slices.Clone(order.Items)
			slices.SortFunc(items, func(a, b models.OrderItem) int { return cmp.Compare(a.ProductID, b.ProductID) })
			for _, it := range items {
				if err := tx.Products().IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
					return err
				}
			}
		}
		if err := tx.Orders().UpdateStatus(ctx, id, status); err != nil {
			return err
		}
		order.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	if from != status {
		s.logger.Info("order status updated", "order_id", id, "from", from, "to", status)
		events.Emit(s.publisher, s.logger, events.OrderStatusChanged, events.OrderStatusEvent{
			OrderID:    id,
			From:       from,
			To:         status,
			OccurredAt: time.Now().UTC(),
		})
	}
	return order, nil
}

func allowed(options []string, status string) bool {
	for _, o := range options {
		if o == status {
			return true
		}
	}
	return false
}
