package repositories

import (
	"context"

	"storefront/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// Create inserts the order row and then one row per item.
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	// GetByIDForUpdate loads the order with its items and locks the order row.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uint) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
}
