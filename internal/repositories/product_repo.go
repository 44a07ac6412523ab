package repositories

import (
	"context"

	"storefront/internal/models"
)

// ProductRepository defines the interface for product and inventory data access.
type ProductRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	// DecrementStock removes qty units only if at least qty are in stock.
	// It reports false, without error, when the stock was too low.
	DecrementStock(ctx context.Context, id uint, qty int) (bool, error)
	IncrementStock(ctx context.Context, id uint, qty int) error
}
