package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/models"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.Reference == "" {
		order.Reference = uuid.New().String()
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}

	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	if len(order.Items) == 0 {
		return nil
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	if err := db.Create(&order.Items).Error; err != nil {
		return fmt.Errorf("failed to create items for order %d: %w", order.ID, err)
	}
	return nil
}

func (r *GORMOrderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	return r.get(ctx, id, false)
}

func (r *GORMOrderRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Order, error) {
	return r.get(ctx, id, true)
}

func (r *GORMOrderRepository) get(ctx context.Context, id uint, lock bool) (*models.Order, error) {
	q := r.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := q.First(&order, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("order with ID %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Order("id").Find(&order.Items).Error; err != nil {
		return nil, fmt.Errorf("failed to get items for order %d: %w", id, err)
	}
	return &order, nil
}

func (r *GORMOrderRepository) ListByBuyer(ctx context.Context, buyerID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for buyer %d: %w", buyerID, err)
	}
	return orders, nil
}

func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update status of order %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %d: %w", id, ErrNotFound)
	}
	return nil
}
