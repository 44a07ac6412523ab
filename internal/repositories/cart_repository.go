package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/models"
)

// CartRepository defines the interface for the persisted, per-user cart.
type CartRepository interface {
	GetByUser(ctx context.Context, userID uint) ([]models.CartItem, error)
	// Replace makes the user's persisted cart equal to items exactly.
	Replace(ctx context.Context, userID uint, items []models.CartItem) error
	RemoveProducts(ctx context.Context, userID uint, productIDs []uint) error
}

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{db: db}
}

func (r *GORMCartRepository) GetByUser(ctx context.Context, userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to get cart for user %d: %w", userID, err)
	}
	return items, nil
}

func (r *GORMCartRepository) Replace(ctx context.Context, userID uint, items []models.CartItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keep := make([]uint, 0, len(items))
		for i := range items {
			items[i].UserID = userID
			keep = append(keep, items[i].ProductID)
		}

		del := tx.Where("user_id = ?", userID)
		if len(keep) > 0 {
			del = del.Where("product_id NOT IN ?", keep)
		}
		if err := del.Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to prune cart for user %d: %w", userID, err)
		}
		if len(items) == 0 {
			return nil
		}

		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).Create(&items).Error
		if err != nil {
			return fmt.Errorf("failed to upsert cart for user %d: %w", userID, err)
		}
		return nil
	})
}

func (r *GORMCartRepository) RemoveProducts(ctx context.Context, userID uint, productIDs []uint) error {
	if len(productIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id IN ?", userID, productIDs).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove purchased items from cart for user %d: %w", userID, err)
	}
	return nil
}
