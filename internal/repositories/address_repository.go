package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"storefront/internal/models"
)

// AddressRepository defines the interface for address data access.
type AddressRepository interface {
	Create(ctx context.Context, address *models.Address) error
	GetByID(ctx context.Context, id uint) (*models.Address, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Address, error)
	// SetDefault makes addressID the only default address of userID.
	SetDefault(ctx context.Context, userID, addressID uint) error
}

// GORMAddressRepository is a GORM implementation of AddressRepository.
type GORMAddressRepository struct {
	db *gorm.DB
}

func NewGORMAddressRepository(db *gorm.DB) *GORMAddressRepository {
	return &GORMAddressRepository{db: db}
}

func (r *GORMAddressRepository) Create(ctx context.Context, address *models.Address) error {
	if err := r.db.WithContext(ctx).Create(address).Error; err != nil {
		return fmt.Errorf("failed to create address: %w", err)
	}
	return nil
}

func (r *GORMAddressRepository) GetByID(ctx context.Context, id uint) (*models.Address, error) {
	var address models.Address
	if err := r.db.WithContext(ctx).First(&address, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("address with ID %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get address %d: %w", id, err)
	}
	return &address, nil
}

func (r *GORMAddressRepository) ListByUser(ctx context.Context, userID uint) ([]models.Address, error) {
	var addresses []models.Address
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&addresses).Error; err != nil {
		return nil, fmt.Errorf("failed to list addresses for user %d: %w", userID, err)
	}
	return addresses, nil
}

func (r *GORMAddressRepository) SetDefault(ctx context.Context, userID, addressID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Address{}).
			Where("user_id = ? AND is_default = ?", userID, true).
			Update("is_default", false).Error; err != nil {
			return fmt.Errorf("failed to unset default addresses for user %d: %w", userID, err)
		}
		res := tx.Model(&models.Address{}).
			Where("id = ? AND user_id = ?", addressID, userID).
			Update("is_default", true)
		if res.Error != nil {
			return fmt.Errorf("failed to set default address %d: %w", addressID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("address with ID %d for user %d: %w", addressID, userID, ErrNotFound)
		}
		return nil
	})
}
