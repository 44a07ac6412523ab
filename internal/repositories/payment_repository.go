package repositories

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/models"
)

// PaymentRepository defines the interface for payment data access. Payments are
// written by the settlement process; this service reads and settles them.
type PaymentRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Payment, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Payment, error)
	MarkPaid(ctx context.Context, id uint, at time.Time) error
}

// PayoutRepository defines the interface for payout data access.
type PayoutRepository interface {
	Create(ctx context.Context, payout *models.Payout) error
	GetByID(ctx context.Context, id uint) (*models.Payout, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Payout, error)
	GetByPaymentIDForUpdate(ctx context.Context, paymentID uint) (*models.Payout, error)
	List(ctx context.Context, status string) ([]models.Payout, error)
	UpdateStatus(ctx context.Context, id uint, status string, paidAt *time.Time) error
}

// GORMPaymentRepository is a GORM implementation of PaymentRepository.
type GORMPaymentRepository struct {
	db *gorm.DB
}

func NewGORMPaymentRepository(db *gorm.DB) *GORMPaymentRepository {
	return &GORMPaymentRepository{db: db}
}

func (r *GORMPaymentRepository) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	return getPayment(r.db.WithContext(ctx), id)
}

func (r *GORMPaymentRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Payment, error) {
	return getPayment(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func getPayment(db *gorm.DB, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := db.First(&payment, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("payment with ID %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment %d: %w", id, err)
	}
	return &payment, nil
}

func (r *GORMPaymentRepository) MarkPaid(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).
		Updates(map[string]any{"status": models.PaymentStatusPaid, "paid_at": at})
	if res.Error != nil {
		return fmt.Errorf("failed to mark payment %d paid: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("payment with ID %d: %w", id, ErrNotFound)
	}
	return nil
}

// GORMPayoutRepository is a GORM implementation of PayoutRepository.
type GORMPayoutRepository struct {
	db *gorm.DB
}

func NewGORMPayoutRepository(db *gorm.DB) *GORMPayoutRepository {
	return &GORMPayoutRepository{db: db}
}

func (r *GORMPayoutRepository) Create(ctx context.Context, payout *models.Payout) error {
	if err := r.db.WithContext(ctx).Create(payout).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("payout for payment %d: %w", payout.PaymentID, ErrConflict)
		}
		return fmt.Errorf("failed to create payout: %w", err)
	}
	return nil
}

func (r *GORMPayoutRepository) GetByID(ctx context.Context, id uint) (*models.Payout, error) {
	return getPayout(r.db.WithContext(ctx), "id", id)
}

func (r *GORMPayoutRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Payout, error) {
	return getPayout(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), "id", id)
}

func (r *GORMPayoutRepository) GetByPaymentIDForUpdate(ctx context.Context, paymentID uint) (*models.Payout, error) {
	return getPayout(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), "payment_id", paymentID)
}

func getPayout(db *gorm.DB, column string, id uint) (*models.Payout, error) {
	var payout models.Payout
	if err := db.First(&payout, column+" = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("payout with %s %d: %w", column, id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payout with %s %d: %w", column, id, err)
	}
	return &payout, nil
}

func (r *GORMPayoutRepository) List(ctx context.Context, status string) ([]models.Payout, error) {
	q := r.db.WithContext(ctx).Order("id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var payouts []models.Payout
	if err := q.Find(&payouts).Error; err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	return payouts, nil
}

func (r *GORMPayoutRepository) UpdateStatus(ctx context.Context, id uint, status string, paidAt *time.Time) error {
	updates := map[string]any{"status": status}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}
	res := r.db.WithContext(ctx).Model(&models.Payout{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update payout %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("payout with ID %d: %w", id, ErrNotFound)
	}
	return nil
}
