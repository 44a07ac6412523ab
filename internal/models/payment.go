package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusRefunded  = "refunded"
	PaymentStatusFailed    = "failed"
	PaymentStatusPaid      = "paid"
)

const (
	PayoutStatusPending = "pending"
	PayoutStatusPaid    = "paid"
	PayoutStatusFailed  = "failed"
)

// Payment is the settlement of an order toward one seller.
type Payment struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	OrderID   uint            `json:"order_id" gorm:"index;not null"`
	SellerID  uint            `json:"seller_id" gorm:"index;not null"`
	BuyerID   *uint           `json:"buyer_id,omitempty"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Status    string          `json:"status" gorm:"type:varchar(20);not null;default:pending"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Payout is the disbursement of a payment to its seller. There is at most one payout
// per payment and it never leaves the paid or failed state.
type Payout struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	PaymentID uint            `json:"payment_id" gorm:"uniqueIndex;not null"`
	SellerID  uint            `json:"seller_id" gorm:"index;not null"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Status    string          `json:"status" gorm:"type:varchar(20);not null;default:pending"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
