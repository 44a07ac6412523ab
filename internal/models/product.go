package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry. Stock is the authoritative count of purchasable units
// and never goes below zero.
type Product struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	SellerID    *uint           `json:"seller_id,omitempty" gorm:"index"`
	Name        string          `json:"name" gorm:"type:varchar(200);not null"`
	Description string          `json:"description,omitempty" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Stock       int             `json:"stock" gorm:"not null;default:0;check:stock >= 0"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `json:"-" gorm:"index"`
}
