package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// OrderItem represents a single item within an order.
type OrderItem struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	OrderID   uint            `json:"order_id" gorm:"index;not null"`
	ProductID uint            `json:"product_id" gorm:"index;not null"`
	Quantity  int             `json:"quantity" gorm:"not null;check:quantity > 0"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"` // Price at the time of order
}

// Order represents a customer order. BuyerID is nil for anonymous checkouts.
type Order struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	Reference string          `json:"reference" gorm:"uniqueIndex;type:varchar(36);not null"`
	BuyerID   *uint           `json:"buyer_id,omitempty" gorm:"index"`
	AddressID uint            `json:"address_id" gorm:"not null"`
	Status    string          `json:"status" gorm:"type:varchar(20);not null;default:pending"`
	Shipping  string          `json:"shipping" gorm:"type:varchar(20)"`
	Total     decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null"`
	Items     []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
