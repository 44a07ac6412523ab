package models

import "time"

// CartItem is one persisted cart row. There is at most one row per (user, product).
type CartItem struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	UserID    uint      `json:"userId" gorm:"uniqueIndex:idx_cart_user_product;not null"`
	ProductID uint      `json:"productId" gorm:"uniqueIndex:idx_cart_user_product;not null"`
	Quantity  int       `json:"quantity" gorm:"not null;check:quantity > 0"`
	UpdatedAt time.Time `json:"-"`
}

func (CartItem) TableName() string {
	return "cart_items"
}
