package models

import "time"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User represents a user of the store.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(200)"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null"`
	Role      string    `json:"role" gorm:"type:varchar(20);not null;default:customer"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session is one authenticated login. CartMerged is the sticky flag that keeps the
// anonymous-cart merge from running more than once for the same login.
type Session struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     uint      `json:"user_id" gorm:"index;not null"`
	CartMerged bool      `json:"cart_merged" gorm:"not null;default:false"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}
