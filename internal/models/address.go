package models

import "time"

// Address is a billing or shipping address. UserID is nil for guest checkouts that did
// not create an account. At most one address per user has IsDefault set.
type Address struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     *uint     `json:"user_id,omitempty" gorm:"index"`
	FullName   string    `json:"full_name" gorm:"type:varchar(200)"`
	Street     string    `json:"street" gorm:"type:varchar(255)"`
	City       string    `json:"city" gorm:"type:varchar(100)"`
	State      string    `json:"state" gorm:"type:varchar(100)"`
	PostalCode string    `json:"postal_code" gorm:"type:varchar(20)"`
	Country    string    `json:"country" gorm:"type:varchar(100)"`
	Phone      string    `json:"phone" gorm:"type:varchar(50)"`
	IsDefault  bool      `json:"is_default" gorm:"not null;default:false"`
	CreatedAt  time.Time `json:"created_at"`
}
