package models

// All lists every model managed by migrations.
func All() []any {
	return []any{
		&Product{},
		&User{},
		&Session{},
		&CartItem{},
		&Address{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&Payout{},
	}
}
