package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Store groups every repository behind one handle so a service can run several
// of them inside a single database transaction.
type Store interface {
	Products() ProductRepository
	Users() UserRepository
	Sessions() SessionRepository
	Carts() CartRepository
	Addresses() AddressRepository
	Orders() OrderRepository
	Payments() PaymentRepository
	Payouts() PayoutRepository

	// Transaction runs fn against a Store bound to one transaction. The transaction
	// commits when fn returns nil and rolls back on an error or panic.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// GORMStore is the GORM implementation of Store.
type GORMStore struct {
	db *gorm.DB
}

// NewGORMStore creates a new instance of GORMStore.
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{db: db}
}

// DB exposes the underlying handle for health checks and tests.
func (s *GORMStore) DB() *gorm.DB { return s.db }

func (s *GORMStore) Products() ProductRepository  { return NewGORMProductRepository(s.db) }
func (s *GORMStore) Users() UserRepository        { return NewGORMUserRepository(s.db) }
func (s *GORMStore) Sessions() SessionRepository  { return NewGORMSessionRepository(s.db) }
func (s *GORMStore) Carts() CartRepository        { return NewGORMCartRepository(s.db) }
func (s *GORMStore) Addresses() AddressRepository { return NewGORMAddressRepository(s.db) }
func (s *GORMStore) Orders() OrderRepository      { return NewGORMOrderRepository(s.db) }
func (s *GORMStore) Payments() PaymentRepository  { return NewGORMPaymentRepository(s.db) }
func (s *GORMStore) Payouts() PayoutRepository    { return NewGORMPayoutRepository(s.db) }

func (s *GORMStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GORMStore{db: tx})
	})
}
