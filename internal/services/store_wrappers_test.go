package services_test

import (
	"context"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

type stockCall struct {
	op        string
	productID uint
}

// recordingStore logs every stock change made through it, inside transactions too.
type recordingStore struct {
	repositories.Store
	calls *[]stockCall
}

func (s recordingStore) Products() repositories.ProductRepository {
	return stockRecorder{ProductRepository: s.Store.Products(), calls: s.calls}
}

func (s recordingStore) Transaction(ctx context.Context, fn func(tx repositories.Store) error) error {
	return s.Store.Transaction(ctx, func(tx repositories.Store) error {
		return fn(recordingStore{Store: tx, calls: s.calls})
	})
}

type stockRecorder struct {
	repositories.ProductRepository
	calls *[]stockCall
}

func (r stockRecorder) DecrementStock(ctx context.Context, id uint, qty int) (bool, error) {
	*r.calls = append(*r.calls, stockCall{op: "decrement", productID: id})
	return r.ProductRepository.DecrementStock(ctx, id, qty)
}

func (r stockRecorder) IncrementStock(ctx context.Context, id uint, qty int) error {
	*r.calls = append(*r.calls, stockCall{op: "increment", productID: id})
	return r.ProductRepository.IncrementStock(ctx, id, qty)
}

// staleEmailStore never finds a user by email, like a reader that raced a concurrent
// signup for the same address.
type staleEmailStore struct {
	repositories.Store
}

func (s staleEmailStore) Users() repositories.UserRepository {
	return staleEmailUsers{UserRepository: s.Store.Users()}
}

func (s staleEmailStore) Transaction(ctx context.Context, fn func(tx repositories.Store) error) error {
	return s.Store.Transaction(ctx, func(tx repositories.Store) error {
		return fn(staleEmailStore{Store: tx})
	})
}

type staleEmailUsers struct {
	repositories.UserRepository
}

func (staleEmailUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, repositories.ErrNotFound
}
