package services

import (
	"errors"
	"fmt"
	"strings"

	"storefront/internal/repositories"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = repositories.ErrNotFound
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = repositories.ErrConflict
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrAlreadyProcessed   = errors.New("already processed")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

// StockShortage describes one cart line that asks for more than is in stock.
type StockShortage struct {
	ProductID uint   `json:"productId"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func (s StockShortage) String() string {
	if s.Available <= 0 {
		return fmt.Sprintf("%s is out of stock", s.Name)
	}
	return fmt.Sprintf("Only %d of %s left", s.Available, s.Name)
}

// InsufficientStockError lists every shortage found for a checkout.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	msgs := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		msgs = append(msgs, s.String())
	}
	return strings.Join(msgs, "; ")
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}
