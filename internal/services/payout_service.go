package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

func validPayoutStatus(status string) bool {
	switch status {
	case models.PayoutStatusPending, models.PayoutStatusPaid, models.PayoutStatusFailed:
		return true
	}
	return false
}

// PayoutService moves seller payouts from pending to paid or failed exactly once.
//
// Both write paths lock the payment row first and the payout row second, so two admins
// acting on the same settlement serialise instead of racing.
type PayoutService struct {
	store     repositories.Store
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewPayoutService creates a new PayoutService.
func NewPayoutService(store repositories.Store, publisher events.Publisher, logger *slog.Logger) *PayoutService {
	return &PayoutService{
		store:     store,
		publisher: publisher,
		logger:    logger.With("service", "payout"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListPayouts returns payouts, optionally filtered by status.
func (s *PayoutService) ListPayouts(ctx context.Context, status string) ([]models.Payout, error) {
	if status != "" && !validPayoutStatus(status) {
		return nil, validationf("invalid payout status: %s", status)
	}
	return s.store.Payouts().List(ctx, status)
}

// GetPayment returns a payment for the back office.
func (s *PayoutService) GetPayment(ctx context.Context, paymentID uint) (*models.Payment, error) {
	return s.store.Payments().GetByID(ctx, paymentID)
}

// ProcessPayout marks a payment paid and records its payout in one transaction. A payment
// that is already paid is reported with ErrAlreadyProcessed and nothing is written.
func (s *PayoutService) ProcessPayout(ctx context.Context, paymentID uint) (*models.Payment, *models.Payout, error) {
	var (
		payment *models.Payment
		payout  *models.Payout
	)
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		var err error
		payment, err = tx.Payments().GetByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		switch payment.Status {
		case models.PaymentStatusPaid:
			return fmt.Errorf("payment %d: %w", paymentID, ErrAlreadyProcessed)
		case models.PaymentStatusRefunded, models.PaymentStatusFailed:
			return fmt.Errorf("payment %d is %s: %w", paymentID, payment.Status, ErrInvalidTransition)
		}

		now := s.now()
		payout, err = tx.Payouts().GetByPaymentIDForUpdate(ctx, paymentID)
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			payout = &models.Payout{
				PaymentID: payment.ID,
				SellerID:  payment.SellerID,
				Amount:    payment.Amount,
				Status:    models.PayoutStatusPaid,
				PaidAt:    &now,
			}
			if err := tx.Payouts().Create(ctx, payout); err != nil {
				return err
			}
		case err != nil:
			return err
		case payout.Status == models.PayoutStatusPaid:
			return fmt.Errorf("payout %d for payment %d: %w", payout.ID, paymentID, ErrAlreadyProcessed)
		case payout.Status == models.PayoutStatusFailed:
			return fmt.Errorf("payout %d for payment %d is failed: %w", payout.ID, paymentID, ErrInvalidTransition)
		default:
			if err := tx.Payouts().UpdateStatus(ctx, payout.ID, models.PayoutStatusPaid, &now); err != nil {
				return err
			}
			payout.Status = models.PayoutStatusPaid
			payout.PaidAt = &now
		}

		if err := tx.Payments().MarkPaid(ctx, payment.ID, now); err != nil {
			return err
		}
		payment.Status = models.PaymentStatusPaid
		payment.PaidAt = &now
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			s.logger.Info("payout already processed", "payment_id", paymentID)
		} else {
			s.logger.Warn("payout not processed", "payment_id", paymentID, "error", err)
		}
		return nil, nil, err
	}

	s.logger.Info("payout processed", "payment_id", paymentID, "payout_id", payout.ID, "amount", payout.Amount.StringFixed(2))
	events.Emit(s.publisher, s.logger, events.PayoutPaid, payoutEvent(payout, s.now()))
	return payment, payout, nil
}

// UpdatePayoutStatus sets a payout's status. Only pending payouts can change; setting
// the status a payout already has is a no-op. Paying a payout also marks its payment paid.
func (s *PayoutService) UpdatePayoutStatus(ctx context.Context, payoutID uint, status string) (*models.Payout, error) {
	if !validPayoutStatus(status) {
		return nil, validationf("invalid payout status: %s", status)
	}

	var (
		payout  *models.Payout
		changed bool
	)
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		current, err := tx.Payouts().GetByID(ctx, payoutID)
		if err != nil {
			return err
		}
		payment, err := tx.Payments().GetByIDForUpdate(ctx, current.PaymentID)
		if err != nil {
			return fmt.Errorf("payout %d references payment %d: %w", payoutID, current.PaymentID, err)
		}
		payout, err = tx.Payouts().GetByIDForUpdate(ctx, payoutID)
		if err != nil {
			return err
		}

		if payout.Status == status {
			return nil
		}
		if payout.Status != models.PayoutStatusPending {
			return fmt.Errorf("payout %d is already %s: %w", payoutID, payout.Status, ErrInvalidTransition)
		}

		var paidAt *time.Time
		if status == models.PayoutStatusPaid {
			now := s.now()
			paidAt = &now
			if payment.Status != models.PaymentStatusPaid {
				if err := tx.Payments().MarkPaid(ctx, payment.ID, now); err != nil {
					return err
				}
			}
		}
		if err := tx.Payouts().UpdateStatus(ctx, payoutID, status, paidAt); err != nil {
			return err
		}
		payout.Status = status
		payout.PaidAt = paidAt
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("payout status updated", "payout_id", payoutID, "status", status)
		key := events.PayoutStatusChanged
		if status == models.PayoutStatusPaid {
			key = events.PayoutPaid
		}
		events.Emit(s.publisher, s.logger, key, payoutEvent(payout, s.now()))
	}
	return payout, nil
}

func payoutEvent(p *models.Payout, at time.Time) events.PayoutEvent {
	return events.PayoutEvent{
		PayoutID:   p.ID,
		PaymentID:  p.PaymentID,
		SellerID:   p.SellerID,
		Amount:     p.Amount,
		Status:     p.Status,
		OccurredAt: at,
	}
}
