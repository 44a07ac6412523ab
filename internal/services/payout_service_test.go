package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/events"
	"storefront/internal/logging"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
)

// seedPayment writes a payment the way the settlement process would.
func seedPayment(t *testing.T, store *repositories.GORMStore, status string) *models.Payment {
	t.Helper()
	p := &models.Payment{OrderID: 1, SellerID: 7, Amount: decimal.RequireFromString("42.50"), Status: status}
	require.NoError(t, store.DB().Create(p).Error)
	return p
}

func TestProcessPayout_CreatesPaidPayout(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	pub := new(MockPublisher)
	svc := services.NewPayoutService(store, pub, logging.Discard())
	payment := seedPayment(t, store, models.PaymentStatusCompleted)

	pub.On("Publish", events.PayoutPaid, mock.Anything).Return(nil).Once()

	gotPayment, payout, err := svc.ProcessPayout(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, gotPayment.Status)
	assert.NotNil(t, gotPayment.PaidAt)
	assert.Equal(t, models.PayoutStatusPaid, payout.Status)
	assert.Equal(t, payment.ID, payout.PaymentID)
	assert.Equal(t, uint(7), payout.SellerID)
	assert.True(t, decimal.RequireFromString("42.50").Equal(payout.Amount))

	stored, err := store.Payments().GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, stored.Status)

	_, _, err = svc.ProcessPayout(ctx, payment.ID)
	assert.ErrorIs(t, err, services.ErrAlreadyProcessed)
	assert.Equal(t, int64(1), countRows(t, store, &models.Payout{}))
	pub.AssertExpectations(t)
}

func TestProcessPayout_ConcurrentCallsPayOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := services.NewPayoutService(store, nil, logging.Discard())
	payment := seedPayment(t, store, models.PaymentStatusCompleted)

	const admins = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		already   int
	)
	for i := 0; i < admins; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.ProcessPayout(ctx, payment.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, services.ErrAlreadyProcessed):
				already++
			default:
				t.Errorf("unexpected payout error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, admins-1, already)
	assert.Equal(t, int64(1), countRows(t, store, &models.Payout{}))
}

func TestProcessPayout_AdvancesPendingPayout(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := services.NewPayoutService(store, nil, logging.Discard())
	payment := seedPayment(t, store, models.PaymentStatusCompleted)
	pending := &models.Payout{PaymentID: payment.ID, SellerID: payment.SellerID, Amount: payment.Amount, Status: models.PayoutStatusPending}
	require.NoError(t, store.Payouts().Create(ctx, pending))

	_, payout, err := svc.ProcessPayout(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, payout.ID)
	assert.Equal(t, models.PayoutStatusPaid, payout.Status)
	assert.Equal(t, int64(1), countRows(t, store, &models.Payout{}))
}

func TestProcessPayout_Rejections(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := services.NewPayoutService(store, nil, logging.Discard())

	_, _, err := svc.ProcessPayout(ctx, 9999)
	assert.ErrorIs(t, err, services.ErrNotFound)

	refunded := seedPayment(t, store, models.PaymentStatusRefunded)
	_, _, err = svc.ProcessPayout(ctx, refunded.ID)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	withFailed := seedPayment(t, store, models.PaymentStatusCompleted)
	require.NoError(t, store.Payouts().Create(ctx, &models.Payout{
		PaymentID: withFailed.ID, SellerID: withFailed.SellerID, Amount: withFailed.Amount, Status: models.PayoutStatusFailed,
	}))
	_, _, err = svc.ProcessPayout(ctx, withFailed.ID)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	stored, err := store.Payments().GetByID(ctx, withFailed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Status)
}

func TestUpdatePayoutStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	pub := new(MockPublisher)
	svc := services.NewPayoutService(store, pub, logging.Discard())
	payment := seedPayment(t, store, models.PaymentStatusCompleted)
	payout := &models.Payout{PaymentID: payment.ID, SellerID: payment.SellerID, Amount: payment.Amount, Status: models.PayoutStatusPending}
	require.NoError(t, store.Payouts().Create(ctx, payout))

	_, err := svc.UpdatePayoutStatus(ctx, payout.ID, "sent")
	assert.ErrorIs(t, err, services.ErrValidation)

	// Same status: no write, no event.
	got, err := svc.UpdatePayoutStatus(ctx, payout.ID, models.PayoutStatusPending)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusPending, got.Status)

	pub.On("Publish", events.PayoutPaid, mock.Anything).Return(nil).Once()
	got, err = svc.UpdatePayoutStatus(ctx, payout.ID, models.PayoutStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusPaid, got.Status)
	assert.NotNil(t, got.PaidAt)

	stored, err := store.Payments().GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, stored.Status)

	_, err = svc.UpdatePayoutStatus(ctx, payout.ID, models.PayoutStatusFailed)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	_, err = svc.UpdatePayoutStatus(ctx, 9999, models.PayoutStatusPaid)
	assert.ErrorIs(t, err, services.ErrNotFound)
	pub.AssertExpectations(t)
}

func TestUpdatePayoutStatus_FailLeavesPaymentUnpaid(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	pub := new(MockPublisher)
	svc := services.NewPayoutService(store, pub, logging.Discard())
	payment := seedPayment(t, store, models.PaymentStatusCompleted)
	payout := &models.Payout{PaymentID: payment.ID, SellerID: payment.SellerID, Amount: payment.Amount, Status: models.PayoutStatusPending}
	require.NoError(t, store.Payouts().Create(ctx, payout))

	pub.On("Publish", events.PayoutStatusChanged, mock.Anything).Return(nil).Once()
	got, err := svc.UpdatePayoutStatus(ctx, payout.ID, models.PayoutStatusFailed)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusFailed, got.Status)
	assert.Nil(t, got.PaidAt)

	stored, err := store.Payments().GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Status)

	payouts, err := svc.ListPayouts(ctx, models.PayoutStatusFailed)
	require.NoError(t, err)
	assert.Len(t, payouts, 1)

	_, err = svc.ListPayouts(ctx, "bogus")
	assert.ErrorIs(t, err, services.ErrValidation)
	pub.AssertExpectations(t)
}
