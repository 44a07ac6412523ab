package services_test

import (
	"context"
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

func seedOrder(t *testing.T, store repositories.Store, buyerID *uint, product *models.Product, qty int) *models.Order {
	t.Helper()
	o := &models.Order{
		BuyerID:   buyerID,
		AddressID: 1,
		Total:     product.Price.Mul(decimal.NewFromInt(int64(qty))),
		Items:     []models.OrderItem{{ProductID: product.ID, Quantity: qty, Price: product.Price}},
	}
	require.NoError(t, store.Orders().Create(context.Background(), o))
	return o
}

func TestOrderService_GetOrderVisibility(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := services.NewOrderService(store, nil, logging.Discard())
	buyer := seedUser(t, store, "buyer@example.com")
	other := seedUser(t, store, "other@example.com")
	p := seedProduct(t, store, "Widget", "10.00", 5)
	order := seedOrder(t, store, &buyer.ID, p, 2)
	guestOrder := seedOrder(t, store, nil, p, 1)

	got, err := svc.GetOrder(ctx, order.ID, services.Principal{UserID: buyer.ID, Role: models.RoleCustomer})
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)

	_, err = svc.GetOrder(ctx, order.ID, services.Principal{UserID: other.ID, Role: models.RoleCustomer})
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = svc.GetOrder(ctx, guestOrder.ID, services.Principal{UserID: other.ID, Role: models.RoleCustomer})
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = svc.GetOrder(ctx, guestOrder.ID, services.Principal{UserID: other.ID, Role: models.RoleAdmin})
	assert.NoError(t, err)

	_, err = svc.GetOrder(ctx, 9999, services.Principal{Role: models.RoleAdmin})
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestOrderService_ListOrders(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := services.NewOrderService(store, nil, logging.Discard())
	buyer := seedUser(t, store, "buyer@example.com")
	p := seedProduct(t, store, "Widget", "10.00", 5)
	seedOrder(t, store, &buyer.ID, p, 1)
	seedOrder(t, store, &buyer.ID, p, 2)
	seedOrder(t, store, nil, p, 3)

	orders, err := svc.ListOrders(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	for _, o := range orders {
		assert.Len(t, o.Items, 1)
	}
}

func TestOrderService_CancelRestocks(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	pub := new(MockPublisher)
	svc := services.NewOrderService(store, pub, logging.Discard())
	p := seedProduct(t, store, "Widget", "10.00", 3)
	order := seedOrder(t, store, nil, p, 2)

	pub.On("Publish", events.OrderStatusChanged, mock.Anything).Return(nil).Twice()

	updated, err := svc.UpdateOrderStatus(ctx, order.ID, models.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, updated.Status)
	assert.Equal(t, 3, stockOf(t, store, p.ID))

	updated, err = svc.UpdateOrderStatus(ctx, order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, updated.Status)
	assert.Equal(t, 5, stockOf(t, store, p.ID))

	// Repeating the current status changes nothing and publishes nothing.
	_, err = svc.UpdateOrderStatus(ctx, order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 5, stockOf(t, store, p.ID))
	pub.AssertExpectations(t)
}

func TestOrderService_RejectsInvalidTransitions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := services.NewOrderService(store, nil, logging.Discard())
	p := seedProduct(t, store, "Widget", "10.00", 3)
	order := seedOrder(t, store, nil, p, 1)

	_, err := svc.UpdateOrderStatus(ctx, order.ID, "lost")
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = svc.UpdateOrderStatus(ctx, order.ID, models.OrderStatusDelivered)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	_, err = svc.UpdateOrderStatus(ctx, order.ID, models.OrderStatusShipped)
	require.NoError(t, err)
	_, err = svc.UpdateOrderStatus(ctx, order.ID, models.OrderStatusDelivered)
	require.NoError(t, err)

	_, err = svc.UpdateOrderStatus(ctx, order.ID, models.OrderStatusCancelled)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)
	assert.Equal(t, 3, stockOf(t, store, p.ID))

	_, err = svc.UpdateOrderStatus(ctx, 9999, models.OrderStatusShipped)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestOrderService_CancelRestocksInProductIDOrder(t *testing.T) {
	ctx := context.Background()
	base := newTestStore(t)
	var calls []stockCall
	svc := services.NewOrderService(recordingStore{Store: base, calls: &calls}, nil, logging.Discard())
	a := seedProduct(t, base, "A", "1.00", 5)
	b := seedProduct(t, base, "B", "1.00", 5)

	order := &models.Order{
		AddressID: 1,
		Total:     decimal.NewFromInt(3),
		Items: []models.OrderItem{
			{ProductID: b.ID, Quantity: 2, Price: b.Price},
			{ProductID: a.ID, Quantity: 1, Price: a.Price},
		},
	}
	require.NoError(t, base.Orders().Create(ctx, order))

	_, err := svc.UpdateOrderStatus(ctx, order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)

	assert.Equal(t, []stockCall{
		{op: "increment", productID: a.ID},
		{op: "increment", productID: b.ID},
	}, calls)
	assert.Equal(t, 6, stockOf(t, base, a.ID))
	assert.Equal(t, 7, stockOf(t, base, b.ID))
}
