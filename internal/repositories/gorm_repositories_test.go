package repositories_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/database"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

func newStore(t *testing.T) *repositories.GORMStore {
	return repositories.NewGORMStore(database.OpenTestDB(t))
}

func TestProductRepository_DecrementStock(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	p := &models.Product{Name: "Mouse", Price: decimal.NewFromInt(25), Stock: 3}
	require.NoError(t, store.Products().Create(ctx, p))

	ok, err := store.Products().DecrementStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	// Only one left, asking for two must not touch the row.
	ok, err = store.Products().DecrementStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)

	require.NoError(t, store.Products().IncrementStock(ctx, p.ID, 4))
	got, err = store.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)

	_, err = store.Products().GetByID(ctx, 9999)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestCartRepository_ReplaceIsFullReplace(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	carts := store.Carts()

	require.NoError(t, carts.Replace(ctx, 1, []models.CartItem{
		{ProductID: 10, Quantity: 1},
		{ProductID: 11, Quantity: 2},
	}))
	require.NoError(t, carts.Replace(ctx, 2, []models.CartItem{{ProductID: 10, Quantity: 7}}))

	require.NoError(t, carts.Replace(ctx, 1, []models.CartItem{
		{ProductID: 11, Quantity: 5},
		{ProductID: 12, Quantity: 1},
	}))

	items, err := carts.GetByUser(ctx, 1)
	require.NoError(t, err)
	got := map[uint]int{}
	for _, it := range items {
		got[it.ProductID] = it.Quantity
	}
	assert.Equal(t, map[uint]int{11: 5, 12: 1}, got)

	// Other users are untouched.
	other, err := carts.GetByUser(ctx, 2)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, 7, other[0].Quantity)

	require.NoError(t, carts.RemoveProducts(ctx, 1, []uint{11}))
	items, err = carts.GetByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, uint(12), items[0].ProductID)

	require.NoError(t, carts.Replace(ctx, 1, nil))
	items, err = carts.GetByUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAddressRepository_SetDefault(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	userID := uint(3)

	a := &models.Address{UserID: &userID, Street: "1 Main", IsDefault: true}
	b := &models.Address{UserID: &userID, Street: "2 Side"}
	require.NoError(t, store.Addresses().Create(ctx, a))
	require.NoError(t, store.Addresses().Create(ctx, b))

	require.NoError(t, store.Addresses().SetDefault(ctx, userID, b.ID))

	list, err := store.Addresses().ListByUser(ctx, userID)
	require.NoError(t, err)
	defaults := 0
	for _, addr := range list {
		if addr.IsDefault {
			defaults++
			assert.Equal(t, b.ID, addr.ID)
		}
	}
	assert.Equal(t, 1, defaults)

	err = store.Addresses().SetDefault(ctx, 99, a.ID)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestSessionRepository_ClaimCartMergeOnce(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	s := &models.Session{UserID: 4, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Sessions().Create(ctx, s))
	assert.NotEmpty(t, s.ID)

	ok, err := store.Sessions().ClaimCartMerge(ctx, s.ID, 5)
	require.NoError(t, err)
	assert.False(t, ok, "another user's session must not be claimable")

	ok, err = store.Sessions().ClaimCartMerge(ctx, s.ID, 4)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Sessions().ClaimCartMerge(ctx, s.ID, 4)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	p := &models.Product{Name: "Keyboard", Price: decimal.NewFromInt(75), Stock: 2}
	require.NoError(t, store.Products().Create(ctx, p))

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx repositories.Store) error {
		order := &models.Order{
			AddressID: 1,
			Total:     decimal.NewFromInt(75),
			Items:     []models.OrderItem{{ProductID: p.ID, Quantity: 1, Price: p.Price}},
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		if _, err := tx.Products().DecrementStock(ctx, p.ID, 1); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)
	_, err = store.Orders().GetByID(ctx, 1)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestPayoutRepository_UniquePerPayment(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.Payouts().Create(ctx, &models.Payout{PaymentID: 1, SellerID: 2, Amount: decimal.NewFromInt(10), Status: models.PayoutStatusPending}))
	err := store.Payouts().Create(ctx, &models.Payout{PaymentID: 1, SellerID: 2, Amount: decimal.NewFromInt(10), Status: models.PayoutStatusPending})
	assert.ErrorIs(t, err, repositories.ErrConflict)

	list, err := store.Payouts().List(ctx, models.PayoutStatusPending)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = store.Payouts().List(ctx, models.PayoutStatusPaid)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUserRepository_DuplicateEmailIsConflict(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.Users().Create(ctx, &models.User{Email: "dup@example.com", Password: "x"}))
	err := store.Users().Create(ctx, &models.User{Email: " DUP@example.com", Password: "y"})
	assert.ErrorIs(t, err, repositories.ErrConflict)

	got, err := store.Users().GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "dup@example.com", got.Email)
	assert.Equal(t, models.RoleCustomer, got.Role)
}
