package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/database"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

// MockPublisher is a mock implementation of events.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(routingKey string, body []byte) error {
	args := m.Called(routingKey, body)
	return args.Error(0)
}

func newTestStore(t *testing.T) *repositories.GORMStore {
	t.Helper()
	return repositories.NewGORMStore(database.OpenTestDB(t))
}

func seedProduct(t *testing.T, store repositories.Store, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock}
	require.NoError(t, store.Products().Create(context.Background(), p))
	return p
}

func seedUser(t *testing.T, store repositories.Store, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Password: "x", Role: models.RoleCustomer}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return u
}

func seedSession(t *testing.T, store repositories.Store, userID uint) *models.Session {
	t.Helper()
	s := &models.Session{UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Sessions().Create(context.Background(), s))
	return s
}

func stockOf(t *testing.T, store repositories.Store, id uint) int {
	t.Helper()
	p, err := store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func countRows(t *testing.T, store *repositories.GORMStore, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, store.DB().Model(model).Count(&n).Error)
	return n
}
