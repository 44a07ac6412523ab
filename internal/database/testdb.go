package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storefront/internal/config"
)

// OpenTestDB returns a migrated in-memory SQLite database private to the calling test.
// A single connection serialises transactions, which stands in for the row locks
// postgres would take.
func OpenTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := Open(context.Background(), config.Database{
		Driver:       "sqlite",
		DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1",
		MaxOpenConns: 1,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	return db
}
