package repositories

import (
	"context"

	"storefront/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// SessionRepository defines the interface for login session data access.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	// ClaimCartMerge flips the session's cart_merged flag from false to true and
	// reports whether this call was the one that flipped it.
	ClaimCartMerge(ctx context.Context, sessionID string, userID uint) (bool, error)
}
