package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// Claims is what a validated access token says about its bearer.
type Claims struct {
	UserID    uint
	Role      string
	SessionID string
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo    repositories.UserRepository
	sessionRepo repositories.SessionRepository
	jwtSecret   []byte
	tokenTTL    time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, sessionRepo repositories.SessionRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		jwtSecret:   []byte(jwtSecret),
		tokenTTL:    tokenTTL,
	}
}

// HashPassword returns the bcrypt hash stored for a user's password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// RegisterUser registers a new user, hashes their password, and saves them to the database.
func (s *AuthService) RegisterUser(ctx context.Context, user *models.User) error {
	existing, err := s.userRepo.GetByEmail(ctx, user.Email)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("email '%s' already registered: %w", user.Email, ErrConflict)
	}

	hashed, err := HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.Password = hashed
	user.Role = models.RoleCustomer

	if err := s.userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

// LoginUser authenticates a user, opens a new session and returns a JWT bound to it.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil || user == nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	session := &models.Session{UserID: user.ID, ExpiresAt: now.Add(s.tokenTTL)}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return "", fmt.Errorf("failed to open session: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    user.ID,
		"role":       user.Role,
		"session_id": session.ID,
		"exp":        session.ExpiresAt.Unix(),
		"iat":        now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning its claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	// JSON numbers decode as float64.
	rawID, ok := mc["user_id"].(float64)
	if !ok || rawID <= 0 {
		return nil, fmt.Errorf("invalid token: missing user_id")
	}
	claims := &Claims{UserID: uint(rawID)}
	claims.Role, _ = mc["role"].(string)
	claims.SessionID, _ = mc["session_id"].(string)
	return claims, nil
}

// Authenticate validates a token and checks it against the login session it was issued
// for. A revoked or expired session, or a deleted user, makes the token unusable. The
// role is read from the user so a demoted admin loses access before the token expires.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("%w: token has no session", ErrInvalidCredentials)
	}

	session, err := s.sessionRepo.GetByID(ctx, claims.SessionID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: session not found", ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.UserID != claims.UserID || !time.Now().Before(session.ExpiresAt) {
		return nil, fmt.Errorf("%w: session expired", ErrInvalidCredentials)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: user not found", ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	claims.Role = user.Role
	return claims, nil
}
