package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/logging"
	"storefront/internal/models"
	"storefront/internal/services"
)

const (
	localUserID    = "user_id"
	localRole      = "role"
	localSessionID = "session_id"
)

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}
		return authenticate(c, authService, authHeader)
	}
}

// OptionalAuth attaches the caller's identity when a token is sent and lets anonymous
// requests through. A token that is sent but invalid is still rejected.
func OptionalAuth(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Next()
		}
		return authenticate(c, authService, authHeader)
	}
}

func authenticate(c *fiber.Ctx, authService *services.AuthService, authHeader string) error {
	// Expected format: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authorization header format must be 'Bearer <token>'",
		})
	}

	claims, err := authService.Authenticate(c.UserContext(), parts[1])
	if err != nil {
		if !errors.Is(err, services.ErrInvalidCredentials) {
			logging.FromContext(c.UserContext()).Error("authentication failed", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not authenticate request",
			})
		}
		logging.FromContext(c.UserContext()).Info("JWT validation failed", "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid or expired token",
			"error":   err.Error(),
		})
	}

	c.Locals(localUserID, claims.UserID)
	c.Locals(localRole, claims.Role)
	c.Locals(localSessionID, claims.SessionID)

	logger := logging.FromContext(c.UserContext()).With("user_id", claims.UserID)
	c.SetUserContext(logging.IntoContext(c.UserContext(), logger))
	return c.Next()
}

// AdminOnly rejects callers without the admin role. It must run after AuthRequired.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := CurrentPrincipal(c)
		if !ok || !p.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Admin access required",
			})
		}
		return c.Next()
	}
}

// CurrentPrincipal returns the authenticated caller, if any.
func CurrentPrincipal(c *fiber.Ctx) (services.Principal, bool) {
	id, ok := c.Locals(localUserID).(uint)
	if !ok || id == 0 {
		return services.Principal{}, false
	}
	role, _ := c.Locals(localRole).(string)
	if role == "" {
		role = models.RoleCustomer
	}
	return services.Principal{UserID: id, Role: role}, true
}

// CurrentSessionID returns the login session the caller's token belongs to.
func CurrentSessionID(c *fiber.Ctx) string {
	s, _ := c.Locals(localSessionID).(string)
	return s
}
