package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"storefront/internal/logging"
)

// RequestLogger puts a logger tagged with a request id into the request context and
// echoes the id back in the X-Request-ID header.
func RequestLogger(base *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(fiber.HeaderXRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, reqID)

		logger := base.With("request_id", reqID, "method", c.Method(), "path", c.Path())
		c.SetUserContext(logging.IntoContext(c.UserContext(), logger))
		return c.Next()
	}
}
