package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/middleware"
	"storefront/internal/services"
)

// Services are the dependencies of the HTTP API.
type Services struct {
	Auth     *services.AuthService
	Cart     *services.CartService
	Checkout *services.CheckoutService
	Orders   *services.OrderService
	Payouts  *services.PayoutService
}

// Mount registers every API route on router.
func Mount(router fiber.Router, svc Services) {
	requireAuth := middleware.AuthRequired(svc.Auth)
	optionalAuth := middleware.OptionalAuth(svc.Auth)

	NewAuthHandler(svc.Auth).RegisterRoutes(router)
	NewCartHandler(svc.Cart).RegisterRoutes(router, requireAuth)
	NewCheckoutHandler(svc.Checkout).RegisterRoutes(router, requireAuth, optionalAuth)

	orderHandler := NewOrderHandler(svc.Orders)
	orderHandler.RegisterRoutes(router, requireAuth)

	admin := router.Group("/admin", requireAuth, middleware.AdminOnly())
	orderHandler.RegisterAdminRoutes(admin)
	NewPayoutHandler(svc.Payouts).RegisterRoutes(admin)
}
