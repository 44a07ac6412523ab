package handlers

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"storefront/internal/middleware"
	"storefront/internal/services"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the buyer-facing order routes.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	orderRoutes := router.Group("/orders", requireAuth)
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
}

// RegisterAdminRoutes registers order management routes on an admin-only router.
func (h *OrderHandler) RegisterAdminRoutes(admin fiber.Router) {
	admin.Patch("/orders/:id/status", h.HandleUpdateOrderStatus)
}

// HandleGetOrders retrieves the caller's orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	caller, _ := middleware.CurrentPrincipal(c)
	orders, err := h.service.ListOrders(c.UserContext(), caller.UserID)
	if err != nil {
		return respondError(c, "Could not retrieve orders", err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	caller, _ := middleware.CurrentPrincipal(c)
	orderID, err := idParam(c, "id")
	if err != nil {
		return respondError(c, "Could not retrieve order", err)
	}
	order, err := h.service.GetOrder(c.UserContext(), orderID, caller)
	if err != nil {
		return respondError(c, fmt.Sprintf("Could not retrieve order %d", orderID), err)
	}
	return c.JSON(order)
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// HandleUpdateOrderStatus updates the status of an existing order.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	orderID, err := idParam(c, "id")
	if err != nil {
		return respondError(c, "Order update failed", err)
	}
	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if done, err := validateBody(c, h.validate, req); done {
		return err
	}

	order, err := h.service.UpdateOrderStatus(c.UserContext(), orderID, req.Status)
	if err != nil {
		return respondError(c, "Order update failed", err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Order %d status updated successfully to %s", orderID, order.Status),
		"order":   order,
	})
}
