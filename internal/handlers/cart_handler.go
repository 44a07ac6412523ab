package handlers

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"storefront/internal/middleware"
	"storefront/internal/services"
)

// CartHandler serves the persisted cart and the login-time merge.
type CartHandler struct {
	cartService *services.CartService
	validate    *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		validate:    newValidator(),
	}
}

// RegisterRoutes registers the cart routes. Every route requires authentication.
func (h *CartHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Post("/updateDBCart", requireAuth, h.HandleUpdateDBCart)
	cartRoutes.Get("/getDBCart", requireAuth, h.HandleGetDBCart)
	cartRoutes.Post("/merge", requireAuth, h.HandleMerge)
}

// UpdateCartRequest is a full replacement of the caller's persisted cart.
type UpdateCartRequest struct {
	UserID    uint                `json:"userId"`
	CartItems []services.CartLine `json:"cartItems" validate:"dive"`
}

// HandleUpdateDBCart makes the persisted cart match cartItems exactly.
func (h *CartHandler) HandleUpdateDBCart(c *fiber.Ctx) error {
	caller, _ := middleware.CurrentPrincipal(c)

	var req UpdateCartRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if done, err := validateBody(c, h.validate, req); done {
		return err
	}
	if err := ownCart(caller, req.UserID); err != nil {
		return respondError(c, "Could not update cart", err)
	}

	lines, err := h.cartService.UpdateCart(c.UserContext(), caller.UserID, req.CartItems)
	if err != nil {
		return respondError(c, "Could not update cart", err)
	}
	return c.JSON(fiber.Map{
		"message":   "Cart updated",
		"cartItems": lines,
	})
}

// HandleGetDBCart returns the caller's persisted cart lines.
func (h *CartHandler) HandleGetDBCart(c *fiber.Ctx) error {
	caller, _ := middleware.CurrentPrincipal(c)

	var requested uint
	if raw := c.Query("userId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return respondError(c, "Could not retrieve cart", fmt.Errorf("invalid userId '%s': %w", raw, services.ErrValidation))
		}
		requested = uint(id)
	}
	if err := ownCart(caller, requested); err != nil {
		return respondError(c, "Could not retrieve cart", err)
	}

	lines, err := h.cartService.GetCart(c.UserContext(), caller.UserID)
	if err != nil {
		return respondError(c, "Could not retrieve cart", err)
	}
	return c.JSON(fiber.Map{
		"message":   "Cart retrieved",
		"cartItems": lines,
	})
}

// MergeCartRequest carries the client's pre-login cart and its product cache.
type MergeCartRequest struct {
	CartItems []services.CartEntry       `json:"cartItems"`
	Backup    []services.ProductSnapshot `json:"backup"`
}

// HandleMerge reconciles the client's cart with the persisted one, once per login.
// A failed merge is not an error for the client: it keeps its own cart.
func (h *CartHandler) HandleMerge(c *fiber.Ctx) error {
	caller, _ := middleware.CurrentPrincipal(c)

	var req MergeCartRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	res, err := h.cartService.MergeCart(c.UserContext(), caller.UserID, middleware.CurrentSessionID(c), req.CartItems, req.Backup)
	if err != nil {
		if statusFor(err) == fiber.StatusBadRequest {
			return respondError(c, "Could not merge cart", err)
		}
		return c.JSON(fiber.Map{
			"message": "Cart merge failed, keeping local cart",
			"merged":  res.Merged,
			"cart":    res.Cart,
		})
	}

	message := "Cart merged"
	if !res.Merged {
		message = "Cart already merged for this session"
	}
	return c.JSON(fiber.Map{
		"message": message,
		"merged":  res.Merged,
		"cart":    res.Cart,
	})
}

// ownCart rejects requests naming another user's cart. A zero id means the caller's own.
func ownCart(caller services.Principal, requested uint) error {
	if requested != 0 && requested != caller.UserID {
		return fmt.Errorf("cart of user %d: %w", requested, services.ErrForbidden)
	}
	return nil
}
