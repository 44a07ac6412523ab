package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"storefront/internal/logging"
	"storefront/internal/middleware"
	"storefront/internal/services"
)

// CheckoutHandler turns a submitted cart into an order.
type CheckoutHandler struct {
	checkoutService *services.CheckoutService
	validate        *validator.Validate
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkoutService *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		validate:        newValidator(),
	}
}

// RegisterRoutes registers the checkout routes. Anonymous buyers may check out.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router, requireAuth, optionalAuth fiber.Handler) {
	router.Post("/cart/checkout", optionalAuth, h.HandleCheckout)
	router.Get("/addresses", requireAuth, h.HandleListAddresses)
}

type CheckoutItem struct {
	ProductID uint            `json:"productId" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	Price     decimal.Decimal `json:"price"`
}

// CheckoutRequest is the checkout form: billing fields at the top level, optional
// shipping fields prefixed with "shipping", and account fields for guests who sign up.
type CheckoutRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email" validate:"omitempty,email"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`

	Cart     []CheckoutItem `json:"cart" validate:"required,min=1,dive"`
	Shipping *string        `json:"shipping" validate:"omitempty,oneof=flat pickup"`

	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`

	AddressID *uint `json:"addressId"`

	ShippingName       string `json:"shippingName"`
	ShippingStreet     string `json:"shippingStreet"`
	ShippingCity       string `json:"shippingCity"`
	ShippingState      string `json:"shippingState"`
	ShippingPostalCode string `json:"shippingPostalCode"`
	ShippingCountry    string `json:"shippingCountry"`
	ShippingPhone      string `json:"shippingPhone"`

	// UserID is accepted for compatibility; the buyer is always taken from the token.
	UserID *uint `json:"userId"`
}

func (r CheckoutRequest) toService(buyer *uint) services.CheckoutRequest {
	out := services.CheckoutRequest{
		BuyerID:         buyer,
		Email:           r.Email,
		Password:        r.Password,
		ConfirmPassword: r.ConfirmPassword,
		AddressID:       r.AddressID,
		Billing: services.AddressInput{
			FullName:   r.Name,
			Street:     r.Street,
			City:       r.City,
			State:      r.State,
			PostalCode: r.PostalCode,
			Country:    r.Country,
			Phone:      r.Phone,
		},
		ShippingAddress: &services.AddressInput{
			FullName:   r.ShippingName,
			Street:     r.ShippingStreet,
			City:       r.ShippingCity,
			State:      r.ShippingState,
			PostalCode: r.ShippingPostalCode,
			Country:    r.ShippingCountry,
			Phone:      r.ShippingPhone,
		},
	}
	if r.Shipping != nil {
		out.Shipping = *r.Shipping
	}
	for _, it := range r.Cart {
		out.Lines = append(out.Lines, services.CheckoutLine{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}
	return out
}

// HandleCheckout places an order for the submitted cart.
func (h *CheckoutHandler) HandleCheckout(c *fiber.Ctx) error {
	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if done, err := validateBody(c, h.validate, req); done {
		return err
	}

	var buyer *uint
	if p, ok := middleware.CurrentPrincipal(c); ok {
		buyer = &p.UserID
		if req.UserID != nil && *req.UserID != p.UserID {
			logging.FromContext(c.UserContext()).Warn("checkout body userId ignored", "body_user_id", *req.UserID)
		}
	}

	res, err := h.checkoutService.Checkout(c.UserContext(), req.toService(buyer))
	if err != nil {
		var stockErr *services.InsufficientStockError
		if errors.As(err, &stockErr) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message":   stockErr.Error(),
				"error":     services.ErrInsufficientStock.Error(),
				"shortages": stockErr.Shortages,
			})
		}
		return respondError(c, "Checkout failed", err)
	}

	resp := fiber.Map{
		"message": "Order placed successfully",
		"order":   res.Order,
	}
	if res.CreatedUser != nil {
		resp["user"] = res.CreatedUser
	}
	return c.JSON(resp)
}

// HandleListAddresses lists the caller's saved addresses.
func (h *CheckoutHandler) HandleListAddresses(c *fiber.Ctx) error {
	caller, _ := middleware.CurrentPrincipal(c)
	addresses, err := h.checkoutService.ListAddresses(c.UserContext(), caller.UserID)
	if err != nil {
		return respondError(c, "Could not retrieve addresses", err)
	}
	return c.JSON(addresses)
}
