package handlers

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"storefront/internal/services"
)

// PayoutHandler is the back office for seller payouts.
type PayoutHandler struct {
	service  *services.PayoutService
	validate *validator.Validate
}

// NewPayoutHandler creates a new PayoutHandler.
func NewPayoutHandler(service *services.PayoutService) *PayoutHandler {
	return &PayoutHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers payout routes on an admin-only router.
func (h *PayoutHandler) RegisterRoutes(admin fiber.Router) {
	admin.Get("/payouts", h.HandleListPayouts)
	admin.Get("/payments/:id", h.HandleGetPayment)
	admin.Put("/payouts/:id/status", h.HandleUpdatePayoutStatus)
	admin.Post("/payments/:id/payout", h.HandleProcessPayout)
}

// HandleListPayouts lists payouts, filtered by the optional status query parameter.
func (h *PayoutHandler) HandleListPayouts(c *fiber.Ctx) error {
	payouts, err := h.service.ListPayouts(c.UserContext(), c.Query("status"))
	if err != nil {
		return respondError(c, "Could not retrieve payouts", err)
	}
	return c.JSON(payouts)
}

// HandleGetPayment returns one payment and its settlement status.
func (h *PayoutHandler) HandleGetPayment(c *fiber.Ctx) error {
	paymentID, err := idParam(c, "id")
	if err != nil {
		return respondError(c, "Could not retrieve payment", err)
	}
	payment, err := h.service.GetPayment(c.UserContext(), paymentID)
	if err != nil {
		return respondError(c, "Could not retrieve payment", err)
	}
	return c.JSON(payment)
}

// HandleUpdatePayoutStatus sets the status of a pending payout.
func (h *PayoutHandler) HandleUpdatePayoutStatus(c *fiber.Ctx) error {
	payoutID, err := idParam(c, "id")
	if err != nil {
		return respondError(c, "Payout update failed", err)
	}
	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if done, err := validateBody(c, h.validate, req); done {
		return err
	}

	payout, err := h.service.UpdatePayoutStatus(c.UserContext(), payoutID, req.Status)
	if err != nil {
		return respondError(c, "Payout update failed", err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Payout %d status is %s", payoutID, payout.Status),
		"payout":  payout,
	})
}

// HandleProcessPayout pays out a payment. A payment that is already paid is reported,
// never paid twice.
func (h *PayoutHandler) HandleProcessPayout(c *fiber.Ctx) error {
	paymentID, err := idParam(c, "id")
	if err != nil {
		return respondError(c, "Payout failed", err)
	}

	payment, payout, err := h.service.ProcessPayout(c.UserContext(), paymentID)
	if err != nil {
		if errors.Is(err, services.ErrAlreadyProcessed) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": fmt.Sprintf("Payment %d has already been processed", paymentID),
				"error":   err.Error(),
			})
		}
		return respondError(c, "Payout failed", err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Payout processed for payment %d", paymentID),
		"payment": payment,
		"payout":  payout,
	})
}
