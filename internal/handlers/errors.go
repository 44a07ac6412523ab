package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"storefront/internal/logging"
	"storefront/internal/services"
)

// statusFor maps a service error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrAlreadyProcessed):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrInvalidTransition):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes err with the mapped status. Internal errors are logged and their
// detail is not sent to the client.
func respondError(c *fiber.Ctx, message string, err error) error {
	status := statusFor(err)
	logger := logging.FromContext(c.UserContext())
	if status == fiber.StatusInternalServerError {
		logger.Error(message, "error", err)
		return c.Status(status).JSON(fiber.Map{
			"message": message,
			"error":   "internal server error",
		})
	}
	logger.Info(message, "status", status, "error", err)
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

func badBody(c *fiber.Ctx, err error) error {
	logging.FromContext(c.UserContext()).Info("error parsing request body", "error", err)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

// newValidator reports fields by their JSON names so messages match the request body.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateBody runs struct validation and renders failures per field. It returns true
// when a response has already been written.
func validateBody(c *fiber.Ctx, v *validator.Validate, body any) (bool, error) {
	err := v.Struct(body)
	if err == nil {
		return false, nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return true, badBody(c, err)
	}
	errorMessages := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return true, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

func idParam(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s '%s': %w", name, raw, services.ErrValidation)
	}
	return uint(id), nil
}
