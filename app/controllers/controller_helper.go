package controllers

import (
	"errors"

	"github.com/andefred/eldsal/internal/pkg/billing"
	"github.com/andefred/eldsal/internal/pkg/fees"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// flavourParam reads the :flavour route parameter. Both "membership" and
// the storage prefix "membfee" are accepted.
func flavourParam(c *fiber.Ctx) (fees.Flavour, bool) {
	return fees.ParseFlavour(c.Params("flavour"))
}

func unknownFlavour(c *fiber.Ctx) error {
	return errorJSON(c, fiber.StatusNotFound, "not_found", "Unknown fee flavour")
}

// serviceError maps a service error to its response. Client input errors
// are reported as is; anything unexpected is logged and hidden.
func serviceError(c *fiber.Ctx, err error, action string) error {
	var fe *fees.FieldError
	switch {
	case errors.As(err, &fe):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_input",
			"field":   fe.Field,
			"message": fe.Message,
		})
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errorJSON(c, fiber.StatusNotFound, "not_found", "Member not found")
	case errors.Is(err, billing.ErrCheckoutNotConfigured):
		return errorJSON(c, fiber.StatusNotFound, "not_found", "Checkout is not available for this fee")
	case errors.Is(err, billing.ErrNoCheckoutSession):
		return errorJSON(c, fiber.StatusNotFound, "not_found", "No checkout session to reconcile")
	case errors.Is(err, billing.ErrUnknownPrice):
		return errorJSON(c, fiber.StatusBadRequest, "invalid_input", "Unknown price")
	}
	fiberlog.Errorf("%s: %v", action, err)
	return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to "+action)
}
