package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/andefred/eldsal/internal/pkg/billing"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// WebhookController receives the checkout provider's signed event deliveries.
type WebhookController struct {
	billing *billing.Service
}

func NewWebhookController(billingService *billing.Service) *WebhookController {
	return &WebhookController{billing: billingService}
}

// HandleStripeWebhook verifies and applies one delivery for the :flavour account.
func (wc *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	f, ok := flavourParam(c)
	if !ok {
		return unknownFlavour(c)
	}
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	outcome, err := wc.billing.HandleWebhook(ctx, f, rawBody, signature)
	if errors.Is(err, billing.ErrCheckoutNotConfigured) {
		return unknownFlavour(c)
	}

	switch outcome {
	case billing.WebhookDuplicate:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	case billing.WebhookIgnored:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	case billing.WebhookInvalidSignature:
		fiberlog.Warnf("rejected %s webhook with invalid signature", f)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	case billing.WebhookInvalidPayload:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	case billing.WebhookProcessed:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	}

	fiberlog.Errorf("process %s webhook: %v", f, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_processing_failed"})
}
