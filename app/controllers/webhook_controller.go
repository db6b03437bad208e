package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/prasastio/kreasi/internal/pkg/billing"
)

// HandlePaymentNotify receives the payment gateway's signed server-to-server
// callback. A 200 tells the gateway to stop redelivering; anything else
// triggers a retry, so errors map carefully onto status codes.
func HandlePaymentNotify(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	result, err := billingService().HandleNotification(c.Context(), rawBody)
	switch {
	case errors.Is(err, billing.ErrMalformedPayload):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	case errors.Is(err, billing.ErrInvalidSignature):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid_signature"})
	case errors.Is(err, billing.ErrIntentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown_order"})
	case err != nil:
		// The intent may already be paid; a 500 makes the gateway redeliver
		// and the idempotent activation path finishes the job.
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":      true,
		"outcome": result.Outcome,
	})
}
