package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/glaciervault/glaciervault/internal/pkg/payments"
)

// HandleBillingWebhook verifies and dispatches payment-provider events.
// Unknown event types are acknowledged so the provider stops retrying.
func HandleBillingWebhook(c *fiber.Ctx) error {
	event, err := paymentProvider.ConstructWebhookEvent(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid_signature",
		})
	}

	switch event.Type {
	case payments.EventPaymentSucceeded:
		err = billingService.HandlePaymentSuccess(c.Context(), event.CustomerID, event.SubscriptionID, event.InvoiceID)
	case payments.EventPaymentFailed:
		err = billingService.HandlePaymentFailure(c.Context(), event.CustomerID, event.InvoiceID)
	case payments.EventSubscriptionDeleted:
		err = billingService.HandleSubscriptionCanceled(event.SubscriptionID)
	default:
		log.Debugf("[Webhook] Ignoring event %s (%s)", event.ID, event.Type)
		return c.JSON(fiber.Map{"received": true})
	}

	if err != nil {
		log.Errorf("[Webhook] Failed to process event %s (%s): %v", event.ID, event.Type, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "processing_failed",
		})
	}
	return c.JSON(fiber.Map{"received": true})
}
