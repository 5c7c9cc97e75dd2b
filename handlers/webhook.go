package handlers

import (
	"league-event-system/services"

	"github.com/gofiber/fiber/v2"
)

// Webhook routes sit behind the global gateway token only; provider signature
// validation happens upstream.
func SetupWebhookRoutes(app *fiber.App, paymentService *services.PaymentService) {
	app.Post("/webhooks/payment", paymentService.HandlePaymentWebhook)
}
