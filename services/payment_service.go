// services/payment_service.go
package services

import (
	"errors"
	"log"
	"time"

	"league-event-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentService ingests payment-provider events and keeps registration
// payment state in sync with them.
type PaymentService struct {
	DB    *gorm.DB
	Email *EmailService
}

func NewPaymentService(db *gorm.DB, email *EmailService) *PaymentService {
	return &PaymentService{DB: db, Email: email}
}

// providerToRegistrationStatus maps a payment record's lifecycle status onto
// the registration row's payment_status.
var providerToRegistrationStatus = map[string]string{
	models.PaymentCompleted: models.PaymentStatusPaid,
	models.PaymentFailed:    models.PaymentStatusFailed,
	models.PaymentRefunded:  models.PaymentStatusRefunded,
}

// HandlePaymentWebhook ingests a provider notification. Signature validation
// is the gateway's job; by the time a request lands here it carries the
// service token.
// POST /webhooks/payment
func (s *PaymentService) HandlePaymentWebhook(c *fiber.Ctx) error {
	type Req struct {
		PaymentID     string  `json:"payment_id"`
		UserID        string  `json:"user_id"`
		EventID       string  `json:"event_id"`
		Status        string  `json:"status"` // pending, completed, failed, refunded
		Amount        float64 `json:"amount"`
		Currency      string  `json:"currency,omitempty"`
		Provider      string  `json:"provider,omitempty"`
		TransactionID string  `json:"transaction_id,omitempty"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.PaymentID == "" || req.UserID == "" || req.EventID == "" || req.Status == "" {
		return c.Status(400).JSON(fiber.Map{"error": "payment_id, user_id, event_id and status are required"})
	}

	payment := models.Payment{
		ID:            req.PaymentID,
		UserID:        req.UserID,
		EventID:       req.EventID,
		Provider:      req.Provider,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Status:        req.Status,
		TransactionID: req.TransactionID,
	}
	if payment.Currency == "" {
		payment.Currency = "USD"
	}
	if req.Status == models.PaymentCompleted {
		now := time.Now()
		payment.PaidAt = &now
	}

	if err := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "amount", "currency", "transaction_id", "paid_at", "updated_at",
		}),
	}).Create(&payment).Error; err != nil {
		log.Printf("[PAYMENT] Failed to upsert payment %s: %v", req.PaymentID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to record payment"})
	}

	if regStatus, ok := providerToRegistrationStatus[req.Status]; ok {
		s.applyToRegistration(c, &payment, regStatus)
	}

	return c.JSON(fiber.Map{"message": "payment recorded", "payment": payment})
}

// applyToRegistration pushes the settled payment onto the registration row and
// fires the receipt email on completion. Best effort: a missing registration
// only logs (the payment row itself is the source of truth for HasPaid's
// fallback path).
func (s *PaymentService) applyToRegistration(c *fiber.Ctx, payment *models.Payment, regStatus string) {
	var player models.PlayerEvent
	err := s.DB.Where("event_id = ? AND user_id = ?", payment.EventID, payment.UserID).First(&player).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[PAYMENT] No registration for payment %s (user=%s event=%s)", payment.ID, payment.UserID, payment.EventID)
		} else {
			log.Printf("[PAYMENT] DB error applying payment %s: %v", payment.ID, err)
		}
		return
	}

	updates := map[string]interface{}{
		"payment_status": regStatus,
		"payment_id":     payment.ID,
	}
	if regStatus == models.PaymentStatusPaid {
		updates["paid_at"] = payment.PaidAt
	}
	if err := s.DB.Model(&player).Updates(updates).Error; err != nil {
		log.Printf("[PAYMENT] Failed to update registration for payment %s: %v", payment.ID, err)
		return
	}

	if regStatus == models.PaymentStatusPaid && s.Email != nil {
		var event models.Event
		if err := s.DB.First(&event, "id = ?", payment.EventID).Error; err == nil {
			s.Email.SendPaymentReceipt(c.UserContext(), &player, &event, payment)
		}
	}
}
