// services/email_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"league-event-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmailService posts transactional sends to the external email provider.
// The provider owns templating and HTML; we only hand it a template name,
// a recipient and variables. Every attempt is recorded in email_logs.
type EmailService struct {
	BaseURL string
	Token   string
	Client  *http.Client
	DB      *gorm.DB
}

func NewEmailService(baseURL, token string, db *gorm.DB) *EmailService {
	return &EmailService{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendRegistrationConfirmation fires on a new registration.
func (e *EmailService) SendRegistrationConfirmation(ctx context.Context, player *models.PlayerEvent, event *models.Event) {
	e.send(ctx, models.EmailRegistrationConfirmation, player, event, map[string]interface{}{
		"user_name":   player.UserName,
		"event_title": event.Title,
		"start_time":  event.StartTime.Format(time.RFC3339),
		"entry_fee":   event.EntryFee,
	})
}

// SendPaymentReceipt fires when a payment settles.
func (e *EmailService) SendPaymentReceipt(ctx context.Context, player *models.PlayerEvent, event *models.Event, payment *models.Payment) {
	e.send(ctx, models.EmailPaymentReceipt, player, event, map[string]interface{}{
		"user_name":      player.UserName,
		"event_title":    event.Title,
		"amount":         payment.Amount,
		"currency":       payment.Currency,
		"transaction_id": payment.TransactionID,
	})
}

// SendCheckinNotice fires when a player is confirmed.
func (e *EmailService) SendCheckinNotice(ctx context.Context, player *models.PlayerEvent, event *models.Event) {
	e.send(ctx, models.EmailCheckinNotice, player, event, map[string]interface{}{
		"user_name":   player.UserName,
		"event_title": event.Title,
		"start_time":  event.StartTime.Format(time.RFC3339),
	})
}

// send is best effort: a provider failure is logged and recorded, never
// surfaced to the operation that triggered the email.
func (e *EmailService) send(ctx context.Context, kind string, player *models.PlayerEvent, event *models.Event, vars map[string]interface{}) {
	if player.Email == "" {
		log.Printf("[EMAIL] Skipping %s for user=%s: no email on record", kind, player.UserID)
		return
	}

	err := e.post(ctx, kind, player.Email, vars)

	entry := models.EmailLog{
		ID:        uuid.NewString(),
		UserID:    player.UserID,
		EventID:   event.ID,
		Kind:      kind,
		Recipient: player.Email,
		Status:    "sent",
	}
	if err != nil {
		log.Printf("[EMAIL] Failed to send %s to %s: %v", kind, player.Email, err)
		entry.Status = "failed"
		entry.Error = err.Error()
	} else {
		now := time.Now()
		entry.SentAt = &now
	}

	if e.DB != nil {
		if dbErr := e.DB.Create(&entry).Error; dbErr != nil {
			log.Printf("[EMAIL] Failed to record email log: %v", dbErr)
		}
	}
}

func (e *EmailService) post(ctx context.Context, template, recipient string, vars map[string]interface{}) error {
	reqBody := map[string]interface{}{
		"template":  template,
		"to":        recipient,
		"variables": vars,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	url := fmt.Sprintf("%s/v1/send", e.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.Token)

	resp, err := e.Client.Do(req)
	if err != nil {
		return fmt.Errorf("email provider request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("email provider returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
