// workers/payment_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"league-event-system/models"
	"league-event-system/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentSyncClient reconciles payment state against the payment provider.
// Webhooks are the primary path; this poll catches anything they missed.
type PaymentSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewPaymentSyncClient(db *gorm.DB) *PaymentSyncClient {
	baseURL := os.Getenv("PAYMENT_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("PAYMENT_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("PAYMENT_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("PAYMENT_SERVICE_TOKEN environment variable is required for payment sync")
	}

	return &PaymentSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

// GetChangedPayments fetches payments the provider updated since the cursor.
func (c *PaymentSyncClient) GetChangedPayments(ctx context.Context, since time.Time) ([]models.Payment, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/payments", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call payment service: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("payment service non-200 response: %d — %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Payments []models.Payment `json:"payments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode payment service response: %w", err)
	}
	return payload.Payments, nil
}

// syncOnce pulls changed payments and applies them locally. Registration rows
// whose payment completed get flipped to paid so the check-in payment
// precondition sees them.
func (c *PaymentSyncClient) syncOnce(ctx context.Context) error {
	var lastTime time.Time
	err := c.DB.Raw("SELECT MAX(updated_at) FROM payments WHERE deleted_at IS NULL").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		lastTime = time.Unix(0, 0)
	}

	payments, err := c.GetChangedPayments(ctx, lastTime)
	if err != nil {
		return err
	}
	if len(payments) == 0 {
		return nil
	}

	log.Printf("[PAYMENT_SYNC] Reconciling %d payment(s)", len(payments))
	for _, p := range payments {
		payment := p
		if err := c.DB.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "amount", "currency", "transaction_id", "paid_at", "updated_at",
			}),
		}).Create(&payment).Error; err != nil {
			log.Printf("[PAYMENT_SYNC] Failed to upsert payment %s: %v", payment.ID, err)
			continue
		}

		if payment.Status == models.PaymentCompleted {
			result := c.DB.Model(&models.PlayerEvent{}).
				Where("user_id = ? AND event_id = ? AND payment_status = ?",
					payment.UserID, payment.EventID, models.PaymentStatusPending).
				Updates(map[string]interface{}{
					"payment_status": models.PaymentStatusPaid,
					"payment_id":     payment.ID,
					"paid_at":        payment.PaidAt,
				})
			if result.Error != nil {
				log.Printf("[PAYMENT_SYNC] Failed to update registration for payment %s: %v", payment.ID, result.Error)
			} else if result.RowsAffected > 0 {
				log.Printf("[PAYMENT_SYNC] Marked registration paid (user=%s event=%s)", payment.UserID, payment.EventID)
			}
		}
	}
	return nil
}

// PollPayments runs the reconciliation loop until the context is cancelled.
func PollPayments(ctx context.Context, client *PaymentSyncClient, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := client.syncOnce(ctx); err != nil {
				log.Printf("[PAYMENT_SYNC] Reconciliation failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("[PAYMENT_SYNC] Payment reconciliation stopped")
			return
		}
	}
}
