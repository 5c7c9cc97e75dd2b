package models

import "time"

// Payment record statuses (provider-side lifecycle)
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Payment mirrors a payment-provider transaction for an event registration.
// The check-in payment precondition falls back to this table when the
// registration row's payment_status is still pending.
type Payment struct {
	ID            string     `json:"id" gorm:"primaryKey"`
	UserID        string     `json:"user_id" gorm:"not null;index"`
	EventID       string     `json:"event_id" gorm:"not null;index"`
	Provider      string     `json:"provider"` // e.g., "stripe", "manual"
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency" gorm:"default:'USD'"`
	Status        string     `json:"status" gorm:"default:'pending'"` // pending, completed, failed, refunded
	TransactionID string     `json:"transaction_id,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`

	Timestamps
}
