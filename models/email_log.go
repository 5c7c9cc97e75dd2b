package models

import "time"

// Transactional email kinds
const (
	EmailRegistrationConfirmation = "registration_confirmation"
	EmailPaymentReceipt           = "payment_receipt"
	EmailCheckinNotice            = "checkin_notice"
)

// EmailLog records every transactional send attempt for audit/reconciliation.
type EmailLog struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	UserID    string     `json:"user_id" gorm:"index"`
	EventID   string     `json:"event_id" gorm:"index"`
	Kind      string     `json:"kind" gorm:"not null"`
	Recipient string     `json:"recipient" gorm:"not null"`
	Status    string     `json:"status" gorm:"default:'sent'"` // sent, failed
	Error     string     `json:"error,omitempty"`
	SentAt    *time.Time `json:"sent_at,omitempty"`

	Timestamps
}
