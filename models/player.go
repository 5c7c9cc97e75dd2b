package models

import (
	"time"

	"gorm.io/gorm"
)

// Player-event registration statuses
const (
	PlayerPending    = "pending"
	PlayerConfirmed  = "confirmed"
	PlayerCancelled  = "cancelled"
	PlayerWaitlisted = "waitlisted"
)

// Registration-level payment statuses
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFree     = "free"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// PlayerEvent is one player's registration for one event.
// Check-in only ever moves Status to "confirmed"; payment/registration flows
// own every other transition.
type PlayerEvent struct {
	ID      string `json:"id" gorm:"primaryKey"`
	UserID  string `json:"user_id" gorm:"not null;index;uniqueIndex:idx_player_event"`
	EventID string `json:"event_id" gorm:"not null;index;uniqueIndex:idx_player_event"`

	UserName string `json:"user_name"`                  // denormalized from profile service
	Email    string `json:"email,omitempty"`            // recipient for transactional mail
	Status   string `json:"status" gorm:"default:'pending'"`

	// Payment metadata
	PaymentStatus string     `json:"payment_status" gorm:"default:'pending'"` // pending, paid, free, failed, refunded
	PaymentID     string     `json:"payment_id,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`

	// Decklist submission (text is authoritative; URL points at the uploaded file)
	Decklist    string `json:"decklist" gorm:"type:text"`
	DecklistURL string `json:"decklist_url,omitempty"`

	// Primary Discord handle source; discord_links is the fallback
	DiscordHandle *string `json:"discord_handle,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
