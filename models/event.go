package models

import (
	"time"
)

// Event lifecycle statuses
const (
	EventRegistrationOpen   = "registration_open"
	EventRegistrationClosed = "registration_closed"
	EventInProgress         = "in_progress"
	EventCompleted          = "completed"
	EventCancelled          = "cancelled"
)

// Event represents a single league event (weekly, season finale, etc.)
type Event struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"not null"`
	Slug        string    `json:"slug" gorm:"uniqueIndex"`
	Description string    `json:"description"`
	Format      string    `json:"format"` // e.g., "standard", "draft", "commander"
	Status      string    `json:"status" gorm:"default:'registration_open'"`
	StartTime   time.Time `json:"start_time" gorm:"not null"`
	EntryFee    float64   `json:"entry_fee" gorm:"default:0"`
	MaxPlayers  int       `json:"max_players" gorm:"default:0"` // 0 = unlimited

	// Relationships
	Players []PlayerEvent `json:"players,omitempty" gorm:"foreignKey:EventID"`

	// Calculated fields (not stored in DB)
	PlayerCount    int64 `json:"player_count,omitempty" gorm:"-"`
	ConfirmedCount int64 `json:"confirmed_count,omitempty" gorm:"-"`

	Timestamps
}
