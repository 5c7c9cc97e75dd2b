// services/store.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"league-event-system/models"

	"gorm.io/gorm"
)

// CheckinStore is the data-access capability the check-in engine depends on.
// The gorm-backed Store below is the production implementation; tests swap in
// fakes.
type CheckinStore interface {
	GetEventByID(id string) (*models.Event, error)
	GetPlayerEvent(userID, eventID string) (*models.PlayerEvent, error)
	ListEligiblePlayers(eventID string) ([]models.PlayerEvent, error)
	UpdatePlayerStatus(userID, eventID, status string) error
	HasPaid(userID, eventID string) (bool, error)
	HasDecklist(userID, eventID string) (bool, error)
	DiscordHandle(userID, eventID string) (*string, error)
}

type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// GetEventByID returns (nil, nil) when the event does not exist; errors are
// reserved for actual DB failures.
func (s *Store) GetEventByID(id string) (*models.Event, error) {
	var event models.Event
	if err := s.DB.First(&event, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch event %s: %w", id, err)
	}
	return &event, nil
}

func (s *Store) GetPlayerEvent(userID, eventID string) (*models.PlayerEvent, error) {
	var player models.PlayerEvent
	err := s.DB.Where("user_id = ? AND event_id = ?", userID, eventID).First(&player).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch registration: %w", err)
	}
	return &player, nil
}

// ListEligiblePlayers returns the event's roster in registration order,
// limited to the statuses bulk check-in processes.
func (s *Store) ListEligiblePlayers(eventID string) ([]models.PlayerEvent, error) {
	var players []models.PlayerEvent
	err := s.DB.
		Where("event_id = ? AND status IN ?", eventID, []string{models.PlayerPending, models.PlayerConfirmed}).
		Order("created_at ASC").
		Find(&players).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster for event %s: %w", eventID, err)
	}
	return players, nil
}

// UpdatePlayerStatus is a single independently-atomic row update keyed by
// (userID, eventID).
func (s *Store) UpdatePlayerStatus(userID, eventID, status string) error {
	result := s.DB.Model(&models.PlayerEvent{}).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update player status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no registration for user %s in event %s", userID, eventID)
	}
	return nil
}

// HasPaid is true when the registration row is marked paid or free, with a
// fallback to a completed payment-provider record. Missing rows mean false,
// never an error.
func (s *Store) HasPaid(userID, eventID string) (bool, error) {
	player, err := s.GetPlayerEvent(userID, eventID)
	if err != nil {
		return false, err
	}
	if player == nil {
		return false, nil
	}
	if player.PaymentStatus == models.PaymentStatusPaid || player.PaymentStatus == models.PaymentStatusFree {
		return true, nil
	}

	var count int64
	err = s.DB.Model(&models.Payment{}).
		Where("user_id = ? AND event_id = ? AND status = ?", userID, eventID, models.PaymentCompleted).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check payment records: %w", err)
	}
	return count > 0, nil
}

// HasDecklist is true when the stored decklist has non-whitespace content.
func (s *Store) HasDecklist(userID, eventID string) (bool, error) {
	player, err := s.GetPlayerEvent(userID, eventID)
	if err != nil {
		return false, err
	}
	if player == nil {
		return false, nil
	}
	return strings.TrimSpace(player.Decklist) != "", nil
}

// handleLookup is one strategy for finding a player's Discord handle.
type handleLookup func(s *Store, userID, eventID string) (*string, error)

// handleLookupChain is the ordered fallback chain for handle resolution: the
// registration row's own column wins over the profile-service link mirror.
var handleLookupChain = []handleLookup{
	lookupRegistrationHandle,
	lookupLinkedHandle,
}

// DiscordHandle walks the fallback chain and returns the first handle found,
// or nil when no source has one.
func (s *Store) DiscordHandle(userID, eventID string) (*string, error) {
	return firstHandle(s, userID, eventID, handleLookupChain)
}

func firstHandle(s *Store, userID, eventID string, chain []handleLookup) (*string, error) {
	for _, lookup := range chain {
		handle, err := lookup(s, userID, eventID)
		if err != nil {
			return nil, err
		}
		if handle != nil && strings.TrimSpace(*handle) != "" {
			return handle, nil
		}
	}
	return nil, nil
}

func lookupRegistrationHandle(s *Store, userID, eventID string) (*string, error) {
	player, err := s.GetPlayerEvent(userID, eventID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, nil
	}
	return player.DiscordHandle, nil
}

func lookupLinkedHandle(s *Store, userID, _ string) (*string, error) {
	var link models.DiscordLink
	err := s.DB.Where("user_id = ?", userID).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch discord link: %w", err)
	}
	return &link.DiscordHandle, nil
}
