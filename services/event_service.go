// services/event_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"league-event-system/models"
	"league-event-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

var validEventStatuses = map[string]bool{
	models.EventRegistrationOpen:   true,
	models.EventRegistrationClosed: true,
	models.EventInProgress:         true,
	models.EventCompleted:          true,
	models.EventCancelled:          true,
}

type EventService struct {
	DB    *gorm.DB
	Email *EmailService
}

func NewEventService(db *gorm.DB, email *EmailService) *EventService {
	return &EventService{DB: db, Email: email}
}

func (s *EventService) CreateEvent(c *fiber.Ctx) error {
	type Req struct {
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Format      string  `json:"format"`
		StartTime   string  `json:"start_time"` // RFC3339
		EntryFee    float64 `json:"entry_fee"`
		MaxPlayers  int     `json:"max_players"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Title == "" || req.StartTime == "" {
		return c.Status(400).JSON(fiber.Map{"error": "title and start_time are required"})
	}
	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid start_time (use RFC3339)"})
	}
	if req.EntryFee < 0 {
		return c.Status(400).JSON(fiber.Map{"error": "entry_fee must be non-negative"})
	}

	event := &models.Event{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Format:      req.Format,
		Status:      models.EventRegistrationOpen,
		StartTime:   startTime,
		EntryFee:    req.EntryFee,
		MaxPlayers:  req.MaxPlayers,
	}
	event.Slug = s.uniqueSlug(req.Title, event.ID)

	if err := s.DB.Create(event).Error; err != nil {
		log.Printf("ERROR creating event: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}
	return c.Status(201).JSON(event)
}

// uniqueSlug slugifies the title, suffixing with the event id's first segment
// when the plain slug is taken.
func (s *EventService) uniqueSlug(title, id string) string {
	base := slug.Make(title)
	var count int64
	s.DB.Model(&models.Event{}).Where("slug = ?", base).Count(&count)
	if count == 0 {
		return base
	}
	return fmt.Sprintf("%s-%s", base, id[:8])
}

func (s *EventService) GetAllEvents(c *fiber.Ctx) error {
	var events []models.Event
	if err := s.DB.Order("start_time DESC").Find(&events).Error; err != nil {
		log.Printf("ERROR fetching events: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch events"})
	}
	return c.JSON(events)
}

func (s *EventService) GetEventByID(c *fiber.Ctx) error {
	id := c.Params("id")
	var event models.Event
	if err := s.DB.First(&event, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "event not found"})
		}
		log.Printf("ERROR fetching event %s: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	s.DB.Model(&models.PlayerEvent{}).Where("event_id = ?", id).Count(&event.PlayerCount)
	s.DB.Model(&models.PlayerEvent{}).
		Where("event_id = ? AND status = ?", id, models.PlayerConfirmed).
		Count(&event.ConfirmedCount)
	return c.JSON(&event)
}

func (s *EventService) UpdateEventStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	type Req struct {
		Status string `json:"status"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if !validEventStatuses[req.Status] {
		return c.Status(400).JSON(fiber.Map{"error": "invalid status"})
	}

	result := s.DB.Model(&models.Event{}).Where("id = ?", id).Update("status", req.Status)
	if result.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB update failed"})
	}
	if result.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "event not found"})
	}

	var updated models.Event
	s.DB.First(&updated, "id = ?", id)
	return c.JSON(updated)
}

// RegisterPlayer creates a pending registration and fires the confirmation
// email. Payment settles later via webhook (or is marked free up front).
func (s *EventService) RegisterPlayer(c *fiber.Ctx) error {
	eventID := c.Params("id")
	type Req struct {
		UserID        string `json:"user_id"`
		UserName      string `json:"user_name"`
		Email         string `json:"email,omitempty"`
		DiscordHandle string `json:"discord_handle,omitempty"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.UserID == "" || req.UserName == "" {
		return c.Status(400).JSON(fiber.Map{"error": "user_id and user_name are required"})
	}

	var event models.Event
	if err := s.DB.First(&event, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "event not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error fetching event"})
	}
	if event.Status != models.EventRegistrationOpen {
		return c.Status(403).JSON(fiber.Map{"error": "registration is not open for this event"})
	}

	var existing models.PlayerEvent
	if err := s.DB.Where("event_id = ? AND user_id = ?", eventID, req.UserID).
		First(&existing).Error; err == nil {
		return c.Status(409).JSON(fiber.Map{
			"error":        "user already registered",
			"registration": existing,
		})
	}

	if event.MaxPlayers > 0 {
		var count int64
		s.DB.Model(&models.PlayerEvent{}).Where("event_id = ?", eventID).Count(&count)
		if int(count) >= event.MaxPlayers {
			return c.Status(403).JSON(fiber.Map{"error": "event is full"})
		}
	}

	paymentStatus := models.PaymentStatusPending
	if event.EntryFee == 0 {
		paymentStatus = models.PaymentStatusFree
	}

	player := models.PlayerEvent{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		EventID:       eventID,
		UserName:      req.UserName,
		Email:         req.Email,
		Status:        models.PlayerPending,
		PaymentStatus: paymentStatus,
	}
	if req.DiscordHandle != "" {
		player.DiscordHandle = &req.DiscordHandle
	}

	if err := s.DB.Create(&player).Error; err != nil {
		log.Printf("ERROR creating registration: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to create registration"})
	}

	if s.Email != nil {
		s.Email.SendRegistrationConfirmation(c.UserContext(), &player, &event)
	}
	return c.Status(201).JSON(player)
}

// SubmitDecklist stores the decklist text and, when a file is attached,
// uploads the raw file to R2 and stores its URL alongside.
func (s *EventService) SubmitDecklist(c *fiber.Ctx) error {
	eventID := c.Params("id")
	userID := c.Params("user_id")

	var player models.PlayerEvent
	if err := s.DB.Where("event_id = ? AND user_id = ?", eventID, userID).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "registration not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	decklist := c.FormValue("decklist")
	if decklist == "" {
		// JSON body fallback
		type Req struct {
			Decklist string `json:"decklist"`
		}
		var req Req
		if err := c.BodyParser(&req); err == nil {
			decklist = req.Decklist
		}
	}
	if strings.TrimSpace(decklist) == "" {
		return c.Status(400).JSON(fiber.Map{"error": "decklist must not be empty"})
	}

	updates := map[string]interface{}{"decklist": decklist}

	if file, err := c.FormFile("decklist_file"); err == nil && file.Size > 0 {
		ext := filepath.Ext(file.Filename)
		if ext == "" {
			ext = ".txt"
		}
		key := "decklists/" + uuid.NewString() + ext
		url, err := utils.UploadFileToR2(file, key)
		if err != nil {
			log.Printf("ERROR uploading decklist file for user %s: %v", userID, err)
			return c.Status(500).JSON(fiber.Map{"error": "failed to upload decklist file"})
		}
		updates["decklist_url"] = url
	}

	if err := s.DB.Model(&player).Updates(updates).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to save decklist"})
	}

	s.DB.Where("event_id = ? AND user_id = ?", eventID, userID).First(&player)
	return c.JSON(player)
}

func (s *EventService) GetRoster(c *fiber.Ctx) error {
	eventID := c.Params("id")
	var players []models.PlayerEvent
	if err := s.DB.Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&players).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch roster"})
	}
	return c.JSON(players)
}
