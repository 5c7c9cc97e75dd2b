// services/event_checkin.go
package services

import (
	"context"
	"fmt"
	"log"

	"league-event-system/models"

	"github.com/gofiber/fiber/v2"
)

// BulkCheckinOptions are per-call overrides for the bulk orchestrator.
type BulkCheckinOptions struct {
	Force bool // bypass the registration-closed gate and per-player preconditions
}

// BulkPlayerResult is one roster entry's outcome, carrying the status the
// player had before this run.
type BulkPlayerResult struct {
	UserName       string `json:"user_name,omitempty"`
	PreviousStatus string `json:"previous_status"`
	CheckinResult
}

// BulkCheckinResult aggregates a whole roster run. Success reflects whether
// the batch ran to completion; per-player outcomes live in Results.
type BulkCheckinResult struct {
	Success            bool               `json:"success"`
	Message            string             `json:"message"`
	EventID            string             `json:"event_id"`
	EventTitle         string             `json:"event_title,omitempty"`
	TotalPlayers       int                `json:"total_players"`
	SuccessfulCheckins int                `json:"successful_checkins"`
	Results            []BulkPlayerResult `json:"results"`
}

// PerformBulkCheckin runs the single engine over an event's eligible roster.
// Players are processed sequentially and in isolation: one player's failure
// (even a panic) never aborts the batch.
func (s *CheckinService) PerformBulkCheckin(ctx context.Context, eventID string, opts BulkCheckinOptions) BulkCheckinResult {
	result := BulkCheckinResult{EventID: eventID, Results: []BulkPlayerResult{}}

	if eventID == "" {
		result.Message = "event_id is required"
		return result
	}

	event, err := s.Store.GetEventByID(eventID)
	if err != nil {
		log.Printf("[CHECKIN] Failed to load event %s: %v", eventID, err)
		result.Message = "failed to load event"
		return result
	}
	if event == nil {
		result.Message = "event not found"
		return result
	}
	result.EventTitle = event.Title

	if event.Status != models.EventRegistrationClosed && !opts.Force {
		result.Message = fmt.Sprintf(
			"event status is %q; bulk check-in requires %q (use force to override)",
			event.Status, models.EventRegistrationClosed,
		)
		return result
	}

	roster, err := s.Store.ListEligiblePlayers(eventID)
	if err != nil {
		log.Printf("[CHECKIN] Failed to load roster for event %s: %v", eventID, err)
		result.Message = "failed to load event roster"
		return result
	}

	result.Success = true
	result.TotalPlayers = len(roster)
	if len(roster) == 0 {
		result.Message = "no eligible players to process"
		return result
	}

	for _, player := range roster {
		entry := s.bulkCheckinEntry(ctx, player, opts.Force)
		if entry.CheckinResult.Success {
			result.SuccessfulCheckins++
		}
		result.Results = append(result.Results, entry)
	}

	result.Message = fmt.Sprintf("processed %d player(s), %d checked in", result.TotalPlayers, result.SuccessfulCheckins)
	log.Printf("[CHECKIN] Bulk run for event %s (%s): %s", eventID, event.Title, result.Message)
	return result
}

// bulkCheckinEntry isolates a single player's run. A panic here becomes that
// player's failure entry with their original status untouched.
func (s *CheckinService) bulkCheckinEntry(ctx context.Context, player models.PlayerEvent, force bool) (entry BulkPlayerResult) {
	entry = BulkPlayerResult{
		UserName:       player.UserName,
		PreviousStatus: player.Status,
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[CHECKIN] Unexpected error processing user=%s event=%s: %v", player.UserID, player.EventID, r)
			entry.CheckinResult = CheckinResult{
				Success: false,
				Message: fmt.Sprintf("unexpected error: %v", r),
				UserID:  player.UserID,
				EventID: player.EventID,
			}
		}
	}()

	entry.CheckinResult = s.PerformCheckin(ctx, player.UserID, player.EventID, CheckinOptions{Force: force})
	return entry
}

// HandleBulkCheckin is the HTTP surface for a whole-event check-in run.
// POST /events/:id/checkin
func (s *CheckinService) HandleBulkCheckin(c *fiber.Ctx) error {
	type Req struct {
		Force bool `json:"force,omitempty"`
	}
	var req Req
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
		}
	}

	result := s.PerformBulkCheckin(c.UserContext(), c.Params("id"), BulkCheckinOptions{Force: req.Force})
	return c.JSON(result)
}

// HandleValidatePresence resolves a batch of targets against a fresh guild
// snapshot without touching any stored state. Operator/debugging surface.
// POST /presence/validate
func (s *CheckinService) HandleValidatePresence(c *fiber.Ctx) error {
	type Req struct {
		Targets   []string `json:"targets"`
		UseID     bool     `json:"use_id,omitempty"`
		RoleIDs   []string `json:"role_ids,omitempty"`
		RoleNames []string `json:"role_names,omitempty"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if len(req.Targets) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "targets is required"})
	}

	ctx := c.UserContext()
	members, err := s.Guild.ListGuildMembers(ctx)
	if err != nil {
		log.Printf("[PRESENCE] Member fetch failed: %v", err)
		return c.Status(502).JSON(fiber.Map{"error": "failed to fetch guild members"})
	}
	roles, err := s.Guild.ListGuildRoles(ctx)
	if err != nil {
		log.Printf("[PRESENCE] Role fetch failed: %v", err)
		return c.Status(502).JSON(fiber.Map{"error": "failed to fetch guild roles"})
	}

	opts := ResolveOptions{
		UseID:         req.UseID,
		RoleIDs:       req.RoleIDs,
		RoleNames:     req.RoleNames,
		FetchPresence: s.Guild.FetchMemberPresence,
	}
	if len(opts.RoleIDs) == 0 && len(opts.RoleNames) == 0 {
		// fall back to the configured check-in role
		opts = s.resolveOptions()
		opts.UseID = req.UseID
	}

	results := ResolveAll(ctx, members, roles, req.Targets, opts)
	return c.JSON(fiber.Map{
		"total":   len(results),
		"results": results,
	})
}
