// services/checkin_service.go
package services

import (
	"context"
	"log"
	"strings"

	"league-event-system/models"

	"github.com/gofiber/fiber/v2"
)

// GuildDataProvider is the guild-data capability the engine consumes. The
// DiscordClient is the production implementation; tests swap in fakes.
type GuildDataProvider interface {
	ListGuildMembers(ctx context.Context) ([]Member, error)
	ListGuildRoles(ctx context.Context) (map[string]Role, error)
	FetchMemberPresence(ctx context.Context, memberID string) (string, error)
}

// CheckinService decides whether a player may be confirmed for an event.
type CheckinService struct {
	Store CheckinStore
	Guild GuildDataProvider

	// Role gate for check-in; at least one should be configured or the role
	// precondition can never pass.
	RoleName string
	RoleID   string

	Email *EmailService // optional; check-in notices are best effort
}

func NewCheckinService(store CheckinStore, guild GuildDataProvider, roleName, roleID string) *CheckinService {
	return &CheckinService{
		Store:    store,
		Guild:    guild,
		RoleName: roleName,
		RoleID:   roleID,
	}
}

// CheckinOptions are per-call overrides for the single check-in engine.
type CheckinOptions struct {
	DiscordHandle *string // skip the stored-handle lookup and use this instead
	Force         bool    // operator override: write confirmed regardless of preconditions
}

// Preconditions is the snapshot of every checked condition, reported back to
// the caller whether or not check-in was accepted.
type Preconditions struct {
	HasPaid     bool `json:"has_paid"`
	HasDecklist bool `json:"has_decklist"`
	IsMember    bool `json:"is_member"`
	HasRole     bool `json:"has_role"`
	IsPresent   bool `json:"is_present"` // reported only, never gates acceptance
}

// CheckinResult is the structured outcome of one check-in attempt.
type CheckinResult struct {
	Success       bool          `json:"success"`
	Message       string        `json:"message"`
	UserID        string        `json:"user_id"`
	EventID       string        `json:"event_id"`
	DiscordHandle *string       `json:"discord_handle,omitempty"`
	Username      string        `json:"username,omitempty"` // resolved Discord display name
	Preconditions Preconditions `json:"preconditions"`
	StatusUpdated bool          `json:"status_updated"`
}

// missingConditionLabels is the fixed enumeration order and wording for
// failure messages. Callers parse these; do not reword or reorder.
var missingConditionLabels = []struct {
	label string
	met   func(p Preconditions) bool
}{
	{"payment", func(p Preconditions) bool { return p.HasPaid }},
	{"decklist", func(p Preconditions) bool { return p.HasDecklist }},
	{"Discord membership", func(p Preconditions) bool { return p.IsMember }},
	{"Discord role", func(p Preconditions) bool { return p.HasRole }},
}

func missingConditions(p Preconditions) []string {
	var missing []string
	for _, c := range missingConditionLabels {
		if !c.met(p) {
			missing = append(missing, c.label)
		}
	}
	return missing
}

// PerformCheckin runs the full check-in decision for one player. It never
// returns an error and never panics past this boundary: every failure mode
// becomes a structured result.
func (s *CheckinService) PerformCheckin(ctx context.Context, userID, eventID string, opts CheckinOptions) (result CheckinResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[CHECKIN] Internal error for user=%s event=%s: %v", userID, eventID, r)
			result = CheckinResult{
				Success: false,
				Message: "internal error during check-in",
				UserID:  userID,
				EventID: eventID,
			}
		}
	}()

	result = CheckinResult{UserID: userID, EventID: eventID}

	if userID == "" || eventID == "" {
		result.Message = "user_id and event_id are required"
		return result
	}

	result.Preconditions.HasPaid = s.checkBool("payment", userID, eventID, s.Store.HasPaid)
	result.Preconditions.HasDecklist = s.checkBool("decklist", userID, eventID, s.Store.HasDecklist)

	handle := opts.DiscordHandle
	if handle == nil {
		stored, err := s.Store.DiscordHandle(userID, eventID)
		if err != nil {
			log.Printf("[CHECKIN] Handle lookup failed for user=%s: %v", userID, err)
		} else {
			handle = stored
		}
	}
	result.DiscordHandle = handle

	if handle != nil && strings.TrimSpace(*handle) != "" {
		presence := s.resolveHandle(ctx, *handle)
		result.Username = presence.Username
		result.Preconditions.IsMember = presence.IsMember
		result.Preconditions.HasRole = presence.HasRole
		result.Preconditions.IsPresent = presence.IsPresent
	}

	p := result.Preconditions
	accept := p.HasPaid && p.HasDecklist && p.IsMember && p.HasRole

	if accept || opts.Force {
		if err := s.Store.UpdatePlayerStatus(userID, eventID, models.PlayerConfirmed); err != nil {
			log.Printf("[CHECKIN] Status update failed for user=%s event=%s: %v", userID, eventID, err)
		} else {
			result.StatusUpdated = true
		}
	}

	result.Success = accept || (opts.Force && result.StatusUpdated)

	switch {
	case accept && result.StatusUpdated:
		result.Message = "check-in complete"
	case accept:
		result.Message = "check-in accepted but status update failed"
	case opts.Force && result.StatusUpdated:
		result.Message = "check-in forced"
	case opts.Force:
		result.Message = "forced check-in failed: could not update status"
	default:
		result.Message = "check-in failed: missing " + strings.Join(missingConditions(p), ", ")
	}
	return result
}

// checkBool runs one stored-data precondition, degrading a data-store failure
// to false rather than aborting the check-in.
func (s *CheckinService) checkBool(name, userID, eventID string, check func(string, string) (bool, error)) bool {
	ok, err := check(userID, eventID)
	if err != nil {
		log.Printf("[CHECKIN] %s check failed for user=%s event=%s: %v", name, userID, eventID, err)
		return false
	}
	return ok
}

// resolveHandle fetches a fresh guild snapshot and resolves the handle against
// it. Any Discord API failure degrades to not-member/no-role/not-present; the
// caller never sees the error.
func (s *CheckinService) resolveHandle(ctx context.Context, handle string) PresenceResult {
	members, err := s.Guild.ListGuildMembers(ctx)
	if err != nil {
		log.Printf("[CHECKIN] Member fetch failed, treating %q as not present: %v", handle, err)
		return PresenceResult{Target: handle, Username: handle}
	}
	roles, err := s.Guild.ListGuildRoles(ctx)
	if err != nil {
		log.Printf("[CHECKIN] Role fetch failed, treating %q as not present: %v", handle, err)
		return PresenceResult{Target: handle, Username: handle}
	}
	return ResolvePresence(ctx, members, roles, handle, s.resolveOptions())
}

func (s *CheckinService) resolveOptions() ResolveOptions {
	opts := ResolveOptions{FetchPresence: s.Guild.FetchMemberPresence}
	if s.RoleID != "" {
		opts.RoleIDs = []string{s.RoleID}
	}
	if s.RoleName != "" {
		opts.RoleNames = []string{s.RoleName}
	}
	return opts
}

// HandleCheckin is the HTTP surface for a single player check-in.
// POST /events/:id/players/:user_id/checkin
func (s *CheckinService) HandleCheckin(c *fiber.Ctx) error {
	type Req struct {
		DiscordHandle string `json:"discord_handle,omitempty"`
		Force         bool   `json:"force,omitempty"`
	}
	eventID := c.Params("id")
	userID := c.Params("user_id")

	var req Req
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
		}
	}

	opts := CheckinOptions{Force: req.Force}
	if req.DiscordHandle != "" {
		opts.DiscordHandle = &req.DiscordHandle
	}

	result := s.PerformCheckin(c.UserContext(), userID, eventID, opts)

	if result.Success && s.Email != nil {
		s.sendCheckinNotice(c.UserContext(), userID, eventID)
	}
	return c.JSON(result)
}

// sendCheckinNotice emails the player that they are confirmed. Best effort.
func (s *CheckinService) sendCheckinNotice(ctx context.Context, userID, eventID string) {
	player, err := s.Store.GetPlayerEvent(userID, eventID)
	if err != nil || player == nil || player.Email == "" {
		return
	}
	event, err := s.Store.GetEventByID(eventID)
	if err != nil || event == nil {
		return
	}
	s.Email.SendCheckinNotice(ctx, player, event)
}
