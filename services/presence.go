// services/presence.go
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Discord presence statuses as reported by the API
const (
	PresenceOnline    = "online"
	PresenceIdle      = "idle"
	PresenceDND       = "dnd"
	PresenceOffline   = "offline"
	PresenceInvisible = "invisible"
	PresenceUnknown   = "unknown"
)

// presentStatuses is the single source of truth for which statuses count as
// "present". Everything not in this map (offline, invisible, unknown, empty)
// degrades to not-present.
var presentStatuses = map[string]bool{
	PresenceOnline: true,
	PresenceIdle:   true,
	PresenceDND:    true,
}

// IsPresentStatus reports whether a raw presence status counts as present.
func IsPresentStatus(status string) bool {
	return presentStatuses[status]
}

// PresenceResult is the outcome of resolving one target against a guild snapshot.
type PresenceResult struct {
	Target    string `json:"target"`
	Username  string `json:"username"` // resolved display name, or the target echoed back
	IsMember  bool   `json:"is_member"`
	HasRole   bool   `json:"has_role"`
	IsPresent bool   `json:"is_present"`
	Status    string `json:"status,omitempty"` // raw presence status, when known
	Error     string `json:"error,omitempty"`
}

// ResolveOptions controls matching and the optional per-member presence fallback.
type ResolveOptions struct {
	UseID     bool     // match on the numeric member ID instead of names
	RoleIDs   []string // explicit role IDs to match
	RoleNames []string // role names to match (case-insensitive)

	// FetchPresence is tried when the member payload carries no presence data.
	// Failures are swallowed and downgrade to not-present.
	FetchPresence func(ctx context.Context, memberID string) (string, error)
}

// ResolvePresence resolves a single target (username-ish string, or member ID
// when opts.UseID) against an already-fetched member/role snapshot.
func ResolvePresence(ctx context.Context, members []Member, roles map[string]Role, target string, opts ResolveOptions) PresenceResult {
	result := PresenceResult{Target: target, Username: target}

	member, found := findMember(members, target, opts.UseID)
	if !found {
		return result
	}

	result.IsMember = true
	result.Username = resolvedDisplayName(member, target)
	result.HasRole = memberHasRole(member, roles, opts.RoleIDs, opts.RoleNames)

	status := member.PresenceStatus()
	if status == "" && opts.FetchPresence != nil {
		fetched, err := opts.FetchPresence(ctx, member.User.ID)
		if err == nil {
			status = fetched
		}
	}
	if status == "" {
		status = PresenceUnknown
	}
	result.Status = status
	result.IsPresent = IsPresentStatus(status)
	return result
}

// ResolveAll resolves every target against the same snapshot. Targets are
// independent: a panic while resolving one becomes that target's error entry
// and the rest still resolve. Output order matches input order.
func ResolveAll(ctx context.Context, members []Member, roles map[string]Role, targets []string, opts ResolveOptions) []PresenceResult {
	results := make([]PresenceResult, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = PresenceResult{
						Target:   target,
						Username: target,
						Error:    fmt.Sprintf("presence resolution failed: %v", r),
					}
				}
			}()
			results[i] = ResolvePresence(ctx, members, roles, target, opts)
		}(i, target)
	}
	wg.Wait()
	return results
}

// findMember matches target against the roster. Name matching is
// case-insensitive and whitespace-trimmed across username, guild nickname and
// global display name; first structural match in roster order wins.
func findMember(members []Member, target string, useID bool) (Member, bool) {
	if useID {
		for _, m := range members {
			if m.User.ID == target {
				return m, true
			}
		}
		return Member{}, false
	}

	want := normalizeName(target)
	if want == "" {
		return Member{}, false
	}
	for _, m := range members {
		for _, candidate := range []string{m.User.Username, m.Nick, m.User.GlobalName} {
			if candidate != "" && normalizeName(candidate) == want {
				return m, true
			}
		}
	}
	return Member{}, false
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// resolvedDisplayName picks the friendliest non-empty name for reporting.
func resolvedDisplayName(m Member, fallback string) string {
	for _, name := range []string{m.User.GlobalName, m.Nick, m.User.Username} {
		if name != "" {
			return name
		}
	}
	return fallback
}

// memberHasRole reports whether the member carries any of the wanted roles.
// With no wanted roles at all the answer is always false, never vacuously true.
func memberHasRole(m Member, roles map[string]Role, roleIDs, roleNames []string) bool {
	if len(roleIDs) == 0 && len(roleNames) == 0 {
		return false
	}

	wantIDs := make(map[string]bool, len(roleIDs))
	for _, id := range roleIDs {
		wantIDs[id] = true
	}
	wantNames := make(map[string]bool, len(roleNames))
	for _, name := range roleNames {
		wantNames[normalizeName(name)] = true
	}

	for _, roleID := range m.Roles {
		if wantIDs[roleID] {
			return true
		}
		if role, ok := roles[roleID]; ok && wantNames[normalizeName(role.Name)] {
			return true
		}
	}
	return false
}
