package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func member(id, username, nick, globalName string, roleIDs []string, status string) Member {
	m := Member{
		User: MemberUser{ID: id, Username: username, GlobalName: globalName},
		Nick: nick,
		Roles: roleIDs,
	}
	if status != "" {
		m.Presence = &MemberPresence{Status: status}
	}
	return m
}

func testRoles() map[string]Role {
	return map[string]Role{
		"r1": {ID: "r1", Name: "League Member"},
		"r2": {ID: "r2", Name: "Moderator"},
	}
}

func TestIsPresentStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{PresenceOnline, true},
		{PresenceIdle, true},
		{PresenceDND, true},
		{PresenceOffline, false},
		{PresenceInvisible, false},
		{PresenceUnknown, false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, IsPresentStatus(tt.status), "status %q", tt.status)
	}
}

func TestResolvePresence_TargetNotInRoster(t *testing.T) {
	members := []Member{
		member("1", "alice", "", "", []string{"r1"}, PresenceOnline),
	}

	result := ResolvePresence(context.Background(), members, testRoles(), "bob", ResolveOptions{
		RoleNames: []string{"League Member"},
	})

	assert.False(t, result.IsMember)
	assert.False(t, result.HasRole)
	assert.False(t, result.IsPresent)
	assert.Equal(t, "bob", result.Username, "target should be echoed back")
	assert.Equal(t, "bob", result.Target)
}

func TestResolvePresence_NameMatchingIsNormalized(t *testing.T) {
	members := []Member{
		member("1", "Alice", "Ally", "Alice the Great", []string{"r1"}, PresenceOnline),
	}
	roles := testRoles()
	opts := ResolveOptions{RoleNames: []string{"league member"}}

	for _, target := range []string{"alice", "  ALICE  ", "ally", "alice the great"} {
		result := ResolvePresence(context.Background(), members, roles, target, opts)
		assert.Truef(t, result.IsMember, "target %q should match", target)
		assert.Truef(t, result.HasRole, "target %q should have role", target)
	}
}

func TestResolvePresence_MatchByID(t *testing.T) {
	members := []Member{
		member("12345", "alice", "", "", nil, PresenceOnline),
	}

	result := ResolvePresence(context.Background(), members, testRoles(), "12345", ResolveOptions{UseID: true})
	assert.True(t, result.IsMember)

	// name-style lookup must not match an ID
	result = ResolvePresence(context.Background(), members, testRoles(), "12345", ResolveOptions{})
	assert.False(t, result.IsMember)
}

func TestResolvePresence_DisplayNamePreference(t *testing.T) {
	tests := []struct {
		name   string
		member Member
		want   string
	}{
		{"global name wins", member("1", "alice", "Ally", "Alice G", nil, ""), "Alice G"},
		{"then nickname", member("1", "alice", "Ally", "", nil, ""), "Ally"},
		{"then username", member("1", "alice", "", "", nil, ""), "alice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ResolvePresence(context.Background(), []Member{tt.member}, nil, "alice", ResolveOptions{})
			assert.Equal(t, tt.want, result.Username)
		})
	}
}

func TestResolvePresence_EmptyRoleFiltersNeverMatch(t *testing.T) {
	members := []Member{
		member("1", "alice", "", "", []string{"r1", "r2"}, PresenceOnline),
	}

	result := ResolvePresence(context.Background(), members, testRoles(), "alice", ResolveOptions{})
	assert.True(t, result.IsMember)
	assert.False(t, result.HasRole, "no wanted roles must never be vacuously true")
}

func TestResolvePresence_RoleMatching(t *testing.T) {
	members := []Member{
		member("1", "alice", "", "", []string{"r1"}, PresenceOnline),
	}
	roles := testRoles()

	byID := ResolvePresence(context.Background(), members, roles, "alice", ResolveOptions{RoleIDs: []string{"r1"}})
	assert.True(t, byID.HasRole)

	byName := ResolvePresence(context.Background(), members, roles, "alice", ResolveOptions{RoleNames: []string{"LEAGUE MEMBER"}})
	assert.True(t, byName.HasRole)

	noMatch := ResolvePresence(context.Background(), members, roles, "alice", ResolveOptions{
		RoleIDs:   []string{"r9"},
		RoleNames: []string{"Admin"},
	})
	assert.False(t, noMatch.HasRole)
}

func TestResolvePresence_PresenceStatuses(t *testing.T) {
	for status, want := range map[string]bool{
		PresenceOnline:    true,
		PresenceIdle:      true,
		PresenceDND:       true,
		PresenceOffline:   false,
		PresenceInvisible: false,
	} {
		members := []Member{member("1", "alice", "", "", nil, status)}
		result := ResolvePresence(context.Background(), members, nil, "alice", ResolveOptions{})
		assert.Equalf(t, want, result.IsPresent, "status %q", status)
		assert.Equal(t, status, result.Status)
	}
}

func TestResolvePresence_FallbackFetch(t *testing.T) {
	members := []Member{member("1", "alice", "", "", nil, "")} // no embedded presence

	fetched := ResolvePresence(context.Background(), members, nil, "alice", ResolveOptions{
		FetchPresence: func(ctx context.Context, memberID string) (string, error) {
			assert.Equal(t, "1", memberID)
			return PresenceIdle, nil
		},
	})
	assert.True(t, fetched.IsPresent)
	assert.Equal(t, PresenceIdle, fetched.Status)

	failed := ResolvePresence(context.Background(), members, nil, "alice", ResolveOptions{
		FetchPresence: func(ctx context.Context, memberID string) (string, error) {
			return "", fmt.Errorf("rate limited")
		},
	})
	assert.False(t, failed.IsPresent, "fallback failure downgrades to not-present")
	assert.Equal(t, PresenceUnknown, failed.Status)

	none := ResolvePresence(context.Background(), members, nil, "alice", ResolveOptions{})
	assert.False(t, none.IsPresent)
	assert.Equal(t, PresenceUnknown, none.Status)
}

func TestResolveAll_PreservesOrderAndIsolatesFailures(t *testing.T) {
	members := []Member{
		member("1", "alice", "", "", []string{"r1"}, PresenceOnline),
		member("2", "bob", "", "", nil, PresenceOffline),
	}
	// a FetchPresence that panics for bob's fallback exercises per-target isolation
	opts := ResolveOptions{
		RoleNames: []string{"League Member"},
		FetchPresence: func(ctx context.Context, memberID string) (string, error) {
			panic("unexpected fetch")
		},
	}
	// bob has embedded presence so the panicking fallback is not reached for him;
	// carol is unknown so no fallback either. trigger the panic via a third
	// member with no embedded presence.
	members = append(members, member("3", "dave", "", "", nil, ""))

	targets := []string{"alice", "bob", "dave", "carol"}
	results := ResolveAll(context.Background(), members, testRoles(), targets, opts)

	require.Len(t, results, len(targets))
	for i, target := range targets {
		assert.Equal(t, target, results[i].Target, "output order must match input order")
	}

	assert.True(t, results[0].IsMember)
	assert.True(t, results[0].HasRole)
	assert.True(t, results[0].IsPresent)

	assert.True(t, results[1].IsMember)
	assert.False(t, results[1].IsPresent)

	// dave's resolution panicked in the fallback; he gets an error entry
	assert.False(t, results[2].IsMember)
	assert.False(t, results[2].HasRole)
	assert.False(t, results[2].IsPresent)
	assert.NotEmpty(t, results[2].Error)

	// carol simply isn't in the guild
	assert.False(t, results[3].IsMember)
	assert.Empty(t, results[3].Error)
}
