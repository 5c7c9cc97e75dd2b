package services

import (
	"context"
	"testing"

	"league-event-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bulkEvent(status string) *models.Event {
	return &models.Event{ID: testEventID, Title: "Friday League", Status: status}
}

func rosterEntry(userID, userName, status string) models.PlayerEvent {
	return models.PlayerEvent{
		UserID:   userID,
		EventID:  testEventID,
		UserName: userName,
		Status:   status,
	}
}

func TestPerformBulkCheckin_MissingEventID(t *testing.T) {
	svc := newTestService(newFakeStore(), readyGuild())

	result := svc.PerformBulkCheckin(context.Background(), "", BulkCheckinOptions{})

	assert.False(t, result.Success)
	assert.Equal(t, "event_id is required", result.Message)
}

func TestPerformBulkCheckin_EventNotFound(t *testing.T) {
	svc := newTestService(newFakeStore(), readyGuild())

	result := svc.PerformBulkCheckin(context.Background(), "missing", BulkCheckinOptions{})

	assert.False(t, result.Success)
	assert.Equal(t, "event not found", result.Message)
	assert.Empty(t, result.Results)
}

func TestPerformBulkCheckin_RequiresRegistrationClosed(t *testing.T) {
	store := newFakeStore()
	store.events[testEventID] = bulkEvent(models.EventRegistrationOpen)
	store.roster = []models.PlayerEvent{rosterEntry("p1", "Alice", models.PlayerPending)}
	svc := newTestService(store, readyGuild())

	result := svc.PerformBulkCheckin(context.Background(), testEventID, BulkCheckinOptions{})

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "registration_closed")
	assert.Contains(t, result.Message, "use force to override")
	assert.Empty(t, result.Results, "a gated run must not touch the roster")
	assert.Empty(t, store.statusWrites)
}

func TestPerformBulkCheckin_ForceBypassesStatusGate(t *testing.T) {
	store := newFakeStore()
	store.events[testEventID] = bulkEvent(models.EventRegistrationOpen)
	store.roster = []models.PlayerEvent{rosterEntry("p1", "Alice", models.PlayerPending)}
	svc := newTestService(store, readyGuild())

	result := svc.PerformBulkCheckin(context.Background(), testEventID, BulkCheckinOptions{Force: true})

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.TotalPlayers)
	// force also flows into the per-player engine
	assert.Equal(t, 1, result.SuccessfulCheckins)
	require.Len(t, store.statusWrites, 1)
}

func TestPerformBulkCheckin_EmptyRoster(t *testing.T) {
	store := newFakeStore()
	store.events[testEventID] = bulkEvent(models.EventRegistrationClosed)
	svc := newTestService(store, readyGuild())

	result := svc.PerformBulkCheckin(context.Background(), testEventID, BulkCheckinOptions{})

	assert.True(t, result.Success, "an empty roster is a successful no-op")
	assert.Equal(t, 0, result.TotalPlayers)
	assert.Equal(t, "no eligible players to process", result.Message)
}

func TestPerformBulkCheckin_OnlyEligibleStatusesProcessed(t *testing.T) {
	store := newFakeStore()
	store.events[testEventID] = bulkEvent(models.EventRegistrationClosed)
	store.roster = []models.PlayerEvent{
		rosterEntry("p1", "Alice", models.PlayerPending),
		rosterEntry("p2", "Bob", models.PlayerCancelled),
		rosterEntry("p3", "Carol", models.PlayerConfirmed),
		rosterEntry("p4", "Dave", models.PlayerWaitlisted),
	}
	svc := newTestService(store, readyGuild())

	result := svc.PerformBulkCheckin(context.Background(), testEventID, BulkCheckinOptions{})

	assert.Equal(t, 2, result.TotalPlayers)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "Alice", result.Results[0].UserName)
	assert.Equal(t, "Carol", result.Results[1].UserName)
}

func TestPerformBulkCheckin_PanicInOnePlayerDoesNotAbortBatch(t *testing.T) {
	store := newFakeStore()
	store.events[testEventID] = bulkEvent(models.EventRegistrationClosed)
	store.roster = []models.PlayerEvent{
		rosterEntry("p1", "Alice", models.PlayerPending),
		rosterEntry("p2", "Bob", models.PlayerPending),
		rosterEntry("p3", "Carol", models.PlayerPending),
	}
	for _, p := range []string{"p1", "p3"} {
		store.paid[key(p, testEventID)] = true
		store.decklists[key(p, testEventID)] = true
		store.handles[p] = "alice"
	}
	store.panicOnPaid["p2"] = true

	guild := readyGuild()
	svc := newTestService(store, guild)

	var result BulkCheckinResult
	assert.NotPanics(t, func() {
		result = svc.PerformBulkCheckin(context.Background(), testEventID, BulkCheckinOptions{})
	})

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.TotalPlayers)
	assert.Equal(t, 2, result.SuccessfulCheckins)
	require.Len(t, result.Results, 3)

	assert.True(t, result.Results[0].CheckinResult.Success)
	assert.False(t, result.Results[1].CheckinResult.Success)
	assert.Equal(t, "internal error during check-in", result.Results[1].CheckinResult.Message)
	assert.Equal(t, models.PlayerPending, result.Results[1].PreviousStatus)
	assert.True(t, result.Results[2].CheckinResult.Success)
	assert.Equal(t, "processed 3 player(s), 2 checked in", result.Message)
}

func TestPerformBulkCheckin_MixedOutcomes(t *testing.T) {
	// two-player roster: one meets everything, one is in the guild but lacks
	// the check-in role
	store := newFakeStore()
	store.events[testEventID] = bulkEvent(models.EventRegistrationClosed)
	store.roster = []models.PlayerEvent{
		rosterEntry("p1", "Alice", models.PlayerPending),
		rosterEntry("p2", "Bob", models.PlayerPending),
	}
	for _, p := range []string{"p1", "p2"} {
		store.paid[key(p, testEventID)] = true
		store.decklists[key(p, testEventID)] = true
	}
	store.handles["p1"] = "alice"
	store.handles["p2"] = "bob"

	guild := &fakeGuild{
		members: []Member{
			member("1", "alice", "", "", []string{"r1"}, PresenceOnline),
			member("2", "bob", "", "", []string{"r2"}, PresenceIdle),
		},
		roles: testRoles(),
	}
	svc := newTestService(store, guild)

	result := svc.PerformBulkCheckin(context.Background(), testEventID, BulkCheckinOptions{})

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.TotalPlayers)
	assert.Equal(t, 1, result.SuccessfulCheckins)
	require.Len(t, result.Results, 2)

	assert.True(t, result.Results[0].CheckinResult.Success)
	assert.Equal(t, "check-in complete", result.Results[0].CheckinResult.Message)
	assert.Equal(t, models.PlayerPending, result.Results[0].PreviousStatus)

	assert.False(t, result.Results[1].CheckinResult.Success)
	assert.Contains(t, result.Results[1].CheckinResult.Message, "Discord role")
	assert.True(t, result.Results[1].CheckinResult.Preconditions.IsMember)
	assert.False(t, result.Results[1].CheckinResult.Preconditions.HasRole)

	require.Len(t, store.statusWrites, 1)
	assert.Equal(t, "p1:evt-1:confirmed", store.statusWrites[0])
	assert.Equal(t, "processed 2 player(s), 1 checked in", result.Message)
}

func TestPerformBulkCheckin_CarriesEventTitle(t *testing.T) {
	store := newFakeStore()
	store.events[testEventID] = bulkEvent(models.EventRegistrationClosed)
	svc := newTestService(store, readyGuild())

	result := svc.PerformBulkCheckin(context.Background(), testEventID, BulkCheckinOptions{})
	assert.Equal(t, "Friday League", result.EventTitle)
}
