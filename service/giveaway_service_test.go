package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward/events"
	"steward/models"
	"steward/store"
)

func newTestGiveaways(t *testing.T) GiveawayService {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	return NewGiveawayService(st, events.NewBus())
}

func testGiveaway(now time.Time) *models.Giveaway {
	return &models.Giveaway{
		MessageID:    "msg1",
		ChannelID:    "chan1",
		GuildID:      "guild1",
		Prize:        "A",
		WinnersCount: 2,
		HostIDs:      []string{"host1"},
		CreatedAt:    now,
	}
}

func TestGiveaway_CreateRejectsShortDuration(t *testing.T) {
	svc := newTestGiveaways(t)
	now := time.Now()

	err := svc.Create(context.Background(), testGiveaway(now), 59*time.Second)
	assert.ErrorIs(t, err, ErrDurationTooShort)

	err = svc.Create(context.Background(), testGiveaway(now), 60*time.Second)
	assert.NoError(t, err)
}

func TestGiveaway_CreateRejectsZeroWinners(t *testing.T) {
	svc := newTestGiveaways(t)
	g := testGiveaway(time.Now())
	g.WinnersCount = 0

	err := svc.Create(context.Background(), g, time.Minute)
	assert.ErrorIs(t, err, ErrNoWinnersWanted)
}

func TestGiveaway_DueAfterEndTime(t *testing.T) {
	svc := newTestGiveaways(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, svc.Create(ctx, testGiveaway(now), time.Minute))

	due, err := svc.Due(ctx, "guild1", now.Add(30*time.Second))
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = svc.Due(ctx, "guild1", now.Add(61*time.Second))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "msg1", due[0].MessageID)
}

func TestGiveaway_CompleteMovesToEndedAndPicksWinners(t *testing.T) {
	svc := newTestGiveaways(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, svc.Create(ctx, testGiveaway(now), time.Minute))

	entries := []string{"u1", "u2", "u3"}
	done, err := svc.Complete(ctx, "guild1", "msg1", entries, now.Add(2*time.Minute))
	require.NoError(t, err)

	// |winners| = min(winners_count, |valid_entries|), all distinct, all
	// drawn from the entry set.
	require.Len(t, done.WinnerIDs, 2)
	assert.NotEqual(t, done.WinnerIDs[0], done.WinnerIDs[1])
	for _, w := range done.WinnerIDs {
		assert.Contains(t, entries, w)
	}

	_, active, err := svc.Get(ctx, "guild1", "msg1")
	require.NoError(t, err)
	assert.False(t, active)

	// Completing again fails: the record left the active bucket.
	_, err = svc.Complete(ctx, "guild1", "msg1", entries, now)
	assert.ErrorIs(t, err, ErrGiveawayNotFound)
}

func TestGiveaway_CompleteWithFewerEntriesThanWinners(t *testing.T) {
	svc := newTestGiveaways(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, svc.Create(ctx, testGiveaway(now), time.Minute))

	done, err := svc.Complete(ctx, "guild1", "msg1", []string{"u1"}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, done.WinnerIDs)
}

func TestGiveaway_RerollDrawsFromPersistedEntries(t *testing.T) {
	svc := newTestGiveaways(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, svc.Create(ctx, testGiveaway(now), time.Minute))
	entries := []string{"u1", "u2", "u3"}
	done, err := svc.Complete(ctx, "guild1", "msg1", entries, now)
	require.NoError(t, err)
	previous := map[string]bool{}
	for _, w := range done.WinnerIDs {
		previous[w] = true
	}

	winners, fresh, err := svc.Reroll(ctx, "guild1", "msg1", 1)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Contains(t, entries, winners[0])

	// Reward roles only go to winners outside the previous winner set.
	for _, f := range fresh {
		assert.False(t, previous[f])
	}
}

func TestGiveaway_RerollRequiresEnded(t *testing.T) {
	svc := newTestGiveaways(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, testGiveaway(time.Now()), time.Minute))
	_, _, err := svc.Reroll(ctx, "guild1", "msg1", 1)
	assert.ErrorIs(t, err, ErrGiveawayActive)

	_, _, err = svc.Reroll(ctx, "guild1", "nope", 1)
	assert.ErrorIs(t, err, ErrGiveawayNotFound)
}

func TestGiveaway_EditDurationReanchors(t *testing.T) {
	svc := newTestGiveaways(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, svc.Create(ctx, testGiveaway(now), time.Minute))

	later := now.Add(10 * time.Minute)
	edited, err := svc.Edit(ctx, "guild1", "msg1", func(g *models.Giveaway) error {
		g.EndTime = later.Add(5 * time.Minute)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, later.Add(5*time.Minute), edited.EndTime)
}

func TestGiveaway_CancelRemovesWithoutDraw(t *testing.T) {
	svc := newTestGiveaways(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, testGiveaway(time.Now()), time.Minute))
	require.NoError(t, svc.Cancel(ctx, "guild1", "msg1"))

	_, _, err := svc.Get(ctx, "guild1", "msg1")
	assert.ErrorIs(t, err, ErrGiveawayNotFound)
}

func TestEligibleEntries_Filters(t *testing.T) {
	now := time.Now()
	g := &models.Giveaway{
		Filters: models.GiveawayFilters{
			MinAccountAgeSeconds: 3600,
			MinServerStayDays:    7,
			MinLevel:             5,
			MaxLevel:             50,
			RequiredRoleIDs:      []string{"role1"},
		},
	}

	ok := EntrantInfo{
		UserID:         "good",
		IsMember:       true,
		AccountCreated: now.Add(-2 * time.Hour),
		JoinedAt:       now.Add(-8 * 24 * time.Hour),
		RoleIDs:        []string{"role1", "other"},
		Level:          10,
	}

	cases := []struct {
		name   string
		mutate func(*EntrantInfo)
	}{
		{"left the server", func(e *EntrantInfo) { e.IsMember = false }},
		{"account too young", func(e *EntrantInfo) { e.AccountCreated = now.Add(-time.Minute) }},
		{"joined too recently", func(e *EntrantInfo) { e.JoinedAt = now.Add(-24 * time.Hour) }},
		{"level too low", func(e *EntrantInfo) { e.Level = 4 }},
		{"level too high", func(e *EntrantInfo) { e.Level = 51 }},
		{"missing required role", func(e *EntrantInfo) { e.RoleIDs = []string{"other"} }},
	}

	assert.Equal(t, []string{"good"}, EligibleEntries(g, []EntrantInfo{ok}, now))

	for _, tc := range cases {
		bad := ok
		tc.mutate(&bad)
		assert.Empty(t, EligibleEntries(g, []EntrantInfo{bad}, now), tc.name)
	}
}

func TestEligibleEntries_NoFiltersKeepsMembers(t *testing.T) {
	g := &models.Giveaway{}
	entrants := []EntrantInfo{
		{UserID: "a", IsMember: true},
		{UserID: "b", IsMember: false},
	}
	assert.Equal(t, []string{"a"}, EligibleEntries(g, entrants, time.Now()))
}
