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

func newTestModeration(t *testing.T) ModerationService {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	return NewModerationService(st, events.NewBus())
}

func TestModeration_HardBanLifecycle(t *testing.T) {
	svc := newTestModeration(t)
	ctx := context.Background()

	ban := &models.HardBan{UserName: "troll", Reason: "evading", BannedBy: "mod1", BannedAt: time.Now()}
	require.NoError(t, svc.AddHardBan(ctx, "guild1", "user1", ban))

	got, ok, err := svc.HardBan(ctx, "guild1", "user1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "evading", got.Reason)

	// Different guild keeps its own namespace.
	_, ok, err = svc.HardBan(ctx, "guild2", "user1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.RemoveHardBan(ctx, "guild1", "user1"))
	assert.ErrorIs(t, svc.RemoveHardBan(ctx, "guild1", "user1"), ErrNotHardBanned)
}

func TestModeration_TempRolesDue(t *testing.T) {
	svc := newTestModeration(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, svc.AddTempRole(ctx, "guild1", "user1", "role1", &models.TempRole{Expires: now.Add(time.Hour)}))
	require.NoError(t, svc.AddTempRole(ctx, "guild1", "user2", "role2", &models.TempRole{Expires: now.Add(2 * time.Hour)}))

	due, err := svc.DueTempRoles(ctx, now.Add(90*time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "user1", due[0].UserID)
	assert.Equal(t, "role1", due[0].RoleID)

	require.NoError(t, svc.RemoveTempRole(ctx, "guild1", "user1", "role1"))
	due, err = svc.DueTempRoles(ctx, now.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestModeration_TempBansSurviveRestart(t *testing.T) {
	svc := newTestModeration(t)
	ctx := context.Background()
	now := time.Now()

	ban := &models.TempBan{Reason: "spam", BannedBy: "mod1", BannedAt: now, Expires: now.Add(time.Hour)}
	require.NoError(t, svc.AddTempBan(ctx, "guild1", "user1", ban))
	require.NoError(t, svc.AddTempBan(ctx, "guild1", "user2", &models.TempBan{Expires: now.Add(3 * time.Hour)}))

	got, ok, err := svc.TempBan(ctx, "guild1", "user1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "spam", got.Reason)

	due, err := svc.DueTempBans(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "user1", due[0].UserID)

	require.NoError(t, svc.RemoveTempBan(ctx, "guild1", "user1"))
	due, err = svc.DueTempBans(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)

	_, ok, err = svc.TempBan(ctx, "guild1", "user1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestModeration_JailStoresAndRestoresRoles(t *testing.T) {
	svc := newTestModeration(t)
	ctx := context.Background()

	_, err := svc.JailRole(ctx, "guild1")
	assert.ErrorIs(t, err, ErrNoJailRole)

	require.NoError(t, svc.SetJailRole(ctx, "guild1", "jailrole"))
	roleID, err := svc.JailRole(ctx, "guild1")
	require.NoError(t, err)
	assert.Equal(t, "jailrole", roleID)

	record := &models.JailRecord{StoredRoles: []string{"r1", "r2"}, JailedBy: "mod1", JailedAt: time.Now()}
	require.NoError(t, svc.Jail(ctx, "guild1", "user1", record))
	assert.ErrorIs(t, svc.Jail(ctx, "guild1", "user1", record), ErrAlreadyJailed)

	released, err := svc.Release(ctx, "guild1", "user1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, released.StoredRoles)

	_, err = svc.Release(ctx, "guild1", "user1")
	assert.ErrorIs(t, err, ErrNotJailed)
}

func TestModeration_DueJailsSkipsPermanent(t *testing.T) {
	svc := newTestModeration(t)
	ctx := context.Background()
	now := time.Now()
	expires := now.Add(time.Hour)

	require.NoError(t, svc.Jail(ctx, "guild1", "timed", &models.JailRecord{Expires: &expires}))
	require.NoError(t, svc.Jail(ctx, "guild1", "forever", &models.JailRecord{}))

	due, err := svc.DueJails(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "timed", due[0].UserID)
}

func TestModeration_StfuToggle(t *testing.T) {
	svc := newTestModeration(t)
	ctx := context.Background()

	added, err := svc.ToggleStfu(ctx, "guild1", "user1")
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, svc.IsStfu(ctx, "guild1", "user1"))

	added, err = svc.ToggleStfu(ctx, "guild1", "user1")
	require.NoError(t, err)
	assert.False(t, added)
	assert.False(t, svc.IsStfu(ctx, "guild1", "user1"))
}

func TestModeration_ForcedNick(t *testing.T) {
	svc := newTestModeration(t)
	ctx := context.Background()

	require.NoError(t, svc.SetForcedNick(ctx, "guild1", "user1", "potato"))
	nick, ok := svc.ForcedNick(ctx, "guild1", "user1")
	require.True(t, ok)
	assert.Equal(t, "potato", nick)

	require.NoError(t, svc.ClearForcedNick(ctx, "guild1", "user1"))
	_, ok = svc.ForcedNick(ctx, "guild1", "user1")
	assert.False(t, ok)
}

func TestModeration_StickyRoles(t *testing.T) {
	svc := newTestModeration(t)
	ctx := context.Background()

	require.NoError(t, svc.SetStickyRoles(ctx, "guild1", "user1", []string{"r1", "r2"}))
	roles, err := svc.StickyRoles(ctx, "guild1", "user1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, roles)

	// Empty set clears the entry.
	require.NoError(t, svc.SetStickyRoles(ctx, "guild1", "user1", nil))
	roles, err = svc.StickyRoles(ctx, "guild1", "user1")
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestModeration_LockdownTriState(t *testing.T) {
	svc := newTestModeration(t)
	ctx := context.Background()

	allow := true
	deny := false
	require.NoError(t, svc.SaveLockdown(ctx, "guild1", "chanAllow", &allow))
	require.NoError(t, svc.SaveLockdown(ctx, "guild1", "chanDeny", &deny))
	require.NoError(t, svc.SaveLockdown(ctx, "guild1", "chanInherit", nil))

	state, found, err := svc.PopLockdown(ctx, "guild1", "chanAllow")
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, state.Prior)
	assert.True(t, *state.Prior)

	state, found, err = svc.PopLockdown(ctx, "guild1", "chanInherit")
	require.NoError(t, err)
	require.True(t, found)
	assert.Nil(t, state.Prior)

	// Pop removes the record.
	_, found, err = svc.PopLockdown(ctx, "guild1", "chanAllow")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestModeration_LockdownAllTouchedSet(t *testing.T) {
	svc := newTestModeration(t)
	ctx := context.Background()

	require.NoError(t, svc.SetLockdownIgnored(ctx, "guild1", []string{"staff"}))
	ignored, err := svc.LockdownIgnored(ctx, "guild1")
	require.NoError(t, err)
	assert.Equal(t, []string{"staff"}, ignored)

	require.NoError(t, svc.SetAllLocked(ctx, "guild1", []string{"c1", "c2"}))
	touched, err := svc.PopAllLocked(ctx, "guild1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, touched)

	touched, err = svc.PopAllLocked(ctx, "guild1")
	require.NoError(t, err)
	assert.Empty(t, touched)
}

func TestModeration_Restrictions(t *testing.T) {
	svc := newTestModeration(t)
	ctx := context.Background()

	_, ok := svc.PermittedRoles("guild1", "gamble")
	assert.False(t, ok)

	require.NoError(t, svc.RestrictCommand(ctx, "guild1", "gamble", []string{"vip"}))
	roles, ok := svc.PermittedRoles("guild1", "gamble")
	require.True(t, ok)
	assert.Equal(t, []string{"vip"}, roles)

	all, err := svc.Restrictions(ctx, "guild1")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, svc.UnrestrictCommand(ctx, "guild1", "gamble"))
	_, ok = svc.PermittedRoles("guild1", "gamble")
	assert.False(t, ok)
}

func TestModeration_Reminders(t *testing.T) {
	svc := newTestModeration(t)
	ctx := context.Background()
	now := time.Now()

	id, err := svc.AddReminder(ctx, "user1", &models.Reminder{Reason: "stretch", Expires: now.Add(time.Hour)})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = svc.AddReminder(ctx, "user1", &models.Reminder{Reason: "water", Expires: now.Add(3 * time.Hour)})
	require.NoError(t, err)

	list, err := svc.Reminders(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	due, err := svc.DueReminders(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "stretch", due[0].Reminder.Reason)

	require.NoError(t, svc.RemoveReminder(ctx, "user1", id))
	assert.ErrorIs(t, svc.RemoveReminder(ctx, "user1", id), ErrNoSuchReminder)
}

func TestModeration_HistoryLimit(t *testing.T) {
	svc := newTestModeration(t)
	ctx := context.Background()

	for _, action := range []string{"ban", "kick", "jail"} {
		require.NoError(t, svc.RecordAction(ctx, "guild1", &models.ModAction{Action: action, TargetID: "user1", Moderator: "mod1"}))
	}

	all, err := svc.History(ctx, "guild1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.False(t, all[0].At.IsZero())

	last, err := svc.History(ctx, "guild1", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "kick", last[0].Action)
	assert.Equal(t, "jail", last[1].Action)
}
