package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward/models"
	"steward/store"
)

func newTestMisc(t *testing.T) MiscService {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	return NewMiscService(st)
}

func TestMisc_EmbedLifecycle(t *testing.T) {
	svc := newTestMisc(t)
	ctx := context.Background()

	e := &models.StoredEmbed{Name: "rules", Title: "Server Rules", CreatedBy: "mod1"}
	require.NoError(t, svc.CreateEmbed(ctx, "guild1", e))
	assert.ErrorIs(t, svc.CreateEmbed(ctx, "guild1", e), ErrEmbedExists)

	require.NoError(t, svc.UpdateEmbed(ctx, "guild1", "rules", func(e *models.StoredEmbed) error {
		e.Description = "be nice"
		return nil
	}))

	got, err := svc.Embed(ctx, "guild1", "rules")
	require.NoError(t, err)
	assert.Equal(t, "be nice", got.Description)

	list, err := svc.Embeds(ctx, "guild1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteEmbed(ctx, "guild1", "rules"))
	_, err = svc.Embed(ctx, "guild1", "rules")
	assert.ErrorIs(t, err, ErrEmbedNotFound)
}

func TestMisc_SeenTracking(t *testing.T) {
	svc := newTestMisc(t)
	ctx := context.Background()

	_, ok, err := svc.LastSeen(ctx, "guild1", "user1")
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, svc.TouchSeen(ctx, "guild1", "user1", at))

	got, ok, err := svc.LastSeen(ctx, "guild1", "user1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(at))
}

func TestMisc_NameHistorySkipsConsecutiveDuplicates(t *testing.T) {
	svc := newTestMisc(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, svc.RecordName(ctx, "user1", "alice", now))
	require.NoError(t, svc.RecordName(ctx, "user1", "alice", now.Add(time.Hour)))
	require.NoError(t, svc.RecordName(ctx, "user1", "alicia", now.Add(2*time.Hour)))

	history, err := svc.NameHistory(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "alice", history[0].Name)
	assert.Equal(t, "alicia", history[1].Name)
}

func TestMisc_NameHistoryBounded(t *testing.T) {
	svc := newTestMisc(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < maxNameHistory+10; i++ {
		require.NoError(t, svc.RecordName(ctx, "user1", string(rune('a'+i%26))+string(rune('0'+i/26)), now.Add(time.Duration(i)*time.Minute)))
	}

	history, err := svc.NameHistory(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, history, maxNameHistory)
}
