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

func newTestAlerts(t *testing.T) CryptoAlertService {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	return NewCryptoAlertService(st)
}

func TestCryptoAlerts_Lifecycle(t *testing.T) {
	svc := newTestAlerts(t)
	ctx := context.Background()

	id, err := svc.AddAlert(ctx, "guild1", &models.CryptoAlert{
		UserID: "user1", ChannelID: "chan1", Coin: "bitcoin",
		Above: true, PriceUSD: 100000, CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Len(t, id, 8)

	alerts, err := svc.Alerts(ctx, "guild1")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "bitcoin", alerts[0].Coin)
	assert.True(t, alerts[0].Above)

	// Guilds are isolated.
	alerts, err = svc.Alerts(ctx, "guild2")
	require.NoError(t, err)
	assert.Empty(t, alerts)

	require.NoError(t, svc.RemoveAlert(ctx, "guild1", id))
	alerts, err = svc.Alerts(ctx, "guild1")
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestCryptoAlerts_RemoveUnknown(t *testing.T) {
	svc := newTestAlerts(t)
	err := svc.RemoveAlert(context.Background(), "guild1", "nope")
	assert.ErrorIs(t, err, ErrNoSuchAlert)
}

func TestCryptoAlerts_AllAlertsSpanGuilds(t *testing.T) {
	svc := newTestAlerts(t)
	ctx := context.Background()

	_, err := svc.AddAlert(ctx, "guild1", &models.CryptoAlert{UserID: "u1", Coin: "bitcoin", PriceUSD: 1})
	require.NoError(t, err)
	_, err = svc.AddAlert(ctx, "guild2", &models.CryptoAlert{UserID: "u2", Coin: "ethereum", PriceUSD: 2})
	require.NoError(t, err)

	all, err := svc.AllAlerts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
