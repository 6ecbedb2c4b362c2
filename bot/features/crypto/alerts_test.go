package crypto

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward/crypto"
	"steward/models"
	"steward/service"
	"steward/store"
)

type sentAlert struct {
	channelID string
	content   string
}

func newSweepFixture(t *testing.T, priceJSON string) (*Feature, service.CryptoAlertService, *[]sentAlert, func(string, string) error) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(priceJSON))
	}))
	t.Cleanup(srv.Close)

	market, err := crypto.New(srv.URL, "")
	require.NoError(t, err)

	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	alerts := service.NewCryptoAlertService(st)

	var sent []sentAlert
	announce := func(channelID, content string) error {
		sent = append(sent, sentAlert{channelID, content})
		return nil
	}
	return New(market, alerts), alerts, &sent, announce
}

func TestSweepAlerts_FiresCrossedAndRemovesIt(t *testing.T) {
	f, alerts, sent, announce := newSweepFixture(t, `{"bitcoin": {"usd": 150.0, "usd_24h_change": 0}}`)
	ctx := context.Background()

	_, err := alerts.AddAlert(ctx, "guild1", &models.CryptoAlert{
		UserID: "u1", ChannelID: "chan1", Coin: "bitcoin", Above: true, PriceUSD: 100,
	})
	require.NoError(t, err)

	require.NoError(t, f.SweepAlerts(ctx, announce))

	require.Len(t, *sent, 1)
	assert.Equal(t, "chan1", (*sent)[0].channelID)
	assert.Contains(t, (*sent)[0].content, "<@u1>")
	assert.Contains(t, (*sent)[0].content, "rose above")

	remaining, err := alerts.Alerts(ctx, "guild1")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestSweepAlerts_UncrossedAlertStays(t *testing.T) {
	f, alerts, sent, announce := newSweepFixture(t, `{"bitcoin": {"usd": 150.0, "usd_24h_change": 0}}`)
	ctx := context.Background()

	// Below-100 watch while the price sits at 150.
	_, err := alerts.AddAlert(ctx, "guild1", &models.CryptoAlert{
		UserID: "u1", ChannelID: "chan1", Coin: "bitcoin", Above: false, PriceUSD: 100,
	})
	require.NoError(t, err)

	require.NoError(t, f.SweepAlerts(ctx, announce))

	assert.Empty(t, *sent)
	remaining, err := alerts.Alerts(ctx, "guild1")
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
