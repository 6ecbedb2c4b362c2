package models

import "time"

// CryptoAlert is a one-shot price watch: it fires when the coin crosses the
// threshold in the watched direction, then is removed.
type CryptoAlert struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ChannelID string    `json:"channel_id"`
	Coin      string    `json:"coin"`
	Above     bool      `json:"above"`
	PriceUSD  float64   `json:"price_usd"`
	CreatedAt time.Time `json:"created_at"`
}

type CryptoAlertDoc struct {
	Alerts map[string][]*CryptoAlert `json:"alerts"` // guild -> alerts
}
