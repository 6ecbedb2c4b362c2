package models

import (
	"time"
)

// KickDoc is the on-disk shape of data/kick_config.json: per-guild channel
// subscriptions and optional per-username announcement templates.
type KickDoc struct {
	// guild id -> announce channel id -> subscribed usernames
	Subscriptions map[string]map[string][]string `json:"subscriptions"`
	// guild id -> username -> template
	Templates map[string]map[string]string `json:"templates"`
}

// StreamStatus is the in-memory cached view of one streamer. Not persisted;
// resets on restart, which may produce one spurious announcement per channel.
type StreamStatus struct {
	IsLive      bool
	Title       string
	Game        string
	ViewerCount int
	URL         string
	LastChecked time.Time
}
