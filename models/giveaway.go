package models

import (
	"time"
)

// GiveawayFilters are the optional eligibility constraints evaluated at draw
// time. Zero values mean "not configured".
type GiveawayFilters struct {
	MinAccountAgeSeconds int64    `json:"min_account_age_seconds,omitempty"`
	MinServerStayDays    int      `json:"min_server_stay_days,omitempty"`
	MinLevel             int      `json:"min_level,omitempty"`
	MaxLevel             int      `json:"max_level,omitempty"`
	RequiredRoleIDs      []string `json:"required_role_ids,omitempty"`
	RewardRoleIDs        []string `json:"reward_role_ids,omitempty"`
}

// Giveaway is one giveaway record, keyed by its announcement message id.
type Giveaway struct {
	MessageID    string          `json:"message_id"`
	ChannelID    string          `json:"channel_id"`
	GuildID      string          `json:"guild_id"`
	Prize        string          `json:"prize"`
	WinnersCount int             `json:"winners_count"`
	HostIDs      []string        `json:"host_ids"`
	CreatedAt    time.Time       `json:"created_at"`
	EndTime      time.Time       `json:"end_time"`
	Filters      GiveawayFilters `json:"filters"`

	Description  string `json:"description,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`

	// Populated when the giveaway ends.
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	ValidEntries []string   `json:"valid_entries,omitempty"`
	WinnerIDs    []string   `json:"winner_ids,omitempty"`
}

// GiveawayDoc is the on-disk shape of data/giveaways/<guild-id>.json.
type GiveawayDoc struct {
	Active map[string]*Giveaway `json:"active"`
	Ended  map[string]*Giveaway `json:"ended"`
}

// EntryEmoji is the fixed reaction users click to enter.
const EntryEmoji = "🎉"

// MinGiveawayDuration rejects shorter giveaways at creation.
const MinGiveawayDuration = 60 * time.Second
