package models

import (
	"time"
)

// StoredEmbed is a named, user-managed embed definition.
type StoredEmbed struct {
	Name        string    `json:"name"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Color       int       `json:"color,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Footer      string    `json:"footer,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// EmbedDoc is the on-disk shape of miscellaneous/embeds.json.
type EmbedDoc struct {
	Embeds map[string]map[string]*StoredEmbed `json:"embeds"` // guild -> name
}

// SeenDoc tracks the last message timestamp per user per guild.
type SeenDoc struct {
	Seen map[string]map[string]time.Time `json:"seen"` // guild -> user
}

// NameChange is one recorded username value.
type NameChange struct {
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

// NamesDoc tracks username history per user.
type NamesDoc struct {
	Names map[string][]*NameChange `json:"names"` // user -> history
}
