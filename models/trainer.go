package models

import (
	"time"
)

// Trainer is a user's global Pokémon record.
type Trainer struct {
	UserID         string    `json:"user_id"`
	Level          int       `json:"level"`
	XP             int       `json:"xp"`
	XPToLevel      int       `json:"xp_to_level"`
	PrimaryPokemon string    `json:"primary_pokemon"` // instance id, empty if none
	CreatedAt      time.Time `json:"created_at"`
}

// Pokemon is a caught instance owned by a trainer. PartySlot is 1-6 when the
// instance is in the party and 0 when it sits in the PC.
type Pokemon struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	SpeciesID   int            `json:"species_id"`
	Level       int            `json:"level"`
	XP          int            `json:"xp"`
	XPToLevel   int            `json:"xp_to_level"`
	DisplayName string         `json:"display_name"`
	Nickname    string         `json:"nickname,omitempty"`
	Types       []string       `json:"types"`
	Stats       map[string]int `json:"stats"`
	Moves       []string       `json:"moves"`
	CurrentHP   int            `json:"current_hp"`
	SpriteURL   string         `json:"sprite_url"`
	PartySlot   int            `json:"party_slot"`
	CaughtAt    time.Time      `json:"caught_at"`
}

// Name returns the nickname when set, otherwise the species display name.
func (p *Pokemon) Name() string {
	if p.Nickname != "" {
		return p.Nickname
	}
	return p.DisplayName
}

// Stat names used in the Stats map.
const (
	StatHP             = "hp"
	StatAttack         = "attack"
	StatDefense        = "defense"
	StatSpecialAttack  = "special_attack"
	StatSpecialDefense = "special_defense"
	StatSpeed          = "speed"
)

// MaxPartySize caps the party.
const MaxPartySize = 6

// MaxSpeciesID bounds the uniform species draw (generations I-III).
const MaxSpeciesID = 386

// BallKind enumerates the purchasable ball inventory keys.
var BallKinds = []string{
	"pokeballs", "greatballs", "ultraballs", "masterballs",
	"luxuryballs", "heavyballs", "netballs", "diveballs",
	"nestballs", "quickballs", "duskballs", "timerballs",
}
