package models

import (
	"time"
)

// Effect type keys understood by the gambling math and the shop.
const (
	EffectWinChance     = "win_chance"
	EffectWinMultiplier = "win_multiplier"
	EffectDiceBoost     = "dice_boost"
	EffectRobProtection = "rob_protection"
	EffectBankCapacity  = "bank_capacity"
)

// DefaultBankCapacity is the bank ceiling for a freshly opened account.
const DefaultBankCapacity int64 = 10000

// StartingWallet is the wallet balance for a freshly opened account.
const StartingWallet int64 = 100

// ItemInstance is a single purchased copy of a shop item. Each copy is
// individually consumable.
type ItemInstance struct {
	ID          string     `json:"id"`
	ItemKey     string     `json:"item_key"`
	PurchasedAt time.Time  `json:"purchased_at"`
	Used        bool       `json:"used"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
}

// Effect is an active modifier on an account. Duration counts remaining
// uses; -1 means permanent.
type Effect struct {
	Type     string  `json:"type"`
	Value    float64 `json:"value"`
	Duration int     `json:"duration"`
}

// GameStats tracks per-game-mode play counters.
type GameStats struct {
	Plays int64 `json:"plays"`
	Wins  int64 `json:"wins"`
}

// Account is a user's global economy record.
type Account struct {
	Wallet         int64                 `json:"wallet"`
	Bank           int64                 `json:"bank"`
	BankCapacity   int64                 `json:"bank_capacity"`
	TotalEarnings  int64                 `json:"total_earnings"`
	TotalLosses    int64                 `json:"total_losses"`
	Inventory      []*ItemInstance       `json:"inventory"`
	ActiveEffects  []*Effect             `json:"active_effects"`
	DailyLastClaim *time.Time            `json:"daily_last_claimed,omitempty"`
	Stats          map[string]*GameStats `json:"stats"`
	CreatedAt      time.Time             `json:"created_at"`
}

// NewAccount returns an account with default balances.
func NewAccount(now time.Time) *Account {
	return &Account{
		Wallet:       StartingWallet,
		BankCapacity: DefaultBankCapacity,
		Stats:        make(map[string]*GameStats),
		CreatedAt:    now,
	}
}

// GameStat returns the counter bucket for a game mode, creating it on demand.
func (a *Account) GameStat(mode string) *GameStats {
	if a.Stats == nil {
		a.Stats = make(map[string]*GameStats)
	}
	s, ok := a.Stats[mode]
	if !ok {
		s = &GameStats{}
		a.Stats[mode] = s
	}
	return s
}

// HasEffect reports whether an effect of the given type is active.
func (a *Account) HasEffect(effectType string) bool {
	for _, e := range a.ActiveEffects {
		if e.Type == effectType {
			return true
		}
	}
	return false
}

// EconomyDoc is the on-disk shape of data/economy.json: accounts keyed by
// stringified user snowflake.
type EconomyDoc struct {
	Accounts map[string]*Account `json:"accounts"`
}
