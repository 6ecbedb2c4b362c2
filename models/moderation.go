package models

import (
	"time"
)

// HardBan keeps a user banned: while the entry exists any unban event for
// the user is answered with a fresh ban.
type HardBan struct {
	UserName string    `json:"user_name"`
	Reason   string    `json:"reason"`
	BannedBy string    `json:"banned_by"`
	BannedAt time.Time `json:"banned_at"`
}

// TempRole is a role grant scheduled for removal.
type TempRole struct {
	Expires  time.Time `json:"expires"`
	AddedBy  string    `json:"added_by"`
	AddedAt  time.Time `json:"added_at"`
	Duration string    `json:"duration"`
}

// TempBan is a ban scheduled to lift itself. The record survives restarts
// so the periodic sweep can release bans the in-process timer never saw.
type TempBan struct {
	Reason   string    `json:"reason"`
	BannedBy string    `json:"banned_by"`
	BannedAt time.Time `json:"banned_at"`
	Expires  time.Time `json:"expires"`
}

// JailRecord stores the roles stripped from a jailed member so release can
// restore them exactly.
type JailRecord struct {
	StoredRoles []string   `json:"stored_roles"`
	JailedBy    string     `json:"jailed_by"`
	JailedAt    time.Time  `json:"jailed_at"`
	Reason      string     `json:"reason"`
	Expires     *time.Time `json:"expires,omitempty"`
}

// Reminder is a scheduled delivery back to its author.
type Reminder struct {
	ID        string    `json:"id"`
	Reason    string    `json:"reason"`
	ChannelID string    `json:"channel_id"`
	GuildID   string    `json:"guild_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Expires   time.Time `json:"expires"`
}

// LockdownState remembers a channel's prior @everyone send_messages value so
// unlock restores the exact tri-state. Nil Prior means the overwrite did not
// deny or allow sending before lockdown.
type LockdownState struct {
	Prior *bool `json:"prior"` // nil = inherit, true = allow, false = deny
}

// LockdownDoc is the on-disk shape of moderation/lockdown_settings.json.
type LockdownDoc struct {
	// guild id -> channel id -> stored prior value
	Channels map[string]map[string]*LockdownState `json:"channels"`
	// guild id -> channels excluded from lockdown_all
	Ignored map[string][]string `json:"ignored"`
	// guild id -> channels last touched by lockdown_all
	AllLocked map[string][]string `json:"all_locked"`
}

// ModAction is one appended entry of a guild's moderation history.
type ModAction struct {
	Action    string    `json:"action"`
	TargetID  string    `json:"target_id"`
	Moderator string    `json:"moderator"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// Per-subsystem document shapes, all keyed by stringified snowflakes.
type (
	HardBanDoc struct {
		Bans map[string]map[string]*HardBan `json:"bans"` // guild -> user
	}
	TempRoleDoc struct {
		Roles map[string]map[string]map[string]*TempRole `json:"roles"` // guild -> user -> role
	}
	TempBanDoc struct {
		Bans map[string]map[string]*TempBan `json:"bans"` // guild -> user
	}
	JailDoc struct {
		Records  map[string]map[string]*JailRecord `json:"records"`   // guild -> user
		JailRole map[string]string                 `json:"jail_role"` // guild -> role id
	}
	StfuDoc struct {
		Users map[string]map[string]bool `json:"users"` // guild -> user set
	}
	ForceNickDoc struct {
		Nicks map[string]map[string]string `json:"nicks"` // guild -> user -> nickname
	}
	StickyRoleDoc struct {
		Roles map[string]map[string][]string `json:"roles"` // guild -> user -> role ids
	}
	RestrictionDoc struct {
		Commands map[string]map[string][]string `json:"commands"` // guild -> command -> role ids
	}
	ReminderDoc struct {
		Reminders map[string][]*Reminder `json:"reminders"` // user -> reminders
	}
	ModHistoryDoc struct {
		Actions map[string][]*ModAction `json:"actions"` // guild -> entries
	}
)
