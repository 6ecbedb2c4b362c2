package models

// VoiceConfig is a guild's voicemaster setup: the "create" channel that
// spawns temporary channels plus defaults applied to each new channel.
type VoiceConfig struct {
	CreateChannelID  string `json:"create_channel_id"`
	CategoryID       string `json:"category_id,omitempty"`
	DefaultBitrate   int    `json:"default_bitrate,omitempty"`
	DefaultRoleID    string `json:"default_role_id,omitempty"`
	DefaultUserLimit int    `json:"default_user_limit,omitempty"`
}

// VoiceSession is the live state of one temporary voice channel.
type VoiceSession struct {
	ChannelID      string          `json:"channel_id"`
	GuildID        string          `json:"guild_id"`
	OwnerID        string          `json:"owner_id"`
	Locked         bool            `json:"locked"`
	Hidden         bool            `json:"hidden"`
	PermittedUsers map[string]bool `json:"permitted_users"`
	RejectedUsers  map[string]bool `json:"rejected_users"`
	PermittedRoles map[string]bool `json:"permitted_roles"`
	RejectedRoles  map[string]bool `json:"rejected_roles"`
}

// NewVoiceSession returns a session with initialized permission sets.
func NewVoiceSession(channelID, guildID, ownerID string) *VoiceSession {
	return &VoiceSession{
		ChannelID:      channelID,
		GuildID:        guildID,
		OwnerID:        ownerID,
		PermittedUsers: make(map[string]bool),
		RejectedUsers:  make(map[string]bool),
		PermittedRoles: make(map[string]bool),
		RejectedRoles:  make(map[string]bool),
	}
}

// MayConnect evaluates the session policy for a member holding the given
// roles: (permitted_user ∨ permitted_role) ∨ ¬(rejected_user ∨ rejected_role
// ∨ (locked ∧ ¬owner)).
func (s *VoiceSession) MayConnect(userID string, roleIDs []string) bool {
	if userID == s.OwnerID {
		return true
	}
	if s.PermittedUsers[userID] {
		return true
	}
	for _, r := range roleIDs {
		if s.PermittedRoles[r] {
			return true
		}
	}
	if s.RejectedUsers[userID] {
		return false
	}
	for _, r := range roleIDs {
		if s.RejectedRoles[r] {
			return false
		}
	}
	return !s.Locked
}

// VoiceDoc is the on-disk shape of data/voicemaster.json.
type VoiceDoc struct {
	Configs  map[string]*VoiceConfig  `json:"configs"`  // guild id -> config
	Sessions map[string]*VoiceSession `json:"sessions"` // channel id -> session
}
