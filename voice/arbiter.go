// Package voice runs the temporary voice channel arbiter: a configured
// "create" channel spawns a per-user channel on join, the joining user owns
// it, and the channel is deleted once the last member leaves.
package voice

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"steward/models"
	"steward/store"
)

const voicePath = "voicemaster.json"

// Voicemaster errors surfaced to handlers.
var (
	ErrNotConfigured  = errors.New("voicemaster is not set up in this guild")
	ErrNotTempChannel = errors.New("not in a temporary voice channel")
	ErrNotOwner       = errors.New("only the channel owner can do that")
	ErrOwnerPresent   = errors.New("the owner is still in the channel")
	ErrBadUserLimit   = errors.New("user limit must be between 0 and 99")
)

// Bitrate bounds in bits per second. The ceiling rises with the guild's
// premium tier.
const (
	MinBitrate = 8000

	bitrateTier0 = 96000
	bitrateTier1 = 128000
	bitrateTier2 = 256000
	bitrateTier3 = 384000
)

// MaxBitrate returns the bitrate ceiling for a premium tier.
func MaxBitrate(tier discordgo.PremiumTier) int {
	switch tier {
	case discordgo.PremiumTier3:
		return bitrateTier3
	case discordgo.PremiumTier2:
		return bitrateTier2
	case discordgo.PremiumTier1:
		return bitrateTier1
	default:
		return bitrateTier0
	}
}

// ClampBitrate forces a requested bitrate into the allowed range for the
// guild's tier.
func ClampBitrate(requested int, tier discordgo.PremiumTier) int {
	if requested < MinBitrate {
		return MinBitrate
	}
	if max := MaxBitrate(tier); requested > max {
		return max
	}
	return requested
}

// channelAPI is the slice of the gateway session the arbiter drives.
type channelAPI interface {
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelEditComplex(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, options ...discordgo.RequestOption) error
	GuildMemberMove(guildID, userID string, channelID *string, options ...discordgo.RequestOption) error
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
}

// ownerPerms is the overwrite every channel owner holds. Exactly one member
// of a temp channel carries manage channels at any time.
const ownerPerms = int64(discordgo.PermissionManageChannels | discordgo.PermissionVoiceConnect)

// Actor identifies who invokes an owner-gated operation. Managers hold
// manage-server in the guild and may act on any temp channel.
type Actor struct {
	ID      string
	Manager bool
}

// Arbiter owns voicemaster state and the lifecycle of temporary channels.
type Arbiter struct {
	store   *store.Store
	session channelAPI
}

// NewArbiter creates a new voice arbiter
func NewArbiter(st *store.Store, session channelAPI) *Arbiter {
	return &Arbiter{store: st, session: session}
}

func (a *Arbiter) mutate(fn func(doc *models.VoiceDoc) error) error {
	doc := &models.VoiceDoc{}
	return a.store.Mutate(voicePath, doc, func() error {
		if doc.Configs == nil {
			doc.Configs = make(map[string]*models.VoiceConfig)
		}
		if doc.Sessions == nil {
			doc.Sessions = make(map[string]*models.VoiceSession)
		}
		return fn(doc)
	})
}

// Setup records the guild's create channel and channel defaults.
func (a *Arbiter) Setup(guildID string, cfg *models.VoiceConfig) error {
	return a.mutate(func(doc *models.VoiceDoc) error {
		doc.Configs[guildID] = cfg
		return nil
	})
}

// Config returns the guild's voicemaster configuration.
func (a *Arbiter) Config(guildID string) (*models.VoiceConfig, error) {
	doc := &models.VoiceDoc{}
	if err := a.store.Load(voicePath, doc); err != nil {
		return nil, err
	}
	cfg, ok := doc.Configs[guildID]
	if !ok {
		return nil, ErrNotConfigured
	}
	return cfg, nil
}

// Session returns the temp-channel session for a channel id.
func (a *Arbiter) Session(channelID string) (*models.VoiceSession, error) {
	doc := &models.VoiceDoc{}
	if err := a.store.Load(voicePath, doc); err != nil {
		return nil, err
	}
	sess, ok := doc.Sessions[channelID]
	if !ok {
		return nil, ErrNotTempChannel
	}
	return sess, nil
}

// HandleVoiceState reacts to one voice state update: spawns a channel when a
// user enters the create channel, enforces the session policy when someone
// joins a temp channel and tears a temp channel down when it empties.
func (a *Arbiter) HandleVoiceState(guildID, userID, displayName string, roles []string, joinedChannelID, leftChannelID string, leftChannelEmpty bool) error {
	if leftChannelID != "" && leftChannelID != joinedChannelID {
		if err := a.handleLeave(guildID, userID, leftChannelID, leftChannelEmpty); err != nil {
			return err
		}
	}
	if joinedChannelID == "" {
		return nil
	}

	if sess, err := a.Session(joinedChannelID); err == nil {
		return a.handleTempJoin(guildID, userID, roles, sess)
	}

	cfg, err := a.Config(guildID)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return nil
		}
		return err
	}
	if joinedChannelID != cfg.CreateChannelID {
		return nil
	}
	return a.spawn(guildID, userID, displayName, cfg)
}

// handleTempJoin disconnects members the session policy bars and grants the
// guild's default role to everyone else.
func (a *Arbiter) handleTempJoin(guildID, userID string, roles []string, sess *models.VoiceSession) error {
	if !sess.MayConnect(userID, roles) {
		if err := a.session.GuildMemberMove(guildID, userID, nil); err != nil {
			return fmt.Errorf("failed to disconnect barred user: %w", err)
		}
		log.WithFields(log.Fields{"channel": sess.ChannelID, "user": userID}).Info("Disconnected barred user from temp channel")
		return nil
	}

	cfg, err := a.Config(guildID)
	if err != nil || cfg.DefaultRoleID == "" {
		return nil
	}
	if err := a.session.GuildMemberRoleAdd(guildID, userID, cfg.DefaultRoleID); err != nil {
		log.WithFields(log.Fields{"user": userID, "role": cfg.DefaultRoleID, "error": err}).Warn("Failed to grant voice default role")
	}
	return nil
}

// handleLeave strips the default role from a member who left a temp channel
// and reaps the channel if they were the last one inside.
func (a *Arbiter) handleLeave(guildID, userID, leftChannelID string, empty bool) error {
	if _, err := a.Session(leftChannelID); err != nil {
		return nil
	}
	if cfg, err := a.Config(guildID); err == nil && cfg.DefaultRoleID != "" {
		if err := a.session.GuildMemberRoleRemove(guildID, userID, cfg.DefaultRoleID); err != nil {
			log.WithFields(log.Fields{"user": userID, "role": cfg.DefaultRoleID, "error": err}).Warn("Failed to remove voice default role")
		}
	}
	return a.maybeReap(leftChannelID, empty)
}

func (a *Arbiter) spawn(guildID, userID, displayName string, cfg *models.VoiceConfig) error {
	data := discordgo.GuildChannelCreateData{
		Name:      fmt.Sprintf("%s's Channel", displayName),
		Type:      discordgo.ChannelTypeGuildVoice,
		ParentID:  cfg.CategoryID,
		Bitrate:   cfg.DefaultBitrate,
		UserLimit: cfg.DefaultUserLimit,
	}

	channel, err := a.session.GuildChannelCreateComplex(guildID, data)
	if err != nil {
		return fmt.Errorf("failed to create temp channel: %w", err)
	}

	err = a.session.ChannelPermissionSet(channel.ID, userID,
		discordgo.PermissionOverwriteTypeMember, ownerPerms, 0)
	if err != nil {
		if _, delErr := a.session.ChannelDelete(channel.ID); delErr != nil {
			log.WithFields(log.Fields{"channel": channel.ID, "error": delErr}).Warn("Failed to delete orphaned temp channel")
		}
		return fmt.Errorf("failed to grant owner overwrite: %w", err)
	}

	if err := a.session.GuildMemberMove(guildID, userID, &channel.ID); err != nil {
		// The user already left; clean up the channel we just made.
		if _, delErr := a.session.ChannelDelete(channel.ID); delErr != nil {
			log.WithFields(log.Fields{"channel": channel.ID, "error": delErr}).Warn("Failed to delete orphaned temp channel")
		}
		return fmt.Errorf("failed to move user into temp channel: %w", err)
	}

	err = a.mutate(func(doc *models.VoiceDoc) error {
		doc.Sessions[channel.ID] = models.NewVoiceSession(channel.ID, guildID, userID)
		return nil
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"guild":   guildID,
		"owner":   userID,
		"channel": channel.ID,
	}).Info("Spawned temporary voice channel")
	return nil
}

func (a *Arbiter) maybeReap(channelID string, empty bool) error {
	if !empty {
		return nil
	}
	doc := &models.VoiceDoc{}
	if err := a.store.Load(voicePath, doc); err != nil {
		return err
	}
	if _, ok := doc.Sessions[channelID]; !ok {
		return nil
	}

	if _, err := a.session.ChannelDelete(channelID); err != nil {
		log.WithFields(log.Fields{"channel": channelID, "error": err}).Warn("Failed to delete empty temp channel")
	}
	return a.mutate(func(doc *models.VoiceDoc) error {
		delete(doc.Sessions, channelID)
		return nil
	})
}

// ownedSession loads a session and checks the actor may administer it.
func (a *Arbiter) ownedSession(channelID string, actor Actor) (*models.VoiceSession, error) {
	sess, err := a.Session(channelID)
	if err != nil {
		return nil, err
	}
	if sess.OwnerID != actor.ID && !actor.Manager {
		return nil, ErrNotOwner
	}
	return sess, nil
}

func (a *Arbiter) updateOwned(channelID string, actor Actor, fn func(*models.VoiceSession) error) error {
	return a.mutate(func(doc *models.VoiceDoc) error {
		sess, ok := doc.Sessions[channelID]
		if !ok {
			return ErrNotTempChannel
		}
		if sess.OwnerID != actor.ID && !actor.Manager {
			return ErrNotOwner
		}
		return fn(sess)
	})
}

// swapOwnerOverwrites moves the owner overwrite from one member to another so
// the new owner is the only member holding manage channels.
func (a *Arbiter) swapOwnerOverwrites(channelID, oldOwnerID, newOwnerID string) error {
	err := a.session.ChannelPermissionSet(channelID, oldOwnerID,
		discordgo.PermissionOverwriteTypeMember, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to clear old owner overwrite: %w", err)
	}
	err = a.session.ChannelPermissionSet(channelID, newOwnerID,
		discordgo.PermissionOverwriteTypeMember, ownerPerms, 0)
	if err != nil {
		return fmt.Errorf("failed to grant owner overwrite: %w", err)
	}
	return nil
}

// Rename sets the temp channel's name.
func (a *Arbiter) Rename(channelID string, actor Actor, name string) error {
	if _, err := a.ownedSession(channelID, actor); err != nil {
		return err
	}
	if _, err := a.session.ChannelEditComplex(channelID, &discordgo.ChannelEdit{Name: name}); err != nil {
		return fmt.Errorf("failed to rename channel: %w", err)
	}
	return nil
}

// Lock denies connecting for everyone but the owner and permitted entries.
func (a *Arbiter) Lock(channelID string, actor Actor) error {
	sess, err := a.ownedSession(channelID, actor)
	if err != nil {
		return err
	}
	err = a.session.ChannelPermissionSet(channelID, sess.GuildID,
		discordgo.PermissionOverwriteTypeRole, 0, discordgo.PermissionVoiceConnect)
	if err != nil {
		return fmt.Errorf("failed to lock channel: %w", err)
	}
	return a.updateOwned(channelID, actor, func(s *models.VoiceSession) error {
		s.Locked = true
		return nil
	})
}

// Unlock restores connecting for everyone.
func (a *Arbiter) Unlock(channelID string, actor Actor) error {
	sess, err := a.ownedSession(channelID, actor)
	if err != nil {
		return err
	}
	err = a.session.ChannelPermissionSet(channelID, sess.GuildID,
		discordgo.PermissionOverwriteTypeRole, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to unlock channel: %w", err)
	}
	return a.updateOwned(channelID, actor, func(s *models.VoiceSession) error {
		s.Locked = false
		return nil
	})
}

// Ghost hides the channel from everyone but its members.
func (a *Arbiter) Ghost(channelID string, actor Actor) error {
	sess, err := a.ownedSession(channelID, actor)
	if err != nil {
		return err
	}
	err = a.session.ChannelPermissionSet(channelID, sess.GuildID,
		discordgo.PermissionOverwriteTypeRole, 0, discordgo.PermissionViewChannel)
	if err != nil {
		return fmt.Errorf("failed to hide channel: %w", err)
	}
	return a.updateOwned(channelID, actor, func(s *models.VoiceSession) error {
		s.Hidden = true
		return nil
	})
}

// Unghost makes the channel visible again.
func (a *Arbiter) Unghost(channelID string, actor Actor) error {
	sess, err := a.ownedSession(channelID, actor)
	if err != nil {
		return err
	}
	err = a.session.ChannelPermissionSet(channelID, sess.GuildID,
		discordgo.PermissionOverwriteTypeRole, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to unhide channel: %w", err)
	}
	return a.updateOwned(channelID, actor, func(s *models.VoiceSession) error {
		s.Hidden = false
		return nil
	})
}

// Limit sets the user limit. Zero removes the limit.
func (a *Arbiter) Limit(channelID string, actor Actor, limit int) error {
	if _, err := a.ownedSession(channelID, actor); err != nil {
		return err
	}
	if limit < 0 || limit > 99 {
		return ErrBadUserLimit
	}
	if _, err := a.session.ChannelEditComplex(channelID, &discordgo.ChannelEdit{UserLimit: limit}); err != nil {
		return fmt.Errorf("failed to set user limit: %w", err)
	}
	return nil
}

// Bitrate sets the channel bitrate, clamped to the guild tier's range.
// Returns the applied value.
func (a *Arbiter) Bitrate(channelID string, actor Actor, requested int, tier discordgo.PremiumTier) (int, error) {
	if _, err := a.ownedSession(channelID, actor); err != nil {
		return 0, err
	}
	applied := ClampBitrate(requested, tier)
	if _, err := a.session.ChannelEditComplex(channelID, &discordgo.ChannelEdit{Bitrate: applied}); err != nil {
		return 0, fmt.Errorf("failed to set bitrate: %w", err)
	}
	return applied, nil
}

// Permit lets a user or role connect regardless of lock state.
func (a *Arbiter) Permit(channelID string, actor Actor, targetID string, isRole bool) error {
	if _, err := a.ownedSession(channelID, actor); err != nil {
		return err
	}

	targetType := discordgo.PermissionOverwriteTypeMember
	if isRole {
		targetType = discordgo.PermissionOverwriteTypeRole
	}
	err := a.session.ChannelPermissionSet(channelID, targetID, targetType,
		discordgo.PermissionVoiceConnect|discordgo.PermissionViewChannel, 0)
	if err != nil {
		return fmt.Errorf("failed to permit target: %w", err)
	}

	return a.updateOwned(channelID, actor, func(s *models.VoiceSession) error {
		if isRole {
			s.PermittedRoles[targetID] = true
			delete(s.RejectedRoles, targetID)
		} else {
			s.PermittedUsers[targetID] = true
			delete(s.RejectedUsers, targetID)
		}
		return nil
	})
}

// Reject bars a user or role from the channel. A rejected user still inside
// gets disconnected.
func (a *Arbiter) Reject(channelID string, actor Actor, targetID string, isRole, targetConnected bool) error {
	sess, err := a.ownedSession(channelID, actor)
	if err != nil {
		return err
	}

	targetType := discordgo.PermissionOverwriteTypeMember
	if isRole {
		targetType = discordgo.PermissionOverwriteTypeRole
	}
	err = a.session.ChannelPermissionSet(channelID, targetID, targetType,
		0, discordgo.PermissionVoiceConnect)
	if err != nil {
		return fmt.Errorf("failed to reject target: %w", err)
	}

	if !isRole && targetConnected {
		if err := a.session.GuildMemberMove(sess.GuildID, targetID, nil); err != nil {
			log.WithFields(log.Fields{"user": targetID, "error": err}).Warn("Failed to disconnect rejected user")
		}
	}

	return a.updateOwned(channelID, actor, func(s *models.VoiceSession) error {
		if isRole {
			s.RejectedRoles[targetID] = true
			delete(s.PermittedRoles, targetID)
		} else {
			s.RejectedUsers[targetID] = true
			delete(s.PermittedUsers, targetID)
		}
		return nil
	})
}

// Transfer hands ownership to another member of the channel, moving the
// owner overwrite along with it.
func (a *Arbiter) Transfer(channelID string, actor Actor, newOwnerID string) error {
	sess, err := a.ownedSession(channelID, actor)
	if err != nil {
		return err
	}
	if sess.OwnerID == newOwnerID {
		return nil
	}
	if err := a.swapOwnerOverwrites(channelID, sess.OwnerID, newOwnerID); err != nil {
		return err
	}
	return a.updateOwned(channelID, actor, func(s *models.VoiceSession) error {
		s.OwnerID = newOwnerID
		return nil
	})
}

// Claim takes ownership of a temp channel whose owner left. ownerConnected
// is the caller's view of whether the current owner is still inside.
func (a *Arbiter) Claim(channelID, userID string, ownerConnected bool) error {
	var oldOwner string
	err := a.mutate(func(doc *models.VoiceDoc) error {
		sess, ok := doc.Sessions[channelID]
		if !ok {
			return ErrNotTempChannel
		}
		if sess.OwnerID == userID {
			return nil
		}
		if ownerConnected {
			return ErrOwnerPresent
		}
		oldOwner = sess.OwnerID
		sess.OwnerID = userID
		return nil
	})
	if err != nil || oldOwner == "" {
		return err
	}
	return a.swapOwnerOverwrites(channelID, oldOwner, userID)
}

// Reconcile drops sessions for channels that no longer exist, deletes temp
// channels that emptied while the process was down and forgets configs whose
// create channel is gone. existing maps channel id to whether any members
// remain inside.
func (a *Arbiter) Reconcile(existing map[string]bool) error {
	doc := &models.VoiceDoc{}
	if err := a.store.Load(voicePath, doc); err != nil {
		return err
	}

	for channelID := range doc.Sessions {
		occupied, alive := existing[channelID]
		if alive && occupied {
			continue
		}
		if alive {
			if _, err := a.session.ChannelDelete(channelID); err != nil {
				log.WithFields(log.Fields{"channel": channelID, "error": err}).Warn("Failed to delete stale temp channel")
			}
		}
		err := a.mutate(func(doc *models.VoiceDoc) error {
			delete(doc.Sessions, channelID)
			return nil
		})
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"channel": channelID}).Info("Reaped stale voice session")
	}

	for guildID, cfg := range doc.Configs {
		if _, alive := existing[cfg.CreateChannelID]; alive {
			continue
		}
		err := a.mutate(func(doc *models.VoiceDoc) error {
			delete(doc.Configs, guildID)
			return nil
		})
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"guild": guildID, "channel": cfg.CreateChannelID}).Info("Dropped voicemaster config with missing create channel")
	}
	return nil
}
