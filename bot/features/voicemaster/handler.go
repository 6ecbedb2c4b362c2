package voicemaster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"steward/bot/common"
	"steward/dispatch"
	"steward/models"
	"steward/voice"
)

func friendlyError(ctx *dispatch.Context, err error) error {
	var msg string
	switch {
	case errors.Is(err, voice.ErrNotConfigured):
		msg = "Voicemaster is not set up here. An admin can run `vm setup`."
	case errors.Is(err, voice.ErrNotTempChannel):
		msg = "You need to be in a temporary voice channel for that."
	case errors.Is(err, voice.ErrNotOwner):
		msg = "Only the channel owner can do that."
	case errors.Is(err, voice.ErrOwnerPresent):
		msg = "The owner is still connected. You can claim only abandoned channels."
	default:
		return err
	}
	return ctx.Reply("%s", msg)
}

// actorOf identifies the invoker for owner-gated operations. Members holding
// manage server may administer any temp channel.
func actorOf(ctx *dispatch.Context) voice.Actor {
	return voice.Actor{
		ID:      ctx.Author().ID,
		Manager: ctx.HasPermission(discordgo.PermissionManageServer),
	}
}

// voiceChannelOf finds the channel the member is currently connected to.
func voiceChannelOf(ctx *dispatch.Context, userID string) (string, bool) {
	if ctx.Guild == nil {
		return "", false
	}
	for _, vs := range ctx.Guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID, true
		}
	}
	return "", false
}

// requireVoice resolves the invoker's current voice channel or replies with
// guidance.
func requireVoice(ctx *dispatch.Context) (string, error) {
	channelID, ok := voiceChannelOf(ctx, ctx.Author().ID)
	if !ok || channelID == "" {
		return "", ctx.Reply("Join a voice channel first.")
	}
	return channelID, nil
}

func (f *Feature) handleSetup(ctx *dispatch.Context) error {
	parentID := ""
	if ctx.Has(0) {
		parentID = ctx.String(0)
	}

	hub, err := ctx.Session.GuildChannelCreateComplex(ctx.GuildID(), discordgo.GuildChannelCreateData{
		Name:     "➕ Join to Create",
		Type:     discordgo.ChannelTypeGuildVoice,
		ParentID: parentID,
	})
	if err != nil {
		return fmt.Errorf("failed to create join-to-create hub: %w", err)
	}

	cfg := &models.VoiceConfig{
		CreateChannelID: hub.ID,
		CategoryID:      parentID,
	}
	// Members get the role while connected to a temp channel.
	if ctx.Has(1) {
		cfg.DefaultRoleID = ctx.RoleArg(1).ID
	}
	if err := f.arbiter.Setup(ctx.GuildID(), cfg); err != nil {
		return err
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"Voicemaster is ready. Join <#%s> to get your own channel.", hub.ID)))
}

func (f *Feature) handleRename(ctx *dispatch.Context) error {
	channelID, err := requireVoice(ctx)
	if channelID == "" {
		return err
	}
	name := strings.TrimSpace(ctx.String(0))
	if name == "" || len(name) > 100 {
		return ctx.Reply("Channel names must be 1 to 100 characters.")
	}
	if err := f.arbiter.Rename(channelID, actorOf(ctx), name); err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Renamed your channel to **%s**.", name)))
}

func (f *Feature) handleLock(ctx *dispatch.Context) error {
	channelID, err := requireVoice(ctx)
	if channelID == "" {
		return err
	}
	if err := f.arbiter.Lock(channelID, actorOf(ctx)); err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed("🔒 Channel locked."))
}

func (f *Feature) handleUnlock(ctx *dispatch.Context) error {
	channelID, err := requireVoice(ctx)
	if channelID == "" {
		return err
	}
	if err := f.arbiter.Unlock(channelID, actorOf(ctx)); err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed("🔓 Channel unlocked."))
}

func (f *Feature) handleGhost(ctx *dispatch.Context) error {
	channelID, err := requireVoice(ctx)
	if channelID == "" {
		return err
	}
	if err := f.arbiter.Ghost(channelID, actorOf(ctx)); err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed("👻 Channel hidden."))
}

func (f *Feature) handleUnghost(ctx *dispatch.Context) error {
	channelID, err := requireVoice(ctx)
	if channelID == "" {
		return err
	}
	if err := f.arbiter.Unghost(channelID, actorOf(ctx)); err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed("Channel visible again."))
}

func (f *Feature) handleLimit(ctx *dispatch.Context) error {
	channelID, err := requireVoice(ctx)
	if channelID == "" {
		return err
	}
	limit := int(ctx.Int(0))
	if err := f.arbiter.Limit(channelID, actorOf(ctx), limit); err != nil {
		if errors.Is(err, voice.ErrBadUserLimit) {
			return ctx.Reply("User limit must be between 0 and 99.")
		}
		return friendlyError(ctx, err)
	}
	if limit == 0 {
		return ctx.ReplyEmbed(common.SuccessEmbed("User limit removed."))
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("User limit set to %d.", limit)))
}

func (f *Feature) handleBitrate(ctx *dispatch.Context) error {
	channelID, err := requireVoice(ctx)
	if channelID == "" {
		return err
	}
	requested := int(ctx.Int(0)) * 1000
	applied, err := f.arbiter.Bitrate(channelID, actorOf(ctx), requested, ctx.Guild.PremiumTier)
	if err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Bitrate set to %d kbps.", applied/1000)))
}

// resolveTarget classifies a mention or id as a role or a member.
func resolveTarget(ctx *dispatch.Context, raw string) (id string, isRole bool, ok bool) {
	id = strings.Trim(strings.TrimSpace(raw), "<@&!>")
	if id == "" || ctx.Guild == nil {
		return "", false, false
	}
	for _, r := range ctx.Guild.Roles {
		if r.ID == id {
			return id, true, true
		}
	}
	for _, m := range ctx.Guild.Members {
		if m.User.ID == id {
			return id, false, true
		}
	}
	if _, err := ctx.Session.GuildMember(ctx.GuildID(), id); err == nil {
		return id, false, true
	}
	return "", false, false
}

func (f *Feature) handlePermit(ctx *dispatch.Context) error {
	channelID, err := requireVoice(ctx)
	if channelID == "" {
		return err
	}
	targetID, isRole, ok := resolveTarget(ctx, ctx.String(0))
	if !ok {
		return ctx.Reply("I couldn't find that member or role.")
	}
	if err := f.arbiter.Permit(channelID, actorOf(ctx), targetID, isRole); err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed("They may join your channel now."))
}

func (f *Feature) handleReject(ctx *dispatch.Context) error {
	channelID, err := requireVoice(ctx)
	if channelID == "" {
		return err
	}
	targetID, isRole, ok := resolveTarget(ctx, ctx.String(0))
	if !ok {
		return ctx.Reply("I couldn't find that member or role.")
	}

	targetConnected := false
	if !isRole {
		if current, in := voiceChannelOf(ctx, targetID); in && current == channelID {
			targetConnected = true
		}
	}
	if err := f.arbiter.Reject(channelID, actorOf(ctx), targetID, isRole, targetConnected); err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed("They are barred from your channel."))
}

func (f *Feature) handleTransfer(ctx *dispatch.Context) error {
	channelID, err := requireVoice(ctx)
	if channelID == "" {
		return err
	}
	target := ctx.MemberArg(0)

	current, in := voiceChannelOf(ctx, target.User.ID)
	if !in || current != channelID {
		return ctx.Reply("The new owner must be connected to your channel.")
	}
	if err := f.arbiter.Transfer(channelID, actorOf(ctx), target.User.ID); err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("**%s** now owns this channel.", common.DisplayName(target))))
}

func (f *Feature) handleClaim(ctx *dispatch.Context) error {
	channelID, err := requireVoice(ctx)
	if channelID == "" {
		return err
	}

	session, err := f.arbiter.Session(channelID)
	if err != nil {
		return friendlyError(ctx, err)
	}
	ownerConnected := false
	if current, in := voiceChannelOf(ctx, session.OwnerID); in && current == channelID {
		ownerConnected = true
	}
	if err := f.arbiter.Claim(channelID, ctx.Author().ID, ownerConnected); err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed("The channel is yours now."))
}
