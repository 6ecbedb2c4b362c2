package moderation

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"steward/bot/common"
	"steward/dispatch"
)

func (f *Feature) registerLockdown(reg *dispatch.Registry) {
	channel := dispatch.Param{Name: "channel", Kind: dispatch.KindChannel, Optional: true}

	reg.Register(&dispatch.Command{
		Name: "lockdown", Aliases: []string{"lock"}, Category: "moderation",
		Description: "Stop @everyone from sending in a channel",
		Usage:       "lockdown [channel]",
		Permissions: discordgo.PermissionManageChannels,
		Params:      []dispatch.Param{channel},
		Run:         f.handleLockdown,
	})
	reg.Register(&dispatch.Command{
		Name: "unlockdown", Aliases: []string{"unlock"}, Category: "moderation",
		Description: "Restore a channel's previous send permission",
		Usage:       "unlockdown [channel]",
		Permissions: discordgo.PermissionManageChannels,
		Params:      []dispatch.Param{channel},
		Run:         f.handleUnlockdown,
	})
	reg.Register(&dispatch.Command{
		Name: "lockdown_all", Category: "moderation",
		Description: "Lock every text channel not on the ignore list",
		Permissions: discordgo.PermissionAdministrator,
		Run:         f.handleLockdownAll,
	})
	reg.Register(&dispatch.Command{
		Name: "unlockdown_all", Category: "moderation",
		Description: "Unlock exactly the channels the last lockdown_all touched",
		Permissions: discordgo.PermissionAdministrator,
		Run:         f.handleUnlockdownAll,
	})
	reg.Register(&dispatch.Command{
		Name: "lockdown_ignore", Category: "moderation",
		Description: "Set the channels lockdown_all skips",
		Usage:       "lockdown_ignore [channels...]",
		Permissions: discordgo.PermissionAdministrator,
		Params:      []dispatch.Param{{Name: "channels", Kind: dispatch.KindChannel, Greedy: true}},
		Run:         f.handleLockdownIgnore,
	})
	reg.Register(&dispatch.Command{
		Name: "hide", Category: "moderation",
		Description: "Hide a channel from @everyone",
		Usage:       "hide [channel]",
		Permissions: discordgo.PermissionManageChannels,
		Params:      []dispatch.Param{channel},
		Run:         f.handleHide,
	})
	reg.Register(&dispatch.Command{
		Name: "unhide", Category: "moderation",
		Description: "Show a hidden channel again",
		Usage:       "unhide [channel]",
		Permissions: discordgo.PermissionManageChannels,
		Params:      []dispatch.Param{channel},
		Run:         f.handleUnhide,
	})
	reg.Register(&dispatch.Command{
		Name: "slowmode", Category: "moderation",
		Description: "Set a channel's slowmode in seconds (0 clears)",
		Usage:       "slowmode <seconds> [channel]",
		Permissions: discordgo.PermissionManageChannels,
		Params: []dispatch.Param{
			{Name: "seconds", Kind: dispatch.KindInt},
			channel,
		},
		Run: f.handleSlowmode,
	})
	reg.Register(&dispatch.Command{
		Name: "nuke", Category: "moderation",
		Description: "Clone this channel and delete the original",
		Permissions: discordgo.PermissionAdministrator,
		Run:         f.handleNuke,
	})
}

// targetChannel picks the bound channel argument or falls back to the
// invoking channel.
func targetChannel(ctx *dispatch.Context, i int) string {
	if ctx.Has(i) {
		return ctx.ChannelArg(i).ID
	}
	return ctx.ChannelID()
}

// everyoneOverwrite finds the @everyone overwrite on a channel, if present.
func everyoneOverwrite(ctx *dispatch.Context, channelID string) (*discordgo.PermissionOverwrite, error) {
	ch, err := ctx.Session.Channel(channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect channel: %w", err)
	}
	for _, ow := range ch.PermissionOverwrites {
		if ow.ID == ctx.GuildID() {
			return ow, nil
		}
	}
	return nil, nil
}

// lockChannel denies send_messages for @everyone, remembering the prior
// tri-state so unlock can restore it exactly.
func (f *Feature) lockChannel(ctx *dispatch.Context, channelID string) error {
	ow, err := everyoneOverwrite(ctx, channelID)
	if err != nil {
		return err
	}

	var prior *bool
	allow, deny := int64(0), int64(0)
	if ow != nil {
		allow, deny = ow.Allow, ow.Deny
		switch {
		case allow&discordgo.PermissionSendMessages != 0:
			v := true
			prior = &v
		case deny&discordgo.PermissionSendMessages != 0:
			v := false
			prior = &v
		}
	}

	if err := f.mod.SaveLockdown(ctx.Ctx, ctx.GuildID(), channelID, prior); err != nil {
		return err
	}
	allow &^= discordgo.PermissionSendMessages
	deny |= discordgo.PermissionSendMessages
	err = ctx.Session.ChannelPermissionSet(channelID, ctx.GuildID(),
		discordgo.PermissionOverwriteTypeRole, allow, deny)
	if err != nil {
		return fmt.Errorf("failed to lock channel: %w", err)
	}
	return nil
}

// unlockChannel restores the stored tri-state for @everyone's send
// permission.
func (f *Feature) unlockChannel(ctx *dispatch.Context, channelID string) error {
	state, found, err := f.mod.PopLockdown(ctx.Ctx, ctx.GuildID(), channelID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("channel is not locked")
	}

	ow, err := everyoneOverwrite(ctx, channelID)
	if err != nil {
		return err
	}
	allow, deny := int64(0), int64(0)
	if ow != nil {
		allow, deny = ow.Allow, ow.Deny
	}
	allow &^= discordgo.PermissionSendMessages
	deny &^= discordgo.PermissionSendMessages
	if state.Prior != nil {
		if *state.Prior {
			allow |= discordgo.PermissionSendMessages
		} else {
			deny |= discordgo.PermissionSendMessages
		}
	}

	err = ctx.Session.ChannelPermissionSet(channelID, ctx.GuildID(),
		discordgo.PermissionOverwriteTypeRole, allow, deny)
	if err != nil {
		return fmt.Errorf("failed to unlock channel: %w", err)
	}
	return nil
}

func (f *Feature) handleLockdown(ctx *dispatch.Context) error {
	channelID := targetChannel(ctx, 0)
	if err := f.lockChannel(ctx, channelID); err != nil {
		return err
	}
	f.record(ctx, "lockdown", channelID, "")
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("🔒 <#%s> is locked.", channelID)))
}

func (f *Feature) handleUnlockdown(ctx *dispatch.Context) error {
	channelID := targetChannel(ctx, 0)
	if err := f.unlockChannel(ctx, channelID); err != nil {
		return err
	}
	f.record(ctx, "unlockdown", channelID, "")
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("🔓 <#%s> is open again.", channelID)))
}

func (f *Feature) handleLockdownAll(ctx *dispatch.Context) error {
	if ctx.Guild == nil {
		return ctx.Reply("This only works in a server.")
	}
	ignored, err := f.mod.LockdownIgnored(ctx.Ctx, ctx.GuildID())
	if err != nil {
		return err
	}
	skip := make(map[string]bool, len(ignored))
	for _, id := range ignored {
		skip[id] = true
	}

	var touched []string
	for _, ch := range ctx.Guild.Channels {
		if ch.Type != discordgo.ChannelTypeGuildText || skip[ch.ID] {
			continue
		}
		if err := f.lockChannel(ctx, ch.ID); err != nil {
			log.WithError(err).WithField("channel", ch.ID).Warn("Failed to lock channel during lockdown_all")
			continue
		}
		touched = append(touched, ch.ID)
	}

	if err := f.mod.SetAllLocked(ctx.Ctx, ctx.GuildID(), touched); err != nil {
		return err
	}
	f.record(ctx, "lockdown_all", ctx.GuildID(), fmt.Sprintf("%d channels", len(touched)))
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("🔒 Locked %d channel(s).", len(touched))))
}

func (f *Feature) handleUnlockdownAll(ctx *dispatch.Context) error {
	touched, err := f.mod.PopAllLocked(ctx.Ctx, ctx.GuildID())
	if err != nil {
		return err
	}
	if len(touched) == 0 {
		return ctx.Reply("No lockdown_all is in effect.")
	}

	restored := 0
	for _, channelID := range touched {
		if err := f.unlockChannel(ctx, channelID); err != nil {
			log.WithError(err).WithField("channel", channelID).Warn("Failed to unlock channel during unlockdown_all")
			continue
		}
		restored++
	}
	f.record(ctx, "unlockdown_all", ctx.GuildID(), fmt.Sprintf("%d channels", restored))
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("🔓 Unlocked %d channel(s).", restored)))
}

func (f *Feature) handleLockdownIgnore(ctx *dispatch.Context) error {
	var ids []string
	for _, ch := range ctx.Channels(0) {
		ids = append(ids, ch.ID)
	}
	if err := f.mod.SetLockdownIgnored(ctx.Ctx, ctx.GuildID(), ids); err != nil {
		return err
	}
	if len(ids) == 0 {
		return ctx.ReplyEmbed(common.SuccessEmbed("Lockdown ignore list cleared."))
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("lockdown_all will skip %d channel(s).", len(ids))))
}

func (f *Feature) handleHide(ctx *dispatch.Context) error {
	channelID := targetChannel(ctx, 0)
	ow, err := everyoneOverwrite(ctx, channelID)
	if err != nil {
		return err
	}
	allow, deny := int64(0), int64(0)
	if ow != nil {
		allow, deny = ow.Allow, ow.Deny
	}
	allow &^= discordgo.PermissionViewChannel
	deny |= discordgo.PermissionViewChannel

	err = ctx.Session.ChannelPermissionSet(channelID, ctx.GuildID(),
		discordgo.PermissionOverwriteTypeRole, allow, deny)
	if err != nil {
		return fmt.Errorf("failed to hide channel: %w", err)
	}
	f.record(ctx, "hide", channelID, "")
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("<#%s> is hidden.", channelID)))
}

func (f *Feature) handleUnhide(ctx *dispatch.Context) error {
	channelID := targetChannel(ctx, 0)
	ow, err := everyoneOverwrite(ctx, channelID)
	if err != nil {
		return err
	}
	allow, deny := int64(0), int64(0)
	if ow != nil {
		allow, deny = ow.Allow, ow.Deny
	}
	deny &^= discordgo.PermissionViewChannel

	err = ctx.Session.ChannelPermissionSet(channelID, ctx.GuildID(),
		discordgo.PermissionOverwriteTypeRole, allow, deny)
	if err != nil {
		return fmt.Errorf("failed to unhide channel: %w", err)
	}
	f.record(ctx, "unhide", channelID, "")
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("<#%s> is visible again.", channelID)))
}

func (f *Feature) handleSlowmode(ctx *dispatch.Context) error {
	seconds := int(ctx.Int(0))
	if seconds < 0 || seconds > 21600 {
		return ctx.Reply("Slowmode runs from 0 to 21600 seconds.")
	}
	channelID := targetChannel(ctx, 1)

	if _, err := ctx.Session.ChannelEditComplex(channelID, &discordgo.ChannelEdit{
		RateLimitPerUser: &seconds,
	}); err != nil {
		return fmt.Errorf("failed to set slowmode: %w", err)
	}
	if seconds == 0 {
		return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Slowmode cleared in <#%s>.", channelID)))
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Slowmode set to %ds in <#%s>.", seconds, channelID)))
}

func (f *Feature) handleNuke(ctx *dispatch.Context) error {
	old, err := ctx.Session.Channel(ctx.ChannelID())
	if err != nil {
		return fmt.Errorf("failed to inspect channel: %w", err)
	}
	if old.Type != discordgo.ChannelTypeGuildText {
		return ctx.Reply("Only text channels can be nuked.")
	}

	clone, err := ctx.Session.GuildChannelCreateComplex(ctx.GuildID(), discordgo.GuildChannelCreateData{
		Name:                 old.Name,
		Type:                 old.Type,
		Topic:                old.Topic,
		NSFW:                 old.NSFW,
		ParentID:             old.ParentID,
		Position:             old.Position,
		RateLimitPerUser:     old.RateLimitPerUser,
		PermissionOverwrites: old.PermissionOverwrites,
	})
	if err != nil {
		return fmt.Errorf("failed to clone channel: %w", err)
	}
	if _, err := ctx.Session.ChannelDelete(old.ID); err != nil {
		return fmt.Errorf("failed to delete nuked channel: %w", err)
	}

	f.record(ctx, "nuke", old.ID, old.Name)
	_, err = ctx.Session.ChannelMessageSend(clone.ID, "☢️ Channel nuked.")
	return err
}
