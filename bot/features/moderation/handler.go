package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"steward/bot/common"
	"steward/dispatch"
	"steward/models"
	"steward/service"
)

func friendlyError(ctx *dispatch.Context, err error) error {
	var msg string
	switch {
	case errors.Is(err, service.ErrAlreadyJailed):
		msg = "They are already jailed."
	case errors.Is(err, service.ErrNotJailed):
		msg = "They are not jailed."
	case errors.Is(err, service.ErrNoJailRole):
		msg = "No jail role is configured. Set one with `jailrole`."
	case errors.Is(err, service.ErrNotHardBanned):
		msg = "No hard ban exists for that user."
	case errors.Is(err, service.ErrNoSuchReminder):
		msg = "No reminder with that id."
	default:
		return err
	}
	return ctx.Reply("%s", msg)
}

func reasonArg(ctx *dispatch.Context, i int) string {
	if ctx.Has(i) {
		return strings.TrimSpace(ctx.String(i))
	}
	return ""
}

// dmFirst tells the target what is about to happen. Delivery failure never
// blocks the action.
func dmFirst(ctx *dispatch.Context, userID, action, reason string) {
	channel, err := ctx.Session.UserChannelCreate(userID)
	if err != nil {
		return
	}
	guildName := ctx.GuildID()
	if ctx.Guild != nil {
		guildName = ctx.Guild.Name
	}
	text := fmt.Sprintf("You were %s in **%s**.", action, guildName)
	if reason != "" {
		text += " Reason: " + reason
	}
	if _, err := ctx.Session.ChannelMessageSend(channel.ID, text); err != nil {
		log.WithError(err).WithField("user", userID).Debug("Failed to DM moderation notice")
	}
}

func (f *Feature) record(ctx *dispatch.Context, action, targetID, reason string) {
	err := f.mod.RecordAction(ctx.Ctx, ctx.GuildID(), &models.ModAction{
		Action:    action,
		TargetID:  targetID,
		Moderator: ctx.Author().ID,
		Reason:    reason,
	})
	if err != nil {
		log.WithError(err).WithField("action", action).Warn("Failed to append moderation history")
	}
}

func (f *Feature) handleBan(ctx *dispatch.Context) error {
	target := ctx.MemberArg(0)
	reason := reasonArg(ctx, 1)

	dmFirst(ctx, target.User.ID, "banned", reason)
	if err := ctx.Session.GuildBanCreateWithReason(ctx.GuildID(), target.User.ID, reason, 0); err != nil {
		return fmt.Errorf("failed to ban member: %w", err)
	}
	f.record(ctx, "ban", target.User.ID, reason)
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Banned **%s**.", common.DisplayName(target))))
}

func (f *Feature) handleUnban(ctx *dispatch.Context) error {
	userID := strings.Trim(ctx.String(0), "<@!>")
	if err := ctx.Session.GuildBanDelete(ctx.GuildID(), userID); err != nil {
		return fmt.Errorf("failed to remove ban: %w", err)
	}
	f.record(ctx, "unban", userID, "")
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Unbanned <@%s>.", userID)))
}

func (f *Feature) handleKick(ctx *dispatch.Context) error {
	target := ctx.MemberArg(0)
	reason := reasonArg(ctx, 1)

	dmFirst(ctx, target.User.ID, "kicked", reason)
	if err := ctx.Session.GuildMemberDeleteWithReason(ctx.GuildID(), target.User.ID, reason); err != nil {
		return fmt.Errorf("failed to kick member: %w", err)
	}
	f.record(ctx, "kick", target.User.ID, reason)
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Kicked **%s**.", common.DisplayName(target))))
}

func (f *Feature) handleTimeout(ctx *dispatch.Context) error {
	target := ctx.MemberArg(0)
	duration := ctx.Duration(1)
	reason := reasonArg(ctx, 2)
	if duration < time.Minute || duration > 28*24*time.Hour {
		return ctx.Reply("Timeouts run from 1 minute to 28 days.")
	}

	dmFirst(ctx, target.User.ID, "timed out for "+common.FormatDuration(duration), reason)
	until := time.Now().Add(duration)
	if err := ctx.Session.GuildMemberTimeout(ctx.GuildID(), target.User.ID, &until); err != nil {
		return fmt.Errorf("failed to time member out: %w", err)
	}
	f.record(ctx, "timeout", target.User.ID, reason)
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"Timed **%s** out for %s.", common.DisplayName(target), common.FormatDuration(duration))))
}

func (f *Feature) handleUntimeout(ctx *dispatch.Context) error {
	target := ctx.MemberArg(0)
	if err := ctx.Session.GuildMemberTimeout(ctx.GuildID(), target.User.ID, nil); err != nil {
		return fmt.Errorf("failed to lift timeout: %w", err)
	}
	f.record(ctx, "untimeout", target.User.ID, "")
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Timeout lifted for **%s**.", common.DisplayName(target))))
}

func (f *Feature) handleSoftban(ctx *dispatch.Context) error {
	target := ctx.MemberArg(0)
	reason := reasonArg(ctx, 1)

	dmFirst(ctx, target.User.ID, "softbanned", reason)
	if err := ctx.Session.GuildBanCreateWithReason(ctx.GuildID(), target.User.ID, reason, 1); err != nil {
		return fmt.Errorf("failed to softban member: %w", err)
	}
	if err := ctx.Session.GuildBanDelete(ctx.GuildID(), target.User.ID); err != nil {
		return fmt.Errorf("failed to lift softban: %w", err)
	}
	f.record(ctx, "softban", target.User.ID, reason)
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Softbanned **%s**.", common.DisplayName(target))))
}

func (f *Feature) handleTempban(ctx *dispatch.Context) error {
	target := ctx.MemberArg(0)
	duration := ctx.Duration(1)
	reason := reasonArg(ctx, 2)
	if duration < time.Minute {
		return ctx.Reply("Temp bans must run for at least a minute.")
	}

	err := f.mod.AddTempBan(ctx.Ctx, ctx.GuildID(), target.User.ID, &models.TempBan{
		Reason:   reason,
		BannedBy: ctx.Author().ID,
		BannedAt: time.Now(),
		Expires:  time.Now().Add(duration),
	})
	if err != nil {
		return err
	}

	dmFirst(ctx, target.User.ID, "banned for "+common.FormatDuration(duration), reason)
	if err := ctx.Session.GuildBanCreateWithReason(ctx.GuildID(), target.User.ID, reason, 0); err != nil {
		return fmt.Errorf("failed to tempban member: %w", err)
	}
	f.record(ctx, "tempban", target.User.ID, reason)

	// One-shot sleeper as the fast path; the stored record lets the minute
	// sweep lift the ban instead if the process restarts first. Re-verifies
	// the ban still stands before lifting it so a manual unban or a hardban
	// upgrade is not overridden.
	guildID, userID := ctx.GuildID(), target.User.ID
	session := ctx.Session
	go func() {
		f.sleep(duration)
		if _, pending, _ := f.mod.TempBan(context.Background(), guildID, userID); !pending {
			return
		}
		if err := f.mod.RemoveTempBan(context.Background(), guildID, userID); err != nil {
			log.WithError(err).WithField("user", userID).Warn("Failed to drop temp ban record")
		}
		if _, hard, _ := f.mod.HardBan(context.Background(), guildID, userID); hard {
			return
		}
		if _, err := session.GuildBan(guildID, userID); err != nil {
			return
		}
		if err := session.GuildBanDelete(guildID, userID); err != nil {
			log.WithError(err).WithField("user", userID).Warn("Failed to lift expired temp ban")
		}
	}()

	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"Banned **%s** for %s.", common.DisplayName(target), common.FormatDuration(duration))))
}

func (f *Feature) handleHardban(ctx *dispatch.Context) error {
	target := ctx.MemberArg(0)
	reason := reasonArg(ctx, 1)

	err := f.mod.AddHardBan(ctx.Ctx, ctx.GuildID(), target.User.ID, &models.HardBan{
		UserName: target.User.Username,
		Reason:   reason,
		BannedBy: ctx.Author().ID,
		BannedAt: time.Now(),
	})
	if err != nil {
		return err
	}

	dmFirst(ctx, target.User.ID, "permanently banned", reason)
	if err := ctx.Session.GuildBanCreateWithReason(ctx.GuildID(), target.User.ID, reason, 0); err != nil {
		return fmt.Errorf("failed to hardban member: %w", err)
	}
	f.record(ctx, "hardban", target.User.ID, reason)
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"Hard banned **%s**. Unbans will be reverted.", common.DisplayName(target))))
}

func (f *Feature) handleUnhardban(ctx *dispatch.Context) error {
	userID := strings.Trim(ctx.String(0), "<@!>")
	if err := f.mod.RemoveHardBan(ctx.Ctx, ctx.GuildID(), userID); err != nil {
		return friendlyError(ctx, err)
	}
	if err := ctx.Session.GuildBanDelete(ctx.GuildID(), userID); err != nil {
		log.WithError(err).WithField("user", userID).Debug("No ban to lift after unhardban")
	}
	f.record(ctx, "unhardban", userID, "")
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Hard ban lifted for <@%s>.", userID)))
}

func (f *Feature) handleHistory(ctx *dispatch.Context) error {
	limit := 10
	if ctx.Has(0) {
		limit = int(ctx.Int(0))
	}
	if limit < 1 || limit > 25 {
		limit = 10
	}

	actions, err := f.mod.History(ctx.Ctx, ctx.GuildID(), limit)
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		return ctx.Reply("No moderation history yet.")
	}

	var b strings.Builder
	for i := len(actions) - 1; i >= 0; i-- {
		a := actions[i]
		fmt.Fprintf(&b, "%s **%s** <@%s> by <@%s>", common.FormatDiscordTimestamp(a.At, "R"), a.Action, a.TargetID, a.Moderator)
		if a.Reason != "" {
			fmt.Fprintf(&b, " — %s", a.Reason)
		}
		b.WriteString("\n")
	}
	return ctx.ReplyEmbed(common.InfoEmbed("Moderation history", b.String()))
}
