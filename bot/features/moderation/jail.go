package moderation

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"steward/bot/common"
	"steward/dispatch"
	"steward/models"
)

func (f *Feature) registerJail(reg *dispatch.Registry) {
	member := dispatch.Param{Name: "member", Kind: dispatch.KindMember}

	reg.Register(&dispatch.Command{
		Name: "jailrole", Category: "moderation",
		Description: "Set the role jailed members are given",
		Usage:       "jailrole <role>",
		Permissions: discordgo.PermissionManageRoles,
		Params:      []dispatch.Param{{Name: "role", Kind: dispatch.KindRole}},
		Run:         f.handleJailRole,
	})
	reg.Register(&dispatch.Command{
		Name: "jail", Category: "moderation",
		Description: "Swap a member's roles for the jail role",
		Usage:       "jail <member> [duration] [reason]",
		Permissions: discordgo.PermissionManageRoles,
		Params: []dispatch.Param{
			member,
			{Name: "duration", Kind: dispatch.KindDuration, Optional: true},
			{Name: "reason", Kind: dispatch.KindRemainder, Optional: true},
		},
		Run: f.handleJail,
	})
	reg.Register(&dispatch.Command{
		Name: "unjail", Category: "moderation",
		Description: "Release a member and restore their roles",
		Usage:       "unjail <member>",
		Permissions: discordgo.PermissionManageRoles,
		Params:      []dispatch.Param{member},
		Run:         f.handleUnjail,
	})
	reg.Register(&dispatch.Command{
		Name: "stfu", Category: "moderation",
		Description: "Toggle deleting every message a member sends",
		Usage:       "stfu <member>",
		Permissions: discordgo.PermissionManageMessages,
		Params:      []dispatch.Param{member},
		Run:         f.handleStfu,
	})
	reg.Register(&dispatch.Command{
		Name: "forcenick", Category: "moderation",
		Description: "Pin a member's nickname, reverting changes",
		Usage:       "forcenick <member> [nickname]",
		Permissions: discordgo.PermissionManageNicknames,
		Params: []dispatch.Param{
			member,
			{Name: "nickname", Kind: dispatch.KindRemainder, Optional: true},
		},
		Run: f.handleForceNick,
	})
	reg.Register(&dispatch.Command{
		Name: "temprole", Category: "moderation",
		Description: "Grant a role that is removed after a duration",
		Usage:       "temprole <member> <role> <duration>",
		Permissions: discordgo.PermissionManageRoles,
		Params: []dispatch.Param{
			member,
			{Name: "role", Kind: dispatch.KindRole},
			{Name: "duration", Kind: dispatch.KindDuration},
		},
		Run: f.handleTempRole,
	})
	reg.Register(&dispatch.Command{
		Name: "sticky", Category: "moderation",
		Description: "Re-apply roles when a member rejoins",
		Usage:       "sticky <member> [roles...]",
		Permissions: discordgo.PermissionManageRoles,
		Params: []dispatch.Param{
			member,
			{Name: "roles", Kind: dispatch.KindRole, Greedy: true, Optional: true},
		},
		Run: f.handleSticky,
	})
	reg.Register(&dispatch.Command{
		Name: "role", Category: "moderation",
		Description: "Toggle a role on a member",
		Usage:       "role <member> <role>",
		Permissions: discordgo.PermissionManageRoles,
		Params: []dispatch.Param{
			member,
			{Name: "role", Kind: dispatch.KindRole},
		},
		Run: f.handleRole,
	})
}

func (f *Feature) handleJailRole(ctx *dispatch.Context) error {
	role := ctx.RoleArg(0)
	if err := f.mod.SetJailRole(ctx.Ctx, ctx.GuildID(), role.ID); err != nil {
		return err
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Jail role set to **%s**.", role.Name)))
}

func (f *Feature) handleJail(ctx *dispatch.Context) error {
	target := ctx.MemberArg(0)
	var expires *time.Time
	if ctx.Has(1) {
		t := time.Now().Add(ctx.Duration(1))
		expires = &t
	}
	reason := reasonArg(ctx, 2)

	jailRoleID, err := f.mod.JailRole(ctx.Ctx, ctx.GuildID())
	if err != nil {
		return friendlyError(ctx, err)
	}

	record := &models.JailRecord{
		StoredRoles: target.Roles,
		JailedBy:    ctx.Author().ID,
		JailedAt:    time.Now(),
		Reason:      reason,
		Expires:     expires,
	}
	if err := f.mod.Jail(ctx.Ctx, ctx.GuildID(), target.User.ID, record); err != nil {
		return friendlyError(ctx, err)
	}

	// Roles first persisted, then swapped, so a crash mid-swap can always
	// be repaired from the record.
	_, err = ctx.Session.GuildMemberEdit(ctx.GuildID(), target.User.ID, &discordgo.GuildMemberParams{
		Roles: &[]string{jailRoleID},
	})
	if err != nil {
		return fmt.Errorf("failed to swap roles for jail: %w", err)
	}
	f.record(ctx, "jail", target.User.ID, reason)

	msg := fmt.Sprintf("Jailed **%s**.", common.DisplayName(target))
	if expires != nil {
		msg = fmt.Sprintf("Jailed **%s** for %s.", common.DisplayName(target), common.FormatDuration(ctx.Duration(1)))
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(msg))
}

func (f *Feature) handleUnjail(ctx *dispatch.Context) error {
	target := ctx.MemberArg(0)
	record, err := f.mod.Release(ctx.Ctx, ctx.GuildID(), target.User.ID)
	if err != nil {
		return friendlyError(ctx, err)
	}

	roles := record.StoredRoles
	if roles == nil {
		roles = []string{}
	}
	_, err = ctx.Session.GuildMemberEdit(ctx.GuildID(), target.User.ID, &discordgo.GuildMemberParams{
		Roles: &roles,
	})
	if err != nil {
		return fmt.Errorf("failed to restore roles after jail: %w", err)
	}
	f.record(ctx, "unjail", target.User.ID, "")
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Released **%s**.", common.DisplayName(target))))
}

func (f *Feature) handleStfu(ctx *dispatch.Context) error {
	target := ctx.MemberArg(0)
	added, err := f.mod.ToggleStfu(ctx.Ctx, ctx.GuildID(), target.User.ID)
	if err != nil {
		return err
	}
	if added {
		f.record(ctx, "stfu", target.User.ID, "")
		return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
			"**%s**'s messages will be deleted on sight.", common.DisplayName(target))))
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"**%s** may speak again.", common.DisplayName(target))))
}

func (f *Feature) handleForceNick(ctx *dispatch.Context) error {
	target := ctx.MemberArg(0)
	if !ctx.Has(1) {
		if err := f.mod.ClearForcedNick(ctx.Ctx, ctx.GuildID(), target.User.ID); err != nil {
			return err
		}
		return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
			"**%s** controls their own nickname again.", common.DisplayName(target))))
	}

	nick := ctx.String(1)
	if len(nick) > 32 {
		return ctx.Reply("Nicknames are capped at 32 characters.")
	}
	if err := f.mod.SetForcedNick(ctx.Ctx, ctx.GuildID(), target.User.ID, nick); err != nil {
		return err
	}
	if err := ctx.Session.GuildMemberNickname(ctx.GuildID(), target.User.ID, nick); err != nil {
		return fmt.Errorf("failed to apply forced nickname: %w", err)
	}
	f.record(ctx, "forcenick", target.User.ID, nick)
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"**%s** is now pinned to the nickname **%s**.", target.User.Username, nick)))
}

func (f *Feature) handleTempRole(ctx *dispatch.Context) error {
	target := ctx.MemberArg(0)
	role := ctx.RoleArg(1)
	duration := ctx.Duration(2)
	if duration < time.Minute {
		return ctx.Reply("Temp roles must last at least a minute.")
	}

	if err := ctx.Session.GuildMemberRoleAdd(ctx.GuildID(), target.User.ID, role.ID); err != nil {
		return fmt.Errorf("failed to grant temp role: %w", err)
	}
	err := f.mod.AddTempRole(ctx.Ctx, ctx.GuildID(), target.User.ID, role.ID, &models.TempRole{
		Expires:  time.Now().Add(duration),
		AddedBy:  ctx.Author().ID,
		AddedAt:  time.Now(),
		Duration: duration.String(),
	})
	if err != nil {
		return err
	}
	f.record(ctx, "temprole", target.User.ID, role.Name)
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"**%s** has **%s** for %s.", common.DisplayName(target), role.Name, common.FormatDuration(duration))))
}

func (f *Feature) handleSticky(ctx *dispatch.Context) error {
	target := ctx.MemberArg(0)

	var roleIDs []string
	if ctx.Has(1) {
		for _, r := range ctx.Roles(1) {
			roleIDs = append(roleIDs, r.ID)
		}
	}
	if err := f.mod.SetStickyRoles(ctx.Ctx, ctx.GuildID(), target.User.ID, roleIDs); err != nil {
		return err
	}

	if len(roleIDs) == 0 {
		return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
			"Sticky roles cleared for **%s**.", common.DisplayName(target))))
	}
	for _, roleID := range roleIDs {
		if err := ctx.Session.GuildMemberRoleAdd(ctx.GuildID(), target.User.ID, roleID); err != nil {
			log.WithError(err).WithField("role", roleID).Warn("Failed to apply sticky role")
		}
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"**%s** keeps %d role(s) across rejoins.", common.DisplayName(target), len(roleIDs))))
}

func (f *Feature) handleRole(ctx *dispatch.Context) error {
	target := ctx.MemberArg(0)
	role := ctx.RoleArg(1)

	has := false
	for _, r := range target.Roles {
		if r == role.ID {
			has = true
			break
		}
	}

	if has {
		if err := ctx.Session.GuildMemberRoleRemove(ctx.GuildID(), target.User.ID, role.ID); err != nil {
			return fmt.Errorf("failed to remove role: %w", err)
		}
		return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
			"Removed **%s** from **%s**.", role.Name, common.DisplayName(target))))
	}
	if err := ctx.Session.GuildMemberRoleAdd(ctx.GuildID(), target.User.ID, role.ID); err != nil {
		return fmt.Errorf("failed to add role: %w", err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"Gave **%s** to **%s**.", role.Name, common.DisplayName(target))))
}
