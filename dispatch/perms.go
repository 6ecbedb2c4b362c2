package dispatch

import (
	"github.com/bwmarrin/discordgo"
)

// RestrictionProvider exposes the per-guild command restriction map: which
// role ids may run a command in a guild. ok is false when the guild has no
// entry for the command, meaning the command is unrestricted.
type RestrictionProvider interface {
	PermittedRoles(guildID, command string) (roles []string, ok bool)
}

// memberPermissions computes the invoker's guild-level permission bits from
// the guild snapshot: @everyone plus every held role, with the owner and
// administrators holding everything.
func memberPermissions(guild *discordgo.Guild, member *discordgo.Member) int64 {
	if guild == nil || member == nil || member.User == nil {
		return 0
	}
	if member.User.ID == guild.OwnerID {
		return discordgo.PermissionAll
	}

	var perms int64
	for _, role := range guild.Roles {
		if role.ID == guild.ID { // @everyone
			perms |= role.Permissions
			continue
		}
		for _, held := range member.Roles {
			if held == role.ID {
				perms |= role.Permissions
				break
			}
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}
	return perms
}

// gate evaluates the permission pipeline in order, short-circuiting on the
// first failure: built-in capability bits, then the any-of composition, then
// the guild's command restriction map.
func (r *Registry) gate(ctx *Context, cmd *Command, rootName string) error {
	perms := memberPermissions(ctx.Guild, ctx.Message.Member)
	isOwner := ctx.Guild != nil && ctx.Author() != nil && ctx.Author().ID == ctx.Guild.OwnerID
	isAdmin := perms&discordgo.PermissionAdministrator != 0

	if cmd.Permissions != 0 && !isOwner && !isAdmin {
		if perms&cmd.Permissions != cmd.Permissions {
			return &MissingPermission{Need: permissionName(cmd.Permissions)}
		}
	}

	if len(cmd.AnyOf) > 0 && !isOwner && !isAdmin {
		passed := false
		for _, check := range cmd.AnyOf {
			if check(ctx) {
				passed = true
				break
			}
		}
		if !passed {
			return &MissingPermission{Need: "a required role or permission"}
		}
	}

	if r.restrictions != nil && ctx.Guild != nil {
		permitted, restricted := r.restrictions.PermittedRoles(ctx.Guild.ID, rootName)
		if restricted && !isOwner && !isAdmin {
			if !holdsAny(ctx.Message.Member, permitted) {
				return errRestricted
			}
		}
	}

	return nil
}

// errRestricted marks a restriction-map denial, which is reported silently.
var errRestricted = &MissingPermission{Need: "a permitted role for this command"}

func holdsAny(member *discordgo.Member, roleIDs []string) bool {
	if member == nil {
		return false
	}
	for _, want := range roleIDs {
		for _, held := range member.Roles {
			if held == want {
				return true
			}
		}
	}
	return false
}

// permissionName renders the lowest set capability bit for denial messages.
func permissionName(perms int64) string {
	names := []struct {
		bit  int64
		name string
	}{
		{discordgo.PermissionAdministrator, "administrator"},
		{discordgo.PermissionManageServer, "manage server"},
		{discordgo.PermissionBanMembers, "ban members"},
		{discordgo.PermissionKickMembers, "kick members"},
		{discordgo.PermissionModerateMembers, "timeout members"},
		{discordgo.PermissionManageMessages, "manage messages"},
		{discordgo.PermissionManageChannels, "manage channels"},
		{discordgo.PermissionManageRoles, "manage roles"},
		{discordgo.PermissionManageNicknames, "manage nicknames"},
		{discordgo.PermissionManageGuildExpressions, "manage expressions"},
		{discordgo.PermissionMentionEveryone, "mention everyone"},
	}
	for _, n := range names {
		if perms&n.bit != 0 {
			return n.name
		}
	}
	return "elevated permissions"
}
