// Package moderation wires the moderation command surface: bans, jails,
// lockdowns, purges and the batch operations.
package moderation

import (
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"steward/dispatch"
	"steward/service"
)

// Feature represents the moderation feature
type Feature struct {
	mod service.ModerationService

	// sleep is swapped in tests so batch pacing does not slow them down.
	sleep func(time.Duration)

	mu        sync.Mutex
	cancelled map[string]bool // guild id + op -> cancel requested
}

// New creates a new moderation feature instance
func New(mod service.ModerationService) *Feature {
	return &Feature{
		mod:       mod,
		sleep:     time.Sleep,
		cancelled: make(map[string]bool),
	}
}

// Register adds the moderation commands to the registry.
func (f *Feature) Register(reg *dispatch.Registry) {
	member := dispatch.Param{Name: "member", Kind: dispatch.KindMember}
	reason := dispatch.Param{Name: "reason", Kind: dispatch.KindRemainder, Optional: true}

	reg.Register(&dispatch.Command{
		Name: "ban", Category: "moderation",
		Description: "Ban a member",
		Usage:       "ban <member> [reason]",
		Permissions: discordgo.PermissionBanMembers,
		Params:      []dispatch.Param{member, reason},
		Run:         f.handleBan,
	})
	reg.Register(&dispatch.Command{
		Name: "unban", Category: "moderation",
		Description: "Remove a ban by user id",
		Usage:       "unban <user-id>",
		Permissions: discordgo.PermissionBanMembers,
		Params:      []dispatch.Param{{Name: "user-id", Kind: dispatch.KindString}},
		Run:         f.handleUnban,
	})
	reg.Register(&dispatch.Command{
		Name: "kick", Category: "moderation",
		Description: "Kick a member",
		Usage:       "kick <member> [reason]",
		Permissions: discordgo.PermissionKickMembers,
		Params:      []dispatch.Param{member, reason},
		Run:         f.handleKick,
	})
	reg.Register(&dispatch.Command{
		Name: "timeout", Aliases: []string{"mute"}, Category: "moderation",
		Description: "Time a member out",
		Usage:       "timeout <member> <duration> [reason]",
		Permissions: discordgo.PermissionModerateMembers,
		Params: []dispatch.Param{
			member,
			{Name: "duration", Kind: dispatch.KindDuration},
			reason,
		},
		Run: f.handleTimeout,
	})
	reg.Register(&dispatch.Command{
		Name: "untimeout", Aliases: []string{"unmute"}, Category: "moderation",
		Description: "Lift a member's timeout",
		Usage:       "untimeout <member>",
		Permissions: discordgo.PermissionModerateMembers,
		Params:      []dispatch.Param{member},
		Run:         f.handleUntimeout,
	})
	reg.Register(&dispatch.Command{
		Name: "softban", Category: "moderation",
		Description: "Ban and immediately unban to clear recent messages",
		Usage:       "softban <member> [reason]",
		Permissions: discordgo.PermissionBanMembers,
		Params:      []dispatch.Param{member, reason},
		Run:         f.handleSoftban,
	})
	reg.Register(&dispatch.Command{
		Name: "tempban", Category: "moderation",
		Description: "Ban for a duration, then unban if still banned",
		Usage:       "tempban <member> <duration> [reason]",
		Permissions: discordgo.PermissionBanMembers,
		Params: []dispatch.Param{
			member,
			{Name: "duration", Kind: dispatch.KindDuration},
			reason,
		},
		Run: f.handleTempban,
	})
	reg.Register(&dispatch.Command{
		Name: "hardban", Category: "moderation",
		Description: "Ban and re-ban automatically if anyone unbans",
		Usage:       "hardban <member> [reason]",
		Permissions: discordgo.PermissionBanMembers,
		Params:      []dispatch.Param{member, reason},
		Run:         f.handleHardban,
	})
	reg.Register(&dispatch.Command{
		Name: "unhardban", Category: "moderation",
		Description: "Lift a hard ban by user id",
		Usage:       "unhardban <user-id>",
		Permissions: discordgo.PermissionBanMembers,
		Params:      []dispatch.Param{{Name: "user-id", Kind: dispatch.KindString}},
		Run:         f.handleUnhardban,
	})

	f.registerJail(reg)
	f.registerLockdown(reg)
	f.registerPurge(reg)
	f.registerBatch(reg)
	f.registerRestrict(reg)

	reg.Register(&dispatch.Command{
		Name: "history", Category: "moderation",
		Description: "Show recent moderation actions",
		Usage:       "history [count]",
		Permissions: discordgo.PermissionKickMembers,
		Params:      []dispatch.Param{{Name: "count", Kind: dispatch.KindInt, Optional: true}},
		Run:         f.handleHistory,
	})
}
