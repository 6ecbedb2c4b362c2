// Package info carries the informational and utility commands: help, the
// inspection commands, polls, reminders and the embed manager.
package info

import (
	"time"

	"steward/dispatch"
	"steward/service"
)

// Feature represents the info feature
type Feature struct {
	misc    service.MiscService
	mod     service.ModerationService
	reg     *dispatch.Registry
	started time.Time
}

// New creates a new info feature instance
func New(misc service.MiscService, mod service.ModerationService) *Feature {
	return &Feature{misc: misc, mod: mod, started: time.Now()}
}

// Register adds the informational commands to the registry.
func (f *Feature) Register(reg *dispatch.Registry) {
	f.reg = reg

	reg.Register(&dispatch.Command{
		Name: "help", Aliases: []string{"h", "commands"}, Category: "info",
		Description: "List commands or describe one",
		Usage:       "help [command]",
		Params:      []dispatch.Param{{Name: "command", Kind: dispatch.KindString, Optional: true}},
		Run:         f.handleHelp,
	})
	reg.Register(&dispatch.Command{
		Name: "botinfo", Aliases: []string{"ping"}, Category: "info",
		Description: "Show bot status",
		Run:         f.handleBotInfo,
	})
	reg.Register(&dispatch.Command{
		Name: "userinfo", Aliases: []string{"whois"}, Category: "info",
		Description: "Show a member's details",
		Usage:       "userinfo [member]",
		Params:      []dispatch.Param{{Name: "member", Kind: dispatch.KindMember, Optional: true}},
		Run:         f.handleUserInfo,
	})
	reg.Register(&dispatch.Command{
		Name: "serverinfo", Category: "info",
		Description: "Show this server's details",
		Run:         f.handleServerInfo,
	})
	reg.Register(&dispatch.Command{
		Name: "channelinfo", Category: "info",
		Description: "Show a channel's details",
		Usage:       "channelinfo [channel]",
		Params:      []dispatch.Param{{Name: "channel", Kind: dispatch.KindChannel, Optional: true}},
		Run:         f.handleChannelInfo,
	})
	reg.Register(&dispatch.Command{
		Name: "roleinfo", Category: "info",
		Description: "Show a role's details",
		Usage:       "roleinfo <role>",
		Params:      []dispatch.Param{{Name: "role", Kind: dispatch.KindRole}},
		Run:         f.handleRoleInfo,
	})
	reg.Register(&dispatch.Command{
		Name: "avatar", Aliases: []string{"av"}, Category: "info",
		Description: "Show a member's avatar",
		Usage:       "avatar [member]",
		Params:      []dispatch.Param{{Name: "member", Kind: dispatch.KindMember, Optional: true}},
		Run:         f.handleAvatar,
	})
	reg.Register(&dispatch.Command{
		Name: "banner", Category: "info",
		Description: "Show a member's profile banner",
		Usage:       "banner [member]",
		Params:      []dispatch.Param{{Name: "member", Kind: dispatch.KindMember, Optional: true}},
		Run:         f.handleBanner,
	})
	reg.Register(&dispatch.Command{
		Name: "members", Category: "info",
		Description: "Show the member count",
		Run:         f.handleMembers,
	})
	reg.Register(&dispatch.Command{
		Name: "invites", Category: "info",
		Description: "List active invites",
		Run:         f.handleInvites,
	})
	reg.Register(&dispatch.Command{
		Name: "poll", Category: "info",
		Description: "Start a yes/no/shrug poll",
		Usage:       "poll <question>",
		Params:      []dispatch.Param{{Name: "question", Kind: dispatch.KindRemainder}},
		Run:         f.handlePoll,
	})
	reg.Register(&dispatch.Command{
		Name: "quickpoll", Category: "info",
		Description: "Add yes/no reactions to your question",
		Usage:       "quickpoll <question>",
		Params:      []dispatch.Param{{Name: "question", Kind: dispatch.KindRemainder}},
		Run:         f.handleQuickPoll,
	})
	reg.Register(&dispatch.Command{
		Name: "seen", Category: "info",
		Description: "Show when a member last spoke here",
		Usage:       "seen <member>",
		Params:      []dispatch.Param{{Name: "member", Kind: dispatch.KindMember}},
		Run:         f.handleSeen,
	})
	reg.Register(&dispatch.Command{
		Name: "names", Category: "info",
		Description: "Show a member's username history",
		Usage:       "names <member>",
		Params:      []dispatch.Param{{Name: "member", Kind: dispatch.KindMember}},
		Run:         f.handleNames,
	})

	remind := &dispatch.Command{
		Name: "remind", Aliases: []string{"remindme"}, Category: "info",
		Description: "DM yourself a reminder after a delay",
		Usage:       "remind <delay> <text>",
		Params: []dispatch.Param{
			{Name: "delay", Kind: dispatch.KindDuration},
			{Name: "text", Kind: dispatch.KindRemainder},
		},
		Run: f.handleRemind,
	}
	remind.Sub(&dispatch.Command{
		Name:        "list",
		Description: "List your pending reminders",
		Run:         f.handleRemindList,
	})
	remind.Sub(&dispatch.Command{
		Name:        "remove",
		Description: "Remove one of your reminders",
		Usage:       "remind remove <id>",
		Params:      []dispatch.Param{{Name: "id", Kind: dispatch.KindString}},
		Run:         f.handleRemindRemove,
	})
	reg.Register(remind)

	f.registerEmoji(reg)
	f.registerEmbed(reg)
}
