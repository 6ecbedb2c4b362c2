// Package streams wires the Kick stream announcement commands. They live as
// subcommands of the moderation kick command: `kick @member` still removes a
// member while `kick add xqc` starts announcing a streamer.
package streams

import (
	"github.com/bwmarrin/discordgo"

	"steward/dispatch"
	"steward/streams"
)

// Feature represents the streams feature
type Feature struct {
	streams *streams.Service
}

// New creates a new streams feature instance
func New(service *streams.Service) *Feature {
	return &Feature{streams: service}
}

// Register attaches the stream subcommands to the kick command. Moderation
// must register first; if it has not, a bare group is created.
func (f *Feature) Register(reg *dispatch.Registry) {
	group := reg.Lookup("kick")
	if group == nil {
		group = &dispatch.Command{
			Name: "kick", Category: "streams",
			Description: "Announce Kick streamers when they go live",
			Usage:       "kick <add|remove|list|message>",
		}
		reg.Register(group)
	}

	group.Sub(&dispatch.Command{
		Name:        "add",
		Description: "Announce a Kick streamer in a channel",
		Usage:       "kick add <username> [channel]",
		Permissions: discordgo.PermissionManageServer,
		Params: []dispatch.Param{
			{Name: "username", Kind: dispatch.KindString},
			{Name: "channel", Kind: dispatch.KindChannel, Optional: true},
		},
		Run: f.handleAdd,
	})
	group.Sub(&dispatch.Command{
		Name:        "remove",
		Description: "Stop announcing a Kick streamer in a channel",
		Usage:       "kick remove <username> [channel]",
		Permissions: discordgo.PermissionManageServer,
		Params: []dispatch.Param{
			{Name: "username", Kind: dispatch.KindString},
			{Name: "channel", Kind: dispatch.KindChannel, Optional: true},
		},
		Run: f.handleRemove,
	})
	group.Sub(&dispatch.Command{
		Name:        "list",
		Description: "List this server's Kick stream watches",
		Permissions: discordgo.PermissionManageServer,
		Run:         f.handleList,
	})
	group.Sub(&dispatch.Command{
		Name:        "message",
		Description: "Set the live announcement message for a streamer",
		Usage:       "kick message <username> [template]",
		Permissions: discordgo.PermissionManageServer,
		Params: []dispatch.Param{
			{Name: "username", Kind: dispatch.KindString},
			{Name: "template", Kind: dispatch.KindRemainder, Optional: true},
		},
		Run: f.handleMessage,
	})
}
