// Package voicemaster wires the temporary voice channel commands onto the
// voice arbiter.
package voicemaster

import (
	"github.com/bwmarrin/discordgo"

	"steward/dispatch"
	"steward/voice"
)

// Feature represents the voicemaster feature
type Feature struct {
	arbiter *voice.Arbiter
}

// New creates a new voicemaster feature instance
func New(arbiter *voice.Arbiter) *Feature {
	return &Feature{arbiter: arbiter}
}

// Register adds the voicemaster group to the registry.
func (f *Feature) Register(reg *dispatch.Registry) {
	group := &dispatch.Command{
		Name: "voicemaster", Aliases: []string{"vm"}, Category: "voice",
		Description: "Temporary voice channel controls",
		Usage:       "vm <setup|rename|lock|unlock|ghost|unghost|limit|bitrate|permit|reject|transfer|claim>",
	}

	group.Sub(&dispatch.Command{
		Name:        "setup",
		Description: "Create the join-to-create hub for this server",
		Usage:       "vm setup [category-id] [default-role]",
		Permissions: discordgo.PermissionManageChannels,
		Params: []dispatch.Param{
			{Name: "category-id", Kind: dispatch.KindString, Optional: true},
			{Name: "default-role", Kind: dispatch.KindRole, Optional: true},
		},
		Run: f.handleSetup,
	})
	group.Sub(&dispatch.Command{
		Name:        "rename",
		Description: "Rename your channel",
		Usage:       "vm rename <name>",
		Params:      []dispatch.Param{{Name: "name", Kind: dispatch.KindRemainder}},
		Run:         f.handleRename,
	})
	group.Sub(&dispatch.Command{
		Name:        "lock",
		Description: "Stop others from joining your channel",
		Run:         f.handleLock,
	})
	group.Sub(&dispatch.Command{
		Name:        "unlock",
		Description: "Open your channel again",
		Run:         f.handleUnlock,
	})
	group.Sub(&dispatch.Command{
		Name:        "ghost",
		Description: "Hide your channel from the channel list",
		Run:         f.handleGhost,
	})
	group.Sub(&dispatch.Command{
		Name:        "unghost",
		Description: "Show your channel again",
		Run:         f.handleUnghost,
	})
	group.Sub(&dispatch.Command{
		Name:        "limit",
		Description: "Set a user limit (0 removes it)",
		Usage:       "vm limit <count>",
		Params:      []dispatch.Param{{Name: "count", Kind: dispatch.KindInt}},
		Run:         f.handleLimit,
	})
	group.Sub(&dispatch.Command{
		Name:        "bitrate",
		Description: "Set your channel bitrate in kbps",
		Usage:       "vm bitrate <kbps>",
		Params:      []dispatch.Param{{Name: "kbps", Kind: dispatch.KindInt}},
		Run:         f.handleBitrate,
	})
	group.Sub(&dispatch.Command{
		Name:        "permit",
		Description: "Let a member or role join even when locked",
		Usage:       "vm permit <member|role>",
		Params:      []dispatch.Param{{Name: "target", Kind: dispatch.KindString}},
		Run:         f.handlePermit,
	})
	group.Sub(&dispatch.Command{
		Name:        "reject",
		Description: "Ban a member or role from your channel",
		Usage:       "vm reject <member|role>",
		Params:      []dispatch.Param{{Name: "target", Kind: dispatch.KindString}},
		Run:         f.handleReject,
	})
	group.Sub(&dispatch.Command{
		Name:        "transfer",
		Description: "Hand your channel to another member",
		Usage:       "vm transfer <member>",
		Params:      []dispatch.Param{{Name: "member", Kind: dispatch.KindMember}},
		Run:         f.handleTransfer,
	})
	group.Sub(&dispatch.Command{
		Name:        "claim",
		Description: "Claim an abandoned channel",
		Run:         f.handleClaim,
	})

	reg.Register(group)
}
