// Package giveaways wires the `g` command group and the minute draw loop.
// Entry is reaction based and evaluated only at draw time, so the gateway
// never needs to track individual reaction events.
package giveaways

import (
	"github.com/bwmarrin/discordgo"

	"steward/dispatch"
	"steward/service"
)

// Feature represents the giveaway feature
type Feature struct {
	giveaways service.GiveawayService
	pokemon   service.PokemonService
}

// New creates a new giveaways feature instance
func New(giveaways service.GiveawayService, pokemon service.PokemonService) *Feature {
	return &Feature{giveaways: giveaways, pokemon: pokemon}
}

// Register adds the `g` group to the registry.
func (f *Feature) Register(reg *dispatch.Registry) {
	group := &dispatch.Command{
		Name: "g", Aliases: []string{"giveaway"}, Category: "giveaways",
		Description: "Giveaway management",
		Usage:       "g <start|end|cancel|reroll|list|edit>",
		Permissions: discordgo.PermissionManageServer,
	}

	group.Sub(&dispatch.Command{
		Name:        "start",
		Description: "Start a giveaway in this channel",
		Usage:       "g start <duration> <winners> <prize>",
		Params: []dispatch.Param{
			{Name: "duration", Kind: dispatch.KindDuration},
			{Name: "winners", Kind: dispatch.KindInt},
			{Name: "prize", Kind: dispatch.KindRemainder},
		},
		Run: f.handleStart,
	})
	group.Sub(&dispatch.Command{
		Name:        "end",
		Description: "End a giveaway now and draw winners",
		Usage:       "g end <message-id>",
		Params:      []dispatch.Param{{Name: "message-id", Kind: dispatch.KindString}},
		Run:         f.handleEnd,
	})
	group.Sub(&dispatch.Command{
		Name:        "cancel",
		Description: "Cancel a running giveaway without drawing",
		Usage:       "g cancel <message-id>",
		Params:      []dispatch.Param{{Name: "message-id", Kind: dispatch.KindString}},
		Run:         f.handleCancel,
	})
	group.Sub(&dispatch.Command{
		Name:        "reroll",
		Description: "Redraw winners of an ended giveaway",
		Usage:       "g reroll <message-id> [count]",
		Params: []dispatch.Param{
			{Name: "message-id", Kind: dispatch.KindString},
			{Name: "count", Kind: dispatch.KindInt, Optional: true},
		},
		Run: f.handleReroll,
	})
	group.Sub(&dispatch.Command{
		Name:        "list",
		Description: "List running giveaways",
		Run:         f.handleList,
	})

	edit := &dispatch.Command{
		Name:        "edit",
		Description: "Edit one field of a running giveaway",
		Usage:       "g edit <field> <message-id> <value>",
	}
	for _, field := range editFields {
		field := field
		edit.Sub(&dispatch.Command{
			Name:        field.name,
			Description: field.description,
			Usage:       "g edit " + field.name + " <message-id> <value>",
			Params: []dispatch.Param{
				{Name: "message-id", Kind: dispatch.KindString},
				{Name: "value", Kind: dispatch.KindRemainder},
			},
			Run: func(ctx *dispatch.Context) error { return f.handleEdit(ctx, field) },
		})
	}
	group.Sub(edit)

	reg.Register(group)
}
