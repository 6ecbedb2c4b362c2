package moderation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"steward/bot/common"
	"steward/dispatch"
)

func (f *Feature) registerRestrict(reg *dispatch.Registry) {
	group := &dispatch.Command{
		Name: "restrict", Category: "moderation",
		Description: "Limit commands to specific roles",
		Usage:       "restrict <add|remove|list>",
		Permissions: discordgo.PermissionManageServer,
	}

	group.Sub(&dispatch.Command{
		Name:        "add",
		Description: "Require one of the given roles to run a command",
		Usage:       "restrict add <command> <roles...>",
		Params: []dispatch.Param{
			{Name: "command", Kind: dispatch.KindString},
			{Name: "roles", Kind: dispatch.KindRole, Greedy: true},
		},
		Run: f.handleRestrictAdd,
	})
	group.Sub(&dispatch.Command{
		Name:        "remove",
		Description: "Lift a command's role restriction",
		Usage:       "restrict remove <command>",
		Params:      []dispatch.Param{{Name: "command", Kind: dispatch.KindString}},
		Run:         f.handleRestrictRemove,
	})
	group.Sub(&dispatch.Command{
		Name:        "list",
		Description: "Show restricted commands",
		Run:         f.handleRestrictList,
	})

	reg.Register(group)
}

func (f *Feature) handleRestrictAdd(ctx *dispatch.Context) error {
	command := strings.ToLower(ctx.String(0))
	roles := ctx.Roles(1)
	if len(roles) == 0 {
		return ctx.Reply("Name at least one role.")
	}

	roleIDs := make([]string, len(roles))
	names := make([]string, len(roles))
	for i, r := range roles {
		roleIDs[i] = r.ID
		names[i] = r.Name
	}
	if err := f.mod.RestrictCommand(ctx.Ctx, ctx.GuildID(), command, roleIDs); err != nil {
		return err
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"`%s` now requires one of: %s.", command, strings.Join(names, ", "))))
}

func (f *Feature) handleRestrictRemove(ctx *dispatch.Context) error {
	command := strings.ToLower(ctx.String(0))
	if err := f.mod.UnrestrictCommand(ctx.Ctx, ctx.GuildID(), command); err != nil {
		return err
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("`%s` is open to everyone again.", command)))
}

func (f *Feature) handleRestrictList(ctx *dispatch.Context) error {
	restrictions, err := f.mod.Restrictions(ctx.Ctx, ctx.GuildID())
	if err != nil {
		return err
	}
	if len(restrictions) == 0 {
		return ctx.Reply("No commands are restricted.")
	}

	commands := make([]string, 0, len(restrictions))
	for command := range restrictions {
		commands = append(commands, command)
	}
	sort.Strings(commands)

	var b strings.Builder
	for _, command := range commands {
		mentions := make([]string, len(restrictions[command]))
		for i, id := range restrictions[command] {
			mentions[i] = "<@&" + id + ">"
		}
		fmt.Fprintf(&b, "`%s` — %s\n", command, strings.Join(mentions, ", "))
	}
	return ctx.ReplyEmbed(common.InfoEmbed("Restricted commands", b.String()))
}
