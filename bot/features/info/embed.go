package info

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"steward/bot/common"
	"steward/dispatch"
	"steward/models"
	"steward/service"
)

func friendlyError(ctx *dispatch.Context, err error) error {
	var msg string
	switch {
	case errors.Is(err, service.ErrEmbedNotFound):
		msg = "No saved embed with that name."
	case errors.Is(err, service.ErrEmbedExists):
		msg = "An embed with that name already exists."
	case errors.Is(err, service.ErrNoSuchReminder):
		msg = "No reminder with that id."
	default:
		return err
	}
	return ctx.Reply("%s", msg)
}

func (f *Feature) registerEmbed(reg *dispatch.Registry) {
	group := &dispatch.Command{
		Name: "embed", Category: "info",
		Description: "Manage named reusable embeds",
		Usage:       "embed <create|edit|delete|show|list>",
		Permissions: discordgo.PermissionManageMessages,
	}

	group.Sub(&dispatch.Command{
		Name:        "create",
		Description: "Create a named embed",
		Usage:       "embed create <name> <description>",
		Params: []dispatch.Param{
			{Name: "name", Kind: dispatch.KindString},
			{Name: "description", Kind: dispatch.KindRemainder},
		},
		Run: f.handleEmbedCreate,
	})
	group.Sub(&dispatch.Command{
		Name:        "edit",
		Description: "Edit one field of a named embed",
		Usage:       "embed edit <name> <title|description|color|image|thumbnail|footer> <value>",
		Params: []dispatch.Param{
			{Name: "name", Kind: dispatch.KindString},
			{Name: "field", Kind: dispatch.KindString},
			{Name: "value", Kind: dispatch.KindRemainder},
		},
		Run: f.handleEmbedEdit,
	})
	group.Sub(&dispatch.Command{
		Name:        "delete",
		Description: "Delete a named embed",
		Usage:       "embed delete <name>",
		Params:      []dispatch.Param{{Name: "name", Kind: dispatch.KindString}},
		Run:         f.handleEmbedDelete,
	})
	group.Sub(&dispatch.Command{
		Name:        "show",
		Description: "Render a named embed",
		Usage:       "embed show <name>",
		Params:      []dispatch.Param{{Name: "name", Kind: dispatch.KindString}},
		Run:         f.handleEmbedShow,
	})
	group.Sub(&dispatch.Command{
		Name:        "list",
		Description: "List this server's named embeds",
		Run:         f.handleEmbedList,
	})

	reg.Register(group)
}

func (f *Feature) handleEmbedCreate(ctx *dispatch.Context) error {
	name := strings.ToLower(ctx.String(0))
	err := f.misc.CreateEmbed(ctx.Ctx, ctx.GuildID(), &models.StoredEmbed{
		Name:        name,
		Description: strings.TrimSpace(ctx.String(1)),
		Color:       common.ColorInfo,
		CreatedBy:   ctx.Author().ID,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"Embed `%s` saved. Tune it with `embed edit`.", name)))
}

func (f *Feature) handleEmbedEdit(ctx *dispatch.Context) error {
	name := strings.ToLower(ctx.String(0))
	field := strings.ToLower(ctx.String(1))
	value := strings.TrimSpace(ctx.String(2))

	err := f.misc.UpdateEmbed(ctx.Ctx, ctx.GuildID(), name, func(e *models.StoredEmbed) error {
		switch field {
		case "title":
			e.Title = value
		case "description":
			e.Description = value
		case "color":
			n, err := strconv.ParseInt(strings.TrimPrefix(value, "#"), 16, 32)
			if err != nil {
				return fmt.Errorf("color must be hex like #3498db")
			}
			e.Color = int(n)
		case "image":
			e.ImageURL = value
		case "thumbnail":
			e.Thumbnail = value
		case "footer":
			e.Footer = value
		default:
			return fmt.Errorf("unknown field %q", field)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, service.ErrEmbedNotFound) {
			return friendlyError(ctx, err)
		}
		return ctx.Reply("%s", err.Error())
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Updated `%s`.", name)))
}

func (f *Feature) handleEmbedDelete(ctx *dispatch.Context) error {
	name := strings.ToLower(ctx.String(0))
	if err := f.misc.DeleteEmbed(ctx.Ctx, ctx.GuildID(), name); err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Deleted `%s`.", name)))
}

func (f *Feature) handleEmbedShow(ctx *dispatch.Context) error {
	stored, err := f.misc.Embed(ctx.Ctx, ctx.GuildID(), strings.ToLower(ctx.String(0)))
	if err != nil {
		return friendlyError(ctx, err)
	}

	embed := &discordgo.MessageEmbed{
		Title:       stored.Title,
		Description: stored.Description,
		Color:       stored.Color,
	}
	if stored.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: stored.ImageURL}
	}
	if stored.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: stored.Thumbnail}
	}
	if stored.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: stored.Footer}
	}
	return ctx.ReplyEmbed(embed)
}

func (f *Feature) handleEmbedList(ctx *dispatch.Context) error {
	embeds, err := f.misc.Embeds(ctx.Ctx, ctx.GuildID())
	if err != nil {
		return err
	}
	if len(embeds) == 0 {
		return ctx.Reply("No saved embeds.")
	}

	names := make([]string, len(embeds))
	for i, e := range embeds {
		names[i] = e.Name
	}
	sort.Strings(names)
	return ctx.ReplyEmbed(common.InfoEmbed("Saved embeds", "`"+strings.Join(names, "` `")+"`"))
}
