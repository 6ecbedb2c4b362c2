package giveaways

import (
	"errors"
	"fmt"
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
	case errors.Is(err, service.ErrGiveawayNotFound):
		msg = "No giveaway with that message id."
	case errors.Is(err, service.ErrGiveawayActive):
		msg = "That giveaway is still running. End it first."
	case errors.Is(err, service.ErrGiveawayEnded):
		msg = "That giveaway has already ended."
	case errors.Is(err, service.ErrDurationTooShort):
		msg = "Giveaways must run for at least 60 seconds."
	case errors.Is(err, service.ErrNoWinnersWanted):
		msg = "At least one winner is required."
	default:
		return err
	}
	return ctx.Reply("%s", msg)
}

func (f *Feature) handleStart(ctx *dispatch.Context) error {
	duration := ctx.Duration(0)
	winners := int(ctx.Int(1))
	prize := strings.TrimSpace(ctx.String(2))
	if prize == "" {
		return ctx.Reply("A giveaway needs a prize.")
	}

	g := &models.Giveaway{
		ChannelID:    ctx.ChannelID(),
		GuildID:      ctx.GuildID(),
		Prize:        prize,
		WinnersCount: winners,
		HostIDs:      []string{ctx.Author().ID},
		CreatedAt:    time.Now(),
		EndTime:      time.Now().Add(duration),
	}

	msg, err := ctx.Session.ChannelMessageSendEmbed(ctx.ChannelID(), renderGiveaway(g))
	if err != nil {
		return fmt.Errorf("failed to post giveaway announcement: %w", err)
	}
	g.MessageID = msg.ID

	if err := f.giveaways.Create(ctx.Ctx, g, duration); err != nil {
		return friendlyError(ctx, err)
	}
	if err := ctx.Session.MessageReactionAdd(g.ChannelID, g.MessageID, models.EntryEmoji); err != nil {
		return fmt.Errorf("failed to seed entry reaction: %w", err)
	}
	return nil
}

func (f *Feature) handleEnd(ctx *dispatch.Context) error {
	messageID := ctx.String(0)
	g, active, err := f.giveaways.Get(ctx.Ctx, ctx.GuildID(), messageID)
	if err != nil {
		return friendlyError(ctx, err)
	}
	if !active {
		return friendlyError(ctx, service.ErrGiveawayEnded)
	}
	return f.draw(ctx.Ctx, ctx.Session, g)
}

func (f *Feature) handleCancel(ctx *dispatch.Context) error {
	if err := f.giveaways.Cancel(ctx.Ctx, ctx.GuildID(), ctx.String(0)); err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed("Giveaway cancelled. Nobody wins."))
}

func (f *Feature) handleReroll(ctx *dispatch.Context) error {
	count := 1
	if ctx.Has(1) {
		count = int(ctx.Int(1))
	}
	messageID := ctx.String(0)

	winners, fresh, err := f.giveaways.Reroll(ctx.Ctx, ctx.GuildID(), messageID, count)
	if err != nil {
		return friendlyError(ctx, err)
	}
	if len(winners) == 0 {
		return ctx.Reply("No valid entries to draw from.")
	}

	g, _, err := f.giveaways.Get(ctx.Ctx, ctx.GuildID(), messageID)
	if err != nil {
		return friendlyError(ctx, err)
	}
	f.rewardRoles(ctx.Session, g, fresh)

	return ctx.Reply("🎉 New winner(s) for **%s**: %s", g.Prize, mentionList(winners))
}

func (f *Feature) handleList(ctx *dispatch.Context) error {
	list, err := f.giveaways.ListActive(ctx.Ctx, ctx.GuildID())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return ctx.Reply("No giveaways are running.")
	}

	var b strings.Builder
	for _, g := range list {
		fmt.Fprintf(&b, "`%s` **%s** — %d winner(s), ends %s in <#%s>\n",
			g.MessageID, g.Prize, g.WinnersCount,
			common.FormatDiscordTimestamp(g.EndTime, "R"), g.ChannelID)
	}
	return ctx.ReplyEmbed(common.InfoEmbed("Running giveaways", b.String()))
}

// editField mutates exactly one giveaway attribute from its textual value.
type editField struct {
	name        string
	description string
	apply       func(g *models.Giveaway, value string) error
}

var editFields = []editField{
	{"prize", "Change the prize", func(g *models.Giveaway, v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("prize cannot be empty")
		}
		g.Prize = strings.TrimSpace(v)
		return nil
	}},
	{"winners", "Change the winner count", func(g *models.Giveaway, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 1 {
			return fmt.Errorf("winners must be a number of at least 1")
		}
		g.WinnersCount = n
		return nil
	}},
	{"duration", "Restart the clock with a new duration from now", func(g *models.Giveaway, v string) error {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil || d < models.MinGiveawayDuration {
			return fmt.Errorf("duration must parse and be at least 60s")
		}
		g.EndTime = time.Now().Add(d)
		return nil
	}},
	{"description", "Change the embed description", func(g *models.Giveaway, v string) error {
		g.Description = strings.TrimSpace(v)
		return nil
	}},
	{"thumbnail", "Change the embed thumbnail url", func(g *models.Giveaway, v string) error {
		g.ThumbnailURL = strings.TrimSpace(v)
		return nil
	}},
	{"image", "Change the embed image url", func(g *models.Giveaway, v string) error {
		g.ImageURL = strings.TrimSpace(v)
		return nil
	}},
	{"host", "Replace the host list", func(g *models.Giveaway, v string) error {
		ids := parseIDs(v)
		if len(ids) == 0 {
			return fmt.Errorf("at least one host is required")
		}
		g.HostIDs = ids
		return nil
	}},
	{"roles", "Replace the reward roles granted to winners", func(g *models.Giveaway, v string) error {
		g.Filters.RewardRoleIDs = parseIDs(v)
		return nil
	}},
	{"requiredroles", "Replace the roles required to enter", func(g *models.Giveaway, v string) error {
		g.Filters.RequiredRoleIDs = parseIDs(v)
		return nil
	}},
	{"age", "Set the minimum account age, e.g. 720h", func(g *models.Giveaway, v string) error {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil || d < 0 {
			return fmt.Errorf("age must be a duration like 720h")
		}
		g.Filters.MinAccountAgeSeconds = int64(d / time.Second)
		return nil
	}},
	{"stay", "Set the minimum days in the server", func(g *models.Giveaway, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return fmt.Errorf("stay must be a day count")
		}
		g.Filters.MinServerStayDays = n
		return nil
	}},
	{"minlevel", "Set the minimum trainer level", func(g *models.Giveaway, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return fmt.Errorf("minlevel must be a number")
		}
		g.Filters.MinLevel = n
		return nil
	}},
	{"maxlevel", "Set the maximum trainer level", func(g *models.Giveaway, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return fmt.Errorf("maxlevel must be a number")
		}
		g.Filters.MaxLevel = n
		return nil
	}},
}

func (f *Feature) handleEdit(ctx *dispatch.Context, field editField) error {
	messageID := ctx.String(0)
	value := ctx.String(1)

	g, err := f.giveaways.Edit(ctx.Ctx, ctx.GuildID(), messageID, func(g *models.Giveaway) error {
		return field.apply(g, value)
	})
	if err != nil {
		if errors.Is(err, service.ErrGiveawayNotFound) {
			return friendlyError(ctx, err)
		}
		return ctx.Reply("%s", err.Error())
	}

	if _, err := ctx.Session.ChannelMessageEditEmbed(g.ChannelID, g.MessageID, renderGiveaway(g)); err != nil {
		return fmt.Errorf("failed to re-render giveaway announcement: %w", err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Updated %s.", field.name)))
}

// parseIDs extracts snowflakes from a mix of raw ids and mention syntax.
func parseIDs(value string) []string {
	var ids []string
	for _, tok := range strings.Fields(value) {
		tok = strings.Trim(tok, "<@&!>")
		if tok == "" {
			continue
		}
		if _, err := strconv.ParseUint(tok, 10, 64); err == nil {
			ids = append(ids, tok)
		}
	}
	return ids
}

func mentionList(ids []string) string {
	mentions := make([]string, len(ids))
	for i, id := range ids {
		mentions[i] = "<@" + id + ">"
	}
	return strings.Join(mentions, ", ")
}

// renderGiveaway builds the announcement embed for both running and ended
// states.
func renderGiveaway(g *models.Giveaway) *discordgo.MessageEmbed {
	var b strings.Builder
	if g.Description != "" {
		b.WriteString(g.Description)
		b.WriteString("\n\n")
	}

	if g.EndedAt == nil {
		fmt.Fprintf(&b, "React with %s to enter!\n", models.EntryEmoji)
		fmt.Fprintf(&b, "Ends: %s\n", common.FormatDiscordTimestamp(g.EndTime, "R"))
	} else if len(g.WinnerIDs) == 0 {
		b.WriteString("Ended: nobody entered.\n")
	} else {
		fmt.Fprintf(&b, "Winner(s): %s\n", mentionList(g.WinnerIDs))
	}
	fmt.Fprintf(&b, "Winners: %d\nHosted by: %s", g.WinnersCount, mentionList(g.HostIDs))

	if f := g.Filters; f.MinAccountAgeSeconds > 0 || f.MinServerStayDays > 0 ||
		f.MinLevel > 0 || f.MaxLevel > 0 || len(f.RequiredRoleIDs) > 0 {
		b.WriteString("\n\n__Entry requirements__\n")
		if f.MinAccountAgeSeconds > 0 {
			fmt.Fprintf(&b, "Account age: %s\n", common.FormatDuration(time.Duration(f.MinAccountAgeSeconds)*time.Second))
		}
		if f.MinServerStayDays > 0 {
			fmt.Fprintf(&b, "Server stay: %d days\n", f.MinServerStayDays)
		}
		if f.MinLevel > 0 {
			fmt.Fprintf(&b, "Trainer level: at least %d\n", f.MinLevel)
		}
		if f.MaxLevel > 0 {
			fmt.Fprintf(&b, "Trainer level: at most %d\n", f.MaxLevel)
		}
		if len(f.RequiredRoleIDs) > 0 {
			roles := make([]string, len(f.RequiredRoleIDs))
			for i, id := range f.RequiredRoleIDs {
				roles[i] = "<@&" + id + ">"
			}
			fmt.Fprintf(&b, "Role: %s\n", strings.Join(roles, " or "))
		}
	}

	color := common.ColorGold
	if g.EndedAt != nil {
		color = common.ColorInfo
	}
	embed := &discordgo.MessageEmbed{
		Title:       "🎉 " + g.Prize,
		Description: b.String(),
		Color:       color,
	}
	if g.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: g.ThumbnailURL}
	}
	if g.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: g.ImageURL}
	}
	return embed
}
