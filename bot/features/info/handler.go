package info

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sahilm/fuzzy"

	"steward/bot/common"
	"steward/dispatch"
	"steward/models"
)

// targetMember resolves an optional member argument, defaulting to the
// invoker.
func targetMember(ctx *dispatch.Context, i int) *discordgo.Member {
	if ctx.Has(i) {
		return ctx.MemberArg(i)
	}
	if ctx.Message.Member != nil {
		m := ctx.Message.Member
		if m.User == nil {
			m.User = ctx.Author()
		}
		return m
	}
	return &discordgo.Member{User: ctx.Author()}
}

func (f *Feature) handleHelp(ctx *dispatch.Context) error {
	if !ctx.Has(0) {
		return f.helpOverview(ctx)
	}

	query := strings.ToLower(ctx.String(0))
	cmd := f.reg.Lookup(query)
	if cmd == nil {
		// Closest names by fuzzy match.
		var names []string
		for _, c := range f.reg.Commands() {
			names = append(names, c.Name)
		}
		matches := fuzzy.Find(query, names)
		if len(matches) == 0 {
			return ctx.Reply("No command called `%s`.", query)
		}
		suggestions := make([]string, 0, 3)
		for i, m := range matches {
			if i == 3 {
				break
			}
			suggestions = append(suggestions, "`"+m.Str+"`")
		}
		return ctx.Reply("No command called `%s`. Did you mean %s?", query, strings.Join(suggestions, ", "))
	}

	var b strings.Builder
	b.WriteString(cmd.Description)
	if cmd.Usage != "" {
		fmt.Fprintf(&b, "\nUsage: `%s%s`", f.reg.Prefix(), cmd.Usage)
	}
	if len(cmd.Aliases) > 0 {
		fmt.Fprintf(&b, "\nAliases: %s", strings.Join(cmd.Aliases, ", "))
	}
	if len(cmd.Subcommands) > 0 {
		seen := make(map[string]bool)
		var subs []string
		for _, sub := range cmd.Subcommands {
			if !seen[sub.Name] {
				seen[sub.Name] = true
				subs = append(subs, sub.Name)
			}
		}
		sort.Strings(subs)
		fmt.Fprintf(&b, "\nSubcommands: %s", strings.Join(subs, ", "))
	}
	return ctx.ReplyEmbed(common.InfoEmbed(cmd.Name, b.String()))
}

func (f *Feature) helpOverview(ctx *dispatch.Context) error {
	byCategory := make(map[string][]string)
	for _, cmd := range f.reg.Commands() {
		byCategory[cmd.Category] = append(byCategory[cmd.Category], cmd.Name)
	}
	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	embed := &discordgo.MessageEmbed{
		Title:       "Commands",
		Description: fmt.Sprintf("Use `%shelp <command>` for details.", f.reg.Prefix()),
		Color:       common.ColorInfo,
	}
	for _, cat := range categories {
		names := byCategory[cat]
		sort.Strings(names)
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  cat,
			Value: "`" + strings.Join(names, "` `") + "`",
		})
	}
	return ctx.ReplyEmbed(embed)
}

func (f *Feature) handleBotInfo(ctx *dispatch.Context) error {
	return ctx.ReplyEmbed(&discordgo.MessageEmbed{
		Title: "Bot status",
		Color: common.ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Latency", Value: ctx.Session.HeartbeatLatency().Round(time.Millisecond).String(), Inline: true},
			{Name: "Uptime", Value: common.FormatDuration(time.Since(f.started)), Inline: true},
			{Name: "Servers", Value: fmt.Sprintf("%d", len(ctx.Session.State.Guilds)), Inline: true},
			{Name: "Go", Value: runtime.Version(), Inline: true},
		},
	})
}

func (f *Feature) handleUserInfo(ctx *dispatch.Context) error {
	member := targetMember(ctx, 0)
	user := member.User

	embed := &discordgo.MessageEmbed{
		Title:     common.DisplayName(member),
		Color:     common.ColorInfo,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("256")},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "ID", Value: user.ID, Inline: true},
			{Name: "Username", Value: user.Username, Inline: true},
		},
	}
	if created, err := discordgo.SnowflakeTimestamp(user.ID); err == nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Created", Value: common.FormatDiscordTimestamp(created, "R"), Inline: true,
		})
	}
	if !member.JoinedAt.IsZero() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Joined", Value: common.FormatDiscordTimestamp(member.JoinedAt, "R"), Inline: true,
		})
	}
	if len(member.Roles) > 0 {
		mentions := make([]string, len(member.Roles))
		for i, id := range member.Roles {
			mentions[i] = "<@&" + id + ">"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Roles", Value: strings.Join(mentions, " "),
		})
	}
	if at, ok, _ := f.misc.LastSeen(ctx.Ctx, ctx.GuildID(), user.ID); ok {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Last seen", Value: common.FormatDiscordTimestamp(at, "R"), Inline: true,
		})
	}
	return ctx.ReplyEmbed(embed)
}

func (f *Feature) handleServerInfo(ctx *dispatch.Context) error {
	g := ctx.Guild
	if g == nil {
		return ctx.Reply("This only works in a server.")
	}

	embed := &discordgo.MessageEmbed{
		Title: g.Name,
		Color: common.ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "ID", Value: g.ID, Inline: true},
			{Name: "Owner", Value: "<@" + g.OwnerID + ">", Inline: true},
			{Name: "Members", Value: fmt.Sprintf("%d", g.MemberCount), Inline: true},
			{Name: "Channels", Value: fmt.Sprintf("%d", len(g.Channels)), Inline: true},
			{Name: "Roles", Value: fmt.Sprintf("%d", len(g.Roles)), Inline: true},
			{Name: "Boost tier", Value: fmt.Sprintf("%d", g.PremiumTier), Inline: true},
		},
	}
	if created, err := discordgo.SnowflakeTimestamp(g.ID); err == nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Created", Value: common.FormatDiscordTimestamp(created, "R"), Inline: true,
		})
	}
	if g.Icon != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: g.IconURL("256")}
	}
	return ctx.ReplyEmbed(embed)
}

func (f *Feature) handleChannelInfo(ctx *dispatch.Context) error {
	channelID := ctx.ChannelID()
	if ctx.Has(0) {
		channelID = ctx.ChannelArg(0).ID
	}
	ch, err := ctx.Session.Channel(channelID)
	if err != nil {
		return fmt.Errorf("failed to inspect channel: %w", err)
	}

	embed := &discordgo.MessageEmbed{
		Title: "#" + ch.Name,
		Color: common.ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "ID", Value: ch.ID, Inline: true},
			{Name: "Type", Value: fmt.Sprintf("%d", ch.Type), Inline: true},
		},
	}
	if ch.Topic != "" {
		embed.Description = ch.Topic
	}
	if ch.RateLimitPerUser > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Slowmode", Value: fmt.Sprintf("%ds", ch.RateLimitPerUser), Inline: true,
		})
	}
	if created, err := discordgo.SnowflakeTimestamp(ch.ID); err == nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Created", Value: common.FormatDiscordTimestamp(created, "R"), Inline: true,
		})
	}
	return ctx.ReplyEmbed(embed)
}

func (f *Feature) handleRoleInfo(ctx *dispatch.Context) error {
	role := ctx.RoleArg(0)
	members := 0
	if ctx.Guild != nil {
		for _, m := range ctx.Guild.Members {
			for _, id := range m.Roles {
				if id == role.ID {
					members++
					break
				}
			}
		}
	}

	return ctx.ReplyEmbed(&discordgo.MessageEmbed{
		Title: role.Name,
		Color: role.Color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "ID", Value: role.ID, Inline: true},
			{Name: "Color", Value: fmt.Sprintf("#%06x", role.Color), Inline: true},
			{Name: "Position", Value: fmt.Sprintf("%d", role.Position), Inline: true},
			{Name: "Mentionable", Value: fmt.Sprintf("%t", role.Mentionable), Inline: true},
			{Name: "Hoisted", Value: fmt.Sprintf("%t", role.Hoist), Inline: true},
			{Name: "Members", Value: fmt.Sprintf("%d", members), Inline: true},
		},
	})
}

func (f *Feature) handleAvatar(ctx *dispatch.Context) error {
	member := targetMember(ctx, 0)
	return ctx.ReplyEmbed(&discordgo.MessageEmbed{
		Title: common.DisplayName(member) + "'s avatar",
		Color: common.ColorInfo,
		Image: &discordgo.MessageEmbedImage{URL: member.User.AvatarURL("512")},
	})
}

func (f *Feature) handleBanner(ctx *dispatch.Context) error {
	member := targetMember(ctx, 0)
	// Banners are only present on a full user fetch.
	user, err := ctx.Session.User(member.User.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch user: %w", err)
	}
	if user.Banner == "" {
		return ctx.Reply("**%s** has no profile banner.", common.DisplayName(member))
	}
	return ctx.ReplyEmbed(&discordgo.MessageEmbed{
		Title: common.DisplayName(member) + "'s banner",
		Color: common.ColorInfo,
		Image: &discordgo.MessageEmbedImage{URL: user.BannerURL("1024")},
	})
}

func (f *Feature) handleMembers(ctx *dispatch.Context) error {
	if ctx.Guild == nil {
		return ctx.Reply("This only works in a server.")
	}
	bots := 0
	for _, m := range ctx.Guild.Members {
		if m.User != nil && m.User.Bot {
			bots++
		}
	}
	return ctx.ReplyEmbed(common.InfoEmbed("Members", fmt.Sprintf(
		"**%d** total, of which %d known bots.", ctx.Guild.MemberCount, bots)))
}

func (f *Feature) handleInvites(ctx *dispatch.Context) error {
	invites, err := ctx.Session.GuildInvites(ctx.GuildID())
	if err != nil {
		return fmt.Errorf("failed to list invites: %w", err)
	}
	if len(invites) == 0 {
		return ctx.Reply("No active invites.")
	}

	var b strings.Builder
	for _, inv := range invites {
		inviter := "unknown"
		if inv.Inviter != nil {
			inviter = inv.Inviter.Username
		}
		fmt.Fprintf(&b, "`%s` by %s, %d use(s)\n", inv.Code, inviter, inv.Uses)
	}
	return ctx.ReplyEmbed(common.InfoEmbed("Invites", b.String()))
}

func (f *Feature) handlePoll(ctx *dispatch.Context) error {
	question := strings.TrimSpace(ctx.String(0))
	msg, err := ctx.Session.ChannelMessageSendEmbed(ctx.ChannelID(), &discordgo.MessageEmbed{
		Title:       "📊 Poll",
		Description: question,
		Color:       common.ColorInfo,
		Footer:      &discordgo.MessageEmbedFooter{Text: "by " + ctx.Author().Username},
	})
	if err != nil {
		return err
	}
	for _, emoji := range []string{"👍", "👎", "🤷"} {
		if err := ctx.Session.MessageReactionAdd(ctx.ChannelID(), msg.ID, emoji); err != nil {
			return fmt.Errorf("failed to seed poll reaction: %w", err)
		}
	}
	return nil
}

func (f *Feature) handleQuickPoll(ctx *dispatch.Context) error {
	for _, emoji := range []string{"👍", "👎"} {
		if err := ctx.Session.MessageReactionAdd(ctx.ChannelID(), ctx.Message.ID, emoji); err != nil {
			return fmt.Errorf("failed to seed poll reaction: %w", err)
		}
	}
	return nil
}

func (f *Feature) handleSeen(ctx *dispatch.Context) error {
	member := ctx.MemberArg(0)
	at, ok, err := f.misc.LastSeen(ctx.Ctx, ctx.GuildID(), member.User.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ctx.Reply("I haven't seen **%s** speak here.", common.DisplayName(member))
	}
	return ctx.Reply("**%s** last spoke %s.", common.DisplayName(member), common.FormatDiscordTimestamp(at, "R"))
}

func (f *Feature) handleNames(ctx *dispatch.Context) error {
	member := ctx.MemberArg(0)
	history, err := f.misc.NameHistory(ctx.Ctx, member.User.ID)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return ctx.Reply("No recorded name changes for **%s**.", common.DisplayName(member))
	}

	var b strings.Builder
	for i := len(history) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "%s — %s\n", history[i].Name, common.FormatDiscordTimestamp(history[i].At, "R"))
	}
	return ctx.ReplyEmbed(common.InfoEmbed("Name history", b.String()))
}

func (f *Feature) handleRemind(ctx *dispatch.Context) error {
	delay := ctx.Duration(0)
	text := strings.TrimSpace(ctx.String(1))
	if delay < time.Minute || delay > 365*24*time.Hour {
		return ctx.Reply("Reminders run from 1 minute to a year.")
	}
	if text == "" {
		return ctx.Reply("What should I remind you about?")
	}

	id, err := f.mod.AddReminder(ctx.Ctx, ctx.Author().ID, &models.Reminder{
		Reason:    text,
		ChannelID: ctx.ChannelID(),
		GuildID:   ctx.GuildID(),
		CreatedAt: time.Now(),
		Expires:   time.Now().Add(delay),
	})
	if err != nil {
		return err
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"⏰ I'll remind you in %s. (`%s`)", common.FormatDuration(delay), id)))
}

func (f *Feature) handleRemindList(ctx *dispatch.Context) error {
	reminders, err := f.mod.Reminders(ctx.Ctx, ctx.Author().ID)
	if err != nil {
		return err
	}
	if len(reminders) == 0 {
		return ctx.Reply("You have no pending reminders.")
	}

	var b strings.Builder
	for _, r := range reminders {
		fmt.Fprintf(&b, "`%s` %s — %s\n", r.ID, common.FormatDiscordTimestamp(r.Expires, "R"), r.Reason)
	}
	return ctx.ReplyEmbed(common.InfoEmbed("Your reminders", b.String()))
}

func (f *Feature) handleRemindRemove(ctx *dispatch.Context) error {
	if err := f.mod.RemoveReminder(ctx.Ctx, ctx.Author().ID, ctx.String(0)); err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed("Reminder removed."))
}
