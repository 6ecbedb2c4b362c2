package streams

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"steward/bot/common"
	"steward/dispatch"
	"steward/streams"
)

func (f *Feature) targetChannelID(ctx *dispatch.Context, i int) string {
	if ctx.Has(i) {
		return ctx.ChannelArg(i).ID
	}
	return ctx.ChannelID()
}

func (f *Feature) handleAdd(ctx *dispatch.Context) error {
	username := strings.ToLower(ctx.String(0))
	channelID := f.targetChannelID(ctx, 1)

	if err := f.streams.Subscribe(ctx.GuildID(), channelID, username); err != nil {
		if errors.Is(err, streams.ErrAlreadySubscribed) {
			return ctx.Reply("<#%s> already announces `%s`.", channelID, username)
		}
		return err
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"I'll announce `%s` in <#%s> when they go live.", username, channelID)))
}

func (f *Feature) handleRemove(ctx *dispatch.Context) error {
	username := strings.ToLower(ctx.String(0))
	channelID := f.targetChannelID(ctx, 1)

	if err := f.streams.Unsubscribe(ctx.GuildID(), channelID, username); err != nil {
		if errors.Is(err, streams.ErrNotSubscribed) {
			return ctx.Reply("<#%s> does not announce `%s`.", channelID, username)
		}
		return err
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"Stopped announcing `%s` in <#%s>.", username, channelID)))
}

func (f *Feature) handleList(ctx *dispatch.Context) error {
	subs, err := f.streams.Subscriptions(ctx.GuildID())
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return ctx.Reply("No stream watches on this server.")
	}

	channels := make([]string, 0, len(subs))
	for channelID := range subs {
		channels = append(channels, channelID)
	}
	sort.Strings(channels)

	var b strings.Builder
	for _, channelID := range channels {
		names := append([]string(nil), subs[channelID]...)
		sort.Strings(names)
		fmt.Fprintf(&b, "<#%s>: `%s`\n", channelID, strings.Join(names, "` `"))
	}
	return ctx.ReplyEmbed(common.InfoEmbed("Kick stream watches", b.String()))
}

func (f *Feature) handleMessage(ctx *dispatch.Context) error {
	username := strings.ToLower(ctx.String(0))
	template := ""
	if ctx.Has(1) {
		template = strings.TrimSpace(ctx.String(1))
	}

	if err := f.streams.SetTemplate(ctx.GuildID(), username, template); err != nil {
		return err
	}
	if template == "" {
		return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
			"Announcement for `%s` reset to the default.", username)))
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"Announcement for `%s` set. Placeholders: {username} {title} {game} {viewers} {url}.", username)))
}
