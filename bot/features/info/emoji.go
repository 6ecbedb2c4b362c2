package info

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"steward/bot/common"
	"steward/dispatch"
)

// maxEmojiBytes is Discord's upload ceiling for custom emoji.
const maxEmojiBytes = 256 * 1024

var emojiHTTP = &http.Client{Timeout: 10 * time.Second}

func (f *Feature) registerEmoji(reg *dispatch.Registry) {
	group := &dispatch.Command{
		Name: "emoji", Category: "info",
		Description: "Manage custom emoji",
		Usage:       "emoji <add|remove>",
		Permissions: discordgo.PermissionManageGuildExpressions,
	}

	group.Sub(&dispatch.Command{
		Name:        "add",
		Description: "Upload an emoji from a url",
		Usage:       "emoji add <name> <url>",
		Params: []dispatch.Param{
			{Name: "name", Kind: dispatch.KindString},
			{Name: "url", Kind: dispatch.KindString},
		},
		Run: f.handleEmojiAdd,
	})
	group.Sub(&dispatch.Command{
		Name:        "remove",
		Description: "Delete a custom emoji by name",
		Usage:       "emoji remove <name>",
		Params:      []dispatch.Param{{Name: "name", Kind: dispatch.KindString}},
		Run:         f.handleEmojiRemove,
	})

	reg.Register(group)
}

func (f *Feature) handleEmojiAdd(ctx *dispatch.Context) error {
	name := strings.ToLower(ctx.String(0))
	url := ctx.String(1)
	if len(name) < 2 || len(name) > 32 {
		return ctx.Reply("Emoji names are 2 to 32 characters.")
	}

	resp, err := emojiHTTP.Get(url)
	if err != nil {
		return fmt.Errorf("failed to download emoji image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ctx.Reply("That url answered with status %d.", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxEmojiBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read emoji image: %w", err)
	}
	if len(data) > maxEmojiBytes {
		return ctx.Reply("Emoji images are capped at 256 KiB.")
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return ctx.Reply("That url is not an image.")
	}
	image := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))

	emoji, err := ctx.Session.GuildEmojiCreate(ctx.GuildID(), &discordgo.EmojiParams{
		Name:  name,
		Image: image,
	})
	if err != nil {
		return fmt.Errorf("failed to create emoji: %w", err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Added <:%s:%s>.", emoji.Name, emoji.ID)))
}

func (f *Feature) handleEmojiRemove(ctx *dispatch.Context) error {
	name := strings.ToLower(ctx.String(0))
	emojis, err := ctx.Session.GuildEmojis(ctx.GuildID())
	if err != nil {
		return fmt.Errorf("failed to list emoji: %w", err)
	}
	for _, e := range emojis {
		if strings.EqualFold(e.Name, name) {
			if err := ctx.Session.GuildEmojiDelete(ctx.GuildID(), e.ID); err != nil {
				return fmt.Errorf("failed to delete emoji: %w", err)
			}
			return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Deleted `%s`.", name)))
		}
	}
	return ctx.Reply("No custom emoji called `%s`.", name)
}
