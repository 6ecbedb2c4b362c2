package moderation

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"steward/bot/common"
	"steward/dispatch"
)

// bulkDeleteHorizon is Discord's age cutoff for bulk deletion.
const bulkDeleteHorizon = 14 * 24 * time.Hour

const maxPurge = 1000

func (f *Feature) registerPurge(reg *dispatch.Registry) {
	count := dispatch.Param{Name: "count", Kind: dispatch.KindInt}

	group := &dispatch.Command{
		Name: "purge", Aliases: []string{"clear"}, Category: "moderation",
		Description: "Bulk delete recent messages",
		Usage:       "purge <count>",
		Permissions: discordgo.PermissionManageMessages,
		Params:      []dispatch.Param{count},
		Run: func(ctx *dispatch.Context) error {
			return f.purge(ctx, int(ctx.Int(0)), nil)
		},
	}

	group.Sub(&dispatch.Command{
		Name:        "bots",
		Description: "Delete recent bot messages",
		Usage:       "purge bots <count>",
		Params:      []dispatch.Param{count},
		Run: func(ctx *dispatch.Context) error {
			return f.purge(ctx, int(ctx.Int(0)), func(m *discordgo.Message) bool {
				return m.Author != nil && m.Author.Bot
			})
		},
	})
	group.Sub(&dispatch.Command{
		Name:        "humans",
		Description: "Delete recent non-bot messages",
		Usage:       "purge humans <count>",
		Params:      []dispatch.Param{count},
		Run: func(ctx *dispatch.Context) error {
			return f.purge(ctx, int(ctx.Int(0)), func(m *discordgo.Message) bool {
				return m.Author != nil && !m.Author.Bot
			})
		},
	})
	group.Sub(&dispatch.Command{
		Name:        "user",
		Description: "Delete recent messages from one member",
		Usage:       "purge user <member> <count>",
		Params: []dispatch.Param{
			{Name: "member", Kind: dispatch.KindMember},
			count,
		},
		Run: func(ctx *dispatch.Context) error {
			target := ctx.MemberArg(0).User.ID
			return f.purge(ctx, int(ctx.Int(1)), func(m *discordgo.Message) bool {
				return m.Author != nil && m.Author.ID == target
			})
		},
	})
	group.Sub(&dispatch.Command{
		Name:        "contains",
		Description: "Delete recent messages containing a phrase",
		Usage:       "purge contains <count> <phrase>",
		Params: []dispatch.Param{
			count,
			{Name: "phrase", Kind: dispatch.KindRemainder},
		},
		Run: func(ctx *dispatch.Context) error {
			phrase := strings.ToLower(ctx.String(1))
			return f.purge(ctx, int(ctx.Int(0)), func(m *discordgo.Message) bool {
				return strings.Contains(strings.ToLower(m.Content), phrase)
			})
		},
	})
	group.Sub(&dispatch.Command{
		Name:        "links",
		Description: "Delete recent messages with links",
		Usage:       "purge links <count>",
		Params:      []dispatch.Param{count},
		Run: func(ctx *dispatch.Context) error {
			return f.purge(ctx, int(ctx.Int(0)), func(m *discordgo.Message) bool {
				return strings.Contains(m.Content, "http://") || strings.Contains(m.Content, "https://")
			})
		},
	})
	group.Sub(&dispatch.Command{
		Name:        "images",
		Description: "Delete recent messages with attachments",
		Usage:       "purge images <count>",
		Params:      []dispatch.Param{count},
		Run: func(ctx *dispatch.Context) error {
			return f.purge(ctx, int(ctx.Int(0)), func(m *discordgo.Message) bool {
				return len(m.Attachments) > 0
			})
		},
	})
	group.Sub(&dispatch.Command{
		Name:        "embeds",
		Description: "Delete recent messages with embeds",
		Usage:       "purge embeds <count>",
		Params:      []dispatch.Param{count},
		Run: func(ctx *dispatch.Context) error {
			return f.purge(ctx, int(ctx.Int(0)), func(m *discordgo.Message) bool {
				return len(m.Embeds) > 0
			})
		},
	})

	reg.Register(group)
}

// purge walks message history newest first, collecting up to want matches,
// and bulk deletes them. Messages older than the 14 day horizon cannot be
// bulk deleted and stop the walk.
func (f *Feature) purge(ctx *dispatch.Context, want int, match func(*discordgo.Message) bool) error {
	if want < 1 || want > maxPurge {
		return ctx.Reply("Purge between 1 and %d messages.", maxPurge)
	}

	horizon := time.Now().Add(-bulkDeleteHorizon)
	var ids []string
	beforeID := ctx.Message.ID
	hitHorizon := false

	for len(ids) < want {
		batch, err := ctx.Session.ChannelMessages(ctx.ChannelID(), 100, beforeID, "", "")
		if err != nil {
			return fmt.Errorf("failed to fetch messages for purge: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, m := range batch {
			beforeID = m.ID
			if m.Timestamp.Before(horizon) {
				hitHorizon = true
				break
			}
			if match != nil && !match(m) {
				continue
			}
			ids = append(ids, m.ID)
			if len(ids) == want {
				break
			}
		}
		if hitHorizon {
			break
		}
	}

	if len(ids) == 0 {
		if hitHorizon {
			return ctx.Reply("Nothing to purge inside the 14 day bulk delete window.")
		}
		return ctx.Reply("Nothing matched.")
	}

	// Bulk delete takes at most 100 ids per call.
	for start := 0; start < len(ids); start += 100 {
		end := start + 100
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		if len(chunk) == 1 {
			if err := ctx.Session.ChannelMessageDelete(ctx.ChannelID(), chunk[0]); err != nil {
				return fmt.Errorf("failed to delete message: %w", err)
			}
			continue
		}
		if err := ctx.Session.ChannelMessagesBulkDelete(ctx.ChannelID(), chunk); err != nil {
			return fmt.Errorf("failed to bulk delete messages: %w", err)
		}
	}

	f.record(ctx, "purge", ctx.ChannelID(), fmt.Sprintf("%d messages", len(ids)))
	note := fmt.Sprintf("🧹 Deleted %d message(s).", len(ids))
	if hitHorizon && len(ids) < want {
		note += " Older messages are past the 14 day bulk delete window."
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(note))
}
