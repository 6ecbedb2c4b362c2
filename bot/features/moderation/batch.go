package moderation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"steward/bot/common"
	"steward/dispatch"
)

// interActionSleep paces batch bans so one command cannot saturate the rate
// limiter.
const interActionSleep = 500 * time.Millisecond

// retryWaits is the ladder applied to a failing batch action before the
// target is skipped.
var retryWaits = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

func (f *Feature) registerBatch(reg *dispatch.Registry) {
	reg.Register(&dispatch.Command{
		Name: "raid", Category: "moderation",
		Description: "Ban everyone who joined within a window",
		Usage:       "raid <window> [confirm]",
		Permissions: discordgo.PermissionAdministrator,
		Params: []dispatch.Param{
			{Name: "window", Kind: dispatch.KindDuration},
			{Name: "confirm", Kind: dispatch.KindString, Optional: true},
		},
		Run: f.handleRaid,
	})
	reg.Register(&dispatch.Command{
		Name: "raid_cancel", Category: "moderation",
		Description: "Stop a running raid ban",
		Permissions: discordgo.PermissionAdministrator,
		Run:         f.cancelHandler("raid"),
	})
	reg.Register(&dispatch.Command{
		Name: "recentban", Category: "moderation",
		Description: "Ban the N most recent joins",
		Usage:       "recentban <count> [confirm]",
		Permissions: discordgo.PermissionAdministrator,
		Params: []dispatch.Param{
			{Name: "count", Kind: dispatch.KindInt},
			{Name: "confirm", Kind: dispatch.KindString, Optional: true},
		},
		Run: f.handleRecentBan,
	})
	reg.Register(&dispatch.Command{
		Name: "unbanall", Category: "moderation",
		Description: "Lift every ban in the server",
		Usage:       "unbanall [confirm]",
		Permissions: discordgo.PermissionAdministrator,
		Params:      []dispatch.Param{{Name: "confirm", Kind: dispatch.KindString, Optional: true}},
		Run:         f.handleUnbanAll,
	})
	reg.Register(&dispatch.Command{
		Name: "unbanall_cancel", Category: "moderation",
		Description: "Stop a running unbanall",
		Permissions: discordgo.PermissionAdministrator,
		Run:         f.cancelHandler("unbanall"),
	})
}

func (f *Feature) cancelKey(guildID, op string) string {
	return guildID + ":" + op
}

func (f *Feature) requestCancel(guildID, op string) {
	f.mu.Lock()
	f.cancelled[f.cancelKey(guildID, op)] = true
	f.mu.Unlock()
}

func (f *Feature) resetCancel(guildID, op string) {
	f.mu.Lock()
	delete(f.cancelled, f.cancelKey(guildID, op))
	f.mu.Unlock()
}

func (f *Feature) isCancelled(guildID, op string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled[f.cancelKey(guildID, op)]
}

func (f *Feature) cancelHandler(op string) dispatch.HandlerFunc {
	return func(ctx *dispatch.Context) error {
		f.requestCancel(ctx.GuildID(), op)
		return ctx.ReplyEmbed(common.SuccessEmbed("Cancelling. In-flight actions finish, the rest are skipped."))
	}
}

func confirmed(ctx *dispatch.Context, i int) bool {
	return ctx.Has(i) && strings.EqualFold(ctx.String(i), "confirm")
}

// withRetries runs fn, retrying on the wait ladder. Returns false when every
// attempt failed and the target should be skipped.
func (f *Feature) withRetries(fn func() error) bool {
	if fn() == nil {
		return true
	}
	for _, wait := range retryWaits {
		f.sleep(wait)
		if fn() == nil {
			return true
		}
	}
	return false
}

// allMembers pages the full member list through the REST API. Gateway state
// is not guaranteed to be complete for large guilds.
func allMembers(ctx *dispatch.Context) ([]*discordgo.Member, error) {
	var members []*discordgo.Member
	after := ""
	for {
		page, err := ctx.Session.GuildMembers(ctx.GuildID(), after, 1000)
		if err != nil {
			return nil, fmt.Errorf("failed to list members: %w", err)
		}
		if len(page) == 0 {
			break
		}
		members = append(members, page...)
		after = page[len(page)-1].User.ID
		if len(page) < 1000 {
			break
		}
	}
	return members, nil
}

// banBatch bans each target with pacing, retries and cancel checks. Returns
// banned and skipped counts.
func (f *Feature) banBatch(ctx *dispatch.Context, op, reason string, targets []string) (int, int) {
	f.resetCancel(ctx.GuildID(), op)
	banned, skipped := 0, 0
	for _, userID := range targets {
		if f.isCancelled(ctx.GuildID(), op) {
			break
		}
		userID := userID
		ok := f.withRetries(func() error {
			return ctx.Session.GuildBanCreateWithReason(ctx.GuildID(), userID, reason, 1)
		})
		if ok {
			banned++
		} else {
			skipped++
			log.WithFields(log.Fields{"guild": ctx.GuildID(), "user": userID}).
				Warn("Skipped batch ban target after retries")
		}
		f.sleep(interActionSleep)
	}
	return banned, skipped
}

func (f *Feature) handleRaid(ctx *dispatch.Context) error {
	window := ctx.Duration(0)
	if window < time.Minute || window > 24*time.Hour {
		return ctx.Reply("Raid windows run from 1 minute to 24 hours.")
	}

	members, err := allMembers(ctx)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-window)
	var targets []string
	for _, m := range members {
		if m.User.Bot || m.JoinedAt.Before(cutoff) {
			continue
		}
		targets = append(targets, m.User.ID)
	}

	if len(targets) == 0 {
		return ctx.Reply("Nobody joined within that window.")
	}
	if !confirmed(ctx, 1) {
		return ctx.Reply("This bans **%d** member(s) who joined in the last %s. Re-run with `confirm` to proceed, `raid_cancel` stops it.",
			len(targets), common.FormatDuration(window))
	}

	banned, skipped := f.banBatch(ctx, "raid", "raid cleanup", targets)
	f.record(ctx, "raid", ctx.GuildID(), fmt.Sprintf("%d banned, %d skipped", banned, skipped))
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Raid ban finished: %d banned, %d skipped.", banned, skipped)))
}

func (f *Feature) handleRecentBan(ctx *dispatch.Context) error {
	count := int(ctx.Int(0))
	if count < 1 || count > 200 {
		return ctx.Reply("recentban handles 1 to 200 members.")
	}

	members, err := allMembers(ctx)
	if err != nil {
		return err
	}
	// Newest joins first.
	sort.Slice(members, func(i, j int) bool {
		return members[i].JoinedAt.After(members[j].JoinedAt)
	})

	var targets []string
	for _, m := range members {
		if m.User.Bot || m.User.ID == ctx.Author().ID {
			continue
		}
		targets = append(targets, m.User.ID)
		if len(targets) == count {
			break
		}
	}

	if len(targets) == 0 {
		return ctx.Reply("Nobody to ban.")
	}
	if !confirmed(ctx, 1) {
		return ctx.Reply("This bans the **%d** most recent join(s). Re-run with `confirm` to proceed, `raid_cancel` stops it.", len(targets))
	}

	banned, skipped := f.banBatch(ctx, "raid", "recent join cleanup", targets)
	f.record(ctx, "recentban", ctx.GuildID(), fmt.Sprintf("%d banned, %d skipped", banned, skipped))
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Recent ban finished: %d banned, %d skipped.", banned, skipped)))
}

func (f *Feature) handleUnbanAll(ctx *dispatch.Context) error {
	var bans []*discordgo.GuildBan
	before := ""
	for {
		page, err := ctx.Session.GuildBans(ctx.GuildID(), 1000, before, "")
		if err != nil {
			return fmt.Errorf("failed to list bans: %w", err)
		}
		if len(page) == 0 {
			break
		}
		bans = append(bans, page...)
		before = page[len(page)-1].User.ID
		if len(page) < 1000 {
			break
		}
	}

	if len(bans) == 0 {
		return ctx.Reply("The ban list is empty.")
	}
	if !confirmed(ctx, 0) {
		return ctx.Reply("This lifts **%d** ban(s). Re-run with `confirm` to proceed, `unbanall_cancel` stops it.", len(bans))
	}

	f.resetCancel(ctx.GuildID(), "unbanall")
	lifted, skipped := 0, 0
	for _, ban := range bans {
		if f.isCancelled(ctx.GuildID(), "unbanall") {
			break
		}
		// Hard bans stay.
		if _, hard, _ := f.mod.HardBan(ctx.Ctx, ctx.GuildID(), ban.User.ID); hard {
			skipped++
			continue
		}
		userID := ban.User.ID
		ok := f.withRetries(func() error {
			return ctx.Session.GuildBanDelete(ctx.GuildID(), userID)
		})
		if ok {
			lifted++
		} else {
			skipped++
		}
		f.sleep(interActionSleep)
	}

	f.record(ctx, "unbanall", ctx.GuildID(), fmt.Sprintf("%d lifted, %d skipped", lifted, skipped))
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Unban all finished: %d lifted, %d skipped.", lifted, skipped)))
}
