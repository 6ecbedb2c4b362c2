package giveaways

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"steward/models"
	"steward/service"
)

// drawAPI is the slice of the session the draw path touches.
type drawAPI interface {
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactions(channelID, messageID, emojiID string, limit int, beforeID, afterID string, options ...discordgo.RequestOption) ([]*discordgo.User, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
}

// SweepDue draws every giveaway past its end time, across all guilds with
// records. Intended as a scheduler task body.
func (f *Feature) SweepDue(ctx context.Context, session drawAPI) error {
	guilds, err := f.giveaways.Guilds(ctx)
	if err != nil {
		return fmt.Errorf("failed to list giveaway guilds: %w", err)
	}

	for _, guildID := range guilds {
		due, err := f.giveaways.Due(ctx, guildID, time.Now())
		if err != nil {
			log.WithError(err).WithField("guild", guildID).Error("Failed to scan due giveaways")
			continue
		}
		for _, g := range due {
			if err := f.draw(ctx, session, g); err != nil {
				log.WithError(err).WithFields(log.Fields{
					"guild":   g.GuildID,
					"message": g.MessageID,
				}).Error("Failed to draw giveaway")
			}
		}
	}
	return nil
}

// draw ends one giveaway: collect reactors, filter, persist the result and
// announce it. A deleted announcement message drops the record silently.
func (f *Feature) draw(ctx context.Context, session drawAPI, g *models.Giveaway) error {
	if _, err := session.ChannelMessage(g.ChannelID, g.MessageID); err != nil {
		if isUnknownMessage(err) {
			return f.giveaways.Drop(ctx, g.GuildID, g.MessageID)
		}
		return fmt.Errorf("failed to fetch giveaway message: %w", err)
	}

	entrants, err := f.collectEntrants(ctx, session, g)
	if err != nil {
		return err
	}
	valid := service.EligibleEntries(g, entrants, time.Now())

	ended, err := f.giveaways.Complete(ctx, g.GuildID, g.MessageID, valid, time.Now())
	if err != nil {
		return err
	}

	if _, err := session.ChannelMessageEditEmbed(ended.ChannelID, ended.MessageID, renderGiveaway(ended)); err != nil {
		log.WithError(err).WithField("message", ended.MessageID).Warn("Failed to edit ended giveaway embed")
	}

	var announcement string
	if len(ended.WinnerIDs) == 0 {
		announcement = fmt.Sprintf("Nobody won **%s**, there were no valid entries.", ended.Prize)
	} else {
		announcement = fmt.Sprintf("🎉 Congratulations %s, you won **%s**!",
			mentionList(ended.WinnerIDs), ended.Prize)
	}
	if _, err := session.ChannelMessageSend(ended.ChannelID, announcement); err != nil {
		log.WithError(err).WithField("message", ended.MessageID).Warn("Failed to announce giveaway winners")
	}

	f.rewardRoles(session, ended, ended.WinnerIDs)
	return nil
}

// collectEntrants pages through the entry reaction and snapshots each
// non-bot reactor for filter evaluation.
func (f *Feature) collectEntrants(ctx context.Context, session drawAPI, g *models.Giveaway) ([]service.EntrantInfo, error) {
	var entrants []service.EntrantInfo
	afterID := ""
	for {
		users, err := session.MessageReactions(g.ChannelID, g.MessageID, models.EntryEmoji, 100, "", afterID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch giveaway reactions: %w", err)
		}
		if len(users) == 0 {
			break
		}

		for _, u := range users {
			afterID = u.ID
			if u.Bot {
				continue
			}
			entrants = append(entrants, f.snapshotEntrant(ctx, session, g.GuildID, u.ID))
		}
		if len(users) < 100 {
			break
		}
	}
	return entrants, nil
}

func (f *Feature) snapshotEntrant(ctx context.Context, session drawAPI, guildID, userID string) service.EntrantInfo {
	info := service.EntrantInfo{UserID: userID}

	member, err := session.GuildMember(guildID, userID)
	if err != nil || member == nil {
		return info
	}
	info.IsMember = true
	info.JoinedAt = member.JoinedAt
	info.RoleIDs = member.Roles
	if created, err := discordgo.SnowflakeTimestamp(userID); err == nil {
		info.AccountCreated = created
	}
	if trainer, err := f.pokemon.Trainer(ctx, userID); err == nil {
		info.Level = trainer.Level
	}
	return info
}

// rewardRoles grants the configured reward roles, logging rather than
// failing when a single grant is refused.
func (f *Feature) rewardRoles(session drawAPI, g *models.Giveaway, winners []string) {
	for _, roleID := range g.Filters.RewardRoleIDs {
		for _, userID := range winners {
			if err := session.GuildMemberRoleAdd(g.GuildID, userID, roleID); err != nil {
				log.WithError(err).WithFields(log.Fields{
					"guild": g.GuildID,
					"user":  userID,
					"role":  roleID,
				}).Warn("Failed to grant giveaway reward role")
			}
		}
	}
}

func isUnknownMessage(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		return restErr.Message.Code == discordgo.ErrCodeUnknownMessage
	}
	return false
}
