// Package bot owns the Discord session: it builds the command registry,
// fans gateway events out to the features and exposes the periodic sweeps
// the scheduler drives.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	cryptofeature "steward/bot/features/crypto"
	"steward/bot/features/economy"
	"steward/bot/features/giveaways"
	"steward/bot/features/info"
	"steward/bot/features/moderation"
	"steward/bot/features/pokemon"
	streamsfeature "steward/bot/features/streams"
	"steward/bot/features/voicemaster"
	"steward/crypto"
	"steward/dispatch"
	"steward/events"
	"steward/scheduler"
	"steward/service"
	"steward/store"
	"steward/streams"
	"steward/voice"
)

// Config holds bot configuration
type Config struct {
	Token  string
	Prefix string
}

// Bot wires the gateway session to the features and services.
type Bot struct {
	config   Config
	session  *discordgo.Session
	registry *dispatch.Registry
	arbiter  *voice.Arbiter

	economy    service.EconomyService
	pokemon    service.PokemonService
	giveaways  service.GiveawayService
	moderation service.ModerationService
	misc       service.MiscService

	giveawayFeature *giveaways.Feature
	cryptoFeature   *cryptofeature.Feature
	eventBus        *events.Bus
}

func New(config Config, economySvc service.EconomyService, pokemonSvc service.PokemonService, giveawaySvc service.GiveawayService, moderationSvc service.ModerationService, miscSvc service.MiscService, alertSvc service.CryptoAlertService, st *store.Store, market *crypto.Client, streamSvc *streams.Service, eventBus *events.Bus) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsAll
	dg.State.MaxMessageCount = 100

	bot := &Bot{
		config:     config,
		session:    dg,
		arbiter:    voice.NewArbiter(st, dg),
		economy:    economySvc,
		pokemon:    pokemonSvc,
		giveaways:  giveawaySvc,
		moderation: moderationSvc,
		misc:       miscSvc,
		eventBus:   eventBus,
	}

	// The restriction map gates prefixed commands per guild role.
	bot.registry = dispatch.NewRegistry(config.Prefix, moderationSvc)

	bot.giveawayFeature = giveaways.New(giveawaySvc, pokemonSvc)
	bot.cryptoFeature = cryptofeature.New(market, alertSvc)
	features := []interface {
		Register(reg *dispatch.Registry)
	}{
		info.New(miscSvc, moderationSvc),
		economy.New(economySvc),
		pokemon.New(pokemonSvc, economySvc),
		bot.giveawayFeature,
		voicemaster.New(bot.arbiter),
		moderation.New(moderationSvc),
		// Streams attaches to the kick command, so moderation registers first.
		streamsfeature.New(streamSvc),
		bot.cryptoFeature,
	}
	for _, f := range features {
		f.Register(bot.registry)
	}

	dg.AddHandler(bot.onMessageCreate)
	dg.AddHandler(bot.onVoiceStateUpdate)
	dg.AddHandler(bot.onGuildMemberAdd)
	dg.AddHandler(bot.onGuildMemberUpdate)
	dg.AddHandler(bot.onGuildBanRemove)

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Voice state arrives with the guild create events that follow ready,
	// so the reconcile pass waits a moment after connecting.
	go func() {
		time.Sleep(5 * time.Second)
		bot.reconcileVoice()
	}()

	return bot, nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

// Announce sends a plain message to a channel. It satisfies the stream
// poller's announcer.
func (b *Bot) Announce(channelID, content string) error {
	_, err := b.session.ChannelMessageSend(channelID, content)
	return err
}

// RegisterTasks adds the periodic sweeps to the scheduler.
func (b *Bot) RegisterTasks(runner *scheduler.Runner) {
	runner.Add("giveaways", time.Minute, func(ctx context.Context) error {
		return b.giveawayFeature.SweepDue(ctx, b.session)
	})
	runner.Add("temp-roles", time.Minute, b.sweepTempRoles)
	runner.Add("temp-bans", time.Minute, b.sweepTempBans)
	runner.Add("jails", time.Minute, b.sweepJails)
	runner.Add("reminders", time.Minute, b.sweepReminders)
	runner.Add("crypto-alerts", time.Minute, func(ctx context.Context) error {
		return b.cryptoFeature.SweepAlerts(ctx, b.Announce)
	})
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	ctx := context.Background()
	if m.GuildID != "" {
		if b.moderation.IsStfu(ctx, m.GuildID, m.Author.ID) {
			if err := s.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
				log.WithFields(log.Fields{"user": m.Author.ID, "error": err}).Warn("Failed to delete muted user's message")
			}
			return
		}
		if err := b.misc.TouchSeen(ctx, m.GuildID, m.Author.ID, time.Now()); err != nil {
			log.WithFields(log.Fields{"user": m.Author.ID, "error": err}).Warn("Failed to record last-seen")
		}
		if err := b.misc.RecordName(ctx, m.Author.ID, m.Author.Username, time.Now()); err != nil {
			log.WithFields(log.Fields{"user": m.Author.ID, "error": err}).Warn("Failed to record username")
		}
	}

	b.registry.HandleMessage(s, m)
}

func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	left := ""
	if v.BeforeUpdate != nil {
		left = v.BeforeUpdate.ChannelID
	}
	if left == v.ChannelID {
		// Mute or deafen toggle, not a move.
		return
	}

	leftEmpty := true
	if left != "" {
		if guild, err := s.State.Guild(v.GuildID); err == nil {
			for _, vs := range guild.VoiceStates {
				if vs.ChannelID == left && vs.UserID != v.UserID {
					leftEmpty = false
					break
				}
			}
		}
	}

	displayName := v.UserID
	var roles []string
	if member, err := s.State.Member(v.GuildID, v.UserID); err == nil && member.User != nil {
		displayName = member.User.Username
		if member.User.GlobalName != "" {
			displayName = member.User.GlobalName
		}
		if member.Nick != "" {
			displayName = member.Nick
		}
		roles = member.Roles
	}

	if err := b.arbiter.HandleVoiceState(v.GuildID, v.UserID, displayName, roles, v.ChannelID, left, leftEmpty); err != nil {
		log.WithFields(log.Fields{"guild": v.GuildID, "user": v.UserID, "error": err}).Error("Voice state handling failed")
	}
}

// onGuildMemberAdd re-applies sticky roles and the jail role to returning
// members.
func (b *Bot) onGuildMemberAdd(s *discordgo.Session, e *discordgo.GuildMemberAdd) {
	ctx := context.Background()

	sticky, err := b.moderation.StickyRoles(ctx, e.GuildID, e.User.ID)
	if err != nil {
		log.WithFields(log.Fields{"user": e.User.ID, "error": err}).Warn("Failed to load sticky roles")
	}
	for _, roleID := range sticky {
		if err := s.GuildMemberRoleAdd(e.GuildID, e.User.ID, roleID); err != nil {
			log.WithFields(log.Fields{"user": e.User.ID, "role": roleID, "error": err}).Warn("Failed to re-apply sticky role")
		}
	}

	if _, jailed, err := b.moderation.Jailed(ctx, e.GuildID, e.User.ID); err == nil && jailed {
		roleID, err := b.moderation.JailRole(ctx, e.GuildID)
		if err != nil {
			return
		}
		roles := []string{roleID}
		if _, err := s.GuildMemberEdit(e.GuildID, e.User.ID, &discordgo.GuildMemberParams{Roles: &roles}); err != nil {
			log.WithFields(log.Fields{"user": e.User.ID, "error": err}).Warn("Failed to re-jail returning member")
		}
	}
}

// onGuildMemberUpdate reverts nickname changes for members with a forced
// nick.
func (b *Bot) onGuildMemberUpdate(s *discordgo.Session, e *discordgo.GuildMemberUpdate) {
	if e.User == nil {
		return
	}
	nick, forced := b.moderation.ForcedNick(context.Background(), e.GuildID, e.User.ID)
	if !forced || e.Nick == nick {
		return
	}
	if err := s.GuildMemberNickname(e.GuildID, e.User.ID, nick); err != nil {
		log.WithFields(log.Fields{"user": e.User.ID, "error": err}).Warn("Failed to restore forced nickname")
	}
}

// onGuildBanRemove re-bans hard-banned users the moment someone unbans them.
func (b *Bot) onGuildBanRemove(s *discordgo.Session, e *discordgo.GuildBanRemove) {
	ban, hard, err := b.moderation.HardBan(context.Background(), e.GuildID, e.User.ID)
	if err != nil || !hard {
		return
	}
	reason := "hard ban: " + ban.Reason
	if err := s.GuildBanCreateWithReason(e.GuildID, e.User.ID, reason, 0); err != nil {
		log.WithFields(log.Fields{"guild": e.GuildID, "user": e.User.ID, "error": err}).Error("Failed to re-apply hard ban")
		return
	}
	log.WithFields(log.Fields{"guild": e.GuildID, "user": e.User.ID}).Info("Re-applied hard ban after manual unban")
}

// reconcileVoice rebuilds the temp-channel occupancy picture after a
// restart.
func (b *Bot) reconcileVoice() {
	existing := make(map[string]bool)
	for _, guild := range b.session.State.Guilds {
		for _, ch := range guild.Channels {
			if ch.Type == discordgo.ChannelTypeGuildVoice {
				existing[ch.ID] = false
			}
		}
		for _, vs := range guild.VoiceStates {
			if vs.ChannelID != "" {
				existing[vs.ChannelID] = true
			}
		}
	}
	if err := b.arbiter.Reconcile(existing); err != nil {
		log.WithField("error", err).Error("Voice reconcile failed")
	}
}

func (b *Bot) sweepTempRoles(ctx context.Context) error {
	due, err := b.moderation.DueTempRoles(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, d := range due {
		if err := b.session.GuildMemberRoleRemove(d.GuildID, d.UserID, d.RoleID); err != nil {
			log.WithFields(log.Fields{"user": d.UserID, "role": d.RoleID, "error": err}).Warn("Failed to remove expired temp role")
		}
		if err := b.moderation.RemoveTempRole(ctx, d.GuildID, d.UserID, d.RoleID); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) sweepTempBans(ctx context.Context) error {
	due, err := b.moderation.DueTempBans(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, d := range due {
		// A hardban upgrade outlives the temp ban.
		if _, hard, _ := b.moderation.HardBan(ctx, d.GuildID, d.UserID); !hard {
			if err := b.session.GuildBanDelete(d.GuildID, d.UserID); err != nil {
				log.WithFields(log.Fields{"guild": d.GuildID, "user": d.UserID, "error": err}).Warn("Failed to lift expired temp ban")
			}
		}
		if err := b.moderation.RemoveTempBan(ctx, d.GuildID, d.UserID); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) sweepJails(ctx context.Context) error {
	due, err := b.moderation.DueJails(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, d := range due {
		record, err := b.moderation.Release(ctx, d.GuildID, d.UserID)
		if err != nil {
			return err
		}
		roles := record.StoredRoles
		if roles == nil {
			roles = []string{}
		}
		if _, err := b.session.GuildMemberEdit(d.GuildID, d.UserID, &discordgo.GuildMemberParams{Roles: &roles}); err != nil {
			log.WithFields(log.Fields{"guild": d.GuildID, "user": d.UserID, "error": err}).Warn("Failed to restore roles after jail term")
		}
		log.WithFields(log.Fields{"guild": d.GuildID, "user": d.UserID}).Info("Released member from jail")
	}
	return nil
}

func (b *Bot) sweepReminders(ctx context.Context) error {
	due, err := b.moderation.DueReminders(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, d := range due {
		dm, err := b.session.UserChannelCreate(d.UserID)
		if err == nil {
			text := fmt.Sprintf("⏰ Reminder: %s", d.Reminder.Reason)
			if _, err := b.session.ChannelMessageSend(dm.ID, text); err != nil {
				log.WithFields(log.Fields{"user": d.UserID, "error": err}).Warn("Failed to DM reminder")
			}
		}
		if err := b.moderation.RemoveReminder(ctx, d.UserID, d.Reminder.ID); err != nil {
			return err
		}
	}
	return nil
}
