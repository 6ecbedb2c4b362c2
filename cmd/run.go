// Package cmd assembles the application: configuration, storage, services,
// the Discord bot and the background loops.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"steward/bot"
	"steward/config"
	"steward/crypto"
	"steward/events"
	"steward/pokeapi"
	"steward/pokedb"
	"steward/scheduler"
	"steward/service"
	"steward/store"
	"steward/streams"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	// A .env file is optional; real environments set variables directly.
	if err := godotenv.Load(); err == nil {
		log.Debug("Loaded environment from .env")
	}

	cfg := config.Get()
	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	log.Info("Starting steward...")

	st, err := store.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open data directory: %w", err)
	}

	db, err := pokedb.NewConnection(filepath.Join(cfg.DataDir, "pokemon.db"))
	if err != nil {
		return fmt.Errorf("failed to open pokemon database: %w", err)
	}
	defer db.Close()

	species, err := pokeapi.New(cfg.Keys.PokeAPIBase)
	if err != nil {
		return fmt.Errorf("failed to create pokeapi client: %w", err)
	}
	market, err := crypto.New(cfg.Keys.CryptoAPIBase, cfg.Keys.EtherscanKey)
	if err != nil {
		return fmt.Errorf("failed to create market client: %w", err)
	}

	eventBus := events.NewBus()
	logDomainEvents(eventBus)

	economySvc := service.NewEconomyService(st, eventBus)
	giveawaySvc := service.NewGiveawayService(st, eventBus)
	moderationSvc := service.NewModerationService(st, eventBus)
	miscSvc := service.NewMiscService(st)
	pokemonSvc := service.NewPokemonService(
		pokedb.NewTrainerRepository(db),
		pokedb.NewPokemonRepository(db),
		species,
		eventBus,
	)
	streamSvc := streams.NewService(st)
	alertSvc := service.NewCryptoAlertService(st)

	discordBot, err := bot.New(
		bot.Config{Token: cfg.DiscordToken, Prefix: cfg.Prefix},
		economySvc, pokemonSvc, giveawaySvc, moderationSvc, miscSvc, alertSvc,
		st, market, streamSvc, eventBus,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	log.Infof("Bot is running in %s mode", cfg.Environment)

	runner := scheduler.NewRunner()
	discordBot.RegisterTasks(runner)

	poller := streams.NewPoller(streamSvc, streams.NewKickClient(cfg.Keys.KickAPIBase), discordBot, eventBus)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(gctx) })
	g.Go(func() error { return poller.Run(gctx) })

	err = g.Wait()

	log.Info("Shutting down...")
	if closeErr := discordBot.Close(); closeErr != nil {
		log.WithField("error", closeErr).Warn("Error closing Discord session")
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// logDomainEvents keeps an audit line for the cross-cutting events.
func logDomainEvents(bus *events.Bus) {
	bus.Subscribe(events.EventTypeGiveawayEnded, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.GiveawayEndedEvent); ok {
			log.WithFields(log.Fields{
				"guild":   e.GuildID,
				"prize":   e.Prize,
				"winners": len(e.WinnerIDs),
				"entries": e.EntryCount,
			}).Info("Giveaway ended")
		}
	})
	bus.Subscribe(events.EventTypeStreamLive, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.StreamLiveEvent); ok {
			log.WithFields(log.Fields{"streamer": e.Username}).Info("Stream went live")
		}
	})
	bus.Subscribe(events.EventTypeMemberJailed, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.MemberJailedEvent); ok {
			log.WithFields(log.Fields{"guild": e.GuildID, "user": e.UserID}).Info("Member jailed")
		}
	})
}
