package streams

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"steward/events"
	"steward/models"
)

// PollInterval is how often every watched channel is re-checked.
const PollInterval = 5 * time.Minute

// DefaultTemplate announces a stream going live.
const DefaultTemplate = "🔴 **{username}** is now live: {title}\n{url}"

// StatusSource reads the live state of one streamer.
type StatusSource interface {
	Status(ctx context.Context, username string) (*models.StreamStatus, error)
}

// Announcer delivers one announcement message to a Discord channel.
type Announcer interface {
	Announce(channelID, content string) error
}

// Poller drives the edge detector: it re-checks every subscription on a
// fixed interval and announces offline-to-online transitions. Known state
// lives in memory only, so a restart may repeat one announcement.
type Poller struct {
	service  *Service
	source   StatusSource
	announce Announcer
	bus      *events.Bus

	mu    sync.Mutex
	known map[string]*models.StreamStatus // username -> last observed
}

// NewPoller creates a new stream poller
func NewPoller(service *Service, source StatusSource, announce Announcer, bus *events.Bus) *Poller {
	return &Poller{
		service:  service,
		source:   source,
		announce: announce,
		bus:      bus,
		known:    make(map[string]*models.StreamStatus),
	}
}

// Run polls until the context is cancelled. The first sweep runs
// immediately.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	p.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}

// Sweep checks every watched streamer once.
func (p *Poller) Sweep(ctx context.Context) {
	watches, err := p.service.watches()
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Error("Failed to load stream subscriptions")
		return
	}

	statuses := make(map[string]*models.StreamStatus)
	for _, w := range watches {
		status, ok := statuses[w.Username]
		if !ok {
			status, err = p.source.Status(ctx, w.Username)
			if err != nil {
				// Unknown status: keep the previous view rather than
				// treating the streamer as offline.
				log.WithFields(log.Fields{"streamer": w.Username, "error": err}).Warn("Failed to check stream status")
				statuses[w.Username] = nil
				continue
			}
			statuses[w.Username] = status
		}
		if status == nil {
			continue
		}

		if p.wentLive(w.Username, status) {
			p.announceLive(ctx, w, status)
		}
	}

	// Commit the sweep's observations, skipping failed lookups.
	p.mu.Lock()
	for username, status := range statuses {
		if status != nil {
			p.known[username] = status
		}
	}
	p.mu.Unlock()
}

// wentLive reports whether this observation is an offline-to-online edge.
// The first observation of a live streamer counts as an edge.
func (p *Poller) wentLive(username string, status *models.StreamStatus) bool {
	if !status.IsLive {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	prev, ok := p.known[username]
	return !ok || !prev.IsLive
}

func (p *Poller) announceLive(ctx context.Context, w watch, status *models.StreamStatus) {
	template := DefaultTemplate
	if custom, ok, err := p.service.Template(w.GuildID, w.Username); err == nil && ok {
		template = custom
	}
	content := renderTemplate(template, w.Username, status)

	// Transient send failures retry at 1s, 2s, 4s; the edge is consumed
	// either way so the next sweep does not re-announce. A channel the bot
	// cannot post in is skipped without retrying.
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	err := backoff.Retry(func() error {
		if err := p.announce.Announce(w.ChannelID, content); err != nil {
			if isPermissionError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(policy, 3), ctx))
	if err != nil {
		log.WithFields(log.Fields{
			"streamer": w.Username,
			"channel":  w.ChannelID,
			"error":    err,
		}).Error("Failed to announce stream")
		return
	}

	p.bus.Emit(ctx, events.StreamLiveEvent{
		Username:    w.Username,
		Title:       status.Title,
		ViewerCount: status.ViewerCount,
	})
	log.WithFields(log.Fields{"streamer": w.Username, "channel": w.ChannelID}).Info("Announced live stream")
}

// isPermissionError reports whether Discord refused the send outright, in
// which case retrying cannot help.
func isPermissionError(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden {
		return true
	}
	return restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeMissingPermissions
}

func renderTemplate(template, username string, status *models.StreamStatus) string {
	r := strings.NewReplacer(
		"{username}", username,
		"{title}", status.Title,
		"{game}", status.Game,
		"{viewers}", fmt.Sprintf("%d", status.ViewerCount),
		"{url}", status.URL,
	)
	return r.Replace(template)
}
