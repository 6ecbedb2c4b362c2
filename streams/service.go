package streams

import (
	"errors"
	"sort"
	"strings"

	"steward/models"
	"steward/store"
)

const kickPath = "kick_config.json"

var (
	ErrAlreadySubscribed = errors.New("channel is already subscribed to that streamer")
	ErrNotSubscribed     = errors.New("channel is not subscribed to that streamer")
)

// Service owns the durable subscription state.
type Service struct {
	store *store.Store
}

// NewService creates a new stream subscription service
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

func (s *Service) mutate(fn func(doc *models.KickDoc) error) error {
	doc := &models.KickDoc{}
	return s.store.Mutate(kickPath, doc, func() error {
		if doc.Subscriptions == nil {
			doc.Subscriptions = make(map[string]map[string][]string)
		}
		if doc.Templates == nil {
			doc.Templates = make(map[string]map[string]string)
		}
		return fn(doc)
	})
}

// Subscribe adds a streamer to a Discord channel's watch list.
func (s *Service) Subscribe(guildID, channelID, username string) error {
	username = strings.ToLower(username)
	return s.mutate(func(doc *models.KickDoc) error {
		if doc.Subscriptions[guildID] == nil {
			doc.Subscriptions[guildID] = make(map[string][]string)
		}
		for _, existing := range doc.Subscriptions[guildID][channelID] {
			if existing == username {
				return ErrAlreadySubscribed
			}
		}
		doc.Subscriptions[guildID][channelID] = append(doc.Subscriptions[guildID][channelID], username)
		return nil
	})
}

// Unsubscribe removes a streamer from a channel's watch list.
func (s *Service) Unsubscribe(guildID, channelID, username string) error {
	username = strings.ToLower(username)
	return s.mutate(func(doc *models.KickDoc) error {
		list := doc.Subscriptions[guildID][channelID]
		for i, existing := range list {
			if existing == username {
				doc.Subscriptions[guildID][channelID] = append(list[:i], list[i+1:]...)
				return nil
			}
		}
		return ErrNotSubscribed
	})
}

// Subscriptions lists a guild's watches: announce channel id -> usernames.
func (s *Service) Subscriptions(guildID string) (map[string][]string, error) {
	doc := &models.KickDoc{}
	if err := s.store.Load(kickPath, doc); err != nil {
		return nil, err
	}
	return doc.Subscriptions[guildID], nil
}

// SetTemplate stores a per-guild announcement template for a streamer. An
// empty template reverts to the default.
func (s *Service) SetTemplate(guildID, username, template string) error {
	username = strings.ToLower(username)
	return s.mutate(func(doc *models.KickDoc) error {
		if template == "" {
			delete(doc.Templates[guildID], username)
			return nil
		}
		if doc.Templates[guildID] == nil {
			doc.Templates[guildID] = make(map[string]string)
		}
		doc.Templates[guildID][username] = template
		return nil
	})
}

// Template returns the guild's template for a streamer, if set.
func (s *Service) Template(guildID, username string) (string, bool, error) {
	doc := &models.KickDoc{}
	if err := s.store.Load(kickPath, doc); err != nil {
		return "", false, err
	}
	tpl, ok := doc.Templates[guildID][strings.ToLower(username)]
	return tpl, ok, nil
}

// watch is one (guild, channel, streamer) triple the poller checks.
type watch struct {
	GuildID   string
	ChannelID string
	Username  string
}

// watches flattens every subscription across guilds, sorted for stable
// polling order.
func (s *Service) watches() ([]watch, error) {
	doc := &models.KickDoc{}
	if err := s.store.Load(kickPath, doc); err != nil {
		return nil, err
	}
	var out []watch
	for guildID, channels := range doc.Subscriptions {
		for channelID, usernames := range channels {
			for _, username := range usernames {
				out = append(out, watch{GuildID: guildID, ChannelID: channelID, Username: username})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].ChannelID < out[j].ChannelID
	})
	return out, nil
}
