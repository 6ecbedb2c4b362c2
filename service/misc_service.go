package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"steward/models"
	"steward/store"
)

const (
	embedPath = "miscellaneous/embeds.json"
	seenPath  = "miscellaneous/seen.json"
	namesPath = "miscellaneous/names.json"
)

// maxNameHistory bounds per-user username history.
const maxNameHistory = 25

var (
	ErrEmbedNotFound = errors.New("no stored embed with that name")
	ErrEmbedExists   = errors.New("an embed with that name already exists")
)

// MiscService covers the small tracking features: stored embeds, last-seen
// timestamps and username history.
type MiscService interface {
	CreateEmbed(ctx context.Context, guildID string, e *models.StoredEmbed) error
	UpdateEmbed(ctx context.Context, guildID, name string, fn func(*models.StoredEmbed) error) error
	DeleteEmbed(ctx context.Context, guildID, name string) error
	Embed(ctx context.Context, guildID, name string) (*models.StoredEmbed, error)
	Embeds(ctx context.Context, guildID string) ([]*models.StoredEmbed, error)

	TouchSeen(ctx context.Context, guildID, userID string, at time.Time) error
	LastSeen(ctx context.Context, guildID, userID string) (time.Time, bool, error)

	RecordName(ctx context.Context, userID, name string, at time.Time) error
	NameHistory(ctx context.Context, userID string) ([]*models.NameChange, error)
}

type miscService struct {
	store *store.Store
}

// NewMiscService creates a new misc service
func NewMiscService(st *store.Store) MiscService {
	return &miscService{store: st}
}

func (s *miscService) CreateEmbed(ctx context.Context, guildID string, e *models.StoredEmbed) error {
	doc := &models.EmbedDoc{}
	return s.store.Mutate(embedPath, doc, func() error {
		if doc.Embeds == nil {
			doc.Embeds = make(map[string]map[string]*models.StoredEmbed)
		}
		if doc.Embeds[guildID] == nil {
			doc.Embeds[guildID] = make(map[string]*models.StoredEmbed)
		}
		if _, ok := doc.Embeds[guildID][e.Name]; ok {
			return ErrEmbedExists
		}
		doc.Embeds[guildID][e.Name] = e
		return nil
	})
}

func (s *miscService) UpdateEmbed(ctx context.Context, guildID, name string, fn func(*models.StoredEmbed) error) error {
	doc := &models.EmbedDoc{}
	return s.store.Mutate(embedPath, doc, func() error {
		e, ok := doc.Embeds[guildID][name]
		if !ok {
			return ErrEmbedNotFound
		}
		return fn(e)
	})
}

func (s *miscService) DeleteEmbed(ctx context.Context, guildID, name string) error {
	doc := &models.EmbedDoc{}
	return s.store.Mutate(embedPath, doc, func() error {
		if _, ok := doc.Embeds[guildID][name]; !ok {
			return ErrEmbedNotFound
		}
		delete(doc.Embeds[guildID], name)
		return nil
	})
}

func (s *miscService) Embed(ctx context.Context, guildID, name string) (*models.StoredEmbed, error) {
	doc := &models.EmbedDoc{}
	if err := s.store.Load(embedPath, doc); err != nil {
		return nil, err
	}
	e, ok := doc.Embeds[guildID][name]
	if !ok {
		return nil, ErrEmbedNotFound
	}
	return e, nil
}

func (s *miscService) Embeds(ctx context.Context, guildID string) ([]*models.StoredEmbed, error) {
	doc := &models.EmbedDoc{}
	if err := s.store.Load(embedPath, doc); err != nil {
		return nil, err
	}
	list := make([]*models.StoredEmbed, 0, len(doc.Embeds[guildID]))
	for _, e := range doc.Embeds[guildID] {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (s *miscService) TouchSeen(ctx context.Context, guildID, userID string, at time.Time) error {
	doc := &models.SeenDoc{}
	return s.store.Mutate(seenPath, doc, func() error {
		if doc.Seen == nil {
			doc.Seen = make(map[string]map[string]time.Time)
		}
		if doc.Seen[guildID] == nil {
			doc.Seen[guildID] = make(map[string]time.Time)
		}
		doc.Seen[guildID][userID] = at
		return nil
	})
}

func (s *miscService) LastSeen(ctx context.Context, guildID, userID string) (time.Time, bool, error) {
	doc := &models.SeenDoc{}
	if err := s.store.Load(seenPath, doc); err != nil {
		return time.Time{}, false, err
	}
	at, ok := doc.Seen[guildID][userID]
	return at, ok, nil
}

// RecordName appends a username to the user's history, skipping consecutive
// duplicates and keeping the newest entries.
func (s *miscService) RecordName(ctx context.Context, userID, name string, at time.Time) error {
	doc := &models.NamesDoc{}
	return s.store.Mutate(namesPath, doc, func() error {
		if doc.Names == nil {
			doc.Names = make(map[string][]*models.NameChange)
		}
		history := doc.Names[userID]
		if len(history) > 0 && history[len(history)-1].Name == name {
			return nil
		}
		history = append(history, &models.NameChange{Name: name, At: at})
		if len(history) > maxNameHistory {
			history = history[len(history)-maxNameHistory:]
		}
		doc.Names[userID] = history
		return nil
	})
}

func (s *miscService) NameHistory(ctx context.Context, userID string) ([]*models.NameChange, error) {
	doc := &models.NamesDoc{}
	if err := s.store.Load(namesPath, doc); err != nil {
		return nil, err
	}
	return doc.Names[userID], nil
}
