package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"steward/events"
	"steward/models"
	"steward/store"
)

// Giveaway state errors surfaced to handlers.
var (
	ErrGiveawayNotFound = errors.New("no giveaway with that message id")
	ErrGiveawayActive   = errors.New("giveaway is still active")
	ErrGiveawayEnded    = errors.New("giveaway has already ended")
	ErrDurationTooShort = errors.New("giveaway duration must be at least 60 seconds")
	ErrNoWinnersWanted  = errors.New("winners count must be at least 1")
)

// EntrantInfo is the draw-time view of one reacting user, assembled by the
// caller from the guild snapshot and the leveling collaborator.
type EntrantInfo struct {
	UserID         string
	IsMember       bool
	AccountCreated time.Time
	JoinedAt       time.Time
	RoleIDs        []string
	Level          int
}

// GiveawayService owns giveaway records and the draw math. All Discord I/O
// (announcement fetch, reaction collection, embed edits) stays with the
// caller; the service decides and persists.
type GiveawayService interface {
	Create(ctx context.Context, g *models.Giveaway, duration time.Duration) error
	Get(ctx context.Context, guildID, messageID string) (g *models.Giveaway, active bool, err error)
	ListActive(ctx context.Context, guildID string) ([]*models.Giveaway, error)
	Edit(ctx context.Context, guildID, messageID string, fn func(*models.Giveaway) error) (*models.Giveaway, error)
	Cancel(ctx context.Context, guildID, messageID string) error
	Drop(ctx context.Context, guildID, messageID string) error
	Due(ctx context.Context, guildID string, now time.Time) ([]*models.Giveaway, error)
	Guilds(ctx context.Context) ([]string, error)
	Complete(ctx context.Context, guildID, messageID string, validEntries []string, now time.Time) (*models.Giveaway, error)
	Reroll(ctx context.Context, guildID, messageID string, count int) (winners, fresh []string, err error)
}

type giveawayService struct {
	store *store.Store
	bus   *events.Bus

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGiveawayService creates a new giveaway service
func NewGiveawayService(st *store.Store, bus *events.Bus) GiveawayService {
	return &giveawayService{
		store: st,
		bus:   bus,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func giveawayPath(guildID string) string {
	return "giveaways/" + guildID + ".json"
}

func (s *giveawayService) mutate(guildID string, fn func(doc *models.GiveawayDoc) error) error {
	doc := &models.GiveawayDoc{}
	return s.store.Mutate(giveawayPath(guildID), doc, func() error {
		if doc.Active == nil {
			doc.Active = make(map[string]*models.Giveaway)
		}
		if doc.Ended == nil {
			doc.Ended = make(map[string]*models.Giveaway)
		}
		return fn(doc)
	})
}

func (s *giveawayService) Create(ctx context.Context, g *models.Giveaway, duration time.Duration) error {
	if duration < models.MinGiveawayDuration {
		return ErrDurationTooShort
	}
	if g.WinnersCount < 1 {
		return ErrNoWinnersWanted
	}
	if len(g.HostIDs) == 0 {
		return fmt.Errorf("giveaway requires at least one host")
	}

	g.EndTime = g.CreatedAt.Add(duration)
	err := s.mutate(g.GuildID, func(doc *models.GiveawayDoc) error {
		doc.Active[g.MessageID] = g
		return nil
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"guild":   g.GuildID,
		"message": g.MessageID,
		"prize":   g.Prize,
		"winners": g.WinnersCount,
	}).Info("Created giveaway")
	return nil
}

func (s *giveawayService) Get(ctx context.Context, guildID, messageID string) (*models.Giveaway, bool, error) {
	doc := &models.GiveawayDoc{}
	if err := s.store.Load(giveawayPath(guildID), doc); err != nil {
		return nil, false, err
	}
	if g, ok := doc.Active[messageID]; ok {
		return g, true, nil
	}
	if g, ok := doc.Ended[messageID]; ok {
		return g, false, nil
	}
	return nil, false, ErrGiveawayNotFound
}

func (s *giveawayService) ListActive(ctx context.Context, guildID string) ([]*models.Giveaway, error) {
	doc := &models.GiveawayDoc{}
	if err := s.store.Load(giveawayPath(guildID), doc); err != nil {
		return nil, err
	}
	list := make([]*models.Giveaway, 0, len(doc.Active))
	for _, g := range doc.Active {
		list = append(list, g)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].EndTime.Before(list[j].EndTime) })
	return list, nil
}

func (s *giveawayService) Edit(ctx context.Context, guildID, messageID string, fn func(*models.Giveaway) error) (*models.Giveaway, error) {
	var edited *models.Giveaway
	err := s.mutate(guildID, func(doc *models.GiveawayDoc) error {
		g, ok := doc.Active[messageID]
		if !ok {
			if _, ended := doc.Ended[messageID]; ended {
				return ErrGiveawayEnded
			}
			return ErrGiveawayNotFound
		}
		if err := fn(g); err != nil {
			return err
		}
		edited = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edited, nil
}

func (s *giveawayService) Cancel(ctx context.Context, guildID, messageID string) error {
	return s.mutate(guildID, func(doc *models.GiveawayDoc) error {
		if _, ok := doc.Active[messageID]; !ok {
			return ErrGiveawayNotFound
		}
		delete(doc.Active, messageID)
		return nil
	})
}

// Drop silently removes a record whose announcement message no longer
// exists.
func (s *giveawayService) Drop(ctx context.Context, guildID, messageID string) error {
	return s.mutate(guildID, func(doc *models.GiveawayDoc) error {
		delete(doc.Active, messageID)
		return nil
	})
}

func (s *giveawayService) Due(ctx context.Context, guildID string, now time.Time) ([]*models.Giveaway, error) {
	doc := &models.GiveawayDoc{}
	if err := s.store.Load(giveawayPath(guildID), doc); err != nil {
		return nil, err
	}
	var due []*models.Giveaway
	for _, g := range doc.Active {
		if !g.EndTime.After(now) {
			due = append(due, g)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].EndTime.Before(due[j].EndTime) })
	return due, nil
}

func (s *giveawayService) Guilds(ctx context.Context) ([]string, error) {
	paths, err := s.store.List("giveaways")
	if err != nil {
		return nil, err
	}
	guilds := make([]string, 0, len(paths))
	for _, p := range paths {
		name := strings.TrimSuffix(strings.TrimPrefix(p, "giveaways/"), ".json")
		guilds = append(guilds, name)
	}
	return guilds, nil
}

// Complete draws winners from validEntries, stamps the record and moves it
// from the active to the ended bucket.
func (s *giveawayService) Complete(ctx context.Context, guildID, messageID string, validEntries []string, now time.Time) (*models.Giveaway, error) {
	var completed *models.Giveaway
	err := s.mutate(guildID, func(doc *models.GiveawayDoc) error {
		g, ok := doc.Active[messageID]
		if !ok {
			return ErrGiveawayNotFound
		}

		g.EndedAt = &now
		g.ValidEntries = validEntries
		g.WinnerIDs = s.sample(validEntries, g.WinnersCount)

		delete(doc.Active, messageID)
		doc.Ended[messageID] = g
		completed = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Emit(ctx, events.GiveawayEndedEvent{
		GuildID:    guildID,
		MessageID:  messageID,
		Prize:      completed.Prize,
		WinnerIDs:  completed.WinnerIDs,
		EntryCount: len(completed.ValidEntries),
	})
	log.WithFields(log.Fields{
		"guild":   guildID,
		"message": messageID,
		"entries": len(completed.ValidEntries),
		"winners": len(completed.WinnerIDs),
	}).Info("Completed giveaway draw")
	return completed, nil
}

// Reroll redraws count winners from the persisted valid entries of an ended
// giveaway. fresh lists the picks that were not already winners, which is
// the set reward roles are granted to.
func (s *giveawayService) Reroll(ctx context.Context, guildID, messageID string, count int) ([]string, []string, error) {
	if count < 1 {
		count = 1
	}
	var winners, fresh []string
	err := s.mutate(guildID, func(doc *models.GiveawayDoc) error {
		g, ok := doc.Ended[messageID]
		if !ok {
			if _, active := doc.Active[messageID]; active {
				return ErrGiveawayActive
			}
			return ErrGiveawayNotFound
		}

		previous := make(map[string]bool, len(g.WinnerIDs))
		for _, w := range g.WinnerIDs {
			previous[w] = true
		}

		winners = s.sample(g.ValidEntries, count)
		for _, w := range winners {
			if !previous[w] {
				fresh = append(fresh, w)
			}
		}
		g.WinnerIDs = winners
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return winners, fresh, nil
}

// sample picks min(n, len(pool)) entries uniformly without replacement.
func (s *giveawayService) sample(pool []string, n int) []string {
	if n > len(pool) {
		n = len(pool)
	}
	if n <= 0 {
		return nil
	}

	shuffled := make([]string, len(pool))
	copy(shuffled, pool)
	s.mu.Lock()
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	s.mu.Unlock()
	return shuffled[:n]
}

// EligibleEntries applies a giveaway's filters to the draw-time entrant
// snapshots: an entrant counts only while still a member and satisfying
// every configured constraint.
func EligibleEntries(g *models.Giveaway, entrants []EntrantInfo, now time.Time) []string {
	var valid []string
	for _, e := range entrants {
		if !e.IsMember {
			continue
		}
		f := g.Filters
		if f.MinAccountAgeSeconds > 0 && now.Sub(e.AccountCreated) < time.Duration(f.MinAccountAgeSeconds)*time.Second {
			continue
		}
		if f.MinServerStayDays > 0 && now.Sub(e.JoinedAt) < time.Duration(f.MinServerStayDays)*24*time.Hour {
			continue
		}
		if f.MinLevel > 0 && e.Level < f.MinLevel {
			continue
		}
		if f.MaxLevel > 0 && e.Level > f.MaxLevel {
			continue
		}
		if len(f.RequiredRoleIDs) > 0 && !hasAnyRole(e.RoleIDs, f.RequiredRoleIDs) {
			continue
		}
		valid = append(valid, e.UserID)
	}
	return valid
}

func hasAnyRole(held, wanted []string) bool {
	for _, w := range wanted {
		for _, h := range held {
			if h == w {
				return true
			}
		}
	}
	return false
}
