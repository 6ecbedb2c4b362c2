package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"steward/events"
	"steward/models"
	"steward/pokeapi"
)

// Pokémon domain errors surfaced to handlers.
var (
	ErrNoTrainer      = errors.New("user has not started their trainer journey")
	ErrTrainerExists  = errors.New("trainer already exists")
	ErrNoSuchPokemon  = errors.New("no pokémon with that id")
	ErrNotYourPokemon = errors.New("that pokémon belongs to someone else")
	ErrNoBalls        = errors.New("no balls of that kind left")
	ErrUnknownBall    = errors.New("unknown ball kind")
	ErrPartyFull      = errors.New("party is full")
	ErrNotInParty     = errors.New("pokémon is not in the party")
	ErrCannotEvolve   = errors.New("this pokémon has no further evolution")
	ErrEvolveTooLow   = errors.New("pokémon must be at least level 20 to evolve")
	ErrNoPrimary      = errors.New("no primary pokémon set")
)

// CooldownError reports how long until the next catch attempt is allowed.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("catch on cooldown for another %s", e.Remaining.Round(time.Second))
}

// CatchCooldown is the minimum gap between catch attempts per user.
const CatchCooldown = 5 * time.Minute

// EvolveMinLevel gates evolution.
const EvolveMinLevel = 20

// TrainerRepository is the persistence boundary for trainer records.
type TrainerRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Trainer, error)
	Create(ctx context.Context, t *models.Trainer) error
	Update(ctx context.Context, t *models.Trainer) error
	Balls(ctx context.Context, userID string) (map[string]int, error)
	AddBalls(ctx context.Context, userID, kind string, count int) error
	UseBall(ctx context.Context, userID, kind string) (bool, error)
}

// PokemonRepository is the persistence boundary for caught instances.
type PokemonRepository interface {
	Create(ctx context.Context, p *models.Pokemon) error
	GetByID(ctx context.Context, id string) (*models.Pokemon, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Pokemon, error)
	Party(ctx context.Context, userID string) ([]*models.Pokemon, error)
	Update(ctx context.Context, p *models.Pokemon) error
	Delete(ctx context.Context, id string) error
	CountParty(ctx context.Context, userID string) (int, error)
	MarkPokedex(ctx context.Context, userID string, speciesID int, caughtAt any) error
	PokedexCount(ctx context.Context, userID string) (int, error)
	PokedexSpecies(ctx context.Context, userID string) ([]int, error)
}

// SpeciesAPI is the external species data boundary.
type SpeciesAPI interface {
	Pokemon(ctx context.Context, id int) (*pokeapi.Species, error)
	NextEvolution(ctx context.Context, speciesID int) (*pokeapi.Evolution, error)
}

// CatchResult describes one catch attempt.
type CatchResult struct {
	Caught    bool
	Fled      bool
	Pokemon   *models.Pokemon
	InParty   bool
	FirstEver bool
	BallKind  string
	BallsLeft int
}

// BattleResult describes one wild battle.
type BattleResult struct {
	Won             bool
	Pokemon         *models.Pokemon
	EnemySpecies    string
	EnemyLevel      int
	XPGained        int
	TrainerXPGained int
	PokemonLevelUps int
	TrainerLevelUps int
}

// EvolveResult describes a completed evolution.
type EvolveResult struct {
	Pokemon *models.Pokemon
	FromID  int
	From    string
}

// PokemonService owns trainer progression, catching, battles and evolution.
// Currency never moves here: ball purchases debit through the economy service
// first and only then credit the inventory.
type PokemonService interface {
	Start(ctx context.Context, userID string) (*models.Trainer, error)
	Trainer(ctx context.Context, userID string) (*models.Trainer, error)
	Catch(ctx context.Context, userID, ballKind string) (*CatchResult, error)
	List(ctx context.Context, userID string) ([]*models.Pokemon, error)
	Party(ctx context.Context, userID string) ([]*models.Pokemon, error)
	Get(ctx context.Context, userID, pokemonID string) (*models.Pokemon, error)
	SetPrimary(ctx context.Context, userID, pokemonID string) error
	SetNickname(ctx context.Context, userID, pokemonID, nickname string) error
	Release(ctx context.Context, userID, pokemonID string) (*models.Pokemon, error)
	MoveToParty(ctx context.Context, userID, pokemonID string) (slot int, err error)
	MoveToPC(ctx context.Context, userID, pokemonID string) error
	Battle(ctx context.Context, userID string) (*BattleResult, error)
	Evolve(ctx context.Context, userID, pokemonID string) (*EvolveResult, error)
	Balls(ctx context.Context, userID string) (map[string]int, error)
	GrantBalls(ctx context.Context, userID, kind string, count int) error
	Pokedex(ctx context.Context, userID string) (caught []int, total int, err error)
}

type pokemonService struct {
	trainers TrainerRepository
	pokemon  PokemonRepository
	api      SpeciesAPI
	bus      *events.Bus

	mu        sync.Mutex
	lastCatch map[string]time.Time
	misses    map[string]int

	roll    func() float64
	randInt func(lo, hi int64) int64
	now     func() time.Time
}

// NewPokemonService creates a new pokemon service
func NewPokemonService(trainers TrainerRepository, pokemon PokemonRepository, api SpeciesAPI, bus *events.Bus) PokemonService {
	return &pokemonService{
		trainers:  trainers,
		pokemon:   pokemon,
		api:       api,
		bus:       bus,
		lastCatch: make(map[string]time.Time),
		misses:    make(map[string]int),
		roll:      defaultRoll,
		randInt:   defaultRandInt,
		now:       time.Now,
	}
}

func (s *pokemonService) Start(ctx context.Context, userID string) (*models.Trainer, error) {
	existing, err := s.trainers.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrTrainerExists
	}

	t := &models.Trainer{
		UserID:    userID,
		Level:     1,
		XPToLevel: 100,
		CreatedAt: s.now(),
	}
	if err := s.trainers.Create(ctx, t); err != nil {
		return nil, err
	}
	// Starter supplies.
	if err := s.trainers.AddBalls(ctx, userID, "pokeballs", 5); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"user": userID}).Info("Trainer journey started")
	return t, nil
}

func (s *pokemonService) Trainer(ctx context.Context, userID string) (*models.Trainer, error) {
	t, err := s.trainers.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNoTrainer
	}
	return t, nil
}

// checkCooldown enforces the per-user catch gap without touching storage.
func (s *pokemonService) checkCooldown(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if last, ok := s.lastCatch[userID]; ok {
		if remaining := CatchCooldown - now.Sub(last); remaining > 0 {
			return &CooldownError{Remaining: remaining}
		}
	}
	s.lastCatch[userID] = now
	return nil
}

func (s *pokemonService) clearCooldown(userID string) {
	s.mu.Lock()
	delete(s.lastCatch, userID)
	s.mu.Unlock()
}

func (s *pokemonService) Catch(ctx context.Context, userID, ballKind string) (*CatchResult, error) {
	trainer, err := s.Trainer(ctx, userID)
	if err != nil {
		return nil, err
	}

	ball, ok := BallItem(ballKind)
	if !ok {
		return nil, ErrUnknownBall
	}

	if err := s.checkCooldown(userID); err != nil {
		return nil, err
	}

	used, err := s.trainers.UseBall(ctx, userID, ball.Key)
	if err != nil {
		s.clearCooldown(userID)
		return nil, err
	}
	if !used {
		s.clearCooldown(userID)
		return nil, ErrNoBalls
	}

	balls, err := s.trainers.Balls(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := &CatchResult{BallKind: ball.Key, BallsLeft: balls[ball.Key]}

	speciesID := int(s.randInt(1, models.MaxSpeciesID+1))
	species, err := s.api.Pokemon(ctx, speciesID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch species %d: %w", speciesID, err)
	}
	level := int(s.randInt(1, 11))

	if s.roll() >= s.catchChance(ball, species, level, s.missCount(userID)) {
		s.recordMiss(userID)
		result.Fled = true
		return result, nil
	}
	s.clearMisses(userID)

	p := &models.Pokemon{
		ID:          uuid.NewString(),
		UserID:      userID,
		SpeciesID:   speciesID,
		Level:       level,
		XPToLevel:   xpForLevel(level),
		DisplayName: species.Name,
		Types:       species.Types,
		Stats:       scaleStats(species.BaseStats, level),
		Moves:       s.pickMoves(species.Moves),
		SpriteURL:   species.SpriteURL,
		CaughtAt:    s.now(),
	}
	p.CurrentHP = p.Stats[models.StatHP]

	inParty, err := s.pokemon.CountParty(ctx, userID)
	if err != nil {
		return nil, err
	}
	if inParty < models.MaxPartySize {
		p.PartySlot = inParty + 1
		result.InParty = true
	}

	if err := s.pokemon.Create(ctx, p); err != nil {
		return nil, err
	}
	if err := s.pokemon.MarkPokedex(ctx, userID, speciesID, p.CaughtAt); err != nil {
		return nil, err
	}

	if trainer.PrimaryPokemon == "" {
		trainer.PrimaryPokemon = p.ID
		if err := s.trainers.Update(ctx, trainer); err != nil {
			return nil, err
		}
		result.FirstEver = true
	}

	result.Caught = true
	result.Pokemon = p
	s.bus.Emit(ctx, events.PokemonCaughtEvent{UserID: userID, SpeciesID: speciesID, InstanceID: p.ID})
	log.WithFields(log.Fields{
		"user":    userID,
		"species": speciesID,
		"level":   level,
		"ball":    ball.Key,
	}).Info("Pokémon caught")
	return result, nil
}

func (s *pokemonService) List(ctx context.Context, userID string) ([]*models.Pokemon, error) {
	return s.pokemon.ListByUser(ctx, userID)
}

func (s *pokemonService) Party(ctx context.Context, userID string) ([]*models.Pokemon, error) {
	return s.pokemon.Party(ctx, userID)
}

// owned loads an instance and verifies ownership.
func (s *pokemonService) owned(ctx context.Context, userID, pokemonID string) (*models.Pokemon, error) {
	p, err := s.pokemon.GetByID(ctx, pokemonID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNoSuchPokemon
	}
	if p.UserID != userID {
		return nil, ErrNotYourPokemon
	}
	return p, nil
}

func (s *pokemonService) Get(ctx context.Context, userID, pokemonID string) (*models.Pokemon, error) {
	return s.owned(ctx, userID, pokemonID)
}

func (s *pokemonService) SetPrimary(ctx context.Context, userID, pokemonID string) error {
	trainer, err := s.Trainer(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.owned(ctx, userID, pokemonID); err != nil {
		return err
	}
	trainer.PrimaryPokemon = pokemonID
	return s.trainers.Update(ctx, trainer)
}

func (s *pokemonService) SetNickname(ctx context.Context, userID, pokemonID, nickname string) error {
	p, err := s.owned(ctx, userID, pokemonID)
	if err != nil {
		return err
	}
	p.Nickname = nickname
	return s.pokemon.Update(ctx, p)
}

func (s *pokemonService) Release(ctx context.Context, userID, pokemonID string) (*models.Pokemon, error) {
	p, err := s.owned(ctx, userID, pokemonID)
	if err != nil {
		return nil, err
	}
	if err := s.pokemon.Delete(ctx, pokemonID); err != nil {
		return nil, err
	}

	// A released primary leaves the trainer without one.
	trainer, err := s.Trainer(ctx, userID)
	if err != nil {
		return nil, err
	}
	if trainer.PrimaryPokemon == pokemonID {
		trainer.PrimaryPokemon = ""
		if err := s.trainers.Update(ctx, trainer); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *pokemonService) MoveToParty(ctx context.Context, userID, pokemonID string) (int, error) {
	p, err := s.owned(ctx, userID, pokemonID)
	if err != nil {
		return 0, err
	}
	if p.PartySlot != 0 {
		return p.PartySlot, nil
	}

	party, err := s.pokemon.Party(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(party) >= models.MaxPartySize {
		return 0, ErrPartyFull
	}

	taken := make(map[int]bool, len(party))
	for _, member := range party {
		taken[member.PartySlot] = true
	}
	for slot := 1; slot <= models.MaxPartySize; slot++ {
		if !taken[slot] {
			p.PartySlot = slot
			break
		}
	}
	return p.PartySlot, s.pokemon.Update(ctx, p)
}

func (s *pokemonService) MoveToPC(ctx context.Context, userID, pokemonID string) error {
	p, err := s.owned(ctx, userID, pokemonID)
	if err != nil {
		return err
	}
	if p.PartySlot == 0 {
		return ErrNotInParty
	}
	p.PartySlot = 0
	return s.pokemon.Update(ctx, p)
}

func (s *pokemonService) Battle(ctx context.Context, userID string) (*BattleResult, error) {
	trainer, err := s.Trainer(ctx, userID)
	if err != nil {
		return nil, err
	}
	if trainer.PrimaryPokemon == "" {
		return nil, ErrNoPrimary
	}
	p, err := s.owned(ctx, userID, trainer.PrimaryPokemon)
	if err != nil {
		return nil, err
	}

	enemyID := int(s.randInt(1, models.MaxSpeciesID+1))
	enemy, err := s.api.Pokemon(ctx, enemyID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch species %d: %w", enemyID, err)
	}

	enemyLevel := p.Level + int(s.randInt(-2, 4))
	if enemyLevel < 1 {
		enemyLevel = 1
	}

	winChance := 0.5 + 0.02*float64(p.Level)
	if winChance > 0.9 {
		winChance = 0.9
	}
	won := s.roll() < winChance

	result := &BattleResult{
		Won:          won,
		EnemySpecies: enemy.Name,
		EnemyLevel:   enemyLevel,
	}
	result.XPGained = int(s.randInt(10, 21))
	result.TrainerXPGained = int(s.randInt(5, 11))
	if won {
		result.XPGained *= 2
		result.TrainerXPGained *= 2
	}

	result.PokemonLevelUps = s.grantPokemonXP(p, result.XPGained)
	if err := s.pokemon.Update(ctx, p); err != nil {
		return nil, err
	}
	result.Pokemon = p

	result.TrainerLevelUps = grantTrainerXP(trainer, result.TrainerXPGained)
	if err := s.trainers.Update(ctx, trainer); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user":  userID,
		"won":   won,
		"enemy": enemyID,
	}).Debug("Wild battle resolved")
	return result, nil
}

// grantPokemonXP applies xp and cascades level ups. Each level multiplies the
// next requirement by 1.5, rescales stats by a uniform [1.05, 1.10] factor
// and fully heals.
func (s *pokemonService) grantPokemonXP(p *models.Pokemon, xp int) int {
	p.XP += xp
	levels := 0
	for p.XP >= p.XPToLevel {
		p.XP -= p.XPToLevel
		p.Level++
		p.XPToLevel = int(float64(p.XPToLevel) * 1.5)
		levels++

		factor := 1.05 + s.roll()*0.05
		for name, value := range p.Stats {
			p.Stats[name] = int(float64(value) * factor)
		}
		p.CurrentHP = p.Stats[models.StatHP]
	}
	return levels
}

// grantTrainerXP applies xp and cascades level ups, each multiplying the next
// requirement by 1.2.
func grantTrainerXP(t *models.Trainer, xp int) int {
	t.XP += xp
	levels := 0
	for t.XP >= t.XPToLevel {
		t.XP -= t.XPToLevel
		t.Level++
		t.XPToLevel = int(float64(t.XPToLevel) * 1.2)
		levels++
	}
	return levels
}

func (s *pokemonService) Evolve(ctx context.Context, userID, pokemonID string) (*EvolveResult, error) {
	p, err := s.owned(ctx, userID, pokemonID)
	if err != nil {
		return nil, err
	}
	if p.Level < EvolveMinLevel {
		return nil, ErrEvolveTooLow
	}

	next, err := s.api.NextEvolution(ctx, p.SpeciesID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve evolution for species %d: %w", p.SpeciesID, err)
	}
	if next == nil {
		return nil, ErrCannotEvolve
	}

	evolved, err := s.api.Pokemon(ctx, next.SpeciesID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch species %d: %w", next.SpeciesID, err)
	}

	result := &EvolveResult{FromID: p.SpeciesID, From: p.DisplayName}
	p.SpeciesID = evolved.ID
	p.DisplayName = evolved.Name
	p.Types = evolved.Types
	p.SpriteURL = evolved.SpriteURL
	p.Stats = scaleStats(evolved.BaseStats, p.Level)
	p.CurrentHP = p.Stats[models.StatHP]

	if err := s.pokemon.Update(ctx, p); err != nil {
		return nil, err
	}
	if err := s.pokemon.MarkPokedex(ctx, userID, p.SpeciesID, s.now()); err != nil {
		return nil, err
	}

	result.Pokemon = p
	log.WithFields(log.Fields{
		"user": userID,
		"from": result.FromID,
		"to":   p.SpeciesID,
	}).Info("Pokémon evolved")
	return result, nil
}

func (s *pokemonService) Balls(ctx context.Context, userID string) (map[string]int, error) {
	if _, err := s.Trainer(ctx, userID); err != nil {
		return nil, err
	}
	return s.trainers.Balls(ctx, userID)
}

func (s *pokemonService) GrantBalls(ctx context.Context, userID, kind string, count int) error {
	if _, ok := BallItem(kind); !ok {
		return ErrUnknownBall
	}
	if _, err := s.Trainer(ctx, userID); err != nil {
		return err
	}
	return s.trainers.AddBalls(ctx, userID, kind, count)
}

func (s *pokemonService) Pokedex(ctx context.Context, userID string) ([]int, int, error) {
	if _, err := s.Trainer(ctx, userID); err != nil {
		return nil, 0, err
	}
	species, err := s.pokemon.PokedexSpecies(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return species, models.MaxSpeciesID, nil
}

// scaleStats derives instance stats from base stats at the given level.
func scaleStats(base map[string]int, level int) map[string]int {
	stats := make(map[string]int, len(base))
	for name, value := range base {
		stats[name] = int(float64(value) * (1 + 0.05*float64(level)))
	}
	return stats
}

// xpForLevel is the xp requirement to leave the given level.
func xpForLevel(level int) int {
	req := 100.0
	for i := 1; i < level; i++ {
		req *= 1.5
	}
	return int(req)
}

// pickMoves samples up to four learnable moves without replacement.
func (s *pokemonService) pickMoves(moves []string) []string {
	if len(moves) <= 4 {
		return moves
	}
	pool := make([]string, len(moves))
	copy(pool, moves)
	picked := make([]string, 0, 4)
	for len(picked) < 4 {
		i := int(s.randInt(0, int64(len(pool))))
		picked = append(picked, pool[i])
		pool[i] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
	}
	return picked
}

// catchChance derives the effective probability that this throw connects.
// Specialty balls shift their base rate with the encounter context, and every
// ball struggles against higher level targets. Master balls never fail.
func (s *pokemonService) catchChance(ball Ball, species *pokeapi.Species, level, missed int) float64 {
	if ball.Key == "masterballs" {
		return 1
	}

	chance := ball.CatchRate
	chance -= 0.01 * float64(level-1)

	switch ball.Key {
	case "heavyballs":
		// Weight arrives in hectograms, so 1000 is the 100 kg mark.
		if species.Weight >= 1000 {
			chance += 0.20
		}
	case "netballs":
		if hasType(species, "water") || hasType(species, "bug") {
			chance += 0.20
		}
	case "diveballs":
		if hasType(species, "water") {
			chance += 0.20
		}
	case "nestballs":
		if level <= 5 {
			chance += 0.20
		}
	case "duskballs":
		if hour := s.now().Hour(); hour >= 20 || hour < 6 {
			chance += 0.20
		}
	case "quickballs":
		if missed == 0 {
			chance += 0.15
		}
	case "timerballs":
		bonus := 0.05 * float64(missed)
		if bonus > 0.25 {
			bonus = 0.25
		}
		chance += bonus
	}

	if chance < 0.05 {
		return 0.05
	}
	if chance > 0.95 {
		return 0.95
	}
	return chance
}

func hasType(species *pokeapi.Species, kind string) bool {
	for _, t := range species.Types {
		if t == kind {
			return true
		}
	}
	return false
}

func (s *pokemonService) missCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.misses[userID]
}

func (s *pokemonService) recordMiss(userID string) {
	s.mu.Lock()
	s.misses[userID]++
	s.mu.Unlock()
}

func (s *pokemonService) clearMisses(userID string) {
	s.mu.Lock()
	delete(s.misses, userID)
	s.mu.Unlock()
}
