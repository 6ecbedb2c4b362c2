package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"steward/events"
	"steward/models"
	"steward/store"
)

const economyPath = "economy.json"

// Amount is a requested amount that may be the literal words "all" or
// "half"; it is resolved against the relevant balance under the store lock.
type Amount struct {
	Value int64
	All   bool
	Half  bool
}

func (a Amount) resolve(available int64) int64 {
	switch {
	case a.All:
		return available
	case a.Half:
		return available / 2
	default:
		return a.Value
	}
}

// Constraint violations the handlers translate into user-facing replies.
var (
	ErrNoAccount         = errors.New("no account; open one first")
	ErrAccountExists     = errors.New("account already open")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBankFull          = errors.New("bank is at capacity")
	ErrSelfTransfer      = errors.New("cannot transfer to yourself")
	ErrUnknownItem       = errors.New("no such item")
	ErrNoUnusedItem      = errors.New("no unused copy of that item")
	ErrSupergambleMin    = errors.New("supergamble requires a bet of at least 500")
	ErrRobTooPoor        = errors.New("you need at least 50 bucks to rob someone")
)

// GameKind names a gambling mode.
type GameKind string

const (
	GameGamble      GameKind = "gamble"
	GameSupergamble GameKind = "supergamble"
	GameDice        GameKind = "dice"
	GameCoinflip    GameKind = "coinflip"
	GameBlackjack   GameKind = "blackjack"
)

// gameTable is the base win probability and payout multiplier per mode.
var gameTable = map[GameKind]struct {
	winChance  float64
	multiplier float64
}{
	GameGamble:      {0.45, 2.0},
	GameSupergamble: {0.30, 3.0},
	GameDice:        {0.50, 1.8},
	GameCoinflip:    {0.49, 1.95},
	GameBlackjack:   {0.47, 2.0},
}

// SupergambleMinBet is the floor for supergamble bets.
const SupergambleMinBet int64 = 500

// Outcome records returned to the handler layer.
type (
	DailyResult struct {
		Amount    int64
		Wallet    int64
		Blocked   bool
		Remaining time.Duration
	}
	DepositResult struct {
		Requested int64
		Moved     int64
		Wallet    int64
		Bank      int64
		Capacity  int64
	}
	WithdrawResult struct {
		Moved  int64
		Wallet int64
		Bank   int64
	}
	TransferResult struct {
		Amount     int64
		FromWallet int64
	}
	RobOutcome int

	RobResult struct {
		Outcome RobOutcome
		Stolen  int64
		Penalty int64
		Wallet  int64
	}
	GambleResult struct {
		Kind       GameKind
		Won        bool
		Bet        int64
		Payout     int64 // gross credit on a win
		Net        int64 // payout minus bet; negative bet on a loss
		Wallet     int64
		WinChance  float64
		Multiplier float64
	}
	PurchaseResult struct {
		Item     *ShopItem
		Quantity int
		Paid     int64
		Wallet   int64
	}
	UseResult struct {
		Item        *ShopItem
		NewCapacity int64 // set for bank capacity items
	}
	LeaderboardEntry struct {
		UserID   string
		Wallet   int64
		Bank     int64
		NetWorth int64
	}
)

const (
	RobSuccess RobOutcome = iota
	RobFailed
	RobProtected
	RobNoMoney
)

// EconomyService owns the wallet/bank ledger, the shop and the gambling math.
type EconomyService interface {
	Open(ctx context.Context, userID string) (*models.Account, error)
	Account(ctx context.Context, userID string) (*models.Account, error)
	Daily(ctx context.Context, userID string) (*DailyResult, error)
	Deposit(ctx context.Context, userID string, amount Amount) (*DepositResult, error)
	Withdraw(ctx context.Context, userID string, amount Amount) (*WithdrawResult, error)
	Transfer(ctx context.Context, fromID, toID string, amount int64) (*TransferResult, error)
	Spend(ctx context.Context, userID string, amount int64, reason string) (wallet int64, err error)
	Rob(ctx context.Context, robberID, victimID string) (*RobResult, error)
	Gamble(ctx context.Context, userID string, kind GameKind, bet Amount) (*GambleResult, error)
	Buy(ctx context.Context, userID, itemKey string, quantity int) (*PurchaseResult, error)
	Use(ctx context.Context, userID, itemKey string) (*UseResult, error)
	Leaderboard(ctx context.Context, limit int) ([]*LeaderboardEntry, error)
	Richest(ctx context.Context, limit int) ([]*LeaderboardEntry, error)
}

type economyService struct {
	store *store.Store
	bus   *events.Bus

	// RNG and clock are fields so tests can pin outcomes.
	roll    func() float64
	randInt func(lo, hi int64) int64
	now     func() time.Time
}

// NewEconomyService creates a new economy service
func NewEconomyService(st *store.Store, bus *events.Bus) EconomyService {
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &economyService{
		store: st,
		bus:   bus,
		roll: func() float64 {
			mu.Lock()
			defer mu.Unlock()
			return rng.Float64()
		},
		randInt: func(lo, hi int64) int64 {
			if hi <= lo {
				return lo
			}
			mu.Lock()
			defer mu.Unlock()
			return lo + rng.Int63n(hi-lo+1)
		},
		now: time.Now,
	}
}

func (s *economyService) mutate(fn func(doc *models.EconomyDoc) error) error {
	doc := &models.EconomyDoc{}
	return s.store.Mutate(economyPath, doc, func() error {
		if doc.Accounts == nil {
			doc.Accounts = make(map[string]*models.Account)
		}
		return fn(doc)
	})
}

func (s *economyService) Open(ctx context.Context, userID string) (*models.Account, error) {
	var account *models.Account
	err := s.mutate(func(doc *models.EconomyDoc) error {
		if _, ok := doc.Accounts[userID]; ok {
			return ErrAccountExists
		}
		account = models.NewAccount(s.now())
		doc.Accounts[userID] = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Emit(ctx, events.AccountOpenedEvent{UserID: userID, InitialWallet: account.Wallet})
	log.WithFields(log.Fields{"user": userID}).Info("Opened economy account")
	return account, nil
}

func (s *economyService) Account(ctx context.Context, userID string) (*models.Account, error) {
	doc := &models.EconomyDoc{}
	if err := s.store.Load(economyPath, doc); err != nil {
		return nil, err
	}
	account, ok := doc.Accounts[userID]
	if !ok {
		return nil, ErrNoAccount
	}
	return account, nil
}

func (s *economyService) Daily(ctx context.Context, userID string) (*DailyResult, error) {
	result := &DailyResult{}
	err := s.mutate(func(doc *models.EconomyDoc) error {
		account, ok := doc.Accounts[userID]
		if !ok {
			return ErrNoAccount
		}

		now := s.now()
		if account.DailyLastClaim != nil {
			elapsed := now.Sub(*account.DailyLastClaim)
			if elapsed < 24*time.Hour {
				result.Blocked = true
				result.Remaining = 24*time.Hour - elapsed
				result.Wallet = account.Wallet
				return nil
			}
		}

		amount := s.randInt(200, 500)
		account.Wallet += amount
		account.TotalEarnings += amount
		account.DailyLastClaim = &now

		result.Amount = amount
		result.Wallet = account.Wallet
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *economyService) Deposit(ctx context.Context, userID string, amount Amount) (*DepositResult, error) {
	result := &DepositResult{}
	err := s.mutate(func(doc *models.EconomyDoc) error {
		account, ok := doc.Accounts[userID]
		if !ok {
			return ErrNoAccount
		}

		requested := amount.resolve(account.Wallet)
		if requested <= 0 && !amount.All && !amount.Half {
			return ErrInvalidAmount
		}
		if requested > account.Wallet {
			return ErrInsufficientFunds
		}

		// Deposits clamp at remaining capacity; the actual moved amount is
		// reported back.
		room := account.BankCapacity - account.Bank
		moved := requested
		if moved > room {
			moved = room
		}
		if moved < 0 {
			moved = 0
		}
		account.Wallet -= moved
		account.Bank += moved

		result.Requested = requested
		result.Moved = moved
		result.Wallet = account.Wallet
		result.Bank = account.Bank
		result.Capacity = account.BankCapacity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *economyService) Withdraw(ctx context.Context, userID string, amount Amount) (*WithdrawResult, error) {
	result := &WithdrawResult{}
	err := s.mutate(func(doc *models.EconomyDoc) error {
		account, ok := doc.Accounts[userID]
		if !ok {
			return ErrNoAccount
		}

		requested := amount.resolve(account.Bank)
		if requested <= 0 && !amount.All && !amount.Half {
			return ErrInvalidAmount
		}
		if requested > account.Bank {
			return ErrInsufficientFunds
		}

		account.Bank -= requested
		account.Wallet += requested

		result.Moved = requested
		result.Wallet = account.Wallet
		result.Bank = account.Bank
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *economyService) Transfer(ctx context.Context, fromID, toID string, amount int64) (*TransferResult, error) {
	if fromID == toID {
		return nil, ErrSelfTransfer
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	result := &TransferResult{}
	var oldWallet int64
	err := s.mutate(func(doc *models.EconomyDoc) error {
		from, ok := doc.Accounts[fromID]
		if !ok {
			return ErrNoAccount
		}
		to, ok := doc.Accounts[toID]
		if !ok {
			return fmt.Errorf("recipient has no account: %w", ErrNoAccount)
		}

		if from.Wallet < amount {
			return ErrInsufficientFunds
		}

		oldWallet = from.Wallet
		from.Wallet -= amount
		to.Wallet += amount

		result.Amount = amount
		result.FromWallet = from.Wallet
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Emit(ctx, events.BalanceChangeEvent{
		UserID:       fromID,
		OldWallet:    oldWallet,
		NewWallet:    result.FromWallet,
		ChangeReason: "transfer",
	})
	return result, nil
}

// Spend debits a wallet for a purchase handled outside the shop, such as
// pokéballs.
func (s *economyService) Spend(ctx context.Context, userID string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var oldWallet, newWallet int64
	err := s.mutate(func(doc *models.EconomyDoc) error {
		account, ok := doc.Accounts[userID]
		if !ok {
			return ErrNoAccount
		}
		if account.Wallet < amount {
			return ErrInsufficientFunds
		}
		oldWallet = account.Wallet
		account.Wallet -= amount
		newWallet = account.Wallet
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.bus.Emit(ctx, events.BalanceChangeEvent{
		UserID:       userID,
		OldWallet:    oldWallet,
		NewWallet:    newWallet,
		ChangeReason: reason,
	})
	return newWallet, nil
}

func (s *economyService) Rob(ctx context.Context, robberID, victimID string) (*RobResult, error) {
	result := &RobResult{}
	err := s.mutate(func(doc *models.EconomyDoc) error {
		robber, ok := doc.Accounts[robberID]
		if !ok {
			return ErrNoAccount
		}
		victim, ok := doc.Accounts[victimID]
		if !ok {
			return fmt.Errorf("victim has no account: %w", ErrNoAccount)
		}

		if robber.Wallet < 50 {
			return ErrRobTooPoor
		}
		if victim.HasEffect(models.EffectRobProtection) {
			decrementEffects(victim, models.EffectRobProtection)
			result.Outcome = RobProtected
			return nil
		}
		if victim.Wallet == 0 {
			result.Outcome = RobNoMoney
			return nil
		}

		if s.roll() < 0.40 {
			ceiling := int64(math.Floor(0.30 * float64(victim.Wallet)))
			if ceiling < 1 {
				ceiling = 1
			}
			stolen := s.randInt(1, ceiling)
			victim.Wallet -= stolen
			victim.TotalLosses += stolen
			robber.Wallet += stolen
			robber.TotalEarnings += stolen

			result.Outcome = RobSuccess
			result.Stolen = stolen
		} else {
			penalty := s.randInt(50, 200)
			loss := penalty
			if loss > robber.Wallet {
				loss = robber.Wallet
			}
			robber.Wallet -= loss
			// The ledger records the rolled penalty even when the wallet
			// covered less.
			robber.TotalLosses += penalty

			result.Outcome = RobFailed
			result.Penalty = penalty
		}
		result.Wallet = robber.Wallet
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *economyService) Gamble(ctx context.Context, userID string, kind GameKind, bet Amount) (*GambleResult, error) {
	game, ok := gameTable[kind]
	if !ok {
		return nil, fmt.Errorf("unknown game kind %q", kind)
	}

	result := &GambleResult{Kind: kind}
	var oldWallet int64
	err := s.mutate(func(doc *models.EconomyDoc) error {
		account, ok := doc.Accounts[userID]
		if !ok {
			return ErrNoAccount
		}

		amount := bet.resolve(account.Wallet)
		if amount <= 0 {
			return ErrInvalidAmount
		}
		if amount > account.Wallet {
			return ErrInsufficientFunds
		}
		if kind == GameSupergamble && amount < SupergambleMinBet {
			return ErrSupergambleMin
		}

		chance := game.winChance
		multiplier := game.multiplier
		for _, e := range account.ActiveEffects {
			switch e.Type {
			case models.EffectWinChance:
				chance += e.Value / 100
			case models.EffectWinMultiplier:
				multiplier *= e.Value
			case models.EffectDiceBoost:
				if kind == GameDice {
					chance += e.Value / 100
				}
			}
		}
		applicable := []string{models.EffectWinChance, models.EffectWinMultiplier}
		if kind == GameDice {
			applicable = append(applicable, models.EffectDiceBoost)
		}
		decrementEffects(account, applicable...)

		oldWallet = account.Wallet
		won := s.roll() < chance

		stat := account.GameStat(string(kind))
		stat.Plays++

		if won {
			payout := int64(math.Floor(float64(amount) * multiplier))
			net := payout - amount
			account.Wallet += net
			// Earnings count the net, not the gross.
			account.TotalEarnings += net
			stat.Wins++

			result.Won = true
			result.Payout = payout
			result.Net = net
		} else {
			account.Wallet -= amount
			account.TotalLosses += amount
			result.Net = -amount
		}

		result.Bet = amount
		result.Wallet = account.Wallet
		result.WinChance = chance
		result.Multiplier = multiplier
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Emit(ctx, events.BalanceChangeEvent{
		UserID:       userID,
		OldWallet:    oldWallet,
		NewWallet:    result.Wallet,
		ChangeReason: string(kind),
	})
	return result, nil
}

func (s *economyService) Buy(ctx context.Context, userID, itemKey string, quantity int) (*PurchaseResult, error) {
	item := CatalogItem(itemKey)
	if item == nil {
		return nil, ErrUnknownItem
	}
	if quantity < 1 {
		quantity = 1
	}

	result := &PurchaseResult{Item: item, Quantity: quantity}
	err := s.mutate(func(doc *models.EconomyDoc) error {
		account, ok := doc.Accounts[userID]
		if !ok {
			return ErrNoAccount
		}

		total := item.Price * int64(quantity)
		if account.Wallet < total {
			return ErrInsufficientFunds
		}

		account.Wallet -= total
		for i := 0; i < quantity; i++ {
			account.Inventory = append(account.Inventory, &models.ItemInstance{
				ID:          uuid.NewString(),
				ItemKey:     item.Key,
				PurchasedAt: s.now(),
			})
		}

		result.Paid = total
		result.Wallet = account.Wallet
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *economyService) Use(ctx context.Context, userID, itemKey string) (*UseResult, error) {
	item := CatalogItem(itemKey)
	if item == nil {
		return nil, ErrUnknownItem
	}

	result := &UseResult{Item: item}
	err := s.mutate(func(doc *models.EconomyDoc) error {
		account, ok := doc.Accounts[userID]
		if !ok {
			return ErrNoAccount
		}

		var instance *models.ItemInstance
		for _, inst := range account.Inventory {
			if inst.ItemKey == item.Key && !inst.Used {
				instance = inst
				break
			}
		}
		if instance == nil {
			return ErrNoUnusedItem
		}

		now := s.now()
		instance.Used = true
		instance.UsedAt = &now

		if item.Effect.Type == models.EffectBankCapacity {
			// Capacity raises apply once, permanently; capacity never
			// shrinks.
			account.BankCapacity += int64(item.Effect.Value)
			result.NewCapacity = account.BankCapacity
			return nil
		}

		effect := item.Effect
		account.ActiveEffects = append(account.ActiveEffects, &effect)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *economyService) Leaderboard(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	return s.ranked(limit, func(e *LeaderboardEntry) int64 { return e.NetWorth })
}

func (s *economyService) Richest(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	return s.ranked(limit, func(e *LeaderboardEntry) int64 { return e.Wallet })
}

func (s *economyService) ranked(limit int, key func(*LeaderboardEntry) int64) ([]*LeaderboardEntry, error) {
	doc := &models.EconomyDoc{}
	if err := s.store.Load(economyPath, doc); err != nil {
		return nil, err
	}

	entries := make([]*LeaderboardEntry, 0, len(doc.Accounts))
	for id, account := range doc.Accounts {
		entries = append(entries, &LeaderboardEntry{
			UserID:   id,
			Wallet:   account.Wallet,
			Bank:     account.Bank,
			NetWorth: account.Wallet + account.Bank,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if key(entries[i]) != key(entries[j]) {
			return key(entries[i]) > key(entries[j])
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// decrementEffects walks the active effects of the given types, decrements
// per-use durations, and drops any that reach zero. Permanent effects
// (duration -1) are untouched.
func decrementEffects(account *models.Account, types ...string) {
	applicable := make(map[string]bool, len(types))
	for _, t := range types {
		applicable[t] = true
	}

	kept := account.ActiveEffects[:0]
	for _, e := range account.ActiveEffects {
		if applicable[e.Type] && e.Duration > 0 {
			e.Duration--
			if e.Duration == 0 {
				continue
			}
		}
		kept = append(kept, e)
	}
	account.ActiveEffects = kept
}
