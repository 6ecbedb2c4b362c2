package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"steward/models"
)

// MockEconomyService is a mock implementation of EconomyService.
type MockEconomyService struct {
	mock.Mock
}

func (m *MockEconomyService) Open(ctx context.Context, userID string) (*models.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockEconomyService) Account(ctx context.Context, userID string) (*models.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockEconomyService) Daily(ctx context.Context, userID string) (*DailyResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DailyResult), args.Error(1)
}

func (m *MockEconomyService) Deposit(ctx context.Context, userID string, amount Amount) (*DepositResult, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DepositResult), args.Error(1)
}

func (m *MockEconomyService) Withdraw(ctx context.Context, userID string, amount Amount) (*WithdrawResult, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*WithdrawResult), args.Error(1)
}

func (m *MockEconomyService) Transfer(ctx context.Context, fromID, toID string, amount int64) (*TransferResult, error) {
	args := m.Called(ctx, fromID, toID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TransferResult), args.Error(1)
}

func (m *MockEconomyService) Spend(ctx context.Context, userID string, amount int64, reason string) (int64, error) {
	args := m.Called(ctx, userID, amount, reason)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEconomyService) Rob(ctx context.Context, robberID, victimID string) (*RobResult, error) {
	args := m.Called(ctx, robberID, victimID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RobResult), args.Error(1)
}

func (m *MockEconomyService) Gamble(ctx context.Context, userID string, kind GameKind, bet Amount) (*GambleResult, error) {
	args := m.Called(ctx, userID, kind, bet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GambleResult), args.Error(1)
}

func (m *MockEconomyService) Buy(ctx context.Context, userID, itemKey string, quantity int) (*PurchaseResult, error) {
	args := m.Called(ctx, userID, itemKey, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PurchaseResult), args.Error(1)
}

func (m *MockEconomyService) Use(ctx context.Context, userID, itemKey string) (*UseResult, error) {
	args := m.Called(ctx, userID, itemKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UseResult), args.Error(1)
}

func (m *MockEconomyService) Leaderboard(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*LeaderboardEntry), args.Error(1)
}

func (m *MockEconomyService) Richest(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*LeaderboardEntry), args.Error(1)
}

// MockPokemonService is a mock implementation of PokemonService.
type MockPokemonService struct {
	mock.Mock
}

func (m *MockPokemonService) Start(ctx context.Context, userID string) (*models.Trainer, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trainer), args.Error(1)
}

func (m *MockPokemonService) Trainer(ctx context.Context, userID string) (*models.Trainer, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trainer), args.Error(1)
}

func (m *MockPokemonService) Catch(ctx context.Context, userID, ballKind string) (*CatchResult, error) {
	args := m.Called(ctx, userID, ballKind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CatchResult), args.Error(1)
}

func (m *MockPokemonService) List(ctx context.Context, userID string) ([]*models.Pokemon, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Pokemon), args.Error(1)
}

func (m *MockPokemonService) Party(ctx context.Context, userID string) ([]*models.Pokemon, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Pokemon), args.Error(1)
}

func (m *MockPokemonService) Get(ctx context.Context, userID, pokemonID string) (*models.Pokemon, error) {
	args := m.Called(ctx, userID, pokemonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Pokemon), args.Error(1)
}

func (m *MockPokemonService) SetPrimary(ctx context.Context, userID, pokemonID string) error {
	args := m.Called(ctx, userID, pokemonID)
	return args.Error(0)
}

func (m *MockPokemonService) SetNickname(ctx context.Context, userID, pokemonID, nickname string) error {
	args := m.Called(ctx, userID, pokemonID, nickname)
	return args.Error(0)
}

func (m *MockPokemonService) Release(ctx context.Context, userID, pokemonID string) (*models.Pokemon, error) {
	args := m.Called(ctx, userID, pokemonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Pokemon), args.Error(1)
}

func (m *MockPokemonService) MoveToParty(ctx context.Context, userID, pokemonID string) (int, error) {
	args := m.Called(ctx, userID, pokemonID)
	return args.Int(0), args.Error(1)
}

func (m *MockPokemonService) MoveToPC(ctx context.Context, userID, pokemonID string) error {
	args := m.Called(ctx, userID, pokemonID)
	return args.Error(0)
}

func (m *MockPokemonService) Battle(ctx context.Context, userID string) (*BattleResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BattleResult), args.Error(1)
}

func (m *MockPokemonService) Evolve(ctx context.Context, userID, pokemonID string) (*EvolveResult, error) {
	args := m.Called(ctx, userID, pokemonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*EvolveResult), args.Error(1)
}

func (m *MockPokemonService) Balls(ctx context.Context, userID string) (map[string]int, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockPokemonService) GrantBalls(ctx context.Context, userID, kind string, count int) error {
	args := m.Called(ctx, userID, kind, count)
	return args.Error(0)
}

func (m *MockPokemonService) Pokedex(ctx context.Context, userID string) ([]int, int, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]int), args.Int(1), args.Error(2)
}

// MockGiveawayService is a mock implementation of GiveawayService.
type MockGiveawayService struct {
	mock.Mock
}

func (m *MockGiveawayService) Create(ctx context.Context, g *models.Giveaway, duration time.Duration) error {
	args := m.Called(ctx, g, duration)
	return args.Error(0)
}

func (m *MockGiveawayService) Get(ctx context.Context, guildID, messageID string) (*models.Giveaway, bool, error) {
	args := m.Called(ctx, guildID, messageID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Giveaway), args.Bool(1), args.Error(2)
}

func (m *MockGiveawayService) ListActive(ctx context.Context, guildID string) ([]*models.Giveaway, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Giveaway), args.Error(1)
}

func (m *MockGiveawayService) Edit(ctx context.Context, guildID, messageID string, fn func(*models.Giveaway) error) (*models.Giveaway, error) {
	args := m.Called(ctx, guildID, messageID, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Giveaway), args.Error(1)
}

func (m *MockGiveawayService) Cancel(ctx context.Context, guildID, messageID string) error {
	args := m.Called(ctx, guildID, messageID)
	return args.Error(0)
}

func (m *MockGiveawayService) Drop(ctx context.Context, guildID, messageID string) error {
	args := m.Called(ctx, guildID, messageID)
	return args.Error(0)
}

func (m *MockGiveawayService) Due(ctx context.Context, guildID string, now time.Time) ([]*models.Giveaway, error) {
	args := m.Called(ctx, guildID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Giveaway), args.Error(1)
}

func (m *MockGiveawayService) Guilds(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockGiveawayService) Complete(ctx context.Context, guildID, messageID string, validEntries []string, now time.Time) (*models.Giveaway, error) {
	args := m.Called(ctx, guildID, messageID, validEntries, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Giveaway), args.Error(1)
}

func (m *MockGiveawayService) Reroll(ctx context.Context, guildID, messageID string, count int) ([]string, []string, error) {
	args := m.Called(ctx, guildID, messageID, count)
	var winners, fresh []string
	if args.Get(0) != nil {
		winners = args.Get(0).([]string)
	}
	if args.Get(1) != nil {
		fresh = args.Get(1).([]string)
	}
	return winners, fresh, args.Error(2)
}

// MockModerationService is a mock implementation of ModerationService.
type MockModerationService struct {
	mock.Mock
}

func (m *MockModerationService) AddHardBan(ctx context.Context, guildID, userID string, ban *models.HardBan) error {
	args := m.Called(ctx, guildID, userID, ban)
	return args.Error(0)
}

func (m *MockModerationService) RemoveHardBan(ctx context.Context, guildID, userID string) error {
	args := m.Called(ctx, guildID, userID)
	return args.Error(0)
}

func (m *MockModerationService) HardBan(ctx context.Context, guildID, userID string) (*models.HardBan, bool, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.HardBan), args.Bool(1), args.Error(2)
}

func (m *MockModerationService) HardBans(ctx context.Context, guildID string) (map[string]*models.HardBan, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*models.HardBan), args.Error(1)
}

func (m *MockModerationService) AddTempRole(ctx context.Context, guildID, userID, roleID string, record *models.TempRole) error {
	args := m.Called(ctx, guildID, userID, roleID, record)
	return args.Error(0)
}

func (m *MockModerationService) RemoveTempRole(ctx context.Context, guildID, userID, roleID string) error {
	args := m.Called(ctx, guildID, userID, roleID)
	return args.Error(0)
}

func (m *MockModerationService) DueTempRoles(ctx context.Context, now time.Time) ([]*DueTempRole, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*DueTempRole), args.Error(1)
}

func (m *MockModerationService) AddTempBan(ctx context.Context, guildID, userID string, record *models.TempBan) error {
	args := m.Called(ctx, guildID, userID, record)
	return args.Error(0)
}

func (m *MockModerationService) RemoveTempBan(ctx context.Context, guildID, userID string) error {
	args := m.Called(ctx, guildID, userID)
	return args.Error(0)
}

func (m *MockModerationService) TempBan(ctx context.Context, guildID, userID string) (*models.TempBan, bool, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.TempBan), args.Bool(1), args.Error(2)
}

func (m *MockModerationService) DueTempBans(ctx context.Context, now time.Time) ([]*DueTempBan, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*DueTempBan), args.Error(1)
}

func (m *MockModerationService) SetJailRole(ctx context.Context, guildID, roleID string) error {
	args := m.Called(ctx, guildID, roleID)
	return args.Error(0)
}

func (m *MockModerationService) JailRole(ctx context.Context, guildID string) (string, error) {
	args := m.Called(ctx, guildID)
	return args.String(0), args.Error(1)
}

func (m *MockModerationService) Jail(ctx context.Context, guildID, userID string, record *models.JailRecord) error {
	args := m.Called(ctx, guildID, userID, record)
	return args.Error(0)
}

func (m *MockModerationService) Release(ctx context.Context, guildID, userID string) (*models.JailRecord, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JailRecord), args.Error(1)
}

func (m *MockModerationService) Jailed(ctx context.Context, guildID, userID string) (*models.JailRecord, bool, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.JailRecord), args.Bool(1), args.Error(2)
}

func (m *MockModerationService) DueJails(ctx context.Context, now time.Time) ([]*DueJail, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*DueJail), args.Error(1)
}

func (m *MockModerationService) ToggleStfu(ctx context.Context, guildID, userID string) (bool, error) {
	args := m.Called(ctx, guildID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockModerationService) IsStfu(ctx context.Context, guildID, userID string) bool {
	args := m.Called(ctx, guildID, userID)
	return args.Bool(0)
}

func (m *MockModerationService) SetForcedNick(ctx context.Context, guildID, userID, nick string) error {
	args := m.Called(ctx, guildID, userID, nick)
	return args.Error(0)
}

func (m *MockModerationService) ClearForcedNick(ctx context.Context, guildID, userID string) error {
	args := m.Called(ctx, guildID, userID)
	return args.Error(0)
}

func (m *MockModerationService) ForcedNick(ctx context.Context, guildID, userID string) (string, bool) {
	args := m.Called(ctx, guildID, userID)
	return args.String(0), args.Bool(1)
}

func (m *MockModerationService) SetStickyRoles(ctx context.Context, guildID, userID string, roleIDs []string) error {
	args := m.Called(ctx, guildID, userID, roleIDs)
	return args.Error(0)
}

func (m *MockModerationService) StickyRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockModerationService) SaveLockdown(ctx context.Context, guildID, channelID string, prior *bool) error {
	args := m.Called(ctx, guildID, channelID, prior)
	return args.Error(0)
}

func (m *MockModerationService) PopLockdown(ctx context.Context, guildID, channelID string) (*models.LockdownState, bool, error) {
	args := m.Called(ctx, guildID, channelID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.LockdownState), args.Bool(1), args.Error(2)
}

func (m *MockModerationService) SetLockdownIgnored(ctx context.Context, guildID string, channelIDs []string) error {
	args := m.Called(ctx, guildID, channelIDs)
	return args.Error(0)
}

func (m *MockModerationService) LockdownIgnored(ctx context.Context, guildID string) ([]string, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockModerationService) SetAllLocked(ctx context.Context, guildID string, channelIDs []string) error {
	args := m.Called(ctx, guildID, channelIDs)
	return args.Error(0)
}

func (m *MockModerationService) PopAllLocked(ctx context.Context, guildID string) ([]string, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockModerationService) RestrictCommand(ctx context.Context, guildID, command string, roleIDs []string) error {
	args := m.Called(ctx, guildID, command, roleIDs)
	return args.Error(0)
}

func (m *MockModerationService) UnrestrictCommand(ctx context.Context, guildID, command string) error {
	args := m.Called(ctx, guildID, command)
	return args.Error(0)
}

func (m *MockModerationService) Restrictions(ctx context.Context, guildID string) (map[string][]string, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]string), args.Error(1)
}

func (m *MockModerationService) PermittedRoles(guildID, command string) ([]string, bool) {
	args := m.Called(guildID, command)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).([]string), args.Bool(1)
}

func (m *MockModerationService) AddReminder(ctx context.Context, userID string, r *models.Reminder) (string, error) {
	args := m.Called(ctx, userID, r)
	return args.String(0), args.Error(1)
}

func (m *MockModerationService) Reminders(ctx context.Context, userID string) ([]*models.Reminder, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reminder), args.Error(1)
}

func (m *MockModerationService) RemoveReminder(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockModerationService) DueReminders(ctx context.Context, now time.Time) ([]*DueReminder, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*DueReminder), args.Error(1)
}

func (m *MockModerationService) RecordAction(ctx context.Context, guildID string, action *models.ModAction) error {
	args := m.Called(ctx, guildID, action)
	return args.Error(0)
}

func (m *MockModerationService) History(ctx context.Context, guildID string, limit int) ([]*models.ModAction, error) {
	args := m.Called(ctx, guildID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ModAction), args.Error(1)
}

// MockCryptoAlertService is a mock implementation of CryptoAlertService
type MockCryptoAlertService struct {
	mock.Mock
}

func (m *MockCryptoAlertService) AddAlert(ctx context.Context, guildID string, a *models.CryptoAlert) (string, error) {
	args := m.Called(ctx, guildID, a)
	return args.String(0), args.Error(1)
}

func (m *MockCryptoAlertService) Alerts(ctx context.Context, guildID string) ([]*models.CryptoAlert, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CryptoAlert), args.Error(1)
}

func (m *MockCryptoAlertService) AllAlerts(ctx context.Context) (map[string][]*models.CryptoAlert, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]*models.CryptoAlert), args.Error(1)
}

func (m *MockCryptoAlertService) RemoveAlert(ctx context.Context, guildID, id string) error {
	args := m.Called(ctx, guildID, id)
	return args.Error(0)
}
