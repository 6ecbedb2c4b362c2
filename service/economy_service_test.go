package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward/events"
	"steward/models"
	"steward/store"
)

func newTestEconomy(t *testing.T) *economyService {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	svc := NewEconomyService(st, events.NewBus()).(*economyService)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestEconomy_OpenCreatesDefaultAccount(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()

	account, err := svc.Open(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, models.StartingWallet, account.Wallet)
	assert.Equal(t, models.DefaultBankCapacity, account.BankCapacity)

	_, err = svc.Open(ctx, "100")
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestEconomy_DailyThenBlocked(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()
	svc.randInt = func(lo, hi int64) int64 { return 350 }

	_, err := svc.Open(ctx, "100")
	require.NoError(t, err)

	result, err := svc.Daily(ctx, "100")
	require.NoError(t, err)
	assert.False(t, result.Blocked)
	assert.Equal(t, int64(350), result.Amount)
	assert.Equal(t, models.StartingWallet+350, result.Wallet)

	// Immediate second claim blocks with ~24h remaining.
	again, err := svc.Daily(ctx, "100")
	require.NoError(t, err)
	assert.True(t, again.Blocked)
	assert.Equal(t, 24*time.Hour, again.Remaining)
}

func TestEconomy_DailyAllowedAtExactly24h(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()
	svc.randInt = func(lo, hi int64) int64 { return 200 }

	_, err := svc.Open(ctx, "100")
	require.NoError(t, err)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	_, err = svc.Daily(ctx, "100")
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(24*time.Hour - time.Second) }
	blocked, err := svc.Daily(ctx, "100")
	require.NoError(t, err)
	assert.True(t, blocked.Blocked)

	svc.now = func() time.Time { return base.Add(24 * time.Hour) }
	allowed, err := svc.Daily(ctx, "100")
	require.NoError(t, err)
	assert.False(t, allowed.Blocked)
}

func TestEconomy_DepositClampsAtCapacity(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, "100")
	require.NoError(t, err)
	setAccount(t, svc, "100", func(a *models.Account) {
		a.Wallet = 15000
		a.Bank = 9000
		a.BankCapacity = 10000
	})

	result, err := svc.Deposit(ctx, "100", Amount{Value: 5000})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), result.Moved)
	assert.Equal(t, int64(14000), result.Wallet)
	assert.Equal(t, int64(10000), result.Bank)
}

func TestEconomy_DepositWithdrawRoundTrip(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, "100")
	require.NoError(t, err)
	setAccount(t, svc, "100", func(a *models.Account) { a.Wallet = 1000 })

	_, err = svc.Deposit(ctx, "100", Amount{Value: 400})
	require.NoError(t, err)
	result, err := svc.Withdraw(ctx, "100", Amount{Value: 400})
	require.NoError(t, err)

	assert.Equal(t, int64(1000), result.Wallet)
	assert.Equal(t, int64(0), result.Bank)
}

func TestEconomy_WithdrawMoreThanBank(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, "100")
	require.NoError(t, err)

	_, err = svc.Withdraw(ctx, "100", Amount{Value: 50})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestEconomy_TransferRoundTrip(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, "100")
	require.NoError(t, err)
	_, err = svc.Open(ctx, "200")
	require.NoError(t, err)

	_, err = svc.Transfer(ctx, "100", "200", 60)
	require.NoError(t, err)
	_, err = svc.Transfer(ctx, "200", "100", 60)
	require.NoError(t, err)

	a, err := svc.Account(ctx, "100")
	require.NoError(t, err)
	b, err := svc.Account(ctx, "200")
	require.NoError(t, err)
	assert.Equal(t, models.StartingWallet, a.Wallet)
	assert.Equal(t, models.StartingWallet, b.Wallet)
}

func TestEconomy_TransferRejections(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, "100")
	require.NoError(t, err)
	_, err = svc.Open(ctx, "200")
	require.NoError(t, err)

	_, err = svc.Transfer(ctx, "100", "100", 10)
	assert.ErrorIs(t, err, ErrSelfTransfer)
	_, err = svc.Transfer(ctx, "100", "200", 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Transfer(ctx, "100", "200", 1e9)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestEconomy_GambleLossAll(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()
	svc.roll = func() float64 { return 0.99 } // force loss

	_, err := svc.Open(ctx, "100")
	require.NoError(t, err)

	result, err := svc.Gamble(ctx, "100", GameGamble, Amount{All: true})
	require.NoError(t, err)

	assert.False(t, result.Won)
	assert.Equal(t, models.StartingWallet, result.Bet)
	assert.Equal(t, int64(0), result.Wallet)

	account, err := svc.Account(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, models.StartingWallet, account.TotalLosses)
	assert.Equal(t, int64(1), account.Stats["gamble"].Plays)
	assert.Equal(t, int64(0), account.Stats["gamble"].Wins)
}

func TestEconomy_GambleWinCreditsNet(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()
	svc.roll = func() float64 { return 0.0 } // force win

	_, err := svc.Open(ctx, "100")
	require.NoError(t, err)
	setAccount(t, svc, "100", func(a *models.Account) { a.Wallet = 1000 })

	result, err := svc.Gamble(ctx, "100", GameDice, Amount{Value: 100})
	require.NoError(t, err)

	// dice multiplier 1.8: payout 180, net 80.
	assert.True(t, result.Won)
	assert.Equal(t, int64(180), result.Payout)
	assert.Equal(t, int64(80), result.Net)
	assert.Equal(t, int64(1080), result.Wallet)

	account, err := svc.Account(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, int64(80), account.TotalEarnings)
}

func TestEconomy_SupergambleMinimumBet(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, "100")
	require.NoError(t, err)
	setAccount(t, svc, "100", func(a *models.Account) { a.Wallet = 10000 })

	_, err = svc.Gamble(ctx, "100", GameSupergamble, Amount{Value: 499})
	assert.ErrorIs(t, err, ErrSupergambleMin)

	svc.roll = func() float64 { return 0.99 }
	_, err = svc.Gamble(ctx, "100", GameSupergamble, Amount{Value: 500})
	assert.NoError(t, err)
}

func TestEconomy_EffectsApplyAndDecrement(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()
	svc.roll = func() float64 { return 0.0 }

	_, err := svc.Open(ctx, "100")
	require.NoError(t, err)
	setAccount(t, svc, "100", func(a *models.Account) {
		a.Wallet = 1000
		a.ActiveEffects = []*models.Effect{
			{Type: models.EffectWinChance, Value: 10, Duration: 2},
			{Type: models.EffectWinMultiplier, Value: 1.5, Duration: 1},
			{Type: models.EffectDiceBoost, Value: 10, Duration: 1},
		}
	})

	result, err := svc.Gamble(ctx, "100", GameGamble, Amount{Value: 100})
	require.NoError(t, err)

	// 0.45 + 10/100; dice boost does not apply to plain gamble.
	assert.InDelta(t, 0.55, result.WinChance, 1e-9)
	// 2.0 × 1.5 = 3.0 → payout 300, net 200.
	assert.Equal(t, int64(300), result.Payout)

	account, err := svc.Account(ctx, "100")
	require.NoError(t, err)
	// win_chance decremented to 1, multiplier dropped at 0, dice boost
	// untouched.
	require.Len(t, account.ActiveEffects, 2)
	assert.Equal(t, models.EffectWinChance, account.ActiveEffects[0].Type)
	assert.Equal(t, 1, account.ActiveEffects[0].Duration)
	assert.Equal(t, models.EffectDiceBoost, account.ActiveEffects[1].Type)
}

func TestEconomy_DiceBoostAppliesToDiceOnly(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()
	svc.roll = func() float64 { return 0.99 }

	_, err := svc.Open(ctx, "100")
	require.NoError(t, err)
	setAccount(t, svc, "100", func(a *models.Account) {
		a.Wallet = 1000
		a.ActiveEffects = []*models.Effect{
			{Type: models.EffectDiceBoost, Value: 20, Duration: 3},
		}
	})

	result, err := svc.Gamble(ctx, "100", GameDice, Amount{Value: 100})
	require.NoError(t, err)
	assert.InDelta(t, 0.70, result.WinChance, 1e-9)

	account, err := svc.Account(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, 2, account.ActiveEffects[0].Duration)
}

func TestEconomy_RobProtected(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, "100")
	require.NoError(t, err)
	_, err = svc.Open(ctx, "200")
	require.NoError(t, err)
	setAccount(t, svc, "200", func(a *models.Account) {
		a.ActiveEffects = []*models.Effect{
			{Type: models.EffectRobProtection, Value: 1, Duration: 1},
		}
	})

	result, err := svc.Rob(ctx, "100", "200")
	require.NoError(t, err)
	assert.Equal(t, RobProtected, result.Outcome)

	// The protection was consumed.
	victim, err := svc.Account(ctx, "200")
	require.NoError(t, err)
	assert.Empty(t, victim.ActiveEffects)
}

func TestEconomy_RobSuccess(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()
	svc.roll = func() float64 { return 0.1 } // under 0.40 → success
	svc.randInt = func(lo, hi int64) int64 { return hi }

	_, err := svc.Open(ctx, "100")
	require.NoError(t, err)
	_, err = svc.Open(ctx, "200")
	require.NoError(t, err)
	setAccount(t, svc, "200", func(a *models.Account) { a.Wallet = 1000 })

	result, err := svc.Rob(ctx, "100", "200")
	require.NoError(t, err)
	assert.Equal(t, RobSuccess, result.Outcome)
	assert.Equal(t, int64(300), result.Stolen) // floor(0.30 × 1000)

	victim, err := svc.Account(ctx, "200")
	require.NoError(t, err)
	assert.Equal(t, int64(700), victim.Wallet)
}

func TestEconomy_RobFailurePenaltyLoggedUnclamped(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()
	svc.roll = func() float64 { return 0.9 } // over 0.40 → failure
	svc.randInt = func(lo, hi int64) int64 { return 200 }

	_, err := svc.Open(ctx, "100")
	require.NoError(t, err)
	_, err = svc.Open(ctx, "200")
	require.NoError(t, err)
	setAccount(t, svc, "100", func(a *models.Account) { a.Wallet = 120 })
	setAccount(t, svc, "200", func(a *models.Account) { a.Wallet = 500 })

	result, err := svc.Rob(ctx, "100", "200")
	require.NoError(t, err)
	assert.Equal(t, RobFailed, result.Outcome)
	assert.Equal(t, int64(0), result.Wallet) // clamped to wallet

	robber, err := svc.Account(ctx, "100")
	require.NoError(t, err)
	// The ledger books the full rolled penalty.
	assert.Equal(t, int64(200), robber.TotalLosses)
}

func TestEconomy_RobRequiresMinimumWallet(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, "100")
	require.NoError(t, err)
	_, err = svc.Open(ctx, "200")
	require.NoError(t, err)
	setAccount(t, svc, "100", func(a *models.Account) { a.Wallet = 49 })

	_, err = svc.Rob(ctx, "100", "200")
	assert.ErrorIs(t, err, ErrRobTooPoor)
}

func TestEconomy_BuyAndUseBankNote(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, "100")
	require.NoError(t, err)
	setAccount(t, svc, "100", func(a *models.Account) { a.Wallet = 10000 })

	purchase, err := svc.Buy(ctx, "100", "bank_note", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), purchase.Paid)

	used, err := svc.Use(ctx, "100", "bank_note")
	require.NoError(t, err)
	// Capacity rose by exactly the item's value, once.
	assert.Equal(t, models.DefaultBankCapacity+5000, used.NewCapacity)

	_, err = svc.Use(ctx, "100", "bank_note")
	assert.ErrorIs(t, err, ErrNoUnusedItem)
}

func TestEconomy_BuyAppliesEffectOnUse(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, "100")
	require.NoError(t, err)
	setAccount(t, svc, "100", func(a *models.Account) { a.Wallet = 5000 })

	_, err = svc.Buy(ctx, "100", "lucky_charm", 2)
	require.NoError(t, err)
	_, err = svc.Use(ctx, "100", "lucky_charm")
	require.NoError(t, err)

	account, err := svc.Account(ctx, "100")
	require.NoError(t, err)
	require.Len(t, account.ActiveEffects, 1)
	assert.Equal(t, models.EffectWinChance, account.ActiveEffects[0].Type)
	require.Len(t, account.Inventory, 2)
	assert.True(t, account.Inventory[0].Used)
	assert.False(t, account.Inventory[1].Used)
}

func TestEconomy_Leaderboard(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		_, err := svc.Open(ctx, id)
		require.NoError(t, err)
	}
	setAccount(t, svc, "1", func(a *models.Account) { a.Wallet = 10; a.Bank = 500 })
	setAccount(t, svc, "2", func(a *models.Account) { a.Wallet = 400; a.Bank = 0 })
	setAccount(t, svc, "3", func(a *models.Account) { a.Wallet = 100; a.Bank = 100 })

	byWorth, err := svc.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, byWorth, 2)
	assert.Equal(t, "1", byWorth[0].UserID)
	assert.Equal(t, "2", byWorth[1].UserID)

	byWallet, err := svc.Richest(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "2", byWallet[0].UserID)
}

func TestEconomy_Spend(t *testing.T) {
	svc := newTestEconomy(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, "1")
	require.NoError(t, err)
	setAccount(t, svc, "1", func(a *models.Account) { a.Wallet = 500 })

	wallet, err := svc.Spend(ctx, "1", 300, "pokeballs")
	require.NoError(t, err)
	assert.Equal(t, int64(200), wallet)

	_, err = svc.Spend(ctx, "1", 300, "pokeballs")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = svc.Spend(ctx, "1", 0, "pokeballs")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Spend(ctx, "nobody", 10, "pokeballs")
	assert.ErrorIs(t, err, ErrNoAccount)
}

// setAccount applies a direct mutation to a stored account for test setup.
func setAccount(t *testing.T, svc *economyService, userID string, fn func(*models.Account)) {
	t.Helper()
	err := svc.mutate(func(doc *models.EconomyDoc) error {
		fn(doc.Accounts[userID])
		return nil
	})
	require.NoError(t, err)
}
