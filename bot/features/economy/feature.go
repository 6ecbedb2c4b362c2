// Package economy wires the currency commands: accounts, banking, games of
// chance, robbery and the item shop.
package economy

import (
	"steward/dispatch"
	"steward/service"
)

// Feature represents the economy feature
type Feature struct {
	economy service.EconomyService
}

// New creates a new economy feature instance
func New(economy service.EconomyService) *Feature {
	return &Feature{economy: economy}
}

// Register adds every economy command to the registry.
func (f *Feature) Register(reg *dispatch.Registry) {
	reg.Register(&dispatch.Command{
		Name: "open", Category: "economy",
		Description: "Open your coin account",
		Run:         f.handleOpen,
	})
	reg.Register(&dispatch.Command{
		Name: "balance", Aliases: []string{"bal", "wallet"}, Category: "economy",
		Description: "Show a wallet and bank balance",
		Usage:       "balance [member]",
		Params:      []dispatch.Param{{Name: "member", Kind: dispatch.KindMember, Optional: true}},
		Run:         f.handleBalance,
	})
	reg.Register(&dispatch.Command{
		Name: "daily", Category: "economy",
		Description: "Claim your daily coins",
		Run:         f.handleDaily,
	})
	reg.Register(&dispatch.Command{
		Name: "deposit", Aliases: []string{"dep"}, Category: "economy",
		Description: "Move coins from wallet to bank",
		Usage:       "deposit <amount|all|half>",
		Params:      []dispatch.Param{{Name: "amount", Kind: dispatch.KindAmount}},
		Run:         f.handleDeposit,
	})
	reg.Register(&dispatch.Command{
		Name: "withdraw", Aliases: []string{"with"}, Category: "economy",
		Description: "Move coins from bank to wallet",
		Usage:       "withdraw <amount|all|half>",
		Params:      []dispatch.Param{{Name: "amount", Kind: dispatch.KindAmount}},
		Run:         f.handleWithdraw,
	})
	reg.Register(&dispatch.Command{
		Name: "give", Aliases: []string{"pay", "transfer"}, Category: "economy",
		Description: "Give coins to another member",
		Usage:       "give <member> <amount>",
		Params: []dispatch.Param{
			{Name: "member", Kind: dispatch.KindMember},
			{Name: "amount", Kind: dispatch.KindInt},
		},
		Run: f.handleGive,
	})
	reg.Register(&dispatch.Command{
		Name: "rob", Category: "economy",
		Description: "Attempt to rob another member's wallet",
		Usage:       "rob <member>",
		Params:      []dispatch.Param{{Name: "member", Kind: dispatch.KindMember}},
		Run:         f.handleRob,
	})

	for _, game := range []struct {
		name    string
		aliases []string
		kind    service.GameKind
		desc    string
	}{
		{"gamble", []string{"bet"}, service.GameGamble, "Gamble coins at 2x payout"},
		{"supergamble", []string{"sg"}, service.GameSupergamble, "High stakes gamble at 3x payout"},
		{"dice", nil, service.GameDice, "Roll the dice for 1.8x payout"},
		{"coinflip", []string{"cf"}, service.GameCoinflip, "Flip a coin for 1.95x payout"},
		{"blackjack", []string{"bj"}, service.GameBlackjack, "Play a hand for 2x payout"},
	} {
		game := game
		reg.Register(&dispatch.Command{
			Name: game.name, Aliases: game.aliases, Category: "economy",
			Description: game.desc,
			Usage:       game.name + " <bet|all|half>",
			Params:      []dispatch.Param{{Name: "bet", Kind: dispatch.KindAmount}},
			Run: func(ctx *dispatch.Context) error {
				return f.handleGamble(ctx, game.kind)
			},
		})
	}

	reg.Register(&dispatch.Command{
		Name: "shop", Category: "economy",
		Description: "Browse the item shop",
		Run:         f.handleShop,
	})
	reg.Register(&dispatch.Command{
		Name: "buy", Category: "economy",
		Description: "Buy an item from the shop",
		Usage:       "buy <item> [quantity]",
		Params: []dispatch.Param{
			{Name: "item", Kind: dispatch.KindString},
			{Name: "quantity", Kind: dispatch.KindInt, Optional: true},
		},
		Run: f.handleBuy,
	})
	reg.Register(&dispatch.Command{
		Name: "use", Category: "economy",
		Description: "Use an item from your inventory",
		Usage:       "use <item>",
		Params:      []dispatch.Param{{Name: "item", Kind: dispatch.KindString}},
		Run:         f.handleUse,
	})
	reg.Register(&dispatch.Command{
		Name: "inventory", Aliases: []string{"inv", "bag", "effects"}, Category: "economy",
		Description: "Show your items and active effects",
		Run:         f.handleInventory,
	})
	reg.Register(&dispatch.Command{
		Name: "leaderboard", Aliases: []string{"lb"}, Category: "economy",
		Description: "Top members by total earnings",
		Run:         f.handleLeaderboard,
	})
	reg.Register(&dispatch.Command{
		Name: "richest", Category: "economy",
		Description: "Top members by net worth",
		Run:         f.handleRichest,
	})
	reg.Register(&dispatch.Command{
		Name: "stats", Category: "economy",
		Description: "Show your game win rates",
		Run:         f.handleStats,
	})
}
