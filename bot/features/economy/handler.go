package economy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"steward/bot/common"
	"steward/dispatch"
	"steward/models"
	"steward/service"
)

// friendlyError replies in-channel for expected economy errors and swallows
// them; anything else propagates to the dispatcher.
func friendlyError(ctx *dispatch.Context, err error) error {
	var msg string
	switch {
	case errors.Is(err, service.ErrNoAccount):
		msg = "You don't have an account yet. Use `open` first."
	case errors.Is(err, service.ErrAccountExists):
		msg = "You already have an account."
	case errors.Is(err, service.ErrInvalidAmount):
		msg = "That amount doesn't work. Use a positive number, `all` or `half`."
	case errors.Is(err, service.ErrInsufficientFunds):
		msg = "You can't afford that."
	case errors.Is(err, service.ErrBankFull):
		msg = "Your bank is full. Buy a bank upgrade from the shop."
	case errors.Is(err, service.ErrSelfTransfer):
		msg = "You can't send coins to yourself."
	case errors.Is(err, service.ErrUnknownItem):
		msg = "No such item in the shop."
	case errors.Is(err, service.ErrNoUnusedItem):
		msg = "You don't have an unused one of those."
	case errors.Is(err, service.ErrSupergambleMin):
		msg = fmt.Sprintf("Supergamble needs a bet of at least %s.", common.FormatBalance(service.SupergambleMinBet))
	case errors.Is(err, service.ErrRobTooPoor):
		msg = "They don't have enough in their wallet to be worth robbing."
	default:
		return err
	}
	return ctx.Reply("%s", msg)
}

func toServiceAmount(a dispatch.Amount) service.Amount {
	return service.Amount{Value: a.Value, All: a.All, Half: a.Half}
}

func (f *Feature) handleOpen(ctx *dispatch.Context) error {
	account, err := f.economy.Open(ctx.Ctx, ctx.Author().ID)
	if err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"Account opened with %s in your wallet.", common.FormatCoins(account.Wallet))))
}

func (f *Feature) handleBalance(ctx *dispatch.Context) error {
	userID := ctx.Author().ID
	name := ctx.Author().Username
	if ctx.Has(0) {
		member := ctx.MemberArg(0)
		userID = member.User.ID
		name = common.DisplayName(member)
	}

	account, err := f.economy.Account(ctx.Ctx, userID)
	if err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(&discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s's balance", name),
		Color: common.ColorGold,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Wallet", Value: common.FormatBalance(account.Wallet), Inline: true},
			{Name: "Bank", Value: fmt.Sprintf("%s / %s", common.FormatBalance(account.Bank), common.FormatBalance(account.BankCapacity)), Inline: true},
			{Name: "Net worth", Value: common.FormatBalance(account.Wallet + account.Bank), Inline: true},
		},
	})
}

func (f *Feature) handleDaily(ctx *dispatch.Context) error {
	result, err := f.economy.Daily(ctx.Ctx, ctx.Author().ID)
	if err != nil {
		return friendlyError(ctx, err)
	}
	if result.Blocked {
		return ctx.Reply("Your daily is not ready. Come back in %s.", common.FormatDuration(result.Remaining))
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"Claimed %s. Wallet: %s.", common.FormatCoins(result.Amount), common.FormatBalance(result.Wallet))))
}

func (f *Feature) handleDeposit(ctx *dispatch.Context) error {
	result, err := f.economy.Deposit(ctx.Ctx, ctx.Author().ID, toServiceAmount(ctx.AmountArg(0)))
	if err != nil {
		return friendlyError(ctx, err)
	}
	msg := fmt.Sprintf("Deposited %s. Bank: %s / %s.",
		common.FormatCoins(result.Moved),
		common.FormatBalance(result.Bank), common.FormatBalance(result.Capacity))
	if result.Moved < result.Requested {
		msg += " Your bank could not hold the rest."
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(msg))
}

func (f *Feature) handleWithdraw(ctx *dispatch.Context) error {
	result, err := f.economy.Withdraw(ctx.Ctx, ctx.Author().ID, toServiceAmount(ctx.AmountArg(0)))
	if err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"Withdrew %s. Wallet: %s.", common.FormatCoins(result.Moved), common.FormatBalance(result.Wallet))))
}

func (f *Feature) handleGive(ctx *dispatch.Context) error {
	target := ctx.MemberArg(0)
	result, err := f.economy.Transfer(ctx.Ctx, ctx.Author().ID, target.User.ID, ctx.Int(1))
	if err != nil {
		if errors.Is(err, service.ErrNoAccount) {
			return ctx.Reply("Both of you need an open account for that.")
		}
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"Gave %s to %s.", common.FormatCoins(result.Amount), common.DisplayName(target))))
}

func (f *Feature) handleRob(ctx *dispatch.Context) error {
	target := ctx.MemberArg(0)
	if target.User.ID == ctx.Author().ID {
		return ctx.Reply("Robbing yourself would be a strange crime.")
	}

	result, err := f.economy.Rob(ctx.Ctx, ctx.Author().ID, target.User.ID)
	if err != nil {
		return friendlyError(ctx, err)
	}

	name := common.DisplayName(target)
	switch result.Outcome {
	case service.RobSuccess:
		return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
			"You robbed %s of %s!", name, common.FormatCoins(result.Stolen))))
	case service.RobProtected:
		return ctx.Reply("%s's guard dog chased you off. Their protection absorbed the attempt.", name)
	case service.RobNoMoney:
		return ctx.Reply("%s's wallet is too light to rob.", name)
	default:
		return ctx.ReplyEmbed(common.ErrorEmbed(fmt.Sprintf(
			"You got caught and paid a %s fine.", common.FormatCoins(result.Penalty))))
	}
}

func (f *Feature) handleGamble(ctx *dispatch.Context, kind service.GameKind) error {
	result, err := f.economy.Gamble(ctx.Ctx, ctx.Author().ID, kind, toServiceAmount(ctx.AmountArg(0)))
	if err != nil {
		return friendlyError(ctx, err)
	}

	if result.Won {
		return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
			"🎉 **You won!** You gained %s. Wallet: %s.",
			common.FormatCoins(result.Net), common.FormatBalance(result.Wallet))))
	}
	return ctx.ReplyEmbed(common.ErrorEmbed(fmt.Sprintf(
		"😔 **You lost** %s. Wallet: %s.",
		common.FormatCoins(result.Bet), common.FormatBalance(result.Wallet))))
}

func (f *Feature) handleShop(ctx *dispatch.Context) error {
	var b strings.Builder
	for _, item := range service.Catalog() {
		fmt.Fprintf(&b, "**%s** `%s` — %s\n%s\n\n",
			item.Name, item.Key, common.FormatCoins(item.Price), item.Description)
	}
	return ctx.ReplyEmbed(common.InfoEmbed("Item shop", b.String()))
}

func (f *Feature) handleBuy(ctx *dispatch.Context) error {
	quantity := 1
	if ctx.Has(1) {
		quantity = int(ctx.Int(1))
	}
	result, err := f.economy.Buy(ctx.Ctx, ctx.Author().ID, strings.ToLower(ctx.String(0)), quantity)
	if err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"Bought %d× **%s** for %s. Wallet: %s.",
		result.Quantity, result.Item.Name, common.FormatCoins(result.Paid), common.FormatBalance(result.Wallet))))
}

func (f *Feature) handleUse(ctx *dispatch.Context) error {
	result, err := f.economy.Use(ctx.Ctx, ctx.Author().ID, strings.ToLower(ctx.String(0)))
	if err != nil {
		return friendlyError(ctx, err)
	}
	msg := fmt.Sprintf("Used **%s**.", result.Item.Name)
	if result.NewCapacity > 0 {
		msg = fmt.Sprintf("Used **%s**. Bank capacity is now %s.",
			result.Item.Name, common.FormatBalance(result.NewCapacity))
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(msg))
}

// inventoryLines renders the unused item counts. Keys that fell out of the
// catalog are skipped rather than shown raw.
func inventoryLines(inventory []*models.ItemInstance) string {
	var b strings.Builder
	unused := make(map[string]int)
	for _, item := range inventory {
		if !item.Used {
			unused[item.ItemKey]++
		}
	}
	if len(unused) == 0 {
		b.WriteString("*No unused items.*\n")
	}
	for key, count := range unused {
		if item := service.CatalogItem(key); item != nil {
			fmt.Fprintf(&b, "%d× **%s**\n", count, item.Name)
		}
	}
	return b.String()
}

func (f *Feature) handleInventory(ctx *dispatch.Context) error {
	account, err := f.economy.Account(ctx.Ctx, ctx.Author().ID)
	if err != nil {
		return friendlyError(ctx, err)
	}

	var b strings.Builder
	b.WriteString(inventoryLines(account.Inventory))

	if len(account.ActiveEffects) > 0 {
		b.WriteString("\n__Active effects__\n")
		for _, effect := range account.ActiveEffects {
			uses := "permanent"
			if effect.Duration >= 0 {
				uses = fmt.Sprintf("%d uses left", effect.Duration)
			}
			fmt.Fprintf(&b, "%s (%s)\n", effect.Type, uses)
		}
	}
	return ctx.ReplyEmbed(common.InfoEmbed("Inventory", b.String()))
}

func (f *Feature) renderBoard(ctx *dispatch.Context, title string, entries []*service.LeaderboardEntry, value func(*service.LeaderboardEntry) int64) error {
	if len(entries) == 0 {
		return ctx.Reply("Nobody has an account yet.")
	}
	var b strings.Builder
	for i, entry := range entries {
		fmt.Fprintf(&b, "%d. <@%s> — %s\n", i+1, entry.UserID, common.FormatBalance(value(entry)))
	}
	return ctx.ReplyEmbed(common.InfoEmbed(title, b.String()))
}

func (f *Feature) handleLeaderboard(ctx *dispatch.Context) error {
	entries, err := f.economy.Leaderboard(ctx.Ctx, 10)
	if err != nil {
		return err
	}
	return f.renderBoard(ctx, "Top earners", entries, func(e *service.LeaderboardEntry) int64 { return e.NetWorth })
}

func (f *Feature) handleRichest(ctx *dispatch.Context) error {
	entries, err := f.economy.Richest(ctx.Ctx, 10)
	if err != nil {
		return err
	}
	return f.renderBoard(ctx, "Richest members", entries, func(e *service.LeaderboardEntry) int64 { return e.NetWorth })
}

func (f *Feature) handleStats(ctx *dispatch.Context) error {
	account, err := f.economy.Account(ctx.Ctx, ctx.Author().ID)
	if err != nil {
		return friendlyError(ctx, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Total earned: %s\nTotal lost: %s\n\n",
		common.FormatBalance(account.TotalEarnings), common.FormatBalance(account.TotalLosses))
	for _, kind := range []service.GameKind{
		service.GameGamble, service.GameSupergamble, service.GameDice,
		service.GameCoinflip, service.GameBlackjack,
	} {
		stat := account.Stats[string(kind)]
		if stat == nil || stat.Plays == 0 {
			continue
		}
		fmt.Fprintf(&b, "**%s**: %d/%d wins (%.0f%%)\n",
			kind, stat.Wins, stat.Plays, 100*float64(stat.Wins)/float64(stat.Plays))
	}
	return ctx.ReplyEmbed(common.InfoEmbed("Your stats", b.String()))
}
