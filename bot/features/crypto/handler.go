package crypto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"steward/bot/common"
	"steward/crypto"
	"steward/dispatch"
)

func (f *Feature) handlePrice(ctx *dispatch.Context) error {
	quote, err := f.market.Quote(ctx.Ctx, ctx.String(0))
	if err != nil {
		if errors.Is(err, crypto.ErrUnknownCoin) {
			return ctx.Reply("No listing for `%s`.", ctx.String(0))
		}
		return err
	}

	arrow := "📈"
	color := common.ColorSuccess
	if quote.Change24h < 0 {
		arrow = "📉"
		color = common.ColorError
	}
	return ctx.ReplyEmbed(&discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s %s", arrow, titleCase(quote.Coin)),
		Description: fmt.Sprintf("**$%s**\n%+.2f%% over 24h",
			formatPrice(quote.PriceUSD), quote.Change24h),
		Color: color,
	})
}

func (f *Feature) handleGas(ctx *dispatch.Context) error {
	gas, err := f.market.Gas(ctx.Ctx)
	if err != nil {
		return err
	}
	return ctx.ReplyEmbed(&discordgo.MessageEmbed{
		Title: "⛽ Ethereum gas",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Low", Value: fmt.Sprintf("%.1f gwei", gas.Low), Inline: true},
			{Name: "Average", Value: fmt.Sprintf("%.1f gwei", gas.Average), Inline: true},
			{Name: "High", Value: fmt.Sprintf("%.1f gwei", gas.High), Inline: true},
		},
		Color: common.ColorInfo,
	})
}

func (f *Feature) handleTransaction(ctx *dispatch.Context) error {
	hash := ctx.String(0)
	tx, err := f.market.Transaction(ctx.Ctx, hash)
	if err != nil {
		if errors.Is(err, crypto.ErrTxNotFound) {
			return ctx.Reply("No transaction found for `%s`.", hash)
		}
		return err
	}

	status := "Confirmed"
	if tx.Pending {
		status = "Pending"
	}
	return ctx.ReplyEmbed(&discordgo.MessageEmbed{
		Title: "Transaction",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Hash", Value: fmt.Sprintf("`%s`", tx.Hash)},
			{Name: "From", Value: fmt.Sprintf("`%s`", tx.From), Inline: true},
			{Name: "To", Value: fmt.Sprintf("`%s`", tx.To), Inline: true},
			{Name: "Value", Value: fmt.Sprintf("%.6f ETH", tx.ValueETH), Inline: true},
			{Name: "Gas price", Value: fmt.Sprintf("%.2f gwei", tx.GasGwei), Inline: true},
			{Name: "Status", Value: status, Inline: true},
		},
		Color: common.ColorInfo,
	})
}

// formatPrice keeps small-cap coins readable without drowning majors in
// decimals.
func formatPrice(p float64) string {
	if p >= 1000 {
		return common.FormatBalance(int64(p))
	}
	if p >= 1 {
		return fmt.Sprintf("%.2f", p)
	}
	return fmt.Sprintf("%.6f", p)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
