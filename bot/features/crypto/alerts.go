package crypto

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"steward/bot/common"
	"steward/crypto"
	"steward/dispatch"
	"steward/models"
	"steward/service"
)

func (f *Feature) handleSubscribe(ctx *dispatch.Context) error {
	coin := strings.ToLower(ctx.String(0))
	direction := strings.ToLower(ctx.String(1))
	if direction != "above" && direction != "below" {
		return ctx.Reply("Direction must be `above` or `below`.")
	}
	price, err := strconv.ParseFloat(strings.TrimPrefix(ctx.String(2), "$"), 64)
	if err != nil || price <= 0 {
		return ctx.Reply("That's not a price I can watch.")
	}

	// Reject unknown coins up front rather than letting the sweep churn.
	quote, err := f.market.Quote(ctx.Ctx, coin)
	if err != nil {
		if errors.Is(err, crypto.ErrUnknownCoin) {
			return ctx.Reply("No listing for `%s`.", coin)
		}
		return err
	}

	id, err := f.alerts.AddAlert(ctx.Ctx, ctx.GuildID(), &models.CryptoAlert{
		UserID:    ctx.Author().ID,
		ChannelID: ctx.ChannelID(),
		Coin:      quote.Coin,
		Above:     direction == "above",
		PriceUSD:  price,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"Watching `%s` (now $%s). I'll ping you when it goes %s $%s. Alert id: `%s`",
		quote.Coin, formatPrice(quote.PriceUSD), direction, formatPrice(price), id)))
}

func (f *Feature) handleAlertList(ctx *dispatch.Context) error {
	alerts, err := f.alerts.Alerts(ctx.Ctx, ctx.GuildID())
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		return ctx.Reply("No price alerts on this server.")
	}

	var b strings.Builder
	for _, a := range alerts {
		direction := "below"
		if a.Above {
			direction = "above"
		}
		fmt.Fprintf(&b, "`%s` <@%s>: %s %s $%s\n", a.ID, a.UserID, a.Coin, direction, formatPrice(a.PriceUSD))
	}
	return ctx.ReplyEmbed(common.InfoEmbed("Price alerts", b.String()))
}

func (f *Feature) handleAlertRemove(ctx *dispatch.Context) error {
	id := ctx.String(0)
	alerts, err := f.alerts.Alerts(ctx.Ctx, ctx.GuildID())
	if err != nil {
		return err
	}
	for _, a := range alerts {
		if a.ID == id && a.UserID != ctx.Author().ID {
			return ctx.Reply("That alert belongs to someone else.")
		}
	}

	if err := f.alerts.RemoveAlert(ctx.Ctx, ctx.GuildID(), id); err != nil {
		if errors.Is(err, service.ErrNoSuchAlert) {
			return ctx.Reply("No alert with that id.")
		}
		return err
	}
	return ctx.ReplyEmbed(common.SuccessEmbed("Alert removed."))
}

// SweepAlerts checks every stored price watch once and fires the crossed
// ones. Each coin is quoted once per sweep; the client's cache absorbs the
// rest.
func (f *Feature) SweepAlerts(ctx context.Context, announce func(channelID, content string) error) error {
	byGuild, err := f.alerts.AllAlerts(ctx)
	if err != nil {
		return err
	}

	quotes := make(map[string]*crypto.Quote)
	for guildID, alerts := range byGuild {
		for _, a := range alerts {
			quote, ok := quotes[a.Coin]
			if !ok {
				quote, err = f.market.Quote(ctx, a.Coin)
				if err != nil {
					log.WithFields(log.Fields{"coin": a.Coin, "error": err}).Warn("Price alert quote failed")
					continue
				}
				quotes[a.Coin] = quote
			}

			crossed := quote.PriceUSD >= a.PriceUSD
			if !a.Above {
				crossed = quote.PriceUSD <= a.PriceUSD
			}
			if !crossed {
				continue
			}

			direction := "fell below"
			if a.Above {
				direction = "rose above"
			}
			content := fmt.Sprintf("🔔 <@%s> `%s` %s $%s (now $%s)",
				a.UserID, a.Coin, direction, formatPrice(a.PriceUSD), formatPrice(quote.PriceUSD))
			if err := announce(a.ChannelID, content); err != nil {
				log.WithFields(log.Fields{"channel": a.ChannelID, "error": err}).Warn("Price alert delivery failed")
			}
			if err := f.alerts.RemoveAlert(ctx, guildID, a.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
