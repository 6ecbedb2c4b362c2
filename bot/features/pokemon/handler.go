package pokemon

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

func friendlyError(ctx *dispatch.Context, err error) error {
	var cooldown *service.CooldownError
	if errors.As(err, &cooldown) {
		return ctx.Reply("The tall grass is quiet. Try again in %s.", common.FormatDuration(cooldown.Remaining))
	}

	var msg string
	switch {
	case errors.Is(err, service.ErrNoTrainer):
		msg = "You haven't started yet. Use `start` first."
	case errors.Is(err, service.ErrTrainerExists):
		msg = "You are already a trainer."
	case errors.Is(err, service.ErrNoSuchPokemon), errors.Is(err, service.ErrNotYourPokemon):
		msg = "You don't own a pokémon with that id."
	case errors.Is(err, service.ErrNoBalls):
		msg = "You're out of that kind of ball. Buy more with `buyball`."
	case errors.Is(err, service.ErrUnknownBall):
		msg = "Unknown ball kind. See `balls` for the list."
	case errors.Is(err, service.ErrPartyFull):
		msg = "Your party is full."
	case errors.Is(err, service.ErrNotInParty):
		msg = "That pokémon is already in the box."
	case errors.Is(err, service.ErrCannotEvolve):
		msg = "That pokémon has no further evolution."
	case errors.Is(err, service.ErrEvolveTooLow):
		msg = fmt.Sprintf("It needs to be at least level %d to evolve.", service.EvolveMinLevel)
	case errors.Is(err, service.ErrNoPrimary):
		msg = "Set a primary pokémon first with `primary`."
	case errors.Is(err, service.ErrNoAccount):
		msg = "You need a coin account for that. Use `open` first."
	case errors.Is(err, service.ErrInsufficientFunds):
		msg = "You can't afford that."
	default:
		return err
	}
	return ctx.Reply("%s", msg)
}

// shortID trims an instance uuid for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (f *Feature) handleStart(ctx *dispatch.Context) error {
	_, err := f.pokemon.Start(ctx.Ctx, ctx.Author().ID)
	if err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(
		"Welcome to the world of pokémon! You received 5 poké balls. Use `catch` to find your first partner."))
}

func (f *Feature) handleTrainer(ctx *dispatch.Context) error {
	userID := ctx.Author().ID
	name := ctx.Author().Username
	if ctx.Has(0) {
		member := ctx.MemberArg(0)
		userID = member.User.ID
		name = common.DisplayName(member)
	}

	trainer, err := f.pokemon.Trainer(ctx.Ctx, userID)
	if err != nil {
		return friendlyError(ctx, err)
	}
	caught, total, err := f.pokemon.Pokedex(ctx.Ctx, userID)
	if err != nil {
		return friendlyError(ctx, err)
	}

	return ctx.ReplyEmbed(&discordgo.MessageEmbed{
		Title: fmt.Sprintf("Trainer %s", name),
		Color: common.ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Level", Value: fmt.Sprintf("%d", trainer.Level), Inline: true},
			{Name: "XP", Value: fmt.Sprintf("%d / %d", trainer.XP, trainer.XPToLevel), Inline: true},
			{Name: "Pokédex", Value: fmt.Sprintf("%d / %d", len(caught), total), Inline: true},
		},
	})
}

func (f *Feature) handleCatch(ctx *dispatch.Context) error {
	ball := "pokeballs"
	if ctx.Has(0) {
		ball = normalizeBall(ctx.String(0))
	}

	result, err := f.pokemon.Catch(ctx.Ctx, ctx.Author().ID, ball)
	if err != nil {
		return friendlyError(ctx, err)
	}

	if result.Fled {
		return ctx.ReplyEmbed(common.ErrorEmbed(fmt.Sprintf(
			"Oh no, it broke free and fled! %d %s left.", result.BallsLeft, result.BallKind)))
	}

	p := result.Pokemon
	desc := fmt.Sprintf("Caught a level %d **%s**! `%s`", p.Level, p.DisplayName, shortID(p.ID))
	if result.FirstEver {
		desc += "\nIt became your primary pokémon."
	}
	if !result.InParty {
		desc += "\nYour party was full, so it went to the box."
	}
	embed := common.SuccessEmbed(desc)
	if p.SpriteURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: p.SpriteURL}
	}
	return ctx.ReplyEmbed(embed)
}

// normalizeBall accepts singular and short forms like "ultra" or "ultraball".
func normalizeBall(input string) string {
	kind := strings.ToLower(strings.TrimSpace(input))
	kind = strings.ReplaceAll(kind, " ", "")
	if !strings.HasSuffix(kind, "balls") {
		kind = strings.TrimSuffix(kind, "ball") + "balls"
	}
	return kind
}

func describePokemon(p *models.Pokemon) string {
	return fmt.Sprintf("`%s` Lv.%d **%s** (%s)", shortID(p.ID), p.Level, p.Name(), strings.Join(p.Types, "/"))
}

func (f *Feature) handleParty(ctx *dispatch.Context) error {
	party, err := f.pokemon.Party(ctx.Ctx, ctx.Author().ID)
	if err != nil {
		return friendlyError(ctx, err)
	}
	if len(party) == 0 {
		return ctx.Reply("Your party is empty. Go `catch` something.")
	}

	var b strings.Builder
	for _, p := range party {
		fmt.Fprintf(&b, "%d. %s — %d/%d HP\n", p.PartySlot, describePokemon(p), p.CurrentHP, p.Stats[models.StatHP])
	}
	return ctx.ReplyEmbed(common.InfoEmbed("Your party", b.String()))
}

func (f *Feature) handleBox(ctx *dispatch.Context) error {
	all, err := f.pokemon.List(ctx.Ctx, ctx.Author().ID)
	if err != nil {
		return friendlyError(ctx, err)
	}
	if len(all) == 0 {
		return ctx.Reply("You don't own any pokémon yet.")
	}

	var b strings.Builder
	for _, p := range all {
		where := "box"
		if p.PartySlot != 0 {
			where = fmt.Sprintf("party %d", p.PartySlot)
		}
		fmt.Fprintf(&b, "%s — %s\n", describePokemon(p), where)
	}
	return ctx.ReplyEmbed(common.InfoEmbed(fmt.Sprintf("Your pokémon (%d)", len(all)), b.String()))
}

// resolveID matches a possibly shortened instance id against the user's
// pokémon.
func (f *Feature) resolveID(ctx *dispatch.Context, input string) (string, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	all, err := f.pokemon.List(ctx.Ctx, ctx.Author().ID)
	if err != nil {
		return "", err
	}
	for _, p := range all {
		if p.ID == input || strings.HasPrefix(p.ID, input) {
			return p.ID, nil
		}
	}
	return "", service.ErrNoSuchPokemon
}

func (f *Feature) handleInfo(ctx *dispatch.Context) error {
	id, err := f.resolveID(ctx, ctx.String(0))
	if err != nil {
		return friendlyError(ctx, err)
	}
	p, err := f.pokemon.Get(ctx.Ctx, ctx.Author().ID, id)
	if err != nil {
		return friendlyError(ctx, err)
	}

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s — level %d", p.Name(), p.Level),
		Color: common.ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Species", Value: fmt.Sprintf("%s (#%d)", p.DisplayName, p.SpeciesID), Inline: true},
			{Name: "Types", Value: strings.Join(p.Types, ", "), Inline: true},
			{Name: "XP", Value: fmt.Sprintf("%d / %d", p.XP, p.XPToLevel), Inline: true},
			{Name: "HP", Value: fmt.Sprintf("%d / %d", p.CurrentHP, p.Stats[models.StatHP]), Inline: true},
			{Name: "Attack", Value: fmt.Sprintf("%d", p.Stats[models.StatAttack]), Inline: true},
			{Name: "Defense", Value: fmt.Sprintf("%d", p.Stats[models.StatDefense]), Inline: true},
			{Name: "Moves", Value: strings.Join(p.Moves, ", "), Inline: false},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Caught %s", p.CaughtAt.Format("2006-01-02"))},
	}
	if p.SpriteURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: p.SpriteURL}
	}
	return ctx.ReplyEmbed(embed)
}

func (f *Feature) handlePrimary(ctx *dispatch.Context) error {
	id, err := f.resolveID(ctx, ctx.String(0))
	if err != nil {
		return friendlyError(ctx, err)
	}
	if err := f.pokemon.SetPrimary(ctx.Ctx, ctx.Author().ID, id); err != nil {
		return friendlyError(ctx, err)
	}
	p, err := f.pokemon.Get(ctx.Ctx, ctx.Author().ID, id)
	if err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("**%s** is now your primary pokémon.", p.Name())))
}

func (f *Feature) handleNickname(ctx *dispatch.Context) error {
	id, err := f.resolveID(ctx, ctx.String(0))
	if err != nil {
		return friendlyError(ctx, err)
	}
	nickname := strings.TrimSpace(ctx.String(1))
	if len(nickname) > 32 {
		return ctx.Reply("Keep nicknames under 32 characters.")
	}
	if err := f.pokemon.SetNickname(ctx.Ctx, ctx.Author().ID, id, nickname); err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Nickname set to **%s**.", nickname)))
}

func (f *Feature) handleRelease(ctx *dispatch.Context) error {
	id, err := f.resolveID(ctx, ctx.String(0))
	if err != nil {
		return friendlyError(ctx, err)
	}
	p, err := f.pokemon.Release(ctx.Ctx, ctx.Author().ID, id)
	if err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Released **%s**. Bye bye!", p.Name())))
}

func (f *Feature) handleToParty(ctx *dispatch.Context) error {
	id, err := f.resolveID(ctx, ctx.String(0))
	if err != nil {
		return friendlyError(ctx, err)
	}
	slot, err := f.pokemon.MoveToParty(ctx.Ctx, ctx.Author().ID, id)
	if err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf("Moved into party slot %d.", slot)))
}

func (f *Feature) handleToBox(ctx *dispatch.Context) error {
	id, err := f.resolveID(ctx, ctx.String(0))
	if err != nil {
		return friendlyError(ctx, err)
	}
	if err := f.pokemon.MoveToPC(ctx.Ctx, ctx.Author().ID, id); err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.SuccessEmbed("Sent to the box."))
}

func (f *Feature) handleBattle(ctx *dispatch.Context) error {
	result, err := f.pokemon.Battle(ctx.Ctx, ctx.Author().ID)
	if err != nil {
		return friendlyError(ctx, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "A wild level %d **%s** appeared!\n\n", result.EnemyLevel, result.EnemySpecies)
	if result.Won {
		fmt.Fprintf(&b, "**%s** won! +%d XP.", result.Pokemon.Name(), result.XPGained)
	} else {
		fmt.Fprintf(&b, "**%s** was defeated and limped away. +%d XP.", result.Pokemon.Name(), result.XPGained)
	}
	if result.PokemonLevelUps > 0 {
		fmt.Fprintf(&b, "\n**%s** grew to level %d!", result.Pokemon.Name(), result.Pokemon.Level)
	}
	if result.TrainerLevelUps > 0 {
		fmt.Fprintf(&b, "\nYou reached trainer level %d!", result.TrainerLevelUps+1)
	}

	embed := common.InfoEmbed("Wild battle", b.String())
	if result.Won {
		embed.Color = common.ColorSuccess
	} else {
		embed.Color = common.ColorError
	}
	return ctx.ReplyEmbed(embed)
}

func (f *Feature) handleEvolve(ctx *dispatch.Context) error {
	id, err := f.resolveID(ctx, ctx.String(0))
	if err != nil {
		return friendlyError(ctx, err)
	}
	result, err := f.pokemon.Evolve(ctx.Ctx, ctx.Author().ID, id)
	if err != nil {
		return friendlyError(ctx, err)
	}

	embed := common.SuccessEmbed(fmt.Sprintf("What? **%s** is evolving... it became **%s**!",
		result.From, result.Pokemon.DisplayName))
	if result.Pokemon.SpriteURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: result.Pokemon.SpriteURL}
	}
	return ctx.ReplyEmbed(embed)
}

func (f *Feature) handlePokedex(ctx *dispatch.Context) error {
	caught, total, err := f.pokemon.Pokedex(ctx.Ctx, ctx.Author().ID)
	if err != nil {
		return friendlyError(ctx, err)
	}
	return ctx.ReplyEmbed(common.InfoEmbed("Pokédex",
		fmt.Sprintf("You have caught **%d** of **%d** species (%.1f%%).",
			len(caught), total, 100*float64(len(caught))/float64(total))))
}

func (f *Feature) handleBalls(ctx *dispatch.Context) error {
	balls, err := f.pokemon.Balls(ctx.Ctx, ctx.Author().ID)
	if err != nil {
		return friendlyError(ctx, err)
	}

	var b strings.Builder
	b.WriteString("__Your inventory__\n")
	empty := true
	for _, ball := range service.BallCatalog() {
		if count := balls[ball.Key]; count > 0 {
			fmt.Fprintf(&b, "%d× %s\n", count, ball.Name)
			empty = false
		}
	}
	if empty {
		b.WriteString("*nothing*\n")
	}

	b.WriteString("\n__Ball shop__\n")
	for _, ball := range service.BallCatalog() {
		fmt.Fprintf(&b, "`%s` **%s** — %s (%.0f%% catch rate)\n",
			ball.Key, ball.Name, common.FormatCoins(ball.Price), ball.CatchRate*100)
	}
	return ctx.ReplyEmbed(common.InfoEmbed("Balls", b.String()))
}

func (f *Feature) handleBuyBall(ctx *dispatch.Context) error {
	kind := normalizeBall(ctx.String(0))
	ball, ok := service.BallItem(kind)
	if !ok {
		return friendlyError(ctx, service.ErrUnknownBall)
	}

	count := 1
	if ctx.Has(1) {
		count = int(ctx.Int(1))
	}
	if count < 1 || count > 100 {
		return ctx.Reply("Buy between 1 and 100 balls at a time.")
	}

	total := ball.Price * int64(count)
	wallet, err := f.economy.Spend(ctx.Ctx, ctx.Author().ID, total, "ball purchase")
	if err != nil {
		return friendlyError(ctx, err)
	}
	if err := f.pokemon.GrantBalls(ctx.Ctx, ctx.Author().ID, ball.Key, count); err != nil {
		return friendlyError(ctx, err)
	}

	return ctx.ReplyEmbed(common.SuccessEmbed(fmt.Sprintf(
		"Bought %d× **%s** for %s. Wallet: %s.",
		count, ball.Name, common.FormatCoins(total), common.FormatBalance(wallet))))
}
