// Package pokemon wires the trainer commands: catching, party management,
// battles, evolution and the ball shop.
package pokemon

import (
	"steward/dispatch"
	"steward/service"
)

// Feature represents the pokémon feature
type Feature struct {
	pokemon service.PokemonService
	economy service.EconomyService
}

// New creates a new pokemon feature instance
func New(pokemon service.PokemonService, economy service.EconomyService) *Feature {
	return &Feature{pokemon: pokemon, economy: economy}
}

// Register adds every trainer command to the registry.
func (f *Feature) Register(reg *dispatch.Registry) {
	reg.Register(&dispatch.Command{
		Name: "start", Aliases: []string{"journey"}, Category: "pokemon",
		Description: "Begin your trainer journey",
		Run:         f.handleStart,
	})
	reg.Register(&dispatch.Command{
		Name: "trainer", Aliases: []string{"pokestats"}, Category: "pokemon",
		Description: "Show a trainer card",
		Usage:       "trainer [member]",
		Params:      []dispatch.Param{{Name: "member", Kind: dispatch.KindMember, Optional: true}},
		Run:         f.handleTrainer,
	})
	reg.Register(&dispatch.Command{
		Name: "catch", Category: "pokemon",
		Description: "Throw a ball at a wild pokémon",
		Usage:       "catch [ball]",
		Params:      []dispatch.Param{{Name: "ball", Kind: dispatch.KindString, Optional: true}},
		Run:         f.handleCatch,
	})
	reg.Register(&dispatch.Command{
		Name: "party", Category: "pokemon",
		Description: "Show your party",
		Run:         f.handleParty,
	})
	reg.Register(&dispatch.Command{
		Name: "box", Aliases: []string{"pc", "pokemon", "pinv"}, Category: "pokemon",
		Description: "Show every pokémon you own",
		Run:         f.handleBox,
	})
	reg.Register(&dispatch.Command{
		Name: "pinfo", Aliases: []string{"moves"}, Category: "pokemon",
		Description: "Show one pokémon's details",
		Usage:       "pinfo <id>",
		Params:      []dispatch.Param{{Name: "id", Kind: dispatch.KindString}},
		Run:         f.handleInfo,
	})
	reg.Register(&dispatch.Command{
		Name: "primary", Aliases: []string{"select"}, Category: "pokemon",
		Description: "Set your primary pokémon",
		Usage:       "primary <id>",
		Params:      []dispatch.Param{{Name: "id", Kind: dispatch.KindString}},
		Run:         f.handlePrimary,
	})
	reg.Register(&dispatch.Command{
		Name: "nickname", Category: "pokemon",
		Description: "Nickname one of your pokémon",
		Usage:       "nickname <id> <name>",
		Params: []dispatch.Param{
			{Name: "id", Kind: dispatch.KindString},
			{Name: "name", Kind: dispatch.KindRemainder},
		},
		Run: f.handleNickname,
	})
	reg.Register(&dispatch.Command{
		Name: "release", Category: "pokemon",
		Description: "Release a pokémon back to the wild",
		Usage:       "release <id>",
		Params:      []dispatch.Param{{Name: "id", Kind: dispatch.KindString}},
		Run:         f.handleRelease,
	})
	reg.Register(&dispatch.Command{
		Name: "toparty", Category: "pokemon",
		Description: "Move a boxed pokémon into your party",
		Usage:       "toparty <id>",
		Params:      []dispatch.Param{{Name: "id", Kind: dispatch.KindString}},
		Run:         f.handleToParty,
	})
	reg.Register(&dispatch.Command{
		Name: "tobox", Category: "pokemon",
		Description: "Move a party pokémon into the box",
		Usage:       "tobox <id>",
		Params:      []dispatch.Param{{Name: "id", Kind: dispatch.KindString}},
		Run:         f.handleToBox,
	})
	reg.Register(&dispatch.Command{
		Name: "battle", Category: "pokemon",
		Description: "Battle a wild pokémon with your primary",
		Run:         f.handleBattle,
	})
	reg.Register(&dispatch.Command{
		Name: "evolve", Category: "pokemon",
		Description: "Evolve a pokémon of level 20 or higher",
		Usage:       "evolve <id>",
		Params:      []dispatch.Param{{Name: "id", Kind: dispatch.KindString}},
		Run:         f.handleEvolve,
	})
	reg.Register(&dispatch.Command{
		Name: "pokedex", Aliases: []string{"dex"}, Category: "pokemon",
		Description: "Show your pokédex progress",
		Run:         f.handlePokedex,
	})
	reg.Register(&dispatch.Command{
		Name: "balls", Aliases: []string{"pokeshop"}, Category: "pokemon",
		Description: "Show your ball inventory and the ball shop",
		Run:         f.handleBalls,
	})
	reg.Register(&dispatch.Command{
		Name: "buyball", Aliases: []string{"pokebuy"}, Category: "pokemon",
		Description: "Buy balls with coins",
		Usage:       "buyball <kind> [count]",
		Params: []dispatch.Param{
			{Name: "kind", Kind: dispatch.KindString},
			{Name: "count", Kind: dispatch.KindInt, Optional: true},
		},
		Run: f.handleBuyBall,
	})
}
