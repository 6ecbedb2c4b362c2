// Package crypto wires the market lookup commands: coin prices, Ethereum gas
// and transaction inspection.
package crypto

import (
	"steward/crypto"
	"steward/dispatch"
	"steward/service"
)

// Feature represents the crypto feature
type Feature struct {
	market *crypto.Client
	alerts service.CryptoAlertService
}

// New creates a new crypto feature instance
func New(market *crypto.Client, alerts service.CryptoAlertService) *Feature {
	return &Feature{market: market, alerts: alerts}
}

// Register adds the market commands to the registry.
func (f *Feature) Register(reg *dispatch.Registry) {
	reg.Register(&dispatch.Command{
		Name: "crypto", Aliases: []string{"price"}, Category: "crypto",
		Description: "Show a coin's USD price",
		Usage:       "crypto <coin>",
		Params:      []dispatch.Param{{Name: "coin", Kind: dispatch.KindString}},
		Run:         f.handlePrice,
	})
	reg.Register(&dispatch.Command{
		Name: "gas", Category: "crypto",
		Description: "Show current Ethereum gas prices",
		Run:         f.handleGas,
	})
	reg.Register(&dispatch.Command{
		Name: "transaction", Aliases: []string{"tx"}, Category: "crypto",
		Description: "Look up an Ethereum transaction",
		Usage:       "transaction <hash>",
		Params:      []dispatch.Param{{Name: "hash", Kind: dispatch.KindString}},
		Run:         f.handleTransaction,
	})

	subscribe := &dispatch.Command{
		Name: "subscribe", Category: "crypto",
		Description: "Ping you when a coin crosses a price",
		Usage:       "subscribe <coin> <above|below> <price>",
		Params: []dispatch.Param{
			{Name: "coin", Kind: dispatch.KindString},
			{Name: "direction", Kind: dispatch.KindString},
			{Name: "price", Kind: dispatch.KindString},
		},
		Run: f.handleSubscribe,
	}
	subscribe.Sub(&dispatch.Command{
		Name:        "list",
		Description: "List this server's price alerts",
		Run:         f.handleAlertList,
	})
	subscribe.Sub(&dispatch.Command{
		Name:        "remove",
		Description: "Remove one of your price alerts",
		Usage:       "subscribe remove <id>",
		Params:      []dispatch.Param{{Name: "id", Kind: dispatch.KindString}},
		Run:         f.handleAlertRemove,
	})
	reg.Register(subscribe)
}
