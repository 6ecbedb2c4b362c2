package service

import (
	"steward/models"
)

// ShopItem is one entry of the fixed economy shop catalog.
type ShopItem struct {
	Key         string
	Name        string
	Description string
	Price       int64
	Effect      models.Effect
}

// catalog is the fixed item list. Order is the display order.
var catalog = []*ShopItem{
	{
		Key:         "lucky_charm",
		Name:        "Lucky Charm",
		Description: "Raises your win chance by 5% for your next 3 games.",
		Price:       1500,
		Effect:      models.Effect{Type: models.EffectWinChance, Value: 5, Duration: 3},
	},
	{
		Key:         "golden_dice",
		Name:        "Golden Dice",
		Description: "Raises your dice win chance by 10% for your next 5 dice games.",
		Price:       2000,
		Effect:      models.Effect{Type: models.EffectDiceBoost, Value: 10, Duration: 5},
	},
	{
		Key:         "payout_token",
		Name:        "Payout Token",
		Description: "Multiplies your payout by 1.5x for your next 2 wins.",
		Price:       2500,
		Effect:      models.Effect{Type: models.EffectWinMultiplier, Value: 1.5, Duration: 2},
	},
	{
		Key:         "guard_dog",
		Name:        "Guard Dog",
		Description: "Blocks the next 5 robbery attempts against you.",
		Price:       1000,
		Effect:      models.Effect{Type: models.EffectRobProtection, Value: 1, Duration: 5},
	},
	{
		Key:         "bank_note",
		Name:        "Bank Note",
		Description: "Permanently raises your bank capacity by 5,000.",
		Price:       5000,
		Effect:      models.Effect{Type: models.EffectBankCapacity, Value: 5000, Duration: -1},
	},
	{
		Key:         "vault_upgrade",
		Name:        "Vault Upgrade",
		Description: "Permanently raises your bank capacity by 25,000.",
		Price:       20000,
		Effect:      models.Effect{Type: models.EffectBankCapacity, Value: 25000, Duration: -1},
	},
}

// Catalog returns the shop catalog in display order.
func Catalog() []*ShopItem {
	return catalog
}

// CatalogItem looks an item up by key, nil when absent.
func CatalogItem(key string) *ShopItem {
	for _, item := range catalog {
		if item.Key == key {
			return item
		}
	}
	return nil
}
