package service

// Ball is one purchasable ball kind. CatchRate is the base chance a throw
// connects before the encounter modifiers are applied.
type Ball struct {
	Key       string
	Name      string
	Price     int64
	CatchRate float64
}

var ballCatalog = []Ball{
	{Key: "pokeballs", Name: "Poké Ball", Price: 50, CatchRate: 0.40},
	{Key: "greatballs", Name: "Great Ball", Price: 120, CatchRate: 0.55},
	{Key: "ultraballs", Name: "Ultra Ball", Price: 300, CatchRate: 0.70},
	{Key: "masterballs", Name: "Master Ball", Price: 10000, CatchRate: 1.0},
	{Key: "luxuryballs", Name: "Luxury Ball", Price: 150, CatchRate: 0.45},
	{Key: "heavyballs", Name: "Heavy Ball", Price: 150, CatchRate: 0.50},
	{Key: "netballs", Name: "Net Ball", Price: 150, CatchRate: 0.50},
	{Key: "diveballs", Name: "Dive Ball", Price: 150, CatchRate: 0.50},
	{Key: "nestballs", Name: "Nest Ball", Price: 150, CatchRate: 0.50},
	{Key: "quickballs", Name: "Quick Ball", Price: 200, CatchRate: 0.60},
	{Key: "duskballs", Name: "Dusk Ball", Price: 180, CatchRate: 0.55},
	{Key: "timerballs", Name: "Timer Ball", Price: 180, CatchRate: 0.55},
}

// BallCatalog returns the purchasable ball kinds in display order.
func BallCatalog() []Ball {
	return ballCatalog
}

// BallItem looks up a ball kind by key.
func BallItem(key string) (Ball, bool) {
	for _, b := range ballCatalog {
		if b.Key == key {
			return b, true
		}
	}
	return Ball{}, false
}
