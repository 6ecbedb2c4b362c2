package pokeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	log "github.com/sirupsen/logrus"
)

// Species is the flattened view of one species as the rest of the system
// consumes it.
type Species struct {
	ID        int
	Name      string
	Types     []string
	BaseStats map[string]int
	Moves     []string
	SpriteURL string
	Weight    int // hectograms, as the API reports it
}

// Evolution names the next stage of a species, if any.
type Evolution struct {
	SpeciesID int
	Name      string
}

// Client fetches species data from the public API. Responses are immutable
// upstream so every lookup is cached.
type Client struct {
	base  string
	http  *http.Client
	cache *lru.Cache
}

// New creates a new species client. base is the API root without a trailing
// slash, e.g. "https://pokeapi.co/api/v2".
func New(base string) (*Client, error) {
	cache, err := lru.New(512)
	if err != nil {
		return nil, fmt.Errorf("failed to create species cache: %w", err)
	}
	return &Client{
		base:  strings.TrimSuffix(base, "/"),
		http:  &http.Client{Timeout: 10 * time.Second},
		cache: cache,
	}, nil
}

// Wire shapes, trimmed to the fields we read.
type pokemonResponse struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Weight int    `json:"weight"`
	Types []struct {
		Type struct {
			Name string `json:"name"`
		} `json:"type"`
	} `json:"types"`
	Stats []struct {
		BaseStat int `json:"base_stat"`
		Stat     struct {
			Name string `json:"name"`
		} `json:"stat"`
	} `json:"stats"`
	Moves []struct {
		Move struct {
			Name string `json:"name"`
		} `json:"move"`
	} `json:"moves"`
	Sprites struct {
		FrontDefault string `json:"front_default"`
	} `json:"sprites"`
}

type speciesResponse struct {
	EvolutionChain struct {
		URL string `json:"url"`
	} `json:"evolution_chain"`
}

type chainLink struct {
	Species struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"species"`
	EvolvesTo []chainLink `json:"evolves_to"`
}

type evolutionChainResponse struct {
	Chain chainLink `json:"chain"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// Pokemon fetches the flattened species view for the given national dex id.
func (c *Client) Pokemon(ctx context.Context, id int) (*Species, error) {
	key := fmt.Sprintf("pokemon/%d", id)
	if cached, ok := c.cache.Get(key); ok {
		return cached.(*Species), nil
	}

	var raw pokemonResponse
	if err := c.get(ctx, fmt.Sprintf("/pokemon/%d", id), &raw); err != nil {
		return nil, err
	}

	sp := &Species{
		ID:        raw.ID,
		Name:      displayName(raw.Name),
		BaseStats: make(map[string]int, len(raw.Stats)),
		SpriteURL: raw.Sprites.FrontDefault,
		Weight:    raw.Weight,
	}
	for _, t := range raw.Types {
		sp.Types = append(sp.Types, t.Type.Name)
	}
	for _, s := range raw.Stats {
		sp.BaseStats[strings.ReplaceAll(s.Stat.Name, "-", "_")] = s.BaseStat
	}
	for _, m := range raw.Moves {
		sp.Moves = append(sp.Moves, strings.ReplaceAll(m.Move.Name, "-", " "))
	}

	c.cache.Add(key, sp)
	return sp, nil
}

// NextEvolution walks the species' evolution chain and returns the stage the
// species evolves into. Returns nil when the species is final or absent from
// its chain.
func (c *Client) NextEvolution(ctx context.Context, speciesID int) (*Evolution, error) {
	key := fmt.Sprintf("evolution/%d", speciesID)
	if cached, ok := c.cache.Get(key); ok {
		if cached == nil {
			return nil, nil
		}
		return cached.(*Evolution), nil
	}

	var species speciesResponse
	if err := c.get(ctx, fmt.Sprintf("/pokemon-species/%d", speciesID), &species); err != nil {
		return nil, err
	}

	chainID := trailingID(species.EvolutionChain.URL)
	if chainID == 0 {
		return nil, fmt.Errorf("species %d has no evolution chain", speciesID)
	}

	var chain evolutionChainResponse
	if err := c.get(ctx, fmt.Sprintf("/evolution-chain/%d", chainID), &chain); err != nil {
		return nil, err
	}

	next := findNext(&chain.Chain, speciesID)
	if next == nil {
		log.WithFields(log.Fields{"species": speciesID}).Debug("Species has no further evolution")
		c.cache.Add(key, nil)
		return nil, nil
	}

	evo := &Evolution{
		SpeciesID: trailingID(next.Species.URL),
		Name:      displayName(next.Species.Name),
	}
	c.cache.Add(key, evo)
	return evo, nil
}

// findNext locates the link for speciesID in the chain and returns its first
// evolves_to entry.
func findNext(link *chainLink, speciesID int) *chainLink {
	if trailingID(link.Species.URL) == speciesID {
		if len(link.EvolvesTo) == 0 {
			return nil
		}
		return &link.EvolvesTo[0]
	}
	for i := range link.EvolvesTo {
		if found := findNext(&link.EvolvesTo[i], speciesID); found != nil {
			return found
		}
	}
	return nil
}

// trailingID extracts the numeric id from an API resource URL such as
// ".../evolution-chain/67/".
func trailingID(url string) int {
	parts := strings.Split(strings.TrimSuffix(url, "/"), "/")
	if len(parts) == 0 {
		return 0
	}
	id, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0
	}
	return id
}

func displayName(apiName string) string {
	name := strings.ReplaceAll(apiName, "-", " ")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
