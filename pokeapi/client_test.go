package pokeapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/pokemon/25", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Write([]byte(`{
			"id": 25, "name": "pikachu", "weight": 60,
			"types": [{"type": {"name": "electric"}}],
			"stats": [
				{"base_stat": 35, "stat": {"name": "hp"}},
				{"base_stat": 90, "stat": {"name": "speed"}},
				{"base_stat": 50, "stat": {"name": "special-attack"}}
			],
			"moves": [{"move": {"name": "thunder-shock"}}, {"move": {"name": "quick-attack"}}],
			"sprites": {"front_default": "https://img.example/25.png"}
		}`))
	})
	mux.HandleFunc("/pokemon-species/25", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"evolution_chain": {"url": "https://api.example/evolution-chain/10/"}}`))
	})
	mux.HandleFunc("/evolution-chain/10", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chain": {
			"species": {"name": "pichu", "url": ".../pokemon-species/172/"},
			"evolves_to": [{
				"species": {"name": "pikachu", "url": ".../pokemon-species/25/"},
				"evolves_to": [{
					"species": {"name": "raichu", "url": ".../pokemon-species/26/"},
					"evolves_to": []
				}]
			}]
		}}`))
	})
	mux.HandleFunc("/pokemon-species/26", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"evolution_chain": {"url": "https://api.example/evolution-chain/10/"}}`))
	})
	return httptest.NewServer(mux)
}

func TestClient_PokemonFlattensAndCaches(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	sp, err := c.Pokemon(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, "Pikachu", sp.Name)
	assert.Equal(t, []string{"electric"}, sp.Types)
	assert.Equal(t, 35, sp.BaseStats["hp"])
	assert.Equal(t, 50, sp.BaseStats["special_attack"])
	assert.Equal(t, []string{"thunder shock", "quick attack"}, sp.Moves)
	assert.Equal(t, "https://img.example/25.png", sp.SpriteURL)
	assert.Equal(t, 60, sp.Weight)

	_, err = c.Pokemon(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestClient_NextEvolutionWalksChain(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	evo, err := c.NextEvolution(context.Background(), 25)
	require.NoError(t, err)
	require.NotNil(t, evo)
	assert.Equal(t, 26, evo.SpeciesID)
	assert.Equal(t, "Raichu", evo.Name)

	// Final stage has nothing further.
	evo, err = c.NextEvolution(context.Background(), 26)
	require.NoError(t, err)
	assert.Nil(t, evo)
}

func TestClient_ErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Pokemon(context.Background(), 9999)
	assert.Error(t, err)
}
