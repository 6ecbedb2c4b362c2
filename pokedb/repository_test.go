package pokedb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testTrainer(userID string) *models.Trainer {
	return &models.Trainer{
		UserID:    userID,
		Level:     1,
		XP:        0,
		XPToLevel: 100,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func testPokemon(id, userID string, slot int) *models.Pokemon {
	return &models.Pokemon{
		ID:          id,
		UserID:      userID,
		SpeciesID:   25,
		Level:       5,
		XPToLevel:   125,
		DisplayName: "Pikachu",
		Types:       []string{"electric"},
		Stats:       map[string]int{models.StatHP: 35, models.StatAttack: 55},
		Moves:       []string{"thunder-shock", "growl"},
		CurrentHP:   35,
		PartySlot:   slot,
		CaughtAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func TestTrainerRepository_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewTrainerRepository(db)
	ctx := context.Background()

	got, err := repo.GetByUserID(ctx, "user1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Create(ctx, testTrainer("user1")))

	got, err = repo.GetByUserID(ctx, "user1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Level)
	assert.Empty(t, got.PrimaryPokemon)

	got.Level = 3
	got.XP = 40
	got.PrimaryPokemon = "poke1"
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.GetByUserID(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Level)
	assert.Equal(t, "poke1", got.PrimaryPokemon)
}

func TestTrainerRepository_BallInventory(t *testing.T) {
	db := newTestDB(t)
	repo := NewTrainerRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, testTrainer("user1")))

	require.NoError(t, repo.AddBalls(ctx, "user1", "pokeballs", 2))
	require.NoError(t, repo.AddBalls(ctx, "user1", "pokeballs", 3))
	require.NoError(t, repo.AddBalls(ctx, "user1", "ultraballs", 1))

	balls, err := repo.Balls(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"pokeballs": 5, "ultraballs": 1}, balls)

	ok, err := repo.UseBall(ctx, "user1", "ultraballs")
	require.NoError(t, err)
	assert.True(t, ok)

	// Inventory is exhausted now.
	ok, err = repo.UseBall(ctx, "user1", "ultraballs")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.UseBall(ctx, "user1", "masterballs")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPokemonRepository_CrudAndParty(t *testing.T) {
	db := newTestDB(t)
	trainers := NewTrainerRepository(db)
	repo := NewPokemonRepository(db)
	ctx := context.Background()
	require.NoError(t, trainers.Create(ctx, testTrainer("user1")))

	require.NoError(t, repo.Create(ctx, testPokemon("poke1", "user1", 1)))
	require.NoError(t, repo.Create(ctx, testPokemon("poke2", "user1", 0)))

	got, err := repo.GetByID(ctx, "poke1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"electric"}, got.Types)
	assert.Equal(t, 35, got.Stats[models.StatHP])
	assert.Equal(t, 1, got.PartySlot)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repo.ListByUser(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Party members sort ahead of boxed instances.
	assert.Equal(t, "poke1", all[0].ID)

	party, err := repo.Party(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, party, 1)
	assert.Equal(t, "poke1", party[0].ID)

	n, err := repo.CountParty(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got.Nickname = "Sparky"
	got.PartySlot = 0
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.GetByID(ctx, "poke1")
	require.NoError(t, err)
	assert.Equal(t, "Sparky", got.Nickname)
	assert.Zero(t, got.PartySlot)

	require.NoError(t, repo.Delete(ctx, "poke1"))
	got, err = repo.GetByID(ctx, "poke1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPokemonRepository_Pokedex(t *testing.T) {
	db := newTestDB(t)
	repo := NewPokemonRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.MarkPokedex(ctx, "user1", 25, now))
	require.NoError(t, repo.MarkPokedex(ctx, "user1", 25, now))
	require.NoError(t, repo.MarkPokedex(ctx, "user1", 1, now))

	n, err := repo.PokedexCount(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	species, err := repo.PokedexSpecies(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 25}, species)
}
