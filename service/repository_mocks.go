package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"steward/models"
	"steward/pokeapi"
)

// MockTrainerRepository is a mock implementation of TrainerRepository
type MockTrainerRepository struct {
	mock.Mock
}

func (m *MockTrainerRepository) GetByUserID(ctx context.Context, userID string) (*models.Trainer, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trainer), args.Error(1)
}

func (m *MockTrainerRepository) Create(ctx context.Context, t *models.Trainer) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTrainerRepository) Update(ctx context.Context, t *models.Trainer) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTrainerRepository) Balls(ctx context.Context, userID string) (map[string]int, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockTrainerRepository) AddBalls(ctx context.Context, userID, kind string, count int) error {
	args := m.Called(ctx, userID, kind, count)
	return args.Error(0)
}

func (m *MockTrainerRepository) UseBall(ctx context.Context, userID, kind string) (bool, error) {
	args := m.Called(ctx, userID, kind)
	return args.Bool(0), args.Error(1)
}

// MockPokemonRepository is a mock implementation of PokemonRepository
type MockPokemonRepository struct {
	mock.Mock
}

func (m *MockPokemonRepository) Create(ctx context.Context, p *models.Pokemon) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPokemonRepository) GetByID(ctx context.Context, id string) (*models.Pokemon, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Pokemon), args.Error(1)
}

func (m *MockPokemonRepository) ListByUser(ctx context.Context, userID string) ([]*models.Pokemon, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Pokemon), args.Error(1)
}

func (m *MockPokemonRepository) Party(ctx context.Context, userID string) ([]*models.Pokemon, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Pokemon), args.Error(1)
}

func (m *MockPokemonRepository) Update(ctx context.Context, p *models.Pokemon) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPokemonRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPokemonRepository) CountParty(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockPokemonRepository) MarkPokedex(ctx context.Context, userID string, speciesID int, caughtAt any) error {
	args := m.Called(ctx, userID, speciesID, caughtAt)
	return args.Error(0)
}

func (m *MockPokemonRepository) PokedexCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockPokemonRepository) PokedexSpecies(ctx context.Context, userID string) ([]int, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

// MockSpeciesAPI is a mock implementation of SpeciesAPI
type MockSpeciesAPI struct {
	mock.Mock
}

func (m *MockSpeciesAPI) Pokemon(ctx context.Context, id int) (*pokeapi.Species, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pokeapi.Species), args.Error(1)
}

func (m *MockSpeciesAPI) NextEvolution(ctx context.Context, speciesID int) (*pokeapi.Evolution, error) {
	args := m.Called(ctx, speciesID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pokeapi.Evolution), args.Error(1)
}
