package pokedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"steward/models"
)

// PokemonRepository persists caught instances and the pokédex.
type PokemonRepository struct {
	db *DB
}

// NewPokemonRepository creates a new pokemon repository
func NewPokemonRepository(db *DB) *PokemonRepository {
	return &PokemonRepository{db: db}
}

const pokemonColumns = `
	id, user_id, species_id, level, xp, xp_to_level, display_name, nickname,
	types, stats, moves, current_hp, sprite_url, COALESCE(party_slot, 0), caught_at
`

func scanPokemon(row interface{ Scan(...any) error }) (*models.Pokemon, error) {
	var p models.Pokemon
	var types, stats, moves []byte
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.SpeciesID,
		&p.Level,
		&p.XP,
		&p.XPToLevel,
		&p.DisplayName,
		&p.Nickname,
		&types,
		&stats,
		&moves,
		&p.CurrentHP,
		&p.SpriteURL,
		&p.PartySlot,
		&p.CaughtAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(types, &p.Types); err != nil {
		return nil, fmt.Errorf("failed to decode types for %s: %w", p.ID, err)
	}
	if err := json.Unmarshal(stats, &p.Stats); err != nil {
		return nil, fmt.Errorf("failed to decode stats for %s: %w", p.ID, err)
	}
	if err := json.Unmarshal(moves, &p.Moves); err != nil {
		return nil, fmt.Errorf("failed to decode moves for %s: %w", p.ID, err)
	}
	return &p, nil
}

func encodePokemon(p *models.Pokemon) (types, stats, moves []byte, err error) {
	if types, err = json.Marshal(p.Types); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode types: %w", err)
	}
	if stats, err = json.Marshal(p.Stats); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode stats: %w", err)
	}
	if moves, err = json.Marshal(p.Moves); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode moves: %w", err)
	}
	return types, stats, moves, nil
}

func partySlot(slot int) any {
	if slot == 0 {
		return nil
	}
	return slot
}

// Create inserts a caught instance.
func (r *PokemonRepository) Create(ctx context.Context, p *models.Pokemon) error {
	types, stats, moves, err := encodePokemon(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pokemon (id, user_id, species_id, level, xp, xp_to_level, display_name,
			nickname, types, stats, moves, current_hp, sprite_url, party_slot, caught_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.SpeciesID, p.Level, p.XP, p.XPToLevel, p.DisplayName,
		p.Nickname, types, stats, moves, p.CurrentHP, p.SpriteURL, partySlot(p.PartySlot), p.CaughtAt)
	if err != nil {
		return fmt.Errorf("failed to create pokemon %s: %w", p.ID, err)
	}
	return nil
}

// GetByID retrieves one instance. Returns nil without error when absent.
func (r *PokemonRepository) GetByID(ctx context.Context, id string) (*models.Pokemon, error) {
	query := `SELECT ` + pokemonColumns + ` FROM pokemon WHERE id = ?`

	p, err := scanPokemon(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pokemon %s: %w", id, err)
	}
	return p, nil
}

// ListByUser returns every instance a trainer owns, party first.
func (r *PokemonRepository) ListByUser(ctx context.Context, userID string) ([]*models.Pokemon, error) {
	query := `
		SELECT ` + pokemonColumns + `
		FROM pokemon
		WHERE user_id = ?
		ORDER BY party_slot IS NULL, party_slot, caught_at
	`

	return r.list(ctx, query, userID)
}

// Party returns the trainer's party ordered by slot.
func (r *PokemonRepository) Party(ctx context.Context, userID string) ([]*models.Pokemon, error) {
	query := `
		SELECT ` + pokemonColumns + `
		FROM pokemon
		WHERE user_id = ? AND party_slot IS NOT NULL
		ORDER BY party_slot
	`

	return r.list(ctx, query, userID)
}

func (r *PokemonRepository) list(ctx context.Context, query string, args ...any) ([]*models.Pokemon, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pokemon: %w", err)
	}
	defer rows.Close()

	var out []*models.Pokemon
	for rows.Next() {
		p, err := scanPokemon(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pokemon row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update rewrites an instance's mutable fields.
func (r *PokemonRepository) Update(ctx context.Context, p *models.Pokemon) error {
	types, stats, moves, err := encodePokemon(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE pokemon
		SET species_id = ?, level = ?, xp = ?, xp_to_level = ?, display_name = ?,
			nickname = ?, types = ?, stats = ?, moves = ?, current_hp = ?,
			sprite_url = ?, party_slot = ?
		WHERE id = ?
	`

	_, err = r.db.ExecContext(ctx, query,
		p.SpeciesID, p.Level, p.XP, p.XPToLevel, p.DisplayName,
		p.Nickname, types, stats, moves, p.CurrentHP,
		p.SpriteURL, partySlot(p.PartySlot), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update pokemon %s: %w", p.ID, err)
	}
	return nil
}

// Delete removes an instance (release).
func (r *PokemonRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pokemon WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pokemon %s: %w", id, err)
	}
	return nil
}

// CountParty returns how many party slots are occupied.
func (r *PokemonRepository) CountParty(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pokemon WHERE user_id = ? AND party_slot IS NOT NULL`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count party for %s: %w", userID, err)
	}
	return n, nil
}

// MarkPokedex records a species as seen-and-caught for the trainer. Repeat
// catches of the same species are no-ops.
func (r *PokemonRepository) MarkPokedex(ctx context.Context, userID string, speciesID int, caughtAt any) error {
	query := `
		INSERT INTO pokedex (user_id, species_id, first_caught_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id, species_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, userID, speciesID, caughtAt)
	if err != nil {
		return fmt.Errorf("failed to mark pokedex for %s: %w", userID, err)
	}
	return nil
}

// PokedexCount returns how many distinct species the trainer has caught.
func (r *PokemonRepository) PokedexCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pokedex WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pokedex for %s: %w", userID, err)
	}
	return n, nil
}

// PokedexSpecies lists the species ids the trainer has caught, ascending.
func (r *PokemonRepository) PokedexSpecies(ctx context.Context, userID string) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT species_id FROM pokedex WHERE user_id = ? ORDER BY species_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pokedex for %s: %w", userID, err)
	}
	defer rows.Close()

	var species []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan pokedex row: %w", err)
		}
		species = append(species, id)
	}
	return species, rows.Err()
}
