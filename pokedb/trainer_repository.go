package pokedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"steward/models"
)

// TrainerRepository persists trainer records and the ball inventory.
type TrainerRepository struct {
	db *DB
}

// NewTrainerRepository creates a new trainer repository
func NewTrainerRepository(db *DB) *TrainerRepository {
	return &TrainerRepository{db: db}
}

// GetByUserID retrieves a trainer by Discord user ID. Returns nil without
// error when the user has never started.
func (r *TrainerRepository) GetByUserID(ctx context.Context, userID string) (*models.Trainer, error) {
	query := `
		SELECT user_id, level, xp, xp_to_level, COALESCE(primary_pokemon, ''), created_at
		FROM trainers
		WHERE user_id = ?
	`

	var t models.Trainer
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&t.UserID,
		&t.Level,
		&t.XP,
		&t.XPToLevel,
		&t.PrimaryPokemon,
		&t.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trainer %s: %w", userID, err)
	}
	return &t, nil
}

// Create inserts a new trainer row.
func (r *TrainerRepository) Create(ctx context.Context, t *models.Trainer) error {
	query := `
		INSERT INTO trainers (user_id, level, xp, xp_to_level, primary_pokemon, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, t.UserID, t.Level, t.XP, t.XPToLevel, nullable(t.PrimaryPokemon), t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create trainer %s: %w", t.UserID, err)
	}
	return nil
}

// Update rewrites the trainer's progression fields.
func (r *TrainerRepository) Update(ctx context.Context, t *models.Trainer) error {
	query := `
		UPDATE trainers
		SET level = ?, xp = ?, xp_to_level = ?, primary_pokemon = ?
		WHERE user_id = ?
	`

	_, err := r.db.ExecContext(ctx, query, t.Level, t.XP, t.XPToLevel, nullable(t.PrimaryPokemon), t.UserID)
	if err != nil {
		return fmt.Errorf("failed to update trainer %s: %w", t.UserID, err)
	}
	return nil
}

// Balls returns the trainer's ball inventory keyed by kind.
func (r *TrainerRepository) Balls(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT ball_kind, count FROM trainer_items WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list balls for %s: %w", userID, err)
	}
	defer rows.Close()

	balls := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan ball row: %w", err)
		}
		balls[kind] = count
	}
	return balls, rows.Err()
}

// AddBalls credits count balls of the given kind.
func (r *TrainerRepository) AddBalls(ctx context.Context, userID, kind string, count int) error {
	query := `
		INSERT INTO trainer_items (user_id, ball_kind, count) VALUES (?, ?, ?)
		ON CONFLICT (user_id, ball_kind) DO UPDATE SET count = count + excluded.count
	`

	_, err := r.db.ExecContext(ctx, query, userID, kind, count)
	if err != nil {
		return fmt.Errorf("failed to add balls for %s: %w", userID, err)
	}
	return nil
}

// UseBall decrements one ball of the given kind. Returns false when the
// trainer has none left.
func (r *TrainerRepository) UseBall(ctx context.Context, userID, kind string) (bool, error) {
	query := `
		UPDATE trainer_items SET count = count - 1
		WHERE user_id = ? AND ball_kind = ? AND count > 0
	`

	res, err := r.db.ExecContext(ctx, query, userID, kind)
	if err != nil {
		return false, fmt.Errorf("failed to use ball for %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
