package postgres

import (
	"context"
	"errors"
	"fmt"

	"quiz-duel-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// PlayerDirectory resolves players from the players table.
type PlayerDirectory struct {
	pool *pgxpool.Pool
}

func NewPlayerDirectory(pool *pgxpool.Pool) *PlayerDirectory {
	return &PlayerDirectory{pool: pool}
}

func (d *PlayerDirectory) Resolve(ctx context.Context, playerID string) (domain.Player, error) {
	var p domain.Player
	err := d.pool.QueryRow(ctx, `SELECT id, display_name FROM players WHERE id=$1`, playerID).Scan(&p.ID, &p.DisplayName)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	if err != nil {
		return domain.Player{}, fmt.Errorf("resolve player: %w", err)
	}
	return p, nil
}
