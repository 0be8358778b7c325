package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"squadmarket/internal/market"
)

func (s *Store) TeamByOwner(ctx context.Context, ownerID int64) (*market.Team, error) {
	var t market.Team
	err := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, budget, players_count, created_at
		FROM teams
		WHERE owner_id = $1
	`, ownerID).Scan(&t.ID, &t.OwnerID, &t.Name, &t.Budget, &t.PlayersCount, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, market.ErrNoTeam
		}
		return nil, fmt.Errorf("query team by owner: %w", err)
	}
	return &t, nil
}

// CreateTeamWithPlayers provisions a team and its seeded roster in one
// transaction. A team that already exists for the owner is left alone
// and reported via created=false, which makes redelivered provisioning
// jobs safe.
func (s *Store) CreateTeamWithPlayers(ctx context.Context, ownerID int64, name string, budget int64, seeds []market.PlayerSeed) (created bool, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var teamID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO teams (owner_id, name, budget, players_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id) DO NOTHING
		RETURNING id
	`, ownerID, name, budget, len(seeds)).Scan(&teamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert team: %w", err)
	}

	for _, seed := range seeds {
		if _, err := tx.Exec(ctx, `
			INSERT INTO players (team_id, name, position)
			VALUES ($1, $2, $3)
		`, teamID, seed.Name, string(seed.Position)); err != nil {
			return false, fmt.Errorf("insert player: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return true, nil
}
