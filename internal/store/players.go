package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"squadmarket/internal/market"
)

func (s *Store) PlayerWithTeam(ctx context.Context, playerID int64) (*market.PlayerWithTeam, error) {
	var out market.PlayerWithTeam
	err := s.pool.QueryRow(ctx, `
		SELECT p.id, p.team_id, p.name, p.position, p.asking_price, p.created_at,
		       t.id, t.owner_id, t.name, t.budget, t.players_count, t.created_at
		FROM players p
		JOIN teams t ON t.id = p.team_id
		WHERE p.id = $1
	`, playerID).Scan(
		&out.ID, &out.TeamID, &out.Name, &out.Position, &out.AskingPrice, &out.Player.CreatedAt,
		&out.Team.ID, &out.Team.OwnerID, &out.Team.Name, &out.Team.Budget, &out.Team.PlayersCount, &out.Team.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, market.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("query player: %w", err)
	}
	return &out, nil
}

func (s *Store) TeamPlayers(ctx context.Context, teamID int64) ([]market.Player, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, team_id, name, position, asking_price, created_at
		FROM players
		WHERE team_id = $1
		ORDER BY id
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("query team players: %w", err)
	}
	defer rows.Close()

	var out []market.Player
	for rows.Next() {
		var p market.Player
		if err := rows.Scan(&p.ID, &p.TeamID, &p.Name, &p.Position, &p.AskingPrice, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate players: %w", err)
	}
	return out, nil
}

func (s *Store) CountListedPlayers(ctx context.Context, teamID int64) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(1) FROM players WHERE team_id = $1 AND asking_price IS NOT NULL
	`, teamID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count listed players: %w", err)
	}
	return count, nil
}

// SetAskingPrice writes the listing price, conditional on the player
// still belonging to teamID. A miss means the player changed hands
// between the caller's ownership check and this write.
func (s *Store) SetAskingPrice(ctx context.Context, playerID, teamID int64, price *int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE players SET asking_price = $1 WHERE id = $2 AND team_id = $3
	`, price, playerID, teamID)
	if err != nil {
		return fmt.Errorf("update asking price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return market.ErrNotYourPlayer
	}
	return nil
}

// BrowseListings returns listed players matching the filter, cheapest
// first, ties broken by insertion order.
func (s *Store) BrowseListings(ctx context.Context, f market.BrowseFilter) ([]market.Listing, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Position != "" {
		conds = append(conds, "p.position = "+arg(string(f.Position)))
	}
	if f.PlayerName != "" {
		conds = append(conds, "p.name ILIKE '%' || "+arg(f.PlayerName)+" || '%'")
	}
	if f.MinPrice != nil {
		conds = append(conds, "p.asking_price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "p.asking_price <= "+arg(*f.MaxPrice))
	}
	if f.TeamName != "" {
		conds = append(conds, "t.name ILIKE '%' || "+arg(f.TeamName)+" || '%'")
	}
	if f.ExcludeOwnerID != 0 {
		conds = append(conds, "t.owner_id <> "+arg(f.ExcludeOwnerID))
	}

	query := `
		SELECT p.id, p.name, p.position, p.asking_price, t.id, t.name
		FROM players p
		JOIN teams t ON t.id = p.team_id
		WHERE p.asking_price IS NOT NULL`
	if len(conds) > 0 {
		query += " AND " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY p.asking_price ASC, p.id ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	out := []market.Listing{}
	for rows.Next() {
		var l market.Listing
		if err := rows.Scan(&l.PlayerID, &l.Name, &l.Position, &l.AskingPrice, &l.TeamID, &l.TeamName); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}
	return out, nil
}
