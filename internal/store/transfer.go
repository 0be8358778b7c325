package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"squadmarket/internal/market"
)

// Transfer applies the purchase effect as one transaction: the player
// changes hands, the buyer is debited, the seller credited, the
// listing cleared. Either all of it commits or none of it does.
//
// Both team rows are locked in id order before any update, so two
// transfers touching the same teams in opposite roles cannot deadlock,
// and every update is conditional on the state the coordinator
// validated still holding. Any miss rolls the transaction back and
// surfaces as a conflict the coordinator can re-validate against.
func (s *Store) Transfer(ctx context.Context, p market.TransferParams) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transfer: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the player row first; it is the key the whole purchase is
	// serialized on.
	var currentTeamID int64
	var askingPrice *int64
	err = tx.QueryRow(ctx, `
		SELECT team_id, asking_price
		FROM players
		WHERE id = $1
		FOR UPDATE
	`, p.PlayerID).Scan(&currentTeamID, &askingPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return market.ErrTransferConflict
		}
		return fmt.Errorf("lock player row: %w", err)
	}
	if currentTeamID != p.SellerTeamID || askingPrice == nil {
		return market.ErrTransferConflict
	}

	// Lock the two team rows in deterministic order.
	rows, err := tx.Query(ctx, `
		SELECT id FROM teams WHERE id = ANY($1::bigint[]) ORDER BY id FOR UPDATE
	`, []int64{p.BuyerTeamID, p.SellerTeamID})
	if err != nil {
		return fmt.Errorf("lock team rows: %w", err)
	}
	var locked int
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan team lock: %w", err)
		}
		locked++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock team rows: %w", err)
	}
	if locked != 2 {
		return market.ErrTransferConflict
	}

	// Debit the buyer, conditional on budget and roster room.
	tag, err := tx.Exec(ctx, `
		UPDATE teams
		SET budget = budget - $1, players_count = players_count + 1
		WHERE id = $2 AND budget >= $1 AND players_count < $3
	`, p.Price, p.BuyerTeamID, market.MaxSquadSize)
	if err != nil {
		return fmt.Errorf("debit buyer: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return market.ErrTransferConflict
	}

	// Credit the seller.
	tag, err = tx.Exec(ctx, `
		UPDATE teams
		SET budget = budget + $1, players_count = players_count - 1
		WHERE id = $2
	`, p.Price, p.SellerTeamID)
	if err != nil {
		return fmt.Errorf("credit seller: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return market.ErrTransferConflict
	}

	// Move the player and clear the listing.
	tag, err = tx.Exec(ctx, `
		UPDATE players
		SET team_id = $1, asking_price = NULL
		WHERE id = $2
	`, p.BuyerTeamID, p.PlayerID)
	if err != nil {
		return fmt.Errorf("move player: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return market.ErrTransferConflict
	}

	if err := tx.Commit(ctx); err != nil {
		if isLockConflictError(err) {
			return market.ErrTransferConflict
		}
		return fmt.Errorf("commit transfer: %w", err)
	}
	return nil
}
