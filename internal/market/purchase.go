package market

import (
	"context"
	"errors"
)

// transferAttempts bounds re-validation when a concurrent purchase on
// another player changed one of the involved teams between the
// precondition reads and the atomic transfer.
const transferAttempts = 3

// Purchase buys a listed player for the buyer's team.
//
// At most one purchase per player is in flight at a time: a second
// attempt on the same player is rejected immediately with a conflict
// rather than queued. The financial effect is applied by the store as
// a single atomic unit, so a failure at any point leaves every team
// and the player untouched.
func (s *Service) Purchase(ctx context.Context, playerID, buyerUserID int64) (*PurchaseReceipt, error) {
	if !s.guard.TryAcquire(playerID) {
		return nil, ErrPurchaseInFlight
	}
	defer s.guard.Release(playerID)

	for attempt := 0; attempt < transferAttempts; attempt++ {
		receipt, err := s.purchaseOnce(ctx, playerID, buyerUserID)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ErrTransferConflict) {
			return nil, err
		}
		// Another purchase touched one of the teams; re-read state
		// so the caller gets a precise rejection or a clean retry.
	}
	return nil, ErrTransferConflict
}

func (s *Service) purchaseOnce(ctx context.Context, playerID, buyerUserID int64) (*PurchaseReceipt, error) {
	player, err := s.store.PlayerWithTeam(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if !player.Listed() {
		return nil, ErrNotListed
	}
	if player.Team.OwnerID == buyerUserID {
		return nil, ErrSelfPurchase
	}

	buyer, err := s.store.TeamByOwner(ctx, buyerUserID)
	if err != nil {
		return nil, err
	}
	if buyer.PlayersCount >= MaxSquadSize {
		return nil, ErrRosterFull
	}

	price := PurchasePrice(*player.AskingPrice)
	if buyer.Budget < price {
		return nil, ErrInsufficientFunds
	}

	err = s.store.Transfer(ctx, TransferParams{
		PlayerID:     player.ID,
		SellerTeamID: player.TeamID,
		BuyerTeamID:  buyer.ID,
		Price:        price,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("player purchased",
		"player_id", player.ID,
		"seller_team_id", player.TeamID,
		"buyer_team_id", buyer.ID,
		"price", price,
	)
	return &PurchaseReceipt{
		Message:       "Player purchased successfully",
		PurchasePrice: price,
		Player: PurchasedPlayer{
			ID:       player.ID,
			Name:     player.Name,
			Position: player.Position,
		},
	}, nil
}
