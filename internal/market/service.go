package market

import (
	"context"
	"log/slog"
)

// Store is the durable roster state the engine runs against. The pgx
// implementation lives in internal/store; tests use an in-memory fake.
//
// Lookups return ErrPlayerNotFound / ErrNoTeam when the row is absent.
// SetAskingPrice only touches the player while it still belongs to
// teamID and returns ErrNotYourPlayer otherwise, so a listing written
// after ownership was validated cannot land on a just-sold player.
// Transfer applies the whole multi-row effect in one atomic unit and
// returns ErrTransferConflict when any of its conditions no longer
// holds, leaving committed state untouched.
type Store interface {
	PlayerWithTeam(ctx context.Context, playerID int64) (*PlayerWithTeam, error)
	TeamByOwner(ctx context.Context, ownerID int64) (*Team, error)
	TeamPlayers(ctx context.Context, teamID int64) ([]Player, error)
	CountListedPlayers(ctx context.Context, teamID int64) (int, error)
	SetAskingPrice(ctx context.Context, playerID, teamID int64, price *int64) error
	BrowseListings(ctx context.Context, filter BrowseFilter) ([]Listing, error)
	Transfer(ctx context.Context, params TransferParams) error
}

// TransferParams is the atomic purchase effect: move the player from
// seller to buyer, debit the buyer and credit the seller by Price,
// adjust both roster counts, clear the listing.
type TransferParams struct {
	PlayerID     int64
	SellerTeamID int64
	BuyerTeamID  int64
	Price        int64
}

type Service struct {
	store Store
	log   *slog.Logger
	guard *purchaseGuard
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store: store,
		log:   logger,
		guard: newPurchaseGuard(),
	}
}

// ListPlayer puts a player on the transfer market at askingPrice.
// Re-listing an already listed player overwrites the price.
func (s *Service) ListPlayer(ctx context.Context, playerID, askingPrice, userID int64) error {
	if askingPrice <= 0 {
		return ErrInvalidAskingPrice
	}

	player, err := s.store.PlayerWithTeam(ctx, playerID)
	if err != nil {
		return err
	}
	if player.Team.OwnerID != userID {
		return ErrNotYourPlayer
	}

	listed, err := s.store.CountListedPlayers(ctx, player.TeamID)
	if err != nil {
		return err
	}
	if player.Team.PlayersCount-listed <= MinEffectiveSquadSize {
		return ErrSquadTooSmall
	}

	if err := s.store.SetAskingPrice(ctx, playerID, player.TeamID, &askingPrice); err != nil {
		return err
	}
	s.log.Info("player listed", "player_id", playerID, "team_id", player.TeamID, "asking_price", askingPrice)
	return nil
}

// DelistPlayer takes a player off the market. Delisting a player that
// is not listed is a success, so retries are harmless.
func (s *Service) DelistPlayer(ctx context.Context, playerID, userID int64) error {
	player, err := s.store.PlayerWithTeam(ctx, playerID)
	if err != nil {
		return err
	}
	if player.Team.OwnerID != userID {
		return ErrNotYourPlayer
	}

	if err := s.store.SetAskingPrice(ctx, playerID, player.TeamID, nil); err != nil {
		return err
	}
	s.log.Info("player delisted", "player_id", playerID, "team_id", player.TeamID)
	return nil
}

// Browse returns the current market view, cheapest first, never
// including the viewer's own players.
func (s *Service) Browse(ctx context.Context, filter BrowseFilter) ([]Listing, error) {
	return s.store.BrowseListings(ctx, filter)
}

// TeamOfUser returns the user's team and roster. ErrNoTeam means the
// team has not materialized yet (provisioning is asynchronous).
func (s *Service) TeamOfUser(ctx context.Context, userID int64) (*Team, []Player, error) {
	team, err := s.store.TeamByOwner(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	players, err := s.store.TeamPlayers(ctx, team.ID)
	if err != nil {
		return nil, nil, err
	}
	return team, players, nil
}
