package market

import (
	"time"
)

const (
	// MaxSquadSize is the hard cap on players a team may hold.
	MaxSquadSize = 25

	// MinEffectiveSquadSize is the floor on players a team must keep
	// available (owned minus listed). Listing is refused once the
	// effective size would not stay above it.
	MinEffectiveSquadSize = 15

	// StartingBudget is granted to every provisioned team.
	StartingBudget = int64(5_000_000)

	// StartingSquadSize is the number of seeded players per new team.
	StartingSquadSize = 20

	// DiscountBps is the buyer's discount off the asking price, in
	// basis points. The seller receives the discounted price in full.
	DiscountBps = 500
)

type Position string

const (
	Goalkeeper Position = "GOALKEEPER"
	Defender   Position = "DEFENDER"
	Midfielder Position = "MIDFIELDER"
	Attacker   Position = "ATTACKER"
)

func (p Position) Valid() bool {
	switch p {
	case Goalkeeper, Defender, Midfielder, Attacker:
		return true
	}
	return false
}

type Team struct {
	ID           int64     `json:"id"`
	OwnerID      int64     `json:"owner_id"`
	Name         string    `json:"name"`
	Budget       int64     `json:"budget"`
	PlayersCount int       `json:"players_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type Player struct {
	ID          int64     `json:"id"`
	TeamID      int64     `json:"team_id"`
	Name        string    `json:"name"`
	Position    Position  `json:"position"`
	AskingPrice *int64    `json:"asking_price,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p Player) Listed() bool {
	return p.AskingPrice != nil
}

// PlayerWithTeam is a player joined with its owning team, the shape
// every market operation starts from.
type PlayerWithTeam struct {
	Player
	Team Team `json:"team"`
}

// Listing is one row of the transfer market view.
type Listing struct {
	PlayerID    int64    `json:"id"`
	Name        string   `json:"name"`
	Position    Position `json:"position"`
	AskingPrice int64    `json:"asking_price"`
	TeamID      int64    `json:"team_id"`
	TeamName    string   `json:"team_name"`
}

// BrowseFilter narrows the market view. Zero values mean "no filter".
// ExcludeOwnerID removes the viewer's own listings.
type BrowseFilter struct {
	TeamName       string
	PlayerName     string
	Position       Position
	MinPrice       *int64
	MaxPrice       *int64
	ExcludeOwnerID int64
}

// PurchaseReceipt confirms a completed transfer.
type PurchaseReceipt struct {
	Message       string          `json:"message"`
	PurchasePrice int64           `json:"purchase_price"`
	Player        PurchasedPlayer `json:"player"`
}

type PurchasedPlayer struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Position Position `json:"position"`
}

// PlayerSeed is one roster slot of a freshly provisioned team.
type PlayerSeed struct {
	Name     string
	Position Position
}

// PurchasePrice is what the buyer pays and the seller receives:
// the asking price less the discount, rounded down. Computed as
// price - ceil(price/divisor) so it cannot overflow; asking prices
// have no upper bound.
func PurchasePrice(askingPrice int64) int64 {
	const divisor = 10_000 / DiscountBps
	discount := askingPrice / divisor
	if askingPrice%divisor != 0 {
		discount++
	}
	return askingPrice - discount
}
