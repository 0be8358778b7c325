package market

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// memStore is an in-memory Store with the same atomicity contract as
// the Postgres implementation: Transfer re-checks its conditions and
// applies the whole effect under one lock.
type memStore struct {
	mu           sync.Mutex
	teams        map[int64]*Team
	players      map[int64]*Player
	nextTeamID   int64
	nextPlayerID int64

	// onTransfer, when set, runs at the start of Transfer before the
	// lock is taken. Tests use it to hold a purchase in flight.
	onTransfer func()
}

func newMemStore() *memStore {
	return &memStore{
		teams:   make(map[int64]*Team),
		players: make(map[int64]*Player),
	}
}

func (m *memStore) addTeam(ownerID int64, name string, budget int64) *Team {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTeamID++
	t := &Team{ID: m.nextTeamID, OwnerID: ownerID, Name: name, Budget: budget}
	m.teams[t.ID] = t
	return t
}

func (m *memStore) addPlayer(teamID int64, name string, pos Position, askingPrice *int64) *Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextPlayerID++
	p := &Player{ID: m.nextPlayerID, TeamID: teamID, Name: name, Position: pos}
	if askingPrice != nil {
		v := *askingPrice
		p.AskingPrice = &v
	}
	m.players[p.ID] = p
	m.teams[teamID].PlayersCount++
	return p
}

func (m *memStore) PlayerWithTeam(_ context.Context, playerID int64) (*PlayerWithTeam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	out := PlayerWithTeam{Player: *p, Team: *m.teams[p.TeamID]}
	if p.AskingPrice != nil {
		v := *p.AskingPrice
		out.AskingPrice = &v
	}
	return &out, nil
}

func (m *memStore) TeamByOwner(_ context.Context, ownerID int64) (*Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teams {
		if t.OwnerID == ownerID {
			copied := *t
			return &copied, nil
		}
	}
	return nil, ErrNoTeam
}

func (m *memStore) TeamPlayers(_ context.Context, teamID int64) ([]Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Player
	for _, id := range m.sortedPlayerIDs() {
		if m.players[id].TeamID == teamID {
			out = append(out, *m.players[id])
		}
	}
	return out, nil
}

func (m *memStore) CountListedPlayers(_ context.Context, teamID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, p := range m.players {
		if p.TeamID == teamID && p.AskingPrice != nil {
			count++
		}
	}
	return count, nil
}

func (m *memStore) SetAskingPrice(_ context.Context, playerID, teamID int64, price *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok || p.TeamID != teamID {
		return ErrNotYourPlayer
	}
	if price == nil {
		p.AskingPrice = nil
	} else {
		v := *price
		p.AskingPrice = &v
	}
	return nil
}

func (m *memStore) BrowseListings(_ context.Context, f BrowseFilter) ([]Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []Listing{}
	for _, id := range m.sortedPlayerIDs() {
		p := m.players[id]
		if p.AskingPrice == nil {
			continue
		}
		t := m.teams[p.TeamID]
		if f.Position != "" && p.Position != f.Position {
			continue
		}
		if f.PlayerName != "" && !containsFold(p.Name, f.PlayerName) {
			continue
		}
		if f.MinPrice != nil && *p.AskingPrice < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && *p.AskingPrice > *f.MaxPrice {
			continue
		}
		if f.TeamName != "" && !containsFold(t.Name, f.TeamName) {
			continue
		}
		if f.ExcludeOwnerID != 0 && t.OwnerID == f.ExcludeOwnerID {
			continue
		}
		out = append(out, Listing{
			PlayerID:    p.ID,
			Name:        p.Name,
			Position:    p.Position,
			AskingPrice: *p.AskingPrice,
			TeamID:      t.ID,
			TeamName:    t.Name,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AskingPrice < out[j].AskingPrice
	})
	return out, nil
}

func (m *memStore) Transfer(_ context.Context, params TransferParams) error {
	if m.onTransfer != nil {
		m.onTransfer()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[params.PlayerID]
	if !ok || p.TeamID != params.SellerTeamID || p.AskingPrice == nil {
		return ErrTransferConflict
	}
	buyer, ok := m.teams[params.BuyerTeamID]
	if !ok || buyer.Budget < params.Price || buyer.PlayersCount >= MaxSquadSize {
		return ErrTransferConflict
	}
	seller := m.teams[params.SellerTeamID]

	buyer.Budget -= params.Price
	buyer.PlayersCount++
	seller.Budget += params.Price
	seller.PlayersCount--
	p.TeamID = buyer.ID
	p.AskingPrice = nil
	return nil
}

func (m *memStore) sortedPlayerIDs() []int64 {
	ids := make([]int64, 0, len(m.players))
	for id := range m.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
