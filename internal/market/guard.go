package market

import "sync"

// purchaseGuard serializes purchases per player. A holder of a player
// key is the only purchase allowed in flight for that player; any
// other attempt is rejected immediately rather than queued.
type purchaseGuard struct {
	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func newPurchaseGuard() *purchaseGuard {
	return &purchaseGuard{inFlight: make(map[int64]struct{})}
}

// TryAcquire claims the player key. Returns false when another
// purchase for the same player is already in flight.
func (g *purchaseGuard) TryAcquire(playerID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.inFlight[playerID]; held {
		return false
	}
	g.inFlight[playerID] = struct{}{}
	return true
}

func (g *purchaseGuard) Release(playerID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, playerID)
}
