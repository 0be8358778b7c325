package market

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPurchasePrice(t *testing.T) {
	tests := []struct {
		asking int64
		want   int64
	}{
		{asking: 1_000_000, want: 950_000},
		{asking: 100, want: 95},
		{asking: 99, want: 94},   // 94.05 floors
		{asking: 1, want: 0},     // 0.95 floors
		{asking: 21, want: 19},   // 19.95 floors
		{asking: 5_000_000, want: 4_750_000},
		// Asking prices have no upper bound; the price must stay
		// exact (and positive) all the way to the int64 ceiling.
		{asking: 2_000_000_000_000_000_000, want: 1_900_000_000_000_000_000},
		{asking: math.MaxInt64, want: 8_762_203_435_012_037_016},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, PurchasePrice(tc.asking), "asking=%d", tc.asking)
	}
}

func TestPositionValid(t *testing.T) {
	for _, p := range []Position{Goalkeeper, Defender, Midfielder, Attacker} {
		assert.True(t, p.Valid(), "position %s", p)
	}
	assert.False(t, Position("STRIKER").Valid())
	assert.False(t, Position("").Valid())
	assert.False(t, Position("goalkeeper").Valid())
}

func TestPlayerListed(t *testing.T) {
	price := int64(100)
	assert.True(t, Player{AskingPrice: &price}.Listed())
	assert.False(t, Player{}.Listed())
}
