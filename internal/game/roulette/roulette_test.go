package roulette

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casino-bot/internal/model"
)

func TestResolveWithBullets(t *testing.T) {
	stake := decimal.RequireFromString("10.00")
	bullets := []int{1, 3, 4, 6}

	t.Run("empty chamber survives at x1.7 with edge", func(t *testing.T) {
		outcome, err := ResolveWithBullets(stake, 0.25, 2, bullets)
		require.NoError(t, err)
		assert.Equal(t, model.BetWon, outcome.Status)
		// x1.7 at 25% edge is x1.52 effective.
		assert.True(t, decimal.RequireFromString("15.20").Equal(outcome.Payout),
			"got %s", outcome.Payout)
	})

	t.Run("loaded chamber loses", func(t *testing.T) {
		outcome, err := ResolveWithBullets(stake, 0.25, 3, bullets)
		require.NoError(t, err)
		assert.Equal(t, model.BetLost, outcome.Status)
		assert.True(t, outcome.Payout.IsZero())
	})

	t.Run("chamber out of range", func(t *testing.T) {
		_, err := ResolveWithBullets(stake, 0.25, 0, bullets)
		assert.ErrorIs(t, err, ErrInvalidChamber)
		_, err = ResolveWithBullets(stake, 0.25, 7, bullets)
		assert.ErrorIs(t, err, ErrInvalidChamber)
	})
}

func TestDrawBullets(t *testing.T) {
	for i := 0; i < 100; i++ {
		bullets := drawBullets()
		require.Len(t, bullets, LiveChambers)

		seen := make(map[int]bool, LiveChambers)
		for _, b := range bullets {
			assert.GreaterOrEqual(t, b, 1)
			assert.LessOrEqual(t, b, 6)
			assert.False(t, seen[b], "duplicate chamber %d", b)
			seen[b] = true
		}
	}
}
