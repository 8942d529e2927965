package emoji

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casino-bot/internal/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name           string
		game           string
		dice           int
		choice         string
		expectedStatus string
		expectedPayout string
	}{
		{"football goal on 3", model.GameFootball, 3, "goal", model.BetWon, "14.00"},
		{"football goal on 5", model.GameFootball, 5, "goal", model.BetWon, "14.00"},
		{"football goal misses on 2", model.GameFootball, 2, "goal", model.BetLost, "0"},
		{"football miss bet on 1", model.GameFootball, 1, "miss", model.BetWon, "18.00"},
		{"basketball score on 4", model.GameBasketball, 4, "score", model.BetWon, "18.00"},
		{"basketball score loses on 3", model.GameBasketball, 3, "score", model.BetLost, "0"},
		{"basketball miss bet on 2", model.GameBasketball, 2, "miss", model.BetWon, "14.00"},
		{"darts bullseye on 6", model.GameDarts, 6, "bullseye", model.BetWon, "50.00"},
		{"darts bullseye loses on 5", model.GameDarts, 5, "bullseye", model.BetLost, "0"},
		{"darts miss bet on 1", model.GameDarts, 1, "miss", model.BetWon, "50.00"},
		{"darts hit is an alias for miss", model.GameDarts, 1, "hit", model.BetWon, "50.00"},
		{"darts middle value pays nobody", model.GameDarts, 3, "bullseye", model.BetLost, "0"},
		{"bowling strike on 6", model.GameBowling, 6, "strike", model.BetWon, "50.00"},
		{"bowling miss bet on 1", model.GameBowling, 1, "miss", model.BetWon, "50.00"},
		{"bowling knock is an alias for miss", model.GameBowling, 1, "knock", model.BetWon, "50.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := Resolve(d("10.00"), 0, tt.game, tt.dice, tt.choice)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, outcome.Status)
			assert.True(t, d(tt.expectedPayout).Equal(outcome.Payout),
				"expected payout %s, got %s", tt.expectedPayout, outcome.Payout)
		})
	}
}

func TestResolveInvalid(t *testing.T) {
	_, err := Resolve(d("10"), 0, "chess", 3, "goal")
	assert.ErrorIs(t, err, ErrInvalidGame)

	_, err = Resolve(d("10"), 0, model.GameFootball, 3, "strike")
	assert.ErrorIs(t, err, ErrInvalidChoice)
}
