package dice

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"casino-bot/internal/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name           string
		stake          string
		dice           int
		choice         string
		expectedStatus string
		expectedPayout string
	}{
		{"even wins on 4", "10.00", 4, "even", model.BetWon, "17.00"},
		{"even loses on 3", "10.00", 3, "even", model.BetLost, "0"},
		{"odd wins on 5", "10.00", 5, "odd", model.BetWon, "17.00"},
		{"low wins on 3", "10.00", 3, "low", model.BetWon, "17.00"},
		{"low loses on 4", "10.00", 4, "low", model.BetLost, "0"},
		{"high wins on 4", "10.00", 4, "high", model.BetWon, "17.00"},
		{"exact wins at x4", "10.00", 6, "exact_6", model.BetWon, "40.00"},
		{"exact loses", "10.00", 5, "exact_6", model.BetLost, "0"},
		{"choice trimmed and lowered", "10.00", 2, "  EVEN ", model.BetWon, "17.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := Resolve(d(tt.stake), 0.35, tt.dice, tt.choice)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, outcome.Status)
			assert.True(t, d(tt.expectedPayout).Equal(outcome.Payout),
				"expected payout %s, got %s", tt.expectedPayout, outcome.Payout)
		})
	}
}

func TestResolveInvalid(t *testing.T) {
	_, err := Resolve(d("10"), 0, 4, "sideways")
	assert.ErrorIs(t, err, ErrInvalidChoice)

	_, err = Resolve(d("10"), 0, 4, "exact_7")
	assert.ErrorIs(t, err, ErrInvalidChoice)

	_, err = Resolve(d("10"), 0, 7, "even")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestResolveDuel(t *testing.T) {
	tests := []struct {
		name           string
		player, bot    int
		expectedStatus string
		expectedPayout string
		expectedResult string
	}{
		{"player wins at x1.8", 5, 2, model.BetWon, "36.00", "win"},
		{"player loses", 2, 5, model.BetLost, "0", "loss"},
		{"draw is a push returning the stake", 3, 3, model.BetPush, "20.00", "draw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := ResolveDuel(d("20.00"), 0.35, tt.player, tt.bot)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, outcome.Status)
			assert.True(t, d(tt.expectedPayout).Equal(outcome.Payout),
				"expected payout %s, got %s", tt.expectedPayout, outcome.Payout)

			details, ok := outcome.Details.(model.DiceDetails)
			require.True(t, ok)
			assert.Equal(t, tt.expectedResult, details.DuelResult)
		})
	}
}

func TestResolveDuelInvalid(t *testing.T) {
	_, err := ResolveDuel(d("10"), 0, 0, 3)
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, err = ResolveDuel(d("10"), 0, 3, 7)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

// TestResolveStatusConsistencyProperty checks that for any roll and group
// choice, exactly the matching rolls win and a win always pays more than
// the stake.
func TestResolveStatusConsistencyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		diceValue := rapid.IntRange(1, 6).Draw(t, "dice")
		stakeCents := rapid.Int64Range(10, 1_000_000).Draw(t, "stakeCents")
		stake := decimal.New(stakeCents, -2)
		choice := rapid.SampledFrom([]string{"even", "odd", "low", "high"}).Draw(t, "choice")

		outcome, err := Resolve(stake, 0.35, diceValue, choice)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var shouldWin bool
		switch choice {
		case "even":
			shouldWin = diceValue%2 == 0
		case "odd":
			shouldWin = diceValue%2 == 1
		case "low":
			shouldWin = diceValue <= 3
		case "high":
			shouldWin = diceValue >= 4
		}

		if shouldWin != outcome.Won() {
			t.Fatalf("choice %s on %d: expected won=%v, got %s", choice, diceValue, shouldWin, outcome.Status)
		}
		if outcome.Won() && !outcome.Payout.GreaterThan(stake) {
			t.Fatalf("winning payout %s not above stake %s", outcome.Payout, stake)
		}
		if !outcome.Won() && !outcome.Payout.IsZero() {
			t.Fatalf("losing payout %s not zero", outcome.Payout)
		}
	})
}
