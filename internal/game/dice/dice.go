// Package dice implements the dice game resolver: even/odd/low/high and
// exact-value bets on a single die, plus the player-vs-house duel.
package dice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"casino-bot/internal/game"
	"casino-bot/internal/model"
)

// Errors for dice resolution.
var (
	ErrInvalidChoice = errors.New("invalid dice choice")
	ErrInvalidValue  = errors.New("dice values must be between 1 and 6")
)

var (
	groupMultiplier = decimal.RequireFromString("1.7")
	exactMultiplier = decimal.RequireFromString("4.0")
	duelMultiplier  = decimal.RequireFromString("1.8")
)

// Resolve settles a single-die bet. The choice is one of even, odd,
// low (<=3), high (>=4) paying x1.7, or exact_N paying x4.0. The edge is
// informational only; these are fixed-multiplier payouts.
func Resolve(stake decimal.Decimal, edge float64, diceValue int, choice string) (*game.Outcome, error) {
	choice = strings.ToLower(strings.TrimSpace(choice))
	if diceValue < 1 || diceValue > 6 {
		return nil, ErrInvalidValue
	}

	var (
		won            bool
		baseMultiplier decimal.Decimal
	)

	switch {
	case choice == "even":
		won = diceValue%2 == 0
		baseMultiplier = groupMultiplier
	case choice == "odd":
		won = diceValue%2 == 1
		baseMultiplier = groupMultiplier
	case choice == "low":
		won = diceValue <= 3
		baseMultiplier = groupMultiplier
	case choice == "high":
		won = diceValue >= 4
		baseMultiplier = groupMultiplier
	case strings.HasPrefix(choice, "exact_"):
		value, err := strconv.Atoi(strings.TrimPrefix(choice, "exact_"))
		if err != nil || value < 1 || value > 6 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidChoice, choice)
		}
		won = diceValue == value
		baseMultiplier = exactMultiplier
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidChoice, choice)
	}

	status := model.BetLost
	payout := decimal.Zero
	if won {
		status = model.BetWon
		payout = game.PayoutExact(stake, baseMultiplier)
	}

	return &game.Outcome{
		Status:         status,
		Payout:         payout,
		BaseMultiplier: baseMultiplier,
		AppliedEdge:    decimal.Zero,
		Message:        fmt.Sprintf("Выпало значение кубика: %d", diceValue),
		Details:        model.DiceDetails{Choice: choice, Dice: diceValue},
	}, nil
}

// ResolveDuel settles a dice duel: two independent rolls, higher wins at
// x1.8. Equal rolls are a push - the stake is returned and no win/loss is
// journaled.
func ResolveDuel(stake decimal.Decimal, edge float64, playerValue, botValue int) (*game.Outcome, error) {
	if playerValue < 1 || playerValue > 6 || botValue < 1 || botValue > 6 {
		return nil, ErrInvalidValue
	}

	details := model.DiceDetails{
		Choice:     "duel",
		DuelPlayer: playerValue,
		DuelBot:    botValue,
	}

	var (
		status string
		payout decimal.Decimal
	)
	switch {
	case playerValue > botValue:
		status = model.BetWon
		payout = game.PayoutExact(stake, duelMultiplier)
		details.DuelResult = "win"
	case playerValue < botValue:
		status = model.BetLost
		payout = decimal.Zero
		details.DuelResult = "loss"
	default:
		status = model.BetPush
		payout = stake.RoundFloor(2)
		details.DuelResult = "draw"
	}

	return &game.Outcome{
		Status:         status,
		Payout:         payout,
		BaseMultiplier: duelMultiplier,
		AppliedEdge:    decimal.Zero,
		Message:        "Дуэль",
		Details:        details,
	}, nil
}
