// Package roulette implements the Russian roulette resolver. The player
// picks a chamber; four of six chambers are drawn live, so the survival
// odds are steeper than the classic single-bullet game.
package roulette

import (
	"errors"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"casino-bot/internal/game"
	"casino-bot/internal/model"
)

// ErrInvalidChamber is returned for chamber numbers outside 1..6.
var ErrInvalidChamber = errors.New("chamber must be between 1 and 6")

// LiveChambers is how many of the six chambers are loaded.
const LiveChambers = 4

var baseMultiplier = decimal.RequireFromString("1.7")

// Resolve draws the live chambers and settles the bet.
func Resolve(stake decimal.Decimal, edge float64, chosenChamber int) (*game.Outcome, error) {
	if chosenChamber < 1 || chosenChamber > 6 {
		return nil, ErrInvalidChamber
	}
	return ResolveWithBullets(stake, edge, chosenChamber, drawBullets())
}

// ResolveWithBullets settles the bet against a given set of live chambers.
// Split out so the draw can be fixed in tests.
func ResolveWithBullets(stake decimal.Decimal, edge float64, chosenChamber int, bullets []int) (*game.Outcome, error) {
	if chosenChamber < 1 || chosenChamber > 6 {
		return nil, ErrInvalidChamber
	}

	hit := false
	for _, b := range bullets {
		if b == chosenChamber {
			hit = true
			break
		}
	}

	status := model.BetLost
	payout := decimal.Zero
	message := "Пуля"
	if !hit {
		status = model.BetWon
		payout = game.PayoutWithEdge(stake, baseMultiplier, edge)
		message = "Пусто"
	}

	return &game.Outcome{
		Status:         status,
		Payout:         payout,
		BaseMultiplier: baseMultiplier,
		AppliedEdge:    decimal.NewFromFloat(edge),
		Message:        message,
		Details:        model.RouletteDetails{ChosenChamber: chosenChamber, Bullets: bullets},
	}, nil
}

// drawBullets samples LiveChambers distinct chambers from 1..6.
func drawBullets() []int {
	perm := rand.Perm(6)
	bullets := make([]int, LiveChambers)
	for i := 0; i < LiveChambers; i++ {
		bullets[i] = perm[i] + 1
	}
	return bullets
}
