// Package slots implements the slot machine resolver.
// The outcome space is the Telegram slot animation's value range 1..64;
// only the jackpot combination (777, value 64) pays.
package slots

import (
	"github.com/shopspring/decimal"

	"casino-bot/internal/game"
	"casino-bot/internal/model"
)

// JackpotValue is the animation value of the 777 reel combination.
const JackpotValue = 64

var jackpotMultiplier = decimal.RequireFromString("10.0")

// Resolve settles a slots spin for the given animation value.
// The configured edge is informational only: the jackpot pays a fixed x10.
func Resolve(stake decimal.Decimal, edge float64, slotValue int) *game.Outcome {
	details := model.SlotsDetails{
		SlotValue:    slotValue,
		JackpotValue: JackpotValue,
	}

	if slotValue != JackpotValue {
		return &game.Outcome{
			Status:         model.BetLost,
			Payout:         decimal.Zero,
			BaseMultiplier: decimal.Zero,
			AppliedEdge:    decimal.NewFromFloat(edge),
			Message:        "Комбинация не сыграла.\nВыигрывает только 777 (x10).",
			Details:        details,
		}
	}

	return &game.Outcome{
		Status:         model.BetWon,
		Payout:         game.PayoutExact(stake, jackpotMultiplier),
		BaseMultiplier: jackpotMultiplier,
		AppliedEdge:    decimal.NewFromFloat(edge),
		Message:        "7️⃣ 7️⃣ 7️⃣\nДжекпот! Выплата x10.",
		Details:        details,
	}
}
