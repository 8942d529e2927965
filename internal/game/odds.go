// Package game defines the shared outcome type and house-edge math used by
// every game resolver. Resolvers are pure functions: same inputs, same
// settlement, no store access.
package game

import (
	"github.com/shopspring/decimal"

	"casino-bot/internal/model"
	"casino-bot/internal/money"
)

var (
	one     = decimal.NewFromInt(1)
	maxEdge = decimal.RequireFromString("0.99")
)

// Outcome is the result of resolving a bet. Details carries one of the
// typed per-game detail structs from the model package.
type Outcome struct {
	Status         string
	Payout         decimal.Decimal
	BaseMultiplier decimal.Decimal
	AppliedEdge    decimal.Decimal
	Message        string
	Details        any
}

// Won reports whether the outcome is a winning settlement.
func (o *Outcome) Won() bool {
	return o.Status == model.BetWon
}

// EffectiveMultiplier applies the house-edge discount to a base payout
// multiplier: 1 + (base-1)*(1-edge), edge clamped to [0, 0.99], result
// floored at 1.00 and quantized to cents. Only the profit part of the
// multiplier is discounted, so a winning bet always returns the stake.
func EffectiveMultiplier(base decimal.Decimal, edge float64) decimal.Decimal {
	e := decimal.NewFromFloat(edge)
	if e.IsNegative() {
		e = decimal.Zero
	}
	if e.GreaterThan(maxEdge) {
		e = maxEdge
	}

	effective := one.Add(base.Sub(one).Mul(one.Sub(e)))
	if effective.LessThan(one) {
		effective = one
	}
	return money.Quantize(effective)
}

// PayoutWithEdge computes stake * EffectiveMultiplier(base, edge),
// quantized to cents.
func PayoutWithEdge(stake, base decimal.Decimal, edge float64) decimal.Decimal {
	return money.Quantize(stake.Mul(EffectiveMultiplier(base, edge)))
}

// PayoutExact computes stake * multiplier with no edge discount,
// quantized to cents. Used by the fixed-multiplier games.
func PayoutExact(stake, multiplier decimal.Decimal) decimal.Decimal {
	return money.Quantize(stake.Mul(multiplier))
}
