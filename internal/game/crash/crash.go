// Package crash implements the crash game math: the heavy-tailed crash
// point distribution, the per-tick multiplier stepping rule and the
// target-multiplier auto-bet resolver. The live round loop itself lives in
// the scheduler service; everything here is pure apart from the random
// draws, which have fixed-input variants for tests.
package crash

import (
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"casino-bot/internal/game"
	"casino-bot/internal/model"
	"casino-bot/internal/money"
)

// StartMultiplier is where a live round begins once the countdown ends.
var StartMultiplier = decimal.RequireFromString("1.01")

var (
	one       = decimal.NewFromInt(1)
	accelCap  = decimal.RequireFromString("0.04")
	accelRate = decimal.RequireFromString("0.015")
)

// bucket is one segment of the crash point distribution.
type bucket struct {
	cumulative float64
	lo, hi     float64
}

// Cumulative probabilities 0.18, 0.27, 0.30, 0.16, 0.07, 0.02: low
// multipliers dominate, which shapes expected value independent of the
// edge discount applied at cash-out time.
var buckets = []bucket{
	{0.18, 1.01, 1.05},
	{0.45, 1.06, 1.20},
	{0.75, 1.21, 1.80},
	{0.91, 1.81, 3.00},
	{0.98, 3.01, 4.80},
	{1.00, 4.81, 8.00},
}

// GeneratePoint draws a crash point from the bucketed distribution,
// rounded to 2 decimals.
func GeneratePoint() decimal.Decimal {
	return PointForRoll(rand.Float64(), rand.Float64())
}

// PointForRoll maps a bucket roll and an in-bucket position, both in
// [0,1), onto a crash point. Split out so tests can pin the draws.
func PointForRoll(roll, position float64) decimal.Decimal {
	b := buckets[len(buckets)-1]
	for _, candidate := range buckets {
		if roll < candidate.cumulative {
			b = candidate
			break
		}
	}
	value := b.lo + position*(b.hi-b.lo)
	return decimal.NewFromFloat(value).Round(2)
}

// NextMultiplier advances the live multiplier by one tick: a uniform base
// step in [0.01,0.05] plus an acceleration term that grows with the
// current multiplier, capped at 0.04. The result never drops below 1.01;
// the caller clamps it to the round's crash point.
func NextMultiplier(current decimal.Decimal) decimal.Decimal {
	step := 0.01 + rand.Float64()*0.04
	return StepMultiplier(current, decimal.NewFromFloat(step))
}

// StepMultiplier applies the stepping rule with an explicit base step.
func StepMultiplier(current, baseStep decimal.Decimal) decimal.Decimal {
	accel := current.Sub(one).Mul(accelRate)
	if accel.IsNegative() {
		accel = decimal.Zero
	}
	if accel.GreaterThan(accelCap) {
		accel = accelCap
	}

	next := money.Quantize(current.Add(baseStep).Add(accel))
	if next.LessThan(StartMultiplier) {
		return StartMultiplier
	}
	return next
}

// ResolveTarget settles an auto-bet round: the player wins iff the chosen
// target multiplier does not exceed the generated crash point, and is paid
// at the target with the edge discount.
func ResolveTarget(stake decimal.Decimal, edge float64, target decimal.Decimal) *game.Outcome {
	return ResolveTargetAtPoint(stake, edge, target, GeneratePoint())
}

// ResolveTargetAtPoint settles an auto-bet round against a known crash point.
func ResolveTargetAtPoint(stake decimal.Decimal, edge float64, target, crashPoint decimal.Decimal) *game.Outcome {
	won := target.LessThanOrEqual(crashPoint)

	status := model.BetLost
	payout := decimal.Zero
	if won {
		status = model.BetWon
		payout = game.PayoutWithEdge(stake, target, edge)
	}

	return &game.Outcome{
		Status:         status,
		Payout:         payout,
		BaseMultiplier: target,
		AppliedEdge:    decimal.NewFromFloat(edge),
		Message:        fmt.Sprintf("Ракета взорвалась на x%s", crashPoint),
		Details: model.CrashDetails{
			ManualCashout:    false,
			CrashPoint:       crashPoint.String(),
			TargetMultiplier: target.String(),
		},
	}
}
