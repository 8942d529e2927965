package crash

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"casino-bot/internal/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPointForRoll(t *testing.T) {
	tests := []struct {
		name       string
		roll       float64
		position   float64
		expectedLo string
		expectedHi string
	}{
		{"first bucket start", 0.0, 0.0, "1.01", "1.05"},
		{"first bucket end", 0.17, 1.0, "1.01", "1.05"},
		{"second bucket", 0.30, 0.5, "1.06", "1.20"},
		{"third bucket", 0.60, 0.5, "1.21", "1.80"},
		{"fourth bucket", 0.85, 0.5, "1.81", "3.00"},
		{"fifth bucket", 0.95, 0.5, "3.01", "4.80"},
		{"tail bucket", 0.99, 0.5, "4.81", "8.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			point := PointForRoll(tt.roll, tt.position)
			assert.True(t, point.GreaterThanOrEqual(d(tt.expectedLo)),
				"point %s below %s", point, tt.expectedLo)
			assert.True(t, point.LessThanOrEqual(d(tt.expectedHi)),
				"point %s above %s", point, tt.expectedHi)
		})
	}
}

// TestPointForRollRangeProperty checks that any pair of draws lands inside
// the overall crash point range.
func TestPointForRollRangeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		roll := rapid.Float64Range(0, 0.999999).Draw(t, "roll")
		position := rapid.Float64Range(0, 0.999999).Draw(t, "position")

		point := PointForRoll(roll, position)
		if point.LessThan(StartMultiplier) || point.GreaterThan(d("8.00")) {
			t.Fatalf("crash point %s outside [1.01, 8.00]", point)
		}
	})
}

func TestStepMultiplier(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		step     string
		expected string
	}{
		{"no acceleration at the start", "1.00", "0.03", "1.03"},
		{"acceleration grows with the multiplier", "3.00", "0.05", "3.08"},
		{"acceleration capped at 0.04", "5.00", "0.01", "5.05"},
		{"floored at the start multiplier", "0.50", "0.01", "1.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StepMultiplier(d(tt.current), d(tt.step))
			assert.True(t, d(tt.expected).Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

// TestStepMultiplierMonotonicProperty checks that a positive step always
// advances the multiplier.
func TestStepMultiplierMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		currentCents := rapid.Int64Range(101, 800).Draw(t, "currentCents")
		stepCents := rapid.Int64Range(1, 5).Draw(t, "stepCents")
		current := decimal.New(currentCents, -2)

		next := StepMultiplier(current, decimal.New(stepCents, -2))
		if !next.GreaterThan(current) {
			t.Fatalf("step from %s produced %s", current, next)
		}
	})
}

func TestResolveTargetAtPoint(t *testing.T) {
	stake := d("10.00")

	t.Run("target at the crash point wins", func(t *testing.T) {
		outcome := ResolveTargetAtPoint(stake, 0.22, d("2.00"), d("2.00"))
		assert.Equal(t, model.BetWon, outcome.Status)
		// x2.00 at 22% edge is x1.78 effective.
		assert.True(t, d("17.80").Equal(outcome.Payout), "got %s", outcome.Payout)
	})

	t.Run("target past the crash point loses", func(t *testing.T) {
		outcome := ResolveTargetAtPoint(stake, 0.22, d("2.01"), d("2.00"))
		assert.Equal(t, model.BetLost, outcome.Status)
		assert.True(t, outcome.Payout.IsZero())
	})
}

func TestNewState(t *testing.T) {
	state := NewState(d("10.5"), d("2.34"))
	assert.Equal(t, PhaseCountdown, state.Phase)
	assert.Equal(t, "10.5", state.Stake)
	assert.Equal(t, "2.34", state.CrashPoint)
	assert.True(t, d("1.00").Equal(state.CurrentDecimal()))
	assert.True(t, d("2.34").Equal(state.CrashPointDecimal()))
}
