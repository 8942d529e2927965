// Package money provides fixed-point monetary arithmetic for the casino.
// All balances, stakes and payouts carry exactly two fractional digits and
// are rounded toward negative infinity, so rounding never favors the player.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Quant is the smallest currency unit (one cent).
var Quant = decimal.New(1, -2)

// Quantize floors a value to two fractional digits.
// Quantize(Quantize(x)) == Quantize(x) and Quantize(x) <= x always hold.
func Quantize(v decimal.Decimal) decimal.Decimal {
	return v.RoundFloor(2)
}

// FromString parses a monetary amount. The result is not quantized;
// callers quantize before storing or comparing.
func FromString(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid money value %q: %w", s, err)
	}
	return d, nil
}

// MustFromString parses a monetary amount and panics on failure.
// Intended for constants and tests.
func MustFromString(s string) decimal.Decimal {
	d, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Format renders a quantized amount with a currency prefix, e.g. "$12.50".
func Format(v decimal.Decimal) string {
	return "$" + Quantize(v).StringFixed(2)
}
