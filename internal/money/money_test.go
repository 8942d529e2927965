package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestQuantize(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"already quantized", "10.00", "10.00"},
		{"floors half up case", "1.455", "1.45"},
		{"floors trailing digits", "2.0175", "2.01"},
		{"whole number", "3", "3.00"},
		{"negative floors away from zero", "-0.001", "-0.01"},
		{"zero", "0", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := MustFromString(tt.in)
			assert.Equal(t, tt.expected, Quantize(in).StringFixed(2))
		})
	}
}

func TestFromStringInvalid(t *testing.T) {
	_, err := FromString("ten dollars")
	require.Error(t, err)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$17.00", Format(MustFromString("17.004")))
}

// TestQuantizeIdempotentProperty checks quantize(quantize(x)) == quantize(x)
// and that quantize never increases a value.
func TestQuantizeIdempotentProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		units := rapid.Int64Range(-1_000_000_000, 1_000_000_000).Draw(t, "units")
		exp := rapid.Int32Range(-6, 0).Draw(t, "exp")
		v := decimal.New(units, exp)

		once := Quantize(v)
		twice := Quantize(once)

		if !once.Equal(twice) {
			t.Fatalf("quantize not idempotent: %s -> %s -> %s", v, once, twice)
		}
		if once.GreaterThan(v) {
			t.Fatalf("quantize increased value: %s -> %s", v, once)
		}
		if v.Sub(once).GreaterThanOrEqual(Quant) {
			t.Fatalf("quantize dropped a full cent: %s -> %s", v, once)
		}
	})
}
