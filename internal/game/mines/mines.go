// Package mines implements the mines game: a 5x5 grid with m hidden mines.
// Each safe open raises the cashout multiplier along the hypergeometric
// survival odds, discounted by a tiered house edge.
package mines

import (
	"errors"
	"math/big"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"casino-bot/internal/money"
)

// GridSize is the number of cells on the field.
const GridSize = 25

// Errors for mines state transitions.
var (
	ErrInvalidMines = errors.New("mines count must be between 1 and 24")
	ErrInvalidCell  = errors.New("cell index out of range")
)

var (
	one     = decimal.NewFromInt(1)
	edgeCap = decimal.RequireFromString("0.95")
)

// Open results.
const (
	OpenNoop    = "noop"    // cell was already open, state unchanged
	OpenSafe    = "safe"    // safe cell, multiplier advanced
	OpenMine    = "mine"    // mine hit, round over with zero payout
	OpenCleared = "cleared" // last safe cell opened, auto-win
)

// State is the persisted payload of a mines session.
type State struct {
	GridSize          int    `json:"grid_size"`
	MinesCount        int    `json:"mines_count"`
	MineCells         []int  `json:"mine_cells"`
	OpenedCells       []int  `json:"opened_cells"`
	CurrentMultiplier string `json:"current_multiplier"`
	Stake             string `json:"stake"`
}

// NewState places the mines and returns the initial round state.
func NewState(minesCount int, stake decimal.Decimal) (State, error) {
	if minesCount <= 0 || minesCount >= GridSize {
		return State{}, ErrInvalidMines
	}

	perm := rand.Perm(GridSize)
	mineCells := make([]int, minesCount)
	copy(mineCells, perm[:minesCount])

	return State{
		GridSize:          GridSize,
		MinesCount:        minesCount,
		MineCells:         mineCells,
		OpenedCells:       []int{},
		CurrentMultiplier: "1.00",
		Stake:             money.Quantize(stake).String(),
	}, nil
}

// Open opens a cell and advances the state. Opening an already-open cell
// is a no-op returning the current state; opening a mine ends the round;
// opening the last safe cell auto-resolves the round as a win.
func (s *State) Open(cellIndex int, edge float64) (string, decimal.Decimal, error) {
	if cellIndex < 0 || cellIndex >= GridSize {
		return "", decimal.Zero, ErrInvalidCell
	}

	if s.IsOpened(cellIndex) {
		return OpenNoop, s.MultiplierDecimal(), nil
	}

	s.OpenedCells = append(s.OpenedCells, cellIndex)

	if s.isMine(cellIndex) {
		return OpenMine, decimal.Zero, nil
	}

	multiplier := DisplayMultiplier(s.SafeOpens(), s.MinesCount, edge)
	s.CurrentMultiplier = multiplier.String()

	if s.SafeOpens() == GridSize-s.MinesCount {
		return OpenCleared, multiplier, nil
	}
	return OpenSafe, multiplier, nil
}

// IsOpened reports whether the cell has been opened.
func (s *State) IsOpened(cellIndex int) bool {
	for _, c := range s.OpenedCells {
		if c == cellIndex {
			return true
		}
	}
	return false
}

// SafeOpens counts opened cells that are not mines.
func (s *State) SafeOpens() int {
	n := 0
	for _, c := range s.OpenedCells {
		if !s.isMine(c) {
			n++
		}
	}
	return n
}

// MultiplierDecimal parses the stored cashout multiplier.
func (s *State) MultiplierDecimal() decimal.Decimal {
	d, err := decimal.NewFromString(s.CurrentMultiplier)
	if err != nil {
		return one
	}
	return d
}

// StakeDecimal parses the stored stake.
func (s *State) StakeDecimal() decimal.Decimal {
	d, err := decimal.NewFromString(s.Stake)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Cashout returns the payout for leaving the round at the current
// multiplier.
func (s *State) Cashout() decimal.Decimal {
	return money.Quantize(s.StakeDecimal().Mul(s.MultiplierDecimal()))
}

func (s *State) isMine(cellIndex int) bool {
	for _, c := range s.MineCells {
		if c == cellIndex {
			return true
		}
	}
	return false
}

// FairMultiplier is the zero-edge multiplier after safeOpens safe opens
// with minesCount mines: C(25,k) / C(25-m,k), the inverse of the odds of
// surviving k picks.
func FairMultiplier(safeOpens, minesCount int) decimal.Decimal {
	num := new(big.Int).Binomial(GridSize, int64(safeOpens))
	den := new(big.Int).Binomial(int64(GridSize-minesCount), int64(safeOpens))
	return decimal.NewFromBigInt(num, 0).Div(decimal.NewFromBigInt(den, 0))
}

// ExtraEdge is the tiered edge layered on top of the configured base edge:
// low mine counts are cheap to survive, so they carry the steepest markup.
func ExtraEdge(minesCount int) decimal.Decimal {
	switch {
	case minesCount <= 3:
		return decimal.RequireFromString("0.17")
	case minesCount <= 5:
		return decimal.RequireFromString("0.10")
	case minesCount <= 7:
		return decimal.RequireFromString("0.05")
	default:
		return decimal.Zero
	}
}

// DisplayMultiplier applies the combined edge (capped at 0.95) to the fair
// multiplier, floored at 1.00 and quantized to cents.
func DisplayMultiplier(safeOpens, minesCount int, edge float64) decimal.Decimal {
	totalEdge := decimal.NewFromFloat(edge).Add(ExtraEdge(minesCount))
	if totalEdge.GreaterThan(edgeCap) {
		totalEdge = edgeCap
	}

	adjusted := FairMultiplier(safeOpens, minesCount).Mul(one.Sub(totalEdge))
	if adjusted.LessThan(one) {
		adjusted = one
	}
	return money.Quantize(adjusted)
}
