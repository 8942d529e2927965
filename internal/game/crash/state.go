package crash

import (
	"github.com/shopspring/decimal"

	"casino-bot/internal/money"
)

// Round phases within an active session.
const (
	PhaseCountdown = "countdown"
	PhaseRunning   = "running"
	PhaseFinished  = "finished"
)

// State is the persisted payload of a live crash session. Decimals are
// stored as strings so the JSONB payload stays exact.
type State struct {
	Stake             string `json:"stake"`
	CurrentMultiplier string `json:"current_multiplier"`
	CrashPoint        string `json:"crash_point"`
	Tick              int    `json:"tick"`
	Phase             string `json:"phase"`
	Result            string `json:"result"`
	ChatID            int64  `json:"chat_id,omitempty"`
	MessageID         int    `json:"message_id,omitempty"`
}

// NewState builds the initial countdown state for a fresh round.
func NewState(stake, crashPoint decimal.Decimal) State {
	return State{
		Stake:             money.Quantize(stake).String(),
		CurrentMultiplier: "1.00",
		CrashPoint:        crashPoint.String(),
		Phase:             PhaseCountdown,
		Result:            "running",
	}
}

// StakeDecimal parses the stored stake.
func (s *State) StakeDecimal() decimal.Decimal {
	return mustDecimal(s.Stake)
}

// CurrentDecimal parses the stored live multiplier.
func (s *State) CurrentDecimal() decimal.Decimal {
	return mustDecimal(s.CurrentMultiplier)
}

// CrashPointDecimal parses the stored crash point.
func (s *State) CrashPointDecimal() decimal.Decimal {
	return mustDecimal(s.CrashPoint)
}

func mustDecimal(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
