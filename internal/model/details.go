package model

// Typed outcome details, one struct per game family. These are serialized
// into the JSONB details column of bets and sessions, so each resolver's
// output is statically checked instead of flowing through an open map.

// SlotsDetails describes a slots spin.
type SlotsDetails struct {
	SlotValue    int `json:"slot_value"`
	JackpotValue int `json:"jackpot_value"`
}

// DiceDetails describes a dice roll or duel.
type DiceDetails struct {
	Choice     string `json:"choice"`
	Dice       int    `json:"dice,omitempty"`
	DuelPlayer int    `json:"duel_player,omitempty"`
	DuelBot    int    `json:"duel_bot,omitempty"`
	DuelResult string `json:"duel_result,omitempty"`
}

// EmojiDetails describes an emoji sports game outcome.
type EmojiDetails struct {
	Game        string `json:"game"`
	Choice      string `json:"choice"`
	ChoiceTitle string `json:"choice_title"`
	ResultTitle string `json:"result_title"`
	Dice        int    `json:"dice"`
}

// RouletteDetails describes a Russian roulette round.
type RouletteDetails struct {
	ChosenChamber int   `json:"chosen_chamber"`
	Bullets       []int `json:"bullets"`
}

// CrashDetails describes a crash settlement, from either the manual
// cashout path or the scheduler's crash path.
type CrashDetails struct {
	ManualCashout       bool   `json:"manual_cashout"`
	CrashPoint          string `json:"crash_point"`
	CurrentMultiplier   string `json:"current_multiplier,omitempty"`
	EffectiveMultiplier string `json:"effective_multiplier,omitempty"`
	TargetMultiplier    string `json:"target_multiplier,omitempty"`
	LateCashoutClick    bool   `json:"late_cashout_click,omitempty"`
}

// MinesDetails describes a mines settlement.
type MinesDetails struct {
	MinesCount int    `json:"mines_count"`
	SafeOpens  int    `json:"safe_opens"`
	Multiplier string `json:"multiplier,omitempty"`
	HitCell    *int   `json:"hit_cell,omitempty"`
}

// ReferralDetails records where a referral commission came from.
type ReferralDetails struct {
	SourceUserID int64  `json:"source_user_id"`
	BetID        int64  `json:"bet_id"`
	LossAmount   string `json:"loss_amount"`
	Rate         string `json:"rate"`
}

// BetTxDetails links a bet transaction to its bet row.
type BetTxDetails struct {
	Game  string `json:"game"`
	BetID int64  `json:"bet_id"`
}

// DepositDetails records the asset and invoice of a credited deposit.
type DepositDetails struct {
	Asset     string `json:"asset"`
	InvoiceID int64  `json:"invoice_id"`
}

// WithdrawDetails records withdraw request/approval metadata.
type WithdrawDetails struct {
	Asset           string `json:"asset,omitempty"`
	Address         string `json:"address,omitempty"`
	BalanceReserved bool   `json:"balance_reserved"`
	ApprovedByAdmin int64  `json:"approved_by_admin_id,omitempty"`
	RejectedByAdmin int64  `json:"rejected_by_admin_id,omitempty"`
}
