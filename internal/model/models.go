// Package model defines the data models for the casino bot.
package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// User represents a player account. The balance is mutated only through
// ledger operations and never drops below zero.
type User struct {
	ID               int64           `db:"id"`
	Username         *string         `db:"username"`
	FirstName        *string         `db:"first_name"`
	Balance          decimal.Decimal `db:"balance"`
	TotalBets        int             `db:"total_bets"`
	TotalWager       decimal.Decimal `db:"total_wager"`
	ReferredBy       *int64          `db:"referred_by"`
	ReferralEarnings decimal.Decimal `db:"referral_earnings"`
	CreatedAt        time.Time       `db:"created_at"`
	LastSeenAt       time.Time       `db:"last_seen_at"`
}

// Bet statuses. A bet is created pending and transitions to a terminal
// status exactly once; settling a non-pending bet is a no-op.
const (
	BetPending = "pending"
	BetWon     = "won"
	BetLost    = "lost"
	BetPush    = "push"
)

// Bet is a single wager record.
type Bet struct {
	ID             int64            `db:"id"`
	UserID         int64            `db:"user_id"`
	Game           string           `db:"game"`
	Stake          decimal.Decimal  `db:"stake"`
	BaseMultiplier *decimal.Decimal `db:"base_multiplier"`
	AppliedEdge    *decimal.Decimal `db:"applied_edge"`
	Payout         decimal.Decimal  `db:"payout"`
	Status         string           `db:"status"`
	Details        json.RawMessage  `db:"details"`
	CreatedAt      time.Time        `db:"created_at"`
}

// Transaction kinds.
const (
	TxKindBet             = "bet"
	TxKindWin             = "win"
	TxKindReferral        = "referral"
	TxKindDeposit         = "deposit"
	TxKindWithdrawal      = "withdrawal"
	TxKindWithdrawRequest = "withdraw_request"
	TxKindWithdrawRefund  = "withdraw_refund"
	TxKindAdminGrant      = "admin_grant"
	TxKindWelcomeBonus    = "welcome_bonus"
)

// Transaction statuses.
const (
	TxCompleted = "completed"
	TxPending   = "pending"
	TxRejected  = "rejected"
)

// Transaction is an append-only journal entry. The journal is the source
// of truth for "did this external event already apply": idempotency is
// uniqueness of (kind, external_id).
type Transaction struct {
	ID          int64           `db:"id"`
	UserID      int64           `db:"user_id"`
	Kind        string          `db:"kind"`
	Amount      decimal.Decimal `db:"amount"`
	Status      string          `db:"status"`
	ExternalID  *string         `db:"external_id"`
	Description *string         `db:"description"`
	Details     json.RawMessage `db:"details"`
	CreatedAt   time.Time       `db:"created_at"`
}

// Game identifiers.
const (
	GameSlots      = "slots"
	GameDice       = "dice"
	GameFootball   = "football"
	GameBasketball = "basketball"
	GameDarts      = "darts"
	GameBowling    = "bowling"
	GameRoulette   = "roulette"
	GameCrash      = "crash"
	GameMines      = "mines"
)

// Game session statuses: active plus the terminal variants.
const (
	SessionActive    = "active"
	SessionWon       = "won"
	SessionLost      = "lost"
	SessionCashedOut = "cashed_out"
	SessionCrashed   = "crashed"
)

// GameSession is the per-round state for multi-step games. The persisted
// row is the only truth for round progress; the linked bet and the account
// mutate only at resolution.
type GameSession struct {
	ID        string          `db:"id"`
	UserID    int64           `db:"user_id"`
	BetID     int64           `db:"bet_id"`
	Game      string          `db:"game"`
	Status    string          `db:"status"`
	State     json.RawMessage `db:"state"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Invoice statuses. The status only ever advances toward paid; once paid
// it is never downgraded.
const (
	InvoiceActive  = "active"
	InvoicePending = "pending"
	InvoicePaid    = "paid"
)

// Invoice is a deposit record for an external payment intent.
type Invoice struct {
	ID        int64           `db:"id"`
	UserID    int64           `db:"user_id"`
	InvoiceID int64           `db:"invoice_id"`
	Asset     string          `db:"asset"`
	Amount    decimal.Decimal `db:"amount"`
	Status    string          `db:"status"`
	PayURL    string          `db:"pay_url"`
	Payload   *string         `db:"payload"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// AppSetting is a runtime-tunable key/value setting.
type AppSetting struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}
