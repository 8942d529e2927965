// Package repository provides data access layer implementations on top of
// PostgreSQL. Balance changes go through the ledger: every mutation writes
// a journal row in the same transaction that moves the money.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"casino-bot/internal/model"
	"casino-bot/internal/money"
)

// LedgerRepository owns bets, the transaction journal and every balance
// mutation. A user's balance never changes outside one of its methods.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// PlaceWagerParams are the inputs for opening a bet.
type PlaceWagerParams struct {
	UserID  int64
	Game    string
	Stake   decimal.Decimal
	MinBet  decimal.Decimal
	MaxBet  decimal.Decimal
	Details any
}

// PlaceWager atomically debits the stake and opens a pending bet. The
// debit, the bet row and the journal row commit together or not at all.
// Returns ErrInvalidWager for stakes outside [MinBet, MaxBet] and
// ErrInsufficientFunds when the balance cannot cover the stake.
func (r *LedgerRepository) PlaceWager(ctx context.Context, p PlaceWagerParams) (*model.Bet, error) {
	stake := money.Quantize(p.Stake)
	if !stake.IsPositive() || stake.LessThan(p.MinBet) || stake.GreaterThan(p.MaxBet) {
		return nil, fmt.Errorf("%w: stake %s outside [%s, %s]", ErrInvalidWager, stake, p.MinBet, p.MaxBet)
	}

	details, err := marshalDetails(p.Details)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const debit = `
		UPDATE users
		SET balance = balance - $2,
		    total_bets = total_bets + 1,
		    total_wager = total_wager + $2,
		    last_seen_at = NOW()
		WHERE id = $1 AND balance >= $2
	`

	tag, err := tx.Exec(ctx, debit, p.UserID, stake)
	if err != nil {
		return nil, fmt.Errorf("failed to debit stake: %w", err)
	}
	if tag.RowsAffected() == 0 {
		exists, err := userExists(ctx, tx, p.UserID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrInsufficientFunds
	}

	const insertBet = `
		INSERT INTO bets (user_id, game, stake, payout, status, details, created_at)
		VALUES ($1, $2, $3, 0, $4, $5, NOW())
		RETURNING id, created_at
	`

	bet := model.Bet{
		UserID:  p.UserID,
		Game:    p.Game,
		Stake:   stake,
		Payout:  decimal.Zero,
		Status:  model.BetPending,
		Details: details,
	}
	err = tx.QueryRow(ctx, insertBet, p.UserID, p.Game, stake, model.BetPending, details).
		Scan(&bet.ID, &bet.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert bet: %w", err)
	}

	wagerDetails, err := marshalDetails(model.BetTxDetails{BetID: bet.ID, Game: p.Game})
	if err != nil {
		return nil, err
	}

	const insertTx = `
		INSERT INTO transactions (user_id, kind, amount, status, details, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	_, err = tx.Exec(ctx, insertTx, p.UserID, model.TxKindBet, stake.Neg(), model.TxCompleted, wagerDetails)
	if err != nil {
		return nil, fmt.Errorf("failed to journal wager: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit wager: %w", err)
	}

	return &bet, nil
}

// Settlement carries the resolved outcome of a pending bet.
type Settlement struct {
	Status         string
	Payout         decimal.Decimal
	BaseMultiplier decimal.Decimal
	AppliedEdge    decimal.Decimal
	Details        any
	ReferralRate   decimal.Decimal
}

// SettleBet finalizes a pending bet exactly once. The pending check and
// the status flip are a single compare-and-set, so concurrent settlements
// of the same bet (a crash racing a manual cashout) resolve to one winner;
// the loser sees settled=false and writes nothing. A positive payout is
// credited with a win journal row; a lost bet pays the referrer their
// commission on the stake.
func (r *LedgerRepository) SettleBet(ctx context.Context, betID int64, s Settlement) (bool, error) {
	details, err := marshalDetails(s.Details)
	if err != nil {
		return false, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const claim = `
		UPDATE bets
		SET status = $2,
		    payout = $3,
		    base_multiplier = $4,
		    applied_edge = $5,
		    details = COALESCE($6, details)
		WHERE id = $1 AND status = $7
		RETURNING user_id, stake
	`

	payout := money.Quantize(s.Payout)

	var (
		userID int64
		stake  decimal.Decimal
	)
	err = tx.QueryRow(ctx, claim, betID, s.Status, payout, s.BaseMultiplier, s.AppliedEdge, details, model.BetPending).
		Scan(&userID, &stake)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Already settled, or the bet never existed. Either way
			// there is nothing to do.
			return false, nil
		}
		return false, fmt.Errorf("failed to claim bet: %w", err)
	}

	if payout.IsPositive() {
		if err := creditTx(ctx, tx, userID, payout); err != nil {
			return false, err
		}

		winDetails, err := marshalDetails(model.BetTxDetails{BetID: betID})
		if err != nil {
			return false, err
		}

		const insertWin = `
			INSERT INTO transactions (user_id, kind, amount, status, details, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
		`
		_, err = tx.Exec(ctx, insertWin, userID, model.TxKindWin, payout, model.TxCompleted, winDetails)
		if err != nil {
			return false, fmt.Errorf("failed to journal win: %w", err)
		}
	}

	if s.Status == model.BetLost && s.ReferralRate.IsPositive() {
		if err := r.payReferral(ctx, tx, userID, betID, stake, s.ReferralRate); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit settlement: %w", err)
	}

	return true, nil
}

// payReferral credits the loser's referrer their commission on the stake.
func (r *LedgerRepository) payReferral(ctx context.Context, tx pgx.Tx, userID, betID int64, stake, rate decimal.Decimal) error {
	const referrerQuery = `SELECT referred_by FROM users WHERE id = $1`

	var referrerID *int64
	if err := tx.QueryRow(ctx, referrerQuery, userID).Scan(&referrerID); err != nil {
		return fmt.Errorf("failed to look up referrer: %w", err)
	}
	if referrerID == nil {
		return nil
	}

	commission := money.Quantize(stake.Mul(rate))
	if !commission.IsPositive() {
		return nil
	}

	const credit = `
		UPDATE users
		SET balance = balance + $2, referral_earnings = referral_earnings + $2
		WHERE id = $1
	`
	tag, err := tx.Exec(ctx, credit, *referrerID, commission)
	if err != nil {
		return fmt.Errorf("failed to credit referrer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Referrer account is gone; skip the commission.
		return nil
	}

	details, err := marshalDetails(model.ReferralDetails{
		SourceUserID: userID,
		BetID:        betID,
		LossAmount:   stake.String(),
		Rate:         rate.String(),
	})
	if err != nil {
		return err
	}

	const insertTx = `
		INSERT INTO transactions (user_id, kind, amount, status, details, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err = tx.Exec(ctx, insertTx, *referrerID, model.TxKindReferral, commission, model.TxCompleted, details)
	if err != nil {
		return fmt.Errorf("failed to journal referral: %w", err)
	}

	return nil
}

// CreditOnce credits the user at most once per (kind, externalID) pair:
// a replayed external event inserts nothing and moves no money. Returns
// whether this call performed the credit.
func (r *LedgerRepository) CreditOnce(ctx context.Context, userID int64, kind string, amount decimal.Decimal, externalID string, detailsPayload any) (bool, error) {
	amount = money.Quantize(amount)
	if !amount.IsPositive() {
		return false, fmt.Errorf("%w: credit amount %s", ErrInvalidWager, amount)
	}

	details, err := marshalDetails(detailsPayload)
	if err != nil {
		return false, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	credited, err := creditOnceTx(ctx, tx, userID, kind, amount, externalID, details)
	if err != nil {
		return false, err
	}
	if !credited {
		return false, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit credit: %w", err)
	}

	return true, nil
}

// Credit credits the user unconditionally with a journal row. Used for
// operations that have no external identity, like admin grants.
func (r *LedgerRepository) Credit(ctx context.Context, userID int64, kind string, amount decimal.Decimal, detailsPayload any) error {
	amount = money.Quantize(amount)
	if !amount.IsPositive() {
		return fmt.Errorf("%w: credit amount %s", ErrInvalidWager, amount)
	}

	details, err := marshalDetails(detailsPayload)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := creditTx(ctx, tx, userID, amount); err != nil {
		return err
	}

	const insertTx = `
		INSERT INTO transactions (user_id, kind, amount, status, details, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	if _, err := tx.Exec(ctx, insertTx, userID, kind, amount, model.TxCompleted, details); err != nil {
		return fmt.Errorf("failed to journal credit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit credit: %w", err)
	}

	return nil
}

// creditOnceTx inserts the journal row guarded by the (kind, external_id)
// unique index and credits the balance only when the insert landed.
func creditOnceTx(ctx context.Context, tx pgx.Tx, userID int64, kind string, amount decimal.Decimal, externalID string, details []byte) (bool, error) {
	const insert = `
		INSERT INTO transactions (user_id, kind, amount, status, external_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (kind, external_id) WHERE external_id IS NOT NULL DO NOTHING
	`

	tag, err := tx.Exec(ctx, insert, userID, kind, amount, model.TxCompleted, externalID, details)
	if err != nil {
		return false, fmt.Errorf("failed to journal credit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := creditTx(ctx, tx, userID, amount); err != nil {
		return false, err
	}
	return true, nil
}

// creditTx adds to the balance inside an open transaction.
func creditTx(ctx context.Context, tx pgx.Tx, userID int64, amount decimal.Decimal) error {
	const credit = `UPDATE users SET balance = balance + $2 WHERE id = $1`

	tag, err := tx.Exec(ctx, credit, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// userExists reports whether the user row is present, inside an open
// transaction.
func userExists(ctx context.Context, tx pgx.Tx, userID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := tx.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// marshalDetails encodes a details payload for a JSONB column. A nil
// payload stays NULL.
func marshalDetails(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal details: %w", err)
	}
	return data, nil
}
