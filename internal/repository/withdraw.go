package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"casino-bot/internal/model"
	"casino-bot/internal/money"
)

// CreateWithdrawRequest reserves the amount immediately: the balance is
// debited and a pending withdraw_request journal row is written in one
// transaction. The money stays reserved until an admin approves or
// rejects the request.
func (r *LedgerRepository) CreateWithdrawRequest(ctx context.Context, userID int64, amount decimal.Decimal, address string) (*model.Transaction, error) {
	amount = money.Quantize(amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: withdraw amount %s", ErrInvalidWager, amount)
	}

	details, err := marshalDetails(model.WithdrawDetails{Address: address, BalanceReserved: true})
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const debit = `UPDATE users SET balance = balance - $2 WHERE id = $1 AND balance >= $2`

	tag, err := tx.Exec(ctx, debit, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve withdrawal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		exists, err := userExists(ctx, tx, userID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrInsufficientFunds
	}

	const insert = `
		INSERT INTO transactions (user_id, kind, amount, status, details, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	request := model.Transaction{
		UserID:  userID,
		Kind:    model.TxKindWithdrawRequest,
		Amount:  amount.Neg(),
		Status:  model.TxPending,
		Details: details,
	}
	err = tx.QueryRow(ctx, insert, userID, model.TxKindWithdrawRequest, amount.Neg(), model.TxPending, details).
		Scan(&request.ID, &request.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to journal withdraw request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit withdraw request: %w", err)
	}

	return &request, nil
}

// ProcessWithdrawal debits the amount and journals a completed
// withdrawal in one transaction: the direct payout path with no approval
// step. The external id keys the journal row, so a replayed call returns
// ErrAlreadyProcessed instead of paying twice.
func (r *LedgerRepository) ProcessWithdrawal(ctx context.Context, userID int64, amount decimal.Decimal, asset, externalID string) (*model.Transaction, error) {
	amount = money.Quantize(amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: withdraw amount %s", ErrInvalidWager, amount)
	}

	details, err := marshalDetails(model.WithdrawDetails{Asset: asset})
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const insert = `
		INSERT INTO transactions (user_id, kind, amount, status, external_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (kind, external_id) WHERE external_id IS NOT NULL DO NOTHING
		RETURNING id, created_at
	`

	withdrawal := model.Transaction{
		UserID:     userID,
		Kind:       model.TxKindWithdrawal,
		Amount:     amount.Neg(),
		Status:     model.TxCompleted,
		ExternalID: &externalID,
		Details:    details,
	}
	err = tx.QueryRow(ctx, insert, userID, model.TxKindWithdrawal, amount.Neg(), model.TxCompleted, externalID, details).
		Scan(&withdrawal.ID, &withdrawal.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyProcessed
		}
		return nil, fmt.Errorf("failed to journal withdrawal: %w", err)
	}

	const debit = `UPDATE users SET balance = balance - $2 WHERE id = $1 AND balance >= $2`

	tag, err := tx.Exec(ctx, debit, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to debit withdrawal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		exists, err := userExists(ctx, tx, userID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrInsufficientFunds
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit withdrawal: %w", err)
	}

	return &withdrawal, nil
}

// ApproveWithdrawRequest flips a pending request to completed. The money
// was already reserved at request time, so no balance changes here.
// Returns ErrAlreadyProcessed if the request left the pending status.
func (r *LedgerRepository) ApproveWithdrawRequest(ctx context.Context, requestID, adminID int64) (*model.Transaction, error) {
	const approve = `
		UPDATE transactions
		SET status = $2,
		    details = COALESCE(details, '{}'::jsonb) || jsonb_build_object('approved_by_admin', $3::bigint)
		WHERE id = $1 AND kind = $4 AND status = $5
		RETURNING id, user_id, kind, amount, status, external_id, description, details, created_at
	`

	var request model.Transaction
	err := r.pool.QueryRow(ctx, approve, requestID, model.TxCompleted, adminID, model.TxKindWithdrawRequest, model.TxPending).
		Scan(
			&request.ID,
			&request.UserID,
			&request.Kind,
			&request.Amount,
			&request.Status,
			&request.ExternalID,
			&request.Description,
			&request.Details,
			&request.CreatedAt,
		)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyRequestMiss(ctx, requestID)
		}
		return nil, fmt.Errorf("failed to approve withdraw request: %w", err)
	}

	return &request, nil
}

// RejectWithdrawRequest flips a pending request to rejected and refunds
// the reserved amount. The refund is keyed by the request id, so a
// replayed rejection cannot credit twice.
func (r *LedgerRepository) RejectWithdrawRequest(ctx context.Context, requestID, adminID int64) (*model.Transaction, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const reject = `
		UPDATE transactions
		SET status = $2,
		    details = COALESCE(details, '{}'::jsonb) || jsonb_build_object('rejected_by_admin', $3::bigint)
		WHERE id = $1 AND kind = $4 AND status = $5
		RETURNING id, user_id, kind, amount, status, external_id, description, details, created_at
	`

	var request model.Transaction
	err = tx.QueryRow(ctx, reject, requestID, model.TxRejected, adminID, model.TxKindWithdrawRequest, model.TxPending).
		Scan(
			&request.ID,
			&request.UserID,
			&request.Kind,
			&request.Amount,
			&request.Status,
			&request.ExternalID,
			&request.Description,
			&request.Details,
			&request.CreatedAt,
		)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyRequestMiss(ctx, requestID)
		}
		return nil, fmt.Errorf("failed to reject withdraw request: %w", err)
	}

	refund := request.Amount.Neg()
	refundDetails, err := marshalDetails(model.WithdrawDetails{RejectedByAdmin: adminID})
	if err != nil {
		return nil, err
	}

	externalID := fmt.Sprintf("refund:%d", requestID)
	if _, err := creditOnceTx(ctx, tx, request.UserID, model.TxKindWithdrawRefund, refund, externalID, refundDetails); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit rejection: %w", err)
	}

	return &request, nil
}

// ListPendingWithdrawals returns open withdraw requests, oldest first.
func (r *LedgerRepository) ListPendingWithdrawals(ctx context.Context, limit int) ([]*model.Transaction, error) {
	const query = `
		SELECT id, user_id, kind, amount, status, external_id, description, details, created_at
		FROM transactions
		WHERE kind = $1 AND status = $2
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, model.TxKindWithdrawRequest, model.TxPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdraw requests: %w", err)
	}
	defer rows.Close()

	var requests []*model.Transaction
	for rows.Next() {
		var request model.Transaction
		err := rows.Scan(
			&request.ID,
			&request.UserID,
			&request.Kind,
			&request.Amount,
			&request.Status,
			&request.ExternalID,
			&request.Description,
			&request.Details,
			&request.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdraw request: %w", err)
		}
		requests = append(requests, &request)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdraw requests: %w", err)
	}

	return requests, nil
}

// classifyRequestMiss distinguishes a missing request from one that was
// already decided.
func (r *LedgerRepository) classifyRequestMiss(ctx context.Context, requestID int64) error {
	const query = `SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1 AND kind = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, requestID, model.TxKindWithdrawRequest).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check withdraw request: %w", err)
	}
	if exists {
		return ErrAlreadyProcessed
	}
	return ErrNotFound
}
