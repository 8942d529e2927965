package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"casino-bot/internal/model"
)

// Gateway status aliases that all mean "the money arrived".
var paidAliases = map[string]bool{
	"paid":      true,
	"completed": true,
	"confirmed": true,
}

// NormalizeInvoiceStatus maps gateway status spellings onto the stored
// status vocabulary: any paid alias becomes paid, everything else is
// lowercased as-is.
func NormalizeInvoiceStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if paidAliases[status] {
		return model.InvoicePaid
	}
	return status
}

// ApplyPaidInvoice marks an invoice paid and credits the deposit, exactly
// once per invoice. The paid flip is a compare-and-set on the non-paid
// status and the credit is keyed by the invoice id, so replaying a paid
// notification moves no money. Returns whether this call credited.
func (r *LedgerRepository) ApplyPaidInvoice(ctx context.Context, invoiceID int64, status string) (bool, error) {
	if NormalizeInvoiceStatus(status) != model.InvoicePaid {
		return false, fmt.Errorf("%w: status %q is not paid", ErrInvalidWager, status)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const markPaid = `
		UPDATE invoices
		SET status = $2, updated_at = NOW()
		WHERE invoice_id = $1 AND status <> $2
		RETURNING user_id, asset, amount
	`

	var (
		userID int64
		asset  string
		amount decimal.Decimal
	)
	err = tx.QueryRow(ctx, markPaid, invoiceID, model.InvoicePaid).Scan(&userID, &asset, &amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Already paid or unknown invoice.
			return false, nil
		}
		return false, fmt.Errorf("failed to mark invoice paid: %w", err)
	}

	details, err := marshalDetails(model.DepositDetails{Asset: asset, InvoiceID: invoiceID})
	if err != nil {
		return false, err
	}

	externalID := fmt.Sprintf("invoice:%d", invoiceID)
	credited, err := creditOnceTx(ctx, tx, userID, model.TxKindDeposit, amount, externalID, details)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit deposit: %w", err)
	}

	return credited, nil
}
