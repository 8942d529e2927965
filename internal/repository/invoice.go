package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"casino-bot/internal/model"
	"casino-bot/internal/money"
)

// InvoiceRepository tracks external payment intents.
type InvoiceRepository struct {
	pool *pgxpool.Pool
}

// NewInvoiceRepository creates a new InvoiceRepository instance.
func NewInvoiceRepository(pool *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{pool: pool}
}

const invoiceColumns = `id, user_id, invoice_id, asset, amount, status, pay_url, payload, created_at, updated_at`

func scanInvoice(row pgx.Row) (*model.Invoice, error) {
	var invoice model.Invoice
	err := row.Scan(
		&invoice.ID,
		&invoice.UserID,
		&invoice.InvoiceID,
		&invoice.Asset,
		&invoice.Amount,
		&invoice.Status,
		&invoice.PayURL,
		&invoice.Payload,
		&invoice.CreatedAt,
		&invoice.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// Create records a freshly issued invoice as active.
func (r *InvoiceRepository) Create(ctx context.Context, userID, invoiceID int64, asset string, amount decimal.Decimal, payURL string, payload *string) (*model.Invoice, error) {
	query := `
		INSERT INTO invoices (user_id, invoice_id, asset, amount, status, pay_url, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING ` + invoiceColumns

	invoice, err := scanInvoice(r.pool.QueryRow(ctx, query,
		userID, invoiceID, asset, money.Quantize(amount), model.InvoiceActive, payURL, payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	return invoice, nil
}

// GetByInvoiceID retrieves an invoice by its gateway identifier.
func (r *InvoiceRepository) GetByInvoiceID(ctx context.Context, invoiceID int64) (*model.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE invoice_id = $1`

	invoice, err := scanInvoice(r.pool.QueryRow(ctx, query, invoiceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	return invoice, nil
}

// ListOpen returns invoices still awaiting a terminal gateway status,
// oldest first, for the payment watcher.
func (r *InvoiceRepository) ListOpen(ctx context.Context, limit int) ([]*model.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE status IN ($1, $2)
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, model.InvoiceActive, model.InvoicePending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list open invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*model.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}

	return invoices, nil
}

// MarkTerminal stores a terminal non-paid gateway status (expired,
// cancelled). A paid invoice is never downgraded.
func (r *InvoiceRepository) MarkTerminal(ctx context.Context, invoiceID int64, status string) error {
	const query = `
		UPDATE invoices
		SET status = $2, updated_at = NOW()
		WHERE invoice_id = $1 AND status <> $3
	`

	if _, err := r.pool.Exec(ctx, query, invoiceID, status, model.InvoicePaid); err != nil {
		return fmt.Errorf("failed to mark invoice terminal: %w", err)
	}
	return nil
}
