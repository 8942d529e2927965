package payment

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"casino-bot/internal/metrics"
	"casino-bot/internal/model"
	"casino-bot/internal/repository"
)

// minPollInterval is the floor for the watcher period: polling the
// gateway faster than this only burns rate limit.
const minPollInterval = 5 * time.Second

// chunkSize caps how many invoice ids go into one gateway query.
const chunkSize = 50

// Statuses after which the gateway will never flip an invoice to paid.
var terminalStatuses = map[string]bool{
	"expired":   true,
	"cancelled": true,
	"invalid":   true,
}

// gateway is the slice of the API client the watcher needs.
type gateway interface {
	GetInvoices(ctx context.Context, invoiceIDs []int64) ([]Invoice, error)
}

// invoiceStore is the slice of the invoice repository the watcher needs.
type invoiceStore interface {
	ListOpen(ctx context.Context, limit int) ([]*model.Invoice, error)
	MarkTerminal(ctx context.Context, invoiceID int64, status string) error
}

// depositLedger is the slice of the ledger the watcher needs.
type depositLedger interface {
	ApplyPaidInvoice(ctx context.Context, invoiceID int64, status string) (bool, error)
}

// Watcher polls open invoices and settles them: paid ones are credited
// through the ledger (exactly once), terminal ones are closed so they
// drop out of the poll set.
type Watcher struct {
	client   gateway
	invoices invoiceStore
	ledger   depositLedger
	interval time.Duration
	log      zerolog.Logger

	// OnCredited, when set, is called after a deposit lands so the
	// presentation layer can notify the user.
	OnCredited func(invoice *model.Invoice)
}

// NewWatcher creates a payment watcher. Intervals below the minimum are
// raised to it.
func NewWatcher(client gateway, invoices invoiceStore, ledger depositLedger, interval time.Duration, log zerolog.Logger) *Watcher {
	if interval < minPollInterval {
		interval = minPollInterval
	}
	return &Watcher{
		client:   client,
		invoices: invoices,
		ledger:   ledger,
		interval: interval,
		log:      log.With().Str("component", "payment_watcher").Logger(),
	}
}

// Run polls until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("payment watcher started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("payment watcher stopped")
			return
		case <-ticker.C:
			if err := w.Poll(ctx); err != nil {
				metrics.WatcherPolls.WithLabelValues("error").Inc()
				w.log.Error().Err(err).Msg("poll failed")
			} else {
				metrics.WatcherPolls.WithLabelValues("ok").Inc()
			}
		}
	}
}

// Poll runs one poll cycle over all open invoices.
func (w *Watcher) Poll(ctx context.Context) error {
	open, err := w.invoices.ListOpen(ctx, 500)
	if err != nil {
		return err
	}
	if len(open) == 0 {
		return nil
	}

	byID := make(map[int64]*model.Invoice, len(open))
	ids := make([]int64, 0, len(open))
	for _, invoice := range open {
		byID[invoice.InvoiceID] = invoice
		ids = append(ids, invoice.InvoiceID)
	}

	for start := 0; start < len(ids); start += chunkSize {
		end := min(start+chunkSize, len(ids))

		remote, err := w.client.GetInvoices(ctx, ids[start:end])
		if err != nil {
			return err
		}

		for _, inv := range remote {
			w.apply(ctx, byID[inv.InvoiceID], inv)
		}
	}

	return nil
}

// apply settles one invoice according to its gateway status.
func (w *Watcher) apply(ctx context.Context, stored *model.Invoice, remote Invoice) {
	if stored == nil {
		return
	}

	status := repository.NormalizeInvoiceStatus(remote.Status)
	switch {
	case status == model.InvoicePaid:
		credited, err := w.ledger.ApplyPaidInvoice(ctx, remote.InvoiceID, remote.Status)
		if err != nil {
			w.log.Error().Err(err).Int64("invoice_id", remote.InvoiceID).Msg("failed to credit deposit")
			return
		}
		if credited {
			metrics.DepositsCredited.Inc()
			w.log.Info().
				Int64("invoice_id", remote.InvoiceID).
				Int64("user_id", stored.UserID).
				Str("amount", stored.Amount.String()).
				Msg("deposit credited")
			if w.OnCredited != nil {
				w.OnCredited(stored)
			}
		}
	case terminalStatuses[status]:
		if err := w.invoices.MarkTerminal(ctx, remote.InvoiceID, status); err != nil {
			w.log.Error().Err(err).Int64("invoice_id", remote.InvoiceID).Msg("failed to close invoice")
		}
	default:
		// Still pending at the gateway; check again next cycle.
	}
}
