package payment

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casino-bot/internal/model"
)

type fakeGateway struct {
	invoices map[int64]Invoice
	queries  [][]int64
}

func (g *fakeGateway) GetInvoices(_ context.Context, ids []int64) ([]Invoice, error) {
	g.queries = append(g.queries, ids)
	var out []Invoice
	for _, id := range ids {
		if inv, ok := g.invoices[id]; ok {
			out = append(out, inv)
		}
	}
	return out, nil
}

type fakeStore struct {
	open     []*model.Invoice
	terminal map[int64]string
}

func (s *fakeStore) ListOpen(context.Context, int) ([]*model.Invoice, error) {
	return s.open, nil
}

func (s *fakeStore) MarkTerminal(_ context.Context, invoiceID int64, status string) error {
	if s.terminal == nil {
		s.terminal = map[int64]string{}
	}
	s.terminal[invoiceID] = status
	return nil
}

type fakeLedger struct {
	credited map[int64]int
}

func (l *fakeLedger) ApplyPaidInvoice(_ context.Context, invoiceID int64, _ string) (bool, error) {
	if l.credited == nil {
		l.credited = map[int64]int{}
	}
	l.credited[invoiceID]++
	return l.credited[invoiceID] == 1, nil
}

func openInvoice(id int64) *model.Invoice {
	return &model.Invoice{
		InvoiceID: id,
		UserID:    id * 10,
		Asset:     "USDT",
		Amount:    decimal.RequireFromString("10.00"),
		Status:    model.InvoiceActive,
	}
}

func TestWatcherPoll(t *testing.T) {
	gw := &fakeGateway{invoices: map[int64]Invoice{
		1: {InvoiceID: 1, Status: "paid"},
		2: {InvoiceID: 2, Status: "active"},
		3: {InvoiceID: 3, Status: "expired"},
		4: {InvoiceID: 4, Status: "confirmed"},
	}}
	store := &fakeStore{open: []*model.Invoice{
		openInvoice(1), openInvoice(2), openInvoice(3), openInvoice(4),
	}}
	ledger := &fakeLedger{}

	var notified []int64
	w := NewWatcher(gw, store, ledger, time.Minute, zerolog.Nop())
	w.OnCredited = func(invoice *model.Invoice) {
		notified = append(notified, invoice.InvoiceID)
	}

	require.NoError(t, w.Poll(context.Background()))

	// Paid aliases credited, terminal closed, active left alone.
	assert.Equal(t, 1, ledger.credited[1])
	assert.Equal(t, 1, ledger.credited[4])
	assert.NotContains(t, ledger.credited, 2)
	assert.Equal(t, "expired", store.terminal[3])
	assert.ElementsMatch(t, []int64{1, 4}, notified)

	// A second cycle replays the paid status but notifies nobody.
	require.NoError(t, w.Poll(context.Background()))
	assert.ElementsMatch(t, []int64{1, 4}, notified)
}

func TestWatcherPollChunks(t *testing.T) {
	gw := &fakeGateway{invoices: map[int64]Invoice{}}
	store := &fakeStore{}
	for i := int64(1); i <= 120; i++ {
		store.open = append(store.open, openInvoice(i))
		gw.invoices[i] = Invoice{InvoiceID: i, Status: "active"}
	}

	w := NewWatcher(gw, store, &fakeLedger{}, time.Minute, zerolog.Nop())
	require.NoError(t, w.Poll(context.Background()))

	// 120 ids split into gateway queries of at most 50.
	require.Len(t, gw.queries, 3)
	assert.Len(t, gw.queries[0], 50)
	assert.Len(t, gw.queries[1], 50)
	assert.Len(t, gw.queries[2], 20)
}

func TestWatcherMinimumInterval(t *testing.T) {
	w := NewWatcher(&fakeGateway{}, &fakeStore{}, &fakeLedger{}, time.Second, zerolog.Nop())
	assert.Equal(t, minPollInterval, w.interval)
}
