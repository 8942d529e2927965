// Tests use testcontainers-go to spin up a PostgreSQL container and run
// against the real schema.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"casino-bot/internal/model"
	"casino-bot/internal/pkg/db"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// fundUser creates a user and credits an opening balance through the
// ledger, keeping balance == sum of journal amounts.
func fundUser(t *testing.T, pool *pgxpool.Pool, userID int64, amount string) {
	t.Helper()
	ctx := context.Background()

	name := fmt.Sprintf("user%d", userID)
	_, _, err := NewUserRepository(pool).EnsureUser(ctx, userID, &name, nil, "")
	require.NoError(t, err)

	err = NewLedgerRepository(pool).Credit(ctx, userID, model.TxKindAdminGrant, d(amount), nil)
	require.NoError(t, err)
}

// journalSum sums every journal amount for a user.
func journalSum(t *testing.T, pool *pgxpool.Pool, userID int64) decimal.Decimal {
	t.Helper()

	var sum decimal.Decimal
	err := pool.QueryRow(context.Background(),
		`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = $1`, userID).Scan(&sum)
	require.NoError(t, err)
	return sum
}

// ============================================================================
// UserRepository Tests
// ============================================================================

func TestUserRepository_EnsureUser(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	name := "alice"
	user, created, err := repo.EnsureUser(ctx, 100, &name, nil, "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(100), user.ID)
	assert.True(t, user.Balance.IsZero())
	assert.Nil(t, user.ReferredBy)

	// Second contact does not recreate.
	user, created, err = repo.EnsureUser(ctx, 100, &name, nil, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(100), user.ID)
}

func TestUserRepository_EnsureUserReferral(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	referrer := "ref"
	_, _, err := repo.EnsureUser(ctx, 100, &referrer, nil, "")
	require.NoError(t, err)

	// Referral payload binds at creation.
	name := "bob"
	user, created, err := repo.EnsureUser(ctx, 200, &name, nil, "ref_100")
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, user.ReferredBy)
	assert.Equal(t, int64(100), *user.ReferredBy)

	// A later payload does not rebind.
	user, _, err = repo.EnsureUser(ctx, 200, &name, nil, "ref_999")
	require.NoError(t, err)
	require.NotNil(t, user.ReferredBy)
	assert.Equal(t, int64(100), *user.ReferredBy)

	// Self-referral is ignored.
	user, _, err = repo.EnsureUser(ctx, 300, &name, nil, "ref_300")
	require.NoError(t, err)
	assert.Nil(t, user.ReferredBy)

	count, err := repo.ReferralCount(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestParseReferralPayload(t *testing.T) {
	tests := []struct {
		payload  string
		expected *int64
	}{
		{"ref_123", ptr(int64(123))},
		{" ref_123 ", ptr(int64(123))},
		{"ref_abc", nil},
		{"ref_-5", nil},
		{"123", nil},
		{"", nil},
	}

	for _, tt := range tests {
		got := ParseReferralPayload(tt.payload)
		if tt.expected == nil {
			assert.Nil(t, got, "payload %q", tt.payload)
		} else {
			require.NotNil(t, got, "payload %q", tt.payload)
			assert.Equal(t, *tt.expected, *got)
		}
	}
}

func ptr[T any](v T) *T { return &v }

func TestUserRepository_GetByUsername(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	name := "alice"
	_, _, err := repo.EnsureUser(ctx, 100, &name, nil, "")
	require.NoError(t, err)

	user, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), user.ID)

	// A leading @ is accepted, the way admins type it.
	user, err = repo.GetByUsername(ctx, "@alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), user.ID)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetByUsername(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================================================
// LedgerRepository Tests
// ============================================================================

func TestLedgerRepository_PlaceWager(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedgerRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	fundUser(t, pool, 100, "50.00")

	bet, err := ledger.PlaceWager(ctx, PlaceWagerParams{
		UserID: 100,
		Game:   model.GameDice,
		Stake:  d("10.00"),
		MinBet: d("0.10"),
		MaxBet: d("10000"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.BetPending, bet.Status)
	assert.True(t, d("10.00").Equal(bet.Stake))

	user, err := users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, d("40.00").Equal(user.Balance), "got %s", user.Balance)
	assert.Equal(t, 1, user.TotalBets)
	assert.True(t, d("10.00").Equal(user.TotalWager))

	// The journal matches the balance.
	assert.True(t, journalSum(t, pool, 100).Equal(user.Balance))
}

func TestLedgerRepository_PlaceWagerErrors(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedgerRepository(pool)
	ctx := context.Background()

	fundUser(t, pool, 100, "5.00")

	limits := PlaceWagerParams{UserID: 100, Game: model.GameDice, MinBet: d("0.10"), MaxBet: d("10000")}

	// Insufficient funds: nothing written.
	p := limits
	p.Stake = d("10.00")
	_, err := ledger.PlaceWager(ctx, p)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, journalSum(t, pool, 100).Equal(d("5.00")))

	// Out of bounds.
	p.Stake = d("0.05")
	_, err = ledger.PlaceWager(ctx, p)
	assert.ErrorIs(t, err, ErrInvalidWager)

	p.Stake = d("-1")
	_, err = ledger.PlaceWager(ctx, p)
	assert.ErrorIs(t, err, ErrInvalidWager)

	// Unknown user.
	p = limits
	p.UserID = 999
	p.Stake = d("1.00")
	_, err = ledger.PlaceWager(ctx, p)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerRepository_SettleBetWin(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedgerRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	fundUser(t, pool, 100, "50.00")

	bet, err := ledger.PlaceWager(ctx, PlaceWagerParams{
		UserID: 100, Game: model.GameDice, Stake: d("10.00"),
		MinBet: d("0.10"), MaxBet: d("10000"),
	})
	require.NoError(t, err)

	settled, err := ledger.SettleBet(ctx, bet.ID, Settlement{
		Status:         model.BetWon,
		Payout:         d("17.00"),
		BaseMultiplier: d("1.7"),
		AppliedEdge:    d("0.35"),
	})
	require.NoError(t, err)
	assert.True(t, settled)

	user, err := users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, d("57.00").Equal(user.Balance), "got %s", user.Balance)
	assert.True(t, journalSum(t, pool, 100).Equal(user.Balance))

	// Settling again is a no-op.
	settled, err = ledger.SettleBet(ctx, bet.ID, Settlement{Status: model.BetWon, Payout: d("17.00")})
	require.NoError(t, err)
	assert.False(t, settled)

	user, err = users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, d("57.00").Equal(user.Balance), "double settle moved money: %s", user.Balance)
}

func TestLedgerRepository_SettleBetReferral(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedgerRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	fundUser(t, pool, 100, "1.00") // referrer
	name := "bob"
	_, _, err := users.EnsureUser(ctx, 200, &name, nil, "ref_100")
	require.NoError(t, err)
	require.NoError(t, ledger.Credit(ctx, 200, model.TxKindAdminGrant, d("50.00"), nil))

	bet, err := ledger.PlaceWager(ctx, PlaceWagerParams{
		UserID: 200, Game: model.GameSlots, Stake: d("10.00"),
		MinBet: d("0.10"), MaxBet: d("10000"),
	})
	require.NoError(t, err)

	// A loss pays the referrer 10% of the stake.
	settled, err := ledger.SettleBet(ctx, bet.ID, Settlement{
		Status:       model.BetLost,
		ReferralRate: d("0.10"),
	})
	require.NoError(t, err)
	assert.True(t, settled)

	referrer, err := users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, d("2.00").Equal(referrer.Balance), "got %s", referrer.Balance)
	assert.True(t, d("1.00").Equal(referrer.ReferralEarnings))

	// A win pays no commission.
	bet, err = ledger.PlaceWager(ctx, PlaceWagerParams{
		UserID: 200, Game: model.GameSlots, Stake: d("10.00"),
		MinBet: d("0.10"), MaxBet: d("10000"),
	})
	require.NoError(t, err)

	_, err = ledger.SettleBet(ctx, bet.ID, Settlement{
		Status: model.BetWon, Payout: d("17.00"), ReferralRate: d("0.10"),
	})
	require.NoError(t, err)

	referrer, err = users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, d("2.00").Equal(referrer.Balance), "win paid commission: %s", referrer.Balance)
}

func TestLedgerRepository_SettleBetPush(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedgerRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	fundUser(t, pool, 100, "50.00")

	bet, err := ledger.PlaceWager(ctx, PlaceWagerParams{
		UserID: 100, Game: model.GameDice, Stake: d("20.00"),
		MinBet: d("0.10"), MaxBet: d("10000"),
	})
	require.NoError(t, err)

	// A push returns exactly the stake.
	settled, err := ledger.SettleBet(ctx, bet.ID, Settlement{
		Status: model.BetPush,
		Payout: d("20.00"),
	})
	require.NoError(t, err)
	assert.True(t, settled)

	user, err := users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, d("50.00").Equal(user.Balance), "got %s", user.Balance)
}

func TestLedgerRepository_SettleBetConcurrent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedgerRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	fundUser(t, pool, 100, "50.00")

	bet, err := ledger.PlaceWager(ctx, PlaceWagerParams{
		UserID: 100, Game: model.GameCrash, Stake: d("10.00"),
		MinBet: d("0.10"), MaxBet: d("10000"),
	})
	require.NoError(t, err)

	// A manual cashout racing the crash path: exactly one settlement wins.
	var wg sync.WaitGroup
	results := make([]bool, 2)
	settlements := []Settlement{
		{Status: model.BetWon, Payout: d("15.00")},
		{Status: model.BetLost},
	}
	for i := range settlements {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			settled, err := ledger.SettleBet(ctx, bet.ID, settlements[i])
			assert.NoError(t, err)
			results[i] = settled
		}(i)
	}
	wg.Wait()

	assert.NotEqual(t, results[0], results[1], "expected exactly one settlement to win")

	user, err := users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, journalSum(t, pool, 100).Equal(user.Balance))
}

func TestLedgerRepository_SettleBetLateLossDetails(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedgerRepository(pool)
	ctx := context.Background()

	fundUser(t, pool, 100, "50.00")

	bet, err := ledger.PlaceWager(ctx, PlaceWagerParams{
		UserID: 100, Game: model.GameCrash, Stake: d("10.00"),
		MinBet: d("0.10"), MaxBet: d("10000"),
	})
	require.NoError(t, err)

	// A cashout click that arrives after the crash closes the bet as a
	// loss and records that the click was late.
	settled, err := ledger.SettleBet(ctx, bet.ID, Settlement{
		Status:         model.BetLost,
		BaseMultiplier: d("1.42"),
		Details: model.CrashDetails{
			CrashPoint:       "1.42",
			LateCashoutClick: true,
		},
	})
	require.NoError(t, err)
	assert.True(t, settled)

	var raw []byte
	err = pool.QueryRow(ctx, `SELECT details FROM bets WHERE id = $1`, bet.ID).Scan(&raw)
	require.NoError(t, err)

	var details model.CrashDetails
	require.NoError(t, json.Unmarshal(raw, &details))
	assert.True(t, details.LateCashoutClick)
	assert.Equal(t, "1.42", details.CrashPoint)

	// The round loop settling afterwards changes nothing.
	settled, err = ledger.SettleBet(ctx, bet.ID, Settlement{
		Status:  model.BetLost,
		Details: model.CrashDetails{CrashPoint: "1.42"},
	})
	require.NoError(t, err)
	assert.False(t, settled)
}

func TestLedgerRepository_CreditOnce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedgerRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	fundUser(t, pool, 100, "0.50")

	credited, err := ledger.CreditOnce(ctx, 100, model.TxKindWelcomeBonus, d("1.00"), "welcome:100", nil)
	require.NoError(t, err)
	assert.True(t, credited)

	// Replaying the same external id moves nothing.
	credited, err = ledger.CreditOnce(ctx, 100, model.TxKindWelcomeBonus, d("1.00"), "welcome:100", nil)
	require.NoError(t, err)
	assert.False(t, credited)

	user, err := users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, d("1.50").Equal(user.Balance), "got %s", user.Balance)

	// The same external id under a different kind is a different event.
	credited, err = ledger.CreditOnce(ctx, 100, model.TxKindDeposit, d("2.00"), "welcome:100", nil)
	require.NoError(t, err)
	assert.True(t, credited)
}

// ============================================================================
// Withdraw Tests
// ============================================================================

func TestLedgerRepository_WithdrawFlow(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedgerRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	fundUser(t, pool, 100, "50.00")

	// The request reserves the amount immediately.
	request, err := ledger.CreateWithdrawRequest(ctx, 100, d("30.00"), "TQwAddr")
	require.NoError(t, err)
	assert.Equal(t, model.TxPending, request.Status)
	assert.True(t, d("-30.00").Equal(request.Amount))

	user, err := users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, d("20.00").Equal(user.Balance), "got %s", user.Balance)

	// Approval completes the request without touching the balance.
	approved, err := ledger.ApproveWithdrawRequest(ctx, request.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.TxCompleted, approved.Status)

	user, err = users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, d("20.00").Equal(user.Balance))

	// Deciding it again fails.
	_, err = ledger.ApproveWithdrawRequest(ctx, request.ID, 1)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	_, err = ledger.RejectWithdrawRequest(ctx, request.ID, 1)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestLedgerRepository_WithdrawReject(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedgerRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	fundUser(t, pool, 100, "50.00")

	request, err := ledger.CreateWithdrawRequest(ctx, 100, d("30.00"), "TQwAddr")
	require.NoError(t, err)

	rejected, err := ledger.RejectWithdrawRequest(ctx, request.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.TxRejected, rejected.Status)

	// The reserved amount came back.
	user, err := users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, d("50.00").Equal(user.Balance), "got %s", user.Balance)
	assert.True(t, journalSum(t, pool, 100).Equal(user.Balance))
}

func TestLedgerRepository_WithdrawErrors(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedgerRepository(pool)
	ctx := context.Background()

	fundUser(t, pool, 100, "10.00")

	// Not enough balance: nothing written.
	_, err := ledger.CreateWithdrawRequest(ctx, 100, d("30.00"), "")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, journalSum(t, pool, 100).Equal(d("10.00")))

	_, err = ledger.CreateWithdrawRequest(ctx, 100, d("0"), "")
	assert.ErrorIs(t, err, ErrInvalidWager)

	_, err = ledger.ApproveWithdrawRequest(ctx, 9999, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerRepository_ProcessWithdrawal(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedgerRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	fundUser(t, pool, 100, "50.00")

	withdrawal, err := ledger.ProcessWithdrawal(ctx, 100, d("30.00"), "USDT", "auto:abc")
	require.NoError(t, err)
	assert.Equal(t, model.TxCompleted, withdrawal.Status)
	assert.True(t, d("-30.00").Equal(withdrawal.Amount))

	user, err := users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, d("20.00").Equal(user.Balance), "got %s", user.Balance)
	assert.True(t, journalSum(t, pool, 100).Equal(user.Balance))

	// A replayed external id pays nothing.
	_, err = ledger.ProcessWithdrawal(ctx, 100, d("30.00"), "USDT", "auto:abc")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	user, err = users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, d("20.00").Equal(user.Balance), "replay moved money: %s", user.Balance)

	// Not enough balance: nothing written, not even the journal row.
	_, err = ledger.ProcessWithdrawal(ctx, 100, d("100.00"), "USDT", "auto:def")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, journalSum(t, pool, 100).Equal(d("20.00")))

	_, err = ledger.ProcessWithdrawal(ctx, 999, d("1.00"), "USDT", "auto:ghi")
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================================================
// Deposit Tests
// ============================================================================

func TestNormalizeInvoiceStatus(t *testing.T) {
	assert.Equal(t, model.InvoicePaid, NormalizeInvoiceStatus("paid"))
	assert.Equal(t, model.InvoicePaid, NormalizeInvoiceStatus("COMPLETED"))
	assert.Equal(t, model.InvoicePaid, NormalizeInvoiceStatus(" confirmed "))
	assert.Equal(t, "expired", NormalizeInvoiceStatus("expired"))
	assert.Equal(t, model.InvoiceActive, NormalizeInvoiceStatus("active"))
}

func TestLedgerRepository_ApplyPaidInvoice(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedgerRepository(pool)
	invoices := NewInvoiceRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	fundUser(t, pool, 100, "1.00")

	_, err := invoices.Create(ctx, 100, 555, "USDT", d("25.00"), "https://pay.example/555", nil)
	require.NoError(t, err)

	credited, err := ledger.ApplyPaidInvoice(ctx, 555, "confirmed")
	require.NoError(t, err)
	assert.True(t, credited)

	user, err := users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, d("26.00").Equal(user.Balance), "got %s", user.Balance)

	// Replays credit nothing.
	credited, err = ledger.ApplyPaidInvoice(ctx, 555, "paid")
	require.NoError(t, err)
	assert.False(t, credited)

	user, err = users.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, d("26.00").Equal(user.Balance))

	// Terminal statuses never downgrade a paid invoice.
	require.NoError(t, invoices.MarkTerminal(ctx, 555, "expired"))
	invoice, err := invoices.GetByInvoiceID(ctx, 555)
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, invoice.Status)

	// Unknown invoice is a quiet no-op for the watcher.
	credited, err = ledger.ApplyPaidInvoice(ctx, 999, "paid")
	require.NoError(t, err)
	assert.False(t, credited)
}

// ============================================================================
// SessionRepository Tests
// ============================================================================

func TestSessionRepository_Lifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedgerRepository(pool)
	sessions := NewSessionRepository(pool)
	ctx := context.Background()

	fundUser(t, pool, 100, "50.00")

	bet, err := ledger.PlaceWager(ctx, PlaceWagerParams{
		UserID: 100, Game: model.GameMines, Stake: d("10.00"),
		MinBet: d("0.10"), MaxBet: d("10000"),
	})
	require.NoError(t, err)

	session, err := sessions.Create(ctx, 100, bet.ID, model.GameMines, map[string]any{"tick": 0})
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, session.Status)

	// Only one live round per user.
	_, err = sessions.Create(ctx, 100, bet.ID, model.GameMines, nil)
	assert.ErrorIs(t, err, ErrActiveSession)

	active, err := sessions.ActiveForUser(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, session.ID, active.ID)

	updated, err := sessions.UpdateState(ctx, session.ID, map[string]any{"tick": 3})
	require.NoError(t, err)
	assert.True(t, updated)

	// Exactly one finish lands.
	finished, err := sessions.Finish(ctx, session.ID, model.SessionCashedOut, nil)
	require.NoError(t, err)
	assert.True(t, finished)

	finished, err = sessions.Finish(ctx, session.ID, model.SessionCrashed, nil)
	require.NoError(t, err)
	assert.False(t, finished)

	got, err := sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionCashedOut, got.Status)

	// Updates to a finished round are dropped.
	updated, err = sessions.UpdateState(ctx, session.ID, map[string]any{"tick": 9})
	require.NoError(t, err)
	assert.False(t, updated)

	_, err = sessions.ActiveForUser(ctx, 100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRepository_ListActive(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedgerRepository(pool)
	sessions := NewSessionRepository(pool)
	ctx := context.Background()

	fundUser(t, pool, 100, "50.00")
	fundUser(t, pool, 200, "50.00")

	for _, userID := range []int64{100, 200} {
		bet, err := ledger.PlaceWager(ctx, PlaceWagerParams{
			UserID: userID, Game: model.GameCrash, Stake: d("5.00"),
			MinBet: d("0.10"), MaxBet: d("10000"),
		})
		require.NoError(t, err)
		_, err = sessions.Create(ctx, userID, bet.ID, model.GameCrash, map[string]any{})
		require.NoError(t, err)
	}

	active, err := sessions.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

// ============================================================================
// SettingsRepository Tests
// ============================================================================

func TestSettingsRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingsRepository(pool)
	ctx := context.Background()

	_, err := repo.Get(ctx, "stars_usd_rate")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Set(ctx, "stars_usd_rate", "0.017"))
	value, err := repo.Get(ctx, "stars_usd_rate")
	require.NoError(t, err)
	assert.Equal(t, "0.017", value)

	// Upsert overwrites.
	require.NoError(t, repo.Set(ctx, "stars_usd_rate", "0.020"))
	value, err = repo.Get(ctx, "stars_usd_rate")
	require.NoError(t, err)
	assert.Equal(t, "0.020", value)
}

func TestSettingsRepository_Admins(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingsRepository(pool)
	ctx := context.Background()

	added, err := repo.AddAdmin(ctx, 100)
	require.NoError(t, err)
	assert.True(t, added)

	// Adding again is a no-op.
	added, err = repo.AddAdmin(ctx, 100)
	require.NoError(t, err)
	assert.False(t, added)

	_, err = repo.AddAdmin(ctx, 200)
	require.NoError(t, err)

	admins, err := repo.Admins(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200}, admins)

	isAdmin, err := repo.IsAdmin(ctx, 100)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	removed, err := repo.RemoveAdmin(ctx, 100)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.RemoveAdmin(ctx, 100)
	require.NoError(t, err)
	assert.False(t, removed)

	isAdmin, err = repo.IsAdmin(ctx, 100)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}
