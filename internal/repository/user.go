package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"casino-bot/internal/model"
)

// UserRepository handles player account persistence. Balance mutations do
// not live here; they go through the ledger.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `
	id, username, first_name, balance, total_bets, total_wager,
	referred_by, referral_earnings, created_at, last_seen_at
`

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.Balance,
		&user.TotalBets,
		&user.TotalWager,
		&user.ReferredBy,
		&user.ReferralEarnings,
		&user.CreatedAt,
		&user.LastSeenAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by their Telegram ID.
// Returns ErrNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByUsername retrieves a user by their Telegram username; a leading @
// is accepted. Returns ErrNotFound if no such user exists.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, ErrNotFound
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return user, nil
}

// EnsureUser retrieves a user by Telegram ID, creating the account on
// first contact. The referral payload binds the referrer only at creation
// time and is ignored afterwards; self-referrals are dropped. For an
// existing user the profile fields and last_seen_at are refreshed.
func (r *UserRepository) EnsureUser(ctx context.Context, userID int64, username, firstName *string, referralPayload string) (*model.User, bool, error) {
	user, err := r.GetByID(ctx, userID)
	if err == nil {
		if err := r.touch(ctx, userID, username, firstName); err != nil {
			return nil, false, err
		}
		return user, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	referrerID := ParseReferralPayload(referralPayload)
	if referrerID != nil && *referrerID == userID {
		referrerID = nil
	}

	query := `
		INSERT INTO users (id, username, first_name, referred_by, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING ` + userColumns

	user, err = scanUser(r.pool.QueryRow(ctx, query, userID, username, firstName, referrerID))
	if err != nil {
		// Another request may have created the user concurrently.
		user, err = r.GetByID(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		return user, false, nil
	}

	return user, true, nil
}

// touch refreshes the profile fields and the last-seen timestamp.
func (r *UserRepository) touch(ctx context.Context, userID int64, username, firstName *string) error {
	const query = `
		UPDATE users
		SET username = COALESCE($2, username),
		    first_name = COALESCE($3, first_name),
		    last_seen_at = NOW()
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, userID, username, firstName); err != nil {
		return fmt.Errorf("failed to touch user: %w", err)
	}
	return nil
}

// ParseReferralPayload extracts the referrer ID from a /start deep-link
// payload of the form "ref_<id>". Anything else yields nil.
func ParseReferralPayload(payload string) *int64 {
	payload = strings.TrimSpace(payload)
	raw, ok := strings.CutPrefix(payload, "ref_")
	if !ok {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

// Profile returns the user together with their settled-bet aggregates.
func (r *UserRepository) Profile(ctx context.Context, userID int64) (*model.ProfileStats, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	const query = `
		SELECT
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COALESCE(SUM(payout - stake) FILTER (WHERE status <> $4), 0)
		FROM bets
		WHERE user_id = $1
	`

	stats := model.ProfileStats{User: user}
	err = r.pool.QueryRow(ctx, query, userID, model.BetWon, model.BetLost, model.BetPending).
		Scan(&stats.BetsWon, &stats.BetsLost, &stats.NetResult)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate profile: %w", err)
	}

	return &stats, nil
}

// ReferralCount returns how many users were referred by the given user.
func (r *UserRepository) ReferralCount(ctx context.Context, userID int64) (int64, error) {
	const query = `SELECT COUNT(*) FROM users WHERE referred_by = $1`

	var count int64
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count referrals: %w", err)
	}
	return count, nil
}

// ListBalances returns the top N users by balance.
func (r *UserRepository) ListBalances(ctx context.Context, limit int) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY balance DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// SystemStats returns the aggregates shown on the admin panel.
func (r *UserRepository) SystemStats(ctx context.Context) (*model.SystemStats, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COALESCE(SUM(balance), 0) FROM users),
			(SELECT COALESCE(SUM(total_wager), 0) FROM users),
			(SELECT COUNT(*) FROM bets),
			(SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE kind = $1),
			(SELECT COALESCE(SUM(-amount), 0) FROM transactions
			 WHERE (kind = $2 AND status = $3) OR kind = $4)
	`

	var stats model.SystemStats
	err := r.pool.QueryRow(ctx, query,
		model.TxKindDeposit, model.TxKindWithdrawRequest, model.TxCompleted, model.TxKindWithdrawal).
		Scan(
			&stats.Users,
			&stats.TotalBalance,
			&stats.TotalWagered,
			&stats.Bets,
			&stats.TotalDeposited,
			&stats.TotalWithdrawn,
		)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate system stats: %w", err)
	}

	return &stats, nil
}
