package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations are applied in order on startup. Statements are idempotent,
// so re-running on every boot is safe.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY,
		username VARCHAR(255),
		first_name VARCHAR(255),
		balance NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		total_bets INTEGER NOT NULL DEFAULT 0,
		total_wager NUMERIC(16,2) NOT NULL DEFAULT 0,
		referred_by BIGINT,
		referral_earnings NUMERIC(14,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_users_referred_by ON users (referred_by) WHERE referred_by IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS bets (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		game VARCHAR(32) NOT NULL,
		stake NUMERIC(14,2) NOT NULL CHECK (stake > 0),
		base_multiplier NUMERIC(10,2),
		applied_edge NUMERIC(6,4),
		payout NUMERIC(14,2) NOT NULL DEFAULT 0,
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		details JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_bets_user_created ON bets (user_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		kind VARCHAR(32) NOT NULL,
		amount NUMERIC(14,2) NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'completed',
		external_id VARCHAR(128),
		description TEXT,
		details JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// Exactly-once crediting: one journal row per (kind, external_id).
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_external
		ON transactions (kind, external_id) WHERE external_id IS NOT NULL`,

	`CREATE INDEX IF NOT EXISTS idx_transactions_user_created ON transactions (user_id, created_at DESC)`,

	`CREATE INDEX IF NOT EXISTS idx_transactions_kind_status ON transactions (kind, status)`,

	`CREATE TABLE IF NOT EXISTS game_sessions (
		id UUID PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		bet_id BIGINT NOT NULL REFERENCES bets(id) ON DELETE CASCADE,
		game VARCHAR(32) NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'active',
		state JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// One live round per user at a time.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_game_sessions_active_user
		ON game_sessions (user_id) WHERE status = 'active'`,

	`CREATE TABLE IF NOT EXISTS invoices (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		invoice_id BIGINT NOT NULL UNIQUE,
		asset VARCHAR(16) NOT NULL,
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		status VARCHAR(16) NOT NULL DEFAULT 'active',
		pay_url TEXT NOT NULL DEFAULT '',
		payload TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices (status) WHERE status IN ('active', 'pending')`,

	`CREATE TABLE IF NOT EXISTS app_settings (
		key VARCHAR(64) PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS bot_admins (
		user_id BIGINT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
