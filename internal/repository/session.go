package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"casino-bot/internal/model"
)

// SessionRepository handles multi-step round persistence. A round's
// progress lives only in its row; crossing a restart the row is the
// entire truth.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, user_id, bet_id, game, status, state, created_at, updated_at`

func scanSession(row pgx.Row) (*model.GameSession, error) {
	var session model.GameSession
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.BetID,
		&session.Game,
		&session.Status,
		&session.State,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Create opens an active session for a pending bet. A user can hold at
// most one active session; a second insert trips the partial unique index
// and maps to ErrActiveSession.
func (r *SessionRepository) Create(ctx context.Context, userID, betID int64, game string, state any) (*model.GameSession, error) {
	payload, err := marshalDetails(state)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO game_sessions (id, user_id, bet_id, game, status, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING ` + sessionColumns

	session, err := scanSession(r.pool.QueryRow(ctx, query,
		uuid.NewString(), userID, betID, game, model.SessionActive, payload))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrActiveSession
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// Get retrieves a session by ID. Returns ErrNotFound if missing.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*model.GameSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM game_sessions WHERE id = $1`

	session, err := scanSession(r.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// ActiveForUser retrieves the user's live session, if any.
// Returns ErrNotFound when the user has no active round.
func (r *SessionRepository) ActiveForUser(ctx context.Context, userID int64) (*model.GameSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM game_sessions WHERE user_id = $1 AND status = $2`

	session, err := scanSession(r.pool.QueryRow(ctx, query, userID, model.SessionActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}

	return session, nil
}

// UpdateState persists a new state payload for a still-active session.
// Updates to finished sessions are dropped, returning false.
func (r *SessionRepository) UpdateState(ctx context.Context, sessionID string, state any) (bool, error) {
	payload, err := marshalDetails(state)
	if err != nil {
		return false, err
	}

	const query = `
		UPDATE game_sessions
		SET state = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`

	tag, err := r.pool.Exec(ctx, query, sessionID, payload, model.SessionActive)
	if err != nil {
		return false, fmt.Errorf("failed to update session state: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// Finish moves an active session to a terminal status. The active check
// and the flip are one compare-and-set: of two racing finishers exactly
// one gets finished=true, and terminal statuses never change again.
func (r *SessionRepository) Finish(ctx context.Context, sessionID, status string, state any) (bool, error) {
	payload, err := marshalDetails(state)
	if err != nil {
		return false, err
	}

	const query = `
		UPDATE game_sessions
		SET status = $2, state = COALESCE($3, state), updated_at = NOW()
		WHERE id = $1 AND status = $4
	`

	tag, err := r.pool.Exec(ctx, query, sessionID, status, payload, model.SessionActive)
	if err != nil {
		return false, fmt.Errorf("failed to finish session: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListActive returns every live session, oldest first. Used on startup to
// sweep rounds orphaned by a previous process.
func (r *SessionRepository) ListActive(ctx context.Context) ([]*model.GameSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM game_sessions WHERE status = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, model.SessionActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.GameSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}
