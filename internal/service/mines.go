package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"casino-bot/internal/config"
	"casino-bot/internal/game/mines"
	"casino-bot/internal/metrics"
	"casino-bot/internal/model"
	"casino-bot/internal/pkg/lock"
	"casino-bot/internal/repository"
)

// ErrNothingToCashOut is returned for a cashout before any safe open.
var ErrNothingToCashOut = errors.New("no safe cells opened yet")

// MinesRound is the live view of a mines session returned to the
// presentation layer after each move.
type MinesRound struct {
	Session    *model.GameSession
	State      *mines.State
	Result     string
	Multiplier decimal.Decimal
	Payout     decimal.Decimal
	Balance    decimal.Decimal
}

// MinesService runs mines rounds. Rounds are interaction-driven with no
// background loop, so they survive restarts: the session row alone
// carries the grid. Per-user locking serializes rapid grid taps.
type MinesService struct {
	ledger   *repository.LedgerRepository
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	cfg      *config.Config
	locks    *lock.UserLock
}

// NewMinesService creates a new MinesService instance.
func NewMinesService(
	ledger *repository.LedgerRepository,
	users *repository.UserRepository,
	sessions *repository.SessionRepository,
	cfg *config.Config,
) *MinesService {
	return &MinesService{
		ledger:   ledger,
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		locks:    lock.NewUserLock(),
	}
}

// Start opens a mines round with the given mine count. The count is
// validated before any money moves; a bad count must not cost a stake.
func (s *MinesService) Start(ctx context.Context, userID int64, stake decimal.Decimal, minesCount int) (*MinesRound, error) {
	state, err := mines.NewState(minesCount, stake)
	if err != nil {
		return nil, err
	}

	if _, err := s.sessions.ActiveForUser(ctx, userID); err == nil {
		return nil, repository.ErrActiveSession
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	bet, err := s.ledger.PlaceWager(ctx, repository.PlaceWagerParams{
		UserID: userID,
		Game:   model.GameMines,
		Stake:  stake,
		MinBet: s.cfg.MinBet(),
		MaxBet: s.cfg.MaxBet(),
	})
	if err != nil {
		return nil, err
	}
	metrics.BetsPlaced.WithLabelValues(model.GameMines).Inc()

	session, err := s.sessions.Create(ctx, userID, bet.ID, model.GameMines, state)
	if err != nil {
		if errors.Is(err, repository.ErrActiveSession) {
			if _, settleErr := s.ledger.SettleBet(ctx, bet.ID, repository.Settlement{
				Status: model.BetPush,
				Payout: bet.Stake,
			}); settleErr != nil {
				return nil, settleErr
			}
		}
		return nil, err
	}

	return &MinesRound{Session: session, State: &state, Result: mines.OpenNoop}, nil
}

// Open opens one cell of the user's live round. A mine ends the round as
// lost; clearing the last safe cell auto-wins; an already-open cell is a
// no-op.
func (s *MinesService) Open(ctx context.Context, userID int64, cellIndex int) (*MinesRound, error) {
	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	session, state, err := s.activeRound(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, multiplier, err := state.Open(cellIndex, s.cfg.Games.EdgeMines)
	if err != nil {
		return nil, err
	}

	round := &MinesRound{Session: session, State: state, Result: result, Multiplier: multiplier}

	switch result {
	case mines.OpenNoop:
		return round, nil

	case mines.OpenSafe:
		if _, err := s.sessions.UpdateState(ctx, session.ID, state); err != nil {
			return nil, err
		}
		return round, nil

	case mines.OpenMine:
		return s.resolve(ctx, round, model.SessionLost, model.BetLost, decimal.Zero)

	case mines.OpenCleared:
		return s.resolve(ctx, round, model.SessionWon, model.BetWon, state.Cashout())

	default:
		return nil, fmt.Errorf("unknown open result %q", result)
	}
}

// Cashout leaves the round at the current multiplier. At least one safe
// open is required; before that the only exit is playing on.
func (s *MinesService) Cashout(ctx context.Context, userID int64) (*MinesRound, error) {
	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	session, state, err := s.activeRound(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state.SafeOpens() == 0 {
		return nil, ErrNothingToCashOut
	}

	round := &MinesRound{
		Session:    session,
		State:      state,
		Result:     model.SessionCashedOut,
		Multiplier: state.MultiplierDecimal(),
	}
	return s.resolve(ctx, round, model.SessionCashedOut, model.BetWon, state.Cashout())
}

// activeRound loads and decodes the user's live mines session.
func (s *MinesService) activeRound(ctx context.Context, userID int64) (*model.GameSession, *mines.State, error) {
	session, err := s.sessions.ActiveForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNoActiveRound
		}
		return nil, nil, err
	}
	if session.Game != model.GameMines {
		return nil, nil, ErrNoActiveRound
	}

	var state mines.State
	if err := json.Unmarshal(session.State, &state); err != nil {
		return nil, nil, fmt.Errorf("failed to decode round state: %w", err)
	}

	return session, &state, nil
}

// resolve closes the session and settles the bet in that order; the CAS
// on the session makes repeated resolutions of the same round no-ops.
func (s *MinesService) resolve(ctx context.Context, round *MinesRound, sessionStatus, betStatus string, payout decimal.Decimal) (*MinesRound, error) {
	finished, err := s.sessions.Finish(ctx, round.Session.ID, sessionStatus, round.State)
	if err != nil {
		return nil, err
	}
	if !finished {
		return nil, ErrRoundOver
	}

	settled, err := s.ledger.SettleBet(ctx, round.Session.BetID, repository.Settlement{
		Status:         betStatus,
		Payout:         payout,
		BaseMultiplier: round.State.MultiplierDecimal(),
		AppliedEdge:    decimal.NewFromFloat(s.cfg.Games.EdgeMines),
		ReferralRate:   s.cfg.ReferralRate(),
		Details: model.MinesDetails{
			MinesCount: round.State.MinesCount,
			SafeOpens:  round.State.SafeOpens(),
			Multiplier: round.State.CurrentMultiplier,
		},
	})
	if err != nil {
		return nil, err
	}
	if settled {
		metrics.BetsSettled.WithLabelValues(model.GameMines, betStatus).Inc()
	}

	user, err := s.users.GetByID(ctx, round.Session.UserID)
	if err != nil {
		return nil, err
	}

	round.Payout = payout
	round.Balance = user.Balance
	return round, nil
}
