package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"casino-bot/internal/config"
	"casino-bot/internal/game"
	"casino-bot/internal/game/crash"
	"casino-bot/internal/metrics"
	"casino-bot/internal/model"
	"casino-bot/internal/money"
	"casino-bot/internal/repository"
)

// countdownSeconds is the pre-launch countdown shown before the rocket
// starts climbing.
const countdownSeconds = 5

// Errors for crash round interaction.
var (
	ErrNoActiveRound  = errors.New("no active crash round")
	ErrRoundNotFlying = errors.New("round has not launched yet")
	ErrRoundOver      = errors.New("round already finished")
)

// CrashRenderer pushes live round updates to the chat. Render failures
// must not affect the round: callers log them and keep going, because the
// persisted session state stays authoritative either way.
type CrashRenderer interface {
	RenderCountdown(session *model.GameSession, state *crash.State, secondsLeft int) error
	RenderTick(session *model.GameSession, state *crash.State) error
	RenderCrashed(session *model.GameSession, state *crash.State) error
}

// CashoutResult is a successful manual cashout.
type CashoutResult struct {
	Session    *model.GameSession
	Multiplier decimal.Decimal
	Payout     decimal.Decimal
	Balance    decimal.Decimal
}

// CrashService runs crash rounds: it opens the wager, drives the live
// multiplier loop in a supervised goroutine, and races the crash against
// manual cashouts. Exactly one of the two settles the bet; the session
// status flip decides the winner.
type CrashService struct {
	ledger   *repository.LedgerRepository
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	cfg      *config.Config
	renderer CrashRenderer
	tasks    *roundTasks
	log      zerolog.Logger
}

// NewCrashService creates a new CrashService instance.
func NewCrashService(
	ledger *repository.LedgerRepository,
	users *repository.UserRepository,
	sessions *repository.SessionRepository,
	cfg *config.Config,
	renderer CrashRenderer,
	log zerolog.Logger,
) *CrashService {
	return &CrashService{
		ledger:   ledger,
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		renderer: renderer,
		tasks:    newRoundTasks(),
		log:      log.With().Str("component", "crash").Logger(),
	}
}

// StartRound opens a crash round: the stake is debited, the crash point
// is drawn, and the round loop launches under the supervisor. The chat
// and message ids are carried in the state so the loop can render into
// the round's message.
func (s *CrashService) StartRound(ctx context.Context, userID int64, stake decimal.Decimal, chatID int64, messageID int) (*model.GameSession, error) {
	if _, err := s.sessions.ActiveForUser(ctx, userID); err == nil {
		return nil, repository.ErrActiveSession
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	bet, err := s.ledger.PlaceWager(ctx, repository.PlaceWagerParams{
		UserID: userID,
		Game:   model.GameCrash,
		Stake:  stake,
		MinBet: s.cfg.MinBet(),
		MaxBet: s.cfg.MaxBet(),
	})
	if err != nil {
		return nil, err
	}
	metrics.BetsPlaced.WithLabelValues(model.GameCrash).Inc()

	state := crash.NewState(bet.Stake, crash.GeneratePoint())
	state.ChatID = chatID
	state.MessageID = messageID

	session, err := s.sessions.Create(ctx, userID, bet.ID, model.GameCrash, state)
	if err != nil {
		// The wager is already placed; a racing round start means this
		// one cannot proceed, so hand the stake back.
		if errors.Is(err, repository.ErrActiveSession) {
			if _, settleErr := s.ledger.SettleBet(ctx, bet.ID, repository.Settlement{
				Status: model.BetPush,
				Payout: bet.Stake,
			}); settleErr != nil {
				s.log.Error().Err(settleErr).Int64("bet_id", bet.ID).Msg("failed to refund duplicate round")
			}
		}
		return nil, err
	}

	s.launch(session, bet.ID, state)
	return session, nil
}

// launch registers the round loop with the supervisor.
func (s *CrashService) launch(session *model.GameSession, betID int64, state crash.State) {
	metrics.CrashRoundsActive.Inc()
	s.tasks.Start(context.Background(), session.ID, func(ctx context.Context) {
		defer metrics.CrashRoundsActive.Dec()
		s.runRound(ctx, session, betID, state)
	})
}

// runRound drives one round from countdown to crash. A cancelled context
// means either a cashout won (the bet is settled) or the process is
// shutting down (the session stays active for the startup sweep).
func (s *CrashService) runRound(ctx context.Context, session *model.GameSession, betID int64, state crash.State) {
	log := s.log.With().Str("session_id", session.ID).Int64("bet_id", betID).Logger()

	for left := countdownSeconds; left > 0; left-- {
		if err := s.renderer.RenderCountdown(session, &state, left); err != nil {
			log.Warn().Err(err).Msg("countdown render failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}

	state.Phase = crash.PhaseRunning
	state.CurrentMultiplier = crash.StartMultiplier.String()
	if _, err := s.sessions.UpdateState(ctx, session.ID, state); err != nil {
		log.Error().Err(err).Msg("failed to persist launch state")
		return
	}

	crashPoint := state.CrashPointDecimal()
	ticker := time.NewTicker(s.cfg.Games.CrashTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		next := crash.NextMultiplier(state.CurrentDecimal())
		if next.GreaterThanOrEqual(crashPoint) {
			s.finishCrashed(ctx, session, betID, &state, log)
			return
		}

		state.Tick++
		state.CurrentMultiplier = next.String()
		updated, err := s.sessions.UpdateState(ctx, session.ID, state)
		if err != nil {
			log.Error().Err(err).Msg("failed to persist tick")
			return
		}
		if !updated {
			// The session left the active status under us; a cashout
			// already settled the bet.
			return
		}

		if err := s.renderer.RenderTick(session, &state); err != nil {
			log.Warn().Err(err).Msg("tick render failed")
		}
	}
}

// finishCrashed resolves the round on the crash side of the race.
func (s *CrashService) finishCrashed(ctx context.Context, session *model.GameSession, betID int64, state *crash.State, log zerolog.Logger) {
	state.Phase = crash.PhaseFinished
	state.Result = model.SessionCrashed
	state.CurrentMultiplier = state.CrashPoint

	finished, err := s.sessions.Finish(ctx, session.ID, model.SessionCrashed, state)
	if err != nil {
		log.Error().Err(err).Msg("failed to finish crashed round")
		return
	}
	if !finished {
		// Lost the race to a cashout.
		return
	}

	settled, err := s.ledger.SettleBet(ctx, betID, repository.Settlement{
		Status:         model.BetLost,
		AppliedEdge:    decimal.NewFromFloat(s.cfg.Games.EdgeCrash),
		ReferralRate:   s.cfg.ReferralRate(),
		BaseMultiplier: state.CrashPointDecimal(),
		Details: model.CrashDetails{
			CrashPoint: state.CrashPoint,
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to settle crashed bet")
		return
	}
	if settled {
		metrics.BetsSettled.WithLabelValues(model.GameCrash, model.BetLost).Inc()
	}

	if err := s.renderer.RenderCrashed(session, state); err != nil {
		log.Warn().Err(err).Msg("crash render failed")
	}
}

// Cashout settles the user's live round at the current multiplier. The
// session flip is the arbiter: if the crash landed first this returns
// ErrRoundOver and the click changes nothing.
func (s *CrashService) Cashout(ctx context.Context, userID int64) (*CashoutResult, error) {
	session, err := s.sessions.ActiveForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveRound
		}
		return nil, err
	}
	if session.Game != model.GameCrash {
		return nil, ErrNoActiveRound
	}

	var state crash.State
	if err := json.Unmarshal(session.State, &state); err != nil {
		return nil, fmt.Errorf("failed to decode round state: %w", err)
	}
	if state.Phase != crash.PhaseRunning {
		return nil, ErrRoundNotFlying
	}

	current := state.CurrentDecimal()
	effective := game.EffectiveMultiplier(current, s.cfg.Games.EdgeCrash)
	payout := money.Quantize(state.StakeDecimal().Mul(effective))

	state.Phase = crash.PhaseFinished
	state.Result = model.SessionCashedOut

	finished, err := s.sessions.Finish(ctx, session.ID, model.SessionCashedOut, state)
	if err != nil {
		return nil, err
	}
	if !finished {
		// The crash landed first. The round loop normally journals the
		// loss; if it died between the status flip and the settlement
		// this idempotent claim closes the bet and marks the click late.
		if _, settleErr := s.ledger.SettleBet(ctx, session.BetID, repository.Settlement{
			Status:         model.BetLost,
			AppliedEdge:    decimal.NewFromFloat(s.cfg.Games.EdgeCrash),
			ReferralRate:   s.cfg.ReferralRate(),
			BaseMultiplier: state.CrashPointDecimal(),
			Details: model.CrashDetails{
				CrashPoint:       state.CrashPoint,
				LateCashoutClick: true,
			},
		}); settleErr != nil {
			s.log.Error().Err(settleErr).Int64("bet_id", session.BetID).Msg("failed to settle late cashout")
		}
		return nil, ErrRoundOver
	}

	s.tasks.Cancel(session.ID)

	settled, err := s.ledger.SettleBet(ctx, session.BetID, repository.Settlement{
		Status:         model.BetWon,
		Payout:         payout,
		BaseMultiplier: current,
		AppliedEdge:    decimal.NewFromFloat(s.cfg.Games.EdgeCrash),
		ReferralRate:   s.cfg.ReferralRate(),
		Details: model.CrashDetails{
			ManualCashout:       true,
			CrashPoint:          state.CrashPoint,
			CurrentMultiplier:   state.CurrentMultiplier,
			EffectiveMultiplier: effective.String(),
		},
	})
	if err != nil {
		return nil, err
	}
	if !settled {
		return nil, ErrRoundOver
	}
	metrics.BetsSettled.WithLabelValues(model.GameCrash, model.BetWon).Inc()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &CashoutResult{
		Session:    session,
		Multiplier: effective,
		Payout:     payout,
		Balance:    user.Balance,
	}, nil
}

// SweepOrphans settles crash sessions left active by a previous process.
// The round cannot be replayed honestly, so the stake is handed back as a
// push and the session closed.
func (s *CrashService) SweepOrphans(ctx context.Context) error {
	active, err := s.sessions.ListActive(ctx)
	if err != nil {
		return err
	}

	for _, session := range active {
		if session.Game != model.GameCrash {
			continue
		}

		var state crash.State
		if err := json.Unmarshal(session.State, &state); err != nil {
			s.log.Error().Err(err).Str("session_id", session.ID).Msg("orphan state undecodable")
			continue
		}

		finished, err := s.sessions.Finish(ctx, session.ID, model.SessionCrashed, state)
		if err != nil {
			return err
		}
		if !finished {
			continue
		}

		if _, err := s.ledger.SettleBet(ctx, session.BetID, repository.Settlement{
			Status: model.BetPush,
			Payout: state.StakeDecimal(),
			Details: model.CrashDetails{
				CrashPoint: state.CrashPoint,
			},
		}); err != nil {
			return err
		}

		s.log.Info().Str("session_id", session.ID).Msg("orphaned round refunded")
	}

	return nil
}

// Shutdown stops every live round loop and waits for them. Sessions stay
// active in the store; the next boot's sweep refunds them.
func (s *CrashService) Shutdown() {
	s.tasks.Shutdown()
}
