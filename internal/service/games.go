// Package service provides business logic implementations: game
// orchestration between the resolvers and the ledger, the crash round
// scheduler, and account operations.
package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"casino-bot/internal/config"
	"casino-bot/internal/game"
	"casino-bot/internal/game/crash"
	"casino-bot/internal/game/dice"
	"casino-bot/internal/game/emoji"
	"casino-bot/internal/game/roulette"
	"casino-bot/internal/game/slots"
	"casino-bot/internal/metrics"
	"casino-bot/internal/model"
	"casino-bot/internal/repository"
)

// PlayResult is a settled instant-game round.
type PlayResult struct {
	Bet     *model.Bet
	Outcome *game.Outcome
	Balance decimal.Decimal
}

// GameService orchestrates single-step games: wager in, resolver, settle
// out. Multi-step games (crash, mines) have their own services.
type GameService struct {
	ledger *repository.LedgerRepository
	users  *repository.UserRepository
	cfg    *config.Config
}

// NewGameService creates a new GameService instance.
func NewGameService(ledger *repository.LedgerRepository, users *repository.UserRepository, cfg *config.Config) *GameService {
	return &GameService{ledger: ledger, users: users, cfg: cfg}
}

// PlaySlots settles a slots spin for the rolled animation value.
func (s *GameService) PlaySlots(ctx context.Context, userID int64, stake decimal.Decimal, slotValue int) (*PlayResult, error) {
	outcome := slots.Resolve(stake, s.cfg.Games.EdgeSlots, slotValue)
	return s.playInstant(ctx, userID, model.GameSlots, stake, outcome)
}

// PlayDice settles a dice group or exact-number bet.
func (s *GameService) PlayDice(ctx context.Context, userID int64, stake decimal.Decimal, choice string, diceValue int) (*PlayResult, error) {
	outcome, err := dice.Resolve(stake, s.cfg.Games.EdgeDice, diceValue, choice)
	if err != nil {
		return nil, err
	}
	return s.playInstant(ctx, userID, model.GameDice, stake, outcome)
}

// PlayDiceDuel settles a dice duel against the bot's roll.
func (s *GameService) PlayDiceDuel(ctx context.Context, userID int64, stake decimal.Decimal, playerValue, botValue int) (*PlayResult, error) {
	outcome, err := dice.ResolveDuel(stake, s.cfg.Games.EdgeDice, playerValue, botValue)
	if err != nil {
		return nil, err
	}
	return s.playInstant(ctx, userID, model.GameDice, stake, outcome)
}

// PlayEmoji settles an emoji sports bet for the rolled animation value.
func (s *GameService) PlayEmoji(ctx context.Context, userID int64, stake decimal.Decimal, gameID string, choice string, diceValue int) (*PlayResult, error) {
	outcome, err := emoji.Resolve(stake, 0, gameID, diceValue, choice)
	if err != nil {
		return nil, err
	}
	return s.playInstant(ctx, userID, gameID, stake, outcome)
}

// PlayCrashAuto settles a target-multiplier crash bet: the crash point is
// drawn immediately and the round never goes live.
func (s *GameService) PlayCrashAuto(ctx context.Context, userID int64, stake, target decimal.Decimal) (*PlayResult, error) {
	if target.LessThan(decimal.RequireFromString("1.01")) {
		return nil, fmt.Errorf("%w: target %s", repository.ErrInvalidWager, target)
	}
	outcome := crash.ResolveTarget(stake, s.cfg.Games.EdgeCrash, target)
	return s.playInstant(ctx, userID, model.GameCrash, stake, outcome)
}

// PlayRoulette settles a Russian roulette round.
func (s *GameService) PlayRoulette(ctx context.Context, userID int64, stake decimal.Decimal, chosenChamber int) (*PlayResult, error) {
	outcome, err := roulette.Resolve(stake, s.cfg.Games.EdgeRoulette, chosenChamber)
	if err != nil {
		return nil, err
	}
	return s.playInstant(ctx, userID, model.GameRoulette, stake, outcome)
}

// playInstant runs the wager-settle cycle for an already-resolved outcome.
func (s *GameService) playInstant(ctx context.Context, userID int64, gameID string, stake decimal.Decimal, outcome *game.Outcome) (*PlayResult, error) {
	bet, err := s.ledger.PlaceWager(ctx, repository.PlaceWagerParams{
		UserID:  userID,
		Game:    gameID,
		Stake:   stake,
		MinBet:  s.cfg.MinBet(),
		MaxBet:  s.cfg.MaxBet(),
		Details: outcome.Details,
	})
	if err != nil {
		return nil, err
	}
	metrics.BetsPlaced.WithLabelValues(gameID).Inc()

	settled, err := s.ledger.SettleBet(ctx, bet.ID, repository.Settlement{
		Status:         outcome.Status,
		Payout:         outcome.Payout,
		BaseMultiplier: outcome.BaseMultiplier,
		AppliedEdge:    outcome.AppliedEdge,
		Details:        outcome.Details,
		ReferralRate:   s.cfg.ReferralRate(),
	})
	if err != nil {
		return nil, err
	}
	if !settled {
		return nil, fmt.Errorf("bet %d was settled concurrently", bet.ID)
	}
	metrics.BetsSettled.WithLabelValues(gameID, outcome.Status).Inc()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	bet.Status = outcome.Status
	bet.Payout = outcome.Payout

	return &PlayResult{Bet: bet, Outcome: outcome, Balance: user.Balance}, nil
}
