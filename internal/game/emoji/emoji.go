// Package emoji implements the emoji sports game resolvers. Each game maps
// the Telegram animation value onto a binary semantic outcome with fixed
// per-outcome multipliers.
package emoji

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"casino-bot/internal/game"
	"casino-bot/internal/model"
)

// Errors for emoji game resolution.
var (
	ErrInvalidGame   = errors.New("invalid emoji game")
	ErrInvalidChoice = errors.New("invalid emoji game choice")
)

// outcome is one bettable option of an emoji game.
type outcome struct {
	hit        bool
	multiplier decimal.Decimal
	title      string
}

var (
	x14 = decimal.RequireFromString("1.4")
	x18 = decimal.RequireFromString("1.8")
	x50 = decimal.RequireFromString("5.0")
)

// Resolve settles an emoji sports bet. The edge is informational only;
// these games pay fixed multipliers.
func Resolve(stake decimal.Decimal, edge float64, gameID string, diceValue int, choice string) (*game.Outcome, error) {
	gameID = strings.ToLower(strings.TrimSpace(gameID))
	choice = strings.ToLower(strings.TrimSpace(choice))

	var (
		title       string
		resultTitle string
		outcomes    map[string]outcome
	)

	switch gameID {
	case model.GameFootball:
		// Telegram football animation scores a goal for values 3..5.
		goal := diceValue >= 3 && diceValue <= 5
		resultTitle = pick(goal, "Гол", "Мимо")
		outcomes = map[string]outcome{
			"goal": {goal, x14, "Гол"},
			"miss": {!goal, x18, "Мимо"},
		}
		title = "⚽ Футбол"
	case model.GameBasketball:
		score := diceValue == 4 || diceValue == 5
		resultTitle = pick(score, "Попадание", "Мимо")
		outcomes = map[string]outcome{
			"score": {score, x18, "Попадание"},
			"miss":  {!score, x14, "Мимо"},
		}
		title = "🏀 Баскетбол"
	case model.GameDarts:
		bullseye := diceValue == 6
		miss := diceValue == 1
		switch {
		case bullseye:
			resultTitle = "В яблочко"
		case miss:
			resultTitle = "Мимо"
		default:
			resultTitle = "Остальное"
		}
		outcomes = map[string]outcome{
			"bullseye": {bullseye, x50, "В яблочко"},
			"miss":     {miss, x50, "Мимо"},
			"hit":      {miss, x50, "Мимо"},
		}
		title = "🎯 Дартс"
	case model.GameBowling:
		strike := diceValue == 6
		miss := diceValue == 1
		switch {
		case strike:
			resultTitle = "Страйк"
		case miss:
			resultTitle = "Мимо"
		default:
			resultTitle = "Остальное"
		}
		outcomes = map[string]outcome{
			"strike": {strike, x50, "Страйк"},
			"miss":   {miss, x50, "Мимо"},
			"knock":  {miss, x50, "Мимо"},
		}
		title = "🎳 Боулинг"
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidGame, gameID)
	}

	chosen, ok := outcomes[choice]
	if !ok {
		return nil, fmt.Errorf("%w: %q for %s", ErrInvalidChoice, choice, gameID)
	}

	status := model.BetLost
	payout := decimal.Zero
	if chosen.hit {
		status = model.BetWon
		payout = game.PayoutExact(stake, chosen.multiplier)
	}

	return &game.Outcome{
		Status:         status,
		Payout:         payout,
		BaseMultiplier: chosen.multiplier,
		AppliedEdge:    decimal.Zero,
		Message:        fmt.Sprintf("%s\nИсход: %s\nРезультат: %s", title, chosen.title, resultTitle),
		Details: model.EmojiDetails{
			Game:        gameID,
			Choice:      choice,
			ChoiceTitle: chosen.title,
			ResultTitle: resultTitle,
			Dice:        diceValue,
		},
	}, nil
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
