// Package handler provides the Telegram command and callback handlers.
// Handlers only parse input and render output; every money movement goes
// through the services and the ledger underneath them.
package handler

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/game/mines"
	"casino-bot/internal/money"
	"casino-bot/internal/repository"
	"casino-bot/internal/service"
)

// Callback data separator. Telebot may prefix callback data with \f; the
// router in the bot package strips it before dispatch.
const cbSep = "|"

// cbJoin assembles callback data from its parts.
func cbJoin(parts ...string) string {
	return strings.Join(parts, cbSep)
}

// cbSplit splits trimmed callback data into its parts.
func cbSplit(data string) []string {
	return strings.Split(strings.TrimPrefix(data, "\f"), cbSep)
}

// parseStake parses a user-entered stake. The ledger re-validates against
// the configured limits; this only rejects garbage early.
func parseStake(raw string) (decimal.Decimal, error) {
	stake, err := money.FromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, err
	}
	return money.Quantize(stake), nil
}

// errText maps service errors onto user-facing replies.
func errText(err error) string {
	switch {
	case errors.Is(err, repository.ErrInsufficientFunds):
		return "❌ Недостаточно средств. Пополните баланс: /deposit"
	case errors.Is(err, repository.ErrInvalidWager):
		return "❌ Недопустимая ставка"
	case errors.Is(err, repository.ErrActiveSession):
		return "❌ У вас уже есть активный раунд. Завершите его сначала"
	case errors.Is(err, repository.ErrAlreadyProcessed):
		return "❌ Заявка уже обработана"
	case errors.Is(err, repository.ErrNotFound):
		return "❌ Не найдено"
	case errors.Is(err, service.ErrNoActiveRound):
		return "❌ Нет активного раунда"
	case errors.Is(err, service.ErrRoundNotFlying):
		return "⏳ Раунд ещё не запущен"
	case errors.Is(err, service.ErrRoundOver):
		return "❌ Раунд уже завершён"
	case errors.Is(err, service.ErrNothingToCashOut):
		return "❌ Сначала откройте хотя бы одну клетку"
	case errors.Is(err, mines.ErrInvalidMines):
		return "❌ Число мин — от 1 до 24"
	default:
		return "❌ Что-то пошло не так, попробуйте позже"
	}
}

// respondErr answers a callback with the mapped error text.
func respondErr(c tele.Context, err error) error {
	return c.Respond(&tele.CallbackResponse{Text: errText(err), ShowAlert: true})
}

// displayName picks a human-readable name for a Telegram sender.
func displayName(sender *tele.User) string {
	if sender.Username != "" {
		return "@" + sender.Username
	}
	if sender.FirstName != "" {
		return sender.FirstName
	}
	return "игрок"
}
