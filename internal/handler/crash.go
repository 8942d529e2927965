package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/game/crash"
	"casino-bot/internal/model"
	"casino-bot/internal/money"
	"casino-bot/internal/service"
)

// ErrBotNotReady is returned by render calls before the bot is attached.
var ErrBotNotReady = errors.New("telegram bot not attached yet")

// CrashRenderer edits the round's Telegram message as the multiplier
// climbs. It is constructed before the bot exists (the crash service needs
// it at wiring time), so the bot is attached later via SetBot.
type CrashRenderer struct {
	bot atomic.Pointer[tele.Bot]
}

// NewCrashRenderer creates a renderer with no bot attached.
func NewCrashRenderer() *CrashRenderer {
	return &CrashRenderer{}
}

// SetBot attaches the telebot instance used for message edits.
func (r *CrashRenderer) SetBot(b *tele.Bot) {
	r.bot.Store(b)
}

// RenderCountdown shows the pre-launch countdown.
func (r *CrashRenderer) RenderCountdown(session *model.GameSession, state *crash.State, secondsLeft int) error {
	text := fmt.Sprintf("🚀 Ракетка\nСтавка: %s\n\nЗапуск через %d...",
		money.Format(state.StakeDecimal()), secondsLeft)
	return r.edit(state, text, nil)
}

// RenderTick shows the live multiplier with the cashout button.
func (r *CrashRenderer) RenderTick(session *model.GameSession, state *crash.State) error {
	text := fmt.Sprintf("🚀 x%s\nСтавка: %s\n\nЗаберите выигрыш до взрыва!",
		state.CurrentMultiplier, money.Format(state.StakeDecimal()))

	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data(
		fmt.Sprintf("💰 Забрать (x%s)", state.CurrentMultiplier),
		cbJoin("crash", "cashout"),
	)))
	return r.edit(state, text, markup)
}

// RenderCrashed shows the loss.
func (r *CrashRenderer) RenderCrashed(session *model.GameSession, state *crash.State) error {
	text := fmt.Sprintf("💥 Ракета взорвалась на x%s\nСтавка %s сгорела",
		state.CrashPoint, money.Format(state.StakeDecimal()))
	return r.edit(state, text, nil)
}

func (r *CrashRenderer) edit(state *crash.State, text string, markup *tele.ReplyMarkup) error {
	bot := r.bot.Load()
	if bot == nil {
		return ErrBotNotReady
	}

	msg := tele.StoredMessage{
		MessageID: strconv.Itoa(state.MessageID),
		ChatID:    state.ChatID,
	}
	var err error
	if markup != nil {
		_, err = bot.Edit(msg, text, markup)
	} else {
		_, err = bot.Edit(msg, text)
	}
	return err
}

// CrashHandler handles the live crash rounds; the auto-target mode is an
// instant game and lives on the GameHandler.
type CrashHandler struct {
	crash *service.CrashService
	games *GameHandler
}

// NewCrashHandler creates a new CrashHandler.
func NewCrashHandler(crashSvc *service.CrashService, games *GameHandler) *CrashHandler {
	return &CrashHandler{crash: crashSvc, games: games}
}

// HandleCrash handles the /crash command: with a target argument it plays
// the auto mode, without one it launches a live round.
func (h *CrashHandler) HandleCrash(c tele.Context) error {
	stake, err := h.games.stakeArg(c, "/crash 10 или /crash 10 2.5")
	if err != nil {
		return nil
	}

	args := c.Args()
	if len(args) >= 2 {
		target, convErr := decimal.NewFromString(args[1])
		if convErr != nil {
			return c.Reply("❌ Цель — множитель, например 2.5")
		}
		return h.games.PlayCrashAuto(c, stake, target)
	}
	return h.startLive(c, stake)
}

// HandleCrashCallback routes crash callbacks.
// Callback data: crash|live|<stake>, crash|auto|<target>|<stake>,
// crash|cashout.
func (h *CrashHandler) HandleCrashCallback(c tele.Context) error {
	parts := cbSplit(c.Callback().Data)
	if len(parts) < 2 {
		return c.Respond(&tele.CallbackResponse{})
	}

	switch parts[1] {
	case "live":
		if len(parts) != 3 {
			return c.Respond(&tele.CallbackResponse{})
		}
		stake, err := parseStake(parts[2])
		if err != nil {
			return respondErr(c, err)
		}
		_ = c.Respond(&tele.CallbackResponse{})
		return h.startLive(c, stake)
	case "auto":
		if len(parts) != 4 {
			return c.Respond(&tele.CallbackResponse{})
		}
		return h.games.HandleCrashAuto(c, parts[2], parts[3])
	case "cashout":
		return h.cashout(c)
	default:
		return c.Respond(&tele.CallbackResponse{})
	}
}

// startLive sends the round message and opens the round pointed at it.
func (h *CrashHandler) startLive(c tele.Context, stake decimal.Decimal) error {
	msg, err := c.Bot().Send(c.Chat(), fmt.Sprintf("🚀 Ракетка\nСтавка: %s\n\nПодготовка раунда...", money.Format(stake)))
	if err != nil {
		return err
	}

	if _, err := h.crash.StartRound(context.Background(), c.Sender().ID, stake, c.Chat().ID, msg.ID); err != nil {
		_, editErr := c.Bot().Edit(msg, errText(err))
		if editErr != nil {
			return editErr
		}
		return nil
	}
	return nil
}

// cashout settles the live round at the current multiplier. Losing the
// race against the crash is reported, not treated as a failure.
func (h *CrashHandler) cashout(c tele.Context) error {
	result, err := h.crash.Cashout(context.Background(), c.Sender().ID)
	if err != nil {
		return respondErr(c, err)
	}

	text := fmt.Sprintf("💰 Выведено на x%s\n🎉 Выигрыш: %s\n💰 Баланс: %s",
		result.Multiplier, money.Format(result.Payout), money.Format(result.Balance))
	if err := c.Edit(text); err != nil {
		_ = c.Send(text)
	}
	return c.Respond(&tele.CallbackResponse{Text: "💰 Выигрыш зачислен"})
}
