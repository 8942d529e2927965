package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/game/mines"
	"casino-bot/internal/money"
	"casino-bot/internal/service"
)

// gridColumns is the rendered width of the mines field.
const gridColumns = 5

// MinesHandler handles the mines game: round start, grid taps, cashout.
type MinesHandler struct {
	mines *service.MinesService
	games *GameHandler
}

// NewMinesHandler creates a new MinesHandler.
func NewMinesHandler(minesSvc *service.MinesService, games *GameHandler) *MinesHandler {
	return &MinesHandler{mines: minesSvc, games: games}
}

// HandleMines handles the /mines command: with a count argument the round
// starts right away, without one the count keyboard is shown.
func (h *MinesHandler) HandleMines(c tele.Context) error {
	stake, err := h.games.stakeArg(c, "/mines 10 5")
	if err != nil {
		return nil
	}

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("💣 Сколько мин?", minesCountMarkup(stake.String()))
	}

	count, convErr := strconv.Atoi(args[1])
	if convErr != nil || count <= 0 || count >= mines.GridSize {
		return c.Reply("❌ Число мин — от 1 до 24")
	}
	return h.start(c, stake, count)
}

// HandleMinesCallback routes mines callbacks.
// Callback data: mines|start|<count>|<stake>, mines|open|<cell>,
// mines|cashout.
func (h *MinesHandler) HandleMinesCallback(c tele.Context) error {
	parts := cbSplit(c.Callback().Data)
	if len(parts) < 2 {
		return c.Respond(&tele.CallbackResponse{})
	}

	switch parts[1] {
	case "start":
		if len(parts) != 4 {
			return c.Respond(&tele.CallbackResponse{})
		}
		count, err := strconv.Atoi(parts[2])
		if err != nil {
			return c.Respond(&tele.CallbackResponse{})
		}
		stake, err := parseStake(parts[3])
		if err != nil {
			return respondErr(c, err)
		}
		_ = c.Respond(&tele.CallbackResponse{})
		return h.start(c, stake, count)
	case "open":
		if len(parts) != 3 {
			return c.Respond(&tele.CallbackResponse{})
		}
		cell, err := strconv.Atoi(parts[2])
		if err != nil {
			return c.Respond(&tele.CallbackResponse{})
		}
		return h.open(c, cell)
	case "cashout":
		return h.cashout(c)
	default:
		return c.Respond(&tele.CallbackResponse{})
	}
}

// start opens a round and sends the grid.
func (h *MinesHandler) start(c tele.Context, stake decimal.Decimal, count int) error {
	round, err := h.mines.Start(context.Background(), c.Sender().ID, stake, count)
	if err != nil {
		if c.Callback() != nil {
			return respondErr(c, err)
		}
		return c.Reply(errText(err))
	}

	text := fmt.Sprintf("💣 Сапёр: %d мин\nСтавка: %s\n\nОткрывайте клетки:",
		round.State.MinesCount, money.Format(stake))
	return c.Send(text, h.gridMarkup(round.State, false))
}

// open applies one tap and re-renders the grid or the resolution.
func (h *MinesHandler) open(c tele.Context, cell int) error {
	round, err := h.mines.Open(context.Background(), c.Sender().ID, cell)
	if err != nil {
		return respondErr(c, err)
	}

	switch round.Result {
	case mines.OpenNoop:
		return c.Respond(&tele.CallbackResponse{Text: "Клетка уже открыта"})

	case mines.OpenSafe:
		text := fmt.Sprintf("💣 Сапёр: %d мин\nСтавка: %s\nМножитель: x%s (%s)\n\nОткрывайте дальше или забирайте:",
			round.State.MinesCount,
			money.Format(round.State.StakeDecimal()),
			round.State.CurrentMultiplier,
			money.Format(round.State.Cashout()),
		)
		if err := c.Edit(text, h.gridMarkup(round.State, false)); err != nil {
			return err
		}
		return c.Respond(&tele.CallbackResponse{})

	case mines.OpenMine:
		text := fmt.Sprintf("💥 Мина! Ставка %s сгорела\n💰 Баланс: %s",
			money.Format(round.State.StakeDecimal()), money.Format(round.Balance))
		if err := c.Edit(text, h.gridMarkup(round.State, true)); err != nil {
			return err
		}
		return c.Respond(&tele.CallbackResponse{Text: "💥 Мина"})

	case mines.OpenCleared:
		text := fmt.Sprintf("🏆 Поле очищено! x%s\n🎉 Выигрыш: %s\n💰 Баланс: %s",
			round.State.CurrentMultiplier, money.Format(round.Payout), money.Format(round.Balance))
		if err := c.Edit(text, h.gridMarkup(round.State, true)); err != nil {
			return err
		}
		return c.Respond(&tele.CallbackResponse{Text: "🏆 Победа"})

	default:
		return c.Respond(&tele.CallbackResponse{})
	}
}

// cashout leaves the round at the current multiplier.
func (h *MinesHandler) cashout(c tele.Context) error {
	round, err := h.mines.Cashout(context.Background(), c.Sender().ID)
	if err != nil {
		return respondErr(c, err)
	}

	text := fmt.Sprintf("💰 Выведено на x%s\n🎉 Выигрыш: %s\n💰 Баланс: %s",
		round.State.CurrentMultiplier, money.Format(round.Payout), money.Format(round.Balance))
	if err := c.Edit(text, h.gridMarkup(round.State, true)); err != nil {
		return err
	}
	return c.Respond(&tele.CallbackResponse{Text: "💰 Выигрыш зачислен"})
}

// gridMarkup renders the 5x5 field. While the round is live only opened
// cells are revealed; after resolution the mines are shown too.
func (h *MinesHandler) gridMarkup(state *mines.State, revealed bool) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	mineCells := make(map[int]bool, len(state.MineCells))
	for _, cell := range state.MineCells {
		mineCells[cell] = true
	}

	var rows []tele.Row
	var row tele.Row
	for cell := 0; cell < state.GridSize; cell++ {
		label := "⬜"
		switch {
		case state.IsOpened(cell) && mineCells[cell]:
			label = "💥"
		case state.IsOpened(cell):
			label = "✅"
		case revealed && mineCells[cell]:
			label = "💣"
		}
		row = append(row, markup.Data(label, cbJoin("mines", "open", strconv.Itoa(cell))))
		if len(row) == gridColumns {
			rows = append(rows, row)
			row = nil
		}
	}

	if !revealed && state.SafeOpens() > 0 {
		rows = append(rows, markup.Row(markup.Data(
			fmt.Sprintf("💰 Забрать %s", money.Format(state.Cashout())),
			cbJoin("mines", "cashout"),
		)))
	}

	markup.Inline(rows...)
	return markup
}
