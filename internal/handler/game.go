package handler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/config"
	"casino-bot/internal/game"
	"casino-bot/internal/model"
	"casino-bot/internal/money"
	"casino-bot/internal/service"
)

// animationWait is how long the Telegram dice animation plays before the
// result is readable.
const animationWait = 3 * time.Second

// stakePresets are the quick-bet amounts offered in the menus.
var stakePresets = []string{"1", "5", "10", "25", "100"}

// diceAnimations maps game ids onto the Telegram animation to roll.
var diceAnimations = map[string]*tele.Dice{
	model.GameSlots:      tele.Slot,
	model.GameDice:       tele.Cube,
	model.GameFootball:   tele.Goal,
	model.GameBasketball: tele.Ball,
	model.GameDarts:      tele.Dart,
	model.GameBowling:    tele.Bowl,
}

// emojiChoices lists the bettable outcomes per emoji game.
var emojiChoices = map[string][][2]string{
	model.GameFootball:   {{"goal", "⚽ Гол (x1.4)"}, {"miss", "❌ Мимо (x1.8)"}},
	model.GameBasketball: {{"score", "🏀 Попадание (x1.8)"}, {"miss", "❌ Мимо (x1.4)"}},
	model.GameDarts:      {{"bullseye", "🎯 В яблочко (x5)"}, {"miss", "❌ Мимо (x5)"}},
	model.GameBowling:    {{"strike", "🎳 Страйк (x5)"}, {"miss", "❌ Мимо (x5)"}},
}

// GameHandler handles the instant games: slots, dice, duel, the emoji
// sports games, roulette and the crash auto mode.
type GameHandler struct {
	games    *service.GameService
	registry *game.Registry
	cfg      *config.Config
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(games *service.GameService, registry *game.Registry, cfg *config.Config) *GameHandler {
	return &GameHandler{games: games, registry: registry, cfg: cfg}
}

// MenuMarkup builds the main games menu.
func (h *GameHandler) MenuMarkup() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	var rows []tele.Row
	var row tele.Row
	for _, info := range h.registry.List() {
		row = append(row, markup.Data(info.Title, cbJoin("game", info.ID)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, markup.Row(
		markup.Data("💳 Пополнить", "deposit"),
		markup.Data("👤 Профиль", "profile"),
	))

	markup.Inline(rows...)
	return markup
}

// HandleGameMenu shows the stake presets for a chosen game.
// Callback data: game|<id>.
func (h *GameHandler) HandleGameMenu(c tele.Context) error {
	parts := cbSplit(c.Callback().Data)
	if len(parts) != 2 {
		return c.Respond(&tele.CallbackResponse{})
	}
	gameID := parts[1]

	markup := &tele.ReplyMarkup{}
	var row tele.Row
	for _, preset := range stakePresets {
		row = append(row, markup.Data("$"+preset, cbJoin("st", gameID, preset)))
	}
	markup.Inline(row, markup.Row(markup.Data("« Назад", "menu")))

	if err := c.Edit(fmt.Sprintf("%s\n\nВыберите ставку:", h.registry.Title(gameID)), markup); err != nil {
		return err
	}
	return c.Respond(&tele.CallbackResponse{})
}

// HandleStake dispatches a chosen stake to the game's next step.
// Callback data: st|<game>|<stake>.
func (h *GameHandler) HandleStake(c tele.Context) error {
	parts := cbSplit(c.Callback().Data)
	if len(parts) != 3 {
		return c.Respond(&tele.CallbackResponse{})
	}
	gameID, rawStake := parts[1], parts[2]

	stake, err := parseStake(rawStake)
	if err != nil {
		return respondErr(c, err)
	}

	switch gameID {
	case model.GameSlots:
		return h.playSlots(c, stake)
	case model.GameDice:
		return h.editKeyboard(c, "🎲 Кубик — ставка "+money.Format(stake)+"\n\nВыберите исход:", h.diceMarkup(rawStake))
	case model.GameFootball, model.GameBasketball, model.GameDarts, model.GameBowling:
		return h.editKeyboard(c, h.registry.Title(gameID)+" — ставка "+money.Format(stake)+"\n\nВыберите исход:", h.emojiMarkup(gameID, rawStake))
	case model.GameRoulette:
		return h.editKeyboard(c, "🔫 Рулетка — ставка "+money.Format(stake)+"\n\nВыберите камору (4 из 6 заряжены):", h.rouletteMarkup(rawStake))
	case model.GameCrash:
		return h.editKeyboard(c, "🚀 Ракетка — ставка "+money.Format(stake)+"\n\nЖивой раунд или автовывод на цели:", crashModeMarkup(rawStake))
	case model.GameMines:
		return h.editKeyboard(c, "💣 Сапёр — ставка "+money.Format(stake)+"\n\nСколько мин?", minesCountMarkup(rawStake))
	default:
		return c.Respond(&tele.CallbackResponse{Text: "❌ Неизвестная игра"})
	}
}

func (h *GameHandler) editKeyboard(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if err := c.Edit(text, markup); err != nil {
		return err
	}
	return c.Respond(&tele.CallbackResponse{})
}

// diceMarkup builds the dice outcome keyboard for a stake.
func (h *GameHandler) diceMarkup(stake string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(
			markup.Data("Чёт (x1.7)", cbJoin("dice", "even", stake)),
			markup.Data("Нечёт (x1.7)", cbJoin("dice", "odd", stake)),
		),
		markup.Row(
			markup.Data("1-3 (x1.7)", cbJoin("dice", "low", stake)),
			markup.Data("4-6 (x1.7)", cbJoin("dice", "high", stake)),
		),
		markup.Row(
			markup.Data("1 (x4)", cbJoin("dice", "exact_1", stake)),
			markup.Data("2 (x4)", cbJoin("dice", "exact_2", stake)),
			markup.Data("3 (x4)", cbJoin("dice", "exact_3", stake)),
		),
		markup.Row(
			markup.Data("4 (x4)", cbJoin("dice", "exact_4", stake)),
			markup.Data("5 (x4)", cbJoin("dice", "exact_5", stake)),
			markup.Data("6 (x4)", cbJoin("dice", "exact_6", stake)),
		),
		markup.Row(markup.Data("⚔️ Дуэль (x1.8)", cbJoin("duel", stake))),
	)
	return markup
}

// emojiMarkup builds the outcome keyboard for an emoji game.
func (h *GameHandler) emojiMarkup(gameID, stake string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var row tele.Row
	for _, choice := range emojiChoices[gameID] {
		row = append(row, markup.Data(choice[1], cbJoin("emoji", gameID, choice[0], stake)))
	}
	markup.Inline(row)
	return markup
}

// rouletteMarkup builds the chamber keyboard.
func (h *GameHandler) rouletteMarkup(stake string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var row tele.Row
	for chamber := 1; chamber <= 6; chamber++ {
		row = append(row, markup.Data(strconv.Itoa(chamber), cbJoin("roul", strconv.Itoa(chamber), stake)))
	}
	markup.Inline(row)
	return markup
}

// HandleSlots handles the /slots command.
func (h *GameHandler) HandleSlots(c tele.Context) error {
	stake, err := h.stakeArg(c, "/slots 10")
	if err != nil {
		return nil
	}
	return h.playSlots(c, stake)
}

// HandleSlotsCallback replays a slots spin. Callback data: slots|<stake>.
func (h *GameHandler) HandleSlotsCallback(c tele.Context) error {
	parts := cbSplit(c.Callback().Data)
	if len(parts) != 2 {
		return c.Respond(&tele.CallbackResponse{})
	}
	stake, err := parseStake(parts[1])
	if err != nil {
		return respondErr(c, err)
	}
	return h.playSlots(c, stake)
}

func (h *GameHandler) playSlots(c tele.Context, stake decimal.Decimal) error {
	value, err := h.roll(c, model.GameSlots)
	if err != nil {
		return err
	}

	result, err := h.games.PlaySlots(context.Background(), c.Sender().ID, stake, value)
	if err != nil {
		return h.replyErr(c, err)
	}
	return h.sendResult(c, result, cbJoin("slots", stake.String()))
}

// HandleDice handles the /dice command: with a choice argument it rolls
// right away, without one it shows the outcome keyboard.
func (h *GameHandler) HandleDice(c tele.Context) error {
	stake, err := h.stakeArg(c, "/dice 10 even")
	if err != nil {
		return nil
	}

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("🎲 Выберите исход:", h.diceMarkup(stake.String()))
	}
	return h.playDice(c, stake, args[1])
}

// HandleDiceCallback rolls a dice bet. Callback data: dice|<choice>|<stake>.
func (h *GameHandler) HandleDiceCallback(c tele.Context) error {
	parts := cbSplit(c.Callback().Data)
	if len(parts) != 3 {
		return c.Respond(&tele.CallbackResponse{})
	}
	stake, err := parseStake(parts[2])
	if err != nil {
		return respondErr(c, err)
	}
	return h.playDice(c, stake, parts[1])
}

func (h *GameHandler) playDice(c tele.Context, stake decimal.Decimal, choice string) error {
	value, err := h.roll(c, model.GameDice)
	if err != nil {
		return err
	}

	result, err := h.games.PlayDice(context.Background(), c.Sender().ID, stake, choice, value)
	if err != nil {
		return h.replyErr(c, err)
	}
	return h.sendResult(c, result, cbJoin("dice", choice, stake.String()))
}

// HandleDuel handles the /duel command.
func (h *GameHandler) HandleDuel(c tele.Context) error {
	stake, err := h.stakeArg(c, "/duel 10")
	if err != nil {
		return nil
	}
	return h.playDuel(c, stake)
}

// HandleDuelCallback replays a duel. Callback data: duel|<stake>.
func (h *GameHandler) HandleDuelCallback(c tele.Context) error {
	parts := cbSplit(c.Callback().Data)
	if len(parts) != 2 {
		return c.Respond(&tele.CallbackResponse{})
	}
	stake, err := parseStake(parts[1])
	if err != nil {
		return respondErr(c, err)
	}
	return h.playDuel(c, stake)
}

func (h *GameHandler) playDuel(c tele.Context, stake decimal.Decimal) error {
	playerValue, err := h.roll(c, model.GameDice)
	if err != nil {
		return err
	}
	botValue, err := h.roll(c, model.GameDice)
	if err != nil {
		return err
	}

	result, err := h.games.PlayDiceDuel(context.Background(), c.Sender().ID, stake, playerValue, botValue)
	if err != nil {
		return h.replyErr(c, err)
	}

	header := fmt.Sprintf("⚔️ Дуэль: %d против %d\n", playerValue, botValue)
	return h.sendResultText(c, header, result, cbJoin("duel", stake.String()))
}

// HandleEmoji builds the command handler for one emoji game.
func (h *GameHandler) HandleEmoji(gameID string) tele.HandlerFunc {
	return func(c tele.Context) error {
		stake, err := h.stakeArg(c, fmt.Sprintf("/%s 10", gameID))
		if err != nil {
			return nil
		}

		args := c.Args()
		if len(args) < 2 {
			return c.Reply("Выберите исход:", h.emojiMarkup(gameID, stake.String()))
		}
		return h.playEmoji(c, gameID, stake, args[1])
	}
}

// HandleEmojiCallback plays an emoji game bet.
// Callback data: emoji|<game>|<choice>|<stake>.
func (h *GameHandler) HandleEmojiCallback(c tele.Context) error {
	parts := cbSplit(c.Callback().Data)
	if len(parts) != 4 {
		return c.Respond(&tele.CallbackResponse{})
	}
	stake, err := parseStake(parts[3])
	if err != nil {
		return respondErr(c, err)
	}
	return h.playEmoji(c, parts[1], stake, parts[2])
}

func (h *GameHandler) playEmoji(c tele.Context, gameID string, stake decimal.Decimal, choice string) error {
	value, err := h.roll(c, gameID)
	if err != nil {
		return err
	}

	result, err := h.games.PlayEmoji(context.Background(), c.Sender().ID, stake, gameID, choice, value)
	if err != nil {
		return h.replyErr(c, err)
	}
	return h.sendResult(c, result, cbJoin("emoji", gameID, choice, stake.String()))
}

// HandleRoulette handles the /roulette command.
func (h *GameHandler) HandleRoulette(c tele.Context) error {
	stake, err := h.stakeArg(c, "/roulette 10")
	if err != nil {
		return nil
	}

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("🔫 Выберите камору (4 из 6 заряжены):", h.rouletteMarkup(stake.String()))
	}

	chamber, convErr := strconv.Atoi(args[1])
	if convErr != nil {
		return c.Reply("❌ Камора — число от 1 до 6")
	}
	return h.playRoulette(c, stake, chamber)
}

// HandleRouletteCallback plays a roulette round.
// Callback data: roul|<chamber>|<stake>.
func (h *GameHandler) HandleRouletteCallback(c tele.Context) error {
	parts := cbSplit(c.Callback().Data)
	if len(parts) != 3 {
		return c.Respond(&tele.CallbackResponse{})
	}
	chamber, err := strconv.Atoi(parts[1])
	if err != nil {
		return c.Respond(&tele.CallbackResponse{})
	}
	stake, err := parseStake(parts[2])
	if err != nil {
		return respondErr(c, err)
	}
	return h.playRoulette(c, stake, chamber)
}

func (h *GameHandler) playRoulette(c tele.Context, stake decimal.Decimal, chamber int) error {
	result, err := h.games.PlayRoulette(context.Background(), c.Sender().ID, stake, chamber)
	if err != nil {
		return h.replyErr(c, err)
	}

	header := fmt.Sprintf("🔫 Камора %d. %s\n", chamber, result.Outcome.Message)
	return h.sendResultText(c, header, result, cbJoin("roul", strconv.Itoa(chamber), stake.String()))
}

// HandleCrashAuto plays a target-multiplier crash bet.
// Callback data: crash|auto|<target>|<stake>.
func (h *GameHandler) HandleCrashAuto(c tele.Context, target, rawStake string) error {
	stake, err := parseStake(rawStake)
	if err != nil {
		return respondErr(c, err)
	}
	targetMult, err := decimal.NewFromString(target)
	if err != nil {
		return respondErr(c, err)
	}
	return h.PlayCrashAuto(c, stake, targetMult)
}

// PlayCrashAuto resolves the auto mode and renders the result.
func (h *GameHandler) PlayCrashAuto(c tele.Context, stake, target decimal.Decimal) error {
	result, err := h.games.PlayCrashAuto(context.Background(), c.Sender().ID, stake, target)
	if err != nil {
		return h.replyErr(c, err)
	}

	header := fmt.Sprintf("🚀 Автовывод на x%s. %s\n", target.StringFixed(2), result.Outcome.Message)
	return h.sendResultText(c, header, result, cbJoin("crash", "auto", target.String(), stake.String()))
}

// stakeArg parses the stake from the first command argument.
func (h *GameHandler) stakeArg(c tele.Context, usage string) (decimal.Decimal, error) {
	args := c.Args()
	if len(args) < 1 {
		err := fmt.Errorf("missing stake")
		_ = c.Reply(fmt.Sprintf("Укажите ставку, например: %s", usage))
		return decimal.Zero, err
	}

	stake, err := parseStake(args[0])
	if err != nil {
		_ = c.Reply("❌ Недопустимая ставка")
		return decimal.Zero, err
	}
	return stake, nil
}

// roll sends the game's Telegram animation and returns the rolled value
// once the animation has played.
func (h *GameHandler) roll(c tele.Context, gameID string) (int, error) {
	animation, ok := diceAnimations[gameID]
	if !ok {
		return 0, fmt.Errorf("no animation for game %q", gameID)
	}

	msg, err := c.Bot().Send(c.Chat(), animation)
	if err != nil {
		return 0, err
	}

	time.Sleep(animationWait)
	return msg.Dice.Value, nil
}

// replyErr answers with the mapped error text over whichever channel the
// interaction came in on.
func (h *GameHandler) replyErr(c tele.Context, err error) error {
	log.Debug().Err(err).Int64("user_id", c.Sender().ID).Msg("game round failed")
	if c.Callback() != nil {
		return respondErr(c, err)
	}
	return c.Reply(errText(err))
}

// sendResult renders a settled round with a replay button.
func (h *GameHandler) sendResult(c tele.Context, result *service.PlayResult, replayData string) error {
	return h.sendResultText(c, "", result, replayData)
}

func (h *GameHandler) sendResultText(c tele.Context, header string, result *service.PlayResult, replayData string) error {
	var verdict string
	switch result.Bet.Status {
	case model.BetWon:
		verdict = fmt.Sprintf("🎉 Выигрыш %s", money.Format(result.Bet.Payout))
	case model.BetPush:
		verdict = "😐 Ничья, ставка возвращена"
	default:
		verdict = fmt.Sprintf("😢 Проигрыш %s", money.Format(result.Bet.Stake))
	}

	text := fmt.Sprintf("%s%s\n\n%s\n💰 Баланс: %s",
		header, result.Outcome.Message, verdict, money.Format(result.Balance))

	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(
		markup.Data("🔁 Повторить", replayData),
		markup.Data("🎰 Меню", "menu"),
	))

	if c.Callback() != nil {
		_ = c.Respond(&tele.CallbackResponse{})
	}
	return c.Send(text, markup)
}

// crashModeMarkup offers the live round and the auto-target presets.
func crashModeMarkup(stake string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(markup.Data("🚀 Живой раунд", cbJoin("crash", "live", stake))),
		markup.Row(
			markup.Data("x1.5", cbJoin("crash", "auto", "1.5", stake)),
			markup.Data("x2", cbJoin("crash", "auto", "2", stake)),
			markup.Data("x3", cbJoin("crash", "auto", "3", stake)),
			markup.Data("x5", cbJoin("crash", "auto", "5", stake)),
		),
	)
	return markup
}

// minesCountMarkup offers the mine count presets.
func minesCountMarkup(stake string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var row tele.Row
	for _, count := range []string{"3", "5", "7", "10", "15"} {
		row = append(row, markup.Data(count+" 💣", cbJoin("mines", "start", count, stake)))
	}
	markup.Inline(row)
	return markup
}
