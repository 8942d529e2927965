package handler

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/config"
	"casino-bot/internal/money"
	"casino-bot/internal/service"
)

// AccountHandler handles /start, profile and referral commands.
type AccountHandler struct {
	accounts *service.AccountService
	games    *GameHandler
	cfg      *config.Config
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts *service.AccountService, games *GameHandler, cfg *config.Config) *AccountHandler {
	return &AccountHandler{accounts: accounts, games: games, cfg: cfg}
}

// HandleStart greets the user and shows the main menu. The account itself
// is ensured by the middleware, which also binds the referrer and grants
// the welcome bonus on first contact.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	text := fmt.Sprintf("🎰 Добро пожаловать, %s!\n\nВыбирайте игру и делайте ставки.", displayName(sender))
	if created, _ := c.Get("user_created").(bool); created {
		if bonus := h.cfg.WelcomeBonus(); bonus.IsPositive() {
			text += fmt.Sprintf("\n\n🎁 Вам начислен приветственный бонус %s", money.Format(bonus))
		}
	}

	return c.Send(text, h.games.MenuMarkup())
}

// HandleMenu re-renders the games menu from a callback.
func (h *AccountHandler) HandleMenu(c tele.Context) error {
	if c.Callback() != nil {
		if err := c.Edit("🎰 Выберите игру:", h.games.MenuMarkup()); err == nil {
			return c.Respond(&tele.CallbackResponse{})
		}
	}
	return c.Send("🎰 Выберите игру:", h.games.MenuMarkup())
}

// HandleBalance handles the /balance command.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user, err := h.accounts.GetUser(context.Background(), sender.ID)
	if err != nil {
		return c.Reply(errText(err))
	}
	return c.Reply(fmt.Sprintf("💰 Баланс: %s", money.Format(user.Balance)))
}

// HandleProfile handles the /profile command and the profile button.
func (h *AccountHandler) HandleProfile(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx := context.Background()
	stats, err := h.accounts.Profile(ctx, sender.ID)
	if err != nil {
		if c.Callback() != nil {
			return respondErr(c, err)
		}
		return c.Reply(errText(err))
	}

	invited, earned, err := h.accounts.ReferralStats(ctx, sender.ID)
	if err != nil {
		invited, earned = 0, decimal.Zero
	}

	text := fmt.Sprintf(
		"👤 %s\n\n"+
			"💰 Баланс: %s\n"+
			"🎲 Ставок: %d на %s\n"+
			"✅ Выиграно: %d\n"+
			"❌ Проиграно: %d\n"+
			"📈 Результат: %s\n\n"+
			"👥 Приглашено: %d\n"+
			"💸 Заработано с рефералов: %s\n"+
			"🔗 Ваша ссылка: %s",
		displayName(sender),
		money.Format(stats.User.Balance),
		stats.User.TotalBets, money.Format(stats.User.TotalWager),
		stats.BetsWon,
		stats.BetsLost,
		money.Format(stats.NetResult),
		invited,
		money.Format(earned),
		h.accounts.ReferralLink(sender.ID),
	)

	if c.Callback() != nil {
		if err := c.Edit(text); err == nil {
			return c.Respond(&tele.CallbackResponse{})
		}
	}
	return c.Reply(text)
}

// HandleHelp handles the /help command.
func (h *AccountHandler) HandleHelp(c tele.Context) error {
	return c.Reply(
		"🎰 Команды:\n\n" +
			"/slots <ставка> — слоты, 777 платит x10\n" +
			"/dice <ставка> — кубик: чёт/нечёт, больше/меньше, точное число\n" +
			"/duel <ставка> — дуэль кубиков против бота, x1.8\n" +
			"/football /basketball /darts /bowling <ставка> — эмодзи-игры\n" +
			"/roulette <ставка> — русская рулетка, 4 патрона из 6\n" +
			"/crash <ставка> [цель] — ракетка: живой раунд или автовывод\n" +
			"/mines <ставка> [мины] — сапёр 5x5\n\n" +
			"/balance — баланс\n" +
			"/profile — профиль и реферальная ссылка\n" +
			"/deposit — пополнение\n" +
			"/withdraw <сумма> <адрес> — вывод средств",
	)
}
