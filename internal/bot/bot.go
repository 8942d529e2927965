// Package bot provides the Telegram bot initialization, middleware and
// handler registration.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/config"
	"casino-bot/internal/game"
	"casino-bot/internal/handler"
	"casino-bot/internal/model"
	"casino-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	accountService *service.AccountService

	accountHandler *handler.AccountHandler
	gameHandler    *handler.GameHandler
	crashHandler   *handler.CrashHandler
	minesHandler   *handler.MinesHandler
	paymentHandler *handler.PaymentHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds everything the bot handlers need.
type Dependencies struct {
	Config         *config.Config
	AccountService *service.AccountService
	GameService    *service.GameService
	CrashService   *service.CrashService
	MinesService   *service.MinesService
	PaymentService *service.PaymentService
	GameRegistry   *game.Registry
	CrashRenderer  *handler.CrashRenderer
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:            teleBot,
		cfg:            deps.Config,
		accountService: deps.AccountService,
	}

	// The crash renderer is created before the bot exists; attach the
	// instance so live rounds can edit their messages.
	deps.CrashRenderer.SetBot(teleBot)

	b.gameHandler = handler.NewGameHandler(deps.GameService, deps.GameRegistry, deps.Config)
	b.accountHandler = handler.NewAccountHandler(deps.AccountService, b.gameHandler, deps.Config)
	b.crashHandler = handler.NewCrashHandler(deps.CrashService, b.gameHandler)
	b.minesHandler = handler.NewMinesHandler(deps.MinesService, b.gameHandler)
	b.paymentHandler = handler.NewPaymentHandler(deps.PaymentService, deps.Config)
	b.adminHandler = handler.NewAdminHandler(deps.AccountService, deps.PaymentService)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(UserMiddleware(b.accountService))
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/help", b.accountHandler.HandleHelp)
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/profile", b.accountHandler.HandleProfile)

	b.bot.Handle("/slots", b.gameHandler.HandleSlots)
	b.bot.Handle("/dice", b.gameHandler.HandleDice)
	b.bot.Handle("/duel", b.gameHandler.HandleDuel)
	b.bot.Handle("/football", b.gameHandler.HandleEmoji(model.GameFootball))
	b.bot.Handle("/basketball", b.gameHandler.HandleEmoji(model.GameBasketball))
	b.bot.Handle("/darts", b.gameHandler.HandleEmoji(model.GameDarts))
	b.bot.Handle("/bowling", b.gameHandler.HandleEmoji(model.GameBowling))
	b.bot.Handle("/roulette", b.gameHandler.HandleRoulette)
	b.bot.Handle("/crash", b.crashHandler.HandleCrash)
	b.bot.Handle("/mines", b.minesHandler.HandleMines)

	b.bot.Handle("/deposit", b.paymentHandler.HandleDeposit)
	b.bot.Handle("/withdraw", b.paymentHandler.HandleWithdraw)
	b.bot.Handle(tele.OnCheckout, b.paymentHandler.HandleCheckout)
	b.bot.Handle(tele.OnPayment, b.paymentHandler.HandlePayment)

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.accountService))
	adminGroup.Handle("/admin", b.adminHandler.HandleAdmin)
	adminGroup.Handle("/grant", b.adminHandler.HandleGrant)
	adminGroup.Handle("/top", b.adminHandler.HandleTop)
	adminGroup.Handle("/admin_add", b.adminHandler.HandleAdminAdd)
	adminGroup.Handle("/admin_del", b.adminHandler.HandleAdminDel)
	adminGroup.Handle("/admins", b.adminHandler.HandleAdmins)
	adminGroup.Handle("/stars_rate", b.adminHandler.HandleStarsRate)
	adminGroup.Handle("/withdrawals", b.adminHandler.HandleWithdrawals)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes callbacks to their handlers by the data prefix.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot may prefix callback data with \f.
	data := strings.TrimPrefix(callback.Data, "\f")
	prefix, _, _ := strings.Cut(data, "|")

	switch prefix {
	case "menu":
		return b.accountHandler.HandleMenu(c)
	case "profile":
		return b.accountHandler.HandleProfile(c)
	case "deposit":
		return b.paymentHandler.HandleDeposit(c)
	case "game":
		return b.gameHandler.HandleGameMenu(c)
	case "st":
		return b.gameHandler.HandleStake(c)
	case "slots":
		return b.gameHandler.HandleSlotsCallback(c)
	case "dice":
		return b.gameHandler.HandleDiceCallback(c)
	case "duel":
		return b.gameHandler.HandleDuelCallback(c)
	case "emoji":
		return b.gameHandler.HandleEmojiCallback(c)
	case "roul":
		return b.gameHandler.HandleRouletteCallback(c)
	case "crash":
		return b.crashHandler.HandleCrashCallback(c)
	case "mines":
		return b.minesHandler.HandleMinesCallback(c)
	case "dep":
		return b.paymentHandler.HandleDepositCallback(c)
	case "wd":
		if !b.accountService.IsAdmin(context.Background(), c.Sender().ID) {
			return c.Respond(&tele.CallbackResponse{Text: "❌ Недостаточно прав"})
		}
		return b.adminHandler.HandleWithdrawCallback(c)
	default:
		log.Debug().Str("data", data).Msg("unroutable callback")
		return c.Respond(&tele.CallbackResponse{})
	}
}

// NotifyDeposit tells the user their invoice was credited. Wired as the
// payment watcher's OnCredited callback.
func (b *Bot) NotifyDeposit(invoice *model.Invoice) {
	_, err := b.bot.Send(
		&tele.User{ID: invoice.UserID},
		fmt.Sprintf("✅ Депозит %s %s зачислен", invoice.Amount.StringFixed(2), invoice.Asset),
	)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", invoice.UserID).Msg("failed to notify deposit")
	}
}

// Start starts the bot polling. Blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.cfg.Bot.Username).Msg("starting bot")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("stopping bot")
	b.bot.Stop()
}
