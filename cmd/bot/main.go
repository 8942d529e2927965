// Package main is the entry point for the casino bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"casino-bot/internal/bot"
	"casino-bot/internal/config"
	"casino-bot/internal/game"
	"casino-bot/internal/handler"
	"casino-bot/internal/metrics"
	"casino-bot/internal/model"
	"casino-bot/internal/payment"
	"casino-bot/internal/pkg/db"
	"casino-bot/internal/repository"
	"casino-bot/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log.Info().Msg("configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("failed to run database migrations")
	}

	// Repositories.
	userRepo := repository.NewUserRepository(dbPool.Pool)
	ledgerRepo := repository.NewLedgerRepository(dbPool.Pool)
	sessionRepo := repository.NewSessionRepository(dbPool.Pool)
	invoiceRepo := repository.NewInvoiceRepository(dbPool.Pool)
	settingsRepo := repository.NewSettingsRepository(dbPool.Pool)

	// Payment gateway.
	gateway := payment.NewClient(cfg.Payment.APIBase, cfg.Payment.APIToken)

	// Services.
	accountService := service.NewAccountService(userRepo, ledgerRepo, settingsRepo, cfg, log.Logger)
	gameService := service.NewGameService(ledgerRepo, userRepo, cfg)
	minesService := service.NewMinesService(ledgerRepo, userRepo, sessionRepo, cfg)
	paymentService := service.NewPaymentService(gateway, invoiceRepo, ledgerRepo, userRepo, settingsRepo, cfg, log.Logger)

	// The crash renderer gets its bot attached inside bot.New.
	crashRenderer := handler.NewCrashRenderer()
	crashService := service.NewCrashService(ledgerRepo, userRepo, sessionRepo, cfg, crashRenderer, log.Logger)

	// Rounds left active by a previous process are refunded before any
	// new round can start.
	if err := crashService.SweepOrphans(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to sweep orphaned rounds")
	}

	registry := game.NewRegistry()
	for _, info := range []game.Info{
		{ID: model.GameSlots, Title: "🎰 Слоты"},
		{ID: model.GameDice, Title: "🎲 Кубик"},
		{ID: model.GameFootball, Title: "⚽ Футбол"},
		{ID: model.GameBasketball, Title: "🏀 Баскетбол"},
		{ID: model.GameDarts, Title: "🎯 Дартс"},
		{ID: model.GameBowling, Title: "🎳 Боулинг"},
		{ID: model.GameRoulette, Title: "🔫 Рулетка"},
		{ID: model.GameCrash, Title: "🚀 Ракетка", MultiStep: true},
		{ID: model.GameMines, Title: "💣 Сапёр", MultiStep: true},
	} {
		if err := registry.Register(info); err != nil {
			log.Fatal().Err(err).Str("game", info.ID).Msg("failed to register game")
		}
	}
	log.Info().Int("game_count", registry.Count()).Msg("games registered")

	telegramBot, err := bot.New(&bot.Dependencies{
		Config:         cfg,
		AccountService: accountService,
		GameService:    gameService,
		CrashService:   crashService,
		MinesService:   minesService,
		PaymentService: paymentService,
		GameRegistry:   registry,
		CrashRenderer:  crashRenderer,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot")
	}

	// Invoice watcher: polls the gateway and credits paid deposits.
	watcher := payment.NewWatcher(gateway, invoiceRepo, ledgerRepo, cfg.Payment.PollInterval, log.Logger)
	watcher.OnCredited = telegramBot.NotifyDeposit
	go watcher.Run(ctx)

	if cfg.Metrics.Enabled {
		metrics.StartServer(cfg.Metrics.Addr, dbPool.HealthCheck)
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics server started")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("bot is starting")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Stop taking updates, stop the watcher, then stop the round loops.
	// Live sessions stay active; the next boot's sweep refunds them.
	telegramBot.Stop()
	cancel()
	crashService.Shutdown()
	log.Info().Msg("bot stopped gracefully")
}
