package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hyperliquid-agent-bot-go/internal/assessment"
	"hyperliquid-agent-bot-go/internal/config"
	"hyperliquid-agent-bot-go/internal/database"
	"hyperliquid-agent-bot-go/internal/hyperliquid"
	"hyperliquid-agent-bot-go/internal/llm"
	"hyperliquid-agent-bot-go/internal/logger"
	"hyperliquid-agent-bot-go/internal/scheduler"
	"hyperliquid-agent-bot-go/internal/server"

	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Initialize exchange client and asset cache
	exchange := hyperliquid.NewClient(&cfg.Exchange, log.Named("exchange"))
	assets := hyperliquid.NewAssetCache(exchange, log.Named("assets"))
	if err := assets.Refresh(context.Background()); err != nil {
		log.Fatal("Failed to load asset universe from Hyperliquid", zap.Error(err))
	}
	log.Info("Successfully connected to Hyperliquid API.")

	// Wire the assessment pipeline
	providers := llm.NewRegistry(&cfg.LLM, log.Named("llm"))
	market := hyperliquid.NewMarket(exchange, assets)
	executor := assessment.NewExchangeExecutor(db, exchange, assets, log.Named("executor"), cfg.Trading.DefaultTradeAmount, cfg.Trading.DryRun)

	var runExecutor assessment.TradeExecutor = executor
	if cfg.Trading.ExecutorURL != "" {
		log.Info("Using remote trade executor", zap.String("url", cfg.Trading.ExecutorURL))
		runExecutor = assessment.NewRemoteExecutor(cfg.Trading.ExecutorURL, cfg.Auth.ServiceKey, log.Named("executor"))
	}
	orchestrator := assessment.NewOrchestrator(db, providers, market, runExecutor, &cfg.Trading, log.Named("assessment"))
	sched := scheduler.NewScheduler(db, orchestrator, &cfg.Scheduler, log.Named("scheduler"))

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if cfg.Scheduler.AutoRun {
		go sched.Start(ctx)
	}

	srv := server.NewServer(&cfg, db, orchestrator, sched, executor, log.Named("http"))
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", zap.Error(err))
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatal("HTTP server failed", zap.Error(err))
	}

	log.Info("Agent service has been shut down.")
}
