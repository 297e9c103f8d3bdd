package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"github.com/joho/godotenv"

	"github.com/seongjae-dev/optionpulse/internal/api"
	"github.com/seongjae-dev/optionpulse/internal/api/handlers"
	"github.com/seongjae-dev/optionpulse/internal/cache"
	"github.com/seongjae-dev/optionpulse/internal/config"
	"github.com/seongjae-dev/optionpulse/internal/database"
	"github.com/seongjae-dev/optionpulse/internal/logging"
	"github.com/seongjae-dev/optionpulse/internal/marketdata"
	"github.com/seongjae-dev/optionpulse/internal/middleware"
	"github.com/seongjae-dev/optionpulse/internal/services"
	"github.com/seongjae-dev/optionpulse/internal/store"
	"github.com/seongjae-dev/optionpulse/internal/stream"
)

func main() {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	session, err := services.NewMarketSession(cfg.Signals)
	if err != nil {
		logger.WithError(err).Fatal("Invalid market session configuration")
	}

	var sender services.MessageSender
	if cfg.Telegram.BotToken != "" {
		tgBot, err := bot.New(cfg.Telegram.BotToken)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize Telegram bot, notifications disabled")
		} else {
			sender = tgBot
		}
	}

	cacheTTL, _ := time.ParseDuration(cfg.Signals.CacheTTL)

	signalStore := store.NewSignalStore(db)
	signalCache := cache.NewSignalCache(redis, cacheTTL)
	hub := stream.NewHub(cfg.Stream.QueueSize, logger)
	defer hub.Close()

	orchestrator := services.NewOrchestrator(services.OrchestratorDeps{
		Fetcher:   marketdata.NewClient(cfg.MarketData, logger),
		Metrics:   services.NewMetricsCalculator(cfg.MarketData.RiskFreeRate, logger),
		Filter:    services.NewCandidateFilter(logger),
		Ranker:    services.NewRanker(cfg.Signals.TopCandidates),
		Advisor:   services.NewAdvisor(cfg.OpenAI, logger),
		Store:     signalStore,
		Cache:     signalCache,
		Notifier:  services.NewBroadcaster(sender, signalStore, cfg.Telegram.AdminChatID, logger),
		Publisher: hub,
		Session:   session,
		Logger:    logger,
	})

	runInterval, _ := time.ParseDuration(cfg.Signals.RunInterval)
	scheduler := services.NewScheduler(orchestrator, runInterval, logger)
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	api.SetupRoutes(router, api.Handlers{
		Health:  handlers.NewHealthHandler(db, redis, hub, logger),
		Signals: handlers.NewSignalHandler(orchestrator, signalStore, signalCache, logger),
		Stream:  handlers.NewStreamHandler(hub, logger),
		Auth:    middleware.NewAuthMiddleware(cfg.Security.JWTSecret),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
