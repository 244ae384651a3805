package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"wg-access-bot/internal/config"
	"wg-access-bot/internal/constants"
	"wg-access-bot/internal/handlers"
	"wg-access-bot/internal/lifecycle"
	"wg-access-bot/internal/notify"
	"wg-access-bot/internal/ops"
	"wg-access-bot/internal/services"
	"wg-access-bot/internal/storage"
	"wg-access-bot/internal/wireguard"
	"wg-access-bot/pkg/telegrambot"
)

// Exit codes: 2 means the process refused to start because required
// configuration (the bot credential among it) is missing.
const exitConfigError = 2

func main() {
	// Setup logger
	logger := setupLogger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("Failed to load configuration: %v", err)
		os.Exit(exitConfigError)
	}

	// Connect storage
	db, err := storage.Connect(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database: ", err)
	}
	if err := storage.EnsureSchema(db); err != nil {
		logger.Fatal("Failed to prepare schema: ", err)
	}

	users := storage.NewUserRepository(db)
	profiles := storage.NewProfileRepository(db)

	// Initialize services
	sessions := services.NewSessionService(constants.SessionTTL, constants.SessionCleanupInterval, logger)
	artifacts := services.NewArtifactService(cfg.WireGuard.ConfigRoot, logger)
	provisioner := wireguard.NewToolProvisioner(cfg.WireGuard.Tool, cfg.WireGuard.Timeout, logger)
	notifier := notify.NewNotifier(cfg.Ops.WebhookURL, logger)

	// Start the WireGuard container
	lifecycleMgr := lifecycle.NewManager(cfg.Lifecycle.ComposeFile, cfg.WireGuard.ConfigRoot, logger)
	if err := lifecycleMgr.Up(context.Background()); err != nil {
		logger.Fatal("Failed to start WireGuard container: ", err)
	}

	// Initialize the command router
	router := handlers.NewRouter(users, profiles, provisioner, artifacts, sessions, notifier, cfg, logger)

	// Initialize bot
	bot, err := telegrambot.NewBot(cfg, router, logger)
	if err != nil {
		logger.Fatal("Failed to create bot: ", err)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Schedule the enforcement sweep while the balance gate is on
	scheduler := cron.New()
	if cfg.Policy.RequireToken {
		sweeper := services.NewSweeper(users, profiles, provisioner, logger)
		_, err := scheduler.AddFunc(cfg.Policy.SweepSchedule, func() {
			if err := sweeper.Run(ctx); err != nil {
				logger.Errorf("Enforcement sweep failed: %v", err)
				notifier.SweepFailure(ctx, err.Error())
			}
		})
		if err != nil {
			logger.Fatal("Invalid sweep schedule: ", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Start the health server
	if cfg.Ops.HealthAddr != "" {
		healthServer := ops.NewServer(db, cfg.WireGuard.Tool[0], cfg.Ops.HealthAddr, logger)
		go healthServer.Start(ctx)
	}

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	// Start bot
	logger.Info("Starting WireGuard access bot")
	if err := bot.Start(ctx); err != nil {
		logger.Fatal("Bot failed: ", err)
	}

	// Stop the container and restore the compose file's peer list
	shutdownCtx := context.Background()
	if err := lifecycleMgr.Down(shutdownCtx); err != nil {
		logger.Errorf("Failed to stop WireGuard container: %v", err)
	}
	if err := lifecycleMgr.RestorePeers(); err != nil {
		logger.Errorf("Failed to restore compose peers: %v", err)
	}
}

// setupLogger sets up the logger
func setupLogger() *logrus.Logger {
	logger := logrus.New()

	// Set log level from environment variable or default to info
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		log.Printf("Invalid log level %s, defaulting to info", logLevel)
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)

	// Set formatter
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return logger
}
