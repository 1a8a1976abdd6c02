package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/telepanel/telepanel/internal/platform/config"
	"github.com/telepanel/telepanel/internal/platform/database"
	"github.com/telepanel/telepanel/internal/platform/logger"
	"github.com/telepanel/telepanel/internal/platform/messagebroker"

	"github.com/telepanel/telepanel/internal/console_service/adapters/telegram"
	"github.com/telepanel/telepanel/internal/console_service/app"
	"github.com/telepanel/telepanel/internal/console_service/domain"
	"github.com/telepanel/telepanel/internal/console_service/repository/postgres"
)

const (
	serviceName     = "console_service"
	shutdownTimeout = 10 * time.Second
)

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger = appLogger.With("service", serviceName)
	appLogger.Info("Starting service...")

	if cfg.TelegramBotToken == "" || cfg.AdminChatID == 0 {
		appLogger.Error("TELEGRAM_BOT_TOKEN and ADMIN_CHAT_ID must be configured")
		os.Exit(1)
	}

	appLogger.Info("Configuration loaded",
		"log_level", cfg.LogLevel,
		"nats_url", cfg.NATSUrl,
		"postgres_dsn_present", cfg.PostgresDSN != "",
		"metrics_port", cfg.ConsoleServiceMetricsPort,
	)

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Database connection pool initialized")

	nc, err := messagebroker.NewNATSClient(cfg.NATSUrl, appLogger, serviceName)
	if err != nil {
		appLogger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()
	appLogger.Info("NATS connection initialized")

	deviceRepo := postgres.NewPgDeviceRepository(dbPool, appLogger)
	messageRepo := postgres.NewPgMessageRepository(dbPool, appLogger)

	transport := telegram.NewClient(appLogger, cfg.TelegramAPIBaseURL, cfg.TelegramBotToken, nil)
	console := app.NewConsoleService(deviceRepo, messageRepo, transport, cfg.AdminChatID, appLogger)
	notifier := app.NewNotifier(nc, transport, cfg.AdminChatID, appLogger)

	updatesChan := make(chan domain.ChatUpdate, 100)

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		appLogger.Info("Starting Telegram update poller")
		return transport.Poll(groupCtx, updatesChan)
	})

	// Single cooperative loop: operator actions are processed one at a time.
	g.Go(func() error {
		appLogger.Info("Starting console action worker...")
		for {
			select {
			case upd := <-updatesChan:
				console.HandleUpdate(groupCtx, upd)
			case <-groupCtx.Done():
				appLogger.Info("Console action worker shutting down.")
				return groupCtx.Err()
			}
		}
	})

	g.Go(func() error {
		appLogger.Info("Starting ingestion event notifier", "subject", domain.NATSPanelEventsWildcard)
		return notifier.Start(groupCtx)
	})

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ConsoleServiceMetricsPort),
		Handler: promhttp.Handler(),
	}
	g.Go(func() error {
		appLogger.Info("Starting metrics server", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	appLogger.Info("Service components initialized and workers started. Service is ready.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var groupErr error
	select {
	case sig := <-sigCh:
		appLogger.Info("Received termination signal", "signal", sig.String())
	case groupErr = <-watchGroup(g):
		appLogger.Error("A critical component failed, initiating shutdown", "error", groupErr)
	}

	appLogger.Info("Attempting graceful shutdown...")
	mainCancel()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		appLogger.Error("Error during graceful shutdown of components", "error", err)
	}

	appLogger.Info("Service shutdown complete.")
}

// watchGroup is a helper to monitor an errgroup for early exit.
func watchGroup(g *errgroup.Group) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- g.Wait()
	}()
	return errCh
}
