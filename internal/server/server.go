// Package server wires configuration, the monitoring engine and the
// HTTP API together and runs them until shutdown.
package server

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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fabura/gonka-tools/cmd/app"
	"github.com/fabura/gonka-tools/internal/api/v1/handler"
	"github.com/fabura/gonka-tools/internal/api/v1/middleware"
	"github.com/fabura/gonka-tools/internal/common"
	"github.com/fabura/gonka-tools/internal/features/collector/local"
	sshcollector "github.com/fabura/gonka-tools/internal/features/collector/ssh"
	"github.com/fabura/gonka-tools/internal/features/monitor/domain"
	"github.com/fabura/gonka-tools/internal/features/monitor/service"
	"github.com/fabura/gonka-tools/internal/features/notifier/logsink"
	"github.com/fabura/gonka-tools/internal/features/notifier/noop"
	"github.com/fabura/gonka-tools/internal/features/notifier/telegram"
	"github.com/fabura/gonka-tools/pkg/httpclient"
)

// Run starts the application and blocks until shutdown
func Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Load configuration; misconfiguration is the only fatal condition
	cfg, err := app.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logConfig := common.DefaultLoggerConfig()
	logConfig.Level = common.LogLevel(cfg.App.LogLevel)
	logConfig.Component = cfg.App.Component
	logger := common.NewLogger(logConfig)
	slog.SetDefault(logger)

	// Collectors and other context-aware code pick the logger up from
	// the context they are handed
	ctx = common.ContextWithLogger(ctx, logger)

	// 2. Signal handling
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		logger.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	// 3. Build the node registry
	nodes, err := app.BuildRegistry(cfg)
	if err != nil {
		logger.Error("failed to build node registry", "error", err)
		os.Exit(1)
	}

	// 4. Select collector and notification channel per configuration
	collector := buildCollector(cfg)

	sink, err := buildSink(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize notification channel", "error", err)
		os.Exit(1)
	}

	// 5. Assemble and start the monitoring engine
	metrics := service.NewEngineMetrics()
	metrics.Register()

	engine := service.NewEngine(
		service.EngineConfig{
			Interval:       cfg.Monitor.Interval,
			CollectTimeout: cfg.Monitor.CollectTimeout,
			NotifyTimeout:  cfg.Monitor.NotifyTimeout,
			Concurrency:    cfg.Monitor.Concurrency,
			RunOnStart:     cfg.Monitor.RunOnStart,
		},
		nodes,
		collector,
		service.NewCooldownTracker(cfg.Monitor.Cooldown),
		sink,
		metrics,
		logger,
	)

	if err := engine.Start(ctx); err != nil {
		logger.Error("failed to start monitoring engine", "error", err)
		os.Exit(1)
	}

	// 6. Serve the API until the context is cancelled
	if err := runHTTPServer(ctx, cfg, engine, logger); err != nil {
		logger.Error("HTTP server error", "error", err)
	}

	engine.Stop()
	logger.Info("shutdown complete")
}

// buildCollector selects the collector for the configured mode
func buildCollector(cfg *app.Config) domain.Collector {
	if cfg.Monitor.Mode == app.ModeLocal {
		return local.NewCollector()
	}
	return sshcollector.NewCollector()
}

// buildSink selects the notification channel. Telegram credentials are
// verified up front so a bad token fails the process instead of failing
// every delivery silently.
func buildSink(ctx context.Context, cfg *app.Config, logger *slog.Logger) (domain.NotificationSink, error) {
	switch cfg.Notifier.Channel {
	case app.ChannelTelegram:
		client, err := httpclient.New(httpclient.Config{
			Timeout:     cfg.Monitor.NotifyTimeout,
			EnableHTTP2: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}

		notifier := telegram.NewNotifier(telegram.Config{
			BotToken: cfg.Telegram.BotToken,
			ChatID:   cfg.Telegram.ChatID,
			APIBase:  cfg.Telegram.APIBase,
		}, client)

		if cfg.Telegram.VerifyOnStart {
			verifyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			if err := notifier.Verify(verifyCtx); err != nil {
				return nil, err
			}
			logger.Info("telegram credentials verified")
		}
		return notifier, nil

	case app.ChannelNoop:
		return noop.NewSink(), nil

	default:
		return logsink.NewSink(logger), nil
	}
}

// runHTTPServer serves the status API and metrics until ctx is cancelled
func runHTTPServer(ctx context.Context, cfg *app.Config, engine domain.Provider, logger *slog.Logger) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.Logging(logger))
	router.Use(middleware.Recovery(logger))

	handler.NewHealthHandler().SetupRoutes(router)
	handler.NewStatusHandler(engine, logger).SetupRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
