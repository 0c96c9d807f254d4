package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sdp-sandbox/github-audit-dashboard/internal/api"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/blobstore"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/config"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/loader"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/observability"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/policy"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/rules"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/session"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/statestore"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel)
	if cfg.Mode == config.ModeTUI {
		// bubbletea owns stdout in TUI mode; log lines go to a file or
		// nowhere.
		tuiLogger, logFile, err := observability.NewTUILogger(cfg.Observability.LogLevel, cfg.Observability.TUILogFile)
		if err != nil {
			return fmt.Errorf("failed to open TUI log file: %w", err)
		}
		if logFile != nil {
			defer logFile.Close()
		}
		logger = tuiLogger
	}
	logger.Info("starting github-audit-dashboard",
		"mode", cfg.Mode,
		"bucket", cfg.BucketName(),
		"log_level", cfg.Observability.LogLevel)

	_ = observability.GetMetrics()

	catalog, err := rules.Load()
	if err != nil {
		return fmt.Errorf("failed to load rule catalog: %w", err)
	}
	logger.Debug("rule catalog loaded",
		"rules", len(catalog.Names()))

	store, err := statestore.NewSQLiteStore(cfg.Loader.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to initialize snapshot store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("error closing snapshot store",
				"error", err.Error())
		}
	}()
	logger.Debug("snapshot store initialized",
		"path", cfg.Loader.SQLitePath)

	fetcher, err := blobstore.NewClient(blobstore.Config{
		Endpoint: cfg.StoreEndpoint,
		Bucket:   cfg.BucketName(),
		Timeout:  cfg.Loader.FetchTimeout,
		Retries:  cfg.Loader.FetchRetries,
		Backoff:  cfg.Loader.RetryBackoff,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize object store client: %w", err)
	}
	logger.Debug("object store client initialized",
		"endpoint", cfg.StoreEndpoint)

	dataLoader := loader.NewLoader(fetcher, catalog, store, cfg.Loader.CacheWindow, logger)
	logger.Debug("data loader initialized",
		"cache_window", cfg.Loader.CacheWindow)

	engine, err := policy.NewEngine(logger, policy.Config{
		Expression: cfg.SLO.BreachExpression,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize SLO policy engine: %w", err)
	}
	logger.Debug("SLO policy engine initialized",
		"expression", engine.Expression())

	if cfg.Mode == config.ModeTUI {
		// The interactive dashboard owns the terminal; no servers run.
		return tui.Run(dataLoader, engine, logger)
	}

	healthChecker := observability.NewHealthChecker(logger)
	healthChecker.RegisterComponent("config")
	healthChecker.RegisterComponent("database")
	healthChecker.RegisterComponent("object_store")
	healthChecker.RegisterComponent("api")

	healthChecker.UpdateComponentHealth("config", observability.StatusHealthy, "")
	healthChecker.UpdateComponentHealth("database", observability.StatusHealthy, "")
	healthChecker.UpdateComponentHealth("object_store", observability.StatusHealthy, "")

	obsServer := observability.NewServer(cfg.Observability.OpsPort, logger, healthChecker)

	sessions := session.NewStore(logger, catalog, cfg.API.SessionTTL)
	apiServer := api.NewAPIServer(&cfg.API, dataLoader, sessions, engine, logger)
	healthChecker.UpdateComponentHealth("api", observability.StatusHealthy, "")

	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := obsServer.Start(ctx); err != nil && err != context.Canceled {
			logger.Error("operations server error",
				"error", err.Error())
			errChan <- fmt.Errorf("operations server error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
			logger.Error("API server error",
				"error", err.Error())
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Expired sessions drop on access too; the sweep just keeps the gauge
	// honest while the dashboard sits idle.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(cfg.API.SessionTTL)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sessions.Sweep()
			}
		}
	}()

	logger.Info("all components started successfully",
		"api_port", cfg.API.Port,
		"ops_port", cfg.Observability.OpsPort)

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errChan:
		logger.Error("component error, initiating shutdown",
			"error", err.Error())
		cancel()
	}

	logger.Info("shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all components stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, forcing exit")
	}

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down API server",
			"error", err.Error())
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down operations server",
			"error", err.Error())
	}

	logger.Info("shutdown complete")
	return nil
}
