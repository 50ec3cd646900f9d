package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/analysis"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/broker/brokerobs"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/broker/deriv"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/broker/sim"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/interfaces"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/logger"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/persistence"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/store"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/trace"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/tradelog"
)

// initializeSystem initializes logger and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize tracer
	if err := trace.Init("wakhungu28ai", version); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads the configuration, falling back to defaults when no
// config file is present
func loadConfig(ctx context.Context) *store.Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn(ctx, "No config file found, using defaults", "path", path)
			return store.DefaultConfig()
		}
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		os.Exit(1)
	}
	return cfg
}

// compressOldLogs points the trade journal at its configured directory
// and compresses files past retention
func compressOldLogs(ctx context.Context, cfg *store.Config) {
	if os.Getenv("TRADER_LOG_DIR") == "" {
		os.Setenv("TRADER_LOG_DIR", cfg.TradeLog.Dir)
	}
	if err := tradelog.CompressOlder(cfg.TradeLog.CompressAfterDays); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
}

// initializeRepository opens the document store
func initializeRepository(ctx context.Context, cfg *store.Config) persistence.Repository {
	repo, err := persistence.NewBadgerRepository(cfg.Storage.Path, cfg.Storage.InMemory)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open storage", err, "path", cfg.Storage.Path)
		os.Exit(1)
	}
	logger.Info(ctx, "Storage opened",
		"path", cfg.Storage.Path, "in_memory", cfg.Storage.InMemory)
	return repo
}

// initializeBroker connects the broker for the configured mode with
// observability
func initializeBroker(ctx context.Context, cfg *store.Config) interfaces.Broker {
	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - contracts will be simulated")
		return brokerobs.Wrap(sim.New())
	}

	client, err := deriv.Dial(ctx, deriv.Options{
		Endpoint:     cfg.Deriv.Endpoint,
		AppID:        cfg.Deriv.AppID,
		PingInterval: cfg.Deriv.PingInterval,
		CallTimeout:  cfg.Deriv.CallTimeout,
	})
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to connect to broker", err, "endpoint", cfg.Deriv.Endpoint)
		os.Exit(1)
	}

	if token := os.Getenv(cfg.Deriv.APITokenEnv); token != "" {
		if _, err := client.Authorize(ctx, token); err != nil {
			logger.ErrorWithErr(ctx, "Service account authorization failed", err)
			os.Exit(1)
		}
	} else {
		logger.Warn(ctx, "No service API token configured",
			"env", cfg.Deriv.APITokenEnv)
	}

	logger.Info(ctx, "Connected to broker", "endpoint", cfg.Deriv.Endpoint)
	return brokerobs.Wrap(client)
}

// initializeAnalysis builds the signal source over the tick window
func initializeAnalysis(cfg *store.Config, repo persistence.Repository) *analysis.Service {
	return analysis.NewService(analysis.Config{
		WindowSize:      cfg.Analysis.WindowSize,
		MinSample:       cfg.Analysis.MinSample,
		ParityMargin:    cfg.Analysis.ParityMargin,
		OverUnderMargin: cfg.Analysis.OverUnderMargin,
	}, cfg.Analysis.CacheTTL, repo)
}
