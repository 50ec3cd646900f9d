package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/logger"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/registry"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/reporter"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/server"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/tickfeed"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/trace"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

const version = "1.0.0"

func main() {
	if err := initializeSystem(); err != nil {
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := loadConfig(ctx)
	compressOldLogs(ctx, cfg)

	repo := initializeRepository(ctx, cfg)
	defer repo.Close()

	broker := initializeBroker(ctx, cfg)
	defer broker.Close()

	signals := initializeAnalysis(cfg, repo)
	hub := server.NewHub()
	go hub.Run(ctx)

	reg := registry.New(repo, broker, signals, hub)

	feed := tickfeed.New(broker, repo, hub, cfg.Storage.TickRetention)
	symbols := make([]string, 0, len(types.Markets))
	for _, m := range types.Markets {
		symbols = append(symbols, m.Symbol)
	}
	go feed.Run(ctx, symbols)

	srv := server.New(reg, repo, signals, broker, hub, cfg.Mode, version)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info(ctx, "HTTP server listening", "addr", cfg.Server.Addr, "mode", cfg.Mode)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorWithErr(ctx, "HTTP server failed", err)
			cancel()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info(ctx, "Shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	reg.Shutdown(shutdownCtx)
	_ = httpServer.Shutdown(shutdownCtx)

	printFleetSummary(reg)

	cancel()
	_ = trace.Shutdown(shutdownCtx)
	_ = logger.Shutdown(shutdownCtx)
}

// printFleetSummary renders the final session table to the console.
func printFleetSummary(reg *registry.Registry) {
	bots, err := reg.List()
	if err != nil || len(bots) == 0 {
		return
	}
	statuses := make([]types.BotStatus, 0, len(bots))
	for _, spec := range bots {
		if status, err := reg.Status(spec.ID); err == nil {
			statuses = append(statuses, status)
		}
	}
	reporter.New().FleetSummary(statuses)
}
