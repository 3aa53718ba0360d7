// Command api is the Season Pass Manager sync server.
//
// Usage:
//
//	spm-api
//	API_PORT=8080 SPM_SYNC_STORE_DRIVER=sqlite spm-api

// @title Season Pass Manager Sync API
// @version 2.0.0
// @description Cloud backup store for season pass data plus a cached team schedule proxy.
// @host localhost:8787
// @BasePath /
// @schemes http https
// @contact.name Season Pass Manager
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/api"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/cache"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/config"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/provider"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/provider/espn"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/provider/ticketmaster"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/syncstore"

	_ "github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	level := slog.LevelInfo
	if err == nil && cfg.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
	if err == nil && cfg.IsProduction() {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	slog.SetDefault(logger)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Open sync store
	logger.Info("Opening sync store...", "driver", cfg.SyncStoreDriver)
	store, err := syncstore.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open sync store", "driver", cfg.SyncStoreDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("Sync store ready", "driver", cfg.SyncStoreDriver)

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	defer appCache.Close()
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// Schedule sources: ESPN first, Ticketmaster as fallback
	sources := []provider.Source{espn.NewClient("", 120, logger.With("source", "espn"))}
	if cfg.TicketmasterAPIKey != "" {
		sources = append(sources, ticketmaster.NewClient("", cfg.TicketmasterAPIKey, 60, logger.With("source", "ticketmaster")))
	} else {
		logger.Info("Ticketmaster fallback disabled (no TICKETMASTER_API_KEY)")
	}
	schedule := provider.NewChain(cfg.ScheduleTimeout, logger, sources...)

	// Create router
	router := api.NewRouter(store, appCache, schedule, cfg, logger)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Season Pass Manager sync API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
