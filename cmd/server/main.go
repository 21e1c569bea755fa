/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the SGF deadline and compliance server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load configuration
  2. Initialize SQLite store and seed the configured holidays
  3. Build the engine on a calendar backed by the store
  4. Create API handler and router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML configuration file (default: $SGF_CONFIG)
  -port    HTTP server port, overrides config
  -db      SQLite database path, overrides config
           Use ":memory:" for in-memory database

ENVIRONMENT:
  SGF_CONFIG, SGF_PORT, SGF_DB_PATH, SGF_LOG_LEVEL

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  ./server -config=./sgf.yaml
  ./server -db=":memory:" -port=3000
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tjpa/sgf-engine/api"
	"github.com/tjpa/sgf-engine/calendar"
	"github.com/tjpa/sgf-engine/config"
	"github.com/tjpa/sgf-engine/engine"
	"github.com/tjpa/sgf-engine/feed"
	"github.com/tjpa/sgf-engine/logging"
	"github.com/tjpa/sgf-engine/store/sqlite"
)

func main() {
	configPath := flag.String("config", os.Getenv("SGF_CONFIG"), "YAML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg := config.LoadFile(*configPath, logging.New("info"))
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger := logging.New(cfg.Log.Level)
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	opts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}
	holidays, err := cfg.HolidayList()
	if err != nil {
		return err
	}

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	if err := api.SeedHolidays(context.Background(), store, holidays); err != nil {
		return err
	}

	eng, err := engine.New(calendar.New(store), engine.UUIDs{}, opts)
	if err != nil {
		return err
	}

	handler := api.NewHandler(store, eng, feed.NewBuilder(eng, cfg.FeedOptions()), logger)
	handler.Holidays = holidays

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handler, cfg.Server.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"addr", fmt.Sprintf("http://localhost:%d", cfg.Server.Port),
			"db", cfg.Database.Path,
			"holidays", len(holidays),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
