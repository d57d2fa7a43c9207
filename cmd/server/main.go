/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the time-off engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env and parse command-line flags
  2. Load YAML configuration (defaults < file < env < flags)
  3. Open the store (memory or SQLite)
  4. Seed the directory, policy catalog, and opening balances
  5. Configure the HTTP router
  6. Start the server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML configuration file (optional)
  -port    HTTP server port (overrides config)
  -store   Store driver: "memory" or "sqlite" (overrides config)
  -db      SQLite database path (overrides config)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the database connection
  4. Exit

EXAMPLES:
  # Run in-memory with the stock configuration
  ./server

  # Run with a config file and persistent SQLite
  ./server -config=./timeoff.yaml -store=sqlite -db=./data/timeoff.db

ENVIRONMENT:
  TIMEOFF_PORT, TIMEOFF_STORE_DRIVER, TIMEOFF_DB_PATH (see config package).
  A .env file in the working directory is loaded first.

SEE ALSO:
  - config/config.go: Configuration loading and validation
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/meridian/timeoff-engine/api"
	"github.com/meridian/timeoff-engine/config"
	"github.com/meridian/timeoff-engine/directory"
	"github.com/meridian/timeoff-engine/ledger"
	"github.com/meridian/timeoff-engine/policy"
	"github.com/meridian/timeoff-engine/store/memory"
	"github.com/meridian/timeoff-engine/store/sqlite"
	"github.com/meridian/timeoff-engine/workflow"
)

// dataStore is what both store implementations provide: balances with their
// ledger, plus request persistence.
type dataStore interface {
	ledger.Store
	workflow.RequestStore
	api.BalanceStore
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// .env before flags so TIMEOFF_* variables take effect in config.Load.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "YAML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	driver := flag.String("store", "", `store driver: "memory" or "sqlite" (overrides config)`)
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *driver != "" {
		cfg.Store.Driver = *driver
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}

	// Store
	var store dataStore
	switch cfg.Store.Driver {
	case "sqlite":
		db, err := sqlite.New(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		store = db
	case "memory":
		store = memory.New()
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	logger.Info("store ready", "driver", cfg.Store.Driver)

	// Directory and seed data
	ctx := context.Background()
	dir := directory.NewInMemory()
	policies, err := cfg.DomainPolicies()
	if err != nil {
		return err
	}
	for _, p := range policies {
		if err := dir.SavePolicy(ctx, p); err != nil {
			return fmt.Errorf("seed policy %s: %w", p.ID, err)
		}
	}
	employees, err := cfg.SeedEmployees()
	if err != nil {
		return err
	}
	for _, e := range employees {
		if err := dir.SaveEmployee(ctx, e); err != nil {
			return fmt.Errorf("seed employee %s: %w", e.ID, err)
		}
	}
	if err := seedBalances(ctx, store, policies, employees, cfg); err != nil {
		return err
	}
	logger.Info("directory seeded", "policies", len(policies), "employees", len(employees))

	// Services
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}
	settingsStore := config.NewSettingsStore(settings)
	ledgerSvc := ledger.NewService(store)
	workflowSvc := &workflow.Service{
		Requests:  store,
		Ledger:    ledgerSvc,
		Balances:  store,
		Policies:  dir,
		Employees: dir,
		Settings:  settingsStore,
	}

	scheduler := &workflow.Scheduler{
		Ledger:   ledgerSvc,
		Balances: store,
		Roster:   dir,
		Catalog:  dir,
		Logger:   logger,
	}
	scheduler.Start()
	defer scheduler.Stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler := &api.Handler{
		Workflow:  workflowSvc,
		Scheduler: scheduler,
		Ledger:    ledgerSvc,
		Balances:  store,
		Employees: dir,
		Policies:  dir,
		Settings:  settingsStore,
		Metrics:   api.NewMetrics(registry),
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handler, logger, registry),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// seedBalances creates the opening balance for every employee+policy pair
// that does not have one yet. Existing balances are left alone, so restarts
// against a persistent store never reset anyone's days.
func seedBalances(ctx context.Context, store dataStore, policies []policy.Policy, employees []directory.Employee, cfg config.Config) error {
	openings := cfg.OpeningBalances()
	for _, e := range employees {
		for _, p := range policies {
			_, err := store.Balance(ctx, e.ID, p.ID)
			if err == nil {
				continue
			}
			if !errors.Is(err, ledger.ErrBalanceNotFound) {
				return err
			}
			if err := store.SaveBalance(ctx, p.NewBalance(e.ID, openings[p.ID])); err != nil {
				return fmt.Errorf("seed balance %s/%s: %w", e.ID, p.ID, err)
			}
		}
	}
	return nil
}
