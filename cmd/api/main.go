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

	"github.com/josh-kwaku/budgetory/internal/config"
	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/josh-kwaku/budgetory/internal/fx"
	"github.com/josh-kwaku/budgetory/internal/handler"
	"github.com/josh-kwaku/budgetory/internal/logging"
	"github.com/josh-kwaku/budgetory/internal/middleware"
	"github.com/josh-kwaku/budgetory/internal/repository"
	"github.com/josh-kwaku/budgetory/internal/service"
)

type kvBackend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	MultiGet(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
	MultiSet(ctx context.Context, pairs ...repository.KeyValue) error
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("budgetory-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	rates := fx.NewRateProvider(fx.ProviderConfig{
		BaseURL:   cfg.RatesBaseURL,
		Anchor:    domain.Currency(cfg.RatesAnchor),
		Timeout:   cfg.RatesTimeout,
		CacheTTL:  cfg.RatesCacheTTL,
		CacheSize: cfg.RatesCacheSize,
	})
	fxSvc := fx.NewService(rates)

	ledgerStore := repository.NewLedgerStore(kv)
	settingsStore := repository.NewSettingsStore(kv)
	idempotencyRepo := repository.NewIdempotencyRepository(kv)

	ledgerSvc := service.NewLedgerService(ledgerStore, rates)
	summarySvc := service.NewSummaryService(ledgerStore, rates)
	settingsSvc := service.NewSettingsService(settingsStore)
	exportSvc := service.NewExportService(ledgerStore)

	startupCtx := logging.WithLogger(ctx, logger)
	if report, err := ledgerSvc.Reconcile(startupCtx); err != nil {
		slog.Warn("startup reconcile failed", "error", err)
	} else if report.Backfilled+report.Renormalized > 0 || report.TotalsRepaired {
		slog.Info("ledger reconciled",
			"backfilled", report.Backfilled,
			"renormalized", report.Renormalized,
			"pending", report.Pending,
			"totals_repaired", report.TotalsRepaired,
		)
	}

	if cfg.RatesRefreshInterval > 0 {
		warmer := service.NewRateWarmer(rates, settingsStore, logger, cfg.RatesRefreshInterval)
		go warmer.Start(ctx)
	}

	if cfg.IdempotencySweepInterval > 0 {
		sweeper := service.NewIdempotencySweeper(idempotencyRepo, logger, cfg.IdempotencySweepInterval)
		go sweeper.Start(ctx)
	}

	healthHandler := handler.NewHealthHandler(kv, cfg.StorageBackend)
	txHandler := handler.NewTransactionHandler(ledgerSvc, exportSvc)
	ledgerHandler := handler.NewLedgerHandler(ledgerSvc, summarySvc, settingsSvc)
	settingsHandler := handler.NewSettingsHandler(settingsSvc)
	fxHandler := handler.NewFXHandler(fxSvc)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)

	mux.HandleFunc("GET /api/v1/transactions", txHandler.List)
	mux.HandleFunc("POST /api/v1/transactions", txHandler.Create)
	mux.HandleFunc("PUT /api/v1/transactions", txHandler.Replace)
	mux.HandleFunc("GET /api/v1/transactions/export", txHandler.Export)
	mux.HandleFunc("DELETE /api/v1/transactions/{id}", txHandler.Delete)

	mux.HandleFunc("GET /api/v1/totals", ledgerHandler.Totals)
	mux.HandleFunc("POST /api/v1/totals/reconcile", ledgerHandler.Reconcile)
	mux.HandleFunc("GET /api/v1/summary", ledgerHandler.Summary)

	mux.HandleFunc("GET /api/v1/settings", settingsHandler.Get)
	mux.HandleFunc("PUT /api/v1/settings", settingsHandler.Update)
	mux.HandleFunc("GET /api/v1/currencies", settingsHandler.Currencies)

	mux.HandleFunc("GET /api/v1/rates", fxHandler.GetRates)
	mux.HandleFunc("GET /api/v1/rates/quote", fxHandler.GetRate)
	mux.HandleFunc("GET /api/v1/convert", fxHandler.Convert)

	var h http.Handler = mux
	h = middleware.Idempotency(idempotencyRepo)(h)
	h = middleware.Recovery(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Tracing(h)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr, "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (kvBackend, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return repository.NewMemoryStore(), nil
	case config.BackendPostgres:
		db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
			MaxOpenConns:     cfg.DBMaxOpenConns,
			MaxIdleConns:     cfg.DBMaxIdleConns,
			ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
			ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
		})
		if err != nil {
			return nil, fmt.Errorf("openStore: %w", err)
		}
		return repository.NewSQLStore(db, repository.DialectPostgres), nil
	default:
		db, err := repository.NewSQLiteDB(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("openStore: %w", err)
		}
		return repository.NewSQLStore(db, repository.DialectSQLite), nil
	}
}
