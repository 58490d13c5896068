package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/josh-kwaku/budgetory/internal/domain"
)

// RateWarmer keeps the rate cache hot for the currencies the ledger reads
// most: the accounting currency and the current display currency.
type RateWarmer struct {
	rates    rateRefresher
	settings settingsStore
	logger   *slog.Logger
	interval time.Duration
}

func NewRateWarmer(rates rateRefresher, settings settingsStore, logger *slog.Logger, interval time.Duration) *RateWarmer {
	return &RateWarmer{
		rates:    rates,
		settings: settings,
		logger:   logger,
		interval: interval,
	}
}

func (w *RateWarmer) Start(ctx context.Context) {
	w.logger.Info("rate warmer started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("rate warmer stopped")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *RateWarmer) poll(ctx context.Context) {
	bases := []domain.Currency{domain.AccountingCurrency}
	if display := w.settings.Load(ctx).DisplayCurrency; display != domain.AccountingCurrency {
		bases = append(bases, display)
	}

	for _, base := range bases {
		snap := w.rates.Refresh(ctx, base)
		if snap.IsFallback {
			w.logger.Warn("rate refresh fell back to static rates", "base", base)
			continue
		}
		w.logger.Debug("rates refreshed", "base", base, "as_of", snap.AsOf)
	}
}
