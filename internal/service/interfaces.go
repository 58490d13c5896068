package service

import (
	"context"

	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/josh-kwaku/budgetory/internal/fx"
	"github.com/shopspring/decimal"
)

type ledgerStore interface {
	Load(ctx context.Context) domain.LedgerSnapshot
	LoadTransactions(ctx context.Context) []domain.Transaction
	LoadTotals(ctx context.Context) domain.Totals
	Persist(ctx context.Context, snap domain.LedgerSnapshot) error
	SaveTotals(ctx context.Context, income, expense decimal.Decimal) error
}

type settingsStore interface {
	Load(ctx context.Context) domain.Settings
	Save(ctx context.Context, settings domain.Settings) error
}

type rateSource interface {
	FetchRates(ctx context.Context, base domain.Currency) fx.RateSnapshot
}

type rateRefresher interface {
	Refresh(ctx context.Context, base domain.Currency) fx.RateSnapshot
}
