package fx

import (
	"context"
	"testing"

	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRates struct {
	snap  RateSnapshot
	bases []domain.Currency
}

func (s *stubRates) FetchRates(_ context.Context, base domain.Currency) RateSnapshot {
	s.bases = append(s.bases, base)
	return s.snap.Clone()
}

func newStubRates(fallback bool) *stubRates {
	snap := snapshotOf(domain.CurrencyUSD, map[domain.Currency]string{
		"USD": "1",
		"EUR": "0.9",
		"GBP": "0.8",
	})
	snap.IsFallback = fallback
	snap.AsOf = "2026-10-16"
	return &stubRates{snap: snap}
}

func TestGetRate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		from        domain.Currency
		to          domain.Currency
		wantRate    string
		wantFetch   bool
		wantErr     error
		wantMissing bool
	}{
		{name: "USD to EUR", from: "USD", to: "EUR", wantRate: "0.9", wantFetch: true},
		{name: "GBP to EUR", from: "GBP", to: "EUR", wantRate: "1.125", wantFetch: true},
		{name: "same currency", from: "USD", to: "USD", wantRate: "1"},
		{name: "invalid currency", from: "USD", to: "usd", wantErr: domain.ErrInvalidCurrency},
		{name: "currency without rate", from: "USD", to: "JPY", wantMissing: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rates := newStubRates(false)
			svc := NewService(rates)

			quote, err := svc.GetRate(ctx, tc.from, tc.to)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			if tc.wantMissing {
				var mre *domain.MissingRateError
				require.ErrorAs(t, err, &mre)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.from, quote.FromCurrency)
			assert.Equal(t, tc.to, quote.ToCurrency)
			assert.True(t, quote.Rate.Equal(decimal.RequireFromString(tc.wantRate)),
				"rate: got %s, want %s", quote.Rate, tc.wantRate)
			assert.Equal(t, tc.wantFetch, len(rates.bases) > 0)
		})
	}
}

func TestServiceConvert(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		amount       string
		from         domain.Currency
		to           domain.Currency
		fallback     bool
		wantDest     string
		wantFallback bool
		wantErr      error
	}{
		{name: "EUR to USD", amount: "90", from: "EUR", to: "USD", wantDest: "100"},
		{name: "USD to GBP", amount: "10", from: "USD", to: "GBP", wantDest: "8"},
		{name: "fallback provenance carried", amount: "10", from: "USD", to: "GBP", fallback: true, wantDest: "8", wantFallback: true},
		{name: "same currency passthrough", amount: "12.34", from: "EUR", to: "EUR", wantDest: "12.34"},
		{name: "zero amount", amount: "0", from: "USD", to: "EUR", wantErr: domain.ErrInvalidAmount},
		{name: "negative amount", amount: "-1", from: "USD", to: "EUR", wantErr: domain.ErrInvalidAmount},
		{name: "invalid currency", amount: "1", from: "USD", to: "", wantErr: domain.ErrInvalidCurrency},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(newStubRates(tc.fallback))

			conv, err := svc.Convert(ctx, decimal.RequireFromString(tc.amount), tc.from, tc.to)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.True(t, conv.DestAmount.Equal(decimal.RequireFromString(tc.wantDest)),
				"dest: got %s, want %s", conv.DestAmount, tc.wantDest)
			assert.Equal(t, tc.wantFallback, conv.IsFallback)
			assert.Equal(t, tc.from, conv.SourceCurrency)
			assert.Equal(t, tc.to, conv.DestCurrency)
		})
	}
}

func TestServiceConvert_FetchesTargetPivot(t *testing.T) {
	rates := newStubRates(false)
	svc := NewService(rates)

	_, err := svc.Convert(context.Background(), decimal.NewFromInt(5), "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, []domain.Currency{"USD"}, rates.bases)
}

func TestServiceRates(t *testing.T) {
	svc := NewService(newStubRates(true))

	snap, err := svc.Rates(context.Background(), "EUR")
	require.NoError(t, err)
	assert.True(t, snap.IsFallback)

	_, err = svc.Rates(context.Background(), "EURO")
	require.ErrorIs(t, err, domain.ErrInvalidCurrency)
}
