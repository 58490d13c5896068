package fx

import (
	"fmt"
	"maps"
	"time"

	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/shopspring/decimal"
)

// RateSnapshot is a point-in-time table of "units of currency per 1 Base".
type RateSnapshot struct {
	Base       domain.Currency
	Rates      map[domain.Currency]decimal.Decimal
	AsOf       string
	FetchedAt  time.Time
	IsFallback bool
}

var fallbackRates = map[domain.Currency]string{
	domain.CurrencyUSD: "1.0",
	domain.CurrencyEUR: "0.91",
	domain.CurrencyGBP: "0.79",
	domain.CurrencyTRY: "29.5",
}

// FallbackRates returns the static USD-pivoted table served when live rates
// are unavailable.
func FallbackRates(now time.Time) RateSnapshot {
	rates := make(map[domain.Currency]decimal.Decimal, len(fallbackRates))
	for c, r := range fallbackRates {
		rates[c] = decimal.RequireFromString(r)
	}
	return RateSnapshot{
		Base:       domain.CurrencyUSD,
		Rates:      rates,
		FetchedAt:  now,
		IsFallback: true,
	}
}

// Rate returns the factor for c. Zero or negative factors count as missing.
func (s RateSnapshot) Rate(c domain.Currency) (decimal.Decimal, bool) {
	r, ok := s.Rates[c]
	if !ok || !r.IsPositive() {
		return decimal.Zero, false
	}
	return r, true
}

func (s RateSnapshot) Clone() RateSnapshot {
	s.Rates = maps.Clone(s.Rates)
	return s
}

// Repivot expresses every rate against base: rate[c] / rate[base].
func (s RateSnapshot) Repivot(base domain.Currency) (RateSnapshot, error) {
	if base == s.Base {
		return s.Clone(), nil
	}
	baseRate, ok := s.Rate(base)
	if !ok {
		return RateSnapshot{}, fmt.Errorf("Repivot: %w", &domain.MissingRateError{Currency: base})
	}

	rates := make(map[domain.Currency]decimal.Decimal, len(s.Rates))
	for c, r := range s.Rates {
		if c == base {
			rates[c] = decimal.NewFromInt(1)
			continue
		}
		rates[c] = r.Div(baseRate)
	}

	out := s
	out.Base = base
	out.Rates = rates
	return out, nil
}
