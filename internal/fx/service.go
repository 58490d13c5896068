package fx

import (
	"context"
	"fmt"

	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/shopspring/decimal"
)

type rateSource interface {
	FetchRates(ctx context.Context, base domain.Currency) RateSnapshot
}

type Quote struct {
	FromCurrency domain.Currency
	ToCurrency   domain.Currency
	Rate         decimal.Decimal
	AsOf         string
	IsFallback   bool
}

type Conversion struct {
	SourceAmount   decimal.Decimal
	SourceCurrency domain.Currency
	DestAmount     decimal.Decimal
	DestCurrency   domain.Currency
	Rate           decimal.Decimal
	IsFallback     bool
}

// Service answers rate and conversion questions against whatever snapshot
// the rate source currently serves.
type Service struct {
	rates rateSource
}

func NewService(rates rateSource) *Service {
	return &Service{rates: rates}
}

func (s *Service) Rates(ctx context.Context, base domain.Currency) (RateSnapshot, error) {
	if !base.IsValid() {
		return RateSnapshot{}, fmt.Errorf("Rates: base %q: %w", base, domain.ErrInvalidCurrency)
	}
	return s.rates.FetchRates(ctx, base), nil
}

func (s *Service) GetRate(ctx context.Context, from, to domain.Currency) (*Quote, error) {
	if !from.IsValid() || !to.IsValid() {
		return nil, fmt.Errorf("GetRate: invalid currency pair %s/%s: %w", from, to, domain.ErrInvalidCurrency)
	}

	if from == to {
		return &Quote{
			FromCurrency: from,
			ToCurrency:   to,
			Rate:         decimal.NewFromInt(1),
		}, nil
	}

	snap := s.rates.FetchRates(ctx, from)
	rate, err := Convert(decimal.NewFromInt(1), from, to, snap)
	if err != nil {
		return nil, fmt.Errorf("GetRate: %w", err)
	}

	return &Quote{
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         rate,
		AsOf:         snap.AsOf,
		IsFallback:   snap.IsFallback,
	}, nil
}

// Convert fetches rates pivoted on the target currency and converts amount.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to domain.Currency) (*Conversion, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("Convert: %w", domain.ErrInvalidAmount)
	}
	if !from.IsValid() || !to.IsValid() {
		return nil, fmt.Errorf("Convert: invalid currency pair %s/%s: %w", from, to, domain.ErrInvalidCurrency)
	}

	if from == to {
		return &Conversion{
			SourceAmount:   amount,
			SourceCurrency: from,
			DestAmount:     amount,
			DestCurrency:   to,
			Rate:           decimal.NewFromInt(1),
		}, nil
	}

	snap := s.rates.FetchRates(ctx, to)
	dest, err := Convert(amount, from, to, snap)
	if err != nil {
		return nil, fmt.Errorf("Convert: %w", err)
	}
	rate, err := Convert(decimal.NewFromInt(1), from, to, snap)
	if err != nil {
		return nil, fmt.Errorf("Convert: %w", err)
	}

	return &Conversion{
		SourceAmount:   amount,
		SourceCurrency: from,
		DestAmount:     dest,
		DestCurrency:   to,
		Rate:           rate,
		IsFallback:     snap.IsFallback,
	}, nil
}
