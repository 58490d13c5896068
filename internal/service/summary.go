package service

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/josh-kwaku/budgetory/internal/fx"
	"github.com/shopspring/decimal"
)

type TimeRange string

const (
	Range1D  TimeRange = "1D"
	Range7D  TimeRange = "7D"
	Range30D TimeRange = "30D"
	Range3M  TimeRange = "3M"
	Range6M  TimeRange = "6M"
	Range1Y  TimeRange = "1Y"
	RangeAll TimeRange = "ALL"
)

const maxSeriesPoints = 6

func ParseTimeRange(s string) (TimeRange, error) {
	r := TimeRange(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case "":
		return Range7D, nil
	case Range1D, Range7D, Range30D, Range3M, Range6M, Range1Y, RangeAll:
		return r, nil
	}
	return "", fmt.Errorf("ParseTimeRange %q: %w", s, domain.ErrInvalidRequest)
}

type CategoryTotal struct {
	CategoryID string
	Amount     decimal.Decimal
}

type SeriesPoint struct {
	Date   time.Time
	Amount decimal.Decimal
}

type Summary struct {
	Type       domain.TransactionType
	Range      TimeRange
	Currency   domain.Currency
	Start      time.Time
	Total      decimal.Decimal
	Categories []CategoryTotal
	Series     []SeriesPoint
	IsFallback bool
}

type SummaryService struct {
	store ledgerStore
	rates rateSource
	now   func() time.Time
}

func NewSummaryService(store ledgerStore, rates rateSource) *SummaryService {
	return &SummaryService{store: store, rates: rates, now: time.Now}
}

// Summary aggregates one transaction type over r: a per-category breakdown
// sorted by amount and a short series of day-bucketed totals ending today.
func (s *SummaryService) Summary(ctx context.Context, txType domain.TransactionType, r TimeRange, display domain.Currency) (*Summary, error) {
	if !txType.IsValid() {
		return nil, fmt.Errorf("Summary: %w", domain.ErrInvalidTransactionType)
	}
	if display == "" {
		display = domain.AccountingCurrency
	}
	if !display.IsValid() {
		return nil, fmt.Errorf("Summary: %w", domain.ErrInvalidCurrency)
	}

	now := s.now().UTC()
	txs := s.store.LoadTransactions(ctx)
	start := rangeStart(r, now)

	out := &Summary{
		Type:     txType,
		Range:    r,
		Currency: display,
		Start:    start,
		Total:    decimal.Zero,
	}

	convert := func(d decimal.Decimal) (decimal.Decimal, error) { return d, nil }
	if display != domain.AccountingCurrency {
		snap := s.rates.FetchRates(ctx, display)
		out.IsFallback = snap.IsFallback
		convert = func(d decimal.Decimal) (decimal.Decimal, error) {
			return fx.Convert(d, domain.AccountingCurrency, display, snap)
		}
	}

	byCategory := make(map[string]decimal.Decimal)
	var matching []domain.Transaction
	for _, t := range txs {
		if t.Type != txType || t.Date.Before(start) {
			continue
		}
		matching = append(matching, t)
		byCategory[t.CategoryID] = byCategory[t.CategoryID].Add(t.AccountingAmount)
		out.Total = out.Total.Add(t.AccountingAmount)
	}

	for id, amount := range byCategory {
		converted, err := convert(amount)
		if err != nil {
			return nil, fmt.Errorf("Summary: %w", err)
		}
		out.Categories = append(out.Categories, CategoryTotal{CategoryID: id, Amount: converted})
	}
	slices.SortFunc(out.Categories, func(a, b CategoryTotal) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return strings.Compare(a.CategoryID, b.CategoryID)
	})

	total, err := convert(out.Total)
	if err != nil {
		return nil, fmt.Errorf("Summary: %w", err)
	}
	out.Total = total

	for _, p := range buildSeries(matching, daysInRange(r, txs, now), now) {
		amount, err := convert(p.Amount)
		if err != nil {
			return nil, fmt.Errorf("Summary: %w", err)
		}
		p.Amount = amount
		out.Series = append(out.Series, p)
	}

	return out, nil
}

func rangeStart(r TimeRange, now time.Time) time.Time {
	switch r {
	case Range1D:
		return now.AddDate(0, 0, -1)
	case Range30D:
		return now.AddDate(0, 0, -30)
	case Range3M:
		return now.AddDate(0, -3, 0)
	case Range6M:
		return now.AddDate(0, -6, 0)
	case Range1Y:
		return now.AddDate(-1, 0, 0)
	case RangeAll:
		return time.Unix(0, 0).UTC()
	default:
		return now.AddDate(0, 0, -7)
	}
}

func daysInRange(r TimeRange, txs []domain.Transaction, now time.Time) int {
	switch r {
	case Range1D:
		return 1
	case Range30D:
		return 30
	case Range3M:
		return 90
	case Range6M:
		return 180
	case Range1Y:
		return 365
	case RangeAll:
		if len(txs) == 0 {
			return 365
		}
		oldest := now
		for _, t := range txs {
			if t.Date.Before(oldest) {
				oldest = t.Date
			}
		}
		days := int(math.Ceil(now.Sub(oldest).Hours() / 24))
		return max(days, 1)
	default:
		return 7
	}
}

// buildSeries splits the last days days into buckets of
// max(1, days/maxSeriesPoints) whole days, the last bucket ending today.
// Each point is dated by its bucket's final day and sums every transaction
// inside the bucket.
func buildSeries(txs []domain.Transaction, days int, now time.Time) []SeriesPoint {
	interval := max(1, days/maxSeriesPoints)
	points := int(math.Ceil(float64(days) / float64(interval)))
	today := startOfDay(now)

	series := make([]SeriesPoint, points)
	for i := range points {
		end := today.AddDate(0, 0, -(points-1-i)*interval)
		series[i] = SeriesPoint{Date: end, Amount: decimal.Zero}
	}

	for _, t := range txs {
		day := startOfDay(t.Date)
		for i := range series {
			end := series[i].Date
			begin := end.AddDate(0, 0, -(interval - 1))
			if !day.Before(begin) && !day.After(end) {
				series[i].Amount = series[i].Amount.Add(t.AccountingAmount)
				break
			}
		}
	}
	return series
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
