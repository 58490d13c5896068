package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/josh-kwaku/budgetory/internal/logging"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout   = 5 * time.Second
	defaultCacheTTL  = 10 * time.Minute
	defaultCacheSize = 32
	maxResponseBytes = 1 << 20
)

type ProviderConfig struct {
	BaseURL   string
	Anchor    domain.Currency
	Timeout   time.Duration
	CacheTTL  time.Duration
	CacheSize int
}

// RateProvider fetches live rate tables and re-pivots them on the requested
// base. It never returns an error: when the live API cannot be used the
// static fallback table is served with IsFallback set.
type RateProvider struct {
	baseURL    string
	anchor     domain.Currency
	timeout    time.Duration
	httpClient *http.Client
	cache      *expirable.LRU[domain.Currency, RateSnapshot]
	group      singleflight.Group
	now        func() time.Time
}

func NewRateProvider(cfg ProviderConfig) *RateProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.Anchor == "" {
		cfg.Anchor = domain.CurrencyEUR
	}

	return &RateProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		anchor:  cfg.Anchor,
		timeout: cfg.Timeout,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache: expirable.NewLRU[domain.Currency, RateSnapshot](cfg.CacheSize, nil, cfg.CacheTTL),
		now:   time.Now,
	}
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (p *RateProvider) FetchRates(ctx context.Context, base domain.Currency) RateSnapshot {
	if snap, ok := p.cache.Get(base); ok {
		return snap.Clone()
	}
	return p.shared(ctx, base)
}

// Refresh bypasses the cache. A successful fetch replaces the cached entry;
// a failed one leaves it in place.
func (p *RateProvider) Refresh(ctx context.Context, base domain.Currency) RateSnapshot {
	return p.shared(ctx, base)
}

// shared collapses concurrent loads of one base. The load is detached from
// the first caller's cancellation so the other waiters still get live rates;
// fetchLive bounds it with the provider timeout.
func (p *RateProvider) shared(ctx context.Context, base domain.Currency) RateSnapshot {
	v, _, _ := p.group.Do(string(base), func() (any, error) {
		return p.load(context.WithoutCancel(ctx), base), nil
	})
	return v.(RateSnapshot).Clone()
}

func (p *RateProvider) load(ctx context.Context, base domain.Currency) RateSnapshot {
	log := logging.FromContext(ctx)

	snap, err := p.fetchLive(ctx, base)
	if err != nil {
		log.Warn("exchange rate fetch failed, serving fallback rates",
			"base", base,
			"error", err,
		)
		return FallbackRates(p.now())
	}

	p.cache.Add(base, snap)
	return snap
}

func (p *RateProvider) fetchLive(ctx context.Context, base domain.Currency) (RateSnapshot, error) {
	log := logging.FromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	url := p.baseURL + "/latest"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return RateSnapshot{}, fmt.Errorf("fetchLive: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return RateSnapshot{}, fmt.Errorf("fetchLive: send: %w", err)
	}
	defer resp.Body.Close()

	log.Debug("rate provider response received",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return RateSnapshot{}, fmt.Errorf("fetchLive: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var body latestResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return RateSnapshot{}, fmt.Errorf("fetchLive: decode: %w", err)
	}

	anchor := p.anchor
	if body.Base != "" {
		anchor = domain.Currency(body.Base)
	}

	rates := make(map[domain.Currency]decimal.Decimal, len(body.Rates)+1)
	for code, r := range body.Rates {
		c := domain.Currency(code)
		if !c.IsValid() || !r.IsPositive() {
			continue
		}
		rates[c] = r
	}
	if len(rates) == 0 {
		return RateSnapshot{}, fmt.Errorf("fetchLive: empty rate table")
	}
	rates[anchor] = decimal.NewFromInt(1)

	snap := RateSnapshot{
		Base:      anchor,
		Rates:     rates,
		AsOf:      body.Date,
		FetchedAt: p.now(),
	}
	if base == anchor {
		return snap, nil
	}

	pivoted, err := snap.Repivot(base)
	if err != nil {
		return RateSnapshot{}, fmt.Errorf("fetchLive: %w", err)
	}
	return pivoted, nil
}
