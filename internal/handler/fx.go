package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/josh-kwaku/budgetory/internal/fx"
	"github.com/josh-kwaku/budgetory/internal/logging"
	"github.com/shopspring/decimal"
)

type fxService interface {
	Rates(ctx context.Context, base domain.Currency) (fx.RateSnapshot, error)
	GetRate(ctx context.Context, from, to domain.Currency) (*fx.Quote, error)
	Convert(ctx context.Context, amount decimal.Decimal, from, to domain.Currency) (*fx.Conversion, error)
}

type FXHandler struct {
	fx fxService
}

func NewFXHandler(fxSvc fxService) *FXHandler {
	return &FXHandler{fx: fxSvc}
}

type rateTableResponse struct {
	Base       string            `json:"base"`
	AsOf       string            `json:"as_of,omitempty"`
	FetchedAt  string            `json:"fetched_at"`
	IsFallback bool              `json:"is_fallback"`
	Rates      map[string]string `json:"rates"`
}

type fxRateResponse struct {
	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency"`
	Rate         string `json:"rate"`
	AsOf         string `json:"as_of,omitempty"`
	IsFallback   bool   `json:"is_fallback"`
	Timestamp    string `json:"timestamp"`
}

type conversionResponse struct {
	SourceAmount   string `json:"source_amount"`
	SourceCurrency string `json:"source_currency"`
	DestAmount     string `json:"dest_amount"`
	DestCurrency   string `json:"dest_currency"`
	Rate           string `json:"rate"`
	IsFallback     bool   `json:"is_fallback"`
}

func (h *FXHandler) GetRates(w http.ResponseWriter, r *http.Request) {
	base := strings.ToUpper(r.URL.Query().Get("base"))
	if base == "" {
		base = string(domain.AccountingCurrency)
	}
	if !domain.Currency(base).IsValid() {
		RespondValidationError(w, []FieldError{{Field: "base", Message: "must be a 3-letter currency code"}})
		return
	}

	snap, err := h.fx.Rates(r.Context(), domain.Currency(base))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	rates := make(map[string]string, len(snap.Rates))
	for c, v := range snap.Rates {
		rates[string(c)] = v.String()
	}
	RespondSuccess(w, http.StatusOK, rateTableResponse{
		Base:       string(snap.Base),
		AsOf:       snap.AsOf,
		FetchedAt:  snap.FetchedAt.UTC().Format(time.RFC3339),
		IsFallback: snap.IsFallback,
		Rates:      rates,
	})
}

func (h *FXHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	from := strings.ToUpper(r.URL.Query().Get("from"))
	to := strings.ToUpper(r.URL.Query().Get("to"))

	if fields := validateCurrencyPair(from, to); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	quote, err := h.fx.GetRate(r.Context(), domain.Currency(from), domain.Currency(to))
	if err != nil {
		logging.FromContext(r.Context()).Warn("fx rate lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, fxRateResponse{
		FromCurrency: string(quote.FromCurrency),
		ToCurrency:   string(quote.ToCurrency),
		Rate:         quote.Rate.String(),
		AsOf:         quote.AsOf,
		IsFallback:   quote.IsFallback,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *FXHandler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := strings.ToUpper(q.Get("from"))
	to := strings.ToUpper(q.Get("to"))

	fields := validateCurrencyPair(from, to)
	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		fields = append(fields, FieldError{Field: "amount", Message: "must be a decimal number"})
	} else if !amount.IsPositive() {
		fields = append(fields, FieldError{Field: "amount", Message: "must be greater than zero"})
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	conv, err := h.fx.Convert(r.Context(), amount, domain.Currency(from), domain.Currency(to))
	if err != nil {
		logging.FromContext(r.Context()).Warn("conversion failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, conversionResponse{
		SourceAmount:   conv.SourceAmount.String(),
		SourceCurrency: string(conv.SourceCurrency),
		DestAmount:     conv.DestAmount.String(),
		DestCurrency:   string(conv.DestCurrency),
		Rate:           conv.Rate.String(),
		IsFallback:     conv.IsFallback,
	})
}

func validateCurrencyPair(from, to string) []FieldError {
	var errs []FieldError

	if from == "" {
		errs = append(errs, FieldError{Field: "from", Message: "required"})
	} else if !domain.Currency(from).IsValid() {
		errs = append(errs, FieldError{Field: "from", Message: "must be a 3-letter currency code"})
	}

	if to == "" {
		errs = append(errs, FieldError{Field: "to", Message: "required"})
	} else if !domain.Currency(to).IsValid() {
		errs = append(errs, FieldError{Field: "to", Message: "must be a 3-letter currency code"})
	}

	return errs
}
