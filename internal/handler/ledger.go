package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/josh-kwaku/budgetory/internal/logging"
	"github.com/josh-kwaku/budgetory/internal/service"
)

type totalsService interface {
	Totals(ctx context.Context, display domain.Currency) (*service.TotalsView, error)
	Reconcile(ctx context.Context) (*service.ReconcileReport, error)
}

type summaryService interface {
	Summary(ctx context.Context, txType domain.TransactionType, r service.TimeRange, display domain.Currency) (*service.Summary, error)
}

type displayPreference interface {
	Get(ctx context.Context) domain.Settings
}

// LedgerHandler serves the read models over the ledger: totals and the
// chart summary. Both default to the saved display currency.
type LedgerHandler struct {
	totals   totalsService
	summary  summaryService
	settings displayPreference
}

func NewLedgerHandler(totals totalsService, summary summaryService, settings displayPreference) *LedgerHandler {
	return &LedgerHandler{totals: totals, summary: summary, settings: settings}
}

type totalsResponse struct {
	Currency           string `json:"currency"`
	TotalIncome        string `json:"total_income"`
	TotalExpense       string `json:"total_expense"`
	Balance            string `json:"balance"`
	AccountingCurrency string `json:"accounting_currency"`
	AccountingIncome   string `json:"accounting_income"`
	AccountingExpense  string `json:"accounting_expense"`
	IsFallback         bool   `json:"is_fallback"`
}

type reconcileResponse struct {
	Backfilled     int    `json:"backfilled"`
	Renormalized   int    `json:"renormalized"`
	Pending        int    `json:"pending"`
	TotalsRepaired bool   `json:"totals_repaired"`
	TotalIncome    string `json:"total_income"`
	TotalExpense   string `json:"total_expense"`
}

type categoryTotalDTO struct {
	CategoryID string `json:"category_id"`
	Amount     string `json:"amount"`
}

type seriesPointDTO struct {
	Date   string `json:"date"`
	Amount string `json:"amount"`
}

type summaryResponse struct {
	Type       string             `json:"type"`
	Range      string             `json:"range"`
	Currency   string             `json:"currency"`
	Start      string             `json:"start"`
	Total      string             `json:"total"`
	Categories []categoryTotalDTO `json:"categories"`
	Series     []seriesPointDTO   `json:"series"`
	IsFallback bool               `json:"is_fallback"`
}

func (h *LedgerHandler) display(r *http.Request) (domain.Currency, *FieldError) {
	code := strings.ToUpper(r.URL.Query().Get("currency"))
	if code == "" {
		return h.settings.Get(r.Context()).DisplayCurrency, nil
	}
	if !domain.Currency(code).IsValid() {
		return "", &FieldError{Field: "currency", Message: "must be a 3-letter currency code"}
	}
	return domain.Currency(code), nil
}

func (h *LedgerHandler) Totals(w http.ResponseWriter, r *http.Request) {
	display, fieldErr := h.display(r)
	if fieldErr != nil {
		RespondValidationError(w, []FieldError{*fieldErr})
		return
	}

	view, err := h.totals.Totals(r.Context(), display)
	if err != nil {
		logging.FromContext(r.Context()).Warn("totals lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, totalsResponse{
		Currency:           string(view.Currency),
		TotalIncome:        view.Income.String(),
		TotalExpense:       view.Expense.String(),
		Balance:            view.Balance.String(),
		AccountingCurrency: string(domain.AccountingCurrency),
		AccountingIncome:   view.AccountingIncome.String(),
		AccountingExpense:  view.AccountingExpense.String(),
		IsFallback:         view.IsFallback,
	})
}

func (h *LedgerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.totals.Reconcile(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("reconcile failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, reconcileResponse{
		Backfilled:     report.Backfilled,
		Renormalized:   report.Renormalized,
		Pending:        report.Pending,
		TotalsRepaired: report.TotalsRepaired,
		TotalIncome:    report.Totals.Income.String(),
		TotalExpense:   report.Totals.Expense.String(),
	})
}

func (h *LedgerHandler) Summary(w http.ResponseWriter, r *http.Request) {
	var fields []FieldError

	txType := domain.TransactionType(strings.ToLower(r.URL.Query().Get("type")))
	if txType == "" {
		txType = domain.TransactionTypeExpense
	}
	if !txType.IsValid() {
		fields = append(fields, FieldError{Field: "type", Message: "must be income or expense"})
	}

	timeRange, err := service.ParseTimeRange(r.URL.Query().Get("range"))
	if err != nil {
		fields = append(fields, FieldError{Field: "range", Message: "must be one of 1D, 7D, 30D, 3M, 6M, 1Y, ALL"})
	}

	display, fieldErr := h.display(r)
	if fieldErr != nil {
		fields = append(fields, *fieldErr)
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	sum, err := h.summary.Summary(r.Context(), txType, timeRange, display)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	resp := summaryResponse{
		Type:       string(sum.Type),
		Range:      string(sum.Range),
		Currency:   string(sum.Currency),
		Start:      sum.Start.Format("2006-01-02T15:04:05Z07:00"),
		Total:      sum.Total.String(),
		Categories: make([]categoryTotalDTO, len(sum.Categories)),
		Series:     make([]seriesPointDTO, len(sum.Series)),
		IsFallback: sum.IsFallback,
	}
	for i, c := range sum.Categories {
		resp.Categories[i] = categoryTotalDTO{CategoryID: c.CategoryID, Amount: c.Amount.String()}
	}
	for i, p := range sum.Series {
		resp.Series[i] = seriesPointDTO{Date: p.Date.Format("2006-01-02"), Amount: p.Amount.String()}
	}

	RespondSuccess(w, http.StatusOK, resp)
}
