package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/josh-kwaku/budgetory/internal/logging"
	"github.com/josh-kwaku/budgetory/internal/service"
	"github.com/shopspring/decimal"
)

type ledgerService interface {
	Transactions(ctx context.Context) []domain.Transaction
	AddTransaction(ctx context.Context, in service.NewTransaction) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	ReplaceTransactions(ctx context.Context, list []domain.Transaction) ([]domain.Transaction, error)
}

type exportService interface {
	ExportTransactions(ctx context.Context, format service.ExportFormat) ([]byte, error)
}

type TransactionHandler struct {
	ledger  ledgerService
	exports exportService
}

func NewTransactionHandler(ledger ledgerService, exports exportService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger, exports: exports}
}

// transactionRequest has no accounting amount: it is always derived
// server-side from amount and currency.
type transactionRequest struct {
	ID          string          `json:"id,omitempty"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	CategoryID  string          `json:"category_id"`
	Date        *time.Time      `json:"date,omitempty"`
}

func (r transactionRequest) Validate(prefix string) []FieldError {
	var errs []FieldError
	if !domain.TransactionType(r.Type).IsValid() {
		errs = append(errs, FieldError{Field: prefix + "type", Message: "must be income or expense"})
	}
	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: prefix + "amount", Message: "must be greater than zero"})
	}
	if r.Currency != "" && !domain.Currency(strings.ToUpper(r.Currency)).IsValid() {
		errs = append(errs, FieldError{Field: prefix + "currency", Message: "must be a 3-letter currency code"})
	}
	if len(r.Description) > 200 {
		errs = append(errs, FieldError{Field: prefix + "description", Message: "must be at most 200 characters"})
	}
	return errs
}

func (r transactionRequest) toDomain() domain.Transaction {
	t := domain.Transaction{
		ID:          r.ID,
		Type:        domain.TransactionType(r.Type),
		Amount:      r.Amount,
		Currency:    domain.Currency(strings.ToUpper(r.Currency)),
		Description: strings.TrimSpace(r.Description),
		CategoryID:  r.CategoryID,
	}
	if r.Date != nil {
		t.Date = *r.Date
	}
	return t
}

type transactionDTO struct {
	ID               string    `json:"id"`
	Type             string    `json:"type"`
	Amount           string    `json:"amount"`
	Currency         string    `json:"currency"`
	Description      string    `json:"description"`
	CategoryID       string    `json:"category_id"`
	Date             time.Time `json:"date"`
	AccountingAmount *string   `json:"accounting_amount"`
	ProvisionalRate  bool      `json:"provisional_rate,omitempty"`
}

func toTransactionDTO(t domain.Transaction) transactionDTO {
	dto := transactionDTO{
		ID:          t.ID,
		Type:        string(t.Type),
		Amount:      t.Amount.String(),
		Currency:    string(t.Currency),
		Description: t.Description,
		CategoryID:  t.CategoryID,
		Date:        t.Date,
	}
	dto.ProvisionalRate = t.ProvisionalRate
	if t.Normalized() {
		s := t.AccountingAmount.String()
		dto.AccountingAmount = &s
	}
	return dto
}

func toTransactionDTOs(txs []domain.Transaction) []transactionDTO {
	out := make([]transactionDTO, len(txs))
	for i, t := range txs {
		out[i] = toTransactionDTO(t)
	}
	return out
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	RespondSuccess(w, http.StatusOK, toTransactionDTOs(h.ledger.Transactions(r.Context())))
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(""); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	t := req.toDomain()
	created, err := h.ledger.AddTransaction(r.Context(), service.NewTransaction{
		Type:        t.Type,
		Amount:      t.Amount,
		Currency:    t.Currency,
		Description: t.Description,
		CategoryID:  t.CategoryID,
		Date:        t.Date,
	})
	if err != nil {
		logging.FromContext(r.Context()).Error("add transaction failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toTransactionDTO(*created))
}

// Replace stores the request body as the whole ledger.
func (h *TransactionHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var req []transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	var fields []FieldError
	list := make([]domain.Transaction, len(req))
	for i, item := range req {
		fields = append(fields, item.Validate(fmt.Sprintf("[%d].", i))...)
		list[i] = item.toDomain()
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	stored, err := h.ledger.ReplaceTransactions(r.Context(), list)
	if err != nil {
		logging.FromContext(r.Context()).Error("replace transactions failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransactionDTOs(stored))
}

func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if err := h.ledger.DeleteTransaction(r.Context(), id); err != nil {
		RespondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TransactionHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := service.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "format", Message: "must be json or yaml"}})
		return
	}

	body, err := h.exports.ExportTransactions(r.Context(), format)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.`+string(format)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logging.FromContext(r.Context()).Error("failed to write export", "error", err)
	}
}
