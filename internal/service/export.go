package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/josh-kwaku/budgetory/internal/logging"
	"gopkg.in/yaml.v3"
)

type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportYAML ExportFormat = "yaml"
)

func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExportJSON:
		return ExportJSON, nil
	case ExportYAML, "yml":
		return ExportYAML, nil
	}
	return "", fmt.Errorf("ParseExportFormat %q: %w", s, domain.ErrInvalidRequest)
}

func (f ExportFormat) ContentType() string {
	if f == ExportYAML {
		return "application/yaml"
	}
	return "application/json"
}

type exportedTransaction struct {
	ID               string `json:"id" yaml:"id"`
	Type             string `json:"type" yaml:"type"`
	Amount           string `json:"amount" yaml:"amount"`
	Currency         string `json:"currency" yaml:"currency"`
	Description      string `json:"description,omitempty" yaml:"description,omitempty"`
	CategoryID       string `json:"category_id" yaml:"category_id"`
	Date             string `json:"date" yaml:"date"`
	AccountingAmount string `json:"accounting_amount,omitempty" yaml:"accounting_amount,omitempty"`
}

type exportDocument struct {
	ExportedAt   string                `json:"exported_at" yaml:"exported_at"`
	Currency     string                `json:"accounting_currency" yaml:"accounting_currency"`
	TotalIncome  string                `json:"total_income" yaml:"total_income"`
	TotalExpense string                `json:"total_expense" yaml:"total_expense"`
	Transactions []exportedTransaction `json:"transactions" yaml:"transactions"`
}

type ExportService struct {
	store ledgerStore
	now   func() time.Time
}

func NewExportService(store ledgerStore) *ExportService {
	return &ExportService{store: store, now: time.Now}
}

// ExportTransactions renders the ledger in format. Totals are recomputed
// from the exported transactions.
func (s *ExportService) ExportTransactions(ctx context.Context, format ExportFormat) ([]byte, error) {
	snap := s.store.Load(ctx).Recomputed()

	doc := exportDocument{
		ExportedAt:   s.now().UTC().Format(time.RFC3339),
		Currency:     string(domain.AccountingCurrency),
		TotalIncome:  snap.Totals.Income.String(),
		TotalExpense: snap.Totals.Expense.String(),
		Transactions: make([]exportedTransaction, len(snap.Transactions)),
	}
	for i, t := range snap.Transactions {
		et := exportedTransaction{
			ID:          t.ID,
			Type:        string(t.Type),
			Amount:      t.Amount.String(),
			Currency:    string(t.Currency),
			Description: t.Description,
			CategoryID:  t.CategoryID,
			Date:        t.Date.UTC().Format(time.RFC3339),
		}
		if t.Normalized() {
			et.AccountingAmount = t.AccountingAmount.String()
		}
		doc.Transactions[i] = et
	}

	var (
		out []byte
		err error
	)
	switch format {
	case ExportYAML:
		out, err = yaml.Marshal(doc)
	default:
		out, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("ExportTransactions: %w", err)
	}

	logging.FromContext(ctx).Info("transactions exported", "format", format, "count", len(doc.Transactions))
	return out, nil
}
