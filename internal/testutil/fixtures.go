package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/shopspring/decimal"
)

var FixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

// Dec parses s or fails the test.
func Dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

// USDTransaction builds a normalized transaction in the accounting currency.
func USDTransaction(t *testing.T, txType domain.TransactionType, amount string, date time.Time) domain.Transaction {
	t.Helper()
	d := Dec(t, amount)
	return domain.Transaction{
		ID:               uuid.NewString(),
		Type:             txType,
		Amount:           d,
		Currency:         domain.CurrencyUSD,
		CategoryID:       "general",
		Date:             date.UTC(),
		AccountingAmount: d,
	}
}

// ForeignTransaction builds a transaction in currency with the given
// accounting amount; pass "" to leave it unnormalized.
func ForeignTransaction(t *testing.T, txType domain.TransactionType, amount string, currency domain.Currency, accounting string, date time.Time) domain.Transaction {
	t.Helper()
	tx := domain.Transaction{
		ID:               uuid.NewString(),
		Type:             txType,
		Amount:           Dec(t, amount),
		Currency:         currency,
		CategoryID:       "general",
		Date:             date.UTC(),
		AccountingAmount: decimal.Zero,
	}
	if accounting != "" {
		tx.AccountingAmount = Dec(t, accounting)
	}
	return tx
}
