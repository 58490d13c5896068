package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/josh-kwaku/budgetory/internal/repository"
	"github.com/josh-kwaku/budgetory/internal/testutil"
)

func TestExportTransactions(t *testing.T) {
	store := repository.NewLedgerStore(repository.NewMemoryStore())
	ctx := context.Background()

	eur := testutil.ForeignTransaction(t, domain.TransactionTypeIncome, "90", domain.CurrencyEUR, "100", testutil.FixedNow)
	eur.Description = "invoice"
	usd := testutil.USDTransaction(t, domain.TransactionTypeExpense, "12.5", testutil.FixedNow.Add(-time.Hour))
	require.NoError(t, store.Persist(ctx, domain.LedgerSnapshot{Transactions: []domain.Transaction{eur, usd}}))

	svc := NewExportService(store)
	svc.now = func() time.Time { return testutil.FixedNow }

	for _, format := range []ExportFormat{ExportJSON, ExportYAML} {
		t.Run(string(format), func(t *testing.T) {
			out, err := svc.ExportTransactions(ctx, format)
			require.NoError(t, err)

			var doc exportDocument
			if format == ExportYAML {
				require.NoError(t, yaml.Unmarshal(out, &doc))
			} else {
				require.NoError(t, json.Unmarshal(out, &doc))
			}

			assert.Equal(t, "2024-03-15T12:00:00Z", doc.ExportedAt)
			assert.Equal(t, "USD", doc.Currency)
			assert.Equal(t, "100", doc.TotalIncome)
			assert.Equal(t, "12.5", doc.TotalExpense)
			require.Len(t, doc.Transactions, 2)
			assert.Equal(t, eur.ID, doc.Transactions[0].ID)
			assert.Equal(t, "90", doc.Transactions[0].Amount)
			assert.Equal(t, "EUR", doc.Transactions[0].Currency)
			assert.Equal(t, "100", doc.Transactions[0].AccountingAmount)
			assert.Equal(t, "invoice", doc.Transactions[0].Description)
		})
	}
}

func TestParseExportFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ExportFormat
		wantErr bool
	}{
		{"", ExportJSON, false},
		{"JSON", ExportJSON, false},
		{"yml", ExportYAML, false},
		{"yaml", ExportYAML, false},
		{"csv", "", true},
	}

	for _, tc := range tests {
		got, err := ParseExportFormat(tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, domain.ErrInvalidRequest, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
