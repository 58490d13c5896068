package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/josh-kwaku/budgetory/internal/repository"
	"github.com/josh-kwaku/budgetory/internal/testutil"
)

var errDiskFull = errors.New("disk full")

// failingStore reads like a MemoryStore but rejects every write.
type failingStore struct {
	*repository.MemoryStore
}

func (f failingStore) Set(context.Context, string, string) error { return errDiskFull }

func (f failingStore) MultiSet(context.Context, ...repository.KeyValue) error { return errDiskFull }

func (f failingStore) Remove(context.Context, string) error { return errDiskFull }

func TestLedgerStore_EmptyStore(t *testing.T) {
	store := repository.NewLedgerStore(repository.NewMemoryStore())
	ctx := context.Background()

	txs := store.LoadTransactions(ctx)
	require.NotNil(t, txs)
	assert.Empty(t, txs)

	totals := store.LoadTotals(ctx)
	assert.True(t, totals.Income.IsZero())
	assert.True(t, totals.Expense.IsZero())
}

func TestLedgerStore_PersistEmptyThenLoad(t *testing.T) {
	kv := repository.NewMemoryStore()
	store := repository.NewLedgerStore(kv)
	ctx := context.Background()

	require.NoError(t, store.Persist(ctx, domain.LedgerSnapshot{Transactions: []domain.Transaction{}}))

	snap := store.Load(ctx)
	assert.Empty(t, snap.Transactions)
	assert.True(t, snap.Totals.Income.IsZero())
	assert.True(t, snap.Totals.Expense.IsZero())

	dump := kv.Dump()
	assert.Equal(t, "[]", dump[repository.KeyTransactions])
	assert.Equal(t, "0", dump[repository.KeyTotalIncome])
	assert.Equal(t, "0", dump[repository.KeyTotalExpense])
}

func TestLedgerStore_PersistPreservesOrderAndRecomputesTotals(t *testing.T) {
	store := repository.NewLedgerStore(repository.NewMemoryStore())
	ctx := context.Background()

	newest := testutil.USDTransaction(t, domain.TransactionTypeExpense, "40", testutil.FixedNow)
	middle := testutil.ForeignTransaction(t, domain.TransactionTypeIncome, "90", domain.CurrencyEUR, "100", testutil.FixedNow.Add(-time.Hour))
	oldest := testutil.USDTransaction(t, domain.TransactionTypeIncome, "12.34", testutil.FixedNow.Add(-48*time.Hour))
	oldest.Description = "refund"

	err := store.Persist(ctx, domain.LedgerSnapshot{
		Transactions: []domain.Transaction{newest, middle, oldest},
		// Caller-provided totals are ignored.
		Totals: domain.Totals{Income: testutil.Dec(t, "999"), Expense: testutil.Dec(t, "999")},
	})
	require.NoError(t, err)

	snap := store.Load(ctx)
	require.Len(t, snap.Transactions, 3)
	assert.Equal(t, newest.ID, snap.Transactions[0].ID)
	assert.Equal(t, middle.ID, snap.Transactions[1].ID)
	assert.Equal(t, oldest.ID, snap.Transactions[2].ID)

	got := snap.Transactions[1]
	assert.Equal(t, domain.CurrencyEUR, got.Currency)
	assert.True(t, got.Amount.Equal(testutil.Dec(t, "90")))
	assert.True(t, got.AccountingAmount.Equal(testutil.Dec(t, "100")))
	assert.True(t, got.Date.Equal(middle.Date))
	assert.Equal(t, "refund", snap.Transactions[2].Description)

	assert.True(t, snap.Totals.Income.Equal(testutil.Dec(t, "112.34")), "income: %s", snap.Totals.Income)
	assert.True(t, snap.Totals.Expense.Equal(testutil.Dec(t, "40")), "expense: %s", snap.Totals.Expense)
}

func TestLedgerStore_LegacyRecordDefaults(t *testing.T) {
	kv := repository.NewMemoryStore()
	ctx := context.Background()

	legacy := `[{"id":"1710504000000","type":"expense","amount":25.5,"description":"coffee","date":"2024-03-15T12:00:00.000Z"}]`
	require.NoError(t, kv.Set(ctx, repository.KeyTransactions, legacy))

	txs := repository.NewLedgerStore(kv).LoadTransactions(ctx)
	require.Len(t, txs, 1)

	tx := txs[0]
	assert.Equal(t, "1710504000000", tx.ID)
	assert.Equal(t, domain.CurrencyUSD, tx.Currency)
	assert.Equal(t, "", tx.CategoryID)
	assert.True(t, tx.Amount.Equal(testutil.Dec(t, "25.5")))
	assert.False(t, tx.Normalized())
	assert.True(t, tx.Date.Equal(testutil.FixedNow))
}

func TestLedgerStore_CorruptData(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantIDs []string
	}{
		{
			name:    "not json",
			raw:     `{{{`,
			wantIDs: []string{},
		},
		{
			name:    "object instead of list",
			raw:     `{"id":"a"}`,
			wantIDs: []string{},
		},
		{
			name: "unreadable records are skipped",
			raw: `[
				{"id":"good","type":"income","amount":10,"currency":"USD","date":"2024-03-15T12:00:00.000Z","categoryId":"salary"},
				{"id":"bad-type","type":"transfer","amount":10,"date":"2024-03-15T12:00:00.000Z"},
				{"id":"bad-date","type":"income","amount":10,"date":"yesterday"}
			]`,
			wantIDs: []string{"good"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kv := repository.NewMemoryStore()
			ctx := context.Background()
			require.NoError(t, kv.Set(ctx, repository.KeyTransactions, tc.raw))

			txs := repository.NewLedgerStore(kv).LoadTransactions(ctx)
			require.NotNil(t, txs)

			ids := make([]string, len(txs))
			for i, tx := range txs {
				ids[i] = tx.ID
			}
			assert.Equal(t, tc.wantIDs, ids)
		})
	}
}

func TestLedgerStore_UnparseableTotalsLoadAsZero(t *testing.T) {
	kv := repository.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, kv.MultiSet(ctx,
		repository.KeyValue{Key: repository.KeyTotalIncome, Value: "abc"},
		repository.KeyValue{Key: repository.KeyTotalExpense, Value: "17.5"},
	))

	totals := repository.NewLedgerStore(kv).LoadTotals(ctx)
	assert.True(t, totals.Income.IsZero())
	assert.True(t, totals.Expense.Equal(testutil.Dec(t, "17.5")))
}

func TestLedgerStore_SaveTotals(t *testing.T) {
	kv := repository.NewMemoryStore()
	store := repository.NewLedgerStore(kv)
	ctx := context.Background()

	require.NoError(t, store.SaveTotals(ctx, testutil.Dec(t, "150.25"), testutil.Dec(t, "75")))

	totals := store.LoadTotals(ctx)
	assert.True(t, totals.Income.Equal(testutil.Dec(t, "150.25")))
	assert.True(t, totals.Expense.Equal(testutil.Dec(t, "75")))
}

func TestLedgerStore_WriteFailuresReturnStorageError(t *testing.T) {
	store := repository.NewLedgerStore(failingStore{repository.NewMemoryStore()})
	ctx := context.Background()
	txs := []domain.Transaction{testutil.USDTransaction(t, domain.TransactionTypeIncome, "10", testutil.FixedNow)}

	tests := []struct {
		name  string
		write func() error
	}{
		{"SaveTransactions", func() error { return store.SaveTransactions(ctx, txs) }},
		{"SaveTotals", func() error { return store.SaveTotals(ctx, testutil.Dec(t, "1"), testutil.Dec(t, "2")) }},
		{"Persist", func() error { return store.Persist(ctx, domain.LedgerSnapshot{Transactions: txs}) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.write()
			require.Error(t, err)

			var storageErr *domain.StorageError
			require.ErrorAs(t, err, &storageErr)
			assert.ErrorIs(t, err, errDiskFull)
		})
	}
}

func TestLedgerStore_ProvisionalRateRoundTrip(t *testing.T) {
	kv := repository.NewMemoryStore()
	store := repository.NewLedgerStore(kv)
	ctx := context.Background()

	provisional := testutil.ForeignTransaction(t, domain.TransactionTypeExpense, "91", domain.CurrencyEUR, "100", testutil.FixedNow)
	provisional.ProvisionalRate = true
	settled := testutil.ForeignTransaction(t, domain.TransactionTypeExpense, "45", domain.CurrencyEUR, "50", testutil.FixedNow)

	require.NoError(t, store.Persist(ctx, domain.LedgerSnapshot{Transactions: []domain.Transaction{provisional, settled}}))

	loaded := store.LoadTransactions(ctx)
	require.Len(t, loaded, 2)
	assert.True(t, loaded[0].ProvisionalRate)
	assert.False(t, loaded[1].ProvisionalRate)
	assert.NotContains(t, kv.Dump()[repository.KeyTransactions], `"provisionalRate":false`)
}
