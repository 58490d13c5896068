package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/josh-kwaku/budgetory/internal/logging"
	"github.com/shopspring/decimal"
)

const (
	KeyTransactions = "@budgetory_transactions"
	KeyTotalIncome  = "@budgetory_total_income"
	KeyTotalExpense = "@budgetory_total_expense"
)

// dateLayout matches what JavaScript's Date.toISOString produces, which is
// how existing ledgers were written.
const dateLayout = "2006-01-02T15:04:05.000Z07:00"

type kvStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	MultiGet(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
	MultiSet(ctx context.Context, pairs ...KeyValue) error
	Remove(ctx context.Context, key string) error
}

// LedgerStore persists the transaction list and the cached totals. Reads
// never fail: missing or corrupt data loads as an empty ledger. Writes
// return *domain.StorageError.
type LedgerStore struct {
	kv kvStore
}

func NewLedgerStore(kv kvStore) *LedgerStore {
	return &LedgerStore{kv: kv}
}

type transactionRecord struct {
	ID               string      `json:"id"`
	Type             string      `json:"type"`
	Amount           json.Number `json:"amount"`
	Currency         string      `json:"currency"`
	Description      string      `json:"description"`
	Date             string      `json:"date"`
	CategoryID       string      `json:"categoryId"`
	AccountingAmount json.Number `json:"accountingAmount,omitempty"`
	ProvisionalRate  bool        `json:"provisionalRate,omitempty"`
}

func (s *LedgerStore) LoadTransactions(ctx context.Context) []domain.Transaction {
	raw, ok, err := s.kv.Get(ctx, KeyTransactions)
	if err != nil {
		logging.FromContext(ctx).Error("failed to read transactions", "error", err)
		return []domain.Transaction{}
	}
	if !ok {
		return []domain.Transaction{}
	}
	return decodeTransactions(ctx, raw)
}

func (s *LedgerStore) LoadTotals(ctx context.Context) domain.Totals {
	values, err := s.kv.MultiGet(ctx, KeyTotalIncome, KeyTotalExpense)
	if err != nil {
		logging.FromContext(ctx).Error("failed to read totals", "error", err)
		return domain.Totals{Income: decimal.Zero, Expense: decimal.Zero}
	}
	return decodeTotals(ctx, values)
}

// Load reads transactions and cached totals in one round trip. The totals
// are returned as stored; callers that need them consistent should use
// LedgerSnapshot.Recomputed.
func (s *LedgerStore) Load(ctx context.Context) domain.LedgerSnapshot {
	values, err := s.kv.MultiGet(ctx, KeyTransactions, KeyTotalIncome, KeyTotalExpense)
	if err != nil {
		logging.FromContext(ctx).Error("failed to read ledger", "error", err)
		return domain.LedgerSnapshot{
			Transactions: []domain.Transaction{},
			Totals:       domain.Totals{Income: decimal.Zero, Expense: decimal.Zero},
		}
	}

	txs := []domain.Transaction{}
	if raw, ok := values[KeyTransactions]; ok {
		txs = decodeTransactions(ctx, raw)
	}
	return domain.LedgerSnapshot{
		Transactions: txs,
		Totals:       decodeTotals(ctx, values),
	}
}

func (s *LedgerStore) SaveTransactions(ctx context.Context, txs []domain.Transaction) error {
	raw, err := encodeTransactions(txs)
	if err != nil {
		return fmt.Errorf("SaveTransactions: %w", err)
	}
	if err := s.kv.Set(ctx, KeyTransactions, raw); err != nil {
		return fmt.Errorf("SaveTransactions: %w", &domain.StorageError{Op: "set", Key: KeyTransactions, Err: err})
	}
	return nil
}

func (s *LedgerStore) SaveTotals(ctx context.Context, income, expense decimal.Decimal) error {
	err := s.kv.MultiSet(ctx,
		KeyValue{Key: KeyTotalIncome, Value: income.String()},
		KeyValue{Key: KeyTotalExpense, Value: expense.String()},
	)
	if err != nil {
		return fmt.Errorf("SaveTotals: %w", &domain.StorageError{Op: "multi-set", Key: KeyTotalIncome, Err: err})
	}
	return nil
}

// Persist writes the transactions together with totals recomputed from
// them, as a single multi-key write.
func (s *LedgerStore) Persist(ctx context.Context, snap domain.LedgerSnapshot) error {
	snap = snap.Recomputed()

	raw, err := encodeTransactions(snap.Transactions)
	if err != nil {
		return fmt.Errorf("Persist: %w", err)
	}

	err = s.kv.MultiSet(ctx,
		KeyValue{Key: KeyTransactions, Value: raw},
		KeyValue{Key: KeyTotalIncome, Value: snap.Totals.Income.String()},
		KeyValue{Key: KeyTotalExpense, Value: snap.Totals.Expense.String()},
	)
	if err != nil {
		return fmt.Errorf("Persist: %w", &domain.StorageError{Op: "multi-set", Key: KeyTransactions, Err: err})
	}
	return nil
}

func decodeTransactions(ctx context.Context, raw string) []domain.Transaction {
	log := logging.FromContext(ctx)

	var records []transactionRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		log.Error("stored transactions are unreadable, treating ledger as empty", "error", err)
		return []domain.Transaction{}
	}

	txs := make([]domain.Transaction, 0, len(records))
	for i, rec := range records {
		t, err := fromRecord(rec)
		if err != nil {
			log.Warn("skipping unreadable transaction", "index", i, "id", rec.ID, "error", err)
			continue
		}
		txs = append(txs, t)
	}
	return txs
}

func fromRecord(rec transactionRecord) (domain.Transaction, error) {
	txType := domain.TransactionType(rec.Type)
	if !txType.IsValid() {
		return domain.Transaction{}, fmt.Errorf("fromRecord: %w", domain.ErrInvalidTransactionType)
	}

	amount, err := decimal.NewFromString(rec.Amount.String())
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("fromRecord: amount: %w", err)
	}

	date, err := time.Parse(time.RFC3339Nano, rec.Date)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("fromRecord: date: %w", err)
	}

	currency := domain.Currency(rec.Currency)
	if currency == "" {
		currency = domain.CurrencyUSD
	}

	accounting := decimal.Zero
	if rec.AccountingAmount != "" {
		if accounting, err = decimal.NewFromString(rec.AccountingAmount.String()); err != nil {
			return domain.Transaction{}, fmt.Errorf("fromRecord: accounting amount: %w", err)
		}
	}

	return domain.Transaction{
		ID:               rec.ID,
		Type:             txType,
		Amount:           amount,
		Currency:         currency,
		Description:      rec.Description,
		CategoryID:       rec.CategoryID,
		Date:             date.UTC(),
		AccountingAmount: accounting,
		ProvisionalRate:  rec.ProvisionalRate && accounting.IsPositive(),
	}, nil
}

func encodeTransactions(txs []domain.Transaction) (string, error) {
	records := make([]transactionRecord, len(txs))
	for i, t := range txs {
		rec := transactionRecord{
			ID:          t.ID,
			Type:        string(t.Type),
			Amount:      json.Number(t.Amount.String()),
			Currency:    string(t.Currency),
			Description: t.Description,
			Date:        t.Date.UTC().Format(dateLayout),
			CategoryID:  t.CategoryID,
		}
		if t.Normalized() {
			rec.AccountingAmount = json.Number(t.AccountingAmount.String())
			rec.ProvisionalRate = t.ProvisionalRate
		}
		records[i] = rec
	}

	b, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encodeTransactions: %w", err)
	}
	return string(b), nil
}

func decodeTotals(ctx context.Context, values map[string]string) domain.Totals {
	return domain.Totals{
		Income:  parseTotal(ctx, KeyTotalIncome, values[KeyTotalIncome]),
		Expense: parseTotal(ctx, KeyTotalExpense, values[KeyTotalExpense]),
	}
}

func parseTotal(ctx context.Context, key, raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		logging.FromContext(ctx).Warn("stored total is unreadable, using zero", "key", key, "error", err)
		return decimal.Zero
	}
	return d
}
