package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/josh-kwaku/budgetory/internal/fx"
	"github.com/josh-kwaku/budgetory/internal/logging"
	"github.com/shopspring/decimal"
)

// accountingScale is the number of decimal places kept on amounts
// normalized into the accounting currency.
const accountingScale = 6

type NewTransaction struct {
	Type        domain.TransactionType
	Amount      decimal.Decimal
	Currency    domain.Currency
	Description string
	CategoryID  string
	Date        time.Time
}

type TotalsView struct {
	Currency          domain.Currency
	Income            decimal.Decimal
	Expense           decimal.Decimal
	Balance           decimal.Decimal
	AccountingIncome  decimal.Decimal
	AccountingExpense decimal.Decimal
	IsFallback        bool
}

// ReconcileReport counts what Reconcile changed. Backfilled records had no
// accounting amount; Renormalized ones had a provisional or inconsistent
// one; Pending ones could not be settled with the rates at hand.
type ReconcileReport struct {
	Backfilled     int
	Renormalized   int
	Pending        int
	TotalsRepaired bool
	Totals         domain.Totals
}

// LedgerService owns every mutation of the ledger. Mutations run one at a
// time so each load-modify-persist sequence sees the previous one's result.
type LedgerService struct {
	mu    sync.Mutex
	store ledgerStore
	rates rateSource
	now   func() time.Time
}

func NewLedgerService(store ledgerStore, rates rateSource) *LedgerService {
	return &LedgerService{store: store, rates: rates, now: time.Now}
}

func (s *LedgerService) Transactions(ctx context.Context) []domain.Transaction {
	return s.store.LoadTransactions(ctx)
}

func (s *LedgerService) AddTransaction(ctx context.Context, in NewTransaction) (*domain.Transaction, error) {
	log := logging.FromContext(ctx)

	if in.Currency == "" {
		in.Currency = domain.AccountingCurrency
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}

	tx := domain.Transaction{
		ID:          uuid.NewString(),
		Type:        in.Type,
		Amount:      in.Amount,
		Currency:    in.Currency,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		Date:        in.Date.UTC().Truncate(time.Millisecond),
	}
	if err := tx.Validate(); err != nil {
		return nil, fmt.Errorf("AddTransaction: %w", err)
	}

	accounting, fallback, err := s.toAccounting(ctx, tx.Amount, tx.Currency, nil)
	if err != nil {
		return nil, fmt.Errorf("AddTransaction: %w", err)
	}
	tx.AccountingAmount = accounting
	tx.ProvisionalRate = fallback
	if fallback {
		log.Warn("transaction normalized with fallback rates", "currency", tx.Currency)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txs := s.store.LoadTransactions(ctx)
	next := make([]domain.Transaction, 0, len(txs)+1)
	next = append(next, tx)
	next = append(next, txs...)

	if err := s.store.Persist(ctx, domain.LedgerSnapshot{Transactions: next}); err != nil {
		return nil, fmt.Errorf("AddTransaction: %w", err)
	}

	log.Info("transaction added",
		"transaction_id", tx.ID,
		"type", tx.Type,
		"currency", tx.Currency,
		"amount", tx.Amount.String(),
	)
	return &tx, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs := s.store.LoadTransactions(ctx)
	idx := slices.IndexFunc(txs, func(t domain.Transaction) bool { return t.ID == id })
	if idx < 0 {
		return fmt.Errorf("DeleteTransaction: %w", domain.ErrNotFound)
	}

	next := slices.Delete(slices.Clone(txs), idx, idx+1)
	if err := s.store.Persist(ctx, domain.LedgerSnapshot{Transactions: next}); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}

	logging.FromContext(ctx).Info("transaction deleted", "transaction_id", id)
	return nil
}

// ReplaceTransactions stores list as the whole ledger, in the given order.
// Records without an id get one. Accounting amounts are always derived here:
// a foreign record keeps the one already stored under its id only when its
// amount and currency are unchanged, everything else is converted with
// current rates.
func (s *LedgerService) ReplaceTransactions(ctx context.Context, list []domain.Transaction) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make(map[string]domain.Transaction)
	for _, t := range s.store.LoadTransactions(ctx) {
		stored[t.ID] = t
	}

	next := make([]domain.Transaction, len(list))
	seen := make(map[string]struct{}, len(list))
	var snap *fx.RateSnapshot

	for i, t := range list {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("ReplaceTransactions: %s: %w", t.ID, domain.ErrDuplicateTransaction)
		}
		seen[t.ID] = struct{}{}

		if t.Currency == "" {
			t.Currency = domain.AccountingCurrency
		}
		if t.Date.IsZero() {
			t.Date = s.now()
		}
		t.Date = t.Date.UTC().Truncate(time.Millisecond)
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("ReplaceTransactions: transaction %d: %w", i, err)
		}

		if prev, ok := stored[t.ID]; ok && keepsAccounting(prev, t) {
			t.AccountingAmount = prev.AccountingAmount
			t.ProvisionalRate = prev.ProvisionalRate
			next[i] = t
			continue
		}

		if snap == nil && t.Currency != domain.AccountingCurrency {
			fetched := s.rates.FetchRates(ctx, domain.AccountingCurrency)
			snap = &fetched
		}
		accounting, fallback, err := s.toAccounting(ctx, t.Amount, t.Currency, snap)
		if err != nil {
			return nil, fmt.Errorf("ReplaceTransactions: transaction %d: %w", i, err)
		}
		t.AccountingAmount = accounting
		t.ProvisionalRate = fallback
		next[i] = t
	}

	if err := s.store.Persist(ctx, domain.LedgerSnapshot{Transactions: next}); err != nil {
		return nil, fmt.Errorf("ReplaceTransactions: %w", err)
	}

	logging.FromContext(ctx).Info("ledger replaced", "count", len(next))
	return next, nil
}

// keepsAccounting reports whether next may reuse the accounting amount
// stored for prev.
func keepsAccounting(prev, next domain.Transaction) bool {
	return next.Currency != domain.AccountingCurrency &&
		prev.Normalized() &&
		prev.Currency == next.Currency &&
		prev.Amount.Equal(next.Amount)
}

// Totals returns the stored totals converted into display.
func (s *LedgerService) Totals(ctx context.Context, display domain.Currency) (*TotalsView, error) {
	if display == "" {
		display = domain.AccountingCurrency
	}
	if !display.IsValid() {
		return nil, fmt.Errorf("Totals: %w", domain.ErrInvalidCurrency)
	}

	totals := s.store.LoadTotals(ctx)
	view := &TotalsView{
		Currency:          display,
		Income:            totals.Income,
		Expense:           totals.Expense,
		AccountingIncome:  totals.Income,
		AccountingExpense: totals.Expense,
	}

	if display != domain.AccountingCurrency {
		snap := s.rates.FetchRates(ctx, display)
		income, err := fx.Convert(totals.Income, domain.AccountingCurrency, display, snap)
		if err != nil {
			return nil, fmt.Errorf("Totals: %w", err)
		}
		expense, err := fx.Convert(totals.Expense, domain.AccountingCurrency, display, snap)
		if err != nil {
			return nil, fmt.Errorf("Totals: %w", err)
		}
		view.Income = income
		view.Expense = expense
		view.IsFallback = snap.IsFallback
	}

	view.Balance = view.Income.Sub(view.Expense)
	return view, nil
}

// Reconcile settles accounting amounts and repairs stored totals that no
// longer match the transactions. Accounting-currency records are forced to
// their own amount. Foreign records that are missing an amount or carry a
// provisional one are converted with live rates; they stay pending while
// only the fallback table is available.
func (s *LedgerService) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	log := logging.FromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.store.Load(ctx)
	report := &ReconcileReport{}

	txs := slices.Clone(snap.Transactions)
	var rates *fx.RateSnapshot
	for i, t := range txs {
		if t.Settled() {
			continue
		}

		var accounting decimal.Decimal
		if t.Currency == domain.AccountingCurrency {
			accounting = t.Amount
		} else {
			if rates == nil {
				fetched := s.rates.FetchRates(ctx, domain.AccountingCurrency)
				rates = &fetched
			}
			if rates.IsFallback {
				report.Pending++
				continue
			}

			var err error
			accounting, _, err = s.toAccounting(ctx, t.Amount, t.Currency, rates)
			if err != nil {
				var missing *domain.MissingRateError
				if errors.As(err, &missing) {
					log.Warn("cannot settle transaction, rate missing", "transaction_id", t.ID, "currency", t.Currency)
					report.Pending++
					continue
				}
				return nil, fmt.Errorf("Reconcile: %w", err)
			}
		}

		if t.Normalized() {
			report.Renormalized++
		} else {
			report.Backfilled++
		}
		txs[i].AccountingAmount = accounting
		txs[i].ProvisionalRate = false
	}

	computed := domain.ComputeTotals(txs)
	report.Totals = computed

	if report.Backfilled+report.Renormalized > 0 {
		if err := s.store.Persist(ctx, domain.LedgerSnapshot{Transactions: txs}); err != nil {
			return nil, fmt.Errorf("Reconcile: %w", err)
		}
		report.TotalsRepaired = !computed.Equal(snap.Totals)
	} else if !computed.Equal(snap.Totals) {
		if err := s.store.SaveTotals(ctx, computed.Income, computed.Expense); err != nil {
			return nil, fmt.Errorf("Reconcile: %w", err)
		}
		report.TotalsRepaired = true
	}

	log.Info("ledger reconciled",
		"backfilled", report.Backfilled,
		"renormalized", report.Renormalized,
		"pending", report.Pending,
		"totals_repaired", report.TotalsRepaired,
	)
	return report, nil
}

// toAccounting converts amount into the accounting currency. snap may be nil,
// in which case rates are fetched on demand.
func (s *LedgerService) toAccounting(ctx context.Context, amount decimal.Decimal, currency domain.Currency, snap *fx.RateSnapshot) (decimal.Decimal, bool, error) {
	if currency == domain.AccountingCurrency {
		return amount, false, nil
	}
	if snap == nil {
		fetched := s.rates.FetchRates(ctx, domain.AccountingCurrency)
		snap = &fetched
	}

	converted, err := fx.Convert(amount, currency, domain.AccountingCurrency, *snap)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("toAccounting: %w", err)
	}
	return converted.Round(accountingScale), snap.IsFallback, nil
}
