package domain

import "github.com/shopspring/decimal"

type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

func (t Totals) Equal(o Totals) bool {
	return t.Income.Equal(o.Income) && t.Expense.Equal(o.Expense)
}

// LedgerSnapshot is the whole persisted ledger. Transactions are ordered
// newest first.
type LedgerSnapshot struct {
	Transactions []Transaction
	Totals       Totals
}

// ComputeTotals folds the accounting amounts of txs into income and expense
// totals. Records that were never normalized contribute nothing.
func ComputeTotals(txs []Transaction) Totals {
	totals := Totals{Income: decimal.Zero, Expense: decimal.Zero}
	for _, t := range txs {
		switch t.Type {
		case TransactionTypeIncome:
			totals.Income = totals.Income.Add(t.AccountingAmount)
		case TransactionTypeExpense:
			totals.Expense = totals.Expense.Add(t.AccountingAmount)
		}
	}
	return totals
}

// Recomputed returns a copy of s whose totals are derived from its
// transactions.
func (s LedgerSnapshot) Recomputed() LedgerSnapshot {
	return LedgerSnapshot{
		Transactions: s.Transactions,
		Totals:       ComputeTotals(s.Transactions),
	}
}
