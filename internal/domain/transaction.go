package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

func (t TransactionType) IsValid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

type Transaction struct {
	ID          string
	Type        TransactionType
	Amount      decimal.Decimal
	Currency    Currency
	Description string
	CategoryID  string
	Date        time.Time

	// AccountingAmount is Amount expressed in AccountingCurrency, fixed at
	// the time the transaction was recorded. Zero means not yet normalized.
	AccountingAmount decimal.Decimal
	// ProvisionalRate marks an AccountingAmount computed from the static
	// fallback table. Reconcile replaces it once live rates are reachable.
	ProvisionalRate bool
}

// Normalized reports whether AccountingAmount has been filled in.
func (t Transaction) Normalized() bool {
	return t.AccountingAmount.IsPositive()
}

// Settled reports whether AccountingAmount is final: filled in, from live
// rates, and for accounting-currency records equal to Amount.
func (t Transaction) Settled() bool {
	if t.Currency == AccountingCurrency {
		return t.AccountingAmount.Equal(t.Amount) && !t.ProvisionalRate
	}
	return t.Normalized() && !t.ProvisionalRate
}

func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidTransactionType
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Currency.IsValid() {
		return ErrInvalidCurrency
	}
	if len(strings.TrimSpace(t.Description)) > 200 {
		return ErrInvalidRequest
	}
	return nil
}
