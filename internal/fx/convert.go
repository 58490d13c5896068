package fx

import (
	"fmt"

	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/shopspring/decimal"
)

// Convert moves amount from one currency to another through the snapshot's
// common pivot: amount / rates[from] * rates[to]. Equal currencies return
// amount untouched.
func Convert(amount decimal.Decimal, from, to domain.Currency, rates RateSnapshot) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}

	fromRate, ok := rates.Rate(from)
	if !ok {
		return decimal.Zero, fmt.Errorf("Convert: %w", &domain.MissingRateError{Currency: from})
	}
	toRate, ok := rates.Rate(to)
	if !ok {
		return decimal.Zero, fmt.Errorf("Convert: %w", &domain.MissingRateError{Currency: to})
	}

	return amount.Div(fromRate).Mul(toRate), nil
}
