package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidCurrency        = errors.New("invalid currency")
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrInvalidTransactionType = errors.New("transaction type must be income or expense")
	ErrInvalidRequest         = errors.New("invalid request")
	ErrDuplicateTransaction   = errors.New("duplicate transaction id")
)

// MissingRateError is returned when a rate snapshot has no usable entry for
// a currency a conversion needs.
type MissingRateError struct {
	Currency Currency
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("missing exchange rate for %s", e.Currency)
}

// StorageError reports a failed write to the persistent store. Reads never
// produce it: they degrade to empty defaults instead.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
