package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidCurrency        = &AppError{http.StatusBadRequest, "INVALID_CURRENCY", "Invalid currency"}
	ErrInvalidAmount          = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrInvalidTransactionType = &AppError{http.StatusBadRequest, "INVALID_TRANSACTION_TYPE", "Transaction type must be income or expense"}
	ErrDuplicateTransaction   = &AppError{http.StatusConflict, "DUPLICATE_TRANSACTION", "Transaction id appears more than once"}
	ErrRateUnavailable        = &AppError{http.StatusUnprocessableEntity, "RATE_UNAVAILABLE", "No exchange rate available for this currency"}
	ErrStorageUnavailable     = &AppError{http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Changes could not be saved, please retry"}
	ErrIdempotencyConflict    = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)
