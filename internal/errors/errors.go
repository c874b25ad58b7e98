// Package errors provides custom error types for the Daybook API.
// All service-layer errors should use AppError so callers can branch on a
// closed set of kinds and clients never see internal details.
package errors

import (
	"errors"
	"net/http"
)

// Kind classifies an AppError. The set is closed: every error leaving the
// service layer maps to exactly one kind.
type Kind string

const (
	KindValidation           Kind = "VALIDATION"
	KindReferentialIntegrity Kind = "REFERENTIAL_INTEGRITY"
	KindHasDependents        Kind = "HAS_DEPENDENTS"
	KindNotFound             Kind = "NOT_FOUND"
	KindStore                Kind = "STORE"

	// Raised by the transport layer only.
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindRateLimited  Kind = "RATE_LIMITED"
)

// AppError represents a structured application error with an error code,
// kind, human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError carrying the same code, so wrapped
// copies still match their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap creates a new AppError with the same code/kind/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Kind:       sentinel.Kind,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Kind:       sentinel.Kind,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// KindOf returns the kind of err. Errors that are not AppErrors are store
// failures by definition; nil has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStore
}

// Transport errors.
var (
	ErrUnauthorized   = &AppError{Code: "UNAUTHORIZED", Kind: KindUnauthorized, Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrRateLimited    = &AppError{Code: "RATE_LIMITED", Kind: KindRateLimited, Message: "Too many requests. Please try again later.", StatusCode: http.StatusTooManyRequests}
	ErrRateLimitCheck = &AppError{Code: "RATE_LIMIT_ERROR", Kind: KindStore, Message: "Rate limit check failed", StatusCode: http.StatusInternalServerError}
)

// General errors.
var (
	ErrInvalidInput = &AppError{Code: "INVALID_INPUT", Kind: KindValidation, Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound     = &AppError{Code: "NOT_FOUND", Kind: KindNotFound, Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrStore        = &AppError{Code: "STORE_ERROR", Kind: KindStore, Message: "The ledger store could not complete the request", StatusCode: http.StatusInternalServerError}
)

// Main account errors.
var (
	ErrMainAccountNotFound      = &AppError{Code: "MAIN_ACCOUNT_NOT_FOUND", Kind: KindNotFound, Message: "Main account not found", StatusCode: http.StatusNotFound}
	ErrUnknownMainAccount       = &AppError{Code: "UNKNOWN_MAIN_ACCOUNT", Kind: KindReferentialIntegrity, Message: "Referenced main account does not exist", StatusCode: http.StatusUnprocessableEntity}
	ErrMainAccountHasDependents = &AppError{Code: "MAIN_ACCOUNT_HAS_DEPENDENTS", Kind: KindHasDependents, Message: "Main account still has sub accounts or transactions", StatusCode: http.StatusConflict}
)

// Sub account errors.
var (
	ErrSubAccountNotFound      = &AppError{Code: "SUB_ACCOUNT_NOT_FOUND", Kind: KindNotFound, Message: "Sub account not found", StatusCode: http.StatusNotFound}
	ErrUnknownSubAccount       = &AppError{Code: "UNKNOWN_SUB_ACCOUNT", Kind: KindReferentialIntegrity, Message: "Referenced sub account does not exist", StatusCode: http.StatusUnprocessableEntity}
	ErrSubAccountMismatch      = &AppError{Code: "SUB_ACCOUNT_MISMATCH", Kind: KindReferentialIntegrity, Message: "Sub account does not belong to the main account", StatusCode: http.StatusUnprocessableEntity}
	ErrSubAccountHasDependents = &AppError{Code: "SUB_ACCOUNT_HAS_DEPENDENTS", Kind: KindHasDependents, Message: "Sub account is used by existing transactions", StatusCode: http.StatusConflict}
)

// Transaction errors.
var (
	ErrTransactionNotFound    = &AppError{Code: "TRANSACTION_NOT_FOUND", Kind: KindNotFound, Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidTransactionType = &AppError{Code: "INVALID_TRANSACTION_TYPE", Kind: KindValidation, Message: "Transaction type must be credit or debit", StatusCode: http.StatusBadRequest}
	ErrInvalidAmount          = &AppError{Code: "INVALID_AMOUNT", Kind: KindValidation, Message: "Amount must be greater than zero", StatusCode: http.StatusBadRequest}
)

// Archive errors.
var (
	ErrArchivedTransactionNotFound = &AppError{Code: "ARCHIVED_TRANSACTION_NOT_FOUND", Kind: KindNotFound, Message: "No archived copy of this transaction exists", StatusCode: http.StatusNotFound}
	ErrDeleteIncomplete            = &AppError{Code: "DELETE_INCOMPLETE", Kind: KindStore, Message: "Transaction was archived but could not be removed from the ledger", StatusCode: http.StatusInternalServerError}
)
