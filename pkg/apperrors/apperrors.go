package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers; handlers map kinds to HTTP status.
type Kind string

const (
	KindValidation  Kind = "VALIDATION"
	KindState       Kind = "STATE"
	KindNotFound    Kind = "NOT_FOUND"
	KindConcurrency Kind = "CONCURRENCY"
	KindPersistence Kind = "PERSISTENCE"
)

// Domain errors
var (
	ErrLoanNotFound        = errors.New("loan not found")
	ErrInstallmentNotFound = errors.New("installment not found")
	ErrInvalidPrincipal    = errors.New("principal must be greater than zero")
	ErrInvalidInstallments = errors.New("installments total must be at least 1")
	ErrInvalidInterestRate = errors.New("interest rate must not be negative")
	ErrMissingPaymentDate  = errors.New("first payment date is required")
	ErrInvalidPayment      = errors.New("payment amount must be greater than zero")
	ErrInvalidOverride     = errors.New("only defaulted and written_off can be applied as status overrides")
	ErrLoanNotRequested    = errors.New("loan is no longer in requested state")
	ErrLoanNotActive       = errors.New("loan is not active")
	ErrStaleWrite          = errors.New("record was modified concurrently")
)

// AppError carries the error kind and a stable machine code alongside a
// human-readable message.
type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(kind Kind, code, message string, err error) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// KindOf extracts the Kind from err, defaulting to KindPersistence for
// anything that is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindPersistence
}

// Error codes
const (
	CodeLoanNotFound        = "LOAN_NOT_FOUND"
	CodeInstallmentNotFound = "INSTALLMENT_NOT_FOUND"
	CodeInvalidLoanTerms    = "INVALID_LOAN_TERMS"
	CodeInvalidPayment      = "INVALID_PAYMENT"
	CodeLoanNotRequested    = "LOAN_NOT_REQUESTED"
	CodeLoanNotActive       = "LOAN_NOT_ACTIVE"
	CodeConcurrentWrite     = "CONCURRENT_WRITE"
	CodeDatabaseError       = "DATABASE_ERROR"
)

// Wrap common errors with business context

func WrapLoanNotFound(id string) *AppError {
	return New(KindNotFound, CodeLoanNotFound,
		fmt.Sprintf("loan %s not found", id), ErrLoanNotFound)
}

func WrapInstallmentNotFound(id string) *AppError {
	return New(KindNotFound, CodeInstallmentNotFound,
		fmt.Sprintf("installment %s not found", id), ErrInstallmentNotFound)
}

func WrapValidation(err error) *AppError {
	return New(KindValidation, CodeInvalidLoanTerms, err.Error(), err)
}

func WrapInvalidPayment(err error) *AppError {
	return New(KindValidation, CodeInvalidPayment, err.Error(), err)
}

func WrapLoanNotRequested(id, status string) *AppError {
	return New(KindState, CodeLoanNotRequested,
		fmt.Sprintf("loan %s has status %s; terms are frozen once a loan leaves the requested state", id, status),
		ErrLoanNotRequested)
}

func WrapLoanNotActive(id, status string) *AppError {
	return New(KindState, CodeLoanNotActive,
		fmt.Sprintf("loan %s has status %s; payments require an active loan", id, status),
		ErrLoanNotActive)
}

func WrapConcurrentWrite(id string) *AppError {
	return New(KindConcurrency, CodeConcurrentWrite,
		fmt.Sprintf("%s was updated concurrently, retry with fresh state", id),
		ErrStaleWrite)
}

func WrapDatabaseError(err error) *AppError {
	return New(KindPersistence, CodeDatabaseError, "database operation failed", err)
}
