package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates that the actor does not own, or is not entitled to, the aggregate.
var ErrForbidden = errors.New("forbidden")

// ErrConflict indicates that the operation is valid in general but not in the
// aggregate's current state.
var ErrConflict = errors.New("conflict")

// ErrInsufficientFunds indicates that a ledger debit exceeds the account balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// AppError carries an HTTP-ish code alongside a wrapped cause. Repositories use it
// for storage failures so callers never see raw driver errors.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates an AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// IsDomain reports whether err belongs to the expected taxonomy (as opposed to an
// unexpected storage or IO failure).
func IsDomain(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInsufficientFunds)
}
