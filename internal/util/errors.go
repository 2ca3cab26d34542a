// internal/util/errors.go
package util

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Common application-specific errors.
var (
	ErrInvalidInput      = errors.New("invalid input provided")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrNoData            = errors.New("no data")
	ErrStorage           = errors.New("storage failure")
	ErrInternal          = errors.New("internal error")
)

// ValidationError reports a malformed operation request. It never reaches storage.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// InsufficientFundsError is returned when a withdrawal exceeds the locked balance.
// Shortfall is amount - balance.
type InsufficientFundsError struct {
	Shortfall decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: short by %s", e.Shortfall.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// StorageError wraps a persistence failure. The operation that produced it
// was not applied and may be retried as a whole.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err unless it is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// IsError reports whether any error in err's chain matches target.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}

// Shortfall extracts the shortfall carried by an InsufficientFundsError in err's chain.
func Shortfall(err error) (decimal.Decimal, bool) {
	var ife *InsufficientFundsError
	if errors.As(err, &ife) {
		return ife.Shortfall, true
	}
	return decimal.Zero, false
}
