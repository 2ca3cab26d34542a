// internal/domain/operation.go
package domain

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"wallet-ledger/internal/util"
)

// OperationType is the kind of balance mutation. Only the constants below are valid.
type OperationType string

const (
	OperationDeposit  OperationType = "DEPOSIT"
	OperationWithdraw OperationType = "WITHDRAW"
)

// ParseOperationType maps free-form input onto the closed set of operation types.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseOperationType(s string) (OperationType, error) {
	switch OperationType(strings.ToUpper(strings.TrimSpace(s))) {
	case OperationDeposit:
		return OperationDeposit, nil
	case OperationWithdraw:
		return OperationWithdraw, nil
	}
	return "", util.NewValidationError("operationType", "must be DEPOSIT or WITHDRAW")
}

// IsValid reports whether t is one of the known operation types.
func (t OperationType) IsValid() bool {
	return t == OperationDeposit || t == OperationWithdraw
}

// UnmarshalJSON accepts any casing of the known types and rejects everything else.
func (t *OperationType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return util.NewValidationError("operationType", "must be a string")
	}
	parsed, err := ParseOperationType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

const (
	// MaxIntegerDigits is the integer range of the NUMERIC(30, 2) balance column.
	MaxIntegerDigits = 28
	// minAmountExponent and maxCoefficientBits bound the decimal representation before any
	// rescaling, so hostile inputs like "1e-50000000" are rejected in constant time.
	minAmountExponent  = -18
	maxCoefficientBits = 128
)

// MaxBalance is the smallest value that no longer fits the balance column.
var MaxBalance = decimal.New(1, MaxIntegerDigits)

// Operation is a single deposit or withdrawal request against one wallet.
type Operation struct {
	Type   OperationType
	Amount decimal.Decimal
}

// ValidateOperation checks the request shape before any storage is touched.
func ValidateOperation(op Operation) error {
	if !op.Type.IsValid() {
		return util.NewValidationError("operationType", "must be DEPOSIT or WITHDRAW")
	}
	if !op.Amount.IsPositive() {
		return util.NewValidationError("amount", "must be greater than zero")
	}
	exp := op.Amount.Exponent()
	if exp < minAmountExponent || exp > MaxIntegerDigits || op.Amount.Coefficient().BitLen() > maxCoefficientBits {
		return util.NewValidationError("amount", "has too many digits")
	}
	if !op.Amount.Equal(op.Amount.Truncate(BalanceScale)) {
		return util.NewValidationError("amount", "must have at most 2 fractional digits")
	}
	if !op.Amount.LessThan(MaxBalance) {
		return util.NewValidationError("amount", "exceeds the maximum balance")
	}
	return nil
}

// ApplyOperation computes the balance that results from applying op to balance.
// It performs no I/O; the caller must hold the wallet lock while balance is current.
func ApplyOperation(op Operation, balance decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateOperation(op); err != nil {
		return decimal.Zero, err
	}

	switch op.Type {
	case OperationDeposit:
		next := balance.Add(op.Amount)
		if !next.LessThan(MaxBalance) {
			return decimal.Zero, util.NewValidationError("amount", "would exceed the maximum balance")
		}
		return next, nil
	case OperationWithdraw:
		if op.Amount.GreaterThan(balance) {
			return decimal.Zero, &util.InsufficientFundsError{Shortfall: op.Amount.Sub(balance)}
		}
		return balance.Sub(op.Amount), nil
	}
	return decimal.Zero, util.NewValidationError("operationType", "must be DEPOSIT or WITHDRAW")
}
