// internal/domain/event.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OperationAppliedEvent is published after an operation has been committed.
type OperationAppliedEvent struct {
	WalletID      uuid.UUID       `json:"wallet_id"`
	OperationType OperationType   `json:"operation_type"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"` // Post-commit balance
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewOperationAppliedEvent builds the event for a committed operation.
func NewOperationAppliedEvent(wallet *Wallet, op Operation) OperationAppliedEvent {
	return OperationAppliedEvent{
		WalletID:      wallet.ID,
		OperationType: op.Type,
		Amount:        op.Amount,
		Balance:       wallet.Balance,
		OccurredAt:    time.Now().UTC(),
	}
}
