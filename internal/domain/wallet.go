// internal/domain/wallet.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal" // For precise monetary calculations
)

// BalanceScale is the number of fractional digits kept for balances and amounts.
const BalanceScale = 2

// Wallet represents an account holding a single monetary balance.
type Wallet struct {
	ID        uuid.UUID       `db:"id" json:"id"`                 // Primary key, UUID in DB
	Balance   decimal.Decimal `db:"balance" json:"balance"`       // Current balance, NUMERIC(30, 2) in DB
	CreatedAt time.Time       `db:"created_at" json:"created_at"` // Timestamp of creation
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"` // Timestamp of last update
}

// NewWallet creates a new Wallet with a fresh id and the given opening balance.
func NewWallet(initialBalance decimal.Decimal) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:        uuid.New(),
		Balance:   initialBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
