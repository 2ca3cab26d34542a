// internal/repository/wallet_repo.go
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wallet-ledger/internal/domain"
)

// WalletRepository defines the balance store operations.
// Every method runs on the provided DBExecutor, which is either the pool or an open transaction.
type WalletRepository interface {
	// CreateWallet inserts a new wallet record.
	CreateWallet(ctx context.Context, q DBExecutor, wallet *domain.Wallet) error
	// GetWalletByID is a plain point read without locking.
	GetWalletByID(ctx context.Context, q DBExecutor, id uuid.UUID) (*domain.Wallet, error)
	// ListWallets returns every wallet in no particular order, or util.ErrNoData when there are none.
	ListWallets(ctx context.Context, q DBExecutor) ([]domain.Wallet, error)
	// GetWalletForUpdate reads a wallet and takes an exclusive row lock held until the
	// surrounding transaction ends. q must be a transaction.
	GetWalletForUpdate(ctx context.Context, q DBExecutor, id uuid.UUID) (*domain.Wallet, error)
	// UpdateWalletBalance stores the absolute balance and returns the updated record.
	UpdateWalletBalance(ctx context.Context, q DBExecutor, id uuid.UUID, balance decimal.Decimal) (*domain.Wallet, error)
}
