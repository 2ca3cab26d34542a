// internal/repository/postgres/wallet_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

const walletColumns = `id, balance, created_at, updated_at`

// WalletRepository implements repository.WalletRepository for PostgreSQL.
type WalletRepository struct {
	// Methods receive a DBExecutor so the same code runs on the pool or inside a transaction.
}

// NewWalletRepository creates a new WalletRepository. It holds no connection of its own.
func NewWalletRepository() repository.WalletRepository {
	return &WalletRepository{}
}

// CreateWallet inserts a new wallet using the provided DBExecutor.
func (r *WalletRepository) CreateWallet(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet) error {
	if wallet.ID == uuid.Nil {
		wallet.ID = uuid.New()
	}
	query := `INSERT INTO wallets (id, balance, created_at, updated_at)
              VALUES ($1, $2, $3, $4)`
	if _, err := q.ExecContext(ctx, query, wallet.ID, wallet.Balance, wallet.CreatedAt, wallet.UpdatedAt); err != nil {
		return storageError("create wallet", err)
	}
	return nil
}

// GetWalletByID retrieves a wallet by its ID without locking it.
func (r *WalletRepository) GetWalletByID(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	if err := q.GetContext(ctx, &wallet, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrWalletNotFound
		}
		return nil, storageError(fmt.Sprintf("get wallet %s", id), err)
	}
	return &wallet, nil
}

// ListWallets retrieves all wallets. An empty table yields util.ErrNoData.
func (r *WalletRepository) ListWallets(ctx context.Context, q repository.DBExecutor) ([]domain.Wallet, error) {
	wallets := []domain.Wallet{}
	query := `SELECT ` + walletColumns + ` FROM wallets`
	if err := q.SelectContext(ctx, &wallets, query); err != nil {
		return nil, storageError("list wallets", err)
	}
	if len(wallets) == 0 {
		return nil, util.ErrNoData
	}
	return wallets, nil
}

// GetWalletForUpdate reads a wallet with SELECT ... FOR UPDATE.
// The row stays locked until the transaction behind q commits or rolls back.
func (r *WalletRepository) GetWalletForUpdate(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	if err := q.GetContext(ctx, &wallet, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrWalletNotFound
		}
		return nil, storageError(fmt.Sprintf("lock wallet %s", id), err)
	}
	return &wallet, nil
}

// UpdateWalletBalance writes the new absolute balance and returns the stored row.
func (r *WalletRepository) UpdateWalletBalance(ctx context.Context, q repository.DBExecutor, id uuid.UUID, balance decimal.Decimal) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `UPDATE wallets SET balance = $1, updated_at = $2 WHERE id = $3
              RETURNING ` + walletColumns
	if err := q.GetContext(ctx, &wallet, query, balance, time.Now().UTC(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrWalletNotFound
		}
		return nil, storageError(fmt.Sprintf("update wallet balance %s", id), err)
	}
	return &wallet, nil
}

// storageError wraps a driver error, naming the PostgreSQL error class when there is one.
func storageError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		op = fmt.Sprintf("%s (%s)", op, pqErr.Code.Name())
	}
	return util.NewStorageError(op, err)
}
