// internal/service/wallet_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wallet-ledger/internal/cache"
	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

// invalidateTimeout bounds post-commit cache invalidation, which outlives the request context.
const invalidateTimeout = 2 * time.Second

// WalletService defines the interface for wallet-related business logic.
type WalletService interface {
	CreateWallet(ctx context.Context) (*domain.Wallet, error)
	GetWallet(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error)
	ListWallets(ctx context.Context) ([]domain.Wallet, error)
	ApplyOperation(ctx context.Context, walletID uuid.UUID, op domain.Operation) (*domain.Wallet, error)
}

// OperationApplier is the balance-mutation core the service delegates to.
// *TransactionCoordinator implements it.
type OperationApplier interface {
	Apply(ctx context.Context, walletID uuid.UUID, op domain.Operation) (*domain.Wallet, error)
}

// EventPublisher announces committed operations. *events.Publisher implements it.
type EventPublisher interface {
	PublishOperationApplied(event domain.OperationAppliedEvent) error
}

// walletService implements the WalletService interface.
type walletService struct {
	dbExecutor  repository.DBExecutor // For non-transactional reads and inserts (e.g., *sqlx.DB)
	walletRepo  repository.WalletRepository
	coordinator OperationApplier
	cache       cache.WalletCache
	publisher   EventPublisher
	logger      *slog.Logger
}

// NewWalletService creates a new instance of WalletService.
func NewWalletService(
	dbExecutor repository.DBExecutor,
	walletRepo repository.WalletRepository,
	coordinator OperationApplier,
	walletCache cache.WalletCache,
	publisher EventPublisher,
	logger *slog.Logger,
) WalletService {
	return &walletService{
		dbExecutor:  dbExecutor,
		walletRepo:  walletRepo,
		coordinator: coordinator,
		cache:       walletCache,
		publisher:   publisher,
		logger:      logger,
	}
}

// CreateWallet stores a new wallet with a zero balance.
func (s *walletService) CreateWallet(ctx context.Context) (*domain.Wallet, error) {
	wallet := domain.NewWallet(decimal.Zero)
	if err := s.walletRepo.CreateWallet(ctx, s.dbExecutor, wallet); err != nil {
		s.logger.Error("Failed to create wallet", "wallet_id", wallet.ID, "error", err)
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	s.logger.Info("Wallet created", "wallet_id", wallet.ID)
	return wallet, nil
}

// GetWallet returns the current wallet state, served from cache when possible.
func (s *walletService) GetWallet(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error) {
	cached, err := s.cache.GetWallet(ctx, walletID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Wallet cache read failed, falling back to database", "wallet_id", walletID, "error", err)
	}

	// The version must be taken before the database read so a concurrent commit voids the fill.
	version, versionErr := s.cache.Version(ctx, walletID)

	wallet, err := s.walletRepo.GetWalletByID(ctx, s.dbExecutor, walletID)
	if err != nil {
		if !util.IsError(err, util.ErrWalletNotFound) {
			s.logger.Error("Failed to get wallet", "wallet_id", walletID, "error", err)
		}
		return nil, fmt.Errorf("get wallet %s: %w", walletID, err)
	}

	if versionErr != nil {
		s.logger.Warn("Wallet cache version unavailable, not caching", "wallet_id", walletID, "error", versionErr)
		return wallet, nil
	}
	if err := s.cache.SetWallet(ctx, wallet, version); err != nil {
		s.logger.Warn("Failed to cache wallet", "wallet_id", walletID, "error", err)
	}
	return wallet, nil
}

// ListWallets returns all wallets, or util.ErrNoData when none exist.
func (s *walletService) ListWallets(ctx context.Context) ([]domain.Wallet, error) {
	wallets, err := s.walletRepo.ListWallets(ctx, s.dbExecutor)
	if err != nil {
		if !util.IsError(err, util.ErrNoData) {
			s.logger.Error("Failed to list wallets", "error", err)
		}
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	return wallets, nil
}

// ApplyOperation deposits into or withdraws from a wallet.
// Cache invalidation and event publication happen only after commit and never fail the operation.
func (s *walletService) ApplyOperation(ctx context.Context, walletID uuid.UUID, op domain.Operation) (*domain.Wallet, error) {
	wallet, err := s.coordinator.Apply(ctx, walletID, op)
	if err != nil {
		return nil, err
	}

	// The commit already happened, so a cancelled request must not skip invalidation.
	invalidateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()
	if err := s.cache.InvalidateWallet(invalidateCtx, walletID); err != nil {
		s.logger.Warn("Failed to invalidate cached wallet", "wallet_id", walletID, "error", err)
	}
	if err := s.publisher.PublishOperationApplied(domain.NewOperationAppliedEvent(wallet, op)); err != nil {
		s.logger.Warn("Failed to publish operation event", "wallet_id", walletID, "error", err)
	}

	s.logger.Info("Wallet operation applied",
		"wallet_id", walletID,
		"operation", op.Type,
		"amount", op.Amount.StringFixed(domain.BalanceScale),
		"balance", wallet.Balance.StringFixed(domain.BalanceScale),
	)
	return wallet, nil
}
