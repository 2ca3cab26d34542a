// internal/service/coordinator.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
	"wallet-ledger/pkg/db"
)

// OperationState is the lifecycle stage of a single balance operation.
type OperationState string

const (
	StateStarted   OperationState = "STARTED"
	StateLocked    OperationState = "LOCKED"
	StateValidated OperationState = "VALIDATED"
	StateMutated   OperationState = "MUTATED"
	StateCommitted OperationState = "COMMITTED"
	StateAborted   OperationState = "ABORTED"
)

// TransactionCoordinator applies one operation to one wallet as a single atomic unit:
// lock the row, validate against the locked balance, write, commit.
// The row lock is held from the read that informs the decision until commit or rollback.
type TransactionCoordinator struct {
	dbBeginner db.DBTxBeginner
	walletRepo repository.WalletRepository
	beginTx    db.BeginTxFunc
	commitTx   db.CommitTxFunc
	rollbackTx db.RollbackTxFunc
	timeout    time.Duration
	logger     *slog.Logger
}

// NewTransactionCoordinator creates a coordinator. A zero timeout leaves the caller's deadline in charge.
func NewTransactionCoordinator(
	dbBeginner db.DBTxBeginner,
	walletRepo repository.WalletRepository,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	timeout time.Duration,
	logger *slog.Logger,
) *TransactionCoordinator {
	return &TransactionCoordinator{
		dbBeginner: dbBeginner,
		walletRepo: walletRepo,
		beginTx:    beginTx,
		commitTx:   commitTx,
		rollbackTx: rollbackTx,
		timeout:    timeout,
		logger:     logger,
	}
}

// Apply runs op against the wallet and returns the committed wallet.
// On any failure the transaction is rolled back and the wallet is unchanged.
func (c *TransactionCoordinator) Apply(ctx context.Context, walletID uuid.UUID, op domain.Operation) (wallet *domain.Wallet, err error) {
	// Malformed requests never open a transaction or take a lock.
	if err := domain.ValidateOperation(op); err != nil {
		return nil, fmt.Errorf("apply %s to wallet %s: %w", op.Type, walletID, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	state := StateStarted
	c.trace(state, walletID, op)

	txController, err := c.beginTx(ctx, c.dbBeginner)
	if err != nil {
		return nil, c.abort(state, walletID, op, util.NewStorageError("begin transaction", err))
	}
	defer c.rollbackTx(txController)
	defer func() {
		if r := recover(); r != nil {
			wallet = nil
			err = c.abort(state, walletID, op, fmt.Errorf("%w: panic in state %s: %v", util.ErrInternal, state, r))
		}
	}()

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, c.abort(state, walletID, op, fmt.Errorf("%w: transaction controller does not implement DBExecutor", util.ErrInternal))
	}

	locked, err := c.walletRepo.GetWalletForUpdate(ctx, txExecutor, walletID)
	if err != nil {
		return nil, c.abort(state, walletID, op, err)
	}
	state = StateLocked
	c.trace(state, walletID, op, "balance", locked.Balance.StringFixed(domain.BalanceScale))

	newBalance, err := domain.ApplyOperation(op, locked.Balance)
	if err != nil {
		return nil, c.abort(state, walletID, op, err)
	}
	state = StateValidated
	c.trace(state, walletID, op, "new_balance", newBalance.StringFixed(domain.BalanceScale))

	updated, err := c.walletRepo.UpdateWalletBalance(ctx, txExecutor, walletID, newBalance)
	if err != nil {
		return nil, c.abort(state, walletID, op, err)
	}
	state = StateMutated
	c.trace(state, walletID, op)

	if err := c.commitTx(txController); err != nil {
		return nil, c.abort(state, walletID, op, util.NewStorageError("commit transaction", err))
	}
	state = StateCommitted
	c.trace(state, walletID, op)

	return updated, nil
}

// abort classifies err, logs the failed operation and returns the error to hand back.
// The deferred rollback in Apply runs after abort returns.
func (c *TransactionCoordinator) abort(from OperationState, walletID uuid.UUID, op domain.Operation, err error) error {
	err = classify(err)
	attrs := []any{
		"wallet_id", walletID,
		"operation", op.Type,
		"amount", op.Amount.StringFixed(domain.BalanceScale),
		"from_state", from,
		"state", StateAborted,
		"error", err,
	}

	switch {
	case util.IsError(err, util.ErrInvalidInput),
		util.IsError(err, util.ErrInsufficientFunds),
		util.IsError(err, util.ErrWalletNotFound):
		c.logger.Info("Wallet operation rejected, rolled back", attrs...)
	default:
		c.logger.Error("Wallet operation failed, rolled back", attrs...)
	}

	return fmt.Errorf("apply %s to wallet %s: %w", op.Type, walletID, err)
}

func (c *TransactionCoordinator) trace(state OperationState, walletID uuid.UUID, op domain.Operation, extra ...any) {
	attrs := append([]any{"wallet_id", walletID, "operation", op.Type, "state", state}, extra...)
	c.logger.Debug("Wallet operation state", attrs...)
}

// classify maps anything outside the known taxonomy onto ErrInternal, keeping the cause.
func classify(err error) error {
	switch {
	case util.IsError(err, util.ErrInvalidInput),
		util.IsError(err, util.ErrInsufficientFunds),
		util.IsError(err, util.ErrWalletNotFound),
		util.IsError(err, util.ErrStorage),
		util.IsError(err, util.ErrInternal):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return util.NewStorageError("operation cancelled", err)
	default:
		return fmt.Errorf("%w: %w", util.ErrInternal, err)
	}
}
