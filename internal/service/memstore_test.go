// internal/service/memstore_test.go
package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
	"wallet-ledger/pkg/db"
)

// memStore is an in-memory balance store with per-row exclusive locks.
// A row lock taken by GetWalletForUpdate is held until the owning memTx commits or rolls back,
// which mirrors SELECT ... FOR UPDATE semantics.
type memStore struct {
	mu       sync.Mutex
	balances map[uuid.UUID]decimal.Decimal
	rowLocks map[uuid.UUID]*sync.Mutex

	// failUpdate makes UpdateWalletBalance return a storage error after staging the write.
	failUpdate bool
	commits    int
}

func newMemStore() *memStore {
	return &memStore{
		balances: make(map[uuid.UUID]decimal.Decimal),
		rowLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *memStore) addWallet(balance string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.balances[id] = decimal.RequireFromString(balance)
	s.rowLocks[id] = &sync.Mutex{}
	return id
}

func (s *memStore) balance(id uuid.UUID) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[id]
}

func (s *memStore) commitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

func (s *memStore) beginTx(_ context.Context, _ db.DBTxBeginner) (db.TxController, error) {
	return &memTx{store: s, pending: make(map[uuid.UUID]decimal.Decimal)}, nil
}

func (s *memStore) commitTx(tx db.TxController) error { return tx.Commit() }

func (s *memStore) rollbackTx(tx db.TxController) { _ = tx.Rollback() }

// memTx buffers writes until commit. Its DBExecutor methods exist only so the
// coordinator accepts it as a transactional executor.
type memTx struct {
	store   *memStore
	held    []uuid.UUID
	pending map[uuid.UUID]decimal.Decimal
	done    bool
}

func (t *memTx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.store.mu.Lock()
	for id, balance := range t.pending {
		t.store.balances[id] = balance
	}
	t.store.commits++
	t.store.mu.Unlock()
	t.release()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.release()
	return nil
}

func (t *memTx) release() {
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, id := range t.held {
		t.store.rowLocks[id].Unlock()
	}
	t.held = nil
}

func (t *memTx) GetContext(context.Context, interface{}, string, ...interface{}) error {
	return errors.New("memTx: raw queries are not supported")
}

func (t *memTx) SelectContext(context.Context, interface{}, string, ...interface{}) error {
	return errors.New("memTx: raw queries are not supported")
}

func (t *memTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errors.New("memTx: raw queries are not supported")
}

func (t *memTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return &sql.Row{}
}

// memWalletRepo implements repository.WalletRepository on top of memStore.
type memWalletRepo struct {
	store *memStore
}

func (r *memWalletRepo) CreateWallet(_ context.Context, _ repository.DBExecutor, wallet *domain.Wallet) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.balances[wallet.ID] = wallet.Balance
	r.store.rowLocks[wallet.ID] = &sync.Mutex{}
	return nil
}

func (r *memWalletRepo) GetWalletByID(_ context.Context, _ repository.DBExecutor, id uuid.UUID) (*domain.Wallet, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	balance, ok := r.store.balances[id]
	if !ok {
		return nil, util.ErrWalletNotFound
	}
	return &domain.Wallet{ID: id, Balance: balance}, nil
}

func (r *memWalletRepo) ListWallets(_ context.Context, _ repository.DBExecutor) ([]domain.Wallet, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if len(r.store.balances) == 0 {
		return nil, util.ErrNoData
	}
	wallets := make([]domain.Wallet, 0, len(r.store.balances))
	for id, balance := range r.store.balances {
		wallets = append(wallets, domain.Wallet{ID: id, Balance: balance})
	}
	return wallets, nil
}

func (r *memWalletRepo) GetWalletForUpdate(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Wallet, error) {
	tx, ok := q.(*memTx)
	if !ok {
		return nil, errors.New("memWalletRepo: GetWalletForUpdate requires a transaction")
	}

	r.store.mu.Lock()
	rowLock, ok := r.store.rowLocks[id]
	r.store.mu.Unlock()
	if !ok {
		return nil, util.ErrWalletNotFound
	}

	rowLock.Lock()
	tx.held = append(tx.held, id)
	// Widen the window between read and write so lost updates would show up.
	time.Sleep(50 * time.Microsecond)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &domain.Wallet{ID: id, Balance: r.store.balance(id)}, nil
}

func (r *memWalletRepo) UpdateWalletBalance(_ context.Context, q repository.DBExecutor, id uuid.UUID, balance decimal.Decimal) (*domain.Wallet, error) {
	tx, ok := q.(*memTx)
	if !ok {
		return nil, errors.New("memWalletRepo: UpdateWalletBalance requires a transaction")
	}
	tx.pending[id] = balance

	r.store.mu.Lock()
	fail := r.store.failUpdate
	r.store.mu.Unlock()
	if fail {
		return nil, util.NewStorageError("update wallet balance", errors.New("disk full"))
	}
	return &domain.Wallet{ID: id, Balance: balance}, nil
}

func newMemCoordinator(store *memStore) *TransactionCoordinator {
	return NewTransactionCoordinator(
		nil,
		&memWalletRepo{store: store},
		store.beginTx,
		store.commitTx,
		store.rollbackTx,
		5*time.Second,
		discardLogger(),
	)
}
