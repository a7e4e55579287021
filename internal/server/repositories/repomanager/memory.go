package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/moneo/internal/server/repositories/transactions"
	"github.com/dmitrijs2005/moneo/internal/server/repositories/users"
	"github.com/dmitrijs2005/moneo/internal/server/repositories/watchlists"
)

// MemoryRepositoryManager keeps all state in process memory. WithTx does not
// roll back; it only serializes callers, which is what the services rely on
// for read-check-write sequences.
type MemoryRepositoryManager struct {
	txMu         sync.Mutex
	users        *users.MemoryRepository
	transactions *transactions.MemoryRepository
	watchlists   *watchlists.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:        users.NewMemoryRepository(),
		transactions: transactions.NewMemoryRepository(),
		watchlists:   watchlists.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *MemoryRepositoryManager) Transactions() transactions.Repository {
	return m.transactions
}

func (m *MemoryRepositoryManager) Watchlists() watchlists.Repository {
	return m.watchlists
}

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx, m)
}

func (m *MemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *MemoryRepositoryManager) Close() error {
	return nil
}
