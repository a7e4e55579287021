// Package repomanager vends the stores bound to a database handle and runs
// schema migrations. Services depend on RepositoryManager so that the same
// code runs against Postgres or the in-memory stores.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/moneo/internal/server/repositories/transactions"
	"github.com/dmitrijs2005/moneo/internal/server/repositories/users"
	"github.com/dmitrijs2005/moneo/internal/server/repositories/watchlists"
)

// Repositories gives access to the stores.
type Repositories interface {
	Users() users.Repository
	Transactions() transactions.Repository
	Watchlists() watchlists.Repository
}

type RepositoryManager interface {
	Repositories

	// WithTx runs fn with stores bound to a single database transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error
	RunMigrations(ctx context.Context) error
	Close() error
}
