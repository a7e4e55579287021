package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/moneo/internal/dbx"
	"github.com/dmitrijs2005/moneo/internal/server/migrations"
	"github.com/dmitrijs2005/moneo/internal/server/repositories/transactions"
	"github.com/dmitrijs2005/moneo/internal/server/repositories/users"
	"github.com/dmitrijs2005/moneo/internal/server/repositories/watchlists"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed stores.
type PostgresRepositoryManager struct {
	db *sql.DB
}

// OpenPostgres opens and pings a pgx-backed connection pool.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

func NewPostgresRepositoryManager(db *sql.DB) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{db: db}
}

func (m *PostgresRepositoryManager) Users() users.Repository {
	return users.NewPostgresRepository(m.db)
}

func (m *PostgresRepositoryManager) Transactions() transactions.Repository {
	return transactions.NewPostgresRepository(m.db)
}

func (m *PostgresRepositoryManager) Watchlists() watchlists.Repository {
	return watchlists.NewPostgresRepository(m.db)
}

// WithTx binds the stores to one *sql.Tx; see dbx.WithTx for commit rules.
func (m *PostgresRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, txRepositories{tx: tx})
	})
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, m.db, ".")
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

type txRepositories struct {
	tx dbx.DBTX
}

func (r txRepositories) Users() users.Repository {
	return users.NewPostgresRepository(r.tx)
}

func (r txRepositories) Transactions() transactions.Repository {
	return transactions.NewPostgresRepository(r.tx)
}

func (r txRepositories) Watchlists() watchlists.Repository {
	return watchlists.NewPostgresRepository(r.tx)
}
