package watchlists

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/moneo/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Add(ctx context.Context, userID, symbol string) error {
	query :=
		`INSERT INTO watchlist_symbols (user_id, symbol)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING
		 `

	if _, err := r.db.ExecContext(ctx, query, userID, symbol); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Remove(ctx context.Context, userID, symbol string) error {
	query := `DELETE FROM watchlist_symbols WHERE user_id = $1 AND symbol = $2`

	if _, err := r.db.ExecContext(ctx, query, userID, symbol); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string) ([]string, error) {
	query :=
		`SELECT symbol FROM watchlist_symbols
		 WHERE user_id = $1
		 ORDER BY symbol
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	symbols := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return symbols, nil
}
