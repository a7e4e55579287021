package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/moneo/internal/common"
	"github.com/dmitrijs2005/moneo/internal/dbx"
	"github.com/dmitrijs2005/moneo/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.Transaction) error {
	query :=
		`INSERT INTO transactions (id, user_id, symbol, quantity, price, side, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.UserID, t.Symbol, t.Quantity, t.PriceAtTransaction, string(t.Side), t.Timestamp)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	query :=
		`SELECT id, user_id, symbol, quantity, price, side, created_at FROM transactions
		 WHERE id = $1
		 `

	t := &models.Transaction{}
	var side string
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&t.ID, &t.UserID, &t.Symbol, &t.Quantity, &t.PriceAtTransaction, &side, &t.Timestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	t.Side = models.Side(side)
	return t, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	query :=
		`SELECT id, user_id, symbol, quantity, price, side, created_at FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at, id
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		var side string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &t.Quantity, &t.PriceAtTransaction, &side, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		t.Side = models.Side(side)
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Position(ctx context.Context, userID, symbol string) (int64, error) {
	query :=
		`SELECT COALESCE(SUM(CASE WHEN side = 'BUY' THEN quantity ELSE -quantity END), 0)
		 FROM transactions
		 WHERE user_id = $1 AND symbol = $2
		 `

	var position int64
	if err := r.db.QueryRowContext(ctx, query, userID, symbol).Scan(&position); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return position, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM transactions WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) LockUser(ctx context.Context, userID string) error {
	query := `SELECT pg_advisory_xact_lock(hashtext($1))`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
