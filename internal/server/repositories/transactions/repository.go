// Package transactions is the holdings store: immutable per-user trade
// records from which positions are derived.
package transactions

import (
	"context"

	"github.com/dmitrijs2005/moneo/internal/server/models"
)

// Repository persists transactions. Lookups and deletes of a missing id
// report common.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	// ListByUser returns the user's transactions ordered by timestamp.
	ListByUser(ctx context.Context, userID string) ([]models.Transaction, error)
	// Position returns Σ BUY − Σ SELL quantity for the user in symbol.
	Position(ctx context.Context, userID, symbol string) (int64, error)
	Delete(ctx context.Context, id string) error
	// LockUser serializes position-changing writes for one user until the
	// surrounding transaction ends.
	LockUser(ctx context.Context, userID string) error
}
