// Package watchlists persists per-user symbol sets.
package watchlists

import "context"

// Repository stores one symbol set per user. Add and Remove are idempotent.
type Repository interface {
	Add(ctx context.Context, userID, symbol string) error
	Remove(ctx context.Context, userID, symbol string) error
	// List returns the user's symbols sorted ascending.
	List(ctx context.Context, userID string) ([]string, error)
}
