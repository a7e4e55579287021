// Package services holds the server's business logic. Handlers call services;
// services call the stores through repomanager and prices through a
// QuoteSource, and return errors from the common taxonomy.
package services

import (
	"context"

	"github.com/dmitrijs2005/moneo/internal/server/models"
)

// QuoteSource returns a fresh quote for a canonical symbol.
type QuoteSource interface {
	Get(ctx context.Context, symbol string) (*models.Quote, error)
}

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}
