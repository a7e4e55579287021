package users

import (
	"context"

	"github.com/dmitrijs2005/moneo/internal/server/models"
)

// Repository persists users. Emails are stored lowercased and are unique;
// Create reports a duplicate with common.ErrEmailExists and lookups report a
// miss with common.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}
