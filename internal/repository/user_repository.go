package repository

import (
	"context"

	"shopapi/internal/domain/model"

	"github.com/google/uuid"
)

// UserRepository persists accounts. Lookups return ErrNotFound on a miss,
// writes return ErrDuplicate when email or username is taken.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}
