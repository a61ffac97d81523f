package repository

import (
	"context"

	"marketplace-auth/internal/user/domain"
)

// Repository defines persistence for users. Lookups return nil (not an
// error) when no user matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
}
