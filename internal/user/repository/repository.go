package repository

import (
	"context"

	"commie/backend/internal/user/domain"
)

// Repository is the persistence interface for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetBySubject(ctx context.Context, subject string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
}
