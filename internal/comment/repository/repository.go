package repository

import (
	"context"

	"commie/backend/internal/comment/domain"
)

// Repository is the persistence interface for comments.
type Repository interface {
	Create(ctx context.Context, c *domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	Delete(ctx context.Context, id string) error
	// ListByMotion returns one page of comments, newest first, plus the total count.
	ListByMotion(ctx context.Context, motionID string, page, perPage int) ([]*domain.Comment, int, error)
}
