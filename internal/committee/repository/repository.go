package repository

import (
	"context"

	"commie/backend/internal/committee/domain"
)

// Repository is the persistence interface for committees, their members, and
// access requests.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Committee, error)
	ListByOrg(ctx context.Context, orgID string) ([]*domain.Committee, error)
	Create(ctx context.Context, c *domain.Committee) error
	Update(ctx context.Context, c *domain.Committee) error
	Delete(ctx context.Context, id string) error

	GetMember(ctx context.Context, committeeID, userID string) (*domain.Member, error)
	ListMembers(ctx context.Context, committeeID string) ([]*domain.Member, error)
	UpsertMember(ctx context.Context, m *domain.Member) error
	RemoveMember(ctx context.Context, committeeID, userID string) error

	CreateAccessRequest(ctx context.Context, ar *domain.AccessRequest) error
	GetAccessRequest(ctx context.Context, id string) (*domain.AccessRequest, error)
	ListAccessRequests(ctx context.Context, committeeID string, status domain.AccessRequestStatus) ([]*domain.AccessRequest, error)
	DecideAccessRequest(ctx context.Context, id string, status domain.AccessRequestStatus) error
}
