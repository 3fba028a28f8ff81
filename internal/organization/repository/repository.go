package repository

import (
	"context"

	"commie/backend/internal/organization/domain"
)

// Repository is the persistence interface for organizations and their members.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
	GetByInviteToken(ctx context.Context, token string) (*domain.Organization, error)
	Create(ctx context.Context, o *domain.Organization) error
	Update(ctx context.Context, o *domain.Organization) error
	Delete(ctx context.Context, id string) error

	GetMember(ctx context.Context, orgID, userID string) (*domain.Member, error)
	ListMembers(ctx context.Context, orgID string) ([]*domain.Member, error)
	AddMember(ctx context.Context, m *domain.Member) error
	RemoveMember(ctx context.Context, orgID, userID string) error
	UpdateMemberRole(ctx context.Context, orgID, userID string, role domain.Role) error
}
