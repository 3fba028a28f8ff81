// Package service syncs identity-provider accounts into the local user table.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"commie/backend/internal/apperr"
	"commie/backend/internal/security"
	"commie/backend/internal/user/domain"
	userrepo "commie/backend/internal/user/repository"
)

// Service keeps the local user table in sync with verified token claims.
type Service struct {
	users userrepo.Repository
}

// NewService returns a user sync service.
func NewService(users userrepo.Repository) *Service {
	return &Service{users: users}
}

// EnsureUser returns the local user for the token's subject, creating the row
// on first sight and refreshing email/name when the provider changed them.
// Platform roles from the token are mirrored so admin grants made in the
// provider take effect on the next request.
func (s *Service) EnsureUser(ctx context.Context, claims *security.Claims) (*domain.User, error) {
	u, err := s.users.GetBySubject(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if u == nil {
		now := time.Now().UTC()
		u = &domain.User{
			ID:            uuid.New().String(),
			Subject:       claims.Subject,
			Email:         claims.Email,
			Name:          claims.Name,
			PlatformRoles: claims.Roles,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := u.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, err
		}
		return u, nil
	}
	if !claimsMatch(u, claims) {
		u.Email = claims.Email
		u.Name = claims.Name
		u.PlatformRoles = claims.Roles
		u.UpdatedAt = time.Now().UTC()
		if err := s.users.Update(ctx, u); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// ProfileInput holds the user-editable profile fields.
type ProfileInput struct {
	DisplayName string
}

// UpdateProfile sets the caller's display name.
func (s *Service) UpdateProfile(ctx context.Context, user *domain.User, in ProfileInput) (*domain.User, error) {
	user.DisplayName = in.DisplayName
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func claimsMatch(u *domain.User, claims *security.Claims) bool {
	if u.Email != claims.Email || u.Name != claims.Name {
		return false
	}
	if len(u.PlatformRoles) != len(claims.Roles) {
		return false
	}
	for i, r := range u.PlatformRoles {
		if claims.Roles[i] != r {
			return false
		}
	}
	return true
}
