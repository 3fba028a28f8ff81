// Package service implements organization management and invite redemption.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"commie/backend/internal/apperr"
	"commie/backend/internal/audit"
	"commie/backend/internal/organization/domain"
	orgrepo "commie/backend/internal/organization/repository"
	userdomain "commie/backend/internal/user/domain"
	userrepo "commie/backend/internal/user/repository"
)

// Service implements organization operations. The user table mirrors the
// membership (OrganizationID/OrganizationRole) so role resolution does not
// join; the membership table stays authoritative.
type Service struct {
	orgs     orgrepo.Repository
	users    userrepo.Repository
	auditLog audit.AuditLogger
}

// NewService returns an organization service. auditLog may be nil.
func NewService(orgs orgrepo.Repository, users userrepo.Repository, auditLog audit.AuditLogger) *Service {
	return &Service{orgs: orgs, users: users, auditLog: auditLog}
}

// Create registers an organization; the caller becomes its admin. A user who
// already belongs to an organization cannot create another.
func (s *Service) Create(ctx context.Context, user *userdomain.User, name string) (*domain.Organization, error) {
	if user.OrganizationID != "" {
		return nil, fmt.Errorf("%w: caller already belongs to an organization", apperr.ErrInvalidState)
	}
	name = strings.TrimSpace(name)
	now := time.Now().UTC()
	o := &domain.Organization{
		ID:          uuid.New().String(),
		Name:        name,
		Slug:        slugify(name),
		OwnerID:     user.ID,
		InviteToken: uuid.New().String(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if err := s.orgs.Create(ctx, o); err != nil {
		return nil, err
	}
	if err := s.join(ctx, o, user, domain.RoleAdmin); err != nil {
		return nil, err
	}
	s.audit(ctx, o.ID, user.ID, "organization.create", "")
	return o, nil
}

// Get returns the organization. Members and platform admins only.
func (s *Service) Get(ctx context.Context, user *userdomain.User, orgID string) (*domain.Organization, error) {
	if !s.canRead(user, orgID) {
		return nil, fmt.Errorf("%w: organization", apperr.ErrNotFound)
	}
	o, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: organization", apperr.ErrNotFound)
	}
	return o, nil
}

// Update renames the organization. Org admins only.
func (s *Service) Update(ctx context.Context, user *userdomain.User, orgID, name string) (*domain.Organization, error) {
	if !s.isAdmin(user, orgID) {
		return nil, apperr.ErrForbidden
	}
	o, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: organization", apperr.ErrNotFound)
	}
	o.Name = strings.TrimSpace(name)
	o.UpdatedAt = time.Now().UTC()
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if err := s.orgs.Update(ctx, o); err != nil {
		return nil, err
	}
	s.audit(ctx, orgID, user.ID, "organization.update", "")
	return o, nil
}

// Delete removes the organization. Org admins only.
func (s *Service) Delete(ctx context.Context, user *userdomain.User, orgID string) error {
	if !s.isAdmin(user, orgID) {
		return apperr.ErrForbidden
	}
	if err := s.orgs.Delete(ctx, orgID); err != nil {
		return err
	}
	s.audit(ctx, orgID, user.ID, "organization.delete", "")
	return nil
}

// RedeemInvite resolves the invite token and joins the caller as a member.
func (s *Service) RedeemInvite(ctx context.Context, user *userdomain.User, token string) (*domain.Organization, error) {
	if user.OrganizationID != "" {
		return nil, fmt.Errorf("%w: caller already belongs to an organization", apperr.ErrInvalidState)
	}
	o, err := s.orgs.GetByInviteToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: invite", apperr.ErrNotFound)
	}
	if err := s.join(ctx, o, user, domain.RoleMember); err != nil {
		return nil, err
	}
	s.audit(ctx, o.ID, user.ID, "organization.member.join", "")
	return o, nil
}

// ListMembers returns the organization roster. Members and platform admins only.
func (s *Service) ListMembers(ctx context.Context, user *userdomain.User, orgID string) ([]*domain.Member, error) {
	if !s.canRead(user, orgID) {
		return nil, apperr.ErrForbidden
	}
	return s.orgs.ListMembers(ctx, orgID)
}

// AddMember enrolls an existing user directly, without an invite token. Org
// admins only; the target must not already belong to an organization.
func (s *Service) AddMember(ctx context.Context, user *userdomain.User, orgID, userID string) (*domain.Member, error) {
	if !s.isAdmin(user, orgID) {
		return nil, apperr.ErrForbidden
	}
	o, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: organization", apperr.ErrNotFound)
	}
	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("%w: user", apperr.ErrNotFound)
	}
	if target.OrganizationID != "" {
		return nil, fmt.Errorf("%w: user already belongs to an organization", apperr.ErrInvalidState)
	}
	if err := s.join(ctx, o, target, domain.RoleMember); err != nil {
		return nil, err
	}
	s.audit(ctx, orgID, user.ID, "organization.member.add", fmt.Sprintf(`{"userId":%q}`, userID))
	return s.orgs.GetMember(ctx, orgID, userID)
}

// ListAdmins returns the members holding the admin role.
func (s *Service) ListAdmins(ctx context.Context, user *userdomain.User, orgID string) ([]*domain.Member, error) {
	members, err := s.ListMembers(ctx, user, orgID)
	if err != nil {
		return nil, err
	}
	admins := make([]*domain.Member, 0, len(members))
	for _, m := range members {
		if m.Role == domain.RoleAdmin {
			admins = append(admins, m)
		}
	}
	return admins, nil
}

// RemoveMember drops a member. Org admins only; the owner cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, user *userdomain.User, orgID, userID string) error {
	if !s.isAdmin(user, orgID) {
		return apperr.ErrForbidden
	}
	o, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return err
	}
	if o == nil {
		return fmt.Errorf("%w: organization", apperr.ErrNotFound)
	}
	if userID == o.OwnerID {
		return fmt.Errorf("%w: the owner cannot be removed", apperr.ErrValidation)
	}
	if err := s.orgs.RemoveMember(ctx, orgID, userID); err != nil {
		return err
	}
	if removed, err := s.users.GetByID(ctx, userID); err == nil && removed != nil && removed.OrganizationID == orgID {
		removed.OrganizationID = ""
		removed.OrganizationRole = ""
		removed.UpdatedAt = time.Now().UTC()
		if err := s.users.Update(ctx, removed); err != nil {
			return err
		}
	}
	s.audit(ctx, orgID, user.ID, "organization.member.remove", fmt.Sprintf(`{"userId":%q}`, userID))
	return nil
}

// SetMemberRole promotes or demotes a member. Org admins only.
func (s *Service) SetMemberRole(ctx context.Context, user *userdomain.User, orgID, userID string, role domain.Role) error {
	if !s.isAdmin(user, orgID) {
		return apperr.ErrForbidden
	}
	switch role {
	case domain.RoleAdmin, domain.RoleMember:
	default:
		return fmt.Errorf("%w: role must be admin or member", apperr.ErrValidation)
	}
	m, err := s.orgs.GetMember(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("%w: member", apperr.ErrNotFound)
	}
	if err := s.orgs.UpdateMemberRole(ctx, orgID, userID, role); err != nil {
		return err
	}
	if target, err := s.users.GetByID(ctx, userID); err == nil && target != nil {
		target.OrganizationRole = userdomain.OrgRole(role)
		target.UpdatedAt = time.Now().UTC()
		if err := s.users.Update(ctx, target); err != nil {
			return err
		}
	}
	s.audit(ctx, orgID, user.ID, "organization.member.role", fmt.Sprintf(`{"userId":%q,"role":%q}`, userID, role))
	return nil
}

func (s *Service) join(ctx context.Context, o *domain.Organization, user *userdomain.User, role domain.Role) error {
	m := &domain.Member{
		ID:        uuid.New().String(),
		OrgID:     o.ID,
		UserID:    user.ID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.orgs.AddMember(ctx, m); err != nil {
		return err
	}
	user.OrganizationID = o.ID
	user.OrganizationRole = userdomain.OrgRole(role)
	user.UpdatedAt = time.Now().UTC()
	return s.users.Update(ctx, user)
}

func (s *Service) isAdmin(user *userdomain.User, orgID string) bool {
	if user.IsPlatformAdmin() {
		return true
	}
	return user.OrganizationID == orgID && user.OrganizationRole == userdomain.OrgRoleAdmin
}

func (s *Service) canRead(user *userdomain.User, orgID string) bool {
	return user.IsPlatformAdmin() || user.OrganizationID == orgID
}

func (s *Service) audit(ctx context.Context, orgID, userID, action, metadata string) {
	if s.auditLog == nil {
		return
	}
	s.auditLog.LogEvent(ctx, orgID, "", userID, action, "organization:"+orgID, metadata)
}

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastDash := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
