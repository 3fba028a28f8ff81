// Package service implements committee management: settings, membership, and
// access requests.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"commie/backend/internal/apperr"
	"commie/backend/internal/audit"
	"commie/backend/internal/committee/domain"
	committeerepo "commie/backend/internal/committee/repository"
	"commie/backend/internal/platform/rbac"
	userdomain "commie/backend/internal/user/domain"
)

// Service implements committee operations.
type Service struct {
	committees committeerepo.Repository
	auditLog   audit.AuditLogger
}

// NewService returns a committee service. auditLog may be nil.
func NewService(committees committeerepo.Repository, auditLog audit.AuditLogger) *Service {
	return &Service{committees: committees, auditLog: auditLog}
}

// CreateInput holds the caller-supplied fields for a new committee.
type CreateInput struct {
	Title       string
	Description string
	Visibility  string
	Settings    domain.Settings
}

// Create registers a committee in the caller's organization. The creator
// becomes the owner with a matching membership row.
func (s *Service) Create(ctx context.Context, user *userdomain.User, in CreateInput) (*domain.Committee, error) {
	if user.OrganizationID == "" {
		return nil, fmt.Errorf("%w: caller has no organization", apperr.ErrValidation)
	}
	visibility := domain.Visibility(in.Visibility)
	if in.Visibility == "" {
		visibility = domain.VisibilityPrivate
	}
	settings := in.Settings
	if settings.EnforcementLevel == "" {
		settings.EnforcementLevel = domain.EnforcementAdvisory
	}
	now := time.Now().UTC()
	c := &domain.Committee{
		ID:          uuid.New().String(),
		OrgID:       user.OrganizationID,
		Title:       strings.TrimSpace(in.Title),
		Slug:        slugify(in.Title),
		Description: in.Description,
		OwnerID:     user.ID,
		Visibility:  visibility,
		Settings:    settings,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if err := s.committees.Create(ctx, c); err != nil {
		return nil, err
	}
	owner := &domain.Member{
		ID:          uuid.New().String(),
		CommitteeID: c.ID,
		UserID:      user.ID,
		Role:        domain.RoleOwner,
		JoinedAt:    now,
	}
	if err := s.committees.UpsertMember(ctx, owner); err != nil {
		return nil, err
	}
	s.audit(ctx, c, user.ID, "committee.create", "")
	return c, nil
}

// UpdateInput holds the editable committee fields.
type UpdateInput struct {
	Title       string
	Description string
	Visibility  string
	ChairID     string
	Settings    domain.Settings
}

// Update edits committee settings. Chair, owner, or admin only.
func (s *Service) Update(ctx context.Context, role rbac.Role, c *domain.Committee, in UpdateInput) (*domain.Committee, error) {
	if !rbac.CanManageCommittee(role) {
		return nil, apperr.ErrForbidden
	}
	c.Title = strings.TrimSpace(in.Title)
	c.Description = in.Description
	c.Visibility = domain.Visibility(in.Visibility)
	c.ChairID = in.ChairID
	c.Settings = in.Settings
	c.UpdatedAt = time.Now().UTC()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if err := s.committees.Update(ctx, c); err != nil {
		return nil, err
	}
	s.audit(ctx, c, "", "committee.update", "")
	return c, nil
}

// Delete removes the committee. Owner or admin only; the chair alone cannot.
func (s *Service) Delete(ctx context.Context, role rbac.Role, actorID string, c *domain.Committee) error {
	if role != rbac.RoleOwner && role != rbac.RoleAdmin {
		return apperr.ErrForbidden
	}
	if err := s.committees.Delete(ctx, c.ID); err != nil {
		return err
	}
	s.audit(ctx, c, actorID, "committee.delete", "")
	return nil
}

// ListMembers returns the committee roster.
func (s *Service) ListMembers(ctx context.Context, role rbac.Role, c *domain.Committee, committeeID string) ([]*domain.Member, error) {
	if !rbac.CanRead(role, c) {
		return nil, apperr.ErrForbidden
	}
	return s.committees.ListMembers(ctx, committeeID)
}

// SetMember adds a member or changes an existing member's role. Managers only;
// the owner role cannot be granted this way.
func (s *Service) SetMember(ctx context.Context, role rbac.Role, actorID string, c *domain.Committee, userID string, memberRole domain.Role) (*domain.Member, error) {
	if !rbac.CanManageCommittee(role) {
		return nil, apperr.ErrForbidden
	}
	switch memberRole {
	case domain.RoleChair, domain.RoleMember, domain.RoleGuest:
	default:
		return nil, fmt.Errorf("%w: role must be chair, member, or guest", apperr.ErrValidation)
	}
	m := &domain.Member{
		ID:          uuid.New().String(),
		CommitteeID: c.ID,
		UserID:      userID,
		Role:        memberRole,
		JoinedAt:    time.Now().UTC(),
	}
	if err := s.committees.UpsertMember(ctx, m); err != nil {
		return nil, err
	}
	s.audit(ctx, c, actorID, "committee.member.set", fmt.Sprintf(`{"userId":%q,"role":%q}`, userID, memberRole))
	return m, nil
}

// RemoveMember drops a member from the roster. Managers only; the owner
// cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, role rbac.Role, actorID string, c *domain.Committee, userID string) error {
	if !rbac.CanManageCommittee(role) {
		return apperr.ErrForbidden
	}
	if userID == c.OwnerID {
		return fmt.Errorf("%w: the owner cannot be removed", apperr.ErrValidation)
	}
	if err := s.committees.RemoveMember(ctx, c.ID, userID); err != nil {
		return err
	}
	s.audit(ctx, c, actorID, "committee.member.remove", fmt.Sprintf(`{"userId":%q}`, userID))
	return nil
}

// RequestAccess files an access request from a non-member. Members and above
// already have access, so their request is an invalid-state error. A denied
// request may be re-filed; the repository resets it to pending.
func (s *Service) RequestAccess(ctx context.Context, role rbac.Role, c *domain.Committee, userID, message string) (*domain.AccessRequest, error) {
	if role.AtLeast(rbac.RoleMember) {
		return nil, fmt.Errorf("%w: caller already has access", apperr.ErrInvalidState)
	}
	ar := &domain.AccessRequest{
		ID:          uuid.New().String(),
		CommitteeID: c.ID,
		UserID:      userID,
		Message:     message,
		Status:      domain.AccessRequestPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.committees.CreateAccessRequest(ctx, ar); err != nil {
		return nil, err
	}
	s.audit(ctx, c, userID, "committee.access.request", "")
	return ar, nil
}

// ListAccessRequests returns the committee's access requests filtered by
// status. Managers only.
func (s *Service) ListAccessRequests(ctx context.Context, role rbac.Role, c *domain.Committee, status domain.AccessRequestStatus) ([]*domain.AccessRequest, error) {
	if !rbac.CanManageCommittee(role) {
		return nil, apperr.ErrForbidden
	}
	return s.committees.ListAccessRequests(ctx, c.ID, status)
}

// DecideAccessRequest approves or denies a pending access request. Approval
// creates a member row with the member role. Deciding a request that is not
// pending is an invalid-state error.
func (s *Service) DecideAccessRequest(ctx context.Context, role rbac.Role, actorID string, c *domain.Committee, requestID string, approve bool) error {
	if !rbac.CanManageCommittee(role) {
		return apperr.ErrForbidden
	}
	ar, err := s.committees.GetAccessRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if ar == nil || ar.CommitteeID != c.ID {
		return fmt.Errorf("%w: access request", apperr.ErrNotFound)
	}
	if ar.Status != domain.AccessRequestPending {
		return fmt.Errorf("%w: access request is already %s", apperr.ErrInvalidState, ar.Status)
	}
	status := domain.AccessRequestDenied
	if approve {
		status = domain.AccessRequestApproved
	}
	if err := s.committees.DecideAccessRequest(ctx, requestID, status); err != nil {
		return err
	}
	if approve {
		m := &domain.Member{
			ID:          uuid.New().String(),
			CommitteeID: c.ID,
			UserID:      ar.UserID,
			Role:        domain.RoleMember,
			JoinedAt:    time.Now().UTC(),
		}
		if err := s.committees.UpsertMember(ctx, m); err != nil {
			return err
		}
	}
	s.audit(ctx, c, actorID, "committee.access.decide", fmt.Sprintf(`{"requestId":%q,"status":%q}`, requestID, status))
	return nil
}

func (s *Service) audit(ctx context.Context, c *domain.Committee, userID, action, metadata string) {
	if s.auditLog == nil {
		return
	}
	s.auditLog.LogEvent(ctx, c.OrgID, c.ID, userID, action, "committee:"+c.ID, metadata)
}

func slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
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
