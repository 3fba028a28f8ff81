package domain

import (
	"errors"
	"strings"
	"time"
)

// Organization owns committees and carries billing/tenancy scope.
type Organization struct {
	ID      string
	Name    string
	Slug    string
	OwnerID string
	// InviteToken is the shared token members redeem via verify-invite.
	InviteToken string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks required fields.
func (o *Organization) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return errors.New("organization name is required")
	}
	if strings.TrimSpace(o.Slug) == "" {
		return errors.New("organization slug is required")
	}
	if o.OwnerID == "" {
		return errors.New("organization owner_id is required")
	}
	return nil
}

// Role is a user's organization-scoped role.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Member links a user to an organization with a role.
type Member struct {
	ID        string
	OrgID     string
	UserID    string
	Role      Role
	CreatedAt time.Time
}
