package domain

import (
	"errors"
	"strings"
	"time"
)

// Platform-level roles carried on the user record. Committee roles live on
// committee membership rows, never here.
const (
	PlatformRoleAdmin      = "admin"
	PlatformRoleSuperAdmin = "super-admin"
)

// OrgRole is a user's role within their organization.
type OrgRole string

const (
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
)

// User is an account synced from the identity provider. Subject is the
// provider's stable identifier (e.g. the Auth0 sub claim).
type User struct {
	ID               string
	Subject          string
	Email            string
	Name             string
	DisplayName      string
	PlatformRoles    []string
	OrganizationID   string
	OrganizationRole OrgRole
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Validate checks required fields.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Subject) == "" {
		return errors.New("user subject is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return errors.New("user email is required")
	}
	return nil
}

// IsPlatformAdmin reports whether the user holds a platform admin or super-admin role.
func (u *User) IsPlatformAdmin() bool {
	if u == nil {
		return false
	}
	for _, r := range u.PlatformRoles {
		if r == PlatformRoleAdmin || r == PlatformRoleSuperAdmin {
			return true
		}
	}
	return false
}

// EffectiveName returns the display name if set, otherwise the provider name,
// otherwise the email.
func (u *User) EffectiveName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
