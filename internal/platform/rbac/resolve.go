// Package rbac resolves a caller's effective committee role and gates
// operations on it. Resolution precedence, first match wins: platform
// admin/super-admin, organization admin, explicit membership row, the
// committee's chair_id, the committee's owner_id. Absence of all is RoleNone;
// such callers are denied reads (unless the committee is public) but may still
// file an access request.
package rbac

import (
	"context"

	committeedomain "commie/backend/internal/committee/domain"
	userdomain "commie/backend/internal/user/domain"
)

// Role is the effective, resolved permission level. Unlike the stored
// committee role it includes the platform-admin bypass and the no-access state.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
	RoleChair  Role = "chair"
	RoleMember Role = "member"
	RoleGuest  Role = "guest"
	RoleNone   Role = "none"
)

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 5
	case RoleOwner:
		return 4
	case RoleChair:
		return 3
	case RoleMember:
		return 2
	case RoleGuest:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r outranks or equals other.
func (r Role) AtLeast(other Role) bool {
	return r.rank() >= other.rank()
}

func fromCommitteeRole(cr committeedomain.Role) Role {
	switch cr {
	case committeedomain.RoleOwner:
		return RoleOwner
	case committeedomain.RoleChair:
		return RoleChair
	case committeedomain.RoleMember:
		return RoleMember
	case committeedomain.RoleGuest:
		return RoleGuest
	default:
		return RoleNone
	}
}

// ResolveRole computes the effective role of user in committee given the
// user's membership row (nil when absent). user may be nil for anonymous
// callers, which always resolve to RoleNone.
func ResolveRole(user *userdomain.User, committee *committeedomain.Committee, membership *committeedomain.Member) Role {
	if user == nil || committee == nil {
		return RoleNone
	}
	if user.IsPlatformAdmin() {
		return RoleAdmin
	}
	if user.OrganizationID == committee.OrgID && user.OrganizationRole == userdomain.OrgRoleAdmin {
		return RoleAdmin
	}
	role := RoleNone
	if membership != nil {
		role = fromCommitteeRole(membership.Role)
	}
	// The chair_id/owner_id fields lift but never lower a stored role: a user
	// listed as member who is also the chair resolves to at least chair.
	if committee.ChairID == user.ID && !role.AtLeast(RoleChair) {
		role = RoleChair
	}
	if committee.OwnerID == user.ID && !role.AtLeast(RoleOwner) {
		role = RoleOwner
	}
	return role
}

// CanRead reports whether the role may read the committee's motions.
// Public committees are readable by anyone, including anonymous callers.
func CanRead(role Role, committee *committeedomain.Committee) bool {
	if committee != nil && committee.Visibility == committeedomain.VisibilityPublic {
		return true
	}
	return role.AtLeast(RoleGuest)
}

// CanVote reports whether the role may cast votes. Guests never vote,
// regardless of motion state or committee visibility.
func CanVote(role Role) bool {
	return role.AtLeast(RoleMember)
}

// CanPost reports whether the role may create motions and comments.
func CanPost(role Role) bool {
	return role.AtLeast(RoleMember)
}

// CanManageMotions reports whether the role may second-independent chair
// actions: open/close voting, void, moderate comments.
func CanManageMotions(role Role) bool {
	return role == RoleChair || role == RoleOwner || role == RoleAdmin
}

// CanManageCommittee reports whether the role may change committee settings
// and membership.
func CanManageCommittee(role Role) bool {
	return role == RoleOwner || role == RoleChair || role == RoleAdmin
}

// MemberGetter returns a user's membership row in a committee. Used by Resolve.
type MemberGetter interface {
	GetMember(ctx context.Context, committeeID, userID string) (*committeedomain.Member, error)
}

// Resolve fetches the membership row and resolves the effective role.
// user may be nil (anonymous); the result is then RoleNone without a lookup.
func Resolve(ctx context.Context, user *userdomain.User, committee *committeedomain.Committee, getter MemberGetter) (Role, error) {
	if user == nil || committee == nil {
		return RoleNone, nil
	}
	membership, err := getter.GetMember(ctx, committee.ID, user.ID)
	if err != nil {
		return RoleNone, err
	}
	return ResolveRole(user, committee, membership), nil
}
