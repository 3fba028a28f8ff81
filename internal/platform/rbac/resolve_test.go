package rbac

import (
	"context"
	"testing"

	committeedomain "commie/backend/internal/committee/domain"
	userdomain "commie/backend/internal/user/domain"
)

func testCommittee() *committeedomain.Committee {
	return &committeedomain.Committee{
		ID:         "com-1",
		OrgID:      "org-1",
		ChairID:    "user-chair",
		OwnerID:    "user-owner",
		Visibility: committeedomain.VisibilityPrivate,
	}
}

func TestResolveRole_PlatformAdminBypass(t *testing.T) {
	u := &userdomain.User{ID: "u1", PlatformRoles: []string{userdomain.PlatformRoleSuperAdmin}}
	if got := ResolveRole(u, testCommittee(), nil); got != RoleAdmin {
		t.Errorf("ResolveRole = %s, want admin", got)
	}
}

func TestResolveRole_OrgAdmin(t *testing.T) {
	u := &userdomain.User{ID: "u1", OrganizationID: "org-1", OrganizationRole: userdomain.OrgRoleAdmin}
	if got := ResolveRole(u, testCommittee(), nil); got != RoleAdmin {
		t.Errorf("ResolveRole = %s, want admin", got)
	}
	// Admin of a different org gets nothing.
	u.OrganizationID = "org-2"
	if got := ResolveRole(u, testCommittee(), nil); got != RoleNone {
		t.Errorf("ResolveRole (other org) = %s, want none", got)
	}
}

func TestResolveRole_MembershipRow(t *testing.T) {
	u := &userdomain.User{ID: "u1"}
	m := &committeedomain.Member{CommitteeID: "com-1", UserID: "u1", Role: committeedomain.RoleGuest}
	if got := ResolveRole(u, testCommittee(), m); got != RoleGuest {
		t.Errorf("ResolveRole = %s, want guest", got)
	}
}

func TestResolveRole_ChairOutranksStoredMember(t *testing.T) {
	// Precedence: a user who is committee.chair but listed in members with
	// role member resolves to at least chair.
	u := &userdomain.User{ID: "user-chair"}
	m := &committeedomain.Member{CommitteeID: "com-1", UserID: "user-chair", Role: committeedomain.RoleMember}
	if got := ResolveRole(u, testCommittee(), m); got != RoleChair {
		t.Errorf("ResolveRole = %s, want chair", got)
	}
}

func TestResolveRole_OwnerFieldNeverLowers(t *testing.T) {
	u := &userdomain.User{ID: "user-owner"}
	m := &committeedomain.Member{CommitteeID: "com-1", UserID: "user-owner", Role: committeedomain.RoleOwner}
	if got := ResolveRole(u, testCommittee(), m); got != RoleOwner {
		t.Errorf("ResolveRole = %s, want owner", got)
	}
}

func TestResolveRole_Anonymous(t *testing.T) {
	if got := ResolveRole(nil, testCommittee(), nil); got != RoleNone {
		t.Errorf("ResolveRole(nil) = %s, want none", got)
	}
}

func TestCanRead_PublicCommittee(t *testing.T) {
	c := testCommittee()
	c.Visibility = committeedomain.VisibilityPublic
	if !CanRead(RoleNone, c) {
		t.Error("anonymous read of public committee should be allowed")
	}
	c.Visibility = committeedomain.VisibilityPrivate
	if CanRead(RoleNone, c) {
		t.Error("anonymous read of private committee should be denied")
	}
	if !CanRead(RoleGuest, c) {
		t.Error("guest read of private committee should be allowed")
	}
}

func TestCanVote_GuestNever(t *testing.T) {
	if CanVote(RoleGuest) {
		t.Error("guests must never vote")
	}
	if CanVote(RoleNone) {
		t.Error("non-members must never vote")
	}
	for _, r := range []Role{RoleMember, RoleChair, RoleOwner, RoleAdmin} {
		if !CanVote(r) {
			t.Errorf("%s should be allowed to vote", r)
		}
	}
}

func TestCanManageMotions(t *testing.T) {
	for _, r := range []Role{RoleChair, RoleOwner, RoleAdmin} {
		if !CanManageMotions(r) {
			t.Errorf("%s should manage motions", r)
		}
	}
	for _, r := range []Role{RoleMember, RoleGuest, RoleNone} {
		if CanManageMotions(r) {
			t.Errorf("%s should not manage motions", r)
		}
	}
}

type mockMemberGetter struct {
	members map[string]*committeedomain.Member
	err     error
}

func (m *mockMemberGetter) GetMember(ctx context.Context, committeeID, userID string) (*committeedomain.Member, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.members[committeeID+":"+userID], nil
}

func TestResolve_FetchesMembership(t *testing.T) {
	getter := &mockMemberGetter{members: map[string]*committeedomain.Member{
		"com-1:u1": {CommitteeID: "com-1", UserID: "u1", Role: committeedomain.RoleMember},
	}}
	u := &userdomain.User{ID: "u1"}
	role, err := Resolve(context.Background(), u, testCommittee(), getter)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if role != RoleMember {
		t.Errorf("Resolve = %s, want member", role)
	}

	role, err = Resolve(context.Background(), nil, testCommittee(), getter)
	if err != nil {
		t.Fatalf("Resolve(nil user): %v", err)
	}
	if role != RoleNone {
		t.Errorf("Resolve(nil user) = %s, want none", role)
	}
}
