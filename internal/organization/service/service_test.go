package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"commie/backend/internal/apperr"
	"commie/backend/internal/organization/domain"
	userdomain "commie/backend/internal/user/domain"
)

type memOrgs struct {
	mu      sync.Mutex
	orgs    map[string]*domain.Organization
	members []*domain.Member
}

func newMemOrgs() *memOrgs {
	return &memOrgs{orgs: map[string]*domain.Organization{}}
}

func (m *memOrgs) GetByID(_ context.Context, id string) (*domain.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orgs[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (m *memOrgs) GetByInviteToken(_ context.Context, token string) (*domain.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orgs {
		if o.InviteToken == token {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memOrgs) Create(_ context.Context, o *domain.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orgs[o.ID] = &cp
	return nil
}

func (m *memOrgs) Update(_ context.Context, o *domain.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orgs[o.ID] = &cp
	return nil
}

func (m *memOrgs) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orgs, id)
	return nil
}

func (m *memOrgs) GetMember(_ context.Context, orgID, userID string) (*domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mm := range m.members {
		if mm.OrgID == orgID && mm.UserID == userID {
			cp := *mm
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memOrgs) ListMembers(_ context.Context, orgID string) ([]*domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Member
	for _, mm := range m.members {
		if mm.OrgID == orgID {
			cp := *mm
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memOrgs) AddMember(_ context.Context, mm *domain.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *mm
	m.members = append(m.members, &cp)
	return nil
}

func (m *memOrgs) RemoveMember(_ context.Context, orgID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.members[:0]
	for _, mm := range m.members {
		if mm.OrgID != orgID || mm.UserID != userID {
			kept = append(kept, mm)
		}
	}
	m.members = kept
	return nil
}

func (m *memOrgs) UpdateMemberRole(_ context.Context, orgID, userID string, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mm := range m.members {
		if mm.OrgID == orgID && mm.UserID == userID {
			mm.Role = role
			return nil
		}
	}
	return nil
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*userdomain.User
}

func newMemUsers(us ...*userdomain.User) *memUsers {
	m := &memUsers{users: map[string]*userdomain.User{}}
	for _, u := range us {
		cp := *u
		m.users[u.ID] = &cp
	}
	return m
}

func (m *memUsers) GetByID(_ context.Context, id string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memUsers) GetBySubject(_ context.Context, subject string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Subject == subject {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) List(_ context.Context) ([]*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*userdomain.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memUsers) Create(_ context.Context, u *userdomain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) Update(_ context.Context, u *userdomain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func testUser(id string) *userdomain.User {
	return &userdomain.User{
		ID:        id,
		Subject:   "auth0|" + id,
		Email:     id + "@example.com",
		Name:      id,
		CreatedAt: time.Now().UTC(),
	}
}

func TestCreateMakesCallerAdmin(t *testing.T) {
	orgs := newMemOrgs()
	founder := testUser("founder")
	svc := NewService(orgs, newMemUsers(founder), nil)

	o, err := svc.Create(context.Background(), founder, "Demo Co-op")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.Slug != "demo-co-op" {
		t.Fatalf("slug = %q", o.Slug)
	}
	m, err := orgs.GetMember(context.Background(), o.ID, "founder")
	if err != nil || m == nil {
		t.Fatalf("founder membership missing: %v", err)
	}
	if m.Role != domain.RoleAdmin {
		t.Fatalf("founder role = %q, want admin", m.Role)
	}
	if founder.OrganizationID != o.ID || founder.OrganizationRole != userdomain.OrgRoleAdmin {
		t.Fatalf("user row not mirrored: %q %q", founder.OrganizationID, founder.OrganizationRole)
	}
}

func TestCreateRejectsSecondOrganization(t *testing.T) {
	founder := testUser("founder")
	founder.OrganizationID = "org-existing"
	svc := NewService(newMemOrgs(), newMemUsers(founder), nil)

	if _, err := svc.Create(context.Background(), founder, "Another"); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestRedeemInviteJoinsAsMember(t *testing.T) {
	orgs := newMemOrgs()
	founder := testUser("founder")
	joiner := testUser("joiner")
	svc := NewService(orgs, newMemUsers(founder, joiner), nil)

	o, err := svc.Create(context.Background(), founder, "Demo Co-op")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := svc.RedeemInvite(context.Background(), joiner, o.InviteToken)
	if err != nil {
		t.Fatalf("RedeemInvite: %v", err)
	}
	if got.ID != o.ID {
		t.Fatalf("joined org %q, want %q", got.ID, o.ID)
	}
	m, _ := orgs.GetMember(context.Background(), o.ID, "joiner")
	if m == nil || m.Role != domain.RoleMember {
		t.Fatalf("joiner membership = %+v, want member", m)
	}
}

func TestRedeemInviteUnknownToken(t *testing.T) {
	joiner := testUser("joiner")
	svc := NewService(newMemOrgs(), newMemUsers(joiner), nil)

	if _, err := svc.RedeemInvite(context.Background(), joiner, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAddMemberRequiresAdmin(t *testing.T) {
	orgs := newMemOrgs()
	founder := testUser("founder")
	plain := testUser("plain")
	loner := testUser("loner")
	svc := NewService(orgs, newMemUsers(founder, plain, loner), nil)

	o, err := svc.Create(context.Background(), founder, "Demo Co-op")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.RedeemInvite(context.Background(), plain, o.InviteToken); err != nil {
		t.Fatalf("RedeemInvite: %v", err)
	}
	if _, err := svc.AddMember(context.Background(), plain, o.ID, "loner"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("member add by non-admin: err = %v, want ErrForbidden", err)
	}
	m, err := svc.AddMember(context.Background(), founder, o.ID, "loner")
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if m.Role != domain.RoleMember {
		t.Fatalf("added role = %q, want member", m.Role)
	}
}

func TestAddMemberRejectsUserWithOrganization(t *testing.T) {
	orgs := newMemOrgs()
	founder := testUser("founder")
	taken := testUser("taken")
	taken.OrganizationID = "org-other"
	svc := NewService(orgs, newMemUsers(founder, taken), nil)

	o, err := svc.Create(context.Background(), founder, "Demo Co-op")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.AddMember(context.Background(), founder, o.ID, "taken"); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestSetMemberRoleAndListAdmins(t *testing.T) {
	orgs := newMemOrgs()
	founder := testUser("founder")
	joiner := testUser("joiner")
	svc := NewService(orgs, newMemUsers(founder, joiner), nil)

	o, err := svc.Create(context.Background(), founder, "Demo Co-op")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.RedeemInvite(context.Background(), joiner, o.InviteToken); err != nil {
		t.Fatalf("RedeemInvite: %v", err)
	}
	if err := svc.SetMemberRole(context.Background(), founder, o.ID, "joiner", domain.RoleAdmin); err != nil {
		t.Fatalf("SetMemberRole: %v", err)
	}
	admins, err := svc.ListAdmins(context.Background(), founder, o.ID)
	if err != nil {
		t.Fatalf("ListAdmins: %v", err)
	}
	if len(admins) != 2 {
		t.Fatalf("admins = %d, want 2", len(admins))
	}
	if err := svc.SetMemberRole(context.Background(), founder, o.ID, "joiner", domain.Role("owner")); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("bogus role: err = %v, want ErrValidation", err)
	}
}

func TestRemoveMemberProtectsOwner(t *testing.T) {
	orgs := newMemOrgs()
	founder := testUser("founder")
	joiner := testUser("joiner")
	users := newMemUsers(founder, joiner)
	svc := NewService(orgs, users, nil)

	o, err := svc.Create(context.Background(), founder, "Demo Co-op")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.RedeemInvite(context.Background(), joiner, o.InviteToken); err != nil {
		t.Fatalf("RedeemInvite: %v", err)
	}
	if err := svc.RemoveMember(context.Background(), founder, o.ID, "founder"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("owner removal: err = %v, want ErrValidation", err)
	}
	if err := svc.RemoveMember(context.Background(), founder, o.ID, "joiner"); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if m, _ := orgs.GetMember(context.Background(), o.ID, "joiner"); m != nil {
		t.Fatalf("membership survived removal")
	}
	cleared, _ := users.GetByID(context.Background(), "joiner")
	if cleared.OrganizationID != "" || cleared.OrganizationRole != "" {
		t.Fatalf("user org fields not cleared: %q %q", cleared.OrganizationID, cleared.OrganizationRole)
	}
}

func TestGetHiddenFromOutsiders(t *testing.T) {
	orgs := newMemOrgs()
	founder := testUser("founder")
	outsider := testUser("outsider")
	svc := NewService(orgs, newMemUsers(founder, outsider), nil)

	o, err := svc.Create(context.Background(), founder, "Demo Co-op")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Get(context.Background(), outsider, o.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("outsider get: err = %v, want ErrNotFound", err)
	}
	admin := testUser("platform")
	admin.PlatformRoles = []string{userdomain.PlatformRoleAdmin}
	if _, err := svc.Get(context.Background(), admin, o.ID); err != nil {
		t.Fatalf("platform admin get: %v", err)
	}
}
