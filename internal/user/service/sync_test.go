package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"commie/backend/internal/apperr"
	"commie/backend/internal/security"
	"commie/backend/internal/user/domain"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*domain.User{}}
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memUsers) GetBySubject(_ context.Context, subject string) (*domain.User, error) {
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

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
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

func (m *memUsers) List(_ context.Context) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) Update(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func claimsFor(subject, email, name string, roles ...string) *security.Claims {
	return &security.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
		Email:            email,
		Name:             name,
		Roles:            roles,
	}
}

func TestEnsureUserCreatesOnFirstSight(t *testing.T) {
	users := newMemUsers()
	svc := NewService(users)

	u, err := svc.EnsureUser(context.Background(), claimsFor("auth0|abc", "a@example.com", "Ada"))
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if u.ID == "" || u.Subject != "auth0|abc" || u.Email != "a@example.com" {
		t.Fatalf("created user = %+v", u)
	}
	again, err := svc.EnsureUser(context.Background(), claimsFor("auth0|abc", "a@example.com", "Ada"))
	if err != nil {
		t.Fatalf("EnsureUser (repeat): %v", err)
	}
	if again.ID != u.ID {
		t.Fatalf("repeat sync created a new row: %q vs %q", again.ID, u.ID)
	}
}

func TestEnsureUserRefreshesChangedClaims(t *testing.T) {
	users := newMemUsers()
	svc := NewService(users)

	u, err := svc.EnsureUser(context.Background(), claimsFor("auth0|abc", "a@example.com", "Ada"))
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	updated, err := svc.EnsureUser(context.Background(), claimsFor("auth0|abc", "new@example.com", "Ada L.", domain.PlatformRoleAdmin))
	if err != nil {
		t.Fatalf("EnsureUser (changed): %v", err)
	}
	if updated.ID != u.ID {
		t.Fatalf("refresh created a new row")
	}
	if updated.Email != "new@example.com" || updated.Name != "Ada L." {
		t.Fatalf("claims not refreshed: %+v", updated)
	}
	if !updated.IsPlatformAdmin() {
		t.Fatalf("platform role not mirrored from claims")
	}
	stored, _ := users.GetByID(context.Background(), u.ID)
	if stored.Email != "new@example.com" {
		t.Fatalf("refresh not persisted")
	}
}

func TestEnsureUserRejectsClaimsWithoutEmail(t *testing.T) {
	svc := NewService(newMemUsers())

	if _, err := svc.EnsureUser(context.Background(), claimsFor("auth0|abc", "", "Ada")); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestUpdateProfileSetsDisplayName(t *testing.T) {
	users := newMemUsers()
	svc := NewService(users)

	u, err := svc.EnsureUser(context.Background(), claimsFor("auth0|abc", "a@example.com", "Ada"))
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	updated, err := svc.UpdateProfile(context.Background(), u, ProfileInput{DisplayName: "Countess"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.DisplayName != "Countess" {
		t.Fatalf("display name = %q", updated.DisplayName)
	}
	if updated.EffectiveName() != "Countess" {
		t.Fatalf("effective name = %q", updated.EffectiveName())
	}
}
