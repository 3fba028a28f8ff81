// The seed binary loads demo data for local development: one organization,
// three users, a committee, and a couple of motions. It prints HS256 bearer
// tokens for the demo users when JWT_SECRET is set.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	committeedomain "commie/backend/internal/committee/domain"
	committeerepo "commie/backend/internal/committee/repository"
	"commie/backend/internal/config"
	"commie/backend/internal/db"
	motiondomain "commie/backend/internal/motion/domain"
	motionrepo "commie/backend/internal/motion/repository"
	orgdomain "commie/backend/internal/organization/domain"
	orgrepo "commie/backend/internal/organization/repository"
	"commie/backend/internal/security"
	userdomain "commie/backend/internal/user/domain"
	userrepo "commie/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(database)
	orgs := orgrepo.NewPostgresRepository(database)
	committees := committeerepo.NewPostgresRepository(database)
	motions := motionrepo.NewPostgresRepository(database)
	now := time.Now().UTC()

	orgID := uuid.New().String()
	demoUsers := []*userdomain.User{
		{ID: uuid.New().String(), Subject: "auth0|demo-owner", Email: "owner@example.com", Name: "Olive Owner",
			OrganizationID: orgID, OrganizationRole: userdomain.OrgRoleAdmin, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New().String(), Subject: "auth0|demo-chair", Email: "chair@example.com", Name: "Charlie Chair",
			OrganizationID: orgID, OrganizationRole: userdomain.OrgRoleMember, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New().String(), Subject: "auth0|demo-member", Email: "member@example.com", Name: "Morgan Member",
			OrganizationID: orgID, OrganizationRole: userdomain.OrgRoleMember, CreatedAt: now, UpdatedAt: now},
	}
	owner, chair, member := demoUsers[0], demoUsers[1], demoUsers[2]

	org := &orgdomain.Organization{
		ID: orgID, Name: "Demo Co-op", Slug: "demo-co-op", OwnerID: owner.ID,
		InviteToken: uuid.New().String(), CreatedAt: now, UpdatedAt: now,
	}
	if err := orgs.Create(ctx, org); err != nil {
		log.Fatalf("seed org: %v", err)
	}
	for _, u := range demoUsers {
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("seed user %s: %v", u.Email, err)
		}
	}
	orgRoles := map[string]orgdomain.Role{owner.ID: orgdomain.RoleAdmin, chair.ID: orgdomain.RoleMember, member.ID: orgdomain.RoleMember}
	for userID, role := range orgRoles {
		m := &orgdomain.Member{ID: uuid.New().String(), OrgID: orgID, UserID: userID, Role: role, CreatedAt: now}
		if err := orgs.AddMember(ctx, m); err != nil {
			log.Fatalf("seed org member: %v", err)
		}
	}

	committee := &committeedomain.Committee{
		ID:          uuid.New().String(),
		OrgID:       orgID,
		Title:       "Budget Committee",
		Slug:        "budget-committee",
		Description: "Allocates the annual budget.",
		ChairID:     chair.ID,
		OwnerID:     owner.ID,
		Visibility:  committeedomain.VisibilityPublic,
		Settings: committeedomain.Settings{
			RequireSecond:    true,
			AllowAbstentions: true,
			VotingPeriodDays: 7,
			EnforcementLevel: committeedomain.EnforcementStrict,
			AutoArchive:      true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := committees.Create(ctx, committee); err != nil {
		log.Fatalf("seed committee: %v", err)
	}
	committeeRoles := map[string]committeedomain.Role{
		owner.ID:  committeedomain.RoleOwner,
		chair.ID:  committeedomain.RoleChair,
		member.ID: committeedomain.RoleMember,
	}
	for userID, role := range committeeRoles {
		m := &committeedomain.Member{ID: uuid.New().String(), CommitteeID: committee.ID, UserID: userID, Role: role, JoinedAt: now}
		if err := committees.UpsertMember(ctx, m); err != nil {
			log.Fatalf("seed committee member: %v", err)
		}
	}

	pending := &motiondomain.Motion{
		ID:           uuid.New().String(),
		CommitteeID:  committee.ID,
		Title:        "Adopt the 2027 budget",
		Description:  "Approve the proposed annual budget.",
		Type:         "main",
		AuthorID:     member.ID,
		AuthorName:   member.Name,
		Status:       motiondomain.StatusActive,
		VoteRequired: motiondomain.VoteRequiredMajority,
		VotingStatus: motiondomain.VotingPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	open := &motiondomain.Motion{
		ID:             uuid.New().String(),
		CommitteeID:    committee.ID,
		Title:          "Extend the meeting by 30 minutes",
		Type:           "main",
		AuthorID:       chair.ID,
		AuthorName:     chair.Name,
		Status:         motiondomain.StatusActive,
		VoteRequired:   motiondomain.VoteRequiredMajority,
		VotingStatus:   motiondomain.VotingOpen,
		SecondedBy:     owner.ID,
		VotingOpenedAt: &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, m := range []*motiondomain.Motion{pending, open} {
		if err := motions.Create(ctx, m); err != nil {
			log.Fatalf("seed motion: %v", err)
		}
	}

	log.Printf("seeded org %s, committee %s", org.ID, committee.ID)
	if cfg.JWTSecret != "" {
		for _, u := range demoUsers {
			token, err := security.IssueHS256(cfg.JWTSecret, u.Subject, u.Email, u.Name, nil, cfg.JWTIssuer, cfg.JWTAudience, 24*time.Hour)
			if err != nil {
				log.Fatalf("token for %s: %v", u.Email, err)
			}
			log.Printf("%s: %s", u.Email, token)
		}
	}
}
