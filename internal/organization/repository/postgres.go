package repository

import (
	"context"
	"database/sql"
	"errors"

	"commie/backend/internal/organization/domain"
)

// PostgresRepository implements Repository backed by Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an organization repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const orgColumns = "id, name, slug, owner_id, invite_token, created_at, updated_at"

func scanOrg(row interface{ Scan(...any) error }) (*domain.Organization, error) {
	var o domain.Organization
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.OwnerID, &o.InviteToken, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// GetByID returns the organization for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+orgColumns+" FROM organizations WHERE id = $1", id)
	return scanOrg(row)
}

// GetByInviteToken returns the organization holding the given invite token, or nil if not found.
func (r *PostgresRepository) GetByInviteToken(ctx context.Context, token string) (*domain.Organization, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+orgColumns+" FROM organizations WHERE invite_token = $1", token)
	return scanOrg(row)
}

// Create persists the organization. The organization must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, o *domain.Organization) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, slug, owner_id, invite_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.Name, o.Slug, o.OwnerID, o.InviteToken, o.CreatedAt, o.UpdatedAt)
	return err
}

// Update rewrites the mutable organization fields.
func (r *PostgresRepository) Update(ctx context.Context, o *domain.Organization) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE organizations SET name = $2, slug = $3, owner_id = $4, updated_at = $5 WHERE id = $1`,
		o.ID, o.Name, o.Slug, o.OwnerID, o.UpdatedAt)
	return err
}

// Delete removes the organization; committees and memberships cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM organizations WHERE id = $1", id)
	return err
}

const orgMemberColumns = "id, org_id, user_id, role, created_at"

// GetMember returns the membership for the given org and user, or nil if not found.
func (r *PostgresRepository) GetMember(ctx context.Context, orgID, userID string) (*domain.Member, error) {
	var m domain.Member
	err := r.db.QueryRowContext(ctx,
		"SELECT "+orgMemberColumns+" FROM organization_members WHERE org_id = $1 AND user_id = $2",
		orgID, userID,
	).Scan(&m.ID, &m.OrgID, &m.UserID, &m.Role, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// ListMembers returns all memberships for the given org. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListMembers(ctx context.Context, orgID string) ([]*domain.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orgMemberColumns+" FROM organization_members WHERE org_id = $1 ORDER BY created_at", orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.ID, &m.OrgID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// AddMember persists the membership. The membership must have ID set.
func (r *PostgresRepository) AddMember(ctx context.Context, m *domain.Member) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organization_members (id, org_id, user_id, role, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (org_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		m.ID, m.OrgID, m.UserID, m.Role, m.CreatedAt)
	return err
}

// RemoveMember deletes the membership row for the given org and user.
func (r *PostgresRepository) RemoveMember(ctx context.Context, orgID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM organization_members WHERE org_id = $1 AND user_id = $2", orgID, userID)
	return err
}

// UpdateMemberRole changes the member's role in place.
func (r *PostgresRepository) UpdateMemberRole(ctx context.Context, orgID, userID string, role domain.Role) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE organization_members SET role = $3 WHERE org_id = $1 AND user_id = $2", orgID, userID, role)
	return err
}
