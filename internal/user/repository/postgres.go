package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"commie/backend/internal/user/domain"
)

// PostgresRepository implements Repository backed by Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// platform_roles is TEXT[]; it crosses database/sql as a comma-joined string
// so the stdlib driver needs no array codec.
const userColumns = `id, subject, email, name, display_name,
	array_to_string(platform_roles, ','), COALESCE(organization_id, ''), COALESCE(organization_role::text, ''),
	created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var (
		u       domain.User
		roles   string
		orgRole string
	)
	err := row.Scan(&u.ID, &u.Subject, &u.Email, &u.Name, &u.DisplayName, &roles, &u.OrganizationID, &orgRole, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if roles != "" {
		u.PlatformRoles = strings.Split(roles, ",")
	}
	u.OrganizationRole = domain.OrgRole(orgRole)
	return &u, nil
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

// GetBySubject returns the user for the identity-provider subject, or nil if not found.
func (r *PostgresRepository) GetBySubject(ctx context.Context, subject string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE subject = $1", subject)
	return scanUser(row)
}

// GetByEmail returns the user for email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
	return scanUser(row)
}

// List returns all users ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Create persists the user. The user must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, subject, email, name, display_name, platform_roles, organization_id, organization_role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, COALESCE(string_to_array(NULLIF($6, ''), ','), '{}'), NULLIF($7, ''), NULLIF($8, '')::org_role, $9, $10)`,
		u.ID, u.Subject, u.Email, u.Name, u.DisplayName, strings.Join(u.PlatformRoles, ","),
		u.OrganizationID, string(u.OrganizationRole), u.CreatedAt, u.UpdatedAt)
	return err
}

// Update rewrites the mutable user fields.
func (r *PostgresRepository) Update(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET email = $2, name = $3, display_name = $4,
		        platform_roles = COALESCE(string_to_array(NULLIF($5, ''), ','), '{}'),
		        organization_id = NULLIF($6, ''), organization_role = NULLIF($7, '')::org_role, updated_at = $8
		 WHERE id = $1`,
		u.ID, u.Email, u.Name, u.DisplayName, strings.Join(u.PlatformRoles, ","),
		u.OrganizationID, string(u.OrganizationRole), u.UpdatedAt)
	return err
}
