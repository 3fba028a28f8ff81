package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"commie/backend/internal/committee/domain"
)

// PostgresRepository implements Repository backed by Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a committee repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const committeeColumns = `id, org_id, title, slug, description, COALESCE(chair_id, ''), owner_id, visibility,
	require_second, allow_abstentions, voting_period_days, enforcement_level, enabled_motion_types, auto_archive,
	created_at, updated_at`

func scanCommittee(row interface{ Scan(...any) error }) (*domain.Committee, error) {
	var (
		c     domain.Committee
		types []byte
	)
	err := row.Scan(&c.ID, &c.OrgID, &c.Title, &c.Slug, &c.Description, &c.ChairID, &c.OwnerID, &c.Visibility,
		&c.Settings.RequireSecond, &c.Settings.AllowAbstentions, &c.Settings.VotingPeriodDays,
		&c.Settings.EnforcementLevel, &types, &c.Settings.AutoArchive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(types) > 0 {
		if err := json.Unmarshal(types, &c.Settings.EnabledMotionTypes); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// GetByID returns the committee for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Committee, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+committeeColumns+" FROM committees WHERE id = $1", id)
	return scanCommittee(row)
}

// ListByOrg returns all committees for the given org ordered by title.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string) ([]*domain.Committee, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+committeeColumns+" FROM committees WHERE org_id = $1 ORDER BY title", orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Committee
	for rows.Next() {
		c, err := scanCommittee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create persists the committee. The committee must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Committee) error {
	types, err := json.Marshal(c.Settings.EnabledMotionTypes)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO committees (id, org_id, title, slug, description, chair_id, owner_id, visibility,
		      require_second, allow_abstentions, voting_period_days, enforcement_level, enabled_motion_types, auto_archive,
		      created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		c.ID, c.OrgID, c.Title, c.Slug, c.Description, c.ChairID, c.OwnerID, c.Visibility,
		c.Settings.RequireSecond, c.Settings.AllowAbstentions, c.Settings.VotingPeriodDays,
		c.Settings.EnforcementLevel, types, c.Settings.AutoArchive, c.CreatedAt, c.UpdatedAt)
	return err
}

// Update rewrites the mutable committee fields and settings.
func (r *PostgresRepository) Update(ctx context.Context, c *domain.Committee) error {
	types, err := json.Marshal(c.Settings.EnabledMotionTypes)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE committees SET title = $2, slug = $3, description = $4, chair_id = NULLIF($5, ''), visibility = $6,
		        require_second = $7, allow_abstentions = $8, voting_period_days = $9, enforcement_level = $10,
		        enabled_motion_types = $11, auto_archive = $12, updated_at = $13
		 WHERE id = $1`,
		c.ID, c.Title, c.Slug, c.Description, c.ChairID, c.Visibility,
		c.Settings.RequireSecond, c.Settings.AllowAbstentions, c.Settings.VotingPeriodDays,
		c.Settings.EnforcementLevel, types, c.Settings.AutoArchive, c.UpdatedAt)
	return err
}

// Delete removes the committee; motions, members, and requests cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM committees WHERE id = $1", id)
	return err
}

const memberColumns = "id, committee_id, user_id, role, joined_at"

// GetMember returns the membership for the given committee and user, or nil if not found.
func (r *PostgresRepository) GetMember(ctx context.Context, committeeID, userID string) (*domain.Member, error) {
	var m domain.Member
	err := r.db.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM committee_members WHERE committee_id = $1 AND user_id = $2",
		committeeID, userID,
	).Scan(&m.ID, &m.CommitteeID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// ListMembers returns all memberships for the given committee.
func (r *PostgresRepository) ListMembers(ctx context.Context, committeeID string) ([]*domain.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+memberColumns+" FROM committee_members WHERE committee_id = $1 ORDER BY joined_at", committeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.ID, &m.CommitteeID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// UpsertMember inserts the membership or replaces the role of an existing row.
// The (committee_id, user_id) uniqueness keeps one role per user per committee.
func (r *PostgresRepository) UpsertMember(ctx context.Context, m *domain.Member) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO committee_members (id, committee_id, user_id, role, joined_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (committee_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		m.ID, m.CommitteeID, m.UserID, m.Role, m.JoinedAt)
	return err
}

// RemoveMember deletes the membership row for the given committee and user.
func (r *PostgresRepository) RemoveMember(ctx context.Context, committeeID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM committee_members WHERE committee_id = $1 AND user_id = $2", committeeID, userID)
	return err
}

const accessRequestColumns = "id, committee_id, user_id, message, status, created_at, decided_at"

// CreateAccessRequest persists the request. A user may hold at most one request
// per committee; re-filing replaces a previously denied one.
func (r *PostgresRepository) CreateAccessRequest(ctx context.Context, ar *domain.AccessRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_requests (id, committee_id, user_id, message, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (committee_id, user_id)
		 DO UPDATE SET message = EXCLUDED.message, status = 'pending', created_at = EXCLUDED.created_at, decided_at = NULL`,
		ar.ID, ar.CommitteeID, ar.UserID, ar.Message, ar.Status, ar.CreatedAt)
	return err
}

// GetAccessRequest returns the request for id, or nil if not found.
func (r *PostgresRepository) GetAccessRequest(ctx context.Context, id string) (*domain.AccessRequest, error) {
	var ar domain.AccessRequest
	err := r.db.QueryRowContext(ctx,
		"SELECT "+accessRequestColumns+" FROM access_requests WHERE id = $1", id,
	).Scan(&ar.ID, &ar.CommitteeID, &ar.UserID, &ar.Message, &ar.Status, &ar.CreatedAt, &ar.DecidedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ar, nil
}

// ListAccessRequests returns requests for the committee, optionally filtered by status.
func (r *PostgresRepository) ListAccessRequests(ctx context.Context, committeeID string, status domain.AccessRequestStatus) ([]*domain.AccessRequest, error) {
	query := "SELECT " + accessRequestColumns + " FROM access_requests WHERE committee_id = $1"
	args := []any{committeeID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY created_at"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AccessRequest
	for rows.Next() {
		var ar domain.AccessRequest
		if err := rows.Scan(&ar.ID, &ar.CommitteeID, &ar.UserID, &ar.Message, &ar.Status, &ar.CreatedAt, &ar.DecidedAt); err != nil {
			return nil, err
		}
		out = append(out, &ar)
	}
	return out, rows.Err()
}

// DecideAccessRequest stamps the decision on a pending request.
func (r *PostgresRepository) DecideAccessRequest(ctx context.Context, id string, status domain.AccessRequestStatus) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE access_requests SET status = $2, decided_at = $3 WHERE id = $1 AND status = 'pending'",
		id, status, time.Now().UTC())
	return err
}
