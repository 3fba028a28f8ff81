package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"commie/backend/internal/motion/domain"
)

// PostgresRepository implements Repository backed by Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a motion repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const motionColumns = `id, committee_id, title, description, full_description, motion_type,
	author_id, author_name, status, vote_required, voting_status, voting_opened_at, voting_closed_at,
	COALESCE(seconded_by, ''), COALESCE(target_motion_id, ''), created_at, updated_at`

func scanMotion(row interface{ Scan(...any) error }) (*domain.Motion, error) {
	var m domain.Motion
	err := row.Scan(&m.ID, &m.CommitteeID, &m.Title, &m.Description, &m.FullDescription, &m.Type,
		&m.AuthorID, &m.AuthorName, &m.Status, &m.VoteRequired, &m.VotingStatus,
		&m.VotingOpenedAt, &m.VotingClosedAt, &m.SecondedBy, &m.TargetMotionID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// GetByID returns the motion for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Motion, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+motionColumns+" FROM motions WHERE id = $1", id)
	return scanMotion(row)
}

// Create persists the motion. The motion must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, m *domain.Motion) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO motions (id, committee_id, title, description, full_description, motion_type,
		      author_id, author_name, status, vote_required, voting_status, voting_opened_at, voting_closed_at,
		      seconded_by, target_motion_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULLIF($14, ''), NULLIF($15, ''), $16, $17)`,
		m.ID, m.CommitteeID, m.Title, m.Description, m.FullDescription, m.Type,
		m.AuthorID, m.AuthorName, m.Status, m.VoteRequired, m.VotingStatus, m.VotingOpenedAt, m.VotingClosedAt,
		m.SecondedBy, m.TargetMotionID, m.CreatedAt, m.UpdatedAt)
	return err
}

// Update rewrites the editable motion fields (title and descriptions).
// Lifecycle fields change only through the transition methods.
func (r *PostgresRepository) Update(ctx context.Context, m *domain.Motion) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE motions SET title = $2, description = $3, full_description = $4, updated_at = $5 WHERE id = $1`,
		m.ID, m.Title, m.Description, m.FullDescription, m.UpdatedAt)
	return err
}

// Delete removes the motion. Subsidiary back-references are severed by the
// schema (ON DELETE SET NULL); subsidiaries themselves survive.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM motions WHERE id = $1", id)
	return err
}

// ListByCommittee returns one page of motions for the committee, newest first,
// filtered to the given statuses (empty means all), plus the total count.
func (r *PostgresRepository) ListByCommittee(ctx context.Context, committeeID string, statuses []domain.Status, page, perPage int) ([]*domain.Motion, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	filter := make([]string, 0, len(statuses))
	for _, s := range statuses {
		filter = append(filter, string(s))
	}
	where := "committee_id = $1"
	args := []any{committeeID}
	if len(filter) > 0 {
		// status = ANY over a comma-joined list keeps the stdlib driver free of array codecs.
		where += " AND status = ANY(string_to_array($2, ',')::motion_status[])"
		args = append(args, strings.Join(filter, ","))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM motions WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + motionColumns + " FROM motions WHERE " + where + " ORDER BY created_at DESC"
	args = append(args, perPage, (page-1)*perPage)
	if len(filter) > 0 {
		query += " LIMIT $3 OFFSET $4"
	} else {
		query += " LIMIT $2 OFFSET $3"
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*domain.Motion
	for rows.Next() {
		m, err := scanMotion(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// ListSubsidiaries returns motions referencing the given motion as parent, oldest first.
func (r *PostgresRepository) ListSubsidiaries(ctx context.Context, motionID string) ([]*domain.Motion, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+motionColumns+" FROM motions WHERE target_motion_id = $1 ORDER BY created_at", motionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Motion
	for rows.Next() {
		m, err := scanMotion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListExpiredOpen returns open motions whose committee voting window elapsed
// before now. Only committees with auto_archive and a positive period qualify.
func (r *PostgresRepository) ListExpiredOpen(ctx context.Context, now time.Time) ([]*domain.Motion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+motionPrefixedColumns+`
		 FROM motions m
		 JOIN committees c ON c.id = m.committee_id
		 WHERE m.status = 'active' AND m.voting_status = 'open'
		   AND c.auto_archive AND c.voting_period_days > 0
		   AND m.voting_opened_at + make_interval(days => c.voting_period_days) < $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Motion
	for rows.Next() {
		m, err := scanMotion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const motionPrefixedColumns = `m.id, m.committee_id, m.title, m.description, m.full_description, m.motion_type,
	m.author_id, m.author_name, m.status, m.vote_required, m.voting_status, m.voting_opened_at, m.voting_closed_at,
	COALESCE(m.seconded_by, ''), COALESCE(m.target_motion_id, ''), m.created_at, m.updated_at`

// Second records the endorsement. Only an active, unseconded motion accepts
// one; returns false when the precondition no longer holds.
func (r *PostgresRepository) Second(ctx context.Context, motionID, userID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE motions SET seconded_by = $2, updated_at = $3
		 WHERE id = $1 AND status = 'active' AND seconded_by IS NULL`,
		motionID, userID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// OpenVoting moves a pending voting window to open and stamps voting_opened_at.
func (r *PostgresRepository) OpenVoting(ctx context.Context, motionID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE motions SET voting_status = 'open', voting_opened_at = $2, updated_at = $2
		 WHERE id = $1 AND status = 'active' AND voting_status = 'pending'`,
		motionID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Close settles an open motion to the given terminal status and stamps
// voting_closed_at. Returns false when the motion is not open, which makes a
// second close attempt detectable rather than silently recomputed.
func (r *PostgresRepository) Close(ctx context.Context, motionID string, status domain.Status, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE motions SET status = $2, voting_status = 'closed', voting_closed_at = $3, updated_at = $3
		 WHERE id = $1 AND status = 'active' AND voting_status = 'open'`,
		motionID, status, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Void marks any still-active motion voided and stamps voting_closed_at.
func (r *PostgresRepository) Void(ctx context.Context, motionID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE motions SET status = 'voided', voting_status = 'closed', voting_closed_at = $2, updated_at = $2
		 WHERE id = $1 AND status = 'active'`,
		motionID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
