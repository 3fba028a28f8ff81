package repository

import (
	"context"
	"database/sql"
	"errors"

	"commie/backend/internal/motion/domain"
	votedomain "commie/backend/internal/vote/domain"
)

// PostgresRepository implements Repository backed by Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a vote repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert casts or replaces the caller's vote. Replacement updates value and
// anonymity in place; created_at keeps the original cast time. The motion
// predicate rides in the same statement, so a ballot can never land after a
// concurrent close settles the motion; that case reports false.
func (r *PostgresRepository) Upsert(ctx context.Context, v *votedomain.Vote) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO votes (id, motion_id, user_id, value, anonymous, created_at, updated_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7
		 WHERE EXISTS (
		     SELECT 1 FROM motions
		     WHERE id = $2 AND status = 'active' AND voting_status = 'open'
		 )
		 ON CONFLICT (motion_id, user_id)
		 DO UPDATE SET value = EXCLUDED.value, anonymous = EXCLUDED.anonymous, updated_at = EXCLUDED.updated_at`,
		v.ID, v.MotionID, v.UserID, v.Value, v.Anonymous, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Get returns the vote for the given motion and user, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) Get(ctx context.Context, motionID, userID string) (*votedomain.Vote, error) {
	var v votedomain.Vote
	err := r.db.QueryRowContext(ctx,
		`SELECT id, motion_id, user_id, value, anonymous, created_at, updated_at
		 FROM votes WHERE motion_id = $1 AND user_id = $2`, motionID, userID,
	).Scan(&v.ID, &v.MotionID, &v.UserID, &v.Value, &v.Anonymous, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// Delete removes the caller's vote while the window is still open. Reports
// false both for a missing vote and for a window that closed underneath; the
// caller disambiguates with Get.
func (r *PostgresRepository) Delete(ctx context.Context, motionID, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM votes
		 WHERE motion_id = $1 AND user_id = $2
		   AND EXISTS (
		       SELECT 1 FROM motions
		       WHERE id = $1 AND status = 'active' AND voting_status = 'open'
		   )`, motionID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// List returns all votes for the motion, oldest first.
func (r *PostgresRepository) List(ctx context.Context, motionID string) ([]*votedomain.Vote, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, motion_id, user_id, value, anonymous, created_at, updated_at
		 FROM votes WHERE motion_id = $1 ORDER BY created_at`, motionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*votedomain.Vote
	for rows.Next() {
		var v votedomain.Vote
		if err := rows.Scan(&v.ID, &v.MotionID, &v.UserID, &v.Value, &v.Anonymous, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

// Tally aggregates vote counts for the motion. One row per distinct voter
// exists in the table, so the buckets always sum to the voter count.
func (r *PostgresRepository) Tally(ctx context.Context, motionID string) (domain.Tally, error) {
	var t domain.Tally
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE value = 'yes'),
		        COUNT(*) FILTER (WHERE value = 'no'),
		        COUNT(*) FILTER (WHERE value = 'abstain')
		 FROM votes WHERE motion_id = $1`, motionID,
	).Scan(&t.Yes, &t.No, &t.Abstain)
	return t, err
}
