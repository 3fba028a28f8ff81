package repository

import (
	"context"
	"database/sql"
	"errors"

	"commie/backend/internal/comment/domain"
)

// PostgresRepository implements Repository backed by Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a comment repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const commentColumns = "id, committee_id, motion_id, author_id, author_name, content, stance, is_system_message, created_at"

// Create persists the comment. Comments are append-only; there is no update.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Comment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO comments (id, committee_id, motion_id, author_id, author_name, content, stance, is_system_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.CommitteeID, c.MotionID, c.AuthorID, c.AuthorName, c.Content, c.Stance, c.IsSystemMessage, c.CreatedAt)
	return err
}

// GetByID returns the comment for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	var c domain.Comment
	err := r.db.QueryRowContext(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE id = $1", id,
	).Scan(&c.ID, &c.CommitteeID, &c.MotionID, &c.AuthorID, &c.AuthorName, &c.Content, &c.Stance, &c.IsSystemMessage, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Delete removes the comment.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM comments WHERE id = $1", id)
	return err
}

// ListByMotion returns one page of comments for the motion, newest first, plus
// the total count.
func (r *PostgresRepository) ListByMotion(ctx context.Context, motionID string, page, perPage int) ([]*domain.Comment, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments WHERE motion_id = $1", motionID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE motion_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		motionID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.CommitteeID, &c.MotionID, &c.AuthorID, &c.AuthorName, &c.Content, &c.Stance, &c.IsSystemMessage, &c.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, &c)
	}
	return out, total, rows.Err()
}
