package repository

import (
	"context"
	"database/sql"

	"commie/backend/internal/audit/domain"
)

// PostgresRepository implements Repository backed by Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists one audit entry.
func (r *PostgresRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, org_id, committee_id, user_id, action, resource, ip, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.OrgID, entry.CommitteeID, entry.UserID, entry.Action, entry.Resource, entry.IP, entry.Metadata, entry.CreatedAt)
	return err
}

// ListByCommittee returns the committee's entries, newest first, capped at limit.
func (r *PostgresRepository) ListByCommittee(ctx context.Context, committeeID string, limit int) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, org_id, committee_id, user_id, action, resource, ip, metadata, created_at
		 FROM audit_logs WHERE committee_id = $1 ORDER BY created_at DESC LIMIT $2`, committeeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var e domain.AuditLog
		if err := rows.Scan(&e.ID, &e.OrgID, &e.CommitteeID, &e.UserID, &e.Action, &e.Resource, &e.IP, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
