package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresRepository implements Repository backed by Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an eligibility policy repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByCommittee returns the committee's override policy, or nil if not found.
func (r *PostgresRepository) GetByCommittee(ctx context.Context, committeeID string) (*Policy, error) {
	var p Policy
	err := r.db.QueryRowContext(ctx,
		"SELECT id, committee_id, rego FROM eligibility_policies WHERE committee_id = $1", committeeID,
	).Scan(&p.ID, &p.CommitteeID, &p.Rego)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Upsert stores or replaces the committee's override policy after validating it.
func (r *PostgresRepository) Upsert(ctx context.Context, p *Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO eligibility_policies (id, committee_id, rego, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (committee_id) DO UPDATE SET rego = EXCLUDED.rego, updated_at = EXCLUDED.updated_at`,
		p.ID, p.CommitteeID, p.Rego, now)
	return err
}

// Delete removes the committee's override policy, reverting it to the default.
func (r *PostgresRepository) Delete(ctx context.Context, committeeID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM eligibility_policies WHERE committee_id = $1", committeeID)
	return err
}
