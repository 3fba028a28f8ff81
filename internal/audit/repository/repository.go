package repository

import (
	"context"

	"commie/backend/internal/audit/domain"
)

// Repository is the persistence interface for audit logs.
type Repository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	// ListByCommittee returns entries scoped to the committee, newest first.
	// Motion- and vote-level entries carry the committee id so they surface
	// here alongside committee-level ones.
	ListByCommittee(ctx context.Context, committeeID string, limit int) ([]*domain.AuditLog, error)
}
