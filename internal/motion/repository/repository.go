package repository

import (
	"context"
	"time"

	"commie/backend/internal/motion/domain"
)

// Repository is the persistence interface for motions.
//
// The transition methods (Second, OpenVoting, Close, Void) are conditional
// updates: each carries its state precondition in the WHERE clause and reports
// whether a row changed, so concurrent callers cannot double-apply a
// transition through an application-tier read-then-write.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Motion, error)
	Create(ctx context.Context, m *domain.Motion) error
	Update(ctx context.Context, m *domain.Motion) error
	Delete(ctx context.Context, id string) error

	// ListByCommittee returns one page of motions filtered by status, newest
	// first, plus the total count for the filter.
	ListByCommittee(ctx context.Context, committeeID string, statuses []domain.Status, page, perPage int) ([]*domain.Motion, int, error)
	// ListSubsidiaries returns motions whose target_motion_id is the given motion.
	ListSubsidiaries(ctx context.Context, motionID string) ([]*domain.Motion, error)
	// ListExpiredOpen returns open motions whose committee voting window
	// (voting_period_days, with auto_archive enabled) elapsed before now.
	ListExpiredOpen(ctx context.Context, now time.Time) ([]*domain.Motion, error)

	Second(ctx context.Context, motionID, userID string, at time.Time) (bool, error)
	OpenVoting(ctx context.Context, motionID string, at time.Time) (bool, error)
	Close(ctx context.Context, motionID string, status domain.Status, at time.Time) (bool, error)
	Void(ctx context.Context, motionID string, at time.Time) (bool, error)
}
