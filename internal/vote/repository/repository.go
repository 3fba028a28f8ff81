package repository

import (
	"context"

	"commie/backend/internal/motion/domain"
	votedomain "commie/backend/internal/vote/domain"
)

// Repository is the persistence interface for votes.
type Repository interface {
	// Upsert casts or replaces the caller's vote in a single atomic statement.
	// The (motion_id, user_id) uniqueness plus ON CONFLICT DO UPDATE keeps vote
	// replacement atomic, and the statement carries the open-window
	// precondition: it returns false without writing when the motion is no
	// longer active with voting open.
	Upsert(ctx context.Context, v *votedomain.Vote) (bool, error)
	Get(ctx context.Context, motionID, userID string) (*votedomain.Vote, error)
	// Delete removes the caller's vote, guarded by the same open-window
	// precondition. Returns false when nothing was removed, either because no
	// vote exists or because the window closed.
	Delete(ctx context.Context, motionID, userID string) (bool, error)
	List(ctx context.Context, motionID string) ([]*votedomain.Vote, error)
	// Tally aggregates vote counts for the motion in one query.
	Tally(ctx context.Context, motionID string) (domain.Tally, error)
}
