package engine

import (
	"context"

	committeedomain "commie/backend/internal/committee/domain"
	motiondomain "commie/backend/internal/motion/domain"
)

// Result holds the outcome of a voting-eligibility evaluation.
type Result struct {
	Eligible bool `json:"eligible"`
	// Reasons lists why voting may not proceed; empty when eligible.
	Reasons []string `json:"reasons"`
	// VotingStatus reports the motion's window state (pending/open/closed).
	VotingStatus string `json:"votingStatus"`
}

// Evaluator decides whether voting may proceed on a motion, given the
// committee's procedural settings.
//
// Motions with VoteRequired == none are never evaluated: callers must check
// Applicable first. "Voting is not offered" is a distinct state from
// "voting is not yet eligible".
type Evaluator interface {
	Evaluate(ctx context.Context, committee *committeedomain.Committee, motion *motiondomain.Motion) (Result, error)
}

// Applicable reports whether eligibility evaluation applies to the motion at all.
func Applicable(motion *motiondomain.Motion) bool {
	return motion != nil && motion.VoteRequired != motiondomain.VoteRequiredNone
}
