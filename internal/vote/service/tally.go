// Package service implements ballot casting, removal, and tallying.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"commie/backend/internal/apperr"
	"commie/backend/internal/audit"
	committeedomain "commie/backend/internal/committee/domain"
	motiondomain "commie/backend/internal/motion/domain"
	"commie/backend/internal/platform/rbac"
	"commie/backend/internal/telemetry"
	telemetrydomain "commie/backend/internal/telemetry/domain"
	"commie/backend/internal/vote/domain"
	voterepo "commie/backend/internal/vote/repository"
)

// Service implements the voting operations on open motions.
type Service struct {
	votes    voterepo.Repository
	auditLog audit.AuditLogger
	emitter  telemetry.EventEmitter
}

// NewService returns a vote service. auditLog and emitter may be nil.
func NewService(votes voterepo.Repository, auditLog audit.AuditLogger, emitter telemetry.EventEmitter) *Service {
	return &Service{votes: votes, auditLog: auditLog, emitter: emitter}
}

// Cast records or replaces the caller's ballot and returns the updated
// summary. Guests are denied regardless of motion state; casting on a
// settled or not-yet-open motion is an invalid-state error; an abstain vote
// where the committee disallows abstentions is a validation error.
func (s *Service) Cast(ctx context.Context, committee *committeedomain.Committee, motion *motiondomain.Motion, role rbac.Role, userID, rawValue string, anonymous bool) (domain.Summary, error) {
	if !rbac.CanVote(role) {
		return domain.Summary{}, apperr.ErrForbidden
	}
	value, err := domain.ParseValue(rawValue)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if value == domain.ValueAbstain && !committee.Settings.AllowAbstentions {
		return domain.Summary{}, fmt.Errorf("%w: committee does not allow abstentions", apperr.ErrValidation)
	}
	if motion.Status.Terminal() {
		return domain.Summary{}, fmt.Errorf("%w: motion is %s", apperr.ErrInvalidState, motion.Status)
	}
	if motion.VotingStatus != motiondomain.VotingOpen {
		return domain.Summary{}, fmt.Errorf("%w: voting is %s", apperr.ErrInvalidState, motion.VotingStatus)
	}
	now := time.Now().UTC()
	v := &domain.Vote{
		ID:        uuid.New().String(),
		MotionID:  motion.ID,
		UserID:    userID,
		Value:     value,
		Anonymous: anonymous,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cast, err := s.votes.Upsert(ctx, v)
	if err != nil {
		return domain.Summary{}, err
	}
	// The snapshot checks above can race a concurrent close; the upsert's own
	// precondition is authoritative.
	if !cast {
		return domain.Summary{}, fmt.Errorf("%w: voting is not open", apperr.ErrInvalidState)
	}
	if s.auditLog != nil {
		s.auditLog.LogEvent(ctx, committee.OrgID, committee.ID, userID, "vote.cast", "motion:"+motion.ID, "")
	}
	s.emit(ctx, committee, telemetrydomain.EventVoteCast, motion.ID)
	return s.Summary(ctx, motion.ID, userID)
}

// Remove withdraws the caller's ballot while voting is open. Removing after
// the window closed is an invalid-state error; removing a vote that was never
// cast is a no-op.
func (s *Service) Remove(ctx context.Context, committee *committeedomain.Committee, motion *motiondomain.Motion, role rbac.Role, userID string) (domain.Summary, error) {
	if !rbac.CanVote(role) {
		return domain.Summary{}, apperr.ErrForbidden
	}
	if motion.Status.Terminal() || motion.VotingStatus != motiondomain.VotingOpen {
		return domain.Summary{}, fmt.Errorf("%w: voting is not open", apperr.ErrInvalidState)
	}
	removed, err := s.votes.Delete(ctx, motion.ID, userID)
	if err != nil {
		return domain.Summary{}, err
	}
	if !removed {
		// Either no ballot existed (a no-op) or the window closed between the
		// snapshot check and the delete. A surviving ballot means the latter.
		existing, err := s.votes.Get(ctx, motion.ID, userID)
		if err != nil {
			return domain.Summary{}, err
		}
		if existing != nil {
			return domain.Summary{}, fmt.Errorf("%w: voting is not open", apperr.ErrInvalidState)
		}
		return s.Summary(ctx, motion.ID, userID)
	}
	if s.auditLog != nil {
		s.auditLog.LogEvent(ctx, committee.OrgID, committee.ID, userID, "vote.remove", "motion:"+motion.ID, "")
	}
	s.emit(ctx, committee, telemetrydomain.EventVoteRemoved, motion.ID)
	return s.Summary(ctx, motion.ID, userID)
}

// Summary returns the aggregate counts plus the caller's own ballot (empty
// when the caller has not voted or is anonymous to the system).
func (s *Service) Summary(ctx context.Context, motionID, userID string) (domain.Summary, error) {
	tally, err := s.votes.Tally(ctx, motionID)
	if err != nil {
		return domain.Summary{}, err
	}
	sum := domain.Summary{
		Yes:     tally.Yes,
		No:      tally.No,
		Abstain: tally.Abstain,
		Voters:  tally.Yes + tally.No + tally.Abstain,
	}
	if userID != "" {
		own, err := s.votes.Get(ctx, motionID, userID)
		if err != nil {
			return domain.Summary{}, err
		}
		if own != nil {
			sum.OwnVote = string(own.Value)
		}
	}
	return sum, nil
}

// Ballot is one roll-call entry. Anonymous ballots expose the value but not
// the voter, except to the voter themselves and to chair/owner/admin.
type Ballot struct {
	UserID    string    `json:"userId,omitempty"`
	Value     string    `json:"value"`
	Anonymous bool      `json:"anonymous"`
	CastAt    time.Time `json:"castAt"`
}

// List returns the roll call for a motion, masking anonymous voters from
// callers without motion-management rights.
func (s *Service) List(ctx context.Context, motionID string, role rbac.Role, callerID string) ([]Ballot, error) {
	if !rbac.CanVote(role) && !rbac.CanManageMotions(role) {
		return nil, apperr.ErrForbidden
	}
	votes, err := s.votes.List(ctx, motionID)
	if err != nil {
		return nil, err
	}
	out := make([]Ballot, 0, len(votes))
	for _, v := range votes {
		b := Ballot{UserID: v.UserID, Value: string(v.Value), Anonymous: v.Anonymous, CastAt: v.UpdatedAt}
		if v.Anonymous && v.UserID != callerID && !rbac.CanManageMotions(role) {
			b.UserID = ""
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, committee *committeedomain.Committee, eventType, motionID string) {
	telemetry.EmitAsync(s.emitter, ctx, &telemetrydomain.Event{
		ID:          uuid.New().String(),
		OrgID:       committee.OrgID,
		CommitteeID: committee.ID,
		EventType:   eventType,
		Source:      "api",
		Attributes:  map[string]string{"motion_id": motionID},
		CreatedAt:   time.Now().UTC(),
	})
}
