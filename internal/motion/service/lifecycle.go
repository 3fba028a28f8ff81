// Package service implements the motion lifecycle: creation, seconding, the
// voting window, and the terminal transitions (passed/failed/voided).
package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"commie/backend/internal/apperr"
	"commie/backend/internal/audit"
	commentdomain "commie/backend/internal/comment/domain"
	committeedomain "commie/backend/internal/committee/domain"
	"commie/backend/internal/eligibility/engine"
	"commie/backend/internal/motion/domain"
	"commie/backend/internal/platform/rbac"
	"commie/backend/internal/telemetry"
	telemetrydomain "commie/backend/internal/telemetry/domain"
	userdomain "commie/backend/internal/user/domain"
)

// Actor is the resolved caller of a lifecycle operation.
type Actor struct {
	User *userdomain.User
	Role rbac.Role
}

func (a Actor) id() string {
	if a.User == nil {
		return ""
	}
	return a.User.ID
}

func (a Actor) name() string {
	if a.User == nil {
		return ""
	}
	return a.User.EffectiveName()
}

// MotionRepo is the minimal motion repository needed by the lifecycle service.
type MotionRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Motion, error)
	Create(ctx context.Context, m *domain.Motion) error
	Update(ctx context.Context, m *domain.Motion) error
	Delete(ctx context.Context, id string) error
	ListByCommittee(ctx context.Context, committeeID string, statuses []domain.Status, page, perPage int) ([]*domain.Motion, int, error)
	ListSubsidiaries(ctx context.Context, motionID string) ([]*domain.Motion, error)
	Second(ctx context.Context, motionID, userID string, at time.Time) (bool, error)
	OpenVoting(ctx context.Context, motionID string, at time.Time) (bool, error)
	Close(ctx context.Context, motionID string, status domain.Status, at time.Time) (bool, error)
	Void(ctx context.Context, motionID string, at time.Time) (bool, error)
}

// TallyReader reads the aggregate vote counts for a motion.
type TallyReader interface {
	Tally(ctx context.Context, motionID string) (domain.Tally, error)
}

// CommentWriter appends system messages to a motion's discussion.
type CommentWriter interface {
	Create(ctx context.Context, c *commentdomain.Comment) error
}

// Service implements the motion lifecycle state machine.
type Service struct {
	motions     MotionRepo
	tally       TallyReader
	comments    CommentWriter
	eligibility engine.Evaluator
	auditLog    audit.AuditLogger
	emitter     telemetry.EventEmitter
}

// NewService returns a lifecycle service with the given dependencies.
// comments, auditLog, and emitter may be nil; the corresponding side effects are skipped.
func NewService(
	motions MotionRepo,
	tally TallyReader,
	comments CommentWriter,
	eligibility engine.Evaluator,
	auditLog audit.AuditLogger,
	emitter telemetry.EventEmitter,
) *Service {
	return &Service{
		motions:     motions,
		tally:       tally,
		comments:    comments,
		eligibility: eligibility,
		auditLog:    auditLog,
		emitter:     emitter,
	}
}

// CreateInput holds the caller-supplied fields for a new motion.
type CreateInput struct {
	Title           string
	Description     string
	FullDescription string
	Type            string
	VoteRequired    string
	TargetMotionID  string
}

// Create files a new motion. Members and above may create; the motion type
// must be enabled in committee settings. When the committee does not require
// seconds the voting window opens immediately; otherwise the motion waits in
// pending until seconded.
func (s *Service) Create(ctx context.Context, committee *committeedomain.Committee, actor Actor, in CreateInput) (*domain.Motion, error) {
	if !rbac.CanPost(actor.Role) {
		return nil, apperr.ErrForbidden
	}
	motionType := in.Type
	if motionType == "" {
		motionType = "main"
	}
	if !committee.Settings.MotionTypeEnabled(motionType) {
		return nil, fmt.Errorf("%w: motion type %q is not enabled for this committee", apperr.ErrValidation, motionType)
	}
	voteRequired := in.VoteRequired
	if voteRequired == "" {
		voteRequired = domain.VoteRequiredMajority
	}
	if in.TargetMotionID != "" {
		parent, err := s.motions.GetByID(ctx, in.TargetMotionID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.CommitteeID != committee.ID {
			return nil, fmt.Errorf("%w: target motion not found in committee", apperr.ErrValidation)
		}
	}

	now := time.Now().UTC()
	m := &domain.Motion{
		ID:              uuid.New().String(),
		CommitteeID:     committee.ID,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		FullDescription: in.FullDescription,
		Type:            motionType,
		AuthorID:        actor.id(),
		AuthorName:      actor.name(),
		Status:          domain.StatusActive,
		VoteRequired:    voteRequired,
		VotingStatus:    domain.VotingPending,
		TargetMotionID:  in.TargetMotionID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if !committee.Settings.RequireSecond && voteRequired != domain.VoteRequiredNone {
		m.VotingStatus = domain.VotingOpen
		m.VotingOpenedAt = &now
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if err := s.motions.Create(ctx, m); err != nil {
		return nil, err
	}
	s.audit(ctx, committee, actor.id(), "motion.create", m.ID, "")
	s.emit(ctx, committee, telemetrydomain.EventMotionCreated, m.ID)
	return m, nil
}

// Second records another member's endorsement. The author cannot second their
// own motion; a duplicate second is an invalid-state error. When the motion
// was only waiting on a second, seconding opens the voting window.
func (s *Service) Second(ctx context.Context, committee *committeedomain.Committee, actor Actor, motion *domain.Motion) (*domain.Motion, error) {
	if !rbac.CanPost(actor.Role) {
		return nil, apperr.ErrForbidden
	}
	if !committee.Settings.RequireSecond {
		return nil, fmt.Errorf("%w: committee does not require seconds", apperr.ErrInvalidState)
	}
	if motion.AuthorID == actor.id() {
		return nil, fmt.Errorf("%w: the author cannot second their own motion", apperr.ErrValidation)
	}
	if motion.Status.Terminal() {
		return nil, fmt.Errorf("%w: motion is %s", apperr.ErrInvalidState, motion.Status)
	}
	now := time.Now().UTC()
	ok, err := s.motions.Second(ctx, motion.ID, actor.id(), now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: motion is already seconded", apperr.ErrInvalidState)
	}
	if motion.VotingStatus == domain.VotingPending && motion.VoteRequired != domain.VoteRequiredNone {
		if _, err := s.motions.OpenVoting(ctx, motion.ID, now); err != nil {
			return nil, err
		}
		s.systemComment(ctx, committee, motion, fmt.Sprintf("Motion seconded by %s. Voting is now open.", actor.name()))
		s.emit(ctx, committee, telemetrydomain.EventVotingOpened, motion.ID)
	} else {
		s.systemComment(ctx, committee, motion, fmt.Sprintf("Motion seconded by %s.", actor.name()))
	}
	s.audit(ctx, committee, actor.id(), "motion.second", motion.ID, "")
	s.emit(ctx, committee, telemetrydomain.EventMotionSeconded, motion.ID)
	return s.motions.GetByID(ctx, motion.ID)
}

// OpenVoting opens the voting window on a pending motion. Chair/admin only.
// Under strict enforcement the eligibility evaluator must allow it; under
// advisory enforcement a failed evaluation is logged and voting opens anyway.
func (s *Service) OpenVoting(ctx context.Context, committee *committeedomain.Committee, actor Actor, motion *domain.Motion) (*domain.Motion, error) {
	if !rbac.CanManageMotions(actor.Role) {
		return nil, apperr.ErrForbidden
	}
	if motion.VoteRequired == domain.VoteRequiredNone {
		return nil, fmt.Errorf("%w: motion does not take votes", apperr.ErrInvalidState)
	}
	res, err := s.eligibility.Evaluate(ctx, committee, motion)
	if err != nil {
		return nil, err
	}
	if !res.Eligible {
		if committee.Settings.EnforcementLevel == committeedomain.EnforcementStrict {
			return nil, fmt.Errorf("%w: %s", apperr.ErrInvalidState, strings.Join(res.Reasons, "; "))
		}
		log.Printf("lifecycle: opening voting on %s despite: %s", motion.ID, strings.Join(res.Reasons, "; "))
	}
	now := time.Now().UTC()
	ok, err := s.motions.OpenVoting(ctx, motion.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: voting is not pending", apperr.ErrInvalidState)
	}
	s.systemComment(ctx, committee, motion, "Voting is now open.")
	s.audit(ctx, committee, actor.id(), "voting.open", motion.ID, "")
	s.emit(ctx, committee, telemetrydomain.EventVotingOpened, motion.ID)
	return s.motions.GetByID(ctx, motion.ID)
}

// CloseVoting settles an open motion from its tally: yes > no passes,
// anything else (including a tie) fails. Chair/admin only. Closing a motion
// that is not open is an invalid-state error, so a repeated close is rejected
// rather than silently recomputed.
func (s *Service) CloseVoting(ctx context.Context, committee *committeedomain.Committee, actor Actor, motion *domain.Motion) (*domain.Motion, error) {
	if !rbac.CanManageMotions(actor.Role) {
		return nil, apperr.ErrForbidden
	}
	return s.close(ctx, committee, actor.id(), motion)
}

// CloseExpired settles a motion whose voting window elapsed. Called by the
// background sweeper with no human actor.
func (s *Service) CloseExpired(ctx context.Context, committee *committeedomain.Committee, motion *domain.Motion) (*domain.Motion, error) {
	return s.close(ctx, committee, audit.SystemUserID, motion)
}

func (s *Service) close(ctx context.Context, committee *committeedomain.Committee, actorID string, motion *domain.Motion) (*domain.Motion, error) {
	tally, err := s.tally.Tally(ctx, motion.ID)
	if err != nil {
		return nil, err
	}
	status := tally.Result()
	now := time.Now().UTC()
	ok, err := s.motions.Close(ctx, motion.ID, status, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: voting is not open", apperr.ErrInvalidState)
	}
	s.systemComment(ctx, committee, motion,
		fmt.Sprintf("Voting closed: %d yes, %d no, %d abstain. Motion %s.", tally.Yes, tally.No, tally.Abstain, status))
	s.audit(ctx, committee, actorID, "voting.close", motion.ID,
		fmt.Sprintf(`{"yes":%d,"no":%d,"abstain":%d,"status":%q}`, tally.Yes, tally.No, tally.Abstain, status))
	s.emit(ctx, committee, telemetrydomain.EventVotingClosed, motion.ID)
	return s.motions.GetByID(ctx, motion.ID)
}

// Void marks a still-active motion procedurally withdrawn. Chair/admin only;
// reachable from any pre-terminal state.
func (s *Service) Void(ctx context.Context, committee *committeedomain.Committee, actor Actor, motion *domain.Motion) (*domain.Motion, error) {
	if !rbac.CanManageMotions(actor.Role) {
		return nil, apperr.ErrForbidden
	}
	now := time.Now().UTC()
	ok, err := s.motions.Void(ctx, motion.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: motion is already settled", apperr.ErrInvalidState)
	}
	s.systemComment(ctx, committee, motion, "Motion voided.")
	s.audit(ctx, committee, actor.id(), "motion.void", motion.ID, "")
	s.emit(ctx, committee, telemetrydomain.EventMotionVoided, motion.ID)
	return s.motions.GetByID(ctx, motion.ID)
}

// UpdateInput holds the editable motion fields.
type UpdateInput struct {
	Title           string
	Description     string
	FullDescription string
}

// Update edits the motion text. The author may edit before voting opens;
// chair/admin may edit any active motion. Terminal motions are immutable.
func (s *Service) Update(ctx context.Context, committee *committeedomain.Committee, actor Actor, motion *domain.Motion, in UpdateInput) (*domain.Motion, error) {
	if motion.Status.Terminal() {
		return nil, fmt.Errorf("%w: motion is %s", apperr.ErrInvalidState, motion.Status)
	}
	isAuthor := motion.AuthorID == actor.id()
	if !rbac.CanManageMotions(actor.Role) {
		if !isAuthor {
			return nil, apperr.ErrForbidden
		}
		if motion.VotingStatus == domain.VotingOpen {
			return nil, fmt.Errorf("%w: motion cannot be edited while voting is open", apperr.ErrInvalidState)
		}
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: motion title is required", apperr.ErrValidation)
	}
	motion.Title = strings.TrimSpace(in.Title)
	motion.Description = in.Description
	motion.FullDescription = in.FullDescription
	motion.UpdatedAt = time.Now().UTC()
	if err := s.motions.Update(ctx, motion); err != nil {
		return nil, err
	}
	s.audit(ctx, committee, actor.id(), "motion.update", motion.ID, "")
	return motion, nil
}

// Delete removes the motion. The author or chair/admin may delete.
// Subsidiaries are not cascaded; the schema severs their back-reference.
func (s *Service) Delete(ctx context.Context, committee *committeedomain.Committee, actor Actor, motion *domain.Motion) error {
	if motion.AuthorID != actor.id() && !rbac.CanManageMotions(actor.Role) {
		return apperr.ErrForbidden
	}
	if err := s.motions.Delete(ctx, motion.ID); err != nil {
		return err
	}
	s.audit(ctx, committee, actor.id(), "motion.delete", motion.ID, "")
	s.emit(ctx, committee, telemetrydomain.EventMotionDeleted, motion.ID)
	return nil
}

// Eligibility evaluates whether voting may proceed on the motion.
// Motions with vote_required=none are reported as not applicable; no
// evaluation runs for them at all.
func (s *Service) Eligibility(ctx context.Context, committee *committeedomain.Committee, motion *domain.Motion) (applicable bool, res engine.Result, err error) {
	if !engine.Applicable(motion) {
		return false, engine.Result{}, nil
	}
	res, err = s.eligibility.Evaluate(ctx, committee, motion)
	return true, res, err
}

func (s *Service) systemComment(ctx context.Context, committee *committeedomain.Committee, motion *domain.Motion, content string) {
	if s.comments == nil {
		return
	}
	c := &commentdomain.Comment{
		ID:              uuid.New().String(),
		CommitteeID:     committee.ID,
		MotionID:        motion.ID,
		AuthorID:        audit.SystemUserID,
		AuthorName:      "System",
		Content:         content,
		Stance:          commentdomain.StanceNeutral,
		IsSystemMessage: true,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.comments.Create(ctx, c); err != nil {
		log.Printf("lifecycle: system comment on %s failed: %v", motion.ID, err)
	}
}

func (s *Service) audit(ctx context.Context, committee *committeedomain.Committee, userID, action, motionID, metadata string) {
	if s.auditLog == nil {
		return
	}
	s.auditLog.LogEvent(ctx, committee.OrgID, committee.ID, userID, action, "motion:"+motionID, metadata)
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
