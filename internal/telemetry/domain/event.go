package domain

import "time"

// Event types emitted by the motion lifecycle and vote paths.
const (
	EventMotionCreated  = "motion.created"
	EventMotionSeconded = "motion.seconded"
	EventVotingOpened   = "voting.opened"
	EventVotingClosed   = "voting.closed"
	EventMotionVoided   = "motion.voided"
	EventMotionDeleted  = "motion.deleted"
	EventVoteCast       = "vote.cast"
	EventVoteRemoved    = "vote.removed"
)

// Event is one committee domain event published to the event pipeline.
// JSON field names are part of the worker/Loki contract.
type Event struct {
	ID          string            `json:"id"`
	OrgID       string            `json:"orgId"`
	CommitteeID string            `json:"committeeId"`
	EventType   string            `json:"eventType"`
	Source      string            `json:"source"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}
