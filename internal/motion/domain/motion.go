package domain

import (
	"errors"
	"strings"
	"time"
)

// Status is a motion's lifecycle state. Passed, failed, and voided are terminal;
// a terminal motion is immutable with respect to votes.
type Status string

const (
	StatusActive Status = "active"
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
	StatusVoided Status = "voided"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusVoided
}

// VotingStatus is the orthogonal state of the voting window.
type VotingStatus string

const (
	VotingPending VotingStatus = "pending"
	VotingOpen    VotingStatus = "open"
	VotingClosed  VotingStatus = "closed"
)

// VoteRequired names the threshold a motion needs to pass.
// VoteRequiredNone marks procedural motions that are never voted on;
// for those no eligibility check applies at all.
const (
	VoteRequiredMajority = "majority"
	VoteRequiredNone     = "none"
)

// Motion is a formal proposal within a committee, the unit of voting.
type Motion struct {
	ID              string
	CommitteeID     string
	Title           string
	Description     string
	FullDescription string
	Type            string
	AuthorID        string
	AuthorName      string
	Status          Status
	VoteRequired    string
	VotingStatus    VotingStatus
	VotingOpenedAt  *time.Time
	VotingClosedAt  *time.Time
	SecondedBy      string
	// TargetMotionID references the parent motion for subsidiary motions.
	// It is a back-reference, not ownership: deleting the parent severs the
	// link and the subsidiary survives.
	TargetMotionID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate checks required fields and enum values.
func (m *Motion) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return errors.New("motion title is required")
	}
	if m.CommitteeID == "" {
		return errors.New("motion committee_id is required")
	}
	if m.AuthorID == "" {
		return errors.New("motion author_id is required")
	}
	switch m.VoteRequired {
	case VoteRequiredMajority, VoteRequiredNone:
	default:
		return errors.New("vote_required must be majority or none")
	}
	return nil
}

// Subsidiary reports whether the motion references a parent motion.
func (m *Motion) Subsidiary() bool {
	return m.TargetMotionID != ""
}

// Tally holds aggregate vote counts for a motion.
type Tally struct {
	Yes     int
	No      int
	Abstain int
}

// Result applies the simple-majority rule to a tally: yes > no passes,
// anything else fails. A tie fails because a majority was not reached.
func (t Tally) Result() Status {
	if t.Yes > t.No {
		return StatusPassed
	}
	return StatusFailed
}
