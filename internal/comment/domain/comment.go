package domain

import (
	"errors"
	"strings"
	"time"
)

// Stance is the commenter's declared position on the motion.
type Stance string

const (
	StancePro     Stance = "pro"
	StanceCon     Stance = "con"
	StanceNeutral Stance = "neutral"
)

// ParseStance validates a wire-format stance; empty defaults to neutral.
func ParseStance(s string) (Stance, error) {
	if s == "" {
		return StanceNeutral, nil
	}
	switch Stance(s) {
	case StancePro, StanceCon, StanceNeutral:
		return Stance(s), nil
	default:
		return "", errors.New("stance must be pro, con, or neutral")
	}
}

// Comment is a discussion entry on a motion. Comments are append-only: there
// is no edit operation, only create and delete.
type Comment struct {
	ID          string
	CommitteeID string
	MotionID    string
	AuthorID    string
	AuthorName  string
	Content     string
	Stance      Stance
	// IsSystemMessage marks entries written by the motion lifecycle
	// (seconded, voting opened/closed) rather than by a member.
	IsSystemMessage bool
	CreatedAt       time.Time
}

// Validate checks required fields.
func (c *Comment) Validate() error {
	if strings.TrimSpace(c.Content) == "" {
		return errors.New("comment content is required")
	}
	if c.CommitteeID == "" || c.MotionID == "" {
		return errors.New("comment committee_id and motion_id are required")
	}
	if c.AuthorID == "" {
		return errors.New("comment author_id is required")
	}
	return nil
}
