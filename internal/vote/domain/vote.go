package domain

import (
	"errors"
	"time"
)

// Value is a single ballot choice.
type Value string

const (
	ValueYes     Value = "yes"
	ValueNo      Value = "no"
	ValueAbstain Value = "abstain"
)

// ParseValue validates a wire-format vote value.
func ParseValue(s string) (Value, error) {
	switch Value(s) {
	case ValueYes, ValueNo, ValueAbstain:
		return Value(s), nil
	default:
		return "", errors.New("vote value must be yes, no, or abstain")
	}
}

// Vote is one user's ballot on one motion. At most one row exists per
// (motion, user); re-casting replaces the value in place.
type Vote struct {
	ID        string
	MotionID  string
	UserID    string
	Value     Value
	Anonymous bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary is the aggregate returned to callers after any tally operation.
// Yes+No+Abstain always equals Voters (the number of distinct voters).
type Summary struct {
	Yes     int    `json:"yes"`
	No      int    `json:"no"`
	Abstain int    `json:"abstain"`
	Voters  int    `json:"voters"`
	OwnVote string `json:"ownVote,omitempty"`
}
