package domain

import (
	"errors"
	"strings"
	"time"
)

// Visibility controls whether non-members may read a committee's motions.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// EnforcementLevel controls how strictly procedural rules are applied.
// Strict blocks operations that fail eligibility; advisory logs and proceeds.
type EnforcementLevel string

const (
	EnforcementStrict   EnforcementLevel = "strict"
	EnforcementAdvisory EnforcementLevel = "advisory"
)

// Settings holds a committee's procedural configuration.
type Settings struct {
	// RequireSecond requires a second member's endorsement before voting may open.
	RequireSecond bool
	// AllowAbstentions permits abstain votes.
	AllowAbstentions bool
	// VotingPeriodDays is the voting window in days; 0 means no deadline.
	VotingPeriodDays int
	EnforcementLevel EnforcementLevel
	// EnabledMotionTypes maps motion type to whether members may create it.
	// An empty map enables all types.
	EnabledMotionTypes map[string]bool
	// AutoArchive closes expired voting windows from the background worker.
	AutoArchive bool
}

// MotionTypeEnabled reports whether members may create motions of the given type.
func (s Settings) MotionTypeEnabled(motionType string) bool {
	if len(s.EnabledMotionTypes) == 0 {
		return true
	}
	return s.EnabledMotionTypes[motionType]
}

// Committee is a deliberative body within an organization.
type Committee struct {
	ID          string
	OrgID       string
	Title       string
	Slug        string
	Description string
	// ChairID and OwnerID duplicate the corresponding membership rows for fast
	// role resolution; the membership table remains authoritative for everyone else.
	ChairID    string
	OwnerID    string
	Visibility Visibility
	Settings   Settings
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks required fields and enum values.
func (c *Committee) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("committee title is required")
	}
	if c.OrgID == "" {
		return errors.New("committee org_id is required")
	}
	if c.OwnerID == "" {
		return errors.New("committee owner_id is required")
	}
	switch c.Visibility {
	case VisibilityPublic, VisibilityPrivate:
	default:
		return errors.New("committee visibility must be public or private")
	}
	switch c.Settings.EnforcementLevel {
	case EnforcementStrict, EnforcementAdvisory:
	default:
		return errors.New("enforcement level must be strict or advisory")
	}
	if c.Settings.VotingPeriodDays < 0 {
		return errors.New("voting period days must not be negative")
	}
	return nil
}

// Role is a user's committee-scoped permission level.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleChair  Role = "chair"
	RoleMember Role = "member"
	RoleGuest  Role = "guest"
)

// rank orders roles for precedence comparisons; higher outranks lower.
func (r Role) rank() int {
	switch r {
	case RoleOwner:
		return 4
	case RoleChair:
		return 3
	case RoleMember:
		return 2
	case RoleGuest:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r outranks or equals other.
func (r Role) AtLeast(other Role) bool {
	return r.rank() >= other.rank()
}

// Member links a user to a committee with a role. One row per (committee, user).
type Member struct {
	ID          string
	CommitteeID string
	UserID      string
	Role        Role
	JoinedAt    time.Time
}

// AccessRequestStatus is the lifecycle state of an access request.
type AccessRequestStatus string

const (
	AccessRequestPending  AccessRequestStatus = "pending"
	AccessRequestApproved AccessRequestStatus = "approved"
	AccessRequestDenied   AccessRequestStatus = "denied"
)

// AccessRequest is a non-member's petition to join a committee.
// Users with no access to a committee may still file one.
type AccessRequest struct {
	ID          string
	CommitteeID string
	UserID      string
	Message     string
	Status      AccessRequestStatus
	CreatedAt   time.Time
	DecidedAt   *time.Time
}
