package domain

import "time"

// AuditLog is one recorded governance action (second, open/close voting,
// void, delete, membership change). Append-only.
type AuditLog struct {
	ID    string
	OrgID string
	// CommitteeID scopes the entry for the committee audit listing. Empty for
	// org-level actions.
	CommitteeID string
	UserID      string
	Action      string
	Resource    string
	IP          string
	Metadata    string
	CreatedAt   time.Time
}
