package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"commie/backend/internal/audit/domain"
	auditrepo "commie/backend/internal/audit/repository"
)

// SentinelOrgID is the org_id used for audit events that have no org (e.g. background sweeps).
const SentinelOrgID = "_system"

// SystemUserID marks actions taken by the service itself (e.g. voting-window expiry).
const SystemUserID = "_system"

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource. Used by the
// motion lifecycle, vote, and committee code paths.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, orgID, committeeID, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// LogEvent writes one audit log entry. committeeID may be empty for actions
// outside any committee. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, orgID, committeeID, userID, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if orgID == "" {
		orgID = SentinelOrgID
	}
	entry := &domain.AuditLog{
		ID:          uuid.New().String(),
		OrgID:       orgID,
		CommitteeID: committeeID,
		UserID:      userID,
		Action:      action,
		Resource:    resource,
		IP:          ip,
		Metadata:    metadata,
		CreatedAt:   time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}
