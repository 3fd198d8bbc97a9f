// Package audit records security-relevant events (logins, token rotations,
// password resets). Recording is best-effort and never fails the caller.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"chat-platform/backend/internal/audit/domain"
	auditrepo "chat-platform/backend/internal/audit/repository"
)

// SentinelActorID is the actor_id used for events with no authenticated actor
// (e.g. login_failure on an unknown email).
const SentinelActorID = "_anonymous"

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/target.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, actorID, action, target, detail string)
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

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, actorID, action, target, detail string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if actorID == "" {
		actorID = SentinelActorID
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		ActorID:   actorID,
		Action:    action,
		Target:    target,
		Detail:    detail,
		ClientIP:  ip,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, target, err)
	}
}
