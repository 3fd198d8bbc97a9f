package domain

import "time"

// AuditLog represents an audit event.
type AuditLog struct {
	ID        string
	ActorID   string
	Action    string
	Target    string
	Detail    string
	ClientIP  string
	CreatedAt time.Time
}
