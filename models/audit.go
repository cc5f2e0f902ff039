package models

import "time"

// AuditOutcome classifies an audit event.
type AuditOutcome string

const (
	AuditDenied   AuditOutcome = "denied"
	AuditLinkView AuditOutcome = "link_viewed"
)

// AuditEvent is a security-relevant event emitted by the engine.
// Emission is fire-and-forget: producers never block on the sink.
type AuditEvent struct {
	At      time.Time
	UserID  int64
	Action  ActionID
	ItemID  int64
	Outcome AuditOutcome
	Detail  string
}
