// SPDX-License-Identifier: Apache-2.0

// Package acl evaluates whether a principal may perform an action on a
// vault resource class. The decision function is pure: all state lives in
// the immutable [ActionCatalog] supplied at construction.
package acl

import (
	"context"

	"github.com/credvault/credvault/internal/audit"
	"github.com/credvault/credvault/internal/logger"
	"github.com/credvault/credvault/models"
)

// Checker answers access questions against an [ActionCatalog] and reports
// every denial to the audit sink.
type Checker struct {
	catalog *ActionCatalog
	sink    audit.Sink
	logger  *logger.Logger
}

// NewChecker constructs a [Checker]. sink must be non-nil; use
// [audit.NopSink] to discard events in tests.
func NewChecker(catalog *ActionCatalog, sink audit.Sink, log *logger.Logger) *Checker {
	return &Checker{
		catalog: catalog,
		sink:    sink,
		logger:  log,
	}
}

// CheckAccess reports whether principal may perform action. ownerHint is
// the owning user id of the acted-upon resource (zero when not applicable)
// and feeds self-service rules.
//
// Evaluation order:
//  1. IsAdminApp allows unconditionally — before any action rule, so admins
//     are granted even actions the catalog does not know.
//  2. A principal whose profile was never loaded is denied: with unknown
//     capabilities the only safe answer is no.
//  3. Otherwise the catalog predicate decides; unknown actions deny.
//
// Every denial emits exactly one audit event.
func (c *Checker) CheckAccess(ctx context.Context, principal models.Principal, action models.ActionID, ownerHint int64) bool {
	if principal.IsAdminApp {
		return true
	}

	if principal.Profile == nil {
		c.deny(ctx, principal, action, ownerHint, "profile not loaded")
		return false
	}

	predicate := c.catalog.lookup(action)
	if predicate == nil {
		c.deny(ctx, principal, action, ownerHint, "unknown action")
		return false
	}

	if !predicate(principal, ownerHint) {
		c.deny(ctx, principal, action, ownerHint, "capability missing")
		return false
	}

	return true
}

func (c *Checker) deny(ctx context.Context, principal models.Principal, action models.ActionID, ownerHint int64, detail string) {
	logger.FromContext(ctx).Warn().
		Str("func", "Checker.CheckAccess").
		Int64("user_id", principal.UserID).
		Str("action", action.String()).
		Msg("access denied")

	c.sink.Record(models.AuditEvent{
		UserID:  principal.UserID,
		Action:  action,
		ItemID:  ownerHint,
		Outcome: models.AuditDenied,
		Detail:  detail,
	})
}
