package models

import "time"

// PublicLink is an unauthenticated, token-based share of one vault item's
// secret. The sealed snapshot is encrypted under a key derived from the
// server-side link salt and the link hash only, so redemption requires no
// live session.
type PublicLink struct {
	ID     int64
	ItemID int64

	// Hash is the URL-safe, fixed-length, unguessable redemption token.
	Hash string

	// SealedSnapshot is an independent sealed-box copy of the item's secret,
	// taken at creation (or refresh) time.
	SealedSnapshot []byte

	MaxViews  int64
	ViewCount int64

	NotifyOnView bool

	CreatedAt time.Time
	ExpireAt  time.Time
}

// Usable reports whether the link can still be redeemed at the given time.
// A link is usable iff it has not expired and has views remaining.
func (l PublicLink) Usable(now time.Time) bool {
	return now.Before(l.ExpireAt) && l.ViewCount < l.MaxViews
}
