package models

import "time"

// VaultItem is one encrypted credential record. Payload is an opaque
// sealed-box blob produced under the current master-derived key; all other
// fields are non-secret metadata.
type VaultItem struct {
	ID          int64
	OwnerUserID int64

	Name   string
	Client string
	Tags   []string

	// Payload is the authenticated-encryption blob holding the secret.
	Payload []byte

	// Version supports optimistic locking: every successful write bumps it,
	// and a write carrying a stale version is rejected.
	Version int64

	ViewCount    int64
	DecryptCount int64

	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VaultItemHistory is an audit snapshot of a superseded sealed payload,
// written whenever an item's secret is replaced or the item is deleted.
type VaultItemHistory struct {
	ID         int64
	ItemID     int64
	Payload    []byte
	Version    int64
	ReplacedAt time.Time
}

// ItemFilter narrows a vault item listing. Zero values mean "no filter"
// except OwnerUserID, which is always applied.
type ItemFilter struct {
	OwnerUserID    int64
	Client         string
	NameLike       string
	IncludeDeleted bool
}

// ItemRef addresses one item for a versioned write (delete, batch delete).
type ItemRef struct {
	ID      int64
	Version int64
}
