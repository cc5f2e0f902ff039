package models

// Profile is the capability set granted to a principal. A nil profile on
// a [Principal] means the capabilities were never loaded; the access layer
// treats that state as deny-all.
type Profile struct {
	ItemView     bool
	ItemViewPass bool
	ItemCreate   bool
	ItemEdit     bool
	ItemEditPass bool
	ItemDelete   bool
	LinkCreate   bool
	LinkRefresh  bool
	UserEdit     bool
}

// Principal is the authorization actor for every engine operation.
type Principal struct {
	UserID  int64
	GroupID int64

	// IsAdminApp is a superseding capability: every access check
	// short-circuits to allow before any action-specific rule.
	IsAdminApp bool

	Profile *Profile
}
