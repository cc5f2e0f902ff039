package models

// ActionID identifies a single protected operation of the vault engine.
// The access-control layer maps every ActionID to a capability predicate
// at construction time; unknown identifiers are always denied for
// non-admin principals.
type ActionID int

const (
	ActionUnknown ActionID = iota

	// Vault item operations.
	ActionItemView
	ActionItemViewPass
	ActionItemCreate
	ActionItemEdit
	ActionItemEditPass
	ActionItemDelete

	// Public link operations. ActionLinkView is not ACL-governed (redemption
	// is unauthenticated); it exists to label audit events.
	ActionLinkCreate
	ActionLinkRefresh
	ActionLinkView

	// Administrative operations. ActionUserEditPass additionally permits
	// self-service when the acted-upon resource belongs to the caller.
	ActionUserEditPass
	ActionRotationStart
)

// String returns a stable name for the action, used in audit events and logs.
func (a ActionID) String() string {
	switch a {
	case ActionItemView:
		return "item.view"
	case ActionItemViewPass:
		return "item.view_pass"
	case ActionItemCreate:
		return "item.create"
	case ActionItemEdit:
		return "item.edit"
	case ActionItemEditPass:
		return "item.edit_pass"
	case ActionItemDelete:
		return "item.delete"
	case ActionLinkCreate:
		return "link.create"
	case ActionLinkRefresh:
		return "link.refresh"
	case ActionLinkView:
		return "link.view"
	case ActionUserEditPass:
		return "user.edit_pass"
	case ActionRotationStart:
		return "rotation.start"
	default:
		return "unknown"
	}
}
