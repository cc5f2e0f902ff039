package acl

import "github.com/credvault/credvault/models"

// Predicate decides whether a principal's profile grants one action.
// ownerHint carries the user id owning the acted-upon resource, or zero when
// not applicable; it enables self-service rules.
type Predicate func(principal models.Principal, ownerHint int64) bool

// ActionCatalog is the immutable action → predicate table consulted by
// [Checker]. It is built once at construction; there is no process-global
// mutable action registry.
type ActionCatalog struct {
	rules map[models.ActionID]Predicate
}

// NewActionCatalog builds the default capability rules of the engine:
//
//   - viewing an item requires the view or edit capability (editing implies
//     being able to see what is edited);
//   - viewing or changing an item's secret requires the dedicated *Pass
//     capability;
//   - changing a user's password requires the user-edit capability, or the
//     target being the caller itself (self-service);
//   - starting a rotation is admin-only and therefore has no profile rule:
//     only the IsAdminApp short-circuit can grant it.
func NewActionCatalog() *ActionCatalog {
	profile := func(grant func(p models.Profile) bool) Predicate {
		return func(principal models.Principal, _ int64) bool {
			return grant(*principal.Profile)
		}
	}

	return &ActionCatalog{rules: map[models.ActionID]Predicate{
		models.ActionItemView: profile(func(p models.Profile) bool {
			return p.ItemView || p.ItemEdit
		}),
		models.ActionItemViewPass: profile(func(p models.Profile) bool {
			return p.ItemViewPass || p.ItemEditPass
		}),
		models.ActionItemCreate: profile(func(p models.Profile) bool {
			return p.ItemCreate
		}),
		models.ActionItemEdit: profile(func(p models.Profile) bool {
			return p.ItemEdit
		}),
		models.ActionItemEditPass: profile(func(p models.Profile) bool {
			return p.ItemEditPass
		}),
		models.ActionItemDelete: profile(func(p models.Profile) bool {
			return p.ItemDelete
		}),
		models.ActionLinkCreate: profile(func(p models.Profile) bool {
			return p.LinkCreate
		}),
		models.ActionLinkRefresh: profile(func(p models.Profile) bool {
			return p.LinkRefresh || p.LinkCreate
		}),
		models.ActionUserEditPass: func(principal models.Principal, ownerHint int64) bool {
			if principal.Profile.UserEdit {
				return true
			}
			// Self-service: a user may change their own password.
			return ownerHint != 0 && ownerHint == principal.UserID
		},
	}}
}

// lookup returns the predicate for action, or nil when the action is not in
// the catalog (which the checker treats as deny).
func (c *ActionCatalog) lookup(action models.ActionID) Predicate {
	return c.rules[action]
}
