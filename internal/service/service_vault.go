// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/credvault/credvault/internal/acl"
	"github.com/credvault/credvault/internal/crypto"
	"github.com/credvault/credvault/internal/logger"
	"github.com/credvault/credvault/internal/store"
	"github.com/credvault/credvault/models"
)

// VaultService implements the ACL-checked vault item use cases. Secrets
// cross its boundary only as plaintext byte slices: sealing and opening
// happen here, the store below sees ciphertext only.
type VaultService struct {
	items store.ItemRepository
	links store.LinkRepository

	chain   crypto.KeyChain
	checker *acl.Checker
	holder  *keyHolder
	gate    *MaintenanceGate
	logger  *logger.Logger

	now func() time.Time
}

func NewVaultService(items store.ItemRepository, links store.LinkRepository, chain crypto.KeyChain, checker *acl.Checker, holder *keyHolder, gate *MaintenanceGate, log *logger.Logger) *VaultService {
	return &VaultService{
		items:   items,
		links:   links,
		chain:   chain,
		checker: checker,
		holder:  holder,
		gate:    gate,
		logger:  log,
		now:     time.Now,
	}
}

// Create seals secret under the current master-derived key and persists a new
// item owned by the principal.
func (s *VaultService) Create(ctx context.Context, principal models.Principal, item models.VaultItem, secret []byte) (models.VaultItem, error) {
	release, err := s.gate.Acquire()
	if err != nil {
		return models.VaultItem{}, err
	}
	defer release()

	if !s.checker.CheckAccess(ctx, principal, models.ActionItemCreate, principal.UserID) {
		return models.VaultItem{}, ErrUnauthorized
	}

	key, err := s.holder.get()
	if err != nil {
		return models.VaultItem{}, err
	}

	item.OwnerUserID = principal.UserID
	item.Payload, err = s.chain.Seal(secret, key)
	if err != nil {
		return models.VaultItem{}, fmt.Errorf("seal secret: %w", err)
	}

	if err := s.items.Save(ctx, &item); err != nil {
		return models.VaultItem{}, err
	}

	return item, nil
}

// Get returns an item's metadata without touching the secret. The sealed
// payload is stripped from the result; use GetDecrypted for the secret.
// Bumps the view counter best-effort.
func (s *VaultService) Get(ctx context.Context, principal models.Principal, id int64) (models.VaultItem, error) {
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return models.VaultItem{}, err
	}

	if !s.checker.CheckAccess(ctx, principal, models.ActionItemView, item.OwnerUserID) {
		return models.VaultItem{}, ErrUnauthorized
	}

	if err := s.items.IncrementViewCount(ctx, id); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("func", "VaultService.Get").Int64("item_id", id).Msg("failed to bump view counter")
	}

	item.Payload = nil

	return item, nil
}

// GetDecrypted opens an item's secret under the current master-derived key.
// Bumps the decrypt counter best-effort.
func (s *VaultService) GetDecrypted(ctx context.Context, principal models.Principal, id int64) ([]byte, error) {
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.checker.CheckAccess(ctx, principal, models.ActionItemViewPass, item.OwnerUserID) {
		return nil, ErrUnauthorized
	}

	key, err := s.holder.get()
	if err != nil {
		return nil, err
	}

	secret, err := s.chain.Open(item.Payload, key)
	if err != nil {
		return nil, err
	}

	if err := s.items.IncrementDecryptCount(ctx, id); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("func", "VaultService.GetDecrypted").Int64("item_id", id).Msg("failed to bump decrypt counter")
	}

	return secret, nil
}

// List returns the principal's items matching filter. Non-admin principals
// are always scoped to their own items regardless of the filter they pass.
func (s *VaultService) List(ctx context.Context, principal models.Principal, filter models.ItemFilter) ([]models.VaultItem, error) {
	if !principal.IsAdminApp {
		filter.OwnerUserID = principal.UserID
	}

	if !s.checker.CheckAccess(ctx, principal, models.ActionItemView, filter.OwnerUserID) {
		return nil, ErrUnauthorized
	}

	items, err := s.items.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	for i := range items {
		items[i].Payload = nil
	}

	return items, nil
}

// Update reseals newSecret and replaces the item's payload, guarded by the
// caller's version. A conflicting concurrent edit is rejected with
// [ErrVersionConflict], never merged.
func (s *VaultService) Update(ctx context.Context, principal models.Principal, id, version int64, newSecret []byte) error {
	release, err := s.gate.Acquire()
	if err != nil {
		return err
	}
	defer release()

	item, err := s.items.Get(ctx, id)
	if err != nil {
		return err
	}

	if !s.checker.CheckAccess(ctx, principal, models.ActionItemEditPass, item.OwnerUserID) {
		return ErrUnauthorized
	}

	key, err := s.holder.get()
	if err != nil {
		return err
	}

	payload, err := s.chain.Seal(newSecret, key)
	if err != nil {
		return fmt.Errorf("seal secret: %w", err)
	}

	return s.items.UpdatePayload(ctx, id, version, payload, s.now().UTC())
}

// UpdateMeta replaces an item's non-secret metadata (name, client, tags)
// with the same optimistic locking as secret updates.
func (s *VaultService) UpdateMeta(ctx context.Context, principal models.Principal, id, version int64, name, client string, tags []string) error {
	release, err := s.gate.Acquire()
	if err != nil {
		return err
	}
	defer release()

	item, err := s.items.Get(ctx, id)
	if err != nil {
		return err
	}

	if !s.checker.CheckAccess(ctx, principal, models.ActionItemEdit, item.OwnerUserID) {
		return ErrUnauthorized
	}

	return s.items.UpdateMeta(ctx, id, version, name, client, tags, s.now().UTC())
}

// Delete soft-deletes one item and removes its outstanding public links.
func (s *VaultService) Delete(ctx context.Context, principal models.Principal, ref models.ItemRef) error {
	release, err := s.gate.Acquire()
	if err != nil {
		return err
	}
	defer release()

	item, err := s.items.Get(ctx, ref.ID)
	if err != nil {
		return err
	}

	if !s.checker.CheckAccess(ctx, principal, models.ActionItemDelete, item.OwnerUserID) {
		return ErrUnauthorized
	}

	if err := s.items.SoftDelete(ctx, ref, s.now().UTC()); err != nil {
		return err
	}

	if err := s.links.DeleteByItem(ctx, ref.ID); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("func", "VaultService.Delete").Int64("item_id", ref.ID).Msg("failed to remove links of deleted item")
	}

	return nil
}

// DeleteBatch soft-deletes all referenced items in one transaction: either
// every reference lands or none does.
func (s *VaultService) DeleteBatch(ctx context.Context, principal models.Principal, refs []models.ItemRef) error {
	release, err := s.gate.Acquire()
	if err != nil {
		return err
	}
	defer release()

	for _, ref := range refs {
		item, err := s.items.Get(ctx, ref.ID)
		if err != nil {
			return fmt.Errorf("item %d: %w", ref.ID, err)
		}

		if !s.checker.CheckAccess(ctx, principal, models.ActionItemDelete, item.OwnerUserID) {
			return fmt.Errorf("item %d: %w", ref.ID, ErrUnauthorized)
		}
	}

	if err := s.items.SoftDeleteBatch(ctx, refs, s.now().UTC()); err != nil {
		return err
	}

	for _, ref := range refs {
		if err := s.links.DeleteByItem(ctx, ref.ID); err != nil {
			logger.FromContext(ctx).Warn().Err(err).Str("func", "VaultService.DeleteBatch").Int64("item_id", ref.ID).Msg("failed to remove links of deleted item")
		}
	}

	return nil
}

// History returns the sealed history snapshots of one item, newest last. The
// payloads stay sealed; opening them follows the same rules as GetDecrypted.
func (s *VaultService) History(ctx context.Context, principal models.Principal, itemID int64) ([]models.VaultItemHistory, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if !s.checker.CheckAccess(ctx, principal, models.ActionItemView, item.OwnerUserID) {
		return nil, ErrUnauthorized
	}

	return s.items.HistoryByItem(ctx, itemID)
}
