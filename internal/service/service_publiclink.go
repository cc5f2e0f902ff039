// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/credvault/credvault/internal/acl"
	"github.com/credvault/credvault/internal/audit"
	"github.com/credvault/credvault/internal/crypto"
	"github.com/credvault/credvault/internal/logger"
	"github.com/credvault/credvault/internal/store"
	"github.com/credvault/credvault/models"
)

// LinkOptions override the configured public link policy defaults. Zero
// values fall back to the defaults.
type LinkOptions struct {
	TTL          time.Duration
	MaxViews     int64
	NotifyOnView bool
}

// RedeemedSecret is the outcome of a successful link redemption.
type RedeemedSecret struct {
	Plaintext []byte
	ItemID    int64

	// ViewsLeft is the number of redemptions remaining after this one.
	ViewsLeft int64
}

// PublicLinkService issues and redeems token-based shares of vault secrets.
// A link's snapshot is sealed under a key derived from the server-side link
// salt and the link hash, so redemption needs neither a session nor the
// master key.
type PublicLinkService struct {
	links store.LinkRepository
	items store.ItemRepository

	chain   crypto.KeyChain
	checker *acl.Checker
	sink    audit.Sink
	holder  *keyHolder
	logger  *logger.Logger

	defaultTTL      time.Duration
	defaultMaxViews int64

	now func() time.Time
}

func NewPublicLinkService(links store.LinkRepository, items store.ItemRepository, chain crypto.KeyChain, checker *acl.Checker, sink audit.Sink, holder *keyHolder, log *logger.Logger, cfg Config) *PublicLinkService {
	return &PublicLinkService{
		links:           links,
		items:           items,
		chain:           chain,
		checker:         checker,
		sink:            sink,
		holder:          holder,
		logger:          log,
		defaultTTL:      cfg.DefaultLinkTTL,
		defaultMaxViews: cfg.DefaultMaxViews,
		now:             time.Now,
	}
}

// Create issues a public link for the item's current secret: the plaintext
// is opened under the master-derived key and immediately re-sealed under the
// link key, so the stored snapshot is independent of the vault key from that
// moment on.
func (s *PublicLinkService) Create(ctx context.Context, principal models.Principal, itemID int64, opts LinkOptions) (models.PublicLink, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return models.PublicLink{}, err
	}

	if item.Deleted {
		return models.PublicLink{}, ErrItemNotFound
	}

	if !s.checker.CheckAccess(ctx, principal, models.ActionLinkCreate, item.OwnerUserID) {
		return models.PublicLink{}, ErrUnauthorized
	}

	masterKey, err := s.holder.get()
	if err != nil {
		return models.PublicLink{}, err
	}

	secret, err := s.chain.Open(item.Payload, masterKey)
	if err != nil {
		return models.PublicLink{}, err
	}

	hash, err := s.chain.NewLinkHash()
	if err != nil {
		return models.PublicLink{}, fmt.Errorf("generate link hash: %w", err)
	}

	snapshot, err := s.sealSnapshot(secret, hash)
	if err != nil {
		return models.PublicLink{}, err
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	maxViews := opts.MaxViews
	if maxViews <= 0 {
		maxViews = s.defaultMaxViews
	}

	now := s.now().UTC()
	link := models.PublicLink{
		ItemID:         itemID,
		Hash:           hash,
		SealedSnapshot: snapshot,
		MaxViews:       maxViews,
		NotifyOnView:   opts.NotifyOnView,
		CreatedAt:      now,
		ExpireAt:       now.Add(ttl),
	}

	if err := s.links.Save(ctx, &link); err != nil {
		return models.PublicLink{}, err
	}

	logger.FromContext(ctx).Info().
		Str("func", "PublicLinkService.Create").
		Int64("link_id", link.ID).
		Int64("item_id", itemID).
		Time("expire_at", link.ExpireAt).
		Msg("public link created")

	return link, nil
}

// Redeem consumes one view of the link identified by hash and returns the
// decrypted snapshot. The view-count increment and the usability check are
// one atomic database operation: of two concurrent redemptions racing for a
// link's last view, exactly one succeeds.
func (s *PublicLinkService) Redeem(ctx context.Context, hash string) (RedeemedSecret, error) {
	link, err := s.links.Consume(ctx, hash, s.now().UTC())
	if err != nil {
		return RedeemedSecret{}, err
	}

	linkKey, err := s.chain.DeriveLinkKey(nil, link.Hash)
	if err != nil {
		return RedeemedSecret{}, fmt.Errorf("derive link key: %w", err)
	}

	plaintext, err := s.chain.Open(link.SealedSnapshot, linkKey)
	if err != nil {
		return RedeemedSecret{}, err
	}

	if link.NotifyOnView {
		s.sink.Record(models.AuditEvent{
			Action:  models.ActionLinkView,
			ItemID:  link.ItemID,
			Outcome: models.AuditLinkView,
			Detail:  fmt.Sprintf("view %d of %d", link.ViewCount, link.MaxViews),
		})
	}

	return RedeemedSecret{
		Plaintext: plaintext,
		ItemID:    link.ItemID,
		ViewsLeft: link.MaxViews - link.ViewCount,
	}, nil
}

// Refresh reseals the link's snapshot from the item's current secret and
// resets the view counter. Hash and expiry are preserved: the distributed
// URL stays valid.
func (s *PublicLinkService) Refresh(ctx context.Context, principal models.Principal, linkID int64) error {
	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return err
	}

	item, err := s.items.Get(ctx, link.ItemID)
	if err != nil {
		return err
	}

	if !s.checker.CheckAccess(ctx, principal, models.ActionLinkRefresh, item.OwnerUserID) {
		return ErrUnauthorized
	}

	masterKey, err := s.holder.get()
	if err != nil {
		return err
	}

	secret, err := s.chain.Open(item.Payload, masterKey)
	if err != nil {
		return err
	}

	snapshot, err := s.sealSnapshot(secret, link.Hash)
	if err != nil {
		return err
	}

	if err := s.links.UpdateSnapshot(ctx, linkID, snapshot, true); err != nil {
		return err
	}

	logger.FromContext(ctx).Info().
		Str("func", "PublicLinkService.Refresh").
		Int64("link_id", linkID).
		Msg("public link refreshed")

	return nil
}

func (s *PublicLinkService) sealSnapshot(secret []byte, hash string) ([]byte, error) {
	linkKey, err := s.chain.DeriveLinkKey(nil, hash)
	if err != nil {
		return nil, fmt.Errorf("derive link key: %w", err)
	}

	snapshot, err := s.chain.Seal(secret, linkKey)
	if err != nil {
		return nil, fmt.Errorf("seal link snapshot: %w", err)
	}

	return snapshot, nil
}
