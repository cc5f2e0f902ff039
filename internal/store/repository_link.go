// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/credvault/credvault/internal/logger"
	"github.com/credvault/credvault/models"
)

// PublicLinkRepository persists public links. Redemption is implemented as a
// single conditional UPDATE so that the bounds check and the counter
// increment are one atomic database operation.
type PublicLinkRepository struct {
	*DB
}

func NewPublicLinkRepository(db *DB) *PublicLinkRepository {
	return &PublicLinkRepository{DB: db}
}

func (r *PublicLinkRepository) Save(ctx context.Context, link *models.PublicLink) error {
	log := logger.FromContext(ctx)

	row := r.QueryRowContext(ctx, queryInsertLink,
		link.ItemID, link.Hash, link.SealedSnapshot, link.MaxViews,
		link.NotifyOnView, link.CreatedAt, link.ExpireAt)
	if err := row.Scan(&link.ID); err != nil {
		if isForeignKeyViolation(err) {
			return ErrItemNotFound
		}

		if isUniqueViolation(err) {
			// 256-bit random hashes do not collide in practice; a duplicate
			// means the caller reused one.
			return fmt.Errorf("%w: duplicate link hash", ErrExecutingQuery)
		}

		log.Error().Err(err).Str("func", "PublicLinkRepository.Save").Msg("error inserting public link")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	link.ViewCount = 0

	log.Debug().Str("func", "PublicLinkRepository.Save").Int64("link_id", link.ID).Int64("item_id", link.ItemID).Msg("public link saved")

	return nil
}

func (r *PublicLinkRepository) GetByID(ctx context.Context, id int64) (models.PublicLink, error) {
	link, err := scanLink(r.QueryRowContext(ctx, querySelectLinkByID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PublicLink{}, ErrLinkNotFound
		}

		return models.PublicLink{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return link, nil
}

// Consume redeems one view of the link with the given hash. The conditional
// UPDATE either lands (link usable, counter incremented, post-increment row
// returned) or touches nothing, in which case a follow-up read classifies
// the failure. Expiry wins over exhaustion when both apply.
func (r *PublicLinkRepository) Consume(ctx context.Context, hash string, now time.Time) (models.PublicLink, error) {
	log := logger.FromContext(ctx)

	link, err := scanLink(r.QueryRowContext(ctx, queryConsumeLink, hash, now))
	if err == nil {
		log.Debug().Str("func", "PublicLinkRepository.Consume").Int64("link_id", link.ID).Int64("view_count", link.ViewCount).Msg("public link consumed")
		return link, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		log.Error().Err(err).Str("func", "PublicLinkRepository.Consume").Msg("error consuming public link")
		return models.PublicLink{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	stale, err := scanLink(r.QueryRowContext(ctx, querySelectLinkByHash, hash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PublicLink{}, ErrLinkNotFound
		}

		return models.PublicLink{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	if !now.Before(stale.ExpireAt) {
		return models.PublicLink{}, ErrLinkExpired
	}

	return models.PublicLink{}, ErrLinkExhausted
}

func (r *PublicLinkRepository) UpdateSnapshot(ctx context.Context, id int64, snapshot []byte, resetViews bool) error {
	log := logger.FromContext(ctx)

	query := queryUpdateLinkSnapshot
	if resetViews {
		query = queryRefreshLinkSnapshot
	}

	res, err := r.ExecContext(ctx, query, snapshot, id)
	if err != nil {
		log.Error().Err(err).Str("func", "PublicLinkRepository.UpdateSnapshot").Int64("link_id", id).Msg("error updating link snapshot")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	if affected == 0 {
		return ErrLinkNotFound
	}

	return nil
}

func (r *PublicLinkRepository) DeleteByItem(ctx context.Context, itemID int64) error {
	log := logger.FromContext(ctx)

	if _, err := r.ExecContext(ctx, queryDeleteLinksByItem, itemID); err != nil {
		log.Error().Err(err).Str("func", "PublicLinkRepository.DeleteByItem").Int64("item_id", itemID).Msg("error deleting links for item")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return nil
}

func scanLink(row *sql.Row) (models.PublicLink, error) {
	var link models.PublicLink

	err := row.Scan(&link.ID, &link.ItemID, &link.Hash, &link.SealedSnapshot,
		&link.MaxViews, &link.ViewCount, &link.NotifyOnView,
		&link.CreatedAt, &link.ExpireAt)
	if err != nil {
		return models.PublicLink{}, err
	}

	return link, nil
}
