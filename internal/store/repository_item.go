// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/credvault/credvault/internal/logger"
	"github.com/credvault/credvault/models"
)

// VaultItemRepository persists encrypted vault items and their history
// snapshots using optimistic locking on the version column.
type VaultItemRepository struct {
	*DB
}

func NewVaultItemRepository(db *DB) *VaultItemRepository {
	return &VaultItemRepository{DB: db}
}

func (r *VaultItemRepository) Save(ctx context.Context, item *models.VaultItem) error {
	log := logger.FromContext(ctx)

	tags, err := encodeTags(item.Tags)
	if err != nil {
		log.Error().Err(err).Str("func", "VaultItemRepository.Save").Msg("error encoding tags")
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	now := time.Now().UTC()

	row := r.QueryRowContext(ctx, queryInsertItem,
		item.OwnerUserID, item.Name, item.Client, tags, item.Payload, now)
	if err := row.Scan(&item.ID); err != nil {
		log.Error().Err(err).Str("func", "VaultItemRepository.Save").Msg("error inserting vault item")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	item.Version = 1
	item.CreatedAt = now
	item.UpdatedAt = now

	log.Debug().Str("func", "VaultItemRepository.Save").Int64("item_id", item.ID).Msg("vault item saved")

	return nil
}

func (r *VaultItemRepository) Get(ctx context.Context, id int64) (models.VaultItem, error) {
	log := logger.FromContext(ctx)

	item, err := scanItem(r.QueryRowContext(ctx, querySelectItem, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.VaultItem{}, ErrItemNotFound
		}

		log.Error().Err(err).Str("func", "VaultItemRepository.Get").Int64("item_id", id).Msg("error selecting vault item")
		return models.VaultItem{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return item, nil
}

func (r *VaultItemRepository) List(ctx context.Context, filter models.ItemFilter) ([]models.VaultItem, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildListItemsQuery(filter)
	if err != nil {
		log.Error().Err(err).Str("func", "VaultItemRepository.List").Msg("error building list query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error().Err(err).Str("func", "VaultItemRepository.List").Msg("error listing vault items")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	return collectItems(rows)
}

func (r *VaultItemRepository) ListBatch(ctx context.Context, afterID int64, limit int) ([]models.VaultItem, error) {
	log := logger.FromContext(ctx)

	rows, err := r.QueryContext(ctx, querySelectItemBatch, afterID, limit)
	if err != nil {
		log.Error().Err(err).Str("func", "VaultItemRepository.ListBatch").Msg("error listing vault item batch")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	return collectItems(rows)
}

func (r *VaultItemRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.QueryRowContext(ctx, queryCountItems).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return count, nil
}

// UpdatePayload replaces an item's sealed payload inside one transaction:
// the superseded payload is snapshotted into history first, then the update
// lands only if the version column still matches expectedVersion.
func (r *VaultItemRepository) UpdatePayload(ctx context.Context, id, expectedVersion int64, payload []byte, now time.Time) error {
	log := logger.FromContext(ctx)

	tx, err := r.BeginTx(ctx, nil)
	if err != nil {
		log.Error().Err(err).Str("func", "VaultItemRepository.UpdatePayload").Msg("error beginning transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := r.updatePayloadInTx(ctx, tx, id, expectedVersion, payload, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error().Err(err).Str("func", "VaultItemRepository.UpdatePayload").Msg("error committing transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	log.Debug().Str("func", "VaultItemRepository.UpdatePayload").Int64("item_id", id).Msg("vault item payload updated")

	return nil
}

// UpdateMeta replaces an item's non-secret metadata with the same optimistic
// locking as payload writes. The payload is untouched, so no history row.
func (r *VaultItemRepository) UpdateMeta(ctx context.Context, id, expectedVersion int64, name, client string, tags []string, now time.Time) error {
	log := logger.FromContext(ctx)

	encoded, err := encodeTags(tags)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	tx, err := r.BeginTx(ctx, nil)
	if err != nil {
		log.Error().Err(err).Str("func", "VaultItemRepository.UpdateMeta").Msg("error beginning transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, queryUpdateItemMeta, name, client, encoded, now, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	if affected == 0 {
		if err := classifyMissingItem(ctx, tx, id, expectedVersion); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error().Err(err).Str("func", "VaultItemRepository.UpdateMeta").Msg("error committing transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return nil
}

func (r *VaultItemRepository) SoftDelete(ctx context.Context, ref models.ItemRef, now time.Time) error {
	log := logger.FromContext(ctx)

	tx, err := r.BeginTx(ctx, nil)
	if err != nil {
		log.Error().Err(err).Str("func", "VaultItemRepository.SoftDelete").Msg("error beginning transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := r.softDeleteInTx(ctx, tx, ref, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error().Err(err).Str("func", "VaultItemRepository.SoftDelete").Msg("error committing transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return nil
}

// SoftDeleteBatch deletes all referenced items or none: the first conflict or
// missing item rolls the whole transaction back.
func (r *VaultItemRepository) SoftDeleteBatch(ctx context.Context, refs []models.ItemRef, now time.Time) error {
	log := logger.FromContext(ctx)

	tx, err := r.BeginTx(ctx, nil)
	if err != nil {
		log.Error().Err(err).Str("func", "VaultItemRepository.SoftDeleteBatch").Msg("error beginning transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, ref := range refs {
		if err := r.softDeleteInTx(ctx, tx, ref, now); err != nil {
			return fmt.Errorf("item %d: %w", ref.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error().Err(err).Str("func", "VaultItemRepository.SoftDeleteBatch").Msg("error committing transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	log.Debug().Str("func", "VaultItemRepository.SoftDeleteBatch").Int("count", len(refs)).Msg("vault items soft deleted")

	return nil
}

func (r *VaultItemRepository) softDeleteInTx(ctx context.Context, tx *sql.Tx, ref models.ItemRef, now time.Time) error {
	var payload []byte
	var version int64
	var deleted bool

	row := tx.QueryRowContext(ctx, `SELECT payload, version, deleted FROM vault_items WHERE id = $1`, ref.ID)
	if err := row.Scan(&payload, &version, &deleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrItemNotFound
		}
		return fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	if deleted {
		return ErrItemNotFound
	}

	if version != ref.Version {
		return ErrVersionConflict
	}

	if _, err := tx.ExecContext(ctx, queryInsertHistory, ref.ID, payload, version, now); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	res, err := tx.ExecContext(ctx, querySoftDeleteItem, now, ref.ID, ref.Version)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	if affected == 0 {
		return ErrVersionConflict
	}

	return nil
}

// updatePayloadInTx is the transactional core of a version-guarded payload
// write: read current payload, classify missing/stale, write the history
// snapshot, then apply the guarded update.
func (r *VaultItemRepository) updatePayloadInTx(ctx context.Context, tx *sql.Tx, id, expectedVersion int64, payload []byte, now time.Time) error {
	var prevPayload []byte
	var version int64
	var deleted bool

	row := tx.QueryRowContext(ctx, `SELECT payload, version, deleted FROM vault_items WHERE id = $1`, id)
	if err := row.Scan(&prevPayload, &version, &deleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrItemNotFound
		}
		return fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	if deleted {
		return ErrItemNotFound
	}

	if version != expectedVersion {
		return ErrVersionConflict
	}

	if _, err := tx.ExecContext(ctx, queryInsertHistory, id, prevPayload, version, now); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	res, err := tx.ExecContext(ctx, queryUpdateItemPayload, payload, now, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	if affected == 0 {
		return ErrVersionConflict
	}

	return nil
}

func (r *VaultItemRepository) IncrementViewCount(ctx context.Context, id int64) error {
	if _, err := r.ExecContext(ctx, queryIncrementViewCount, id); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return nil
}

func (r *VaultItemRepository) IncrementDecryptCount(ctx context.Context, id int64) error {
	if _, err := r.ExecContext(ctx, queryIncrementDecryptCount, id); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return nil
}

func (r *VaultItemRepository) HistoryByItem(ctx context.Context, itemID int64) ([]models.VaultItemHistory, error) {
	log := logger.FromContext(ctx)

	rows, err := r.QueryContext(ctx, querySelectHistoryByItem, itemID)
	if err != nil {
		log.Error().Err(err).Str("func", "VaultItemRepository.HistoryByItem").Int64("item_id", itemID).Msg("error selecting item history")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var history []models.VaultItemHistory
	for rows.Next() {
		var h models.VaultItemHistory
		if err := rows.Scan(&h.ID, &h.ItemID, &h.Payload, &h.Version, &h.ReplacedAt); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		history = append(history, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return history, nil
}

// ApplyRotation rewrites an item's ciphertext and that of all its history
// snapshots in one transaction. The version guard detects writes that slipped
// in between the rotation read and this write; the caller holds the
// maintenance gate so a conflict here indicates a bug, not a race to retry.
func (r *VaultItemRepository) ApplyRotation(ctx context.Context, id, expectedVersion int64, payload []byte, history []models.VaultItemHistory, now time.Time) error {
	log := logger.FromContext(ctx)

	tx, err := r.BeginTx(ctx, nil)
	if err != nil {
		log.Error().Err(err).Str("func", "VaultItemRepository.ApplyRotation").Msg("error beginning transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, queryRotateItemPayload, payload, now, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	if affected == 0 {
		if err := classifyMissingItem(ctx, tx, id, expectedVersion); err != nil {
			return err
		}
	}

	for _, h := range history {
		if _, err := tx.ExecContext(ctx, queryRotateHistoryPayload, h.Payload, h.ID); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error().Err(err).Str("func", "VaultItemRepository.ApplyRotation").Msg("error committing transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return nil
}

// classifyMissingItem distinguishes a vanished row from a stale version after
// a guarded UPDATE touched zero rows.
func classifyMissingItem(ctx context.Context, tx *sql.Tx, id, expectedVersion int64) error {
	var version int64
	var deleted bool

	err := tx.QueryRowContext(ctx, queryItemVersion, id).Scan(&version, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrItemNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	if version != expectedVersion {
		return ErrVersionConflict
	}

	return ErrItemNotFound
}

func scanItem(row *sql.Row) (models.VaultItem, error) {
	var item models.VaultItem
	var tags string

	err := row.Scan(&item.ID, &item.OwnerUserID, &item.Name, &item.Client, &tags,
		&item.Payload, &item.Version, &item.ViewCount, &item.DecryptCount,
		&item.Deleted, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return models.VaultItem{}, err
	}

	item.Tags, err = decodeTags(tags)
	if err != nil {
		return models.VaultItem{}, err
	}

	return item, nil
}

func collectItems(rows *sql.Rows) ([]models.VaultItem, error) {
	var items []models.VaultItem

	for rows.Next() {
		var item models.VaultItem
		var tags string

		err := rows.Scan(&item.ID, &item.OwnerUserID, &item.Name, &item.Client, &tags,
			&item.Payload, &item.Version, &item.ViewCount, &item.DecryptCount,
			&item.Deleted, &item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}

		if item.Tags, err = decodeTags(tags); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return items, nil
}

// Tags are stored as a JSON array in a TEXT column, the lowest common
// denominator between the two backends.
func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}

	raw, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}

	return string(raw), nil
}

func decodeTags(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}

	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, err
	}

	return tags, nil
}
