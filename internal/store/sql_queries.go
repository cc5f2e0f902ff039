// SPDX-License-Identifier: Apache-2.0

package store

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/credvault/credvault/models"
)

// All queries use $N placeholders and RETURNING clauses, both of which are
// understood by the pgx and the bundled sqlite3 drivers, so one query text
// serves both backends.

const itemColumns = "id, owner_user_id, name, client, tags, payload, version, view_count, decrypt_count, deleted, created_at, updated_at"

const (
	queryInsertItem = `INSERT INTO vault_items (owner_user_id, name, client, tags, payload, version, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, FALSE, $6, $6)
		RETURNING id`

	querySelectItem = `SELECT ` + itemColumns + ` FROM vault_items WHERE id = $1`

	querySelectItemBatch = `SELECT ` + itemColumns + ` FROM vault_items WHERE id > $1 ORDER BY id LIMIT $2`

	queryCountItems = `SELECT COUNT(*) FROM vault_items`

	queryItemVersion = `SELECT version, deleted FROM vault_items WHERE id = $1`

	queryInsertHistory = `INSERT INTO vault_item_history (item_id, payload, version, replaced_at)
		VALUES ($1, $2, $3, $4)`

	queryUpdateItemPayload = `UPDATE vault_items
		SET payload = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4 AND deleted = FALSE`

	queryUpdateItemMeta = `UPDATE vault_items
		SET name = $1, client = $2, tags = $3, version = version + 1, updated_at = $4
		WHERE id = $5 AND version = $6 AND deleted = FALSE`

	querySoftDeleteItem = `UPDATE vault_items
		SET deleted = TRUE, version = version + 1, updated_at = $1
		WHERE id = $2 AND version = $3 AND deleted = FALSE`

	queryIncrementViewCount = `UPDATE vault_items SET view_count = view_count + 1 WHERE id = $1`

	queryIncrementDecryptCount = `UPDATE vault_items SET decrypt_count = decrypt_count + 1 WHERE id = $1`

	querySelectHistoryByItem = `SELECT id, item_id, payload, version, replaced_at
		FROM vault_item_history WHERE item_id = $1 ORDER BY version`

	// Rotation rewrites ciphertext in place: the secret is unchanged, so the
	// optimistic-locking version is not bumped and no history row is added.
	queryRotateItemPayload = `UPDATE vault_items
		SET payload = $1, updated_at = $2
		WHERE id = $3 AND version = $4`

	queryRotateHistoryPayload = `UPDATE vault_item_history SET payload = $1 WHERE id = $2`
)

const linkColumns = "id, item_id, hash, sealed_snapshot, max_views, view_count, notify_on_view, created_at, expire_at"

const (
	queryInsertLink = `INSERT INTO public_links (item_id, hash, sealed_snapshot, max_views, view_count, notify_on_view, created_at, expire_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7)
		RETURNING id`

	querySelectLinkByID = `SELECT ` + linkColumns + ` FROM public_links WHERE id = $1`

	querySelectLinkByHash = `SELECT ` + linkColumns + ` FROM public_links WHERE hash = $1`

	// The WHERE clause is the whole redemption protocol: the increment only
	// lands when the link is unexpired and under its view bound, so
	// concurrent redemptions of a one-view link race for a single row
	// update and exactly one wins.
	queryConsumeLink = `UPDATE public_links
		SET view_count = view_count + 1
		WHERE hash = $1 AND view_count < max_views AND expire_at > $2
		RETURNING ` + linkColumns

	queryUpdateLinkSnapshot = `UPDATE public_links SET sealed_snapshot = $1 WHERE id = $2`

	queryRefreshLinkSnapshot = `UPDATE public_links SET sealed_snapshot = $1, view_count = 0 WHERE id = $2`

	queryDeleteLinksByItem = `DELETE FROM public_links WHERE item_id = $1`
)

const (
	queryInsertTask = `INSERT INTO rotation_tasks (task_id, total_items, processed_items, failed_item_ids, status, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	// processed_items never decreases, even if progress reports arrive out
	// of order.
	queryUpdateTaskProgress = `UPDATE rotation_tasks
		SET processed_items = $1
		WHERE task_id = $2 AND processed_items <= $1`

	queryFinishTask = `UPDATE rotation_tasks
		SET status = $1, failed_item_ids = $2, finished_at = $3
		WHERE task_id = $4`

	querySelectTask = `SELECT task_id, total_items, processed_items, failed_item_ids, status, started_at, finished_at
		FROM rotation_tasks WHERE task_id = $1`
)

const (
	queryUpsertMasterKey = `INSERT INTO master_key (id, salt, salted_hash, kdf_time, kdf_memory_kib, kdf_threads, kdf_key_len, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			salt = excluded.salt,
			salted_hash = excluded.salted_hash,
			kdf_time = excluded.kdf_time,
			kdf_memory_kib = excluded.kdf_memory_kib,
			kdf_threads = excluded.kdf_threads,
			kdf_key_len = excluded.kdf_key_len,
			updated_at = excluded.updated_at`

	querySelectMasterKey = `SELECT salt, salted_hash, kdf_time, kdf_memory_kib, kdf_threads, kdf_key_len, updated_at
		FROM master_key WHERE id = 1`
)

// buildListItemsQuery assembles the filtered listing query. The owner filter
// is always applied; the remaining filters are added only when set.
func buildListItemsQuery(filter models.ItemFilter) (string, []any, error) {
	builder := sq.Select(itemColumns).
		From("vault_items").
		Where(sq.Eq{"owner_user_id": filter.OwnerUserID}).
		OrderBy("id").
		PlaceholderFormat(sq.Dollar)

	if !filter.IncludeDeleted {
		builder = builder.Where(sq.Eq{"deleted": false})
	}

	if filter.Client != "" {
		builder = builder.Where(sq.Eq{"client": filter.Client})
	}

	if filter.NameLike != "" {
		builder = builder.Where(sq.Like{"name": "%" + filter.NameLike + "%"})
	}

	return builder.ToSql()
}
