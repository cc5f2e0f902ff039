package store

import (
	"context"
	"time"

	"github.com/credvault/credvault/models"
	"github.com/google/uuid"
)

// ItemRepository persists vault items, their optimistic-locking versions,
// history snapshots and best-effort telemetry counters.
type ItemRepository interface {
	// Save inserts item and writes the generated id back into item.ID.
	Save(ctx context.Context, item *models.VaultItem) error

	// Get returns the item with the given id, including soft-deleted ones.
	Get(ctx context.Context, id int64) (models.VaultItem, error)

	// List returns items matching filter, never soft-deleted ones unless
	// filter.IncludeDeleted is set.
	List(ctx context.Context, filter models.ItemFilter) ([]models.VaultItem, error)

	// ListBatch returns up to limit items with id > afterID ordered by id,
	// including soft-deleted ones. Used by rotation for keyset pagination.
	ListBatch(ctx context.Context, afterID int64, limit int) ([]models.VaultItem, error)

	// Count returns the total number of items, including soft-deleted ones.
	Count(ctx context.Context) (int64, error)

	// UpdatePayload replaces the sealed payload of an item whose current
	// version equals expectedVersion, snapshotting the previous payload
	// into history within the same transaction. Returns [ErrItemNotFound]
	// or [ErrVersionConflict].
	UpdatePayload(ctx context.Context, id, expectedVersion int64, payload []byte, now time.Time) error

	// UpdateMeta replaces the non-secret metadata of an item. Version-guarded
	// like UpdatePayload, but no history snapshot is written: the sealed
	// payload is untouched.
	UpdateMeta(ctx context.Context, id, expectedVersion int64, name, client string, tags []string, now time.Time) error

	// SoftDelete marks the referenced item deleted, snapshotting its
	// payload into history. Version-guarded like UpdatePayload.
	SoftDelete(ctx context.Context, ref models.ItemRef, now time.Time) error

	// SoftDeleteBatch soft-deletes all referenced items inside one
	// transaction; any failure rolls the whole batch back.
	SoftDeleteBatch(ctx context.Context, refs []models.ItemRef, now time.Time) error

	// IncrementViewCount and IncrementDecryptCount bump the monotonic
	// telemetry counters. Best-effort: callers log failures and move on.
	IncrementViewCount(ctx context.Context, id int64) error
	IncrementDecryptCount(ctx context.Context, id int64) error

	// HistoryByItem returns all history snapshots of one item.
	HistoryByItem(ctx context.Context, itemID int64) ([]models.VaultItemHistory, error)

	// ApplyRotation atomically replaces the sealed payload of an item and
	// all of its history snapshots with re-sealed values. No new history
	// row is written: rotation changes the key, not the secret.
	ApplyRotation(ctx context.Context, id, expectedVersion int64, payload []byte, history []models.VaultItemHistory, now time.Time) error
}

// LinkRepository persists public links and implements the atomic
// bounds-check-and-increment their redemption requires.
type LinkRepository interface {
	// Save inserts link and writes the generated id back into link.ID.
	Save(ctx context.Context, link *models.PublicLink) error

	// GetByID returns the link with the given id.
	GetByID(ctx context.Context, id int64) (models.PublicLink, error)

	// Consume atomically increments the view counter of the link with the
	// given hash iff it is still usable at now, returning the post-
	// increment link. A single conditional UPDATE guards the bounds, so
	// concurrent redemptions can never exceed MaxViews. Failures:
	// [ErrLinkNotFound], [ErrLinkExpired], [ErrLinkExhausted] — terminal
	// outcomes cause no state change.
	Consume(ctx context.Context, hash string, now time.Time) (models.PublicLink, error)

	// UpdateSnapshot replaces the sealed snapshot and optionally resets the
	// view counter (link refresh).
	UpdateSnapshot(ctx context.Context, id int64, snapshot []byte, resetViews bool) error

	// DeleteByItem removes every link pointing at the given item.
	DeleteByItem(ctx context.Context, itemID int64) error
}

// TaskRepository persists rotation task progress.
type TaskRepository interface {
	Save(ctx context.Context, task models.RotationTask) error

	// UpdateProgress sets processed_items, guarded so the stored value
	// never decreases.
	UpdateProgress(ctx context.Context, taskID uuid.UUID, processed int64) error

	// Finish records the terminal status and failed ids of a task.
	Finish(ctx context.Context, taskID uuid.UUID, status models.RotationStatus, failedIDs []int64, finishedAt time.Time) error

	Get(ctx context.Context, taskID uuid.UUID) (models.RotationTask, error)
}

// KeyRepository persists the single master key verification material row.
type KeyRepository interface {
	// Get returns the installation's material, or [ErrMasterKeyNotFound].
	Get(ctx context.Context) (models.MasterKeyMaterial, error)

	// Save upserts the material. Called at installation and on rotation
	// completion.
	Save(ctx context.Context, material models.MasterKeyMaterial) error
}
