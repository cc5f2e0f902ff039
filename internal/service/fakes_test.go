package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/credvault/credvault/internal/store"
	"github.com/credvault/credvault/models"
)

// In-memory repository fakes with the same guard semantics as the SQL
// implementations: version checks, soft deletes, atomic link consumption.

type fakeItemRepo struct {
	mu      sync.Mutex
	seq     int64
	histSeq int64
	items   map[int64]*models.VaultItem
	history map[int64][]*models.VaultItemHistory

	failCounters bool
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{
		items:   make(map[int64]*models.VaultItem),
		history: make(map[int64][]*models.VaultItemHistory),
	}
}

func (f *fakeItemRepo) Save(_ context.Context, item *models.VaultItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	item.ID = f.seq
	item.Version = 1

	clone := *item
	f.items[item.ID] = &clone

	return nil
}

func (f *fakeItemRepo) Get(_ context.Context, id int64) (models.VaultItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[id]
	if !ok {
		return models.VaultItem{}, store.ErrItemNotFound
	}

	return *item, nil
}

func (f *fakeItemRepo) List(_ context.Context, filter models.ItemFilter) ([]models.VaultItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.VaultItem
	for _, item := range f.items {
		if item.OwnerUserID != filter.OwnerUserID {
			continue
		}
		if item.Deleted && !filter.IncludeDeleted {
			continue
		}
		out = append(out, *item)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (f *fakeItemRepo) ListBatch(_ context.Context, afterID int64, limit int) ([]models.VaultItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.VaultItem
	for _, item := range f.items {
		if item.ID > afterID {
			out = append(out, *item)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (f *fakeItemRepo) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return int64(len(f.items)), nil
}

func (f *fakeItemRepo) UpdatePayload(_ context.Context, id, expectedVersion int64, payload []byte, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[id]
	if !ok || item.Deleted {
		return store.ErrItemNotFound
	}

	if item.Version != expectedVersion {
		return store.ErrVersionConflict
	}

	f.appendHistory(item, now)

	item.Payload = append([]byte(nil), payload...)
	item.Version++
	item.UpdatedAt = now

	return nil
}

func (f *fakeItemRepo) UpdateMeta(_ context.Context, id, expectedVersion int64, name, client string, tags []string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[id]
	if !ok || item.Deleted {
		return store.ErrItemNotFound
	}

	if item.Version != expectedVersion {
		return store.ErrVersionConflict
	}

	item.Name = name
	item.Client = client
	item.Tags = tags
	item.Version++
	item.UpdatedAt = now

	return nil
}

func (f *fakeItemRepo) SoftDelete(_ context.Context, ref models.ItemRef, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.softDeleteLocked(ref, now)
}

func (f *fakeItemRepo) SoftDeleteBatch(_ context.Context, refs []models.ItemRef, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Check-then-apply to keep all-or-nothing semantics.
	for _, ref := range refs {
		item, ok := f.items[ref.ID]
		if !ok || item.Deleted {
			return store.ErrItemNotFound
		}
		if item.Version != ref.Version {
			return store.ErrVersionConflict
		}
	}

	for _, ref := range refs {
		if err := f.softDeleteLocked(ref, now); err != nil {
			return err
		}
	}

	return nil
}

func (f *fakeItemRepo) softDeleteLocked(ref models.ItemRef, now time.Time) error {
	item, ok := f.items[ref.ID]
	if !ok || item.Deleted {
		return store.ErrItemNotFound
	}

	if item.Version != ref.Version {
		return store.ErrVersionConflict
	}

	f.appendHistory(item, now)

	item.Deleted = true
	item.Version++
	item.UpdatedAt = now

	return nil
}

func (f *fakeItemRepo) appendHistory(item *models.VaultItem, now time.Time) {
	f.histSeq++
	f.history[item.ID] = append(f.history[item.ID], &models.VaultItemHistory{
		ID:         f.histSeq,
		ItemID:     item.ID,
		Payload:    append([]byte(nil), item.Payload...),
		Version:    item.Version,
		ReplacedAt: now,
	})
}

func (f *fakeItemRepo) IncrementViewCount(_ context.Context, id int64) error {
	if f.failCounters {
		return store.ErrExecutingQuery
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if item, ok := f.items[id]; ok {
		item.ViewCount++
	}

	return nil
}

func (f *fakeItemRepo) IncrementDecryptCount(_ context.Context, id int64) error {
	if f.failCounters {
		return store.ErrExecutingQuery
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if item, ok := f.items[id]; ok {
		item.DecryptCount++
	}

	return nil
}

func (f *fakeItemRepo) HistoryByItem(_ context.Context, itemID int64) ([]models.VaultItemHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.VaultItemHistory
	for _, h := range f.history[itemID] {
		out = append(out, *h)
	}

	return out, nil
}

func (f *fakeItemRepo) ApplyRotation(_ context.Context, id, expectedVersion int64, payload []byte, history []models.VaultItemHistory, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[id]
	if !ok {
		return store.ErrItemNotFound
	}

	if item.Version != expectedVersion {
		return store.ErrVersionConflict
	}

	item.Payload = append([]byte(nil), payload...)
	item.UpdatedAt = now

	for _, h := range history {
		for _, stored := range f.history[id] {
			if stored.ID == h.ID {
				stored.Payload = append([]byte(nil), h.Payload...)
			}
		}
	}

	return nil
}

type fakeLinkRepo struct {
	mu    sync.Mutex
	seq   int64
	links map[int64]*models.PublicLink
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{links: make(map[int64]*models.PublicLink)}
}

func (f *fakeLinkRepo) Save(_ context.Context, link *models.PublicLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	link.ID = f.seq
	link.ViewCount = 0

	clone := *link
	f.links[link.ID] = &clone

	return nil
}

func (f *fakeLinkRepo) GetByID(_ context.Context, id int64) (models.PublicLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	link, ok := f.links[id]
	if !ok {
		return models.PublicLink{}, store.ErrLinkNotFound
	}

	return *link, nil
}

func (f *fakeLinkRepo) Consume(_ context.Context, hash string, now time.Time) (models.PublicLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, link := range f.links {
		if link.Hash != hash {
			continue
		}

		if !now.Before(link.ExpireAt) {
			return models.PublicLink{}, store.ErrLinkExpired
		}

		if link.ViewCount >= link.MaxViews {
			return models.PublicLink{}, store.ErrLinkExhausted
		}

		link.ViewCount++

		return *link, nil
	}

	return models.PublicLink{}, store.ErrLinkNotFound
}

func (f *fakeLinkRepo) UpdateSnapshot(_ context.Context, id int64, snapshot []byte, resetViews bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	link, ok := f.links[id]
	if !ok {
		return store.ErrLinkNotFound
	}

	link.SealedSnapshot = append([]byte(nil), snapshot...)
	if resetViews {
		link.ViewCount = 0
	}

	return nil
}

func (f *fakeLinkRepo) DeleteByItem(_ context.Context, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, link := range f.links {
		if link.ItemID == itemID {
			delete(f.links, id)
		}
	}

	return nil
}

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*models.RotationTask
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[uuid.UUID]*models.RotationTask)}
}

func (f *fakeTaskRepo) Save(_ context.Context, task models.RotationTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	clone := task
	f.tasks[task.TaskID] = &clone

	return nil
}

func (f *fakeTaskRepo) UpdateProgress(_ context.Context, taskID uuid.UUID, processed int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	task, ok := f.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}

	if processed > task.ProcessedItems {
		task.ProcessedItems = processed
	}

	return nil
}

func (f *fakeTaskRepo) Finish(_ context.Context, taskID uuid.UUID, status models.RotationStatus, failedIDs []int64, finishedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	task, ok := f.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}

	task.Status = status
	task.FailedItemIDs = failedIDs
	task.FinishedAt = &finishedAt

	return nil
}

func (f *fakeTaskRepo) Get(_ context.Context, taskID uuid.UUID) (models.RotationTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	task, ok := f.tasks[taskID]
	if !ok {
		return models.RotationTask{}, store.ErrTaskNotFound
	}

	return *task, nil
}

type fakeKeyRepo struct {
	mu       sync.Mutex
	material *models.MasterKeyMaterial
}

func (f *fakeKeyRepo) Get(_ context.Context) (models.MasterKeyMaterial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.material == nil {
		return models.MasterKeyMaterial{}, store.ErrMasterKeyNotFound
	}

	return *f.material, nil
}

func (f *fakeKeyRepo) Save(_ context.Context, material models.MasterKeyMaterial) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.material = &material

	return nil
}
