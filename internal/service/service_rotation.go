// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/credvault/credvault/internal/acl"
	"github.com/credvault/credvault/internal/crypto"
	"github.com/credvault/credvault/internal/logger"
	"github.com/credvault/credvault/internal/store"
	"github.com/credvault/credvault/models"
)

// RotationService re-seals every vault item (and its history snapshots)
// under a new master password. While a rotation runs the maintenance gate
// rejects all vault writes; reads stay available because the old ciphertext
// remains valid until its item is rewritten and the in-memory key is only
// swapped at the end.
//
// Rotation does not honour cancellation: once started it runs to a terminal
// status, because stopping halfway would leave the vault split across two
// keys with no record of the boundary.
type RotationService struct {
	items store.ItemRepository
	tasks store.TaskRepository
	keys  store.KeyRepository

	chain   crypto.KeyChain
	checker *acl.Checker
	holder  *keyHolder
	gate    *MaintenanceGate
	logger  *logger.Logger

	batchSize    int
	parallelism  int
	progressSize int

	now func() time.Time
}

func NewRotationService(items store.ItemRepository, tasks store.TaskRepository, keys store.KeyRepository, chain crypto.KeyChain, checker *acl.Checker, holder *keyHolder, gate *MaintenanceGate, log *logger.Logger, cfg Config) *RotationService {
	return &RotationService{
		items:        items,
		tasks:        tasks,
		keys:         keys,
		chain:        chain,
		checker:      checker,
		holder:       holder,
		gate:         gate,
		logger:       log,
		batchSize:    cfg.RotationBatchSize,
		parallelism:  cfg.RotationParallelism,
		progressSize: cfg.ProgressQueueSize,
		now:          time.Now,
	}
}

// Start verifies both passwords, takes the maintenance gate and launches the
// rotation worker. It returns immediately with the task id and a bounded
// progress channel; the channel is closed when the task reaches a terminal
// status. Poll returns the persisted state at any time.
func (s *RotationService) Start(ctx context.Context, principal models.Principal, oldPassword, newPassword string) (uuid.UUID, <-chan models.RotationProgress, error) {
	log := logger.FromContext(ctx)

	if !s.checker.CheckAccess(ctx, principal, models.ActionRotationStart, 0) {
		return uuid.Nil, nil, ErrUnauthorized
	}

	material, err := s.keys.Get(ctx)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("load master key material: %w", err)
	}

	oldKey, err := s.chain.DeriveKey(oldPassword, material)
	if err != nil {
		return uuid.Nil, nil, err
	}

	newMaterial, newKey, err := s.chain.NewMasterKeyMaterial(newPassword)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("generate master key material: %w", err)
	}

	if err := s.gate.Begin(); err != nil {
		return uuid.Nil, nil, err
	}

	total, err := s.items.Count(ctx)
	if err != nil {
		s.gate.End()
		return uuid.Nil, nil, err
	}

	task := models.RotationTask{
		TaskID:     uuid.New(),
		TotalItems: total,
		Status:     models.RotationRunning,
		StartedAt:  s.now().UTC(),
	}

	if err := s.tasks.Save(ctx, task); err != nil {
		s.gate.End()
		return uuid.Nil, nil, err
	}

	log.Info().
		Str("func", "RotationService.Start").
		Str("task_id", task.TaskID.String()).
		Int64("total_items", total).
		Msg("master password rotation started")

	progress := make(chan models.RotationProgress, s.progressSize)

	// The worker outlives the request; severing cancellation keeps a
	// half-rotated vault from ever being left behind.
	go s.run(context.WithoutCancel(ctx), task, oldKey, newKey, newMaterial, progress)

	return task.TaskID, progress, nil
}

// Poll returns the persisted state of a rotation task.
func (s *RotationService) Poll(ctx context.Context, taskID uuid.UUID) (models.RotationTask, error) {
	return s.tasks.Get(ctx, taskID)
}

func (s *RotationService) run(ctx context.Context, task models.RotationTask, oldKey, newKey []byte, newMaterial models.MasterKeyMaterial, progress chan<- models.RotationProgress) {
	defer close(progress)
	defer s.gate.End()

	log := s.logger.With().Str("task_id", task.TaskID.String()).Logger()
	ctx = log.WithContext(ctx)

	var processed int64
	var failedMu sync.Mutex
	var failedIDs []int64

	afterID := int64(0)

	for {
		batch, err := s.items.ListBatch(ctx, afterID, s.batchSize)
		if err != nil {
			log.Error().Err(err).Str("func", "RotationService.run").Msg("failed to list item batch, aborting rotation")
			s.finish(ctx, task, models.RotationPartialFailure, failedIDs, newMaterial, newKey)
			return
		}

		if len(batch) == 0 {
			break
		}

		g := errgroup.Group{}
		g.SetLimit(s.parallelism)

		for _, item := range batch {
			item := item
			g.Go(func() error {
				if err := s.resealItem(ctx, item, oldKey, newKey); err != nil {
					log.Warn().Err(err).Str("func", "RotationService.run").Int64("item_id", item.ID).Msg("item could not be re-sealed")

					failedMu.Lock()
					failedIDs = append(failedIDs, item.ID)
					failedMu.Unlock()
				}

				return nil
			})
		}

		_ = g.Wait() // workers never return errors, failures are collected

		processed += int64(len(batch))
		afterID = batch[len(batch)-1].ID

		if err := s.tasks.UpdateProgress(ctx, task.TaskID, processed); err != nil {
			log.Warn().Err(err).Str("func", "RotationService.run").Msg("failed to persist rotation progress")
		}

		select {
		case progress <- models.RotationProgress{TaskID: task.TaskID, ProcessedItems: processed, TotalItems: task.TotalItems}:
		default:
		}
	}

	status := models.RotationComplete
	if len(failedIDs) > 0 {
		status = models.RotationPartialFailure
	}

	s.finish(ctx, task, status, failedIDs, newMaterial, newKey)
}

// resealItem opens the item's payload and every history snapshot under
// oldKey, re-seals them under newKey and writes all of them back in one
// transaction.
func (s *RotationService) resealItem(ctx context.Context, item models.VaultItem, oldKey, newKey []byte) error {
	plaintext, err := s.chain.Open(item.Payload, oldKey)
	if err != nil {
		return fmt.Errorf("open payload: %w", err)
	}

	payload, err := s.chain.Seal(plaintext, newKey)
	if err != nil {
		return fmt.Errorf("seal payload: %w", err)
	}

	history, err := s.items.HistoryByItem(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	for i := range history {
		snapshot, err := s.chain.Open(history[i].Payload, oldKey)
		if err != nil {
			return fmt.Errorf("open history %d: %w", history[i].ID, err)
		}

		if history[i].Payload, err = s.chain.Seal(snapshot, newKey); err != nil {
			return fmt.Errorf("seal history %d: %w", history[i].ID, err)
		}
	}

	return s.items.ApplyRotation(ctx, item.ID, item.Version, payload, history, s.now().UTC())
}

// finish commits the new master material, swaps the in-memory key and
// records the terminal task status. The new material is stored even on
// partial failure: every successfully rewritten item is already under the
// new key, and the failed ids are the repair list.
func (s *RotationService) finish(ctx context.Context, task models.RotationTask, status models.RotationStatus, failedIDs []int64, newMaterial models.MasterKeyMaterial, newKey []byte) {
	log := s.logger.With().Str("task_id", task.TaskID.String()).Logger()

	newMaterial.UpdatedAt = s.now().UTC()

	if err := s.keys.Save(ctx, newMaterial); err != nil {
		log.Error().Err(err).Str("func", "RotationService.finish").Msg("failed to store new master key material")
		status = models.RotationPartialFailure
	} else {
		s.holder.replace(newKey)
	}

	if err := s.tasks.Finish(ctx, task.TaskID, status, failedIDs, s.now().UTC()); err != nil {
		log.Error().Err(err).Str("func", "RotationService.finish").Msg("failed to record rotation result")
	}

	log.Info().
		Str("func", "RotationService.finish").
		Str("status", string(status)).
		Int("failed_items", len(failedIDs)).
		Msg("master password rotation finished")
}
