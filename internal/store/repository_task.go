// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/credvault/credvault/internal/logger"
	"github.com/credvault/credvault/models"
)

// RotationTaskRepository persists rotation task progress so that status
// survives and can be polled after the rotation goroutine has finished.
type RotationTaskRepository struct {
	*DB
}

func NewRotationTaskRepository(db *DB) *RotationTaskRepository {
	return &RotationTaskRepository{DB: db}
}

func (r *RotationTaskRepository) Save(ctx context.Context, task models.RotationTask) error {
	log := logger.FromContext(ctx)

	failedIDs, err := encodeFailedIDs(task.FailedItemIDs)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	_, err = r.ExecContext(ctx, queryInsertTask,
		task.TaskID.String(), task.TotalItems, task.ProcessedItems,
		failedIDs, string(task.Status), task.StartedAt, task.FinishedAt)
	if err != nil {
		log.Error().Err(err).Str("func", "RotationTaskRepository.Save").Str("task_id", task.TaskID.String()).Msg("error inserting rotation task")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return nil
}

func (r *RotationTaskRepository) UpdateProgress(ctx context.Context, taskID uuid.UUID, processed int64) error {
	if _, err := r.ExecContext(ctx, queryUpdateTaskProgress, processed, taskID.String()); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return nil
}

func (r *RotationTaskRepository) Finish(ctx context.Context, taskID uuid.UUID, status models.RotationStatus, failedIDs []int64, finishedAt time.Time) error {
	log := logger.FromContext(ctx)

	encoded, err := encodeFailedIDs(failedIDs)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := r.ExecContext(ctx, queryFinishTask, string(status), encoded, finishedAt, taskID.String())
	if err != nil {
		log.Error().Err(err).Str("func", "RotationTaskRepository.Finish").Str("task_id", taskID.String()).Msg("error finishing rotation task")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	if affected == 0 {
		return ErrTaskNotFound
	}

	return nil
}

func (r *RotationTaskRepository) Get(ctx context.Context, taskID uuid.UUID) (models.RotationTask, error) {
	var task models.RotationTask
	var rawID, rawFailed, rawStatus string
	var finishedAt sql.NullTime

	row := r.QueryRowContext(ctx, querySelectTask, taskID.String())
	err := row.Scan(&rawID, &task.TotalItems, &task.ProcessedItems, &rawFailed, &rawStatus, &task.StartedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RotationTask{}, ErrTaskNotFound
		}

		return models.RotationTask{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	task.TaskID, err = uuid.Parse(rawID)
	if err != nil {
		return models.RotationTask{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	if task.FailedItemIDs, err = decodeFailedIDs(rawFailed); err != nil {
		return models.RotationTask{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	task.Status = models.RotationStatus(rawStatus)
	if finishedAt.Valid {
		task.FinishedAt = &finishedAt.Time
	}

	return task, nil
}

// Failed item ids are stored as a JSON array in a TEXT column.
func encodeFailedIDs(ids []int64) (string, error) {
	if len(ids) == 0 {
		return "[]", nil
	}

	raw, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}

	return string(raw), nil
}

func decodeFailedIDs(raw string) ([]int64, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}

	var ids []int64
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, err
	}

	return ids, nil
}
