package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credvault/credvault/models"
)

func TestRotationTaskRepository_SaveAndGet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRotationTaskRepository(db)

	taskID := uuid.New()
	started := time.Now().UTC()

	mock.ExpectExec("INSERT INTO rotation_tasks").
		WithArgs(taskID.String(), int64(10), int64(0), "[]", "running", started, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	task := models.RotationTask{
		TaskID:     taskID,
		TotalItems: 10,
		Status:     models.RotationRunning,
		StartedAt:  started,
	}
	require.NoError(t, repo.Save(context.Background(), task))

	finished := started.Add(time.Minute)
	mock.ExpectQuery("SELECT (.+) FROM rotation_tasks").
		WithArgs(taskID.String()).
		WillReturnRows(sqlmock.NewRows([]string{
			"task_id", "total_items", "processed_items", "failed_item_ids", "status", "started_at", "finished_at",
		}).AddRow(taskID.String(), int64(10), int64(10), "[3,7]", "partial_failure", started, finished))

	got, err := repo.Get(context.Background(), taskID)
	require.NoError(t, err)

	assert.Equal(t, taskID, got.TaskID)
	assert.Equal(t, models.RotationPartialFailure, got.Status)
	assert.Equal(t, []int64{3, 7}, got.FailedItemIDs)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, finished, *got.FinishedAt)
}

func TestRotationTaskRepository_Get_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRotationTaskRepository(db)

	taskID := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM rotation_tasks").
		WithArgs(taskID.String()).
		WillReturnRows(sqlmock.NewRows([]string{
			"task_id", "total_items", "processed_items", "failed_item_ids", "status", "started_at", "finished_at",
		}))

	_, err := repo.Get(context.Background(), taskID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRotationTaskRepository_Finish_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRotationTaskRepository(db)

	taskID := uuid.New()
	mock.ExpectExec("UPDATE rotation_tasks").
		WithArgs("complete", "[]", sqlmock.AnyArg(), taskID.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Finish(context.Background(), taskID, models.RotationComplete, nil, time.Now())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}
