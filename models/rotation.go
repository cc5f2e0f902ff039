package models

import (
	"time"

	"github.com/google/uuid"
)

// RotationStatus is the lifecycle state of a master-password rotation task.
type RotationStatus string

const (
	RotationRunning RotationStatus = "running"

	// RotationComplete means every item (and its history) was re-sealed
	// under the new key with zero failures.
	RotationComplete RotationStatus = "complete"

	// RotationPartialFailure means the rotation finished but one or more
	// items could not be re-sealed; FailedItemIDs lists them. A partial
	// failure is never reported as success.
	RotationPartialFailure RotationStatus = "partial_failure"
)

// RotationTask tracks the progress of one master-password rotation.
// ProcessedItems is monotonically non-decreasing.
type RotationTask struct {
	TaskID         uuid.UUID
	TotalItems     int64
	ProcessedItems int64
	FailedItemIDs  []int64
	Status         RotationStatus
	StartedAt      time.Time
	FinishedAt     *time.Time
}

// RotationProgress is one progress notification published by the rotation
// worker after each batch.
type RotationProgress struct {
	TaskID         uuid.UUID
	ProcessedItems int64
	TotalItems     int64
}
