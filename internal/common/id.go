package common

import (
	"github.com/google/uuid"
)

// NewRunID generates a unique pipeline run ID with the "run_" prefix.
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// NewTaskID generates a unique task ID with the "task_" prefix.
func NewTaskID() string {
	return "task_" + uuid.New().String()
}

// NewFindingID generates a unique finding ID with the "fnd_" prefix.
func NewFindingID() string {
	return "fnd_" + uuid.New().String()
}
