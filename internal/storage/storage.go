package storage

import (
	"context"
	"errors"

	"github.com/prismintel/propertyflow/internal/models"
)

// ErrWrite marks a failed persistence write. Retryable: persistence is
// idempotent per run, so the coordinator may safely re-drive the stage.
var ErrWrite = errors.New("storage write failed")

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// DocumentStore abstracts the intake/processed/quarantine locations.
// Only the lifecycle coordinator mutates them.
type DocumentStore interface {
	// List returns the source IDs currently waiting in the intake location.
	List(ctx context.Context) ([]string, error)

	// Read loads an intake document by source ID.
	Read(ctx context.Context, sourceID string) (*models.RawDocument, error)

	// MoveToProcessed archives a successfully processed source file.
	MoveToProcessed(ctx context.Context, sourceID string) error

	// MoveToQuarantine moves a permanently failed source file aside with
	// the last error attached for manual inspection. Never deletes.
	MoveToQuarantine(ctx context.Context, sourceID, reason string) error
}

// RunStore persists pipeline run records.
type RunStore interface {
	SaveRun(ctx context.Context, run *models.PipelineRun) error
	GetRun(ctx context.Context, runID string) (*models.PipelineRun, error)

	// FindArchivedByHash returns the archived run for a content hash, or
	// ErrNotFound. Used to skip reprocessing identical files.
	FindArchivedByHash(ctx context.Context, hash string) (*models.PipelineRun, error)
}

// TaskStore persists generated tasks. SaveTasks is atomic per run: all
// tasks for a run persist together or none do.
type TaskStore interface {
	SaveTasks(ctx context.Context, runID string, items []models.TaskItem) error
	ListTasksByRun(ctx context.Context, runID string) ([]models.TaskItem, error)
}
