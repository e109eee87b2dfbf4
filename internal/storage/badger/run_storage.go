package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/prismintel/propertyflow/internal/models"
	"github.com/prismintel/propertyflow/internal/storage"
)

// RunStorage implements storage.RunStore on Badger.
type RunStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRunStorage creates a RunStorage instance.
func NewRunStorage(db *BadgerDB, logger arbor.ILogger) *RunStorage {
	return &RunStorage{db: db, logger: logger}
}

func (s *RunStorage) SaveRun(ctx context.Context, run *models.PipelineRun) error {
	if run.RunID == "" {
		return fmt.Errorf("%w: run ID is required", storage.ErrWrite)
	}
	if err := s.db.Store().Upsert(run.RunID, run); err != nil {
		return fmt.Errorf("%w: failed to save run %s: %v", storage.ErrWrite, run.RunID, err)
	}
	return nil
}

func (s *RunStorage) GetRun(ctx context.Context, runID string) (*models.PipelineRun, error) {
	var run models.PipelineRun
	if err := s.db.Store().Get(runID, &run); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return &run, nil
}

func (s *RunStorage) FindArchivedByHash(ctx context.Context, hash string) (*models.PipelineRun, error) {
	var runs []models.PipelineRun
	query := badgerhold.Where("FileHash").Eq(hash).And("State").Eq(models.StateArchived).Limit(1)
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to query runs by hash: %w", err)
	}
	if len(runs) == 0 {
		return nil, storage.ErrNotFound
	}
	return &runs[0], nil
}
