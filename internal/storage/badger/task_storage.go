package badger

import (
	"context"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/prismintel/propertyflow/internal/models"
	"github.com/prismintel/propertyflow/internal/storage"
)

// TaskStorage implements storage.TaskStore on Badger. SaveTasks runs inside
// a single Badger transaction so the per-run persist stays all-or-nothing.
type TaskStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTaskStorage creates a TaskStorage instance.
func NewTaskStorage(db *BadgerDB, logger arbor.ILogger) *TaskStorage {
	return &TaskStorage{db: db, logger: logger}
}

func (s *TaskStorage) SaveTasks(ctx context.Context, runID string, items []models.TaskItem) error {
	err := s.db.Store().Badger().Update(func(tx *badgerdb.Txn) error {
		for i := range items {
			if err := s.db.Store().TxUpsert(tx, items[i].ID, &items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: failed to save %d tasks for run %s: %v", storage.ErrWrite, len(items), runID, err)
	}
	s.logger.Debug().Str("run_id", runID).Int("tasks", len(items)).Msg("Tasks persisted")
	return nil
}

func (s *TaskStorage) ListTasksByRun(ctx context.Context, runID string) ([]models.TaskItem, error) {
	var items []models.TaskItem
	if err := s.db.Store().Find(&items, badgerhold.Where("RunID").Eq(runID).SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("failed to list tasks for run %s: %w", runID, err)
	}
	return items, nil
}
