package storage

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"
	"google.golang.org/api/iterator"

	"github.com/prismintel/propertyflow/internal/common"
	"github.com/prismintel/propertyflow/internal/models"
)

// FirestoreStore persists runs and tasks in Firestore for the cloud
// deployment mode. Tasks for one run are committed in a single batch so the
// per-run write stays atomic.
type FirestoreStore struct {
	client    *firestore.Client
	runsColl  string
	tasksColl string
	logger    arbor.ILogger
}

// NewFirestoreStore creates and returns a Firestore-backed record store.
func NewFirestoreStore(ctx context.Context, cfg *common.FirestoreConfig, logger arbor.ILogger) (*FirestoreStore, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return &FirestoreStore{
		client:    client,
		runsColl:  cfg.RunsCollection,
		tasksColl: cfg.TasksCollection,
		logger:    logger,
	}, nil
}

func (s *FirestoreStore) SaveRun(ctx context.Context, run *models.PipelineRun) error {
	if _, err := s.client.Collection(s.runsColl).Doc(run.RunID).Set(ctx, run); err != nil {
		return fmt.Errorf("%w: failed to save run %s: %v", ErrWrite, run.RunID, err)
	}
	return nil
}

func (s *FirestoreStore) GetRun(ctx context.Context, runID string) (*models.PipelineRun, error) {
	snap, err := s.client.Collection(s.runsColl).Doc(runID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	var run models.PipelineRun
	if err := snap.DataTo(&run); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", runID, err)
	}
	return &run, nil
}

func (s *FirestoreStore) FindArchivedByHash(ctx context.Context, hash string) (*models.PipelineRun, error) {
	docs, err := s.client.Collection(s.runsColl).
		Where("fileHash", "==", hash).
		Where("state", "==", string(models.StateArchived)).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query runs by hash: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	var run models.PipelineRun
	if err := docs[0].DataTo(&run); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}
	return &run, nil
}

// taskDoc is the Firestore representation of a TaskItem. Money travels as a
// string: Firestore cannot encode decimal.Decimal and floats would lose the
// exactness the value aggregation invariant depends on.
type taskDoc struct {
	ID             string               `firestore:"id"`
	RunID          string               `firestore:"runId"`
	Title          string               `firestore:"title"`
	Description    string               `firestore:"description"`
	Priority       int                  `firestore:"priority"`
	AssignedRole   string               `firestore:"assignedRole"`
	DueDate        time.Time            `firestore:"dueDate"`
	EstimatedHours int                  `firestore:"estimatedHours"`
	PotentialValue string               `firestore:"potentialValue"`
	SourceInsight  models.SourceInsight `firestore:"sourceInsight"`
	CreatedAt      time.Time            `firestore:"createdAt"`
}

func toTaskDoc(t models.TaskItem) taskDoc {
	return taskDoc{
		ID:             t.ID,
		RunID:          t.RunID,
		Title:          t.Title,
		Description:    t.Description,
		Priority:       t.Priority,
		AssignedRole:   string(t.AssignedRole),
		DueDate:        t.DueDate,
		EstimatedHours: t.EstimatedHours,
		PotentialValue: t.PotentialValue.String(),
		SourceInsight:  t.SourceInsight,
		CreatedAt:      t.CreatedAt,
	}
}

func (d taskDoc) toTaskItem() (models.TaskItem, error) {
	value, err := decimal.NewFromString(d.PotentialValue)
	if err != nil {
		return models.TaskItem{}, fmt.Errorf("invalid stored potential value %q: %w", d.PotentialValue, err)
	}
	return models.TaskItem{
		ID:             d.ID,
		RunID:          d.RunID,
		Title:          d.Title,
		Description:    d.Description,
		Priority:       d.Priority,
		AssignedRole:   models.Role(d.AssignedRole),
		DueDate:        d.DueDate,
		EstimatedHours: d.EstimatedHours,
		PotentialValue: value,
		SourceInsight:  d.SourceInsight,
		CreatedAt:      d.CreatedAt,
	}, nil
}

func (s *FirestoreStore) SaveTasks(ctx context.Context, runID string, items []models.TaskItem) error {
	batch := s.client.Batch()
	for i := range items {
		ref := s.client.Collection(s.tasksColl).Doc(items[i].ID)
		batch.Set(ref, toTaskDoc(items[i]))
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit %d tasks for run %s: %v", ErrWrite, len(items), runID, err)
	}
	return nil
}

func (s *FirestoreStore) ListTasksByRun(ctx context.Context, runID string) ([]models.TaskItem, error) {
	it := s.client.Collection(s.tasksColl).Where("runId", "==", runID).Documents(ctx)
	var items []models.TaskItem
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list tasks for run %s: %w", runID, err)
		}
		var doc taskDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode task: %w", err)
		}
		item, err := doc.toTaskItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
