package gateway

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/prismintel/propertyflow/internal/ai"
	"github.com/prismintel/propertyflow/internal/common"
	"github.com/prismintel/propertyflow/internal/models"
	"github.com/prismintel/propertyflow/internal/normalize"
	"github.com/prismintel/propertyflow/internal/pipeline"
	"github.com/prismintel/propertyflow/internal/storage"
	"github.com/prismintel/propertyflow/internal/tasks"
)

// GCSEvent is the payload of a google.cloud.storage.object.v1.finalized
// CloudEvent.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// Gateway runs the document pipeline in cloud mode: one GCS finalize event
// per intake object, Firestore for records, buckets instead of directories.
type Gateway struct {
	coordinator  *pipeline.Coordinator
	intakeBucket string
	logger       arbor.ILogger
}

// New builds the cloud deployment of the pipeline. Configuration comes from
// the environment; buckets and the Firestore project must be set.
func New(ctx context.Context) (*Gateway, error) {
	config, err := common.LoadConfig(common.GetEnv("PROPERTYFLOW_CONFIG", ""))
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	config.GCS.IntakeBucket = common.GetEnv("INTAKE_BUCKET", config.GCS.IntakeBucket)
	config.GCS.ProcessedBucket = common.GetEnv("PROCESSED_BUCKET", config.GCS.ProcessedBucket)
	config.GCS.QuarantineBucket = common.GetEnv("QUARANTINE_BUCKET", config.GCS.QuarantineBucket)
	if config.GCS.IntakeBucket == "" || config.GCS.ProcessedBucket == "" || config.GCS.QuarantineBucket == "" {
		return nil, fmt.Errorf("INTAKE_BUCKET, PROCESSED_BUCKET and QUARANTINE_BUCKET must be set")
	}
	if config.Storage.Firestore.ProjectID == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID must be set")
	}

	logger := common.InitLogger(config)

	docs, err := storage.NewGCSDocumentStore(ctx, &config.GCS, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing GCS document store: %w", err)
	}
	records, err := storage.NewFirestoreStore(ctx, &config.Storage.Firestore, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing firestore: %w", err)
	}
	caller, err := ai.NewVertexCaller(ctx, &config.AI)
	if err != nil {
		return nil, fmt.Errorf("initializing analysis backend: %w", err)
	}

	coordinator := pipeline.NewCoordinator(
		&config.Pipeline,
		docs,
		records,
		records,
		normalize.New(&config.AI, logger),
		ai.NewAnalyzer(caller, &config.AI, logger),
		tasks.NewEngine(&config.Tasks),
		logger,
	)

	logger.Info().Str("intake_bucket", config.GCS.IntakeBucket).Msg("Intake gateway initialized")
	return &Gateway{
		coordinator:  coordinator,
		intakeBucket: config.GCS.IntakeBucket,
		logger:       logger,
	}, nil
}

// Process handles one finalize event. Events for other buckets or for
// unsupported object types are acknowledged without work so the event
// delivery is not retried.
func (g *Gateway) Process(ctx context.Context, e GCSEvent) error {
	if e.Bucket != g.intakeBucket {
		g.logger.Warn().Str("bucket", e.Bucket).Str("object", e.Name).Msg("Ignoring event for unexpected bucket")
		return nil
	}
	if _, ok := models.KindForFilename(e.Name); !ok {
		g.logger.Info().Str("object", e.Name).Msg("Ignoring unsupported object type")
		return nil
	}
	return g.coordinator.ProcessFile(ctx, e.Name)
}
