package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/ternarybob/arbor"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/prismintel/propertyflow/internal/common"
	"github.com/prismintel/propertyflow/internal/models"
)

// GCSDocumentStore keeps intake/processed/quarantine as Cloud Storage
// buckets. Used by the intake gateway deployment mode.
type GCSDocumentStore struct {
	client           *storage.Client
	intakeBucket     string
	processedBucket  string
	quarantineBucket string
	logger           arbor.ILogger
}

// NewGCSDocumentStore creates a bucket-backed document store.
func NewGCSDocumentStore(ctx context.Context, cfg *common.GCSConfig, logger arbor.ILogger) (*GCSDocumentStore, error) {
	if cfg.IntakeBucket == "" || cfg.ProcessedBucket == "" || cfg.QuarantineBucket == "" {
		return nil, fmt.Errorf("intake, processed and quarantine buckets must all be configured")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSDocumentStore{
		client:           client,
		intakeBucket:     cfg.IntakeBucket,
		processedBucket:  cfg.ProcessedBucket,
		quarantineBucket: cfg.QuarantineBucket,
		logger:           logger,
	}, nil
}

func (s *GCSDocumentStore) List(ctx context.Context) ([]string, error) {
	it := s.client.Bucket(s.intakeBucket).Objects(ctx, nil)
	var sourceIDs []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list intake objects: %w", err)
		}
		if _, ok := models.KindForFilename(attrs.Name); ok {
			sourceIDs = append(sourceIDs, attrs.Name)
		}
	}
	return sourceIDs, nil
}

func (s *GCSDocumentStore) Read(ctx context.Context, sourceID string) (*models.RawDocument, error) {
	reader, err := s.client.Bucket(s.intakeBucket).Object(sourceID).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", s.intakeBucket, sourceID, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", s.intakeBucket, sourceID, err)
	}
	kind, ok := models.KindForFilename(sourceID)
	if !ok {
		kind = models.MimeText
	}
	return &models.RawDocument{
		SourceID:   sourceID,
		MimeKind:   kind,
		Data:       data,
		ReceivedAt: reader.Attrs.LastModified,
	}, nil
}

func (s *GCSDocumentStore) MoveToProcessed(ctx context.Context, sourceID string) error {
	return s.move(ctx, sourceID, s.processedBucket)
}

func (s *GCSDocumentStore) MoveToQuarantine(ctx context.Context, sourceID, reason string) error {
	if err := s.move(ctx, sourceID, s.quarantineBucket); err != nil {
		return err
	}
	errObject := fmt.Sprintf("%d_%s.error", time.Now().Unix(), sourceID)
	if err := s.saveAtomically(ctx, s.client.Bucket(s.quarantineBucket), errObject, reason+"\n"); err != nil {
		s.logger.Warn().Err(err).Str("source_id", sourceID).Msg("Failed to write quarantine error object")
	}
	return nil
}

// move copies the object to the destination bucket with a timestamped name,
// then deletes the source. GCS has no rename, so this is the standard
// two-step move.
func (s *GCSDocumentStore) move(ctx context.Context, sourceID, destBucket string) error {
	src := s.client.Bucket(s.intakeBucket).Object(sourceID)
	destName := fmt.Sprintf("%d_%s", time.Now().Unix(), sourceID)
	dst := s.client.Bucket(destBucket).Object(destName)

	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		return fmt.Errorf("%w: failed to copy %s to %s: %v", ErrWrite, sourceID, destBucket, err)
	}
	if err := src.Delete(ctx); err != nil {
		return fmt.Errorf("%w: failed to delete source object %s after copy: %v", ErrWrite, sourceID, err)
	}
	s.logger.Info().Str("source_id", sourceID).Str("dest", "gs://"+destBucket+"/"+destName).Msg("Moved source object")
	return nil
}

// saveAtomically writes content to a GCS object only if it doesn't already
// exist, tolerating 412 so replays of the same event stay idempotent.
func (s *GCSDocumentStore) saveAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName, content string) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)

	if _, err := io.Copy(writer, strings.NewReader(content)); err != nil {
		_ = writer.Close()
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 412 {
			s.logger.Debug().Str("object", objectName).Msg("Object already exists, skipping")
			return nil
		}
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 412 {
			s.logger.Debug().Str("object", objectName).Msg("Object already exists, skipping")
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}
