package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/prismintel/propertyflow/internal/common"
	"github.com/prismintel/propertyflow/internal/models"
)

// LocalDocumentStore keeps intake/processed/quarantine as directories on the
// local filesystem.
type LocalDocumentStore struct {
	intakeDir     string
	processedDir  string
	quarantineDir string
	logger        arbor.ILogger
}

// NewLocalDocumentStore creates the three directories if needed.
func NewLocalDocumentStore(cfg *common.WatchConfig, logger arbor.ILogger) (*LocalDocumentStore, error) {
	for _, dir := range []string{cfg.IntakeDir, cfg.ProcessedDir, cfg.QuarantineDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return &LocalDocumentStore{
		intakeDir:     cfg.IntakeDir,
		processedDir:  cfg.ProcessedDir,
		quarantineDir: cfg.QuarantineDir,
		logger:        logger,
	}, nil
}

func (s *LocalDocumentStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.intakeDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read intake directory: %w", err)
	}
	var sourceIDs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := models.KindForFilename(entry.Name()); ok {
			sourceIDs = append(sourceIDs, entry.Name())
		}
	}
	return sourceIDs, nil
}

func (s *LocalDocumentStore) Read(_ context.Context, sourceID string) (*models.RawDocument, error) {
	path := filepath.Join(s.intakeDir, sourceID)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", sourceID, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sourceID, err)
	}
	kind, ok := models.KindForFilename(sourceID)
	if !ok {
		kind = models.MimeText
	}
	return &models.RawDocument{
		SourceID:   sourceID,
		MimeKind:   kind,
		Data:       data,
		ReceivedAt: info.ModTime(),
	}, nil
}

func (s *LocalDocumentStore) MoveToProcessed(_ context.Context, sourceID string) error {
	dest := filepath.Join(s.processedDir, stampedName(sourceID))
	if err := os.Rename(filepath.Join(s.intakeDir, sourceID), dest); err != nil {
		return fmt.Errorf("%w: failed to archive %s: %v", ErrWrite, sourceID, err)
	}
	s.logger.Info().Str("source_id", sourceID).Str("dest", dest).Msg("Archived source file")
	return nil
}

func (s *LocalDocumentStore) MoveToQuarantine(_ context.Context, sourceID, reason string) error {
	name := stampedName(sourceID)
	dest := filepath.Join(s.quarantineDir, name)
	if err := os.Rename(filepath.Join(s.intakeDir, sourceID), dest); err != nil {
		return fmt.Errorf("%w: failed to quarantine %s: %v", ErrWrite, sourceID, err)
	}
	// Sidecar with the last error keeps the failure inspectable next to the file.
	errPath := filepath.Join(s.quarantineDir, name+".error")
	if err := os.WriteFile(errPath, []byte(reason+"\n"), 0644); err != nil {
		s.logger.Warn().Err(err).Str("source_id", sourceID).Msg("Failed to write quarantine error sidecar")
	}
	s.logger.Warn().Str("source_id", sourceID).Str("dest", dest).Str("reason", reason).Msg("Quarantined source file")
	return nil
}

// stampedName prefixes a filename with a timestamp so repeated drops of the
// same name never collide in the archive.
func stampedName(name string) string {
	return fmt.Sprintf("%d_%s", time.Now().Unix(), name)
}
