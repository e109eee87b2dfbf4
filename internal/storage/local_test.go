package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismintel/propertyflow/internal/common"
	"github.com/prismintel/propertyflow/internal/models"
)

func newTestLocalStore(t *testing.T) (*LocalDocumentStore, *common.WatchConfig) {
	t.Helper()
	root := t.TempDir()
	cfg := &common.WatchConfig{
		IntakeDir:     filepath.Join(root, "intake"),
		ProcessedDir:  filepath.Join(root, "processed"),
		QuarantineDir: filepath.Join(root, "quarantine"),
		Concurrency:   1,
	}
	store, err := NewLocalDocumentStore(cfg, common.GetLogger())
	require.NoError(t, err)
	return store, cfg
}

func TestLocalStoreCreatesDirectories(t *testing.T) {
	_, cfg := newTestLocalStore(t)
	for _, dir := range []string{cfg.IntakeDir, cfg.ProcessedDir, cfg.QuarantineDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestLocalStoreListFiltersUnsupported(t *testing.T) {
	store, cfg := newTestLocalStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.IntakeDir, "report.csv"), []byte("a,b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.IntakeDir, "photo.heic"), []byte{0x01}, 0644))
	require.NoError(t, os.Mkdir(filepath.Join(cfg.IntakeDir, "subdir.csv"), 0755))

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"report.csv"}, ids)
}

func TestLocalStoreRead(t *testing.T) {
	store, cfg := newTestLocalStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.IntakeDir, "note.txt"), []byte("roof leak"), 0644))

	doc, err := store.Read(context.Background(), "note.txt")
	require.NoError(t, err)
	assert.Equal(t, "note.txt", doc.SourceID)
	assert.Equal(t, models.MimeText, doc.MimeKind)
	assert.Equal(t, []byte("roof leak"), doc.Data)
	assert.False(t, doc.ReceivedAt.IsZero())
}

func TestLocalStoreMoveToProcessed(t *testing.T) {
	store, cfg := newTestLocalStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.IntakeDir, "report.csv"), []byte("a,b"), 0644))

	require.NoError(t, store.MoveToProcessed(context.Background(), "report.csv"))

	_, err := os.Stat(filepath.Join(cfg.IntakeDir, "report.csv"))
	assert.True(t, os.IsNotExist(err), "file must leave intake")

	entries, err := os.ReadDir(cfg.ProcessedDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "_report.csv"), "archived name keeps the original suffix")
}

func TestLocalStoreMoveToQuarantineWritesSidecar(t *testing.T) {
	store, cfg := newTestLocalStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.IntakeDir, "weird.txt"), []byte("???"), 0644))

	require.NoError(t, store.MoveToQuarantine(context.Background(), "weird.txt", "analysis response malformed"))

	entries, err := os.ReadDir(cfg.QuarantineDir)
	require.NoError(t, err)
	require.Len(t, entries, 2, "quarantine holds the file plus its error sidecar")

	var sidecar string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".error") {
			sidecar = e.Name()
		}
	}
	require.NotEmpty(t, sidecar)
	content, err := os.ReadFile(filepath.Join(cfg.QuarantineDir, sidecar))
	require.NoError(t, err)
	assert.Contains(t, string(content), "analysis response malformed")
}

func TestLocalStoreMoveMissingFileIsWriteError(t *testing.T) {
	store, _ := newTestLocalStore(t)
	err := store.MoveToProcessed(context.Background(), "ghost.csv")
	assert.ErrorIs(t, err, ErrWrite)
}
