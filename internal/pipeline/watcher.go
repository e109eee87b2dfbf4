package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/prismintel/propertyflow/internal/common"
	"github.com/prismintel/propertyflow/internal/models"
	"github.com/prismintel/propertyflow/internal/storage"
)

// settleDelay gives a newly created file time to finish writing before we
// read it. Partially written files that still slip through fail normalization
// and are retried by the rescan.
const settleDelay = 500 * time.Millisecond

// Watcher feeds intake documents to the coordinator. Three sources overlap
// deliberately: an initial scan for files present at startup, fsnotify events
// for new arrivals, and a periodic rescan that catches anything the notifier
// missed. The coordinator's claim registry makes the overlap harmless.
type Watcher struct {
	coordinator *Coordinator
	docs        storage.DocumentStore
	intakeDir   string
	rescan      time.Duration
	concurrency int
	logger      arbor.ILogger
}

func NewWatcher(cfg *common.WatchConfig, coordinator *Coordinator, docs storage.DocumentStore, logger arbor.ILogger) *Watcher {
	return &Watcher{
		coordinator: coordinator,
		docs:        docs,
		intakeDir:   cfg.IntakeDir,
		rescan:      common.Duration(cfg.RescanInterval, 30*time.Second),
		concurrency: cfg.Concurrency,
		logger:      logger,
	}
}

// Run watches the intake directory until ctx is canceled, then waits for
// in-flight documents to drain and logs the lifetime statistics.
func (w *Watcher) Run(ctx context.Context) error {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer notifier.Close()

	if err := notifier.Add(w.intakeDir); err != nil {
		return fmt.Errorf("watching %s: %w", w.intakeDir, err)
	}

	group := &errgroup.Group{}
	group.SetLimit(w.concurrency)

	w.logger.Info().
		Str("intake_dir", w.intakeDir).
		Int("concurrency", w.concurrency).
		Msg("Watching intake directory")

	w.scan(ctx, group)

	ticker := time.NewTicker(w.rescan)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Shutting down, draining in-flight documents")
			_ = group.Wait()
			w.coordinator.Stats().Log(w.logger)
			return ctx.Err()

		case event, ok := <-notifier.Events:
			if !ok {
				_ = group.Wait()
				return nil
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.dispatchEvent(ctx, group, event.Name)
			}

		case err, ok := <-notifier.Errors:
			if !ok {
				_ = group.Wait()
				return nil
			}
			w.logger.Warn().Err(err).Msg("File watcher error")

		case <-ticker.C:
			w.scan(ctx, group)
		}
	}
}

// scan lists the intake location and dispatches every waiting document.
func (w *Watcher) scan(ctx context.Context, group *errgroup.Group) {
	ids, err := w.docs.List(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("Intake scan failed")
		return
	}
	for _, id := range ids {
		w.dispatch(ctx, group, id)
	}
}

// dispatchEvent handles a single fsnotify event, filtering out files the
// pipeline does not understand.
func (w *Watcher) dispatchEvent(ctx context.Context, group *errgroup.Group, path string) {
	name := filepath.Base(path)
	if _, ok := models.KindForFilename(name); !ok {
		return
	}
	started := group.TryGo(func() error {
		if err := sleepCtx(ctx, settleDelay); err != nil {
			return nil
		}
		w.process(ctx, name)
		return nil
	})
	if !started {
		w.deferToRescan(name)
	}
}

// dispatch hands a source to the worker pool without ever blocking the event
// loop: when the pool is saturated the file simply waits for the next rescan.
func (w *Watcher) dispatch(ctx context.Context, group *errgroup.Group, sourceID string) {
	started := group.TryGo(func() error {
		w.process(ctx, sourceID)
		return nil
	})
	if !started {
		w.deferToRescan(sourceID)
	}
}

func (w *Watcher) deferToRescan(sourceID string) {
	w.logger.Debug().Str("source_id", sourceID).Msg("Worker pool saturated, deferring to rescan")
}

func (w *Watcher) process(ctx context.Context, sourceID string) {
	if err := w.coordinator.ProcessFile(ctx, sourceID); err != nil && ctx.Err() == nil {
		w.logger.Error().Err(err).Str("source_id", sourceID).Msg("Document processing failed")
	}
}
