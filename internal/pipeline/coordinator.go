package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/prismintel/propertyflow/internal/ai"
	"github.com/prismintel/propertyflow/internal/common"
	"github.com/prismintel/propertyflow/internal/models"
	"github.com/prismintel/propertyflow/internal/normalize"
	"github.com/prismintel/propertyflow/internal/report"
	"github.com/prismintel/propertyflow/internal/storage"
	"github.com/prismintel/propertyflow/internal/tasks"
)

// Analyzer produces structured insights for a normalized document.
type Analyzer interface {
	Analyze(ctx context.Context, input *models.NormalizedInput) (*models.PropertyInsights, error)
}

// Coordinator drives one document end to end: normalize, analyze, generate,
// persist, archive. It owns the run record for the document and is the only
// component that moves files between intake, processed and quarantine.
type Coordinator struct {
	docs       storage.DocumentStore
	runs       storage.RunStore
	taskStore  storage.TaskStore
	normalizer *normalize.Normalizer
	analyzer   Analyzer
	engine     *tasks.Engine

	registry    *registry
	stats       *Stats
	maxAttempts int
	backoff     time.Duration
	logger      arbor.ILogger

	// sleep and newRunID are injectable for tests.
	sleep    func(ctx context.Context, d time.Duration) error
	newRunID func() string
	now      func() time.Time
}

// NewCoordinator wires the pipeline stages together.
func NewCoordinator(
	cfg *common.PipelineConfig,
	docs storage.DocumentStore,
	runs storage.RunStore,
	taskStore storage.TaskStore,
	normalizer *normalize.Normalizer,
	analyzer Analyzer,
	engine *tasks.Engine,
	logger arbor.ILogger,
) *Coordinator {
	return &Coordinator{
		docs:        docs,
		runs:        runs,
		taskStore:   taskStore,
		normalizer:  normalizer,
		analyzer:    analyzer,
		engine:      engine,
		registry:    newRegistry(),
		stats:       &Stats{},
		maxAttempts: cfg.MaxRetryAttempts,
		backoff:     common.Duration(cfg.RetryBackoff, 5*time.Second),
		logger:      logger,
		sleep:       sleepCtx,
		newRunID:    common.NewRunID,
		now:         time.Now,
	}
}

// Stats exposes the lifetime counters for shutdown reporting.
func (c *Coordinator) Stats() *Stats { return c.stats }

// ProcessFile runs the full lifecycle for one intake document. A second call
// for a sourceID that is already in flight returns immediately without side
// effects. Errors from individual stages are handled internally (retry then
// quarantine); the returned error reports only claim or context failures.
func (c *Coordinator) ProcessFile(ctx context.Context, sourceID string) error {
	if !c.registry.Claim(sourceID) {
		c.logger.Debug().Str("source_id", sourceID).Msg("Source already in flight, skipping")
		return nil
	}
	defer c.registry.Release(sourceID)

	start := time.Now()
	defer func() {
		c.stats.elapsed.Add(time.Since(start).Milliseconds())
	}()

	run := &models.PipelineRun{
		RunID:      c.newRunID(),
		SourceID:   sourceID,
		State:      models.StateReceived,
		ReceivedAt: c.now(),
	}
	c.persistRun(ctx, run)

	c.logger.Info().Str("run_id", run.RunID).Str("source_id", sourceID).Msg("Pipeline run started")

	c.stats.processed.Add(1)
	if err := c.execute(ctx, run); err != nil {
		if ctx.Err() != nil {
			// Shutdown, not a document fault: leave the file in intake so
			// the next start reprocesses it, and record where we stopped.
			run.LastError = err.Error()
			c.persistRun(context.WithoutCancel(ctx), run)
			return err
		}
		c.quarantine(ctx, run, err)
		return nil
	}
	c.stats.succeeded.Add(1)
	return nil
}

// execute drives the stage sequence, mutating run as it goes. Any returned
// error is terminal for the run (retries already exhausted or the error is
// not retryable).
func (c *Coordinator) execute(ctx context.Context, run *models.PipelineRun) error {
	doc, err := c.readDocument(ctx, run)
	if err != nil {
		return err
	}

	// Identical content that already archived is skipped without another
	// analysis call; the duplicate file still moves to processed.
	if prior := c.findDuplicate(ctx, run); prior != nil {
		c.logger.Info().
			Str("run_id", run.RunID).
			Str("source_id", run.SourceID).
			Str("duplicate_of", prior.RunID).
			Msg("Content already processed, archiving duplicate")
		c.stats.duplicates.Add(1)
		if err := c.docs.MoveToProcessed(ctx, run.SourceID); err != nil {
			return fmt.Errorf("archiving duplicate: %w", err)
		}
		c.complete(ctx, run)
		return nil
	}

	var input *models.NormalizedInput
	err = c.runStage(ctx, run, models.StateNormalizing, func() error {
		var err error
		input, err = c.normalizer.Normalize(doc)
		return err
	})
	if err != nil {
		return err
	}

	var insights *models.PropertyInsights
	err = c.runStage(ctx, run, models.StateAnalyzing, func() error {
		var err error
		insights, err = c.analyzer.Analyze(ctx, input)
		return err
	})
	if err != nil {
		return err
	}
	run.AnalyzedAt = c.now()

	c.setState(ctx, run, models.StateGenerating)
	items := c.engine.Generate(insights, run.RunID, run.AnalyzedAt)

	err = c.runStage(ctx, run, models.StatePersisting, func() error {
		return c.taskStore.SaveTasks(ctx, run.RunID, items)
	})
	if err != nil {
		return err
	}
	c.stats.tasksSaved.Add(int64(len(items)))

	if err := c.archive(ctx, run); err != nil {
		return err
	}

	summary := report.Summarize(items)
	report.Log(c.logger, run.SourceID, summary)
	return nil
}

// readDocument loads and hashes the intake file, retrying transient I/O.
func (c *Coordinator) readDocument(ctx context.Context, run *models.PipelineRun) (*models.RawDocument, error) {
	var doc *models.RawDocument
	err := c.runStage(ctx, run, models.StateReceived, func() error {
		var err error
		doc, err = c.docs.Read(ctx, run.SourceID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", run.SourceID, err)
	}
	sum := sha256.Sum256(doc.Data)
	run.FileHash = hex.EncodeToString(sum[:])
	return doc, nil
}

func (c *Coordinator) findDuplicate(ctx context.Context, run *models.PipelineRun) *models.PipelineRun {
	prior, err := c.runs.FindArchivedByHash(ctx, run.FileHash)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warn().Err(err).Str("run_id", run.RunID).Msg("Duplicate lookup failed, proceeding with full run")
		}
		return nil
	}
	return prior
}

// runStage executes fn under the retry policy: retryable failures back off
// and rerun the stage up to the attempt limit, everything else fails the run
// immediately.
func (c *Coordinator) runStage(ctx context.Context, run *models.PipelineRun, state models.RunState, fn func() error) error {
	for {
		c.setState(ctx, run, state)
		err := fn()
		if err == nil {
			return nil
		}
		run.LastError = err.Error()
		if ctx.Err() != nil {
			return err
		}
		if !Retryable(err) {
			return err
		}
		run.Attempts++
		if run.Attempts >= c.maxAttempts {
			c.logger.Warn().Err(err).
				Str("run_id", run.RunID).
				Str("stage", string(state)).
				Int("attempts", run.Attempts).
				Msg("Retry attempts exhausted")
			return err
		}
		c.logger.Warn().Err(err).
			Str("run_id", run.RunID).
			Str("stage", string(state)).
			Int("attempt", run.Attempts).
			Msg("Stage failed, retrying after backoff")
		c.persistRun(ctx, run)
		if serr := c.sleep(ctx, c.backoff); serr != nil {
			return err
		}
	}
}

// Retryable reports whether the coordinator should re-drive the failed stage.
// Document faults (unsupported or corrupt content, malformed analysis) never
// retry; transient infrastructure faults do.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, normalize.ErrUnsupportedFormat),
		errors.Is(err, normalize.ErrCorruptFile),
		errors.Is(err, ai.ErrMalformedResponse):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	// Unknown errors are treated as transient; a genuinely bad document will
	// exhaust its attempts and quarantine anyway.
	return true
}

func (c *Coordinator) archive(ctx context.Context, run *models.PipelineRun) error {
	err := c.runStage(ctx, run, models.StatePersisting, func() error {
		return c.docs.MoveToProcessed(ctx, run.SourceID)
	})
	if err != nil {
		return fmt.Errorf("archiving %s: %w", run.SourceID, err)
	}
	c.complete(ctx, run)
	return nil
}

func (c *Coordinator) complete(ctx context.Context, run *models.PipelineRun) {
	run.State = models.StateArchived
	run.LastError = ""
	run.CompletedAt = c.now()
	c.persistRun(ctx, run)
	c.logger.Info().
		Str("run_id", run.RunID).
		Str("source_id", run.SourceID).
		Msg("Pipeline run archived")
}

// quarantine moves the source file aside with the failure reason and marks
// the run failed. The file is never deleted.
func (c *Coordinator) quarantine(ctx context.Context, run *models.PipelineRun, cause error) {
	c.stats.failed.Add(1)
	run.State = models.StateFailed
	run.LastError = cause.Error()
	run.CompletedAt = c.now()
	c.persistRun(ctx, run)

	if err := c.docs.MoveToQuarantine(ctx, run.SourceID, cause.Error()); err != nil {
		c.logger.Error().Err(err).
			Str("run_id", run.RunID).
			Str("source_id", run.SourceID).
			Msg("Failed to quarantine source file")
	}
	c.logger.Error().Err(cause).
		Str("run_id", run.RunID).
		Str("source_id", run.SourceID).
		Int("attempts", run.Attempts).
		Msg("Pipeline run failed, source quarantined")
}

func (c *Coordinator) setState(ctx context.Context, run *models.PipelineRun, state models.RunState) {
	if run.State == state {
		return
	}
	run.State = state
	c.persistRun(ctx, run)
}

// persistRun saves the run record best-effort: a status write failure is
// logged but never fails the document itself.
func (c *Coordinator) persistRun(ctx context.Context, run *models.PipelineRun) {
	if err := c.runs.SaveRun(ctx, run); err != nil {
		c.logger.Warn().Err(err).
			Str("run_id", run.RunID).
			Str("state", string(run.State)).
			Msg("Failed to persist run state")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
