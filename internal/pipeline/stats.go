package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
)

// Stats tracks pipeline outcomes across a process lifetime. All counters are
// safe for concurrent update from worker goroutines.
type Stats struct {
	processed  atomic.Int64
	succeeded  atomic.Int64
	failed     atomic.Int64
	duplicates atomic.Int64
	tasksSaved atomic.Int64
	elapsed    atomic.Int64 // cumulative processing time, milliseconds
}

func (s *Stats) Processed() int64  { return s.processed.Load() }
func (s *Stats) Succeeded() int64  { return s.succeeded.Load() }
func (s *Stats) Failed() int64     { return s.failed.Load() }
func (s *Stats) Duplicates() int64 { return s.duplicates.Load() }
func (s *Stats) TasksSaved() int64 { return s.tasksSaved.Load() }

// Elapsed returns cumulative wall-clock time spent processing documents.
func (s *Stats) Elapsed() time.Duration {
	return time.Duration(s.elapsed.Load()) * time.Millisecond
}

// Log emits a one-line summary of the counters, typically on shutdown.
func (s *Stats) Log(logger arbor.ILogger) {
	logger.Info().
		Int("processed", int(s.processed.Load())).
		Int("succeeded", int(s.succeeded.Load())).
		Int("failed", int(s.failed.Load())).
		Int("duplicates", int(s.duplicates.Load())).
		Int("tasks_saved", int(s.tasksSaved.Load())).
		Str("elapsed", s.Elapsed().String()).
		Msg("Pipeline statistics")
}
