package models

import "time"

// RunState is the lifecycle state of a pipeline run.
type RunState string

const (
	StateReceived    RunState = "RECEIVED"
	StateNormalizing RunState = "NORMALIZING"
	StateAnalyzing   RunState = "ANALYZING"
	StateGenerating  RunState = "GENERATING"
	StatePersisting  RunState = "PERSISTING"
	StateArchived    RunState = "ARCHIVED"
	StateFailed      RunState = "FAILED"
)

// Terminal reports whether the state ends a run.
func (s RunState) Terminal() bool {
	return s == StateArchived || s == StateFailed
}

// PipelineRun tracks one document's lifecycle through normalization,
// analysis, generation and persistence. Exactly one active run exists per
// SourceID at a time; the run record is mutated only by the coordinator.
type PipelineRun struct {
	RunID       string    `json:"runId" firestore:"runId"`
	SourceID    string    `json:"sourceId" firestore:"sourceId"`
	FileHash    string    `json:"fileHash" firestore:"fileHash,omitempty"`
	State       RunState  `json:"state" firestore:"state"`
	Attempts    int       `json:"attempts" firestore:"attempts"`
	LastError   string    `json:"lastError" firestore:"lastError,omitempty"`
	ReceivedAt  time.Time `json:"receivedAt" firestore:"receivedAt"`
	AnalyzedAt  time.Time `json:"analyzedAt" firestore:"analyzedAt,omitempty"`
	CompletedAt time.Time `json:"completedAt" firestore:"completedAt,omitempty"`
}
