package models

import (
	"github.com/shopspring/decimal"
)

// Category classifies a finding extracted from a document.
type Category string

const (
	CategoryFinancial   Category = "Financial"
	CategoryOperational Category = "Operational"
	CategoryCompliance  Category = "Compliance"
	CategoryMaintenance Category = "Maintenance"
)

// Urgency drives priority and due-date computation.
type Urgency string

const (
	UrgencyUrgent    Urgency = "Urgent"
	UrgencyModerate  Urgency = "Moderate"
	UrgencyStrategic Urgency = "Strategic"
)

// Finding is one discrete observation extracted by AI analysis.
// Urgency is always set by the adapter; a finding arriving without one
// defaults to Moderate.
type Finding struct {
	ID             string           `json:"id"`
	Category       Category         `json:"category"`
	Urgency        Urgency          `json:"urgency"`
	Description    string           `json:"description"`
	EstimatedValue *decimal.Decimal `json:"estimatedValue,omitempty"`
}

// Value returns the finding's estimated value, treating absent as zero.
func (f Finding) Value() decimal.Decimal {
	if f.EstimatedValue == nil {
		return decimal.Zero
	}
	return *f.EstimatedValue
}

// ProposedTask is a task the model suggested directly, before normalization
// by the generation engine.
type ProposedTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

// PropertyInsights is the validated result of one AI analysis. It is owned
// by the pipeline run that produced it and is not persisted verbatim; only
// the derived tasks are.
type PropertyInsights struct {
	SourceID  string         `json:"sourceId"`
	Summary   string         `json:"summary"`
	Findings  []Finding      `json:"findings"`
	Proposed  []ProposedTask `json:"proposedTasks,omitempty"`
	Truncated bool           `json:"truncated"` // input was cut to the model budget; lower confidence
}
