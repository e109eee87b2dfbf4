package tasks

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/prismintel/propertyflow/internal/common"
	"github.com/prismintel/propertyflow/internal/models"
)

// Engine deterministically transforms validated insights into an ordered
// task set. It never fails on valid input: malformed material is rejected
// earlier, at the adapter boundary.
type Engine struct {
	cfg *common.TasksConfig

	// newID is swappable so tests can assert full equality of output.
	newID func() string
}

// NewEngine creates an Engine with the given rule configuration.
func NewEngine(cfg *common.TasksConfig) *Engine {
	return &Engine{
		cfg:   cfg,
		newID: common.NewTaskID,
	}
}

// Generate derives one task per finding, in input order, then appends any
// model-proposed tasks in normalized form. Empty findings produce an empty
// sequence.
//
// Invariant: the sum of PotentialValue across the output equals the sum of
// EstimatedValue across the input findings (absent treated as zero).
// Proposed tasks therefore always carry zero value.
func (e *Engine) Generate(insights *models.PropertyInsights, runID string, analyzedAt time.Time) []models.TaskItem {
	out := make([]models.TaskItem, 0, len(insights.Findings)+len(insights.Proposed))

	for _, f := range insights.Findings {
		value := f.Value()
		if value.IsNegative() {
			value = decimal.Zero
		}
		out = append(out, models.TaskItem{
			ID:             e.newID(),
			RunID:          runID,
			Title:          titleForFinding(f),
			Description:    descriptionForFinding(f),
			Priority:       priorityForFinding(f, e.cfg),
			AssignedRole:   roleForFinding(f, e.cfg),
			DueDate:        analyzedAt.AddDate(0, 0, dueDaysForFinding(f, e.cfg)),
			EstimatedHours: hoursForFinding(f, e.cfg),
			PotentialValue: value,
			SourceInsight: models.SourceInsight{
				FindingID: f.ID,
				Snapshot:  f.Description,
			},
			CreatedAt: analyzedAt,
		})
	}

	for _, p := range insights.Proposed {
		out = append(out, e.normalizeProposed(p, runID, analyzedAt))
	}

	return out
}

// normalizeProposed clamps a model-proposed task into a valid TaskItem.
// Proposed tasks have no originating finding, so they contribute no
// potential value and land on the property manager's desk by default.
func (e *Engine) normalizeProposed(p models.ProposedTask, runID string, analyzedAt time.Time) models.TaskItem {
	priority := p.Priority
	if priority < 1 || priority > 5 {
		priority = 3
	}
	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = "Review suggested follow-up"
	}
	description := strings.TrimSpace(p.Description)
	if description == "" {
		description = title
	}

	dueDays := e.cfg.DueDays.Moderate
	if priority == 1 {
		dueDays = e.cfg.DueDays.Urgent
	}

	return models.TaskItem{
		ID:             e.newID(),
		RunID:          runID,
		Title:          title,
		Description:    description,
		Priority:       priority,
		AssignedRole:   models.RolePropertyManager,
		DueDate:        analyzedAt.AddDate(0, 0, dueDays),
		EstimatedHours: 1,
		PotentialValue: decimal.Zero,
		CreatedAt:      analyzedAt,
	}
}

// descriptionForFinding expands the finding into an actionable description.
func descriptionForFinding(f models.Finding) string {
	desc := strings.TrimSpace(f.Description)
	if desc == "" {
		desc = "Review the attached finding from document analysis."
	}
	if f.EstimatedValue != nil {
		return fmt.Sprintf("%s (estimated impact: $%s)", desc, f.EstimatedValue.StringFixed(2))
	}
	return desc
}
