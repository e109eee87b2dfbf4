package report

import (
	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"

	"github.com/prismintel/propertyflow/internal/models"
)

// Summarize aggregates a generated task set: count, total potential value
// and per-role counts. Pure function; consumed read-only by logging and the
// dashboard.
func Summarize(items []models.TaskItem) models.Summary {
	summary := models.Summary{
		Count:               len(items),
		TotalPotentialValue: decimal.Zero,
		ByRole:              make(map[models.Role]int),
	}
	for _, item := range items {
		summary.TotalPotentialValue = summary.TotalPotentialValue.Add(item.PotentialValue)
		summary.ByRole[item.AssignedRole]++
	}
	return summary
}

// Log writes a run summary in a dashboard-friendly shape.
func Log(logger arbor.ILogger, sourceID string, s models.Summary) {
	evt := logger.Info().
		Str("source_id", sourceID).
		Int("tasks", s.Count).
		Str("total_potential_value", s.TotalPotentialValue.StringFixed(2))
	for role, count := range s.ByRole {
		evt = evt.Int("role_"+string(role), count)
	}
	evt.Msg("Run summary")
}
