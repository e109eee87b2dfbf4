package tasks

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismintel/propertyflow/internal/common"
	"github.com/prismintel/propertyflow/internal/models"
)

func newTestEngine() *Engine {
	e := NewEngine(&common.DefaultConfig().Tasks)
	// Sequential IDs so generated output is fully comparable.
	n := 0
	e.newID = func() string {
		n++
		return fmt.Sprintf("task_%04d", n)
	}
	return e
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

var analyzedAt = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestGenerateMaintenanceSafetyFinding(t *testing.T) {
	engine := newTestEngine()
	insights := &models.PropertyInsights{
		SourceID: "inspection.pdf",
		Findings: []models.Finding{{
			ID:             "fnd_1",
			Category:       models.CategoryMaintenance,
			Urgency:        models.UrgencyUrgent,
			Description:    "HVAC unit failing, safety risk",
			EstimatedValue: dec("30000"),
		}},
	}

	items := engine.Generate(insights, "run_1", analyzedAt)
	require.Len(t, items, 1)

	task := items[0]
	assert.Equal(t, models.RoleMaintenance, task.AssignedRole)
	assert.Equal(t, 1, task.Priority, "urgent finding should be top priority")
	assert.Equal(t, analyzedAt.AddDate(0, 0, 1), task.DueDate, "safety wording should pin the due date to the near edge")
	assert.True(t, task.PotentialValue.Equal(decimal.NewFromInt(30000)))
	assert.Equal(t, 2, task.EstimatedHours)
	assert.Equal(t, "fnd_1", task.SourceInsight.FindingID)
	assert.Equal(t, "Repair: HVAC unit failing, safety risk", task.Title)
}

func TestGenerateComplianceOverdueRent(t *testing.T) {
	engine := newTestEngine()
	insights := &models.PropertyInsights{
		SourceID: "rent-roll.csv",
		Findings: []models.Finding{{
			ID:             "fnd_1",
			Category:       models.CategoryCompliance,
			Urgency:        models.UrgencyModerate,
			Description:    "Tenant unit 4B rent overdue by 45 days",
			EstimatedValue: dec("7500"),
		}},
	}

	items := engine.Generate(insights, "run_1", analyzedAt)
	require.Len(t, items, 1)

	task := items[0]
	assert.Equal(t, models.RoleAccounting, task.AssignedRole)
	assert.Equal(t, 3, task.Priority)
	due := int(task.DueDate.Sub(analyzedAt).Hours() / 24)
	assert.GreaterOrEqual(t, due, 7)
	assert.LessOrEqual(t, due, 14)
	assert.True(t, task.PotentialValue.Equal(decimal.NewFromInt(7500)))
}

func TestGenerateHighValueRaisesPriority(t *testing.T) {
	engine := newTestEngine()
	insights := &models.PropertyInsights{
		Findings: []models.Finding{
			{
				Category:       models.CategoryFinancial,
				Urgency:        models.UrgencyModerate,
				Description:    "Insurance premium renegotiation opportunity",
				EstimatedValue: dec("25000"),
			},
			{
				Category:       models.CategoryFinancial,
				Urgency:        models.UrgencyUrgent,
				Description:    "Large unexplained variance in utility spend",
				EstimatedValue: dec("50000"),
			},
		},
	}

	items := engine.Generate(insights, "run_1", analyzedAt)
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].Priority, "high value should raise moderate priority one level")
	assert.Equal(t, 1, items[1].Priority, "priority never goes below 1")
}

func TestGenerateBoundsHold(t *testing.T) {
	engine := newTestEngine()
	insights := &models.PropertyInsights{Findings: nil}
	for _, cat := range []models.Category{models.CategoryFinancial, models.CategoryOperational, models.CategoryCompliance, models.CategoryMaintenance} {
		for _, urg := range []models.Urgency{models.UrgencyUrgent, models.UrgencyModerate, models.UrgencyStrategic} {
			insights.Findings = append(insights.Findings, models.Finding{
				Category:       cat,
				Urgency:        urg,
				Description:    "vacancy report shows safety issue",
				EstimatedValue: dec("12000.55"),
			})
		}
	}

	items := engine.Generate(insights, "run_1", analyzedAt)
	require.Len(t, items, len(insights.Findings))
	for _, task := range items {
		assert.GreaterOrEqual(t, task.Priority, 1)
		assert.LessOrEqual(t, task.Priority, 5)
		assert.Greater(t, task.EstimatedHours, 0)
		assert.False(t, task.PotentialValue.IsNegative())
		assert.NotEmpty(t, task.Title)
		assert.True(t, task.DueDate.After(analyzedAt))
	}
}

func TestGenerateValueSumMatchesFindings(t *testing.T) {
	engine := newTestEngine()
	insights := &models.PropertyInsights{
		Findings: []models.Finding{
			{Category: models.CategoryFinancial, Urgency: models.UrgencyModerate, Description: "a", EstimatedValue: dec("1234.56")},
			{Category: models.CategoryOperational, Urgency: models.UrgencyStrategic, Description: "b"},
			{Category: models.CategoryMaintenance, Urgency: models.UrgencyUrgent, Description: "c", EstimatedValue: dec("0.01")},
		},
		Proposed: []models.ProposedTask{
			{Title: "Walk the property", Priority: 4},
		},
	}

	items := engine.Generate(insights, "run_1", analyzedAt)
	require.Len(t, items, 4)

	total := decimal.Zero
	for _, task := range items {
		total = total.Add(task.PotentialValue)
	}
	assert.True(t, total.Equal(decimal.RequireFromString("1234.57")),
		"task value total must equal finding value total, got %s", total)
}

func TestGenerateIsDeterministic(t *testing.T) {
	insights := &models.PropertyInsights{
		Findings: []models.Finding{
			{ID: "fnd_1", Category: models.CategoryCompliance, Urgency: models.UrgencyModerate, Description: "lease renewal for unit 2A pending", EstimatedValue: dec("900")},
			{ID: "fnd_2", Category: models.CategoryMaintenance, Urgency: models.UrgencyStrategic, Description: "roof nearing end of life"},
		},
	}

	first := newTestEngine().Generate(insights, "run_1", analyzedAt)
	second := newTestEngine().Generate(insights, "run_1", analyzedAt)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i], "same input must produce identical output")
	}
}

func TestGenerateEmptyFindings(t *testing.T) {
	engine := newTestEngine()
	items := engine.Generate(&models.PropertyInsights{SourceID: "empty.txt"}, "run_1", analyzedAt)
	assert.Empty(t, items)
}

func TestGenerateLeasingKeywordRefinesCompliance(t *testing.T) {
	engine := newTestEngine()
	insights := &models.PropertyInsights{
		Findings: []models.Finding{
			{Category: models.CategoryCompliance, Urgency: models.UrgencyModerate, Description: "Vacancy disclosures missing for three units"},
			{Category: models.CategoryMaintenance, Urgency: models.UrgencyModerate, Description: "Vacant unit needs repainting"},
		},
	}

	items := engine.Generate(insights, "run_1", analyzedAt)
	require.Len(t, items, 2)
	assert.Equal(t, models.RoleLeasing, items[0].AssignedRole)
	assert.Equal(t, models.RoleMaintenance, items[1].AssignedRole, "keywords must not override a non-compliance category")
}

func TestNormalizeProposedClampsInvalidPriority(t *testing.T) {
	engine := newTestEngine()
	insights := &models.PropertyInsights{
		Proposed: []models.ProposedTask{
			{Title: "Check gutters", Priority: 9},
			{Title: "", Priority: 0},
		},
	}

	items := engine.Generate(insights, "run_1", analyzedAt)
	require.Len(t, items, 2)
	for _, task := range items {
		assert.Equal(t, 3, task.Priority)
		assert.Equal(t, models.RolePropertyManager, task.AssignedRole)
		assert.True(t, task.PotentialValue.IsZero())
		assert.NotEmpty(t, task.Title)
		assert.NotEmpty(t, task.Description)
	}
}

func TestTitleTruncation(t *testing.T) {
	engine := newTestEngine()
	long := "elevator inspection certificate expired and the municipal deadline for renewal has already passed without any response from the vendor"
	insights := &models.PropertyInsights{
		Findings: []models.Finding{
			{Category: models.CategoryCompliance, Urgency: models.UrgencyUrgent, Description: long},
		},
	}

	items := engine.Generate(insights, "run_1", analyzedAt)
	require.Len(t, items, 1)
	assert.LessOrEqual(t, len(items[0].Title), maxTitleChars+3)
	assert.Contains(t, items[0].Title, "Address: ")
}

func TestTitleTruncationKeepsValidUTF8(t *testing.T) {
	engine := newTestEngine()
	// Multi-byte runes straddle the cut point near the length limit.
	long := strings.Repeat("給湯器の点検期限切れ", 12)
	insights := &models.PropertyInsights{
		Findings: []models.Finding{
			{Category: models.CategoryMaintenance, Urgency: models.UrgencyModerate, Description: long},
		},
	}

	items := engine.Generate(insights, "run_1", analyzedAt)
	require.Len(t, items, 1)
	assert.True(t, utf8.ValidString(items[0].Title), "truncation must not split a rune")
	assert.LessOrEqual(t, len(items[0].Title), maxTitleChars+3)
}
