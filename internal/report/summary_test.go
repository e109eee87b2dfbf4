package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/prismintel/propertyflow/internal/models"
)

func TestSummarize(t *testing.T) {
	items := []models.TaskItem{
		{AssignedRole: models.RoleMaintenance, PotentialValue: decimal.NewFromInt(30000)},
		{AssignedRole: models.RoleAccounting, PotentialValue: decimal.RequireFromString("7500.50")},
		{AssignedRole: models.RoleMaintenance, PotentialValue: decimal.Zero},
	}

	s := Summarize(items)

	assert.Equal(t, 3, s.Count)
	assert.True(t, s.TotalPotentialValue.Equal(decimal.RequireFromString("37500.50")))
	assert.Equal(t, 2, s.ByRole[models.RoleMaintenance])
	assert.Equal(t, 1, s.ByRole[models.RoleAccounting])
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.Count)
	assert.True(t, s.TotalPotentialValue.IsZero())
	assert.Empty(t, s.ByRole)
}
