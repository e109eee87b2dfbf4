package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is the party a task is assigned to.
type Role string

const (
	RoleCFO             Role = "CFO"
	RolePropertyManager Role = "PropertyManager"
	RoleMaintenance     Role = "Maintenance"
	RoleAccounting      Role = "Accounting"
	RoleLeasing         Role = "Leasing"
)

// SourceInsight is a weak reference to the finding a task was derived from:
// the finding's ID plus a snapshot of its text, never ownership.
type SourceInsight struct {
	FindingID string `json:"findingId" firestore:"findingId"`
	Snapshot  string `json:"snapshot" firestore:"snapshot"`
}

// TaskItem is a canonical, assignable unit of work derived from a finding.
// Immutable once persisted.
type TaskItem struct {
	ID             string          `json:"id" firestore:"id"`
	RunID          string          `json:"runId" firestore:"runId"`
	Title          string          `json:"title" firestore:"title"`
	Description    string          `json:"description" firestore:"description"`
	Priority       int             `json:"priority" firestore:"priority"` // 1..5, 1 = most urgent
	AssignedRole   Role            `json:"assignedRole" firestore:"assignedRole"`
	DueDate        time.Time       `json:"dueDate" firestore:"dueDate"`
	EstimatedHours int             `json:"estimatedHours" firestore:"estimatedHours"`
	PotentialValue decimal.Decimal `json:"potentialValue" firestore:"potentialValue"`
	SourceInsight  SourceInsight   `json:"sourceInsight" firestore:"sourceInsight"`
	CreatedAt      time.Time       `json:"createdAt" firestore:"createdAt"`
}

// Summary aggregates a generated task set for logging and dashboards.
type Summary struct {
	Count               int             `json:"count"`
	TotalPotentialValue decimal.Decimal `json:"totalPotentialValue"`
	ByRole              map[Role]int    `json:"byRole"`
}
