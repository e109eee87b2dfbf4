package tasks

import (
	"strings"
	"unicode/utf8"

	"github.com/prismintel/propertyflow/internal/common"
	"github.com/prismintel/propertyflow/internal/models"
)

// roleForFinding maps a finding's category to the responsible role.
// Category is authoritative; keyword matches only refine Compliance
// findings toward Leasing, never override another category.
func roleForFinding(f models.Finding, cfg *common.TasksConfig) models.Role {
	switch f.Category {
	case models.CategoryFinancial:
		return models.RoleCFO
	case models.CategoryOperational:
		return models.RolePropertyManager
	case models.CategoryMaintenance:
		return models.RoleMaintenance
	case models.CategoryCompliance:
		if matchesAny(f.Description, cfg.LeasingKeywords) {
			return models.RoleLeasing
		}
		return models.RoleAccounting
	default:
		return models.RolePropertyManager
	}
}

// priorityForFinding derives priority from urgency, then raises it one level
// (numerically lower, floor 1) when the finding's value clears the
// high-value threshold.
func priorityForFinding(f models.Finding, cfg *common.TasksConfig) int {
	priority := basePriority(f.Urgency)
	if f.EstimatedValue != nil && f.EstimatedValue.GreaterThan(cfg.HighValueThreshold) && priority > 1 {
		priority--
	}
	return priority
}

func basePriority(u models.Urgency) int {
	switch u {
	case models.UrgencyUrgent:
		return 1
	case models.UrgencyStrategic:
		return 5
	default:
		return 3
	}
}

// dueDaysForFinding computes the due-date offset in days from the analysis
// timestamp. Critical detail words (safety, overdue, ...) pin urgent and
// moderate findings to the near edge of their window. Deterministic given
// the same urgency and text.
func dueDaysForFinding(f models.Finding, cfg *common.TasksConfig) int {
	critical := matchesAny(f.Description, cfg.CriticalKeywords)
	switch f.Urgency {
	case models.UrgencyUrgent:
		if critical {
			return cfg.DueDays.UrgentCritical
		}
		return cfg.DueDays.Urgent
	case models.UrgencyStrategic:
		return cfg.DueDays.Strategic
	default:
		if critical {
			return cfg.DueDays.ModerateCritical
		}
		return cfg.DueDays.Moderate
	}
}

// hoursForFinding looks up the category baseline from the configured table.
func hoursForFinding(f models.Finding, cfg *common.TasksConfig) int {
	if h, ok := cfg.HourBaselines[string(f.Category)]; ok && h > 0 {
		return h
	}
	return 2
}

// actionVerbs template a finding description into an imperative title.
var actionVerbs = map[models.Category]string{
	models.CategoryFinancial:   "Review",
	models.CategoryOperational: "Resolve",
	models.CategoryCompliance:  "Address",
	models.CategoryMaintenance: "Repair",
}

const maxTitleChars = 90

// titleForFinding produces a non-empty imperative title.
func titleForFinding(f models.Finding) string {
	verb, ok := actionVerbs[f.Category]
	if !ok {
		verb = "Review"
	}
	desc := strings.TrimSpace(f.Description)
	if desc == "" {
		desc = "finding from document analysis"
	}
	title := verb + ": " + desc
	if len(title) > maxTitleChars {
		// Cut on a rune boundary so non-ASCII descriptions stay valid UTF-8.
		cut := maxTitleChars
		for cut > 0 && !utf8.RuneStart(title[cut]) {
			cut--
		}
		title = strings.TrimSpace(title[:cut]) + "..."
	}
	return title
}

func matchesAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
