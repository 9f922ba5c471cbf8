package domain

// RuleCategory groups constraint rules by their source registry.
type RuleCategory string

const (
	CategoryLaborLaw   RuleCategory = "labor_law"
	CategoryUnion      RuleCategory = "union"
	CategoryContract   RuleCategory = "contract"
	CategoryBusiness   RuleCategory = "business"
	CategoryPreference RuleCategory = "preference"
	CategorySchedule   RuleCategory = "schedule"
)

// Severity classifies violations and drives compliance penalties.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// SeverityWeight is the compliance penalty per violation of a severity.
func SeverityWeight(s Severity) float64 {
	switch s {
	case SeverityCritical:
		return 10
	case SeverityHigh:
		return 5
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}

// Rule kinds understood by the predicate compiler. Unknown kinds compile
// to a custom predicate and evaluate as pass with a summary note.
const (
	RuleWeeklyHoursOver          = "weekly_hours_over"
	RuleDailyOvertimeOver        = "daily_overtime_over"
	RuleMinRestBelow             = "min_rest_below"
	RuleConsecutiveDaysOver      = "consecutive_days_over"
	RulePreferenceMismatch       = "preference_mismatch"
	RuleMinCoverageWindow        = "min_coverage_window"
	RulePartTimeHoursOver        = "part_time_hours_over"
	RuleNightWithoutPermission   = "night_without_permission"
	RuleWeekendWithoutPermission = "weekend_without_permission"
)

// ConstraintRule is a declarative rule row from the MetricsStore. The core
// never interprets Kind directly; the validator compiles it to a typed
// predicate.
type ConstraintRule struct {
	ID          string       `json:"id" db:"id"`
	Category    RuleCategory `json:"category" db:"category"`
	Kind        string       `json:"kind" db:"kind"`
	Limit       float64      `json:"limit_value" db:"limit_value"`
	Severity    Severity     `json:"severity" db:"severity"`
	CostImpact  float64      `json:"cost_impact" db:"cost_impact"`
	RemedyHint  string       `json:"remedy_hint" db:"remedy_hint"`
	Description string       `json:"description" db:"description"`
}

// Violation is one rule failure against a variant.
type Violation struct {
	RuleID           string       `json:"rule_id"`
	Severity         Severity     `json:"severity"`
	Category         RuleCategory `json:"category"`
	Description      string       `json:"description"`
	AffectedEmployee string       `json:"affected_employee,omitempty"`
	AffectedInterval string       `json:"affected_interval,omitempty"`
	RemedyHint       string       `json:"remedy_hint,omitempty"`
	CostImpact       float64      `json:"cost_impact"`
}

// RuleSource tags where the evaluated rule set came from.
type RuleSource string

const (
	SourceStore    RuleSource = "store"
	SourceFallback RuleSource = "fallback"
)

// ComplianceMatrix aggregates all violations for one variant.
type ComplianceMatrix struct {
	VariantID         string               `json:"variant_id"`
	BySeverity        map[Severity]int     `json:"by_severity"`
	ByCategory        map[RuleCategory]int `json:"by_category"`
	ComplianceScore   float64              `json:"compliance_score"`
	Violations        []Violation          `json:"violations"`
	Source            RuleSource           `json:"source"`
	ValidationSummary []string             `json:"validation_summary,omitempty"`
	Degraded          bool                 `json:"degraded,omitempty"`
}

// NewComplianceMatrix aggregates violations into the scored matrix.
// compliance_score = max(0, 100 - Σ severity_weight × count).
func NewComplianceMatrix(variantID string, violations []Violation, source RuleSource) ComplianceMatrix {
	m := ComplianceMatrix{
		VariantID:  variantID,
		BySeverity: make(map[Severity]int),
		ByCategory: make(map[RuleCategory]int),
		Violations: violations,
		Source:     source,
	}
	penalty := 0.0
	for _, v := range violations {
		m.BySeverity[v.Severity]++
		m.ByCategory[v.Category]++
		penalty += SeverityWeight(v.Severity)
	}
	if penalty > 100 {
		penalty = 100
	}
	m.ComplianceScore = 100 - penalty
	return m
}

// CompliancePoints maps the matrix to the scoring engine's 0-20 component.
func (m ComplianceMatrix) CompliancePoints() float64 {
	p := m.ComplianceScore / 100 * 20
	if p < 0 {
		return 0
	}
	if p > 20 {
		return 20
	}
	return p
}

// CriticalCount is the number of critical violations.
func (m ComplianceMatrix) CriticalCount() int { return m.BySeverity[SeverityCritical] }
