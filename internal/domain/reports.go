package domain

// GapSeverity classifies an interval's coverage shortfall.
type GapSeverity string

const (
	GapCritical GapSeverity = "critical"
	GapHigh     GapSeverity = "high"
	GapMedium   GapSeverity = "medium"
	GapLow      GapSeverity = "low"
	GapCovered  GapSeverity = "covered"
)

// GapSeverityWeight weights an interval's contribution to the global
// coverage score.
func GapSeverityWeight(s GapSeverity) float64 {
	switch s {
	case GapCritical:
		return 1.0
	case GapHigh:
		return 0.7
	case GapMedium:
		return 0.4
	case GapLow:
		return 0.2
	default:
		return 0
	}
}

// IntervalGap is the per-interval line of a gap report.
type IntervalGap struct {
	Interval       Interval    `json:"interval"`
	Required       int         `json:"required"`
	Scheduled      int         `json:"scheduled"`
	GapCount       int         `json:"gap_count"`
	GapPct         float64     `json:"gap_pct"`
	Severity       GapSeverity `json:"severity"`
	CostImpact     float64     `json:"cost_impact"`
	SLImpact       float64     `json:"sl_impact"`
	RequiredSkills []SkillID   `json:"required_skills,omitempty"`
}

// GapReport compares required vs scheduled headcount across the grid.
type GapReport struct {
	Intervals         []IntervalGap `json:"intervals"`
	TotalGaps         int           `json:"total_gaps"`
	AverageGapPct     float64       `json:"average_gap_pct"`
	CriticalIntervals []Interval    `json:"critical_intervals,omitempty"`
	CoverageScore     float64       `json:"coverage_score"`
	Recommendations   []string      `json:"recommendations,omitempty"`
	Degraded          bool          `json:"degraded,omitempty"`
}

// PeakIntervals returns intervals currently classified critical or high;
// these are the windows a variant must close first.
func (r GapReport) PeakIntervals() []IntervalGap {
	peaks := make([]IntervalGap, 0, len(r.Intervals))
	for _, ig := range r.Intervals {
		if ig.Severity == GapCritical || ig.Severity == GapHigh {
			peaks = append(peaks, ig)
		}
	}
	return peaks
}

// RequiredByInterval flattens the report into a demand map.
func (r GapReport) RequiredByInterval() map[Interval]int {
	out := make(map[Interval]int, len(r.Intervals))
	for _, ig := range r.Intervals {
		out[ig.Interval] = ig.Required
	}
	return out
}

// CostQuality marks whether a financial impact is usable.
type CostQuality string

const (
	CostOK         CostQuality = "ok"
	CostInfeasible CostQuality = "infeasible"
)

// EmployeeCost is the weekly cost decomposition for one employee.
type EmployeeCost struct {
	EmployeeID     string  `json:"employee_id"`
	Base           float64 `json:"base"`
	Overtime       float64 `json:"overtime"`
	WeekendPremium float64 `json:"weekend_premium"`
	NightPremium   float64 `json:"night_premium"`
	SkillPremium   float64 `json:"skill_premium"`
	Benefits       float64 `json:"benefits"`
	Travel         float64 `json:"travel"`
	Accommodation  float64 `json:"accommodation"`
	Coordination   float64 `json:"coordination"`
	Total          float64 `json:"total"`
}

// SavingsOpportunity is one identified reduction lever.
type SavingsOpportunity struct {
	Kind        string  `json:"kind"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// FinancialImpact is the full cost picture for one variant.
type FinancialImpact struct {
	VariantID              string               `json:"variant_id"`
	TotalCost              float64              `json:"total_cost"`
	ComponentTotals        map[string]float64   `json:"component_totals"`
	PerEmployee            []EmployeeCost       `json:"per_employee"`
	CoefficientOfVariation float64              `json:"coefficient_of_variation"`
	OvertimeShare          float64              `json:"overtime_share"`
	Savings                []SavingsOpportunity `json:"savings,omitempty"`
	Quality                CostQuality          `json:"quality"`
	Recommendation         string               `json:"recommendation,omitempty"`
	ProcessingTimeMS       int64                `json:"processing_time_ms"`
}

// OvertimeCost is the overtime component total.
func (f FinancialImpact) OvertimeCost() float64 { return f.ComponentTotals["overtime"] }
