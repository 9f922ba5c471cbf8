package domain

// RecommendationLevel is the action guidance attached to a scored variant.
type RecommendationLevel string

const (
	RecommendImplement       RecommendationLevel = "implement"
	RecommendMonitor         RecommendationLevel = "monitor"
	RecommendPlanAccordingly RecommendationLevel = "plan_accordingly"
)

// RiskLevel classifies implementation risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Sub-component keys of a score breakdown.
const (
	SubGapReduction    = "gap_reduction"
	SubPeakCoverage    = "peak_coverage"
	SubSkillMatch      = "skill_match"
	SubOvertimeReduce  = "overtime_reduction"
	SubCostReduce      = "cost_reduction"
	SubLaborCompliance = "labor_compliance"
	SubPreferenceSat   = "preference_satisfaction"
	SubPatternRegular  = "pattern_regularity"
)

// ScoreBreakdown carries the four weighted components (40/30/20/10) and
// their sub-components. Total is always the sum of the four.
type ScoreBreakdown struct {
	CoverageScore   float64            `json:"coverage_score"`
	CostScore       float64            `json:"cost_score"`
	ComplianceScore float64            `json:"compliance_score"`
	SimplicityScore float64            `json:"simplicity_score"`
	Sub             map[string]float64 `json:"sub_components"`
	Total           float64            `json:"total"`
}

// OptimizationScore is one ranked suggestion.
type OptimizationScore struct {
	VariantID            string              `json:"variant_id"`
	Pattern              PatternType         `json:"pattern_type"`
	OverallScore         float64             `json:"overall_score"`
	Breakdown            ScoreBreakdown      `json:"score_breakdown"`
	Rank                 int                 `json:"rank"`
	RecommendationLevel  RecommendationLevel `json:"recommendation_level"`
	Risk                 RiskLevel           `json:"risk"`
	ImplementationWindow string              `json:"implementation_window"`
	ExpectedOutcomes     []string            `json:"expected_outcomes,omitempty"`
}

// ComparisonEntry is one column of the top-3 comparison matrix.
type ComparisonEntry struct {
	VariantID           string      `json:"variant_id"`
	Pattern             PatternType `json:"pattern_type"`
	Coverage            float64     `json:"coverage"`
	Cost                float64     `json:"cost"`
	Compliance          float64     `json:"compliance"`
	Simplicity          float64     `json:"simplicity"`
	Total               float64     `json:"total"`
	Risk                RiskLevel   `json:"risk"`
	ImplementationWeeks int         `json:"implementation_weeks"`
}

// ComparisonMatrix puts the top suggestions side by side.
type ComparisonMatrix struct {
	Entries []ComparisonEntry `json:"entries"`
}

// RankedSuggestions is the scoring engine's final output.
type RankedSuggestions struct {
	Suggestions []OptimizationScore `json:"suggestions"`
	Comparison  ComparisonMatrix    `json:"comparison_matrix"`
	Methodology string              `json:"methodology"`
	Summary     string              `json:"summary"`
}

// OptimizationGoals expresses the caller's desired deltas.
type OptimizationGoals struct {
	CoverageDeltaPct   float64 `json:"coverage_delta_pct" yaml:"coverage_delta_pct"`
	CostDeltaPct       float64 `json:"cost_delta_pct" yaml:"cost_delta_pct"`
	ServiceLevelTarget float64 `json:"service_level_target" yaml:"service_level_target"`
}

// PayrollRates are the default or store-provided wage parameters.
type PayrollRates struct {
	HourlyRate       float64            `json:"hourly_rate" yaml:"hourly_rate"`
	OvertimeFactor   float64            `json:"overtime_factor" yaml:"overtime_factor"`
	WeekendRate      float64            `json:"weekend_rate" yaml:"weekend_rate"`
	NightRate        float64            `json:"night_rate" yaml:"night_rate"`
	SkillTierPremium map[string]float64 `json:"skill_tier_premium,omitempty" yaml:"skill_tier_premium,omitempty"`
	BenefitsFactor   float64            `json:"benefits_factor" yaml:"benefits_factor"`
	RatePerKm        float64            `json:"rate_per_km" yaml:"rate_per_km"`
	NightlyRate      float64            `json:"nightly_rate" yaml:"nightly_rate"`
	CoordinationFee  float64            `json:"coordination_fee" yaml:"coordination_fee"`
}

// DefaultPayrollRates are the documented defaults applied when the store
// has no payroll profile.
func DefaultPayrollRates() PayrollRates {
	return PayrollRates{
		HourlyRate:      25,
		OvertimeFactor:  1.5,
		WeekendRate:     8,
		NightRate:       6,
		BenefitsFactor:  0.35,
		RatePerKm:       0.5,
		NightlyRate:     90,
		CoordinationFee: 40,
		SkillTierPremium: map[string]float64{
			"standard":  0,
			"advanced":  0.10,
			"expert":    0.20,
			"certified": 0.15,
		},
	}
}

// OptimizationRecord is one row of historical optimization results kept in
// the MetricsStore.
type OptimizationRecord struct {
	RunID         string  `json:"run_id" db:"run_id"`
	BestScore     float64 `json:"best_score" db:"best_score"`
	CoverageDelta float64 `json:"coverage_delta" db:"coverage_delta"`
	CostDelta     float64 `json:"cost_delta" db:"cost_delta"`
	Implemented   bool    `json:"implemented" db:"implemented"`
}
