package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldshift/schedopt/internal/config"
	"github.com/fieldshift/schedopt/internal/domain"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(config.Default().Weights, nil, nil, nil)
	require.NoError(t, err)
	return e
}

func cleanMatrix(variantID string) domain.ComplianceMatrix {
	return domain.NewComplianceMatrix(variantID, nil, domain.SourceStore)
}

func okCost(variantID string, total float64) domain.FinancialImpact {
	return domain.FinancialImpact{
		VariantID:       variantID,
		TotalCost:       total,
		ComponentTotals: map[string]float64{"overtime": 0},
		Quality:         domain.CostOK,
	}
}

func TestNewEngineRejectsBadWeights(t *testing.T) {
	_, err := NewEngine(config.ScoringWeights{Coverage: 0.5, Cost: 0.5, Compliance: 0.5, Simplicity: 0.5}, nil, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestScoreZeroGapScheduleEarnsFullMarks(t *testing.T) {
	e := newTestEngine(t)
	v := domain.ScheduleVariant{ID: "var-a", Pattern: domain.PatternTraditional}

	ranked := e.Score(
		[]domain.ScheduleVariant{v},
		domain.GapReport{CoverageScore: 100},
		map[string]domain.FinancialImpact{"var-a": okCost("var-a", 0)},
		map[string]domain.ComplianceMatrix{"var-a": cleanMatrix("var-a")},
		Baseline{},
		domain.OptimizationGoals{},
	)

	require.Len(t, ranked.Suggestions, 1)
	top := ranked.Suggestions[0]
	assert.InDelta(t, 40.0, top.Breakdown.CoverageScore, 1e-9)
	assert.InDelta(t, 30.0, top.Breakdown.CostScore, 1e-9)
	assert.InDelta(t, 20.0, top.Breakdown.ComplianceScore, 1e-9)
	assert.InDelta(t, 10.0, top.Breakdown.SimplicityScore, 1e-9)
	assert.InDelta(t, 100.0, top.OverallScore, 1e-9)
	assert.Equal(t, domain.RiskLow, top.Risk)
	assert.Equal(t, domain.RecommendImplement, top.RecommendationLevel)
	assert.Equal(t, 1, top.Rank)
}

func TestScoreSplitShiftPaysSimplicityPenalty(t *testing.T) {
	e := newTestEngine(t)
	trad := domain.ScheduleVariant{ID: "var-trad", Pattern: domain.PatternTraditional}
	split := domain.ScheduleVariant{ID: "var-split", Pattern: domain.PatternSplitShift}

	ranked := e.Score(
		[]domain.ScheduleVariant{split, trad},
		domain.GapReport{CoverageScore: 100},
		map[string]domain.FinancialImpact{
			"var-trad":  okCost("var-trad", 1000),
			"var-split": okCost("var-split", 1000),
		},
		map[string]domain.ComplianceMatrix{
			"var-trad":  cleanMatrix("var-trad"),
			"var-split": cleanMatrix("var-split"),
		},
		Baseline{},
		domain.OptimizationGoals{},
	)

	require.Len(t, ranked.Suggestions, 2)
	assert.Equal(t, "var-trad", ranked.Suggestions[0].VariantID)
	diff := ranked.Suggestions[0].Breakdown.SimplicityScore - ranked.Suggestions[1].Breakdown.SimplicityScore
	assert.GreaterOrEqual(t, diff, 6.0)
}

func TestScoreGapReductionScales(t *testing.T) {
	e := newTestEngine(t)
	// Closes 4 of 10 gaps: 40% of the way to the 60% full-marks line.
	v := domain.ScheduleVariant{ID: "var-a", Pattern: domain.PatternTraditional, ProjectedGaps: 6}

	ranked := e.Score(
		[]domain.ScheduleVariant{v},
		domain.GapReport{TotalGaps: 10},
		map[string]domain.FinancialImpact{"var-a": okCost("var-a", 0)},
		map[string]domain.ComplianceMatrix{"var-a": cleanMatrix("var-a")},
		Baseline{},
		domain.OptimizationGoals{},
	)

	sub := ranked.Suggestions[0].Breakdown.Sub
	assert.InDelta(t, 0.4*15*5.0/3.0, sub[domain.SubGapReduction], 1e-9)
}

func TestScoreCostReductionAgainstBaseline(t *testing.T) {
	e := newTestEngine(t)
	v := domain.ScheduleVariant{ID: "var-a", Pattern: domain.PatternTraditional}
	cost := okCost("var-a", 900) // 10% below baseline meets the default goal

	ranked := e.Score(
		[]domain.ScheduleVariant{v},
		domain.GapReport{CoverageScore: 100},
		map[string]domain.FinancialImpact{"var-a": cost},
		map[string]domain.ComplianceMatrix{"var-a": cleanMatrix("var-a")},
		Baseline{TotalCost: 1000},
		domain.OptimizationGoals{},
	)

	sub := ranked.Suggestions[0].Breakdown.Sub
	assert.InDelta(t, 18.0, sub[domain.SubCostReduce], 1e-9)
	assert.InDelta(t, 12.0, sub[domain.SubOvertimeReduce], 1e-9) // no baseline overtime to cut
}

func TestScoreRetainsInfeasibleCostVariant(t *testing.T) {
	e := newTestEngine(t)
	v := domain.ScheduleVariant{ID: "var-a", Pattern: domain.PatternTraditional}
	infeasible := domain.FinancialImpact{
		VariantID:       "var-a",
		ComponentTotals: map[string]float64{},
		Quality:         domain.CostInfeasible,
	}

	ranked := e.Score(
		[]domain.ScheduleVariant{v},
		domain.GapReport{CoverageScore: 100},
		map[string]domain.FinancialImpact{"var-a": infeasible},
		map[string]domain.ComplianceMatrix{"var-a": cleanMatrix("var-a")},
		Baseline{},
		domain.OptimizationGoals{},
	)

	require.Len(t, ranked.Suggestions, 1, "infeasible variants stay in the ranking")
	top := ranked.Suggestions[0]
	assert.Zero(t, top.Breakdown.CostScore)
	assert.Equal(t, domain.RecommendPlanAccordingly, top.RecommendationLevel)
	assert.Equal(t, domain.RiskHigh, top.Risk)
}

func TestScoreViolationsDragComplianceAndRisk(t *testing.T) {
	e := newTestEngine(t)
	v := domain.ScheduleVariant{ID: "var-a", Pattern: domain.PatternTraditional}
	violations := []domain.Violation{
		{RuleID: "r1", Severity: domain.SeverityCritical, Category: domain.CategoryLaborLaw},
		{RuleID: "r1", Severity: domain.SeverityCritical, Category: domain.CategoryLaborLaw},
		{RuleID: "r1", Severity: domain.SeverityCritical, Category: domain.CategoryLaborLaw},
	}

	ranked := e.Score(
		[]domain.ScheduleVariant{v},
		domain.GapReport{CoverageScore: 100},
		map[string]domain.FinancialImpact{"var-a": okCost("var-a", 0)},
		map[string]domain.ComplianceMatrix{
			"var-a": domain.NewComplianceMatrix("var-a", violations, domain.SourceStore),
		},
		Baseline{},
		domain.OptimizationGoals{},
	)

	top := ranked.Suggestions[0]
	// labor sub: 70/100 x 10 = 7, plus full preference marks.
	assert.InDelta(t, 17.0, top.Breakdown.ComplianceScore, 1e-9)
	assert.NotEqual(t, domain.RiskHigh, top.Risk)

	assert.Equal(t, "4-6 weeks", implementationWindow(domain.ScoreBreakdown{ComplianceScore: 10, SimplicityScore: 9}))
}

func TestRankingTieBreaksOnVariantID(t *testing.T) {
	e := newTestEngine(t)
	a := domain.ScheduleVariant{ID: "var-a", Pattern: domain.PatternTraditional}
	b := domain.ScheduleVariant{ID: "var-b", Pattern: domain.PatternTraditional}

	ranked := e.Score(
		[]domain.ScheduleVariant{b, a},
		domain.GapReport{CoverageScore: 100},
		map[string]domain.FinancialImpact{"var-a": okCost("var-a", 0), "var-b": okCost("var-b", 0)},
		map[string]domain.ComplianceMatrix{"var-a": cleanMatrix("var-a"), "var-b": cleanMatrix("var-b")},
		Baseline{},
		domain.OptimizationGoals{},
	)

	require.Len(t, ranked.Suggestions, 2)
	assert.Equal(t, "var-a", ranked.Suggestions[0].VariantID)
	assert.Equal(t, []int{1, 2}, []int{ranked.Suggestions[0].Rank, ranked.Suggestions[1].Rank})
}

func TestComparisonMatrixTopThree(t *testing.T) {
	e := newTestEngine(t)
	variants := make([]domain.ScheduleVariant, 0, 4)
	costs := map[string]domain.FinancialImpact{}
	matrices := map[string]domain.ComplianceMatrix{}
	for _, id := range []string{"var-a", "var-b", "var-c", "var-d"} {
		variants = append(variants, domain.ScheduleVariant{ID: id, Pattern: domain.PatternTraditional})
		costs[id] = okCost(id, 0)
		matrices[id] = cleanMatrix(id)
	}

	ranked := e.Score(variants, domain.GapReport{CoverageScore: 100}, costs, matrices, Baseline{}, domain.OptimizationGoals{})

	assert.Len(t, ranked.Comparison.Entries, 3)
	assert.Equal(t, 1, ranked.Comparison.Entries[0].ImplementationWeeks)
	assert.NotEmpty(t, ranked.Methodology)
	assert.Contains(t, ranked.Summary, "var-a")
}

func TestPreferenceSatisfactionSubComponent(t *testing.T) {
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	prefs := map[string]domain.ShiftPreference{
		"e1": {EmployeeID: "e1", PreferredStartMin: 8 * 60, PreferredEndMin: 16 * 60},
	}
	e, err := NewEngine(config.Default().Weights, nil, nil, prefs)
	require.NoError(t, err)

	v := domain.ScheduleVariant{ID: "var-a", Pattern: domain.PatternTraditional, Blocks: []domain.ShiftBlock{
		{EmployeeID: "e1", Date: monday, StartMin: 8 * 60, EndMin: 16 * 60}, // matches
		{EmployeeID: "e1", Date: monday.AddDate(0, 0, 1), StartMin: 12 * 60, EndMin: 20 * 60}, // ignores
	}}

	ranked := e.Score(
		[]domain.ScheduleVariant{v},
		domain.GapReport{CoverageScore: 100},
		map[string]domain.FinancialImpact{"var-a": okCost("var-a", 0)},
		map[string]domain.ComplianceMatrix{"var-a": cleanMatrix("var-a")},
		Baseline{},
		domain.OptimizationGoals{},
	)

	sub := ranked.Suggestions[0].Breakdown.Sub
	assert.InDelta(t, 5.0, sub[domain.SubPreferenceSat], 1e-9)
}

// directoryStub backs NewEngineFromStore tests without a live store.
type directoryStub struct {
	employees []domain.Employee
	skills    map[string][]domain.SkillID
	prefs     map[string]domain.ShiftPreference
	fail      bool
}

func (d directoryStub) GetEmployeeProfiles(context.Context, []string) ([]domain.Employee, error) {
	if d.fail {
		return nil, domain.ErrStoreUnavailable
	}
	return d.employees, nil
}

func (d directoryStub) GetEmployeeSkills(context.Context) (map[string][]domain.SkillID, error) {
	if d.fail {
		return nil, domain.ErrStoreUnavailable
	}
	return d.skills, nil
}

func (d directoryStub) GetEmployeePreferences(context.Context) (map[string]domain.ShiftPreference, error) {
	if d.fail {
		return nil, domain.ErrStoreUnavailable
	}
	return d.prefs, nil
}

func TestNewEngineFromStoreLoadsDirectories(t *testing.T) {
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	stub := directoryStub{
		prefs: map[string]domain.ShiftPreference{
			"e1": {EmployeeID: "e1", PreferredStartMin: 8 * 60, PreferredEndMin: 16 * 60},
		},
	}
	e, err := NewEngineFromStore(context.Background(), config.Default().Weights, stub)
	require.NoError(t, err)

	v := domain.ScheduleVariant{ID: "var-a", Pattern: domain.PatternTraditional, Blocks: []domain.ShiftBlock{
		{EmployeeID: "e1", Date: monday, StartMin: 12 * 60, EndMin: 20 * 60},
	}}
	ranked := e.Score(
		[]domain.ScheduleVariant{v},
		domain.GapReport{CoverageScore: 100},
		map[string]domain.FinancialImpact{"var-a": okCost("var-a", 0)},
		map[string]domain.ComplianceMatrix{"var-a": cleanMatrix("var-a")},
		Baseline{},
		domain.OptimizationGoals{},
	)

	// The store-loaded preference is violated by the noon start.
	sub := ranked.Suggestions[0].Breakdown.Sub
	assert.InDelta(t, 0.0, sub[domain.SubPreferenceSat], 1e-9)
}

func TestNewEngineFromStoreSurvivesStoreFailure(t *testing.T) {
	e, err := NewEngineFromStore(context.Background(), config.Default().Weights, directoryStub{fail: true})
	require.NoError(t, err)

	v := domain.ScheduleVariant{ID: "var-a", Pattern: domain.PatternTraditional}
	ranked := e.Score(
		[]domain.ScheduleVariant{v},
		domain.GapReport{CoverageScore: 100},
		map[string]domain.FinancialImpact{"var-a": okCost("var-a", 0)},
		map[string]domain.ComplianceMatrix{"var-a": cleanMatrix("var-a")},
		Baseline{},
		domain.OptimizationGoals{},
	)

	// Missing directories default sub-components to full marks.
	assert.InDelta(t, 100.0, ranked.Suggestions[0].OverallScore, 1e-9)
}
