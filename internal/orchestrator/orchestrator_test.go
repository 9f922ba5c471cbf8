package orchestrator

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldshift/schedopt/internal/config"
	"github.com/fieldshift/schedopt/internal/constraint"
	"github.com/fieldshift/schedopt/internal/cost"
	"github.com/fieldshift/schedopt/internal/domain"
	"github.com/fieldshift/schedopt/internal/gap"
	"github.com/fieldshift/schedopt/internal/pattern"
	"github.com/fieldshift/schedopt/internal/scoring"
)

func testOrchestrator(t *testing.T, cfg config.Config, generator PatternStage, runStore RunStore) *Orchestrator {
	t.Helper()
	engine, err := scoring.NewEngine(cfg.Weights, nil, nil, nil)
	require.NoError(t, err)
	if generator == nil {
		generator = pattern.NewGenerator(cfg.Pattern, cfg.Payroll)
	}
	o, err := New(cfg, nil, runStore,
		gap.NewAnalyzer(cfg.Gap),
		generator,
		constraint.NewValidator(nil),
		cost.NewCalculator(nil, cfg.Payroll),
		engine,
		nil,
	)
	require.NoError(t, err)
	return o
}

func testRequest() RunRequest {
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	req := RunRequest{
		RequestID: "run-1",
		Service:   "support",
		Mode:      ModePhased,
		Seed:      42,
		Range:     domain.DateRange{Start: monday, End: monday.AddDate(0, 0, 6)},
	}
	for m := 8 * 60; m < 17*60; m += 15 {
		req.Requirements = append(req.Requirements, domain.CoverageRequirement{
			Interval:          domain.NewInterval(m, m+15),
			RequiredHeadcount: 3,
		})
	}
	for d := 0; d < 5; d++ {
		for _, id := range []string{"e1", "e2"} {
			req.CurrentSchedule = append(req.CurrentSchedule, domain.ShiftBlock{
				EmployeeID: id, Date: monday.AddDate(0, 0, d),
				StartMin: 8 * 60, EndMin: 16*60 + 30, BreakMinutes: 30,
			})
		}
	}
	return req
}

func fastConfig() config.Config {
	cfg := config.Default()
	cfg.Pattern.MaxGenerations = 3
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	o := testOrchestrator(t, fastConfig(), nil, nil)

	result, err := o.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Contains(t, []RunStatus{StatusOK, StatusDegraded}, result.Status)
	assert.Less(t, result.ProcessingTimeMS, int64(60000))
	require.NotEmpty(t, result.Suggestions.Suggestions)

	for _, s := range result.Suggestions.Suggestions {
		assert.Contains(t, result.Validations, s.VariantID)
		assert.Contains(t, result.Costs, s.VariantID)
		assert.GreaterOrEqual(t, s.OverallScore, 0.0)
		assert.LessOrEqual(t, s.OverallScore, 100.0)
	}

	assert.Contains(t, result.AlgorithmsUsed, "evolutionary_pattern_search")
	assert.Contains(t, result.AlgorithmsUsed, "weighted_composite_scoring")
	// Storeless runs validate against the built-in rule set, which costs
	// 15 data-quality points.
	assert.InDelta(t, 85.0, result.DataQuality, 1e-9)
	assert.Contains(t, result.Warnings, "constraint rules came from the built-in fallback set")
	assert.GreaterOrEqual(t, result.RecommendationConfidence, 80.0)
	assert.LessOrEqual(t, result.RecommendationConfidence, 100.0)
	assert.Greater(t, result.Baseline.TotalCost, 0.0)
	assert.NotEmpty(t, result.Plan.Phases)
}

func TestRunIsDeterministicForFixedSeed(t *testing.T) {
	req := testRequest()

	run := func() RunResult {
		result, err := testOrchestrator(t, fastConfig(), nil, nil).Run(context.Background(), req)
		require.NoError(t, err)
		return result
	}
	first, second := run(), run()

	require.Equal(t, len(first.Suggestions.Suggestions), len(second.Suggestions.Suggestions))
	for i := range first.Suggestions.Suggestions {
		assert.Equal(t, first.Suggestions.Suggestions[i].VariantID, second.Suggestions.Suggestions[i].VariantID)
		assert.Equal(t, first.Suggestions.Suggestions[i].OverallScore, second.Suggestions.Suggestions[i].OverallScore)
	}
}

func TestRunRejectsInvalidRequests(t *testing.T) {
	o := testOrchestrator(t, fastConfig(), nil, nil)

	cases := []RunRequest{
		{},
		{RequestID: "r", Mode: "big_bang"},
		{RequestID: "r", Mode: ModePhased},
	}
	for _, req := range cases {
		_, err := o.Run(context.Background(), req)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

// slowGenerator blocks until its stage budget expires, then hands back a
// degraded single-variant elite set.
type slowGenerator struct{ variant domain.ScheduleVariant }

func (g slowGenerator) Generate(ctx context.Context, _ []domain.ShiftBlock, _ domain.GapReport, _ domain.OptimizationGoals, _ domain.DateRange, _ *rand.Rand) (pattern.Result, error) {
	<-ctx.Done()
	return pattern.Result{
		Variants: []domain.ScheduleVariant{g.variant},
		Degraded: true,
	}, nil
}

func TestRunDegradesWhenGeneratorOverrunsBudget(t *testing.T) {
	cfg := fastConfig()
	cfg.Budgets.Pattern = 50 * time.Millisecond
	cfg.Budgets.Run = 2 * time.Second

	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	variant := domain.NewVariant(domain.PatternTraditional, 1, []domain.ShiftBlock{
		{EmployeeID: "e1", Date: monday, StartMin: 8 * 60, EndMin: 16 * 60},
	})
	o := testOrchestrator(t, cfg, slowGenerator{variant: variant}, nil)

	result, err := o.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, StatusDegraded, result.Status)
	assert.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.AlgorithmsUsed, "evolutionary_pattern_search")
	require.Len(t, result.Suggestions.Suggestions, 1)
	assert.Equal(t, variant.ID, result.Suggestions.Suggestions[0].VariantID)
	assert.Less(t, result.ProcessingTimeMS, int64(60000))
}

// skillDirectory is a RunStore stub that only answers the skill lookup.
type skillDirectory map[string][]domain.SkillID

func (d skillDirectory) GetEmployeeSkills(context.Context) (map[string][]domain.SkillID, error) {
	return d, nil
}
func (skillDirectory) GetCoverageAnalysis(context.Context) (*domain.GapReport, error) {
	return nil, domain.ErrStoreUnavailable
}
func (skillDirectory) GetOptimizationHistory(context.Context, int) ([]domain.OptimizationRecord, error) {
	return nil, domain.ErrStoreUnavailable
}
func (skillDirectory) GetKpiTarget(context.Context, string) (float64, error) {
	return 0, domain.ErrStoreUnavailable
}

func TestBulkApplyFlagsDoubleBookedEmployees(t *testing.T) {
	o := testOrchestrator(t, fastConfig(), nil, nil)
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	a := domain.NewVariant(domain.PatternTraditional, 1, []domain.ShiftBlock{
		{EmployeeID: "e1", Date: monday, StartMin: 8 * 60, EndMin: 16 * 60},
	})
	b := domain.NewVariant(domain.PatternFlexible, 1, []domain.ShiftBlock{
		{EmployeeID: "e1", Date: monday, StartMin: 12 * 60, EndMin: 20 * 60},
	})

	result, err := o.BulkApply(context.Background(), BulkRequest{
		RequestID: "bulk-1", Mode: ModePhased,
		Variants: []domain.ScheduleVariant{a, b},
	})
	require.NoError(t, err)

	require.Len(t, result.ConflictReport.EmployeeConflicts, 1)
	conflict := result.ConflictReport.EmployeeConflicts[0]
	assert.Equal(t, "e1", conflict.EmployeeID)
	assert.WithinDuration(t, monday, conflict.Date, 0)
	assert.Equal(t, domain.NewInterval(12*60, 16*60), conflict.Interval)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, conflict.VariantIDs)
	assert.Contains(t, []domain.RiskLevel{domain.RiskMedium, domain.RiskHigh}, result.Risk)

	require.Len(t, result.RollbackPlan.Triggers, 3)
	windows := make([]string, 0, 3)
	for _, trigger := range result.RollbackPlan.Triggers {
		windows = append(windows, trigger.DetectionWindow)
		assert.NotEmpty(t, trigger.Detection)
		assert.NotEmpty(t, trigger.RecoverySteps)
	}
	assert.Equal(t, []string{"1h", "1d", "1w"}, windows)
}

func TestBulkApplySkillCoverage(t *testing.T) {
	directory := skillDirectory{
		"e1": {"chat"},
		"e2": {"chat", "billing"},
	}
	o := testOrchestrator(t, fastConfig(), nil, directory)
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	v := domain.NewVariant(domain.PatternTraditional, 1, []domain.ShiftBlock{
		{EmployeeID: "e1", Date: monday, StartMin: 8 * 60, EndMin: 16 * 60},
	})

	result, err := o.BulkApply(context.Background(), BulkRequest{
		RequestID: "bulk-2", Mode: ModePhased,
		Variants: []domain.ScheduleVariant{v},
		Constraints: BulkConstraints{
			RequiredSkills: []domain.SkillID{"chat", "medical_triage"},
		},
	})
	require.NoError(t, err)

	assert.False(t, result.Resources.Available)
	assert.Equal(t, []domain.SkillID{"medical_triage"}, result.Resources.MissingSkills)
	require.Len(t, result.Resources.TrainingNeeds, 1)
	assert.Contains(t, result.Resources.TrainingNeeds[0], "medical_triage")
	// Missing resources (+2) plus a low-regularity set (+1) push risk high.
	assert.Equal(t, domain.RiskHigh, result.Risk)
}

func TestBulkApplyCombinedImpact(t *testing.T) {
	o := testOrchestrator(t, fastConfig(), nil, nil)
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	a := domain.NewVariant(domain.PatternStaggered, 1, []domain.ShiftBlock{
		{EmployeeID: "e1", Date: monday, StartMin: 7 * 60, EndMin: 15 * 60},
	})
	a.ProjectedGaps, a.ProjectedWeeklyCost, a.Complexity = 3, 400, 60
	b := domain.NewVariant(domain.PatternFlexible, 1, []domain.ShiftBlock{
		{EmployeeID: "e2", Date: monday.AddDate(0, 0, 1), StartMin: 9 * 60, EndMin: 17 * 60},
	})
	b.ProjectedGaps, b.ProjectedWeeklyCost, b.Complexity = 5, 500, 40

	result, err := o.BulkApply(context.Background(), BulkRequest{
		RequestID: "bulk-3", Mode: ModePilot,
		Variants: []domain.ScheduleVariant{a, b},
		Constraints: BulkConstraints{
			BudgetCeiling:      2000,
			BaselineWeeklyCost: 1200,
			BaselineOpenGaps:   9,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 10, result.Impact.CoverageDelta)
	assert.InDelta(t, 1500.0, result.Impact.CostSavings, 1e-9)
	assert.Equal(t, 2, result.Impact.EmployeesAffected)
	assert.InDelta(t, 50.0, result.Impact.AverageComplexity, 1e-9)
	assert.True(t, result.BudgetOK)
	assert.Equal(t, domain.RiskLow, result.Risk)
}

func TestBulkApplyBudgetCeiling(t *testing.T) {
	o := testOrchestrator(t, fastConfig(), nil, nil)
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	v := domain.NewVariant(domain.PatternTraditional, 1, []domain.ShiftBlock{
		{EmployeeID: "e1", Date: monday, StartMin: 8 * 60, EndMin: 16 * 60},
	})
	v.ProjectedWeeklyCost = 1500 // over the default 1000 ceiling

	result, err := o.BulkApply(context.Background(), BulkRequest{
		RequestID: "bulk-4", Mode: ModePhased,
		Variants: []domain.ScheduleVariant{v},
	})
	assert.ErrorIs(t, err, domain.ErrBudgetExceeded)
	assert.False(t, result.BudgetOK)
	assert.InDelta(t, 1000.0, result.BudgetCeiling, 1e-9)

	// A negative ceiling disables the check.
	result, err = o.BulkApply(context.Background(), BulkRequest{
		RequestID: "bulk-5", Mode: ModePhased,
		Variants:    []domain.ScheduleVariant{v},
		Constraints: BulkConstraints{BudgetCeiling: -1},
	})
	require.NoError(t, err)
	assert.True(t, result.BudgetOK)
}

func TestBulkApplyTimelinePerMode(t *testing.T) {
	o := testOrchestrator(t, fastConfig(), nil, nil)
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	v := domain.NewVariant(domain.PatternTraditional, 1, []domain.ShiftBlock{
		{EmployeeID: "e1", Date: monday, StartMin: 8 * 60, EndMin: 16 * 60},
	})
	v.Complexity = 100 // traditional archetype regularity

	cases := []struct {
		mode     RunMode
		weeks    int
		feasible bool
	}{
		{ModeImmediateFull, 1, true},
		{ModePhased, 3, true},
		{ModePilot, 4, true},
	}
	for _, tc := range cases {
		result, err := o.BulkApply(context.Background(), BulkRequest{
			RequestID: "bulk", Mode: tc.mode,
			Variants: []domain.ScheduleVariant{v},
		})
		require.NoError(t, err)
		assert.Equal(t, tc.weeks, result.TimelineWeeks, "mode %s", tc.mode)
		assert.Equal(t, tc.feasible, result.TimelineFeasible, "mode %s", tc.mode)
	}
}

func TestBuildPlanModes(t *testing.T) {
	ranked := domain.RankedSuggestions{Suggestions: []domain.OptimizationScore{
		{VariantID: "var-a", Pattern: domain.PatternTraditional, OverallScore: 92},
	}}

	immediate := buildPlan(ModeImmediateFull, ranked, 12)
	assert.Len(t, immediate.Phases, 1)

	pilot := buildPlan(ModePilot, ranked, 12)
	require.Len(t, pilot.Phases, 3)
	assert.Equal(t, "pilot run", pilot.Phases[1].Name)

	empty := buildPlan(ModePhased, domain.RankedSuggestions{}, 0)
	require.Len(t, empty.Phases, 1)
	assert.Equal(t, "review", empty.Phases[0].Name)
	assert.NotEmpty(t, empty.SuccessCriteria)
}
