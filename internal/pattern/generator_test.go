package pattern

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldshift/schedopt/internal/config"
	"github.com/fieldshift/schedopt/internal/domain"
	"github.com/fieldshift/schedopt/internal/gap"
)

func testPatternConfig() config.PatternConfig {
	cfg := config.Default().Pattern
	cfg.MaxGenerations = 5
	return cfg
}

// testInputs builds a small understaffed week: two agents on duty, three
// required across the business day.
func testInputs(t *testing.T) ([]domain.ShiftBlock, domain.GapReport) {
	t.Helper()
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	var blocks []domain.ShiftBlock
	for d := 0; d < 5; d++ {
		for _, id := range []string{"e1", "e2"} {
			blocks = append(blocks, domain.ShiftBlock{
				EmployeeID: id, Date: monday.AddDate(0, 0, d),
				StartMin: 8 * 60, EndMin: 16*60 + 30, BreakMinutes: 30,
			})
		}
	}
	forecast := map[domain.Interval]int{}
	for m := 8 * 60; m < 17*60; m += 15 {
		forecast[domain.NewInterval(m, m+15)] = 3
	}
	report := gap.NewAnalyzer(config.Default().Gap).Analyze(
		forecast, gap.ScheduledHeadcount(blocks, intervalKeys(forecast)))
	return blocks, report
}

func intervalKeys(m map[domain.Interval]int) []domain.Interval {
	out := make([]domain.Interval, 0, len(m))
	for iv := range m {
		out = append(out, iv)
	}
	domain.SortIntervals(out)
	return out
}

func testWindow() domain.DateRange {
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	return domain.DateRange{Start: monday, End: monday.AddDate(0, 0, 6)}
}

func TestGenerateIsDeterministicForFixedSeed(t *testing.T) {
	blocks, report := testInputs(t)
	goals := domain.OptimizationGoals{CostDeltaPct: 0.10}

	run := func() Result {
		g := NewGenerator(testPatternConfig(), domain.DefaultPayrollRates())
		result, err := g.Generate(context.Background(), blocks, report, goals, testWindow(), rand.New(rand.NewSource(42)))
		require.NoError(t, err)
		return result
	}
	first, second := run(), run()

	require.Equal(t, len(first.Variants), len(second.Variants))
	for i := range first.Variants {
		assert.Equal(t, first.Variants[i].ID, second.Variants[i].ID)
		assert.Equal(t, first.Variants[i].Fitness, second.Variants[i].Fitness)
		assert.Equal(t, first.Variants[i].Blocks, second.Variants[i].Blocks)
	}
	assert.Equal(t, first.Generations, second.Generations)
}

func TestGenerateOutputShape(t *testing.T) {
	blocks, report := testInputs(t)
	g := NewGenerator(testPatternConfig(), domain.DefaultPayrollRates())

	result, err := g.Generate(context.Background(), blocks, report, domain.OptimizationGoals{}, testWindow(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	require.NotEmpty(t, result.Variants)
	assert.LessOrEqual(t, len(result.Variants), 5)

	types := map[domain.PatternType]bool{}
	for _, v := range result.Variants {
		require.NoError(t, v.Validate())
		assert.NotEmpty(t, v.Blocks)
		types[v.Pattern] = true
	}
	assert.GreaterOrEqual(t, len(types), 3, "output must span distinct archetypes")
}

func TestGenerateKeepsBlocksInsideWindow(t *testing.T) {
	blocks, report := testInputs(t)
	g := NewGenerator(testPatternConfig(), domain.DefaultPayrollRates())
	window := testWindow()

	result, err := g.Generate(context.Background(), blocks, report, domain.OptimizationGoals{}, window, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	for _, v := range result.Variants {
		for _, b := range v.Blocks {
			assert.True(t, window.Contains(b.Date),
				"variant %s schedules %s outside the run window", v.ID, b.Date.Format("2006-01-02"))
			if b.Hours() > 12 {
				assert.NotEmpty(t, v.ConstraintViolations,
					"variant %s has a %0.1fh shift but no recorded violation", v.ID, b.Hours())
			}
		}
	}
}

func TestGenerateDegradesOnExpiredContext(t *testing.T) {
	blocks, report := testInputs(t)
	g := NewGenerator(testPatternConfig(), domain.DefaultPayrollRates())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := g.Generate(ctx, blocks, report, domain.OptimizationGoals{}, testWindow(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Equal(t, 0, result.Generations)
	assert.NotEmpty(t, result.Variants, "degraded runs still return the seeded elite")
}

func TestGenerateRequiresRandomSource(t *testing.T) {
	blocks, report := testInputs(t)
	g := NewGenerator(testPatternConfig(), domain.DefaultPayrollRates())

	_, err := g.Generate(context.Background(), blocks, report, domain.OptimizationGoals{}, testWindow(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGenerateRejectsInvalidBlocks(t *testing.T) {
	_, report := testInputs(t)
	g := NewGenerator(testPatternConfig(), domain.DefaultPayrollRates())
	bad := []domain.ShiftBlock{{EmployeeID: "", StartMin: 0, EndMin: 60}}

	_, err := g.Generate(context.Background(), bad, report, domain.OptimizationGoals{}, testWindow(), rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSeedPopulationCoversArchetypes(t *testing.T) {
	blocks, report := testInputs(t)
	g := NewGenerator(testPatternConfig(), domain.DefaultPayrollRates())

	population := g.seedPopulation(blocks, report, testWindow())
	require.Len(t, population, testPatternConfig().PopulationSize)

	counts := map[domain.PatternType]int{}
	for _, v := range population {
		counts[v.Pattern]++
	}
	for _, p := range domain.PatternTypes() {
		assert.Greater(t, counts[p], 0, "archetype %s missing from seed population", p)
	}
	assert.Equal(t, 10, counts[domain.PatternTraditional])
	assert.Equal(t, 10, counts[domain.PatternFlexible])
}

func TestMergeAdjacentBlocks(t *testing.T) {
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	blocks := []domain.ShiftBlock{
		{EmployeeID: "e1", Date: monday, StartMin: 8 * 60, EndMin: 12 * 60},
		{EmployeeID: "e1", Date: monday, StartMin: 12 * 60, EndMin: 16 * 60},
		{EmployeeID: "e2", Date: monday, StartMin: 8 * 60, EndMin: 16 * 60},
	}
	merged := mergeAdjacent(blocks, 0)

	require.Len(t, merged, 2)
	for _, b := range merged {
		if b.EmployeeID == "e1" {
			assert.Equal(t, 8*60, b.StartMin)
			assert.Equal(t, 16*60, b.EndMin)
		}
	}
}
