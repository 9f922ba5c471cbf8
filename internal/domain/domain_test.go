package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInterval(t *testing.T) {
	iv, err := ParseInterval("08:00-08:15")
	require.NoError(t, err)
	assert.Equal(t, Interval{Start: 480, End: 495}, iv)
	assert.Equal(t, "08:00-08:15", iv.Label())
	assert.Equal(t, 0.25, iv.Hours())

	for _, bad := range []string{"", "8am-9am", "09:00-08:00", "23:00-25:00"} {
		_, err := ParseInterval(bad)
		assert.Error(t, err, "label %q", bad)
	}
}

func TestDayGridDividesDay(t *testing.T) {
	grid := DayGrid(15)
	require.Len(t, grid, 96)
	assert.Equal(t, Interval{Start: 0, End: 15}, grid[0])
	assert.Equal(t, Interval{Start: 1425, End: 1440}, grid[95])
}

func TestShiftBlockValidate(t *testing.T) {
	date := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	ok := ShiftBlock{EmployeeID: "e1", Date: date, StartMin: 480, EndMin: 990, BreakMinutes: 30}
	require.NoError(t, ok.Validate())
	assert.Equal(t, 480, ok.DurationMinutes())
	assert.Equal(t, 8.0, ok.Hours())

	bad := []ShiftBlock{
		{Date: date, StartMin: 480, EndMin: 990},                       // no employee
		{EmployeeID: "e1", Date: date, StartMin: 600, EndMin: 600},     // empty span
		{EmployeeID: "e1", Date: date, StartMin: 600, EndMin: 3000},    // past next midnight
	}
	for _, b := range bad {
		assert.ErrorIs(t, b.Validate(), ErrInvalidInput)
	}
}

func TestShiftBlockNightMinutes(t *testing.T) {
	date := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	overnight := ShiftBlock{EmployeeID: "e1", Date: date, StartMin: 21 * 60, EndMin: 26 * 60}
	// 22:00-24:00 plus 00:00-02:00 of the next day.
	assert.Equal(t, 4*60, overnight.NightMinutes())

	daytime := ShiftBlock{EmployeeID: "e1", Date: date, StartMin: 9 * 60, EndMin: 17 * 60}
	assert.Zero(t, daytime.NightMinutes())
}

func TestVariantScheduledHeadcountUsesWeakestDay(t *testing.T) {
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	v := NewVariant(PatternTraditional, 0, []ShiftBlock{
		{EmployeeID: "e1", Date: monday, StartMin: 480, EndMin: 960},
		{EmployeeID: "e2", Date: monday, StartMin: 480, EndMin: 960},
		{EmployeeID: "e1", Date: monday.AddDate(0, 0, 1), StartMin: 480, EndMin: 960},
	})
	assert.Equal(t, 1, v.ScheduledHeadcount(Interval{Start: 540, End: 555}))
	assert.Zero(t, v.ScheduledHeadcount(Interval{Start: 1000, End: 1015}))
}

func TestWithBlocksResetsCachedMetrics(t *testing.T) {
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	v := NewVariant(PatternFlexible, 1, []ShiftBlock{
		{EmployeeID: "e1", Date: monday, StartMin: 480, EndMin: 960},
	})
	v.Fitness = 80
	v.ProjectedGaps = 4

	derived := v.WithBlocks(v.Blocks, 2)
	assert.NotEqual(t, v.ID, derived.ID)
	assert.Equal(t, 2, derived.Generation)
	assert.Zero(t, derived.Fitness)
	assert.Zero(t, derived.ProjectedGaps)
}

func TestComplianceMatrixPenaltyCap(t *testing.T) {
	violations := make([]Violation, 0, 12)
	for i := 0; i < 12; i++ {
		violations = append(violations, Violation{Severity: SeverityCritical, Category: CategoryLaborLaw})
	}
	m := NewComplianceMatrix("var-a", violations, SourceStore)

	// 12 x 10 points would overshoot; the penalty caps at 100.
	assert.Zero(t, m.ComplianceScore)
	assert.Zero(t, m.CompliancePoints())
	assert.Equal(t, 12, m.CriticalCount())
}

func TestShiftPreferenceMatches(t *testing.T) {
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	saturday := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	pref := ShiftPreference{
		EmployeeID:        "e1",
		PreferredStartMin: 480,
		PreferredEndMin:   960,
		DaysOff:           []time.Weekday{time.Saturday},
	}

	assert.True(t, pref.Matches(ShiftBlock{EmployeeID: "e1", Date: monday, StartMin: 540, EndMin: 1020}))
	assert.False(t, pref.Matches(ShiftBlock{EmployeeID: "e1", Date: monday, StartMin: 600, EndMin: 1080}))
	assert.False(t, pref.Matches(ShiftBlock{EmployeeID: "e1", Date: saturday, StartMin: 480, EndMin: 960}))
}

func TestGapReportPeakIntervals(t *testing.T) {
	report := GapReport{Intervals: []IntervalGap{
		{Interval: Interval{Start: 480, End: 495}, Severity: GapCritical},
		{Interval: Interval{Start: 495, End: 510}, Severity: GapHigh},
		{Interval: Interval{Start: 510, End: 525}, Severity: GapLow},
	}}
	assert.Len(t, report.PeakIntervals(), 2)
}
