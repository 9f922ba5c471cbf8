package pattern

import (
	"fmt"

	"github.com/fieldshift/schedopt/internal/domain"
)

// Fitness weights: coverage 0.40, cost 0.30, service level 0.20,
// complexity 0.10, with a flat penalty per hard violation.
const (
	fitCoverageWeight   = 0.40
	fitCostWeight       = 0.30
	fitServiceWeight    = 0.20
	fitComplexityWeight = 0.10
	hardViolationPenalty = 10.0

	maxShiftMinutes  = 12 * 60
	weeklyHoursFloor = 40 * 0.5
)

// archetypeSimplicity is the 0-10 simplicity base per archetype, shared
// with the scoring engine's simplicity component.
func archetypeSimplicity(p domain.PatternType) float64 {
	switch p {
	case domain.PatternTraditional:
		return 10
	case domain.PatternFlexible:
		return 8
	case domain.PatternPartTime:
		return 7.5
	case domain.PatternStaggered:
		return 7
	case domain.PatternPeakFocus:
		return 6.5
	case domain.PatternCompressed:
		return 6
	case domain.PatternWeekendFocus:
		return 5.5
	case domain.PatternSplitShift:
		return 4
	default:
		return 5
	}
}

// evaluator scores variants against the demand surface and baseline cost.
type evaluator struct {
	required      map[domain.Interval]int
	totalRequired int
	baselineCost  float64
	rates         domain.PayrollRates
	goals         domain.OptimizationGoals
}

func newEvaluator(gaps domain.GapReport, goals domain.OptimizationGoals, current []domain.ShiftBlock, rates domain.PayrollRates) *evaluator {
	required := gaps.RequiredByInterval()
	total := 0
	for _, r := range required {
		total += r
	}
	baselineHours := 0.0
	for _, b := range current {
		baselineHours += b.Hours()
	}
	baseline := baselineHours * rates.HourlyRate
	if baseline <= 0 {
		baseline = 1
	}
	return &evaluator{
		required:      required,
		totalRequired: total,
		baselineCost:  baseline,
		rates:         rates,
		goals:         goals,
	}
}

// evaluate fills the variant's cached metrics in place. The variant is not
// yet published to any other goroutine at this point.
func (e *evaluator) evaluate(v *domain.ScheduleVariant) {
	projGaps := e.projectedGaps(v)
	coverage := 1.0
	if e.totalRequired > 0 {
		coverage = 1 - float64(projGaps)/float64(e.totalRequired)
		if coverage < 0 {
			coverage = 0
		}
	}

	hours := 0.0
	for _, b := range v.Blocks {
		hours += b.Hours()
	}
	projCost := hours * e.rates.HourlyRate
	costRatio := projCost / e.baselineCost
	costScore := clamp01(1.5 - costRatio)

	// Service level degrades at twice the gap rate.
	service := clamp01(1 - 2*(1-coverage))

	complexity := archetypeSimplicity(v.Pattern) * 10

	violations := e.hardViolations(v)

	v.ProjectedGaps = projGaps
	v.ProjectedWeeklyCost = projCost
	v.Complexity = complexity
	v.ConstraintViolations = violations
	v.Fitness = fitCoverageWeight*coverage*100 +
		fitCostWeight*costScore*100 +
		fitServiceWeight*service*100 +
		fitComplexityWeight*complexity -
		hardViolationPenalty*float64(len(violations))
}

func (e *evaluator) projectedGaps(v *domain.ScheduleVariant) int {
	total := 0
	for iv, required := range e.required {
		scheduled := v.ScheduledHeadcount(iv)
		if gap := required - scheduled; gap > 0 {
			total += gap
		}
	}
	return total
}

// hardViolations flags structural rule breaks the search must avoid:
// shifts over 12 hours and weekly hours under half the 40-hour coverage
// target. Flagged violations also travel on the variant so downstream
// stages see them.
func (e *evaluator) hardViolations(v *domain.ScheduleVariant) []string {
	var violations []string
	for _, b := range v.Blocks {
		if b.EndMin-b.StartMin > maxShiftMinutes {
			violations = append(violations, fmt.Sprintf("shift_over_12h:%s:%s", b.EmployeeID, b.Date.Format("2006-01-02")))
		}
	}
	weekly := v.WeeklyHoursByEmployee()
	for _, id := range v.EmployeeIDs() {
		if weekly[id] < weeklyHoursFloor {
			violations = append(violations, fmt.Sprintf("weekly_hours_below_floor:%s", id))
		}
	}
	return violations
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
