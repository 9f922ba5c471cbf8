package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// PatternType names a shift-layout archetype.
type PatternType string

const (
	PatternTraditional  PatternType = "traditional"
	PatternFlexible     PatternType = "flexible"
	PatternStaggered    PatternType = "staggered"
	PatternSplitShift   PatternType = "split_shift"
	PatternCompressed   PatternType = "compressed"
	PatternPartTime     PatternType = "part_time"
	PatternPeakFocus    PatternType = "peak_focus"
	PatternWeekendFocus PatternType = "weekend_focus"
)

// PatternTypes lists all archetypes in canonical order.
func PatternTypes() []PatternType {
	return []PatternType{
		PatternTraditional, PatternFlexible, PatternStaggered, PatternSplitShift,
		PatternCompressed, PatternPartTime, PatternPeakFocus, PatternWeekendFocus,
	}
}

// KnownPattern reports whether p is a recognized archetype.
func KnownPattern(p PatternType) bool {
	for _, known := range PatternTypes() {
		if p == known {
			return true
		}
	}
	return false
}

// ScheduleVariant is one candidate schedule. Variants are immutable once
// scored; any mutation goes through WithBlocks, which assigns a fresh ID.
type ScheduleVariant struct {
	ID         string      `json:"variant_id"`
	Pattern    PatternType `json:"pattern_type"`
	Generation int         `json:"generation"`
	Blocks     []ShiftBlock `json:"blocks"`

	// Cached metrics filled by the generator and enriched downstream.
	Fitness             float64 `json:"fitness"`
	ProjectedGaps       int     `json:"projected_gaps"`
	ProjectedWeeklyCost float64 `json:"projected_weekly_cost"`
	Complexity          float64 `json:"complexity"`

	ConstraintViolations []string `json:"constraint_violations,omitempty"`
}

// NewVariant creates a variant over a copy of blocks.
func NewVariant(pattern PatternType, generation int, blocks []ShiftBlock) ScheduleVariant {
	return ScheduleVariant{
		ID:         uuid.NewString(),
		Pattern:    pattern,
		Generation: generation,
		Blocks:     append([]ShiftBlock(nil), blocks...),
	}
}

// WithBlocks derives a new variant carrying the given blocks. The cached
// metrics are reset; the caller recomputes them.
func (v ScheduleVariant) WithBlocks(blocks []ShiftBlock, generation int) ScheduleVariant {
	return ScheduleVariant{
		ID:         uuid.NewString(),
		Pattern:    v.Pattern,
		Generation: generation,
		Blocks:     append([]ShiftBlock(nil), blocks...),
	}
}

// Validate checks variant shape for stage-boundary input validation.
func (v ScheduleVariant) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("%w: variant without id", ErrInvalidInput)
	}
	if !KnownPattern(v.Pattern) {
		return fmt.Errorf("%w: unknown pattern archetype %q", ErrInvalidInput, v.Pattern)
	}
	for _, b := range v.Blocks {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("variant %s: %w", v.ID, err)
		}
	}
	return nil
}

// EmployeeIDs returns the distinct employees referenced by the variant,
// in first-appearance order.
func (v ScheduleVariant) EmployeeIDs() []string {
	seen := make(map[string]bool, len(v.Blocks))
	ids := make([]string, 0, len(v.Blocks))
	for _, b := range v.Blocks {
		if !seen[b.EmployeeID] {
			seen[b.EmployeeID] = true
			ids = append(ids, b.EmployeeID)
		}
	}
	return ids
}

// WeeklyHoursByEmployee aggregates paid hours per employee.
func (v ScheduleVariant) WeeklyHoursByEmployee() map[string]float64 {
	hours := make(map[string]float64)
	for _, b := range v.Blocks {
		hours[b.EmployeeID] += b.Hours()
	}
	return hours
}

// ScheduledHeadcount counts employees covering iv on any date.
func (v ScheduleVariant) ScheduledHeadcount(iv Interval) int {
	perDay := make(map[int64]map[string]bool)
	for _, b := range v.Blocks {
		if !b.CoversInterval(iv) {
			continue
		}
		day := b.Date.Truncate(24 * 3600e9).Unix()
		if perDay[day] == nil {
			perDay[day] = make(map[string]bool)
		}
		perDay[day][b.EmployeeID] = true
	}
	// Headcount for a recurring interval is the weakest day.
	if len(perDay) == 0 {
		return 0
	}
	minCount := -1
	for _, emps := range perDay {
		if minCount < 0 || len(emps) < minCount {
			minCount = len(emps)
		}
	}
	return minCount
}
