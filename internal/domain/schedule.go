package domain

import (
	"fmt"
	"time"
)

// SkillID identifies a skill in the skill registry.
type SkillID string

// Priority classifies coverage requirements.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// CoverageRequirement is the forecast demand for one interval.
type CoverageRequirement struct {
	Interval          Interval  `json:"interval" yaml:"interval"`
	RequiredHeadcount int       `json:"required_headcount" yaml:"required_headcount"`
	RequiredSkills    []SkillID `json:"required_skills,omitempty" yaml:"required_skills,omitempty"`
	Priority          Priority  `json:"priority" yaml:"priority"`
}

// ShiftPart marks partial-shift assignments used by split archetypes.
type ShiftPart string

const (
	PartWhole      ShiftPart = "whole"
	PartFirstHalf  ShiftPart = "first_half"
	PartSecondHalf ShiftPart = "second_half"
)

// ShiftBlock is one contiguous assignment of an employee on a date.
// Start/End are minutes since local midnight; End may pass midnight
// (values above 1440) for overnight shifts.
type ShiftBlock struct {
	EmployeeID   string    `json:"employee_id" yaml:"employee_id" db:"employee_id"`
	Date         time.Time `json:"date" yaml:"date" db:"date"`
	StartMin     int       `json:"start_min" yaml:"start_min" db:"start_min"`
	EndMin       int       `json:"end_min" yaml:"end_min" db:"end_min"`
	BreakMinutes int       `json:"break_minutes" yaml:"break_minutes" db:"break_minutes"`
	AssignedSite string    `json:"assigned_site,omitempty" yaml:"assigned_site,omitempty" db:"assigned_site"`
	Part         ShiftPart `json:"shift_part,omitempty" yaml:"shift_part,omitempty" db:"shift_part"`
}

// Validate checks block shape. Overnight blocks may extend into the
// following day but never beyond it.
func (b ShiftBlock) Validate() error {
	if b.EmployeeID == "" {
		return fmt.Errorf("%w: shift block without employee", ErrInvalidInput)
	}
	if b.StartMin < 0 || b.EndMin > 2*MinutesPerDay || b.StartMin >= b.EndMin {
		return fmt.Errorf("%w: shift block %s has non-monotonic times [%d,%d)", ErrInvalidInput, b.EmployeeID, b.StartMin, b.EndMin)
	}
	return nil
}

// DurationMinutes is paid working time: span minus breaks.
func (b ShiftBlock) DurationMinutes() int {
	d := b.EndMin - b.StartMin - b.BreakMinutes
	if d < 0 {
		return 0
	}
	return d
}

// Hours is DurationMinutes expressed in hours.
func (b ShiftBlock) Hours() float64 { return float64(b.DurationMinutes()) / 60.0 }

// Overlaps reports whether two blocks intersect in wall-clock time.
func (b ShiftBlock) Overlaps(o ShiftBlock) bool {
	bs, be := b.absRange()
	os, oe := o.absRange()
	return bs < oe && os < be
}

func (b ShiftBlock) absRange() (int64, int64) {
	day := b.Date.Truncate(24 * time.Hour).Unix() / 60
	return day + int64(b.StartMin), day + int64(b.EndMin)
}

// CoversInterval reports whether the block spans any part of iv on its date.
func (b ShiftBlock) CoversInterval(iv Interval) bool {
	return b.StartMin < iv.End && iv.Start < b.EndMin
}

// NightMinutes counts minutes falling inside the night window 22:00-06:00.
func (b ShiftBlock) NightMinutes() int {
	const nightStart, nightEnd = 22 * 60, 6 * 60
	night := 0
	for m := b.StartMin; m < b.EndMin; m++ {
		mod := m % MinutesPerDay
		if mod >= nightStart || mod < nightEnd {
			night++
		}
	}
	return night
}

// IsWeekend reports whether the block's date is Saturday or Sunday.
func (b ShiftBlock) IsWeekend() bool {
	wd := b.Date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// EmploymentType classifies employees for hour norms and premiums.
type EmploymentType string

const (
	FullTime EmploymentType = "full_time"
	PartTime EmploymentType = "part_time"
	Contract EmploymentType = "contract"
)

// Employee is a read-only staffing input for one optimization run.
type Employee struct {
	ID                    string         `json:"id" yaml:"id" db:"id"`
	EmploymentType        EmploymentType `json:"employment_type" yaml:"employment_type" db:"employment_type"`
	WeeklyHoursNorm       float64        `json:"weekly_hours_norm" yaml:"weekly_hours_norm" db:"weekly_hours_norm"`
	WorkRate              float64        `json:"work_rate" yaml:"work_rate" db:"work_rate"`
	Skills                []SkillID      `json:"skills,omitempty" yaml:"skills,omitempty"`
	OvertimeAuthorization bool           `json:"overtime_authorization" yaml:"overtime_authorization" db:"overtime_authorization"`
	NightPermission       bool           `json:"night_permission" yaml:"night_permission" db:"night_permission"`
	WeekendPermission     bool           `json:"weekend_permission" yaml:"weekend_permission" db:"weekend_permission"`
	BaseSite              string         `json:"base_site" yaml:"base_site" db:"base_site"`
	CostCenterID          string         `json:"cost_center_id,omitempty" yaml:"cost_center_id,omitempty" db:"cost_center_id"`
	SalaryBand            string         `json:"salary_band,omitempty" yaml:"salary_band,omitempty" db:"salary_band"`
	PositionTitle         string         `json:"position_title" yaml:"position_title" db:"position_title"`
	TimeZone              string         `json:"time_zone" yaml:"time_zone" db:"time_zone"`
}

// HasSkill reports whether the employee carries the given skill.
func (e Employee) HasSkill(s SkillID) bool {
	for _, have := range e.Skills {
		if have == s {
			return true
		}
	}
	return false
}

// ShiftPreference is an employee scheduling preference loaded from the
// preferences registry.
type ShiftPreference struct {
	EmployeeID        string         `json:"employee_id" db:"employee_id"`
	PreferredStartMin int            `json:"preferred_start_min" db:"preferred_start_min"`
	PreferredEndMin   int            `json:"preferred_end_min" db:"preferred_end_min"`
	DaysOff           []time.Weekday `json:"days_off,omitempty"`
}

// Matches reports whether a block honors the preference within a 60 minute
// tolerance on either edge and avoids requested days off.
func (p ShiftPreference) Matches(b ShiftBlock) bool {
	for _, d := range p.DaysOff {
		if b.Date.Weekday() == d {
			return false
		}
	}
	const tolerance = 60
	return abs(b.StartMin-p.PreferredStartMin) <= tolerance && abs(b.EndMin-p.PreferredEndMin) <= tolerance
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// DateRange bounds one optimization run, inclusive of both ends.
type DateRange struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Contains reports whether t's date falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := t.Truncate(24 * time.Hour)
	return !d.Before(r.Start.Truncate(24*time.Hour)) && !d.After(r.End.Truncate(24*time.Hour))
}

// Days returns the number of calendar days covered.
func (r DateRange) Days() int {
	return int(r.End.Truncate(24*time.Hour).Sub(r.Start.Truncate(24*time.Hour))/(24*time.Hour)) + 1
}
