// Package constraint validates schedule variants against labor law,
// contract, union, business, and preference rules. Declarative rule rows
// from the MetricsStore compile into a closed set of typed predicates; the
// evaluator pattern-matches on them over memoized derived quantities.
package constraint

import (
	"fmt"

	"github.com/fieldshift/schedopt/internal/domain"
)

// Predicate is the compiled form of a rule condition.
type Predicate interface {
	// Evaluate returns the violations this predicate finds for one
	// employee's derived quantities. A nil slice means pass.
	Evaluate(rule domain.ConstraintRule, d *employeeDerived) []domain.Violation
}

// aggregatePredicate is the variant-level counterpart: it evaluates once
// over quantities summed across all employees in scope.
type aggregatePredicate interface {
	EvaluateAggregate(rule domain.ConstraintRule, agg aggregateDerived) []domain.Violation
}

// WeeklyHoursOver fails when weekly paid hours exceed the limit.
type WeeklyHoursOver struct{ Limit float64 }

// DailyOvertimeOver fails when any day's hours beyond 8 exceed the limit.
type DailyOvertimeOver struct{ Limit float64 }

// MinRestBelow fails when the rest period between consecutive shifts
// drops below the limit in hours.
type MinRestBelow struct{ Hours float64 }

// ConsecutiveDaysOver fails when an employee works more than N days in a row.
type ConsecutiveDaysOver struct{ N int }

// PreferenceMismatch fails when an employee's blocks ignore a registered
// preference.
type PreferenceMismatch struct {
	Preferences map[string]domain.ShiftPreference
}

// PartTimeHoursOver fails part-time employees scheduled beyond the limit.
type PartTimeHoursOver struct {
	Limit     float64
	Employees map[string]domain.Employee
}

// MinCoverageWindow fails when any hour of the business window is staffed
// below the rule limit across the whole variant.
type MinCoverageWindow struct {
	FromHour int
	ToHour   int
}

// NightWithoutPermission fails employees scheduled into the night window
// without the night-work flag on their profile.
type NightWithoutPermission struct {
	Employees map[string]domain.Employee
}

// WeekendWithoutPermission fails employees scheduled on weekends without
// the weekend-work flag on their profile.
type WeekendWithoutPermission struct {
	Employees map[string]domain.Employee
}

// Custom carries an unrecognized condition. It always passes; the loader
// records a validation-summary note so the gap is visible.
type Custom struct{ Expr string }

func violation(rule domain.ConstraintRule, employeeID, interval, detail string) domain.Violation {
	return domain.Violation{
		RuleID:           rule.ID,
		Severity:         rule.Severity,
		Category:         rule.Category,
		Description:      detail,
		AffectedEmployee: employeeID,
		AffectedInterval: interval,
		RemedyHint:       rule.RemedyHint,
		CostImpact:       rule.CostImpact,
	}
}

func (p WeeklyHoursOver) Evaluate(rule domain.ConstraintRule, d *employeeDerived) []domain.Violation {
	if d.weeklyHours > p.Limit {
		return []domain.Violation{violation(rule, d.employeeID, "",
			fmt.Sprintf("weekly hours %.1f exceed limit %.1f", d.weeklyHours, p.Limit))}
	}
	return nil
}

func (p DailyOvertimeOver) Evaluate(rule domain.ConstraintRule, d *employeeDerived) []domain.Violation {
	var out []domain.Violation
	for _, day := range d.days {
		overtime := day.hours - 8
		if overtime > p.Limit {
			out = append(out, violation(rule, d.employeeID, day.date,
				fmt.Sprintf("daily overtime %.1fh exceeds limit %.1fh on %s", overtime, p.Limit, day.date)))
		}
	}
	return out
}

func (p MinRestBelow) Evaluate(rule domain.ConstraintRule, d *employeeDerived) []domain.Violation {
	var out []domain.Violation
	for _, rest := range d.restPeriods {
		if rest.hours < p.Hours {
			out = append(out, violation(rule, d.employeeID, rest.after,
				fmt.Sprintf("rest period %.1fh below minimum %.1fh before %s", rest.hours, p.Hours, rest.after)))
		}
	}
	return out
}

func (p ConsecutiveDaysOver) Evaluate(rule domain.ConstraintRule, d *employeeDerived) []domain.Violation {
	if d.maxConsecutiveDays > p.N {
		return []domain.Violation{violation(rule, d.employeeID, "",
			fmt.Sprintf("%d consecutive working days exceed limit %d", d.maxConsecutiveDays, p.N))}
	}
	return nil
}

func (p PreferenceMismatch) Evaluate(rule domain.ConstraintRule, d *employeeDerived) []domain.Violation {
	pref, ok := p.Preferences[d.employeeID]
	if !ok {
		return nil
	}
	var out []domain.Violation
	for _, b := range d.blocks {
		if !pref.Matches(b) {
			out = append(out, violation(rule, d.employeeID, b.Date.Format("2006-01-02"),
				fmt.Sprintf("shift %02d:%02d-%02d:%02d ignores registered preference",
					b.StartMin/60, b.StartMin%60, b.EndMin/60, b.EndMin%60)))
			break // one preference violation per employee is enough signal
		}
	}
	return out
}

func (p PartTimeHoursOver) Evaluate(rule domain.ConstraintRule, d *employeeDerived) []domain.Violation {
	emp, ok := p.Employees[d.employeeID]
	if !ok || emp.EmploymentType != domain.PartTime {
		return nil
	}
	if d.weeklyHours > p.Limit {
		return []domain.Violation{violation(rule, d.employeeID, "",
			fmt.Sprintf("part-time weekly hours %.1f exceed limit %.1f", d.weeklyHours, p.Limit))}
	}
	return nil
}

// Evaluate is a no-op; coverage windows are judged per variant.
func (p MinCoverageWindow) Evaluate(domain.ConstraintRule, *employeeDerived) []domain.Violation {
	return nil
}

func (p MinCoverageWindow) EvaluateAggregate(rule domain.ConstraintRule, agg aggregateDerived) []domain.Violation {
	from, to := p.FromHour, p.ToHour
	if from <= 0 && to <= 0 {
		from, to = 8, 18
	}
	var low []int
	for h := from; h < to && h < 24; h++ {
		if agg.hourCoverage[h] < int(rule.Limit) {
			low = append(low, h)
		}
	}
	if len(low) == 0 {
		return nil
	}
	return []domain.Violation{violation(rule, "",
		fmt.Sprintf("%02d:00-%02d:00", low[0], low[len(low)-1]+1),
		fmt.Sprintf("%d business hour(s) staffed below minimum %d", len(low), int(rule.Limit)))}
}

func (p NightWithoutPermission) Evaluate(rule domain.ConstraintRule, d *employeeDerived) []domain.Violation {
	emp, ok := p.Employees[d.employeeID]
	if !ok || emp.NightPermission {
		return nil
	}
	var out []domain.Violation
	flagged := make(map[string]bool)
	for _, b := range d.blocks {
		date := b.Date.Format("2006-01-02")
		if b.NightMinutes() == 0 || flagged[date] {
			continue
		}
		flagged[date] = true
		out = append(out, violation(rule, d.employeeID, date,
			fmt.Sprintf("night work on %s without night permission", date)))
	}
	return out
}

func (p WeekendWithoutPermission) Evaluate(rule domain.ConstraintRule, d *employeeDerived) []domain.Violation {
	emp, ok := p.Employees[d.employeeID]
	if !ok || emp.WeekendPermission {
		return nil
	}
	var out []domain.Violation
	flagged := make(map[string]bool)
	for _, b := range d.blocks {
		date := b.Date.Format("2006-01-02")
		if !b.IsWeekend() || flagged[date] {
			continue
		}
		flagged[date] = true
		out = append(out, violation(rule, d.employeeID, date,
			fmt.Sprintf("weekend work on %s without weekend permission", date)))
	}
	return out
}

func (p Custom) Evaluate(domain.ConstraintRule, *employeeDerived) []domain.Violation {
	return nil
}
