package constraint

import (
	"sort"
	"time"

	"github.com/fieldshift/schedopt/internal/domain"
)

// employeeDerived holds the per-employee quantities predicates consume.
// Computed once per variant evaluation and memoized.
type employeeDerived struct {
	employeeID         string
	blocks             []domain.ShiftBlock
	weeklyHours        float64
	days               []dayHours
	restPeriods        []restPeriod
	maxConsecutiveDays int
	hourCoverage       [24]int
}

// aggregateDerived sums per-employee quantities for variant-level rules.
type aggregateDerived struct {
	hourCoverage [24]int
	employees    int
}

func aggregate(derived []*employeeDerived) aggregateDerived {
	var agg aggregateDerived
	agg.employees = len(derived)
	for _, d := range derived {
		for h, c := range d.hourCoverage {
			if c > 0 {
				agg.hourCoverage[h]++
			}
		}
	}
	return agg
}

type dayHours struct {
	date  string
	hours float64
}

type restPeriod struct {
	hours float64
	after string // date of the shift the rest precedes
}

// deriveAll computes derived quantities for every employee in scope.
// Results are keyed and ordered by employee ID for determinism.
func deriveAll(variant domain.ScheduleVariant, scope map[string]bool) []*employeeDerived {
	byEmployee := make(map[string][]domain.ShiftBlock)
	for _, b := range variant.Blocks {
		if scope != nil && !scope[b.EmployeeID] {
			continue
		}
		byEmployee[b.EmployeeID] = append(byEmployee[b.EmployeeID], b)
	}

	ids := make([]string, 0, len(byEmployee))
	for id := range byEmployee {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*employeeDerived, 0, len(ids))
	for _, id := range ids {
		out = append(out, derive(id, byEmployee[id]))
	}
	return out
}

func derive(employeeID string, blocks []domain.ShiftBlock) *employeeDerived {
	sorted := append([]domain.ShiftBlock(nil), blocks...)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].StartMin < sorted[j].StartMin
	})

	d := &employeeDerived{employeeID: employeeID, blocks: sorted}

	perDay := make(map[string]float64)
	dayOrder := []string{}
	for _, b := range sorted {
		key := b.Date.Format("2006-01-02")
		if _, seen := perDay[key]; !seen {
			dayOrder = append(dayOrder, key)
		}
		perDay[key] += b.Hours()
		d.weeklyHours += b.Hours()
		for m := b.StartMin; m < b.EndMin; m += 60 {
			d.hourCoverage[(m/60)%24]++
		}
	}
	for _, key := range dayOrder {
		d.days = append(d.days, dayHours{date: key, hours: perDay[key]})
	}

	d.restPeriods = restBetween(sorted)
	d.maxConsecutiveDays = maxConsecutive(dayOrder)
	return d
}

// restBetween computes the gap between each shift end and the next start.
func restBetween(sorted []domain.ShiftBlock) []restPeriod {
	var rests []restPeriod
	for i := 1; i < len(sorted); i++ {
		prev, next := sorted[i-1], sorted[i]
		prevEnd := prev.Date.Add(time.Duration(prev.EndMin) * time.Minute)
		nextStart := next.Date.Add(time.Duration(next.StartMin) * time.Minute)
		rest := nextStart.Sub(prevEnd).Hours()
		if rest < 0 {
			rest = 0
		}
		// Intra-day gaps within a split shift are breaks, not rest periods.
		if prev.Date.Equal(next.Date) {
			continue
		}
		rests = append(rests, restPeriod{hours: rest, after: next.Date.Format("2006-01-02")})
	}
	return rests
}

// maxConsecutive finds the longest run of adjacent calendar days.
func maxConsecutive(dayKeys []string) int {
	if len(dayKeys) == 0 {
		return 0
	}
	dates := make([]time.Time, 0, len(dayKeys))
	for _, k := range dayKeys {
		if t, err := time.Parse("2006-01-02", k); err == nil {
			dates = append(dates, t)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	best, run := 1, 1
	for i := 1; i < len(dates); i++ {
		if dates[i].Sub(dates[i-1]) == 24*time.Hour {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 1
		}
	}
	return best
}
