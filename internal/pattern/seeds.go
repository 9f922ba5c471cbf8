package pattern

import (
	"sort"
	"time"

	"github.com/fieldshift/schedopt/internal/domain"
)

// Archetype seeding counts for the fixed population of 50.
var seedCounts = []struct {
	pattern domain.PatternType
	count   int
}{
	{domain.PatternTraditional, 10},
	{domain.PatternFlexible, 10},
	{domain.PatternStaggered, 8},
	{domain.PatternSplitShift, 6},
	{domain.PatternCompressed, 6},
	{domain.PatternPartTime, 5},
	{domain.PatternPeakFocus, 3},
	{domain.PatternWeekendFocus, 2},
}

// staggeredOffsets are shift-start hours for the staggered archetype.
var staggeredOffsets = []int{7, 8, 9, 10, 11, 14, 15, 16}

// seedPopulation derives the initial population deterministically from the
// current schedule. Every seeder is a pure function of the current blocks,
// the archetype, and the seed index.
func (g *Generator) seedPopulation(current []domain.ShiftBlock, gaps domain.GapReport, window domain.DateRange) []domain.ScheduleVariant {
	base := normalizeSchedule(current)
	peakStart := peakHourStart(gaps)

	population := make([]domain.ScheduleVariant, 0, g.cfg.PopulationSize)
	for _, sc := range seedCounts {
		for i := 0; i < sc.count && len(population) < g.cfg.PopulationSize; i++ {
			blocks := seedBlocks(sc.pattern, base, i, peakStart, window)
			population = append(population, g.newSeedVariant(sc.pattern, blocks))
		}
	}
	return population
}

// employeeDay is one employee's presence on one date in the current
// schedule, the unit the seeders transform.
type employeeDay struct {
	employeeID string
	date       time.Time
	site       string
}

// normalizeSchedule reduces current blocks to ordered employee-day slots.
func normalizeSchedule(current []domain.ShiftBlock) []employeeDay {
	seen := make(map[string]bool)
	days := make([]employeeDay, 0, len(current))
	for _, b := range current {
		key := b.EmployeeID + b.Date.Format("2006-01-02")
		if seen[key] {
			continue
		}
		seen[key] = true
		days = append(days, employeeDay{employeeID: b.EmployeeID, date: b.Date.Truncate(24 * time.Hour), site: b.AssignedSite})
	}
	sort.Slice(days, func(i, j int) bool {
		if !days[i].date.Equal(days[j].date) {
			return days[i].date.Before(days[j].date)
		}
		return days[i].employeeID < days[j].employeeID
	})
	return days
}

func seedBlocks(pattern domain.PatternType, base []employeeDay, index, peakStart int, window domain.DateRange) []domain.ShiftBlock {
	switch pattern {
	case domain.PatternTraditional:
		return seedFixed(base, 8*60+(index%2)*15, 8*60+30, 30, domain.PartWhole)
	case domain.PatternFlexible:
		return seedFlexible(base, index)
	case domain.PatternStaggered:
		return seedStaggered(base, index)
	case domain.PatternSplitShift:
		return seedSplit(base)
	case domain.PatternCompressed:
		return seedCompressed(base, index)
	case domain.PatternPartTime:
		return seedFixed(base, 9*60+(index%3)*60, (4+index%2)*60, 0, domain.PartWhole)
	case domain.PatternPeakFocus:
		return seedPeakFocus(base, index, peakStart)
	case domain.PatternWeekendFocus:
		return seedWeekendFocus(base, index, window)
	default:
		return seedFixed(base, 8*60, 8*60+30, 30, domain.PartWhole)
	}
}

// seedFixed assigns every employee-day the same window.
func seedFixed(base []employeeDay, start, span, breakMin int, part domain.ShiftPart) []domain.ShiftBlock {
	blocks := make([]domain.ShiftBlock, 0, len(base))
	for _, d := range base {
		blocks = append(blocks, domain.ShiftBlock{
			EmployeeID:   d.employeeID,
			Date:         d.date,
			StartMin:     start,
			EndMin:       start + span,
			BreakMinutes: breakMin,
			AssignedSite: d.site,
			Part:         part,
		})
	}
	return blocks
}

// seedFlexible spreads starts across 07:00-10:00 per employee.
func seedFlexible(base []employeeDay, index int) []domain.ShiftBlock {
	blocks := make([]domain.ShiftBlock, 0, len(base))
	for i, d := range base {
		start := 7*60 + ((i+index)%7)*30
		blocks = append(blocks, domain.ShiftBlock{
			EmployeeID:   d.employeeID,
			Date:         d.date,
			StartMin:     start,
			EndMin:       start + 8*60 + 30,
			BreakMinutes: 30,
			AssignedSite: d.site,
			Part:         domain.PartWhole,
		})
	}
	return blocks
}

// seedStaggered rotates employees across the canonical offset hours.
func seedStaggered(base []employeeDay, index int) []domain.ShiftBlock {
	blocks := make([]domain.ShiftBlock, 0, len(base))
	for i, d := range base {
		start := staggeredOffsets[(i+index)%len(staggeredOffsets)] * 60
		blocks = append(blocks, domain.ShiftBlock{
			EmployeeID:   d.employeeID,
			Date:         d.date,
			StartMin:     start,
			EndMin:       start + 8*60 + 30,
			BreakMinutes: 30,
			AssignedSite: d.site,
			Part:         domain.PartWhole,
		})
	}
	return blocks
}

// seedSplit assigns the classic 08:00-12:00 + 14:00-18:00 split.
func seedSplit(base []employeeDay) []domain.ShiftBlock {
	blocks := make([]domain.ShiftBlock, 0, 2*len(base))
	for _, d := range base {
		blocks = append(blocks,
			domain.ShiftBlock{
				EmployeeID: d.employeeID, Date: d.date,
				StartMin: 8 * 60, EndMin: 12 * 60,
				AssignedSite: d.site, Part: domain.PartFirstHalf,
			},
			domain.ShiftBlock{
				EmployeeID: d.employeeID, Date: d.date,
				StartMin: 14 * 60, EndMin: 18 * 60,
				AssignedSite: d.site, Part: domain.PartSecondHalf,
			},
		)
	}
	return blocks
}

// seedCompressed keeps four 10-hour days per employee per week, dropping
// one working day chosen by seed index.
func seedCompressed(base []employeeDay, index int) []domain.ShiftBlock {
	perEmployee := make(map[string][]employeeDay)
	order := make([]string, 0)
	for _, d := range base {
		if _, ok := perEmployee[d.employeeID]; !ok {
			order = append(order, d.employeeID)
		}
		perEmployee[d.employeeID] = append(perEmployee[d.employeeID], d)
	}
	sort.Strings(order)

	blocks := make([]domain.ShiftBlock, 0, len(base))
	for ei, id := range order {
		days := perEmployee[id]
		drop := -1
		if len(days) > 4 {
			drop = (ei + index) % len(days)
		}
		kept := 0
		for di, d := range days {
			if di == drop || kept >= 4 {
				continue
			}
			kept++
			blocks = append(blocks, domain.ShiftBlock{
				EmployeeID:   d.employeeID,
				Date:         d.date,
				StartMin:     8 * 60,
				EndMin:       8*60 + 10*60 + 60,
				BreakMinutes: 60,
				AssignedSite: d.site,
				Part:         domain.PartWhole,
			})
		}
	}
	return blocks
}

// seedPeakFocus centers 8-hour shifts on the gappiest hours.
func seedPeakFocus(base []employeeDay, index, peakStart int) []domain.ShiftBlock {
	start := peakStart - 2*60 + (index%3)*30
	if start < 6*60 {
		start = 6 * 60
	}
	if start+8*60+30 > domain.MinutesPerDay {
		start = domain.MinutesPerDay - 8*60 - 30
	}
	return seedFixed(base, start, 8*60+30, 30, domain.PartWhole)
}

// seedWeekendFocus shifts the last weekday slot of each employee onto the
// following Saturday (index 0) or Sunday (index 1). Moves landing outside
// the run window keep their original date so all blocks stay in range.
func seedWeekendFocus(base []employeeDay, index int, window domain.DateRange) []domain.ShiftBlock {
	lastPerEmployee := make(map[string]int)
	for i, d := range base {
		lastPerEmployee[d.employeeID] = i
	}
	blocks := make([]domain.ShiftBlock, 0, len(base))
	for i, d := range base {
		date := d.date
		if lastPerEmployee[d.employeeID] == i && !isWeekend(date) {
			if moved := nextWeekendDay(date, index); withinWindow(window, moved) {
				date = moved
			}
		}
		blocks = append(blocks, domain.ShiftBlock{
			EmployeeID:   d.employeeID,
			Date:         date,
			StartMin:     9 * 60,
			EndMin:       9*60 + 8*60 + 30,
			BreakMinutes: 30,
			AssignedSite: d.site,
			Part:         domain.PartWhole,
		})
	}
	return blocks
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

// withinWindow treats a zero range as unbounded.
func withinWindow(w domain.DateRange, t time.Time) bool {
	if w.Start.IsZero() || w.End.IsZero() {
		return true
	}
	return w.Contains(t)
}

func nextWeekendDay(t time.Time, index int) time.Time {
	target := time.Saturday
	if index%2 == 1 {
		target = time.Sunday
	}
	for i := 0; i < 7; i++ {
		t = t.Add(24 * time.Hour)
		if t.Weekday() == target {
			return t
		}
	}
	return t
}

// peakHourStart finds the start minute of the hour with the highest gap
// count in the report; defaults to midday when the report is clean.
func peakHourStart(gaps domain.GapReport) int {
	perHour := make([]int, 24)
	for _, ig := range gaps.Intervals {
		if ig.GapCount > 0 {
			perHour[(ig.Interval.Start/60)%24] += ig.GapCount
		}
	}
	best, bestCount := 12, 0
	for h, c := range perHour {
		if c > bestCount {
			best, bestCount = h, c
		}
	}
	return best * 60
}
