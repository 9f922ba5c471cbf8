package pattern

import (
	"math/rand"
	"sort"

	"github.com/fieldshift/schedopt/internal/domain"
)

// tournament runs size-k selection over the population.
func (g *Generator) tournament(population []domain.ScheduleVariant, rnd *rand.Rand) domain.ScheduleVariant {
	k := g.cfg.TournamentSize
	if k < 1 {
		k = 3
	}
	best := population[rnd.Intn(len(population))]
	for i := 1; i < k; i++ {
		candidate := population[rnd.Intn(len(population))]
		if candidate.Fitness > best.Fitness {
			best = candidate
		}
	}
	return best
}

// crossover exchanges block lists at a single cut point. The child keeps
// parent A's archetype.
func (g *Generator) crossover(a, b domain.ScheduleVariant, rnd *rand.Rand, gen int) domain.ScheduleVariant {
	if len(a.Blocks) == 0 {
		return g.derive(a, b.Blocks, gen)
	}
	if len(b.Blocks) == 0 {
		return g.derive(a, a.Blocks, gen)
	}
	cutA := rnd.Intn(len(a.Blocks))
	cutB := rnd.Intn(len(b.Blocks))
	child := make([]domain.ShiftBlock, 0, cutA+len(b.Blocks)-cutB)
	child = append(child, a.Blocks[:cutA]...)
	child = append(child, b.Blocks[cutB:]...)
	return g.derive(a, child, gen)
}

// Mutation operations. One is chosen uniformly per mutation event.
const (
	mutShiftTime = iota
	mutAddHours
	mutRemoveHours
	mutSplit
	mutMerge
	mutSwapAgents
	mutCount
)

// mutate applies one random mutation and derives a fresh variant.
func (g *Generator) mutate(v domain.ScheduleVariant, rnd *rand.Rand, gen int) domain.ScheduleVariant {
	if len(v.Blocks) == 0 {
		return v
	}
	blocks := append([]domain.ShiftBlock(nil), v.Blocks...)
	idx := rnd.Intn(len(blocks))

	switch rnd.Intn(mutCount) {
	case mutShiftTime:
		// ±1 hour, clamped to the day.
		delta := 60
		if rnd.Intn(2) == 0 {
			delta = -60
		}
		b := blocks[idx]
		if b.StartMin+delta >= 0 && b.EndMin+delta <= domain.MinutesPerDay {
			b.StartMin += delta
			b.EndMin += delta
			blocks[idx] = b
		}
	case mutAddHours:
		b := blocks[idx]
		if b.EndMin+60 <= domain.MinutesPerDay {
			b.EndMin += 60
			blocks[idx] = b
		}
	case mutRemoveHours:
		b := blocks[idx]
		if b.EndMin-b.StartMin > 120 {
			b.EndMin -= 60
			blocks[idx] = b
		}
	case mutSplit:
		b := blocks[idx]
		span := b.EndMin - b.StartMin
		if span >= 4*60 && b.Part == domain.PartWhole {
			mid := b.StartMin + span/2
			first := b
			first.EndMin = mid
			first.Part = domain.PartFirstHalf
			first.BreakMinutes = 0
			second := b
			second.StartMin = mid + 60
			second.Part = domain.PartSecondHalf
			second.BreakMinutes = 0
			if second.StartMin < second.EndMin {
				blocks[idx] = first
				blocks = append(blocks, second)
			}
		}
	case mutMerge:
		merged := mergeAdjacent(blocks, idx)
		if merged != nil {
			blocks = merged
		}
	case mutSwapAgents:
		other := rnd.Intn(len(blocks))
		if other != idx && blocks[other].EmployeeID != blocks[idx].EmployeeID {
			blocks[idx].EmployeeID, blocks[other].EmployeeID = blocks[other].EmployeeID, blocks[idx].EmployeeID
		}
	}
	return g.derive(v, blocks, gen)
}

// mergeAdjacent joins a block with its same-employee same-day neighbor.
// Returns nil when no neighbor exists.
func mergeAdjacent(blocks []domain.ShiftBlock, idx int) []domain.ShiftBlock {
	target := blocks[idx]
	for i, b := range blocks {
		if i == idx || b.EmployeeID != target.EmployeeID || !b.Date.Equal(target.Date) {
			continue
		}
		lo, hi := target, b
		if hi.StartMin < lo.StartMin {
			lo, hi = hi, lo
		}
		merged := lo
		merged.EndMin = hi.EndMin
		merged.Part = domain.PartWhole
		merged.BreakMinutes = lo.BreakMinutes + hi.BreakMinutes

		out := make([]domain.ShiftBlock, 0, len(blocks)-1)
		for j, keep := range blocks {
			if j == i || j == idx {
				continue
			}
			out = append(out, keep)
		}
		out = append(out, merged)
		sort.SliceStable(out, func(x, y int) bool {
			if !out[x].Date.Equal(out[y].Date) {
				return out[x].Date.Before(out[y].Date)
			}
			if out[x].EmployeeID != out[y].EmployeeID {
				return out[x].EmployeeID < out[y].EmployeeID
			}
			return out[x].StartMin < out[y].StartMin
		})
		return out
	}
	return nil
}
