// Package pattern produces candidate schedule variants through an
// evolutionary search over shift-layout archetypes. Variants are immutable
// values; every genetic operation derives new ones. The pseudorandom
// source is an explicit parameter so identical seeds and inputs reproduce
// identical output.
package pattern

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/fieldshift/schedopt/internal/config"
	"github.com/fieldshift/schedopt/internal/domain"
)

// Result is the generator's stage output.
type Result struct {
	Variants    []domain.ScheduleVariant `json:"variants"`
	Generations int                      `json:"generations"`
	Converged   bool                     `json:"converged"`
	Degraded    bool                     `json:"degraded"`
}

// Generator runs the evolutionary search.
type Generator struct {
	cfg   config.PatternConfig
	rates domain.PayrollRates

	idSeq int
}

// NewGenerator builds a generator with the given tuning and payroll rates
// used for projected-cost fitness.
func NewGenerator(cfg config.PatternConfig, rates domain.PayrollRates) *Generator {
	if rates.HourlyRate <= 0 {
		rates = domain.DefaultPayrollRates()
	}
	return &Generator{cfg: cfg, rates: rates}
}

// Generate evolves variants from the current schedule and the gap report.
// Every emitted block stays inside window; a zero window leaves seeding
// unbounded. On context expiry it returns the current elite set with
// Degraded set; the search never aborts mid-mutation because variants are
// snapshots.
func (g *Generator) Generate(ctx context.Context, current []domain.ShiftBlock, gaps domain.GapReport, goals domain.OptimizationGoals, window domain.DateRange, rnd *rand.Rand) (Result, error) {
	for _, b := range current {
		if err := b.Validate(); err != nil {
			return Result{}, err
		}
	}
	if rnd == nil {
		return Result{}, fmt.Errorf("%w: generator requires an explicit random source", domain.ErrInvalidInput)
	}
	g.idSeq = 0

	eval := newEvaluator(gaps, goals, current, g.rates)
	population := g.seedPopulation(current, gaps, window)
	for i := range population {
		eval.evaluate(&population[i])
	}
	sortByFitness(population)

	result := Result{}
	bestHistory := []float64{bestFitness(population)}

	for gen := 1; gen <= g.cfg.MaxGenerations; gen++ {
		select {
		case <-ctx.Done():
			log.Warn().Int("generation", gen).Msg("pattern generation budget exceeded, returning elite set")
			result.Variants = g.selectOutput(population)
			result.Generations = gen - 1
			result.Degraded = true
			return result, nil
		default:
		}

		population = g.nextGeneration(population, eval, rnd, gen)
		sortByFitness(population)
		bestHistory = append(bestHistory, bestFitness(population))
		result.Generations = gen

		if g.converged(bestHistory) {
			result.Converged = true
			break
		}
	}

	result.Variants = g.selectOutput(population)
	log.Debug().
		Int("generations", result.Generations).
		Bool("converged", result.Converged).
		Int("variants", len(result.Variants)).
		Float64("best_fitness", bestFitness(population)).
		Msg("pattern generation complete")
	return result, nil
}

// nextGeneration applies elitism, tournament selection, crossover, and
// mutation to produce the next fixed-size population.
func (g *Generator) nextGeneration(population []domain.ScheduleVariant, eval *evaluator, rnd *rand.Rand, gen int) []domain.ScheduleVariant {
	next := make([]domain.ScheduleVariant, 0, g.cfg.PopulationSize)

	// Elites carry over unchanged.
	elites := g.cfg.EliteCount
	if elites > len(population) {
		elites = len(population)
	}
	next = append(next, population[:elites]...)

	for len(next) < g.cfg.PopulationSize {
		parentA := g.tournament(population, rnd)
		parentB := g.tournament(population, rnd)

		var child domain.ScheduleVariant
		if rnd.Float64() < g.cfg.CrossoverRate {
			child = g.crossover(parentA, parentB, rnd, gen)
		} else {
			child = g.derive(parentA, parentA.Blocks, gen)
		}
		if rnd.Float64() < g.cfg.MutationRate {
			child = g.mutate(child, rnd, gen)
		}
		eval.evaluate(&child)
		next = append(next, child)
	}
	return next
}

// converged reports whether best fitness improved by less than the
// configured delta over the sliding window.
func (g *Generator) converged(history []float64) bool {
	w := g.cfg.ConvergenceWindow
	if len(history) <= w {
		return false
	}
	improvement := history[len(history)-1] - history[len(history)-1-w]
	return improvement < g.cfg.ConvergenceDelta
}

// selectOutput picks at most MaxVariants from the final population,
// preferring fitness while keeping at least MinDistinctTypes archetypes
// when the population carries them.
func (g *Generator) selectOutput(population []domain.ScheduleVariant) []domain.ScheduleVariant {
	if len(population) == 0 {
		return nil
	}
	maxOut := g.cfg.MaxVariants
	if maxOut <= 0 {
		maxOut = 5
	}

	picked := make([]domain.ScheduleVariant, 0, maxOut)
	seenTypes := make(map[domain.PatternType]bool)
	used := make(map[string]bool)

	// First pass: best representative of each distinct archetype until the
	// diversity floor is met.
	for _, v := range population {
		if len(picked) >= maxOut || len(seenTypes) >= g.cfg.MinDistinctTypes {
			break
		}
		if seenTypes[v.Pattern] {
			continue
		}
		seenTypes[v.Pattern] = true
		used[v.ID] = true
		picked = append(picked, v)
	}

	// Second pass: fill remaining slots strictly by fitness.
	for _, v := range population {
		if len(picked) >= maxOut {
			break
		}
		if used[v.ID] {
			continue
		}
		used[v.ID] = true
		picked = append(picked, v)
	}

	sort.SliceStable(picked, func(i, j int) bool { return picked[i].Fitness > picked[j].Fitness })
	return picked
}

// derive creates a new variant with deterministic identity. Generated IDs
// are sequence-based rather than random so fixed seeds reproduce output
// byte for byte.
func (g *Generator) derive(parent domain.ScheduleVariant, blocks []domain.ShiftBlock, gen int) domain.ScheduleVariant {
	g.idSeq++
	return domain.ScheduleVariant{
		ID:         fmt.Sprintf("var-%s-g%02d-%04d", parent.Pattern, gen, g.idSeq),
		Pattern:    parent.Pattern,
		Generation: gen,
		Blocks:     append([]domain.ShiftBlock(nil), blocks...),
	}
}

func (g *Generator) newSeedVariant(pattern domain.PatternType, blocks []domain.ShiftBlock) domain.ScheduleVariant {
	g.idSeq++
	return domain.ScheduleVariant{
		ID:      fmt.Sprintf("var-%s-g00-%04d", pattern, g.idSeq),
		Pattern: pattern,
		Blocks:  blocks,
	}
}

func sortByFitness(population []domain.ScheduleVariant) {
	sort.SliceStable(population, func(i, j int) bool {
		if population[i].Fitness != population[j].Fitness {
			return population[i].Fitness > population[j].Fitness
		}
		return population[i].ID < population[j].ID
	})
}

func bestFitness(population []domain.ScheduleVariant) float64 {
	if len(population) == 0 {
		return 0
	}
	return population[0].Fitness
}
