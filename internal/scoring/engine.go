// Package scoring combines gap, cost, compliance, and simplicity metrics
// into a transparent weighted score and ranks schedule variants. Scoring
// is a pure function of its inputs; identical inputs produce identical
// ranked output.
package scoring

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/fieldshift/schedopt/internal/config"
	"github.com/fieldshift/schedopt/internal/domain"
)

// Baseline captures the current schedule's financials, against which
// variant deltas are measured.
type Baseline struct {
	TotalCost    float64 `json:"total_cost"`
	OvertimeCost float64 `json:"overtime_cost"`
}

// Engine scores and ranks variants.
type Engine struct {
	weights     config.ScoringWeights
	employees   map[string]domain.Employee
	skills      map[string][]domain.SkillID
	preferences map[string]domain.ShiftPreference
}

// NewEngine builds an engine. Employee, skill, and preference directories
// are optional; absent data defaults the affected sub-components to full
// marks rather than penalizing variants for missing master data.
func NewEngine(weights config.ScoringWeights, employees map[string]domain.Employee, skills map[string][]domain.SkillID, preferences map[string]domain.ShiftPreference) (*Engine, error) {
	sum := weights.Coverage + weights.Cost + weights.Compliance + weights.Simplicity
	if sum < 0.999 || sum > 1.001 {
		return nil, fmt.Errorf("%w: scoring weights sum to %.4f, want 1.0", domain.ErrInvalidInput, sum)
	}
	return &Engine{weights: weights, employees: employees, skills: skills, preferences: preferences}, nil
}

// DirectoryStore is the slice of the metrics store the engine reads:
// employee, skill, and preference directories feeding the coverage and
// compliance sub-components.
type DirectoryStore interface {
	GetEmployeeProfiles(ctx context.Context, ids []string) ([]domain.Employee, error)
	GetEmployeeSkills(ctx context.Context) (map[string][]domain.SkillID, error)
	GetEmployeePreferences(ctx context.Context) (map[string]domain.ShiftPreference, error)
}

// NewEngineFromStore builds an engine whose directories load from the
// store once at construction. A directory the store cannot answer for
// stays empty, same as passing nil to NewEngine.
func NewEngineFromStore(ctx context.Context, weights config.ScoringWeights, directory DirectoryStore) (*Engine, error) {
	var (
		employees   map[string]domain.Employee
		skills      map[string][]domain.SkillID
		preferences map[string]domain.ShiftPreference
	)
	if directory != nil {
		if profiles, err := directory.GetEmployeeProfiles(ctx, nil); err == nil {
			employees = make(map[string]domain.Employee, len(profiles))
			for _, p := range profiles {
				employees[p.ID] = p
			}
		} else {
			log.Warn().Err(err).Msg("employee directory unavailable for scoring")
		}
		if byID, err := directory.GetEmployeeSkills(ctx); err == nil {
			skills = byID
		} else {
			log.Warn().Err(err).Msg("skill directory unavailable for scoring")
		}
		if byID, err := directory.GetEmployeePreferences(ctx); err == nil {
			preferences = byID
		} else {
			log.Warn().Err(err).Msg("preference directory unavailable for scoring")
		}
	}
	return NewEngine(weights, employees, skills, preferences)
}

// Score ranks the variants. costs and compliance are keyed by variant ID;
// a variant with an infeasible cost analysis is retained, scored with a
// zero cost component, and forced to plan_accordingly at high risk.
func (e *Engine) Score(variants []domain.ScheduleVariant, gaps domain.GapReport, costs map[string]domain.FinancialImpact, compliance map[string]domain.ComplianceMatrix, baseline Baseline, goals domain.OptimizationGoals) domain.RankedSuggestions {
	scores := make([]domain.OptimizationScore, 0, len(variants))
	for _, v := range variants {
		scores = append(scores, e.scoreVariant(v, gaps, costs[v.ID], compliance[v.ID], baseline, goals))
	}
	e.rank(scores, costs)

	out := domain.RankedSuggestions{
		Suggestions: scores,
		Comparison:  comparisonMatrix(scores),
		Methodology: methodology,
		Summary:     summarize(scores),
	}
	log.Debug().Int("variants", len(scores)).Msg("scoring complete")
	return out
}

func (e *Engine) scoreVariant(v domain.ScheduleVariant, gaps domain.GapReport, cost domain.FinancialImpact, matrix domain.ComplianceMatrix, baseline Baseline, goals domain.OptimizationGoals) domain.OptimizationScore {
	b := domain.ScoreBreakdown{Sub: make(map[string]float64)}

	b.CoverageScore = e.coverageComponent(v, gaps, b.Sub)
	b.CostScore = e.costComponent(cost, baseline, goals, b.Sub)
	b.ComplianceScore = e.complianceComponent(v, matrix, b.Sub)
	b.SimplicityScore = e.simplicityComponent(v, b.Sub)
	b.Total = b.CoverageScore + b.CostScore + b.ComplianceScore + b.SimplicityScore

	score := domain.OptimizationScore{
		VariantID:    v.ID,
		Pattern:      v.Pattern,
		OverallScore: b.Total,
		Breakdown:    b,
	}
	score.Risk = riskOf(b)
	score.ImplementationWindow = implementationWindow(b)
	score.RecommendationLevel = recommendationLevel(b.Total, score.Risk)
	score.ExpectedOutcomes = expectedOutcomes(v, gaps, cost, baseline)

	if cost.Quality == domain.CostInfeasible {
		// Infeasible cost analyses are retained, never silently dropped.
		score.RecommendationLevel = domain.RecommendPlanAccordingly
		score.Risk = domain.RiskHigh
	}
	return score
}

// rank sorts descending by total with deterministic tie-breaking on
// compliance, simplicity, lower overtime cost, then variant ID, and
// assigns dense 1-based ranks.
func (e *Engine) rank(scores []domain.OptimizationScore, costs map[string]domain.FinancialImpact) {
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.OverallScore != b.OverallScore {
			return a.OverallScore > b.OverallScore
		}
		if a.Breakdown.ComplianceScore != b.Breakdown.ComplianceScore {
			return a.Breakdown.ComplianceScore > b.Breakdown.ComplianceScore
		}
		if a.Breakdown.SimplicityScore != b.Breakdown.SimplicityScore {
			return a.Breakdown.SimplicityScore > b.Breakdown.SimplicityScore
		}
		otA := costs[a.VariantID].OvertimeCost()
		otB := costs[b.VariantID].OvertimeCost()
		if otA != otB {
			return otA < otB
		}
		return a.VariantID < b.VariantID
	})
	for i := range scores {
		scores[i].Rank = i + 1
	}
}

const methodology = "Weighted composite: coverage 40% (gap reduction, peak coverage, skill match), " +
	"cost 30% (overtime and total cost reduction vs current), compliance 20% (labor rules, preferences), " +
	"simplicity 10% (archetype regularity minus per-block complexity)."

func summarize(scores []domain.OptimizationScore) string {
	if len(scores) == 0 {
		return "no variants scored"
	}
	top := scores[0]
	return fmt.Sprintf("%d variant(s) ranked; best is %s (%s) at %.1f points, recommendation %s",
		len(scores), top.VariantID, top.Pattern, top.OverallScore, top.RecommendationLevel)
}
