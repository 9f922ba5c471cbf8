package scoring

import (
	"fmt"
	"math"

	"github.com/fieldshift/schedopt/internal/domain"
)

// Default component weights; custom weights rescale each component
// proportionally.
const (
	defaultCoverageWeight   = 0.40
	defaultCostWeight       = 0.30
	defaultComplianceWeight = 0.20
	defaultSimplicityWeight = 0.10

	// Reduction goals fall back to 10% when the caller sets none.
	defaultDeltaGoal = 0.10
)

// coverageComponent scores up to 40 points: gap reduction (15), peak
// coverage (15), and skill match (10).
func (e *Engine) coverageComponent(v domain.ScheduleVariant, gaps domain.GapReport, sub map[string]float64) float64 {
	gapPts := 15.0
	if gaps.TotalGaps > 0 {
		ratio := clamp01(float64(gaps.TotalGaps-v.ProjectedGaps) / float64(gaps.TotalGaps))
		// Closing 60% of current gaps already earns the full sub-score.
		gapPts = math.Min(15, ratio*15*5/3)
	}
	sub[domain.SubGapReduction] = gapPts

	peakPts := 15.0
	if peaks := gaps.PeakIntervals(); len(peaks) > 0 {
		covered := 0
		for _, ig := range peaks {
			if v.ScheduledHeadcount(ig.Interval) >= ig.Required {
				covered++
			}
		}
		peakPts = float64(covered) / float64(len(peaks)) * 15
	}
	sub[domain.SubPeakCoverage] = peakPts

	skillPts := 10.0
	if required := requiredSkills(gaps); len(required) > 0 {
		available := e.availableSkills(v)
		matched := 0
		for skill := range required {
			if available[skill] {
				matched++
			}
		}
		skillPts = float64(matched) / float64(len(required)) * 10
	}
	sub[domain.SubSkillMatch] = skillPts

	return clamp(gapPts+peakPts+skillPts, 0, 40) * e.weights.Coverage / defaultCoverageWeight
}

// costComponent scores up to 30 points: overtime reduction (12) and total
// cost reduction (18), each measured against the current baseline and
// scaled by the caller's reduction goal.
func (e *Engine) costComponent(cost domain.FinancialImpact, baseline Baseline, goals domain.OptimizationGoals, sub map[string]float64) float64 {
	if cost.Quality == domain.CostInfeasible {
		sub[domain.SubOvertimeReduce] = 0
		sub[domain.SubCostReduce] = 0
		return 0
	}
	goal := goals.CostDeltaPct
	if goal <= 0 {
		goal = defaultDeltaGoal
	}

	otPts := 12.0
	if baseline.OvertimeCost > 0 {
		reduction := (baseline.OvertimeCost - cost.OvertimeCost()) / baseline.OvertimeCost
		otPts = clamp01(reduction/goal) * 12
	}
	sub[domain.SubOvertimeReduce] = otPts

	costPts := 18.0
	if baseline.TotalCost > 0 {
		reduction := (baseline.TotalCost - cost.TotalCost) / baseline.TotalCost
		costPts = clamp01(reduction/goal) * 18
	}
	sub[domain.SubCostReduce] = costPts

	return clamp(otPts+costPts, 0, 30) * e.weights.Cost / defaultCostWeight
}

// complianceComponent scores up to 20 points: labor rules (10) and
// preference satisfaction (10). A zero-value matrix means the variant was
// never validated; it scores as clean rather than as fully violating.
func (e *Engine) complianceComponent(v domain.ScheduleVariant, matrix domain.ComplianceMatrix, sub map[string]float64) float64 {
	laborPts := 10.0
	if matrix.VariantID != "" {
		laborPts = clamp(matrix.ComplianceScore/100*10, 0, 10)
	}
	sub[domain.SubLaborCompliance] = laborPts

	prefPts := 10.0
	if len(e.preferences) > 0 {
		matched, total := 0, 0
		for _, b := range v.Blocks {
			pref, ok := e.preferences[b.EmployeeID]
			if !ok {
				continue
			}
			total++
			if pref.Matches(b) {
				matched++
			}
		}
		if total > 0 {
			prefPts = float64(matched) / float64(total) * 10
		}
	}
	sub[domain.SubPreferenceSat] = prefPts

	return clamp(laborPts+prefPts, 0, 20) * e.weights.Compliance / defaultComplianceWeight
}

// simplicityComponent scores up to 10 points from the archetype's
// operational regularity minus per-block complexity penalties.
func (e *Engine) simplicityComponent(v domain.ScheduleVariant, sub map[string]float64) float64 {
	pts := patternRegularity(v.Pattern)
	pts -= complexityPenalty(v)
	pts = clamp(pts, 0, 10)
	sub[domain.SubPatternRegular] = pts
	return pts * e.weights.Simplicity / defaultSimplicityWeight
}

// patternRegularity grades how easy each archetype is to roster, explain,
// and supervise.
func patternRegularity(p domain.PatternType) float64 {
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

// complexityPenalty charges for split assignments, long compressed days,
// and same-employee block overlaps.
func complexityPenalty(v domain.ScheduleVariant) float64 {
	penalty := 0.0
	byEmployee := make(map[string][]domain.ShiftBlock)
	for _, b := range v.Blocks {
		byEmployee[b.EmployeeID] = append(byEmployee[b.EmployeeID], b)
		if b.Part == domain.PartFirstHalf {
			penalty += 1.0
		}
		if b.DurationMinutes() > 9*60 {
			penalty += 0.5
		}
	}
	for _, blocks := range byEmployee {
		for i := 0; i < len(blocks); i++ {
			for j := i + 1; j < len(blocks); j++ {
				if blocks[i].Overlaps(blocks[j]) {
					penalty += 0.5
				}
			}
		}
	}
	return penalty
}

func requiredSkills(gaps domain.GapReport) map[domain.SkillID]bool {
	out := make(map[domain.SkillID]bool)
	for _, ig := range gaps.Intervals {
		for _, s := range ig.RequiredSkills {
			out[s] = true
		}
	}
	return out
}

func (e *Engine) availableSkills(v domain.ScheduleVariant) map[domain.SkillID]bool {
	out := make(map[domain.SkillID]bool)
	for _, id := range v.EmployeeIDs() {
		if emp, ok := e.employees[id]; ok {
			for _, s := range emp.Skills {
				out[s] = true
			}
		}
		for _, s := range e.skills[id] {
			out[s] = true
		}
	}
	return out
}

func riskOf(b domain.ScoreBreakdown) domain.RiskLevel {
	if b.ComplianceScore < 15 {
		return domain.RiskHigh
	}
	if b.Total >= 90 {
		return domain.RiskLow
	}
	return domain.RiskMedium
}

func implementationWindow(b domain.ScoreBreakdown) string {
	if b.ComplianceScore < 15 {
		return "4-6 weeks"
	}
	switch {
	case b.SimplicityScore >= 8:
		return "1-2 weeks"
	case b.SimplicityScore >= 6:
		return "2-3 weeks"
	default:
		return "3-4 weeks"
	}
}

func recommendationLevel(total float64, risk domain.RiskLevel) domain.RecommendationLevel {
	switch {
	case total >= 90 && risk == domain.RiskLow:
		return domain.RecommendImplement
	case total >= 75:
		return domain.RecommendMonitor
	default:
		return domain.RecommendPlanAccordingly
	}
}

func expectedOutcomes(v domain.ScheduleVariant, gaps domain.GapReport, cost domain.FinancialImpact, baseline Baseline) []string {
	var out []string
	if gaps.TotalGaps > 0 && v.ProjectedGaps < gaps.TotalGaps {
		out = append(out, fmt.Sprintf("closes %d of %d coverage gaps", gaps.TotalGaps-v.ProjectedGaps, gaps.TotalGaps))
	}
	if baseline.TotalCost > 0 && cost.Quality == domain.CostOK {
		delta := (baseline.TotalCost - cost.TotalCost) / baseline.TotalCost * 100
		switch {
		case delta >= 1:
			out = append(out, fmt.Sprintf("reduces weekly cost by %.0f%%", delta))
		case delta <= -1:
			out = append(out, fmt.Sprintf("increases weekly cost by %.0f%%", -delta))
		}
	}
	if baseline.OvertimeCost > 0 && cost.Quality == domain.CostOK && cost.OvertimeCost() < baseline.OvertimeCost {
		out = append(out, fmt.Sprintf("cuts overtime spend by %.0f%%",
			(baseline.OvertimeCost-cost.OvertimeCost())/baseline.OvertimeCost*100))
	}
	return out
}

// comparisonMatrix lines up the top three suggestions side by side.
func comparisonMatrix(scores []domain.OptimizationScore) domain.ComparisonMatrix {
	n := len(scores)
	if n > 3 {
		n = 3
	}
	m := domain.ComparisonMatrix{Entries: make([]domain.ComparisonEntry, 0, n)}
	for _, s := range scores[:n] {
		weeks := 0
		fmt.Sscanf(s.ImplementationWindow, "%d", &weeks)
		m.Entries = append(m.Entries, domain.ComparisonEntry{
			VariantID:           s.VariantID,
			Pattern:             s.Pattern,
			Coverage:            s.Breakdown.CoverageScore,
			Cost:                s.Breakdown.CostScore,
			Compliance:          s.Breakdown.ComplianceScore,
			Simplicity:          s.Breakdown.SimplicityScore,
			Total:               s.OverallScore,
			Risk:                s.Risk,
			ImplementationWeeks: weeks,
		})
	}
	return m
}

func clamp01(f float64) float64 { return clamp(f, 0, 1) }

func clamp(f, lo, hi float64) float64 {
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}
