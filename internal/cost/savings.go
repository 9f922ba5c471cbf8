package cost

import (
	"fmt"

	"github.com/fieldshift/schedopt/internal/domain"
)

// Savings detection thresholds.
const (
	overtimeShareThreshold = 0.15
	weekendShareThreshold  = 0.10
	skillShareThreshold    = 0.20
	varianceEmployeeRatio  = 0.30
	varianceMeanMultiple   = 1.3
	reoptSavingsRatio      = 0.10
	maxSavings             = 5
)

// findSavings builds the ordered savings-opportunity list, capped at five.
// Order follows detection priority: overtime, weekend, skill mix,
// variance, then the re-optimization headline.
func findSavings(impact domain.FinancialImpact) []domain.SavingsOpportunity {
	total := impact.TotalCost
	if total <= 0 {
		return nil
	}
	var out []domain.SavingsOpportunity

	if overtime := impact.ComponentTotals["overtime"]; overtime > overtimeShareThreshold*total {
		out = append(out, domain.SavingsOpportunity{
			Kind:        "overtime_reduction",
			Description: fmt.Sprintf("overtime is %.0f%% of total cost; rebalancing hours below the threshold saves the excess", overtime/total*100),
			Amount:      overtime - overtimeShareThreshold*total,
		})
	}
	if weekend := impact.ComponentTotals["weekend_premium"]; weekend > weekendShareThreshold*total {
		out = append(out, domain.SavingsOpportunity{
			Kind:        "weekend_premium_reduction",
			Description: "weekend premiums above 10% of total; consider weekday-weighted patterns",
			Amount:      weekend - weekendShareThreshold*total,
		})
	}
	if skill := impact.ComponentTotals["skill_premium"]; skill > skillShareThreshold*total {
		out = append(out, domain.SavingsOpportunity{
			Kind:        "skill_mix_adjustment",
			Description: "skill premiums above 20% of total; review tier assignments against interval requirements",
			Amount:      skill - skillShareThreshold*total,
		})
	}
	if over, excess := varianceOutliers(impact); over {
		out = append(out, domain.SavingsOpportunity{
			Kind:        "load_rebalancing",
			Description: "over 30% of employees cost more than 1.3x the mean; redistribute hours",
			Amount:      excess,
		})
	}
	if impact.OvertimeShare > reoptSavingsRatio || impact.CoefficientOfVariation > varianceEmployeeRatio {
		out = append(out, domain.SavingsOpportunity{
			Kind:        "reoptimization",
			Description: "full re-optimization is predicted to achieve at least 10% savings",
			Amount:      reoptSavingsRatio * total,
		})
	}

	if len(out) > maxSavings {
		out = out[:maxSavings]
	}
	return out
}

// varianceOutliers reports whether more than 30% of employees cost above
// 1.3x the mean, and the total excess over that line.
func varianceOutliers(impact domain.FinancialImpact) (bool, float64) {
	n := len(impact.PerEmployee)
	if n < 2 {
		return false, 0
	}
	mean := impact.TotalCost / float64(n)
	line := varianceMeanMultiple * mean
	outliers, excess := 0, 0.0
	for _, ec := range impact.PerEmployee {
		if ec.Total > line {
			outliers++
			excess += ec.Total - line
		}
	}
	return float64(outliers) > varianceEmployeeRatio*float64(n), excess
}
