package orchestrator

import (
	"fmt"

	"github.com/fieldshift/schedopt/internal/domain"
)

// PlanPhase is one step of the rollout.
type PlanPhase struct {
	Name          string   `json:"name"`
	DurationWeeks int      `json:"duration_weeks"`
	Actions       []string `json:"actions"`
}

// ImplementationPlan packages the rollout guidance attached to a run.
type ImplementationPlan struct {
	Mode            RunMode     `json:"mode"`
	Phases          []PlanPhase `json:"phases"`
	SuccessCriteria []string    `json:"success_criteria"`
	Monitoring      []string    `json:"monitoring"`
}

// buildPlan derives the rollout plan for the chosen mode from the top
// suggestion. An empty suggestion set yields an empty plan with a
// review-only phase.
func buildPlan(mode RunMode, ranked domain.RankedSuggestions, employees int) ImplementationPlan {
	plan := ImplementationPlan{
		Mode: mode,
		SuccessCriteria: []string{
			"service level improves by at least 5 percentage points",
			"weekly labor cost drops by at least 10%",
			"employee satisfaction survey shows no decline after rollout",
		},
		Monitoring: []string{
			"daily coverage gap report during the first two weeks",
			"weekly cost component review against the baseline",
			"compliance violation count tracked per pay period",
		},
	}
	if len(ranked.Suggestions) == 0 {
		plan.Phases = []PlanPhase{{
			Name:          "review",
			DurationWeeks: 1,
			Actions:       []string{"no viable variant found; review demand forecast and staffing pool"},
		}}
		return plan
	}

	top := ranked.Suggestions[0]
	apply := fmt.Sprintf("apply %s pattern (%s) to the %d affected employee(s)", top.Pattern, top.VariantID, employees)

	switch mode {
	case ModeImmediateFull:
		plan.Phases = []PlanPhase{{
			Name:          "full rollout",
			DurationWeeks: 1,
			Actions: []string{
				"announce the new schedule one week ahead",
				apply,
				"staff a rapid-response channel for the first week",
			},
		}}
	case ModePilot:
		plan.Phases = []PlanPhase{
			{
				Name:          "pilot selection",
				DurationWeeks: 1,
				Actions:       []string{"pick one representative department and confirm volunteer coverage"},
			},
			{
				Name:          "pilot run",
				DurationWeeks: 2,
				Actions:       []string{apply + " within the pilot department"},
			},
			{
				Name:          "evaluation and rollout decision",
				DurationWeeks: 1,
				Actions:       []string{"compare pilot KPIs against success criteria before expanding"},
			},
		}
	default: // phased
		plan.Phases = []PlanPhase{
			{
				Name:          "preparation",
				DurationWeeks: 1,
				Actions:       []string{"brief team leads and collect schedule change objections"},
			},
			{
				Name:          "staged rollout",
				DurationWeeks: 1,
				Actions:       []string{apply + ", one team per wave"},
			},
			{
				Name:          "stabilization",
				DurationWeeks: 1,
				Actions:       []string{"hold remaining teams until wave metrics meet the success criteria"},
			},
		}
	}
	return plan
}
