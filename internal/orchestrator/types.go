// Package orchestrator drives the five-stage optimization pipeline: gap
// analysis, pattern generation, constraint validation, cost calculation,
// and scoring, under one run-level deadline. Stages are consumed through
// narrow interfaces so each can be replaced in tests.
package orchestrator

import (
	"context"
	"math/rand"

	"github.com/fieldshift/schedopt/internal/cost"
	"github.com/fieldshift/schedopt/internal/domain"
	"github.com/fieldshift/schedopt/internal/pattern"
	"github.com/fieldshift/schedopt/internal/scoring"
)

// RunMode selects the rollout strategy attached to the result.
type RunMode string

const (
	ModeImmediateFull RunMode = "immediate_full"
	ModePhased        RunMode = "phased"
	ModePilot         RunMode = "pilot"
)

// KnownMode reports whether m is a supported rollout mode.
func KnownMode(m RunMode) bool {
	return m == ModeImmediateFull || m == ModePhased || m == ModePilot
}

// RunStatus summarizes how a run ended.
type RunStatus string

const (
	StatusOK       RunStatus = "ok"
	StatusDegraded RunStatus = "degraded"
	StatusTimeout  RunStatus = "timeout"
)

// RunRequest describes one optimization run. Requirements and the current
// schedule may be supplied inline; when absent they come from the
// configured ScheduleLoader.
type RunRequest struct {
	RequestID string                   `json:"request_id"`
	Service   string                   `json:"service"`
	Range     domain.DateRange         `json:"range"`
	Mode      RunMode                  `json:"mode"`
	Goals     domain.OptimizationGoals `json:"goals"`
	Seed      int64                    `json:"seed,omitempty"`

	Requirements    []domain.CoverageRequirement `json:"requirements,omitempty"`
	CurrentSchedule []domain.ShiftBlock          `json:"current_schedule,omitempty"`
}

// RunResult is the full pipeline output for one request.
type RunResult struct {
	RequestID   string                   `json:"request_id"`
	Status      RunStatus                `json:"status"`
	GapReport   domain.GapReport         `json:"gap_report"`
	Suggestions domain.RankedSuggestions `json:"suggestions"`

	Validations map[string]domain.ComplianceMatrix `json:"validations"`
	Costs       map[string]domain.FinancialImpact  `json:"costs"`
	Baseline    scoring.Baseline                   `json:"baseline"`

	Plan ImplementationPlan `json:"implementation_plan"`

	ProcessingTimeMS         int64    `json:"processing_time_ms"`
	AlgorithmsUsed           []string `json:"algorithms_used"`
	DataQuality              float64  `json:"data_quality"`
	RecommendationConfidence float64  `json:"recommendation_confidence"`
	Warnings                 []string `json:"warnings,omitempty"`
}

// ScheduleLoader provides the run inputs when the request carries none.
type ScheduleLoader interface {
	LoadSchedule(ctx context.Context, service string, rng domain.DateRange) ([]domain.ShiftBlock, error)
	LoadForecast(ctx context.Context, service string, rng domain.DateRange) ([]domain.CoverageRequirement, error)
}

// RunStore is the slice of the metrics store the orchestrator reads
// directly: the latest coverage analysis as a forecast fallback, KPI
// targets for goal defaulting, run history for advisory context, and the
// pool skill directory for bulk resource checks. All of it is optional;
// a nil RunStore disables those lookups.
type RunStore interface {
	GetEmployeeSkills(ctx context.Context) (map[string][]domain.SkillID, error)
	GetCoverageAnalysis(ctx context.Context) (*domain.GapReport, error)
	GetOptimizationHistory(ctx context.Context, limit int) ([]domain.OptimizationRecord, error)
	GetKpiTarget(ctx context.Context, code string) (float64, error)
}

// Stage capabilities. The concrete gap, pattern, constraint, cost, and
// scoring types satisfy these; tests substitute slow or failing stages.
type (
	GapStage interface {
		AnalyzeRequirements(reqs []domain.CoverageRequirement, blocks []domain.ShiftBlock) domain.GapReport
	}
	PatternStage interface {
		Generate(ctx context.Context, current []domain.ShiftBlock, gaps domain.GapReport, goals domain.OptimizationGoals, window domain.DateRange, rnd *rand.Rand) (pattern.Result, error)
	}
	ConstraintStage interface {
		Validate(ctx context.Context, variant domain.ScheduleVariant, employeeIDs []string) (domain.ComplianceMatrix, error)
	}
	CostStage interface {
		Calculate(ctx context.Context, variant domain.ScheduleVariant, rates *domain.PayrollRates, policy *cost.OvertimePolicy) (domain.FinancialImpact, error)
	}
	ScoreStage interface {
		Score(variants []domain.ScheduleVariant, gaps domain.GapReport, costs map[string]domain.FinancialImpact, compliance map[string]domain.ComplianceMatrix, baseline scoring.Baseline, goals domain.OptimizationGoals) domain.RankedSuggestions
	}
)
