package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/fieldshift/schedopt/internal/config"
	"github.com/fieldshift/schedopt/internal/domain"
	"github.com/fieldshift/schedopt/internal/log"
	"github.com/fieldshift/schedopt/internal/scoring"
	"github.com/fieldshift/schedopt/internal/telemetry"
)

// Stage names, used for timers, step logging, and the algorithms list.
const (
	stageGap        = "gap_analysis"
	stagePattern    = "pattern_generation"
	stageConstraint = "constraint_validation"
	stageCost       = "cost_calculation"
	stageScoring    = "scoring"
	stagePlan       = "implementation_plan"
)

// Orchestrator runs the pipeline end to end under the run budget.
type Orchestrator struct {
	cfg        config.Config
	loader     ScheduleLoader
	store      RunStore
	gaps       GapStage
	generator  PatternStage
	validator  ConstraintStage
	calculator CostStage
	scorer     ScoreStage
	metrics    *telemetry.Metrics
}

// New assembles an orchestrator from its stage capabilities. loader,
// runStore, and metrics may be nil; every stage is required.
func New(cfg config.Config, loader ScheduleLoader, runStore RunStore, gaps GapStage, generator PatternStage, validator ConstraintStage, calculator CostStage, scorer ScoreStage, metrics *telemetry.Metrics) (*Orchestrator, error) {
	if gaps == nil || generator == nil || validator == nil || calculator == nil || scorer == nil {
		return nil, fmt.Errorf("%w: orchestrator requires all five stages", domain.ErrInvalidInput)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = config.Default().Workers
	}
	return &Orchestrator{
		cfg: cfg, loader: loader, store: runStore,
		gaps: gaps, generator: generator, validator: validator,
		calculator: calculator, scorer: scorer, metrics: metrics,
	}, nil
}

// runInputs are the resolved demand and schedule for one run, with the
// provenance flags data quality grading needs.
type runInputs struct {
	reqs              []domain.CoverageRequirement
	schedule          []domain.ShiftBlock
	forecastFromStore bool
}

// Run executes one optimization request. The run is bounded by the run
// budget; a budget overrun mid-pipeline yields a timeout-status result
// carrying whatever stages completed rather than an error.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	if err := o.validateRequest(req); err != nil {
		return RunResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return RunResult{}, fmt.Errorf("run not started: %w", domain.ErrCancelled)
	}
	started := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, o.budget(o.cfg.Budgets.Run, 60*time.Second))
	defer cancel()

	if o.metrics != nil {
		o.metrics.ActiveRuns.Inc()
		defer o.metrics.ActiveRuns.Dec()
	}
	steps := log.NewStepLogger("optimize", []string{stageGap, stagePattern, stageConstraint, stageCost, stageScoring, stagePlan})
	defer steps.Summary()

	result := RunResult{
		RequestID:   req.RequestID,
		Status:      StatusOK,
		Validations: map[string]domain.ComplianceMatrix{},
		Costs:       map[string]domain.FinancialImpact{},
	}

	inputs, err := o.loadInputs(runCtx, req)
	if err != nil {
		o.countRun("error")
		return RunResult{}, err
	}
	if inputs.forecastFromStore {
		result.Warnings = append(result.Warnings, "forecast reconstructed from the latest stored coverage analysis")
	}
	if len(inputs.reqs) == 0 {
		result.Warnings = append(result.Warnings, "no demand forecast available; gap analysis covers the current schedule only")
	}
	goals := o.defaultGoals(runCtx, req.Goals)

	// Gap analysis.
	steps.StartStep(stageGap)
	timer := o.metrics.StartStage(stageGap)
	result.GapReport = o.gaps.AnalyzeRequirements(inputs.reqs, inputs.schedule)
	timer.Stop(result.GapReport.Degraded)
	steps.CompleteStep(stageGap, result.GapReport.Degraded)
	result.AlgorithmsUsed = append(result.AlgorithmsUsed, "interval_gap_analysis")

	// Pattern generation under its own stage budget.
	steps.StartStep(stagePattern)
	timer = o.metrics.StartStage(stagePattern)
	genCtx, genCancel := context.WithTimeout(runCtx, o.budget(o.cfg.Budgets.Pattern, 8*time.Second))
	genResult, err := o.generator.Generate(genCtx, inputs.schedule, result.GapReport, goals, req.Range, rand.New(rand.NewSource(o.seed(req))))
	genCancel()
	timer.Stop(genResult.Degraded)
	if err != nil {
		steps.FailStep(stagePattern, err)
		o.countStageError(stagePattern, err)
		o.countRun("error")
		return RunResult{}, fmt.Errorf("pattern generation: %w", err)
	}
	steps.CompleteStep(stagePattern, genResult.Degraded)
	result.AlgorithmsUsed = append(result.AlgorithmsUsed, "evolutionary_pattern_search")
	if genResult.Degraded {
		result.Status = StatusDegraded
		result.Warnings = append(result.Warnings, "pattern search returned its elite set after exceeding the stage budget")
	}

	// Constraint validation and cost calculation fan out per variant.
	if err := o.assessVariants(runCtx, genResult.Variants, &result, steps); err != nil {
		o.countRun("error")
		return RunResult{}, err
	}
	result.AlgorithmsUsed = append(result.AlgorithmsUsed, "rule_matrix_validation", "component_cost_model")

	// Baseline: the current schedule priced with the same component model.
	result.Baseline = o.baseline(runCtx, inputs.schedule)

	// Scoring.
	steps.StartStep(stageScoring)
	timer = o.metrics.StartStage(stageScoring)
	result.Suggestions = o.scorer.Score(genResult.Variants, result.GapReport, result.Costs, result.Validations, result.Baseline, goals)
	timer.Stop(false)
	steps.CompleteStep(stageScoring, false)
	result.AlgorithmsUsed = append(result.AlgorithmsUsed, "weighted_composite_scoring")
	o.historyAdvisory(runCtx, &result)

	// Implementation plan for the chosen rollout mode.
	steps.StartStep(stagePlan)
	result.Plan = buildPlan(req.Mode, result.Suggestions, distinctEmployees(genResult.Variants))
	steps.CompleteStep(stagePlan, false)

	o.finish(runCtx, &result, inputs, started)
	return result, nil
}

// assessVariants validates and prices every variant with a bounded worker
// pool. Per-variant failures degrade the run instead of aborting it; a
// run-context expiry stops the fan-out and marks the run timed out.
func (o *Orchestrator) assessVariants(ctx context.Context, variants []domain.ScheduleVariant, result *RunResult, steps *log.StepLogger) error {
	steps.StartStep(stageConstraint)
	steps.StartStep(stageCost)
	conTimer := o.metrics.StartStage(stageConstraint)
	costTimer := o.metrics.StartStage(stageCost)

	valCtx, valCancel := context.WithTimeout(ctx, o.budget(o.cfg.Budgets.Constraint, 2*time.Second))
	defer valCancel()
	costCtx, costCancel := context.WithTimeout(ctx, o.budget(o.cfg.Budgets.Cost, 2*time.Second))
	defer costCancel()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		sem      = make(chan struct{}, o.cfg.Workers)
		degraded bool
	)
	for _, v := range variants {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(v domain.ScheduleVariant) {
			defer wg.Done()
			defer func() { <-sem }()

			matrix, err := o.validator.Validate(valCtx, v, v.EmployeeIDs())
			impact, costErr := o.calculator.Calculate(costCtx, v, nil, nil)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				degraded = true
				o.countStageError(stageConstraint, err)
				result.Warnings = append(result.Warnings, fmt.Sprintf("validation skipped for %s: %v", v.ID, err))
			} else {
				result.Validations[v.ID] = matrix
				if matrix.Degraded {
					degraded = true
				}
			}
			if costErr != nil {
				degraded = true
				o.countStageError(stageCost, costErr)
				result.Warnings = append(result.Warnings, fmt.Sprintf("cost analysis skipped for %s: %v", v.ID, costErr))
			} else {
				result.Costs[v.ID] = impact
			}
		}(v)
	}
	wg.Wait()

	conTimer.Stop(degraded)
	costTimer.Stop(degraded)
	steps.CompleteStep(stageConstraint, degraded)
	steps.CompleteStep(stageCost, degraded)
	if degraded {
		result.Status = StatusDegraded
	}
	if err := ctx.Err(); err != nil && errors.Is(err, context.Canceled) {
		return fmt.Errorf("run cancelled: %w", domain.ErrCancelled)
	}
	return nil
}

// baseline prices the current schedule as a variant so scoring has a
// comparison point. Pricing failures leave a zero baseline, which the
// scorer treats as "no reduction expected".
func (o *Orchestrator) baseline(ctx context.Context, schedule []domain.ShiftBlock) scoring.Baseline {
	if len(schedule) == 0 {
		return scoring.Baseline{}
	}
	current := domain.NewVariant(domain.PatternTraditional, 0, schedule)
	impact, err := o.calculator.Calculate(ctx, current, nil, nil)
	if err != nil {
		zlog.Warn().Err(err).Msg("baseline cost unavailable")
		return scoring.Baseline{}
	}
	return scoring.Baseline{TotalCost: impact.TotalCost, OvertimeCost: impact.OvertimeCost()}
}

// finish stamps status, timing, confidence, and data quality on the result.
func (o *Orchestrator) finish(ctx context.Context, result *RunResult, inputs runInputs, started time.Time) {
	elapsed := time.Since(started)
	result.ProcessingTimeMS = elapsed.Milliseconds()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.Status = StatusTimeout
		result.Warnings = append(result.Warnings, "run budget exhausted; results reflect completed stages only")
	}
	slowAlert := o.budget(o.cfg.Budgets.SlowRunAlert, 30*time.Second)
	if elapsed > slowAlert {
		result.Warnings = append(result.Warnings, fmt.Sprintf("run exceeded the %s slow-run alert threshold", slowAlert))
		zlog.Warn().Dur("elapsed", elapsed).Msg("slow optimization run")
	}

	result.DataQuality = o.dataQuality(result, inputs)
	result.RecommendationConfidence = confidence(result)
	o.countRun(string(result.Status))

	zlog.Info().
		Str("request_id", result.RequestID).
		Str("status", string(result.Status)).
		Int("suggestions", len(result.Suggestions.Suggestions)).
		Float64("data_quality", result.DataQuality).
		Int64("elapsed_ms", result.ProcessingTimeMS).
		Msg("optimization run complete")
}

// dataQuality grades input completeness on a 0-100 scale: a missing
// schedule costs 30 points, a missing forecast 40, a forecast rebuilt
// from the stored analysis 10, and fallback constraint rules 15.
func (o *Orchestrator) dataQuality(result *RunResult, inputs runInputs) float64 {
	q := 100.0
	if len(inputs.schedule) == 0 {
		q -= 30
	}
	if len(inputs.reqs) == 0 {
		q -= 40
	} else if inputs.forecastFromStore {
		q -= 10
	}
	for _, m := range result.Validations {
		if m.Source == domain.SourceFallback {
			if o.metrics != nil {
				o.metrics.StoreFallback.Inc()
			}
			q -= 15
			result.Warnings = append(result.Warnings, "constraint rules came from the built-in fallback set")
			break
		}
	}
	if q < 0 {
		q = 0
	}
	return q
}

// confidence starts from the 85-point base, moves with gap coverage and
// compliance health, and is clamped to the published 80-100 band.
func confidence(result *RunResult) float64 {
	c := 85.0

	if result.GapReport.CoverageScore >= 90 {
		c += 5
	} else if result.GapReport.CoverageScore < 50 {
		c -= 5
	}
	if len(result.GapReport.CriticalIntervals) > 0 {
		c -= 3
	}

	if s := result.Suggestions.Suggestions; len(s) > 0 && s[0].Breakdown.ComplianceScore >= 18 {
		c += 5
	}
	for _, m := range result.Validations {
		if m.CriticalCount() > 0 {
			c -= 5
			break
		}
	}

	if result.Status != StatusOK {
		c -= 5
	}
	if c < 80 {
		c = 80
	}
	if c > 100 {
		c = 100
	}
	return c
}

func (o *Orchestrator) validateRequest(req RunRequest) error {
	if req.RequestID == "" {
		return fmt.Errorf("%w: request id required", domain.ErrInvalidInput)
	}
	if !KnownMode(req.Mode) {
		return fmt.Errorf("%w: unknown rollout mode %q", domain.ErrInvalidInput, req.Mode)
	}
	if req.Range.Start.IsZero() || req.Range.End.IsZero() || req.Range.End.Before(req.Range.Start) {
		return fmt.Errorf("%w: date range must be ordered and non-empty", domain.ErrInvalidInput)
	}
	if len(req.Requirements) == 0 && o.loader == nil && o.store == nil {
		return fmt.Errorf("%w: request carries no requirements and no loader is configured", domain.ErrInvalidInput)
	}
	return nil
}

// loadInputs resolves requirements and the current schedule, fetching both
// from the loader concurrently when the request carries neither. A failed
// or empty forecast load falls back to the stored coverage analysis.
func (o *Orchestrator) loadInputs(ctx context.Context, req RunRequest) (runInputs, error) {
	in := runInputs{reqs: req.Requirements, schedule: req.CurrentSchedule}

	if o.loader != nil && (len(in.reqs) == 0 || len(in.schedule) == 0) {
		var (
			wg                    sync.WaitGroup
			forecastErr, schedErr error
		)
		if len(in.reqs) == 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				in.reqs, forecastErr = o.loader.LoadForecast(ctx, req.Service, req.Range)
			}()
		}
		if len(in.schedule) == 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				in.schedule, schedErr = o.loader.LoadSchedule(ctx, req.Service, req.Range)
			}()
		}
		wg.Wait()

		if schedErr != nil {
			return runInputs{}, fmt.Errorf("load schedule: %w", schedErr)
		}
		if forecastErr != nil {
			zlog.Warn().Err(forecastErr).Msg("forecast loader failed, trying the stored coverage analysis")
		}
	}

	if len(in.reqs) == 0 {
		if fallback := o.forecastFromAnalysis(ctx); len(fallback) > 0 {
			in.reqs = fallback
			in.forecastFromStore = true
		}
	}
	return in, nil
}

// forecastFromAnalysis reconstructs demand from the latest stored coverage
// analysis.
func (o *Orchestrator) forecastFromAnalysis(ctx context.Context) []domain.CoverageRequirement {
	if o.store == nil {
		return nil
	}
	report, err := o.store.GetCoverageAnalysis(ctx)
	if err != nil || report == nil {
		return nil
	}
	reqs := make([]domain.CoverageRequirement, 0, len(report.Intervals))
	for _, ig := range report.Intervals {
		if ig.Required <= 0 {
			continue
		}
		reqs = append(reqs, domain.CoverageRequirement{
			Interval:          ig.Interval,
			RequiredHeadcount: ig.Required,
			RequiredSkills:    ig.RequiredSkills,
			Priority:          priorityFromSeverity(ig.Severity),
		})
	}
	return reqs
}

func priorityFromSeverity(s domain.GapSeverity) domain.Priority {
	switch s {
	case domain.GapCritical:
		return domain.PriorityCritical
	case domain.GapHigh:
		return domain.PriorityHigh
	case domain.GapMedium:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// defaultGoals fills an unset service-level target from the KPI registry.
func (o *Orchestrator) defaultGoals(ctx context.Context, goals domain.OptimizationGoals) domain.OptimizationGoals {
	if goals.ServiceLevelTarget > 0 || o.store == nil {
		return goals
	}
	target, err := o.store.GetKpiTarget(ctx, "service_level")
	if err != nil || target <= 0 {
		return goals
	}
	goals.ServiceLevelTarget = target
	return goals
}

// historyAdvisory compares the run's best score against recent history and
// attaches an advisory warning when it falls clearly short.
func (o *Orchestrator) historyAdvisory(ctx context.Context, result *RunResult) {
	if o.store == nil || len(result.Suggestions.Suggestions) == 0 {
		return
	}
	records, err := o.store.GetOptimizationHistory(ctx, 10)
	if err != nil || len(records) == 0 {
		return
	}
	sum := 0.0
	for _, r := range records {
		sum += r.BestScore
	}
	avg := sum / float64(len(records))
	if top := result.Suggestions.Suggestions[0].OverallScore; top < avg-10 {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"best score %.1f trails the recent-run average %.1f; review demand inputs", top, avg))
	}
}

// seed picks the evolutionary seed: the request's when set, wall clock
// otherwise. Callers wanting reproducible output must set one.
func (o *Orchestrator) seed(req RunRequest) int64 {
	if req.Seed != 0 {
		return req.Seed
	}
	return time.Now().UnixNano()
}

func (o *Orchestrator) budget(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func (o *Orchestrator) countRun(status string) {
	if o.metrics != nil {
		o.metrics.RunsTotal.WithLabelValues(status).Inc()
	}
}

// countStageError records a stage failure by error kind.
func (o *Orchestrator) countStageError(stage string, err error) {
	if o.metrics == nil || err == nil {
		return
	}
	kind := "internal"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		kind = "invalid_input"
	case errors.Is(err, domain.ErrStoreUnavailable):
		kind = "store_unavailable"
	case errors.Is(err, domain.ErrBudgetExceeded), errors.Is(err, context.DeadlineExceeded):
		kind = "budget"
	case errors.Is(err, domain.ErrCancelled), errors.Is(err, context.Canceled):
		kind = "cancelled"
	}
	o.metrics.StageErrors.WithLabelValues(stage, kind).Inc()
}

func distinctEmployees(variants []domain.ScheduleVariant) int {
	seen := make(map[string]bool)
	for _, v := range variants {
		for _, id := range v.EmployeeIDs() {
			seen[id] = true
		}
	}
	return len(seen)
}
