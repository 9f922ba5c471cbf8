package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/fieldshift/schedopt/internal/domain"
)

// BulkRequest asks to apply several accepted variants at once.
type BulkRequest struct {
	RequestID   string                   `json:"request_id"`
	Mode        RunMode                  `json:"mode"`
	Variants    []domain.ScheduleVariant `json:"variants"`
	Constraints BulkConstraints          `json:"constraints"`
}

// BulkConstraints are the caller-side limits on the variant set as a
// whole, plus the baseline the combined impact is measured against.
type BulkConstraints struct {
	// BudgetCeiling caps the combined weekly cost. Zero means the
	// configured default; a negative value disables the check.
	BudgetCeiling float64 `json:"budget_ceiling"`

	// RequiredSkills must each be held by someone in the staffing pool.
	// Callers typically pass the union of the demand forecast's skill
	// requirements across the applied variants.
	RequiredSkills []domain.SkillID `json:"required_skills,omitempty"`

	// BaselineWeeklyCost and BaselineOpenGaps anchor the combined-impact
	// deltas. An unset (zero) baseline leaves the matching delta at zero.
	BaselineWeeklyCost float64 `json:"baseline_weekly_cost,omitempty"`
	BaselineOpenGaps   int     `json:"baseline_open_gaps,omitempty"`
}

// BulkResult reports every check the bulk application runs before any
// schedule is committed.
type BulkResult struct {
	RequestID      string         `json:"request_id"`
	ConflictReport ConflictReport `json:"conflict_report"`
	Resources      ResourceReport `json:"resource_report"`

	ProjectedCost float64 `json:"projected_cost"`
	BudgetCeiling float64 `json:"budget_ceiling"`
	BudgetOK      bool    `json:"budget_ok"`

	Impact           CombinedImpact   `json:"combined_impact"`
	TimelineWeeks    int              `json:"timeline_weeks"`
	TimelineFeasible bool             `json:"timeline_feasible"`
	Risk             domain.RiskLevel `json:"risk"`
	RollbackPlan     RollbackPlan     `json:"rollback_plan"`
}

// ConflictReport lists cross-variant double bookings.
type ConflictReport struct {
	EmployeeConflicts []EmployeeConflict `json:"employee_conflicts,omitempty"`
}

// EmployeeConflict is one double booking: an employee claimed by two
// variants over the same wall-clock window.
type EmployeeConflict struct {
	EmployeeID string          `json:"employee_id"`
	Date       time.Time       `json:"date"`
	Interval   domain.Interval `json:"interval"`
	VariantIDs []string        `json:"variant_ids"`
}

// ResourceReport is the staffing-pool availability check for the set.
// Checks that cannot run for lack of a pool or skill directory are noted
// rather than failed.
type ResourceReport struct {
	Available        bool             `json:"available"`
	MissingSkills    []domain.SkillID `json:"missing_skills,omitempty"`
	TrainingNeeds    []string         `json:"training_needs,omitempty"`
	UnknownEmployees []string         `json:"unknown_employees,omitempty"`
	Notes            []string         `json:"notes,omitempty"`
}

// CombinedImpact aggregates what the set changes as a whole.
type CombinedImpact struct {
	// CoverageDelta sums per-variant gap closure against the baseline.
	CoverageDelta int `json:"coverage_delta"`
	// CostSavings sums per-variant weekly savings against the baseline.
	CostSavings       float64 `json:"cost_savings"`
	EmployeesAffected int     `json:"employees_affected"`
	AverageComplexity float64 `json:"average_complexity"`
}

// RollbackPlan pairs degradation triggers with their detection method and
// the recovery steps to run when one fires.
type RollbackPlan struct {
	Triggers []RollbackTrigger `json:"triggers"`
}

// RollbackTrigger is one rollback condition.
type RollbackTrigger struct {
	Condition       string   `json:"condition"`
	Detection       string   `json:"detection"`
	DetectionWindow string   `json:"detection_window"`
	RecoverySteps   []string `json:"recovery_steps"`
}

// BulkApply checks a set of variants for cross-variant conflicts,
// resource availability, budget, timeline, combined impact, and risk.
// Nothing is committed here; callers apply the variants only on a clean
// result. A budget breach returns the populated result together with a
// domain.ErrBudgetExceeded error.
func (o *Orchestrator) BulkApply(ctx context.Context, req BulkRequest) (BulkResult, error) {
	if len(req.Variants) == 0 {
		return BulkResult{}, fmt.Errorf("%w: bulk apply needs at least one variant", domain.ErrInvalidInput)
	}
	if !KnownMode(req.Mode) {
		return BulkResult{}, fmt.Errorf("%w: unknown rollout mode %q", domain.ErrInvalidInput, req.Mode)
	}
	for _, v := range req.Variants {
		if err := v.Validate(); err != nil {
			return BulkResult{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return BulkResult{}, fmt.Errorf("bulk apply cancelled: %w", domain.ErrCancelled)
	}

	result := BulkResult{RequestID: req.RequestID, BudgetOK: true}
	result.ConflictReport = crossVariantConflicts(req.Variants)
	result.Resources = o.resourceReport(ctx, req.Variants, req.Constraints.RequiredSkills)
	result.Impact = combinedImpact(req.Variants, req.Constraints)

	result.BudgetCeiling = req.Constraints.BudgetCeiling
	if result.BudgetCeiling == 0 {
		result.BudgetCeiling = o.cfg.Bulk.DefaultBudgetCeiling
	}
	for _, v := range req.Variants {
		result.ProjectedCost += v.ProjectedWeeklyCost
	}

	result.TimelineWeeks, result.TimelineFeasible = o.timeline(req.Mode, req.Variants)
	result.Risk = o.combinedRisk(req.Variants, result)
	result.RollbackPlan = rollbackPlan()

	var err error
	if result.BudgetCeiling > 0 && result.ProjectedCost > result.BudgetCeiling {
		result.BudgetOK = false
		err = fmt.Errorf("projected cost %.0f over ceiling %.0f: %w",
			result.ProjectedCost, result.BudgetCeiling, domain.ErrBudgetExceeded)
	}

	zlog.Info().
		Str("request_id", req.RequestID).
		Int("variants", len(req.Variants)).
		Int("conflicts", len(result.ConflictReport.EmployeeConflicts)).
		Bool("resources_available", result.Resources.Available).
		Str("risk", string(result.Risk)).
		Bool("budget_ok", result.BudgetOK).
		Msg("bulk application checked")
	return result, err
}

// crossVariantConflicts finds employees whose blocks overlap in
// wall-clock time across different variants of the set.
func crossVariantConflicts(variants []domain.ScheduleVariant) ConflictReport {
	type placed struct {
		variantID string
		block     domain.ShiftBlock
	}
	byEmployee := make(map[string][]placed)
	for _, v := range variants {
		for _, b := range v.Blocks {
			byEmployee[b.EmployeeID] = append(byEmployee[b.EmployeeID], placed{v.ID, b})
		}
	}
	ids := make([]string, 0, len(byEmployee))
	for id := range byEmployee {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var report ConflictReport
	for _, id := range ids {
		blocks := byEmployee[id]
		for i := 0; i < len(blocks); i++ {
			for j := i + 1; j < len(blocks); j++ {
				if blocks[i].variantID == blocks[j].variantID {
					continue
				}
				if !blocks[i].block.Overlaps(blocks[j].block) {
					continue
				}
				date, window := overlapWindow(blocks[i].block, blocks[j].block)
				pair := []string{blocks[i].variantID, blocks[j].variantID}
				sort.Strings(pair)
				report.EmployeeConflicts = append(report.EmployeeConflicts, EmployeeConflict{
					EmployeeID: id,
					Date:       date,
					Interval:   window,
					VariantIDs: pair,
				})
			}
		}
	}
	return report
}

// overlapWindow computes the shared wall-clock window of two overlapping
// blocks as a date plus a minutes-of-day interval. A window crossing
// midnight keeps its end past the day bound, same as overnight blocks.
func overlapWindow(a, b domain.ShiftBlock) (time.Time, domain.Interval) {
	aStart, aEnd := blockAbsMinutes(a)
	bStart, bEnd := blockAbsMinutes(b)
	start, end := aStart, aEnd
	if bStart > start {
		start = bStart
	}
	if bEnd < end {
		end = bEnd
	}
	dayStart := start - start%int64(domain.MinutesPerDay)
	return time.Unix(dayStart*60, 0).UTC(), domain.NewInterval(int(start-dayStart), int(end-dayStart))
}

func blockAbsMinutes(b domain.ShiftBlock) (int64, int64) {
	day := b.Date.Truncate(24*time.Hour).Unix() / 60
	return day + int64(b.StartMin), day + int64(b.EndMin)
}

// resourceReport checks that the staffing pool covers every required
// skill and that every referenced employee exists in it.
func (o *Orchestrator) resourceReport(ctx context.Context, variants []domain.ScheduleVariant, required []domain.SkillID) ResourceReport {
	var report ResourceReport

	if len(required) > 0 {
		covered, err := o.poolSkills(ctx)
		switch {
		case err != nil:
			report.Notes = append(report.Notes, fmt.Sprintf("skill directory unavailable, coverage unverified: %v", err))
		case covered == nil:
			report.Notes = append(report.Notes, "no skill directory configured; skill coverage unverified")
		default:
			seen := make(map[domain.SkillID]bool, len(required))
			for _, skill := range required {
				if seen[skill] {
					continue
				}
				seen[skill] = true
				if !covered[skill] {
					report.MissingSkills = append(report.MissingSkills, skill)
					report.TrainingNeeds = append(report.TrainingNeeds, fmt.Sprintf(
						"no employee in the pool holds %q; schedule training before rollout", skill))
				}
			}
		}
	}

	unknown, note := o.unknownEmployees(ctx, variants)
	report.UnknownEmployees = unknown
	if note != "" {
		report.Notes = append(report.Notes, note)
	}

	report.Available = len(report.MissingSkills) == 0 && len(report.UnknownEmployees) == 0
	return report
}

// poolSkills flattens the skill directory into a coverage set. A nil map
// with a nil error means no directory is configured.
func (o *Orchestrator) poolSkills(ctx context.Context) (map[domain.SkillID]bool, error) {
	if o.store == nil {
		return nil, nil
	}
	byEmployee, err := o.store.GetEmployeeSkills(ctx)
	if err != nil {
		return nil, err
	}
	covered := make(map[domain.SkillID]bool)
	for _, skills := range byEmployee {
		for _, s := range skills {
			covered[s] = true
		}
	}
	return covered, nil
}

// unknownEmployees flags variant employees missing from the staffing
// pool. Without a pool-aware loader the check is skipped: inline requests
// carry their own pool.
func (o *Orchestrator) unknownEmployees(ctx context.Context, variants []domain.ScheduleVariant) (unknown []string, note string) {
	pool, ok := o.loader.(interface {
		KnownEmployees(ctx context.Context) (map[string]bool, error)
	})
	if !ok {
		return nil, ""
	}
	known, err := pool.KnownEmployees(ctx)
	if err != nil {
		return nil, fmt.Sprintf("staffing pool unavailable, membership unverified: %v", err)
	}
	seen := make(map[string]bool)
	for _, v := range variants {
		for _, id := range v.EmployeeIDs() {
			if !known[id] && !seen[id] {
				seen[id] = true
				unknown = append(unknown, id)
			}
		}
	}
	sort.Strings(unknown)
	return unknown, ""
}

// combinedImpact aggregates the set-level deltas. Gap closure and cost
// savings are measured per variant against the caller's baseline.
func combinedImpact(variants []domain.ScheduleVariant, c BulkConstraints) CombinedImpact {
	impact := CombinedImpact{
		EmployeesAffected: distinctEmployees(variants),
		AverageComplexity: averageComplexity(variants),
	}
	for _, v := range variants {
		if c.BaselineOpenGaps > 0 {
			impact.CoverageDelta += c.BaselineOpenGaps - v.ProjectedGaps
		}
		if c.BaselineWeeklyCost > 0 {
			impact.CostSavings += c.BaselineWeeklyCost - v.ProjectedWeeklyCost
		}
	}
	return impact
}

// timeline maps the rollout mode to its duration. Immediate rollouts are
// only feasible for operationally simple variant sets.
func (o *Orchestrator) timeline(mode RunMode, variants []domain.ScheduleVariant) (weeks int, feasible bool) {
	avg := averageComplexity(variants)
	switch mode {
	case ModeImmediateFull:
		return 1, avg > o.cfg.Bulk.ImmediateMinComplexity
	case ModePilot:
		return 4, true
	default:
		return 3, true
	}
}

// combinedRisk accumulates risk factors across the whole set: conflicts,
// resource gaps, low operational regularity, and rollout size.
func (o *Orchestrator) combinedRisk(variants []domain.ScheduleVariant, result BulkResult) domain.RiskLevel {
	factors := 0
	if len(result.ConflictReport.EmployeeConflicts) > 0 {
		factors += 2
	}
	if !result.Resources.Available {
		factors += 2
	}
	if averageComplexity(variants) < 30 {
		factors++
	}
	if distinctEmployees(variants) > o.cfg.Bulk.LargeRolloutEmployees {
		factors++
	}
	switch {
	case factors == 0:
		return domain.RiskLow
	case factors <= 2:
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}

func averageComplexity(variants []domain.ScheduleVariant) float64 {
	if len(variants) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range variants {
		sum += v.Complexity
	}
	return sum / float64(len(variants))
}

// rollbackPlan is the standing three-trigger rollback procedure attached
// to every bulk application.
func rollbackPlan() RollbackPlan {
	return RollbackPlan{Triggers: []RollbackTrigger{
		{
			Condition:       "service level drops more than 5 points below target",
			Detection:       "real-time service-level monitoring",
			DetectionWindow: "1h",
			RecoverySteps: []string{
				"restore the previous schedule for the affected teams",
				"notify affected employees of the reverted shifts",
				"re-run the optimization with the degradation flagged",
			},
		},
		{
			Condition:       "employee satisfaction falls below the pre-rollout mark",
			Detection:       "daily pulse survey",
			DetectionWindow: "1d",
			RecoverySteps: []string{
				"pause remaining rollout waves",
				"review preference violations in the applied variants",
				"restore prior shifts for employees who opted out",
			},
		},
		{
			Condition:       "weekly cost runs more than 15% over projection",
			Detection:       "weekly payroll reconciliation",
			DetectionWindow: "1w",
			RecoverySteps: []string{
				"freeze overtime assignments introduced by the rollout",
				"restore the previous schedule if the overrun persists a second week",
			},
		},
	}}
}
