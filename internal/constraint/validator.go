package constraint

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fieldshift/schedopt/internal/domain"
	"github.com/fieldshift/schedopt/internal/store"
)

// compiledRule pairs a declarative rule row with its compiled predicate.
type compiledRule struct {
	rule domain.ConstraintRule
	pred Predicate
}

// Validator produces compliance matrices for schedule variants. Rules and
// employee data load from the MetricsStore on first use and stay cached
// for the lifetime of the run; subsequent reads are lock-free.
type Validator struct {
	store store.MetricsStore

	once     sync.Once
	rules    []compiledRule
	source   domain.RuleSource
	loadNote []string

	employees   map[string]domain.Employee
	preferences map[string]domain.ShiftPreference
}

// NewValidator builds a validator over the given store. A nil store goes
// straight to the built-in fallback rule set.
func NewValidator(metricsStore store.MetricsStore) *Validator {
	return &Validator{store: metricsStore}
}

// Validate evaluates every loaded rule against the variant, optionally
// scoped to the given employees. Store errors never propagate; they are
// reported in the matrix validation summary.
func (v *Validator) Validate(ctx context.Context, variant domain.ScheduleVariant, employeeIDs []string) (domain.ComplianceMatrix, error) {
	if err := variant.Validate(); err != nil {
		return domain.ComplianceMatrix{}, err
	}
	v.once.Do(func() { v.load(ctx) })

	var scope map[string]bool
	if len(employeeIDs) > 0 {
		scope = make(map[string]bool, len(employeeIDs))
		for _, id := range employeeIDs {
			scope[id] = true
		}
	}

	derived := deriveAll(variant, scope)
	agg := aggregate(derived)
	var violations []domain.Violation
	for _, cr := range v.rules {
		if ap, ok := cr.pred.(aggregatePredicate); ok {
			violations = append(violations, ap.EvaluateAggregate(cr.rule, agg)...)
			continue
		}
		for _, d := range derived {
			violations = append(violations, cr.pred.Evaluate(cr.rule, d)...)
		}
	}

	matrix := domain.NewComplianceMatrix(variant.ID, violations, v.source)
	matrix.ValidationSummary = append(matrix.ValidationSummary, v.loadNote...)
	if ctx.Err() != nil {
		matrix.Degraded = true
	}
	return matrix, nil
}

// load pulls every rule registry once and compiles the rows. Any registry
// failure switches the whole validator to the fallback set: mixing store
// and fallback rules would make scores incomparable.
func (v *Validator) load(ctx context.Context) {
	v.source = domain.SourceStore
	if v.store == nil {
		v.useFallback("no metrics store configured")
		return
	}

	registries := []struct {
		name string
		list func(context.Context) ([]domain.ConstraintRule, error)
	}{
		{"labor compliance", v.store.ListActiveConstraintRules},
		{"work rules", v.store.ListWorkRules},
		{"business rules", v.store.ListBusinessRules},
		{"schedule constraints", v.store.ListScheduleConstraints},
	}

	var rows []domain.ConstraintRule
	for _, reg := range registries {
		rules, err := reg.list(ctx)
		if err != nil {
			log.Warn().Err(err).Str("registry", reg.name).Msg("rule registry unavailable, using fallback rules")
			v.useFallback(fmt.Sprintf("%s registry unavailable: %v", reg.name, err))
			return
		}
		rows = append(rows, rules...)
	}

	if prefs, err := v.store.GetEmployeePreferences(ctx); err == nil {
		v.preferences = prefs
	} else {
		v.loadNote = append(v.loadNote, fmt.Sprintf("preferences unavailable: %v", err))
	}
	if employees, err := v.store.GetEmployeeProfiles(ctx, nil); err == nil {
		v.employees = make(map[string]domain.Employee, len(employees))
		for _, e := range employees {
			v.employees[e.ID] = e
		}
	} else {
		v.loadNote = append(v.loadNote, fmt.Sprintf("employee profiles unavailable: %v", err))
	}

	rows = append(rows, v.derivedRules(rows)...)
	v.rules = v.compile(rows)
	log.Debug().Int("rules", len(v.rules)).Msg("constraint rules loaded from store")
}

// derivedRules synthesizes rule rows for registry data that arrives as
// master data rather than rule rows: registered shift preferences and the
// night/weekend permission flags on employee profiles. Explicit store
// rules of the same kind take precedence.
func (v *Validator) derivedRules(rows []domain.ConstraintRule) []domain.ConstraintRule {
	have := make(map[string]bool, len(rows))
	for _, r := range rows {
		have[r.Kind] = true
	}

	var out []domain.ConstraintRule
	if len(v.preferences) > 0 && !have[domain.RulePreferenceMismatch] {
		out = append(out, domain.ConstraintRule{
			ID: "derived-preference-window", Category: domain.CategoryPreference,
			Kind: domain.RulePreferenceMismatch, Severity: domain.SeverityLow, CostImpact: 50,
			RemedyHint:  "align shifts with the registered preference window",
			Description: "shift ignores a registered employee preference",
		})
	}
	if len(v.employees) > 0 {
		if !have[domain.RuleNightWithoutPermission] {
			out = append(out, domain.ConstraintRule{
				ID: "derived-night-permission", Category: domain.CategoryContract,
				Kind: domain.RuleNightWithoutPermission, Severity: domain.SeverityHigh, CostImpact: 250,
				RemedyHint:  "assign night hours to employees holding night permission",
				Description: "night work scheduled without permission",
			})
		}
		if !have[domain.RuleWeekendWithoutPermission] {
			out = append(out, domain.ConstraintRule{
				ID: "derived-weekend-permission", Category: domain.CategoryContract,
				Kind: domain.RuleWeekendWithoutPermission, Severity: domain.SeverityMedium, CostImpact: 150,
				RemedyHint:  "assign weekend slots to employees holding weekend permission",
				Description: "weekend work scheduled without permission",
			})
		}
	}
	return out
}

// compile turns declarative rows into typed predicates. Rows with unusable
// limits are skipped with a note; unknown kinds become Custom (pass).
func (v *Validator) compile(rows []domain.ConstraintRule) []compiledRule {
	compiled := make([]compiledRule, 0, len(rows))
	for _, r := range rows {
		var pred Predicate
		switch r.Kind {
		case domain.RuleWeeklyHoursOver:
			if r.Limit <= 0 {
				v.loadNote = append(v.loadNote, fmt.Sprintf("rule %s skipped: non-positive limit", r.ID))
				continue
			}
			pred = WeeklyHoursOver{Limit: r.Limit}
		case domain.RuleDailyOvertimeOver:
			if r.Limit < 0 {
				v.loadNote = append(v.loadNote, fmt.Sprintf("rule %s skipped: negative limit", r.ID))
				continue
			}
			pred = DailyOvertimeOver{Limit: r.Limit}
		case domain.RuleMinRestBelow:
			if r.Limit <= 0 {
				v.loadNote = append(v.loadNote, fmt.Sprintf("rule %s skipped: non-positive rest", r.ID))
				continue
			}
			pred = MinRestBelow{Hours: r.Limit}
		case domain.RuleConsecutiveDaysOver:
			if r.Limit < 1 {
				v.loadNote = append(v.loadNote, fmt.Sprintf("rule %s skipped: bad day count", r.ID))
				continue
			}
			pred = ConsecutiveDaysOver{N: int(r.Limit)}
		case domain.RulePreferenceMismatch:
			pred = PreferenceMismatch{Preferences: v.preferences}
		case domain.RulePartTimeHoursOver:
			if r.Limit <= 0 {
				v.loadNote = append(v.loadNote, fmt.Sprintf("rule %s skipped: non-positive limit", r.ID))
				continue
			}
			pred = PartTimeHoursOver{Limit: r.Limit, Employees: v.employees}
		case domain.RuleMinCoverageWindow:
			if r.Limit < 1 {
				v.loadNote = append(v.loadNote, fmt.Sprintf("rule %s skipped: bad minimum headcount", r.ID))
				continue
			}
			pred = MinCoverageWindow{}
		case domain.RuleNightWithoutPermission:
			pred = NightWithoutPermission{Employees: v.employees}
		case domain.RuleWeekendWithoutPermission:
			pred = WeekendWithoutPermission{Employees: v.employees}
		default:
			v.loadNote = append(v.loadNote, fmt.Sprintf("rule %s: unrecognized kind %q evaluates as pass", r.ID, r.Kind))
			pred = Custom{Expr: r.Kind}
		}
		compiled = append(compiled, compiledRule{rule: r, pred: pred})
	}
	return compiled
}

// useFallback installs the conservative built-in rule set.
func (v *Validator) useFallback(reason string) {
	v.source = domain.SourceFallback
	v.loadNote = append(v.loadNote, "fallback rules active: "+reason)
	v.rules = v.compile(FallbackRules())
}

// FallbackRules is the built-in minimal rule set used when the store is
// unavailable: max 40 h/week, min 11 h rest, overtime ≤ 4 h/day, and
// part-time ≤ 20 h/week. Intentionally narrower than any store set.
func FallbackRules() []domain.ConstraintRule {
	return []domain.ConstraintRule{
		{
			ID: "fallback-weekly-hours", Category: domain.CategoryLaborLaw,
			Kind: domain.RuleWeeklyHoursOver, Limit: 40,
			Severity: domain.SeverityCritical, CostImpact: 500,
			RemedyHint:  "reduce scheduled hours or split across employees",
			Description: "weekly hours above statutory maximum",
		},
		{
			ID: "fallback-min-rest", Category: domain.CategoryLaborLaw,
			Kind: domain.RuleMinRestBelow, Limit: 11,
			Severity: domain.SeverityCritical, CostImpact: 300,
			RemedyHint:  "push the next shift start later",
			Description: "rest period below statutory minimum",
		},
		{
			ID: "fallback-daily-overtime", Category: domain.CategoryLaborLaw,
			Kind: domain.RuleDailyOvertimeOver, Limit: 4,
			Severity: domain.SeverityHigh, CostImpact: 200,
			RemedyHint:  "cap daily shift length at 12 hours",
			Description: "daily overtime above maximum",
		},
		{
			ID: "fallback-part-time-hours", Category: domain.CategoryContract,
			Kind: domain.RulePartTimeHoursOver, Limit: 20,
			Severity: domain.SeverityHigh, CostImpact: 150,
			RemedyHint:  "keep part-time schedules under contract hours",
			Description: "part-time weekly hours above contract limit",
		},
	}
}
