// Package postgres implements the MetricsStore capability over PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/fieldshift/schedopt/internal/domain"
	"github.com/fieldshift/schedopt/internal/store"
)

// Store is the sqlx-backed MetricsStore. Connections come from the pool
// owned by db; queries run under a per-operation timeout so a slow store
// degrades the consuming stage instead of stalling it.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

// New wraps an open sqlx database handle. A zero timeout defaults to 1s,
// half the tightest consuming stage budget.
func New(db *sqlx.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Store{db: db, timeout: timeout}
}

// Open connects to PostgreSQL with a bounded connection pool.
func Open(dsn string, poolSize int, timeout time.Duration) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if poolSize <= 0 {
		poolSize = 10
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize / 2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return New(db, timeout), nil
}

var _ store.MetricsStore = (*Store)(nil)

func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// unavailable maps driver errors onto the documented unavailable signal.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrStoreUnavailable)
}

type ruleRow struct {
	ID          string          `db:"id"`
	Category    string          `db:"category"`
	Kind        string          `db:"kind"`
	LimitValue  float64         `db:"limit_value"`
	Severity    string          `db:"severity"`
	CostImpact  float64         `db:"cost_impact"`
	RemedyHint  sql.NullString  `db:"remedy_hint"`
	Description sql.NullString  `db:"description"`
}

func (r ruleRow) toDomain() domain.ConstraintRule {
	return domain.ConstraintRule{
		ID:          r.ID,
		Category:    domain.RuleCategory(r.Category),
		Kind:        r.Kind,
		Limit:       r.LimitValue,
		Severity:    domain.Severity(r.Severity),
		CostImpact:  r.CostImpact,
		RemedyHint:  r.RemedyHint.String,
		Description: r.Description.String,
	}
}

func (s *Store) listRules(ctx context.Context, op, query string) ([]domain.ConstraintRule, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var rows []ruleRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, unavailable(op, err)
	}
	rules := make([]domain.ConstraintRule, 0, len(rows))
	for _, r := range rows {
		rules = append(rules, r.toDomain())
	}
	return rules, nil
}

// ListActiveConstraintRules reads the labor compliance registry.
func (s *Store) ListActiveConstraintRules(ctx context.Context) ([]domain.ConstraintRule, error) {
	return s.listRules(ctx, "list constraint rules", `
		SELECT id, category, kind, limit_value, severity, cost_impact, remedy_hint, description
		FROM constraint_rules WHERE active ORDER BY id`)
}

// ListWorkRules reads the work-rules registry (contract and business).
func (s *Store) ListWorkRules(ctx context.Context) ([]domain.ConstraintRule, error) {
	return s.listRules(ctx, "list work rules", `
		SELECT id, category, kind, limit_value, severity, cost_impact, remedy_hint, description
		FROM work_rules WHERE active ORDER BY id`)
}

// ListBusinessRules reads the business-rules engine rows.
func (s *Store) ListBusinessRules(ctx context.Context) ([]domain.ConstraintRule, error) {
	return s.listRules(ctx, "list business rules", `
		SELECT id, category, kind, limit_value, severity, cost_impact, remedy_hint, description
		FROM business_rules WHERE active ORDER BY id`)
}

// ListScheduleConstraints reads the schedule-constraints registry.
func (s *Store) ListScheduleConstraints(ctx context.Context) ([]domain.ConstraintRule, error) {
	return s.listRules(ctx, "list schedule constraints", `
		SELECT id, category, kind, limit_value, severity, cost_impact, remedy_hint, description
		FROM schedule_constraints WHERE active ORDER BY id`)
}

type employeeRow struct {
	ID                    string         `db:"id"`
	EmploymentType        string         `db:"employment_type"`
	WeeklyHoursNorm       float64        `db:"weekly_hours_norm"`
	WorkRate              float64        `db:"work_rate"`
	OvertimeAuthorization bool           `db:"overtime_authorization"`
	NightPermission       bool           `db:"night_permission"`
	WeekendPermission     bool           `db:"weekend_permission"`
	BaseSite              string         `db:"base_site"`
	CostCenterID          sql.NullString `db:"cost_center_id"`
	SalaryBand            sql.NullString `db:"salary_band"`
	PositionTitle         string         `db:"position_title"`
	TimeZone              string         `db:"time_zone"`
}

// GetEmployeeProfiles loads employee master rows, optionally scoped to ids.
func (s *Store) GetEmployeeProfiles(ctx context.Context, ids []string) ([]domain.Employee, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `
		SELECT id, employment_type, weekly_hours_norm, work_rate, overtime_authorization,
		       night_permission, weekend_permission, base_site, cost_center_id,
		       salary_band, position_title, time_zone
		FROM employees`
	args := []interface{}{}
	if len(ids) > 0 {
		var err error
		query, args, err = sqlx.In(query+` WHERE id IN (?)`, ids)
		if err != nil {
			return nil, unavailable("get employee profiles", err)
		}
		query = s.db.Rebind(query)
	}
	query += ` ORDER BY id`

	var rows []employeeRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, unavailable("get employee profiles", err)
	}
	employees := make([]domain.Employee, 0, len(rows))
	for _, r := range rows {
		employees = append(employees, domain.Employee{
			ID:                    r.ID,
			EmploymentType:        domain.EmploymentType(r.EmploymentType),
			WeeklyHoursNorm:       r.WeeklyHoursNorm,
			WorkRate:              r.WorkRate,
			OvertimeAuthorization: r.OvertimeAuthorization,
			NightPermission:       r.NightPermission,
			WeekendPermission:     r.WeekendPermission,
			BaseSite:              r.BaseSite,
			CostCenterID:          r.CostCenterID.String,
			SalaryBand:            r.SalaryBand.String,
			PositionTitle:         r.PositionTitle,
			TimeZone:              r.TimeZone,
		})
	}
	return employees, nil
}

// GetEmployeeSkills loads the skill registry keyed by employee.
func (s *Store) GetEmployeeSkills(ctx context.Context) (map[string][]domain.SkillID, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var rows []struct {
		EmployeeID string `db:"employee_id"`
		SkillID    string `db:"skill_id"`
	}
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT employee_id, skill_id FROM employee_skills ORDER BY employee_id, skill_id`); err != nil {
		return nil, unavailable("get employee skills", err)
	}
	skills := make(map[string][]domain.SkillID)
	for _, r := range rows {
		skills[r.EmployeeID] = append(skills[r.EmployeeID], domain.SkillID(r.SkillID))
	}
	return skills, nil
}

// GetEmployeePreferences loads the schedule-preferences registry.
func (s *Store) GetEmployeePreferences(ctx context.Context) (map[string]domain.ShiftPreference, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var rows []struct {
		EmployeeID        string `db:"employee_id"`
		PreferredStartMin int    `db:"preferred_start_min"`
		PreferredEndMin   int    `db:"preferred_end_min"`
		DaysOff           []byte `db:"days_off"`
	}
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT employee_id, preferred_start_min, preferred_end_min, days_off
		FROM schedule_preferences ORDER BY employee_id`); err != nil {
		return nil, unavailable("get employee preferences", err)
	}
	prefs := make(map[string]domain.ShiftPreference, len(rows))
	for _, r := range rows {
		p := domain.ShiftPreference{
			EmployeeID:        r.EmployeeID,
			PreferredStartMin: r.PreferredStartMin,
			PreferredEndMin:   r.PreferredEndMin,
		}
		if len(r.DaysOff) > 0 {
			var days []int
			if err := json.Unmarshal(r.DaysOff, &days); err == nil {
				for _, d := range days {
					p.DaysOff = append(p.DaysOff, time.Weekday(d))
				}
			}
		}
		prefs[r.EmployeeID] = p
	}
	return prefs, nil
}

// GetPayrollRates loads the single active payroll rate profile.
func (s *Store) GetPayrollRates(ctx context.Context) (domain.PayrollRates, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var row struct {
		HourlyRate      float64 `db:"hourly_rate"`
		OvertimeFactor  float64 `db:"overtime_factor"`
		WeekendRate     float64 `db:"weekend_rate"`
		NightRate       float64 `db:"night_rate"`
		BenefitsFactor  float64 `db:"benefits_factor"`
		RatePerKm       float64 `db:"rate_per_km"`
		NightlyRate     float64 `db:"nightly_rate"`
		CoordinationFee float64 `db:"coordination_fee"`
		SkillTiers      []byte  `db:"skill_tiers"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT hourly_rate, overtime_factor, weekend_rate, night_rate, benefits_factor,
		       rate_per_km, nightly_rate, coordination_fee, skill_tiers
		FROM payroll_rates WHERE active LIMIT 1`)
	if err != nil {
		return domain.PayrollRates{}, unavailable("get payroll rates", err)
	}
	rates := domain.PayrollRates{
		HourlyRate:      row.HourlyRate,
		OvertimeFactor:  row.OvertimeFactor,
		WeekendRate:     row.WeekendRate,
		NightRate:       row.NightRate,
		BenefitsFactor:  row.BenefitsFactor,
		RatePerKm:       row.RatePerKm,
		NightlyRate:     row.NightlyRate,
		CoordinationFee: row.CoordinationFee,
	}
	if len(row.SkillTiers) > 0 {
		_ = json.Unmarshal(row.SkillTiers, &rates.SkillTierPremium)
	}
	return rates, nil
}

// GetCostCenterBudget returns the weekly budget for a cost center.
func (s *Store) GetCostCenterBudget(ctx context.Context, costCenterID string) (float64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var budget float64
	err := s.db.GetContext(ctx, &budget,
		`SELECT weekly_budget FROM cost_center_budgets WHERE cost_center_id = $1`, costCenterID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("cost center %s: no budget row: %w", costCenterID, domain.ErrStoreUnavailable)
	}
	if err != nil {
		return 0, unavailable("get cost center budget", err)
	}
	return budget, nil
}

// GetCoverageAnalysis returns the latest persisted gap report, if any.
func (s *Store) GetCoverageAnalysis(ctx context.Context) (*domain.GapReport, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var payload []byte
	err := s.db.GetContext(ctx, &payload,
		`SELECT payload FROM coverage_analyses ORDER BY created_at DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no coverage analysis: %w", domain.ErrStoreUnavailable)
	}
	if err != nil {
		return nil, unavailable("get coverage analysis", err)
	}
	var report domain.GapReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, unavailable("decode coverage analysis", err)
	}
	return &report, nil
}

// GetOptimizationHistory returns the most recent optimization outcomes.
func (s *Store) GetOptimizationHistory(ctx context.Context, limit int) ([]domain.OptimizationRecord, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 10
	}
	var records []domain.OptimizationRecord
	if err := s.db.SelectContext(ctx, &records, `
		SELECT run_id, best_score, coverage_delta, cost_delta, implemented
		FROM optimization_history ORDER BY created_at DESC LIMIT $1`, limit); err != nil {
		return nil, unavailable("get optimization history", err)
	}
	return records, nil
}

// GetKpiTarget reads one KPI target by code.
func (s *Store) GetKpiTarget(ctx context.Context, code string) (float64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var target float64
	err := s.db.GetContext(ctx, &target,
		`SELECT target_value FROM kpi_targets WHERE code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("kpi %s: %w", code, domain.ErrStoreUnavailable)
	}
	if err != nil {
		return 0, unavailable("get kpi target", err)
	}
	return target, nil
}
