package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldshift/schedopt/internal/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock"), time.Second), mock
}

func TestListActiveConstraintRules(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("FROM constraint_rules WHERE active").WillReturnRows(
		sqlmock.NewRows([]string{"id", "category", "kind", "limit_value", "severity", "cost_impact", "remedy_hint", "description"}).
			AddRow("cr-1", "labor_law", "weekly_hours_over", 48.0, "critical", 500.0, "split the shift", "statutory weekly cap"))

	rules, err := s.ListActiveConstraintRules(context.Background())
	require.NoError(t, err)

	require.Len(t, rules, 1)
	assert.Equal(t, domain.ConstraintRule{
		ID:          "cr-1",
		Category:    domain.CategoryLaborLaw,
		Kind:        domain.RuleWeeklyHoursOver,
		Limit:       48,
		Severity:    domain.SeverityCritical,
		CostImpact:  500,
		RemedyHint:  "split the shift",
		Description: "statutory weekly cap",
	}, rules[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRulesMapsDriverErrorToUnavailable(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("FROM work_rules WHERE active").WillReturnError(errors.New("connection reset"))

	_, err := s.ListWorkRules(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestGetPayrollRates(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("FROM payroll_rates WHERE active").WillReturnRows(
		sqlmock.NewRows([]string{
			"hourly_rate", "overtime_factor", "weekend_rate", "night_rate",
			"benefits_factor", "rate_per_km", "nightly_rate", "coordination_fee", "skill_tiers",
		}).AddRow(28.0, 1.5, 9.0, 7.0, 0.32, 0.45, 95.0, 45.0, []byte(`{"expert":0.2}`)))

	rates, err := s.GetPayrollRates(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 28.0, rates.HourlyRate)
	assert.Equal(t, 0.32, rates.BenefitsFactor)
	assert.Equal(t, 0.2, rates.SkillTierPremium["expert"])
}

func TestGetEmployeeProfiles(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("FROM employees").WillReturnRows(
		sqlmock.NewRows([]string{
			"id", "employment_type", "weekly_hours_norm", "work_rate", "overtime_authorization",
			"night_permission", "weekend_permission", "base_site", "cost_center_id",
			"salary_band", "position_title", "time_zone",
		}).AddRow("e1", "full_time", 40.0, 1.0, true, false, true, "hq", "cc-9", nil, "agent", "Europe/Berlin"))

	employees, err := s.GetEmployeeProfiles(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, employees, 1)
	assert.Equal(t, "e1", employees[0].ID)
	assert.Equal(t, domain.FullTime, employees[0].EmploymentType)
	assert.Equal(t, "cc-9", employees[0].CostCenterID)
	assert.Empty(t, employees[0].SalaryBand)
}

func TestGetEmployeePreferencesDecodesDaysOff(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("FROM schedule_preferences").WillReturnRows(
		sqlmock.NewRows([]string{"employee_id", "preferred_start_min", "preferred_end_min", "days_off"}).
			AddRow("e1", 480, 960, []byte(`[0,6]`)))

	prefs, err := s.GetEmployeePreferences(context.Background())
	require.NoError(t, err)

	require.Contains(t, prefs, "e1")
	assert.Equal(t, []time.Weekday{time.Sunday, time.Saturday}, prefs["e1"].DaysOff)
}

func TestGetCostCenterBudgetMissingRow(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("FROM cost_center_budgets").WithArgs("cc-9").
		WillReturnRows(sqlmock.NewRows([]string{"weekly_budget"}))

	_, err := s.GetCostCenterBudget(context.Background(), "cc-9")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestGetKpiTarget(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("FROM kpi_targets").WithArgs("service_level").
		WillReturnRows(sqlmock.NewRows([]string{"target_value"}).AddRow(0.9))

	target, err := s.GetKpiTarget(context.Background(), "service_level")
	require.NoError(t, err)
	assert.Equal(t, 0.9, target)
}
