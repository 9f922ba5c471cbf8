// Package store defines the MetricsStore capability: the single boundary
// through which the optimization core reads rules, employee profiles,
// payroll rates, KPI targets, and historical optimization results.
//
// Every operation either answers with a typed value or fails with an error
// wrapping domain.ErrStoreUnavailable, which the consuming stage absorbs by
// switching to its documented fallback data. Operations are idempotent and
// safe to cache for the lifetime of one run.
package store

import (
	"context"

	"github.com/fieldshift/schedopt/internal/domain"
)

// MetricsStore is the persistence capability consumed by the core.
type MetricsStore interface {
	// Rule registries feeding the constraint validator.
	ListActiveConstraintRules(ctx context.Context) ([]domain.ConstraintRule, error)
	ListWorkRules(ctx context.Context) ([]domain.ConstraintRule, error)
	ListBusinessRules(ctx context.Context) ([]domain.ConstraintRule, error)
	ListScheduleConstraints(ctx context.Context) ([]domain.ConstraintRule, error)

	// Employee master data.
	GetEmployeeProfiles(ctx context.Context, ids []string) ([]domain.Employee, error)
	GetEmployeeSkills(ctx context.Context) (map[string][]domain.SkillID, error)
	GetEmployeePreferences(ctx context.Context) (map[string]domain.ShiftPreference, error)

	// Financial parameters.
	GetPayrollRates(ctx context.Context) (domain.PayrollRates, error)
	GetCostCenterBudget(ctx context.Context, costCenterID string) (float64, error)

	// Analytics and history.
	GetCoverageAnalysis(ctx context.Context) (*domain.GapReport, error)
	GetOptimizationHistory(ctx context.Context, limit int) ([]domain.OptimizationRecord, error)
	GetKpiTarget(ctx context.Context, code string) (float64, error)
}
