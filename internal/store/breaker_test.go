package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldshift/schedopt/internal/domain"
)

var errDown = errors.New("connection refused")

// failingStore fails every operation, standing in for an unreachable
// database.
type failingStore struct{}

func (failingStore) ListActiveConstraintRules(context.Context) ([]domain.ConstraintRule, error) {
	return nil, errDown
}
func (failingStore) ListWorkRules(context.Context) ([]domain.ConstraintRule, error) {
	return nil, errDown
}
func (failingStore) ListBusinessRules(context.Context) ([]domain.ConstraintRule, error) {
	return nil, errDown
}
func (failingStore) ListScheduleConstraints(context.Context) ([]domain.ConstraintRule, error) {
	return nil, errDown
}
func (failingStore) GetEmployeeProfiles(context.Context, []string) ([]domain.Employee, error) {
	return nil, errDown
}
func (failingStore) GetEmployeeSkills(context.Context) (map[string][]domain.SkillID, error) {
	return nil, errDown
}
func (failingStore) GetEmployeePreferences(context.Context) (map[string]domain.ShiftPreference, error) {
	return nil, errDown
}
func (failingStore) GetPayrollRates(context.Context) (domain.PayrollRates, error) {
	return domain.PayrollRates{}, errDown
}
func (failingStore) GetCostCenterBudget(context.Context, string) (float64, error) {
	return 0, errDown
}
func (failingStore) GetCoverageAnalysis(context.Context) (*domain.GapReport, error) {
	return nil, errDown
}
func (failingStore) GetOptimizationHistory(context.Context, int) ([]domain.OptimizationRecord, error) {
	return nil, errDown
}
func (failingStore) GetKpiTarget(context.Context, string) (float64, error) {
	return 0, errDown
}

// healthyStore answers one KPI read.
type healthyStore struct{ failingStore }

func (healthyStore) GetKpiTarget(context.Context, string) (float64, error) {
	return 0.85, nil
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	s := NewBreakerStore(failingStore{}, 0)
	ctx := context.Background()

	// The first five failures pass the inner error through.
	for i := 0; i < 5; i++ {
		_, err := s.GetKpiTarget(ctx, "service_level")
		require.ErrorIs(t, err, errDown)
	}

	// The breaker is now open; calls fail fast with the unavailable signal.
	_, err := s.GetKpiTarget(ctx, "service_level")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, errDown)
}

func TestBreakerPassesHealthyCalls(t *testing.T) {
	s := NewBreakerStore(healthyStore{}, 0)

	target, err := s.GetKpiTarget(context.Background(), "service_level")
	require.NoError(t, err)
	assert.Equal(t, 0.85, target)
}

func TestBreakerPacingHonorsCancelledContext(t *testing.T) {
	s := NewBreakerStore(healthyStore{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetKpiTarget(ctx, "service_level")
	assert.ErrorIs(t, err, domain.ErrCancelled)
}
