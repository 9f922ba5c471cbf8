package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/fieldshift/schedopt/internal/domain"
)

// BreakerStore wraps a MetricsStore with a circuit breaker and a request
// pacer. After repeated failures the breaker opens and calls fail fast
// with ErrStoreUnavailable, letting stages fall back immediately instead
// of waiting out per-query timeouts. The pacer bounds pressure on the
// store's connection pool during variant fan-out.
type BreakerStore struct {
	inner   MetricsStore
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewBreakerStore wraps inner. requestsPerSecond <= 0 disables pacing.
func NewBreakerStore(inner MetricsStore, requestsPerSecond float64) *BreakerStore {
	settings := gobreaker.Settings{
		Name:        "metrics-store",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("store breaker state change")
		},
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), int(requestsPerSecond)+1)
	}
	return &BreakerStore{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings), limiter: limiter}
}

var _ MetricsStore = (*BreakerStore)(nil)

func guard[T any](s *BreakerStore, ctx context.Context, op func() (T, error)) (T, error) {
	var zero T
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return zero, fmt.Errorf("store pacing: %v: %w", err, domain.ErrCancelled)
		}
	}
	out, err := s.breaker.Execute(func() (interface{}, error) {
		return op()
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return zero, fmt.Errorf("store breaker open: %w", domain.ErrStoreUnavailable)
	}
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}

func (s *BreakerStore) ListActiveConstraintRules(ctx context.Context) ([]domain.ConstraintRule, error) {
	return guard(s, ctx, func() ([]domain.ConstraintRule, error) { return s.inner.ListActiveConstraintRules(ctx) })
}

func (s *BreakerStore) ListWorkRules(ctx context.Context) ([]domain.ConstraintRule, error) {
	return guard(s, ctx, func() ([]domain.ConstraintRule, error) { return s.inner.ListWorkRules(ctx) })
}

func (s *BreakerStore) ListBusinessRules(ctx context.Context) ([]domain.ConstraintRule, error) {
	return guard(s, ctx, func() ([]domain.ConstraintRule, error) { return s.inner.ListBusinessRules(ctx) })
}

func (s *BreakerStore) ListScheduleConstraints(ctx context.Context) ([]domain.ConstraintRule, error) {
	return guard(s, ctx, func() ([]domain.ConstraintRule, error) { return s.inner.ListScheduleConstraints(ctx) })
}

func (s *BreakerStore) GetEmployeeProfiles(ctx context.Context, ids []string) ([]domain.Employee, error) {
	return guard(s, ctx, func() ([]domain.Employee, error) { return s.inner.GetEmployeeProfiles(ctx, ids) })
}

func (s *BreakerStore) GetEmployeeSkills(ctx context.Context) (map[string][]domain.SkillID, error) {
	return guard(s, ctx, func() (map[string][]domain.SkillID, error) { return s.inner.GetEmployeeSkills(ctx) })
}

func (s *BreakerStore) GetEmployeePreferences(ctx context.Context) (map[string]domain.ShiftPreference, error) {
	return guard(s, ctx, func() (map[string]domain.ShiftPreference, error) { return s.inner.GetEmployeePreferences(ctx) })
}

func (s *BreakerStore) GetPayrollRates(ctx context.Context) (domain.PayrollRates, error) {
	return guard(s, ctx, func() (domain.PayrollRates, error) { return s.inner.GetPayrollRates(ctx) })
}

func (s *BreakerStore) GetCostCenterBudget(ctx context.Context, id string) (float64, error) {
	return guard(s, ctx, func() (float64, error) { return s.inner.GetCostCenterBudget(ctx, id) })
}

func (s *BreakerStore) GetCoverageAnalysis(ctx context.Context) (*domain.GapReport, error) {
	return guard(s, ctx, func() (*domain.GapReport, error) { return s.inner.GetCoverageAnalysis(ctx) })
}

func (s *BreakerStore) GetOptimizationHistory(ctx context.Context, limit int) ([]domain.OptimizationRecord, error) {
	return guard(s, ctx, func() ([]domain.OptimizationRecord, error) { return s.inner.GetOptimizationHistory(ctx, limit) })
}

func (s *BreakerStore) GetKpiTarget(ctx context.Context, code string) (float64, error) {
	return guard(s, ctx, func() (float64, error) { return s.inner.GetKpiTarget(ctx, code) })
}
