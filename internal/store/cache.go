package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/fieldshift/schedopt/internal/domain"
)

// CachedStore is a Redis read-through decorator over a MetricsStore. Rule
// registries and employee master data change rarely compared to run
// frequency; caching them keeps repeated runs off the relational store.
// Cache faults are never fatal: a miss or a Redis error falls through to
// the inner store.
type CachedStore struct {
	inner  MetricsStore
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewCachedStore wraps inner with a Redis cache. A zero TTL defaults to
// five minutes, the shortest interval between scheduled runs.
func NewCachedStore(inner MetricsStore, client *redis.Client, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedStore{inner: inner, client: client, ttl: ttl, prefix: "schedopt:store:"}
}

var _ MetricsStore = (*CachedStore)(nil)

// readThrough returns the cached value at key, or loads, caches, and
// returns the inner result.
func readThrough[T any](s *CachedStore, ctx context.Context, key string, load func() (T, error)) (T, error) {
	var zero T
	full := s.prefix + key
	if s.client != nil {
		raw, err := s.client.Get(ctx, full).Bytes()
		if err == nil {
			var cached T
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return cached, nil
			}
			// Stale encoding; drop it and reload.
			s.client.Del(ctx, full)
		} else if err != redis.Nil {
			log.Debug().Err(err).Str("key", full).Msg("store cache read failed")
		}
	}

	value, err := load()
	if err != nil {
		return zero, err
	}
	if s.client != nil {
		if raw, jsonErr := json.Marshal(value); jsonErr == nil {
			if setErr := s.client.Set(ctx, full, raw, s.ttl).Err(); setErr != nil {
				log.Debug().Err(setErr).Str("key", full).Msg("store cache write failed")
			}
		}
	}
	return value, nil
}

func (s *CachedStore) ListActiveConstraintRules(ctx context.Context) ([]domain.ConstraintRule, error) {
	return readThrough(s, ctx, "rules:constraint", func() ([]domain.ConstraintRule, error) {
		return s.inner.ListActiveConstraintRules(ctx)
	})
}

func (s *CachedStore) ListWorkRules(ctx context.Context) ([]domain.ConstraintRule, error) {
	return readThrough(s, ctx, "rules:work", func() ([]domain.ConstraintRule, error) {
		return s.inner.ListWorkRules(ctx)
	})
}

func (s *CachedStore) ListBusinessRules(ctx context.Context) ([]domain.ConstraintRule, error) {
	return readThrough(s, ctx, "rules:business", func() ([]domain.ConstraintRule, error) {
		return s.inner.ListBusinessRules(ctx)
	})
}

func (s *CachedStore) ListScheduleConstraints(ctx context.Context) ([]domain.ConstraintRule, error) {
	return readThrough(s, ctx, "rules:schedule", func() ([]domain.ConstraintRule, error) {
		return s.inner.ListScheduleConstraints(ctx)
	})
}

func (s *CachedStore) GetEmployeeProfiles(ctx context.Context, ids []string) ([]domain.Employee, error) {
	// Scoped profile reads bypass the cache; only the full directory is hot.
	if len(ids) > 0 {
		return s.inner.GetEmployeeProfiles(ctx, ids)
	}
	return readThrough(s, ctx, "employees:all", func() ([]domain.Employee, error) {
		return s.inner.GetEmployeeProfiles(ctx, nil)
	})
}

func (s *CachedStore) GetEmployeeSkills(ctx context.Context) (map[string][]domain.SkillID, error) {
	return readThrough(s, ctx, "employees:skills", func() (map[string][]domain.SkillID, error) {
		return s.inner.GetEmployeeSkills(ctx)
	})
}

func (s *CachedStore) GetEmployeePreferences(ctx context.Context) (map[string]domain.ShiftPreference, error) {
	return readThrough(s, ctx, "employees:preferences", func() (map[string]domain.ShiftPreference, error) {
		return s.inner.GetEmployeePreferences(ctx)
	})
}

func (s *CachedStore) GetPayrollRates(ctx context.Context) (domain.PayrollRates, error) {
	return readThrough(s, ctx, "payroll:rates", func() (domain.PayrollRates, error) {
		return s.inner.GetPayrollRates(ctx)
	})
}

func (s *CachedStore) GetCostCenterBudget(ctx context.Context, id string) (float64, error) {
	return readThrough(s, ctx, fmt.Sprintf("budget:%s", id), func() (float64, error) {
		return s.inner.GetCostCenterBudget(ctx, id)
	})
}

// GetCoverageAnalysis is never cached: callers want the latest report.
func (s *CachedStore) GetCoverageAnalysis(ctx context.Context) (*domain.GapReport, error) {
	return s.inner.GetCoverageAnalysis(ctx)
}

// GetOptimizationHistory is never cached: history grows between runs.
func (s *CachedStore) GetOptimizationHistory(ctx context.Context, limit int) ([]domain.OptimizationRecord, error) {
	return s.inner.GetOptimizationHistory(ctx, limit)
}

func (s *CachedStore) GetKpiTarget(ctx context.Context, code string) (float64, error) {
	return readThrough(s, ctx, fmt.Sprintf("kpi:%s", code), func() (float64, error) {
		return s.inner.GetKpiTarget(ctx, code)
	})
}
