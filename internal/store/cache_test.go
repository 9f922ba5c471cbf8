package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldshift/schedopt/internal/domain"
)

// countingStore records how many reads reach the inner store.
type countingStore struct {
	failingStore
	kpiCalls      int
	coverageCalls int
	profileCalls  int
}

func (s *countingStore) GetKpiTarget(context.Context, string) (float64, error) {
	s.kpiCalls++
	return 0.9, nil
}

func (s *countingStore) GetCoverageAnalysis(context.Context) (*domain.GapReport, error) {
	s.coverageCalls++
	return &domain.GapReport{CoverageScore: 75}, nil
}

func (s *countingStore) GetEmployeeProfiles(_ context.Context, ids []string) ([]domain.Employee, error) {
	s.profileCalls++
	return []domain.Employee{{ID: "e1", EmploymentType: domain.FullTime}}, nil
}

func newCachedStore(t *testing.T, inner MetricsStore) *CachedStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCachedStore(inner, client, time.Minute)
}

func TestCacheServesRepeatReads(t *testing.T) {
	inner := &countingStore{}
	s := newCachedStore(t, inner)
	ctx := context.Background()

	first, err := s.GetKpiTarget(ctx, "service_level")
	require.NoError(t, err)
	second, err := s.GetKpiTarget(ctx, "service_level")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.kpiCalls)
}

func TestCacheFallsThroughWhenRedisIsDown(t *testing.T) {
	inner := &countingStore{}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	s := NewCachedStore(inner, client, time.Minute)
	mr.Close()

	target, err := s.GetKpiTarget(context.Background(), "service_level")
	require.NoError(t, err)
	assert.Equal(t, 0.9, target)
	assert.Equal(t, 1, inner.kpiCalls)
}

func TestCacheSkipsScopedProfileReads(t *testing.T) {
	inner := &countingStore{}
	s := newCachedStore(t, inner)
	ctx := context.Background()

	// The full directory is cached; scoped reads always hit the store.
	_, err := s.GetEmployeeProfiles(ctx, nil)
	require.NoError(t, err)
	_, err = s.GetEmployeeProfiles(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.profileCalls)

	_, err = s.GetEmployeeProfiles(ctx, []string{"e1"})
	require.NoError(t, err)
	_, err = s.GetEmployeeProfiles(ctx, []string{"e1"})
	require.NoError(t, err)
	assert.Equal(t, 3, inner.profileCalls)
}

func TestCacheNeverCachesCoverageAnalysis(t *testing.T) {
	inner := &countingStore{}
	s := newCachedStore(t, inner)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		report, err := s.GetCoverageAnalysis(ctx)
		require.NoError(t, err)
		assert.Equal(t, 75.0, report.CoverageScore)
	}
	assert.Equal(t, 2, inner.coverageCalls)
}

func TestCachePropagatesInnerErrors(t *testing.T) {
	s := newCachedStore(t, failingStore{})

	for i := 0; i < 2; i++ {
		_, err := s.GetPayrollRates(context.Background())
		assert.ErrorIs(t, err, errDown)
	}
}
