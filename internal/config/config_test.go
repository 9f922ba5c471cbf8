package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldshift/schedopt/internal/domain"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 15, cfg.Gap.IntervalMinutes)
	assert.Equal(t, 50, cfg.Pattern.PopulationSize)
	assert.Equal(t, 20, cfg.Pattern.MaxGenerations)
	assert.Equal(t, 60*time.Second, cfg.Budgets.Run)
	assert.Equal(t, 30*time.Second, cfg.Budgets.SlowRunAlert)
	assert.Equal(t, 1000.0, cfg.Bulk.DefaultBudgetCeiling)
}

func TestValidateRejectsBadWeights(t *testing.T) {
	cfg := Default()
	cfg.Weights.Coverage = 0.50
	assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidInput)
}

func TestValidateRejectsNonDividingInterval(t *testing.T) {
	cfg := Default()
	cfg.Gap.IntervalMinutes = 7
	assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidInput)
}

func TestValidateRejectsOversizedElite(t *testing.T) {
	cfg := Default()
	cfg.Pattern.EliteCount = cfg.Pattern.PopulationSize
	assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidInput)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
gap:
  interval_minutes: 30
pattern:
  max_generations: 10
workers: 4
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Gap.IntervalMinutes)
	assert.Equal(t, 10, cfg.Pattern.MaxGenerations)
	assert.Equal(t, 4, cfg.Workers)
	// Untouched sections keep their defaults.
	assert.Equal(t, 0.40, cfg.Weights.Coverage)
	assert.Equal(t, 25.0, cfg.Payroll.HourlyRate)
}

func TestLoadRejectsInvalidOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: -1\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
