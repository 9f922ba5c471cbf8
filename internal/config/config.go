// Package config carries the tunable parameters of the optimization core.
// Values load from YAML and default to the documented production settings.
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fieldshift/schedopt/internal/domain"
)

// GapConfig tunes the gap analysis stage.
type GapConfig struct {
	IntervalMinutes     int     `yaml:"interval_minutes"`
	UncoveredHourlyRate float64 `yaml:"uncovered_hourly_rate"`
	CriticalThreshold   float64 `yaml:"critical_threshold"`
	HighThreshold       float64 `yaml:"high_threshold"`
	MediumThreshold     float64 `yaml:"medium_threshold"`
	MaxRecommendations  int     `yaml:"max_recommendations"`
}

// PatternConfig tunes the evolutionary search.
type PatternConfig struct {
	PopulationSize    int     `yaml:"population_size"`
	MaxGenerations    int     `yaml:"max_generations"`
	CrossoverRate     float64 `yaml:"crossover_rate"`
	MutationRate      float64 `yaml:"mutation_rate"`
	EliteCount        int     `yaml:"elite_count"`
	TournamentSize    int     `yaml:"tournament_size"`
	ConvergenceWindow int     `yaml:"convergence_window"`
	ConvergenceDelta  float64 `yaml:"convergence_delta"`
	MaxVariants       int     `yaml:"max_variants"`
	MinDistinctTypes  int     `yaml:"min_distinct_types"`
}

// ScoringWeights are the four component weights; they must sum to 1.0.
type ScoringWeights struct {
	Coverage   float64 `yaml:"coverage"`
	Cost       float64 `yaml:"cost"`
	Compliance float64 `yaml:"compliance"`
	Simplicity float64 `yaml:"simplicity"`
}

// StageBudgets are per-stage latency budgets. A stage may run up to twice
// its budget before it must return a degraded partial result.
type StageBudgets struct {
	Gap          time.Duration `yaml:"gap"`
	Pattern      time.Duration `yaml:"pattern"`
	Constraint   time.Duration `yaml:"constraint"`
	Cost         time.Duration `yaml:"cost"`
	Scoring      time.Duration `yaml:"scoring"`
	Run          time.Duration `yaml:"run"`
	SlowRunAlert time.Duration `yaml:"slow_run_alert"`
}

// BulkConfig tunes bulk application policies.
type BulkConfig struct {
	DefaultBudgetCeiling   float64 `yaml:"default_budget_ceiling"`
	ImmediateMinComplexity float64 `yaml:"immediate_min_complexity"`
	LargeRolloutEmployees  int     `yaml:"large_rollout_employees"`
}

// Config is the full tunable surface of the core.
type Config struct {
	Gap       GapConfig           `yaml:"gap"`
	Pattern   PatternConfig       `yaml:"pattern"`
	Weights   ScoringWeights      `yaml:"weights"`
	Budgets   StageBudgets        `yaml:"budgets"`
	Bulk      BulkConfig          `yaml:"bulk"`
	Payroll   domain.PayrollRates `yaml:"payroll"`
	Workers   int                 `yaml:"workers"`
	StorePool int                 `yaml:"store_pool"`
}

// Default returns the documented production configuration.
func Default() Config {
	return Config{
		Gap: GapConfig{
			IntervalMinutes:     15,
			UncoveredHourlyRate: 35,
			CriticalThreshold:   0.20,
			HighThreshold:       0.10,
			MediumThreshold:     0.05,
			MaxRecommendations:  5,
		},
		Pattern: PatternConfig{
			PopulationSize:    50,
			MaxGenerations:    20,
			CrossoverRate:     0.80,
			MutationRate:      0.10,
			EliteCount:        5,
			TournamentSize:    3,
			ConvergenceWindow: 5,
			ConvergenceDelta:  1.0,
			MaxVariants:       5,
			MinDistinctTypes:  3,
		},
		Weights: ScoringWeights{Coverage: 0.40, Cost: 0.30, Compliance: 0.20, Simplicity: 0.10},
		Budgets: StageBudgets{
			Gap:          3 * time.Second,
			Pattern:      8 * time.Second,
			Constraint:   2 * time.Second,
			Cost:         2 * time.Second,
			Scoring:      2 * time.Second,
			Run:          60 * time.Second,
			SlowRunAlert: 30 * time.Second,
		},
		Bulk: BulkConfig{
			DefaultBudgetCeiling:   1000,
			ImmediateMinComplexity: 70,
			LargeRolloutEmployees:  30,
		},
		Payroll:   domain.DefaultPayrollRates(),
		Workers:   10,
		StorePool: 10,
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate enforces structural invariants. Reweighting the scoring
// components is allowed only while they still sum to 1.0.
func (c Config) Validate() error {
	sum := c.Weights.Coverage + c.Weights.Cost + c.Weights.Compliance + c.Weights.Simplicity
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("%w: scoring weights sum to %.4f, want 1.0", domain.ErrInvalidInput, sum)
	}
	if c.Gap.IntervalMinutes <= 0 || domain.MinutesPerDay%c.Gap.IntervalMinutes != 0 {
		return fmt.Errorf("%w: interval width %d does not divide the day", domain.ErrInvalidInput, c.Gap.IntervalMinutes)
	}
	if c.Pattern.PopulationSize <= 0 || c.Pattern.EliteCount >= c.Pattern.PopulationSize {
		return fmt.Errorf("%w: elite count must be below population size", domain.ErrInvalidInput)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: worker count must be positive", domain.ErrInvalidInput)
	}
	return nil
}
