package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/fieldshift/schedopt/internal/config"
	"github.com/fieldshift/schedopt/internal/constraint"
	"github.com/fieldshift/schedopt/internal/cost"
	"github.com/fieldshift/schedopt/internal/gap"
	"github.com/fieldshift/schedopt/internal/orchestrator"
	"github.com/fieldshift/schedopt/internal/pattern"
	"github.com/fieldshift/schedopt/internal/scoring"
	"github.com/fieldshift/schedopt/internal/store"
	"github.com/fieldshift/schedopt/internal/store/postgres"
)

func newOptimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize <run-file.yaml>",
		Short: "Run the full optimization pipeline on a YAML run file",
		Args:  cobra.ExactArgs(1),
		RunE:  runOptimize,
	}
	cmd.Flags().String("dsn", "", "postgres DSN for the metrics store (fallback data when empty)")
	cmd.Flags().String("redis", "", "redis address for store read caching")
	return cmd
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	req, err := loadRunRequest(args[0])
	if err != nil {
		return err
	}

	metricsStore, err := openStore(cmd, cfg)
	if err != nil {
		return err
	}

	orch, err := buildPipeline(cmd.Context(), cfg, metricsStore)
	if err != nil {
		return err
	}
	result, err := orch.Run(cmd.Context(), req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// openStore wires the optional persistence stack: postgres behind the
// circuit breaker, plus a redis read cache when configured.
func openStore(cmd *cobra.Command, cfg config.Config) (store.MetricsStore, error) {
	dsn, _ := cmd.Flags().GetString("dsn")
	if dsn == "" {
		return nil, nil
	}
	pg, err := postgres.Open(dsn, cfg.StorePool, time.Second)
	if err != nil {
		return nil, fmt.Errorf("metrics store: %w", err)
	}
	var metricsStore store.MetricsStore = store.NewBreakerStore(pg, 50)
	if addr, _ := cmd.Flags().GetString("redis"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		metricsStore = store.NewCachedStore(metricsStore, client, 5*time.Minute)
	}
	return metricsStore, nil
}

// buildPipeline assembles the five stages over one shared store. A nil
// store leaves every stage on its documented fallback path.
func buildPipeline(ctx context.Context, cfg config.Config, metricsStore store.MetricsStore) (*orchestrator.Orchestrator, error) {
	engine, err := scoring.NewEngineFromStore(ctx, cfg.Weights, metricsStore)
	if err != nil {
		return nil, err
	}
	return orchestrator.New(
		cfg,
		nil,
		metricsStore,
		gap.NewAnalyzer(cfg.Gap),
		pattern.NewGenerator(cfg.Pattern, cfg.Payroll),
		constraint.NewValidator(metricsStore),
		cost.NewCalculator(metricsStore, cfg.Payroll),
		engine,
		nil,
	)
}
