package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fieldshift/schedopt/internal/domain"
	"github.com/fieldshift/schedopt/internal/orchestrator"
)

// bulkFile is the YAML shape of a bulk application: the accepted variants
// plus the caller-side constraints the set is checked against.
type bulkFile struct {
	RequestID string `yaml:"request_id"`
	Mode      string `yaml:"mode"`

	Constraints struct {
		BudgetCeiling      float64  `yaml:"budget_ceiling"`
		RequiredSkills     []string `yaml:"required_skills"`
		BaselineWeeklyCost float64  `yaml:"baseline_weekly_cost"`
		BaselineOpenGaps   int      `yaml:"baseline_open_gaps"`
	} `yaml:"constraints"`

	Variants []struct {
		ID                  string  `yaml:"variant_id"`
		Pattern             string  `yaml:"pattern_type"`
		ProjectedGaps       int     `yaml:"projected_gaps"`
		ProjectedWeeklyCost float64 `yaml:"projected_weekly_cost"`
		Complexity          float64 `yaml:"complexity"`

		Blocks []struct {
			EmployeeID   string `yaml:"employee_id"`
			Date         string `yaml:"date"`
			Start        string `yaml:"start"`
			End          string `yaml:"end"`
			BreakMinutes int    `yaml:"break_minutes"`
			Site         string `yaml:"site"`
		} `yaml:"blocks"`
	} `yaml:"variants"`
}

func newBulkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk <bulk-file.yaml>",
		Short: "Check a set of accepted variants for combined application",
		Long: `Runs the pre-application checks for a set of accepted schedule variants:
cross-variant conflicts, staffing-pool skill coverage, budget, timeline,
combined impact, and the rollback plan. Nothing is committed; apply the
variants only on a clean report.`,
		Args: cobra.ExactArgs(1),
		RunE: runBulk,
	}
	cmd.Flags().String("dsn", "", "postgres DSN for the metrics store (skill checks skipped when empty)")
	cmd.Flags().String("redis", "", "redis address for store read caching")
	return cmd
}

func runBulk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	req, err := loadBulkRequest(args[0])
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

	result, err := orch.BulkApply(cmd.Context(), req)
	if err != nil && !errors.Is(err, domain.ErrBudgetExceeded) {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(result); encErr != nil {
		return encErr
	}
	// A budget breach still prints the report, then fails the command.
	return err
}

// loadBulkRequest reads and converts a YAML bulk file.
func loadBulkRequest(path string) (orchestrator.BulkRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return orchestrator.BulkRequest{}, fmt.Errorf("read bulk file: %w", err)
	}
	var bf bulkFile
	if err := yaml.Unmarshal(raw, &bf); err != nil {
		return orchestrator.BulkRequest{}, fmt.Errorf("parse bulk file: %w", err)
	}

	req := orchestrator.BulkRequest{
		RequestID: bf.RequestID,
		Mode:      orchestrator.RunMode(bf.Mode),
	}
	if req.Mode == "" {
		req.Mode = orchestrator.ModePhased
	}
	req.Constraints.BudgetCeiling = bf.Constraints.BudgetCeiling
	req.Constraints.BaselineWeeklyCost = bf.Constraints.BaselineWeeklyCost
	req.Constraints.BaselineOpenGaps = bf.Constraints.BaselineOpenGaps
	for _, s := range bf.Constraints.RequiredSkills {
		req.Constraints.RequiredSkills = append(req.Constraints.RequiredSkills, domain.SkillID(s))
	}

	for _, v := range bf.Variants {
		variant := domain.ScheduleVariant{
			ID:                  v.ID,
			Pattern:             domain.PatternType(v.Pattern),
			ProjectedGaps:       v.ProjectedGaps,
			ProjectedWeeklyCost: v.ProjectedWeeklyCost,
			Complexity:          v.Complexity,
		}
		for _, b := range v.Blocks {
			date, err := time.Parse("2006-01-02", b.Date)
			if err != nil {
				return req, fmt.Errorf("bulk file shift date: %w", err)
			}
			window, err := domain.ParseInterval(b.Start + "-" + b.End)
			if err != nil {
				return req, err
			}
			variant.Blocks = append(variant.Blocks, domain.ShiftBlock{
				EmployeeID:   b.EmployeeID,
				Date:         date,
				StartMin:     window.Start,
				EndMin:       window.End,
				BreakMinutes: b.BreakMinutes,
				AssignedSite: b.Site,
			})
		}
		req.Variants = append(req.Variants, variant)
	}
	return req, nil
}
