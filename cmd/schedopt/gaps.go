package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldshift/schedopt/internal/gap"
)

func newGapsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gaps <run-file.yaml>",
		Short: "Print the coverage gap report for a YAML run file",
		Long: `Runs only the gap analysis stage: compares the run file's coverage
requirements against its current schedule and prints the interval-level
report with recommendations.`,
		Args: cobra.ExactArgs(1),
		RunE: runGaps,
	}
}

func runGaps(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	req, err := loadRunRequest(args[0])
	if err != nil {
		return err
	}

	report := gap.NewAnalyzer(cfg.Gap).AnalyzeRequirements(req.Requirements, req.CurrentSchedule)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
