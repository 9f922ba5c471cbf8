package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fieldshift/schedopt/internal/config"
	"github.com/fieldshift/schedopt/internal/domain"
	"github.com/fieldshift/schedopt/internal/orchestrator"
)

// runFile is the YAML shape of an optimization run: intervals and dates
// are strings for readability and converted to domain values on load.
type runFile struct {
	RequestID string `yaml:"request_id"`
	Service   string `yaml:"service"`
	Mode      string `yaml:"mode"`
	Seed      int64  `yaml:"seed"`
	Start     string `yaml:"start"`
	End       string `yaml:"end"`

	Goals domain.OptimizationGoals `yaml:"goals"`

	Requirements []struct {
		Interval string   `yaml:"interval"`
		Required int      `yaml:"required_headcount"`
		Skills   []string `yaml:"required_skills"`
		Priority string   `yaml:"priority"`
	} `yaml:"requirements"`

	Schedule []struct {
		EmployeeID   string `yaml:"employee_id"`
		Date         string `yaml:"date"`
		Start        string `yaml:"start"`
		End          string `yaml:"end"`
		BreakMinutes int    `yaml:"break_minutes"`
		Site         string `yaml:"site"`
	} `yaml:"schedule"`
}

// loadRunRequest reads and converts a YAML run file.
func loadRunRequest(path string) (orchestrator.RunRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return orchestrator.RunRequest{}, fmt.Errorf("read run file: %w", err)
	}
	var rf runFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return orchestrator.RunRequest{}, fmt.Errorf("parse run file: %w", err)
	}

	req := orchestrator.RunRequest{
		RequestID: rf.RequestID,
		Service:   rf.Service,
		Mode:      orchestrator.RunMode(rf.Mode),
		Seed:      rf.Seed,
		Goals:     rf.Goals,
	}
	if req.Mode == "" {
		req.Mode = orchestrator.ModePhased
	}
	if req.Range.Start, err = time.Parse("2006-01-02", rf.Start); err != nil {
		return req, fmt.Errorf("run file start date: %w", err)
	}
	if req.Range.End, err = time.Parse("2006-01-02", rf.End); err != nil {
		return req, fmt.Errorf("run file end date: %w", err)
	}

	for _, r := range rf.Requirements {
		iv, err := domain.ParseInterval(r.Interval)
		if err != nil {
			return req, err
		}
		cr := domain.CoverageRequirement{
			Interval:          iv,
			RequiredHeadcount: r.Required,
			Priority:          domain.Priority(r.Priority),
		}
		for _, s := range r.Skills {
			cr.RequiredSkills = append(cr.RequiredSkills, domain.SkillID(s))
		}
		req.Requirements = append(req.Requirements, cr)
	}

	for _, s := range rf.Schedule {
		date, err := time.Parse("2006-01-02", s.Date)
		if err != nil {
			return req, fmt.Errorf("run file shift date: %w", err)
		}
		start, err := domain.ParseInterval(s.Start + "-" + s.End)
		if err != nil {
			return req, err
		}
		req.CurrentSchedule = append(req.CurrentSchedule, domain.ShiftBlock{
			EmployeeID:   s.EmployeeID,
			Date:         date,
			StartMin:     start.Start,
			EndMin:       start.End,
			BreakMinutes: s.BreakMinutes,
			AssignedSite: s.Site,
		})
	}
	return req, nil
}

// loadConfig resolves the tuning config and log level from the shared
// persistent flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	log.Info().Str("config", path).Msg("tuning file loaded")
	return cfg, nil
}
