// Package gap implements coverage gap analysis: comparing required vs
// scheduled headcount per interval and producing the report the rest of
// the optimization pipeline consumes.
package gap

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/fieldshift/schedopt/internal/config"
	"github.com/fieldshift/schedopt/internal/domain"
)

// Analyzer computes gap reports. Analyze is pure: no I/O, no shared state,
// identical inputs always yield identical reports.
type Analyzer struct {
	cfg config.GapConfig
}

// NewAnalyzer builds an analyzer with the given tuning. Zero-valued
// thresholds fall back to the documented defaults; a zero critical
// threshold would otherwise classify covered intervals as critical.
func NewAnalyzer(cfg config.GapConfig) *Analyzer {
	if cfg.UncoveredHourlyRate <= 0 {
		cfg.UncoveredHourlyRate = 35
	}
	if cfg.MaxRecommendations <= 0 {
		cfg.MaxRecommendations = 5
	}
	if cfg.CriticalThreshold <= 0 {
		cfg.CriticalThreshold = 0.20
	}
	if cfg.HighThreshold <= 0 {
		cfg.HighThreshold = 0.10
	}
	if cfg.MediumThreshold <= 0 {
		cfg.MediumThreshold = 0.05
	}
	return &Analyzer{cfg: cfg}
}

// Analyze compares forecast demand against scheduled supply. Both maps are
// sparse; intervals missing from schedule count as zero scheduled. Both
// inputs empty degrades to an empty report with full coverage.
func (a *Analyzer) Analyze(forecast, schedule map[domain.Interval]int) domain.GapReport {
	report := domain.GapReport{CoverageScore: 100}
	if len(forecast) == 0 {
		return report
	}

	intervals := make([]domain.Interval, 0, len(forecast))
	for iv := range forecast {
		intervals = append(intervals, iv)
	}
	domain.SortIntervals(intervals)

	var (
		pctSum      float64
		weightSum   float64
		weightedCov float64
	)
	report.Intervals = make([]domain.IntervalGap, 0, len(intervals))
	for _, iv := range intervals {
		required := forecast[iv]
		scheduled := schedule[iv]
		ig := a.analyzeInterval(iv, required, scheduled)
		report.Intervals = append(report.Intervals, ig)

		report.TotalGaps += ig.GapCount
		pctSum += ig.GapPct
		if ig.Severity == domain.GapCritical {
			report.CriticalIntervals = append(report.CriticalIntervals, iv)
		}
		w := domain.GapSeverityWeight(ig.Severity)
		weightSum += w
		weightedCov += w * (1 - ig.GapPct)
	}

	report.AverageGapPct = pctSum / float64(len(intervals))
	if weightSum > 0 {
		report.CoverageScore = clamp(weightedCov/weightSum*100, 0, 100)
	}
	report.Recommendations = a.recommend(report)
	return report
}

// AnalyzeRequirements is the richer entry used by the orchestrator: it
// flattens coverage requirements and shift blocks into the demand/supply
// maps and carries skill requirements into the report.
func (a *Analyzer) AnalyzeRequirements(reqs []domain.CoverageRequirement, blocks []domain.ShiftBlock) domain.GapReport {
	forecast := make(map[domain.Interval]int, len(reqs))
	skills := make(map[domain.Interval][]domain.SkillID, len(reqs))
	for _, r := range reqs {
		forecast[r.Interval] = r.RequiredHeadcount
		if len(r.RequiredSkills) > 0 {
			skills[r.Interval] = r.RequiredSkills
		}
	}
	report := a.Analyze(forecast, ScheduledHeadcount(blocks, keys(forecast)))
	for i := range report.Intervals {
		report.Intervals[i].RequiredSkills = skills[report.Intervals[i].Interval]
	}
	return report
}

func (a *Analyzer) analyzeInterval(iv domain.Interval, required, scheduled int) domain.IntervalGap {
	gapCount := required - scheduled
	if gapCount < 0 {
		gapCount = 0
	}
	gapPct := 0.0
	if required > 0 {
		gapPct = float64(gapCount) / float64(required)
	}
	return domain.IntervalGap{
		Interval:   iv,
		Required:   required,
		Scheduled:  scheduled,
		GapCount:   gapCount,
		GapPct:     gapPct,
		Severity:   a.classify(gapPct),
		CostImpact: float64(gapCount) * a.cfg.UncoveredHourlyRate * iv.Hours(),
		SLImpact:   clamp(gapPct*2, 0, 1),
	}
}

func (a *Analyzer) classify(gapPct float64) domain.GapSeverity {
	switch {
	case gapPct >= a.cfg.CriticalThreshold:
		return domain.GapCritical
	case gapPct >= a.cfg.HighThreshold:
		return domain.GapHigh
	case gapPct >= a.cfg.MediumThreshold:
		return domain.GapMedium
	case gapPct > 0:
		return domain.GapLow
	default:
		return domain.GapCovered
	}
}

// recommend orders recommendations: urgent critical notices first, then
// the costliest intervals, then a peak-cluster hint, then the reducible
// total, capped at the configured maximum.
func (a *Analyzer) recommend(report domain.GapReport) []string {
	recs := make([]string, 0, a.cfg.MaxRecommendations)

	if n := len(report.CriticalIntervals); n > 0 {
		first := report.CriticalIntervals[0]
		recs = append(recs, fmt.Sprintf(
			"URGENT: %d interval(s) critically understaffed, starting at %s", n, first.Label()))
	}

	costly := append([]domain.IntervalGap(nil), report.Intervals...)
	sort.SliceStable(costly, func(i, j int) bool { return costly[i].CostImpact > costly[j].CostImpact })
	for _, ig := range costly {
		if len(recs) >= 3 || ig.CostImpact <= 0 {
			break
		}
		recs = append(recs, fmt.Sprintf(
			"Focus on %s: %d agent(s) short, %.0f cost at risk", ig.Interval.Label(), ig.GapCount, ig.CostImpact))
	}

	if midday := middayGapCount(report.Intervals); midday >= 4 {
		recs = append(recs, fmt.Sprintf(
			"Peak-hour cluster: %d mid-day intervals under target, consider peak coverage patterns", midday))
	}

	if report.TotalGaps > 0 {
		recs = append(recs, fmt.Sprintf(
			"Closing all gaps requires %d additional agent-interval(s)", report.TotalGaps))
	}

	if len(recs) > a.cfg.MaxRecommendations {
		recs = recs[:a.cfg.MaxRecommendations]
	}
	if len(recs) > 0 {
		log.Debug().Int("recommendations", len(recs)).Int("total_gaps", report.TotalGaps).
			Msg("gap analysis recommendations prepared")
	}
	return recs
}

// middayGapCount counts gapped intervals between 10:00 and 16:00.
func middayGapCount(intervals []domain.IntervalGap) int {
	const from, to = 10 * 60, 16 * 60
	n := 0
	for _, ig := range intervals {
		if ig.GapCount > 0 && ig.Interval.Start >= from && ig.Interval.Start < to {
			n++
		}
	}
	return n
}

// ScheduledHeadcount counts distinct employees covering each interval.
// For multi-day schedules the headcount of a recurring interval is the
// weakest day, matching how coverage requirements recur daily.
func ScheduledHeadcount(blocks []domain.ShiftBlock, intervals []domain.Interval) map[domain.Interval]int {
	out := make(map[domain.Interval]int, len(intervals))
	byDay := make(map[int64][]domain.ShiftBlock)
	for _, b := range blocks {
		day := b.Date.Truncate(24 * 3600e9).Unix()
		byDay[day] = append(byDay[day], b)
	}
	for _, iv := range intervals {
		minCount := -1
		for _, dayBlocks := range byDay {
			seen := make(map[string]bool)
			for _, b := range dayBlocks {
				if b.CoversInterval(iv) {
					seen[b.EmployeeID] = true
				}
			}
			if minCount < 0 || len(seen) < minCount {
				minCount = len(seen)
			}
		}
		if minCount < 0 {
			minCount = 0
		}
		out[iv] = minCount
	}
	return out
}

func keys(m map[domain.Interval]int) []domain.Interval {
	out := make([]domain.Interval, 0, len(m))
	for iv := range m {
		out = append(out, iv)
	}
	domain.SortIntervals(out)
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
