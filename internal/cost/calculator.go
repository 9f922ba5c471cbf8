// Package cost computes the financial impact of schedule variants:
// per-employee weekly cost decomposition, mobile-workforce components,
// savings opportunities, and an assignment mode for interchangeable agent
// pools.
package cost

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fieldshift/schedopt/internal/domain"
	"github.com/fieldshift/schedopt/internal/store"
)

// OvertimePolicy sets the weekly threshold and multiplier for overtime pay.
type OvertimePolicy struct {
	WeeklyThresholdHours float64 `yaml:"weekly_threshold_hours"`
	Multiplier           float64 `yaml:"multiplier"`
}

// DefaultOvertimePolicy is time-and-a-half past 40 hours.
func DefaultOvertimePolicy() OvertimePolicy {
	return OvertimePolicy{WeeklyThresholdHours: 40, Multiplier: 1.5}
}

// DefaultTravelKm is the assumed one-way distance for a cross-site day
// when the store has no distance data.
const DefaultTravelKm = 50.0

// Calculator computes financial impacts. Employee financial profiles and
// payroll rates load from the MetricsStore on first use and stay cached
// for the run; without a store the documented defaults apply.
type Calculator struct {
	store    store.MetricsStore
	defaults domain.PayrollRates

	once     sync.Once
	rates    domain.PayrollRates
	profiles map[string]domain.Employee
	skills   map[string][]domain.SkillID
	fallback bool
}

// NewCalculator builds a calculator over the given store; a nil store
// means defaults only.
func NewCalculator(metricsStore store.MetricsStore, defaults domain.PayrollRates) *Calculator {
	if defaults.HourlyRate <= 0 {
		defaults = domain.DefaultPayrollRates()
	}
	return &Calculator{store: metricsStore, defaults: defaults}
}

// Calculate produces the financial impact of one variant. rates and
// policy are optional overrides; nil means store values or defaults.
// The computation is deterministic and never divides through zero totals.
func (c *Calculator) Calculate(ctx context.Context, variant domain.ScheduleVariant, ratesOverride *domain.PayrollRates, policy *OvertimePolicy) (domain.FinancialImpact, error) {
	if err := variant.Validate(); err != nil {
		return domain.FinancialImpact{}, err
	}
	started := time.Now()
	c.once.Do(func() { c.load(ctx) })

	rates := c.rates
	if ratesOverride != nil {
		rates = *ratesOverride
	}
	otPolicy := DefaultOvertimePolicy()
	if policy != nil {
		otPolicy = *policy
	} else if rates.OvertimeFactor > 0 {
		otPolicy.Multiplier = rates.OvertimeFactor
	}

	impact := domain.FinancialImpact{
		VariantID:       variant.ID,
		ComponentTotals: zeroComponents(),
		Quality:         domain.CostOK,
	}

	byEmployee := make(map[string][]domain.ShiftBlock)
	for _, b := range variant.Blocks {
		byEmployee[b.EmployeeID] = append(byEmployee[b.EmployeeID], b)
	}
	ids := make([]string, 0, len(byEmployee))
	for id := range byEmployee {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		ec := c.employeeCost(id, byEmployee[id], rates, otPolicy)
		impact.PerEmployee = append(impact.PerEmployee, ec)
		impact.ComponentTotals["base"] += ec.Base
		impact.ComponentTotals["overtime"] += ec.Overtime
		impact.ComponentTotals["weekend_premium"] += ec.WeekendPremium
		impact.ComponentTotals["night_premium"] += ec.NightPremium
		impact.ComponentTotals["skill_premium"] += ec.SkillPremium
		impact.ComponentTotals["benefits"] += ec.Benefits
		impact.ComponentTotals["travel"] += ec.Travel
		impact.ComponentTotals["accommodation"] += ec.Accommodation
		impact.ComponentTotals["coordination"] += ec.Coordination
		impact.TotalCost += ec.Total
	}

	if impact.TotalCost > 0 {
		impact.OvertimeShare = impact.ComponentTotals["overtime"] / impact.TotalCost
		impact.CoefficientOfVariation = coefficientOfVariation(impact.PerEmployee)
		impact.Savings = findSavings(impact)
	}
	impact.ProcessingTimeMS = time.Since(started).Milliseconds()

	log.Debug().
		Str("variant", variant.ID).
		Float64("total_cost", impact.TotalCost).
		Int("employees", len(impact.PerEmployee)).
		Bool("fallback_rates", c.fallback).
		Msg("cost calculation complete")
	return impact, nil
}

// employeeCost applies the weekly component formulas for one employee.
func (c *Calculator) employeeCost(id string, blocks []domain.ShiftBlock, rates domain.PayrollRates, policy OvertimePolicy) domain.EmployeeCost {
	profile, hasProfile := c.profiles[id]

	hourlyRate := rates.HourlyRate
	if hasProfile && profile.WorkRate > 0 {
		hourlyRate *= profile.WorkRate
	}

	var totalHours, weekendHours, nightHours float64
	for _, b := range blocks {
		totalHours += b.Hours()
		if b.IsWeekend() {
			weekendHours += b.Hours()
		}
		nightHours += float64(b.NightMinutes()) / 60
	}

	regular := math.Min(totalHours, policy.WeeklyThresholdHours)
	overtimeHours := math.Max(0, totalHours-policy.WeeklyThresholdHours)

	ec := domain.EmployeeCost{EmployeeID: id}
	ec.Base = regular * hourlyRate
	ec.Overtime = overtimeHours * hourlyRate * policy.Multiplier
	ec.WeekendPremium = weekendHours * rates.WeekendRate
	ec.NightPremium = nightHours * rates.NightRate
	ec.SkillPremium = (ec.Base + ec.Overtime) * c.skillTier(id, rates)
	ec.Benefits = rates.BenefitsFactor * (ec.Base + ec.Overtime + ec.WeekendPremium + ec.NightPremium + ec.SkillPremium)

	travelKm, nights, crossSite := mobileFootprint(blocks, profile.BaseSite)
	ec.Travel = travelKm * rates.RatePerKm
	ec.Accommodation = float64(nights) * rates.NightlyRate
	if crossSite {
		ec.Coordination = rates.CoordinationFee
	}

	ec.Total = ec.Base + ec.Overtime + ec.WeekendPremium + ec.NightPremium +
		ec.SkillPremium + ec.Benefits + ec.Travel + ec.Accommodation + ec.Coordination
	return ec
}

// skillTier maps the employee's best skill tier to its premium factor.
func (c *Calculator) skillTier(id string, rates domain.PayrollRates) float64 {
	best := 0.0
	for _, skill := range c.skills[id] {
		if premium, ok := rates.SkillTierPremium[string(skill)]; ok && premium > best {
			best = premium
		}
	}
	return best
}

// mobileFootprint derives travel distance, accommodation nights, and the
// cross-site flag from the employee's blocks. A day away from the base
// site costs one default-distance round trip; a late-ending away shift
// adds an accommodation night.
func mobileFootprint(blocks []domain.ShiftBlock, baseSite string) (km float64, nights int, crossSite bool) {
	sites := make(map[string]bool)
	awayDays := make(map[string]bool)
	for _, b := range blocks {
		if b.AssignedSite != "" {
			sites[b.AssignedSite] = true
		}
		if b.AssignedSite != "" && baseSite != "" && b.AssignedSite != baseSite {
			day := b.Date.Format("2006-01-02")
			if !awayDays[day] {
				awayDays[day] = true
				km += DefaultTravelKm
			}
			if b.EndMin >= 22*60 {
				nights++
			}
		}
	}
	return km, nights, len(sites) > 1
}

func coefficientOfVariation(costs []domain.EmployeeCost) float64 {
	if len(costs) < 2 {
		return 0
	}
	mean := 0.0
	for _, c := range costs {
		mean += c.Total
	}
	mean /= float64(len(costs))
	if mean == 0 {
		return 0
	}
	variance := 0.0
	for _, c := range costs {
		d := c.Total - mean
		variance += d * d
	}
	variance /= float64(len(costs))
	return math.Sqrt(variance) / mean
}

// load pulls payroll rates and employee data from the store once per run.
func (c *Calculator) load(ctx context.Context) {
	c.rates = c.defaults
	c.profiles = map[string]domain.Employee{}
	c.skills = map[string][]domain.SkillID{}
	if c.store == nil {
		c.fallback = true
		return
	}
	if rates, err := c.store.GetPayrollRates(ctx); err == nil && rates.HourlyRate > 0 {
		c.rates = rates
	} else {
		c.fallback = true
		log.Warn().Err(err).Msg("payroll rates unavailable, using defaults")
	}
	if profiles, err := c.store.GetEmployeeProfiles(ctx, nil); err == nil {
		for _, p := range profiles {
			c.profiles[p.ID] = p
		}
	}
	if skills, err := c.store.GetEmployeeSkills(ctx); err == nil {
		c.skills = skills
	}
}

func zeroComponents() map[string]float64 {
	return map[string]float64{
		"base": 0, "overtime": 0, "weekend_premium": 0, "night_premium": 0,
		"skill_premium": 0, "benefits": 0, "travel": 0, "accommodation": 0,
		"coordination": 0,
	}
}
