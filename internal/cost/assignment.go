package cost

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fieldshift/schedopt/internal/domain"
)

// Site is one location with its interval coverage requirements.
type Site struct {
	ID           string                       `json:"id"`
	Requirements []domain.CoverageRequirement `json:"requirements"`
}

// Agent is one interchangeable pool member with its cost parameters.
type Agent struct {
	Employee   domain.Employee    `json:"employee"`
	HourlyCost float64            `json:"hourly_cost"`
	DistanceKm map[string]float64 `json:"distance_km,omitempty"` // site -> one-way km
}

// AssignmentRequest describes one pooled-assignment problem: cover every
// site's intervals at minimum cost subject to hour, skill, and budget
// constraints.
type AssignmentRequest struct {
	Date               time.Time          `json:"date"`
	Sites              []Site             `json:"sites"`
	Agents             []Agent            `json:"agents"`
	MaxHoursPerDay     float64            `json:"max_hours_per_day"`
	MinHoursPerDay     float64            `json:"min_hours_per_day"`
	SkillCoverageFloor float64            `json:"skill_coverage_floor"` // default 0.80
	BudgetByCostCenter map[string]float64 `json:"budget_by_cost_center,omitempty"`
	BudgetCapRatio     float64            `json:"budget_cap_ratio"` // default 0.80
}

// Assignment places one agent on one interval at one site.
type Assignment struct {
	AgentID  string          `json:"agent_id"`
	SiteID   string          `json:"site_id"`
	Interval domain.Interval `json:"interval"`
}

// AssignmentResult is the assignment-mode output. When the problem is
// infeasible, Assignments is empty and Impact.Quality reports it; no
// partial assignment is ever committed.
type AssignmentResult struct {
	Assignments []Assignment           `json:"assignments"`
	Impact      domain.FinancialImpact `json:"impact"`
}

// Assign solves the pooled-assignment problem with a deterministic greedy
// heuristic: intervals are filled in time order, cheapest eligible agent
// first, travel and accommodation priced per the mobile components.
// Coverage shortfalls, skill-floor misses, and budget-cap breaches all
// yield an infeasible result with a remediation hint.
func (c *Calculator) Assign(ctx context.Context, req AssignmentRequest) (AssignmentResult, error) {
	if len(req.Sites) == 0 || len(req.Agents) == 0 {
		return AssignmentResult{}, fmt.Errorf("%w: assignment needs sites and agents", domain.ErrInvalidInput)
	}
	c.once.Do(func() { c.load(ctx) })

	if req.SkillCoverageFloor <= 0 {
		req.SkillCoverageFloor = 0.80
	}
	if req.BudgetCapRatio <= 0 {
		req.BudgetCapRatio = 0.80
	}
	if req.MaxHoursPerDay <= 0 {
		req.MaxHoursPerDay = 12
	}

	if len(req.BudgetByCostCenter) == 0 && c.store != nil {
		req.BudgetByCostCenter = c.costCenterBudgets(ctx, req.Agents)
	}

	state := newAssignState(req)
	for _, task := range state.tasks {
		if err := ctx.Err(); err != nil {
			return AssignmentResult{}, fmt.Errorf("assignment cancelled: %w", domain.ErrCancelled)
		}
		if reason := state.fill(task); reason != "" {
			log.Warn().Str("site", task.siteID).Str("interval", task.req.Interval.Label()).
				Str("reason", reason).Msg("assignment infeasible")
			return infeasibleResult(reason), nil
		}
	}

	if reason := state.checkMinHours(req.MinHoursPerDay); reason != "" {
		return infeasibleResult(reason), nil
	}
	if reason := state.checkBudgets(c, req); reason != "" {
		return infeasibleResult(reason), nil
	}
	return state.result(c, req), nil
}

// costCenterBudgets resolves caps for every cost center present in the
// pool. Centers the store cannot answer for stay uncapped.
func (c *Calculator) costCenterBudgets(ctx context.Context, agents []Agent) map[string]float64 {
	out := make(map[string]float64)
	seen := make(map[string]bool)
	for _, a := range agents {
		cc := a.Employee.CostCenterID
		if cc == "" || seen[cc] {
			continue
		}
		seen[cc] = true
		budget, err := c.store.GetCostCenterBudget(ctx, cc)
		if err != nil {
			log.Warn().Err(err).Str("cost_center", cc).Msg("cost center budget unavailable, leaving uncapped")
			continue
		}
		if budget > 0 {
			out[cc] = budget
		}
	}
	return out
}

func infeasibleResult(reason string) AssignmentResult {
	return AssignmentResult{
		Impact: domain.FinancialImpact{
			ComponentTotals: zeroComponents(),
			Quality:         domain.CostInfeasible,
			Recommendation:  "relax constraints or extend the pool: " + reason,
		},
	}
}

type assignTask struct {
	siteID string
	req    domain.CoverageRequirement
}

type assignState struct {
	tasks       []assignTask
	agents      []Agent
	maxHours    float64
	skillFloor  float64
	hoursByDay  map[string]float64 // agent -> assigned hours
	siteByAgent map[string]map[string]bool
	assignments []Assignment
	travelCost  map[string]float64
	lodgeCost   map[string]float64
}

func newAssignState(req AssignmentRequest) *assignState {
	s := &assignState{
		maxHours:    req.MaxHoursPerDay,
		skillFloor:  req.SkillCoverageFloor,
		hoursByDay:  make(map[string]float64),
		siteByAgent: make(map[string]map[string]bool),
		travelCost:  make(map[string]float64),
		lodgeCost:   make(map[string]float64),
	}
	for _, site := range req.Sites {
		for _, r := range site.Requirements {
			s.tasks = append(s.tasks, assignTask{siteID: site.ID, req: r})
		}
	}
	sort.SliceStable(s.tasks, func(i, j int) bool {
		if s.tasks[i].req.Interval != s.tasks[j].req.Interval {
			return s.tasks[i].req.Interval.Before(s.tasks[j].req.Interval)
		}
		return s.tasks[i].siteID < s.tasks[j].siteID
	})
	s.agents = append([]Agent(nil), req.Agents...)
	sort.SliceStable(s.agents, func(i, j int) bool {
		if s.agents[i].HourlyCost != s.agents[j].HourlyCost {
			return s.agents[i].HourlyCost < s.agents[j].HourlyCost
		}
		return s.agents[i].Employee.ID < s.agents[j].Employee.ID
	})
	return s
}

// fill covers one task; returns a non-empty reason on infeasibility.
func (s *assignState) fill(task assignTask) string {
	needed := task.req.RequiredHeadcount
	if needed <= 0 {
		return ""
	}
	hours := task.req.Interval.Hours()

	assignedAgents := make([]Agent, 0, needed)
	busy := make(map[string]bool)
	for _, a := range s.assignments {
		if a.Interval.Overlaps(task.req.Interval) {
			busy[a.AgentID] = true
		}
	}

	for _, agent := range s.agents {
		if len(assignedAgents) == needed {
			break
		}
		id := agent.Employee.ID
		limit := s.maxHours
		if !agent.Employee.OvertimeAuthorization && limit > 8 {
			limit = 8 // unauthorized agents stay inside the regular day
		}
		if busy[id] || s.hoursByDay[id]+hours > limit {
			continue
		}
		assignedAgents = append(assignedAgents, agent)
	}
	if len(assignedAgents) < needed {
		return fmt.Sprintf("coverage shortfall: %d of %d agents available", len(assignedAgents), needed)
	}

	// Skill floor: the configured share of required headcount must hold
	// each required skill.
	for _, skill := range task.req.RequiredSkills {
		holders := 0
		for _, agent := range assignedAgents {
			if agent.Employee.HasSkill(skill) {
				holders++
			}
		}
		floor := int(math.Ceil(s.skillFloor * float64(needed)))
		if holders < floor {
			return fmt.Sprintf("skill %s coverage %d below floor %d", skill, holders, floor)
		}
	}

	for _, agent := range assignedAgents {
		id := agent.Employee.ID
		s.hoursByDay[id] += hours
		if s.siteByAgent[id] == nil {
			s.siteByAgent[id] = make(map[string]bool)
		}
		if !s.siteByAgent[id][task.siteID] && task.siteID != agent.Employee.BaseSite {
			km := DefaultTravelKm
			if d, ok := agent.DistanceKm[task.siteID]; ok {
				km = d
			}
			s.travelCost[id] += km // priced with rate_per_km later
			if km > 200 {
				s.lodgeCost[id]++ // long hauls need an overnight stay
			}
		}
		s.siteByAgent[id][task.siteID] = true
		s.assignments = append(s.assignments, Assignment{AgentID: id, SiteID: task.siteID, Interval: task.req.Interval})
	}
	return ""
}

// checkMinHours flags agents scheduled for a short day; agents with zero
// hours simply stayed home and are fine.
func (s *assignState) checkMinHours(min float64) string {
	if min <= 0 {
		return ""
	}
	ids := make([]string, 0, len(s.hoursByDay))
	for id, h := range s.hoursByDay {
		if h > 0 && h < min {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return ""
	}
	sort.Strings(ids)
	return fmt.Sprintf("agent %s assigned %.1fh, below the %.1fh daily minimum", ids[0], s.hoursByDay[ids[0]], min)
}

// checkBudgets enforces per-cost-center caps at the configured ratio.
func (s *assignState) checkBudgets(c *Calculator, req AssignmentRequest) string {
	if len(req.BudgetByCostCenter) == 0 {
		return ""
	}
	spend := make(map[string]float64)
	costByAgent := s.costByAgent(c, req)
	for _, agent := range s.agents {
		cc := agent.Employee.CostCenterID
		if cc == "" {
			continue
		}
		spend[cc] += costByAgent[agent.Employee.ID]
	}
	centers := make([]string, 0, len(spend))
	for cc := range spend {
		centers = append(centers, cc)
	}
	sort.Strings(centers)
	for _, cc := range centers {
		budget, ok := req.BudgetByCostCenter[cc]
		if !ok {
			continue
		}
		limit := req.BudgetCapRatio * budget
		if spend[cc] > limit {
			return fmt.Sprintf("cost center %s spend %.0f exceeds cap %.0f", cc, spend[cc], limit)
		}
	}
	return ""
}

func (s *assignState) costByAgent(c *Calculator, req AssignmentRequest) map[string]float64 {
	out := make(map[string]float64)
	for _, a := range s.assignments {
		agent := s.agentByID(a.AgentID)
		out[a.AgentID] += agent.HourlyCost * a.Interval.Hours()
	}
	for id, km := range s.travelCost {
		out[id] += km * c.rates.RatePerKm
	}
	for id, nights := range s.lodgeCost {
		out[id] += nights * c.rates.NightlyRate
	}
	return out
}

func (s *assignState) agentByID(id string) Agent {
	for _, a := range s.agents {
		if a.Employee.ID == id {
			return a
		}
	}
	return Agent{}
}

// result prices the committed assignment into a financial impact.
func (s *assignState) result(c *Calculator, req AssignmentRequest) AssignmentResult {
	impact := domain.FinancialImpact{
		ComponentTotals: zeroComponents(),
		Quality:         domain.CostOK,
	}
	costByAgent := s.costByAgent(c, req)

	ids := make([]string, 0, len(costByAgent))
	for id := range costByAgent {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		hoursCost := 0.0
		for _, a := range s.assignments {
			if a.AgentID == id {
				hoursCost += s.agentByID(id).HourlyCost * a.Interval.Hours()
			}
		}
		travel := s.travelCost[id] * c.rates.RatePerKm
		lodging := s.lodgeCost[id] * c.rates.NightlyRate
		coordination := 0.0
		if len(s.siteByAgent[id]) > 1 {
			coordination = c.rates.CoordinationFee
		}
		ec := domain.EmployeeCost{
			EmployeeID:    id,
			Base:          hoursCost,
			Travel:        travel,
			Accommodation: lodging,
			Coordination:  coordination,
			Total:         hoursCost + travel + lodging + coordination,
		}
		impact.PerEmployee = append(impact.PerEmployee, ec)
		impact.ComponentTotals["base"] += ec.Base
		impact.ComponentTotals["travel"] += ec.Travel
		impact.ComponentTotals["accommodation"] += ec.Accommodation
		impact.ComponentTotals["coordination"] += ec.Coordination
		impact.TotalCost += ec.Total
	}
	if impact.TotalCost > 0 {
		impact.CoefficientOfVariation = coefficientOfVariation(impact.PerEmployee)
	}
	return AssignmentResult{Assignments: s.assignments, Impact: impact}
}
