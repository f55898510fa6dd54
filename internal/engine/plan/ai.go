package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/anatolykoptev/go_jobplan/internal/engine"
)

// AIPlanner asks a text-generation service for the plan. A response that
// fails parsing, validation or coverage is discarded whole and the heuristic
// planner runs instead.
type AIPlanner struct {
	complete  CompleteFunc
	heuristic *HeuristicPlanner
}

// NewAIPlanner returns an LLM-backed planner falling back to heuristic.
func NewAIPlanner(complete CompleteFunc, heuristic *HeuristicPlanner) *AIPlanner {
	return &AIPlanner{complete: complete, heuristic: heuristic}
}

// Plan implements Planner.
func (a *AIPlanner) Plan(ctx context.Context, groups []engine.QueryGroup) (SearchPlan, error) {
	if len(groups) == 0 {
		return SearchPlan{}, ErrNoGroups
	}
	p, err := a.planWithLLM(ctx, groups)
	if err != nil {
		engine.IncrPlanFallbacks()
		slog.Warn("llm plan rejected, using heuristic plan", slog.Any("error", err))
		return a.heuristic.Plan(ctx, groups)
	}
	engine.IncrAIPlans()
	slog.Info("llm plan accepted",
		slog.Int("groups", len(p.Strategies)),
		slog.Float64("total_cost_estimate", p.TotalCostEstimate))
	return p, nil
}

func (a *AIPlanner) planWithLLM(ctx context.Context, groups []engine.QueryGroup) (SearchPlan, error) {
	h := a.heuristic
	raw, err := a.complete(ctx, buildPlanPrompt(groups, h.costs, h.budgetLimit, h.maxAgeDays))
	if err != nil {
		return SearchPlan{}, fmt.Errorf("llm call: %w", err)
	}
	return parsePlan([]byte(raw), groups, h.budgetLimit, h.maxAgeDays)
}

// parsePlan validates raw and maps its strategies onto group keys.
// Every group must be covered and every provider recognized.
func parsePlan(raw []byte, groups []engine.QueryGroup, budget float64, maxAgeDays int) (SearchPlan, error) {
	if err := ValidatePlanJSON(raw); err != nil {
		return SearchPlan{}, err
	}
	var in SearchPlan
	if err := json.Unmarshal(raw, &in); err != nil {
		return SearchPlan{}, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	out := SearchPlan{
		Strategies:  make(map[string]SearchStrategy, len(groups)),
		BudgetLimit: budget,
		Source:      SourceAI,
	}
	for _, g := range groups {
		s, ok := in.StrategyFor(g)
		if !ok {
			return SearchPlan{}, fmt.Errorf("%w: no strategy for group %q", ErrInvalidPlan, g.Key())
		}
		s, err := normalizeStrategy(s, maxAgeDays, 1)
		if err != nil {
			return SearchPlan{}, fmt.Errorf("%w: group %q: %v", ErrInvalidPlan, g.Key(), err)
		}
		out.Strategies[g.Key()] = s
	}
	out.TotalCostEstimate = sumPrimaryCosts(out.Strategies)
	if out.TotalCostEstimate > budget {
		slog.Warn("llm plan exceeds budget, execution will enforce the ceiling",
			slog.Float64("total_cost_estimate", out.TotalCostEstimate),
			slog.Float64("budget_limit", budget))
	}
	return out, nil
}

// normalizeStrategy canonicalizes provider names and fills defaults. The
// backup is kept one level deep; anything nested below it is dropped.
func normalizeStrategy(s SearchStrategy, maxAgeDays, priority int) (SearchStrategy, error) {
	p, ok := engine.ParseProvider(string(s.Provider))
	if !ok {
		return s, fmt.Errorf("unknown provider %q", s.Provider)
	}
	s.Provider = p
	if s.MaxAgeDays <= 0 {
		s.MaxAgeDays = maxAgeDays
	}
	if s.Priority <= 0 {
		s.Priority = priority
	}
	if s.Backup != nil && priority == 1 {
		b, err := normalizeStrategy(*s.Backup, s.MaxAgeDays, 2)
		if err != nil {
			return s, fmt.Errorf("backup: %w", err)
		}
		b.Backup = nil
		s.Backup = &b
	} else {
		s.Backup = nil
	}
	return s, nil
}
