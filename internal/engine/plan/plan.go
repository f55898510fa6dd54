// Package plan turns query groups into a SearchPlan: one provider strategy
// (plus an optional backup on another provider) per group.
package plan

import (
	"context"
	"errors"
	"strings"

	"github.com/anatolykoptev/go_jobplan/internal/engine"
)

var (
	// ErrNoGroups is returned when Plan is called without any query group.
	ErrNoGroups = errors.New("no query groups to plan")
	// ErrInvalidPlan marks an LLM response that failed parsing or validation.
	ErrInvalidPlan = errors.New("invalid search plan")
)

// Source records which planner produced a plan.
type Source string

const (
	SourceAI        Source = "ai"
	SourceHeuristic Source = "heuristic"
)

// SearchStrategy is the execution plan for one group against one provider.
// Backup, when set, targets a different provider and is never nested further
// by the planners in this package.
type SearchStrategy struct {
	Provider        engine.Provider `json:"provider"`
	PrimaryQuery    string          `json:"primary_query"`
	FallbackQueries []string        `json:"fallback_queries,omitempty"`
	Synonyms        []string        `json:"synonyms,omitempty"`
	Location        string          `json:"location,omitempty"`
	MaxAgeDays      int             `json:"max_age_days,omitempty"`
	CostEstimate    float64         `json:"cost_estimate"`
	Priority        int             `json:"priority"`
	Backup          *SearchStrategy `json:"backup_strategy,omitempty"`
}

// Queries returns the ordered query variants to try: primary, fallbacks,
// then at most maxSynonyms synonyms. Blank and repeated variants are skipped.
// An empty list degrades to the group title.
func (s SearchStrategy) Queries(title string, maxSynonyms int) []string {
	syn := s.Synonyms
	if maxSynonyms >= 0 && len(syn) > maxSynonyms {
		syn = syn[:maxSynonyms]
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" {
			return
		}
		k := strings.ToLower(q)
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		out = append(out, q)
	}
	add(s.PrimaryQuery)
	for _, q := range s.FallbackQueries {
		add(q)
	}
	for _, q := range syn {
		add(q)
	}
	if len(out) == 0 {
		add(title)
	}
	return out
}

// SearchPlan maps group key to strategy. Read-only once built.
type SearchPlan struct {
	Strategies        map[string]SearchStrategy `json:"strategies"`
	TotalCostEstimate float64                   `json:"total_cost_estimate"`
	BudgetLimit       float64                   `json:"budget_limit"`
	Source            Source                    `json:"-"`
}

// StrategyFor looks a group up by id, then by title.
func (p SearchPlan) StrategyFor(g engine.QueryGroup) (SearchStrategy, bool) {
	if s, ok := p.Strategies[g.ID]; ok && g.ID != "" {
		return s, true
	}
	s, ok := p.Strategies[g.Title]
	return s, ok
}

// Planner produces a SearchPlan for a set of groups.
type Planner interface {
	Plan(ctx context.Context, groups []engine.QueryGroup) (SearchPlan, error)
}

// CompleteFunc sends a prompt to a text-generation service.
type CompleteFunc func(ctx context.Context, prompt string) (string, error)

// New picks the planner once: the LLM-backed one when complete is set,
// otherwise the heuristic.
func New(complete CompleteFunc, heuristic *HeuristicPlanner) Planner {
	if complete == nil {
		return heuristic
	}
	return NewAIPlanner(complete, heuristic)
}

func sumPrimaryCosts(strategies map[string]SearchStrategy) float64 {
	var total float64
	for _, s := range strategies {
		total += s.CostEstimate
	}
	return total
}
