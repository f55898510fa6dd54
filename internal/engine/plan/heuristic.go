package plan

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/anatolykoptev/go_jobplan/internal/engine"
)

var (
	roleCues  = []string{"engineer", "developer", "architect"}
	skillCues = []string{"python", "ai", "ml", "cloud"}

	federalCues = []string{"federal", "government"}
	techCues    = []string{"tech", "developer", "engineer", "remote"}

	engineerSynonyms = []string{"developer", "programmer", "architect"}
	aiSynonyms       = []string{"machine learning", "artificial intelligence", "deep learning"}
)

// HeuristicPlanner builds plans from lexical cues in titles and keywords.
// It makes no external calls and is deterministic.
type HeuristicPlanner struct {
	costs       engine.ProviderSettings
	budgetLimit float64
	maxAgeDays  int
}

// NewHeuristicPlanner reads the cost table, budget and recency default from cfg.
func NewHeuristicPlanner(cfg engine.Config) *HeuristicPlanner {
	limit := cfg.BudgetLimit
	if limit <= 0 {
		limit = engine.DefaultBudgetLimit
	}
	costs := cfg.Providers
	if costs == nil {
		costs = engine.DefaultProviderSettings()
	}
	return &HeuristicPlanner{costs: costs, budgetLimit: limit, maxAgeDays: cfg.DefaultMaxAgeDays}
}

// Plan implements Planner.
func (h *HeuristicPlanner) Plan(_ context.Context, groups []engine.QueryGroup) (SearchPlan, error) {
	if len(groups) == 0 {
		return SearchPlan{}, ErrNoGroups
	}
	engine.IncrHeuristicPlans()

	p := SearchPlan{
		Strategies:  make(map[string]SearchStrategy, len(groups)),
		BudgetLimit: h.budgetLimit,
		Source:      SourceHeuristic,
	}
	order := make([]string, 0, len(groups))
	for _, g := range groups {
		key := g.Key()
		if _, dup := p.Strategies[key]; !dup {
			order = append(order, key)
		}
		p.Strategies[key] = h.strategyFor(g)
	}
	p.TotalCostEstimate = sumPrimaryCosts(p.Strategies)
	h.fitBudget(&p, order)

	slog.Info("heuristic plan built",
		slog.Int("groups", len(p.Strategies)),
		slog.Float64("total_cost_estimate", p.TotalCostEstimate),
		slog.Float64("budget_limit", p.BudgetLimit))
	return p, nil
}

func (h *HeuristicPlanner) strategyFor(g engine.QueryGroup) SearchStrategy {
	primary, backup := routeProviders(g.Title)
	queries := queryVariants(g)

	s := SearchStrategy{
		Provider:     primary,
		PrimaryQuery: queries[0],
		Synonyms:     synonymsFor(g.Title),
		MaxAgeDays:   h.maxAgeDays,
		CostEstimate: h.costs.CostPerCall(primary),
		Priority:     1,
	}
	if len(queries) > 1 {
		s.FallbackQueries = queries[1:]
	}
	s.Backup = &SearchStrategy{
		Provider:        backup,
		PrimaryQuery:    s.PrimaryQuery,
		FallbackQueries: s.FallbackQueries,
		Synonyms:        s.Synonyms,
		MaxAgeDays:      h.maxAgeDays,
		CostEstimate:    h.costs.CostPerCall(backup),
		Priority:        2,
	}
	return s
}

// fitBudget moves the costliest primaries onto the cheapest provider, last
// group first, until the plan total fits the budget.
func (h *HeuristicPlanner) fitBudget(p *SearchPlan, order []string) {
	if p.TotalCostEstimate <= p.BudgetLimit {
		return
	}
	cheapest := engine.KnownProviders[0]
	for _, prov := range engine.KnownProviders[1:] {
		if h.costs.CostPerCall(prov) < h.costs.CostPerCall(cheapest) {
			cheapest = prov
		}
	}
	for i := len(order) - 1; i >= 0 && p.TotalCostEstimate > p.BudgetLimit; i-- {
		s := p.Strategies[order[i]]
		if s.Provider == cheapest || s.CostEstimate <= h.costs.CostPerCall(cheapest) {
			continue
		}
		old := s.Provider
		s.Provider = cheapest
		s.CostEstimate = h.costs.CostPerCall(cheapest)
		if s.Backup != nil {
			b := *s.Backup
			b.Provider = old
			b.CostEstimate = h.costs.CostPerCall(old)
			s.Backup = &b
		}
		p.Strategies[order[i]] = s
		p.TotalCostEstimate = sumPrimaryCosts(p.Strategies)
		slog.Debug("plan rerouted to fit budget",
			slog.String("group", order[i]),
			slog.String("from", string(old)),
			slog.String("to", string(cheapest)))
	}
	if p.TotalCostEstimate > p.BudgetLimit {
		slog.Warn("heuristic plan exceeds budget with cheapest providers",
			slog.Float64("total_cost_estimate", p.TotalCostEstimate),
			slog.Float64("budget_limit", p.BudgetLimit))
	}
}

// routeProviders picks primary and backup providers from title cues.
func routeProviders(title string) (primary, backup engine.Provider) {
	w := words(title)
	switch {
	case hasCue(w, federalCues):
		return engine.ProviderUSAJobs, engine.ProviderJSearch
	case hasCue(w, techCues):
		return engine.ProviderJSearch, engine.ProviderAdzuna
	default:
		return engine.ProviderAdzuna, engine.ProviderJSearch
	}
}

// queryVariants returns 1-3 queries from most specific to broadest.
// The role comes from a role keyword, else from the title.
func queryVariants(g engine.QueryGroup) []string {
	var role string
	var skills []string
	for _, kw := range g.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		w := words(kw)
		switch {
		case role == "" && hasCue(w, roleCues):
			role = kw
		case hasCue(w, skillCues):
			skills = append(skills, kw)
		}
	}

	var out []string
	add := func(q string) {
		q = strings.TrimSpace(q)
		for _, existing := range out {
			if strings.EqualFold(existing, q) {
				return
			}
		}
		if q != "" {
			out = append(out, q)
		}
	}

	if role == "" {
		role = strings.TrimSpace(g.Title)
	}
	if len(skills) > 0 {
		add(role + " " + strings.Join(skills[:min(2, len(skills))], " "))
		add(role + " " + skills[0])
		add(role)
	} else {
		add(role)
		add(strings.Join(firstN(nonEmpty(g.Keywords), 3), " "))
	}
	if len(out) == 0 {
		out = append(out, g.Title)
	}
	return out
}

func synonymsFor(title string) []string {
	w := words(title)
	var out []string
	if hasCue(w, []string{"engineer"}) {
		out = append(out, engineerSynonyms...)
	}
	if hasCue(w, []string{"ai", "ml"}) {
		out = append(out, aiSynonyms...)
	}
	return out
}

// words lowercases s and splits it on anything that is not a letter or digit.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// hasCue reports whether any word matches a cue. Short cues ("ai", "ml")
// must match a whole word; longer ones may be a substring ("engineering").
func hasCue(words, cues []string) bool {
	for _, w := range words {
		for _, c := range cues {
			if w == c || (len(c) > 2 && strings.Contains(w, c)) {
				return true
			}
		}
	}
	return false
}

func nonEmpty(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstN(ss []string, n int) []string {
	if len(ss) > n {
		return ss[:n]
	}
	return ss
}
