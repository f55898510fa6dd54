package plan

import (
	"fmt"
	"strings"

	"github.com/anatolykoptev/go_jobplan/internal/engine"
)

// planPrompt asks for a SearchPlan as bare JSON.
// Args: career path lines, provider notes, budget limit, default max age.
const planPrompt = `You are a job search strategist. Plan how to search job boards for each career path below.

Career paths (key: title, keywords):
%s

Job boards:
%s

For each career path produce:
1. primary_query: the most specific search phrase
2. fallback_queries: 2-4 progressively broader phrases
3. synonyms: alternative phrasings of the role
4. a backup_strategy on a different board, with queries adapted to that board

Respond with valid JSON only (no markdown, no explanation):
{
  "strategies": {
    "<career path key>": {
      "provider": "jsearch|adzuna|usajobs",
      "primary_query": "...",
      "fallback_queries": ["...", "..."],
      "synonyms": ["...", "..."],
      "max_age_days": %d,
      "cost_estimate": 0.0,
      "priority": 1,
      "backup_strategy": {
        "provider": "...",
        "primary_query": "...",
        "fallback_queries": ["..."],
        "cost_estimate": 0.0,
        "priority": 2
      }
    }
  },
  "total_cost_estimate": 0.0
}

Rules:
- Use exactly the career path keys given above
- cost_estimate is the board's per-search cost listed above
- Keep total_cost_estimate (sum of primary cost_estimate values) under %.2f
- Do not add fields that are not in the structure above`

var providerNotes = map[engine.Provider]string{
	engine.ProviderJSearch: "modern tech roles, startups, remote work; natural phrases like \"Software Engineer Python\"",
	engine.ProviderAdzuna:  "broad industry coverage, traditional companies; short terms like \"Data Analyst\"",
	engine.ProviderUSAJobs: "government and federal positions; formal titles like \"Information Technology Specialist\"",
}

func buildPlanPrompt(groups []engine.QueryGroup, costs engine.ProviderSettings, budget float64, maxAgeDays int) string {
	var paths strings.Builder
	for _, g := range groups {
		fmt.Fprintf(&paths, "- %s: %s, keywords = %s\n", g.Key(), g.Title, strings.Join(g.Keywords, ", "))
	}
	var boards strings.Builder
	for _, p := range engine.KnownProviders {
		fmt.Fprintf(&boards, "- %s ($%.3f/search): %s\n", p, costs.CostPerCall(p), providerNotes[p])
	}
	if maxAgeDays <= 0 {
		maxAgeDays = 7
	}
	return fmt.Sprintf(planPrompt, strings.TrimRight(paths.String(), "\n"), strings.TrimRight(boards.String(), "\n"), maxAgeDays, budget)
}
