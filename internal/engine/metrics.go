package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	SearchRuns          atomic.Int64
	AIPlans             atomic.Int64
	HeuristicPlans      atomic.Int64
	PlanFallbacks       atomic.Int64
	LLMCalls            atomic.Int64
	LLMErrors           atomic.Int64
	ProviderRetries     atomic.Int64
	MockFallbacks       atomic.Int64
	BudgetRoutings      atomic.Int64
	RedistributionWaves atomic.Int64
	DuplicatesDropped   atomic.Int64
}

// Per-provider counters. Keys are fixed at init; the map itself is never written.
var (
	providerRequests = newProviderCounters()
	providerErrors   = newProviderCounters()
)

func newProviderCounters() map[Provider]*atomic.Int64 {
	m := make(map[Provider]*atomic.Int64, len(KnownProviders))
	for _, p := range KnownProviders {
		m[p] = new(atomic.Int64)
	}
	return m
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	m := map[string]int64{
		"search_runs":          metrics.SearchRuns.Load(),
		"ai_plans":             metrics.AIPlans.Load(),
		"heuristic_plans":      metrics.HeuristicPlans.Load(),
		"plan_fallbacks":       metrics.PlanFallbacks.Load(),
		"llm_calls":            metrics.LLMCalls.Load(),
		"llm_errors":           metrics.LLMErrors.Load(),
		"provider_retries":     metrics.ProviderRetries.Load(),
		"mock_fallbacks":       metrics.MockFallbacks.Load(),
		"budget_routings":      metrics.BudgetRoutings.Load(),
		"redistribution_waves": metrics.RedistributionWaves.Load(),
		"duplicates_dropped":   metrics.DuplicatesDropped.Load(),
		"cache_hits":           hits,
		"cache_misses":         misses,
	}
	for _, p := range KnownProviders {
		m[string(p)+"_requests"] = providerRequests[p].Load()
		m[string(p)+"_errors"] = providerErrors[p].Load()
	}
	return m
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"search_runs", "ai_plans", "heuristic_plans", "plan_fallbacks",
		"llm_calls", "llm_errors",
		"provider_retries", "mock_fallbacks", "budget_routings",
		"redistribution_waves", "duplicates_dropped",
	}
	for _, p := range KnownProviders {
		keys = append(keys, string(p)+"_requests", string(p)+"_errors")
	}
	keys = append(keys, "cache_hits", "cache_misses")
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

func IncrSearchRuns()          { metrics.SearchRuns.Add(1) }
func IncrAIPlans()             { metrics.AIPlans.Add(1) }
func IncrHeuristicPlans()      { metrics.HeuristicPlans.Add(1) }
func IncrPlanFallbacks()       { metrics.PlanFallbacks.Add(1) }
func IncrProviderRetries()     { metrics.ProviderRetries.Add(1) }
func IncrMockFallbacks()       { metrics.MockFallbacks.Add(1) }
func IncrBudgetRoutings()      { metrics.BudgetRoutings.Add(1) }
func IncrRedistributionWaves() { metrics.RedistributionWaves.Add(1) }

// AddDuplicatesDropped records jobs removed by cross-group dedup.
func AddDuplicatesDropped(n int) { metrics.DuplicatesDropped.Add(int64(n)) }

// IncrProviderRequests counts an issued call to p. Unknown providers are ignored.
func IncrProviderRequests(p Provider) {
	if c, ok := providerRequests[p]; ok {
		c.Add(1)
	}
}

// IncrProviderErrors counts a failed call to p after retries.
func IncrProviderErrors(p Provider) {
	if c, ok := providerErrors[p]; ok {
		c.Add(1)
	}
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
