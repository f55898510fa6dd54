// Package executor runs one group's search strategy against the provider
// clients: query variants in order, backup provider next, mock data last.
package executor

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/anatolykoptev/go_jobplan/internal/engine"
	"github.com/anatolykoptev/go_jobplan/internal/engine/plan"
	"github.com/anatolykoptev/go_jobplan/internal/engine/sources"
)

// Source is where a SearchResult's jobs came from: a real provider or mock.
type Source struct {
	provider engine.Provider
	mock     bool
}

// Real is a result produced by provider p.
func Real(p engine.Provider) Source { return Source{provider: p} }

// Mock is a synthesized result.
var Mock = Source{mock: true}

// IsMock reports whether the jobs were synthesized.
func (s Source) IsMock() bool { return s.mock }

// Provider returns the provider for a real result.
func (s Source) Provider() (engine.Provider, bool) { return s.provider, !s.mock }

func (s Source) String() string {
	if s.mock {
		return engine.SourceMock
	}
	return string(s.provider)
}

// MarshalText renders the source as its provider id or "mock".
func (s Source) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Fallback reasons reported on mock results.
const (
	ReasonBudget    = "budget"
	ReasonExhausted = "exhausted"
)

// SearchResult is the outcome of one execution. It always carries jobs.
type SearchResult struct {
	Jobs   []engine.CanonicalJob
	Source Source
	// CostIncurred is what this execution spent on the way to real results;
	// zero for mock results.
	CostIncurred float64
	// AttemptCost is everything this execution charged to the ledger,
	// including calls that returned nothing.
	AttemptCost float64
	// Query is the variant that produced the jobs; empty for mock results.
	Query string
	// FallbackReason explains a mock result.
	FallbackReason string
}

// ClientSource resolves provider clients. *sources.Registry satisfies it.
type ClientSource interface {
	Get(p engine.Provider) (sources.Client, bool)
}

// Executor is safe for concurrent use; per-run state lives in the Ledger.
type Executor struct {
	clients     ClientSource
	costs       engine.ProviderSettings
	maxSynonyms int
	mockCount   int
}

// New builds an executor over clients using the cost table and limits in cfg.
func New(clients ClientSource, cfg engine.Config) *Executor {
	costs := cfg.Providers
	if costs == nil {
		costs = engine.DefaultProviderSettings()
	}
	mockCount := cfg.MockJobCount
	if mockCount <= 0 {
		mockCount = 10
	}
	return &Executor{clients: clients, costs: costs, maxSynonyms: cfg.MaxSynonyms, mockCount: mockCount}
}

// Execute runs strategy s for group, asking for up to limit jobs; a
// non-positive limit asks for the configured mock job count.
// Budget check first, then the primary provider's query variants, then the
// backup's, then mock data. It never fails.
func (e *Executor) Execute(ctx context.Context, group engine.QueryGroup, s plan.SearchStrategy, limit int, ledger *Ledger) SearchResult {
	if limit <= 0 {
		limit = e.mockCount
	}
	log := slog.With(slog.String("group", group.Key()))

	if !ledger.Fits(s.CostEstimate) {
		engine.IncrBudgetRoutings()
		log.Warn("budget ceiling reached, using mock data",
			slog.Float64("spent", ledger.Total()),
			slog.Float64("cost_estimate", s.CostEstimate),
			slog.Float64("budget_limit", ledger.Limit()))
		return e.mock(group, s.Provider, limit, ReasonBudget, 0)
	}

	var attempted float64
	for _, st := range []*plan.SearchStrategy{&s, s.Backup} {
		if st == nil {
			continue
		}
		res, spent, ok := e.tryStrategy(ctx, log, group, *st, limit, ledger)
		attempted += spent
		if ok {
			res.CostIncurred = attempted
			res.AttemptCost = attempted
			return res
		}
	}

	log.Warn("all strategies exhausted, using mock data", slog.String("provider", string(s.Provider)))
	return e.mock(group, s.Provider, limit, ReasonExhausted, attempted)
}

// tryStrategy walks the strategy's query variants in order and stops at the
// first one that returns jobs. It reports what it charged to the ledger.
func (e *Executor) tryStrategy(ctx context.Context, log *slog.Logger, group engine.QueryGroup, st plan.SearchStrategy, limit int, ledger *Ledger) (SearchResult, float64, bool) {
	log = log.With(slog.String("provider", string(st.Provider)))
	client, ok := e.clients.Get(st.Provider)
	if !ok {
		log.Debug("provider not available")
		return SearchResult{}, 0, false
	}
	cost := e.costs.CostPerCall(st.Provider)

	var spent float64
	queries := st.Queries(group.Title, e.maxSynonyms)
	for i, q := range queries {
		if ctx.Err() != nil {
			return SearchResult{}, spent, false
		}
		qlog := log.With(slog.String("query", q), slog.Int("attempt", i+1), slog.Int("of", len(queries)))
		if !sources.Searchable(q) {
			qlog.Debug("query has no searchable terms, skipped")
			continue
		}

		key := engine.CacheKey(string(st.Provider), q, st.Location, strconv.Itoa(limit), strconv.Itoa(st.MaxAgeDays))
		if jobs, hit := engine.CacheLoadJSON[[]engine.CanonicalJob](ctx, key); hit && len(jobs) > 0 {
			qlog.Debug("cache hit")
			return e.success(qlog, group, st.Provider, q, jobs), spent, true
		}

		if !ledger.Reserve(cost) {
			engine.IncrBudgetRoutings()
			qlog.Warn("budget ceiling reached, skipping provider", slog.Float64("spent", ledger.Total()))
			return SearchResult{}, spent, false
		}
		spent += cost

		jobs, err := client.Search(ctx, q, st.Location, limit, st.MaxAgeDays)
		if err != nil {
			qlog.Warn("query failed", slog.Any("error", err))
			continue
		}
		if len(jobs) == 0 {
			qlog.Debug("query returned no jobs")
			continue
		}
		engine.CacheStoreJSON(ctx, key, jobs)
		return e.success(qlog, group, st.Provider, q, jobs), spent, true
	}
	log.Info("query variants exhausted", slog.Int("variants", len(queries)))
	return SearchResult{}, spent, false
}

func (e *Executor) success(log *slog.Logger, group engine.QueryGroup, p engine.Provider, q string, jobs []engine.CanonicalJob) SearchResult {
	out := make([]engine.CanonicalJob, len(jobs))
	for i, j := range jobs {
		j.GroupID = group.Key()
		out[i] = j.WithPlaceholders()
	}
	log.Info("query produced results", slog.Int("jobs", len(out)))
	return SearchResult{Jobs: out, Source: Real(p), Query: q}
}

func (e *Executor) mock(group engine.QueryGroup, flavor engine.Provider, n int, reason string, attempted float64) SearchResult {
	engine.IncrMockFallbacks()
	return SearchResult{
		Jobs:           MockJobs(group, flavor, n, reason),
		Source:         Mock,
		AttemptCost:    attempted,
		FallbackReason: reason,
	}
}
