package jobserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_jobplan/internal/engine"
	"github.com/anatolykoptev/go_jobplan/internal/engine/distribute"
	"github.com/anatolykoptev/go_jobplan/internal/engine/executor"
	"github.com/anatolykoptev/go_jobplan/internal/engine/plan"
	"github.com/anatolykoptev/go_jobplan/internal/engine/sources"
	"github.com/anatolykoptev/go_jobplan/internal/engine/store"
)

// poolClient serves the first `limit` jobs of a fixed pool for any query.
type poolClient struct {
	name engine.Provider
	pool []engine.CanonicalJob
	err  error

	mu        sync.Mutex
	limits    []int
	locations []string
}

func (c *poolClient) Name() engine.Provider { return c.name }
func (c *poolClient) Close()                {}

func (c *poolClient) Search(_ context.Context, _, location string, limit, _ int) ([]engine.CanonicalJob, error) {
	c.mu.Lock()
	c.limits = append(c.limits, limit)
	c.locations = append(c.locations, location)
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.pool[:min(limit, len(c.pool))], nil
}

func (c *poolClient) Limits() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.limits...)
}

type clientMap map[engine.Provider]sources.Client

func (m clientMap) Get(p engine.Provider) (sources.Client, bool) {
	c, ok := m[p]
	return c, ok
}

func (m clientMap) Available() []engine.Provider {
	var out []engine.Provider
	for _, p := range engine.KnownProviders {
		if _, ok := m[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

func jobPool(prefix string, n int) []engine.CanonicalJob {
	out := make([]engine.CanonicalJob, n)
	for i := range out {
		out[i] = engine.CanonicalJob{
			Title:  fmt.Sprintf("%s job %d", prefix, i+1),
			URL:    fmt.Sprintf("https://%s.example/jobs/%d", prefix, i+1),
			Source: prefix,
		}
	}
	return out
}

type fixedPlanner struct {
	plan plan.SearchPlan
	err  error
}

func (f fixedPlanner) Plan(context.Context, []engine.QueryGroup) (plan.SearchPlan, error) {
	return f.plan, f.err
}

var (
	swe = engine.QueryGroup{ID: "swe", Title: "Software Engineer", Keywords: []string{"python", "backend"}}
	fed = engine.QueryGroup{ID: "fed", Title: "Federal IT Specialist", Keywords: []string{"it", "federal"}}
)

func strategyPlan(strategies map[string]plan.SearchStrategy) plan.SearchPlan {
	var total float64
	for _, s := range strategies {
		total += s.CostEstimate
	}
	return plan.SearchPlan{Strategies: strategies, TotalCostEstimate: total, BudgetLimit: 0.20, Source: plan.SourceAI}
}

func newOrchestrator(t *testing.T, p plan.Planner, clients clientMap, sink store.Sink, budget float64) *Orchestrator {
	t.Helper()
	cfg := engine.DefaultConfig()
	return NewOrchestrator(Deps{
		Planner:     p,
		Executor:    executor.New(clients, cfg),
		Sink:        sink,
		Providers:   clients,
		BudgetLimit: budget,
	})
}

// Software Engineer saturates its 10; Federal IT finds 3. The 7-job shortfall
// goes to Software Engineer in a second wave.
func TestSearchRedistributesToSaturatedGroup(t *testing.T) {
	js := &poolClient{name: engine.ProviderJSearch, pool: jobPool("js", 20)}
	usa := &poolClient{name: engine.ProviderUSAJobs, pool: jobPool("usa", 3)}
	p := fixedPlanner{plan: strategyPlan(map[string]plan.SearchStrategy{
		"swe": {Provider: engine.ProviderJSearch, PrimaryQuery: "Python Engineer", CostEstimate: 0.005, Priority: 1},
		"fed": {Provider: engine.ProviderUSAJobs, PrimaryQuery: "IT Specialist", Priority: 1},
	})}
	orch := newOrchestrator(t, p, clientMap{engine.ProviderJSearch: js, engine.ProviderUSAJobs: usa}, nil, 0)

	resp, err := orch.Search(context.Background(), SearchRequest{CareerPaths: []engine.QueryGroup{swe, fed}, TotalJobs: 20})
	require.NoError(t, err)

	assert.Equal(t, []int{10, 17}, js.Limits())
	assert.Equal(t, []int{10}, usa.Limits())
	assert.Equal(t, map[string]distribute.Count{
		"swe": {Requested: 17, Found: 17},
		"fed": {Requested: 10, Found: 3},
	}, resp.AllocationSummary)
	assert.Equal(t, 20, resp.TotalJobsFound)
	assert.Len(t, resp.JobsByPath["swe"], 17)
	assert.Equal(t, "https://js.example/jobs/17", resp.JobsByPath["swe"][16].URL)

	md := resp.Metadata
	assert.True(t, md.Redistributed)
	assert.Equal(t, plan.SourceAI, md.PlanSource)
	assert.Equal(t, distribute.FirstPath, md.DedupStrategy)
	assert.Equal(t, 2, md.PathsSearched)
	assert.InDelta(t, 0.010, md.TotalCost, 1e-9)
	assert.InDelta(t, 0.20, md.BudgetLimit, 1e-9)
	assert.Equal(t, []engine.Provider{engine.ProviderJSearch, engine.ProviderUSAJobs}, md.AvailableProviders)
	assert.Equal(t, PathMetadata{
		Provider: engine.ProviderJSearch, Source: "jsearch", CostEstimate: 0.005, CostIncurred: 0.010,
		Priority: 1, Query: "Python Engineer", Waves: 2,
		Redistribution: &WaveOutcome{Source: "jsearch", Query: "Python Engineer", JobsAdded: 7},
	}, md.Paths["swe"])
	assert.Equal(t, 1, md.Paths["fed"].Waves)
	assert.Nil(t, md.Paths["fed"].Redistribution)
	assert.Equal(t, "usajobs", md.Paths["fed"].Source)

	_, err = uuid.Parse(resp.RunID)
	assert.NoError(t, err)
}

func TestSearchNoRedistributionWhenNothingSaturated(t *testing.T) {
	js := &poolClient{name: engine.ProviderJSearch, pool: jobPool("js", 4)}
	usa := &poolClient{name: engine.ProviderUSAJobs, pool: jobPool("usa", 3)}
	p := fixedPlanner{plan: strategyPlan(map[string]plan.SearchStrategy{
		"swe": {Provider: engine.ProviderJSearch, PrimaryQuery: "Python Engineer"},
		"fed": {Provider: engine.ProviderUSAJobs, PrimaryQuery: "IT Specialist"},
	})}
	orch := newOrchestrator(t, p, clientMap{engine.ProviderJSearch: js, engine.ProviderUSAJobs: usa}, nil, 0)

	resp, err := orch.Search(context.Background(), SearchRequest{CareerPaths: []engine.QueryGroup{swe, fed}, TotalJobs: 20})
	require.NoError(t, err)

	assert.False(t, resp.Metadata.Redistributed)
	assert.Equal(t, []int{10}, js.Limits())
	assert.Equal(t, 7, resp.TotalJobsFound)
}

// Two paths surface the same URLs: first_path keeps them in the first path only.
func TestSearchDedupStrategies(t *testing.T) {
	shared := &poolClient{name: engine.ProviderAdzuna, pool: jobPool("az", 10)}
	p := fixedPlanner{plan: strategyPlan(map[string]plan.SearchStrategy{
		"swe": {Provider: engine.ProviderAdzuna, PrimaryQuery: "Engineer"},
		"fed": {Provider: engine.ProviderAdzuna, PrimaryQuery: "Specialist"},
	})}
	groups := []engine.QueryGroup{swe, fed}

	orch := newOrchestrator(t, p, clientMap{engine.ProviderAdzuna: shared}, nil, 0)
	resp, err := orch.Search(context.Background(), SearchRequest{CareerPaths: groups, TotalJobs: 20})
	require.NoError(t, err)
	assert.Len(t, resp.JobsByPath["swe"], 10)
	assert.Empty(t, resp.JobsByPath["fed"])
	assert.Equal(t, distribute.Count{Requested: 10, Found: 0}, resp.AllocationSummary["fed"])

	resp, err = orch.Search(context.Background(), SearchRequest{CareerPaths: groups, TotalJobs: 20, DedupStrategy: "all_paths"})
	require.NoError(t, err)
	assert.Len(t, resp.JobsByPath["swe"], 10)
	assert.Len(t, resp.JobsByPath["fed"], 10)
	assert.Equal(t, distribute.AllPaths, resp.Metadata.DedupStrategy)
}

// Paid failing provider for every path: spend stays under the ceiling and
// every path is filled with mock jobs.
func TestSearchNeverExceedsBudget(t *testing.T) {
	js := &poolClient{name: engine.ProviderJSearch, err: &engine.StatusError{StatusCode: 503}}
	strategies := make(map[string]plan.SearchStrategy)
	var groups []engine.QueryGroup
	for i := range 5 {
		g := engine.QueryGroup{ID: fmt.Sprintf("g%d", i), Title: "Software Engineer"}
		groups = append(groups, g)
		strategies[g.ID] = plan.SearchStrategy{
			Provider: engine.ProviderJSearch, PrimaryQuery: "Go Developer",
			FallbackQueries: []string{"Golang", "Backend"}, CostEstimate: 0.005,
		}
	}
	orch := newOrchestrator(t, fixedPlanner{plan: strategyPlan(strategies)}, clientMap{engine.ProviderJSearch: js}, nil, 0.02)

	resp, err := orch.Search(context.Background(), SearchRequest{CareerPaths: groups, TotalJobs: 50})
	require.NoError(t, err)

	assert.LessOrEqual(t, resp.Metadata.TotalCost, 0.02+1e-9)
	assert.LessOrEqual(t, len(js.Limits()), 4)
	assert.Equal(t, 50, resp.TotalJobsFound)
	for _, g := range groups {
		assert.Equal(t, engine.SourceMock, resp.Metadata.Paths[g.ID].Source)
		assert.Equal(t, distribute.Count{Requested: 10, Found: 10}, resp.AllocationSummary[g.ID])
	}
}

// Paths with the same title that both fall back to mock keep their full
// quota under first_path dedup.
func TestSearchMockPathsWithSameTitleKeepQuota(t *testing.T) {
	orch := newOrchestrator(t, plan.NewHeuristicPlanner(engine.DefaultConfig()), clientMap{}, nil, 0)
	groups := []engine.QueryGroup{{ID: "a", Title: "Data Analyst"}, {ID: "b", Title: "Data Analyst!"}}

	resp, err := orch.Search(context.Background(), SearchRequest{CareerPaths: groups, TotalJobs: 20})
	require.NoError(t, err)

	assert.Equal(t, map[string]distribute.Count{
		"a": {Requested: 10, Found: 10},
		"b": {Requested: 10, Found: 10},
	}, resp.AllocationSummary)
	assert.Equal(t, 20, resp.TotalJobsFound)
}

// The budget covers the first wave only, so the extra quota is served by mock
// data and the metadata says so.
func TestSearchReportsRedistributionOutcome(t *testing.T) {
	js := &poolClient{name: engine.ProviderJSearch, pool: jobPool("js", 20)}
	usa := &poolClient{name: engine.ProviderUSAJobs, pool: jobPool("usa", 3)}
	p := fixedPlanner{plan: strategyPlan(map[string]plan.SearchStrategy{
		"swe": {Provider: engine.ProviderJSearch, PrimaryQuery: "Python Engineer", CostEstimate: 0.005},
		"fed": {Provider: engine.ProviderUSAJobs, PrimaryQuery: "IT Specialist"},
	})}
	orch := newOrchestrator(t, p, clientMap{engine.ProviderJSearch: js, engine.ProviderUSAJobs: usa}, nil, 0.005)

	resp, err := orch.Search(context.Background(), SearchRequest{CareerPaths: []engine.QueryGroup{swe, fed}, TotalJobs: 20})
	require.NoError(t, err)

	assert.Equal(t, []int{10}, js.Limits())
	md := resp.Metadata.Paths["swe"]
	assert.Equal(t, "jsearch", md.Source)
	assert.Equal(t, 2, md.Waves)
	assert.Equal(t, &WaveOutcome{Source: engine.SourceMock, FallbackReason: executor.ReasonBudget, JobsAdded: 7}, md.Redistribution)
	assert.Equal(t, distribute.Count{Requested: 17, Found: 17}, resp.AllocationSummary["swe"])
}

func TestSearchHeuristicWithoutProviders(t *testing.T) {
	orch := newOrchestrator(t, plan.NewHeuristicPlanner(engine.DefaultConfig()), clientMap{}, nil, 0)

	resp, err := orch.Search(context.Background(), SearchRequest{CareerPaths: []engine.QueryGroup{swe, fed}, TotalJobs: 15})
	require.NoError(t, err)

	assert.Equal(t, plan.SourceHeuristic, resp.Metadata.PlanSource)
	assert.Equal(t, map[string]distribute.Count{
		"swe": {Requested: 8, Found: 8},
		"fed": {Requested: 7, Found: 7},
	}, resp.AllocationSummary)
	for _, jobs := range resp.JobsByPath {
		for _, j := range jobs {
			assert.Equal(t, engine.SourceMock, j.Source)
		}
	}
	assert.Equal(t, 0.0, resp.Metadata.TotalCost)
}

func TestSearchAppliesRequestLocation(t *testing.T) {
	az := &poolClient{name: engine.ProviderAdzuna, pool: jobPool("az", 20)}
	usa := &poolClient{name: engine.ProviderUSAJobs, pool: jobPool("usa", 20)}
	p := fixedPlanner{plan: strategyPlan(map[string]plan.SearchStrategy{
		"swe": {Provider: engine.ProviderAdzuna, PrimaryQuery: "Engineer"},
		"fed": {Provider: engine.ProviderUSAJobs, PrimaryQuery: "IT", Location: "Washington, DC"},
	})}
	orch := newOrchestrator(t, p, clientMap{engine.ProviderAdzuna: az, engine.ProviderUSAJobs: usa}, nil, 0)

	_, err := orch.Search(context.Background(), SearchRequest{CareerPaths: []engine.QueryGroup{swe, fed}, TotalJobs: 20, Location: " Remote "})
	require.NoError(t, err)
	assert.Equal(t, []string{"Remote"}, az.locations)
	assert.Equal(t, []string{"Washington, DC"}, usa.locations)
}

func TestSearchRequestValidation(t *testing.T) {
	orch := newOrchestrator(t, plan.NewHeuristicPlanner(engine.DefaultConfig()), clientMap{}, nil, 0)
	six := make([]engine.QueryGroup, 6)
	for i := range six {
		six[i] = engine.QueryGroup{ID: fmt.Sprintf("g%d", i), Title: "Analyst"}
	}

	tests := []struct {
		name string
		req  SearchRequest
	}{
		{"no paths", SearchRequest{TotalJobs: 20}},
		{"too many paths", SearchRequest{CareerPaths: six, TotalJobs: 20}},
		{"too few jobs", SearchRequest{CareerPaths: []engine.QueryGroup{swe}, TotalJobs: 5}},
		{"too many jobs", SearchRequest{CareerPaths: []engine.QueryGroup{swe}, TotalJobs: 501}},
		{"duplicate ids", SearchRequest{CareerPaths: []engine.QueryGroup{swe, swe}, TotalJobs: 20}},
		{"missing title", SearchRequest{CareerPaths: []engine.QueryGroup{{ID: "x"}}, TotalJobs: 20}},
		{"bad dedup", SearchRequest{CareerPaths: []engine.QueryGroup{swe}, TotalJobs: 20, DedupStrategy: "newest"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := orch.Search(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestSearchDefaultsTotalJobs(t *testing.T) {
	orch := newOrchestrator(t, plan.NewHeuristicPlanner(engine.DefaultConfig()), clientMap{}, nil, 0)
	resp, err := orch.Search(context.Background(), SearchRequest{CareerPaths: []engine.QueryGroup{swe, fed}})
	require.NoError(t, err)
	assert.Equal(t, DefaultTotalJobs, resp.TotalJobsFound)
}

func TestSearchPlanFailure(t *testing.T) {
	boom := errors.New("planner down")
	orch := newOrchestrator(t, fixedPlanner{err: boom}, clientMap{}, nil, 0)
	_, err := orch.Search(context.Background(), SearchRequest{CareerPaths: []engine.QueryGroup{swe}, TotalJobs: 20})
	assert.ErrorIs(t, err, boom)
}

type memorySink struct {
	err  error
	runs []store.RunRecord
}

func (m *memorySink) SaveRun(_ context.Context, r store.RunRecord) error {
	m.runs = append(m.runs, r)
	return m.err
}
func (m *memorySink) Close() {}

func TestSearchSavesRun(t *testing.T) {
	sink := &memorySink{err: errors.New("disk full")}
	orch := newOrchestrator(t, plan.NewHeuristicPlanner(engine.DefaultConfig()), clientMap{}, sink, 0)

	resp, err := orch.Search(context.Background(), SearchRequest{CareerPaths: []engine.QueryGroup{swe, fed}, TotalJobs: 20})
	require.NoError(t, err, "sink failures are not returned")

	require.Len(t, sink.runs, 1)
	rec := sink.runs[0]
	assert.Equal(t, resp.RunID, rec.ID)
	assert.Equal(t, 20, rec.TotalJobs)
	assert.Equal(t, "heuristic", rec.PlanSource)
	require.Len(t, rec.Groups, 2)
	assert.Equal(t, "swe", rec.Groups[0].Group)
	assert.Equal(t, "fed", rec.Groups[1].Group)
	assert.Equal(t, 20, rec.JobCount())
}

func TestMergeNew(t *testing.T) {
	have := jobPool("a", 2)
	extra := append(jobPool("a", 3), engine.CanonicalJob{Title: "no url"})
	extra = append(extra, jobPool("b", 3)...)

	got := mergeNew(have, extra, 5)
	require.Len(t, got, 5)
	assert.Equal(t, "https://a.example/jobs/3", got[2].URL)
	assert.Equal(t, "no url", got[3].Title)
	assert.Equal(t, "https://b.example/jobs/1", got[4].URL)
	assert.Len(t, have, 2)
}
