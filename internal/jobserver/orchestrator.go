package jobserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/anatolykoptev/go_jobplan/internal/engine"
	"github.com/anatolykoptev/go_jobplan/internal/engine/distribute"
	"github.com/anatolykoptev/go_jobplan/internal/engine/executor"
	"github.com/anatolykoptev/go_jobplan/internal/engine/plan"
	"github.com/anatolykoptev/go_jobplan/internal/engine/store"
)

// ErrInvalidRequest wraps every request validation failure.
var ErrInvalidRequest = errors.New("invalid search request")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize fills request defaults in place.
func (r *SearchRequest) Normalize() {
	if r.TotalJobs == 0 {
		r.TotalJobs = DefaultTotalJobs
	}
	r.Location = strings.TrimSpace(r.Location)
	for i := range r.CareerPaths {
		r.CareerPaths[i].ID = strings.TrimSpace(r.CareerPaths[i].ID)
		r.CareerPaths[i].Title = strings.TrimSpace(r.CareerPaths[i].Title)
	}
}

// Validate checks request bounds.
func (r SearchRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

// ProviderLister reports which providers have clients. *sources.Registry satisfies it.
type ProviderLister interface {
	Available() []engine.Provider
}

// Deps are the collaborators of an Orchestrator. Sink and Providers are optional.
type Deps struct {
	Planner     plan.Planner
	Executor    *executor.Executor
	Distributor *distribute.Distributor
	Sink        store.Sink
	Providers   ProviderLister
	BudgetLimit float64
}

// Orchestrator runs one search: plan, first wave, redistribution wave,
// dedup, report. It holds no per-run state.
type Orchestrator struct {
	planner plan.Planner
	exec    *executor.Executor
	dist    *distribute.Distributor
	sink    store.Sink
	lister  ProviderLister
	budget  float64

	now   func() time.Time
	newID func() string
}

// NewOrchestrator builds an Orchestrator. A non-positive budget uses the default.
func NewOrchestrator(d Deps) *Orchestrator {
	budget := d.BudgetLimit
	if budget <= 0 {
		budget = engine.DefaultBudgetLimit
	}
	dist := d.Distributor
	if dist == nil {
		dist = distribute.New(distribute.DefaultSaturationThreshold)
	}
	return &Orchestrator{
		planner: d.Planner,
		exec:    d.Executor,
		dist:    dist,
		sink:    d.Sink,
		lister:  d.Providers,
		budget:  budget,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// pathRun is one group's state across both waves.
type pathRun struct {
	group    engine.QueryGroup
	strategy plan.SearchStrategy
	alloc    distribute.Allocation
	first    executor.SearchResult
	second   *WaveOutcome
	cost     float64
	waves    int
}

// Search runs a full orchestration. Provider failures never surface here;
// only an invalid request or a failure to plan returns an error.
func (o *Orchestrator) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	dedup, err := distribute.ParseDedupStrategy(req.DedupStrategy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	engine.IncrSearchRuns()
	runID := o.newID()
	started := o.now()
	log := slog.With(slog.String("run_id", runID))

	var (
		resp     *SearchResponse
		finished []*pathRun
	)
	err = engine.TrackOperation(ctx, "career_job_search", func(ctx context.Context) error {
		sp, err := o.planner.Plan(ctx, req.CareerPaths)
		if err != nil {
			return fmt.Errorf("build search plan: %w", err)
		}
		log.Info("search plan ready",
			slog.String("source", string(sp.Source)),
			slog.Int("groups", len(req.CareerPaths)),
			slog.Float64("planned_cost", sp.TotalCostEstimate))

		ledger := executor.NewLedger(o.budget)
		runs := o.prepare(log, req, sp)

		o.firstWave(ctx, runs, ledger)
		redistributed := o.secondWave(ctx, log, runs, req.TotalJobs, ledger)

		resp = o.report(runID, sp, runs, dedup, ledger, redistributed)
		finished = runs
		log.Info("search finished",
			slog.Int("jobs", resp.TotalJobsFound),
			slog.Float64("spent", resp.Metadata.TotalCost),
			slog.Bool("redistributed", redistributed))
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.save(ctx, log, started, req.TotalJobs, resp, finished)
	return resp, nil
}

func (o *Orchestrator) prepare(log *slog.Logger, req SearchRequest, sp plan.SearchPlan) []*pathRun {
	quotas := distribute.InitialDistribution(req.CareerPaths, req.TotalJobs)
	runs := make([]*pathRun, len(req.CareerPaths))
	for i, g := range req.CareerPaths {
		s, ok := sp.StrategyFor(g)
		if !ok {
			log.Warn("no strategy for group, results will be mock", slog.String("group", g.Key()))
		}
		s = withLocation(s, req.Location)
		runs[i] = &pathRun{
			group:    g,
			strategy: s,
			alloc:    distribute.Allocation{Group: g.Key(), Requested: quotas[g.Key()]},
		}
	}
	return runs
}

func withLocation(s plan.SearchStrategy, location string) plan.SearchStrategy {
	if location == "" {
		return s
	}
	if s.Location == "" {
		s.Location = location
	}
	if s.Backup != nil {
		b := withLocation(*s.Backup, location)
		s.Backup = &b
	}
	return s
}

// firstWave executes every group concurrently with its initial quota.
func (o *Orchestrator) firstWave(ctx context.Context, runs []*pathRun, ledger *executor.Ledger) {
	var g errgroup.Group
	for _, r := range runs {
		g.Go(func() error {
			res := o.exec.Execute(ctx, r.group, r.strategy, r.alloc.Requested, ledger)
			r.first = res
			r.cost = res.AttemptCost
			r.waves = 1
			r.alloc.Jobs = firstN(res.Jobs, r.alloc.Requested)
			r.alloc.Found = len(r.alloc.Jobs)
			return nil
		})
	}
	_ = g.Wait()
}

// secondWave moves unmet quota to saturated groups and re-executes the
// groups whose quota now exceeds what they found. It reports whether it ran.
func (o *Orchestrator) secondWave(ctx context.Context, log *slog.Logger, runs []*pathRun, total int, ledger *executor.Ledger) bool {
	allocs := make([]distribute.Allocation, len(runs))
	for i, r := range runs {
		allocs[i] = r.alloc
	}
	quotas := o.dist.Redistribute(allocs, total)

	var pending []*pathRun
	for _, r := range runs {
		q := quotas[r.alloc.Group]
		if q > r.alloc.Requested && q > r.alloc.Found {
			pending = append(pending, r)
		}
		r.alloc.Requested = q
	}
	if len(pending) == 0 {
		return false
	}

	engine.IncrRedistributionWaves()
	log.Info("redistribution wave", slog.Int("groups", len(pending)))

	var g errgroup.Group
	for _, r := range pending {
		g.Go(func() error {
			res := o.exec.Execute(ctx, r.group, r.strategy, r.alloc.Requested, ledger)
			r.cost += res.AttemptCost
			r.waves++
			before := len(r.alloc.Jobs)
			r.alloc.Jobs = mergeNew(r.alloc.Jobs, res.Jobs, r.alloc.Requested)
			r.alloc.Found = len(r.alloc.Jobs)
			r.second = &WaveOutcome{
				Source:         res.Source.String(),
				Query:          res.Query,
				FallbackReason: res.FallbackReason,
				JobsAdded:      r.alloc.Found - before,
			}
			return nil
		})
	}
	_ = g.Wait()
	return true
}

// mergeNew appends jobs from extra whose URL is not already present, up to limit.
func mergeNew(have, extra []engine.CanonicalJob, limit int) []engine.CanonicalJob {
	seen := make(map[string]struct{}, len(have))
	for _, j := range have {
		if j.URL != "" {
			seen[j.URL] = struct{}{}
		}
	}
	out := slices.Clone(have)
	for _, j := range extra {
		if len(out) >= limit {
			break
		}
		if j.URL != "" {
			if _, dup := seen[j.URL]; dup {
				continue
			}
			seen[j.URL] = struct{}{}
		}
		out = append(out, j)
	}
	return out
}

func firstN(jobs []engine.CanonicalJob, n int) []engine.CanonicalJob {
	if n >= 0 && len(jobs) > n {
		return jobs[:n]
	}
	return jobs
}

func (o *Orchestrator) report(runID string, sp plan.SearchPlan, runs []*pathRun,
	dedup distribute.DedupStrategy, ledger *executor.Ledger, redistributed bool) *SearchResponse {
	byGroup := make([]distribute.GroupJobs, len(runs))
	for i, r := range runs {
		byGroup[i] = distribute.GroupJobs{Group: r.alloc.Group, Jobs: r.alloc.Jobs}
	}
	byGroup = distribute.Deduplicate(byGroup, dedup)

	resp := &SearchResponse{
		RunID:      runID,
		JobsByPath: make(map[string][]engine.CanonicalJob, len(runs)),
		Metadata: SearchMetadata{
			PlanSource:    sp.Source,
			DedupStrategy: dedup,
			PathsSearched: len(runs),
			PlannedCost:   sp.TotalCostEstimate,
			TotalCost:     ledger.Total(),
			BudgetLimit:   ledger.Limit(),
			Redistributed: redistributed,
			Paths:         make(map[string]PathMetadata, len(runs)),
		},
	}
	if o.lister != nil {
		resp.Metadata.AvailableProviders = o.lister.Available()
	}

	allocs := make([]distribute.Allocation, len(runs))
	for i, r := range runs {
		r.alloc.Jobs = byGroup[i].Jobs
		r.alloc.Found = len(r.alloc.Jobs)
		allocs[i] = r.alloc

		resp.JobsByPath[r.alloc.Group] = r.alloc.Jobs
		resp.TotalJobsFound += r.alloc.Found
		resp.Metadata.Paths[r.alloc.Group] = PathMetadata{
			Provider:       r.strategy.Provider,
			Source:         r.first.Source.String(),
			CostEstimate:   r.strategy.CostEstimate,
			CostIncurred:   r.cost,
			Priority:       r.strategy.Priority,
			Query:          r.first.Query,
			FallbackReason: r.first.FallbackReason,
			Waves:          r.waves,
			Redistribution: r.second,
		}
	}
	resp.AllocationSummary = distribute.AllocationSummary(allocs)
	return resp
}

func (o *Orchestrator) save(ctx context.Context, log *slog.Logger, started time.Time, total int, resp *SearchResponse, runs []*pathRun) {
	if o.sink == nil {
		return
	}
	rec := store.RunRecord{
		ID:            resp.RunID,
		StartedAt:     started,
		PlanSource:    string(resp.Metadata.PlanSource),
		DedupStrategy: string(resp.Metadata.DedupStrategy),
		TotalJobs:     total,
		TotalCost:     resp.Metadata.TotalCost,
		BudgetLimit:   resp.Metadata.BudgetLimit,
		Groups:        make([]store.GroupRecord, len(runs)),
	}
	for i, r := range runs {
		rec.Groups[i] = store.GroupRecord{
			Group:     r.alloc.Group,
			Provider:  string(r.strategy.Provider),
			Source:    r.first.Source.String(),
			Query:     r.first.Query,
			Requested: r.alloc.Requested,
			Found:     r.alloc.Found,
			Jobs:      r.alloc.Jobs,
		}
	}
	if err := o.sink.SaveRun(ctx, rec); err != nil {
		log.Warn("run sink failed", slog.Any("error", err))
	}
}
