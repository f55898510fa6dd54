package jobserver

import (
	"github.com/anatolykoptev/go_jobplan/internal/engine"
	"github.com/anatolykoptev/go_jobplan/internal/engine/distribute"
	"github.com/anatolykoptev/go_jobplan/internal/engine/plan"
	"github.com/anatolykoptev/go_jobplan/internal/engine/store"
)

// DefaultTotalJobs is used when a request leaves total_jobs_requested unset.
const DefaultTotalJobs = 100

// SearchRequest is the input for career_job_search.
type SearchRequest struct {
	CareerPaths   []engine.QueryGroup `json:"career_paths" validate:"required,min=1,max=5,unique=ID,dive" jsonschema:"1 to 5 career paths, each with a unique id, a title and keywords"`
	TotalJobs     int                 `json:"total_jobs_requested,omitempty" validate:"min=10,max=500" jsonschema:"total jobs across all paths, 10 to 500 (default 100)"`
	Location      string              `json:"location,omitempty" jsonschema:"location applied to every path whose strategy has none, e.g. Remote or Austin, TX"`
	DedupStrategy string              `json:"dedup_strategy,omitempty" validate:"omitempty,oneof=first_path all_paths" jsonschema:"first_path (default) keeps a URL only in the first path that found it; all_paths keeps overlap"`
}

// SearchResponse is the output of one orchestrated run.
type SearchResponse struct {
	RunID             string                           `json:"run_id"`
	AllocationSummary map[string]distribute.Count      `json:"allocation_summary"`
	JobsByPath        map[string][]engine.CanonicalJob `json:"jobs_by_path"`
	TotalJobsFound    int                              `json:"total_jobs_found"`
	Metadata          SearchMetadata                   `json:"search_metadata"`
}

// SearchMetadata describes how the run was carried out.
type SearchMetadata struct {
	PlanSource         plan.Source              `json:"plan_source"`
	DedupStrategy      distribute.DedupStrategy `json:"deduplication"`
	PathsSearched      int                      `json:"paths_searched"`
	PlannedCost        float64                  `json:"planned_cost"`
	TotalCost          float64                  `json:"total_cost"`
	BudgetLimit        float64                  `json:"budget_limit"`
	Redistributed      bool                     `json:"redistributed"`
	AvailableProviders []engine.Provider        `json:"available_providers,omitempty"`
	Paths              map[string]PathMetadata  `json:"search_plan"`
}

// PathMetadata is the per-group view of the plan and its execution.
// Source, Query and FallbackReason describe the first wave; Redistribution
// is set when the group ran again with a larger quota.
type PathMetadata struct {
	Provider       engine.Provider `json:"provider"`
	Source         string          `json:"source"`
	CostEstimate   float64         `json:"cost_estimate"`
	CostIncurred   float64         `json:"cost_incurred"`
	Priority       int             `json:"priority"`
	Query          string          `json:"query,omitempty"`
	FallbackReason string          `json:"fallback_reason,omitempty"`
	Waves          int             `json:"waves"`
	Redistribution *WaveOutcome    `json:"redistribution,omitempty"`
}

// WaveOutcome is how one execution of a group was served.
type WaveOutcome struct {
	Source         string `json:"source"`
	Query          string `json:"query,omitempty"`
	FallbackReason string `json:"fallback_reason,omitempty"`
	JobsAdded      int    `json:"jobs_added"`
}

// HistoryRequest is the input for career_search_history.
type HistoryRequest struct {
	Limit int `json:"limit,omitempty" jsonschema:"number of runs to return, newest first (default 20, max 100)"`
}

// HistoryResponse lists recent runs.
type HistoryResponse struct {
	Runs []store.RunSummary `json:"runs"`
}
