package jobserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_jobplan/internal/engine/store"
)

// HistoryStore lists past runs. *store.SQLiteStore satisfies it.
type HistoryStore interface {
	RecentRuns(ctx context.Context, limit int) ([]store.RunSummary, error)
}

// RegisterTools registers career_job_search, and career_search_history when
// history is non-nil.
func RegisterTools(server *mcp.Server, orch *Orchestrator, history HistoryStore) int {
	registerCareerJobSearch(server, orch)
	if history == nil {
		return 1
	}
	registerSearchHistory(server, history)
	return 2
}

func registerCareerJobSearch(server *mcp.Server, orch *Orchestrator) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "career_job_search",
		Description: "Search job boards (USAJobs, JSearch, Adzuna) for 1-5 career paths at once within a fixed per-run budget. Splits total_jobs_requested across paths, plans provider and query per path, moves unmet quota to paths with more results, and removes duplicate URLs across paths. Jobs with source \"mock\" are placeholders used when no provider could serve a path.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input SearchRequest) (*mcp.CallToolResult, *SearchResponse, error) {
		if len(input.CareerPaths) == 0 {
			return nil, nil, errors.New("career_paths is required")
		}
		out, err := orch.Search(ctx, input)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	})
}

func registerSearchHistory(server *mcp.Server, history HistoryStore) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "career_search_history",
		Description: "List recent career_job_search runs, newest first, with plan source, jobs found and money spent.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input HistoryRequest) (*mcp.CallToolResult, *HistoryResponse, error) {
		runs, err := history.RecentRuns(ctx, input.Limit)
		if err != nil {
			return nil, nil, err
		}
		return nil, &HistoryResponse{Runs: runs}, nil
	})
}
