// go_jobplan: budgeted multi-path job search MCP server.
//
// Exposes career_job_search (and career_search_history when SQLite history
// is enabled). Plans one search strategy per career path, executes the paths
// concurrently against USAJobs, JSearch and Adzuna within a per-run budget,
// redistributes unmet quota and deduplicates across paths.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_jobplan/internal/engine"
	"github.com/anatolykoptev/go_jobplan/internal/engine/distribute"
	"github.com/anatolykoptev/go_jobplan/internal/engine/executor"
	"github.com/anatolykoptev/go_jobplan/internal/engine/plan"
	"github.com/anatolykoptev/go_jobplan/internal/engine/sources"
	"github.com/anatolykoptev/go_jobplan/internal/engine/store"
	"github.com/anatolykoptev/go_jobplan/internal/jobserver"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	c := initEngine()
	mcpPort := env.Str("MCP_PORT", "8892")

	registry := sources.NewRegistry(c)
	defer registry.Close()

	var complete plan.CompleteFunc
	if engine.LLMAvailable() {
		complete = engine.CallLLM
	}
	planner := plan.New(complete, plan.NewHeuristicPlanner(c))

	sinks, history := initSinks()
	defer sinks.Close()
	defer engine.CloseCache()

	orch := jobserver.NewOrchestrator(jobserver.Deps{
		Planner:     planner,
		Executor:    executor.New(registry, c),
		Distributor: distribute.New(c.SaturationThreshold),
		Sink:        sinks,
		Providers:   registry,
		BudgetLimit: c.BudgetLimit,
	})

	slog.Info("starting go_jobplan",
		slog.String("port", mcpPort),
		slog.Any("providers", registry.Available()),
		slog.Bool("llm_planner", complete != nil),
		slog.Float64("budget_limit", c.BudgetLimit),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_jobplan",
		Version: version,
	}, nil)

	var hs jobserver.HistoryStore
	if history != nil {
		hs = history
	}
	n := jobserver.RegisterTools(server, orch, hs)
	slog.Info("tools registered", slog.Int("count", n))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_jobplan",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func initEngine() engine.Config {
	c := engine.DefaultConfig()

	c.LLMAPIKey = env.Str("LLM_API_KEY", "")
	c.LLMAPIBase = env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai")
	c.LLMModel = env.Str("LLM_MODEL", "gemini-2.5-flash")
	c.LLMTemperature = env.Float("LLM_TEMPERATURE", c.LLMTemperature)
	c.LLMMaxTokens = env.Int("LLM_MAX_TOKENS", c.LLMMaxTokens)

	c.USAJobsAPIKey = env.Str("USAJOBS_API_KEY", "")
	c.USAJobsUserAgent = env.Str("USAJOBS_USER_AGENT", "")
	c.JSearchAPIKey = env.Str("JSEARCH_API_KEY", "")
	c.JSearchAPIHost = env.Str("JSEARCH_API_HOST", c.JSearchAPIHost)
	c.AdzunaAppID = env.Str("ADZUNA_APP_ID", "")
	c.AdzunaAppKey = env.Str("ADZUNA_APP_KEY", "")
	c.AdzunaCountry = env.Str("ADZUNA_COUNTRY", c.AdzunaCountry)

	c.BudgetLimit = env.Float("BUDGET_LIMIT", c.BudgetLimit)
	c.ProviderTimeout = env.Duration("PROVIDER_TIMEOUT", c.ProviderTimeout)
	c.Retry.MaxRetries = env.Int("PROVIDER_MAX_RETRIES", c.Retry.MaxRetries)
	c.Retry.InitialWait = env.Duration("PROVIDER_RETRY_WAIT", c.Retry.InitialWait)
	c.SaturationThreshold = env.Float("SATURATION_THRESHOLD", c.SaturationThreshold)
	c.MaxSynonyms = env.Int("MAX_SYNONYMS", c.MaxSynonyms)
	c.MockJobCount = env.Int("MOCK_JOB_COUNT", c.MockJobCount)
	c.DefaultMaxAgeDays = env.Int("DEFAULT_MAX_AGE_DAYS", c.DefaultMaxAgeDays)
	c.CacheMaxEntries = env.Int("CACHE_MAX_ENTRIES", c.CacheMaxEntries)
	c.CacheCleanupInterval = env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second)

	if path := env.Str("PROVIDERS_FILE", ""); path != "" {
		ps, err := engine.LoadProviderSettings(path, c.Providers)
		if err != nil {
			slog.Warn("provider settings file ignored", slog.String("path", path), slog.Any("error", err))
		} else {
			c.Providers = ps
			slog.Info("provider settings loaded", slog.String("path", path))
		}
	}

	if c.LLMAPIKey != "" {
		c.LLMClient = llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
			llm.WithFallbackKeys(env.List("LLM_API_KEY_FALLBACKS", "")),
			llm.WithMaxTokens(c.LLMMaxTokens),
			llm.WithTemperature(c.LLMTemperature),
			llm.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
		)
	} else {
		slog.Info("LLM_API_KEY not set, using heuristic planner")
	}

	engine.Init(c)

	cacheTTL := env.Duration("CACHE_TTL", 15*time.Minute)
	engine.InitCache(env.Str("REDIS_URL", ""), cacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
	return c
}

// initSinks opens the optional run sinks. Failures disable that sink only.
func initSinks() (store.Multi, *store.SQLiteStore) {
	var (
		sinks   store.Multi
		history *store.SQLiteStore
	)
	if path := env.Str("SQLITE_PATH", ""); path != "" {
		s, err := store.OpenSQLite(path)
		if err != nil {
			slog.Warn("run history disabled", slog.Any("error", err))
		} else {
			sinks = append(sinks, s)
			history = s
			slog.Info("run history enabled", slog.String("path", path))
		}
	}
	if dsn := env.Str("DATABASE_URL", ""); dsn != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		pg, err := store.ConnectPostgres(ctx, dsn)
		if err != nil {
			slog.Warn("job store DB init failed", slog.Any("error", err))
		} else {
			sinks = append(sinks, pg)
		}
	}
	return sinks, history
}
