package engine

import (
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	LLMAPIKey      string
	LLMAPIBase     string
	LLMModel       string
	LLMTemperature float64
	LLMMaxTokens   int
	LLMClient      *llm.Client // nil = heuristic planning only

	USAJobsAPIKey    string
	USAJobsUserAgent string
	JSearchAPIKey    string
	JSearchAPIHost   string
	AdzunaAppID      string
	AdzunaAppKey     string
	AdzunaCountry    string

	BudgetLimit         float64       // currency units per run
	ProviderTimeout     time.Duration // per provider call, independent of run cancellation
	Retry               RetryConfig
	SaturationThreshold float64
	MaxSynonyms         int
	MockJobCount        int // mock jobs when an execution is given no quota
	DefaultMaxAgeDays   int
	Providers           ProviderSettings

	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	HTTPClient *http.Client
}

// DefaultConfig returns the defaults used when no environment overrides are set.
func DefaultConfig() Config {
	return Config{
		LLMTemperature:      0.2,
		LLMMaxTokens:        4096,
		JSearchAPIHost:      "jsearch.p.rapidapi.com",
		AdzunaCountry:       "gb",
		BudgetLimit:         DefaultBudgetLimit,
		ProviderTimeout:     30 * time.Second,
		Retry:               ProviderRetryConfig,
		SaturationThreshold: 0.9,
		MaxSynonyms:         2,
		MockJobCount:        10,
		DefaultMaxAgeDays:   7,
		Providers:           DefaultProviderSettings(),
		CacheMaxEntries:     1000,
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
}

var cfg = DefaultConfig()

// Init installs the process-wide configuration used by CallLLM.
func Init(c Config) {
	cfg = c
}
