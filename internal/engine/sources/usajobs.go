package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/anatolykoptev/go_jobplan/internal/engine"
)

const (
	usajobsBaseURL    = "https://data.usajobs.gov/api/search"
	usajobsMaxResults = 25
	usajobsMaxDays    = 60
	usajobsDefaultOrg = "U.S. Federal Government"
)

// USAJobs searches the federal government jobs API.
type USAJobs struct {
	*apiClient
	apiKey    string
	userAgent string
}

// NewUSAJobs returns a client, or ErrMissingCredentials without an API key.
func NewUSAJobs(cfg engine.Config, opts ...Option) (*USAJobs, error) {
	if cfg.USAJobsAPIKey == "" {
		return nil, fmt.Errorf("usajobs: %w", ErrMissingCredentials)
	}
	ua := cfg.USAJobsUserAgent
	if ua == "" {
		ua = engine.UserAgentBot
	}
	return &USAJobs{
		apiClient: newAPIClient(engine.ProviderUSAJobs, usajobsBaseURL, cfg, opts),
		apiKey:    cfg.USAJobsAPIKey,
		userAgent: ua,
	}, nil
}

type usajobsResponse struct {
	SearchResult struct {
		SearchResultItems []struct {
			MatchedObjectDescriptor usajobsPosition `json:"MatchedObjectDescriptor"`
		} `json:"SearchResultItems"`
	} `json:"SearchResult"`
}

type usajobsPosition struct {
	PositionTitle    string `json:"PositionTitle"`
	OrganizationName string `json:"OrganizationName"`
	PositionURI      string `json:"PositionURI"`
	PositionLocation []struct {
		CityName  string `json:"CityName"`
		StateCode string `json:"StateCode"`
	} `json:"PositionLocation"`
	PositionRemuneration []struct {
		MinimumRange string `json:"MinimumRange"`
		MaximumRange string `json:"MaximumRange"`
	} `json:"PositionRemuneration"`
	PositionStartDate string `json:"PositionStartDate"`
	UserArea          struct {
		Details struct {
			JobSummary string `json:"JobSummary"`
		} `json:"Details"`
	} `json:"UserArea"`
}

// Search implements Client.
func (c *USAJobs) Search(ctx context.Context, keywords, location string, limit, maxAgeDays int) ([]engine.CanonicalJob, error) {
	q, err := plainQuery(keywords, usajobsMaxTerms, SimplifyQuery)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("Keyword", q)
	params.Set("ResultsPerPage", strconv.Itoa(capLimit(limit, usajobsMaxResults)))
	params.Set("Page", "1")
	if location != "" {
		params.Set("LocationName", location)
	}
	if maxAgeDays > 0 {
		params.Set("DatePosted", strconv.Itoa(min(max(maxAgeDays, 1), usajobsMaxDays)))
	}

	headers := http.Header{}
	headers.Set("Authorization-Key", c.apiKey)
	headers.Set("User-Agent", c.userAgent)

	var data usajobsResponse
	if err := c.getJSON(ctx, c.baseURL, params, headers, &data); err != nil {
		return nil, err
	}

	items := data.SearchResult.SearchResultItems
	jobs := make([]engine.CanonicalJob, 0, min(len(items), max(limit, 0)))
	for _, it := range items {
		if len(jobs) >= limit {
			break
		}
		jobs = append(jobs, normalizeUSAJobs(it.MatchedObjectDescriptor))
	}
	return jobs, nil
}

func normalizeUSAJobs(p usajobsPosition) engine.CanonicalJob {
	org := p.OrganizationName
	if org == "" {
		org = usajobsDefaultOrg
	}
	var loc string
	if len(p.PositionLocation) > 0 {
		loc = joinLocation(p.PositionLocation[0].CityName, p.PositionLocation[0].StateCode)
	}
	var salary string
	if len(p.PositionRemuneration) > 0 {
		r := p.PositionRemuneration[0]
		lo, hi := parseAmount(r.MinimumRange), parseAmount(r.MaximumRange)
		if lo > 0 && hi > 0 {
			salary = FormatSalary(lo, hi, "USD")
		}
	}
	return engine.CanonicalJob{
		Title:       p.PositionTitle,
		Company:     org,
		Location:    loc,
		Description: engine.CleanDescription(p.UserArea.Details.JobSummary),
		URL:         p.PositionURI,
		Source:      string(engine.ProviderUSAJobs),
		SalaryRange: salary,
		PostedDate:  FormatPostedDate(p.PositionStartDate),
	}.WithPlaceholders()
}
