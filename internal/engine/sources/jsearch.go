package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/anatolykoptev/go_jobplan/internal/engine"
)

// JSearch searches the RapidAPI JSearch aggregator. It is the paid provider.
type JSearch struct {
	*apiClient
	apiKey string
	host   string
}

// NewJSearch returns a client, or ErrMissingCredentials without an API key.
func NewJSearch(cfg engine.Config, opts ...Option) (*JSearch, error) {
	if cfg.JSearchAPIKey == "" {
		return nil, fmt.Errorf("jsearch: %w", ErrMissingCredentials)
	}
	host := cfg.JSearchAPIHost
	if host == "" {
		host = "jsearch.p.rapidapi.com"
	}
	return &JSearch{
		apiClient: newAPIClient(engine.ProviderJSearch, "https://"+host+"/search", cfg, opts),
		apiKey:    cfg.JSearchAPIKey,
		host:      host,
	}, nil
}

type jsearchResponse struct {
	Data []jsearchJob `json:"data"`
}

type jsearchJob struct {
	JobTitle       string   `json:"job_title"`
	EmployerName   string   `json:"employer_name"`
	JobCity        string   `json:"job_city"`
	JobState       string   `json:"job_state"`
	JobDescription string   `json:"job_description"`
	JobApplyLink   string   `json:"job_apply_link"`
	JobMinSalary   *float64 `json:"job_min_salary"`
	JobMaxSalary   *float64 `json:"job_max_salary"`
	SalaryCurrency string   `json:"job_salary_currency"`
	PostedAtUTC    string   `json:"job_posted_at_datetime_utc"`
}

// jsearchDatePosted maps a day window onto JSearch's date_posted vocabulary.
func jsearchDatePosted(maxAgeDays int) string {
	switch {
	case maxAgeDays <= 0:
		return "all"
	case maxAgeDays <= 1:
		return "today"
	case maxAgeDays <= 3:
		return "3days"
	case maxAgeDays <= 7:
		return "week"
	case maxAgeDays <= 30:
		return "month"
	default:
		return "all"
	}
}

// Search implements Client.
func (c *JSearch) Search(ctx context.Context, keywords, location string, limit, maxAgeDays int) ([]engine.CanonicalJob, error) {
	q, err := plainQuery(keywords, jsearchMaxTerms, SimplifyRoleTechQuery)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("query", q)
	params.Set("page", "1")
	params.Set("num_pages", "1")
	params.Set("date_posted", jsearchDatePosted(maxAgeDays))
	if location != "" {
		params.Set("location", location)
	}

	headers := http.Header{}
	headers.Set("X-RapidAPI-Key", c.apiKey)
	headers.Set("X-RapidAPI-Host", c.host)

	var data jsearchResponse
	if err := c.getJSON(ctx, c.baseURL, params, headers, &data); err != nil {
		return nil, err
	}

	jobs := make([]engine.CanonicalJob, 0, min(len(data.Data), max(limit, 0)))
	for _, j := range data.Data {
		if len(jobs) >= limit {
			break
		}
		jobs = append(jobs, normalizeJSearch(j))
	}
	return jobs, nil
}

func normalizeJSearch(j jsearchJob) engine.CanonicalJob {
	var lo, hi float64
	if j.JobMinSalary != nil {
		lo = *j.JobMinSalary
	}
	if j.JobMaxSalary != nil {
		hi = *j.JobMaxSalary
	}
	return engine.CanonicalJob{
		Title:       j.JobTitle,
		Company:     j.EmployerName,
		Location:    joinLocation(j.JobCity, j.JobState),
		Description: engine.CleanDescription(j.JobDescription),
		URL:         strings.TrimSpace(j.JobApplyLink),
		Source:      string(engine.ProviderJSearch),
		SalaryRange: FormatSalary(lo, hi, j.SalaryCurrency),
		PostedDate:  FormatPostedDate(j.PostedAtUTC),
	}.WithPlaceholders()
}
