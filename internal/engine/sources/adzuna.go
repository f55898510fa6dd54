package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_jobplan/internal/engine"
)

const (
	adzunaMaxResults = 50
	adzunaCategory   = "it-jobs"
)

// Adzuna searches the Adzuna jobs API for one country.
type Adzuna struct {
	*apiClient
	appID  string
	appKey string
}

// NewAdzuna returns a client, or ErrMissingCredentials without an app id/key pair.
func NewAdzuna(cfg engine.Config, opts ...Option) (*Adzuna, error) {
	if cfg.AdzunaAppID == "" || cfg.AdzunaAppKey == "" {
		return nil, fmt.Errorf("adzuna: %w", ErrMissingCredentials)
	}
	country := strings.ToLower(cfg.AdzunaCountry)
	if country == "" {
		country = "gb"
	}
	base := "https://api.adzuna.com/v1/api/jobs/" + country + "/search/1"
	return &Adzuna{
		apiClient: newAPIClient(engine.ProviderAdzuna, base, cfg, opts),
		appID:     cfg.AdzunaAppID,
		appKey:    cfg.AdzunaAppKey,
	}, nil
}

type adzunaResponse struct {
	Results []adzunaJob `json:"results"`
}

type adzunaJob struct {
	Title   string `json:"title"`
	Company struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		Area []string `json:"area"`
	} `json:"location"`
	Description string  `json:"description"`
	RedirectURL string  `json:"redirect_url"`
	SalaryMin   float64 `json:"salary_min"`
	SalaryMax   float64 `json:"salary_max"`
	Created     string  `json:"created"`
}

// Search implements Client.
func (c *Adzuna) Search(ctx context.Context, keywords, location string, limit, maxAgeDays int) ([]engine.CanonicalJob, error) {
	q, err := plainQuery(keywords, adzunaMaxTerms, SimplifyQuery)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("app_id", c.appID)
	params.Set("app_key", c.appKey)
	params.Set("what", q)
	params.Set("results_per_page", strconv.Itoa(capLimit(limit, adzunaMaxResults)))
	params.Set("category", adzunaCategory)
	if location != "" {
		params.Set("where", location)
	}
	if maxAgeDays > 0 {
		params.Set("max_days_old", strconv.Itoa(maxAgeDays))
	}

	var data adzunaResponse
	if err := c.getJSON(ctx, c.baseURL, params, nil, &data); err != nil {
		return nil, err
	}

	jobs := make([]engine.CanonicalJob, 0, min(len(data.Results), max(limit, 0)))
	for _, j := range data.Results {
		if len(jobs) >= limit {
			break
		}
		jobs = append(jobs, normalizeAdzuna(j))
	}
	return jobs, nil
}

// adzunaLocation renders the area hierarchy (country first) as "area[1], area[0]".
func adzunaLocation(area []string) string {
	switch len(area) {
	case 0:
		return ""
	case 1:
		return area[0]
	default:
		return joinLocation(area[1], area[0])
	}
}

func normalizeAdzuna(j adzunaJob) engine.CanonicalJob {
	return engine.CanonicalJob{
		Title:       j.Title,
		Company:     j.Company.DisplayName,
		Location:    adzunaLocation(j.Location.Area),
		Description: engine.CleanDescription(j.Description),
		URL:         strings.TrimSpace(j.RedirectURL),
		Source:      string(engine.ProviderAdzuna),
		SalaryRange: FormatSalary(j.SalaryMin, j.SalaryMax, "USD"),
		PostedDate:  FormatPostedDate(j.Created),
	}.WithPlaceholders()
}
