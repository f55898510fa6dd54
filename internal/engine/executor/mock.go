package executor

import (
	"fmt"
	"net/url"

	"github.com/anatolykoptev/go_jobplan/internal/engine"
)

type mockFlavor struct {
	company   string
	salary    string
	locations []string // cycled by position
}

var (
	defaultFlavor = mockFlavor{salary: "$80,000 - $150,000", locations: []string{"Remote"}}

	mockFlavors = map[engine.Provider]mockFlavor{
		engine.ProviderUSAJobs: {company: "U.S. Federal Government", salary: "$80,000 - $120,000", locations: []string{"Washington, DC"}},
		engine.ProviderJSearch: {salary: "$90,000 - $140,000", locations: []string{"San Francisco, CA", "Remote"}},
		engine.ProviderAdzuna:  {salary: "$85,000 - $130,000", locations: []string{"New York, NY", "Remote"}},
	}
)

func mockNote(reason string) string {
	switch reason {
	case ReasonBudget:
		return "The run budget was spent before this search."
	case ReasonExhausted:
		return "No provider returned results for this search."
	}
	return "Live results were not available for this search."
}

// MockJobs synthesizes n schema-complete placeholder jobs for group, styled
// after provider, with reason explaining the fallback. Every job has Source
// "mock" and a URL unique to the group.
func MockJobs(group engine.QueryGroup, provider engine.Provider, n int, reason string) []engine.CanonicalJob {
	flavor, ok := mockFlavors[provider]
	if !ok {
		flavor = defaultFlavor
	}
	prefix := "https://example.com/jobs/"
	if key := group.Key(); key != "" {
		prefix += url.PathEscape(key) + "/"
	}
	slug := engine.Slugify(group.Title)
	if slug == "" {
		slug = "job"
	}
	note := mockNote(reason)

	jobs := make([]engine.CanonicalJob, 0, max(n, 0))
	for i := 1; i <= n; i++ {
		company := flavor.company
		if company == "" {
			company = fmt.Sprintf("Company %d", i)
		}
		jobs = append(jobs, engine.CanonicalJob{
			Title:       fmt.Sprintf("%s Position %d", group.Title, i),
			Company:     company,
			Location:    flavor.locations[(i-1)%len(flavor.locations)],
			Description: fmt.Sprintf("Placeholder listing for %s. %s", group.Title, note),
			URL:         fmt.Sprintf("%s%s-%d", prefix, slug, i),
			Source:      engine.SourceMock,
			SalaryRange: flavor.salary,
			PostedDate:  engine.PlaceholderPosted,
			GroupID:     group.Key(),
		}.WithPlaceholders())
	}
	return jobs
}
