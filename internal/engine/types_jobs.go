package engine

import "strings"

// --- Query group types ---

// QueryGroup is one career path: a named search target with its own keywords.
type QueryGroup struct {
	ID       string   `json:"id" validate:"required"`
	Title    string   `json:"title" validate:"required"`
	Keywords []string `json:"keywords"`
}

// Key identifies the group in plans, allocations and responses.
func (g QueryGroup) Key() string {
	if g.ID != "" {
		return g.ID
	}
	return g.Title
}

// --- Canonical job ---

// Placeholders for fields a provider left empty.
const (
	PlaceholderTitle       = "Untitled position"
	PlaceholderCompany     = "Company not specified"
	PlaceholderLocation    = "Not specified"
	PlaceholderDescription = "No description provided"
	PlaceholderSalary      = "Not specified"
	PlaceholderPosted      = "Recently posted"
)

// SourceMock marks synthesized placeholder jobs.
const SourceMock = "mock"

// CanonicalJob is the normalized listing every provider maps into.
// URL is the only field allowed to be empty; it is the dedup identifier.
type CanonicalJob struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
	Source      string `json:"source"`
	SalaryRange string `json:"salary_range"`
	PostedDate  string `json:"posted_date"`
	GroupID     string `json:"group_id"`
	Refined     bool   `json:"refined"`
}

// WithPlaceholders returns j with every blank field replaced by its placeholder.
func (j CanonicalJob) WithPlaceholders() CanonicalJob {
	j.Title = orPlaceholder(j.Title, PlaceholderTitle)
	j.Company = orPlaceholder(j.Company, PlaceholderCompany)
	j.Location = orPlaceholder(j.Location, PlaceholderLocation)
	j.Description = orPlaceholder(j.Description, PlaceholderDescription)
	j.SalaryRange = orPlaceholder(j.SalaryRange, PlaceholderSalary)
	j.PostedDate = orPlaceholder(j.PostedDate, PlaceholderPosted)
	j.URL = strings.TrimSpace(j.URL)
	return j
}

func orPlaceholder(s, placeholder string) string {
	if s = strings.TrimSpace(s); s == "" {
		return placeholder
	}
	return s
}
