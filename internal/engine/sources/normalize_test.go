package sources

import "testing"

func TestSimplifyQuery(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		maxTerms int
		want     string
	}{
		{"boolean and quotes", `"Software Engineer" AND (python OR golang)`, 4, "Software Engineer python golang"},
		{"lowercase operators", `python and ml or ai`, 4, "python"},
		{"short words dropped", "Go is ok for AI apps", 5, "for apps"},
		{"cap", "one two three four five six", 3, "one two three"},
		{"no cap", "alpha beta", 0, "alpha beta"},
		{"empty", "  ", 3, ""},
		{"only short words", "UX UI", 3, "UX UI"},
		{"single short word", "QA", 3, "QA"},
		{"short words capped", "AI ML QA UX", 3, "AI ML QA"},
		{"operators only", `"" AND (OR)`, 3, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SimplifyQuery(tt.in, tt.maxTerms); got != tt.want {
				t.Errorf("SimplifyQuery(%q, %d) = %q, want %q", tt.in, tt.maxTerms, got, tt.want)
			}
		})
	}
}

func TestSearchable(t *testing.T) {
	for _, q := range []string{"QA", "Go", "Data Analyst"} {
		if !Searchable(q) {
			t.Errorf("Searchable(%q) = false", q)
		}
	}
	for _, q := range []string{"", "  ", `"()"`, "AND OR"} {
		if Searchable(q) {
			t.Errorf("Searchable(%q) = true", q)
		}
	}
}

func TestSimplifyRoleTechQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Senior Software Engineer AI/ML platform", "Engineer AI/ML"},
		{"python developer cloud architect java", "python developer cloud architect java"},
		{"registered nurse night shift", "registered nurse night shift"},
		{"AI ML", "AI ML"},
		{"Go", "Go"},
	}
	for _, tt := range tests {
		if got := SimplifyRoleTechQuery(tt.in, 5); got != tt.want {
			t.Errorf("SimplifyRoleTechQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSalary(t *testing.T) {
	tests := []struct {
		min, max float64
		currency string
		want     string
	}{
		{80000, 120000, "USD", "$80,000 - $120,000"},
		{80000, 0, "", "$80,000+"},
		{50000, 60000, "gbp", "GBP 50,000 - 60,000"},
		{0, 100000, "USD", ""},
		{-5, 10, "USD", ""},
	}
	for _, tt := range tests {
		if got := FormatSalary(tt.min, tt.max, tt.currency); got != tt.want {
			t.Errorf("FormatSalary(%v, %v, %q) = %q, want %q", tt.min, tt.max, tt.currency, got, tt.want)
		}
	}
}

func TestFormatPostedDate(t *testing.T) {
	tests := map[string]string{
		"2024-05-01T12:00:00.000Z": "2024-05-01",
		"2024-03-04":               "2024-03-04",
		"":                         "",
		"sometime last week":       "",
	}
	for in, want := range tests {
		if got := FormatPostedDate(in); got != want {
			t.Errorf("FormatPostedDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJSearchDatePosted(t *testing.T) {
	tests := map[int]string{0: "all", 1: "today", 2: "3days", 3: "3days", 7: "week", 14: "month", 30: "month", 45: "all"}
	for days, want := range tests {
		if got := jsearchDatePosted(days); got != want {
			t.Errorf("jsearchDatePosted(%d) = %q, want %q", days, got, want)
		}
	}
}

func TestAdzunaLocation(t *testing.T) {
	if got := adzunaLocation([]string{"US", "California", "San Francisco"}); got != "California, US" {
		t.Errorf("got %q", got)
	}
	if got := adzunaLocation(nil); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
