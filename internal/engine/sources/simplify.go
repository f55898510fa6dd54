package sources

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	quoteParenRe = regexp.MustCompile(`["()]`)
	boolOpRe     = regexp.MustCompile(`(?i)\b(AND|OR|NOT)\b`)
)

// Term caps per provider. Providers reject long or boolean queries with 400s.
const (
	usajobsMaxTerms = 4
	jsearchMaxTerms = 5
	adzunaMaxTerms  = 3
)

// queryTerms strips quoting, grouping and boolean operators and returns
// the remaining words longer than two characters, in order. When every word
// is that short ("QA", "UX UI") the words are returned unfiltered.
func queryTerms(q string) []string {
	q = quoteParenRe.ReplaceAllString(q, "")
	q = boolOpRe.ReplaceAllString(q, " ")
	words := strings.Fields(q)
	var out []string
	for _, w := range words {
		if len([]rune(w)) > 2 {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		return words
	}
	return out
}

// Searchable reports whether q keeps at least one term after simplification.
func Searchable(q string) bool {
	return len(queryTerms(q)) > 0
}

// plainQuery simplifies q with simplify and fails with ErrEmptyQuery when
// nothing is left to send.
func plainQuery(q string, maxTerms int, simplify func(string, int) string) (string, error) {
	out := simplify(q, maxTerms)
	if out == "" {
		return "", fmt.Errorf("%w: %q", ErrEmptyQuery, q)
	}
	return out, nil
}

// SimplifyQuery reduces a possibly compound query to at most maxTerms plain words.
func SimplifyQuery(q string, maxTerms int) string {
	terms := queryTerms(q)
	if maxTerms > 0 && len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}
	return strings.Join(terms, " ")
}

var (
	roleCues = []string{"engineer", "developer", "architect", "lead"}
	techCues = []string{"ai", "ml", "python", "java", "cloud"}
)

// SimplifyRoleTechQuery keeps only role and technology words, up to maxTerms.
// Queries with no such word fall back to SimplifyQuery.
func SimplifyRoleTechQuery(q string, maxTerms int) string {
	var kept []string
	for _, w := range queryTerms(q) {
		lw := strings.ToLower(w)
		if containsAny(lw, roleCues) || containsAny(lw, techCues) {
			kept = append(kept, w)
			if len(kept) >= maxTerms {
				break
			}
		}
	}
	if len(kept) == 0 {
		return SimplifyQuery(q, maxTerms)
	}
	return strings.Join(kept, " ")
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
