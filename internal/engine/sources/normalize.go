package sources

import (
	"math"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/dustin/go-humanize"
)

// FormatSalary renders a min/max pair as "$80,000 - $120,000", "$80,000+"
// or "" when no positive minimum is known. Non-USD currencies are prefixed
// with their code instead of "$".
func FormatSalary(minVal, maxVal float64, currency string) string {
	if minVal <= 0 || math.IsNaN(minVal) {
		return ""
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	usd := currency == "" || currency == "USD"

	amount := func(v float64) string {
		s := humanize.Comma(int64(v))
		if usd {
			return "$" + s
		}
		return s
	}
	var out string
	if maxVal > 0 {
		out = amount(minVal) + " - " + amount(maxVal)
	} else {
		out = amount(minVal) + "+"
	}
	if !usd {
		out = currency + " " + out
	}
	return out
}

// parseAmount reads a salary figure that providers send as a string.
func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatPostedDate converts a provider timestamp into an ISO date, or ""
// when it cannot be parsed.
func FormatPostedDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// joinLocation builds "City, State" from whichever parts are present.
func joinLocation(city, state string) string {
	city, state = strings.TrimSpace(city), strings.TrimSpace(state)
	switch {
	case city != "" && state != "":
		return city + ", " + state
	case city != "":
		return city
	default:
		return state
	}
}
