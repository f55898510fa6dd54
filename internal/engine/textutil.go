package engine

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/anatolykoptev/go-kit/strutil"
)

// User-Agent used when a provider does not require its own.
const UserAgentBot = "go_jobplan/1.0"

// MaxDescriptionRunes caps normalized job descriptions.
const MaxDescriptionRunes = 4000

var (
	htmlTagRe   = regexp.MustCompile(`<[^>]+>`)
	looksHTMLRe = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	spaceRunRe  = regexp.MustCompile(`[ \t]+`)
	blankRunRe  = regexp.MustCompile(`\n{3,}`)
)

// CleanHTML strips HTML tags and trims whitespace.
func CleanHTML(s string) string {
	return strings.TrimSpace(htmlTagRe.ReplaceAllString(s, ""))
}

// TruncateRunes caps s at limit runes, appending suffix if truncated.
// Pass suffix="" for no suffix. Safe for UTF-8.
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}

// CleanDescription turns a provider description (plain text or HTML fragment)
// into trimmed markdown-ish text capped at MaxDescriptionRunes.
func CleanDescription(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if looksHTMLRe.MatchString(s) {
		if md, err := htmltomarkdown.ConvertString(s); err == nil {
			s = md
		} else {
			s = CleanHTML(s)
		}
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return TruncateRunes(strings.TrimSpace(s), MaxDescriptionRunes, "...")
}

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
		} else {
			dash = true
		}
	}
	return b.String()
}
