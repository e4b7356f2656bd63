package views

import (
	"html"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/eringen/wpfront/wordpress"
)

const (
	cardSummaryLen  = 150
	defaultTruncate = 100
	excerptLen      = 160
	wordsPerMinute  = 200
)

var (
	policyOnce    sync.Once
	textPolicy    *bluemonday.Policy
	contentPolicy *bluemonday.Policy
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()

		// Post bodies keep ordinary markup plus the responsive video embeds.
		p := bluemonday.UGCPolicy()
		p.AllowElements("iframe", "figure", "figcaption")
		p.AllowAttrs("src", "width", "height", "title", "allow", "allowfullscreen", "frameborder", "loading").OnElements("iframe")
		p.AllowAttrs("class").Globally()
		p.AddTargetBlankToFullyQualifiedLinks(true)
		contentPolicy = p
	})
	return textPolicy, contentPolicy
}

// PlainText removes all markup and decodes entities.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	strict, _ := policies()
	text := html.UnescapeString(strict.Sanitize(s))
	return strings.Join(strings.Fields(text), " ")
}

// StripHTML returns the first 150 characters of the text of s followed by
// an ellipsis. It is used for card summaries.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	return firstRunes(PlainText(s), cardSummaryLen) + "..."
}

// SanitizeContent makes upstream post HTML safe to render.
func SanitizeContent(s string) string {
	_, p := policies()
	return p.Sanitize(s)
}

// FormatDate renders a WordPress timestamp as "January 2, 2006". Unparseable
// input is returned unchanged.
func FormatDate(s string) string {
	if s == "" {
		return ""
	}
	for _, layout := range []string{"2006-01-02T15:04:05", time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("January 2, 2006")
		}
	}
	return s
}

// ReadTime estimates minutes to read content at 200 words per minute.
func ReadTime(content string) int {
	words := len(strings.Fields(PlainText(content)))
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) / wordsPerMinute))
}

// Truncate shortens text to max characters plus an ellipsis. max <= 0 means 100.
func Truncate(text string, max int) string {
	if max <= 0 {
		max = defaultTruncate
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	return strings.TrimSpace(firstRunes(text, max)) + "..."
}

// Excerpt returns a 160 character plain-text summary of content.
func Excerpt(content string) string {
	return Truncate(PlainText(content), excerptLen)
}

// FormatAuthorName returns the author's name or the default placeholder.
func FormatAuthorName(a wordpress.Author) string {
	if strings.TrimSpace(a.Name) == "" {
		return wordpress.DefaultAuthorName
	}
	return a.Name
}

// IsExternalURL reports whether u is an absolute http(s) URL.
func IsExternalURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

func firstRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
