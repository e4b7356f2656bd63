// Package analytics records privacy-first reader events: page and post views,
// searches and tag clicks. IPs are only ever stored as salted hashes.
package analytics

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Event names.
const (
	EventPageView        = "page_view"
	EventPostView        = "post_view"
	EventSearch          = "search"
	EventTagClick        = "tag_click"
	EventSearchInitiated = "search_initiated"
	EventReadProgress    = "read_progress"
)

// clientEvents are the names the collect endpoint accepts from browsers.
var clientEvents = map[string]bool{
	EventPageView:        true,
	EventSearchInitiated: true,
	EventReadProgress:    true,
}

// salt holds the per-installation random salt for IP hashing.
var salt struct {
	once  sync.Once
	value string
}

// InitSalt loads or generates a persistent salt for IP hashing.
// Must be called once at startup before any requests are served.
func InitSalt(ctx context.Context, store *Store) error {
	var initErr error
	salt.once.Do(func() {
		s, err := store.GetSetting(ctx, "hash_salt")
		if err != nil {
			initErr = fmt.Errorf("read hash salt: %w", err)
			return
		}
		if s == "" {
			b := make([]byte, 32)
			if _, err := rand.Read(b); err != nil {
				initErr = fmt.Errorf("generate salt: %w", err)
				return
			}
			s = hex.EncodeToString(b)
			if err := store.SetSetting(ctx, "hash_salt", s); err != nil {
				initErr = fmt.Errorf("store hash salt: %w", err)
				return
			}
		}
		salt.value = s
	})
	return initErr
}

// Event is one recorded occurrence. Props carries event-specific fields such
// as search_term or tag_id.
type Event struct {
	ID        int64             `json:"-"`
	Name      string            `json:"name"`
	VisitorID string            `json:"visitor_id"`
	IPHash    string            `json:"-"`
	Path      string            `json:"path"`
	Referrer  string            `json:"referrer"`
	Browser   string            `json:"browser"`
	OS        string            `json:"os"`
	Device    string            `json:"device"`
	Props     map[string]string `json:"props"`
	Timestamp time.Time         `json:"timestamp"`
}

// BotVisit is a page view by a crawler.
type BotVisit struct {
	ID        int64     `json:"-"`
	BotName   string    `json:"bot_name"`
	IPHash    string    `json:"-"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats holds aggregated analytics data for a period.
type Stats struct {
	Period         string          `json:"period"`
	UniqueVisitors int             `json:"unique_visitors"`
	PageViews      int             `json:"page_views"`
	PostViews      int             `json:"post_views"`
	TopPosts       []PageStat      `json:"top_posts"`
	TopSearches    []SearchStat    `json:"top_searches"`
	EmptySearches  []SearchStat    `json:"empty_searches"`
	TopTags        []DimensionStat `json:"top_tags"`
	Browsers       []DimensionStat `json:"browsers"`
	Devices        []DimensionStat `json:"devices"`
	Referrers      []DimensionStat `json:"referrers"`
	DailyViews     []DailyView     `json:"daily_views"`
	BotVisits      int             `json:"bot_visits"`
}

// PageStat counts views per path.
type PageStat struct {
	Path  string `json:"path"`
	Views int    `json:"views"`
}

// SearchStat counts a search term and its average result count.
type SearchStat struct {
	Term       string  `json:"term"`
	Count      int     `json:"count"`
	AvgResults float64 `json:"avg_results"`
}

// DimensionStat is one row of a breakdown (browser, device, tag).
type DimensionStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DailyView counts views per day.
type DailyView struct {
	Date  string `json:"date"`
	Views int    `json:"views"`
}

// HashIP creates a salted SHA-256 hash of an IP address.
func HashIP(ip string) string {
	h := sha256.New()
	h.Write([]byte(salt.value + ip))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// GenerateVisitorID creates a salted visitor ID from IP and User-Agent. It is
// used when the visitor has no session cookie.
func GenerateVisitorID(ip, userAgent string) string {
	h := sha256.New()
	h.Write([]byte(salt.value + ip + "|" + userAgent))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ParseUserAgent extracts browser, OS and device from a User-Agent string.
func ParseUserAgent(ua string) (browser, os, device string) {
	ua = strings.ToLower(ua)

	// More specific tokens first: Edge and Opera UAs also contain "chrome".
	switch {
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr/"):
		browser = "Opera"
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	default:
		browser = "Other"
	}

	// Android UAs contain "linux".
	switch {
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "android"):
		os = "Android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		os = "iOS"
	case strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os"):
		os = "macOS"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	default:
		os = "Other"
	}

	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		device = "Tablet"
	case strings.Contains(ua, "mobile"):
		device = "Mobile"
	default:
		device = "Desktop"
	}
	return
}

var knownBots = []struct{ token, name string }{
	{"googlebot", "Googlebot"},
	{"bingbot", "Bingbot"},
	{"duckduckbot", "DuckDuckBot"},
	{"yandex", "Yandex"},
	{"baidu", "Baidu"},
	{"facebookexternalhit", "Facebook"},
	{"twitterbot", "Twitterbot"},
	{"linkedinbot", "LinkedIn"},
	{"ahrefsbot", "Ahrefs"},
	{"semrushbot", "SEMrush"},
	{"slurp", "Yahoo Slurp"},
}

var genericBotTokens = []string{"bot", "crawler", "spider", "crawl", "scrape", "headless"}

// BotName returns the crawler name for ua, or "" for a regular browser.
func BotName(ua string) string {
	ua = strings.ToLower(ua)
	for _, b := range knownBots {
		if strings.Contains(ua, b.token) {
			return b.name
		}
	}
	for _, tok := range genericBotTokens {
		if strings.Contains(ua, tok) {
			return "Other Bot"
		}
	}
	return ""
}

// IsBot reports whether ua looks like a crawler.
func IsBot(ua string) bool {
	return BotName(ua) != ""
}

var referrerDomainRegex = regexp.MustCompile(`^https?://(?:www\.)?([^/:]+)`)

// CleanReferrer reduces a referrer URL to a display name or bare domain.
func CleanReferrer(ref string) string {
	if ref == "" {
		return "Direct"
	}
	lower := strings.ToLower(ref)
	for token, name := range map[string]string{
		"google.":     "Google",
		"bing.":       "Bing",
		"duckduckgo.": "DuckDuckGo",
	} {
		if strings.Contains(lower, token) {
			return name
		}
	}
	if m := referrerDomainRegex.FindStringSubmatch(lower); len(m) > 1 {
		return m[1]
	}
	return "Other"
}
