package wpfront

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eringen/wpfront/listing"
)

// DefaultConfigFile is the optional YAML overrides file read by LoadConfig.
const DefaultConfigFile = "wpfront.yaml"

// SiteConfig holds all configuration for a wpfront site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "Blog")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags
	Author      string `yaml:"author"`      // Author name for JSON-LD

	Addr      string `yaml:"addr"`       // Listen address (default ":3000")
	StaticDir string `yaml:"static_dir"` // User-owned static assets (default "public")
	LogLevel  string `yaml:"log_level"`  // debug, info (default), warn, error, off

	WordPressURL    string        `yaml:"wordpress_url"`    // WORDPRESS_API_URL, e.g. https://example.com/wp-json/wp/v2
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"` // Per request (default 10s)
	UpstreamRPS     float64       `yaml:"upstream_rps"`     // Outbound request rate, 0 disables the limiter
	UpstreamBurst   int           `yaml:"upstream_burst"`

	Listing       listing.Options `yaml:"listing"`
	TagSampleSize int             `yaml:"tag_sample_size"` // Tags shown in the cloud (default 10)
	TrendingLimit int             `yaml:"trending_limit"`  // default 5
	RecentLimit   int             `yaml:"recent_limit"`    // default 8
	SiteDataTTL   time.Duration   `yaml:"site_data_ttl"`   // Sidebar cache TTL (default 5min)
	SuggestDelay  time.Duration   `yaml:"suggest_delay"`   // default 300ms

	SearchRPS   float64 `yaml:"search_rps"`   // Per-IP rate for search and suggestions (default 5)
	SearchBurst int     `yaml:"search_burst"` // default 10

	Thumbnails     bool     `yaml:"thumbnails"`      // Proxy featured images through /media/thumb/
	ThumbnailHosts []string `yaml:"thumbnail_hosts"` // Allowed image hosts (default: the WordPress host)

	AnalyticsEnabled       bool   `yaml:"analytics_enabled"`       // Enable analytics (default true)
	AnalyticsDatabasePath  string `yaml:"analytics_database_path"` // default "data/analytics.db"
	AnalyticsStatsToken    string `yaml:"-"`                       // bearer token for /api/analytics/stats
	AnalyticsRetentionDays int    `yaml:"analytics_retention_days"` // default 365

	SessionSecret string `yaml:"-"` // Cookie signing secret, random per process when empty
	CookieSecure  bool   `yaml:"cookie_secure"`
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimSuffix(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.UpstreamTimeout == 0 {
		c.UpstreamTimeout = 10 * time.Second
	}
	if c.UpstreamBurst <= 0 {
		c.UpstreamBurst = 1
	}
	if c.TagSampleSize <= 0 {
		c.TagSampleSize = listing.DefaultSampleSize
	}
	if c.TrendingLimit <= 0 {
		c.TrendingLimit = 5
	}
	if c.RecentLimit <= 0 {
		c.RecentLimit = 8
	}
	if c.SiteDataTTL == 0 {
		c.SiteDataTTL = 5 * time.Minute
	}
	if c.SuggestDelay == 0 {
		c.SuggestDelay = listing.DefaultSuggestDelay
	}
	if c.SearchRPS <= 0 {
		c.SearchRPS = 5
	}
	if c.SearchBurst <= 0 {
		c.SearchBurst = 10
	}
	if c.AnalyticsDatabasePath == "" {
		c.AnalyticsDatabasePath = "data/analytics.db"
	}
	if c.AnalyticsRetentionDays <= 0 {
		c.AnalyticsRetentionDays = 365
	}
	if len(c.ThumbnailHosts) == 0 {
		if u, err := url.Parse(c.WordPressURL); err == nil && u.Hostname() != "" {
			c.ThumbnailHosts = []string{u.Hostname()}
		}
	}
	if c.Listing.PerPage <= 0 {
		c.Listing.PerPage = listing.DefaultPerPage
	}
}

// LoadConfig builds a SiteConfig from, in increasing precedence, built-in
// defaults, the YAML file at path (skipped when missing), a .env file and
// the process environment. An empty path means DefaultConfigFile.
func LoadConfig(path string) (SiteConfig, error) {
	_ = godotenv.Load(".env")

	cfg := SiteConfig{AnalyticsEnabled: true}
	if path == "" {
		path = DefaultConfigFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return SiteConfig{}, fmt.Errorf("wpfront: parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return SiteConfig{}, fmt.Errorf("wpfront: read %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return SiteConfig{}, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func applyEnv(cfg *SiteConfig) error {
	cfg.Name = EnvOr("SITE_NAME", cfg.Name)
	cfg.URL = EnvOr("SITE_URL", cfg.URL)
	cfg.Description = EnvOr("SITE_DESCRIPTION", cfg.Description)
	cfg.Author = EnvOr("SITE_AUTHOR", cfg.Author)
	cfg.Addr = EnvOr("ADDR", cfg.Addr)
	cfg.StaticDir = EnvOr("STATIC_DIR", cfg.StaticDir)
	cfg.LogLevel = EnvOr("LOG_LEVEL", cfg.LogLevel)
	cfg.WordPressURL = EnvOr("WORDPRESS_API_URL", cfg.WordPressURL)
	cfg.AnalyticsDatabasePath = EnvOr("ANALYTICS_DATABASE_PATH", cfg.AnalyticsDatabasePath)
	cfg.AnalyticsStatsToken = EnvOr("ANALYTICS_STATS_TOKEN", cfg.AnalyticsStatsToken)
	cfg.SessionSecret = EnvOr("SESSION_SECRET", cfg.SessionSecret)

	var err error
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" && err == nil {
			b, perr := strconv.ParseBool(v)
			if perr != nil {
				err = fmt.Errorf("wpfront: %s: %w", key, perr)
				return
			}
			*dst = b
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" && err == nil {
			d, perr := time.ParseDuration(v)
			if perr != nil {
				err = fmt.Errorf("wpfront: %s: %w", key, perr)
				return
			}
			*dst = d
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" && err == nil {
			n, perr := strconv.Atoi(v)
			if perr != nil {
				err = fmt.Errorf("wpfront: %s: %w", key, perr)
				return
			}
			*dst = n
		}
	}
	setFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" && err == nil {
			f, perr := strconv.ParseFloat(v, 64)
			if perr != nil {
				err = fmt.Errorf("wpfront: %s: %w", key, perr)
				return
			}
			*dst = f
		}
	}
	setBool("ANALYTICS_ENABLED", &cfg.AnalyticsEnabled)
	setBool("COOKIE_SECURE", &cfg.CookieSecure)
	setBool("THUMBNAILS_ENABLED", &cfg.Thumbnails)
	setBool("SHOW_HERO_BANNER", &cfg.Listing.ShowHeroBanner)
	setDuration("UPSTREAM_TIMEOUT", &cfg.UpstreamTimeout)
	setDuration("SITE_DATA_TTL", &cfg.SiteDataTTL)
	setInt("POSTS_PER_PAGE", &cfg.Listing.PerPage)
	setFloat("UPSTREAM_RPS", &cfg.UpstreamRPS)
	return err
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithViews replaces some or all of the built-in templates. Nil fields keep
// the defaults.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v.merge(a.Views)
	}
}

