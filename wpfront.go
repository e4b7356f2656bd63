// Package wpfront is a server-rendered blog frontend for a headless WordPress
// site, built with Go, Echo, and templ. It renders the post listing with
// search, tag filters and pagination, single posts, RSS, a sitemap and
// privacy-first analytics.
//
// Templates are plain templ components. The built-in ones live in the views
// package and can be replaced piecemeal through ViewFuncs.
package wpfront

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"golang.org/x/time/rate"

	"github.com/eringen/wpfront/analytics"
	"github.com/eringen/wpfront/listing"
	"github.com/eringen/wpfront/views"
	"github.com/eringen/wpfront/wordpress"
)

// ViewFuncs holds the templ components the handlers render. This is the
// inversion-of-control mechanism that lets sites customize any page.
type ViewFuncs struct {
	Home        func(d views.HomeData) templ.Component
	BlogSection func(d views.HomeData) templ.Component
	Post        func(d views.PostData) templ.Component
	Page        func(d views.PageData) templ.Component
	SearchPanel func(d views.SearchPanelData) templ.Component
	Suggestions func(d views.SuggestionsData) templ.Component
	NotFound    func(site views.SiteConfig) templ.Component
	ServerError func(site views.SiteConfig) templ.Component
}

// DefaultViews returns the built-in templates.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:        views.Home,
		BlogSection: views.BlogSection,
		Post:        views.Post,
		Page:        views.Page,
		SearchPanel: views.SearchPanel,
		Suggestions: views.Suggestions,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
	}
}

func (v ViewFuncs) merge(def ViewFuncs) ViewFuncs {
	if v.Home == nil {
		v.Home = def.Home
	}
	if v.BlogSection == nil {
		v.BlogSection = def.BlogSection
	}
	if v.Post == nil {
		v.Post = def.Post
	}
	if v.Page == nil {
		v.Page = def.Page
	}
	if v.SearchPanel == nil {
		v.SearchPanel = def.SearchPanel
	}
	if v.Suggestions == nil {
		v.Suggestions = def.Suggestions
	}
	if v.NotFound == nil {
		v.NotFound = def.NotFound
	}
	if v.ServerError == nil {
		v.ServerError = def.ServerError
	}
	return v
}

// App is the central wpfront application. It wires together the WordPress
// client, the site data cache, handlers, middleware and templates.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	WordPress *wordpress.Client
	SiteData  *SiteDataCache
	Views     ViewFuncs
	Recorder  *analytics.Recorder

	analyticsStore   *analytics.Store
	analyticsHandler *analytics.Handler
	stopCleanup      func()
	searchLimiter    *IPLimiter
	suggesters       *suggesterPool
	thumbs           *thumbnailer
	privacyHTML      string
	sessionSecret    []byte
	customRoutes     []func(*App)
	ready            bool
}

// New creates a wpfront App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(parseLogLevel(cfg.LogLevel))

	var limiter *rate.Limiter
	if cfg.UpstreamRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.UpstreamRPS), cfg.UpstreamBurst)
	}
	wp := wordpress.New(wordpress.Config{
		BaseURL: cfg.WordPressURL,
		Timeout: cfg.UpstreamTimeout,
		Limiter: limiter,
		Logger:  e.Logger,
	})

	a := &App{
		Config:    cfg,
		Echo:      e,
		WordPress: wp,
		SiteData:  NewSiteDataCache(wp, cfg.SiteDataTTL, cfg.TrendingLimit, cfg.RecentLimit),
		Views:     DefaultViews(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Setup validates the configuration, opens the analytics store and registers
// middleware and routes. Start calls it; tests call it directly and drive
// a.Echo with httptest.
func (a *App) Setup() error {
	if a.ready {
		return nil
	}
	if !a.WordPress.Configured() {
		return fmt.Errorf("wpfront: WORDPRESS_API_URL: %w", wordpress.ErrNotConfigured)
	}

	a.sessionSecret = []byte(a.Config.SessionSecret)
	if len(a.sessionSecret) == 0 {
		a.sessionSecret = make([]byte, 32)
		if _, err := rand.Read(a.sessionSecret); err != nil {
			return fmt.Errorf("wpfront: session secret: %w", err)
		}
		a.Echo.Logger.Warn("SESSION_SECRET is not set; visitor sessions will not survive a restart")
	}

	privacy, err := renderPrivacyPolicy()
	if err != nil {
		return fmt.Errorf("wpfront: privacy policy: %w", err)
	}
	a.privacyHTML = privacy

	if a.Config.AnalyticsEnabled {
		store, err := analytics.NewStore(a.Config.AnalyticsDatabasePath)
		if err != nil {
			return fmt.Errorf("wpfront: init analytics: %w", err)
		}
		a.analyticsStore = store
		if err := analytics.InitSalt(context.Background(), store); err != nil {
			return fmt.Errorf("wpfront: init analytics salt: %w", err)
		}
		a.Recorder = analytics.NewRecorder(store, a.Echo.Logger)
		a.stopCleanup = store.StartCleanupScheduler(a.Config.AnalyticsRetentionDays, 24*time.Hour, a.Echo.Logger)
		a.analyticsHandler = analytics.NewHandler(store, a.Recorder, sessionVisitorID)
	}

	a.searchLimiter = NewIPLimiter(a.Config.SearchRPS, a.Config.SearchBurst, 10*time.Minute)
	a.suggesters = newSuggesterPool(a.suggestLookup, a.Config.SuggestDelay, 10*time.Minute)
	a.thumbs = newThumbnailer(a.Config.ThumbnailHosts, a.Config.UpstreamTimeout)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

// Start initializes the app and starts the server. It blocks until the
// server stops.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	return errors.Join(err, a.Close())
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Embedded assets first, then the site's own static files.
	e.GET("/public/analytics.js", a.handleEmbeddedAsset("embedded/analytics.js", "application/javascript"))
	e.GET("/public/narration.js", a.handleEmbeddedAsset("embedded/narration.js", "application/javascript"))
	e.Static("/public", a.Config.StaticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/privacy-policy/", a.handlePrivacy)

	e.GET("/", a.handleHome)
	e.GET("/blog", handleBlogRedirect)
	e.GET("/post/:slug/", a.handlePost)
	e.GET("/media/thumb/", a.handleThumb)

	// Listing transitions.
	e.GET("/filter/tag/:id/", a.handleToggleTag)
	e.GET("/filter/clear/", a.handleClearTags)
	e.GET("/page/:n/", a.handlePage)

	search := e.Group("/search", a.searchLimiter.Middleware())
	search.POST("/", a.handleSearch)
	search.GET("/open/", a.handleSearchOpen)
	search.GET("/suggest/", a.handleSuggest)

	if a.analyticsHandler != nil {
		a.analyticsHandler.RegisterRoutes(e, a.Config.AnalyticsStatsToken)
	}
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.searchLimiter != nil {
		a.searchLimiter.Stop()
	}
	if a.suggesters != nil {
		a.suggesters.Stop()
	}
	if a.analyticsHandler != nil {
		a.analyticsHandler.Close()
	}
	if a.stopCleanup != nil {
		a.stopCleanup()
	}
	if a.analyticsStore != nil {
		return a.analyticsStore.Close()
	}
	return nil
}

// viewSite is the subset of the configuration templates see.
func (a *App) viewSite() views.SiteConfig {
	return views.SiteConfig{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Author:      a.Config.Author,
		Thumbnails:  a.Config.Thumbnails,
		Analytics:   a.analyticsHandler != nil,
	}
}

func (a *App) newController(q listing.Query, hooks listing.Hooks) *listing.Controller {
	return listing.NewController(a.WordPress, a.Config.Listing,
		listing.WithQuery(q),
		listing.WithHooks(hooks),
	)
}

func parseLogLevel(s string) log.Lvl {
	switch strings.ToLower(s) {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
