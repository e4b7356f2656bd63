package wpfront

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/eringen/wpfront/listing"
	"github.com/eringen/wpfront/views"
	"github.com/eringen/wpfront/wordpress"
)

const (
	postRecentLimit  = 5
	relatedFetchSize = 4
	minSuggestRunes  = 2
)

// listingRun performs one controller transition.
type listingRun func(ctx context.Context, ctrl *listing.Controller) (listing.State, error)

func (a *App) requestQuery(c echo.Context) listing.Query {
	values := c.QueryParams()
	if c.Request().Method == http.MethodPost {
		if form, err := c.FormParams(); err == nil {
			values = form
		}
	}
	return listing.ParseQuery(values, a.Config.Listing.PerPage)
}

// homeData runs the listing transition and loads the site data in parallel.
// Each source settles on its own so one failure only empties its section.
func (a *App) homeData(c echo.Context, ctrl *listing.Controller, run listingRun) views.HomeData {
	ctx := c.Request().Context()
	var (
		wg   sync.WaitGroup
		st   listing.State
		site SiteData
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		st, err = run(ctx, ctrl)
		if err != nil && !errors.Is(err, listing.ErrStale) {
			c.Logger().Errorf("listing: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		site, err = a.SiteData.Load(ctx)
		if err != nil {
			c.Logger().Warnf("site data: %v", err)
		}
	}()
	wg.Wait()

	meta := views.PageMeta{
		Description: a.Config.Description,
		URL:         a.Config.URL + st.Query.URL("/"),
		OGType:      "website",
		JSONLD:      views.WebsiteJsonLD(a.viewSite()),
		NoIndex:     st.Query.Search != "",
	}
	if st.Query.Page > 1 {
		meta.Title = "Page " + strconv.Itoa(st.Query.Page)
	}
	return views.HomeData{
		Site:     a.viewSite(),
		Meta:     meta,
		State:    st,
		Options:  ctrl.Options(),
		Tags:     listing.SeededSample(site.Tags, a.Config.TagSampleSize, tagSeed(c)),
		AllTags:  site.Tags,
		Trending: site.Trending,
		Recent:   site.Recent,
		CSRF:     CsrfToken(c),
	}
}

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	ctrl := a.newController(a.requestQuery(c), a.Recorder.Hooks(ctx))
	d := a.homeData(c, ctrl, func(ctx context.Context, ctrl *listing.Controller) (listing.State, error) {
		return ctrl.Load(ctx)
	})
	if IsHTMX(c) && c.QueryParam("partial") == "blog" {
		return RenderPartial(c, d.State.Query.URL("/"), a.Views.BlogSection(d))
	}
	a.Recorder.PageView(ctx)
	return Render(c, a.Views.Home(d))
}

// transition applies one listing transition. htmx gets the blog section and
// the new URL; plain requests are redirected to the canonical listing URL.
func (a *App) transition(c echo.Context, hooks listing.Hooks, run listingRun) error {
	ctrl := a.newController(a.requestQuery(c), hooks)
	if !IsHTMX(c) {
		st, err := run(c.Request().Context(), ctrl)
		if err != nil {
			c.Logger().Errorf("listing: %v", err)
		}
		return c.Redirect(http.StatusSeeOther, st.Query.URL("/"))
	}
	d := a.homeData(c, ctrl, run)
	return RenderPartial(c, d.State.Query.URL("/"), a.Views.BlogSection(d))
}

func (a *App) handleToggleTag(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.ErrNotFound
	}
	ctx := c.Request().Context()
	tag := a.lookupTag(ctx, id)
	return a.transition(c, a.Recorder.Hooks(ctx), func(ctx context.Context, ctrl *listing.Controller) (listing.State, error) {
		return ctrl.ToggleTag(ctx, tag)
	})
}

func (a *App) handleClearTags(c echo.Context) error {
	return a.transition(c, a.Recorder.Hooks(c.Request().Context()), func(ctx context.Context, ctrl *listing.Controller) (listing.State, error) {
		return ctrl.ClearTagFilters(ctx)
	})
}

func (a *App) handlePage(c echo.Context) error {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 1 {
		return echo.ErrNotFound
	}
	hooks := a.Recorder.Hooks(c.Request().Context())
	hooks.ScrolledToTop = func() {
		c.Response().Header().Set("HX-Trigger", "listing:scrolltop")
	}
	return a.transition(c, hooks, func(ctx context.Context, ctrl *listing.Controller) (listing.State, error) {
		st, err := ctrl.GoToPage(ctx, n)
		if n > 1 && pastLastPage(err) {
			// Learn the page count from the first page, then clamp.
			if _, err := ctrl.GoToPage(ctx, 1); err != nil {
				return ctrl.State(), err
			}
			return ctrl.GoToPage(ctx, n)
		}
		return st, err
	})
}

// pastLastPage reports whether WordPress rejected the page number, which it
// does with 400 for pages beyond the last one.
func pastLastPage(err error) bool {
	var ue *wordpress.UpstreamError
	return errors.As(err, &ue) && ue.Status == http.StatusBadRequest
}

func (a *App) handleSearch(c echo.Context) error {
	text := strings.TrimSpace(c.FormValue("search"))
	return a.transition(c, a.Recorder.Hooks(c.Request().Context()), func(ctx context.Context, ctrl *listing.Controller) (listing.State, error) {
		return ctrl.Search(ctx, text)
	})
}

func (a *App) handleSearchOpen(c echo.Context) error {
	ctrl := a.newController(a.requestQuery(c), listing.Hooks{})
	st := ctrl.OpenSearch()
	if !IsHTMX(c) {
		return c.Redirect(http.StatusSeeOther, st.Query.URL("/"))
	}
	return Render(c, a.Views.SearchPanel(views.SearchPanelData{Query: st.Query, CSRF: CsrfToken(c)}))
}

func (a *App) handleSuggest(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		q = c.QueryParam("search")
	}
	q = strings.TrimSpace(q)

	visitor := sessionVisitorID(c)
	if visitor == "" {
		visitor = c.RealIP()
	}
	posts, err := a.suggesters.get(visitor).Suggest(c.Request().Context(), q)
	switch {
	case errors.Is(err, listing.ErrSuperseded), errors.Is(err, listing.ErrSuggesterClosed),
		errors.Is(err, context.Canceled):
		return c.NoContent(http.StatusNoContent)
	case err != nil:
		c.Logger().Warnf("suggest %q: %v", q, err)
		return c.NoContent(http.StatusNoContent)
	}
	if utf8.RuneCountInString(q) < minSuggestRunes {
		q = ""
	}
	return Render(c, a.Views.Suggestions(views.SuggestionsData{Query: q, Posts: posts, Site: a.viewSite()}))
}

// lookupTag resolves a tag id to the full tag for analytics. Unknown ids keep
// only the id.
func (a *App) lookupTag(ctx context.Context, id int) wordpress.Tag {
	tags, _ := a.SiteData.Tags(ctx)
	for _, t := range tags {
		if t.ID == id {
			return t
		}
	}
	return wordpress.Tag{ID: id}
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")

	var (
		wg      sync.WaitGroup
		post    wordpress.Post
		found   bool
		postErr error
		recent  []wordpress.Post
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		post, found, postErr = a.WordPress.PostBySlug(ctx, slug)
	}()
	go func() {
		defer wg.Done()
		var err error
		recent, err = a.SiteData.Recent(ctx)
		if err != nil {
			c.Logger().Warnf("recent posts: %v", err)
		}
	}()
	wg.Wait()

	if postErr != nil {
		return postErr
	}
	if !found {
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.viewSite()))
	}
	if len(recent) > postRecentLimit {
		recent = recent[:postRecentLimit]
	}

	related := a.relatedPosts(c, post)
	a.Recorder.PostView(ctx, post)

	site := a.viewSite()
	meta := views.PageMeta{
		Title:       views.PlainText(post.Title),
		Description: views.Excerpt(post.Excerpt),
		URL:         views.AbsPostURL(site, post.Slug),
		OGType:      "article",
		JSONLD:      views.BlogPostingJsonLD(site, post),
	}
	if views.IsExternalURL(post.FeaturedImage.URL) {
		meta.Image = post.FeaturedImage.URL
	}
	return Render(c, a.Views.Post(views.PostData{
		Site:     site,
		Meta:     meta,
		Post:     post,
		Related:  related,
		Recent:   recent,
		ReadTime: views.ReadTime(post.Content),
		CSRF:     CsrfToken(c),
	}))
}

// relatedPosts fetches a few posts carrying any of the post's tags.
func (a *App) relatedPosts(c echo.Context, post wordpress.Post) []wordpress.Post {
	if len(post.Tags) == 0 {
		return nil
	}
	ids := make([]int, len(post.Tags))
	for i, t := range post.Tags {
		ids[i] = t.ID
	}
	res, err := a.WordPress.ListPosts(c.Request().Context(), wordpress.ListQuery{
		Page:    1,
		PerPage: relatedFetchSize,
		Tags:    ids,
	})
	if err != nil {
		c.Logger().Warnf("related posts for %s: %v", post.Slug, err)
		return nil
	}
	return views.FilterRelatedPosts(post, res.Posts)
}

func (a *App) handlePrivacy(c echo.Context) error {
	site := a.viewSite()
	return Render(c, a.Views.Page(views.PageData{
		Site:  site,
		Meta:  views.PageMeta{Title: "Privacy Policy", URL: BuildURL(a.Config.URL, "privacy-policy")},
		Title: "Privacy Policy",
		HTML:  a.privacyHTML,
	}))
}

func handleBlogRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/")
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(filepath.Join(a.Config.StaticDir, "favicon.svg"))
}

// handleRobots serves robots.txt from the static directory when present and
// generates one otherwise.
func (a *App) handleRobots(c echo.Context) error {
	path := filepath.Join(a.Config.StaticDir, "robots.txt")
	if _, err := os.Stat(path); err == nil {
		return c.File(path)
	}
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /private/\n")
	b.WriteString("Disallow: /admin/\n")
	b.WriteString("Disallow: /api/\n")
	b.WriteString("\nSitemap: " + a.Config.URL + "/sitemap.xml\n")
	return c.String(http.StatusOK, b.String())
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.viewSite()))
		return
	}
	code := http.StatusInternalServerError
	switch {
	case ok:
		code = he.Code
	case errors.Is(err, wordpress.ErrNotConfigured):
		code = http.StatusServiceUnavailable
	case wordpress.IsUpstreamFailure(err):
		code = http.StatusBadGateway
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError(a.viewSite()))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
