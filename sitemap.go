package wpfront

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/wpfront/wordpress"
)

const sitemapPostLimit = 100

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.WordPress.AllPosts(c.Request().Context(), sitemapPostLimit)
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) renderSitemap(c echo.Context, posts []wordpress.Post) error {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: BuildURL(base), ChangeFreq: "daily", Priority: "1.0"},
		{Loc: BuildURL(base, "privacy-policy"), ChangeFreq: "yearly", Priority: "0.3"},
	}
	for _, p := range posts {
		lastMod := p.Modified
		if lastMod == "" {
			lastMod = p.Date
		}
		urls = append(urls, sitemapURL{
			Loc:        PostURL(base, p.Slug),
			LastMod:    lastMod,
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
