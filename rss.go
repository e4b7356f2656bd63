package wpfront

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/wpfront/views"
	"github.com/eringen/wpfront/wordpress"
)

const feedSize = 20

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	Author      string   `xml:"author,omitempty"`
	Categories  []string `xml:"category"`
	PubDate     string   `xml:"pubDate"`
	GUID        string   `xml:"guid"`
}

// rssDate converts a WordPress timestamp to RFC 1123Z, or "" when unparseable.
func rssDate(s string) string {
	for _, layout := range []string{"2006-01-02T15:04:05", time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.RFC1123Z)
		}
	}
	return ""
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.WordPress.RecentPosts(c.Request().Context(), feedSize)
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) renderRSS(c echo.Context, posts []wordpress.Post) error {
	base := a.Config.URL
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		postURL := PostURL(base, p.Slug)
		var cats []string
		for _, t := range p.Tags {
			cats = append(cats, t.Name)
		}
		items = append(items, rssItem{
			Title:       views.PlainText(p.Title),
			Link:        postURL,
			Description: views.Excerpt(p.Excerpt),
			Author:      views.FormatAuthorName(p.Author),
			Categories:  cats,
			PubDate:     rssDate(p.Date),
			GUID:        postURL,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        BuildURL(base),
			Description: a.Config.Description,
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
