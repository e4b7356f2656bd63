package views

import (
	"github.com/eringen/wpfront/listing"
	"github.com/eringen/wpfront/wordpress"
)

// SiteConfig holds site-wide settings passed to every template.
type SiteConfig struct {
	Name        string // SITE_NAME  (default "Blog")
	URL         string // SITE_URL   (default "http://localhost:3000")
	Description string // SITE_DESCRIPTION
	Author      string // SITE_AUTHOR
	Thumbnails  bool   // route featured images through /media/thumb/
	Analytics   bool   // include the analytics beacon script
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
	JSONLD      string
	NoIndex     bool
}

// HomeData is everything the listing page renders. Sidebar sources that
// failed to load are simply empty.
type HomeData struct {
	Site     SiteConfig
	Meta     PageMeta
	State    listing.State
	Options  listing.Options
	Tags     []wordpress.Tag // sampled tag cloud
	AllTags  []wordpress.Tag
	Trending []wordpress.Post
	Recent   []wordpress.Post
	CSRF     string
}

// TagName returns the display name of a selected tag id.
func (d HomeData) TagName(id int) string {
	for _, t := range d.AllTags {
		if t.ID == id {
			return t.Name
		}
	}
	return ""
}

// PostData is the single post page.
type PostData struct {
	Site     SiteConfig
	Meta     PageMeta
	Post     wordpress.Post
	Related  []wordpress.Post
	Recent   []wordpress.Post
	ReadTime int
	CSRF     string
}

// PageData is a static content page such as the privacy policy.
type PageData struct {
	Site  SiteConfig
	Meta  PageMeta
	Title string
	HTML  string // trusted, rendered server-side
}

// SuggestionsData is the quick search dropdown.
type SuggestionsData struct {
	Query string
	Posts []wordpress.Post
	Site  SiteConfig
}

// SearchPanelData is the opened search form, carrying the active filters.
type SearchPanelData struct {
	Query listing.Query
	CSRF  string
}
