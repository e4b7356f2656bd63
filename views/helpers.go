package views

import (
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/eringen/wpfront/listing"
	"github.com/eringen/wpfront/wordpress"
)

const (
	relatedLimit = 3
	cardTagLimit = 3
	thumbWidth   = 640
)

// buildURL joins path segments onto a base URL, ensuring a trailing slash.
func buildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// PostURL is the site-relative path of a post page.
func PostURL(slug string) string {
	return "/post/" + url.PathEscape(slug) + "/"
}

// AbsPostURL is the canonical URL of a post.
func AbsPostURL(cfg SiteConfig, slug string) string {
	return buildURL(cfg.URL, "post", slug)
}

// FilterRelatedPosts returns up to three posts sharing a tag id with current.
func FilterRelatedPosts(current wordpress.Post, posts []wordpress.Post) []wordpress.Post {
	var related []wordpress.Post
	for _, p := range posts {
		if p.ID == current.ID || p.Slug == current.Slug {
			continue
		}
		for _, t := range p.Tags {
			if current.HasTag(t.ID) {
				related = append(related, p)
				break
			}
		}
		if len(related) == relatedLimit {
			break
		}
	}
	return related
}

// TagClass returns CSS classes for a tag pill, with active variant.
func TagClass(active bool) string {
	base := "inline-flex items-center rounded border border-ink dark:border-white/30 bg-stone-100 dark:bg-neutral-700 px-2.5 py-1 text-[11px] font-semibold uppercase tracking-[0.12em] hover:-translate-y-0.5 hover:shadow-sm transition"
	if active {
		base += " bg-ink dark:bg-white text-white dark:text-ink"
	}
	return base
}

// ThumbSrc routes remote featured images through the thumbnail proxy when
// enabled. Local placeholders are returned as-is.
func ThumbSrc(cfg SiteConfig, src string, width int) string {
	if !cfg.Thumbnails || !IsExternalURL(src) {
		return src
	}
	if width <= 0 {
		width = thumbWidth
	}
	v := url.Values{}
	v.Set("src", src)
	v.Set("w", strconv.Itoa(width))
	return "/media/thumb/?" + v.Encode()
}

// withState appends the encoded listing query to a transition endpoint so
// the server can rebuild the controller from the request alone.
func withState(endpoint string, q listing.Query) string {
	if enc := q.Encode(); enc != "" {
		return endpoint + "?" + enc
	}
	return endpoint
}

// TagFilterURL is the toggle endpoint for one tag.
func TagFilterURL(id int, q listing.Query) string {
	return withState("/filter/tag/"+strconv.Itoa(id)+"/", q)
}

// PageURL is the pagination endpoint for page n.
func PageURL(n int, q listing.Query) string {
	return withState("/page/"+strconv.Itoa(n)+"/", q)
}

// ClearFiltersURL is the endpoint that drops every selected tag.
func ClearFiltersURL(q listing.Query) string {
	return withState("/filter/clear/", q)
}
