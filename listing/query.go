// Package listing keeps search text, tag filters and pagination consistent
// with fetched results and with the navigable URL.
package listing

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/eringen/wpfront/wordpress"
)

// DefaultPerPage is the listing page size when none is configured.
const DefaultPerPage = 12

// Query is the listing state that drives a fetch. Tags is a set kept in
// selection order; a Query is treated as immutable and every With* method
// returns a copy.
type Query struct {
	Page    int
	PerPage int
	Search  string
	Tags    []int
}

// NewQuery returns the first page with no filters.
func NewQuery(perPage int) Query {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return Query{Page: 1, PerPage: perPage}
}

// WithSearch sets the search text and resets to the first page.
func (q Query) WithSearch(text string) Query {
	q.Search = strings.TrimSpace(text)
	q.Page = 1
	q.Tags = cloneTags(q.Tags)
	return q
}

// WithTagToggled adds id to the selected set, or removes it if present, and
// resets to the first page.
func (q Query) WithTagToggled(id int) Query {
	next := make([]int, 0, len(q.Tags)+1)
	removed := false
	for _, t := range q.Tags {
		if t == id {
			removed = true
			continue
		}
		next = append(next, t)
	}
	if !removed {
		next = append(next, id)
	}
	q.Tags = cloneTags(next)
	q.Page = 1
	return q
}

// WithoutTags clears every tag filter and resets to the first page.
func (q Query) WithoutTags() Query {
	q.Tags = nil
	q.Page = 1
	return q
}

// WithPage moves to page n, keeping search and tags. n below 1 becomes 1;
// the upper bound is applied by the Controller once totals are known.
func (q Query) WithPage(n int) Query {
	if n < 1 {
		n = 1
	}
	q.Page = n
	q.Tags = cloneTags(q.Tags)
	return q
}

// HasTag reports whether id is selected.
func (q Query) HasTag(id int) bool {
	for _, t := range q.Tags {
		if t == id {
			return true
		}
	}
	return false
}

// Filtered reports whether a search or tag filter is active.
func (q Query) Filtered() bool {
	return q.Search != "" || len(q.Tags) > 0
}

// Equal compares two queries, including tag order.
func (q Query) Equal(o Query) bool {
	if q.Page != o.Page || q.PerPage != o.PerPage || q.Search != o.Search || len(q.Tags) != len(o.Tags) {
		return false
	}
	for i := range q.Tags {
		if q.Tags[i] != o.Tags[i] {
			return false
		}
	}
	return true
}

// ListQuery maps q onto an adapter request with the given sort order.
func (q Query) ListQuery(order string) wordpress.ListQuery {
	return wordpress.ListQuery{
		Page:    q.Page,
		PerPage: q.PerPage,
		Search:  q.Search,
		Tags:    cloneTags(q.Tags),
		Order:   order,
	}
}

// Encode returns the query string for q: page (omitted when 1), search and
// tags as comma-joined ids. It is empty for the unfiltered first page.
func (q Query) Encode() string {
	var parts []string
	if q.Page > 1 {
		parts = append(parts, "page="+strconv.Itoa(q.Page))
	}
	if q.Search != "" {
		parts = append(parts, "search="+url.QueryEscape(q.Search))
	}
	if len(q.Tags) > 0 {
		ids := make([]string, len(q.Tags))
		for i, t := range q.Tags {
			ids[i] = strconv.Itoa(t)
		}
		parts = append(parts, "tags="+strings.Join(ids, ","))
	}
	return strings.Join(parts, "&")
}

// URL returns base with q encoded. An empty base means "/".
func (q Query) URL(base string) string {
	if base == "" {
		base = "/"
	}
	enc := q.Encode()
	if enc == "" {
		return base
	}
	return base + "?" + enc
}

// ParseQuery reads page, search and tags from values. Malformed pages become
// 1 and malformed or duplicate tag ids are dropped.
func ParseQuery(values url.Values, perPage int) Query {
	q := NewQuery(perPage)
	if n, err := strconv.Atoi(values.Get("page")); err == nil && n > 1 {
		q.Page = n
	}
	q.Search = values.Get("search")
	if raw := values.Get("tags"); raw != "" {
		seen := make(map[int]bool)
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || id <= 0 || seen[id] {
				continue
			}
			seen[id] = true
			q.Tags = append(q.Tags, id)
		}
	}
	return q
}

func cloneTags(tags []int) []int {
	if len(tags) == 0 {
		return nil
	}
	out := make([]int, len(tags))
	copy(out, tags)
	return out
}
