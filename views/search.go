package views

import (
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// SearchPanel is the opened search form. The hidden tags field keeps the
// active tag filters across the search transition.
func SearchPanel(d SearchPanelData) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<form action="/search/" method="post" class="relative py-4" hx-post="/search/" hx-target="#blog" hx-swap="outerHTML show:#blog:top">`)
		h.raw(`<input type="hidden" name="_csrf"`)
		h.attr("value", d.CSRF)
		h.raw(`>`)
		if len(d.Query.Tags) > 0 {
			ids := make([]string, len(d.Query.Tags))
			for i, id := range d.Query.Tags {
				ids[i] = strconv.Itoa(id)
			}
			h.raw(`<input type="hidden" name="tags"`)
			h.attr("value", strings.Join(ids, ","))
			h.raw(`>`)
		}
		h.raw(`<label for="search-input" class="sr-only">Search posts</label>`)
		h.raw(`<input id="search-input" type="search" name="search" autocomplete="off" autofocus placeholder="Search posts..." class="w-full rounded border border-ink px-4 py-2 dark:bg-neutral-800"`)
		h.attr("value", d.Query.Search)
		h.raw(` hx-get="/search/suggest/" hx-trigger="input changed delay:300ms, search" hx-target="#search-suggestions" hx-swap="innerHTML" hx-sync="this:replace">`)
		h.raw(`<div id="search-suggestions"></div>`)
		h.raw(`</form>`)
	})
}

// Suggestions is the dropdown of quick matches under the search field.
func Suggestions(d SuggestionsData) templ.Component {
	return component(func(h *htmlWriter) {
		if strings.TrimSpace(d.Query) == "" {
			return
		}
		h.raw(`<ul class="absolute z-10 mt-1 w-full divide-y rounded border border-ink bg-white shadow-lg dark:bg-neutral-800" role="listbox">`)
		if len(d.Posts) == 0 {
			h.raw(`<li class="px-4 py-3 text-sm text-stone-500">No matches for &ldquo;`)
			h.text(d.Query)
			h.raw(`&rdquo;</li>`)
		}
		for _, p := range d.Posts {
			h.raw(`<li role="option"><a`)
			h.href("href", PostURL(p.Slug))
			h.raw(` class="flex gap-3 px-4 py-3 hover:bg-stone-100 dark:hover:bg-neutral-700"><img`)
			h.href("src", ThumbSrc(d.Site, p.FeaturedImage.URL, 160))
			h.attr("alt", "")
			h.raw(` class="h-10 w-10 flex-none rounded object-cover"><span><span class="block text-sm font-semibold">`)
			h.text(PlainText(p.Title))
			h.raw(`</span><span class="block text-xs text-stone-500">`)
			h.text(Truncate(PlainText(p.Excerpt), 0))
			h.raw(`</span></span></a></li>`)
		}
		h.raw(`</ul>`)
	})
}
