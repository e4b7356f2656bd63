package views

import (
	"strconv"

	"github.com/a-h/templ"

	"github.com/eringen/wpfront/listing"
	"github.com/eringen/wpfront/wordpress"
)

const sidebarLimit = 5

// Home is the full listing page.
func Home(d HomeData) templ.Component {
	return Layout(d.Site, d.Meta, d.Recent, component(func(h *htmlWriter) {
		if d.Options.ShowHeroBanner && !d.State.Query.Filtered() && d.State.Query.Page == 1 {
			h.component(heroBanner(d.Site))
		}
		h.raw(`<div class="grid gap-10 lg:grid-cols-[minmax(0,1fr)_18rem]">`)
		h.component(BlogSection(d))
		h.component(Sidebar(d.Site, d.Trending, d.Recent))
		h.raw(`</div>`)
	}))
}

func heroBanner(site SiteConfig) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<section class="mb-10 rounded-lg border border-ink bg-white px-6 py-10 dark:bg-neutral-800"><h1 class="text-3xl font-bold">`)
		h.text(site.Name)
		h.raw(`</h1>`)
		if site.Description != "" {
			h.raw(`<p class="mt-3 max-w-2xl text-stone-600 dark:text-stone-300">`)
			h.text(site.Description)
			h.raw(`</p>`)
		}
		h.raw(`</section>`)
	})
}

// BlogSection is the swappable listing region: filters, posts and pagination.
// htmx transitions replace it as a whole.
func BlogSection(d HomeData) templ.Component {
	return component(func(h *htmlWriter) {
		q := d.State.Query
		h.raw(`<section id="blog" class="min-w-0" hx-target="this" hx-swap="outerHTML show:#blog:top" hx-sync="this:replace">`)
		h.component(tagCloud(d))
		if len(q.Tags) > 0 || q.Search != "" {
			h.component(activeFilters(d))
		}
		if d.State.Err != nil && !d.State.Empty() {
			h.raw(`<p class="mb-4 text-sm text-stone-500" role="status">Showing earlier results. The latest ones could not be loaded.</p>`)
		}
		if d.State.Empty() {
			h.component(emptyState(q.Search != ""))
		} else {
			h.raw(`<div class="mb-8 grid grid-cols-1 gap-6 md:grid-cols-2">`)
			for i, p := range d.State.Result.Posts {
				h.component(postCard(d.Site, p, i < 2))
			}
			h.raw(`</div>`)
			h.component(Pagination(q, d.State.Result.CurrentPage, d.State.Result.TotalPages))
		}
		h.raw(`</section>`)
	})
}

func tagCloud(d HomeData) templ.Component {
	return component(func(h *htmlWriter) {
		if len(d.Tags) == 0 {
			return
		}
		q := d.State.Query
		h.raw(`<nav class="mb-6" aria-label="Filter by tags"><p class="mb-2 text-xs font-semibold uppercase tracking-[0.12em] text-stone-500">Filter by tags</p><ul class="flex flex-wrap gap-2">`)
		for _, t := range d.Tags {
			active := q.HasTag(t.ID)
			target := TagFilterURL(t.ID, q)
			h.raw(`<li><a`)
			h.href("href", target)
			h.href("hx-get", target)
			h.attr("class", TagClass(active))
			if active {
				h.raw(` aria-pressed="true"`)
			}
			h.raw(`>`)
			h.text(t.Name)
			h.raw(`</a></li>`)
		}
		h.raw(`</ul></nav>`)
	})
}

func activeFilters(d HomeData) templ.Component {
	return component(func(h *htmlWriter) {
		q := d.State.Query
		h.raw(`<div class="mb-6 flex flex-wrap items-center gap-2 text-sm">`)
		if q.Search != "" {
			h.raw(`<span>Results for <strong>&ldquo;`)
			h.text(q.Search)
			h.raw(`&rdquo;</strong></span>`)
		}
		for _, id := range q.Tags {
			name := d.TagName(id)
			if name == "" {
				name = "#" + strconv.Itoa(id)
			}
			target := TagFilterURL(id, q)
			h.raw(`<a`)
			h.href("href", target)
			h.href("hx-get", target)
			h.attr("class", TagClass(true))
			h.attr("aria-label", "Remove tag "+name)
			h.raw(`>`)
			h.text(name)
			h.raw(` &times;</a>`)
		}
		if len(q.Tags) > 0 {
			target := ClearFiltersURL(q)
			h.raw(`<a`)
			h.href("href", target)
			h.href("hx-get", target)
			h.raw(` class="underline">Clear filters</a>`)
		}
		h.raw(`</div>`)
	})
}

func emptyState(searching bool) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<div class="py-12 text-center"><p class="text-lg text-stone-600 dark:text-stone-300">No posts found.</p>`)
		if searching {
			h.raw(`<p class="mt-2 text-stone-500">Try adjusting your search terms.</p>`)
		}
		h.raw(`</div>`)
	})
}

func postCard(site SiteConfig, p wordpress.Post, eager bool) templ.Component {
	return component(func(h *htmlWriter) {
		href := PostURL(p.Slug)
		h.raw(`<article class="group overflow-hidden rounded-lg border border-ink bg-white shadow-sm transition hover:-translate-y-1 hover:shadow-lg dark:bg-neutral-800"><a`)
		h.href("href", href)
		h.raw(` class="block">`)
		h.raw(`<div class="aspect-video overflow-hidden"><img`)
		h.href("src", ThumbSrc(site, p.FeaturedImage.URL, 0))
		h.attr("alt", PlainText(p.FeaturedImage.Alt))
		if eager {
			h.raw(` loading="eager"`)
		} else {
			h.raw(` loading="lazy"`)
		}
		h.raw(` class="h-full w-full object-cover transition duration-700 group-hover:scale-105"></div>`)
		h.raw(`<div class="p-5">`)
		if len(p.Tags) > 0 {
			h.raw(`<div class="mb-3 flex flex-wrap gap-2">`)
			for i, t := range p.Tags {
				if i == cardTagLimit {
					break
				}
				h.raw(`<span class="rounded bg-stone-100 px-2 py-0.5 text-xs dark:bg-neutral-700">`)
				h.text(t.Name)
				h.raw(`</span>`)
			}
			h.raw(`</div>`)
		}
		h.raw(`<h3 class="text-xl font-bold leading-tight">`)
		h.text(PlainText(p.Title))
		h.raw(`</h3><p class="mt-3 text-stone-600 dark:text-stone-300">`)
		h.text(StripHTML(p.Excerpt))
		h.raw(`</p><div class="mt-4 flex items-center gap-4 text-sm text-stone-500"><span>`)
		h.text(FormatAuthorName(p.Author))
		h.raw(`</span><time`)
		h.attr("datetime", p.Date)
		h.raw(`>`)
		h.text(FormatDate(p.Date))
		h.raw(`</time></div></div></a></article>`)
	})
}

// Pagination renders Previous, the page window and Next. Nothing is rendered
// for a single page.
func Pagination(q listing.Query, current, total int) templ.Component {
	return component(func(h *htmlWriter) {
		window := listing.PageWindow(current, total)
		if window == nil {
			return
		}
		h.raw(`<nav class="mt-8 flex items-center justify-center gap-2" aria-label="Pagination">`)
		pageLink(h, q, current-1, "Previous", current <= 1, false)
		for _, l := range window {
			if l.Ellipsis {
				h.raw(`<span class="px-3 py-2 text-stone-500">...</span>`)
				continue
			}
			pageLink(h, q, l.Page, l.String(), false, l.Page == current)
		}
		pageLink(h, q, current+1, "Next", current >= total, false)
		h.raw(`</nav>`)
	})
}

func pageLink(h *htmlWriter, q listing.Query, n int, label string, disabled, current bool) {
	cls := "min-w-[40px] rounded border border-ink px-3 py-2 text-center text-sm"
	if disabled {
		h.raw(`<span`)
		h.attr("class", cls+" opacity-40")
		h.raw(` aria-disabled="true">`)
		h.text(label)
		h.raw(`</span>`)
		return
	}
	if current {
		h.raw(`<span`)
		h.attr("class", cls+" bg-ink text-white dark:bg-white dark:text-ink")
		h.raw(` aria-current="page">`)
		h.text(label)
		h.raw(`</span>`)
		return
	}
	target := PageURL(n, q)
	h.raw(`<a`)
	h.href("href", target)
	h.href("hx-get", target)
	h.attr("class", cls+" hover:bg-stone-100 dark:hover:bg-neutral-700")
	h.raw(`>`)
	h.text(label)
	h.raw(`</a>`)
}

// Sidebar lists trending and recent posts. Missing sources are left out.
func Sidebar(site SiteConfig, trending, recent []wordpress.Post) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<aside class="space-y-8">`)
		sidebarList(h, site, "Trending", trending)
		sidebarList(h, site, "Recent posts", recent)
		h.raw(`</aside>`)
	})
}

func sidebarList(h *htmlWriter, site SiteConfig, title string, posts []wordpress.Post) {
	if len(posts) == 0 {
		return
	}
	h.raw(`<section><h2 class="mb-3 text-sm font-semibold uppercase tracking-[0.12em]">`)
	h.text(title)
	h.raw(`</h2><ul class="space-y-3">`)
	for i, p := range posts {
		if i == sidebarLimit {
			break
		}
		h.raw(`<li><a`)
		h.href("href", PostURL(p.Slug))
		h.raw(` class="group flex gap-3"><img`)
		h.href("src", ThumbSrc(site, p.FeaturedImage.URL, 160))
		h.attr("alt", PlainText(p.FeaturedImage.Alt))
		h.raw(` loading="lazy" class="h-14 w-14 flex-none rounded object-cover"><span><span class="block text-sm font-semibold group-hover:underline">`)
		h.text(PlainText(p.Title))
		h.raw(`</span><time class="text-xs text-stone-500"`)
		h.attr("datetime", p.Date)
		h.raw(`>`)
		h.text(FormatDate(p.Date))
		h.raw(`</time></span></a></li>`)
	}
	h.raw(`</ul></section>`)
}
