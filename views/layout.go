package views

import (
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/wpfront/wordpress"
)

const footerRecentLimit = 4

// Layout is the full HTML document shell around body.
func Layout(site SiteConfig, meta PageMeta, recent []wordpress.Post, body templ.Component) templ.Component {
	return component(func(h *htmlWriter) {
		title := site.Name
		if meta.Title != "" {
			title = meta.Title + " | " + site.Name
		}
		desc := meta.Description
		if desc == "" {
			desc = site.Description
		}
		ogType := meta.OGType
		if ogType == "" {
			ogType = "website"
		}

		h.raw(`<!doctype html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(`</title>`)
		h.raw(`<meta name="description"`)
		h.attr("content", desc)
		h.raw(`>`)
		if meta.NoIndex {
			h.raw(`<meta name="robots" content="noindex">`)
		}
		if meta.URL != "" {
			h.raw(`<link rel="canonical"`)
			h.href("href", meta.URL)
			h.raw(`><meta property="og:url"`)
			h.attr("content", meta.URL)
			h.raw(`>`)
		}
		h.raw(`<meta property="og:title"`)
		h.attr("content", title)
		h.raw(`><meta property="og:description"`)
		h.attr("content", desc)
		h.raw(`><meta property="og:type"`)
		h.attr("content", ogType)
		h.raw(`><meta property="og:site_name"`)
		h.attr("content", site.Name)
		h.raw(`>`)
		if meta.Image != "" {
			h.raw(`<meta property="og:image"`)
			h.attr("content", meta.Image)
			h.raw(`><meta name="twitter:card" content="summary_large_image">`)
		}
		h.raw(`<link rel="alternate" type="application/rss+xml"`)
		h.attr("title", site.Name)
		h.raw(` href="/feed.xml">`)
		h.raw(`<link rel="icon" href="/favicon.svg" type="image/svg+xml">`)
		h.raw(`<link rel="stylesheet" href="/public/styles.css">`)
		h.raw(`<script src="/public/htmx.min.js" defer></script>`)
		if site.Analytics {
			h.raw(`<script src="/public/analytics.js" defer></script>`)
		}
		if meta.JSONLD != "" {
			h.raw(`<script type="application/ld+json">`, meta.JSONLD, `</script>`)
		}
		h.raw(`</head><body class="min-h-screen bg-stone-50 text-ink dark:bg-neutral-900 dark:text-white">`)
		h.component(header(site))
		h.raw(`<main id="main" class="mx-auto max-w-6xl px-4 py-8">`)
		h.component(body)
		h.raw(`</main>`)
		h.component(Footer(site, recent))
		h.raw(`</body></html>`)
	})
}

func header(site SiteConfig) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<header class="border-b border-ink/10 dark:border-white/10"><div class="mx-auto flex max-w-6xl items-center justify-between px-4 py-4">`)
		h.raw(`<a href="/" class="text-xl font-bold tracking-tight">`)
		h.text(site.Name)
		h.raw(`</a>`)
		h.raw(`<button type="button" class="rounded border border-ink px-3 py-1 text-sm" hx-get="/search/open/" hx-target="#search-panel" hx-swap="innerHTML" aria-label="Search posts">Search</button>`)
		h.raw(`</div><div id="search-panel" class="mx-auto max-w-6xl px-4"></div></header>`)
	})
}

// Footer lists the latest posts and the site links.
func Footer(site SiteConfig, recent []wordpress.Post) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<footer class="mt-16 border-t border-ink/10 dark:border-white/10"><div class="mx-auto grid max-w-6xl gap-8 px-4 py-10 md:grid-cols-3">`)
		h.raw(`<div><p class="font-bold">`)
		h.text(site.Name)
		h.raw(`</p>`)
		if site.Description != "" {
			h.raw(`<p class="mt-2 text-sm text-stone-600 dark:text-stone-300">`)
			h.text(site.Description)
			h.raw(`</p>`)
		}
		h.raw(`</div>`)
		if len(recent) > 0 {
			h.raw(`<div><p class="font-semibold">Latest posts</p><ul class="mt-2 space-y-1 text-sm">`)
			for i, p := range recent {
				if i == footerRecentLimit {
					break
				}
				h.raw(`<li><a`)
				h.href("href", PostURL(p.Slug))
				h.raw(` class="hover:underline">`)
				h.text(PlainText(p.Title))
				h.raw(`</a></li>`)
			}
			h.raw(`</ul></div>`)
		}
		h.raw(`<div class="text-sm"><ul class="space-y-1">`)
		h.raw(`<li><a href="/privacy-policy/" class="hover:underline">Privacy Policy</a></li>`)
		h.raw(`<li><a href="/feed.xml" class="hover:underline">RSS</a></li>`)
		h.raw(`<li><a href="/sitemap.xml" class="hover:underline">Sitemap</a></li>`)
		h.raw(`</ul><p class="mt-4 text-stone-500">&copy; `)
		h.raw(strconv.Itoa(time.Now().Year()), " ")
		h.text(site.Name)
		h.raw(`</p></div></div></footer>`)
	})
}
