package views

import "github.com/a-h/templ"

// Page renders a static content page. d.HTML is trusted server-side output.
func Page(d PageData) templ.Component {
	return Layout(d.Site, d.Meta, nil, component(func(h *htmlWriter) {
		h.raw(`<article class="prose mx-auto max-w-3xl dark:prose-invert"><h1>`)
		h.text(d.Title)
		h.raw(`</h1>`, d.HTML, `</article>`)
	}))
}

func NotFound(site SiteConfig) templ.Component {
	return errorPage(site, "Page not found", "The post you are looking for does not exist or was moved.")
}

func ServerError(site SiteConfig) templ.Component {
	return errorPage(site, "Something went wrong", "We could not load this page. Please try again in a moment.")
}

func errorPage(site SiteConfig, title, message string) templ.Component {
	meta := PageMeta{Title: title, NoIndex: true}
	return Layout(site, meta, nil, component(func(h *htmlWriter) {
		h.raw(`<section class="py-20 text-center"><h1 class="text-3xl font-bold">`)
		h.text(title)
		h.raw(`</h1><p class="mt-4 text-stone-600 dark:text-stone-300">`)
		h.text(message)
		h.raw(`</p><a href="/" class="mt-8 inline-block rounded border border-ink px-4 py-2">Back to posts</a></section>`)
	}))
}
