package views

import (
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/wpfront/listing"
	"github.com/eringen/wpfront/wordpress"
)

// Post is the single post page.
func Post(d PostData) templ.Component {
	return Layout(d.Site, d.Meta, d.Recent, component(func(h *htmlWriter) {
		p := d.Post
		h.raw(`<div class="grid gap-10 lg:grid-cols-[minmax(0,1fr)_18rem]"><article class="min-w-0" data-post-id="`, strconv.Itoa(p.ID), `">`)
		h.raw(`<a href="/" class="text-sm text-stone-500 hover:underline">&larr; Back to posts</a>`)
		h.raw(`<h1 class="mt-4 text-3xl font-bold leading-tight md:text-4xl">`)
		h.text(PlainText(p.Title))
		h.raw(`</h1>`)
		postMeta(h, p, d.ReadTime)
		if len(p.Tags) > 0 {
			h.raw(`<ul class="mt-4 flex flex-wrap gap-2">`)
			for _, t := range p.Tags {
				target := TagFilterURL(t.ID, listing.Query{Page: 1})
				h.raw(`<li><a`)
				h.href("href", target)
				h.attr("class", TagClass(false))
				h.raw(`>`)
				h.text(t.Name)
				h.raw(`</a></li>`)
			}
			h.raw(`</ul>`)
		}
		h.raw(`<figure class="my-8 overflow-hidden rounded-lg"><img`)
		h.href("src", p.FeaturedImage.URL)
		h.attr("alt", PlainText(p.FeaturedImage.Alt))
		h.raw(` class="w-full object-cover"></figure>`)
		narrationPanel(h)
		h.raw(`<div class="prose max-w-none dark:prose-invert">`)
		h.raw(SanitizeContent(p.Content))
		h.raw(`</div>`)
		if IsExternalURL(p.Link) {
			h.raw(`<p class="mt-8 text-sm"><a`)
			h.href("href", p.Link)
			h.raw(` rel="noopener" target="_blank" class="underline">Original article</a></p>`)
		}
		if len(d.Related) > 0 {
			h.raw(`<section class="mt-12"><h2 class="mb-4 text-xl font-bold">Related posts</h2><div class="grid gap-6 md:grid-cols-3">`)
			for _, r := range d.Related {
				h.component(postCard(d.Site, r, false))
			}
			h.raw(`</div></section>`)
		}
		h.raw(`</article>`)
		h.component(Sidebar(d.Site, nil, d.Recent))
		h.raw(`</div>`)
		h.raw(`<script src="/public/narration.js" defer></script>`)
	}))
}

// narrationPanel stays hidden until narration.js finds speech synthesis.
func narrationPanel(h *htmlWriter) {
	h.raw(`<div data-narration hidden class="mb-8 rounded-lg border border-stone-200 p-4 dark:border-stone-700">`)
	h.raw(`<div class="flex items-center justify-between gap-4"><p class="font-semibold">Listen to this article</p><div class="flex gap-2">`)
	for _, action := range []string{"play", "pause", "stop"} {
		h.raw(`<button type="button" data-narration-action="`, action, `" class="rounded-full border px-4 py-1 text-sm">`)
		h.text(strings.ToUpper(action[:1]) + action[1:])
		h.raw(`</button>`)
	}
	h.raw(`</div></div><div class="mt-3 h-1 rounded bg-stone-200 dark:bg-stone-700"><div data-narration-progress class="h-1 rounded bg-stone-800 dark:bg-stone-200" style="width:0%"></div></div></div>`)
}

func postMeta(h *htmlWriter, p wordpress.Post, readTime int) {
	h.raw(`<div class="mt-4 flex flex-wrap items-center gap-4 text-sm text-stone-500"><span class="flex items-center gap-2"><img`)
	h.href("src", p.Author.Avatar)
	h.raw(` alt="" class="h-8 w-8 rounded-full">`)
	h.text(FormatAuthorName(p.Author))
	h.raw(`</span><time`)
	h.attr("datetime", p.Date)
	h.raw(`>`)
	h.text(FormatDate(p.Date))
	h.raw(`</time>`)
	if readTime > 0 {
		h.raw(`<span>`, strconv.Itoa(readTime), ` min read</span>`)
	}
	h.raw(`</div>`)
}
