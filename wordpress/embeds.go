package wordpress

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

const (
	embedWrapperOpen  = `<div class="aspect-video my-6">`
	embedWrapperClose = `</div>`
	embedWrapperClass = "aspect-video my-6"
	embedIframeClass  = "w-full h-full rounded-lg"
)

var youtubeURLPattern = regexp.MustCompile(`(?:https?://)?(?:www\.)?(?:youtube\.com/watch\?v=|youtu\.be/)([a-zA-Z0-9_-]{11})(?:[?&][^\s<"']*)?`)

// ProcessContent rewrites post HTML so that pasted YouTube links become
// embeds and every iframe sits in a responsive container. Link rewriting runs
// first so generated iframes are wrapped the same way as authored ones.
// The result is a fixed point: ProcessContent(ProcessContent(s)) == ProcessContent(s).
func ProcessContent(s string) string {
	if s == "" {
		return ""
	}
	return wrapIframes(rewriteYouTubeLinks(s))
}

// YouTubeEmbedURL returns the embed URL for a video id.
func YouTubeEmbedURL(id string) string {
	return "https://www.youtube.com/embed/" + id
}

func youTubeEmbed(id string) string {
	return embedWrapperOpen +
		`<iframe class="` + embedIframeClass + `" src="` + YouTubeEmbedURL(id) + `" frameborder="0" allowfullscreen></iframe>` +
		embedWrapperClose
}

// token is one lexical HTML token with its exact source bytes.
type token struct {
	typ   html.TokenType
	raw   string
	name  string
	class string
	hasCl bool
}

// tokenize splits s into tokens whose raw text concatenates back to s.
// Trailing bytes the tokenizer cannot classify come back as a text token.
func tokenize(s string) []token {
	z := html.NewTokenizer(strings.NewReader(s))
	var toks []token
	consumed := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		t := token{typ: tt, raw: string(z.Raw())}
		consumed += len(t.raw)
		if tt == html.StartTagToken || tt == html.EndTagToken || tt == html.SelfClosingTagToken {
			name, more := z.TagName()
			t.name = string(name)
			for more {
				var key, val []byte
				key, val, more = z.TagAttr()
				if string(key) == "class" {
					t.class, t.hasCl = string(val), true
				}
			}
		}
		toks = append(toks, t)
	}
	if consumed < len(s) {
		toks = append(toks, token{typ: html.TextToken, raw: s[consumed:]})
	}
	return toks
}

// rawTextElements hold text the browser never renders as markup.
var rawTextElements = map[string]bool{
	"script": true, "style": true, "textarea": true, "title": true,
	"iframe": true, "noscript": true, "xmp": true,
}

// rewriteYouTubeLinks replaces bare video URLs found in text nodes. URLs inside
// tag attributes, anchors and raw text elements are left alone.
func rewriteYouTubeLinks(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	anchorDepth := 0
	rawText := ""
	for _, t := range tokenize(s) {
		switch t.typ {
		case html.TextToken:
			if anchorDepth > 0 || rawText != "" {
				b.WriteString(t.raw)
			} else {
				b.WriteString(rewriteText(t.raw))
			}
			continue
		case html.StartTagToken:
			if t.name == "a" {
				anchorDepth++
			}
			if rawTextElements[t.name] {
				rawText = t.name
			}
		case html.EndTagToken:
			if t.name == "a" && anchorDepth > 0 {
				anchorDepth--
			}
			if t.name == rawText {
				rawText = ""
			}
		}
		b.WriteString(t.raw)
	}
	return b.String()
}

func rewriteText(text string) string {
	if text == "" {
		return text
	}
	return youtubeURLPattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := youtubeURLPattern.FindStringSubmatch(m)
		return youTubeEmbed(sub[1])
	})
}

func isIframeStart(t token) bool {
	return t.name == "iframe" && (t.typ == html.StartTagToken || t.typ == html.SelfClosingTagToken)
}

func isBlank(t token) bool {
	return t.typ == html.TextToken && strings.TrimSpace(t.raw) == ""
}

// wrapIframes puts every iframe in the responsive container unless it already
// sits directly inside one (whitespace aside). Self-closing and unclosed
// iframes are closed explicitly so the element is well formed.
func wrapIframes(s string) string {
	toks := tokenize(s)
	var b strings.Builder
	b.Grow(len(s) + 64)

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if !isIframeStart(t) {
			b.WriteString(t.raw)
			continue
		}

		// The element spans the start tag, its raw content and the end tag.
		end := i
		closed := t.typ == html.StartTagToken
		if closed {
			closed = false
			for j := i + 1; j < len(toks); j++ {
				if toks[j].typ == html.EndTagToken && toks[j].name == "iframe" {
					end, closed = j, true
					break
				}
				if toks[j].typ != html.TextToken {
					break
				}
				end = j
			}
		}

		if wrapped(toks, i, end) && closed {
			for ; i <= end; i++ {
				b.WriteString(toks[i].raw)
			}
			i = end
			continue
		}

		b.WriteString(embedWrapperOpen)
		b.WriteString(iframeStartTag(t))
		for j := i + 1; j <= end; j++ {
			b.WriteString(toks[j].raw)
		}
		if !closed {
			b.WriteString("</iframe>")
		}
		b.WriteString(embedWrapperClose)
		i = end
	}
	return b.String()
}

// wrapped reports whether toks[start:end+1] is the only content of a wrapper div.
func wrapped(toks []token, start, end int) bool {
	prev := start - 1
	for prev >= 0 && isBlank(toks[prev]) {
		prev--
	}
	next := end + 1
	for next < len(toks) && isBlank(toks[next]) {
		next++
	}
	if prev < 0 || next >= len(toks) {
		return false
	}
	first, last := toks[prev], toks[next]
	return first.typ == html.StartTagToken && first.name == "div" &&
		strings.Join(strings.Fields(first.class), " ") == embedWrapperClass &&
		last.typ == html.EndTagToken && last.name == "div"
}

// iframeStartTag returns the start tag with the default class added when it
// has none and with a self-closing slash dropped.
func iframeStartTag(t token) string {
	raw := t.raw
	if t.typ == html.SelfClosingTagToken {
		raw = strings.TrimRight(strings.TrimSuffix(raw, "/>"), " \t\n\r\f") + ">"
	}
	if t.hasCl {
		return raw
	}
	const n = len("<iframe")
	return raw[:n] + ` class="` + embedIframeClass + `"` + raw[n:]
}
