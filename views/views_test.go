package views

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/eringen/wpfront/listing"
	"github.com/eringen/wpfront/wordpress"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

var testSite = SiteConfig{Name: "Test Blog", URL: "https://blog.example.com", Description: "Notes"}

func samplePost(id int, slug string, tags ...int) wordpress.Post {
	p := wordpress.Post{
		ID:            id,
		Slug:          slug,
		Title:         "Post &amp; " + slug,
		Excerpt:       "<p>Excerpt for " + slug + "</p>",
		Content:       "<p>Body</p>",
		Date:          "2024-03-05T10:00:00",
		Author:        wordpress.Author{Name: "Ada", Avatar: wordpress.DefaultAuthorAvatar},
		FeaturedImage: wordpress.Image{URL: "https://cdn.example.com/a.jpg", Alt: slug},
		Tags:          []wordpress.PostTag{},
		Link:          "#",
	}
	for _, id := range tags {
		p.Tags = append(p.Tags, wordpress.PostTag{ID: id, Name: "tag" + string(rune('0'+id%10))})
	}
	return p
}

func TestStripHTML(t *testing.T) {
	if got := StripHTML("<p>Hello <b>world</b></p>"); got != "Hello world..." {
		t.Fatalf("StripHTML = %q", got)
	}
	long := "<p>" + strings.Repeat("a", 200) + "</p>"
	if got := StripHTML(long); got != strings.Repeat("a", 150)+"..." {
		t.Fatalf("StripHTML did not truncate to 150: %d", len(got))
	}
	if StripHTML("") != "" {
		t.Fatalf("empty input must stay empty")
	}
	if got := PlainText("Tom &amp; Jerry<script>alert(1)</script>"); got != "Tom & Jerry" {
		t.Fatalf("PlainText = %q", got)
	}
}

func TestFormatDate(t *testing.T) {
	cases := map[string]string{
		"2024-03-05T10:00:00":  "March 5, 2024",
		"2024-03-05T10:00:00Z": "March 5, 2024",
		"2024-12-25":           "December 25, 2024",
		"not a date":           "not a date",
		"":                     "",
	}
	for in, want := range cases {
		if got := FormatDate(in); got != want {
			t.Fatalf("FormatDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReadTimeAndTruncate(t *testing.T) {
	if got := ReadTime("<p>" + strings.Repeat("word ", 201) + "</p>"); got != 2 {
		t.Fatalf("ReadTime = %d, want 2", got)
	}
	if got := ReadTime(""); got != 0 {
		t.Fatalf("ReadTime(empty) = %d", got)
	}
	if got := Truncate("short", 0); got != "short" {
		t.Fatalf("Truncate(short) = %q", got)
	}
	if got := Truncate(strings.Repeat("x", 120), 0); got != strings.Repeat("x", 100)+"..." {
		t.Fatalf("Truncate default = %q", got)
	}
	if got := Truncate("héllo wörld", 5); got != "héllo..." {
		t.Fatalf("Truncate runes = %q", got)
	}
}

func TestHelpers(t *testing.T) {
	if FormatAuthorName(wordpress.Author{}) != wordpress.DefaultAuthorName {
		t.Fatalf("missing author name must fall back")
	}
	if !IsExternalURL("https://x.test") || IsExternalURL("/local.png") {
		t.Fatalf("IsExternalURL misclassified")
	}
	if got := ThumbSrc(testSite, "https://cdn.example.com/a.jpg", 0); got != "https://cdn.example.com/a.jpg" {
		t.Fatalf("thumbnails disabled must pass through, got %q", got)
	}
	site := testSite
	site.Thumbnails = true
	if got := ThumbSrc(site, "https://cdn.example.com/a.jpg", 320); got != "/media/thumb/?src=https%3A%2F%2Fcdn.example.com%2Fa.jpg&w=320" {
		t.Fatalf("ThumbSrc = %q", got)
	}
	if got := ThumbSrc(site, wordpress.DefaultFeaturedImage, 320); got != wordpress.DefaultFeaturedImage {
		t.Fatalf("local images must not be proxied, got %q", got)
	}
	q := listing.Query{Page: 2, PerPage: 12, Search: "go", Tags: []int{3}}
	if got := TagFilterURL(5, q); got != "/filter/tag/5/?page=2&search=go&tags=3" {
		t.Fatalf("TagFilterURL = %q", got)
	}
	if got := PageURL(1, listing.Query{Page: 1}); got != "/page/1/" {
		t.Fatalf("PageURL = %q", got)
	}
}

func TestFilterRelatedPosts(t *testing.T) {
	current := samplePost(1, "current", 5, 6)
	posts := []wordpress.Post{
		current,
		samplePost(2, "shares", 6),
		samplePost(3, "unrelated", 9),
		samplePost(4, "also", 5),
		samplePost(5, "third", 5),
		samplePost(6, "fourth", 6),
	}
	related := FilterRelatedPosts(current, posts)
	if len(related) != 3 {
		t.Fatalf("expected 3 related posts, got %d", len(related))
	}
	for _, p := range related {
		if p.ID == 1 || p.ID == 3 {
			t.Fatalf("unexpected related post %d", p.ID)
		}
	}
}

func TestBlogSectionEmptyStates(t *testing.T) {
	d := HomeData{Site: testSite, State: listing.State{Query: listing.Query{Page: 1, PerPage: 12}}}
	out := render(t, BlogSection(d))
	if !strings.Contains(out, "No posts found.") || strings.Contains(out, "Try adjusting") {
		t.Fatalf("unexpected empty state: %s", out)
	}

	d.State.Query.Search = "nothing"
	d.State.Err = errors.New("upstream exploded")
	out = render(t, BlogSection(d))
	if !strings.Contains(out, "Try adjusting your search terms.") {
		t.Fatalf("search empty state missing: %s", out)
	}
	if strings.Contains(out, "exploded") {
		t.Fatalf("raw error text leaked into the page")
	}
}

func TestBlogSectionListing(t *testing.T) {
	q := listing.Query{Page: 2, PerPage: 2, Tags: []int{5}}
	d := HomeData{
		Site: testSite,
		State: listing.State{
			Query: q,
			Result: wordpress.ListResult{
				Posts:       []wordpress.Post{samplePost(1, "one", 5), samplePost(2, "two", 5)},
				TotalPages:  3,
				TotalPosts:  6,
				CurrentPage: 2,
			},
			Loaded: true,
		},
		Tags:    []wordpress.Tag{{ID: 5, Name: "Go"}, {ID: 7, Name: "Rust"}},
		AllTags: []wordpress.Tag{{ID: 5, Name: "Go"}, {ID: 7, Name: "Rust"}},
	}
	out := render(t, BlogSection(d))
	for _, want := range []string{
		`id="blog"`,
		`href="/post/one/"`,
		`Post &amp; one`,
		`hx-get="/page/3/?page=2&amp;tags=5"`,
		`aria-current="page"`,
		`aria-pressed="true"`,
		`hx-get="/filter/tag/7/?page=2&amp;tags=5"`,
		`Clear filters`,
		`March 5, 2024`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("listing missing %q:\n%s", want, out)
		}
	}
}

func TestPaginationSinglePage(t *testing.T) {
	if out := render(t, Pagination(listing.Query{Page: 1}, 1, 1)); out != "" {
		t.Fatalf("single page must render nothing, got %q", out)
	}
	out := render(t, Pagination(listing.Query{Page: 1}, 1, 10))
	if !strings.Contains(out, `aria-disabled="true">Previous`) || !strings.Contains(out, "...") {
		t.Fatalf("unexpected pagination %s", out)
	}
}

func TestPostSanitizesContent(t *testing.T) {
	p := samplePost(1, "hello", 5)
	p.Content = wordpress.ProcessContent(`<p>Hi</p><script>alert(1)</script><p>https://youtu.be/dQw4w9WgXcQ</p>`)
	p.Title = `<img src=x onerror=alert(1)>Title`
	out := render(t, Post(PostData{Site: testSite, Post: p, ReadTime: 1}))
	if strings.Contains(out, "<script>alert") || strings.Contains(out, "onerror") {
		t.Fatalf("unsafe markup rendered: %s", out)
	}
	if !strings.Contains(out, `src="https://www.youtube.com/embed/dQw4w9WgXcQ"`) {
		t.Fatalf("video embed missing: %s", out)
	}
	if !strings.Contains(out, "1 min read") {
		t.Fatalf("read time missing")
	}
}

func TestLayoutMeta(t *testing.T) {
	meta := PageMeta{Title: "Hello", URL: "https://blog.example.com/post/hello/", OGType: "article", JSONLD: WebsiteJsonLD(testSite)}
	out := render(t, Layout(testSite, meta, nil, templ.NopComponent))
	for _, want := range []string{
		"<title>Hello | Test Blog</title>",
		`<link rel="canonical" href="https://blog.example.com/post/hello/">`,
		`<meta property="og:type" content="article">`,
		`application/ld+json`,
		`href="/privacy-policy/"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("layout missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "analytics.js") {
		t.Fatalf("analytics script must be opt-in")
	}
}

func TestJsonLD(t *testing.T) {
	var site map[string]interface{}
	if err := json.Unmarshal([]byte(WebsiteJsonLD(testSite)), &site); err != nil {
		t.Fatalf("website JSON-LD: %v", err)
	}
	if site["url"] != "https://blog.example.com" {
		t.Fatalf("url = %v", site["url"])
	}

	p := samplePost(1, "hello", 5)
	p.Title = "</script><b>x</b>"
	raw := BlogPostingJsonLD(testSite, p)
	if strings.Contains(raw, "</script>") {
		t.Fatalf("JSON-LD must not close the script element: %s", raw)
	}
	var post map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &post); err != nil {
		t.Fatalf("post JSON-LD: %v", err)
	}
	if post["url"] != "https://blog.example.com/post/hello/" {
		t.Fatalf("url = %v", post["url"])
	}
}

func TestSuggestions(t *testing.T) {
	if out := render(t, Suggestions(SuggestionsData{Query: " "})); out != "" {
		t.Fatalf("blank query must render nothing")
	}
	out := render(t, Suggestions(SuggestionsData{Query: "zz"}))
	if !strings.Contains(out, "No matches for") {
		t.Fatalf("no-match message missing: %s", out)
	}
	out = render(t, Suggestions(SuggestionsData{Query: "he", Posts: []wordpress.Post{samplePost(1, "hello")}}))
	if !strings.Contains(out, `href="/post/hello/"`) {
		t.Fatalf("suggestion link missing: %s", out)
	}
}

func TestSearchPanelKeepsTags(t *testing.T) {
	out := render(t, SearchPanel(SearchPanelData{Query: listing.Query{Page: 1, Search: "go", Tags: []int{3, 4}}, CSRF: "tok"}))
	for _, want := range []string{`name="tags" value="3,4"`, `name="_csrf" value="tok"`, `value="go"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("search panel missing %q: %s", want, out)
		}
	}
}
