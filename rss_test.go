package wpfront

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmcdole/gofeed"
)

func TestRSSDate(t *testing.T) {
	tests := map[string]string{
		"2024-03-01T10:00:00":       "Fri, 01 Mar 2024 10:00:00 +0000",
		"2024-03-01T10:00:00+02:00": "Fri, 01 Mar 2024 10:00:00 +0200",
		"2024-03-01":                "Fri, 01 Mar 2024 00:00:00 +0000",
		"yesterday":                 "",
	}
	for in, want := range tests {
		if got := rssDate(in); got != want {
			t.Fatalf("rssDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFeedParses(t *testing.T) {
	app, wp := newTestApp(t)

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/feed.xml", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/rss+xml; charset=utf-8" {
		t.Fatalf("unexpected Content-Type %q", ct)
	}
	if !wp.sawQuery("per_page", "20") {
		t.Fatalf("expected the feed to request 20 posts")
	}

	feed, err := gofeed.NewParser().ParseString(rec.Body.String())
	if err != nil {
		t.Fatalf("parse feed: %v", err)
	}
	if feed.Title != "Test Blog" || feed.Link != "https://blog.example" {
		t.Fatalf("unexpected channel %q %q", feed.Title, feed.Link)
	}
	if len(feed.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(feed.Items))
	}
	item := feed.Items[0]
	if item.Title != "Hello & World" {
		t.Fatalf("title = %q", item.Title)
	}
	if item.Link != "https://blog.example/post/hello/" || item.GUID != item.Link {
		t.Fatalf("unexpected link %q guid %q", item.Link, item.GUID)
	}
	if item.Description != "Intro to the post" {
		t.Fatalf("description = %q", item.Description)
	}
	if len(item.Categories) != 1 || item.Categories[0] != "Go" {
		t.Fatalf("categories = %v", item.Categories)
	}
	if item.PublishedParsed == nil || item.PublishedParsed.Year() != 2024 {
		t.Fatalf("unexpected pubDate %q", item.Published)
	}
}
