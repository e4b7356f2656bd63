package wordpress

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/wp-json/wp/v2/", Logger: nopLogger{}})
}

const twoPosts = `[
	{"id":1,"title":{"rendered":"One"},"slug":"one","date":"2024-01-01T00:00:00","_embedded":{"author":[{"name":"Ann"}],"wp:term":[[{"id":5,"name":"Go","slug":"go"}]]}},
	{"id":2,"title":"Two","slug":"two"}
]`

// taggedPosts is a small upstream corpus; each entry carries its tag ids so the
// fixture server can filter on ?tags= the way WordPress does.
var taggedPosts = []struct {
	tags []int
	json string
}{
	{[]int{5}, `{"id":1,"title":{"rendered":"One"},"slug":"one","_embedded":{"author":[{"name":"Ann"}],"wp:term":[[{"id":5,"name":"Go","slug":"go"}]]}}`},
	{nil, `{"id":2,"title":"Two","slug":"two"}`},
	{[]int{5, 7}, `{"id":3,"title":{"rendered":"Three"},"slug":"three","_embedded":{"wp:term":[[{"id":5,"name":"Go","slug":"go"},{"id":7,"name":"Web","slug":"web"}]]}}`},
	{[]int{7}, `{"id":4,"title":{"rendered":"Four"},"slug":"four","_embedded":{"wp:term":[[{"id":7,"name":"Web","slug":"web"}]]}}`},
}

// filterTagged writes the posts carrying every requested tag, capped at per_page.
func filterTagged(w http.ResponseWriter, r *http.Request) {
	var want []int
	if v := r.URL.Query().Get("tags"); v != "" {
		for _, part := range strings.Split(v, ",") {
			id, _ := strconv.Atoi(part)
			want = append(want, id)
		}
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	var out []string
	for _, p := range taggedPosts {
		if limit > 0 && len(out) == limit {
			break
		}
		if hasAll(p.tags, want) {
			out = append(out, p.json)
		}
	}
	_, _ = w.Write([]byte("[" + strings.Join(out, ",") + "]"))
}

func hasAll(have, want []int) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			found = found || h == w
		}
		if !found {
			return false
		}
	}
	return true
}

func TestListPostsQueryAndTotals(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("X-WP-Total", "25")
		w.Header().Set("X-WP-TotalPages", "3")
		filterTagged(w, r)
	})

	res, err := c.ListPosts(context.Background(), ListQuery{Page: 2, PerPage: 10, Tags: []int{5}})
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if gotPath != "/wp-json/wp/v2/posts" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	want := map[string]string{
		"page": "2", "per_page": "10", "tags": "5",
		"_embed": "true", "orderby": "date", "order": "desc",
	}
	for k, v := range want {
		if got := gotQuery[k]; len(got) != 1 || got[0] != v {
			t.Fatalf("param %s = %v, want %q", k, got, v)
		}
	}
	if _, ok := gotQuery["search"]; ok {
		t.Fatalf("search must be omitted when empty")
	}
	if res.TotalPages != 3 || res.TotalPosts != 25 || res.CurrentPage != 2 {
		t.Fatalf("unexpected totals %+v", res)
	}
	if len(res.Posts) == 0 || len(res.Posts) > 10 {
		t.Fatalf("expected 1..10 posts, got %d", len(res.Posts))
	}
	for _, p := range res.Posts {
		if !p.HasTag(5) {
			t.Fatalf("post %d lacks tag 5: %+v", p.ID, p.Tags)
		}
	}
	if res.Posts[0].Author.Name != "Ann" {
		t.Fatalf("first post not normalized: %+v", res.Posts[0])
	}
}

func TestListPostsDefaultsMissingFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(twoPosts))
	})
	res, err := c.ListPosts(context.Background(), ListQuery{})
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(res.Posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(res.Posts))
	}
	if p := res.Posts[1]; p.Title != "Two" || p.Author.Name != DefaultAuthorName || len(p.Tags) != 0 {
		t.Fatalf("second post not defaulted: %+v", p)
	}
}

func TestListPostsMissingHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	res, err := c.ListPosts(context.Background(), ListQuery{})
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if res.TotalPages != 1 || res.TotalPosts != 0 || res.CurrentPage != 1 {
		t.Fatalf("unexpected defaults %+v", res)
	}
	if res.Posts == nil {
		t.Fatalf("posts must be an empty slice, not nil")
	}
}

func TestListPostsJoinsTags(t *testing.T) {
	var tags string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		tags = r.URL.Query().Get("tags")
		_, _ = w.Write([]byte(`[]`))
	})
	if _, err := c.ListPosts(context.Background(), ListQuery{Tags: []int{3, 9, 12}, Search: "go"}); err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if tags != "3,9,12" {
		t.Fatalf("tags = %q", tags)
	}
}

func TestUpstreamErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"rest_invalid"}`, http.StatusBadRequest)
	})
	_, err := c.ListPosts(context.Background(), ListQuery{})
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Status != http.StatusBadRequest || ue.Endpoint != "posts" {
		t.Fatalf("unexpected error fields %+v", ue)
	}
	if !IsUpstreamFailure(err) {
		t.Fatalf("expected upstream failure classification")
	}
}

func TestNotConfigured(t *testing.T) {
	c := New(Config{Logger: nopLogger{}})
	if c.Configured() {
		t.Fatalf("expected unconfigured client")
	}
	if _, err := c.ListPosts(context.Background(), ListQuery{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("ListPosts err = %v", err)
	}
	if _, err := c.TrendingPosts(context.Background(), 3); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("TrendingPosts err = %v", err)
	}
	if _, err := c.Tags(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Tags err = %v", err)
	}
	if IsUpstreamFailure(ErrNotConfigured) {
		t.Fatalf("configuration errors are not upstream failures")
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Logger: nopLogger{}})
	_, err := c.RecentPosts(context.Background(), 5)
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout, got %v", err)
	}
}

func TestCallerCancelIsNotTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.RecentPosts(ctx, 5)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrUpstreamTimeout) {
		t.Fatalf("cancellation must not be reported as timeout")
	}
}

func TestPostBySlug(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slug") == "hello" {
			_, _ = w.Write([]byte(`[{"id":7,"title":{"rendered":"Hello"},"slug":"hello"}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})

	post, found, err := c.PostBySlug(context.Background(), "hello")
	if err != nil || !found {
		t.Fatalf("expected post, got found=%v err=%v", found, err)
	}
	if post.ID != 7 || post.Title != "Hello" {
		t.Fatalf("unexpected post %+v", post)
	}

	_, found, err = c.PostBySlug(context.Background(), "missing")
	if err != nil {
		t.Fatalf("not found must not be an error: %v", err)
	}
	if found {
		t.Fatalf("expected not found")
	}
}

func TestTrendingFallsBack(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if r.URL.Query().Get("meta_key") == "views" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if n != 2 {
			t.Errorf("unexpected call %d", n)
		}
		_, _ = w.Write([]byte(twoPosts))
	})
	posts, err := c.TrendingPosts(context.Background(), 3)
	if err != nil {
		t.Fatalf("TrendingPosts: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestTrendingDefaultsLimit(t *testing.T) {
	tests := []struct {
		limit int
		want  string
	}{
		{0, "5"},
		{-1, "5"},
		{3, "3"},
	}
	for _, tt := range tests {
		var calls int32
		var perPage string
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			perPage = r.URL.Query().Get("per_page")
			if perPage == "0" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(twoPosts))
		})
		if _, err := c.TrendingPosts(context.Background(), tt.limit); err != nil {
			t.Fatalf("TrendingPosts(%d): %v", tt.limit, err)
		}
		if perPage != tt.want {
			t.Fatalf("TrendingPosts(%d): per_page = %q, want %q", tt.limit, perPage, tt.want)
		}
		if got := atomic.LoadInt32(&calls); got != 1 {
			t.Fatalf("TrendingPosts(%d): %d calls, want 1", tt.limit, got)
		}
	}
}

func TestTrendingBoundedCalls(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.TrendingPosts(context.Background(), 3)
	if err == nil {
		t.Fatalf("expected error")
	}
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Status != http.StatusInternalServerError {
		t.Fatalf("expected wrapped UpstreamError, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected exactly 3 calls, got %d", got)
	}
}

func TestSuggestShortQuery(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`[]`))
	})
	for _, q := range []string{"", "a", " b ", "é"} {
		posts, err := c.SuggestPosts(context.Background(), q, 5)
		if err != nil {
			t.Fatalf("SuggestPosts(%q): %v", q, err)
		}
		if posts == nil || len(posts) != 0 {
			t.Fatalf("SuggestPosts(%q) = %v, want empty", q, posts)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("expected no upstream calls, got %d", got)
	}
}

func TestSuggestQuery(t *testing.T) {
	var search, perPage string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		search = r.URL.Query().Get("search")
		perPage = r.URL.Query().Get("per_page")
		_, _ = w.Write([]byte(twoPosts))
	})
	posts, err := c.SuggestPosts(context.Background(), "  go ", 0)
	if err != nil {
		t.Fatalf("SuggestPosts: %v", err)
	}
	if search != "go" || perPage != "5" {
		t.Fatalf("search=%q per_page=%q", search, perPage)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
}

func TestTags(t *testing.T) {
	var perPage string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/tags" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		perPage = r.URL.Query().Get("per_page")
		_, _ = w.Write([]byte(`[{"id":1,"name":"Go","slug":"go","count":4},{"id":2,"name":"Web","slug":"web","count":1}]`))
	})
	tags, err := c.Tags(context.Background())
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	if perPage != "100" {
		t.Fatalf("per_page = %q", perPage)
	}
	if len(tags) != 2 || tags[0].Name != "Go" || tags[0].Count != 4 {
		t.Fatalf("unexpected tags %+v", tags)
	}
}

func TestRequestIDForwarded(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-Id")
		_, _ = w.Write([]byte(`[]`))
	})
	ctx := WithRequestID(context.Background(), "req-123")
	if _, err := c.RecentPosts(ctx, 5); err != nil {
		t.Fatalf("RecentPosts: %v", err)
	}
	if got != "req-123" {
		t.Fatalf("X-Request-Id = %q", got)
	}
}
