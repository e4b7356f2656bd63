package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/gommon/log"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultPerPage       = 12
	maxTagsPerRequest    = 100
	defaultSuggestLimit  = 5
	defaultTrendingLimit = 5
	defaultRecentLimit   = 8
	minSuggestQueryLen   = 2
	maxErrorBodyLog      = 2048
)

// Logger is the subset of the Echo logger the client writes to.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Config configures a Client.
type Config struct {
	BaseURL    string        // e.g. https://example.com/wp-json/wp/v2
	Timeout    time.Duration // per request, default 10s
	HTTPClient *http.Client  // default wraps http.DefaultTransport with request logging
	Limiter    *rate.Limiter // optional bound on outbound request rate
	Logger     Logger
}

// Client talks to a WordPress REST endpoint. It never retries on its own,
// except for the bounded ordering fallback in TrendingPosts.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	log     Logger
}

// New creates a Client. An empty BaseURL is accepted; every call then fails
// with ErrNotConfigured.
func New(cfg Config) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		timeout: cfg.Timeout,
		http:    cfg.HTTPClient,
		limiter: cfg.Limiter,
		log:     cfg.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.log == nil {
		c.log = log.New("wordpress")
	}
	if c.http == nil {
		c.http = &http.Client{Transport: NewLoggingTransport(nil, c.log)}
	}
	return c
}

// Configured reports whether a base URL is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// ListQuery selects one page of posts.
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	Tags    []int
	OrderBy string // default "date"
	Order   string // default "desc"
}

// ListResult is one page of posts plus the pagination totals reported upstream.
type ListResult struct {
	Posts       []Post
	TotalPages  int
	TotalPosts  int
	CurrentPage int
}

// ListPosts fetches one page of posts. Pagination totals come from the
// X-WP-TotalPages and X-WP-Total headers and are not checked against the body.
func (c *Client) ListPosts(ctx context.Context, q ListQuery) (ListResult, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = defaultPerPage
	}
	if q.OrderBy == "" {
		q.OrderBy = "date"
	}
	if q.Order == "" {
		q.Order = "desc"
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("per_page", strconv.Itoa(q.PerPage))
	params.Set("_embed", "true")
	params.Set("orderby", q.OrderBy)
	params.Set("order", q.Order)
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if len(q.Tags) > 0 {
		params.Set("tags", joinIDs(q.Tags))
	}

	var raw []RawPost
	header, err := c.get(ctx, "posts", params, &raw)
	if err != nil {
		return ListResult{}, err
	}

	totalPages := headerInt(header, "X-WP-TotalPages", 1)
	if totalPages < 1 {
		totalPages = 1
	}
	return ListResult{
		Posts:       normalizeAll(raw),
		TotalPages:  totalPages,
		TotalPosts:  headerInt(header, "X-WP-Total", 0),
		CurrentPage: q.Page,
	}, nil
}

// PostBySlug returns the first post whose slug matches exactly. A missing
// post is reported through found == false, not through err.
func (c *Client) PostBySlug(ctx context.Context, slug string) (post Post, found bool, err error) {
	if slug == "" {
		return Post{}, false, nil
	}
	params := url.Values{}
	params.Set("slug", slug)
	params.Set("_embed", "true")

	var raw []RawPost
	if _, err := c.get(ctx, "posts", params, &raw); err != nil {
		return Post{}, false, err
	}
	if len(raw) == 0 {
		return Post{}, false, nil
	}
	return Normalize(raw[0]), true, nil
}

// trendingOrderings is tried in order until one succeeds. The popularity
// ordering depends on a views plugin and is often rejected upstream.
var trendingOrderings = []struct {
	name   string
	params map[string]string
}{
	{"popularity", map[string]string{"meta_key": "views", "order": "desc"}},
	{"default", map[string]string{"order": "desc"}},
	{"recency", map[string]string{"orderby": "date", "order": "desc"}},
}

// TrendingPosts returns the most popular posts, falling back to default and
// then recency ordering. At most len(trendingOrderings) requests are made.
func (c *Client) TrendingPosts(ctx context.Context, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = defaultTrendingLimit
	}
	var lastErr error
	for _, o := range trendingOrderings {
		params := url.Values{}
		params.Set("per_page", strconv.Itoa(limit))
		params.Set("_embed", "true")
		for k, v := range o.params {
			params.Set(k, v)
		}
		posts, err := c.fetchPosts(ctx, params)
		if err == nil {
			return posts, nil
		}
		if errors.Is(err, ErrNotConfigured) || ctx.Err() != nil {
			return nil, err
		}
		c.log.Warnf("wordpress: trending %s ordering failed: %v", o.name, err)
		lastErr = err
	}
	return nil, fmt.Errorf("wordpress: trending posts: %w", lastErr)
}

// RecentPosts returns the newest posts by publish date.
func (c *Client) RecentPosts(ctx context.Context, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(limit))
	params.Set("orderby", "date")
	params.Set("order", "desc")
	params.Set("_embed", "true")
	return c.fetchPosts(ctx, params)
}

// Tags returns up to 100 tags from a single request. Sites with more tags are
// truncated; there is no pagination loop.
func (c *Client) Tags(ctx context.Context) ([]Tag, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(maxTagsPerRequest))

	var raw []rawTag
	if _, err := c.get(ctx, "tags", params, &raw); err != nil {
		return nil, err
	}
	tags := make([]Tag, 0, len(raw))
	for _, t := range raw {
		tags = append(tags, normalizeTag(t))
	}
	return tags, nil
}

// SuggestPosts returns quick search matches. Queries shorter than two
// characters return an empty slice without calling upstream.
func (c *Client) SuggestPosts(ctx context.Context, query string, limit int) ([]Post, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSuggestQueryLen {
		return []Post{}, nil
	}
	if limit <= 0 {
		limit = defaultSuggestLimit
	}
	params := url.Values{}
	params.Set("search", query)
	params.Set("per_page", strconv.Itoa(limit))
	params.Set("_embed", "true")
	return c.fetchPosts(ctx, params)
}

// AllPosts returns the first page of up to perPage (max 100) posts, newest first.
func (c *Client) AllPosts(ctx context.Context, perPage int) ([]Post, error) {
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}
	res, err := c.ListPosts(ctx, ListQuery{Page: 1, PerPage: perPage})
	if err != nil {
		return nil, err
	}
	return res.Posts, nil
}

func (c *Client) fetchPosts(ctx context.Context, params url.Values) ([]Post, error) {
	var raw []RawPost
	if _, err := c.get(ctx, "posts", params, &raw); err != nil {
		return nil, err
	}
	return normalizeAll(raw), nil
}

// get issues one GET against endpoint and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) (http.Header, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wordpress: rate limit wait: %w", err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("wordpress: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if id := RequestID(ctx); id != "" {
		req.Header.Set("X-Request-Id", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, reqCtx, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLog))
		c.log.Debugf("wordpress: %s -> %d: %s", endpoint, resp.StatusCode, string(body))
		return nil, &UpstreamError{
			Status:     resp.StatusCode,
			StatusText: statusText(resp),
			Endpoint:   endpoint,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if reqCtx.Err() != nil {
			return nil, c.transportError(ctx, reqCtx, endpoint, err)
		}
		return nil, fmt.Errorf("wordpress: decode %s: %w", endpoint, err)
	}
	return resp.Header, nil
}

// transportError separates our own timeout from caller cancellation.
func (c *Client) transportError(parent, reqCtx context.Context, endpoint string, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ErrUpstreamTimeout, endpoint, c.timeout)
	}
	return fmt.Errorf("wordpress: GET %s: %w", endpoint, err)
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func headerInt(h http.Header, key string, fallback int) int {
	v := strings.TrimSpace(h.Get(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func normalizeAll(raw []RawPost) []Post {
	posts := make([]Post, 0, len(raw))
	for _, r := range raw {
		posts = append(posts, Normalize(r))
	}
	return posts
}
